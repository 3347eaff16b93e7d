// Package httpclient provides the HTTP transfer client used for artifact
// downloads.
//
// This package handles:
//   - One outbound GET per call, no state between calls
//   - A fixed desktop-browser identity (User-Agent and Referer) so image
//     hosts do not reject the request outright
//   - An overall request timeout covering the full body read
//   - Status checking with the status code preserved in the error
//
// Retry policy lives in the downloader package; this client performs exactly
// one attempt per call.
//
// # Usage
//
//	client := httpclient.New(httpclient.DefaultOptions())
//
//	resp, err := client.Get(ctx, url)
//	if err != nil { ... }
//	defer resp.Body.Close()
//	// resp.ContentLength is 0 when the server did not declare a length
package httpclient
