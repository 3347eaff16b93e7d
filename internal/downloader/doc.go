// Package downloader fetches a remote artifact into a local file.
//
// This package coordinates the transfer client and the streaming writer. A
// download is a bounded sequence of attempts: each attempt issues one GET,
// then streams the body to the destination in fixed-size chunks, publishing
// one progress event per chunk.
//
// # Retry
//
// Transport failures and non-success statuses are retried with a short
// linear backoff; this is an interactive local tool, so attempts are few and
// delays small. Local filesystem errors are never retried: the failure is
// deterministic and another attempt cannot fix it. Retry decisions are made
// by a pure Policy so they can be tested without I/O.
//
// # Partial writes
//
// There is no resume. Every attempt truncates the destination and restarts
// from byte zero, and a failed download may leave a partial file behind,
// matching the truncate-and-restart contract of the writer.
package downloader
