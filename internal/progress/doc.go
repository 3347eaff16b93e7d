// Package progress carries download progress events from the streaming
// writer to whoever is listening.
//
// Delivery is fire-and-forget: the writer publishes one Event per chunk and
// never blocks on, or fails because of, a consumer. The Broadcaster fans
// events out to subscriber channels and drops events for subscribers that are
// not keeping up.
//
// # Usage
//
//	hub := progress.NewBroadcaster()
//
//	id, ch := hub.Subscribe()
//	defer hub.Unsubscribe(id)
//
//	for ev := range ch {
//	    // ev.Downloaded, ev.Total, ev.BytesPerSec
//	}
package progress
