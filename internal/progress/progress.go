package progress

// Event describes the state of one download after a chunk has been written.
type Event struct {
	URL         string `json:"url"`
	Path        string `json:"path"`
	Downloaded  int64  `json:"downloaded"`
	Total       int64  `json:"total"`
	BytesPerSec int64  `json:"bytesPerSec"`
}

// Sink receives progress events. Implementations must not block; the
// download path calls Publish synchronously after every chunk.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Publish calls f(ev).
func (f SinkFunc) Publish(ev Event) { f(ev) }
