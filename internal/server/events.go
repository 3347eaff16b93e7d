package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// serveEvents streams download progress over SSE: one data frame per chunk
// written by any in-flight download. Frames a slow client cannot absorb are
// dropped by the broadcaster, never queued against the writer.
func (s *Server) serveEvents(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	id, events := s.hub.Subscribe()
	defer s.hub.Unsubscribe(id)

	s.log.Debug("progress subscriber connected", zap.String("subscriber", id))

	// Initial comment doubles as a handshake so proxies keep the
	// connection open.
	fmt.Fprint(c.Writer, ": connected\n\n")
	flusher.Flush()

	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
