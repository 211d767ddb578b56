package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/dispatch"
)

// handleSSE streams change events to the client. Query params types and
// actions (comma-separated) filter the subscription; empty means all.
func (s *Server) handleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Send connected event.
	writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
	c.Writer.Flush()

	// No dispatcher means connected-only mode — tests exercise this path.
	if s.dispatcher == nil {
		return
	}

	events := make(chan dispatch.Event, 64)
	cancel := s.dispatcher.Subscribe(splitParam(c.Query("types")), splitParam(c.Query("actions")), func(e dispatch.Event) error {
		select {
		case events <- e:
		default:
			// Slow consumer: drop rather than block the publisher.
		}
		return nil
	})
	defer cancel()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case e := <-events:
			writeSSE(c.Writer, "change", e)
			c.Writer.Flush()
		}
	}
}

// handleRecentEvents returns the most recently published change events,
// newest last. Useful for debugging subscribers without holding a stream open.
func (s *Server) handleRecentEvents(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "server: limit must be a positive integer"})
			return
		}
		limit = n
	}

	events := []dispatch.Event{}
	if s.dispatcher != nil {
		events = s.dispatcher.Recent(limit)
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}

func splitParam(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
