// Package sse implements the typed SSE framing for component L: named
// events with strict `event: <name>\ndata: <json>\n\n` framing plus a
// heartbeat comment.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// EventName is the closed set of event types emitted by the /explore
// endpoints.
type EventName string

const (
	EventStarted   EventName = "started"
	EventOpening   EventName = "opening"
	EventRecs      EventName = "recs"
	EventNextSteps EventName = "next_steps"
	EventChat      EventName = "chat"
	EventWhyDelta  EventName = "why_delta"
	EventDone      EventName = "done"
	EventError     EventName = "error"
)

// Writer wraps an http.ResponseWriter to emit typed SSE events.
type Writer struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewWriter sets the SSE response headers and returns a Writer. Panics if
// the underlying ResponseWriter doesn't support flushing, matching the
// teacher's fail-fast contract for an unsupported transport.
func NewWriter(w http.ResponseWriter) *Writer {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		panic("streaming not supported by the underlying http.ResponseWriter")
	}
	return &Writer{w: w, f: flusher}
}

// Send emits one named event with a JSON-marshaled payload.
func (s *Writer) Send(event EventName, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload for %s: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write sse event %s: %w", event, err)
	}
	s.f.Flush()
	return nil
}

// Heartbeat emits a bare comment line, keeping the connection alive without
// delivering a typed event to the client.
func (s *Writer) Heartbeat() error {
	if _, err := fmt.Fprint(s.w, ":\n\n"); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}
