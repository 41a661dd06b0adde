package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// eventStream pushes optimizer progress to the dashboard as Server-Sent
// Events. Each pipeline step becomes a "step" event; the stream always ends
// with exactly one "complete" or "error" event.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newEventStream prepares the response for event streaming. It fails when
// the underlying writer cannot flush, which happens behind some proxies.
func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	return &eventStream{w: w, flusher: flusher}, nil
}

// send marshals the payload and flushes one named event so the dashboard
// sees progress immediately.
func (es *eventStream) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(es.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	es.flusher.Flush()
	return nil
}

// fail terminates the stream with an error event.
func (es *eventStream) fail(message string) {
	es.send("error", map[string]string{"error": message}) //nolint:errcheck
}

// complete terminates the stream with the finished run's ID and status.
func (es *eventStream) complete(runID, status string) {
	es.send("complete", map[string]string{ //nolint:errcheck
		"run_id": runID,
		"status": status,
	})
}
