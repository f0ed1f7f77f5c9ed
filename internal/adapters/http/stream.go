package httpadapter

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// streamSSE relays answer fragments as server-sent events, flushing
// after every fragment, and terminates the stream with [DONE]. Once
// the first event is written the status is committed; later failures
// can only cut the stream short.
func streamSSE(w http.ResponseWriter, stream <-chan string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for fragment := range stream {
		// A fragment with newlines must stay one event, so every line
		// gets its own data: prefix.
		if _, err := fmt.Fprintf(w, "data: %s\n\n", strings.ReplaceAll(fragment, "\n", "\ndata: ")); err != nil {
			return err
		}
		flusher.Flush()
	}

	if _, err := io.WriteString(w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
