package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-logfmt/logfmt"
)

type slogWriter struct {
	svc Service
}

// NewSlogWriter returns a writer for a slog.TextHandler that publishes each
// record through svc. A nil svc discards records.
func NewSlogWriter(svc Service) io.Writer {
	return &slogWriter{svc: svc}
}

// Write decodes logfmt records such as
// time=2025-05-09T12:34:56.789Z level=INFO msg="session created" session_id=ses_1
func (w *slogWriter) Write(p []byte) (int, error) {
	svc := w.svc
	d := logfmt.NewDecoder(bytes.NewReader(p))
	for d.ScanRecord() {
		var (
			timestamp time.Time
			level     string
			message   string
			sessionID string
		)
		attributes := make(map[string]string)

		for d.ScanKeyval() {
			key, value := string(d.Key()), string(d.Value())
			switch key {
			case "time":
				if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
					timestamp = t
				}
			case "level":
				level = strings.ToLower(value)
			case "msg", "message":
				message = value
			case "session_id":
				sessionID = value
			default:
				attributes[key] = value
			}
		}
		if d.Err() != nil {
			return len(p), fmt.Errorf("logfmt.ScanRecord: %w", d.Err())
		}
		if timestamp.IsZero() {
			timestamp = time.Now()
		}
		if svc == nil {
			continue
		}
		if err := svc.Create(context.Background(), timestamp, level, message, attributes, sessionID); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR [logging.slogWriter]: failed to publish log: %v\n", err)
		}
	}
	if d.Err() != nil {
		return len(p), fmt.Errorf("logfmt.ScanRecord final: %w", d.Err())
	}
	return len(p), nil
}
