// Package loki pushes console events to Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"savings-admin/console/internal/telemetry/domain"
)

// Job is the job label attached to every stream.
const Job = "savings-admin"

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single stream with labels and log entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // each entry is [timestamp_ns, log_line]
}

// labelSanitize replaces characters we keep out of label values.
var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// Emitter implements telemetry.EventEmitter by pushing each event as one JSON line.
// Labels are limited to low-cardinality fields (event_type, source); the admin ID stays in the line.
type Emitter struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewEmitter returns an Emitter for baseURL (e.g. http://localhost:3100). Returns nil if baseURL is empty.
func NewEmitter(baseURL string) *Emitter {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil
	}
	return &Emitter{BaseURL: baseURL, HTTPClient: &http.Client{Timeout: 5 * time.Second}}
}

// Emit pushes event to Loki. A nil event is ignored.
func (e *Emitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	line, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return e.Push(ctx, ts, string(line), map[string]string{
		"event_type": event.Type,
		"source":     event.Source,
	})
}

// Push sends a single log line. Empty label values are dropped after sanitizing.
// Returns an error if the HTTP request fails or Loki returns non-2xx.
func (e *Emitter) Push(ctx context.Context, timestamp time.Time, line string, labels map[string]string) error {
	if e == nil || e.BaseURL == "" {
		return fmt.Errorf("loki: base URL is empty")
	}
	streamLabels := make(map[string]string, len(labels)+1)
	streamLabels["job"] = Job
	for k, v := range labels {
		sanitized := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_")
		if sanitized != "" {
			streamLabels[k] = sanitized
		}
	}
	body := PushRequest{
		Streams: []Stream{{
			Stream: streamLabels,
			Values: [][]string{{strconv.FormatInt(timestamp.UnixNano(), 10), line}},
		}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := strings.TrimSuffix(e.BaseURL, "/") + "/loki/api/v1/push"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	client := e.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
