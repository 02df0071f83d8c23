// Package indexer triggers downstream search reindexing after an ingestion
// pass. Indexing itself is someone else's job; the tracker only announces
// the window of changed records.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Indexer requests reindexing of records changed since the given instant.
type Indexer interface {
	Reindex(ctx context.Context, changedSince time.Time) error
}

// Webhook POSTs the reindex request to a configured endpoint.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook indexer. timeout bounds the single request.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (w *Webhook) Reindex(ctx context.Context, changedSince time.Time) error {
	payload, err := json.Marshal(map[string]string{
		"changed_since": changedSince.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return eris.Wrap(err, "indexer: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "indexer: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "indexer: trigger reindex")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		return eris.Errorf("indexer: reindex trigger returned %d", resp.StatusCode)
	}
	return nil
}

// Noop is used when no indexing endpoint is configured.
type Noop struct{}

func (Noop) Reindex(context.Context, time.Time) error { return nil }

var (
	_ Indexer = (*Webhook)(nil)
	_ Indexer = Noop{}
)
