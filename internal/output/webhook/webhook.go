// Package webhook delivers predictions to an HTTP endpoint in batches.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/crimson-sun/stacktag/internal/model"
	"github.com/crimson-sun/stacktag/internal/output"
)

const (
	defaultBatchSize = 50
	defaultTimeout   = 10 * time.Second
	defaultBackoff   = time.Second
	maxRetries       = 3
)

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets extra HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithBatchSize sets how many predictions are sent per POST. Default: 50.
func WithBatchSize(n int) Option {
	return func(o *Output) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.client.Timeout = d }
}

// WithBackoff sets the delay before the first retry; it doubles per attempt.
// Default: 1s.
func WithBackoff(d time.Duration) Option {
	return func(o *Output) { o.backoff = d }
}

// WithScores keeps per-label scores in each record.
func WithScores() Option {
	return func(o *Output) { o.withScores = true }
}

// Payload is the body of each POST.
type Payload struct {
	BatchID     string             `json:"batch_id"`
	Predictions []model.Prediction `json:"predictions"`
}

// Output POSTs predictions as a JSON Payload once batchSize have
// accumulated, and on Close. 5xx responses are retried with exponential
// backoff; the batch keeps its BatchID across retries so receivers can
// deduplicate.
type Output struct {
	client     *http.Client
	url        string
	headers    map[string]string
	batchSize  int
	backoff    time.Duration
	withScores bool

	mu      sync.Mutex
	pending []model.Prediction
}

// New creates a webhook output targeting url.
func New(url string, opts ...Option) *Output {
	o := &Output{
		client:    &http.Client{Timeout: defaultTimeout},
		url:       url,
		batchSize: defaultBatchSize,
		backoff:   defaultBackoff,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Write queues p and sends the batch when it is full.
func (o *Output) Write(ctx context.Context, p model.Prediction) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, output.Format(p, o.withScores))
	if len(o.pending) < o.batchSize {
		return nil
	}
	return o.flushLocked(ctx)
}

// Close sends any queued predictions.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flushLocked(context.Background())
}

// flushLocked sends the pending batch. Caller must hold o.mu.
func (o *Output) flushLocked(ctx context.Context) error {
	if len(o.pending) == 0 {
		return nil
	}
	payload := Payload{BatchID: uuid.NewString(), Predictions: o.pending}
	o.pending = nil

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}
	return o.postWithRetry(ctx, payload.BatchID, body)
}

func (o *Output) postWithRetry(ctx context.Context, batchID string, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(o.backoff << (attempt - 1)):
			case <-ctx.Done():
				return fmt.Errorf("webhook: %w", ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Batch-ID", batchID)
		for k, v := range o.headers {
			req.Header.Set(k, v)
		}

		resp, err := o.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook: HTTP %d", resp.StatusCode)
		if resp.StatusCode < 500 {
			return lastErr
		}
	}
	return lastErr
}
