package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/logger"
)

// Config holds webhook delivery configuration
type Config struct {
	URLs                 []string
	Secret               string
	MaxRetries           uint64
	RetryInitialInterval time.Duration
	Workers              int
}

// Sink delivers registration events to every configured endpoint.
// Endpoints are called concurrently on a bounded worker pool; each endpoint
// is retried with exponential backoff on network errors, 429 and 5xx.
type Sink struct {
	cfg    Config
	client adapter.HTTPClient
	clock  adapter.Clock
	pool   pond.Pool
}

// NewSink creates a webhook sink
func NewSink(cfg Config, client adapter.HTTPClient, clock adapter.Clock) *Sink {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 500 * time.Millisecond
	}

	return &Sink{
		cfg:    cfg,
		client: client,
		clock:  clock,
		pool:   pond.NewPool(cfg.Workers),
	}
}

func (s *Sink) Name() string {
	return "webhook"
}

// Deliver signs ev once and posts it to every endpoint, returning the joined
// errors of endpoints that never accepted it
func (s *Sink) Deliver(ctx context.Context, ev domain.RegistrationEvent) error {
	now := s.clock.Now()
	payload, signature, timestamp, err := GenerateSignedPayload(s.cfg.Secret, NewRegistrationEvent(ev, now), now)
	if err != nil {
		return err
	}

	req := adapter.HTTPRequest{
		Method: http.MethodPost,
		Header: http.Header{
			"Content-Type":  []string{"application/json"},
			HeaderSignature: []string{signature},
			HeaderEventID:   []string{ev.EventID},
			HeaderEventType: []string{domain.EventTypeDrugRegistered},
			HeaderTimestamp: []string{strconv.FormatInt(timestamp, 10)},
		},
		Body: payload,
	}

	tasks := make([]pond.Task, 0, len(s.cfg.URLs))
	for _, url := range s.cfg.URLs {
		r := req
		r.URL = url
		tasks = append(tasks, s.pool.SubmitErr(func() error {
			return s.post(ctx, r)
		}))
	}

	var errs []error
	for _, task := range tasks {
		if err := task.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sink) post(ctx context.Context, req adapter.HTTPRequest) error {
	attempts := 0
	operation := func() error {
		attempts++
		resp, err := s.client.Do(ctx, req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		err = fmt.Errorf("webhook %s responded %d", req.URL, resp.StatusCode)
		if adapter.IsRetryableStatus(resp.StatusCode) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInitialInterval
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.MaxRetries), ctx))
	if err != nil {
		return fmt.Errorf("failed to deliver webhook after %d attempts: %w", attempts, err)
	}

	logger.DebugCtx(ctx, "Webhook delivered",
		zap.String("url", req.URL),
		zap.String("eventID", req.Header.Get(HeaderEventID)),
		zap.Int("attempts", attempts))
	return nil
}

// Close waits for in-flight deliveries and stops the worker pool
func (s *Sink) Close() {
	s.pool.StopAndWait()
}
