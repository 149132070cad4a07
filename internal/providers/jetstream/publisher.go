package jetstream

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/messaging"
)

const publishMaxRetries = 3

type publisher struct {
	nc     adapter.NatsConn
	js     adapter.JetStream
	prefix string
	json   adapter.JSON
}

// NewPublisher connects to NATS, ensures the registration stream exists and
// returns a publisher for it
func NewPublisher(ctx context.Context, cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	nc, js, err := connect(cfg, natsJS)
	if err != nil {
		return nil, err
	}

	stored, err := js.EnsureStream(ctx, cfg.StreamName, []string{cfg.SubjectPrefix + ".>"})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create or update stream %s: %w", cfg.StreamName, err)
	}
	logger.InfoCtx(ctx, "Registration stream ready",
		zap.String("stream", cfg.StreamName),
		zap.String("url", nc.ConnectedUrl()),
		zap.Uint64("messages", stored))

	return &publisher{
		nc:     nc,
		js:     js,
		prefix: cfg.SubjectPrefix,
		json:   jsonAdapter,
	}, nil
}

// PublishRegistration publishes a registration event. The event id doubles as the
// JetStream message id so a retried publish is deduplicated by the server.
func (p *publisher) PublishRegistration(ctx context.Context, ev domain.RegistrationEvent) error {
	data, err := p.json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := RegisteredSubject(p.prefix, ev.Owner.String())
	var streamSeq uint64
	operation := func() error {
		seq, err := p.js.PublishMsg(ctx, subject, data, ev.EventID)
		if err != nil {
			return err
		}
		streamSeq = seq
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), publishMaxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	logger.DebugCtx(ctx, "Published registration event",
		zap.String("subject", subject),
		zap.Uint64("sequence", ev.Sequence),
		zap.Uint64("streamSequence", streamSeq))
	return nil
}

// Close drains the NATS connection
func (p *publisher) Close() {
	drain(p.nc)
}
