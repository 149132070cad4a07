package jetstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/messaging"
)

type subscriber struct {
	nc     adapter.NatsConn
	js     adapter.JetStream
	json   adapter.JSON
	config Config
}

// NewSubscriber connects to NATS for consuming registration events with a durable consumer
func NewSubscriber(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Subscriber, error) {
	nc, js, err := connect(cfg, natsJS)
	if err != nil {
		return nil, err
	}

	return &subscriber{nc: nc, js: js, json: jsonAdapter, config: cfg}, nil
}

// Subscribe consumes events one at a time so the handler sees them in stream order
func (s *subscriber) Subscribe(ctx context.Context, handler messaging.EventHandler) error {
	logger.InfoCtx(ctx, "Starting registration consumer",
		zap.String("stream", s.config.StreamName),
		zap.String("consumer", s.config.ConsumerName))

	consumer, err := s.js.DurableConsumer(ctx, s.config.StreamName, jetstream.ConsumerConfig{
		Durable:       s.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       s.config.AckWait,
		MaxDeliver:    s.config.MaxDeliver,
		MaxAckPending: 1,
		FilterSubject: s.config.SubjectPrefix + ".registered.>",
	})
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	pending, err := consumer.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.InfoCtx(ctx, "Registration consumer ready",
		zap.String("consumer", s.config.ConsumerName),
		zap.Uint64("pending", pending))

	msgChan := make(chan adapter.Message, 1)
	sub, err := consumer.Consume(func(msg adapter.Message) {
		select {
		case msgChan <- msg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Shutting down registration consumer")
			return ctx.Err()
		case msg := <-msgChan:
			s.handleMessage(ctx, msg, handler)
		}
	}
}

func (s *subscriber) handleMessage(ctx context.Context, msg adapter.Message, handler messaging.EventHandler) {
	var ev domain.RegistrationEvent
	if err := s.json.Unmarshal(msg.Data(), &ev); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("message", "Failed to unmarshal event"),
			zap.String("subject", msg.Subject()))
		if err := msg.Term(); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	err := handler(ctx, &ev)
	switch {
	case err == nil:
		if err := msg.Ack(); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to ack message"))
		}
	case errors.Is(err, messaging.ErrDiscard):
		logger.WarnCtx(ctx, "Discarding registration event",
			zap.Uint64("sequence", ev.Sequence), zap.Error(err))
		if err := msg.Term(); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to terminate message"))
		}
	default:
		logger.WarnCtx(ctx, "Registration event not handled, requesting redelivery",
			zap.Uint64("sequence", ev.Sequence),
			zap.Uint64("deliveryCount", msg.NumDelivered()),
			zap.Error(err))
		if err := msg.Nak(); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to nak message"))
		}
	}
}

// Close drains the NATS connection
func (s *subscriber) Close() {
	drain(s.nc)
}
