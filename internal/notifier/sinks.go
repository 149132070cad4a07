package notifier

import (
	"context"

	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/messaging"
	"github.com/feral-file/ff-drug-registry/internal/pubsub"
)

// brokerSink feeds the in-process broker behind the live event stream
type brokerSink struct {
	broker *pubsub.Broker[domain.RegistrationEvent]
}

// NewBrokerSink creates a sink that publishes into an in-process broker
func NewBrokerSink(broker *pubsub.Broker[domain.RegistrationEvent]) Sink {
	return &brokerSink{broker: broker}
}

func (s *brokerSink) Name() string {
	return "broker"
}

func (s *brokerSink) Deliver(ctx context.Context, ev domain.RegistrationEvent) error {
	s.broker.Publish(ev)
	return nil
}

// publisherSink forwards events to a message bus publisher
type publisherSink struct {
	name      string
	publisher messaging.Publisher
}

// NewPublisherSink creates a sink backed by a message bus publisher
func NewPublisherSink(name string, publisher messaging.Publisher) Sink {
	return &publisherSink{name: name, publisher: publisher}
}

func (s *publisherSink) Name() string {
	return s.name
}

func (s *publisherSink) Deliver(ctx context.Context, ev domain.RegistrationEvent) error {
	return s.publisher.PublishRegistration(ctx, ev)
}
