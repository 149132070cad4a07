package adapter

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsConn is the part of a NATS connection the providers manage
//
//go:generate mockgen -source=nats.go -destination=../mocks/nats.go -package=mocks -mock_names=NatsConn=MockNatsConn
type NatsConn interface {
	Drain() error
	Close()
	ConnectedUrl() string
}

// JetStream is the slice of the JetStream API the registration stream needs
//
//go:generate mockgen -source=nats.go -destination=../mocks/nats.go -package=mocks -mock_names=JetStream=MockJetStream
type JetStream interface {
	// EnsureStream creates the stream or updates its subjects and returns the number of stored messages
	EnsureStream(ctx context.Context, name string, subjects []string) (uint64, error)
	// PublishMsg publishes data using msgID for server-side deduplication and returns the stream sequence
	PublishMsg(ctx context.Context, subject string, data []byte, msgID string) (uint64, error)
	// DurableConsumer creates or updates a durable pull consumer on stream
	DurableConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (Consumer, error)
}

type MessageHandler func(msg Message)

// Consumer is a durable pull consumer
//
//go:generate mockgen -source=nats.go -destination=../mocks/nats.go -package=mocks -mock_names=Consumer=MockNatsConsumer
type Consumer interface {
	Consume(handler MessageHandler, opts ...jetstream.PullConsumeOpt) (ConsumeContext, error)
	// Pending reports how many stream messages the consumer has not yet been delivered
	Pending(ctx context.Context) (uint64, error)
}

//go:generate mockgen -source=nats.go -destination=../mocks/nats.go -package=mocks -mock_names=ConsumeContext=MockConsumeContext
type ConsumeContext interface {
	Stop()
	Drain()
}

// Message is a delivered JetStream message
//
//go:generate mockgen -source=nats.go -destination=../mocks/nats.go -package=mocks -mock_names=Message=MockJetStreamMessage
type Message interface {
	Subject() string
	Data() []byte
	// NumDelivered is 1 on first delivery and 0 when metadata is unavailable
	NumDelivered() uint64
	Ack() error
	Nak() error
	Term() error
}

// NatsJetStream dials NATS and opens a JetStream context on the connection
//
//go:generate mockgen -source=nats.go -destination=../mocks/nats.go -package=mocks -mock_names=NatsJetStream=MockNatsJetStream
type NatsJetStream interface {
	Connect(url string, options ...nats.Option) (NatsConn, JetStream, error)
}

type realNatsJetStream struct{}

// NewNatsJetStream returns a NatsJetStream backed by nats.go
func NewNatsJetStream() NatsJetStream {
	return &realNatsJetStream{}
}

func (n *realNatsJetStream) Connect(url string, options ...nats.Option) (NatsConn, JetStream, error) {
	nc, err := nats.Connect(url, options...)
	if err != nil {
		return nil, nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	return nc, &jetStream{js: js}, nil
}

type jetStream struct {
	js jetstream.JetStream
}

func (j *jetStream) EnsureStream(ctx context.Context, name string, subjects []string) (uint64, error) {
	stream, err := j.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
	})
	if err != nil {
		return 0, err
	}
	return stream.CachedInfo().State.Msgs, nil
}

func (j *jetStream) PublishMsg(ctx context.Context, subject string, data []byte, msgID string) (uint64, error) {
	ack, err := j.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID))
	if err != nil {
		return 0, err
	}
	return ack.Sequence, nil
}

func (j *jetStream) DurableConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (Consumer, error) {
	c, err := j.js.CreateOrUpdateConsumer(ctx, stream, cfg)
	if err != nil {
		return nil, err
	}
	return &consumer{c: c}, nil
}

type consumer struct {
	c jetstream.Consumer
}

func (c *consumer) Consume(handler MessageHandler, opts ...jetstream.PullConsumeOpt) (ConsumeContext, error) {
	return c.c.Consume(func(msg jetstream.Msg) {
		handler(&message{Msg: msg})
	}, opts...)
}

func (c *consumer) Pending(ctx context.Context) (uint64, error) {
	info, err := c.c.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.NumPending, nil
}

// message adds NumDelivered on top of jetstream.Msg
type message struct {
	jetstream.Msg
}

func (m *message) NumDelivered() uint64 {
	md, err := m.Metadata()
	if err != nil || md == nil {
		return 0
	}
	return md.NumDelivered
}
