package notifier

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/metrics"
)

const defaultQueueSize = 1024

// ErrClosed is returned by Close when the dispatcher was already closed
var ErrClosed = errors.New("notifier closed")

// Sink delivers registration events to one destination
//
//go:generate mockgen -source=notifier.go -destination=../mocks/notifier.go -package=mocks -mock_names=Sink=MockSink
type Sink interface {
	// Name identifies the sink in logs and metrics
	Name() string
	// Deliver sends one event; retries are the sink's own concern
	Deliver(ctx context.Context, ev domain.RegistrationEvent) error
}

type sinkQueue struct {
	sink Sink
	ch   chan domain.RegistrationEvent
}

// Dispatcher fans registration events out to sinks without ever blocking the caller.
// Each sink has its own bounded queue drained by one goroutine, so a sink sees
// events in the order they were notified. When a queue is full the event is
// dropped for that sink and counted.
type Dispatcher struct {
	queues  []*sinkQueue
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a dispatcher; call Start to begin delivering
func New(sinks []Sink, queueSize int, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	queues := make([]*sinkQueue, 0, len(sinks))
	for _, s := range sinks {
		queues = append(queues, &sinkQueue{sink: s, ch: make(chan domain.RegistrationEvent, queueSize)})
	}

	return &Dispatcher{queues: queues, metrics: m}
}

// Start launches one delivery worker per sink
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)

	for _, q := range d.queues {
		d.wg.Add(1)
		go d.run(ctx, q)
	}

	logger.InfoCtx(ctx, "Notifier started", zap.Int("sinks", len(d.queues)))
}

func (d *Dispatcher) run(ctx context.Context, q *sinkQueue) {
	defer d.wg.Done()

	for ev := range q.ch {
		if err := q.sink.Deliver(ctx, ev); err != nil {
			d.metrics.ObserveNotification(q.sink.Name(), metrics.OutcomeFailed)
			logger.ErrorCtx(ctx, err,
				zap.String("sink", q.sink.Name()),
				zap.Uint64("sequence", ev.Sequence),
				zap.String("drugID", ev.DrugID))
			continue
		}
		d.metrics.ObserveNotification(q.sink.Name(), metrics.OutcomeDelivered)
	}
}

// Notify enqueues ev for every sink. It never blocks.
func (d *Dispatcher) Notify(ev domain.RegistrationEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}

	for _, q := range d.queues {
		select {
		case q.ch <- ev:
		default:
			d.metrics.ObserveNotification(q.sink.Name(), metrics.OutcomeDropped)
			logger.Warn("Notification queue full, dropping event",
				zap.String("sink", q.sink.Name()),
				zap.Uint64("sequence", ev.Sequence),
				zap.String("drugID", ev.DrugID))
		}
	}
}

// Close stops accepting events and waits for queued ones to drain.
// If ctx expires first, in-flight deliveries are cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.closed = true
	for _, q := range d.queues {
		close(q.ch)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if d.cancel != nil {
			d.cancel()
		}
		<-done
		return ctx.Err()
	}

	if d.cancel != nil {
		d.cancel()
	}
	return nil
}
