package auditor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/feral-file/ff-drug-registry/internal/api/shared/dto"
	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/ledger"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/messaging"
)

var (
	// ErrGap is returned when an event arrives before its predecessors were seen
	ErrGap = errors.New("event arrived ahead of its predecessor")

	// ErrMalformed is returned for events missing required fields
	ErrMalformed = errors.New("malformed registration event")

	// ErrConflictingReplay is returned when a redelivered sequence carries a different hash
	ErrConflictingReplay = errors.New("replayed sequence does not match recorded hash")
)

// EventSource pages through the registry journal; the registry client implements it
//
//go:generate mockgen -source=auditor.go -destination=../mocks/auditor.go -package=mocks -mock_names=EventSource=MockEventSource
type EventSource interface {
	Events(ctx context.Context, filter domain.EventFilter) (*dto.EventsResponse, error)
}

// Stats summarizes what the auditor has seen
type Stats struct {
	Applied    uint64 `json:"applied"`
	Backfilled uint64 `json:"backfilled"`
	Duplicates uint64 `json:"duplicates"`
	Rejected   uint64 `json:"rejected"`
	// BrokenAt is the first sequence that failed chain verification, 0 while the chain holds
	BrokenAt uint64 `json:"broken_at"`
}

// Auditor follows the registration journal, verifying the hash chain and
// projecting the owner index independently of the registry.
type Auditor struct {
	mu       sync.Mutex
	verifier *ledger.Verifier
	source   EventSource
	hashes   map[uint64]string
	owners   map[domain.Owner][]string
	stats    Stats
}

// New creates an auditor starting at genesis. source may be nil, in which
// case gaps are only ever filled by redelivery.
func New(l *ledger.Ledger, source EventSource) *Auditor {
	return &Auditor{
		verifier: l.NewVerifier(),
		source:   source,
		hashes:   make(map[uint64]string),
		owners:   make(map[domain.Owner][]string),
	}
}

// Run consumes events from sub until ctx is cancelled
func (a *Auditor) Run(ctx context.Context, sub messaging.Subscriber) error {
	return sub.Subscribe(ctx, a.Handle)
}

// Bootstrap replays the whole journal from the registry before consuming live events
func (a *Auditor) Bootstrap(ctx context.Context) error {
	if a.source == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.backfill(ctx, math.MaxUint64); err != nil {
		return err
	}

	head, hash := a.verifier.Head()
	logger.InfoCtx(ctx, "Journal replayed",
		zap.Uint64("head", head),
		zap.String("headHash", hash),
		zap.Uint64("backfilled", a.stats.Backfilled))
	return nil
}

// Handle is a messaging.EventHandler. Redeliveries of applied events are
// acknowledged, gaps are backfilled or sent back for redelivery, and
// malformed or tampered events are discarded.
func (a *Auditor) Handle(ctx context.Context, ev *domain.RegistrationEvent) error {
	if err := validate(ev); err != nil {
		a.mu.Lock()
		a.stats.Rejected++
		a.mu.Unlock()
		return fmt.Errorf("%w: %w", messaging.ErrDiscard, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	head, _ := a.verifier.Head()
	switch {
	case ev.Sequence <= head:
		return a.replayed(ctx, ev)
	case ev.Sequence > head+1:
		if a.source != nil {
			if err := a.backfill(ctx, ev.Sequence-1); err != nil {
				return err
			}
			head, _ = a.verifier.Head()
		}
		if ev.Sequence > head+1 {
			return fmt.Errorf("%w: have %d, got %d", ErrGap, head, ev.Sequence)
		}
	}

	if err := a.apply(ctx, ev); err != nil {
		return err
	}
	a.stats.Applied++
	return nil
}

// IDsByOwner returns the projected drug ids of owner in registration order
func (a *Auditor) IDsByOwner(owner domain.Owner) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := a.owners[owner]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Head returns the last verified sequence and hash
func (a *Auditor) Head() (uint64, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.verifier.Head()
}

// Stats returns a snapshot of the counters
func (a *Auditor) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

func (a *Auditor) replayed(ctx context.Context, ev *domain.RegistrationEvent) error {
	if recorded := a.hashes[ev.Sequence]; recorded != ev.Hash {
		a.stats.Rejected++
		logger.ErrorCtx(ctx, ErrConflictingReplay,
			zap.Uint64("sequence", ev.Sequence),
			zap.String("recorded", recorded),
			zap.String("received", ev.Hash))
		return fmt.Errorf("%w: %w", messaging.ErrDiscard, ErrConflictingReplay)
	}
	a.stats.Duplicates++
	return nil
}

// backfill pulls journal pages after the current head up to and including until
func (a *Auditor) backfill(ctx context.Context, until uint64) error {
	for {
		head, _ := a.verifier.Head()
		if head >= until {
			return nil
		}

		page, err := a.source.Events(ctx, domain.EventFilter{Anchor: head, Limit: domain.MaxEventLimit})
		if err != nil {
			return fmt.Errorf("failed to backfill after sequence %d: %w", head, err)
		}
		if len(page.Events) == 0 {
			return nil
		}

		for i := range page.Events {
			ev := &page.Events[i]
			if ev.Sequence > until {
				return nil
			}
			if err := validate(ev); err != nil {
				return fmt.Errorf("%w: %w", messaging.ErrDiscard, err)
			}
			if err := a.apply(ctx, ev); err != nil {
				return err
			}
			a.stats.Backfilled++
		}
	}
}

func (a *Auditor) apply(ctx context.Context, ev *domain.RegistrationEvent) error {
	if err := a.verifier.Check(ev); err != nil {
		var chainErr *ledger.ChainError
		if errors.As(err, &chainErr) {
			a.stats.Rejected++
			if a.stats.BrokenAt == 0 {
				a.stats.BrokenAt = chainErr.Sequence
			}
			logger.ErrorCtx(ctx, err,
				zap.Uint64("sequence", ev.Sequence),
				zap.String("eventID", ev.EventID))
			return fmt.Errorf("%w: %w", messaging.ErrDiscard, err)
		}
		return err
	}

	a.hashes[ev.Sequence] = ev.Hash
	a.owners[ev.Owner] = append(a.owners[ev.Owner], ev.DrugID)

	logger.DebugCtx(ctx, "Registration verified",
		zap.Uint64("sequence", ev.Sequence),
		zap.String("drugID", ev.DrugID),
		zap.String("owner", ev.Owner.String()))
	return nil
}

func validate(ev *domain.RegistrationEvent) error {
	switch {
	case ev == nil:
		return ErrMalformed
	case ev.Sequence == 0:
		return fmt.Errorf("%w: sequence missing", ErrMalformed)
	case ev.DrugID == "":
		return fmt.Errorf("%w: drug id missing", ErrMalformed)
	case ev.Owner == "":
		return fmt.Errorf("%w: owner missing", ErrMalformed)
	case ev.Hash == "" || ev.PrevHash == "":
		return fmt.Errorf("%w: hash missing", ErrMalformed)
	}
	return nil
}
