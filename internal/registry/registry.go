package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/ledger"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/metrics"
	"github.com/feral-file/ff-drug-registry/internal/store"
)

// Notifier receives every sealed registration event after it is committed.
// Implementations must not block.
type Notifier interface {
	Notify(ev domain.RegistrationEvent)
}

// LedgerReport summarizes a verification pass over the registration journal
type LedgerReport struct {
	Events       uint64 `json:"events"`
	HeadSequence uint64 `json:"head_sequence"`
	HeadHash     string `json:"head_hash"`
	Valid        bool   `json:"valid"`
	BrokenAt     uint64 `json:"broken_at,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Registry defines the drug provenance registry operations
//
//go:generate mockgen -source=registry.go -destination=../mocks/registry.go -package=mocks -mock_names=Registry=MockRegistry,Notifier=MockNotifier
type Registry interface {
	// Register records a new drug owned by caller and returns its id
	Register(ctx context.Context, caller string, input domain.RegisterInput) (string, error)

	// Get retrieves a drug by id
	Get(ctx context.Context, id string) (*domain.Drug, error)

	// Exists reports whether an id is registered
	Exists(ctx context.Context, id string) (bool, error)

	// IsExpired reports whether a drug's expiry lies before the current time
	IsExpired(ctx context.Context, id string) (bool, error)

	// ListByOwner lists an owner's drug ids in registration order
	ListByOwner(ctx context.Context, owner string) ([]string, error)

	// CountByOwner counts an owner's drugs
	CountByOwner(ctx context.Context, owner string) (uint64, error)

	// Total counts all registered drugs
	Total(ctx context.Context) (uint64, error)

	// Events replays the registration journal after filter.Anchor
	Events(ctx context.Context, filter domain.EventFilter) ([]domain.RegistrationEvent, error)

	// VerifyLedger re-hashes the whole journal and reports the first broken entry
	VerifyLedger(ctx context.Context) (*LedgerReport, error)
}

type registry struct {
	// mu serializes check-then-insert within this process
	mu       sync.Mutex
	store    store.Store
	ledger   *ledger.Ledger
	notifier Notifier
	clock    adapter.Clock
	metrics  *metrics.Metrics
}

// New creates a registry. notifier and m may be nil.
func New(st store.Store, l *ledger.Ledger, notifier Notifier, clock adapter.Clock, m *metrics.Metrics) Registry {
	return &registry{
		store:    st,
		ledger:   l,
		notifier: notifier,
		clock:    clock,
		metrics:  m,
	}
}

// Register checks owner, name, id, batch, uniqueness, expiry ordering and
// manufacture date in that order and reports only the first failure
func (r *registry) Register(ctx context.Context, caller string, input domain.RegisterInput) (string, error) {
	owner, err := domain.NormalizeOwner(caller)
	if err != nil {
		r.metrics.ObserveRegistration(metrics.OutcomeRejected)
		return "", err
	}

	if err := input.ValidateRequired(); err != nil {
		r.metrics.ObserveRegistration(metrics.OutcomeRejected)
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.store.DrugExists(ctx, input.ID)
	if err != nil {
		r.metrics.ObserveRegistration(metrics.OutcomeError)
		return "", fmt.Errorf("failed to check drug existence: %w", err)
	}
	if exists {
		r.metrics.ObserveRegistration(metrics.OutcomeConflict)
		return "", domain.ErrDrugAlreadyRegistered
	}

	now := r.clock.Now()
	if err := input.ValidateTemporal(now); err != nil {
		r.metrics.ObserveRegistration(metrics.OutcomeRejected)
		return "", err
	}

	drug := domain.Drug{
		ID:                   input.ID,
		Name:                 input.Name,
		BatchNumber:          input.BatchNumber,
		ManufactureTimestamp: input.ManufactureTimestamp,
		ExpiryTimestamp:      input.ExpiryTimestamp,
		Owner:                owner,
		RegisteredAt:         now.Unix(),
		Details:              input.Details,
	}

	ev, err := r.store.InsertDrug(ctx, store.InsertDrugInput{
		Drug:    drug,
		EventID: ulid.MustNewDefault(now).String(),
	})
	if err != nil {
		// Another process sharing the database won the race
		if errors.Is(err, domain.ErrDrugAlreadyRegistered) {
			r.metrics.ObserveRegistration(metrics.OutcomeConflict)
			return "", domain.ErrDrugAlreadyRegistered
		}
		r.metrics.ObserveRegistration(metrics.OutcomeError)
		return "", fmt.Errorf("failed to insert drug: %w", err)
	}

	// Notify under the lock so every sink sees events in sequence order
	if r.notifier != nil {
		r.notifier.Notify(*ev)
	}
	r.metrics.ObserveRegistration(metrics.OutcomeRegistered)
	r.metrics.SetRecords(ev.Sequence)

	logger.InfoCtx(ctx, "Drug registered",
		zap.String("id", drug.ID),
		zap.String("owner", owner.String()),
		zap.Uint64("sequence", ev.Sequence))

	return drug.ID, nil
}

func (r *registry) Get(ctx context.Context, id string) (*domain.Drug, error) {
	drug, err := r.store.GetDrug(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get drug: %w", err)
	}
	if drug == nil {
		return nil, domain.ErrDrugNotFound
	}
	return drug, nil
}

func (r *registry) Exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	exists, err := r.store.DrugExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check drug existence: %w", err)
	}
	return exists, nil
}

// IsExpired is evaluated against the clock on every call
func (r *registry) IsExpired(ctx context.Context, id string) (bool, error) {
	drug, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return drug.IsExpiredAt(r.clock.Now()), nil
}

func (r *registry) ListByOwner(ctx context.Context, owner string) ([]string, error) {
	o, err := domain.NormalizeOwner(owner)
	if err != nil {
		return []string{}, nil
	}

	ids, err := r.store.GetDrugIDsByOwner(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("failed to list drugs by owner: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (r *registry) CountByOwner(ctx context.Context, owner string) (uint64, error) {
	o, err := domain.NormalizeOwner(owner)
	if err != nil {
		return 0, nil
	}

	count, err := r.store.CountDrugsByOwner(ctx, o)
	if err != nil {
		return 0, fmt.Errorf("failed to count drugs by owner: %w", err)
	}
	return count, nil
}

func (r *registry) Total(ctx context.Context) (uint64, error) {
	total, err := r.store.CountDrugs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count drugs: %w", err)
	}
	return total, nil
}

func (r *registry) Events(ctx context.Context, filter domain.EventFilter) ([]domain.RegistrationEvent, error) {
	if filter.Owner != nil {
		o, err := domain.NormalizeOwner(filter.Owner.String())
		if err != nil {
			return []domain.RegistrationEvent{}, nil
		}
		filter.Owner = &o
	}

	events, err := r.store.GetRegistrationEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration events: %w", err)
	}
	if events == nil {
		events = []domain.RegistrationEvent{}
	}
	return events, nil
}

func (r *registry) VerifyLedger(ctx context.Context) (*LedgerReport, error) {
	verifier := r.ledger.NewVerifier()
	report := &LedgerReport{Valid: true}

	var anchor uint64
	for {
		page, err := r.store.GetRegistrationEvents(ctx, domain.EventFilter{
			Anchor: anchor,
			Limit:  domain.MaxEventLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get registration events: %w", err)
		}
		if len(page) == 0 {
			break
		}

		if err := verifier.CheckAll(page); err != nil {
			var chainErr *ledger.ChainError
			if !errors.As(err, &chainErr) {
				return nil, fmt.Errorf("failed to verify ledger: %w", err)
			}
			report.Valid = false
			report.BrokenAt = chainErr.Sequence
			report.Reason = chainErr.Err.Error()
			logger.WarnCtx(ctx, "Ledger verification failed",
				zap.Uint64("brokenAt", chainErr.Sequence),
				zap.Error(chainErr.Err))
			break
		}

		anchor = page[len(page)-1].Sequence
		if len(page) < domain.MaxEventLimit {
			break
		}
	}

	report.Events = verifier.Checked()
	report.HeadSequence, report.HeadHash = verifier.Head()
	return report, nil
}
