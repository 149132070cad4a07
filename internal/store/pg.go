package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/store/schema"
)

// registrationLockKey is the advisory lock that serializes registrations
// across every process sharing the database
const registrationLockKey int64 = 0x64727567 // "drug"

//go:embed sql/init_pg_db.sql
var initSchemaSQL string

// pgStore implements Store using PostgreSQL with GORM
type pgStore struct {
	db     *gorm.DB
	sealer Sealer
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB, sealer Sealer) Store {
	return &pgStore{db: db, sealer: sealer}
}

// InitSchema creates the registry tables if they do not exist
func InitSchema(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(initSchemaSQL).Error; err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values fall back to the defaults of NormalizeConnectionPoolSettings.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns <= 0 {
		maxOpenConns = 20
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// InsertDrug stores the drug and its journal event in one transaction.
// The advisory lock orders concurrent writers so journal sequences stay contiguous;
// the primary key on drug_id backs the uniqueness check.
func (s *pgStore) InsertDrug(ctx context.Context, input InsertDrugInput) (*domain.RegistrationEvent, error) {
	drug := input.Drug

	details, err := json.Marshal(drug.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal drug details: %w", err)
	}

	var sealed domain.RegistrationEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", registrationLockKey).Error; err != nil {
			return fmt.Errorf("failed to acquire registration lock: %w", err)
		}

		var prev *domain.RegistrationEvent
		var head schema.RegistrationEvent
		err := tx.Order("sequence DESC").Limit(1).First(&head).Error
		switch {
		case err == nil:
			ev := eventFromSchema(&head)
			prev = &ev
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("failed to get journal head: %w", err)
		}

		ev := domain.NewRegistrationEvent(input.EventID, &drug)
		if err := s.sealer.Seal(prev, &ev); err != nil {
			return fmt.Errorf("failed to seal registration event: %w", err)
		}

		row := schema.Drug{
			DrugID:               drug.ID,
			Sequence:             int64(ev.Sequence),
			Name:                 drug.Name,
			BatchNumber:          drug.BatchNumber,
			ManufactureTimestamp: drug.ManufactureTimestamp,
			ExpiryTimestamp:      drug.ExpiryTimestamp,
			Owner:                drug.Owner.String(),
			RegisteredAt:         drug.RegisteredAt,
			Details:              details,
		}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "drug_id"}},
			DoNothing: true,
		}).Create(&row)
		if result.Error != nil {
			return fmt.Errorf("failed to insert drug: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrDrugAlreadyRegistered
		}

		eventRow := eventToSchema(&ev)
		if err := tx.Create(&eventRow).Error; err != nil {
			return fmt.Errorf("failed to insert registration event: %w", err)
		}

		sealed = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &sealed, nil
}

func (s *pgStore) GetDrug(ctx context.Context, id string) (*domain.Drug, error) {
	var row schema.Drug
	err := s.db.WithContext(ctx).Where("drug_id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get drug: %w", err)
	}

	return drugFromSchema(&row)
}

func (s *pgStore) DrugExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.Drug{}).Where("drug_id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check drug existence: %w", err)
	}
	return count > 0, nil
}

func (s *pgStore) GetDrugIDsByOwner(ctx context.Context, owner domain.Owner) ([]string, error) {
	ids := make([]string, 0)
	err := s.db.WithContext(ctx).
		Model(&schema.Drug{}).
		Where("owner = ?", owner.String()).
		Order("sequence ASC").
		Pluck("drug_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get drugs by owner: %w", err)
	}
	return ids, nil
}

func (s *pgStore) CountDrugsByOwner(ctx context.Context, owner domain.Owner) (uint64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.Drug{}).Where("owner = ?", owner.String()).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count drugs by owner: %w", err)
	}
	return uint64(count), nil //nolint:gosec,G115
}

func (s *pgStore) CountDrugs(ctx context.Context) (uint64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&schema.Drug{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count drugs: %w", err)
	}
	return uint64(count), nil //nolint:gosec,G115
}

func (s *pgStore) GetRegistrationEvents(ctx context.Context, filter domain.EventFilter) ([]domain.RegistrationEvent, error) {
	query := s.db.WithContext(ctx).
		Model(&schema.RegistrationEvent{}).
		Where("sequence > ?", filter.Anchor)

	if filter.Owner != nil {
		query = query.Where("owner = ?", filter.Owner.String())
	}

	var rows []schema.RegistrationEvent
	if err := query.Order("sequence ASC").Limit(filter.NormalizedLimit()).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get registration events: %w", err)
	}

	events := make([]domain.RegistrationEvent, 0, len(rows))
	for i := range rows {
		events = append(events, eventFromSchema(&rows[i]))
	}
	return events, nil
}

func (s *pgStore) GetLatestRegistrationEvent(ctx context.Context) (*domain.RegistrationEvent, error) {
	var row schema.RegistrationEvent
	err := s.db.WithContext(ctx).Order("sequence DESC").Limit(1).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest registration event: %w", err)
	}

	ev := eventFromSchema(&row)
	return &ev, nil
}

func drugFromSchema(row *schema.Drug) (*domain.Drug, error) {
	drug := &domain.Drug{
		ID:                   row.DrugID,
		Name:                 row.Name,
		BatchNumber:          row.BatchNumber,
		ManufactureTimestamp: row.ManufactureTimestamp,
		ExpiryTimestamp:      row.ExpiryTimestamp,
		Owner:                domain.Owner(row.Owner),
		RegisteredAt:         row.RegisteredAt,
	}
	if len(row.Details) > 0 {
		if err := json.Unmarshal(row.Details, &drug.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal drug details: %w", err)
		}
	}
	return drug, nil
}

func eventFromSchema(row *schema.RegistrationEvent) domain.RegistrationEvent {
	return domain.RegistrationEvent{
		Sequence:             uint64(row.Sequence), //nolint:gosec,G115
		EventID:              row.EventID,
		DrugID:               row.DrugID,
		Name:                 row.Name,
		Owner:                domain.Owner(row.Owner),
		ManufactureTimestamp: row.ManufactureTimestamp,
		ExpiryTimestamp:      row.ExpiryTimestamp,
		RegisteredAt:         row.RegisteredAt,
		PrevHash:             row.PrevHash,
		Hash:                 row.Hash,
	}
}

func eventToSchema(ev *domain.RegistrationEvent) schema.RegistrationEvent {
	return schema.RegistrationEvent{
		Sequence:             int64(ev.Sequence), //nolint:gosec,G115
		EventID:              ev.EventID,
		DrugID:               ev.DrugID,
		Name:                 ev.Name,
		Owner:                ev.Owner.String(),
		ManufactureTimestamp: ev.ManufactureTimestamp,
		ExpiryTimestamp:      ev.ExpiryTimestamp,
		RegisteredAt:         ev.RegisteredAt,
		PrevHash:             ev.PrevHash,
		Hash:                 ev.Hash,
	}
}
