package repository

import (
	"context"
	"time"

	"tillpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntryRepository is append-only by construction: there is no Update and no
// Delete. Compensating entries are the only correction mechanism.
type EntryRepository interface {
	// Create appends a single entry (already an atomic row insert).
	Create(ctx context.Context, e *model.LedgerEntry) error
	CreateTx(tx *gorm.DB, e *model.LedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error)
	// FindByReference returns the first entry with the given operation and
	// external reference, or gorm.ErrRecordNotFound.
	FindByReference(ctx context.Context, op model.OperationType, referenceID string) (*model.LedgerEntry, error)
	// ListByRegister returns entries ordered by created_at ascending.
	ListByRegister(ctx context.Context, registerID uuid.UUID) ([]model.LedgerEntry, error)
	// ListByDay returns entries created in [dayStart, dayStart+24h), ascending.
	ListByDay(ctx context.Context, dayStart time.Time) ([]model.LedgerEntry, error)
}

type entryRepo struct{ db *gorm.DB }

func NewEntryRepository(db *gorm.DB) EntryRepository { return &entryRepo{db: db} }

func (r *entryRepo) Create(ctx context.Context, e *model.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *entryRepo) CreateTx(tx *gorm.DB, e *model.LedgerEntry) error {
	return tx.Create(e).Error
}

func (r *entryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := r.db.WithContext(ctx).First(&e, id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *entryRepo) FindByReference(ctx context.Context, op model.OperationType, referenceID string) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("operation = ? AND reference_id = ?", op, referenceID).
		Order("created_at ASC").
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *entryRepo) ListByRegister(ctx context.Context, registerID uuid.UUID) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("register_id = ?", registerID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *entryRepo) ListByDay(ctx context.Context, dayStart time.Time) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", dayStart, dayStart.Add(24*time.Hour)).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
