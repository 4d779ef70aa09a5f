package repository

import (
	"context"
	"time"

	"tillpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegisterRepository interface {
	// DB exposes the underlying handle for transaction boundaries
	// (nil in unit-test mode — see service.runTx).
	DB() *gorm.DB
	CreateTx(tx *gorm.DB, r *model.Register) error
	// FindOpen returns the single open register, or gorm.ErrRecordNotFound.
	FindOpen(ctx context.Context) (*model.Register, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Register, error)
	Update(ctx context.Context, r *model.Register) error
	UpdateTx(tx *gorm.DB, r *model.Register) error
	// List returns closed-and-open registers whose opened_at falls in
	// [from, to), newest first, paginated.
	List(ctx context.Context, from, to time.Time, page, limit int) ([]model.Register, int64, error)
}

type registerRepo struct{ db *gorm.DB }

func NewRegisterRepository(db *gorm.DB) RegisterRepository { return &registerRepo{db: db} }

func (r *registerRepo) DB() *gorm.DB { return r.db }

func (r *registerRepo) CreateTx(tx *gorm.DB, reg *model.Register) error {
	return tx.Create(reg).Error
}

func (r *registerRepo) FindOpen(ctx context.Context) (*model.Register, error) {
	var reg model.Register
	err := r.db.WithContext(ctx).Where("status = ?", model.RegisterOpen).First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Register, error) {
	var reg model.Register
	err := r.db.WithContext(ctx).First(&reg, id).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registerRepo) Update(ctx context.Context, reg *model.Register) error {
	return r.db.WithContext(ctx).Save(reg).Error
}

func (r *registerRepo) UpdateTx(tx *gorm.DB, reg *model.Register) error {
	return tx.Save(reg).Error
}

func (r *registerRepo) List(ctx context.Context, from, to time.Time, page, limit int) ([]model.Register, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Register{}).
		Where("opened_at >= ? AND opened_at < ?", from, to)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var regs []model.Register
	err := q.Order("opened_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&regs).Error
	return regs, total, err
}
