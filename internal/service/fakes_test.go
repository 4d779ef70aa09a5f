package service

import (
	"context"
	"sort"
	"time"

	"tillpos/internal/model"
	"tillpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory RegisterRepository ─────────────────────────────────────────────

type fakeRegisterRepo struct {
	registers map[uuid.UUID]*model.Register
	// findOpenErr, when set, is returned by FindOpen to simulate a failing
	// store (as opposed to a genuinely absent open register).
	findOpenErr error
}

func newFakeRegisterRepo() *fakeRegisterRepo {
	return &fakeRegisterRepo{registers: make(map[uuid.UUID]*model.Register)}
}

// DB returns nil so runTx executes callbacks directly (unit test mode).
func (r *fakeRegisterRepo) DB() *gorm.DB { return nil }

func (r *fakeRegisterRepo) CreateTx(_ *gorm.DB, reg *model.Register) error {
	// Mirrors the partial unique index on open registers.
	for _, existing := range r.registers {
		if existing.Status == model.RegisterOpen && reg.Status == model.RegisterOpen {
			return gorm.ErrDuplicatedKey
		}
	}
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	clone := *reg
	r.registers[reg.ID] = &clone
	return nil
}

func (r *fakeRegisterRepo) FindOpen(_ context.Context) (*model.Register, error) {
	if r.findOpenErr != nil {
		return nil, r.findOpenErr
	}
	for _, reg := range r.registers {
		if reg.Status == model.RegisterOpen {
			clone := *reg
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRegisterRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Register, error) {
	reg, ok := r.registers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *reg
	return &clone, nil
}

func (r *fakeRegisterRepo) Update(_ context.Context, reg *model.Register) error {
	clone := *reg
	r.registers[reg.ID] = &clone
	return nil
}

func (r *fakeRegisterRepo) UpdateTx(_ *gorm.DB, reg *model.Register) error {
	clone := *reg
	r.registers[reg.ID] = &clone
	return nil
}

func (r *fakeRegisterRepo) List(_ context.Context, from, to time.Time, page, limit int) ([]model.Register, int64, error) {
	var all []model.Register
	for _, reg := range r.registers {
		if !reg.OpenedAt.Before(from) && reg.OpenedAt.Before(to) {
			all = append(all, *reg)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OpenedAt.After(all[j].OpenedAt) })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

var _ repository.RegisterRepository = (*fakeRegisterRepo)(nil)

// ── In-memory EntryRepository ────────────────────────────────────────────────

type fakeEntryRepo struct {
	entries []model.LedgerEntry
}

func newFakeEntryRepo() *fakeEntryRepo { return &fakeEntryRepo{} }

func (r *fakeEntryRepo) store(e *model.LedgerEntry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, *e)
}

func (r *fakeEntryRepo) Create(_ context.Context, e *model.LedgerEntry) error {
	r.store(e)
	return nil
}

func (r *fakeEntryRepo) CreateTx(_ *gorm.DB, e *model.LedgerEntry) error {
	r.store(e)
	return nil
}

func (r *fakeEntryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.LedgerEntry, error) {
	for i := range r.entries {
		if r.entries[i].ID == id {
			clone := r.entries[i]
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEntryRepo) FindByReference(_ context.Context, op model.OperationType, referenceID string) (*model.LedgerEntry, error) {
	for i := range r.entries {
		e := r.entries[i]
		if e.Operation == op && e.ReferenceID != nil && *e.ReferenceID == referenceID {
			clone := e
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEntryRepo) ListByRegister(_ context.Context, registerID uuid.UUID) ([]model.LedgerEntry, error) {
	var result []model.LedgerEntry
	for _, e := range r.entries {
		if e.RegisterID == registerID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeEntryRepo) ListByDay(_ context.Context, dayStart time.Time) ([]model.LedgerEntry, error) {
	dayEnd := dayStart.Add(24 * time.Hour)
	var result []model.LedgerEntry
	for _, e := range r.entries {
		if !e.CreatedAt.Before(dayStart) && e.CreatedAt.Before(dayEnd) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

var _ repository.EntryRepository = (*fakeEntryRepo)(nil)

// ── In-memory OperatorRepository ─────────────────────────────────────────────

type fakeOperatorRepo struct {
	operators map[uuid.UUID]*model.Operator
}

func newFakeOperatorRepo() *fakeOperatorRepo {
	return &fakeOperatorRepo{operators: make(map[uuid.UUID]*model.Operator)}
}

func (r *fakeOperatorRepo) add(role string) *model.Operator {
	op := &model.Operator{
		ID:       uuid.New(),
		Username: role + "-" + uuid.NewString()[:8],
		Name:     "Test " + role,
		Role:     role,
		Active:   true,
	}
	r.operators[op.ID] = op
	return op
}

func (r *fakeOperatorRepo) Create(_ context.Context, o *model.Operator) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.operators[o.ID] = o
	return nil
}

func (r *fakeOperatorRepo) FindByUsername(_ context.Context, username string) (*model.Operator, error) {
	for _, o := range r.operators {
		if o.Username == username && o.Active {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOperatorRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Operator, error) {
	o, ok := r.operators[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}

func (r *fakeOperatorRepo) List(_ context.Context) ([]model.Operator, error) {
	var result []model.Operator
	for _, o := range r.operators {
		if o.Active {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (r *fakeOperatorRepo) ListAll(_ context.Context) ([]model.Operator, error) {
	var result []model.Operator
	for _, o := range r.operators {
		result = append(result, *o)
	}
	return result, nil
}

func (r *fakeOperatorRepo) Update(_ context.Context, o *model.Operator) error {
	r.operators[o.ID] = o
	return nil
}

func (r *fakeOperatorRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if o, ok := r.operators[id]; ok {
		o.Active = false
	}
	return nil
}

func (r *fakeOperatorRepo) Reactivate(_ context.Context, id uuid.UUID) error {
	if o, ok := r.operators[id]; ok {
		o.Active = true
	}
	return nil
}

var _ repository.OperatorRepository = (*fakeOperatorRepo)(nil)
