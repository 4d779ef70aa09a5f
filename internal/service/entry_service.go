package service

import (
	"context"
	"errors"
	"time"

	"tillpos/internal/apierror"
	"tillpos/internal/dto"
	"tillpos/internal/guard"
	"tillpos/internal/ledger"
	"tillpos/internal/model"
	"tillpos/internal/money"
	"tillpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EntryService interface {
	// RecordSale appends a sale entry. Submissions carrying the same
	// reference id are de-duplicated: a concurrent duplicate is rejected,
	// a later duplicate returns the already-recorded entry.
	RecordSale(ctx context.Context, operatorID uuid.UUID, req dto.SaleRequest) (*dto.EntryResponse, error)
	AddDeposit(ctx context.Context, operatorID uuid.UUID, req dto.DepositRequest) (*dto.EntryResponse, error)
	// AddWithdrawal removes cash from the drawer. It fails when the drawer
	// does not physically hold the requested amount.
	AddWithdrawal(ctx context.Context, operatorID uuid.UUID, req dto.WithdrawalRequest) (*dto.EntryResponse, error)
	AddPayment(ctx context.Context, operatorID uuid.UUID, req dto.PaymentRequest) (*dto.EntryResponse, error)
}

type entryService struct {
	regs    repository.RegisterRepository
	entries repository.EntryRepository
	guard   guard.Guard
}

func NewEntryService(regs repository.RegisterRepository, entries repository.EntryRepository, g guard.Guard) EntryService {
	return &entryService{regs: regs, entries: entries, guard: g}
}

// openRegister loads the open register or fails with a conflict; every write
// against the ledger requires one.
func (s *entryService) openRegister(ctx context.Context) (*model.Register, error) {
	reg, err := s.regs.FindOpen(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Conflict("no open register, open one before recording entries")
		}
		return nil, err
	}
	return reg, nil
}

func (s *entryService) RecordSale(ctx context.Context, operatorID uuid.UUID, req dto.SaleRequest) (*dto.EntryResponse, error) {
	// In-flight guard first: two racing submissions of the same sale must not
	// both reach the durability check.
	key := "sale:" + req.ReferenceID
	ok, err := s.guard.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.AlreadyProcessing("sale %s is already being recorded", req.ReferenceID)
	}
	defer s.guard.Release(ctx, key)

	// Durable dedup: an already-recorded sale for this reference is returned
	// as-is instead of being written twice.
	if existing, err := s.entries.FindByReference(ctx, model.OpSale, req.ReferenceID); err == nil && existing != nil {
		return entryToResponse(existing), nil
	}

	reg, err := s.openRegister(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := toMoney(req.Amount, reg.Currency)
	if err != nil {
		return nil, err
	}

	ref := req.ReferenceID
	entry := &model.LedgerEntry{
		RegisterID:  reg.ID,
		OperatorID:  operatorID,
		Operation:   model.OpSale,
		Method:      model.PaymentMethod(req.Method),
		Category:    model.CategorySale,
		AmountUnits: amount.Units,
		Currency:    reg.Currency,
		Description: req.Description,
		ReferenceID: &ref,
		ClientLabel: req.ClientLabel,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entryToResponse(entry), nil
}

func (s *entryService) AddDeposit(ctx context.Context, operatorID uuid.UUID, req dto.DepositRequest) (*dto.EntryResponse, error) {
	reg, err := s.openRegister(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := toMoney(req.Amount, reg.Currency)
	if err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		RegisterID:  reg.ID,
		OperatorID:  operatorID,
		Operation:   model.OpDeposit,
		Method:      model.PaymentMethod(req.Method),
		Category:    model.CategoryDeposit,
		AmountUnits: amount.Units,
		Currency:    reg.Currency,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entryToResponse(entry), nil
}

func (s *entryService) AddWithdrawal(ctx context.Context, operatorID uuid.UUID, req dto.WithdrawalRequest) (*dto.EntryResponse, error) {
	reg, err := s.openRegister(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := toMoney(req.Amount, reg.Currency)
	if err != nil {
		return nil, err
	}
	if err := s.checkCashAvailable(ctx, reg, amount); err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		RegisterID:  reg.ID,
		OperatorID:  operatorID,
		Operation:   model.OpWithdrawal,
		Method:      model.MethodCash,
		Category:    model.CategoryWithdrawal,
		AmountUnits: amount.Units,
		Currency:    reg.Currency,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entryToResponse(entry), nil
}

func (s *entryService) AddPayment(ctx context.Context, operatorID uuid.UUID, req dto.PaymentRequest) (*dto.EntryResponse, error) {
	reg, err := s.openRegister(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := toMoney(req.Amount, reg.Currency)
	if err != nil {
		return nil, err
	}
	method := model.PaymentMethod(req.Method)
	// Card/pix payments draw on the acquirer, not on the drawer, so only cash
	// payments need the drawer to cover them.
	if method == model.MethodCash {
		if err := s.checkCashAvailable(ctx, reg, amount); err != nil {
			return nil, err
		}
	}

	entry := &model.LedgerEntry{
		RegisterID:  reg.ID,
		OperatorID:  operatorID,
		Operation:   model.OpPayment,
		Method:      method,
		Category:    model.CategoryPayment,
		AmountUnits: amount.Units,
		Currency:    reg.Currency,
		Description: req.Description,
		ClientLabel: req.ClientLabel,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entryToResponse(entry), nil
}

func (s *entryService) checkCashAvailable(ctx context.Context, reg *model.Register, amount money.Money) error {
	entries, err := s.entries.ListByRegister(ctx, reg.ID)
	if err != nil {
		return err
	}
	cash, err := ledger.ExpectedCash(entries, reg.Currency)
	if err != nil {
		return err
	}
	c, err := cash.Cmp(amount)
	if err != nil {
		return err
	}
	if c < 0 {
		return apierror.InsufficientFunds("drawer holds %s, cannot take out %s",
			cash.Decimal().StringFixed(2), amount.Decimal().StringFixed(2))
	}
	return nil
}
