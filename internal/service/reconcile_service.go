package service

import (
	"context"
	"time"

	"tillpos/internal/apierror"
	"tillpos/internal/dto"
	"tillpos/internal/ledger"
	"tillpos/internal/model"
	"tillpos/internal/money"
	"tillpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReconcileService corrects closed registers after the fact: revising counted
// figures and backfilling entries that were missed during the session.
type ReconcileService interface {
	// AmendClosed revises the counted cash of a closed register. Expected is
	// kept as derived from the ledger; only counted (and with it the
	// difference) changes.
	AmendClosed(ctx context.Context, operatorID, registerID uuid.UUID, req dto.AmendRegisterRequest) (*dto.RegisterResponse, error)
	// AddRetroactive appends a backdated entry to a register and, when the
	// register is already closed, re-derives expected cash and the difference.
	AddRetroactive(ctx context.Context, operatorID, registerID uuid.UUID, req dto.RetroactiveEntryRequest) (*dto.EntryResponse, error)
}

type reconcileService struct {
	regs    repository.RegisterRepository
	entries repository.EntryRepository
}

func NewReconcileService(regs repository.RegisterRepository, entries repository.EntryRepository) ReconcileService {
	return &reconcileService{regs: regs, entries: entries}
}

func (s *reconcileService) AmendClosed(ctx context.Context, operatorID, registerID uuid.UUID, req dto.AmendRegisterRequest) (*dto.RegisterResponse, error) {
	reg, err := s.regs.FindByID(ctx, registerID)
	if err != nil {
		return nil, apierror.NotFound("register %s not found", registerID)
	}
	if reg.Status != model.RegisterClosed {
		return nil, apierror.InvalidState("register %s is %s, only closed registers can be amended", reg.ID, reg.Status)
	}

	counted, err := toMoney(req.CountedCash, reg.Currency)
	if err != nil {
		return nil, err
	}
	nextDayFloat, err := toMoney(req.NextDayFloat, reg.Currency)
	if err != nil {
		return nil, err
	}

	expected := money.New(*reg.ExpectedUnits, reg.Currency)
	reg.SetClosingFigures(counted, expected)
	nextDayUnits := nextDayFloat.Units
	reg.NextDayFloatUnits = &nextDayUnits
	if req.Notes != nil {
		reg.Notes = req.Notes
	}
	closingOperator := operatorID
	reg.ClosingOperatorID = &closingOperator

	if err := s.regs.Update(ctx, reg); err != nil {
		return nil, err
	}
	return registerToResponse(reg), nil
}

func (s *reconcileService) AddRetroactive(ctx context.Context, operatorID, registerID uuid.UUID, req dto.RetroactiveEntryRequest) (*dto.EntryResponse, error) {
	reg, err := s.regs.FindByID(ctx, registerID)
	if err != nil {
		return nil, apierror.NotFound("register %s not found", registerID)
	}

	createdAt, err := time.Parse(time.RFC3339, req.CreatedAt)
	if err != nil {
		return nil, apierror.Validation("created_at must be an RFC 3339 timestamp")
	}
	createdAt = createdAt.UTC()
	now := time.Now().UTC()
	if createdAt.Before(reg.OpenedAt) || createdAt.After(now) {
		return nil, apierror.Validation("created_at must fall between the register opening (%s) and now",
			reg.OpenedAt.Format(time.RFC3339))
	}
	if reg.ClosedAt != nil && createdAt.After(*reg.ClosedAt) {
		return nil, apierror.Validation("created_at must not be later than the register closing (%s)",
			reg.ClosedAt.Format(time.RFC3339))
	}

	amount, err := toMoney(req.Amount, reg.Currency)
	if err != nil {
		return nil, err
	}

	op := model.OperationType(req.Operation)
	category := model.Category(req.Category)
	if category == "" {
		category = defaultCategory(op)
	}

	entry := &model.LedgerEntry{
		RegisterID:  reg.ID,
		OperatorID:  operatorID,
		Operation:   op,
		Method:      model.PaymentMethod(req.Method),
		Category:    category,
		AmountUnits: amount.Units,
		Currency:    reg.Currency,
		Description: req.Description,
		ReferenceID: req.ReferenceID,
		ClientLabel: req.ClientLabel,
		CreatedAt:   createdAt,
	}

	if reg.Status == model.RegisterOpen {
		if err := s.entries.Create(ctx, entry); err != nil {
			return nil, err
		}
		return entryToResponse(entry), nil
	}

	// Closed register: expected cash moves with the backfilled entry while
	// counted stays what was physically counted, so the recorded difference
	// shifts by the entry's cash effect. Entry and revised figures commit
	// together.
	existing, err := s.entries.ListByRegister(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	all := append(existing, *entry)
	expected, err := ledger.ExpectedCash(all, reg.Currency)
	if err != nil {
		return nil, err
	}
	counted := money.New(*reg.FinalUnits, reg.Currency)
	reg.SetClosingFigures(counted, expected)

	txErr := runTx(ctx, s.regs.DB(), func(tx *gorm.DB) error {
		if err := s.entries.CreateTx(tx, entry); err != nil {
			return err
		}
		return s.regs.UpdateTx(tx, reg)
	})
	if txErr != nil {
		return nil, txErr
	}
	return entryToResponse(entry), nil
}

func defaultCategory(op model.OperationType) model.Category {
	switch op {
	case model.OpSale:
		return model.CategorySale
	case model.OpPayment:
		return model.CategoryPayment
	case model.OpWithdrawal:
		return model.CategoryWithdrawal
	case model.OpDeposit:
		return model.CategoryDeposit
	case model.OpRefund:
		return model.CategoryRefund
	default:
		return model.CategoryAdjustment
	}
}
