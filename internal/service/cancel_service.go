package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tillpos/internal/apierror"
	"tillpos/internal/dto"
	"tillpos/internal/model"
	"tillpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CancelService voids a recorded entry by appending a compensating refund.
// The original entry is never touched: the ledger stays append-only and the
// audit trail keeps both sides.
type CancelService interface {
	Cancel(ctx context.Context, operatorID uuid.UUID, entryID uuid.UUID, req dto.CancelEntryRequest) (*dto.EntryResponse, error)
}

type cancelService struct {
	regs      repository.RegisterRepository
	entries   repository.EntryRepository
	operators repository.OperatorRepository
}

func NewCancelService(regs repository.RegisterRepository, entries repository.EntryRepository, operators repository.OperatorRepository) CancelService {
	return &cancelService{regs: regs, entries: entries, operators: operators}
}

const minCancelReasonLen = 5

func (s *cancelService) Cancel(ctx context.Context, operatorID uuid.UUID, entryID uuid.UUID, req dto.CancelEntryRequest) (*dto.EntryResponse, error) {
	if len(strings.TrimSpace(req.Reason)) < minCancelReasonLen {
		return nil, apierror.Validation("reason must be at least %d characters", minCancelReasonLen)
	}
	supervisorID, err := uuid.Parse(req.SupervisorID)
	if err != nil {
		return nil, apierror.Validation("supervisor_id is not a valid uuid")
	}
	if supervisorID == operatorID {
		return nil, apierror.Validation("an operator cannot authorize their own cancellation")
	}
	supervisor, err := s.operators.FindByID(ctx, supervisorID)
	if err != nil {
		return nil, apierror.NotFound("supervisor %s not found", supervisorID)
	}
	if !supervisor.CanAuthorizeRefunds() {
		return nil, apierror.Validation("operator %s is not allowed to authorize cancellations", supervisor.Username)
	}

	original, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return nil, apierror.NotFound("entry %s not found", entryID)
	}
	if original.Operation != model.OpSale && original.Operation != model.OpPayment {
		return nil, apierror.InvalidState("a %s entry cannot be cancelled", original.Operation)
	}

	// The refund lands on whichever register is open right now, which need
	// not be the one the original entry was recorded on: money leaves the
	// drawer that is currently taking entries.
	reg, err := s.regs.FindOpen(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Conflict("no open register, cancellations need an open register")
		}
		return nil, err
	}

	// At most one refund per entry.
	refKey := original.ID.String()
	if existing, err := s.entries.FindByReference(ctx, model.OpRefund, refKey); err == nil && existing != nil {
		return nil, apierror.InvalidState("entry %s was already cancelled", original.ID)
	}

	refund := &model.LedgerEntry{
		RegisterID:  reg.ID,
		OperatorID:  operatorID,
		Operation:   model.OpRefund,
		Method:      original.Method,
		Category:    model.CategoryRefund,
		AmountUnits: original.AmountUnits,
		Currency:    original.Currency,
		Description: fmt.Sprintf("cancellation of %s: %s (authorized by %s)", original.Operation, req.Reason, supervisor.Username),
		ReferenceID: &refKey,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.entries.Create(ctx, refund); err != nil {
		return nil, err
	}
	return entryToResponse(refund), nil
}
