package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tillpos/internal/apierror"
	"tillpos/internal/dto"
	"tillpos/internal/ledger"
	"tillpos/internal/model"
	"tillpos/internal/repository"
	"tillpos/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegisterService interface {
	// Open starts a new till session. Fails with a conflict while another
	// register is open.
	Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenRegisterRequest) (*dto.RegisterResponse, error)
	// Close reconciles and closes the open register: expected cash is derived
	// from the ledger, difference = counted − expected. A mismatch is a valid
	// outcome, never a rejection.
	Close(ctx context.Context, operatorID uuid.UUID, req dto.CloseRegisterRequest) (*dto.RegisterResponse, error)
	// Current returns the open register with its live balance.
	Current(ctx context.Context) (*dto.RegisterResponse, error)
	// CurrentBalance returns the open register's balance, or a zero balance
	// when no register is open.
	CurrentBalance(ctx context.Context) (*dto.BalanceResponse, error)
	History(ctx context.Context, from, to time.Time, page, limit int) (*dto.RegisterListResponse, error)
	Entries(ctx context.Context, registerID uuid.UUID) ([]dto.EntryResponse, error)
	Movements(ctx context.Context, registerID uuid.UUID) (*dto.MovementsResponse, error)
	DayMovements(ctx context.Context, day time.Time) (*dto.MovementsResponse, error)
	DayBalance(ctx context.Context, day time.Time) (*dto.BalanceResponse, error)
}

type registerService struct {
	regs    repository.RegisterRepository
	entries repository.EntryRepository
	// dispatcher enqueues closing notifications; nil disables them (tests).
	dispatcher  *worker.Dispatcher
	currency    string
	alertsEmail string
}

func NewRegisterService(regs repository.RegisterRepository, entries repository.EntryRepository, dispatcher *worker.Dispatcher, currency, alertsEmail string) RegisterService {
	return &registerService{
		regs:        regs,
		entries:     entries,
		dispatcher:  dispatcher,
		currency:    currency,
		alertsEmail: alertsEmail,
	}
}

// ── Open ─────────────────────────────────────────────────────────────────────

func (s *registerService) Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenRegisterRequest) (*dto.RegisterResponse, error) {
	initial, err := toMoney(req.InitialAmount, s.currency)
	if err != nil {
		return nil, err
	}

	// Fast pre-check; the partial unique index on registers(status) is what
	// actually serializes two racing opens.
	existing, err := s.regs.FindOpen(ctx)
	if err == nil {
		return nil, apierror.Conflict("register %s is already open", existing.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	reg := &model.Register{
		OpeningOperatorID: operatorID,
		Currency:          s.currency,
		InitialUnits:      initial.Units,
		Status:            model.RegisterOpen,
		OpenedAt:          time.Now().UTC(),
	}

	// Register row and its open entry are durable together or not at all.
	txErr := runTx(ctx, s.regs.DB(), func(tx *gorm.DB) error {
		if err := s.regs.CreateTx(tx, reg); err != nil {
			return err
		}
		entry := &model.LedgerEntry{
			RegisterID:  reg.ID,
			OperatorID:  operatorID,
			Operation:   model.OpOpen,
			Method:      model.MethodCash,
			Category:    model.CategoryDeposit,
			AmountUnits: initial.Units,
			Currency:    s.currency,
			Description: "register opened",
			CreatedAt:   reg.OpenedAt,
		}
		return s.entries.CreateTx(tx, entry)
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			// Lost the race against a concurrent open.
			return nil, apierror.Conflict("another register was opened concurrently")
		}
		return nil, txErr
	}

	return registerToResponse(reg), nil
}

// ── Close ────────────────────────────────────────────────────────────────────

func (s *registerService) Close(ctx context.Context, operatorID uuid.UUID, req dto.CloseRegisterRequest) (*dto.RegisterResponse, error) {
	reg, err := s.regs.FindOpen(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("no open register to close")
		}
		return nil, err
	}

	counted, err := toMoney(req.CountedCash, reg.Currency)
	if err != nil {
		return nil, err
	}
	nextDayFloat, err := toMoney(req.NextDayFloat, reg.Currency)
	if err != nil {
		return nil, err
	}

	entries, err := s.entries.ListByRegister(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	expected, err := ledger.ExpectedCash(entries, reg.Currency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reg.SetClosingFigures(counted, expected)
	nextDayUnits := nextDayFloat.Units
	reg.NextDayFloatUnits = &nextDayUnits
	reg.Notes = req.Notes
	reg.Status = model.RegisterClosed
	reg.ClosedAt = &now
	closingOperator := operatorID
	reg.ClosingOperatorID = &closingOperator

	// The close entry records the counted amount for the audit trail; it does
	// not feed back into any reported balance of the closed register.
	txErr := runTx(ctx, s.regs.DB(), func(tx *gorm.DB) error {
		if err := s.regs.UpdateTx(tx, reg); err != nil {
			return err
		}
		entry := &model.LedgerEntry{
			RegisterID:  reg.ID,
			OperatorID:  operatorID,
			Operation:   model.OpClose,
			Method:      model.MethodCash,
			Category:    model.CategoryAdjustment,
			AmountUnits: counted.Units,
			Currency:    reg.Currency,
			Description: "register closed",
			CreatedAt:   now,
		}
		return s.entries.CreateTx(tx, entry)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.dispatchClosing(ctx, reg)

	return registerToResponse(reg), nil
}

// dispatchClosing notifies the back office and, when the till does not
// balance, alerts a supervisor by email. Best-effort fire-and-forget: a full
// queue must never fail the close itself.
func (s *registerService) dispatchClosing(ctx context.Context, reg *model.Register) {
	if s.dispatcher == nil {
		return
	}

	summary := worker.ClosingSummary{
		RegisterID:        reg.ID.String(),
		ClosedAt:          reg.ClosedAt.UTC().Format(time.RFC3339),
		Currency:          reg.Currency,
		ExpectedUnits:     *reg.ExpectedUnits,
		CountedUnits:      *reg.FinalUnits,
		DifferenceUnits:   *reg.DifferenceUnits,
		ClosingOperator:   reg.ClosingOperatorID.String(),
		NextDayFloatUnits: *reg.NextDayFloatUnits,
	}
	_ = s.dispatcher.EnqueueNotify(ctx, summary)

	if *reg.DifferenceUnits != 0 && s.alertsEmail != "" {
		diff := unitsToDecimalPtr(reg.DifferenceUnits)
		_ = s.dispatcher.EnqueueEmail(ctx, worker.EmailJobPayload{
			ToEmail: s.alertsEmail,
			Subject: fmt.Sprintf("Register %s closed with a difference", reg.ID),
			Body: fmt.Sprintf("Register %s closed at %s with difference %s %s (counted minus expected).",
				reg.ID, summary.ClosedAt, diff.StringFixed(2), reg.Currency),
		})
	}
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *registerService) Current(ctx context.Context) (*dto.RegisterResponse, error) {
	reg, err := s.regs.FindOpen(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("no open register")
		}
		return nil, err
	}
	entries, err := s.entries.ListByRegister(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	balance, err := ledger.BalanceOf(entries, reg.Currency)
	if err != nil {
		return nil, err
	}
	resp := registerToResponse(reg)
	resp.Balance = balanceToResponse(balance)
	return resp, nil
}

func (s *registerService) CurrentBalance(ctx context.Context) (*dto.BalanceResponse, error) {
	reg, err := s.regs.FindOpen(ctx)
	if err != nil {
		// Only a genuinely absent register reads as zero; a failing store
		// must not fabricate a balance.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return balanceToResponse(ledger.ZeroBalance(s.currency)), nil
		}
		return nil, err
	}
	entries, err := s.entries.ListByRegister(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	balance, err := ledger.BalanceOf(entries, reg.Currency)
	if err != nil {
		return nil, err
	}
	return balanceToResponse(balance), nil
}

func (s *registerService) History(ctx context.Context, from, to time.Time, page, limit int) (*dto.RegisterListResponse, error) {
	regs, total, err := s.regs.List(ctx, from, to, page, limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.RegisterResponse, 0, len(regs))
	for i := range regs {
		data = append(data, *registerToResponse(&regs[i]))
	}
	return &dto.RegisterListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *registerService) Entries(ctx context.Context, registerID uuid.UUID) ([]dto.EntryResponse, error) {
	if _, err := s.regs.FindByID(ctx, registerID); err != nil {
		return nil, apierror.NotFound("register %s not found", registerID)
	}
	entries, err := s.entries.ListByRegister(ctx, registerID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.EntryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, *entryToResponse(&entries[i]))
	}
	return resp, nil
}

func (s *registerService) Movements(ctx context.Context, registerID uuid.UUID) (*dto.MovementsResponse, error) {
	reg, err := s.regs.FindByID(ctx, registerID)
	if err != nil {
		return nil, apierror.NotFound("register %s not found", registerID)
	}
	entries, err := s.entries.ListByRegister(ctx, registerID)
	if err != nil {
		return nil, err
	}
	movements, err := ledger.MovementsOf(entries, reg.Currency)
	if err != nil {
		return nil, err
	}
	return movementsToResponse(movements, reg.Currency), nil
}

func (s *registerService) DayMovements(ctx context.Context, day time.Time) (*dto.MovementsResponse, error) {
	entries, err := s.entries.ListByDay(ctx, day)
	if err != nil {
		return nil, err
	}
	movements, err := ledger.MovementsOf(entries, s.currency)
	if err != nil {
		return nil, err
	}
	return movementsToResponse(movements, s.currency), nil
}

func (s *registerService) DayBalance(ctx context.Context, day time.Time) (*dto.BalanceResponse, error) {
	entries, err := s.entries.ListByDay(ctx, day)
	if err != nil {
		return nil, err
	}
	balance, err := ledger.DayBalance(entries, s.currency)
	if err != nil {
		return nil, err
	}
	return balanceToResponse(balance), nil
}
