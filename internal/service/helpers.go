package service

import (
	"context"
	"time"

	"tillpos/internal/apierror"
	"tillpos/internal/dto"
	"tillpos/internal/ledger"
	"tillpos/internal/model"
	"tillpos/internal/money"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// toMoney converts a boundary decimal into engine money. Sub-cent precision
// and negative magnitudes are caller mistakes, not internal errors.
func toMoney(d decimal.Decimal, currency string) (money.Money, error) {
	m, err := money.FromDecimal(d, currency)
	if err != nil {
		return money.Money{}, apierror.Validation("amount %s: at most two decimal places allowed", d.String())
	}
	if m.IsNegative() {
		return money.Money{}, apierror.Validation("amount must not be negative")
	}
	return m, nil
}

func unitsToDecimalPtr(units *int64) *decimal.Decimal {
	if units == nil {
		return nil
	}
	d := decimal.New(*units, 0).Shift(-2)
	return &d
}

func registerToResponse(r *model.Register) *dto.RegisterResponse {
	resp := &dto.RegisterResponse{
		ID:                r.ID.String(),
		Status:            string(r.Status),
		Currency:          r.Currency,
		OpeningOperatorID: r.OpeningOperatorID.String(),
		InitialAmount:     r.InitialAmount().Decimal(),
		FinalAmount:       unitsToDecimalPtr(r.FinalUnits),
		ExpectedAmount:    unitsToDecimalPtr(r.ExpectedUnits),
		DifferenceAmount:  unitsToDecimalPtr(r.DifferenceUnits),
		NextDayFloat:      unitsToDecimalPtr(r.NextDayFloatUnits),
		Notes:             r.Notes,
		OpenedAt:          r.OpenedAt.UTC().Format(time.RFC3339),
	}
	if r.ClosingOperatorID != nil {
		s := r.ClosingOperatorID.String()
		resp.ClosingOperatorID = &s
	}
	if r.ClosedAt != nil {
		s := r.ClosedAt.UTC().Format(time.RFC3339)
		resp.ClosedAt = &s
	}
	return resp
}

func entryToResponse(e *model.LedgerEntry) *dto.EntryResponse {
	return &dto.EntryResponse{
		ID:          e.ID.String(),
		RegisterID:  e.RegisterID.String(),
		OperatorID:  e.OperatorID.String(),
		Operation:   string(e.Operation),
		Method:      string(e.Method),
		Category:    string(e.Category),
		Amount:      e.Amount().Decimal(),
		Currency:    e.Currency,
		Description: e.Description,
		ReferenceID: e.ReferenceID,
		ClientLabel: e.ClientLabel,
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func balanceToResponse(b ledger.Balance) *dto.BalanceResponse {
	return &dto.BalanceResponse{
		Cash:       b.Cash.Decimal(),
		CreditCard: b.CreditCard.Decimal(),
		DebitCard:  b.DebitCard.Decimal(),
		Pix:        b.Pix.Decimal(),
		Total:      b.Total.Decimal(),
		Currency:   b.Total.Currency,
	}
}

func movementsToResponse(m ledger.Movements, currency string) *dto.MovementsResponse {
	resp := &dto.MovementsResponse{
		Inflows:  make(map[string]decimal.Decimal, len(m.Inflows)),
		Outflows: make(map[string]decimal.Decimal, len(m.Outflows)),
		Currency: currency,
	}
	for cat, amt := range m.Inflows {
		resp.Inflows[string(cat)] = amt.Decimal()
	}
	for cat, amt := range m.Outflows {
		resp.Outflows[string(cat)] = amt.Decimal()
	}
	return resp
}
