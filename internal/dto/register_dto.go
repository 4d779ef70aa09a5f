package dto

import (
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenRegisterRequest struct {
	InitialAmount decimal.Decimal `json:"initial_amount" validate:"min=0"`
}

type CloseRegisterRequest struct {
	CountedCash  decimal.Decimal `json:"counted_cash"   validate:"min=0"`
	NextDayFloat decimal.Decimal `json:"next_day_float" validate:"min=0"`
	Notes        *string         `json:"notes"`
}

// AmendRegisterRequest revises a closed register's counted figures.
// Expected is never revised by an amendment — only a retroactive entry does.
type AmendRegisterRequest struct {
	CountedCash  decimal.Decimal `json:"counted_cash"   validate:"min=0"`
	NextDayFloat decimal.Decimal `json:"next_day_float" validate:"min=0"`
	Notes        *string         `json:"notes"`
}

type RetroactiveEntryRequest struct {
	Operation   string          `json:"operation"    validate:"required,oneof=sale payment withdrawal deposit refund"`
	Method      string          `json:"method"       validate:"required,oneof=cash credit_card debit_card pix"`
	Category    string          `json:"category"     validate:"omitempty,oneof=sale payment withdrawal deposit refund adjustment"`
	Amount      decimal.Decimal `json:"amount"       validate:"gt=0"`
	Description string          `json:"description"  validate:"required,min=3"`
	ReferenceID *string         `json:"reference_id"`
	ClientLabel *string         `json:"client_label"`
	// CreatedAt is the backdated timestamp, RFC 3339. Must fall within
	// [register.opened_at, now].
	CreatedAt string `json:"created_at" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type BalanceResponse struct {
	Cash       decimal.Decimal `json:"cash"`
	CreditCard decimal.Decimal `json:"credit_card"`
	DebitCard  decimal.Decimal `json:"debit_card"`
	Pix        decimal.Decimal `json:"pix"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
}

type MovementsResponse struct {
	Inflows  map[string]decimal.Decimal `json:"inflows"`
	Outflows map[string]decimal.Decimal `json:"outflows"`
	Currency string                     `json:"currency"`
}

type RegisterResponse struct {
	ID                string           `json:"id"`
	Status            string           `json:"status"`
	Currency          string           `json:"currency"`
	OpeningOperatorID string           `json:"opening_operator_id"`
	ClosingOperatorID *string          `json:"closing_operator_id"`
	InitialAmount     decimal.Decimal  `json:"initial_amount"`
	FinalAmount       *decimal.Decimal `json:"final_amount"`
	ExpectedAmount    *decimal.Decimal `json:"expected_amount"`
	DifferenceAmount  *decimal.Decimal `json:"difference_amount"`
	NextDayFloat      *decimal.Decimal `json:"next_day_float"`
	Notes             *string          `json:"notes"`
	OpenedAt          string           `json:"opened_at"`
	ClosedAt          *string          `json:"closed_at"`
	// Balance is populated on the "current register" report only.
	Balance *BalanceResponse `json:"balance,omitempty"`
}

type RegisterListResponse struct {
	Data  []RegisterResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
