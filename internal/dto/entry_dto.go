package dto

import (
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SaleRequest struct {
	// ReferenceID is the external sale/order id the entry is recorded against.
	// Duplicate submissions for the same reference are de-duplicated.
	ReferenceID string          `json:"reference_id" validate:"required,min=1"`
	Amount      decimal.Decimal `json:"amount"       validate:"gt=0"`
	Method      string          `json:"method"       validate:"required,oneof=cash credit_card debit_card pix"`
	ClientLabel *string         `json:"client_label"`
	Description string          `json:"description"`
}

type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount"      validate:"gt=0"`
	Description string          `json:"description" validate:"required,min=3"`
	Method      string          `json:"method"      validate:"required,oneof=cash credit_card debit_card pix"`
}

// WithdrawalRequest always moves cash — you cannot physically withdraw from
// a card terminal.
type WithdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"      validate:"gt=0"`
	Description string          `json:"description" validate:"required,min=3"`
}

type PaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"      validate:"gt=0"`
	Description string          `json:"description" validate:"required,min=3"`
	Method      string          `json:"method"      validate:"required,oneof=cash credit_card debit_card pix"`
	ClientLabel *string         `json:"client_label"`
}

type CancelEntryRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
	// SupervisorID is the authorizing identity, authenticated as a separate
	// step by the caller; it must differ from the recording operator.
	SupervisorID string `json:"supervisor_id" validate:"required,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type EntryResponse struct {
	ID          string          `json:"id"`
	RegisterID  string          `json:"register_id"`
	OperatorID  string          `json:"operator_id"`
	Operation   string          `json:"operation"`
	Method      string          `json:"method"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	ReferenceID *string         `json:"reference_id"`
	ClientLabel *string         `json:"client_label"`
	CreatedAt   string          `json:"created_at"`
}
