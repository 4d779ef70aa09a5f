package model

import (
	"time"

	"github.com/google/uuid"

	"tillpos/internal/money"
)

// OperationType identifies what moved the money. Direction (inflow/outflow)
// is derived from the operation type alone — see ledger.Direction. Amounts
// are always stored as non-negative magnitudes.
type OperationType string

const (
	OpOpen       OperationType = "open"
	OpClose      OperationType = "close"
	OpSale       OperationType = "sale"
	OpPayment    OperationType = "payment"
	OpWithdrawal OperationType = "withdrawal"
	OpDeposit    OperationType = "deposit"
	OpRefund     OperationType = "refund"
)

type PaymentMethod string

const (
	MethodCash       PaymentMethod = "cash"
	MethodCreditCard PaymentMethod = "credit_card"
	MethodDebitCard  PaymentMethod = "debit_card"
	MethodPix        PaymentMethod = "pix"
)

// Category is the reporting axis for movement summaries. It is independent
// from OperationType: the close entry is tagged "adjustment" for reporting
// while still behaving as an outflow for balance purposes.
type Category string

const (
	CategorySale       Category = "sale"
	CategoryPayment    Category = "payment"
	CategoryWithdrawal Category = "withdrawal"
	CategoryDeposit    Category = "deposit"
	CategoryRefund     Category = "refund"
	CategoryAdjustment Category = "adjustment"
)

// LedgerEntry is one immutable money movement against a register.
// Entries are NEVER updated or deleted — correcting a mistake appends a
// compensating entry (see the refund workflow).
type LedgerEntry struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RegisterID uuid.UUID     `gorm:"type:uuid;index;not null"`
	OperatorID uuid.UUID     `gorm:"type:uuid;not null"`
	Operation  OperationType `gorm:"type:varchar(20);not null"`
	Method     PaymentMethod `gorm:"type:varchar(20);not null"`
	Category   Category      `gorm:"type:varchar(20);not null"`
	// AmountUnits is the non-negative magnitude in minor units.
	AmountUnits int64  `gorm:"not null;check:amount_units >= 0"`
	Currency    string `gorm:"type:varchar(3);not null"`
	Description string `gorm:"not null"`
	// ReferenceID links to the external sale/order for sales, or to the
	// original entry id for refunds.
	ReferenceID *string `gorm:"index"`
	// ClientLabel is free text, not a foreign key — the ledger never requires
	// the client catalog to exist.
	ClientLabel *string
	// CreatedAt may be backdated for retroactive entries, but never before the
	// owning register's OpenedAt nor after "now".
	CreatedAt time.Time `gorm:"index"`
}

func (e *LedgerEntry) Amount() money.Money {
	return money.New(e.AmountUnits, e.Currency)
}
