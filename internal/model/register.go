package model

import (
	"time"

	"github.com/google/uuid"

	"tillpos/internal/money"
)

// RegisterStatus is the lifecycle state of one till session.
// "auto_closed" is reserved for forced closes; nothing in the current
// system assigns it.
type RegisterStatus string

const (
	RegisterOpen       RegisterStatus = "open"
	RegisterClosed     RegisterStatus = "closed"
	RegisterAutoClosed RegisterStatus = "auto_closed"
)

// Register represents one open-to-close session of a physical till.
// At most one register is open at any time — enforced by a partial unique
// index on (status) WHERE status = 'open', not by in-process state.
//
// Registers are never deleted. After close, the only sanctioned mutation is
// the amendment path: counted/expected/difference/next-day-float/notes.
type Register struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OpeningOperatorID uuid.UUID  `gorm:"type:uuid;not null"`
	ClosingOperatorID *uuid.UUID `gorm:"type:uuid"`
	Currency          string     `gorm:"type:varchar(3);not null"`
	// InitialUnits is the opening cash float in minor units, fixed at open time.
	InitialUnits int64 `gorm:"not null"`
	// Closing figures — all null while the register is open.
	FinalUnits      *int64 `gorm:"column:final_units"`
	ExpectedUnits   *int64 `gorm:"column:expected_units"`
	DifferenceUnits *int64 `gorm:"column:difference_units"`
	// NextDayFloatUnits is recorded for audit only; opening the next register
	// is always an explicit operator action.
	NextDayFloatUnits *int64
	Notes             *string
	Status            RegisterStatus `gorm:"type:varchar(20);not null;index"`
	OpenedAt          time.Time
	ClosedAt          *time.Time

	Entries []LedgerEntry `gorm:"foreignKey:RegisterID"`
}

func (r *Register) InitialAmount() money.Money {
	return money.New(r.InitialUnits, r.Currency)
}

func (r *Register) IsOpen() bool { return r.Status == RegisterOpen }

// SetClosingFigures stamps the reconciliation result. difference is always
// counted − expected; positive is an overage, negative a shortage.
func (r *Register) SetClosingFigures(counted, expected money.Money) {
	final := counted.Units
	exp := expected.Units
	diff := counted.Units - expected.Units
	r.FinalUnits = &final
	r.ExpectedUnits = &exp
	r.DifferenceUnits = &diff
}
