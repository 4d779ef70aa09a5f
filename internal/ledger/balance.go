// Package ledger holds the pure derivation logic over ledger entries:
// direction classification, per-payment-method balances and per-category
// movement summaries. No I/O — every function is a deterministic fold that
// can be re-run over any entry subset (one register, one calendar day).
package ledger

import (
	"tillpos/internal/model"
	"tillpos/internal/money"
)

// Direction returns +1 for inflows and -1 for outflows.
// This is the single canonical classification — every balance in the system
// is computed through it, so register-scoped and day-scoped figures cannot
// drift apart.
func Direction(op model.OperationType) int {
	switch op {
	case model.OpOpen, model.OpSale, model.OpDeposit:
		return 1
	case model.OpClose, model.OpPayment, model.OpWithdrawal, model.OpRefund:
		return -1
	default:
		return 0
	}
}

// Balance is the derived per-payment-method running total for a scope.
// Total is always the sum of the four buckets.
type Balance struct {
	Cash       money.Money
	CreditCard money.Money
	DebitCard  money.Money
	Pix        money.Money
	Total      money.Money
}

func ZeroBalance(currency string) Balance {
	z := money.Zero(currency)
	return Balance{Cash: z, CreditCard: z, DebitCard: z, Pix: z, Total: z}
}

// BalanceOf folds a register-scoped entry set: lifecycle entries (open/close)
// are included. Entries in a different currency than the scope are a data
// corruption and surface as an error rather than being skipped.
func BalanceOf(entries []model.LedgerEntry, currency string) (Balance, error) {
	return fold(entries, currency, func(model.LedgerEntry) bool { return true })
}

// DayBalance folds a calendar-day entry set. Open and close entries are
// register-lifecycle bookkeeping, not that day's commercial activity, so they
// are excluded.
func DayBalance(entries []model.LedgerEntry, currency string) (Balance, error) {
	return fold(entries, currency, func(e model.LedgerEntry) bool {
		return e.Operation != model.OpOpen && e.Operation != model.OpClose
	})
}

// ExpectedCash is the cash a register should physically contain: the cash
// bucket over every entry except the close entry. The close entry records the
// counted amount for audit and must not feed back into what "expected" means.
func ExpectedCash(entries []model.LedgerEntry, currency string) (money.Money, error) {
	b, err := fold(entries, currency, func(e model.LedgerEntry) bool {
		return e.Operation != model.OpClose
	})
	if err != nil {
		return money.Money{}, err
	}
	return b.Cash, nil
}

func fold(entries []model.LedgerEntry, currency string, include func(model.LedgerEntry) bool) (Balance, error) {
	b := ZeroBalance(currency)
	for _, e := range entries {
		if !include(e) {
			continue
		}
		signed := money.New(int64(Direction(e.Operation))*e.AmountUnits, e.Currency)

		var err error
		switch e.Method {
		case model.MethodCash:
			b.Cash, err = b.Cash.Add(signed)
		case model.MethodCreditCard:
			b.CreditCard, err = b.CreditCard.Add(signed)
		case model.MethodDebitCard:
			b.DebitCard, err = b.DebitCard.Add(signed)
		case model.MethodPix:
			b.Pix, err = b.Pix.Add(signed)
		}
		if err != nil {
			return Balance{}, err
		}
		if b.Total, err = b.Total.Add(signed); err != nil {
			return Balance{}, err
		}
	}
	return b, nil
}
