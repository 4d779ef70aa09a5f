package ledger

import (
	"tillpos/internal/model"
	"tillpos/internal/money"
)

// Movements is the derived per-category magnitude summary for a scope,
// inflow and outflow categories reported separately for dashboard display.
type Movements struct {
	Inflows  map[model.Category]money.Money
	Outflows map[model.Category]money.Money
}

// MovementsOf groups an entry set by category and sums unsigned magnitudes.
// The open entry is folded into the deposit category (an opening float is
// economically a deposit); close entries are excluded entirely.
func MovementsOf(entries []model.LedgerEntry, currency string) (Movements, error) {
	m := Movements{
		Inflows:  make(map[model.Category]money.Money),
		Outflows: make(map[model.Category]money.Money),
	}
	for _, e := range entries {
		if e.Operation == model.OpClose {
			continue
		}
		cat := e.Category
		if e.Operation == model.OpOpen {
			cat = model.CategoryDeposit
		}

		bucket := m.Outflows
		if Direction(e.Operation) > 0 {
			bucket = m.Inflows
		}

		cur, ok := bucket[cat]
		if !ok {
			cur = money.Zero(currency)
		}
		sum, err := cur.Add(e.Amount())
		if err != nil {
			return Movements{}, err
		}
		bucket[cat] = sum
	}
	return m, nil
}
