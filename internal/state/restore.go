package state

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kinshukkush/smartsplit/internal/ledger"
)

// checkRestored rejects a restored expense set that commands could never have
// produced. It checks what was stored and derives nothing.
func checkRestored(expenses []ledger.Expense) error {
	for _, e := range expenses {
		if err := checkStoredExpense(e); err != nil {
			return err
		}
	}

	return nil
}

func checkStoredExpense(e ledger.Expense) error {
	invalid := func(field, reason string) error {
		return ledger.Invalid(field, fmt.Sprintf("expense %q: %s", e.ID, reason))
	}

	if e.ID == "" {
		return ledger.Invalid("id", "restored expense has no id")
	}

	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{{"baseAmount", e.BaseAmount}, {"tax", e.Tax}, {"tip", e.Tip}} {
		if f.value.IsNegative() {
			return invalid(f.name, "amount cannot be negative")
		}
	}

	if !e.TotalAmount.IsPositive() {
		return invalid("totalAmount", "total amount must be positive")
	}

	if !e.TotalAmount.Equal(e.ComputeTotal()) {
		return invalid("totalAmount", "total amount must equal base amount plus tax and tip")
	}

	if len(e.Participants) == 0 {
		return invalid("participants", "at least one participant is required")
	}

	if len(e.PaidBy) == 0 {
		return invalid("paidBy", "at least one payer is required")
	}

	net := decimal.Zero
	for _, p := range e.Participants {
		if p.UserID == "" {
			return invalid("participants", "participant user id is required")
		}

		net = net.Add(p.NetAmount)
	}

	if net.Abs().GreaterThan(paidTolerance) {
		return invalid("participants", "participant net amounts must sum to zero")
	}

	return nil
}
