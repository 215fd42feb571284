// Package settlement proposes payments that clear the debts recorded in a
// snapshot. Suggest enumerates every plausible creditor/debtor pair with its
// supporting expenses; Optimize computes a minimal covering. The two answer
// different questions and are not interchangeable.
package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kinshukkush/smartsplit/internal/balance"
	"github.com/kinshukkush/smartsplit/internal/ledger"
)

// Options controls the metadata stamped on generated settlements.
type Options struct {
	Now   time.Time
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.Now.IsZero() {
		o.Now = time.Now().UTC()
	}

	if o.NewID == nil {
		o.NewID = uuid.NewString
	}

	return o
}

// Balance is one user's net position, positive when owed.
type Balance struct {
	UserID string
	Amount decimal.Decimal
}

// Suggest returns one suggested settlement for every creditor/debtor pair whose
// amount reaches the snapshot's auto-settle threshold and that is backed by at
// least one unsettled expense in which the creditor is owed and the debtor owes.
//
// Pairs are not netted against each other: a creditor can appear against several
// debtors and the suggested totals need not match anybody's balance.
func Suggest(snap ledger.Snapshot, opts Options) []ledger.Settlement {
	opts = opts.withDefaults()
	balances := netBalances(snap, snap.UserOrder())

	var creditors, debtors []Balance

	for _, b := range balances {
		switch {
		case b.Amount.IsPositive():
			creditors = append(creditors, b)
		case b.Amount.IsNegative():
			debtors = append(debtors, b)
		}
	}

	threshold := snap.Settings.AutoSettleThreshold
	suggestions := []ledger.Settlement{}

	for _, c := range creditors {
		for _, d := range debtors {
			amount := decimal.Min(c.Amount, d.Amount.Abs())
			if amount.LessThan(threshold) {
				continue
			}

			related := relatedExpenses(snap.Expenses, c.UserID, d.UserID)
			if len(related) == 0 {
				continue
			}

			suggestions = append(suggestions, newSettlement(opts, snap.Settings.DefaultCurrency, d.UserID, c.UserID, amount, related))
		}
	}

	return suggestions
}

// relatedExpenses lists the unsettled expenses where creditor has a positive
// and debtor a negative participant entry.
func relatedExpenses(expenses []ledger.Expense, creditor, debtor string) []string {
	var ids []string

	for _, e := range expenses {
		if e.Settled {
			continue
		}

		c, ok := e.Participant(creditor)
		if !ok || c.Settled || !c.NetAmount.IsPositive() {
			continue
		}

		d, ok := e.Participant(debtor)
		if !ok || d.Settled || !d.NetAmount.IsNegative() {
			continue
		}

		ids = append(ids, e.ID)
	}

	return ids
}

// netBalances returns the rounded net balance of every id, in the given order.
// Duplicate ids are kept once and unknown users get a zero balance.
func netBalances(snap ledger.Snapshot, userIDs []string) []Balance {
	summaries := balance.CalculateAll(snap.Expenses)
	seen := make(map[string]bool, len(userIDs))
	out := make([]Balance, 0, len(userIDs))

	for _, id := range userIDs {
		if seen[id] {
			continue
		}

		seen[id] = true

		amount := decimal.Zero
		if s, ok := summaries[id]; ok {
			// Repeating-decimal splits leave sub-cent dust behind.
			amount = s.NetAmount.Round(2)
		}

		out = append(out, Balance{UserID: id, Amount: amount})
	}

	return out
}

func newSettlement(opts Options, currency, from, to string, amount decimal.Decimal, expenseIDs []string) ledger.Settlement {
	if currency == "" {
		currency = ledger.DefaultCurrency
	}

	if expenseIDs == nil {
		expenseIDs = []string{}
	}

	return ledger.Settlement{
		ID:         opts.NewID(),
		FromUserID: from,
		ToUserID:   to,
		Amount:     amount,
		Currency:   currency,
		Status:     ledger.StatusSuggested,
		ExpenseIDs: expenseIDs,
		CreatedAt:  opts.Now,
		UpdatedAt:  opts.Now,
	}
}
