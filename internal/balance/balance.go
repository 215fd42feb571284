// Package balance aggregates per-user debt positions from the expense set.
package balance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kinshukkush/smartsplit/internal/ledger"
)

// DebtSummary is a derived, never persisted view of one user's position.
type DebtSummary struct {
	UserID string `json:"userId"`
	// TotalOwed is what others owe this user.
	TotalOwed decimal.Decimal `json:"totalOwed"`
	// TotalOwing is what this user owes others.
	TotalOwing   decimal.Decimal `json:"totalOwing"`
	NetAmount    decimal.Decimal `json:"netAmount"`
	ExpenseCount int             `json:"expenseCount"`
	LastActivity time.Time       `json:"lastActivity"`
}

// Zero returns the all-zero summary for userID.
func Zero(userID string) DebtSummary {
	return DebtSummary{
		UserID:     userID,
		TotalOwed:  decimal.Zero,
		TotalOwing: decimal.Zero,
		NetAmount:  decimal.Zero,
	}
}

// Calculate returns the summary of userID. A user that takes part in no
// expense gets the zero summary.
func Calculate(expenses []ledger.Expense, userID string) DebtSummary {
	summary, err := Lookup(expenses, userID)
	if err != nil {
		return Zero(userID)
	}

	return summary
}

// Lookup is Calculate for callers that need to tell an unknown user apart from
// a settled one. It returns a ledger.NotFoundError when userID has no
// participant entry in any expense.
//
// Only unsettled participant entries contribute to the totals. LastActivity is
// the latest expense date across all expenses, not only the user's own.
func Lookup(expenses []ledger.Expense, userID string) (DebtSummary, error) {
	summary := Zero(userID)
	found := false

	for _, e := range expenses {
		if e.Date.After(summary.LastActivity) {
			summary.LastActivity = e.Date
		}

		p, ok := e.Participant(userID)
		if !ok {
			continue
		}

		found = true
		accumulate(&summary, p)
	}

	if !found {
		return DebtSummary{}, ledger.NotFound("user", userID)
	}

	summary.NetAmount = summary.TotalOwed.Sub(summary.TotalOwing)

	return summary, nil
}

// CalculateAll computes every participant's summary in one pass. For each user
// the result equals Calculate(expenses, user).
func CalculateAll(expenses []ledger.Expense) map[string]DebtSummary {
	summaries := make(map[string]*DebtSummary)
	var lastActivity time.Time

	for _, e := range expenses {
		if e.Date.After(lastActivity) {
			lastActivity = e.Date
		}

		// Match Expense.Participant, which only sees a user's first entry.
		seen := make(map[string]bool, len(e.Participants))

		for _, p := range e.Participants {
			if seen[p.UserID] {
				continue
			}

			seen[p.UserID] = true

			s, ok := summaries[p.UserID]
			if !ok {
				z := Zero(p.UserID)
				s = &z
				summaries[p.UserID] = s
			}

			accumulate(s, p)
		}
	}

	out := make(map[string]DebtSummary, len(summaries))
	for id, s := range summaries {
		s.NetAmount = s.TotalOwed.Sub(s.TotalOwing)
		s.LastActivity = lastActivity
		out[id] = *s
	}

	return out
}

func accumulate(s *DebtSummary, p ledger.Participant) {
	if p.Settled {
		return
	}

	s.ExpenseCount++

	switch {
	case p.NetAmount.IsPositive():
		s.TotalOwed = s.TotalOwed.Add(p.NetAmount)
	case p.NetAmount.IsNegative():
		s.TotalOwing = s.TotalOwing.Add(p.NetAmount.Abs())
	}
}
