package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus represents the lifecycle state of a settlement.
type SettlementStatus string

const (
	StatusSuggested SettlementStatus = "suggested"
	StatusAgreed    SettlementStatus = "agreed"
	StatusCompleted SettlementStatus = "completed"
	StatusDeclined  SettlementStatus = "declined"
)

// transitions lists the statuses reachable from each status.
var transitions = map[SettlementStatus][]SettlementStatus{
	StatusSuggested: {StatusAgreed, StatusDeclined},
	StatusAgreed:    {StatusCompleted, StatusDeclined},
}

// CanTransition reports whether a settlement may move from s to next.
func (s SettlementStatus) CanTransition(next SettlementStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// Terminal reports whether no further transition is possible.
func (s SettlementStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Settlement is a proposed or executed payment from one user to another.
type Settlement struct {
	ID          string           `json:"id"`
	FromUserID  string           `json:"fromUserId"`
	ToUserID    string           `json:"toUserId"`
	Amount      decimal.Decimal  `json:"amount"`
	Currency    string           `json:"currency"`
	Status      SettlementStatus `json:"status"`
	ExpenseIDs  []string         `json:"expenseIds"`
	Note        string           `json:"note,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}
