// Package ledger defines the domain records of the shared-expense ledger.
//
// Records are plain values. They are created by the UI layer (or the HTTP API),
// mutated only through the state package and read by the balance and settlement
// packages from an immutable Snapshot.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when neither the expense nor the settings name one.
const DefaultCurrency = "USD"

// SplitPolicy is the rule used to divide an expense total among participants.
type SplitPolicy string

const (
	SplitEqual      SplitPolicy = "equal"
	SplitPercentage SplitPolicy = "percentage"
	SplitExact      SplitPolicy = "exact"
	SplitShares     SplitPolicy = "shares"
	SplitItemized   SplitPolicy = "itemized"
)

// Valid reports whether p is one of the known policies.
func (p SplitPolicy) Valid() bool {
	switch p {
	case SplitEqual, SplitPercentage, SplitExact, SplitShares, SplitItemized:
		return true
	}

	return false
}

// User is referenced by ID everywhere else. Users are never hard-deleted.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Participant is one involved user's position in an expense.
// NetAmount is negative when the user owes and positive when the user is owed.
type Participant struct {
	UserID     string           `json:"userId"`
	OwedAmount decimal.Decimal  `json:"owedAmount"`
	PaidAmount decimal.Decimal  `json:"paidAmount"`
	NetAmount  decimal.Decimal  `json:"netAmount"`
	Settled    bool             `json:"settled"`
	SplitType  SplitPolicy      `json:"splitType"`
	SplitValue *decimal.Decimal `json:"splitValue,omitempty"`
}

// PayerOnly reports whether p only records a payment by a user outside the
// split: nothing owed, no split value, and a net equal to what was paid.
func (p Participant) PayerOnly() bool {
	return p.OwedAmount.IsZero() && p.SplitValue == nil &&
		p.PaidAmount.IsPositive() && p.NetAmount.Equal(p.PaidAmount)
}

// Expense is a monetary event shared by its participants.
// TotalAmount always equals BaseAmount + Tax + Tip.
type Expense struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	BaseAmount   decimal.Decimal `json:"baseAmount"`
	Tax          decimal.Decimal `json:"tax"`
	Tip          decimal.Decimal `json:"tip"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Currency     string          `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	CategoryID   string          `json:"categoryId,omitempty"`
	GroupID      string          `json:"groupId,omitempty"`
	SplitPolicy  SplitPolicy     `json:"splitPolicy"`
	Participants []Participant   `json:"participants"`
	PaidBy       []string        `json:"paidBy"`
	Settled      bool            `json:"settled"`
	CreatedBy    string          `json:"createdBy,omitempty"`
	Date         time.Time       `json:"date"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ComputeTotal returns BaseAmount + Tax + Tip.
func (e Expense) ComputeTotal() decimal.Decimal {
	return e.BaseAmount.Add(e.Tax).Add(e.Tip)
}

// Participant returns the entry for userID.
func (e Expense) Participant(userID string) (Participant, bool) {
	for _, p := range e.Participants {
		if p.UserID == userID {
			return p, true
		}
	}

	return Participant{}, false
}

// Group is a reusable set of members.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	MemberIDs   []string  `json:"memberIds"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Payment is a recorded transfer of money between two users.
type Payment struct {
	ID         string          `json:"id"`
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Method     string          `json:"method,omitempty"`
	Note       string          `json:"note,omitempty"`
	Date       time.Time       `json:"date"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Reminder asks one user to pay another.
type Reminder struct {
	ID           string          `json:"id"`
	FromUserID   string          `json:"fromUserId"`
	ToUserID     string          `json:"toUserId"`
	SettlementID string          `json:"settlementId,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Message      string          `json:"message,omitempty"`
	DueDate      time.Time       `json:"dueDate"`
	Sent         bool            `json:"sent"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Category labels expenses.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// ActivityKind names the event recorded in the activity feed.
type ActivityKind string

const (
	ActivityExpenseAdded ActivityKind = "expense_added"
	ActivityGroupAdded   ActivityKind = "group_added"
	ActivityPaymentAdded ActivityKind = "payment_added"
)

// Activity is one entry of the activity feed.
type Activity struct {
	ID          string       `json:"id"`
	Kind        ActivityKind `json:"kind"`
	EntityID    string       `json:"entityId"`
	ActorID     string       `json:"actorId,omitempty"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Settings are the ledger-wide preferences that affect computation.
type Settings struct {
	DefaultCurrency string `json:"defaultCurrency"`
	// AutoSettleThreshold is the materiality floor for settlement suggestions.
	AutoSettleThreshold decimal.Decimal `json:"autoSettleThreshold"`
	ReminderDays        int             `json:"reminderDays"`
}

// DefaultSettings returns the settings of a fresh ledger.
func DefaultSettings() Settings {
	return Settings{
		DefaultCurrency:     DefaultCurrency,
		AutoSettleThreshold: decimal.NewFromInt(1),
		ReminderDays:        7,
	}
}
