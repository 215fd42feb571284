package ledger

import (
	"slices"
)

// MaxActivities is the number of activity entries a snapshot retains.
const MaxActivities = 50

// Snapshot is the complete state of the ledger at one point in time.
// A Snapshot handed out by the state or engine packages must be treated as
// read-only; use Clone before changing anything.
type Snapshot struct {
	Users        []User       `json:"users"`
	Expenses     []Expense    `json:"expenses"`
	Groups       []Group      `json:"groups"`
	Payments     []Payment    `json:"payments"`
	Reminders    []Reminder   `json:"reminders"`
	Settlements  []Settlement `json:"settlements"`
	Categories   []Category   `json:"categories"`
	ActivityFeed []Activity   `json:"activityFeed"`
	CurrentUser  string       `json:"currentUser"`
	Settings     Settings     `json:"settings"`
}

// NewSnapshot returns an empty ledger with default settings.
func NewSnapshot() Snapshot {
	return Snapshot{
		Users:        []User{},
		Expenses:     []Expense{},
		Groups:       []Group{},
		Payments:     []Payment{},
		Reminders:    []Reminder{},
		Settlements:  []Settlement{},
		Categories:   []Category{},
		ActivityFeed: []Activity{},
		Settings:     DefaultSettings(),
	}
}

// Normalize replaces nil collections with empty ones and fills unset settings,
// so that decoded documents and fresh snapshots look the same.
func (s Snapshot) Normalize() Snapshot {
	s.Users = orEmpty(s.Users)
	s.Expenses = orEmpty(s.Expenses)
	s.Groups = orEmpty(s.Groups)
	s.Payments = orEmpty(s.Payments)
	s.Reminders = orEmpty(s.Reminders)
	s.Settlements = orEmpty(s.Settlements)
	s.Categories = orEmpty(s.Categories)
	s.ActivityFeed = orEmpty(s.ActivityFeed)

	if s.Settings.DefaultCurrency == "" {
		s.Settings.DefaultCurrency = DefaultCurrency
	}

	return s
}

// Clone returns a deep copy of s. The copy shares no slice backing arrays
// with s.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Users = slices.Clone(s.Users)
	c.Payments = slices.Clone(s.Payments)
	c.Reminders = slices.Clone(s.Reminders)
	c.Categories = slices.Clone(s.Categories)
	c.ActivityFeed = slices.Clone(s.ActivityFeed)

	c.Expenses = make([]Expense, len(s.Expenses))
	for i, e := range s.Expenses {
		c.Expenses[i] = e.Clone()
	}

	c.Groups = make([]Group, len(s.Groups))
	for i, g := range s.Groups {
		g.MemberIDs = slices.Clone(g.MemberIDs)
		c.Groups[i] = g
	}

	c.Settlements = make([]Settlement, len(s.Settlements))
	for i, st := range s.Settlements {
		st.ExpenseIDs = slices.Clone(st.ExpenseIDs)
		c.Settlements[i] = st
	}

	return c
}

// Clone returns a copy of e that shares no slices with it.
func (e Expense) Clone() Expense {
	e.Participants = slices.Clone(e.Participants)
	e.PaidBy = slices.Clone(e.PaidBy)

	return e
}

// User returns the user with the given ID.
func (s Snapshot) User(id string) (User, bool) {
	i := slices.IndexFunc(s.Users, func(u User) bool { return u.ID == id })
	if i < 0 {
		return User{}, false
	}

	return s.Users[i], true
}

// Expense returns the expense with the given ID.
func (s Snapshot) Expense(id string) (Expense, bool) {
	i := slices.IndexFunc(s.Expenses, func(e Expense) bool { return e.ID == id })
	if i < 0 {
		return Expense{}, false
	}

	return s.Expenses[i], true
}

// Settlement returns the settlement with the given ID.
func (s Snapshot) Settlement(id string) (Settlement, bool) {
	i := slices.IndexFunc(s.Settlements, func(st Settlement) bool { return st.ID == id })
	if i < 0 {
		return Settlement{}, false
	}

	return s.Settlements[i], true
}

// Category returns the category with the given ID.
func (s Snapshot) Category(id string) (Category, bool) {
	i := slices.IndexFunc(s.Categories, func(c Category) bool { return c.ID == id })
	if i < 0 {
		return Category{}, false
	}

	return s.Categories[i], true
}

// UserName returns the display name of id, falling back to the id itself.
func (s Snapshot) UserName(id string) string {
	if u, ok := s.User(id); ok && u.Name != "" {
		return u.Name
	}

	return id
}

// UserOrder returns every user ID known to the snapshot: the user list first,
// then participants and payers in order of first appearance in the expenses.
func (s Snapshot) UserOrder() []string {
	seen := make(map[string]bool, len(s.Users))
	order := make([]string, 0, len(s.Users))

	add := func(id string) {
		if id == "" || seen[id] {
			return
		}

		seen[id] = true
		order = append(order, id)
	}

	for _, u := range s.Users {
		add(u.ID)
	}

	for _, e := range s.Expenses {
		for _, p := range e.Participants {
			add(p.UserID)
		}

		for _, id := range e.PaidBy {
			add(id)
		}
	}

	return order
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
