package state

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kinshukkush/smartsplit/internal/ledger"
)

func userID(u ledger.User) string         { return u.ID }
func groupID(g ledger.Group) string       { return g.ID }
func paymentID(p ledger.Payment) string   { return p.ID }
func reminderID(r ledger.Reminder) string { return r.ID }
func categoryID(c ledger.Category) string { return c.ID }

func (m *mutation) addUser(u ledger.User) error {
	id, err := m.assignID("user", u.ID, func(id string) bool {
		return indexByID(m.snap.Users, id, userID) >= 0
	})
	if err != nil {
		return err
	}

	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return ledger.Invalid("name", "name is required")
	}

	u.ID = id
	u.Active = true
	u.CreatedAt = m.now
	m.snap.Users = append(m.snap.Users, u)

	return nil
}

func (m *mutation) updateUser(u ledger.User) error {
	i := indexByID(m.snap.Users, u.ID, userID)
	if i < 0 {
		return ledger.NotFound("user", u.ID)
	}

	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return ledger.Invalid("name", "name is required")
	}

	u.Active = m.snap.Users[i].Active
	u.CreatedAt = m.snap.Users[i].CreatedAt
	m.snap.Users[i] = u

	return nil
}

// deactivateUser marks the user inactive. Users are never removed because
// expenses keep referring to them.
func (m *mutation) deactivateUser(id string) error {
	i := indexByID(m.snap.Users, id, userID)
	if i < 0 {
		return ledger.NotFound("user", id)
	}

	m.snap.Users[i].Active = false

	return nil
}

func (m *mutation) addGroup(g ledger.Group) error {
	id, err := m.assignID("group", g.ID, func(id string) bool {
		return indexByID(m.snap.Groups, id, groupID) >= 0
	})
	if err != nil {
		return err
	}

	if err := validateGroup(&g); err != nil {
		return err
	}

	g.ID = id
	g.CreatedAt = m.now

	if g.CreatedBy == "" {
		g.CreatedBy = m.snap.CurrentUser
	}

	m.snap.Groups = append(m.snap.Groups, g)
	m.record(ledger.ActivityGroupAdded, g.ID, g.CreatedBy, fmt.Sprintf("Created group %q", g.Name))

	return nil
}

func (m *mutation) updateGroup(g ledger.Group) error {
	i := indexByID(m.snap.Groups, g.ID, groupID)
	if i < 0 {
		return ledger.NotFound("group", g.ID)
	}

	if err := validateGroup(&g); err != nil {
		return err
	}

	g.CreatedAt = m.snap.Groups[i].CreatedAt
	if g.CreatedBy == "" {
		g.CreatedBy = m.snap.Groups[i].CreatedBy
	}

	m.snap.Groups[i] = g

	return nil
}

// deleteGroup removes the group and detaches the expenses filed under it.
func (m *mutation) deleteGroup(id string) error {
	groups, err := remove(m.snap.Groups, "group", id, groupID)
	if err != nil {
		return err
	}

	m.snap.Groups = groups

	for i := range m.snap.Expenses {
		if m.snap.Expenses[i].GroupID == id {
			m.snap.Expenses[i].GroupID = ""
		}
	}

	return nil
}

func validateGroup(g *ledger.Group) error {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return ledger.Invalid("name", "name is required")
	}

	g.MemberIDs = slices.Clone(g.MemberIDs)
	if g.MemberIDs == nil {
		g.MemberIDs = []string{}
	}

	if id, dup := hasDuplicates(g.MemberIDs); dup {
		return ledger.Invalid("memberIds", fmt.Sprintf("duplicate member %q", id))
	}

	return nil
}

func (m *mutation) addPayment(p ledger.Payment) error {
	id, err := m.assignID("payment", p.ID, func(id string) bool {
		return indexByID(m.snap.Payments, id, paymentID) >= 0
	})
	if err != nil {
		return err
	}

	if err := validateTransfer(p.FromUserID, p.ToUserID); err != nil {
		return err
	}

	if !p.Amount.IsPositive() {
		return ledger.Invalid("amount", "amount must be positive")
	}

	p.ID = id
	p.Currency = m.currency(p.Currency)
	p.CreatedAt = m.now

	if p.Date.IsZero() {
		p.Date = m.now
	}

	m.snap.Payments = append(m.snap.Payments, p)
	m.record(ledger.ActivityPaymentAdded, p.ID, p.FromUserID, fmt.Sprintf(
		"%s paid %s %s %s",
		m.snap.UserName(p.FromUserID), m.snap.UserName(p.ToUserID), p.Amount.StringFixed(2), p.Currency,
	))

	return nil
}

func (m *mutation) deletePayment(id string) error {
	payments, err := remove(m.snap.Payments, "payment", id, paymentID)
	if err != nil {
		return err
	}

	m.snap.Payments = payments

	return nil
}

func validateTransfer(from, to string) error {
	switch {
	case from == "":
		return ledger.Invalid("fromUserId", "sender is required")
	case to == "":
		return ledger.Invalid("toUserId", "recipient is required")
	case from == to:
		return ledger.Invalid("toUserId", "sender and recipient must differ")
	}

	return nil
}

func (m *mutation) addReminder(r ledger.Reminder) error {
	id, err := m.assignID("reminder", r.ID, func(id string) bool {
		return indexByID(m.snap.Reminders, id, reminderID) >= 0
	})
	if err != nil {
		return err
	}

	if err := m.validateReminder(&r); err != nil {
		return err
	}

	r.ID = id
	r.CreatedAt = m.now

	if r.DueDate.IsZero() {
		r.DueDate = m.now.Add(time.Duration(m.snap.Settings.ReminderDays) * 24 * time.Hour)
	}

	m.snap.Reminders = append(m.snap.Reminders, r)

	return nil
}

func (m *mutation) updateReminder(r ledger.Reminder) error {
	i := indexByID(m.snap.Reminders, r.ID, reminderID)
	if i < 0 {
		return ledger.NotFound("reminder", r.ID)
	}

	if err := m.validateReminder(&r); err != nil {
		return err
	}

	r.CreatedAt = m.snap.Reminders[i].CreatedAt
	if r.DueDate.IsZero() {
		r.DueDate = m.snap.Reminders[i].DueDate
	}

	m.snap.Reminders[i] = r

	return nil
}

func (m *mutation) deleteReminder(id string) error {
	reminders, err := remove(m.snap.Reminders, "reminder", id, reminderID)
	if err != nil {
		return err
	}

	m.snap.Reminders = reminders

	return nil
}

func (m *mutation) validateReminder(r *ledger.Reminder) error {
	if err := validateTransfer(r.FromUserID, r.ToUserID); err != nil {
		return err
	}

	if !r.Amount.IsPositive() {
		return ledger.Invalid("amount", "amount must be positive")
	}

	if r.SettlementID != "" {
		if _, ok := m.snap.Settlement(r.SettlementID); !ok {
			return ledger.NotFound("settlement", r.SettlementID)
		}
	}

	r.Currency = m.currency(r.Currency)

	return nil
}

func (m *mutation) addCategory(c ledger.Category) error {
	id, err := m.assignID("category", c.ID, func(id string) bool {
		return indexByID(m.snap.Categories, id, categoryID) >= 0
	})
	if err != nil {
		return err
	}

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ledger.Invalid("name", "name is required")
	}

	c.ID = id
	m.snap.Categories = append(m.snap.Categories, c)

	return nil
}

func (m *mutation) updateCategory(c ledger.Category) error {
	i := indexByID(m.snap.Categories, c.ID, categoryID)
	if i < 0 {
		return ledger.NotFound("category", c.ID)
	}

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ledger.Invalid("name", "name is required")
	}

	m.snap.Categories[i] = c

	return nil
}

// deleteCategory removes the category and clears it from expenses.
func (m *mutation) deleteCategory(id string) error {
	categories, err := remove(m.snap.Categories, "category", id, categoryID)
	if err != nil {
		return err
	}

	m.snap.Categories = categories

	for i := range m.snap.Expenses {
		if m.snap.Expenses[i].CategoryID == id {
			m.snap.Expenses[i].CategoryID = ""
		}
	}

	return nil
}

// setCurrentUser switches the acting user. An empty id signs out.
func (m *mutation) setCurrentUser(id string) error {
	if id != "" {
		if _, ok := m.snap.User(id); !ok {
			return ledger.NotFound("user", id)
		}
	}

	m.snap.CurrentUser = id

	return nil
}

func (m *mutation) updateSettings(s ledger.Settings) error {
	s.DefaultCurrency = strings.ToUpper(strings.TrimSpace(s.DefaultCurrency))

	switch {
	case s.DefaultCurrency == "":
		return ledger.Invalid("defaultCurrency", "currency is required")
	case s.AutoSettleThreshold.IsNegative():
		return ledger.Invalid("autoSettleThreshold", "threshold cannot be negative")
	case s.ReminderDays < 0:
		return ledger.Invalid("reminderDays", "reminder days cannot be negative")
	}

	m.snap.Settings = s

	return nil
}
