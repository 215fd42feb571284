package state

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/split"
)

// paidTolerance is how far tracked paid amounts may drift from the total and
// still be kept.
var paidTolerance = decimal.New(1, -2)

func expenseID(e ledger.Expense) string { return e.ID }

func (m *mutation) addExpense(e ledger.Expense) error {
	id, err := m.assignID("expense", e.ID, func(id string) bool {
		return indexByID(m.snap.Expenses, id, expenseID) >= 0
	})
	if err != nil {
		return err
	}

	e.ID = id
	e.CreatedAt = m.now
	e.UpdatedAt = m.now

	if e.Date.IsZero() {
		e.Date = m.now
	}

	if e.CreatedBy == "" {
		e.CreatedBy = m.snap.CurrentUser
	}

	if err := m.prepareExpense(&e); err != nil {
		return err
	}

	m.snap.Expenses = append(m.snap.Expenses, e)
	m.record(ledger.ActivityExpenseAdded, e.ID, e.CreatedBy, fmt.Sprintf("Added expense %q", e.Title))

	return nil
}

func (m *mutation) updateExpense(e ledger.Expense) error {
	i := indexByID(m.snap.Expenses, e.ID, expenseID)
	if i < 0 {
		return ledger.NotFound("expense", e.ID)
	}

	existing := m.snap.Expenses[i]
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = m.now

	if e.CreatedBy == "" {
		e.CreatedBy = existing.CreatedBy
	}

	if e.Date.IsZero() {
		e.Date = existing.Date
	}

	if err := m.prepareExpense(&e); err != nil {
		return err
	}

	m.snap.Expenses[i] = e

	return nil
}

func (m *mutation) deleteExpense(id string) error {
	expenses, err := remove(m.snap.Expenses, "expense", id, expenseID)
	if err != nil {
		return err
	}

	m.snap.Expenses = expenses

	return nil
}

// settleExpense marks the expense and all of its participants settled. It is an
// attestation: no payment is checked.
func (m *mutation) settleExpense(id string) error {
	i := indexByID(m.snap.Expenses, id, expenseID)
	if i < 0 {
		return ledger.NotFound("expense", id)
	}

	e := &m.snap.Expenses[i]
	e.Settled = true
	e.UpdatedAt = m.now

	for j := range e.Participants {
		e.Participants[j].Settled = true
	}

	return nil
}

// prepareExpense validates e, recomputes its total and derives every
// participant's owed, paid and net amounts.
func (m *mutation) prepareExpense(e *ledger.Expense) error {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return ledger.Invalid("title", "title is required")
	}

	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{{"baseAmount", e.BaseAmount}, {"tax", e.Tax}, {"tip", e.Tip}} {
		if f.value.IsNegative() {
			return ledger.Invalid(f.name, "amount cannot be negative")
		}
	}

	e.TotalAmount = e.ComputeTotal()
	if !e.TotalAmount.IsPositive() {
		return ledger.Invalid("totalAmount", "total amount must be positive")
	}

	e.Currency = m.currency(e.Currency)

	if e.ExchangeRate.IsZero() {
		e.ExchangeRate = decimal.NewFromInt(1)
	} else if e.ExchangeRate.IsNegative() {
		return ledger.Invalid("exchangeRate", "exchange rate must be positive")
	}

	if e.SplitPolicy == "" {
		e.SplitPolicy = ledger.SplitEqual
	}

	if !e.SplitPolicy.Valid() {
		return ledger.Invalid("splitPolicy", "unknown split policy "+string(e.SplitPolicy))
	}

	if err := m.checkReferences(e); err != nil {
		return err
	}

	if len(e.PaidBy) == 0 {
		return ledger.Invalid("paidBy", "at least one payer is required")
	}

	if slices.Contains(e.PaidBy, "") {
		return ledger.Invalid("paidBy", "payer id is required")
	}

	if id, dup := hasDuplicates(e.PaidBy); dup {
		return ledger.Invalid("paidBy", fmt.Sprintf("duplicate payer %q", id))
	}

	ids := make([]string, len(e.Participants))
	for i, p := range e.Participants {
		if p.UserID == "" {
			return ledger.Invalid("participants", "participant user id is required")
		}

		ids[i] = p.UserID
	}

	if id, dup := hasDuplicates(ids); dup {
		return ledger.Invalid("participants", fmt.Sprintf("duplicate participant %q", id))
	}

	if err := allocate(e); err != nil {
		return err
	}

	reconcilePayers(e)

	if e.Settled {
		for i := range e.Participants {
			e.Participants[i].Settled = true
		}
	}

	return nil
}

func (m *mutation) checkReferences(e *ledger.Expense) error {
	if e.CategoryID != "" {
		if _, ok := m.snap.Category(e.CategoryID); !ok {
			return ledger.NotFound("category", e.CategoryID)
		}
	}

	if e.GroupID != "" && indexByID(m.snap.Groups, e.GroupID, groupID) < 0 {
		return ledger.NotFound("group", e.GroupID)
	}

	return nil
}

// allocate sets the owed amount of every splitting participant. Payer-only
// entries take no part in the split.
func allocate(e *ledger.Expense) error {
	var (
		idx   []int
		decls []split.Declaration
	)

	for i, p := range e.Participants {
		if p.PayerOnly() {
			continue
		}

		idx = append(idx, i)
		decls = append(decls, split.Declaration{UserID: p.UserID, SplitType: p.SplitType, SplitValue: p.SplitValue})
	}

	if e.SplitPolicy == ledger.SplitItemized {
		return checkItemized(e, idx)
	}

	computed, err := split.Compute(e.TotalAmount, decls, e.SplitPolicy)
	if err != nil {
		return err
	}

	for k, i := range idx {
		e.Participants[i].OwedAmount = computed[k].OwedAmount
		e.Participants[i].SplitType = computed[k].SplitType
	}

	return nil
}

// checkItemized validates owed amounts supplied by the caller.
func checkItemized(e *ledger.Expense, idx []int) error {
	if len(idx) == 0 {
		return ledger.Invalid("participants", "at least one participant is required")
	}

	sum := decimal.Zero

	for _, i := range idx {
		p := &e.Participants[i]
		if p.OwedAmount.IsNegative() {
			return ledger.Invalid("owedAmount", "owed amount cannot be negative")
		}

		p.SplitType = ledger.SplitItemized
		sum = sum.Add(p.OwedAmount)
	}

	if sum.Sub(e.TotalAmount).Abs().GreaterThan(paidTolerance) {
		return ledger.Invalid("", "itemized amounts must equal total")
	}

	return nil
}

// reconcilePayers fills paid amounts and derives net = paid - owed.
//
// Payer-only entries whose user left PaidBy are dropped. Tracked paid amounts
// are kept when they add up to the total and every user holding one is still
// in PaidBy. Otherwise the total is divided equally among PaidBy, and payers
// missing from the participant list are added with nothing owed.
func reconcilePayers(e *ledger.Expense) {
	e.Participants = slices.DeleteFunc(e.Participants, func(p ledger.Participant) bool {
		return p.PayerOnly() && !slices.Contains(e.PaidBy, p.UserID)
	})

	if !trackedPaymentsHold(e) {
		for i := range e.Participants {
			e.Participants[i].PaidAmount = decimal.Zero
		}

		each := e.TotalAmount.Div(decimal.NewFromInt(int64(len(e.PaidBy))))

		for _, id := range e.PaidBy {
			i := slices.IndexFunc(e.Participants, func(p ledger.Participant) bool { return p.UserID == id })
			if i < 0 {
				e.Participants = append(e.Participants, ledger.Participant{
					UserID:     id,
					OwedAmount: decimal.Zero,
					SplitType:  e.SplitPolicy,
				})
				i = len(e.Participants) - 1
			}

			e.Participants[i].PaidAmount = each
		}
	}

	for i := range e.Participants {
		p := &e.Participants[i]
		p.NetAmount = p.PaidAmount.Sub(p.OwedAmount)
	}
}

func trackedPaymentsHold(e *ledger.Expense) bool {
	paid := decimal.Zero

	for _, p := range e.Participants {
		if p.PaidAmount.IsNegative() {
			return false
		}

		if p.PaidAmount.IsPositive() && !slices.Contains(e.PaidBy, p.UserID) {
			return false
		}

		paid = paid.Add(p.PaidAmount)
	}

	return paid.Sub(e.TotalAmount).Abs().LessThanOrEqual(paidTolerance)
}
