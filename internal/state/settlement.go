package state

import (
	"fmt"
	"slices"

	"github.com/kinshukkush/smartsplit/internal/ledger"
)

func settlementID(s ledger.Settlement) string { return s.ID }

func (m *mutation) addSettlement(s ledger.Settlement) error {
	id, err := m.assignID("settlement", s.ID, func(id string) bool {
		return indexByID(m.snap.Settlements, id, settlementID) >= 0
	})
	if err != nil {
		return err
	}

	if err := validateTransfer(s.FromUserID, s.ToUserID); err != nil {
		return err
	}

	if !s.Amount.IsPositive() {
		return ledger.Invalid("amount", "amount must be positive")
	}

	switch s.Status {
	case "":
		s.Status = ledger.StatusSuggested
	case ledger.StatusSuggested, ledger.StatusAgreed, ledger.StatusCompleted, ledger.StatusDeclined:
	default:
		return ledger.Invalid("status", fmt.Sprintf("unknown settlement status %q", s.Status))
	}

	s.ExpenseIDs = slices.Clone(s.ExpenseIDs)
	if s.ExpenseIDs == nil {
		s.ExpenseIDs = []string{}
	}

	for _, eid := range s.ExpenseIDs {
		if _, ok := m.snap.Expense(eid); !ok {
			return ledger.NotFound("expense", eid)
		}
	}

	s.ID = id
	s.Currency = m.currency(s.Currency)
	s.CreatedAt = m.now
	s.UpdatedAt = m.now
	s.CompletedAt = nil

	if s.Status == ledger.StatusCompleted {
		completed := m.now
		s.CompletedAt = &completed
	}

	m.snap.Settlements = append(m.snap.Settlements, s)

	return nil
}

// transitionSettlement moves a settlement along suggested -> agreed ->
// completed, or to declined from either of the first two.
func (m *mutation) transitionSettlement(c TransitionSettlement) error {
	i := indexByID(m.snap.Settlements, c.ID, settlementID)
	if i < 0 {
		return ledger.NotFound("settlement", c.ID)
	}

	s := &m.snap.Settlements[i]
	if !s.Status.CanTransition(c.Status) {
		return ledger.Invalid("status", fmt.Sprintf("cannot move settlement from %s to %s", s.Status, c.Status))
	}

	s.Status = c.Status
	s.UpdatedAt = m.now

	if c.Note != "" {
		s.Note = c.Note
	}

	if c.Status == ledger.StatusCompleted {
		completed := m.now
		s.CompletedAt = &completed
	}

	return nil
}

func (m *mutation) deleteSettlement(id string) error {
	settlements, err := remove(m.snap.Settlements, "settlement", id, settlementID)
	if err != nil {
		return err
	}

	m.snap.Settlements = settlements

	return nil
}
