package importer

import (
	"fmt"
	"strings"

	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/state"
)

// Commands turns rows into addExpense commands split equally. Users and
// categories are looked up by ID first, then by name ignoring case.
//
// The sheet carries no split policy, so only equally split expenses survive an
// export and import unchanged.
func Commands(snap ledger.Snapshot, rows []Row) ([]state.Command, error) {
	users := newResolver()
	for _, u := range snap.Users {
		users.add(u.ID, u.Name)
	}

	categories := newResolver()
	for _, c := range snap.Categories {
		categories.add(c.ID, c.Name)
	}

	cmds := make([]state.Command, 0, len(rows))

	for _, row := range rows {
		paidBy, err := users.all(row.PaidBy)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Line, err)
		}

		ids, err := users.all(row.Participants)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Line, err)
		}

		participants := make([]ledger.Participant, len(ids))
		for i, id := range ids {
			participants[i] = ledger.Participant{UserID: id}
		}

		var categoryID string
		if row.Category != "" {
			if categoryID, err = categories.resolve("category", row.Category); err != nil {
				return nil, fmt.Errorf("row %d: %w", row.Line, err)
			}
		}

		cmds = append(cmds, state.AddExpense{Expense: ledger.Expense{
			Title:        row.Title,
			BaseAmount:   row.Amount,
			Currency:     row.Currency,
			CategoryID:   categoryID,
			SplitPolicy:  ledger.SplitEqual,
			Participants: participants,
			PaidBy:       paidBy,
			Settled:      row.Settled,
			Date:         row.Date,
		}})
	}

	return cmds, nil
}

type resolver struct {
	ids    map[string]bool
	byName map[string]string
}

func newResolver() *resolver {
	return &resolver{ids: map[string]bool{}, byName: map[string]string{}}
}

func (r *resolver) add(id, name string) {
	r.ids[id] = true

	key := strings.ToLower(name)
	if _, taken := r.byName[key]; !taken {
		r.byName[key] = id
	}
}

func (r *resolver) resolve(kind, ref string) (string, error) {
	if r.ids[ref] {
		return ref, nil
	}

	if id, ok := r.byName[strings.ToLower(ref)]; ok {
		return id, nil
	}

	return "", ledger.NotFound(kind, ref)
}

func (r *resolver) all(refs []string) ([]string, error) {
	ids := make([]string, len(refs))

	for i, ref := range refs {
		id, err := r.resolve("user", ref)
		if err != nil {
			return nil, err
		}

		ids[i] = id
	}

	return ids, nil
}
