// Package state holds the transition function of the ledger: every change to a
// snapshot is a Command applied by a Reducer.
package state

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kinshukkush/smartsplit/internal/ledger"
)

// Reducer applies commands to snapshots. It holds no state of its own beyond
// its clock and ID source, so one Reducer can serve any number of snapshots.
type Reducer struct {
	now   func() time.Time
	newID func() string
}

type Option func(*Reducer)

// WithClock sets the source of entity timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reducer) { r.now = now }
}

// WithIDs sets the generator used for entities submitted without an ID.
func WithIDs(newID func() string) Option {
	return func(r *Reducer) { r.newID = newID }
}

func NewReducer(opts ...Option) *Reducer {
	r := &Reducer{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Apply returns the snapshot that results from applying cmd to snap. snap is
// never modified. On error the returned snapshot is snap itself and nothing has
// been applied.
func (r *Reducer) Apply(snap ledger.Snapshot, cmd Command) (ledger.Snapshot, error) {
	if cmd == nil {
		return snap, ledger.Invalid("kind", "command is required")
	}

	next := snap.Clone()
	m := &mutation{snap: &next, now: r.now(), newID: r.newID}

	if err := m.apply(cmd); err != nil {
		return snap, fmt.Errorf("apply %s: %w", cmd.Kind(), err)
	}

	return next, nil
}

// mutation is one command being applied to a private copy of the snapshot.
type mutation struct {
	snap  *ledger.Snapshot
	now   time.Time
	newID func() string
}

func (m *mutation) apply(cmd Command) error {
	switch c := cmd.(type) {
	case AddUser:
		return m.addUser(c.User)
	case UpdateUser:
		return m.updateUser(c.User)
	case DeactivateUser:
		return m.deactivateUser(c.ID)

	case AddExpense:
		return m.addExpense(c.Expense.Clone())
	case UpdateExpense:
		return m.updateExpense(c.Expense.Clone())
	case DeleteExpense:
		return m.deleteExpense(c.ID)
	case SettleExpense:
		return m.settleExpense(c.ID)

	case AddGroup:
		return m.addGroup(c.Group)
	case UpdateGroup:
		return m.updateGroup(c.Group)
	case DeleteGroup:
		return m.deleteGroup(c.ID)

	case AddPayment:
		return m.addPayment(c.Payment)
	case DeletePayment:
		return m.deletePayment(c.ID)

	case AddSettlement:
		return m.addSettlement(c.Settlement)
	case TransitionSettlement:
		return m.transitionSettlement(c)
	case DeleteSettlement:
		return m.deleteSettlement(c.ID)

	case AddReminder:
		return m.addReminder(c.Reminder)
	case UpdateReminder:
		return m.updateReminder(c.Reminder)
	case DeleteReminder:
		return m.deleteReminder(c.ID)

	case AddCategory:
		return m.addCategory(c.Category)
	case UpdateCategory:
		return m.updateCategory(c.Category)
	case DeleteCategory:
		return m.deleteCategory(c.ID)

	case SetCurrentUser:
		return m.setCurrentUser(c.UserID)
	case UpdateSettings:
		return m.updateSettings(c.Settings)
	case Restore:
		restored := c.Snapshot.Clone().Normalize()
		if err := checkRestored(restored.Expenses); err != nil {
			return err
		}

		*m.snap = restored

		return nil
	}

	return ledger.Invalid("kind", fmt.Sprintf("unknown command %q", cmd.Kind()))
}

// record prepends an activity entry and drops the oldest ones beyond the cap.
func (m *mutation) record(kind ledger.ActivityKind, entityID, actorID, description string) {
	if actorID == "" {
		actorID = m.snap.CurrentUser
	}

	entry := ledger.Activity{
		ID:          m.newID(),
		Kind:        kind,
		EntityID:    entityID,
		ActorID:     actorID,
		Description: description,
		CreatedAt:   m.now,
	}

	feed := make([]ledger.Activity, 0, min(len(m.snap.ActivityFeed)+1, ledger.MaxActivities))
	feed = append(feed, entry)
	feed = append(feed, m.snap.ActivityFeed[:min(len(m.snap.ActivityFeed), ledger.MaxActivities-1)]...)
	m.snap.ActivityFeed = feed
}

// assignID fills an empty id, or rejects one that is already taken.
func (m *mutation) assignID(kind, id string, taken func(string) bool) (string, error) {
	if id == "" {
		return m.newID(), nil
	}

	if taken(id) {
		return "", ledger.Invalid("id", fmt.Sprintf("%s %q already exists", kind, id))
	}

	return id, nil
}

func (m *mutation) currency(c string) string {
	if c != "" {
		return c
	}

	if m.snap.Settings.DefaultCurrency != "" {
		return m.snap.Settings.DefaultCurrency
	}

	return ledger.DefaultCurrency
}

func indexByID[T any](items []T, id string, idOf func(T) string) int {
	return slices.IndexFunc(items, func(item T) bool { return idOf(item) == id })
}

// remove deletes the item with id, or returns a NotFoundError.
func remove[T any](items []T, kind, id string, idOf func(T) string) ([]T, error) {
	i := indexByID(items, id, idOf)
	if i < 0 {
		return items, ledger.NotFound(kind, id)
	}

	return slices.Delete(items, i, i+1), nil
}

func hasDuplicates(ids []string) (string, bool) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return id, true
		}

		seen[id] = true
	}

	return "", false
}
