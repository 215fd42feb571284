// Package export renders the ledger in formats meant for people and other
// tools: a dated JSON document, a CSV of expenses and a plain-text settlement
// summary.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kinshukkush/smartsplit/internal/ledger"
)

// Range bounds an export. A zero Start or End leaves that side open. Both
// bounds are inclusive.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}

	if !r.End.IsZero() && t.After(r.End) {
		return false
	}

	return true
}

// Document is the JSON export.
type Document struct {
	ledger.Snapshot
	ExportedAt time.Time `json:"exportedAt"`
}

// JSON restricts snap to r. Expenses and payments are filtered by date;
// settlements, reminders and activities by creation time. Users, groups,
// categories and settings are kept whole.
func JSON(snap ledger.Snapshot, r Range, now time.Time) Document {
	out := snap.Clone().Normalize()

	out.Expenses = filter(out.Expenses, func(e ledger.Expense) time.Time { return e.Date }, r)
	out.Payments = filter(out.Payments, func(p ledger.Payment) time.Time { return p.Date }, r)
	out.Settlements = filter(out.Settlements, func(s ledger.Settlement) time.Time { return s.CreatedAt }, r)
	out.Reminders = filter(out.Reminders, func(m ledger.Reminder) time.Time { return m.CreatedAt }, r)
	out.ActivityFeed = filter(out.ActivityFeed, func(a ledger.Activity) time.Time { return a.CreatedAt }, r)

	return Document{Snapshot: out, ExportedAt: now}
}

var csvHeader = []string{"Date", "Title", "Amount", "Currency", "Category", "Paid By", "Participants", "Settled"}

// CSV writes one row per expense in r.
func CSV(w io.Writer, snap ledger.Snapshot, r Range) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, e := range snap.Expenses {
		if !r.Contains(e.Date) {
			continue
		}

		if err := cw.Write(expenseRow(snap, e)); err != nil {
			return fmt.Errorf("writing expense %s: %w", e.ID, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	return nil
}

func expenseRow(snap ledger.Snapshot, e ledger.Expense) []string {
	category := ""
	if c, ok := snap.Category(e.CategoryID); ok {
		category = c.Name
	}

	payers := make([]string, 0, len(e.PaidBy))
	for _, id := range e.PaidBy {
		payers = append(payers, snap.UserName(id))
	}

	// Payers outside the split are already named in Paid By.
	participants := make([]string, 0, len(e.Participants))
	for _, p := range e.Participants {
		if p.PayerOnly() {
			continue
		}

		participants = append(participants, snap.UserName(p.UserID))
	}

	currency := e.Currency
	if currency == "" {
		currency = snap.Settings.DefaultCurrency
	}

	return []string{
		e.Date.Format(time.DateOnly),
		e.Title,
		e.TotalAmount.StringFixed(2),
		currency,
		category,
		strings.Join(payers, ";"),
		strings.Join(participants, ";"),
		yesNo(e.Settled),
	}
}

// SettlementSummary renders settlements as one shareable line each.
func SettlementSummary(snap ledger.Snapshot, settlements []ledger.Settlement) string {
	var sb strings.Builder

	for _, s := range settlements {
		fmt.Fprintf(&sb, "* %s → %s | %s %s | %s\n",
			snap.UserName(s.FromUserID),
			snap.UserName(s.ToUserID),
			s.Amount.StringFixed(2),
			s.Currency,
			s.Status,
		)
	}

	return sb.String()
}

func filter[T any](items []T, at func(T) time.Time, r Range) []T {
	out := make([]T, 0, len(items))

	for _, item := range items {
		if r.Contains(at(item)) {
			out = append(out, item)
		}
	}

	return out
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}

	return "No"
}
