package balance_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kinshukkush/smartsplit/internal/balance"
	"github.com/kinshukkush/smartsplit/internal/ledger"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func participant(userID, net string, settled bool) ledger.Participant {
	n := d(net)
	owed := decimal.Zero
	if n.IsNegative() {
		owed = n.Abs()
	}

	return ledger.Participant{
		UserID:     userID,
		OwedAmount: owed,
		PaidAmount: n.Add(owed),
		NetAmount:  n,
		Settled:    settled,
	}
}

func fixture() []ledger.Expense {
	return []ledger.Expense{
		{
			ID:   "dinner",
			Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Participants: []ledger.Participant{
				participant("alice", "60", false),
				participant("bob", "-30", false),
				participant("carol", "-30", false),
			},
		},
		{
			ID:   "taxi",
			Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			Participants: []ledger.Participant{
				participant("bob", "10", false),
				participant("alice", "-10", false),
			},
		},
		{
			ID:      "old",
			Date:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Settled: true,
			Participants: []ledger.Participant{
				participant("alice", "-40", true),
				participant("carol", "40", true),
			},
		},
		{
			ID:   "movies",
			Date: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			Participants: []ledger.Participant{
				participant("dave", "-5", false),
				participant("erin", "5", false),
			},
		},
	}
}

func TestCalculate(t *testing.T) {
	latest := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	type testCase struct {
		name      string
		userID    string
		wantOwed  string
		wantOwing string
		wantNet   string
		wantCount int
	}

	tests := []testCase{
		{name: "Creditor", userID: "alice", wantOwed: "60", wantOwing: "10", wantNet: "50", wantCount: 2},
		{name: "Mixed", userID: "bob", wantOwed: "10", wantOwing: "30", wantNet: "-20", wantCount: 2},
		{name: "SettledEntriesIgnored", userID: "carol", wantOwed: "0", wantOwing: "30", wantNet: "-30", wantCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := balance.Calculate(fixture(), tt.userID)

			assert.Equal(t, tt.userID, got.UserID)
			assert.True(t, got.TotalOwed.Equal(d(tt.wantOwed)), "owed %s", got.TotalOwed)
			assert.True(t, got.TotalOwing.Equal(d(tt.wantOwing)), "owing %s", got.TotalOwing)
			assert.True(t, got.NetAmount.Equal(d(tt.wantNet)), "net %s", got.NetAmount)
			assert.Equal(t, tt.wantCount, got.ExpenseCount)
			// Latest date over every expense, including ones the user is not in.
			assert.Equal(t, latest, got.LastActivity)
		})
	}
}

func TestCalculate_UnknownUser(t *testing.T) {
	got := balance.Calculate(fixture(), "zed")

	assert.Equal(t, balance.Zero("zed"), got)
	assert.True(t, got.LastActivity.IsZero())

	_, err := balance.Lookup(fixture(), "zed")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrNotFound))
}

func TestCalculate_Idempotent(t *testing.T) {
	expenses := fixture()

	assert.Equal(t, balance.Calculate(expenses, "alice"), balance.Calculate(expenses, "alice"))
}

func TestCalculateAll_MatchesCalculate(t *testing.T) {
	expenses := fixture()
	all := balance.CalculateAll(expenses)

	require.Len(t, all, 5)

	for id, summary := range all {
		assert.Equal(t, balance.Calculate(expenses, id), summary, id)
	}
}

func TestCalculateAll_DuplicateEntries(t *testing.T) {
	expenses := []ledger.Expense{{
		ID:   "dup",
		Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Participants: []ledger.Participant{
			participant("A", "20", false),
			participant("B", "-10", false),
			participant("A", "-10", false),
		},
	}}

	all := balance.CalculateAll(expenses)

	require.Len(t, all, 2)
	assert.True(t, all["A"].NetAmount.Equal(d("20")), "only the first entry counts")
	assert.Equal(t, 1, all["A"].ExpenseCount)
	assert.Equal(t, balance.Calculate(expenses, "A"), all["A"])
}

func TestCalculateAll_MatchesCalculateProperty(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "expenses")
		expenses := make([]ledger.Expense, n)

		for i := range expenses {
			day := rapid.IntRange(1, 28).Draw(t, "day")
			expenses[i].Date = time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)

			for _, id := range ids {
				if !rapid.Bool().Draw(t, "in") {
					continue
				}

				net := decimal.New(rapid.Int64Range(-10_000, 10_000).Draw(t, "net"), -2)
				expenses[i].Participants = append(expenses[i].Participants, ledger.Participant{
					UserID:    id,
					NetAmount: net,
					Settled:   rapid.Bool().Draw(t, "settled"),
				})
			}
		}

		all := balance.CalculateAll(expenses)
		for _, id := range ids {
			want := balance.Calculate(expenses, id)

			got, ok := all[id]
			if !ok {
				got = balance.Zero(id)
			}

			if !got.NetAmount.Equal(want.NetAmount) || got.ExpenseCount != want.ExpenseCount ||
				!got.TotalOwed.Equal(want.TotalOwed) || !got.TotalOwing.Equal(want.TotalOwing) ||
				(ok && !got.LastActivity.Equal(want.LastActivity)) {
				t.Fatalf("user %s: batch %+v, single %+v", id, got, want)
			}
		}
	})
}

func TestCalculateAll_NetsSumToZero(t *testing.T) {
	sum := decimal.Zero
	for _, s := range balance.CalculateAll(fixture()) {
		sum = sum.Add(s.NetAmount)
	}

	assert.True(t, sum.IsZero(), "sum of nets %s", sum)
}
