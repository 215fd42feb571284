package settlement

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/kinshukkush/smartsplit/internal/ledger"
)

// Transfer is one payment of the minimal covering.
type Transfer struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// Optimize nets the balances of exactly userIDs and returns the minimal set of
// suggested settlements that clears them. No threshold applies and no expense
// provenance is attached.
func Optimize(snap ledger.Snapshot, userIDs []string, opts Options) []ledger.Settlement {
	opts = opts.withDefaults()
	transfers := OptimizeBalances(netBalances(snap, userIDs))

	settlements := make([]ledger.Settlement, len(transfers))
	for i, t := range transfers {
		settlements[i] = newSettlement(opts, snap.Settings.DefaultCurrency, t.From, t.To, t.Amount, nil)
	}

	return settlements
}

// OptimizeBalances runs the greedy debt simplification over balances.
// Creditors are taken largest first and debtors most negative first, ties in
// input order. Each step pays min(credit, |debt|) and moves past whichever side
// reached zero. For K non-zero balances at most K-1 transfers are returned and
// nobody pays or receives more than their balance.
func OptimizeBalances(balances []Balance) []Transfer {
	var creditors, debtors []Balance

	for _, b := range balances {
		switch {
		case b.Amount.IsPositive():
			creditors = append(creditors, b)
		case b.Amount.IsNegative():
			debtors = append(debtors, Balance{UserID: b.UserID, Amount: b.Amount.Abs()})
		}
	}

	byAmountDesc := func(a, b Balance) int {
		return b.Amount.Cmp(a.Amount)
	}

	slices.SortStableFunc(creditors, byAmountDesc)
	slices.SortStableFunc(debtors, byAmountDesc)

	transfers := []Transfer{}
	i, j := 0, 0

	for i < len(creditors) && j < len(debtors) {
		amount := decimal.Min(creditors[i].Amount, debtors[j].Amount)

		transfers = append(transfers, Transfer{
			From:   debtors[j].UserID,
			To:     creditors[i].UserID,
			Amount: amount,
		})

		creditors[i].Amount = creditors[i].Amount.Sub(amount)
		debtors[j].Amount = debtors[j].Amount.Sub(amount)

		if creditors[i].Amount.IsZero() {
			i++
		}

		if debtors[j].Amount.IsZero() {
			j++
		}
	}

	return transfers
}
