package split

import (
	"github.com/shopspring/decimal"

	"github.com/kinshukkush/smartsplit/internal/ledger"
)

// Item is a single line item of an itemized expense.
type Item struct {
	Description string
	Amount      decimal.Decimal
	AssignedTo  []string
}

// Share is one person's portion of an itemized expense.
type Share struct {
	Subtotal decimal.Decimal
	Extra    decimal.Decimal // proportional tax and tip
	Total    decimal.Decimal
}

// Itemize computes owed amounts for an itemized expense: each item is divided
// equally among the users it is assigned to, and tax + tip are distributed in
// proportion to each participant's subtotal:
//
//	share = subtotal × (1 + (tax + tip) / base)
//
// Items assigned to nobody, or only to users outside participants, are not
// billed to anyone. The result can be fed to an itemized expense as owed amounts.
func Itemize(items []Item, base, tax, tip decimal.Decimal, participants []string) (map[string]Share, error) {
	if !base.IsPositive() {
		return nil, ledger.Invalid("baseAmount", "base amount must be positive")
	}

	if len(participants) == 0 {
		return nil, ledger.Invalid("participants", "at least one participant is required")
	}

	shares := make(map[string]Share, len(participants))
	for _, p := range participants {
		shares[p] = Share{}
	}

	for _, item := range items {
		if len(item.AssignedTo) == 0 {
			continue
		}

		perPerson := item.Amount.Div(decimal.NewFromInt(int64(len(item.AssignedTo))))
		for _, person := range item.AssignedTo {
			s, ok := shares[person]
			if !ok {
				continue
			}

			s.Subtotal = s.Subtotal.Add(perPerson)
			shares[person] = s
		}
	}

	rate := tax.Add(tip).Div(base)
	for person, s := range shares {
		s.Extra = s.Subtotal.Mul(rate)
		s.Total = s.Subtotal.Add(s.Extra)
		shares[person] = s
	}

	return shares, nil
}
