// Package split divides an expense total among its participants.
package split

import (
	"github.com/shopspring/decimal"

	"github.com/kinshukkush/smartsplit/internal/ledger"
)

var (
	hundred = decimal.NewFromInt(100)
	// exactTolerance is the money-rounding slack allowed for exact splits.
	exactTolerance = decimal.New(1, -2)
)

// Declaration is one participant's split input.
type Declaration struct {
	UserID     string
	SplitType  ledger.SplitPolicy
	SplitValue *decimal.Decimal
}

// Compute returns each participant's owed amount for total under policy.
// Every returned participant has NetAmount = -OwedAmount and a zero PaidAmount;
// reconciling who paid is left to the caller.
func Compute(total decimal.Decimal, decls []Declaration, policy ledger.SplitPolicy) ([]ledger.Participant, error) {
	if !total.IsPositive() {
		return nil, ledger.Invalid("totalAmount", "total amount must be positive")
	}

	if len(decls) == 0 {
		return nil, ledger.Invalid("participants", "at least one participant is required")
	}

	var (
		owed []decimal.Decimal
		err  error
	)

	switch policy {
	case ledger.SplitEqual:
		owed = equal(total, len(decls))
	case ledger.SplitPercentage:
		owed, err = percentage(total, decls)
	case ledger.SplitExact:
		owed, err = exact(total, decls)
	case ledger.SplitShares:
		owed, err = shares(total, decls)
	case ledger.SplitItemized:
		return nil, ledger.Invalid("splitPolicy", "itemized splits are not computed; supply owed amounts directly")
	default:
		return nil, ledger.Invalid("splitPolicy", "unknown split policy "+string(policy))
	}

	if err != nil {
		return nil, err
	}

	participants := make([]ledger.Participant, len(decls))
	for i, d := range decls {
		splitType := d.SplitType
		if splitType == "" {
			splitType = policy
		}

		participants[i] = ledger.Participant{
			UserID:     d.UserID,
			OwedAmount: owed[i],
			PaidAmount: decimal.Zero,
			NetAmount:  owed[i].Neg(),
			SplitType:  splitType,
			SplitValue: d.SplitValue,
		}
	}

	return participants, nil
}

func equal(total decimal.Decimal, n int) []decimal.Decimal {
	each := total.Div(decimal.NewFromInt(int64(n)))

	owed := make([]decimal.Decimal, n)
	for i := range owed {
		owed[i] = each
	}

	return owed
}

func percentage(total decimal.Decimal, decls []Declaration) ([]decimal.Decimal, error) {
	sum := decimal.Zero
	for _, d := range decls {
		sum = sum.Add(valueOr(d.SplitValue, decimal.Zero))
	}

	if !sum.Equal(hundred) {
		return nil, ledger.Invalid("", "percentages must sum to 100")
	}

	owed := make([]decimal.Decimal, len(decls))
	for i, d := range decls {
		owed[i] = total.Mul(valueOr(d.SplitValue, decimal.Zero)).Div(hundred)
	}

	return owed, nil
}

func exact(total decimal.Decimal, decls []Declaration) ([]decimal.Decimal, error) {
	sum := decimal.Zero
	owed := make([]decimal.Decimal, len(decls))

	for i, d := range decls {
		owed[i] = valueOr(d.SplitValue, decimal.Zero)
		sum = sum.Add(owed[i])
	}

	if sum.Sub(total).Abs().GreaterThan(exactTolerance) {
		return nil, ledger.Invalid("", "exact amounts must equal total")
	}

	return owed, nil
}

func shares(total decimal.Decimal, decls []Declaration) ([]decimal.Decimal, error) {
	one := decimal.NewFromInt(1)
	sum := decimal.Zero

	for _, d := range decls {
		v := valueOr(d.SplitValue, one)
		if v.IsNegative() {
			return nil, ledger.Invalid("splitValue", "shares cannot be negative")
		}

		sum = sum.Add(v)
	}

	if !sum.IsPositive() {
		return nil, ledger.Invalid("splitValue", "shares must sum to a positive number")
	}

	owed := make([]decimal.Decimal, len(decls))
	for i, d := range decls {
		owed[i] = total.Mul(valueOr(d.SplitValue, one)).Div(sum)
	}

	return owed, nil
}

func valueOr(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v == nil {
		return fallback
	}

	return *v
}
