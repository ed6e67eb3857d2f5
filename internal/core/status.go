package core

import "github.com/shopspring/decimal"

type Status string

const (
	StatusWithin   Status = "within"
	StatusClose    Status = "close"
	StatusOver     Status = "over"
	StatusNoBudget Status = "no-budget"
)

var (
	closeRatio = decimal.RequireFromString("0.8")
	overRatio  = decimal.NewFromInt(1)
)

// StatusFor classifies spent against limit. A nil or non-positive limit
// means no budget. The ratio is compared exactly: below 0.8 is within,
// below 1.0 is close, anything else is over.
func StatusFor(spent Money, limit *Money) Status {
	if limit == nil || !limit.IsPositive() {
		return StatusNoBudget
	}
	spentD := spent.Decimal()
	limitD := limit.Decimal()
	switch {
	case spentD.LessThan(limitD.Mul(closeRatio)):
		return StatusWithin
	case spentD.LessThan(limitD.Mul(overRatio)):
		return StatusClose
	default:
		return StatusOver
	}
}
