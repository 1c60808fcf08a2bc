package logistics

import "github.com/shopspring/decimal"

var (
	DefaultSharePercent = decimal.NewFromInt(50)
	DefaultCapPercent   = decimal.NewFromInt(20)
)

// FeeSharingPolicy is a storefront's offer to fund part of the delivery fee.
type FeeSharingPolicy struct {
	Enabled      bool
	SharePercent decimal.NullDecimal
	CapPercent   decimal.NullDecimal
}

// Rates returns the effective share and cap, falling back to the defaults.
func (p FeeSharingPolicy) Rates() (share, capPercent decimal.Decimal) {
	share, capPercent = DefaultSharePercent, DefaultCapPercent
	if p.SharePercent.Valid {
		share = p.SharePercent.Decimal
	}
	if p.CapPercent.Valid {
		capPercent = p.CapPercent.Decimal
	}
	return share, capPercent
}

// Participation is min(fee*share%, productTotal*cap%), clamped to [0, fee].
func Participation(fee, productTotal, sharePercent, capPercent decimal.Decimal) decimal.Decimal {
	if !fee.IsPositive() {
		return decimal.Zero
	}
	byShare := fee.Mul(sharePercent).Div(hundred)
	byCap := productTotal.Mul(capPercent).Div(hundred)
	p := decimal.Min(byShare, byCap).RoundDown(2)
	if p.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(p, fee)
}

// Apply returns the storefront participation and the fee left for the buyer.
func (p FeeSharingPolicy) Apply(fee, productTotal decimal.Decimal) (participation, finalFee decimal.Decimal) {
	if !p.Enabled {
		return decimal.Zero, fee
	}
	share, capPercent := p.Rates()
	participation = Participation(fee, productTotal, share, capPercent)
	return participation, fee.Sub(participation)
}
