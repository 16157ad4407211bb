package order

import (
	"fmt"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/money"
)

// PercentFeePolicy charges a fixed percentage of the base amount as a
// base-currency fee and a fixed percentage of the quote amount as a
// quote-currency fee. Either rate may be the zero Decimal to disable that
// leg. This is the reference FeePolicy implementation used by this
// module's tests; production callers are free to supply their own.
type PercentFeePolicy struct {
	BaseFeeRate  decimal.Decimal // e.g. 0.05 for 5%
	QuoteFeeRate decimal.Decimal // e.g. 0.02 for 2%
}

var _ FeePolicy = PercentFeePolicy{}

// Apply computes BaseFee = baseAmt*BaseFeeRate and QuoteFee =
// quoteAmt*QuoteFeeRate, omitting a leg whose rate is zero.
func (p PercentFeePolicy) Apply(_ Side, baseAmt, quoteAmt money.Money) (FeeBreakdown, error) {
	var out FeeBreakdown
	if !p.BaseFeeRate.IsZero() {
		fee, err := baseAmt.Amount().Mul(p.BaseFeeRate, baseAmt.Scale())
		if err != nil {
			return FeeBreakdown{}, err
		}
		m, err := money.New(baseAmt.Currency(), fee)
		if err != nil {
			return FeeBreakdown{}, err
		}
		out.BaseFee = &m
	}
	if !p.QuoteFeeRate.IsZero() {
		fee, err := quoteAmt.Amount().Mul(p.QuoteFeeRate, quoteAmt.Scale())
		if err != nil {
			return FeeBreakdown{}, err
		}
		m, err := money.New(quoteAmt.Currency(), fee)
		if err != nil {
			return FeeBreakdown{}, err
		}
		out.QuoteFee = &m
	}

	return out, nil
}

// Fingerprint is "percent:<baseRate>:<quoteRate>", changing with either rate.
func (p PercentFeePolicy) Fingerprint() string {
	return fmt.Sprintf("percent:%s:%s", p.BaseFeeRate.String(), p.QuoteFeeRate.String())
}

var _ GrossInverter = PercentFeePolicy{}

// InvertBaseFee returns netBase / (1 - BaseFeeRate): the gross base amount
// that, once the percentage base fee is deducted, nets to netBase. Returns
// netBase unchanged when BaseFeeRate is zero.
func (p PercentFeePolicy) InvertBaseFee(netBase money.Money) (money.Money, error) {
	if p.BaseFeeRate.IsZero() {
		return netBase, nil
	}
	one, err := decimal.FromInt(1, netBase.Scale()+1)
	if err != nil {
		return money.Money{}, err
	}
	complement, err := one.Sub(p.BaseFeeRate, netBase.Scale()+1)
	if err != nil {
		return money.Money{}, err
	}
	if complement.Sign() <= 0 {
		return money.Money{}, fmt.Errorf("%w: base fee rate %s leaves no net capacity", ErrBadBounds, p.BaseFeeRate.String())
	}
	gross, err := netBase.Amount().Div(complement, netBase.Scale())
	if err != nil {
		return money.Money{}, err
	}

	return money.New(netBase.Currency(), gross)
}
