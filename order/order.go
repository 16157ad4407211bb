// Package order defines the directional Order type, its fixed-quantity
// bounds, and the pluggable fee-policy port the routing core invokes but
// never implements.
//
// An Order offers to convert between two assets within a [min, max]
// quantity band at a price, optionally adjusted by a FeePolicy. Identity is
// Go pointer identity (*Order as a map key) — the top-K driver's order
// exclusion set relies on this directly, matching the spec's "identity is
// object identity (address)".
//
// Errors:
//
//	ErrBadBounds       - bounds.Min > bounds.Max, or currencies disagree.
//	ErrWrongCurrency   - a fill amount's currency does not match the base asset.
//	ErrOutOfBounds     - a fill amount lies outside [bounds.Min, bounds.Max].
//	ErrSameAsset       - base and quote currency are identical.
//	ErrEmptyFingerprint - a FeePolicy.Fingerprint() returned the empty string.
package order

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/p2pflow/routefinder/faults"
	"github.com/p2pflow/routefinder/money"
)

var (
	// ErrBadBounds indicates bounds.Min > bounds.Max or mismatched currencies.
	ErrBadBounds = fmt.Errorf("%w: order: bad bounds", faults.ErrInvalidInput)

	// ErrWrongCurrency indicates a fill's currency does not match the order's base asset.
	ErrWrongCurrency = fmt.Errorf("%w: order: wrong currency", faults.ErrInvalidInput)

	// ErrOutOfBounds indicates a fill amount outside [bounds.Min, bounds.Max].
	ErrOutOfBounds = fmt.Errorf("%w: order: fill amount out of bounds", faults.ErrInvalidInput)

	// ErrSameAsset indicates an order whose base and quote currency are identical.
	ErrSameAsset = fmt.Errorf("%w: order: base and quote currency are identical", faults.ErrInvalidInput)

	// ErrEmptyFingerprint indicates a FeePolicy.Fingerprint() returned "".
	ErrEmptyFingerprint = fmt.Errorf("%w: order: fee policy fingerprint is empty", faults.ErrInvalidInput)
)

// Side is the direction of an Order: a BUY order spends the quote currency
// to acquire the base currency (the graph edge runs base->quote); a SELL
// order spends the base currency to acquire the quote currency (the graph
// edge runs quote->base).
type Side int

const (
	// BUY spends quote, acquires base; projects to a base->quote edge.
	BUY Side = iota
	// SELL spends base, acquires quote; projects to a quote->base edge.
	SELL
)

// String renders "BUY" or "SELL".
func (s Side) String() string {
	if s == BUY {
		return "BUY"
	}

	return "SELL"
}

// Bounds is a [Min, Max] band of fillable base-currency quantity, Min <= Max,
// both denominated in the same currency.
type Bounds struct {
	Min money.Money
	Max money.Money
}

// NewBounds validates and constructs a Bounds: Min and Max must share a
// currency and satisfy Min <= Max.
func NewBounds(min, max money.Money) (Bounds, error) {
	c, err := money.Compare(min, max, -1)
	if err != nil {
		return Bounds{}, fmt.Errorf("%w: %v", ErrBadBounds, err)
	}
	if c > 0 {
		return Bounds{}, fmt.Errorf("%w: min %s > max %s", ErrBadBounds, min.String(), max.String())
	}

	return Bounds{Min: min, Max: max}, nil
}

// FeeBreakdown is the result of applying a FeePolicy to one fill: a
// base-currency fee and/or a quote-currency fee, either of which may be
// absent (nil means "no fee in that currency", distinct from a zero-amount
// fee, though both render the same in a merged fee map).
type FeeBreakdown struct {
	BaseFee  *money.Money
	QuoteFee *money.Money
}

// IsZero reports whether both legs of the breakdown are absent or zero.
func (f FeeBreakdown) IsZero() bool {
	if f.BaseFee != nil && !f.BaseFee.Amount().IsZero() {
		return false
	}
	if f.QuoteFee != nil && !f.QuoteFee.Amount().IsZero() {
		return false
	}

	return true
}

// FeePolicy is a pluggable fee computation port. Implementations must be
// pure (same inputs always produce the same FeeBreakdown) and their
// Fingerprint must change whenever any rate-affecting parameter changes.
// Fingerprint must never return the empty string; graphbuilder rejects any
// edge whose policy does.
type FeePolicy interface {
	// Apply computes the fee for one fill of baseAmt base currency yielding
	// quoteAmt quote currency (pre-fee) on the given Side.
	Apply(side Side, baseAmt, quoteAmt money.Money) (FeeBreakdown, error)

	// Fingerprint is a non-empty stable string uniquely identifying this
	// policy and its parameters; it participates in edge ordering and
	// search-state signature equality.
	Fingerprint() string
}

// RateAdjuster is an optional capability a FeePolicy may implement to
// express its effect directly as a rate adjustment (e.g. a pure
// percentage fee folds cleanly into the rate). Order.EffectiveRate uses
// this when present; otherwise it falls back to the order's nominal rate.
type RateAdjuster interface {
	AdjustRate(rate money.ExchangeRate) (money.ExchangeRate, error)
}

// GrossInverter is an optional FeePolicy capability for computing the
// gross base amount that, after the policy's base fee is deducted, nets to
// a target base amount. graphbuilder uses this to derive an edge's
// grossBaseCapacity; a policy that does not implement it is treated as
// charging no base fee for that purpose (gross == net).
type GrossInverter interface {
	InvertBaseFee(netBase money.Money) (money.Money, error)
}

// Order is a one-directional offer to convert between two assets within a
// quantity band at a price, with an optional fee policy.
type Order struct {
	// ID is a diagnostic identifier distinct from identity: top-K exclusion
	// and search-state signatures key on the *Order pointer, never on ID.
	ID string

	Side      Side
	Base      string
	Quote     string
	Bounds    Bounds
	Rate      money.ExchangeRate
	FeePolicy FeePolicy // nil means no fee
}

// New constructs an Order, generating a fresh diagnostic ID. Validates that
// Base != Quote, Rate.Base/Rate.Quote match Base/Quote, and bounds currency
// matches Base.
func New(side Side, base, quote string, bounds Bounds, rate money.ExchangeRate, policy FeePolicy) (*Order, error) {
	b, err := money.NormalizeCurrency(base)
	if err != nil {
		return nil, err
	}
	q, err := money.NormalizeCurrency(quote)
	if err != nil {
		return nil, err
	}
	if b == q {
		return nil, fmt.Errorf("%w: %s", ErrSameAsset, b)
	}
	if rate.Base != b || rate.Quote != q {
		return nil, fmt.Errorf("%w: rate %s->%s does not match order %s->%s", ErrBadBounds, rate.Base, rate.Quote, b, q)
	}
	if bounds.Min.Currency() != b {
		return nil, fmt.Errorf("%w: bounds currency %s does not match base %s", ErrWrongCurrency, bounds.Min.Currency(), b)
	}
	if policy != nil && policy.Fingerprint() == "" {
		return nil, ErrEmptyFingerprint
	}

	return &Order{
		ID:        uuid.NewString(),
		Side:      side,
		Base:      b,
		Quote:     q,
		Bounds:    bounds,
		Rate:      rate,
		FeePolicy: policy,
	}, nil
}

// FeeFingerprint returns the order's fee-policy fingerprint, or "" if it has
// no fee policy. An empty fingerprint from a present, non-nil policy is a
// construction-time error (see New); this method never itself validates.
func (o *Order) FeeFingerprint() string {
	if o.FeePolicy == nil {
		return ""
	}

	return o.FeePolicy.Fingerprint()
}

// EffectiveRate returns the rate adjusted for the fee policy when the
// policy implements RateAdjuster; otherwise returns the order's nominal
// Rate unchanged.
func (o *Order) EffectiveRate() (money.ExchangeRate, error) {
	if o.FeePolicy == nil {
		return o.Rate, nil
	}
	adjuster, ok := o.FeePolicy.(RateAdjuster)
	if !ok {
		return o.Rate, nil
	}

	return adjuster.AdjustRate(o.Rate)
}

// CalculateQuoteAmount converts a base-currency fill to quote currency at
// the order's nominal rate, ignoring fees.
func (o *Order) CalculateQuoteAmount(base money.Money) (money.Money, error) {
	if base.Currency() != o.Base {
		return money.Money{}, fmt.Errorf("%w: got %s, want %s", ErrWrongCurrency, base.Currency(), o.Base)
	}

	return o.Rate.Convert(base)
}

// CalculateEffectiveQuoteAmount converts a base-currency fill to quote
// currency with the fee policy applied: for BUY orders a quote-fee
// increases the quote amount payable; for SELL orders a quote-fee reduces
// the quote amount delivered. A base-fee symmetrically adjusts the base
// amount actually transacted, folded into the returned FeeBreakdown rather
// than the returned Money (callers apply it to base receipts themselves).
func (o *Order) CalculateEffectiveQuoteAmount(base money.Money) (money.Money, FeeBreakdown, error) {
	quote, err := o.CalculateQuoteAmount(base)
	if err != nil {
		return money.Money{}, FeeBreakdown{}, err
	}
	if o.FeePolicy == nil {
		return quote, FeeBreakdown{}, nil
	}
	fees, err := o.FeePolicy.Apply(o.Side, base, quote)
	if err != nil {
		return money.Money{}, FeeBreakdown{}, err
	}
	if fees.QuoteFee == nil {
		return quote, fees, nil
	}

	switch o.Side {
	case BUY:
		adjusted, err := quote.Add(*fees.QuoteFee, -1)
		if err != nil {
			return money.Money{}, FeeBreakdown{}, err
		}

		return adjusted, fees, nil
	default: // SELL
		adjusted, err := quote.Sub(*fees.QuoteFee, -1)
		if err != nil {
			return money.Money{}, FeeBreakdown{}, err
		}

		return adjusted, fees, nil
	}
}

// ValidatePartialFill checks that fill is denominated in the order's base
// currency and lies within [Bounds.Min, Bounds.Max] inclusive.
func (o *Order) ValidatePartialFill(fill money.Money) error {
	if fill.Currency() != o.Base {
		return fmt.Errorf("%w: got %s, want %s", ErrWrongCurrency, fill.Currency(), o.Base)
	}
	belowMin, err := money.Compare(fill, o.Bounds.Min, -1)
	if err != nil {
		return err
	}
	aboveMax, err := money.Compare(fill, o.Bounds.Max, -1)
	if err != nil {
		return err
	}
	if belowMin < 0 || aboveMax > 0 {
		return fmt.Errorf("%w: %s not within [%s, %s]", ErrOutOfBounds, fill.String(), o.Bounds.Min.String(), o.Bounds.Max.String())
	}

	return nil
}
