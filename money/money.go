// Package money defines currency-tagged, non-negative decimal amounts and
// directional exchange rates between two currencies.
//
// Money values are only comparable or combinable when their currencies
// match; every operation that would cross currencies fails with
// faults.ErrInvalidInput. Currency codes are normalised to upper case on
// construction and validated to be 3-12 ASCII letters.
//
// Errors:
//
//	ErrEmptyCurrency      - currency code is empty.
//	ErrBadCurrencyFormat  - currency code is not 3-12 ASCII letters.
//	ErrNegativeAmount     - a Money amount is negative.
//	ErrCurrencyMismatch   - an operation combined two different currencies.
//	ErrZeroRate           - an ExchangeRate was constructed with a zero rate.
package money

import (
	"fmt"

	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/faults"
)

var (
	// ErrEmptyCurrency indicates an empty currency code.
	ErrEmptyCurrency = fmt.Errorf("%w: money: currency is empty", faults.ErrInvalidInput)

	// ErrBadCurrencyFormat indicates a currency code outside 3-12 ASCII letters.
	ErrBadCurrencyFormat = fmt.Errorf("%w: money: currency must be 3-12 ASCII letters", faults.ErrInvalidInput)

	// ErrNegativeAmount indicates a Money amount below zero.
	ErrNegativeAmount = fmt.Errorf("%w: money: amount is negative", faults.ErrInvalidInput)

	// ErrCurrencyMismatch indicates two Money values of different currencies
	// were combined.
	ErrCurrencyMismatch = fmt.Errorf("%w: money: currency mismatch", faults.ErrInvalidInput)

	// ErrZeroRate indicates an ExchangeRate was constructed with a zero rate.
	ErrZeroRate = fmt.Errorf("%w: money: rate is zero", faults.ErrInvalidInput)
)

// NormalizeCurrency upper-cases and validates a currency code: 3-12 ASCII
// letters, non-empty.
func NormalizeCurrency(code string) (string, error) {
	if code == "" {
		return "", ErrEmptyCurrency
	}
	if len(code) < 3 || len(code) > 12 {
		return "", fmt.Errorf("%w: got %q", ErrBadCurrencyFormat, code)
	}
	out := make([]byte, len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = c - ('a' - 'A')
		case c >= 'A' && c <= 'Z':
			out[i] = c
		default:
			return "", fmt.Errorf("%w: got %q", ErrBadCurrencyFormat, code)
		}
	}

	return string(out), nil
}

// Money is a non-negative Decimal amount tagged with a currency.
type Money struct {
	currency string
	amount   decimal.Decimal
}

// New constructs a Money value. Returns ErrBadCurrencyFormat for an invalid
// currency code, ErrNegativeAmount if amount.Sign() < 0.
func New(currency string, amount decimal.Decimal) (Money, error) {
	cur, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	if amount.Sign() < 0 {
		return Money{}, fmt.Errorf("%w: %s %s", ErrNegativeAmount, currency, amount.String())
	}

	return Money{currency: cur, amount: amount}, nil
}

// Currency returns the normalised (upper-case) currency code.
func (m Money) Currency() string { return m.currency }

// Amount returns the underlying Decimal.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Scale returns the scale of the underlying amount.
func (m Money) Scale() int { return m.amount.Scale() }

// String renders "<currency> <amount>".
func (m Money) String() string { return m.currency + " " + m.amount.String() }

// sameCurrency checks two Money values share a currency, returning a
// contextualised ErrCurrencyMismatch otherwise.
func sameCurrency(a, b Money) error {
	if a.currency != b.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.currency, b.currency)
	}

	return nil
}

// Add returns a + b at outScale (pass -1 for max of operand scales). Fails
// with ErrCurrencyMismatch if currencies differ.
func (a Money) Add(b Money, outScale int) (Money, error) {
	if err := sameCurrency(a, b); err != nil {
		return Money{}, err
	}
	sum, err := a.amount.Add(b.amount, outScale)
	if err != nil {
		return Money{}, err
	}

	return Money{currency: a.currency, amount: sum}, nil
}

// Sub returns a - b at outScale (pass -1 for max of operand scales). Fails
// with ErrCurrencyMismatch if currencies differ, or ErrNegativeAmount if the
// result would be negative (Money invariant: amount >= 0).
func (a Money) Sub(b Money, outScale int) (Money, error) {
	if err := sameCurrency(a, b); err != nil {
		return Money{}, err
	}
	diff, err := a.amount.Sub(b.amount, outScale)
	if err != nil {
		return Money{}, err
	}
	if diff.Sign() < 0 {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrNegativeAmount, a.String(), b.String())
	}

	return Money{currency: a.currency, amount: diff}, nil
}

// Compare compares a and b at scale max(a.Scale(), b.Scale(), scale).
// Fails with ErrCurrencyMismatch if currencies differ.
func Compare(a, b Money, scale int) (int, error) {
	if err := sameCurrency(a, b); err != nil {
		return 0, err
	}

	return decimal.Compare(a.amount, b.amount, scale), nil
}

// Min returns whichever of a, b compares smaller (a on ties).
func Min(a, b Money) (Money, error) {
	c, err := Compare(a, b, -1)
	if err != nil {
		return Money{}, err
	}
	if c <= 0 {
		return a, nil
	}

	return b, nil
}

// Max returns whichever of a, b compares larger (a on ties).
func Max(a, b Money) (Money, error) {
	c, err := Compare(a, b, -1)
	if err != nil {
		return Money{}, err
	}
	if c >= 0 {
		return a, nil
	}

	return b, nil
}

// ExchangeRate converts Money(Base, x) to Money(Quote, x*rate).
type ExchangeRate struct {
	Base  string
	Quote string
	rate  decimal.Decimal
	scale int
}

// NewRate constructs an ExchangeRate. Returns ErrBadCurrencyFormat for
// invalid currency codes and ErrZeroRate if rate is zero.
func NewRate(base, quote string, rate decimal.Decimal) (ExchangeRate, error) {
	b, err := NormalizeCurrency(base)
	if err != nil {
		return ExchangeRate{}, err
	}
	q, err := NormalizeCurrency(quote)
	if err != nil {
		return ExchangeRate{}, err
	}
	if rate.IsZero() {
		return ExchangeRate{}, ErrZeroRate
	}
	if rate.Sign() < 0 {
		return ExchangeRate{}, fmt.Errorf("%w: rate: %s", ErrNegativeAmount, rate.String())
	}

	return ExchangeRate{Base: b, Quote: q, rate: rate, scale: rate.Scale()}, nil
}

// Rate returns the underlying Decimal rate.
func (r ExchangeRate) Rate() decimal.Decimal { return r.rate }

// Scale returns the scale the rate was constructed with.
func (r ExchangeRate) Scale() int { return r.scale }

// Convert maps Money(r.Base, x) to Money(r.Quote, x*rate) at output scale
// max(x.Scale(), r.Scale()). Fails with ErrCurrencyMismatch if m's currency
// is not r.Base.
func (r ExchangeRate) Convert(m Money) (Money, error) {
	if m.currency != r.Base {
		return Money{}, fmt.Errorf("%w: rate base %s vs money %s", ErrCurrencyMismatch, r.Base, m.currency)
	}
	outScale := m.amount.Scale()
	if r.scale > outScale {
		outScale = r.scale
	}
	converted, err := m.amount.Mul(r.rate, outScale)
	if err != nil {
		return Money{}, err
	}

	return Money{currency: r.Quote, amount: converted}, nil
}

// Invert returns the reciprocal rate (Quote->Base), computed as 1/rate
// rounded at scale+1 guard digits before a final rescale to r.Scale().
func (r ExchangeRate) Invert() (ExchangeRate, error) {
	one, err := decimal.FromInt(1, r.scale+1)
	if err != nil {
		return ExchangeRate{}, err
	}
	inv, err := one.Div(r.rate, r.scale+1)
	if err != nil {
		return ExchangeRate{}, err
	}
	rescaled, err := inv.ToScale(r.scale)
	if err != nil {
		return ExchangeRate{}, err
	}
	if rescaled.IsZero() {
		return ExchangeRate{}, fmt.Errorf("%w: inversion of %s underflowed to zero at scale %d", ErrZeroRate, r.rate.String(), r.scale)
	}

	return ExchangeRate{Base: r.Quote, Quote: r.Base, rate: rescaled, scale: r.scale}, nil
}
