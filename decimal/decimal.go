// Package decimal provides fixed-scale decimal arithmetic with explicit
// output scales and HALF_UP rounding, matching the canonical-string and
// rounding contract every monetary computation in this module depends on.
//
// A Decimal pairs an arbitrary-precision coefficient (via
// github.com/shopspring/decimal) with a non-negative scale: the number of
// digits kept after the point in the canonical string form. Every arithmetic
// operation takes an explicit output scale and rounds HALF_UP to it — there
// is no implicit scale coercion anywhere in this package.
//
// Errors:
//
//	ErrNegativeScale  - a scale argument was negative.
//	ErrScaleTooLarge  - a scale argument exceeded MaxScale.
//	ErrMalformed      - a numeric string failed to parse.
//	ErrDivideByZero   - division or inversion by a zero divisor.
package decimal

import (
	"fmt"

	shopspring "github.com/shopspring/decimal"

	"github.com/p2pflow/routefinder/faults"
)

// MaxScale is the largest scale this package accepts anywhere. The spec
// requires MAX_SCALE >= 18; 18 is also the canonical internal scale used
// when no caller-supplied scale applies.
const MaxScale = 18

// CanonicalScale is the internal working scale used by components that do
// not otherwise have a caller-supplied output scale (e.g. intermediate
// dominance-comparison scale).
const CanonicalScale = 18

var (
	// ErrNegativeScale indicates a scale argument below zero.
	ErrNegativeScale = fmt.Errorf("%w: decimal: scale is negative", faults.ErrInvalidInput)

	// ErrScaleTooLarge indicates a scale argument above MaxScale.
	ErrScaleTooLarge = fmt.Errorf("%w: decimal: scale exceeds MaxScale", faults.ErrInvalidInput)

	// ErrMalformed indicates a numeric string that failed to parse.
	ErrMalformed = fmt.Errorf("%w: decimal: malformed numeric string", faults.ErrInvalidInput)

	// ErrDivideByZero indicates an attempted division or inversion by zero.
	ErrDivideByZero = fmt.Errorf("%w: decimal: division by zero", faults.ErrInvalidInput)
)

// Decimal is a signed arbitrary-precision value with an explicit scale.
//
// The zero value is not meaningful; construct via New, MustNew, FromInt, or
// Zero.
type Decimal struct {
	v     shopspring.Decimal
	scale int
}

// validateScale rejects any scale outside [0, MaxScale].
func validateScale(scale int) error {
	if scale < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeScale, scale)
	}
	if scale > MaxScale {
		return fmt.Errorf("%w: got %d, max %d", ErrScaleTooLarge, scale, MaxScale)
	}

	return nil
}

// New parses s as a base-10 number and rounds it HALF_UP to scale.
// Returns ErrMalformed if s is not a valid decimal string, and
// ErrNegativeScale/ErrScaleTooLarge if scale is out of range.
func New(s string, scale int) (Decimal, error) {
	if err := validateScale(scale); err != nil {
		return Decimal{}, err
	}
	raw, err := shopspring.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("%w: %q: %v", ErrMalformed, s, err)
	}

	return Decimal{v: raw.Round(int32(scale)), scale: scale}, nil
}

// MustNew is New but panics on error; intended for literals in tests and
// package-level constants, never for boundary input.
func MustNew(s string, scale int) Decimal {
	d, err := New(s, scale)
	if err != nil {
		panic(err)
	}

	return d
}

// FromInt builds a Decimal representing n whole units at the given scale.
func FromInt(n int64, scale int) (Decimal, error) {
	if err := validateScale(scale); err != nil {
		return Decimal{}, err
	}

	return Decimal{v: shopspring.NewFromInt(n), scale: scale}, nil
}

// Zero returns the zero value at the given scale.
func Zero(scale int) (Decimal, error) {
	if err := validateScale(scale); err != nil {
		return Decimal{}, err
	}

	return Decimal{v: shopspring.Zero, scale: scale}, nil
}

// Scale reports the number of fractional digits this Decimal canonically
// carries.
func (d Decimal) Scale() int { return d.scale }

// IsZero reports whether the value is exactly zero, regardless of scale.
func (d Decimal) IsZero() bool { return d.v.IsZero() }

// Sign returns -1, 0, or +1.
func (d Decimal) Sign() int { return d.v.Sign() }

// IsNegative reports whether the value is strictly less than zero.
func (d Decimal) IsNegative() bool { return d.v.IsNegative() }

// String renders the canonical form: a decimal point is present iff
// scale > 0, and the fractional part has exactly scale digits, zero-padded.
func (d Decimal) String() string {
	return d.v.StringFixed(int32(d.scale))
}

// ToScale rounds d to a new scale using HALF_UP (shopspring's "round half
// away from zero", which is HALF_UP for the non-negative values this module
// restricts itself to). ToScale is the rounding primitive offered to
// callers; every arithmetic operation in this package rounds its result the
// same way.
func (d Decimal) ToScale(scale int) (Decimal, error) {
	if err := validateScale(scale); err != nil {
		return Decimal{}, err
	}

	return Decimal{v: d.v.Round(int32(scale)), scale: scale}, nil
}

// outScale resolves the scale used to produce a binary op's result: the
// caller's requested scale, unless it is negative in which case the larger
// of the two operand scales is used (never below zero).
func outScale(requested, a, b int) int {
	if requested >= 0 {
		return requested
	}
	if a > b {
		return a
	}

	return b
}

// Add returns d + other, rounded HALF_UP to outScale (pass -1 to default to
// max(d.Scale(), other.Scale())).
func (d Decimal) Add(other Decimal, outScaleArg int) (Decimal, error) {
	s := outScale(outScaleArg, d.scale, other.scale)
	if err := validateScale(s); err != nil {
		return Decimal{}, err
	}

	return Decimal{v: d.v.Add(other.v).Round(int32(s)), scale: s}, nil
}

// Sub returns d - other, rounded HALF_UP to outScale (pass -1 to default to
// max(d.Scale(), other.Scale())).
func (d Decimal) Sub(other Decimal, outScaleArg int) (Decimal, error) {
	s := outScale(outScaleArg, d.scale, other.scale)
	if err := validateScale(s); err != nil {
		return Decimal{}, err
	}

	return Decimal{v: d.v.Sub(other.v).Round(int32(s)), scale: s}, nil
}

// Mul returns d * other, rounded HALF_UP to outScale (pass -1 to default to
// max(d.Scale(), other.Scale())).
func (d Decimal) Mul(other Decimal, outScaleArg int) (Decimal, error) {
	s := outScale(outScaleArg, d.scale, other.scale)
	if err := validateScale(s); err != nil {
		return Decimal{}, err
	}

	return Decimal{v: d.v.Mul(other.v).Round(int32(s)), scale: s}, nil
}

// Div returns d / other, rounded HALF_UP to outScale (pass -1 to default to
// max(d.Scale(), other.Scale())). Returns ErrDivideByZero when other is zero.
//
// Division first rounds the quotient to a guard scale of outScale+1 digits
// (at least MaxScale) before the final HALF_UP rescale, so chained
// divide-then-rescale operations (e.g. rate inversion) do not accumulate
// truncation error ahead of the caller's requested rounding.
func (d Decimal) Div(other Decimal, outScaleArg int) (Decimal, error) {
	if other.v.IsZero() {
		return Decimal{}, ErrDivideByZero
	}
	s := outScale(outScaleArg, d.scale, other.scale)
	if err := validateScale(s); err != nil {
		return Decimal{}, err
	}
	guard := s + 1
	if guard < MaxScale {
		guard = MaxScale
	}

	return Decimal{v: d.v.DivRound(other.v, int32(guard)).Round(int32(s)), scale: s}, nil
}

// Compare returns -1, 0, or +1 comparing a and b at scale
// max(a.Scale(), b.Scale(), scale).
func Compare(a, b Decimal, scale int) int {
	s := scale
	if a.scale > s {
		s = a.scale
	}
	if b.scale > s {
		s = b.scale
	}
	ra := a.v.Round(int32(s))
	rb := b.v.Round(int32(s))

	return ra.Cmp(rb)
}
