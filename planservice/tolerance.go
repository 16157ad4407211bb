package planservice

import (
	"github.com/p2pflow/routefinder/decimal"
	"github.com/p2pflow/routefinder/money"
)

// spendWindow is the (spendMin, spendMax) band derived from the requested
// spend D and the tolerance window, per spec §4.6.
type spendWindow struct {
	Min money.Money
	Max money.Money
}

// deriveSpendWindow computes spendMin = D*(1-tMax), spendMax = D*(1+tMax) at
// D's own scale, and raises ErrPrecisionViolation if that scale collapses
// both bounds back onto D while tMax is strictly positive.
func deriveSpendWindow(desired money.Money, tMax decimal.Decimal) (spendWindow, error) {
	scale := desired.Scale()
	one, err := decimal.FromInt(1, scale)
	if err != nil {
		return spendWindow{}, err
	}

	lowerFactor, err := one.Sub(tMax, scale)
	if err != nil {
		return spendWindow{}, err
	}
	minAmt, err := desired.Amount().Mul(lowerFactor, scale)
	if err != nil {
		return spendWindow{}, err
	}

	upperFactor, err := one.Add(tMax, scale)
	if err != nil {
		return spendWindow{}, err
	}
	maxAmt, err := desired.Amount().Mul(upperFactor, scale)
	if err != nil {
		return spendWindow{}, err
	}

	if tMax.Sign() > 0 &&
		decimal.Compare(minAmt, desired.Amount(), scale) == 0 &&
		decimal.Compare(maxAmt, desired.Amount(), scale) == 0 {
		return spendWindow{}, ErrPrecisionViolation
	}

	spendMin, err := money.New(desired.Currency(), minAmt)
	if err != nil {
		return spendWindow{}, err
	}
	spendMax, err := money.New(desired.Currency(), maxAmt)
	if err != nil {
		return spendWindow{}, err
	}

	return spendWindow{Min: spendMin, Max: spendMax}, nil
}

// residualTolerance computes the signed (D - actual)/D fraction, at the
// decimal package's canonical working scale.
func residualTolerance(desired, actual money.Money) (decimal.Decimal, error) {
	diff, err := desired.Amount().Sub(actual.Amount(), decimal.CanonicalScale)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return diff.Div(desired.Amount(), decimal.CanonicalScale)
}

// withinToleranceWindow reports whether |residual| lies in [tMin, tMax].
func withinToleranceWindow(residual, tMin, tMax decimal.Decimal) bool {
	abs := residual
	if abs.Sign() < 0 {
		negated, err := decimal.Zero(decimal.CanonicalScale)
		if err != nil {
			return false
		}
		negated, err = negated.Sub(residual, decimal.CanonicalScale)
		if err != nil {
			return false
		}
		abs = negated
	}

	return decimal.Compare(abs, tMin, decimal.CanonicalScale) >= 0 &&
		decimal.Compare(abs, tMax, decimal.CanonicalScale) <= 0
}
