package launchpad

import (
	"github.com/holiman/uint256"
)

// DecimalScale is the fixed denominator applied to every Decimal.
const DecimalScale = 1_000_000_000

// decimalBits bounds every Decimal to an unsigned 128-bit representation.
const decimalBits = 128

var scaleInt = uint256.NewInt(DecimalScale)

// Decimal is an unsigned fixed point scalar storing value×1e9 within 128 bits.
// All arithmetic is checked and reports ErrArithmeticOverflow instead of
// wrapping. The zero value represents 0.
type Decimal struct {
	raw uint256.Int
}

// FromInteger returns n expressed with the fixed point scale.
func FromInteger(n uint64) Decimal {
	var d Decimal
	d.raw.SetUint64(n)
	d.raw.Mul(&d.raw, scaleInt)
	return d
}

// FromScaled wraps a value that is already multiplied by DecimalScale.
func FromScaled(raw uint64) Decimal {
	var d Decimal
	d.raw.SetUint64(raw)
	return d
}

// FromScaledInt wraps a pre-scaled 256-bit value, rejecting anything wider
// than 128 bits.
func FromScaledInt(raw *uint256.Int) (Decimal, error) {
	var d Decimal
	if raw == nil {
		return d, nil
	}
	if raw.BitLen() > decimalBits {
		return Decimal{}, ErrArithmeticOverflow
	}
	d.raw.Set(raw)
	return d, nil
}

// Scaled returns a copy of the underlying pre-scaled integer.
func (d Decimal) Scaled() *uint256.Int {
	return new(uint256.Int).Set(&d.raw)
}

// IsZero reports whether the value equals zero.
func (d Decimal) IsZero() bool { return d.raw.IsZero() }

// Cmp compares two decimals and returns -1, 0 or +1.
func (d Decimal) Cmp(other Decimal) int { return d.raw.Cmp(&other.raw) }

// CheckedAdd returns d+other.
func (d Decimal) CheckedAdd(other Decimal) (Decimal, error) {
	var out Decimal
	if _, overflow := out.raw.AddOverflow(&d.raw, &other.raw); overflow {
		return Decimal{}, ErrArithmeticOverflow
	}
	return bounded(out)
}

// CheckedSub returns d-other and fails when the result would be negative.
func (d Decimal) CheckedSub(other Decimal) (Decimal, error) {
	var out Decimal
	if _, underflow := out.raw.SubOverflow(&d.raw, &other.raw); underflow {
		return Decimal{}, ErrArithmeticOverflow
	}
	return out, nil
}

// CheckedMul multiplies two decimals and rescales the product. The
// intermediate product must itself fit in 128 bits.
func (d Decimal) CheckedMul(other Decimal) (Decimal, error) {
	var out Decimal
	if _, overflow := out.raw.MulOverflow(&d.raw, &other.raw); overflow {
		return Decimal{}, ErrArithmeticOverflow
	}
	if out.raw.BitLen() > decimalBits {
		return Decimal{}, ErrArithmeticOverflow
	}
	out.raw.Div(&out.raw, scaleInt)
	return out, nil
}

// MulInt multiplies by an unscaled integer factor.
func (d Decimal) MulInt(n uint64) (Decimal, error) {
	var out Decimal
	if _, overflow := out.raw.MulOverflow(&d.raw, uint256.NewInt(n)); overflow {
		return Decimal{}, ErrArithmeticOverflow
	}
	return bounded(out)
}

// DivInt divides by an unscaled integer factor. Division by zero is an error.
func (d Decimal) DivInt(n uint64) (Decimal, error) {
	if n == 0 {
		return Decimal{}, ErrArithmeticOverflow
	}
	var out Decimal
	out.raw.Div(&d.raw, uint256.NewInt(n))
	return out, nil
}

// ToUint64 truncates toward zero and returns the integer part. It fails when
// the integer part does not fit in 64 bits.
func (d Decimal) ToUint64() (uint64, error) {
	var whole uint256.Int
	whole.Div(&d.raw, scaleInt)
	if !whole.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return whole.Uint64(), nil
}

// String renders the value with nine fractional digits.
func (d Decimal) String() string {
	var whole, frac uint256.Int
	whole.DivMod(&d.raw, scaleInt, &frac)
	digits := frac.Dec()
	for len(digits) < 9 {
		digits = "0" + digits
	}
	return whole.Dec() + "." + digits
}

func bounded(d Decimal) (Decimal, error) {
	if d.raw.BitLen() > decimalBits {
		return Decimal{}, ErrArithmeticOverflow
	}
	return d, nil
}
