package launchpad

import (
	"errors"
	"math"
	"testing"

	"github.com/holiman/uint256"
)

func TestDecimalIntegerRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 42, 1_000_000_007, math.MaxUint32, math.MaxUint64} {
		got, err := FromInteger(n).ToUint64()
		if err != nil {
			t.Fatalf("to integer %d: %v", n, err)
		}
		if got != n {
			t.Fatalf("round trip mismatch: want %d got %d", n, got)
		}
	}
}

func TestDecimalTruncatesTowardZero(t *testing.T) {
	d := FromScaled(2_999_999_999)
	got, err := d.ToUint64()
	if err != nil {
		t.Fatalf("to integer: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected truncation to 2, got %d", got)
	}
	if d.String() != "2.999999999" {
		t.Fatalf("unexpected string %q", d.String())
	}
}

func TestDecimalCheckedAddRejects129Bits(t *testing.T) {
	max := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	max.SubUint64(max, 1)
	top, err := FromScaledInt(max)
	if err != nil {
		t.Fatalf("from scaled: %v", err)
	}
	if _, err := top.CheckedAdd(FromScaled(1)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := FromScaledInt(new(uint256.Int).AddUint64(max, 1)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected 129-bit value to be rejected, got %v", err)
	}
}

func TestDecimalCheckedSubUnderflow(t *testing.T) {
	if _, err := FromInteger(1).CheckedSub(FromInteger(2)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected underflow error, got %v", err)
	}
	diff, err := FromInteger(5).CheckedSub(FromInteger(2))
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if diff.Cmp(FromInteger(3)) != 0 {
		t.Fatalf("expected 3, got %s", diff)
	}
}

func TestDecimalCheckedMulRescales(t *testing.T) {
	half := FromScaled(500_000_000)
	product, err := half.CheckedMul(FromInteger(7))
	if err != nil {
		t.Fatalf("mul: %v", err)
	}
	if product.String() != "3.500000000" {
		t.Fatalf("unexpected product %s", product)
	}
}

func TestDecimalCheckedMulIntermediateOverflow(t *testing.T) {
	// Both operands fit easily but their raw product exceeds 128 bits.
	big := FromInteger(math.MaxUint64)
	if _, err := big.CheckedMul(FromInteger(1 << 20)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestDecimalIntFactors(t *testing.T) {
	d, err := FromInteger(10).MulInt(3)
	if err != nil {
		t.Fatalf("mul int: %v", err)
	}
	back, err := d.DivInt(4)
	if err != nil {
		t.Fatalf("div int: %v", err)
	}
	if back.String() != "7.500000000" {
		t.Fatalf("unexpected quotient %s", back)
	}
	if _, err := d.DivInt(0); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected division by zero to fail, got %v", err)
	}
}

func TestDecimalToUint64Overflow(t *testing.T) {
	d, err := FromInteger(math.MaxUint64).CheckedAdd(FromInteger(1))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := d.ToUint64(); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow converting to uint64, got %v", err)
	}
}
