package launchpad

import "github.com/holiman/uint256"

// FeeSchedule describes a proportional fee charged on curve trades and the
// address collecting it.
type FeeSchedule struct {
	Numerator   uint64
	Denominator uint64
	Destination [20]byte
}

// NewFeeSchedule validates the fraction against the 50% policy cap.
func NewFeeSchedule(numerator, denominator uint64, destination [20]byte) (FeeSchedule, error) {
	fee := FeeSchedule{Numerator: numerator, Denominator: denominator, Destination: destination}
	if err := fee.Validate(); err != nil {
		return FeeSchedule{}, err
	}
	return fee, nil
}

// Validate enforces a positive denominator and a numerator no greater than
// half of it.
func (f FeeSchedule) Validate() error {
	if f.Denominator == 0 {
		return ErrConfigurationInvalid
	}
	if f.Numerator > f.Denominator/2 {
		return ErrConfigurationInvalid
	}
	return nil
}

// Enabled reports whether the schedule charges anything.
func (f FeeSchedule) Enabled() bool { return f.Numerator > 0 }

// Apply returns amount×numerator/denominator computed in the scaled domain.
func (f FeeSchedule) Apply(amount Decimal) (Decimal, error) {
	if f.Numerator == 0 {
		return Decimal{}, nil
	}
	if f.Denominator == 0 {
		return Decimal{}, ErrArithmeticOverflow
	}
	var fee uint256.Int
	if _, overflow := fee.MulOverflow(&amount.raw, uint256.NewInt(f.Numerator)); overflow {
		return Decimal{}, ErrArithmeticOverflow
	}
	if fee.BitLen() > decimalBits {
		return Decimal{}, ErrArithmeticOverflow
	}
	fee.Div(&fee, uint256.NewInt(f.Denominator))
	return FromScaledInt(&fee)
}
