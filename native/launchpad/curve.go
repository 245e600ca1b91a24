package launchpad

import "fmt"

// CurveKind enumerates the bonding curve families a sale may declare.
type CurveKind uint8

const (
	CurveKindFixed CurveKind = iota
	CurveKindLinear
	CurveKindExponential
	CurveKindSigmoid
)

// String returns the canonical lowercase name of the curve kind.
func (k CurveKind) String() string {
	switch k {
	case CurveKindFixed:
		return "fixed"
	case CurveKindLinear:
		return "linear"
	case CurveKindExponential:
		return "exponential"
	case CurveKindSigmoid:
		return "sigmoid"
	default:
		return fmt.Sprintf("curve(%d)", uint8(k))
	}
}

// ParseCurveKind resolves a curve name as produced by String.
func ParseCurveKind(name string) (CurveKind, error) {
	switch name {
	case "fixed":
		return CurveKindFixed, nil
	case "linear":
		return CurveKindLinear, nil
	case "exponential":
		return CurveKindExponential, nil
	case "sigmoid":
		return CurveKindSigmoid, nil
	default:
		return 0, fmt.Errorf("%w: unknown curve kind %q", ErrConfigurationInvalid, name)
	}
}

// CurveParams holds the bonding curve definition. BasePrice and Slope are
// pre-scaled by DecimalScale. Inflection is reserved for curve families that
// need a midpoint and is ignored by the linear curve.
type CurveParams struct {
	Kind       CurveKind
	BasePrice  uint64
	Slope      uint64
	Inflection uint64
	MaxSupply  uint64
	Fee        FeeSchedule
}

// Validate checks the static invariants shared by every curve family.
func (p CurveParams) Validate() error {
	if p.BasePrice == 0 || p.MaxSupply == 0 {
		return ErrConfigurationInvalid
	}
	return p.Fee.Validate()
}

// Quote is the priced outcome of a curve trade. QuoteAmount already includes
// the fee on buys and excludes it on sells.
type Quote struct {
	BaseAmount  uint64
	QuoteAmount uint64
	FeeAmount   uint64
}

// PricingCurve prices trades against the current circulating supply.
type PricingCurve interface {
	QuoteBuy(supply, amount uint64) (Quote, error)
	QuoteSell(supply, amount uint64) (Quote, error)
}

// NewCurve returns the calculator for the declared curve kind. Families other
// than linear fail with ErrUnsupportedCurve.
func NewCurve(params CurveParams) (PricingCurve, error) {
	switch params.Kind {
	case CurveKindLinear:
		return NewLinearCurve(params)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurve, params.Kind)
	}
}

// LinearCurve prices at base + slope×supply, evaluated at the post-trade
// supply.
type LinearCurve struct {
	params CurveParams
}

// NewLinearCurve validates params and returns a linear calculator.
func NewLinearCurve(params CurveParams) (*LinearCurve, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &LinearCurve{params: params}, nil
}

// QuoteBuy prices the purchase of amount tokens when supply are outstanding.
// The fee is charged on top of the raw cost.
func (c *LinearCurve) QuoteBuy(supply, amount uint64) (Quote, error) {
	if amount == 0 {
		return Quote{}, ErrInvalidAmount
	}
	post := supply + amount
	if post < supply || post > c.params.MaxSupply {
		return Quote{}, ErrSupplyExceeded
	}
	raw, err := c.cost(post, amount)
	if err != nil {
		return Quote{}, err
	}
	fee, err := c.params.Fee.Apply(raw)
	if err != nil {
		return Quote{}, err
	}
	total, err := raw.CheckedAdd(fee)
	if err != nil {
		return Quote{}, err
	}
	return newQuote(amount, total, fee)
}

// QuoteSell prices returning amount tokens to the curve. The fee is deducted
// from the proceeds.
func (c *LinearCurve) QuoteSell(supply, amount uint64) (Quote, error) {
	if amount == 0 {
		return Quote{}, ErrInvalidAmount
	}
	if amount > supply {
		return Quote{}, ErrInsufficientSupply
	}
	raw, err := c.cost(supply-amount, amount)
	if err != nil {
		return Quote{}, err
	}
	fee, err := c.params.Fee.Apply(raw)
	if err != nil {
		return Quote{}, err
	}
	net, err := raw.CheckedSub(fee)
	if err != nil {
		return Quote{}, err
	}
	return newQuote(amount, net, fee)
}

// UnitPrice returns the scaled price at the given supply.
func (c *LinearCurve) UnitPrice(supply uint64) (Decimal, error) {
	step, err := FromScaled(c.params.Slope).CheckedMul(FromInteger(supply))
	if err != nil {
		return Decimal{}, err
	}
	return FromScaled(c.params.BasePrice).CheckedAdd(step)
}

func (c *LinearCurve) cost(supply, amount uint64) (Decimal, error) {
	price, err := c.UnitPrice(supply)
	if err != nil {
		return Decimal{}, err
	}
	return price.CheckedMul(FromInteger(amount))
}

func newQuote(amount uint64, total, fee Decimal) (Quote, error) {
	quoteAmount, err := total.ToUint64()
	if err != nil {
		return Quote{}, err
	}
	feeAmount, err := fee.ToUint64()
	if err != nil {
		return Quote{}, err
	}
	return Quote{BaseAmount: amount, QuoteAmount: quoteAmount, FeeAmount: feeAmount}, nil
}
