package launchpad

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

const (
	pricingModelFixed   = "fixed"
	pricingModelCurve   = "curve"
	pricingModelAuction = "auction"
)

// PricingSpec is the flat, serialisable form of a PricingModel. Only the
// fields of the named model are meaningful.
type PricingSpec struct {
	Model            string
	Price            uint64
	CurveKind        uint8
	BasePrice        uint64
	Slope            uint64
	Inflection       uint64
	MaxSupply        uint64
	FeeNumerator     uint64
	FeeDenominator   uint64
	FeeDestination   [20]byte
	AuctionKind      uint8
	StartPrice       uint64
	FloorPrice       uint64
	MinIncrementBps  uint16
	AntiSnipeSeconds uint64
}

// SpecOf flattens a pricing model.
func SpecOf(model PricingModel) (PricingSpec, error) {
	switch m := model.(type) {
	case FixedPrice:
		return PricingSpec{Model: pricingModelFixed, Price: m.Price}, nil
	case BondingCurve:
		c := m.Curve
		return PricingSpec{
			Model:          pricingModelCurve,
			CurveKind:      uint8(c.Kind),
			BasePrice:      c.BasePrice,
			Slope:          c.Slope,
			Inflection:     c.Inflection,
			MaxSupply:      c.MaxSupply,
			FeeNumerator:   c.Fee.Numerator,
			FeeDenominator: c.Fee.Denominator,
			FeeDestination: c.Fee.Destination,
		}, nil
	case Auction:
		p := m.Params
		if p.AntiSnipeSeconds < 0 {
			return PricingSpec{}, ErrConfigurationInvalid
		}
		return PricingSpec{
			Model:            pricingModelAuction,
			AuctionKind:      uint8(p.Kind),
			StartPrice:       p.StartPrice,
			FloorPrice:       p.FloorPrice,
			MinIncrementBps:  p.MinIncrementBps,
			AntiSnipeSeconds: uint64(p.AntiSnipeSeconds),
		}, nil
	default:
		return PricingSpec{}, fmt.Errorf("%w: %T", ErrUnsupportedPricingModel, model)
	}
}

// PricingModel rebuilds the model s describes.
func (s PricingSpec) PricingModel() (PricingModel, error) {
	switch s.Model {
	case pricingModelFixed:
		return FixedPrice{Price: s.Price}, nil
	case pricingModelCurve:
		return BondingCurve{Curve: CurveParams{
			Kind:       CurveKind(s.CurveKind),
			BasePrice:  s.BasePrice,
			Slope:      s.Slope,
			Inflection: s.Inflection,
			MaxSupply:  s.MaxSupply,
			Fee: FeeSchedule{
				Numerator:   s.FeeNumerator,
				Denominator: s.FeeDenominator,
				Destination: s.FeeDestination,
			},
		}}, nil
	case pricingModelAuction:
		return Auction{Params: AuctionParams{
			Kind:             AuctionKind(s.AuctionKind),
			StartPrice:       s.StartPrice,
			FloorPrice:       s.FloorPrice,
			MinIncrementBps:  s.MinIncrementBps,
			AntiSnipeSeconds: int64(s.AntiSnipeSeconds),
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPricingModel, s.Model)
	}
}

type configRecord struct {
	ID            [32]byte
	Authority     [20]byte
	Treasury      [20]byte
	AssetID       string
	QuoteAsset    string
	Pricing       PricingSpec
	GlobalCap     uint64
	WalletCap     uint64
	StartTime     uint64
	EndTime       uint64
	HasRoot       bool
	WhitelistRoot [32]byte
}

type stateRecord struct {
	Sold          uint64
	Proceeds      uint64
	Status        uint8
	Buyers        [MaxTrackedBuyers]BuyerContribution
	BuyerCount    uint8
	HighestBid    uint64
	HighestBidder [20]byte
	AuctionEnd    uint64
}

// EncodeSaleConfig serialises a configuration with RLP.
func EncodeSaleConfig(cfg *SaleConfig) ([]byte, error) {
	if cfg == nil {
		return nil, ErrConfigurationInvalid
	}
	spec, err := SpecOf(cfg.Pricing)
	if err != nil {
		return nil, err
	}
	record := configRecord{
		ID:         cfg.ID,
		Authority:  cfg.Authority,
		Treasury:   cfg.Treasury,
		AssetID:    cfg.AssetID,
		QuoteAsset: cfg.QuoteAsset,
		Pricing:    spec,
		GlobalCap:  cfg.GlobalCap,
		WalletCap:  cfg.WalletCap,
		StartTime:  uint64(cfg.StartTime),
		EndTime:    uint64(cfg.EndTime),
	}
	if cfg.WhitelistRoot != nil {
		record.HasRoot = true
		record.WhitelistRoot = *cfg.WhitelistRoot
	}
	return rlp.EncodeToBytes(&record)
}

// DecodeSaleConfig parses a configuration produced by EncodeSaleConfig.
func DecodeSaleConfig(data []byte) (*SaleConfig, error) {
	var record configRecord
	if err := rlp.DecodeBytes(data, &record); err != nil {
		return nil, fmt.Errorf("decode sale config: %w", err)
	}
	model, err := record.Pricing.PricingModel()
	if err != nil {
		return nil, err
	}
	cfg := &SaleConfig{
		ID:         record.ID,
		Authority:  record.Authority,
		Treasury:   record.Treasury,
		AssetID:    record.AssetID,
		QuoteAsset: record.QuoteAsset,
		Pricing:    model,
		GlobalCap:  record.GlobalCap,
		WalletCap:  record.WalletCap,
		StartTime:  int64(record.StartTime),
		EndTime:    int64(record.EndTime),
	}
	if record.HasRoot {
		root := record.WhitelistRoot
		cfg.WhitelistRoot = &root
	}
	return cfg, nil
}

// EncodeSaleState serialises the full fixed-size ledger record.
func EncodeSaleState(state *SaleState) ([]byte, error) {
	if state == nil {
		return nil, ErrConfigurationInvalid
	}
	record := stateRecord{
		Sold:          state.Sold,
		Proceeds:      state.Proceeds,
		Status:        uint8(state.Status),
		Buyers:        state.Buyers,
		BuyerCount:    state.BuyerCount,
		HighestBid:    state.HighestBid,
		HighestBidder: state.HighestBidder,
		AuctionEnd:    uint64(state.AuctionEnd),
	}
	return rlp.EncodeToBytes(&record)
}

// DecodeSaleState parses a ledger record produced by EncodeSaleState.
func DecodeSaleState(data []byte) (*SaleState, error) {
	var record stateRecord
	if err := rlp.DecodeBytes(data, &record); err != nil {
		return nil, fmt.Errorf("decode sale state: %w", err)
	}
	if int(record.BuyerCount) > MaxTrackedBuyers {
		return nil, fmt.Errorf("decode sale state: %w", ErrBuyerCapacityExceeded)
	}
	return &SaleState{
		Sold:          record.Sold,
		Proceeds:      record.Proceeds,
		Status:        SaleStatus(record.Status),
		Buyers:        record.Buyers,
		BuyerCount:    record.BuyerCount,
		HighestBid:    record.HighestBid,
		HighestBidder: record.HighestBidder,
		AuctionEnd:    int64(record.AuctionEnd),
	}, nil
}
