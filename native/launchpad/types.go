package launchpad

import (
	"encoding/binary"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/text/unicode/norm"
)

// MaxTrackedBuyers bounds the per-sale buyer table.
const MaxTrackedBuyers = 64

// SaleStatus captures the lifecycle of a sale. Status values only increase.
type SaleStatus uint8

const (
	SaleStatusPending SaleStatus = iota
	SaleStatusActive
	SaleStatusSettled
)

// String returns the lowercase label of the status.
func (s SaleStatus) String() string {
	switch s {
	case SaleStatusPending:
		return "pending"
	case SaleStatusActive:
		return "active"
	case SaleStatusSettled:
		return "settled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// AuctionKind distinguishes ascending English auctions from Dutch clearing
// auctions.
type AuctionKind uint8

const (
	AuctionKindEnglish AuctionKind = iota
	AuctionKindDutch
)

// String returns the lowercase label of the auction kind.
func (k AuctionKind) String() string {
	switch k {
	case AuctionKindEnglish:
		return "english"
	case AuctionKindDutch:
		return "dutch"
	default:
		return fmt.Sprintf("auction(%d)", uint8(k))
	}
}

// ParseAuctionKind resolves an auction kind label.
func ParseAuctionKind(name string) (AuctionKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "english":
		return AuctionKindEnglish, nil
	case "dutch":
		return AuctionKindDutch, nil
	default:
		return 0, fmt.Errorf("%w: unknown auction kind %q", ErrConfigurationInvalid, name)
	}
}

// AuctionParams configures an auction sale. Prices are expressed in raw quote
// units.
type AuctionParams struct {
	Kind             AuctionKind
	StartPrice       uint64
	FloorPrice       uint64
	MinIncrementBps  uint16
	AntiSnipeSeconds int64
}

// Validate checks the auction parameters.
func (p AuctionParams) Validate() error {
	if p.Kind != AuctionKindEnglish && p.Kind != AuctionKindDutch {
		return ErrConfigurationInvalid
	}
	if p.MinIncrementBps > 10_000 || p.AntiSnipeSeconds < 0 {
		return ErrConfigurationInvalid
	}
	if p.StartPrice != 0 && p.StartPrice < p.FloorPrice {
		return ErrConfigurationInvalid
	}
	return nil
}

// PricingModel is the closed set of ways a sale prices its inventory. Only
// FixedPrice, BondingCurve and Auction implement it.
type PricingModel interface {
	pricingModel()
	// Name returns the stable label of the model.
	Name() string
}

// FixedPrice sells every token at Price raw quote units.
type FixedPrice struct {
	Price uint64
}

// BondingCurve prices trades along a curve and supports sell-back.
type BondingCurve struct {
	Curve CurveParams
}

// Auction sells the whole allocation to the highest bidder.
type Auction struct {
	Params AuctionParams
}

func (FixedPrice) pricingModel()   {}
func (BondingCurve) pricingModel() {}
func (Auction) pricingModel()      {}

// Name implements PricingModel.
func (FixedPrice) Name() string { return "fixed" }

// Name implements PricingModel.
func (BondingCurve) Name() string { return "curve" }

// Name implements PricingModel.
func (Auction) Name() string { return "auction" }

func validatePricing(model PricingModel) error {
	switch m := model.(type) {
	case FixedPrice:
		if m.Price == 0 {
			return ErrConfigurationInvalid
		}
		return nil
	case BondingCurve:
		return m.Curve.Validate()
	case Auction:
		return m.Params.Validate()
	default:
		return ErrConfigurationInvalid
	}
}

// NormalizeAsset canonicalises an asset symbol to NFKC upper case.
func NormalizeAsset(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFKC.String(symbol)))
}

// SaleID derives the identifier of the sale offering asset.
func SaleID(asset string) [32]byte {
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256([]byte("launch"), []byte(NormalizeAsset(asset))))
	return id
}

// SaleConfig holds the terms of a sale. Only EndTime and WalletCap change
// after initialization.
type SaleConfig struct {
	ID            [32]byte
	Authority     [20]byte
	Treasury      [20]byte
	AssetID       string
	QuoteAsset    string
	Pricing       PricingModel
	GlobalCap     uint64
	WalletCap     uint64
	StartTime     int64
	EndTime       int64
	WhitelistRoot *[32]byte
}

// Validate enforces the static configuration invariants.
func (c *SaleConfig) Validate() error {
	if c == nil {
		return ErrConfigurationInvalid
	}
	if c.AssetID == "" || c.QuoteAsset == "" || c.AssetID == c.QuoteAsset {
		return fmt.Errorf("%w: asset and quote asset must be distinct", ErrConfigurationInvalid)
	}
	if c.GlobalCap == 0 {
		return fmt.Errorf("%w: global cap must be positive", ErrConfigurationInvalid)
	}
	if c.WalletCap != 0 && c.WalletCap > c.GlobalCap {
		return fmt.Errorf("%w: wallet cap exceeds global cap", ErrConfigurationInvalid)
	}
	if c.EndTime <= c.StartTime {
		return fmt.Errorf("%w: end time must follow start time", ErrConfigurationInvalid)
	}
	if c.Treasury == ([20]byte{}) {
		return fmt.Errorf("%w: treasury required", ErrConfigurationInvalid)
	}
	if err := validatePricing(c.Pricing); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *SaleConfig) Clone() *SaleConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.WhitelistRoot != nil {
		root := *c.WhitelistRoot
		clone.WhitelistRoot = &root
	}
	return &clone
}

// Hash commits to the authority, caps, window, asset and whitelist root.
func (c *SaleConfig) Hash() [32]byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, c.Authority[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, c.GlobalCap)
	buf = binary.LittleEndian.AppendUint64(buf, c.WalletCap)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(c.StartTime))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(c.EndTime))
	buf = append(buf, []byte(c.AssetID)...)
	if c.WhitelistRoot != nil {
		buf = append(buf, c.WhitelistRoot[:]...)
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(buf))
	return out
}

// AuctionParams returns the auction configuration when the sale is an
// auction.
func (c *SaleConfig) AuctionParams() (AuctionParams, bool) {
	if a, ok := c.Pricing.(Auction); ok {
		return a.Params, true
	}
	return AuctionParams{}, false
}

// BuyerContribution tracks how many tokens a wallet holds from the sale.
type BuyerContribution struct {
	Buyer     [20]byte
	Purchased uint64
}

// SaleState is the mutable ledger of a sale. Buyers is a fixed table of which
// only the first BuyerCount entries are live.
type SaleState struct {
	Sold          uint64
	Proceeds      uint64
	Status        SaleStatus
	Buyers        [MaxTrackedBuyers]BuyerContribution
	BuyerCount    uint8
	HighestBid    uint64
	HighestBidder [20]byte
	AuctionEnd    int64
}

// Clone returns a copy of the state.
func (s *SaleState) Clone() *SaleState {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// FindBuyer returns the index and entry tracked for addr.
func (s *SaleState) FindBuyer(addr [20]byte) (int, BuyerContribution, bool) {
	for i := 0; i < int(s.BuyerCount); i++ {
		if s.Buyers[i].Buyer == addr {
			return i, s.Buyers[i], true
		}
	}
	return -1, BuyerContribution{}, false
}

// Purchased returns the tracked total for addr, zero when untracked.
func (s *SaleState) Purchased(addr [20]byte) uint64 {
	_, entry, _ := s.FindBuyer(addr)
	return entry.Purchased
}

// ActiveBuyers returns the live prefix of the buyer table.
func (s *SaleState) ActiveBuyers() []BuyerContribution {
	return append([]BuyerContribution(nil), s.Buyers[:s.BuyerCount]...)
}

// CurrentAuctionEnd returns the possibly extended auction deadline.
func (s *SaleState) CurrentAuctionEnd(cfg *SaleConfig) int64 {
	if s.AuctionEnd == 0 {
		return cfg.EndTime
	}
	return s.AuctionEnd
}

// Sale pairs a configuration with its state for read access.
type Sale struct {
	Config *SaleConfig
	State  *SaleState
}
