package launchpad

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// InitPayload is the wire form of InitArgs.
type InitPayload struct {
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

// NewInitPayload flattens init arguments for signing.
func NewInitPayload(args InitArgs) (InitPayload, error) {
	spec, err := SpecOf(args.Pricing)
	if err != nil {
		return InitPayload{}, err
	}
	p := InitPayload{
		Treasury:   args.Treasury,
		AssetID:    args.AssetID,
		QuoteAsset: args.QuoteAsset,
		Pricing:    spec,
		GlobalCap:  args.GlobalCap,
		WalletCap:  args.WalletCap,
		StartTime:  uint64(args.StartTime),
		EndTime:    uint64(args.EndTime),
	}
	if args.WhitelistRoot != nil {
		p.HasRoot = true
		p.WhitelistRoot = *args.WhitelistRoot
	}
	return p, nil
}

// Args rebuilds the init arguments.
func (p InitPayload) Args() (InitArgs, error) {
	model, err := p.Pricing.PricingModel()
	if err != nil {
		return InitArgs{}, err
	}
	args := InitArgs{
		Treasury:   p.Treasury,
		AssetID:    p.AssetID,
		QuoteAsset: p.QuoteAsset,
		Pricing:    model,
		GlobalCap:  p.GlobalCap,
		WalletCap:  p.WalletCap,
		StartTime:  int64(p.StartTime),
		EndTime:    int64(p.EndTime),
	}
	if p.HasRoot {
		root := p.WhitelistRoot
		args.WhitelistRoot = &root
	}
	return args, nil
}

// UpdatePayload is the wire form of UpdateArgs.
type UpdatePayload struct {
	HasEndTime   bool
	EndTime      uint64
	HasWalletCap bool
	WalletCap    uint64
}

// NewUpdatePayload flattens update arguments for signing.
func NewUpdatePayload(args UpdateArgs) UpdatePayload {
	var p UpdatePayload
	if args.EndTime != nil {
		p.HasEndTime = true
		p.EndTime = uint64(*args.EndTime)
	}
	if args.WalletCap != nil {
		p.HasWalletCap = true
		p.WalletCap = *args.WalletCap
	}
	return p
}

// Args rebuilds the update arguments.
func (p UpdatePayload) Args() UpdateArgs {
	var args UpdateArgs
	if p.HasEndTime {
		end := int64(p.EndTime)
		args.EndTime = &end
	}
	if p.HasWalletCap {
		walletCap := p.WalletCap
		args.WalletCap = &walletCap
	}
	return args
}

// BuyPayload carries the arguments of a buy. HasProof distinguishes an empty
// proof from a missing one.
type BuyPayload struct {
	Amount   uint64
	MaxQuote uint64
	HasProof bool
	Proof    [][32]byte
}

// WhitelistProof returns the proof, or nil when none was supplied.
func (p BuyPayload) WhitelistProof() [][32]byte { return proofOrNil(p.HasProof, p.Proof) }

// SellPayload carries the arguments of a curve sell-back.
type SellPayload struct {
	Amount   uint64
	MinQuote uint64
}

// BidPayload carries the arguments of an auction bid.
type BidPayload struct {
	Amount   uint64
	HasProof bool
	Proof    [][32]byte
}

// WhitelistProof returns the proof, or nil when none was supplied.
func (p BidPayload) WhitelistProof() [][32]byte { return proofOrNil(p.HasProof, p.Proof) }

// SettlePayload is empty; settle takes no arguments.
type SettlePayload struct{}

// WithdrawPayload carries the arguments of a treasury withdrawal.
type WithdrawPayload struct {
	Amount      uint64
	Destination [20]byte
}

// EncodePayload serialises any payload with RLP.
func EncodePayload(payload interface{}) ([]byte, error) {
	return rlp.EncodeToBytes(payload)
}

// DecodePayload parses an RLP payload into out.
func DecodePayload(data []byte, out interface{}) error {
	if err := rlp.DecodeBytes(data, out); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrConfigurationInvalid, err)
	}
	return nil
}

func proofOrNil(has bool, proof [][32]byte) [][32]byte {
	if !has {
		return nil
	}
	if proof == nil {
		return [][32]byte{}
	}
	return proof
}
