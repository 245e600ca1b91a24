package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"launchpad/crypto"
	"launchpad/native/launchpad"
)

// LoadSale reads a sale definition. Unknown keys are rejected so typos do not
// silently fall back to defaults.
func LoadSale(path string) (*SaleFile, error) {
	file := &SaleFile{}
	meta, err := toml.DecodeFile(path, file)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("sale file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	file.Pricing.Model = strings.ToLower(strings.TrimSpace(file.Pricing.Model))
	if err := validateSale(file); err != nil {
		return nil, err
	}
	return file, nil
}

// SaveSale writes f to path as TOML, creating parent directories.
func SaveSale(path string, f *SaleFile) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	return toml.NewEncoder(out).Encode(f)
}

// InitArgs converts the file into engine init arguments.
func (f *SaleFile) InitArgs() (launchpad.InitArgs, error) {
	args := launchpad.InitArgs{
		AssetID:    f.Asset,
		QuoteAsset: f.QuoteAsset,
		GlobalCap:  f.GlobalCap,
		WalletCap:  f.WalletCap,
		StartTime:  f.Start.Unix(),
		EndTime:    f.End.Unix(),
	}
	if f.Treasury != "" {
		treasury, err := crypto.ParseAddress(f.Treasury)
		if err != nil {
			return launchpad.InitArgs{}, fmt.Errorf("treasury: %w", err)
		}
		args.Treasury = treasury
	}
	model, err := f.Pricing.model()
	if err != nil {
		return launchpad.InitArgs{}, err
	}
	args.Pricing = model

	root, err := f.Whitelist.root()
	if err != nil {
		return launchpad.InitArgs{}, err
	}
	args.WhitelistRoot = root
	return args, nil
}

func (p Pricing) model() (launchpad.PricingModel, error) {
	switch p.Model {
	case "fixed":
		return launchpad.FixedPrice{Price: p.Price}, nil
	case "curve":
		kind, err := launchpad.ParseCurveKind(strings.ToLower(strings.TrimSpace(p.Curve.Kind)))
		if err != nil {
			return nil, err
		}
		params := launchpad.CurveParams{
			Kind:       kind,
			BasePrice:  p.Curve.BasePrice,
			Slope:      p.Curve.Slope,
			Inflection: p.Curve.Inflection,
			MaxSupply:  p.Curve.MaxSupply,
			Fee:        launchpad.FeeSchedule{Numerator: p.Curve.FeeNumerator, Denominator: p.Curve.FeeDenominator},
		}
		if params.Fee.Denominator == 0 {
			params.Fee.Denominator = 1
		}
		if p.Curve.FeeDestination != "" {
			dest, err := crypto.ParseAddress(p.Curve.FeeDestination)
			if err != nil {
				return nil, fmt.Errorf("fee destination: %w", err)
			}
			params.Fee.Destination = dest
		}
		return launchpad.BondingCurve{Curve: params}, nil
	case "auction":
		kind, err := launchpad.ParseAuctionKind(p.Auction.Kind)
		if err != nil {
			return nil, err
		}
		return launchpad.Auction{Params: launchpad.AuctionParams{
			Kind:             kind,
			StartPrice:       p.Auction.StartPrice,
			FloorPrice:       p.Auction.FloorPrice,
			MinIncrementBps:  p.Auction.MinIncrementBps,
			AntiSnipeSeconds: p.Auction.AntiSnipeSeconds,
		}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown pricing model %q", launchpad.ErrConfigurationInvalid, p.Model)
	}
}

func (w Whitelist) root() (*[32]byte, error) {
	if w.Root != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(w.Root), "0x"))
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("whitelist root must be 32 hex bytes")
		}
		var root [32]byte
		copy(root[:], raw)
		return &root, nil
	}
	if len(w.Members) == 0 {
		return nil, nil
	}
	tree, _, err := w.Tree()
	if err != nil {
		return nil, err
	}
	root := tree.Root()
	return &root, nil
}

// Tree builds the buyer whitelist from Members in file order.
func (w Whitelist) Tree() (*launchpad.WhitelistTree, [][20]byte, error) {
	if len(w.Members) == 0 {
		return nil, nil, fmt.Errorf("whitelist has no members")
	}
	addrs := make([][20]byte, 0, len(w.Members))
	leaves := make([][32]byte, 0, len(w.Members))
	for i, member := range w.Members {
		addr, err := crypto.ParseAddress(member)
		if err != nil {
			return nil, nil, fmt.Errorf("whitelist member %d: %w", i, err)
		}
		addrs = append(addrs, addr)
		leaves = append(leaves, launchpad.BuyerLeaf(addr))
	}
	return launchpad.NewWhitelistTree(leaves), addrs, nil
}
