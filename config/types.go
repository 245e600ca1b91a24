package config

import "time"

// SaleFile is the TOML definition of a sale. Amounts are raw base units;
// curve prices are scaled by launchpad.DecimalScale.
type SaleFile struct {
	Asset      string    `toml:"Asset"`
	QuoteAsset string    `toml:"QuoteAsset"`
	Treasury   string    `toml:"Treasury,omitempty"`
	GlobalCap  uint64    `toml:"GlobalCap"`
	WalletCap  uint64    `toml:"WalletCap"`
	Start      time.Time `toml:"Start"`
	End        time.Time `toml:"End"`
	Pricing    Pricing   `toml:"pricing"`
	Whitelist  Whitelist `toml:"whitelist"`
}

// Pricing selects one of the three pricing models. Only the section matching
// Model is read.
type Pricing struct {
	Model   string  `toml:"Model"`
	Price   uint64  `toml:"Price,omitempty"`
	Curve   Curve   `toml:"curve"`
	Auction Auction `toml:"auction"`
}

type Curve struct {
	Kind           string `toml:"Kind"`
	BasePrice      uint64 `toml:"BasePrice"`
	Slope          uint64 `toml:"Slope"`
	Inflection     uint64 `toml:"Inflection,omitempty"`
	MaxSupply      uint64 `toml:"MaxSupply"`
	FeeNumerator   uint64 `toml:"FeeNumerator,omitempty"`
	FeeDenominator uint64 `toml:"FeeDenominator,omitempty"`
	FeeDestination string `toml:"FeeDestination,omitempty"`
}

type Auction struct {
	Kind             string `toml:"Kind"`
	StartPrice       uint64 `toml:"StartPrice,omitempty"`
	FloorPrice       uint64 `toml:"FloorPrice"`
	MinIncrementBps  uint16 `toml:"MinIncrementBps"`
	AntiSnipeSeconds int64  `toml:"AntiSnipeSeconds"`
}

// Whitelist either pins a precomputed root or lists member addresses from
// which the root is derived. Members take the buyer leaf form.
type Whitelist struct {
	Root    string   `toml:"Root,omitempty"`
	Members []string `toml:"Members,omitempty"`
}

type Pauses struct {
	Launchpad bool `yaml:"launchpad"`
}

// Quota defines rate limits for module interactions on a per-address basis.
type Quota struct {
	MaxRequestsPerEpoch uint32 `yaml:"maxRequestsPerEpoch"`
	MaxVolumePerEpoch   uint64 `yaml:"maxVolumePerEpoch"` // in base units of the operation amount
	EpochSeconds        uint32 `yaml:"epochSeconds"`
}

// Quotas groups quotas for each module.
type Quotas struct {
	Launchpad Quota `yaml:"launchpad"`
}

// Global bundles the runtime policy enforced by ValidateConfig.
type Global struct {
	Pauses Pauses `yaml:"pauses"`
	Quotas Quotas `yaml:"quotas"`
}
