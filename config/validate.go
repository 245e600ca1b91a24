package config

import (
	"fmt"
	"strings"
)

var (
	MinEpochSeconds = uint32(10)
)

func ValidateConfig(g Global) error {
	q := g.Quotas.Launchpad
	if q.MaxRequestsPerEpoch == 0 && q.MaxVolumePerEpoch == 0 {
		return nil
	}
	if q.EpochSeconds != 0 && q.EpochSeconds < MinEpochSeconds {
		return fmt.Errorf("quotas.launchpad: epochSeconds below %d", MinEpochSeconds)
	}
	return nil
}

func validateSale(f *SaleFile) error {
	if strings.TrimSpace(f.Asset) == "" {
		return fmt.Errorf("sale: Asset required")
	}
	if strings.TrimSpace(f.QuoteAsset) == "" {
		return fmt.Errorf("sale: QuoteAsset required")
	}
	if f.Start.IsZero() || f.End.IsZero() {
		return fmt.Errorf("sale: Start and End required")
	}
	if !f.End.After(f.Start) {
		return fmt.Errorf("sale: End must follow Start")
	}
	if f.GlobalCap == 0 {
		return fmt.Errorf("sale: GlobalCap must be positive")
	}
	if f.Whitelist.Root != "" && len(f.Whitelist.Members) > 0 {
		return fmt.Errorf("sale: whitelist Root and Members are mutually exclusive")
	}
	return nil
}
