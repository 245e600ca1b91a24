package launchpad

import (
	"errors"
	"fmt"
)

var (
	ErrConfigurationInvalid    = errors.New("launchpad: configuration invalid")
	ErrAlreadyInitialized      = errors.New("launchpad: sale already initialized")
	ErrSaleNotFound            = errors.New("launchpad: sale not found")
	ErrUnauthorized            = errors.New("launchpad: unauthorized")
	ErrTimeWindow              = errors.New("launchpad: outside sale window")
	ErrWhitelistRequired       = errors.New("launchpad: whitelist proof required")
	ErrWhitelistProofInvalid   = errors.New("launchpad: whitelist proof invalid")
	ErrCapExceeded             = errors.New("launchpad: global cap exceeded")
	ErrWalletCapExceeded       = errors.New("launchpad: wallet cap exceeded")
	ErrSlippageExceeded        = errors.New("launchpad: slippage exceeded")
	ErrArithmeticOverflow      = errors.New("launchpad: arithmetic overflow")
	ErrUnsupportedPricingModel = errors.New("launchpad: unsupported pricing model")
	ErrAuctionState            = errors.New("launchpad: auction state violation")
	ErrSaleSettled             = errors.New("launchpad: sale settled")
	ErrBuyerCapacityExceeded   = errors.New("launchpad: buyer capacity exceeded")
	ErrUnknownBuyer            = errors.New("launchpad: unknown buyer")
	ErrSellExceedsTracked      = errors.New("launchpad: sell exceeds tracked purchase")
	ErrInvalidAmount           = errors.New("launchpad: invalid amount")
	ErrSupplyExceeded          = errors.New("launchpad: curve supply exceeded")
	ErrInsufficientSupply      = errors.New("launchpad: insufficient curve supply")
)

// Detailed variants wrap the coarse kinds so callers can match either.
var (
	ErrUnsupportedCurve   = fmt.Errorf("%w: unsupported curve kind", ErrUnsupportedPricingModel)
	ErrAuctionBidRequired = fmt.Errorf("%w: auction sales accept bids only", ErrUnsupportedPricingModel)
	ErrSellOnlyCurve      = fmt.Errorf("%w: sell is only available on bonding curves", ErrUnsupportedPricingModel)
	ErrNotAuction         = fmt.Errorf("%w: sale is not an auction", ErrUnsupportedPricingModel)
	ErrBidTooLow          = fmt.Errorf("%w: bid below minimum increment", ErrAuctionState)
	ErrBidBelowReserve    = fmt.Errorf("%w: bid below reserve", ErrAuctionState)
	ErrAuctionClosed      = fmt.Errorf("%w: auction closed", ErrAuctionState)
	ErrAuctionStillActive = fmt.Errorf("%w: auction still active", ErrAuctionState)
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrConfigurationInvalid, "configuration_invalid"},
	{ErrAlreadyInitialized, "already_initialized"},
	{ErrSaleNotFound, "sale_not_found"},
	{ErrUnauthorized, "unauthorized"},
	{ErrTimeWindow, "time_window"},
	{ErrWhitelistRequired, "whitelist_required"},
	{ErrWhitelistProofInvalid, "whitelist_proof_invalid"},
	{ErrCapExceeded, "cap_exceeded"},
	{ErrWalletCapExceeded, "wallet_cap_exceeded"},
	{ErrSlippageExceeded, "slippage_exceeded"},
	{ErrArithmeticOverflow, "arithmetic_overflow"},
	{ErrUnsupportedPricingModel, "unsupported_pricing_model"},
	{ErrAuctionState, "auction_state"},
	{ErrSaleSettled, "sale_settled"},
	{ErrBuyerCapacityExceeded, "buyer_capacity_exceeded"},
	{ErrUnknownBuyer, "unknown_buyer"},
	{ErrSellExceedsTracked, "sell_exceeds_tracked"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrSupplyExceeded, "supply_exceeded"},
	{ErrInsufficientSupply, "insufficient_supply"},
}

// ErrorKind returns the stable snake_case name of a launchpad error, or the
// empty string when err is not one.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ""
}
