package launchpad

import (
	"encoding/hex"
	"strconv"

	"launchpad/core/types"
)

const (
	EventTypeSaleInitialized   = "launchpad.sale.initialized"
	EventTypeSaleConfigUpdated = "launchpad.sale.config_updated"
	EventTypeSalePurchase      = "launchpad.sale.purchase"
	EventTypeSaleSell          = "launchpad.sale.sell"
	EventTypeSaleBid           = "launchpad.sale.bid"
	EventTypeSaleSettled       = "launchpad.sale.settled"
	EventTypeTreasuryMovement  = "launchpad.treasury.movement"
	TreasuryDirectionInflow    = "in"
	TreasuryDirectionOutflow   = "out"
	TreasuryReasonPurchase     = "purchase"
	TreasuryReasonBid          = "bid"
	TreasuryReasonSellback     = "sellback"
	TreasuryReasonWithdraw     = "withdraw"
)

// NewSaleInitializedEvent announces a freshly created sale and its terms.
func NewSaleInitializedEvent(cfg *SaleConfig) *types.Event {
	return newConfigEvent(EventTypeSaleInitialized, cfg)
}

// NewSaleConfigUpdatedEvent announces an authority update.
func NewSaleConfigUpdatedEvent(cfg *SaleConfig) *types.Event {
	return newConfigEvent(EventTypeSaleConfigUpdated, cfg)
}

// NewPurchaseEvent reports an accepted buy.
func NewPurchaseEvent(id [32]byte, buyer [20]byte, quote Quote, state *SaleState) *types.Event {
	attrs := tradeAttributes(id, quote, state)
	attrs["buyer"] = hex.EncodeToString(buyer[:])
	return &types.Event{Type: EventTypeSalePurchase, Attributes: attrs}
}

// NewSellEvent reports tokens returned to a bonding curve.
func NewSellEvent(id [32]byte, seller [20]byte, quote Quote, state *SaleState) *types.Event {
	attrs := tradeAttributes(id, quote, state)
	attrs["seller"] = hex.EncodeToString(seller[:])
	return &types.Event{Type: EventTypeSaleSell, Attributes: attrs}
}

// NewBidEvent reports an accepted auction bid.
func NewBidEvent(id [32]byte, bidder [20]byte, amount uint64, state *SaleState) *types.Event {
	return &types.Event{
		Type: EventTypeSaleBid,
		Attributes: map[string]string{
			"saleId":     hex.EncodeToString(id[:]),
			"bidder":     hex.EncodeToString(bidder[:]),
			"amount":     strconv.FormatUint(amount, 10),
			"auctionEnd": strconv.FormatInt(state.AuctionEnd, 10),
			"status":     state.Status.String(),
		},
	}
}

// NewSettledEvent reports the final state of an auction.
func NewSettledEvent(id [32]byte, state *SaleState) *types.Event {
	return &types.Event{
		Type: EventTypeSaleSettled,
		Attributes: map[string]string{
			"saleId":        hex.EncodeToString(id[:]),
			"sold":          strconv.FormatUint(state.Sold, 10),
			"proceeds":      strconv.FormatUint(state.Proceeds, 10),
			"highestBid":    strconv.FormatUint(state.HighestBid, 10),
			"highestBidder": hex.EncodeToString(state.HighestBidder[:]),
		},
	}
}

// NewTreasuryMovementEvent records quote asset flowing in or out of a sale
// treasury.
func NewTreasuryMovementEvent(id [32]byte, asset string, counterparty [20]byte, amount uint64, direction, reason string) *types.Event {
	return &types.Event{
		Type: EventTypeTreasuryMovement,
		Attributes: map[string]string{
			"saleId":       hex.EncodeToString(id[:]),
			"asset":        asset,
			"counterparty": hex.EncodeToString(counterparty[:]),
			"amount":       strconv.FormatUint(amount, 10),
			"direction":    direction,
			"reason":       reason,
		},
	}
}

func newConfigEvent(eventType string, cfg *SaleConfig) *types.Event {
	hash := cfg.Hash()
	attrs := map[string]string{
		"saleId":     hex.EncodeToString(cfg.ID[:]),
		"authority":  hex.EncodeToString(cfg.Authority[:]),
		"treasury":   hex.EncodeToString(cfg.Treasury[:]),
		"asset":      cfg.AssetID,
		"quoteAsset": cfg.QuoteAsset,
		"pricing":    cfg.Pricing.Name(),
		"globalCap":  strconv.FormatUint(cfg.GlobalCap, 10),
		"walletCap":  strconv.FormatUint(cfg.WalletCap, 10),
		"startTime":  strconv.FormatInt(cfg.StartTime, 10),
		"endTime":    strconv.FormatInt(cfg.EndTime, 10),
		"configHash": hex.EncodeToString(hash[:]),
	}
	if cfg.WhitelistRoot != nil {
		attrs["whitelistRoot"] = hex.EncodeToString(cfg.WhitelistRoot[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func tradeAttributes(id [32]byte, quote Quote, state *SaleState) map[string]string {
	return map[string]string{
		"saleId":      hex.EncodeToString(id[:]),
		"amount":      strconv.FormatUint(quote.BaseAmount, 10),
		"quoteAmount": strconv.FormatUint(quote.QuoteAmount, 10),
		"feeAmount":   strconv.FormatUint(quote.FeeAmount, 10),
		"sold":        strconv.FormatUint(state.Sold, 10),
		"proceeds":    strconv.FormatUint(state.Proceeds, 10),
		"status":      state.Status.String(),
	}
}
