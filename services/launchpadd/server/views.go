package server

import (
	"encoding/hex"

	"launchpad/core"
	"launchpad/core/types"
	"launchpad/crypto"
	"launchpad/native/launchpad"
)

type quoteView struct {
	Base  uint64 `json:"base"`
	Quote uint64 `json:"quote"`
	Fee   uint64 `json:"fee"`
}

type buyerView struct {
	Buyer     string `json:"buyer"`
	Purchased uint64 `json:"purchased"`
}

type stateView struct {
	Status        string      `json:"status"`
	Sold          uint64      `json:"sold"`
	Proceeds      uint64      `json:"proceeds"`
	Buyers        []buyerView `json:"buyers"`
	HighestBid    uint64      `json:"highestBid,omitempty"`
	HighestBidder string      `json:"highestBidder,omitempty"`
	AuctionEnd    int64       `json:"auctionEnd,omitempty"`
}

type pricingView struct {
	Model            string `json:"model"`
	Price            uint64 `json:"price,omitempty"`
	Curve            string `json:"curve,omitempty"`
	BasePrice        uint64 `json:"basePrice,omitempty"`
	Slope            uint64 `json:"slope,omitempty"`
	Inflection       uint64 `json:"inflection,omitempty"`
	MaxSupply        uint64 `json:"maxSupply,omitempty"`
	FeeNumerator     uint64 `json:"feeNumerator,omitempty"`
	FeeDenominator   uint64 `json:"feeDenominator,omitempty"`
	FeeDestination   string `json:"feeDestination,omitempty"`
	Auction          string `json:"auction,omitempty"`
	StartPrice       uint64 `json:"startPrice,omitempty"`
	FloorPrice       uint64 `json:"floorPrice,omitempty"`
	MinIncrementBps  uint16 `json:"minIncrementBps,omitempty"`
	AntiSnipeSeconds int64  `json:"antiSnipeSeconds,omitempty"`
}

type saleView struct {
	ID            string      `json:"id"`
	Asset         string      `json:"asset"`
	QuoteAsset    string      `json:"quoteAsset"`
	Authority     string      `json:"authority"`
	Treasury      string      `json:"treasury"`
	Pricing       pricingView `json:"pricing"`
	GlobalCap     uint64      `json:"globalCap"`
	WalletCap     uint64      `json:"walletCap"`
	StartTime     int64       `json:"startTime"`
	EndTime       int64       `json:"endTime"`
	WhitelistRoot string      `json:"whitelistRoot,omitempty"`
	State         *stateView  `json:"state,omitempty"`
}

type receiptView struct {
	OpHash string         `json:"opHash"`
	Type   string         `json:"type"`
	Sender string         `json:"sender"`
	Sale   string         `json:"sale"`
	Nonce  uint64         `json:"nonce"`
	Quote  *quoteView     `json:"quote,omitempty"`
	State  *stateView     `json:"state,omitempty"`
	Events []*types.Event `json:"events"`
}

type accountView struct {
	Address       string `json:"address"`
	Nonce         uint64 `json:"nonce"`
	QuotaEpoch    uint64 `json:"quotaEpoch"`
	QuotaRequests uint32 `json:"quotaRequests"`
	QuotaVolume   uint64 `json:"quotaVolume"`
}

type balanceView struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Balance uint64 `json:"balance"`
}

func address(addr [20]byte) string {
	return crypto.AddressFromArray(addr).String()
}

func newQuoteView(q launchpad.Quote) *quoteView {
	return &quoteView{Base: q.BaseAmount, Quote: q.QuoteAmount, Fee: q.FeeAmount}
}

func newStateView(st *launchpad.SaleState) *stateView {
	if st == nil {
		return nil
	}
	view := &stateView{
		Status:     st.Status.String(),
		Sold:       st.Sold,
		Proceeds:   st.Proceeds,
		HighestBid: st.HighestBid,
		AuctionEnd: st.AuctionEnd,
		Buyers:     []buyerView{},
	}
	if st.HighestBid > 0 {
		view.HighestBidder = address(st.HighestBidder)
	}
	for _, b := range st.ActiveBuyers() {
		view.Buyers = append(view.Buyers, buyerView{Buyer: address(b.Buyer), Purchased: b.Purchased})
	}
	return view
}

func newPricingView(model launchpad.PricingModel) pricingView {
	switch m := model.(type) {
	case launchpad.FixedPrice:
		return pricingView{Model: m.Name(), Price: m.Price}
	case launchpad.BondingCurve:
		view := pricingView{
			Model:          m.Name(),
			Curve:          m.Curve.Kind.String(),
			BasePrice:      m.Curve.BasePrice,
			Slope:          m.Curve.Slope,
			Inflection:     m.Curve.Inflection,
			MaxSupply:      m.Curve.MaxSupply,
			FeeNumerator:   m.Curve.Fee.Numerator,
			FeeDenominator: m.Curve.Fee.Denominator,
		}
		if m.Curve.Fee.Destination != ([20]byte{}) {
			view.FeeDestination = address(m.Curve.Fee.Destination)
		}
		return view
	case launchpad.Auction:
		return pricingView{
			Model:            m.Name(),
			Auction:          m.Params.Kind.String(),
			StartPrice:       m.Params.StartPrice,
			FloorPrice:       m.Params.FloorPrice,
			MinIncrementBps:  m.Params.MinIncrementBps,
			AntiSnipeSeconds: m.Params.AntiSnipeSeconds,
		}
	default:
		return pricingView{Model: "unknown"}
	}
}

func newSaleView(sale *launchpad.Sale) saleView {
	cfg := sale.Config
	view := saleView{
		ID:         hex.EncodeToString(cfg.ID[:]),
		Asset:      cfg.AssetID,
		QuoteAsset: cfg.QuoteAsset,
		Authority:  address(cfg.Authority),
		Treasury:   address(cfg.Treasury),
		Pricing:    newPricingView(cfg.Pricing),
		GlobalCap:  cfg.GlobalCap,
		WalletCap:  cfg.WalletCap,
		StartTime:  cfg.StartTime,
		EndTime:    cfg.EndTime,
		State:      newStateView(sale.State),
	}
	if cfg.WhitelistRoot != nil {
		view.WhitelistRoot = hex.EncodeToString(cfg.WhitelistRoot[:])
	}
	return view
}

func newReceiptView(r *core.Receipt) receiptView {
	view := receiptView{
		OpHash: hex.EncodeToString(r.OpHash[:]),
		Type:   r.Type.String(),
		Sender: address(r.Sender),
		Nonce:  r.Nonce,
		State:  newStateView(r.State),
		Events: r.Events,
	}
	if r.Sale != ([32]byte{}) {
		view.Sale = hex.EncodeToString(r.Sale[:])
	}
	if r.Quote != nil {
		view.Quote = newQuoteView(*r.Quote)
	}
	if view.Events == nil {
		view.Events = []*types.Event{}
	}
	return view
}

func newAccountView(addr [20]byte, acc *types.Account) accountView {
	view := accountView{Address: address(addr)}
	if acc != nil {
		view.Nonce = acc.Nonce
		view.QuotaEpoch = acc.QuotaEpoch
		view.QuotaRequests = acc.QuotaRequests
		view.QuotaVolume = acc.QuotaVolume
	}
	return view
}
