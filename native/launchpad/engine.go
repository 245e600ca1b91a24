package launchpad

import (
	"errors"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"launchpad/core/events"
	"launchpad/core/types"
	"launchpad/native/common"
)

// ModuleName identifies the launchpad in pause controls and quotas.
const ModuleName = "launchpad"

var (
	errNilState   = errors.New("launchpad engine: state not configured")
	errNilCustody = errors.New("launchpad engine: custody not configured")
)

type engineState interface {
	SaleConfigGet(id [32]byte) (*SaleConfig, bool, error)
	SaleConfigPut(cfg *SaleConfig) error
	SaleStateGet(id [32]byte) (*SaleState, bool, error)
	SaleStatePut(id [32]byte, state *SaleState) error
}

// Custody moves balances on behalf of the engine. Each call is applied fully
// or not at all.
type Custody interface {
	Transfer(asset string, from, to [20]byte, amount uint64) error
	Mint(asset string, to [20]byte, amount uint64) error
	Burn(asset string, from [20]byte, amount uint64) error
}

type launchpadEvent struct {
	evt *types.Event
}

func (e launchpadEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e launchpadEvent) Event() *types.Event { return e.evt }

// InitArgs carries the terms of a new sale. A zero Treasury selects the
// derived treasury of the sale.
type InitArgs struct {
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

// UpdateArgs lists the fields an authority may change after init.
type UpdateArgs struct {
	EndTime   *int64
	WalletCap *uint64
}

// Engine executes sale operations against a state backend and custody
// service. Every operation validates on a copy of the sale state and persists
// it only after custody succeeds.
type Engine struct {
	state   engineState
	custody Custody
	emitter events.Emitter
	pauses  common.PauseView
	nowFn   func() int64
}

// NewEngine creates an engine with a no-op emitter and the wall clock.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCustody configures the balance service used to move funds.
func (e *Engine) SetCustody(custody Custody) { e.custody = custody }

// SetPauses wires the pause view consulted before every mutation.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(launchpadEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready(mutating bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !mutating {
		return nil
	}
	if e.custody == nil {
		return errNilCustody
	}
	return common.Guard(e.pauses, ModuleName)
}

// TreasuryAddress derives the engine-controlled treasury of a sale.
func TreasuryAddress(id [32]byte) [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("launch-treasury"), id[:])[12:])
	return addr
}

// Init creates a sale and its zeroed ledger.
func (e *Engine) Init(authority [20]byte, args InitArgs) (*SaleConfig, error) {
	if err := e.ready(true); err != nil {
		return nil, err
	}
	asset := NormalizeAsset(args.AssetID)
	cfg := &SaleConfig{
		ID:         SaleID(asset),
		Authority:  authority,
		Treasury:   args.Treasury,
		AssetID:    asset,
		QuoteAsset: NormalizeAsset(args.QuoteAsset),
		Pricing:    args.Pricing,
		GlobalCap:  args.GlobalCap,
		WalletCap:  args.WalletCap,
		StartTime:  args.StartTime,
		EndTime:    args.EndTime,
	}
	if args.WhitelistRoot != nil {
		root := *args.WhitelistRoot
		cfg.WhitelistRoot = &root
	}
	// The treasury is always the sale-derived account.
	treasury := TreasuryAddress(cfg.ID)
	if cfg.Treasury != ([20]byte{}) && cfg.Treasury != treasury {
		return nil, fmt.Errorf("%w: treasury must be the sale account", ErrConfigurationInvalid)
	}
	cfg.Treasury = treasury
	if authority == ([20]byte{}) {
		return nil, fmt.Errorf("%w: authority required", ErrConfigurationInvalid)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, exists, err := e.state.SaleConfigGet(cfg.ID); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrAlreadyInitialized
	}
	if err := e.state.SaleConfigPut(cfg); err != nil {
		return nil, err
	}
	if err := e.state.SaleStatePut(cfg.ID, &SaleState{}); err != nil {
		return nil, err
	}
	e.emit(NewSaleInitializedEvent(cfg))
	return cfg.Clone(), nil
}

// Update adjusts the end time and wallet cap of a sale.
func (e *Engine) Update(caller [20]byte, id [32]byte, args UpdateArgs) (*SaleConfig, error) {
	if err := e.ready(true); err != nil {
		return nil, err
	}
	cfg, _, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if cfg.Authority != caller {
		return nil, ErrUnauthorized
	}
	next := cfg.Clone()
	if args.EndTime != nil {
		if *args.EndTime <= next.StartTime {
			return nil, fmt.Errorf("%w: end time must follow start time", ErrConfigurationInvalid)
		}
		next.EndTime = *args.EndTime
	}
	if args.WalletCap != nil {
		if *args.WalletCap != 0 && *args.WalletCap > next.GlobalCap {
			return nil, fmt.Errorf("%w: wallet cap exceeds global cap", ErrConfigurationInvalid)
		}
		next.WalletCap = *args.WalletCap
	}
	if err := e.state.SaleConfigPut(next); err != nil {
		return nil, err
	}
	e.emit(NewSaleConfigUpdatedEvent(next))
	return next.Clone(), nil
}

// Buy purchases amount tokens for buyer at no more than maxQuote quote units.
func (e *Engine) Buy(buyer [20]byte, id [32]byte, amount uint64, proof [][32]byte, maxQuote uint64) (Quote, error) {
	if err := e.ready(true); err != nil {
		return Quote{}, err
	}
	cfg, current, err := e.load(id)
	if err != nil {
		return Quote{}, err
	}
	now := e.now()
	if now < cfg.StartTime || now > cfg.EndTime {
		return Quote{}, ErrTimeWindow
	}
	if err := checkWhitelist(cfg, buyer, proof); err != nil {
		return Quote{}, err
	}
	if err := current.assertAllowsPurchase(cfg, buyer, amount); err != nil {
		return Quote{}, err
	}
	quote, err := quoteBuy(cfg, current, amount)
	if err != nil {
		return Quote{}, err
	}
	if quote.QuoteAmount > maxQuote {
		return Quote{}, ErrSlippageExceeded
	}
	next := current.Clone()
	if err := next.recordPurchase(cfg, buyer, amount, quote.QuoteAmount); err != nil {
		return Quote{}, err
	}
	if err := e.custody.Transfer(cfg.QuoteAsset, buyer, cfg.Treasury, quote.QuoteAmount); err != nil {
		return Quote{}, err
	}
	if err := e.custody.Mint(cfg.AssetID, buyer, amount); err != nil {
		return Quote{}, err
	}
	if err := e.state.SaleStatePut(id, next); err != nil {
		return Quote{}, err
	}
	e.emit(NewTreasuryMovementEvent(id, cfg.QuoteAsset, buyer, quote.QuoteAmount, TreasuryDirectionInflow, TreasuryReasonPurchase))
	e.emit(NewPurchaseEvent(id, buyer, quote, next))
	return quote, nil
}

// Sell returns amount tokens to a bonding curve for at least minQuote.
func (e *Engine) Sell(seller [20]byte, id [32]byte, amount uint64, minQuote uint64) (Quote, error) {
	if err := e.ready(true); err != nil {
		return Quote{}, err
	}
	cfg, current, err := e.load(id)
	if err != nil {
		return Quote{}, err
	}
	curve, ok := cfg.Pricing.(BondingCurve)
	if !ok {
		return Quote{}, ErrSellOnlyCurve
	}
	if current.Status == SaleStatusSettled {
		return Quote{}, ErrSaleSettled
	}
	now := e.now()
	if now < cfg.StartTime || now > cfg.EndTime {
		return Quote{}, ErrTimeWindow
	}
	if amount == 0 {
		return Quote{}, ErrInvalidAmount
	}
	calc, err := NewCurve(curve.Curve)
	if err != nil {
		return Quote{}, err
	}
	quote, err := calc.QuoteSell(current.Sold, amount)
	if err != nil {
		return Quote{}, err
	}
	if quote.QuoteAmount < minQuote {
		return Quote{}, ErrSlippageExceeded
	}
	next := current.Clone()
	if err := next.recordSell(seller, amount, quote.QuoteAmount); err != nil {
		return Quote{}, err
	}
	if err := e.custody.Burn(cfg.AssetID, seller, amount); err != nil {
		return Quote{}, err
	}
	if err := e.custody.Transfer(cfg.QuoteAsset, cfg.Treasury, seller, quote.QuoteAmount); err != nil {
		return Quote{}, err
	}
	if err := e.state.SaleStatePut(id, next); err != nil {
		return Quote{}, err
	}
	e.emit(NewTreasuryMovementEvent(id, cfg.QuoteAsset, seller, quote.QuoteAmount, TreasuryDirectionOutflow, TreasuryReasonSellback))
	e.emit(NewSellEvent(id, seller, quote, next))
	return quote, nil
}

// Bid places an auction bid of amount quote units. The bid is transferred to
// the treasury immediately.
func (e *Engine) Bid(bidder [20]byte, id [32]byte, amount uint64, proof [][32]byte) error {
	if err := e.ready(true); err != nil {
		return err
	}
	cfg, current, err := e.load(id)
	if err != nil {
		return err
	}
	params, ok := cfg.AuctionParams()
	if !ok {
		return ErrNotAuction
	}
	if current.Status == SaleStatusSettled {
		return ErrSaleSettled
	}
	now := e.now()
	if now < cfg.StartTime {
		return ErrTimeWindow
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if err := checkWhitelist(cfg, bidder, proof); err != nil {
		return err
	}
	next := current.Clone()
	if err := next.recordBid(cfg, params, bidder, amount, now); err != nil {
		return err
	}
	if err := e.custody.Transfer(cfg.QuoteAsset, bidder, cfg.Treasury, amount); err != nil {
		return err
	}
	if err := e.state.SaleStatePut(id, next); err != nil {
		return err
	}
	e.emit(NewTreasuryMovementEvent(id, cfg.QuoteAsset, bidder, amount, TreasuryDirectionInflow, TreasuryReasonBid))
	e.emit(NewBidEvent(id, bidder, amount, next))
	return nil
}

// Settle closes an auction once its possibly extended deadline has passed.
func (e *Engine) Settle(caller [20]byte, id [32]byte) (*SaleState, error) {
	if err := e.ready(true); err != nil {
		return nil, err
	}
	cfg, current, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if cfg.Authority != caller {
		return nil, ErrUnauthorized
	}
	if current.Status == SaleStatusSettled {
		return nil, ErrSaleSettled
	}
	params, ok := cfg.AuctionParams()
	if !ok {
		return nil, ErrNotAuction
	}
	next := current.Clone()
	if err := next.settleAuction(cfg, params, e.now()); err != nil {
		return nil, err
	}
	if err := e.state.SaleStatePut(id, next); err != nil {
		return nil, err
	}
	e.emit(NewSettledEvent(id, next))
	return next.Clone(), nil
}

// WithdrawTreasury moves quote asset proceeds from the sale treasury to
// destination. Only the authority may withdraw.
func (e *Engine) WithdrawTreasury(caller [20]byte, id [32]byte, amount uint64, destination [20]byte) error {
	if err := e.ready(true); err != nil {
		return err
	}
	cfg, _, err := e.load(id)
	if err != nil {
		return err
	}
	if cfg.Authority != caller {
		return ErrUnauthorized
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if destination == ([20]byte{}) {
		destination = caller
	}
	if err := e.custody.Transfer(cfg.QuoteAsset, cfg.Treasury, destination, amount); err != nil {
		return err
	}
	e.emit(NewTreasuryMovementEvent(id, cfg.QuoteAsset, destination, amount, TreasuryDirectionOutflow, TreasuryReasonWithdraw))
	return nil
}

// Sale returns copies of the configuration and state of a sale.
func (e *Engine) Sale(id [32]byte) (*Sale, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	cfg, state, err := e.load(id)
	if err != nil {
		return nil, err
	}
	return &Sale{Config: cfg.Clone(), State: state.Clone()}, nil
}

// QuoteBuy prices a purchase against the current ledger without mutating it.
func (e *Engine) QuoteBuy(id [32]byte, amount uint64) (Quote, error) {
	if err := e.ready(false); err != nil {
		return Quote{}, err
	}
	cfg, state, err := e.load(id)
	if err != nil {
		return Quote{}, err
	}
	return quoteBuy(cfg, state, amount)
}

// QuoteSell prices a curve sell-back without mutating the ledger.
func (e *Engine) QuoteSell(id [32]byte, amount uint64) (Quote, error) {
	if err := e.ready(false); err != nil {
		return Quote{}, err
	}
	cfg, state, err := e.load(id)
	if err != nil {
		return Quote{}, err
	}
	curve, ok := cfg.Pricing.(BondingCurve)
	if !ok {
		return Quote{}, ErrSellOnlyCurve
	}
	calc, err := NewCurve(curve.Curve)
	if err != nil {
		return Quote{}, err
	}
	return calc.QuoteSell(state.Sold, amount)
}

func (e *Engine) load(id [32]byte) (*SaleConfig, *SaleState, error) {
	cfg, ok, err := e.state.SaleConfigGet(id)
	if err != nil {
		return nil, nil, err
	}
	if !ok || cfg == nil {
		return nil, nil, ErrSaleNotFound
	}
	state, ok, err := e.state.SaleStateGet(id)
	if err != nil {
		return nil, nil, err
	}
	if !ok || state == nil {
		return nil, nil, ErrSaleNotFound
	}
	return cfg, state, nil
}

func quoteBuy(cfg *SaleConfig, state *SaleState, amount uint64) (Quote, error) {
	if amount == 0 {
		return Quote{}, ErrInvalidAmount
	}
	switch model := cfg.Pricing.(type) {
	case FixedPrice:
		if _, ok := addUint64(state.Sold, amount); !ok {
			return Quote{}, ErrArithmeticOverflow
		}
		total, err := FromInteger(model.Price).MulInt(amount)
		if err != nil {
			return Quote{}, err
		}
		quoteAmount, err := total.ToUint64()
		if err != nil {
			return Quote{}, err
		}
		return Quote{BaseAmount: amount, QuoteAmount: quoteAmount}, nil
	case BondingCurve:
		calc, err := NewCurve(model.Curve)
		if err != nil {
			return Quote{}, err
		}
		return calc.QuoteBuy(state.Sold, amount)
	case Auction:
		return Quote{}, ErrAuctionBidRequired
	default:
		return Quote{}, ErrUnsupportedPricingModel
	}
}

func checkWhitelist(cfg *SaleConfig, addr [20]byte, proof [][32]byte) error {
	if cfg.WhitelistRoot == nil {
		return nil
	}
	if proof == nil {
		return ErrWhitelistRequired
	}
	if !VerifyProof(BuyerLeaf(addr), proof, *cfg.WhitelistRoot) {
		return ErrWhitelistProofInvalid
	}
	return nil
}
