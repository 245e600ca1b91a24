package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"launchpad/core/events"
	"launchpad/core/state"
	"launchpad/core/types"
	"launchpad/native/common"
	"launchpad/native/launchpad"
	"launchpad/observability"
	"launchpad/observability/logging"
	"launchpad/storage"
)

var (
	ErrNonceMismatch    = errors.New("executor: nonce mismatch")
	ErrInvalidSignature = errors.New("executor: invalid signature")
	ErrUnknownOperation = errors.New("executor: unknown operation type")
	ErrSaleRequired     = errors.New("executor: sale identifier required")
)

const saleIndexLock = "sale-index"

// Receipt describes a committed operation.
type Receipt struct {
	OpHash [32]byte
	Type   types.OpType
	Sender [20]byte
	Sale   [32]byte
	Nonce  uint64
	Quote  *launchpad.Quote
	State  *launchpad.SaleState
	Events []*types.Event
}

// Option configures an Executor.
type Option func(*Executor)

// WithEmitter forwards committed events to emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(e *Executor) {
		if emitter != nil {
			e.emitter = emitter
		}
	}
}

// WithPauses wires the pause view consulted before every mutation.
func WithPauses(p common.PauseView) Option {
	return func(e *Executor) { e.pauses = p }
}

// WithQuota enables per-sender request and volume limits.
func WithQuota(q common.Quota) Option {
	return func(e *Executor) { e.quota = q }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Executor applies signed operations to the ledger. Each operation runs
// against its own state overlay while holding locks on every record it may
// touch; the overlay is committed in one batch or dropped on failure, so an
// operation is applied entirely or not at all.
type Executor struct {
	db      storage.Database
	locks   *KeyedLocks
	emitter events.Emitter
	pauses  common.PauseView
	quota   common.Quota
	now     func() time.Time
	logger  *slog.Logger
	metrics *observability.LaunchpadMetrics
}

// NewExecutor creates an executor over db.
func NewExecutor(db storage.Database, opts ...Option) *Executor {
	e := &Executor{
		db:      db,
		locks:   NewKeyedLocks(),
		emitter: events.NoopEmitter{},
		now:     time.Now,
		logger:  slog.Default(),
		metrics: observability.Launchpad(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type plan struct {
	sale   [32]byte
	keys   []string
	volume uint64
	apply  func(eng *launchpad.Engine, sender [20]byte, r *Receipt) error
}

// Submit verifies, executes and commits op.
func (e *Executor) Submit(ctx context.Context, op *types.Operation) (*Receipt, error) {
	start := e.now()
	receipt, err := e.submit(ctx, op, start)
	label := "unknown"
	if op != nil {
		label = op.Type.String()
	}
	e.metrics.Observe(label, ErrorKind(err), time.Since(start))
	if err != nil {
		e.logger.Warn("operation rejected",
			slog.String("op", label),
			slog.String("outcome", ErrorKind(err)),
			slog.String("error", err.Error()))
		return nil, err
	}
	e.logger.Info("operation committed",
		slog.String("op", label),
		slog.String("sale", hex.EncodeToString(receipt.Sale[:])),
		logging.MaskField("sender", hex.EncodeToString(receipt.Sender[:])),
		slog.Uint64("nonce", receipt.Nonce))
	return receipt, nil
}

func (e *Executor) submit(ctx context.Context, op *types.Operation, now time.Time) (*Receipt, error) {
	if op == nil {
		return nil, fmt.Errorf("%w: nil operation", ErrUnknownOperation)
	}
	from, err := op.From()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var sender [20]byte
	copy(sender[:], from)
	hash, err := op.Hash()
	if err != nil {
		return nil, err
	}
	receipt := &Receipt{Type: op.Type, Sender: sender, Nonce: op.Nonce}
	copy(receipt.OpHash[:], hash)

	p, err := e.prepare(op, sender)
	if err != nil {
		return nil, err
	}
	receipt.Sale = p.sale

	waitStart := time.Now()
	release, err := e.locks.Acquire(ctx, p.keys...)
	if err != nil {
		return nil, err
	}
	defer release()
	e.metrics.ObserveLockWait(time.Since(waitStart))

	mgr := state.NewManager(e.db)
	account, err := mgr.GetAccount(sender)
	if err != nil {
		return nil, err
	}
	if op.Nonce != account.Nonce {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, account.Nonce, op.Nonce)
	}
	if e.quota.Enabled() {
		prev := common.QuotaNow{ReqCount: account.QuotaRequests, VolumeUsed: account.QuotaVolume, EpochID: account.QuotaEpoch}
		next, err := common.CheckQuota(e.quota, e.quota.EpochAt(now.Unix()), prev, 1, p.volume)
		if err != nil {
			observability.ModuleMetrics().RecordThrottle(launchpad.ModuleName, "quota_exceeded")
			return nil, err
		}
		account.QuotaEpoch = next.EpochID
		account.QuotaRequests = next.ReqCount
		account.QuotaVolume = next.VolumeUsed
	}

	buffer := &events.Buffer{}
	engine := launchpad.NewEngine()
	engine.SetState(mgr)
	engine.SetCustody(&recordingCustody{state: mgr, sink: buffer, opHash: receipt.OpHash})
	engine.SetEmitter(buffer)
	engine.SetPauses(e.pauses)
	engine.SetNowFunc(func() int64 { return now.Unix() })

	if err := p.apply(engine, sender, receipt); err != nil {
		mgr.Discard()
		return nil, err
	}
	account.Nonce++
	if err := mgr.PutAccount(sender, account); err != nil {
		mgr.Discard()
		return nil, err
	}
	if saleState, ok, err := mgr.SaleStateGet(receipt.Sale); err == nil && ok {
		receipt.State = saleState
	}
	if err := mgr.Commit(); err != nil {
		return nil, err
	}

	for _, evt := range buffer.FlushTo(e.emitter) {
		if payload := events.Canonical(evt); payload != nil {
			receipt.Events = append(receipt.Events, payload)
			observability.Events().RecordEvent(payload.Type)
		}
	}
	if receipt.State != nil {
		if cfg, ok, err := mgr.SaleConfigGet(receipt.Sale); err == nil && ok {
			e.metrics.SetSold(cfg.AssetID, receipt.State.Sold)
			if receipt.Quote != nil {
				e.metrics.RecordVolume(cfg.QuoteAsset, op.Type.String(), receipt.Quote.QuoteAmount)
			}
		}
	}
	return receipt, nil
}

func (e *Executor) prepare(op *types.Operation, sender [20]byte) (*plan, error) {
	if op.Type == types.OpTypeInitSale {
		var payload launchpad.InitPayload
		if err := launchpad.DecodePayload(op.Payload, &payload); err != nil {
			return nil, err
		}
		args, err := payload.Args()
		if err != nil {
			return nil, err
		}
		id := launchpad.SaleID(launchpad.NormalizeAsset(args.AssetID))
		return &plan{
			sale: id,
			keys: []string{saleIndexLock, saleLock(id), accountLock(sender)},
			apply: func(eng *launchpad.Engine, sender [20]byte, r *Receipt) error {
				cfg, err := eng.Init(sender, args)
				if err != nil {
					return err
				}
				r.Sale = cfg.ID
				return nil
			},
		}, nil
	}

	if len(op.Sale) != 32 {
		return nil, ErrSaleRequired
	}
	var id [32]byte
	copy(id[:], op.Sale)
	// Treasury and assets never change after init, so they can be read
	// before the sale lock is taken.
	cfg, ok, err := state.NewManager(e.db).SaleConfigGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, launchpad.ErrSaleNotFound
	}
	p := &plan{
		sale: id,
		keys: []string{saleLock(id), accountLock(sender), accountLock(cfg.Treasury), assetLock(cfg.AssetID)},
	}

	switch op.Type {
	case types.OpTypeUpdateSale:
		var payload launchpad.UpdatePayload
		if err := launchpad.DecodePayload(op.Payload, &payload); err != nil {
			return nil, err
		}
		p.apply = func(eng *launchpad.Engine, sender [20]byte, _ *Receipt) error {
			_, err := eng.Update(sender, id, payload.Args())
			return err
		}
	case types.OpTypeBuy:
		var payload launchpad.BuyPayload
		if err := launchpad.DecodePayload(op.Payload, &payload); err != nil {
			return nil, err
		}
		p.volume = payload.Amount
		p.apply = func(eng *launchpad.Engine, sender [20]byte, r *Receipt) error {
			quote, err := eng.Buy(sender, id, payload.Amount, payload.WhitelistProof(), payload.MaxQuote)
			if err != nil {
				return err
			}
			r.Quote = &quote
			return nil
		}
	case types.OpTypeSell:
		var payload launchpad.SellPayload
		if err := launchpad.DecodePayload(op.Payload, &payload); err != nil {
			return nil, err
		}
		p.volume = payload.Amount
		p.apply = func(eng *launchpad.Engine, sender [20]byte, r *Receipt) error {
			quote, err := eng.Sell(sender, id, payload.Amount, payload.MinQuote)
			if err != nil {
				return err
			}
			r.Quote = &quote
			return nil
		}
	case types.OpTypeBid:
		var payload launchpad.BidPayload
		if err := launchpad.DecodePayload(op.Payload, &payload); err != nil {
			return nil, err
		}
		p.volume = payload.Amount
		p.apply = func(eng *launchpad.Engine, sender [20]byte, r *Receipt) error {
			if err := eng.Bid(sender, id, payload.Amount, payload.WhitelistProof()); err != nil {
				return err
			}
			r.Quote = &launchpad.Quote{QuoteAmount: payload.Amount}
			return nil
		}
	case types.OpTypeSettle:
		var payload launchpad.SettlePayload
		if err := launchpad.DecodePayload(op.Payload, &payload); err != nil {
			return nil, err
		}
		p.apply = func(eng *launchpad.Engine, sender [20]byte, _ *Receipt) error {
			_, err := eng.Settle(sender, id)
			return err
		}
	case types.OpTypeWithdrawTreasury:
		var payload launchpad.WithdrawPayload
		if err := launchpad.DecodePayload(op.Payload, &payload); err != nil {
			return nil, err
		}
		p.volume = payload.Amount
		p.keys = append(p.keys, accountLock(payload.Destination))
		p.apply = func(eng *launchpad.Engine, sender [20]byte, _ *Receipt) error {
			return eng.WithdrawTreasury(sender, id, payload.Amount, payload.Destination)
		}
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownOperation, byte(op.Type))
	}
	return p, nil
}

// Credit mints amount of asset to addr outside any sale. It funds accounts
// from genesis allocations and the admin API.
func (e *Executor) Credit(ctx context.Context, asset string, addr [20]byte, amount uint64) error {
	asset = launchpad.NormalizeAsset(asset)
	release, err := e.locks.Acquire(ctx, accountLock(addr), assetLock(asset))
	if err != nil {
		return err
	}
	defer release()
	mgr := state.NewManager(e.db)
	if err := mgr.Mint(asset, addr, amount); err != nil {
		return err
	}
	if err := mgr.Commit(); err != nil {
		return err
	}
	if amount > 0 {
		e.emitter.Emit(events.Supply{Minted: true, Asset: asset, Account: addr, Amount: amount})
		observability.Events().RecordEvent(events.TypeMint)
	}
	e.logger.Info("account credited",
		slog.String("asset", asset),
		logging.MaskField("account", hex.EncodeToString(addr[:])),
		slog.Uint64("amount", amount))
	return nil
}

// Sale returns the configuration and ledger of a sale.
func (e *Executor) Sale(id [32]byte) (*launchpad.Sale, error) {
	return e.reader().Sale(id)
}

// Sales lists every sale in creation order.
func (e *Executor) Sales() ([]*launchpad.Sale, error) {
	mgr := state.NewManager(e.db)
	ids, err := mgr.SaleIDs()
	if err != nil {
		return nil, err
	}
	eng := launchpad.NewEngine()
	eng.SetState(mgr)
	out := make([]*launchpad.Sale, 0, len(ids))
	for _, id := range ids {
		sale, err := eng.Sale(id)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, nil
}

// QuoteBuy prices a purchase without executing it.
func (e *Executor) QuoteBuy(id [32]byte, amount uint64) (launchpad.Quote, error) {
	return e.reader().QuoteBuy(id, amount)
}

// QuoteSell prices a curve sell-back without executing it.
func (e *Executor) QuoteSell(id [32]byte, amount uint64) (launchpad.Quote, error) {
	return e.reader().QuoteSell(id, amount)
}

// Balance returns the committed balance of addr in asset.
func (e *Executor) Balance(asset string, addr [20]byte) (uint64, error) {
	return state.NewManager(e.db).Balance(launchpad.NormalizeAsset(asset), addr)
}

// Account returns the committed account record of addr.
func (e *Executor) Account(addr [20]byte) (*types.Account, error) {
	return state.NewManager(e.db).GetAccount(addr)
}

func (e *Executor) reader() *launchpad.Engine {
	eng := launchpad.NewEngine()
	eng.SetState(state.NewManager(e.db))
	eng.SetNowFunc(func() int64 { return e.now().Unix() })
	return eng
}

type recordingCustody struct {
	state  *state.Manager
	sink   events.Emitter
	opHash [32]byte
}

func (c *recordingCustody) Transfer(asset string, from, to [20]byte, amount uint64) error {
	if err := c.state.Transfer(asset, from, to, amount); err != nil {
		return err
	}
	if amount > 0 && from != to {
		c.sink.Emit(events.Transfer{Asset: asset, From: from, To: to, Amount: amount, OpHash: c.opHash})
	}
	return nil
}

func (c *recordingCustody) Mint(asset string, to [20]byte, amount uint64) error {
	if err := c.state.Mint(asset, to, amount); err != nil {
		return err
	}
	if amount > 0 {
		c.sink.Emit(events.Supply{Minted: true, Asset: asset, Account: to, Amount: amount, OpHash: c.opHash})
	}
	return nil
}

func (c *recordingCustody) Burn(asset string, from [20]byte, amount uint64) error {
	if err := c.state.Burn(asset, from, amount); err != nil {
		return err
	}
	if amount > 0 {
		c.sink.Emit(events.Supply{Asset: asset, Account: from, Amount: amount, OpHash: c.opHash})
	}
	return nil
}

func saleLock(id [32]byte) string      { return "sale:" + hex.EncodeToString(id[:]) }
func accountLock(addr [20]byte) string { return "account:" + hex.EncodeToString(addr[:]) }
func assetLock(asset string) string    { return "asset:" + asset }

// ErrorKind returns a stable label for err suitable for metrics and API
// responses. Unrecognised errors map to "internal".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if kind := launchpad.ErrorKind(err); kind != "" {
		return kind
	}
	switch {
	case errors.Is(err, ErrNonceMismatch):
		return "nonce_mismatch"
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, types.ErrMissingSignature):
		return "invalid_signature"
	case errors.Is(err, ErrUnknownOperation):
		return "unknown_operation"
	case errors.Is(err, ErrSaleRequired):
		return "sale_required"
	case errors.Is(err, common.ErrModulePaused):
		return "paused"
	case errors.Is(err, common.ErrQuotaRequestsExceeded), errors.Is(err, common.ErrQuotaVolumeExceeded),
		errors.Is(err, common.ErrQuotaCounterOverflow):
		return "quota_exceeded"
	case errors.Is(err, state.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, state.ErrBalanceOverflow):
		return "balance_overflow"
	case errors.Is(err, state.ErrInvalidAsset):
		return "invalid_asset"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
