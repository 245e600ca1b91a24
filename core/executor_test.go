package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"launchpad/core/events"
	"launchpad/core/state"
	"launchpad/core/types"
	"launchpad/crypto"
	"launchpad/native/common"
	"launchpad/native/launchpad"
	"launchpad/storage"
)

type signer struct {
	key  *crypto.PrivateKey
	addr [20]byte
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var addr [20]byte
	copy(addr[:], ethcrypto.PubkeyToAddress(key.PublicKey).Bytes())
	return &signer{key: key, addr: addr}
}

func (s *signer) op(t *testing.T, typ types.OpType, nonce uint64, sale [32]byte, payload interface{}) *types.Operation {
	t.Helper()
	encoded, err := launchpad.EncodePayload(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	op := &types.Operation{Type: typ, Nonce: nonce, Payload: encoded}
	if typ != types.OpTypeInitSale {
		op.Sale = append([]byte(nil), sale[:]...)
	}
	if err := op.Sign(s.key.PrivateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return op
}

type fixture struct {
	exec      *Executor
	db        storage.Database
	sink      *events.Buffer
	authority *signer
	sale      [32]byte
}

func newFixture(t *testing.T, walletCap uint64, opts ...Option) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	sink := &events.Buffer{}
	clock := func() time.Time { return time.Unix(1_500, 0) }
	opts = append([]Option{WithEmitter(sink), WithClock(clock)}, opts...)
	f := &fixture{exec: NewExecutor(db, opts...), db: db, sink: sink, authority: newSigner(t)}

	payload, err := launchpad.NewInitPayload(launchpad.InitArgs{
		AssetID:    "launch",
		QuoteAsset: "usdc",
		Pricing:    launchpad.FixedPrice{Price: 2},
		GlobalCap:  100,
		WalletCap:  walletCap,
		StartTime:  1_000,
		EndTime:    2_000,
	})
	if err != nil {
		t.Fatalf("init payload: %v", err)
	}
	receipt, err := f.exec.Submit(context.Background(), f.authority.op(t, types.OpTypeInitSale, 0, [32]byte{}, payload))
	if err != nil {
		t.Fatalf("init sale: %v", err)
	}
	f.sale = receipt.Sale
	if f.sale != launchpad.SaleID("LAUNCH") {
		t.Fatalf("unexpected sale id %x", f.sale)
	}
	f.sink.Drain()
	return f
}

func (f *fixture) fund(t *testing.T, addr [20]byte, amount uint64) {
	t.Helper()
	if err := f.exec.Credit(context.Background(), "usdc", addr, amount); err != nil {
		t.Fatalf("credit: %v", err)
	}
	f.sink.Drain()
}

func (f *fixture) balance(t *testing.T, asset string, addr [20]byte) uint64 {
	t.Helper()
	bal, err := f.exec.Balance(asset, addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func TestExecutorBuyCommitsAtomically(t *testing.T) {
	f := newFixture(t, 10)
	alice := newSigner(t)
	f.fund(t, alice.addr, 100)

	receipt, err := f.exec.Submit(context.Background(), alice.op(t, types.OpTypeBuy, 0, f.sale, launchpad.BuyPayload{Amount: 4, MaxQuote: 8}))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if receipt.Quote == nil || receipt.Quote.QuoteAmount != 8 {
		t.Fatalf("unexpected quote %+v", receipt.Quote)
	}
	if receipt.State == nil || receipt.State.Sold != 4 || receipt.State.Proceeds != 8 {
		t.Fatalf("unexpected state %+v", receipt.State)
	}
	if got := f.balance(t, "USDC", alice.addr); got != 92 {
		t.Fatalf("expected 92 USDC, got %d", got)
	}
	if got := f.balance(t, "LAUNCH", alice.addr); got != 4 {
		t.Fatalf("expected 4 LAUNCH, got %d", got)
	}
	if got := f.balance(t, "USDC", launchpad.TreasuryAddress(f.sale)); got != 8 {
		t.Fatalf("expected treasury to hold 8, got %d", got)
	}
	account, err := f.exec.Account(alice.addr)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.Nonce != 1 {
		t.Fatalf("expected nonce 1, got %d", account.Nonce)
	}

	seen := map[string]bool{}
	for _, evt := range receipt.Events {
		seen[evt.Type] = true
	}
	for _, want := range []string{events.TypeTransfer, events.TypeMint, launchpad.EventTypeSalePurchase, launchpad.EventTypeTreasuryMovement} {
		if !seen[want] {
			t.Fatalf("missing event %s in %v", want, seen)
		}
	}
	if f.sink.Len() != len(receipt.Events) {
		t.Fatalf("expected %d forwarded events, got %d", len(receipt.Events), f.sink.Len())
	}
}

func TestExecutorRejectedOperationLeavesNoTrace(t *testing.T) {
	f := newFixture(t, 10)
	alice := newSigner(t)
	f.fund(t, alice.addr, 100)

	_, err := f.exec.Submit(context.Background(), alice.op(t, types.OpTypeBuy, 0, f.sale, launchpad.BuyPayload{Amount: 11, MaxQuote: 100}))
	if !errors.Is(err, launchpad.ErrWalletCapExceeded) {
		t.Fatalf("expected wallet cap error, got %v", err)
	}
	if ErrorKind(err) != "wallet_cap_exceeded" {
		t.Fatalf("unexpected kind %q", ErrorKind(err))
	}
	if f.sink.Len() != 0 {
		t.Fatalf("rejected operation must not emit events")
	}
	account, err := f.exec.Account(alice.addr)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.Nonce != 0 {
		t.Fatalf("rejected operation consumed nonce")
	}
	if got := f.balance(t, "USDC", alice.addr); got != 100 {
		t.Fatalf("balance changed on rejection: %d", got)
	}
	sale, err := f.exec.Sale(f.sale)
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if sale.State.Sold != 0 || sale.State.Status != launchpad.SaleStatusPending {
		t.Fatalf("sale mutated on rejection: %+v", sale.State)
	}
}

func TestExecutorUnfundedBuyerFails(t *testing.T) {
	f := newFixture(t, 10)
	bob := newSigner(t)
	_, err := f.exec.Submit(context.Background(), bob.op(t, types.OpTypeBuy, 0, f.sale, launchpad.BuyPayload{Amount: 1, MaxQuote: 2}))
	if !errors.Is(err, state.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if got := f.balance(t, "LAUNCH", bob.addr); got != 0 {
		t.Fatalf("tokens minted despite failed payment")
	}
}

func TestExecutorNonceReplay(t *testing.T) {
	f := newFixture(t, 10)
	alice := newSigner(t)
	f.fund(t, alice.addr, 100)
	op := alice.op(t, types.OpTypeBuy, 0, f.sale, launchpad.BuyPayload{Amount: 1, MaxQuote: 2})
	if _, err := f.exec.Submit(context.Background(), op); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := f.exec.Submit(context.Background(), op); !errors.Is(err, ErrNonceMismatch) {
		t.Fatalf("expected nonce mismatch on replay, got %v", err)
	}
}

func TestExecutorRejectsUnsignedAndUnknown(t *testing.T) {
	f := newFixture(t, 10)
	if _, err := f.exec.Submit(context.Background(), &types.Operation{Type: types.OpTypeBuy}); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
	alice := newSigner(t)
	op := alice.op(t, types.OpTypeBuy, 0, [32]byte{0x01}, launchpad.BuyPayload{Amount: 1, MaxQuote: 2})
	if _, err := f.exec.Submit(context.Background(), op); !errors.Is(err, launchpad.ErrSaleNotFound) {
		t.Fatalf("expected sale not found, got %v", err)
	}
	noSale := alice.op(t, types.OpTypeSettle, 0, f.sale, launchpad.SettlePayload{})
	noSale.Sale = nil
	if err := noSale.Sign(alice.key.PrivateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := f.exec.Submit(context.Background(), noSale); !errors.Is(err, ErrSaleRequired) {
		t.Fatalf("expected sale required, got %v", err)
	}
	bogus := alice.op(t, types.OpType(0x7f), 0, f.sale, launchpad.SettlePayload{})
	if _, err := f.exec.Submit(context.Background(), bogus); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected unknown operation, got %v", err)
	}
}

func TestExecutorPausedModule(t *testing.T) {
	pauses := common.NewPauseSet()
	f := newFixture(t, 10, WithPauses(pauses))
	alice := newSigner(t)
	f.fund(t, alice.addr, 100)
	pauses.Pause(launchpad.ModuleName)
	_, err := f.exec.Submit(context.Background(), alice.op(t, types.OpTypeBuy, 0, f.sale, launchpad.BuyPayload{Amount: 1, MaxQuote: 2}))
	if !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if ErrorKind(err) != "paused" {
		t.Fatalf("unexpected kind %q", ErrorKind(err))
	}
	pauses.Resume(launchpad.ModuleName)
	if _, err := f.exec.Submit(context.Background(), alice.op(t, types.OpTypeBuy, 0, f.sale, launchpad.BuyPayload{Amount: 1, MaxQuote: 2})); err != nil {
		t.Fatalf("buy after resume: %v", err)
	}
}

func TestExecutorQuota(t *testing.T) {
	f := newFixture(t, 10, WithQuota(common.Quota{MaxRequestsPerEpoch: 1, EpochSeconds: 60}))
	alice := newSigner(t)
	f.fund(t, alice.addr, 100)
	if _, err := f.exec.Submit(context.Background(), alice.op(t, types.OpTypeBuy, 0, f.sale, launchpad.BuyPayload{Amount: 1, MaxQuote: 2})); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	_, err := f.exec.Submit(context.Background(), alice.op(t, types.OpTypeBuy, 1, f.sale, launchpad.BuyPayload{Amount: 1, MaxQuote: 2}))
	if !errors.Is(err, common.ErrQuotaRequestsExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if ErrorKind(err) != "quota_exceeded" {
		t.Fatalf("unexpected kind %q", ErrorKind(err))
	}
}

func TestExecutorUpdateAndWithdraw(t *testing.T) {
	f := newFixture(t, 10)
	alice := newSigner(t)
	f.fund(t, alice.addr, 100)
	if _, err := f.exec.Submit(context.Background(), alice.op(t, types.OpTypeBuy, 0, f.sale, launchpad.BuyPayload{Amount: 5, MaxQuote: 10})); err != nil {
		t.Fatalf("buy: %v", err)
	}

	walletCap := uint64(20)
	update := launchpad.NewUpdatePayload(launchpad.UpdateArgs{WalletCap: &walletCap})
	if _, err := f.exec.Submit(context.Background(), alice.op(t, types.OpTypeUpdateSale, 1, f.sale, update)); !errors.Is(err, launchpad.ErrUnauthorized) {
		t.Fatalf("expected unauthorized update, got %v", err)
	}
	if _, err := f.exec.Submit(context.Background(), f.authority.op(t, types.OpTypeUpdateSale, 1, f.sale, update)); err != nil {
		t.Fatalf("update: %v", err)
	}
	sale, err := f.exec.Sale(f.sale)
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if sale.Config.WalletCap != 20 {
		t.Fatalf("wallet cap not updated: %d", sale.Config.WalletCap)
	}

	dest := newSigner(t)
	withdraw := launchpad.WithdrawPayload{Amount: 6, Destination: dest.addr}
	if _, err := f.exec.Submit(context.Background(), f.authority.op(t, types.OpTypeWithdrawTreasury, 2, f.sale, withdraw)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := f.balance(t, "USDC", dest.addr); got != 6 {
		t.Fatalf("expected destination to hold 6, got %d", got)
	}
	if got := f.balance(t, "USDC", launchpad.TreasuryAddress(f.sale)); got != 4 {
		t.Fatalf("expected treasury to hold 4, got %d", got)
	}
}

func TestExecutorConcurrentBuyersRespectGlobalCap(t *testing.T) {
	f := newFixture(t, 0)
	buyers := make([]*signer, 30)
	for i := range buyers {
		buyers[i] = newSigner(t)
		f.fund(t, buyers[i].addr, 100)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for _, b := range buyers {
		wg.Add(1)
		go func(b *signer) {
			defer wg.Done()
			op := b.op(t, types.OpTypeBuy, 0, f.sale, launchpad.BuyPayload{Amount: 4, MaxQuote: 8})
			if _, err := f.exec.Submit(context.Background(), op); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, launchpad.ErrCapExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		}(b)
	}
	wg.Wait()

	if accepted != 25 {
		t.Fatalf("expected 25 accepted buys, got %d", accepted)
	}
	sale, err := f.exec.Sale(f.sale)
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if sale.State.Sold != 100 || sale.State.Proceeds != 200 {
		t.Fatalf("unexpected ledger %+v", sale.State)
	}
	if got := f.balance(t, "USDC", launchpad.TreasuryAddress(f.sale)); got != 200 {
		t.Fatalf("treasury mismatch %d", got)
	}
}

func TestExecutorSalesAndQuotes(t *testing.T) {
	f := newFixture(t, 10)
	sales, err := f.exec.Sales()
	if err != nil {
		t.Fatalf("sales: %v", err)
	}
	if len(sales) != 1 || sales[0].Config.ID != f.sale {
		t.Fatalf("unexpected sales %+v", sales)
	}
	quote, err := f.exec.QuoteBuy(f.sale, 3)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.QuoteAmount != 6 {
		t.Fatalf("expected quote 6, got %d", quote.QuoteAmount)
	}
	if _, err := f.exec.QuoteSell(f.sale, 1); !errors.Is(err, launchpad.ErrUnsupportedPricingModel) {
		t.Fatalf("expected unsupported model for fixed sell, got %v", err)
	}
}

func TestErrorKindFallsBackToInternal(t *testing.T) {
	if ErrorKind(errors.New("disk on fire")) != "internal" {
		t.Fatalf("expected internal")
	}
	if ErrorKind(context.Canceled) != "canceled" {
		t.Fatalf("expected canceled")
	}
	if ErrorKind(nil) != "" {
		t.Fatalf("expected empty kind for nil")
	}
}

func TestExecutorInitCannotClaimAnotherAccountAsTreasury(t *testing.T) {
	f := newFixture(t, 0)
	victim := newSigner(t)
	f.fund(t, victim.addr, 1_000)

	attacker := newSigner(t)
	payload, err := launchpad.NewInitPayload(launchpad.InitArgs{
		AssetID:    "rug",
		QuoteAsset: "usdc",
		Treasury:   victim.addr,
		Pricing:    launchpad.FixedPrice{Price: 1},
		GlobalCap:  10,
		StartTime:  1_000,
		EndTime:    2_000,
	})
	if err != nil {
		t.Fatalf("init payload: %v", err)
	}
	if _, err := f.exec.Submit(context.Background(), attacker.op(t, types.OpTypeInitSale, 0, [32]byte{}, payload)); !errors.Is(err, launchpad.ErrConfigurationInvalid) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	withdraw := launchpad.WithdrawPayload{Amount: 1_000, Destination: attacker.addr}
	if _, err := f.exec.Submit(context.Background(), attacker.op(t, types.OpTypeWithdrawTreasury, 0, launchpad.SaleID("rug"), withdraw)); err == nil {
		t.Fatalf("withdraw against a rejected sale must fail")
	}
	if got := f.balance(t, "USDC", victim.addr); got != 1_000 {
		t.Fatalf("victim balance changed to %d", got)
	}
	if got := f.balance(t, "USDC", attacker.addr); got != 0 {
		t.Fatalf("attacker received %d", got)
	}
}
