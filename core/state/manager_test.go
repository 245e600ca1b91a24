package state

import (
	"errors"
	"testing"

	"launchpad/core/types"
	"launchpad/native/launchpad"
	"launchpad/storage"
)

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestManagerBuffersUntilCommit(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	if err := m.Mint("USDC", addr(1), 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if bal, _ := NewManager(db).Balance("USDC", addr(1)); bal != 0 {
		t.Fatalf("uncommitted writes leaked: %d", bal)
	}
	if bal, _ := m.Balance("USDC", addr(1)); bal != 100 {
		t.Fatalf("overlay should read its own writes, got %d", bal)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	fresh := NewManager(db)
	if bal, _ := fresh.Balance("USDC", addr(1)); bal != 100 {
		t.Fatalf("committed balance missing, got %d", bal)
	}
	if supply, _ := fresh.TotalSupply("USDC"); supply != 100 {
		t.Fatalf("unexpected supply %d", supply)
	}

	if err := fresh.Transfer("USDC", addr(1), addr(2), 40); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	fresh.Discard()
	if fresh.Dirty() != 0 {
		t.Fatalf("discard should clear the overlay")
	}
	if bal, _ := NewManager(db).Balance("USDC", addr(2)); bal != 0 {
		t.Fatalf("discarded transfer persisted")
	}
}

func TestManagerCustodyErrors(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	if err := m.Transfer("USDC", addr(1), addr(2), 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := m.Burn("USDC", addr(1), 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance on burn, got %v", err)
	}
	if err := m.Mint("", addr(1), 1); !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("expected invalid asset, got %v", err)
	}
	if err := m.Mint("USDC", addr(1), ^uint64(0)); err != nil {
		t.Fatalf("mint max: %v", err)
	}
	if err := m.Mint("USDC", addr(2), 1); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected supply overflow, got %v", err)
	}
	if err := m.Burn("USDC", addr(1), 10); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if supply, _ := m.TotalSupply("USDC"); supply != ^uint64(0)-10 {
		t.Fatalf("unexpected supply %d", supply)
	}
}

func TestManagerSaleRecords(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	cfg := &launchpad.SaleConfig{
		ID:         launchpad.SaleID("LAUNCH"),
		Authority:  addr(0xA0),
		Treasury:   addr(0xB0),
		AssetID:    "LAUNCH",
		QuoteAsset: "USDC",
		Pricing:    launchpad.FixedPrice{Price: 3},
		GlobalCap:  10,
		StartTime:  1,
		EndTime:    2,
	}
	if err := m.SaleConfigPut(cfg); err != nil {
		t.Fatalf("put config: %v", err)
	}
	if err := m.SaleConfigPut(cfg); err != nil {
		t.Fatalf("re-put config: %v", err)
	}
	if err := m.SaleStatePut(cfg.ID, &launchpad.SaleState{Sold: 4}); err != nil {
		t.Fatalf("put state: %v", err)
	}
	if err := m.PutAccount(addr(1), &types.Account{Nonce: 7}); err != nil {
		t.Fatalf("put account: %v", err)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	reader := NewManager(db)
	ids, err := reader.SaleIDs()
	if err != nil || len(ids) != 1 || ids[0] != cfg.ID {
		t.Fatalf("unexpected sale index %v err %v", ids, err)
	}
	loaded, ok, err := reader.SaleConfigGet(cfg.ID)
	if err != nil || !ok || loaded.Pricing != cfg.Pricing {
		t.Fatalf("unexpected config %+v ok=%v err=%v", loaded, ok, err)
	}
	state, ok, err := reader.SaleStateGet(cfg.ID)
	if err != nil || !ok || state.Sold != 4 {
		t.Fatalf("unexpected state %+v ok=%v err=%v", state, ok, err)
	}
	if _, ok, _ := reader.SaleStateGet(launchpad.SaleID("OTHER")); ok {
		t.Fatalf("unexpected state for unknown sale")
	}
	account, err := reader.GetAccount(addr(1))
	if err != nil || account.Nonce != 7 {
		t.Fatalf("unexpected account %+v err %v", account, err)
	}
	empty, err := reader.GetAccount(addr(9))
	if err != nil || empty.Nonce != 0 {
		t.Fatalf("missing accounts should be zero")
	}
}
