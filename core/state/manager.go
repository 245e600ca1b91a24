package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"launchpad/core/types"
	"launchpad/native/launchpad"
	"launchpad/storage"
)

var (
	ErrInsufficientBalance = errors.New("state: insufficient balance")
	ErrBalanceOverflow     = errors.New("state: balance overflow")
	ErrInvalidAsset        = errors.New("state: invalid asset")
)

// Manager buffers reads and writes against a database. Writes stay in an
// in-memory overlay until Commit flushes them as one batch; Discard drops
// them. A Manager is used by one operation at a time.
type Manager struct {
	db      storage.Database
	pending map[string][]byte
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, pending: make(map[string][]byte)}
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	if value, ok := m.pending[string(key)]; ok {
		return value, true, nil
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) put(key, value []byte) {
	m.pending[string(key)] = append([]byte(nil), value...)
}

func (m *Manager) putRLP(key []byte, v interface{}) error {
	encoded, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	m.put(key, encoded)
	return nil
}

// Dirty reports the number of buffered writes.
func (m *Manager) Dirty() int { return len(m.pending) }

// Commit writes every buffered change in a single batch.
func (m *Manager) Commit() error {
	if len(m.pending) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m.pending))
	for k := range m.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := m.db.NewBatch()
	for _, k := range keys {
		batch.Put([]byte(k), m.pending[k])
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	m.pending = make(map[string][]byte)
	return nil
}

// Discard drops every buffered change.
func (m *Manager) Discard() {
	m.pending = make(map[string][]byte)
}

// SaleConfigGet loads a sale configuration.
func (m *Manager) SaleConfigGet(id [32]byte) (*launchpad.SaleConfig, bool, error) {
	data, ok, err := m.get(SaleConfigKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	cfg, err := launchpad.DecodeSaleConfig(data)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// SaleConfigPut stores a sale configuration and indexes new sales.
func (m *Manager) SaleConfigPut(cfg *launchpad.SaleConfig) error {
	encoded, err := launchpad.EncodeSaleConfig(cfg)
	if err != nil {
		return err
	}
	_, exists, err := m.get(SaleConfigKey(cfg.ID))
	if err != nil {
		return err
	}
	m.put(SaleConfigKey(cfg.ID), encoded)
	if exists {
		return nil
	}
	ids, err := m.SaleIDs()
	if err != nil {
		return err
	}
	ids = append(ids, cfg.ID)
	return m.putRLP(saleListKey, ids)
}

// SaleStateGet loads a sale ledger record.
func (m *Manager) SaleStateGet(id [32]byte) (*launchpad.SaleState, bool, error) {
	data, ok, err := m.get(SaleStateKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	state, err := launchpad.DecodeSaleState(data)
	if err != nil {
		return nil, false, err
	}
	return state, true, nil
}

// SaleStatePut stores a sale ledger record.
func (m *Manager) SaleStatePut(id [32]byte, state *launchpad.SaleState) error {
	encoded, err := launchpad.EncodeSaleState(state)
	if err != nil {
		return err
	}
	m.put(SaleStateKey(id), encoded)
	return nil
}

// SaleIDs lists every initialised sale in creation order.
func (m *Manager) SaleIDs() ([][32]byte, error) {
	data, ok, err := m.get(saleListKey)
	if err != nil {
		return nil, err
	}
	if !ok || len(data) == 0 {
		return [][32]byte{}, nil
	}
	var ids [][32]byte
	if err := rlp.DecodeBytes(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetAccount returns the account of addr, or a zero account.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	data, ok, err := m.get(AccountKey(addr))
	if err != nil {
		return nil, err
	}
	account := new(types.Account)
	if !ok {
		return account, nil
	}
	if err := rlp.DecodeBytes(data, account); err != nil {
		return nil, err
	}
	return account, nil
}

// PutAccount stores the account of addr.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		account = new(types.Account)
	}
	return m.putRLP(AccountKey(addr), account)
}

// Balance returns the balance of addr in asset.
func (m *Manager) Balance(asset string, addr [20]byte) (uint64, error) {
	return m.loadUint(BalanceKey(asset, addr))
}

// TotalSupply returns the minted-minus-burned supply of asset.
func (m *Manager) TotalSupply(asset string) (uint64, error) {
	return m.loadUint(SupplyKey(asset))
}

// Transfer moves amount of asset between addresses.
func (m *Manager) Transfer(asset string, from, to [20]byte, amount uint64) error {
	if asset == "" {
		return ErrInvalidAsset
	}
	if amount == 0 || from == to {
		return nil
	}
	fromBal, err := m.Balance(asset, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%w: %s has %d %s, needs %d", ErrInsufficientBalance, shortAddr(from), fromBal, asset, amount)
	}
	toBal, err := m.Balance(asset, to)
	if err != nil {
		return err
	}
	if toBal+amount < toBal {
		return ErrBalanceOverflow
	}
	if err := m.storeUint(BalanceKey(asset, from), fromBal-amount); err != nil {
		return err
	}
	return m.storeUint(BalanceKey(asset, to), toBal+amount)
}

// Mint credits amount of asset to addr and grows the supply.
func (m *Manager) Mint(asset string, to [20]byte, amount uint64) error {
	if asset == "" {
		return ErrInvalidAsset
	}
	if amount == 0 {
		return nil
	}
	supply, err := m.TotalSupply(asset)
	if err != nil {
		return err
	}
	balance, err := m.Balance(asset, to)
	if err != nil {
		return err
	}
	if supply+amount < supply || balance+amount < balance {
		return ErrBalanceOverflow
	}
	if err := m.storeUint(SupplyKey(asset), supply+amount); err != nil {
		return err
	}
	return m.storeUint(BalanceKey(asset, to), balance+amount)
}

// Burn debits amount of asset from addr and shrinks the supply.
func (m *Manager) Burn(asset string, from [20]byte, amount uint64) error {
	if asset == "" {
		return ErrInvalidAsset
	}
	if amount == 0 {
		return nil
	}
	balance, err := m.Balance(asset, from)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: %s has %d %s, needs %d", ErrInsufficientBalance, shortAddr(from), balance, asset, amount)
	}
	supply, err := m.TotalSupply(asset)
	if err != nil {
		return err
	}
	if supply < amount {
		return ErrBalanceOverflow
	}
	if err := m.storeUint(SupplyKey(asset), supply-amount); err != nil {
		return err
	}
	return m.storeUint(BalanceKey(asset, from), balance-amount)
}

func (m *Manager) loadUint(key []byte) (uint64, error) {
	data, ok, err := m.get(key)
	if err != nil || !ok {
		return 0, err
	}
	var value uint64
	if err := rlp.DecodeBytes(data, &value); err != nil {
		return 0, err
	}
	return value, nil
}

func (m *Manager) storeUint(key []byte, value uint64) error {
	return m.putRLP(key, value)
}

func shortAddr(addr [20]byte) string {
	return fmt.Sprintf("%x", addr[:4])
}
