package state

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

var (
	saleConfigPrefix = []byte("launch/config:")
	saleStatePrefix  = []byte("launch/state:")
	saleListKey      = ethcrypto.Keccak256([]byte("launch/sale-list"))
	accountPrefix    = []byte("account:")
	balancePrefix    = []byte("balance:")
	supplyPrefix     = []byte("supply:")
)

// SaleConfigKey returns the storage key of a sale configuration.
func SaleConfigKey(id [32]byte) []byte {
	return ethcrypto.Keccak256(saleConfigPrefix, id[:])
}

// SaleStateKey returns the storage key of a sale ledger record.
func SaleStateKey(id [32]byte) []byte {
	return ethcrypto.Keccak256(saleStatePrefix, id[:])
}

// SaleListKey returns the key of the sale index.
func SaleListKey() []byte {
	return append([]byte(nil), saleListKey...)
}

// AccountKey returns the storage key of an account record.
func AccountKey(addr [20]byte) []byte {
	return ethcrypto.Keccak256(accountPrefix, addr[:])
}

// BalanceKey returns the storage key of the balance of addr in asset.
func BalanceKey(asset string, addr [20]byte) []byte {
	buf := make([]byte, len(balancePrefix)+len(asset)+1+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], asset)
	buf[len(balancePrefix)+len(asset)] = ':'
	copy(buf[len(balancePrefix)+len(asset)+1:], addr[:])
	return ethcrypto.Keccak256(buf)
}

// SupplyKey returns the storage key of the circulating supply of asset.
func SupplyKey(asset string) []byte {
	return ethcrypto.Keccak256(supplyPrefix, []byte(asset))
}
