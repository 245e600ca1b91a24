package types

// Account carries the replay and rate counters of an address. Balances live
// in per-asset records.
type Account struct {
	Nonce         uint64 `json:"nonce"`
	QuotaEpoch    uint64 `json:"quotaEpoch"`
	QuotaRequests uint32 `json:"quotaRequests"`
	QuotaVolume   uint64 `json:"quotaVolume"`
}
