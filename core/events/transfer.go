package events

import (
	"encoding/hex"
	"strconv"
	"strings"

	"launchpad/core/types"
	"launchpad/crypto"
)

const (
	// TypeTransfer is emitted for every custody balance movement.
	TypeTransfer = "custody.transfer"
	// TypeMint is emitted when sale tokens are minted to a buyer.
	TypeMint = "custody.mint"
	// TypeBurn is emitted when tokens are burned on sell-back.
	TypeBurn = "custody.burn"
)

type Transfer struct {
	Asset  string
	From   [20]byte
	To     [20]byte
	Amount uint64
	OpHash [32]byte
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	attrs["from"] = crypto.MustNewAddress(crypto.LaunchPrefix, e.From[:]).String()
	attrs["to"] = crypto.MustNewAddress(crypto.LaunchPrefix, e.To[:]).String()
	attrs["amount"] = strconv.FormatUint(e.Amount, 10)
	setOpHash(attrs, e.OpHash)
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

type Supply struct {
	Minted  bool
	Asset   string
	Account [20]byte
	Amount  uint64
	OpHash  [32]byte
}

func (e Supply) EventType() string {
	if e.Minted {
		return TypeMint
	}
	return TypeBurn
}

func (e Supply) Event() *types.Event {
	attrs := map[string]string{
		"asset":   normalizeAsset(e.Asset),
		"account": crypto.MustNewAddress(crypto.LaunchPrefix, e.Account[:]).String(),
		"amount":  strconv.FormatUint(e.Amount, 10),
	}
	setOpHash(attrs, e.OpHash)
	return &types.Event{Type: e.EventType(), Attributes: attrs}
}

func setOpHash(attrs map[string]string, hash [32]byte) {
	if hash != ([32]byte{}) {
		attrs["opHash"] = "0x" + strings.ToLower(hex.EncodeToString(hash[:]))
	}
}

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}
