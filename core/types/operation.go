package types

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// OpType defines the purpose of an operation.
type OpType byte

const (
	OpTypeInitSale         OpType = 0x01
	OpTypeUpdateSale       OpType = 0x02
	OpTypeBuy              OpType = 0x03
	OpTypeSell             OpType = 0x04
	OpTypeBid              OpType = 0x05
	OpTypeSettle           OpType = 0x06
	OpTypeWithdrawTreasury OpType = 0x07
)

var ErrMissingSignature = errors.New("operation: missing signature")

// String returns the lowercase label used in logs and metrics.
func (t OpType) String() string {
	switch t {
	case OpTypeInitSale:
		return "init"
	case OpTypeUpdateSale:
		return "update"
	case OpTypeBuy:
		return "buy"
	case OpTypeSell:
		return "sell"
	case OpTypeBid:
		return "bid"
	case OpTypeSettle:
		return "settle"
	case OpTypeWithdrawTreasury:
		return "withdraw"
	default:
		return "unknown"
	}
}

// Operation is a signed request to mutate a sale. Payload carries the
// RLP-encoded arguments of Type. Sale is empty for init, where the sale
// identifier is derived from the payload.
type Operation struct {
	Type    OpType `json:"type"`
	Nonce   uint64 `json:"nonce"`
	Sale    []byte `json:"sale,omitempty"`
	Payload []byte `json:"payload"`

	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

type operationJSON struct {
	Type    hexutil.Uint64 `json:"type"`
	Nonce   hexutil.Uint64 `json:"nonce"`
	Sale    hexutil.Bytes  `json:"sale,omitempty"`
	Payload hexutil.Bytes  `json:"payload"`
	R       *hexutil.Big   `json:"r"`
	S       *hexutil.Big   `json:"s"`
	V       *hexutil.Big   `json:"v"`
}

// MarshalJSON encodes the operation with 0x-prefixed hex fields.
func (op Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(operationJSON{
		Type:    hexutil.Uint64(op.Type),
		Nonce:   hexutil.Uint64(op.Nonce),
		Sale:    op.Sale,
		Payload: op.Payload,
		R:       (*hexutil.Big)(op.R),
		S:       (*hexutil.Big)(op.S),
		V:       (*hexutil.Big)(op.V),
	})
}

// UnmarshalJSON decodes the hex form produced by MarshalJSON. Unknown
// fields are rejected.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var raw operationJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("operation: %w", err)
	}
	if uint64(raw.Type) > 0xff {
		return fmt.Errorf("operation: type 0x%x out of range", uint64(raw.Type))
	}
	*op = Operation{
		Type:    OpType(raw.Type),
		Nonce:   uint64(raw.Nonce),
		Sale:    raw.Sale,
		Payload: raw.Payload,
		R:       (*big.Int)(raw.R),
		S:       (*big.Int)(raw.S),
		V:       (*big.Int)(raw.V),
	}
	return nil
}

// Signed reports whether all signature components are present.
func (op *Operation) Signed() bool {
	return op.R != nil && op.S != nil && op.V != nil
}

// Hash commits to every unsigned field of the operation.
func (op *Operation) Hash() ([]byte, error) {
	body := struct {
		Type    OpType
		Nonce   uint64
		Sale    []byte
		Payload []byte
	}{op.Type, op.Nonce, op.Sale, op.Payload}

	b, err := rlp.EncodeToBytes(&body)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(b), nil
}

// Sign attaches a secp256k1 signature over Hash.
func (op *Operation) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := op.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	op.R = new(big.Int).SetBytes(sig[:32])
	op.S = new(big.Int).SetBytes(sig[32:64])
	op.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	op.from = nil
	return nil
}

// From recovers the signer address.
func (op *Operation) From() ([]byte, error) {
	if op.from != nil {
		return op.from, nil
	}
	if op.R == nil || op.S == nil || op.V == nil {
		return nil, ErrMissingSignature
	}
	if len(op.R.Bytes()) > 32 || len(op.S.Bytes()) > 32 || op.V.Uint64() < 27 {
		return nil, ErrMissingSignature
	}
	hash, err := op.Hash()
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	copy(sig[32-len(op.R.Bytes()):32], op.R.Bytes())
	copy(sig[64-len(op.S.Bytes()):64], op.S.Bytes())
	sig[64] = byte(op.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	op.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return op.from, nil
}
