package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"launchpad/config"
	"launchpad/core/types"
	"launchpad/crypto"
	"launchpad/native/launchpad"
)

var opTypes = map[string]types.OpType{
	"init":     types.OpTypeInitSale,
	"update":   types.OpTypeUpdateSale,
	"buy":      types.OpTypeBuy,
	"sell":     types.OpTypeSell,
	"bid":      types.OpTypeBid,
	"settle":   types.OpTypeSettle,
	"withdraw": types.OpTypeWithdrawTreasury,
}

func runOperation(command string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	api := fs.String("api", defaultAPIEndpoint(), "launchpadd base URL")
	keyPath := fs.String("key", "", "keystore file of the signer")
	saleRef := fs.String("sale", "", "sale id (hex) or asset symbol")
	file := fs.String("file", "", "sale definition (TOML)")
	amount := fs.Uint64("amount", 0, "token amount")
	maxQuote := fs.Uint64("max-quote", 0, "maximum quote asset to pay")
	minQuote := fs.Uint64("min-quote", 0, "minimum quote asset to receive")
	proofFlag := fs.String("proof", "", "comma separated whitelist proof hashes")
	end := fs.String("end", "", "new end time (RFC3339)")
	walletCap := fs.Uint64("wallet-cap", 0, "new per-wallet cap")
	to := fs.String("to", "", "withdrawal destination")
	nonceFlag := fs.Int64("nonce", -1, "explicit nonce; fetched from the API when negative")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(*keyPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	var signer [20]byte
	copy(signer[:], ethcrypto.PubkeyToAddress(key.PublicKey).Bytes())

	var (
		payload interface{}
		sale    [32]byte
	)
	if command != "init" {
		if sale, err = resolveSale(*saleRef); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	switch command {
	case "init":
		payload, err = initPayload(*file)
	case "update":
		update := launchpad.UpdateArgs{}
		if *end != "" {
			ts, perr := time.Parse(time.RFC3339, *end)
			if perr != nil {
				err = fmt.Errorf("invalid --end: %w", perr)
				break
			}
			unix := ts.Unix()
			update.EndTime = &unix
		}
		if *walletCap > 0 {
			value := *walletCap
			update.WalletCap = &value
		}
		payload = launchpad.NewUpdatePayload(update)
	case "buy", "bid":
		var proof [][32]byte
		proof, err = resolveProof(*proofFlag, *file, signer)
		if err != nil {
			break
		}
		if command == "buy" {
			payload = launchpad.BuyPayload{Amount: *amount, MaxQuote: *maxQuote, HasProof: proof != nil, Proof: proof}
		} else {
			payload = launchpad.BidPayload{Amount: *amount, HasProof: proof != nil, Proof: proof}
		}
	case "sell":
		payload = launchpad.SellPayload{Amount: *amount, MinQuote: *minQuote}
	case "settle":
		payload = launchpad.SettlePayload{}
	case "withdraw":
		var dest [20]byte
		if strings.TrimSpace(*to) != "" {
			dest, err = crypto.ParseAddress(*to)
		}
		payload = launchpad.WithdrawPayload{Amount: *amount, Destination: dest}
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	client := newAPIClient(*api)
	nonce := uint64(0)
	if *nonceFlag >= 0 {
		nonce = uint64(*nonceFlag)
	} else if nonce, err = client.nonce(signer); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	op, err := buildOperation(opTypes[command], nonce, sale, payload, key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	receipt, err := client.submit(op)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printJSON(stdout, receipt)
	return 0
}

func buildOperation(typ types.OpType, nonce uint64, sale [32]byte, payload interface{}, key *crypto.PrivateKey) (*types.Operation, error) {
	encoded, err := launchpad.EncodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	op := &types.Operation{Type: typ, Nonce: nonce, Payload: encoded}
	if typ != types.OpTypeInitSale {
		op.Sale = append([]byte(nil), sale[:]...)
	}
	if err := op.Sign(key.PrivateKey); err != nil {
		return nil, fmt.Errorf("sign operation: %w", err)
	}
	return op, nil
}

func initPayload(path string) (launchpad.InitPayload, error) {
	if strings.TrimSpace(path) == "" {
		return launchpad.InitPayload{}, fmt.Errorf("--file is required")
	}
	sale, err := config.LoadSale(path)
	if err != nil {
		return launchpad.InitPayload{}, err
	}
	args, err := sale.InitArgs()
	if err != nil {
		return launchpad.InitPayload{}, err
	}
	return launchpad.NewInitPayload(args)
}

// resolveSale accepts a hex sale id, with or without 0x, or an asset symbol.
func resolveSale(ref string) ([32]byte, error) {
	var id [32]byte
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return id, fmt.Errorf("--sale is required")
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(ref, "0x"), "0X")
	if len(trimmed) == 64 {
		if raw, err := hex.DecodeString(trimmed); err == nil {
			copy(id[:], raw)
			return id, nil
		}
	}
	if trimmed != ref {
		return id, fmt.Errorf("invalid sale id %q", ref)
	}
	return launchpad.SaleID(launchpad.NormalizeAsset(ref)), nil
}

// resolveProof parses an explicit proof or derives one from the whitelist
// members of a sale file. A nil result means no proof.
func resolveProof(explicit, file string, addr [20]byte) ([][32]byte, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return parseProof(explicit)
	}
	if strings.TrimSpace(file) == "" {
		return nil, nil
	}
	sale, err := config.LoadSale(file)
	if err != nil {
		return nil, err
	}
	if len(sale.Whitelist.Members) == 0 {
		return nil, nil
	}
	tree, members, err := sale.Whitelist.Tree()
	if err != nil {
		return nil, err
	}
	for i, member := range members {
		if member == addr {
			proof, ok := tree.Proof(i)
			if !ok {
				return nil, fmt.Errorf("whitelist proof unavailable")
			}
			return nonNilProof(proof), nil
		}
	}
	return nil, fmt.Errorf("address %s is not whitelisted", crypto.AddressFromArray(addr).String())
}

func parseProof(raw string) ([][32]byte, error) {
	parts := strings.Split(raw, ",")
	proof := make([][32]byte, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimPrefix(strings.TrimSpace(part), "0x")
		if part == "" {
			continue
		}
		decoded, err := hex.DecodeString(part)
		if err != nil || len(decoded) != 32 {
			return nil, fmt.Errorf("invalid proof element %q", part)
		}
		var node [32]byte
		copy(node[:], decoded)
		proof = append(proof, node)
	}
	return proof, nil
}

func nonNilProof(proof [][32]byte) [][32]byte {
	if proof == nil {
		return [][32]byte{}
	}
	return proof
}
