package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"

	"launchpad/crypto"
	"launchpad/native/launchpad"
)

func runSaleQuery(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sale", flag.ContinueOnError)
	fs.SetOutput(stderr)
	api := fs.String("api", defaultAPIEndpoint(), "launchpadd base URL")
	saleRef := fs.String("sale", "", "sale id or asset symbol; lists every sale when empty")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	path := "/v1/sales"
	if strings.TrimSpace(*saleRef) != "" {
		id, err := resolveSale(*saleRef)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		path += "/" + hex.EncodeToString(id[:])
	}
	var raw json.RawMessage
	if err := newAPIClient(*api).get(path, &raw); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printJSON(stdout, raw)
	return 0
}

func runQuote(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	fs.SetOutput(stderr)
	api := fs.String("api", defaultAPIEndpoint(), "launchpadd base URL")
	saleRef := fs.String("sale", "", "sale id or asset symbol")
	amount := fs.Uint64("amount", 0, "token amount")
	side := fs.String("side", "buy", "buy or sell")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	id, err := resolveSale(*saleRef)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	query := url.Values{}
	query.Set("amount", fmt.Sprintf("%d", *amount))
	query.Set("side", *side)
	var raw json.RawMessage
	path := "/v1/sales/" + hex.EncodeToString(id[:]) + "/quote?" + query.Encode()
	if err := newAPIClient(*api).get(path, &raw); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printJSON(stdout, raw)
	return 0
}

func runBalance(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	api := fs.String("api", defaultAPIEndpoint(), "launchpadd base URL")
	addrFlag := fs.String("address", "", "account address (bech32 or 0x hex)")
	asset := fs.String("asset", "", "asset symbol")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	addr, err := crypto.ParseAddress(*addrFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	symbol := launchpad.NormalizeAsset(*asset)
	if symbol == "" {
		fmt.Fprintln(stderr, "Error: --asset is required")
		return 1
	}
	var raw json.RawMessage
	path := "/v1/accounts/" + crypto.AddressFromArray(addr).String() + "/balances/" + url.PathEscape(symbol)
	if err := newAPIClient(*api).get(path, &raw); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printJSON(stdout, raw)
	return 0
}
