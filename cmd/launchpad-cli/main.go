package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

func defaultAPIEndpoint() string {
	if value := strings.TrimSpace(os.Getenv("LAUNCHPAD_API")); value != "" {
		return value
	}
	return "http://localhost:7081"
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}
	command, rest := strings.ToLower(args[0]), args[1:]
	switch command {
	case "keygen":
		return runKeygen(rest, stdout, stderr)
	case "address":
		return runAddress(rest, stdout, stderr)
	case "init", "update", "buy", "sell", "bid", "settle", "withdraw":
		return runOperation(command, rest, stdout, stderr)
	case "sale":
		return runSaleQuery(rest, stdout, stderr)
	case "quote":
		return runQuote(rest, stdout, stderr)
	case "balance":
		return runBalance(rest, stdout, stderr)
	case "whitelist-root":
		return runWhitelistRoot(rest, stdout, stderr)
	case "whitelist-proof":
		return runWhitelistProof(rest, stdout, stderr)
	case "export-journal":
		return runExportJournal(rest, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command %q\n", args[0])
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: launchpad-cli <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Keys:")
	fmt.Fprintln(w, "  keygen --out <keystore.json> [--light]")
	fmt.Fprintln(w, "  address --key <keystore.json>")
	fmt.Fprintln(w, "Operations (signed and submitted to --api):")
	fmt.Fprintln(w, "  init --key <file> --file <sale.toml>")
	fmt.Fprintln(w, "  update --key <file> --sale <id> [--end <RFC3339>] [--wallet-cap <n>]")
	fmt.Fprintln(w, "  buy --key <file> --sale <id> --amount <n> --max-quote <n> [--proof <hex,...> | --file <sale.toml>]")
	fmt.Fprintln(w, "  sell --key <file> --sale <id> --amount <n> --min-quote <n>")
	fmt.Fprintln(w, "  bid --key <file> --sale <id> --amount <n> [--proof <hex,...> | --file <sale.toml>]")
	fmt.Fprintln(w, "  settle --key <file> --sale <id>")
	fmt.Fprintln(w, "  withdraw --key <file> --sale <id> --amount <n> [--to <address>]")
	fmt.Fprintln(w, "Queries:")
	fmt.Fprintln(w, "  sale [--sale <id>]")
	fmt.Fprintln(w, "  quote --sale <id> --amount <n> [--side buy|sell]")
	fmt.Fprintln(w, "  balance --address <addr> --asset <symbol>")
	fmt.Fprintln(w, "Whitelists:")
	fmt.Fprintln(w, "  whitelist-root --file <sale.toml>")
	fmt.Fprintln(w, "  whitelist-proof --file <sale.toml> --address <addr>")
	fmt.Fprintln(w, "Journal:")
	fmt.Fprintln(w, "  export-journal --dsn <dsn> --out <file.parquet> [--since <RFC3339>]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Every API command accepts --api (default $LAUNCHPAD_API or http://localhost:7081).")
}
