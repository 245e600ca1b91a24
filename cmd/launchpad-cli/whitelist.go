package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"strings"

	"launchpad/config"
	"launchpad/crypto"
)

func runWhitelistRoot(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("whitelist-root", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "sale definition (TOML)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	sale, err := config.LoadSale(*file)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	tree, _, err := sale.Whitelist.Tree()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	root := tree.Root()
	fmt.Fprintf(stdout, "0x%s\n", hex.EncodeToString(root[:]))
	return 0
}

func runWhitelistProof(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("whitelist-proof", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "sale definition (TOML)")
	addrFlag := fs.String("address", "", "member address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	addr, err := crypto.ParseAddress(*addrFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	proof, err := resolveProof("", *file, addr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if proof == nil {
		fmt.Fprintln(stderr, "Error: sale file lists no whitelist members")
		return 1
	}
	parts := make([]string, 0, len(proof))
	for _, node := range proof {
		parts = append(parts, "0x"+hex.EncodeToString(node[:]))
	}
	fmt.Fprintln(stdout, strings.Join(parts, ","))
	return 0
}
