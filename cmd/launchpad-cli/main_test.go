package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"launchpad/cmd/internal/passphrase"
	"launchpad/core"
	"launchpad/crypto"
	"launchpad/services/launchpadd/journal"
	"launchpad/services/launchpadd/server"
	"launchpad/storage"
)

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func keygen(t *testing.T, dir, name string) (string, string) {
	t.Helper()
	path := filepath.Join(dir, name+".json")
	code, out, errOut := runCLI("keygen", "--out", path, "--light")
	require.Equal(t, 0, code, errOut)
	return path, strings.TrimSpace(out)
}

func TestCLIAgainstServer(t *testing.T) {
	t.Setenv(passphrase.DefaultEnv, "correct horse battery staple")
	dir := t.TempDir()
	authorityKey, _ := keygen(t, dir, "authority")
	buyerKey, buyerAddr := keygen(t, dir, "buyer")

	exec := core.NewExecutor(storage.NewMemDB(),
		core.WithClock(func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }))
	journalPath := filepath.Join(dir, "journal.sqlite")
	j, err := journal.Open(journalPath)
	require.NoError(t, err)
	defer j.Close()
	srv, err := server.New(server.Config{}, exec, server.Options{Journal: j})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	buyer, err := crypto.ParseAddress(buyerAddr)
	require.NoError(t, err)
	require.NoError(t, exec.Credit(context.Background(), "usdc", buyer, 100))

	saleFile := filepath.Join(dir, "sale.toml")
	require.NoError(t, os.WriteFile(saleFile, []byte(fmt.Sprintf(`Asset = "launch"
QuoteAsset = "usdc"
GlobalCap = 1000
WalletCap = 10
Start = 2026-01-01T00:00:00Z
End = 2026-01-08T00:00:00Z

[pricing]
Model = "fixed"
Price = 2

[whitelist]
Members = [%q]
`, buyerAddr)), 0o600))

	code, out, errOut := runCLI("init", "--api", ts.URL, "--key", authorityKey, "--file", saleFile)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, `"type": "init"`)

	code, _, errOut = runCLI("buy", "--api", ts.URL, "--key", buyerKey, "--sale", "launch", "--amount", "3", "--max-quote", "6")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "whitelist_required")

	code, out, errOut = runCLI("buy", "--api", ts.URL, "--key", buyerKey, "--sale", "launch", "--amount", "3", "--max-quote", "6", "--file", saleFile)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, `"type": "buy"`)

	code, _, errOut = runCLI("buy", "--api", ts.URL, "--key", authorityKey, "--sale", "launch", "--amount", "1", "--max-quote", "2", "--file", saleFile)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "not whitelisted")

	code, out, errOut = runCLI("balance", "--api", ts.URL, "--address", buyerAddr, "--asset", "launch")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, `"balance": 3`)

	code, out, errOut = runCLI("quote", "--api", ts.URL, "--sale", "launch", "--amount", "4")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, `"quote": 8`)

	code, out, errOut = runCLI("sale", "--api", ts.URL, "--sale", "launch")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, `"sold": 3`)

	code, out, errOut = runCLI("whitelist-root", "--file", saleFile)
	require.Equal(t, 0, code, errOut)
	require.True(t, strings.HasPrefix(out, "0x"))

	code, out, errOut = runCLI("export-journal", "--dsn", journalPath, "--out", filepath.Join(dir, "ops.parquet"))
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "exported 2 operations")
}

func TestResolveSale(t *testing.T) {
	byAsset, err := resolveSale("launch")
	require.NoError(t, err)
	byHex, err := resolveSale(fmt.Sprintf("0x%x", byAsset[:]))
	require.NoError(t, err)
	require.Equal(t, byAsset, byHex)
	_, err = resolveSale("")
	require.Error(t, err)
	_, err = resolveSale("0xzz")
	require.Error(t, err)
}

func TestParseProof(t *testing.T) {
	node := strings.Repeat("ab", 32)
	proof, err := parseProof("0x" + node + ", " + node)
	require.NoError(t, err)
	require.Len(t, proof, 2)
	require.Equal(t, byte(0xab), proof[1][31])
	_, err = parseProof("0x1234")
	require.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI("launch-rocket")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "Unknown command")
	code, out, _ := runCLI("help")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Usage: launchpad-cli")
}
