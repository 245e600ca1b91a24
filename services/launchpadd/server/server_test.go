package server

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"launchpad/core"
	"launchpad/core/events"
	"launchpad/core/types"
	"launchpad/crypto"
	"launchpad/gateway/middleware"
	"launchpad/native/common"
	"launchpad/native/launchpad"
	"launchpad/services/launchpadd/journal"
	"launchpad/storage"
)

const testSecret = "launchpad-test-secret"

type testSigner struct {
	key  *crypto.PrivateKey
	addr [20]byte
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	var addr [20]byte
	copy(addr[:], ethcrypto.PubkeyToAddress(key.PublicKey).Bytes())
	return &testSigner{key: key, addr: addr}
}

func (s *testSigner) op(t *testing.T, typ types.OpType, nonce uint64, sale [32]byte, payload interface{}) []byte {
	t.Helper()
	encoded, err := launchpad.EncodePayload(payload)
	require.NoError(t, err)
	op := &types.Operation{Type: typ, Nonce: nonce, Payload: encoded}
	if typ != types.OpTypeInitSale {
		op.Sale = append([]byte(nil), sale[:]...)
	}
	require.NoError(t, op.Sign(s.key.PrivateKey))
	raw, err := json.Marshal(op)
	require.NoError(t, err)
	return raw
}

type harness struct {
	handler   http.Handler
	stream    *events.Broadcaster
	pauses    *common.PauseSet
	auth      *middleware.Authenticator
	authority *testSigner
	sale      [32]byte
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	stream := events.NewBroadcaster(16)
	pauses := common.NewPauseSet()
	exec := core.NewExecutor(storage.NewMemDB(),
		core.WithEmitter(stream),
		core.WithPauses(pauses),
		core.WithClock(func() time.Time { return time.Unix(1_500, 0) }),
	)
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    true,
		HMACSecret: testSecret,
		Issuer:     "launchpadd",
		Audience:   "launchpad-admin",
	}, nil)
	srv, err := New(Config{}, exec, Options{Journal: j, Pauses: pauses, Stream: stream, Auth: auth})
	require.NoError(t, err)

	h := &harness{handler: srv.Handler(), stream: stream, pauses: pauses, auth: auth, authority: newTestSigner(t)}
	payload, err := launchpad.NewInitPayload(launchpad.InitArgs{
		AssetID:    "launch",
		QuoteAsset: "usdc",
		Pricing:    launchpad.FixedPrice{Price: 2},
		GlobalCap:  100,
		WalletCap:  10,
		StartTime:  1_000,
		EndTime:    2_000,
	})
	require.NoError(t, err)
	rec := h.do(t, http.MethodPost, "/v1/operations", h.authority.op(t, types.OpTypeInitSale, 0, [32]byte{}, payload), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	h.sale = launchpad.SaleID("LAUNCH")
	return h
}

func (h *harness) do(t *testing.T, method, path string, body []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) adminToken(t *testing.T) string {
	t.Helper()
	token, err := h.auth.IssueToken("ops@launchpad", []string{ScopeAdmin}, time.Hour)
	require.NoError(t, err)
	return token
}

func (h *harness) credit(t *testing.T, addr [20]byte, amount uint64) {
	t.Helper()
	body, err := json.Marshal(creditRequest{Address: address(addr), Asset: "usdc", Amount: amount})
	require.NoError(t, err)
	rec := h.do(t, http.MethodPost, "/admin/credit", body, h.adminToken(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = h.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "launchpad_")
}

func TestBuyFlowAndIdempotentReplay(t *testing.T) {
	h := newHarness(t)
	alice := newTestSigner(t)
	h.credit(t, alice.addr, 100)

	buy := alice.op(t, types.OpTypeBuy, 0, h.sale, launchpad.BuyPayload{Amount: 4, MaxQuote: 8})
	rec := h.do(t, http.MethodPost, "/v1/operations", buy, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var receipt receiptView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	require.Equal(t, "buy", receipt.Type)
	require.Equal(t, address(alice.addr), receipt.Sender)
	require.NotNil(t, receipt.Quote)
	require.Equal(t, uint64(8), receipt.Quote.Quote)
	require.Equal(t, uint64(4), receipt.State.Sold)
	require.NotEmpty(t, receipt.Events)

	replay := h.do(t, http.MethodPost, "/v1/operations", buy, "")
	require.Equal(t, http.StatusOK, replay.Code)
	require.Equal(t, "true", replay.Header().Get("Idempotent-Replay"))
	require.JSONEq(t, rec.Body.String(), replay.Body.String())

	rec = h.do(t, http.MethodGet, "/v1/sales/launch", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sale saleView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))
	require.Equal(t, hex.EncodeToString(h.sale[:]), sale.ID)
	require.Equal(t, "fixed", sale.Pricing.Model)
	require.Equal(t, uint64(4), sale.State.Sold)
	require.Len(t, sale.State.Buyers, 1)

	rec = h.do(t, http.MethodGet, "/v1/sales/0x"+hex.EncodeToString(h.sale[:])+"/quote?amount=3", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quote quoteView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	require.Equal(t, uint64(6), quote.Quote)

	rec = h.do(t, http.MethodGet, "/v1/accounts/"+address(alice.addr), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var acc accountView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acc))
	require.Equal(t, uint64(1), acc.Nonce)

	rec = h.do(t, http.MethodGet, "/v1/accounts/"+address(alice.addr)+"/balances/launch", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bal balanceView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	require.Equal(t, uint64(4), bal.Balance)

	rec = h.do(t, http.MethodGet, "/v1/sales", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sales []saleView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sales))
	require.Len(t, sales, 1)
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t)
	alice := newTestSigner(t)

	rec := h.do(t, http.MethodGet, "/v1/sales/unknown", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "sale_not_found", decodeError(t, rec).Kind)

	rec = h.do(t, http.MethodGet, "/v1/sales/launch/quote?amount=1&side=sideways", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/operations", []byte(`{"bogus":true}`), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "bad_request", decodeError(t, rec).Kind)

	rec = h.do(t, http.MethodPost, "/v1/operations", []byte(`{"type":"0x3","nonce":"0x0","payload":"0x"}`), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "bad_request", decodeError(t, rec).Kind)

	rec = h.do(t, http.MethodPost, "/v1/operations", alice.op(t, types.OpTypeBuy, 5, h.sale, launchpad.BuyPayload{Amount: 1, MaxQuote: 2}), "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "nonce_mismatch", decodeError(t, rec).Kind)

	rec = h.do(t, http.MethodPost, "/v1/operations", alice.op(t, types.OpTypeBuy, 0, h.sale, launchpad.BuyPayload{Amount: 1, MaxQuote: 2}), "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "insufficient_balance", decodeError(t, rec).Kind)

	h.credit(t, alice.addr, 100)
	rec = h.do(t, http.MethodPost, "/v1/operations", alice.op(t, types.OpTypeBuy, 0, h.sale, launchpad.BuyPayload{Amount: 11, MaxQuote: 22}), "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "wallet_cap_exceeded", decodeError(t, rec).Kind)

	rec = h.do(t, http.MethodPost, "/v1/operations", alice.op(t, types.OpTypeWithdrawTreasury, 0, h.sale, launchpad.WithdrawPayload{Amount: 1, Destination: alice.addr}), "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "unauthorized", decodeError(t, rec).Kind)
}

func TestAdminPauseRequiresScope(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/admin/pause", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	weak, err := h.auth.IssueToken("viewer", []string{"read"}, time.Hour)
	require.NoError(t, err)
	rec = h.do(t, http.MethodPost, "/admin/pause", nil, weak)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, "/admin/pause", nil, h.adminToken(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, h.pauses.IsPaused(launchpad.ModuleName))

	alice := newTestSigner(t)
	rec = h.do(t, http.MethodPost, "/v1/operations", alice.op(t, types.OpTypeBuy, 0, h.sale, launchpad.BuyPayload{Amount: 1, MaxQuote: 2}), "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "paused", decodeError(t, rec).Kind)

	rec = h.do(t, http.MethodPost, "/admin/resume", []byte(`{"module":"launchpad"}`), h.adminToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, h.pauses.IsPaused(launchpad.ModuleName))
}

func TestEventStreamDeliversFilteredEvents(t *testing.T) {
	h := newHarness(t)
	ts := httptest.NewServer(h.handler)
	defer ts.Close()

	alice := newTestSigner(t)
	h.credit(t, alice.addr, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events/ws?type=" + launchpad.EventTypeSalePurchase
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")
	require.Eventually(t, func() bool { return h.stream.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := h.do(t, http.MethodPost, "/v1/operations", alice.op(t, types.OpTypeBuy, 0, h.sale, launchpad.BuyPayload{Amount: 2, MaxQuote: 4}), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var evt types.Event
	require.NoError(t, json.Unmarshal(data, &evt))
	require.Equal(t, launchpad.EventTypeSalePurchase, evt.Type)
	require.Equal(t, hex.EncodeToString(alice.addr[:]), evt.Attributes["buyer"])
}

func TestParseSaleID(t *testing.T) {
	id := launchpad.SaleID("LAUNCH")
	for _, raw := range []string{"launch", " LAUNCH ", hex.EncodeToString(id[:]), "0x" + hex.EncodeToString(id[:])} {
		got, err := parseSaleID(raw)
		require.NoError(t, err, raw)
		require.Equal(t, id, got, raw)
	}
	_, err := parseSaleID("0xnothex")
	require.Error(t, err)
	_, err = parseSaleID("")
	require.Error(t, err)
}
