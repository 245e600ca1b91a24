package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"launchpad/core/types"
	"launchpad/crypto"
	"launchpad/gateway/middleware"
	"launchpad/native/launchpad"
	"launchpad/observability/logging"
	"launchpad/services/launchpadd/journal"
)

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var op types.Operation
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOperationBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&op); err != nil {
		writeBadRequest(w, fmt.Sprintf("decode operation: %v", err))
		return
	}
	if !op.Signed() {
		writeBadRequest(w, "operation signature missing")
		return
	}
	digest, err := journal.Digest(&op)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if s.journal != nil {
		rec, err := s.journal.Lookup(r.Context(), digest)
		switch {
		case err == nil:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(rec.Status)
			_, _ = io.WriteString(w, rec.Response)
			return
		case !errors.Is(err, journal.ErrNotFound):
			s.logger.Error("journal lookup failed", slog.String("error", err.Error()))
		}
	}

	receipt, err := s.executor.Submit(r.Context(), &op)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := json.Marshal(newReceiptView(receipt))
	if err != nil {
		writeError(w, err)
		return
	}
	if s.journal != nil {
		rec := &journal.OperationRecord{
			Digest:   digest,
			OpHash:   hex.EncodeToString(receipt.OpHash[:]),
			Type:     receipt.Type.String(),
			Sender:   hex.EncodeToString(receipt.Sender[:]),
			Sale:     hex.EncodeToString(receipt.Sale[:]),
			Nonce:    receipt.Nonce,
			Status:   http.StatusOK,
			Response: string(body),
		}
		if err := s.journal.Record(r.Context(), rec, receipt.Events); err != nil {
			s.logger.Error("journal record failed",
				slog.String("op_hash", rec.OpHash),
				slog.String("error", err.Error()))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.executor.Sales()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]saleView, 0, len(sales))
	for _, sale := range sales {
		out = append(out, newSaleView(sale))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSale(w http.ResponseWriter, r *http.Request) {
	id, err := parseSaleID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	sale, err := s.executor.Sale(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSaleView(sale))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	id, err := parseSaleID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	amount, err := strconv.ParseUint(strings.TrimSpace(r.URL.Query().Get("amount")), 10, 64)
	if err != nil {
		writeBadRequest(w, "amount must be an unsigned integer")
		return
	}
	var quote launchpad.Quote
	switch side := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("side"))); side {
	case "", "buy":
		quote, err = s.executor.QuoteBuy(id, amount)
	case "sell":
		quote, err = s.executor.QuoteSell(id, amount)
	default:
		writeBadRequest(w, fmt.Sprintf("unknown side %q", side))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuoteView(quote))
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	acc, err := s.executor.Account(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(addr, acc))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	asset := launchpad.NormalizeAsset(chi.URLParam(r, "asset"))
	balance, err := s.executor.Balance(asset, addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceView{Address: address(addr), Asset: asset, Balance: balance})
}

type pauseRequest struct {
	Module string `json:"module"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.togglePause(w, r, true)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.togglePause(w, r, false)
}

func (s *Server) togglePause(w http.ResponseWriter, r *http.Request, pause bool) {
	var req pauseRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeBadRequest(w, "invalid request body")
			return
		}
	}
	module := strings.TrimSpace(req.Module)
	if module == "" {
		module = launchpad.ModuleName
	}
	if pause {
		s.pauses.Pause(module)
	} else {
		s.pauses.Resume(module)
	}
	s.logger.Info("module pause toggled",
		slog.String("module", module),
		slog.Bool("paused", pause),
		slog.String("subject", middleware.Subject(r.Context())))
	writeJSON(w, http.StatusOK, map[string]interface{}{"paused": s.pauses.Paused()})
}

type creditRequest struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount"`
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	addr, err := crypto.ParseAddress(req.Address)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Amount == 0 {
		writeBadRequest(w, "amount must be positive")
		return
	}
	asset := launchpad.NormalizeAsset(req.Asset)
	if err := s.executor.Credit(r.Context(), asset, addr, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	balance, err := s.executor.Balance(asset, addr)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("admin credit",
		logging.MaskField("account", address(addr)),
		slog.String("asset", asset),
		slog.Uint64("amount", req.Amount),
		slog.String("subject", middleware.Subject(r.Context())))
	writeJSON(w, http.StatusOK, balanceView{Address: address(addr), Asset: asset, Balance: balance})
}

// parseSaleID accepts a hex sale identifier, with or without 0x, or an asset
// symbol.
func parseSaleID(raw string) ([32]byte, error) {
	var id [32]byte
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return id, fmt.Errorf("sale id required")
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if len(trimmed) == 64 {
		if decoded, err := hex.DecodeString(trimmed); err == nil {
			copy(id[:], decoded)
			return id, nil
		}
	}
	if trimmed != raw {
		return id, fmt.Errorf("invalid sale id %q", raw)
	}
	return launchpad.SaleID(launchpad.NormalizeAsset(raw)), nil
}
