package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/purse/internal/domain"
	"github.com/vadiminshakov/purse/internal/services/swap"
	"github.com/vadiminshakov/purse/internal/services/txlog"
	"github.com/vadiminshakov/purse/internal/services/wallet"
	"github.com/vadiminshakov/purse/internal/storage/walletstore"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

const (
	journalPollInterval = 2 * time.Second
	maxRequestBody      = 1 << 20
)

type priceReader interface {
	Price(symbol string) (decimal.Decimal, bool)
	Tokens() []domain.Token
	LastUpdated() time.Time
	Loading() bool
}

type journalReader interface {
	EntriesAfter(index uint64) ([]domain.MutationEntry, error)
}

// Server exposes the ledger operations over an HTTP JSON API.
type Server struct {
	Addr    string
	Domain  string
	CertDir string

	ledger  *wallet.Ledger
	cache   priceReader
	engine  *swap.Engine
	history *txlog.Log
	journal journalReader
	l       *zap.Logger
}

// NewServer wires the API server. journal may be nil, the stream endpoint
// then reports unavailable.
func NewServer(addr string, ledger *wallet.Ledger, cache priceReader, engine *swap.Engine, history *txlog.Log, journal journalReader, l *zap.Logger) *Server {
	return &Server{
		Addr:    addr,
		ledger:  ledger,
		cache:   cache,
		engine:  engine,
		history: history,
		journal: journal,
		l:       l,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /portfolio", s.handlePortfolio)
	mux.HandleFunc("GET /tokens", s.handleTokens)
	mux.HandleFunc("GET /transactions", s.handleTransactions)
	mux.HandleFunc("DELETE /transactions", s.handleClearTransactions)
	mux.HandleFunc("POST /swap", s.handleSwap)
	mux.HandleFunc("POST /deposit", s.handleDeposit)
	mux.HandleFunc("POST /burn", s.handleBurn)
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("POST /import", s.handleImport)
	mux.HandleFunc("DELETE /wallet", s.handleClearWallet)
	mux.HandleFunc("GET /journal/stream", s.handleJournalStream)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled. With a configured domain it serves TLS via autocert.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if s.Domain != "" {
		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(s.Domain),
			Cache:      autocert.DirCache(s.CertDir),
		}
		server.TLSConfig = manager.TLSConfig()

		if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type portfolioResponse struct {
	Assets      []domain.AssetView `json:"assets"`
	TotalValue  decimal.Decimal    `json:"totalValue"`
	LastUpdated time.Time          `json:"lastUpdated"`
	Loading     bool               `json:"loading"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, portfolioResponse{
		Assets:      s.ledger.View(s.cache),
		TotalValue:  s.ledger.TotalValue(s.cache),
		LastUpdated: s.cache.LastUpdated(),
		Loading:     s.cache.Loading(),
	})
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cache.Tokens())
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs := s.history.List()

	// display order is newest first
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}

	s.writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	s.history.Clear()
	w.WriteHeader(http.StatusNoContent)
}

type swapRequest struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount json.Number `json:"amount"`
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad amount: %w", err))
		return
	}

	payload, err := s.engine.Execute(s.ledger, req.From, req.To, amount, s.cache)
	if err != nil {
		s.writeError(w, rejectionStatus(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.history.Append(payload))
}

type depositRequest struct {
	Symbol string      `json:"symbol"`
	USD    json.Number `json:"usd"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}

	usd, err := decimal.NewFromString(req.USD.String())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad usd amount: %w", err))
		return
	}

	payload, err := s.engine.Deposit(s.ledger, req.Symbol, usd, s.cache)
	if err != nil {
		s.writeError(w, rejectionStatus(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.history.Append(payload))
}

type burnRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return
	}

	payload, err := s.engine.Burn(s.ledger, req.Symbol)
	if err != nil {
		s.writeError(w, rejectionStatus(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.history.Append(payload))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	payload, err := walletstore.Export(s.ledger.Entries())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="wallet-backup.json"`)
	_, _ = w.Write(payload)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := walletstore.ParseImport(raw)
	if err != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"imported": false,
			"error":    err.Error(),
		})
		return
	}

	s.ledger.Replace(entries)
	s.writeJSON(w, http.StatusOK, map[string]any{"imported": true})
}

func (s *Server) handleClearWallet(w http.ResponseWriter, r *http.Request) {
	s.ledger.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleJournalStream(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "mutation journal not available", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat keeps proxies from dropping the connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	poll := time.NewTicker(journalPollInterval)
	defer poll.Stop()

	lastIndex := uint64(0)
	send := func() error {
		entries, err := s.journal.EntriesAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, e := range entries {
			payload, err := json.Marshal(e.Record)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", e.Index, payload); err != nil {
				return err
			}
			lastIndex = e.Index
		}
		if len(entries) > 0 {
			flusher.Flush()
		}
		return nil
	}

	if err := send(); err != nil {
		s.l.Warn("journal stream aborted", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-poll.C:
			if err := send(); err != nil {
				s.l.Warn("journal stream aborted", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode request"))
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// rejectionStatus maps engine rejections onto HTTP statuses. Unknown
// errors are treated as server faults.
func rejectionStatus(err error) int {
	switch {
	case errors.Is(err, swap.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, swap.ErrRateUnavailable):
		return http.StatusConflict
	case errors.Is(err, swap.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, swap.ErrUnknownToken):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
