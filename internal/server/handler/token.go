package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dexiq/dexiq/internal/domain"
	"github.com/dexiq/dexiq/internal/service"
)

// TokenHandler serves token tracking, readiness and analysis endpoints.
type TokenHandler struct {
	svc           *service.TokenService
	defaultUserID int64
	logger        *slog.Logger
}

// NewTokenHandler creates a TokenHandler. defaultUserID stands in for the
// authentication collaborator when a request carries no user id.
func NewTokenHandler(svc *service.TokenService, defaultUserID int64, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{svc: svc, defaultUserID: defaultUserID, logger: logger}
}

type trackRequest struct {
	ChainID     string `json:"chain_id"`
	PoolAddress string `json:"pool_address"`
	Symbol      string `json:"symbol"`
	QuoteSymbol string `json:"quote_symbol"`
	TokenURL    string `json:"token_url"`
	UserID      int64  `json:"user_id"`
}

type tokenResponse struct {
	ID          int64  `json:"id"`
	ChainID     string `json:"chain_id"`
	PoolAddress string `json:"pool_address"`
	Symbol      string `json:"symbol"`
	QuoteSymbol string `json:"quote_symbol"`
	TokenURL    string `json:"token_url,omitempty"`
	PairLabel   string `json:"pair_label"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toTokenResponse(t domain.Token) tokenResponse {
	return tokenResponse{
		ID:          t.ID,
		ChainID:     t.ChainID,
		PoolAddress: t.PoolAddress,
		Symbol:      t.Symbol,
		QuoteSymbol: t.QuoteSymbol,
		TokenURL:    t.TokenURL,
		PairLabel:   t.PairLabel(),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Track registers a token for tracking and schedules the first ingestion
// pass. Re-submitting a known (chain, pool) identity returns the existing
// token.
// POST /api/v1/tokens
func (h *TokenHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 {
		req.UserID = h.defaultUserID
	}

	token, err := h.svc.Track(r.Context(), service.TrackRequest{
		ChainID:     req.ChainID,
		PoolAddress: req.PoolAddress,
		Symbol:      req.Symbol,
		QuoteSymbol: req.QuoteSymbol,
		TokenURL:    req.TokenURL,
		UserID:      req.UserID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTokenResponse(token))
}

// GetToken returns one tracked token.
// GET /api/v1/tokens/{id}
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	token, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(token))
}

// ListTokens returns the tokens tracked by the requesting user.
// GET /api/v1/tokens
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	userID := resolveUserID(r, h.defaultUserID)

	tokens, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]tokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, toTokenResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": out})
}

// Status returns the readiness classification for a token.
// GET /api/v1/tokens/{id}/status
func (h *TokenHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	status, err := h.svc.Status(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type analyseRequest struct {
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
}

// Analyse schedules an analysis run for a ready token. The result arrives on
// the WebSocket status channel; the response only acknowledges scheduling.
// POST /api/v1/tokens/{id}/analyse
func (h *TokenHandler) Analyse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	var req analyseRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	status, err := h.svc.RequestAnalysis(r.Context(), id, req.PurchasePrice)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"scheduled": true,
		"status":    status,
	})
}

