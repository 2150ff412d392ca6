package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dexiq/dexiq/internal/domain"
	"github.com/dexiq/dexiq/internal/service"
)

// PositionHandler serves the transaction ledger and position endpoints.
type PositionHandler struct {
	svc           *service.TokenService
	defaultUserID int64
	logger        *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(svc *service.TokenService, defaultUserID int64, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{svc: svc, defaultUserID: defaultUserID, logger: logger}
}

type transactionRequest struct {
	Type      string           `json:"type"`
	Amount    *decimal.Decimal `json:"amount"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	TxHash    string           `json:"tx_hash"`
	Note      string           `json:"note"`
	UserID    int64            `json:"user_id"`
}

type transactionResponse struct {
	ID        int64           `json:"id"`
	TokenID   int64           `json:"token_id"`
	UserID    int64           `json:"user_id"`
	Type      domain.TxType   `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Value     decimal.Decimal `json:"value"`
	TxHash    string          `json:"tx_hash,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// RecordTransaction appends one buy/sell entry to the token's ledger.
// POST /api/v1/tokens/{id}/transactions
func (h *PositionHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	tokenID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 {
		req.UserID = h.defaultUserID
	}

	tx := domain.Transaction{
		TokenID: tokenID,
		UserID:  req.UserID,
		Type:    domain.TxType(req.Type),
		TxHash:  req.TxHash,
		Note:    req.Note,
	}
	if req.Amount != nil {
		tx.Amount = *req.Amount
	}
	if req.UnitPrice != nil {
		tx.UnitPrice = *req.UnitPrice
	}

	stored, err := h.svc.RecordTransaction(r.Context(), tx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transactionResponse{
		ID:        stored.ID,
		TokenID:   stored.TokenID,
		UserID:    stored.UserID,
		Type:      stored.Type,
		Amount:    stored.Amount,
		UnitPrice: stored.UnitPrice,
		Value:     stored.Value(),
		TxHash:    stored.TxHash,
		Note:      stored.Note,
		CreatedAt: stored.CreatedAt.UTC().Format(time.RFC3339),
	})
}

type positionResponse struct {
	TokenID         int64            `json:"token_id"`
	UserID          int64            `json:"user_id"`
	TotalBought     decimal.Decimal  `json:"total_bought"`
	TotalSold       decimal.Decimal  `json:"total_sold"`
	CurrentPosition decimal.Decimal  `json:"current_position"`
	AverageBuyPrice *decimal.Decimal `json:"average_buy_price"`
	TotalInvested   decimal.Decimal  `json:"total_invested"`
	CurrentValue    decimal.Decimal  `json:"current_value"`
	RealizedPnL     decimal.Decimal  `json:"realized_pnl"`
	UnrealizedPnL   decimal.Decimal  `json:"unrealized_pnl"`
	TotalPnL        decimal.Decimal  `json:"total_pnl"`
	PnLPercentage   decimal.Decimal  `json:"pnl_percentage"`
	CurrentPrice    *decimal.Decimal `json:"current_price"`
	TxCount         int              `json:"tx_count"`
}

// Position derives the user's position and P&L for a token. An optional
// current_price query parameter overrides the latest ingested ticker price.
// GET /api/v1/tokens/{id}/position
func (h *PositionHandler) Position(w http.ResponseWriter, r *http.Request) {
	tokenID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}
	userID := resolveUserID(r, h.defaultUserID)

	var priceOverride *decimal.Decimal
	if v := r.URL.Query().Get("current_price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid current_price")
			return
		}
		priceOverride = &price
	}

	sum, err := h.svc.Position(r.Context(), tokenID, userID, priceOverride)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, positionResponse{
		TokenID:         tokenID,
		UserID:          userID,
		TotalBought:     sum.TotalBought,
		TotalSold:       sum.TotalSold,
		CurrentPosition: sum.CurrentPosition,
		AverageBuyPrice: sum.AverageBuyPrice,
		TotalInvested:   sum.TotalInvested,
		CurrentValue:    sum.CurrentValue,
		RealizedPnL:     sum.RealizedPnL,
		UnrealizedPnL:   sum.UnrealizedPnL,
		TotalPnL:        sum.TotalPnL,
		PnLPercentage:   sum.PnLPercentage,
		CurrentPrice:    sum.CurrentPrice,
		TxCount:         sum.TxCount,
	})
}
