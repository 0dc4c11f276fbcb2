package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avelis/commodex/internal/domain"
	"github.com/avelis/commodex/internal/service"
)

// MarketHandler handles HTTP requests for the read-side market
// projections: depth, trades, prices and tick statistics.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// tradeResponse is a single trade in history responses.
type tradeResponse struct {
	TradeID    string `json:"trade_id"`
	BuyerID    string `json:"buyer_id"`
	SellerID   string `json:"seller_id"`
	GoodID     string `json:"good_id"`
	Price      int64  `json:"price"`
	Quantity   int64  `json:"quantity"`
	TotalValue int64  `json:"total_value"`
	Tick       int64  `json:"tick"`
}

func buildTradeResponses(trades []*domain.Trade) []tradeResponse {
	result := make([]tradeResponse, len(trades))
	for i, t := range trades {
		result[i] = tradeResponse{
			TradeID:    t.TradeID,
			BuyerID:    t.BuyerID,
			SellerID:   t.SellerID,
			GoodID:     t.GoodID,
			Price:      t.Price,
			Quantity:   t.Quantity,
			TotalValue: t.TotalValue,
			Tick:       t.Tick,
		}
	}
	return result
}

// GetGoods handles GET /goods.
func (h *MarketHandler) GetGoods(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"goods": h.marketSvc.ListGoods(),
	})
}

// GetDepth handles GET /goods/{good_id}/depth.
func (h *MarketHandler) GetDepth(w http.ResponseWriter, r *http.Request) {
	goodID := chi.URLParam(r, "good_id")

	depth, err := h.marketSvc.GetDepth(goodID)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, depth)
}

// GetTrades handles GET /goods/{good_id}/trades.
func (h *MarketHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	goodID := chi.URLParam(r, "good_id")
	limit, err := parseLimit(r, 0)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
		return
	}

	trades, err := h.marketSvc.GetTradeHistory(goodID, limit)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"good_id": goodID,
		"trades":  buildTradeResponses(trades),
	})
}

// GetAllTrades handles GET /trades.
func (h *MarketHandler) GetAllTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 0)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"trades": buildTradeResponses(h.marketSvc.GetAllTrades(limit)),
	})
}

// GetPriceHistory handles GET /goods/{good_id}/prices.
func (h *MarketHandler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	goodID := chi.URLParam(r, "good_id")
	limit, err := parseLimit(r, 0)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
		return
	}

	snap, err := h.marketSvc.GetPriceHistory(goodID, limit)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, snap)
}

// GetPrices handles GET /prices.
func (h *MarketHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"prices": h.marketSvc.GetPrices(),
	})
}

// GetStats handles GET /stats.
func (h *MarketHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.marketSvc.GetStats())
}
