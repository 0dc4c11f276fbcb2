package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avelis/commodex/internal/domain"
	"github.com/avelis/commodex/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	marketSvc *service.MarketService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(marketSvc *service.MarketService) *OrderHandler {
	return &OrderHandler{marketSvc: marketSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
type submitOrderRequest struct {
	CompanyID string `json:"company_id"`
	GoodID    string `json:"good_id"`
	Side      string `json:"side"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	ExpiresIn int64  `json:"expires_in"`
}

// orderResponse is the JSON representation of an order.
type orderResponse struct {
	OrderID           string `json:"order_id"`
	CompanyID         string `json:"company_id"`
	GoodID            string `json:"good_id"`
	Side              string `json:"side"`
	Price             int64  `json:"price"`
	Quantity          int64  `json:"quantity"`
	FilledQuantity    int64  `json:"filled_quantity"`
	RemainingQuantity int64  `json:"remaining_quantity"`
	Status            string `json:"status"`
	CreatedTick       int64  `json:"created_tick"`
	ExpiresTick       int64  `json:"expires_tick,omitempty"`
}

func buildOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		OrderID:           o.OrderID,
		CompanyID:         o.CompanyID,
		GoodID:            o.GoodID,
		Side:              string(o.Side),
		Price:             o.Price,
		Quantity:          o.Quantity,
		FilledQuantity:    o.FilledQuantity(),
		RemainingQuantity: o.RemainingQuantity,
		Status:            string(o.Status),
		CreatedTick:       o.CreatedTick,
		ExpiresTick:       o.ExpiresTick,
	}
}

// SubmitOrder handles POST /orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.marketSvc.SubmitOrder(service.SubmitOrderRequest{
		CompanyID: req.CompanyID,
		GoodID:    req.GoodID,
		Side:      domain.OrderSide(req.Side),
		Price:     req.Price,
		Quantity:  req.Quantity,
		ExpiresIn: req.ExpiresIn,
	})
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(order))
}

// GetOrder handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	order, err := h.marketSvc.GetOrder(orderID)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// CancelOrder handles DELETE /orders/{order_id}. The company_id query
// parameter authorizes the cancellation: only the submitting company
// may cancel its order.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "company_id query parameter is required")
		return
	}

	order, err := h.marketSvc.CancelOrder(orderID, companyID)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// parseLimit reads the optional limit query parameter, returning def
// when absent.
func parseLimit(r *http.Request, def int) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(s)
	if err != nil || limit < 0 {
		return 0, domain.ErrInvalidQuantity
	}
	return limit, nil
}
