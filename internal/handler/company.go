package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avelis/commodex/internal/domain"
	"github.com/avelis/commodex/internal/service"
)

// CompanyHandler handles HTTP requests for company endpoints.
type CompanyHandler struct {
	companySvc *service.CompanyService
	marketSvc  *service.MarketService
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(companySvc *service.CompanyService, marketSvc *service.MarketService) *CompanyHandler {
	return &CompanyHandler{
		companySvc: companySvc,
		marketSvc:  marketSvc,
	}
}

// createCompanyRequest is the JSON request body for POST /companies.
type createCompanyRequest struct {
	CompanyID     string           `json:"company_id"`
	Type          string           `json:"type"`
	StartingCash  int64            `json:"starting_cash"`
	InitialStocks map[string]int64 `json:"initial_stocks"`
}

// stockResponse is one good's holdings in the inventory response.
type stockResponse struct {
	GoodID                string  `json:"good_id"`
	Quantity              int64   `json:"quantity"`
	ReservedForSale       int64   `json:"reserved_for_sale"`
	ReservedForProduction int64   `json:"reserved_for_production"`
	AvgCost               float64 `json:"avg_cost"`
	MarketValue           int64   `json:"market_value"`
}

// inventoryResponse is the JSON response for GET /companies/{id}/inventory.
type inventoryResponse struct {
	CompanyID   string          `json:"company_id"`
	Cash        int64           `json:"cash"`
	CashDollars float64         `json:"cash_dollars"`
	Stocks      []stockResponse `json:"stocks"`
	TotalValue  int64           `json:"total_value"`
}

// Create handles POST /companies.
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	err := h.companySvc.CreateCompany(service.CreateCompanyRequest{
		ID:            req.CompanyID,
		Type:          req.Type,
		StartingCash:  req.StartingCash,
		InitialStocks: req.InitialStocks,
	})
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{
		"company_id": req.CompanyID,
		"status":     "created",
	})
}

// GetInventory handles GET /companies/{company_id}/inventory.
func (h *CompanyHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "company_id")

	inv, err := h.companySvc.GetInventory(companyID)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	stocks := make([]stockResponse, len(inv.Stocks))
	for i, row := range inv.Stocks {
		stocks[i] = stockResponse{
			GoodID:                row.GoodID,
			Quantity:              row.Quantity,
			ReservedForSale:       row.ReservedForSale,
			ReservedForProduction: row.ReservedForProduction,
			AvgCost:               row.AvgCost,
			MarketValue:           row.MarketValue,
		}
	}

	WriteJSON(w, http.StatusOK, inventoryResponse{
		CompanyID:   inv.CompanyID,
		Cash:        inv.Cash,
		CashDollars: domain.CentsToDollars(inv.Cash),
		Stocks:      stocks,
		TotalValue:  inv.TotalValue,
	})
}

// ListOrders handles GET /companies/{company_id}/orders.
func (h *CompanyHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "company_id")

	var status *domain.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.OrderStatus(s)
		status = &st
	}
	limit, err := parseLimit(r, 0)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
		return
	}

	orders, err := h.marketSvc.ListOrders(companyID, status, limit)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = buildOrderResponse(o)
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"company_id": companyID,
		"orders":     resp,
	})
}
