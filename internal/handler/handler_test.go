package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/avelis/commodex/internal/domain"
	"github.com/avelis/commodex/internal/engine"
	"github.com/avelis/commodex/internal/ledger"
	"github.com/avelis/commodex/internal/service"
	"github.com/avelis/commodex/internal/sim"
	"github.com/avelis/commodex/internal/store"
)

type testEnv struct {
	router  chi.Router
	manager *sim.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	goods := domain.NewGoodRegistry()
	board := engine.NewPriceBoard()
	orders := store.NewOrderStore()
	trades := store.NewTradeStore(1000)
	pool := sim.NewWorkerPool(1, time.Second, zerolog.Nop())
	pool.Start()
	t.Cleanup(func() { _ = pool.Stop() })

	manager := sim.NewManager(sim.ManagerConfig{
		TickInterval:        10 * time.Millisecond,
		HealthCheckInterval: 50,
		DeviationThreshold:  1.0,
		AboveCorrection:     1.5,
		BelowCorrection:     0.7,
		PriceRetention:      100,
		DepthLevels:         10,
	}, sim.Deps{
		Goods:  goods,
		Ledger: ledger.New(1000),
		Books:  engine.NewBooks(),
		Board:  board,
		Orders: orders,
		Trades: trades,
		Pool:   pool,
		Log:    zerolog.Nop(),
	})
	if err := manager.RegisterGood(&domain.Good{ID: "grain", Name: "Grain", BasePrice: 100, Elasticity: 0.1}); err != nil {
		t.Fatalf("RegisterGood: %v", err)
	}

	companySvc := service.NewCompanyService(manager, goods)
	marketSvc := service.NewMarketService(manager, goods, board, trades)
	return &testEnv{
		router:  NewRouter(companySvc, marketSvc, nil, zerolog.Nop()),
		manager: manager,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createCompany(t *testing.T, id string, cash int64, grain int64) {
	t.Helper()
	body := fmt.Sprintf(`{"company_id":%q,"type":"trader","starting_cash":%d,"initial_stocks":{"grain":%d}}`, id, cash, grain)
	if w := e.do(t, http.MethodPost, "/companies", body); w.Code != http.StatusCreated {
		t.Fatalf("create company %s: status %d, body %s", id, w.Code, w.Body.String())
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestCreateCompany(t *testing.T) {
	e := newTestEnv(t)

	e.createCompany(t, "acme", 5000, 10)

	t.Run("duplicate conflicts", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/companies", `{"company_id":"acme","type":"trader"}`)
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
		resp := decode[errorResponse](t, w)
		if resp.Error != "company_already_exists" {
			t.Errorf("error = %s, want company_already_exists", resp.Error)
		}
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/companies", `{"company_id":"c2","type":"bank"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("missing content type rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/companies", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unknown initial good", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/companies", `{"company_id":"c3","type":"trader","initial_stocks":{"unobtanium":1}}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestGetInventory(t *testing.T) {
	e := newTestEnv(t)
	e.createCompany(t, "acme", 5000, 10)

	w := e.do(t, http.MethodGet, "/companies/acme/inventory", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	inv := decode[inventoryResponse](t, w)
	if inv.Cash != 5000 {
		t.Errorf("cash = %d, want 5000", inv.Cash)
	}
	if inv.CashDollars != 50.0 {
		t.Errorf("cash_dollars = %v, want 50.0", inv.CashDollars)
	}
	if len(inv.Stocks) != 1 || inv.Stocks[0].Quantity != 10 {
		t.Errorf("stocks = %+v, want 10 grain", inv.Stocks)
	}
	// 5000 cash + 10 grain at base price 100.
	if inv.TotalValue != 6000 {
		t.Errorf("total_value = %d, want 6000", inv.TotalValue)
	}

	if w := e.do(t, http.MethodGet, "/companies/ghost/inventory", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown company status = %d, want 404", w.Code)
	}
}

func TestSubmitOrder(t *testing.T) {
	e := newTestEnv(t)
	e.createCompany(t, "acme", 5000, 10)

	t.Run("creates buy order", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/orders",
			`{"company_id":"acme","good_id":"grain","side":"buy","price":100,"quantity":10}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		order := decode[orderResponse](t, w)
		if order.OrderID == "" || order.Status != "open" || order.RemainingQuantity != 10 {
			t.Errorf("order = %+v", order)
		}
	})

	t.Run("insufficient funds conflicts", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/orders",
			`{"company_id":"acme","good_id":"grain","side":"buy","price":1000,"quantity":1000}`)
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})

	t.Run("insufficient stock conflicts", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/orders",
			`{"company_id":"acme","good_id":"grain","side":"sell","price":100,"quantity":999}`)
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})

	t.Run("unknown good 404", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/orders",
			`{"company_id":"acme","good_id":"unobtanium","side":"buy","price":100,"quantity":1}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("zero quantity 400", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/orders",
			`{"company_id":"acme","good_id":"grain","side":"buy","price":100,"quantity":0}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	e.createCompany(t, "seller", 0, 10)

	w := e.do(t, http.MethodPost, "/orders",
		`{"company_id":"seller","good_id":"grain","side":"sell","price":90,"quantity":10}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: status %d", w.Code)
	}
	order := decode[orderResponse](t, w)

	if w := e.do(t, http.MethodGet, "/orders/"+order.OrderID, ""); w.Code != http.StatusOK {
		t.Errorf("get order status = %d, want 200", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/orders/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("get missing order status = %d, want 404", w.Code)
	}

	if w := e.do(t, http.MethodDelete, "/orders/"+order.OrderID, ""); w.Code != http.StatusBadRequest {
		t.Errorf("cancel without company_id status = %d, want 400", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/orders/"+order.OrderID+"?company_id=intruder", ""); w.Code != http.StatusForbidden {
		t.Errorf("cancel by non-owner status = %d, want 403", w.Code)
	}

	w = e.do(t, http.MethodDelete, "/orders/"+order.OrderID+"?company_id=seller", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body %s", w.Code, w.Body.String())
	}
	cancelled := decode[orderResponse](t, w)
	if cancelled.Status != "cancelled" {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	if w := e.do(t, http.MethodDelete, "/orders/"+order.OrderID+"?company_id=seller", ""); w.Code != http.StatusConflict {
		t.Errorf("double cancel status = %d, want 409", w.Code)
	}
}

func TestListCompanyOrders(t *testing.T) {
	e := newTestEnv(t)
	e.createCompany(t, "acme", 100000, 0)

	for i := 0; i < 3; i++ {
		w := e.do(t, http.MethodPost, "/orders",
			`{"company_id":"acme","good_id":"grain","side":"buy","price":50,"quantity":5}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("submit %d: status %d", i, w.Code)
		}
	}

	w := e.do(t, http.MethodGet, "/companies/acme/orders?status=open&limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[struct {
		Orders []orderResponse `json:"orders"`
	}](t, w)
	if len(resp.Orders) != 2 {
		t.Errorf("len(orders) = %d, want 2", len(resp.Orders))
	}

	if w := e.do(t, http.MethodGet, "/companies/acme/orders?status=bogus", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bogus status filter = %d, want 400", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/companies/acme/orders?limit=-1", ""); w.Code != http.StatusBadRequest {
		t.Errorf("negative limit = %d, want 400", w.Code)
	}
}

func TestMarketReadEndpoints(t *testing.T) {
	e := newTestEnv(t)
	e.createCompany(t, "buyer", 10000, 0)
	e.createCompany(t, "seller", 0, 10)

	e.do(t, http.MethodPost, "/orders",
		`{"company_id":"buyer","good_id":"grain","side":"buy","price":100,"quantity":10}`)
	e.do(t, http.MethodPost, "/orders",
		`{"company_id":"seller","good_id":"grain","side":"sell","price":90,"quantity":10}`)
	e.manager.Step()

	t.Run("goods", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/goods", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		resp := decode[struct {
			Goods []service.GoodView `json:"goods"`
		}](t, w)
		if len(resp.Goods) != 1 {
			t.Fatalf("len(goods) = %d, want 1", len(resp.Goods))
		}
		g := resp.Goods[0]
		if g.ID != "grain" || g.BasePrice != 100 || g.CurrentPrice != 98 {
			t.Errorf("good = %+v, want grain base 100 current 98", g)
		}
	})

	t.Run("all trades", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/trades?limit=5", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		resp := decode[struct {
			Trades []tradeResponse `json:"trades"`
		}](t, w)
		if len(resp.Trades) != 1 || resp.Trades[0].GoodID != "grain" {
			t.Errorf("trades = %+v, want one grain trade", resp.Trades)
		}
	})

	t.Run("depth", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/goods/grain/depth", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if w := e.do(t, http.MethodGet, "/goods/unobtanium/depth", ""); w.Code != http.StatusNotFound {
			t.Errorf("unknown good depth = %d, want 404", w.Code)
		}
	})

	t.Run("trades", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/goods/grain/trades", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		resp := decode[struct {
			Trades []tradeResponse `json:"trades"`
		}](t, w)
		if len(resp.Trades) != 1 || resp.Trades[0].Price != 90 {
			t.Errorf("trades = %+v, want one at 90", resp.Trades)
		}
	})

	t.Run("price history", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/goods/grain/prices?limit=10", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		snap := decode[engine.PriceSnapshot](t, w)
		if snap.GoodID != "grain" || len(snap.History) != 1 {
			t.Errorf("snapshot = %+v, want grain with one point", snap)
		}
	})

	t.Run("prices", func(t *testing.T) {
		if w := e.do(t, http.MethodGet, "/prices", ""); w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("stats", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/stats", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		stats := decode[sim.TickStats](t, w)
		if stats.TradeCount != 1 || stats.Turnover != 900 {
			t.Errorf("stats = %+v, want 1 trade turnover 900", stats)
		}
	})
}
