package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/avelis/commodex/internal/sim"
)

func testSnapshot() *sim.MarketSnapshot {
	return &sim.MarketSnapshot{
		Tick:  7,
		Depth: map[string]sim.DepthSnapshot{},
	}
}

type wsHandler struct{ hub *Hub }

func (h wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}

func TestHub_SnapshotThenDeltas(t *testing.T) {
	hub := NewHub(func() *sim.MarketSnapshot { return testSnapshot() }, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(wsHandler{hub})
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// First frame is the full-state snapshot for the late joiner.
	var first Envelope
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Type != "snapshot" {
		t.Fatalf("first frame type = %s, want snapshot", first.Type)
	}

	waitForClients(t, hub, 1)

	hub.Publish(&sim.TickSummary{Tick: 8, Stats: sim.TickStats{Tick: 8, TradeCount: 2}})

	var second Envelope
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if second.Type != "tick_summary" {
		t.Fatalf("second frame type = %s, want tick_summary", second.Type)
	}
	raw, _ := json.Marshal(second.Data)
	var summary sim.TickSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Tick != 8 || summary.Stats.TradeCount != 2 {
		t.Errorf("summary = tick %d trades %d, want 8/2", summary.Tick, summary.Stats.TradeCount)
	}
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	hub := NewHub(func() *sim.MarketSnapshot { return testSnapshot() }, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(wsHandler{hub})
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_ShutdownUnblocksClientPumps(t *testing.T) {
	hub := NewHub(func() *sim.MarketSnapshot { return testSnapshot() }, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(runDone)
	}()

	srv := httptest.NewServer(wsHandler{hub})
	defer srv.Close()

	baseline := runtime.NumGoroutine()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForClients(t, hub, 1)

	cancel()
	<-runDone

	// The server closes the connection; drain until the peer sees it.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	conn.Close()

	// Both pump goroutines must unwind even though nobody services
	// unregister anymore; a parked read pump shows up as a goroutine
	// that never goes away.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= baseline {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("goroutines = %d, want <= %d after shutdown", runtime.NumGoroutine(), baseline)
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ClientCount = %d, want %d", hub.ClientCount(), want)
}
