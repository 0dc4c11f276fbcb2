package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/avelis/commodex/internal/broadcast"
	"github.com/avelis/commodex/internal/config"
	"github.com/avelis/commodex/internal/domain"
	"github.com/avelis/commodex/internal/engine"
	"github.com/avelis/commodex/internal/handler"
	"github.com/avelis/commodex/internal/ledger"
	"github.com/avelis/commodex/internal/service"
	"github.com/avelis/commodex/internal/sim"
	"github.com/avelis/commodex/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load .env if present; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	// Core market state.
	goods := domain.NewGoodRegistry()
	books := engine.NewBooks()
	board := engine.NewPriceBoard()
	orders := store.NewOrderStore()
	trades := store.NewTradeStore(cfg.TradeRetention)
	accounts := ledger.New(cfg.JournalSize)

	pool := sim.NewWorkerPool(cfg.WorkerPoolSize, cfg.WorkerTaskTimeout, log)
	pool.Start()
	defer pool.Stop()

	manager := sim.NewManager(sim.ManagerConfig{
		TickInterval:        cfg.TickInterval,
		HealthCheckInterval: cfg.HealthCheckInterval,
		DeviationThreshold:  cfg.DeviationThreshold,
		AboveCorrection:     cfg.AboveCorrection,
		BelowCorrection:     cfg.BelowCorrection,
		PriceRetention:      cfg.PriceRetention,
		DepthLevels:         cfg.DepthLevels,
	}, sim.Deps{
		Goods:  goods,
		Ledger: accounts,
		Books:  books,
		Board:  board,
		Orders: orders,
		Trades: trades,
		Pool:   pool,
		Log:    log,
	})

	for _, good := range cfg.DomainGoods() {
		if err := manager.RegisterGood(good); err != nil {
			log.Fatal().Err(err).Str("good_id", good.ID).Msg("failed to register good")
		}
		log.Info().
			Str("good_id", good.ID).
			Int64("base_price", good.BasePrice).
			Float64("elasticity", good.Elasticity).
			Msg("good registered")
	}

	hub := broadcast.NewHub(manager.Snapshot, log)
	manager.SetPublisher(hub)

	companySvc := service.NewCompanyService(manager, goods)
	marketSvc := service.NewMarketService(manager, goods, board, trades)
	router := handler.NewRouter(companySvc, marketSvc, hub.ServeWS, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)
	go func() {
		if err := manager.Run(ctx); err != nil {
			log.Error().Err(err).Msg("economy manager exited with error")
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	cancel()

	log.Info().Msg("server stopped")
}
