package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/avelis/commodex/internal/domain"
)

// GoodConfig describes one tradeable good parsed from the environment.
type GoodConfig struct {
	ID         string
	Name       string
	BasePrice  int64
	Elasticity float64
}

// Config holds all runtime configuration for the commodity market.
type Config struct {
	Port     int
	LogLevel string

	TickInterval        time.Duration
	HealthCheckInterval int64
	DeviationThreshold  float64
	AboveCorrection     float64
	BelowCorrection     float64
	DefaultElasticity   float64
	PriceRetention      int
	TradeRetention      int
	JournalSize         int
	DepthLevels         int

	WorkerPoolSize    int
	WorkerTaskTimeout time.Duration

	Goods []GoodConfig

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	tickInterval, err := getDuration("TICK_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}

	healthCheckInterval, err := getInt("HEALTH_CHECK_INTERVAL", 50)
	if err != nil || healthCheckInterval < 0 {
		return nil, fmt.Errorf("invalid HEALTH_CHECK_INTERVAL: must be a non-negative tick count")
	}

	deviationThreshold, err := getFloat("DEVIATION_THRESHOLD", 1.0)
	if err != nil || deviationThreshold <= 0 {
		return nil, fmt.Errorf("invalid DEVIATION_THRESHOLD: must be a positive ratio")
	}

	aboveCorrection, err := getFloat("ABOVE_CORRECTION", 1.5)
	if err != nil || aboveCorrection <= 0 {
		return nil, fmt.Errorf("invalid ABOVE_CORRECTION: must be a positive factor")
	}

	belowCorrection, err := getFloat("BELOW_CORRECTION", 0.7)
	if err != nil || belowCorrection <= 0 {
		return nil, fmt.Errorf("invalid BELOW_CORRECTION: must be a positive factor")
	}

	defaultElasticity, err := getFloat("DEFAULT_ELASTICITY", 0.1)
	if err != nil || defaultElasticity <= 0 {
		return nil, fmt.Errorf("invalid DEFAULT_ELASTICITY: must be positive")
	}

	priceRetention, err := getInt("PRICE_RETENTION", 500)
	if err != nil || priceRetention < 2 {
		return nil, fmt.Errorf("invalid PRICE_RETENTION: must be >= 2")
	}

	tradeRetention, err := getInt("TRADE_RETENTION", 1000)
	if err != nil || tradeRetention < 1 {
		return nil, fmt.Errorf("invalid TRADE_RETENTION: must be >= 1")
	}

	journalSize, err := getInt("JOURNAL_SIZE", 10000)
	if err != nil || journalSize < 1 {
		return nil, fmt.Errorf("invalid JOURNAL_SIZE: must be >= 1")
	}

	depthLevels, err := getInt("DEPTH_LEVELS", 10)
	if err != nil || depthLevels < 1 {
		return nil, fmt.Errorf("invalid DEPTH_LEVELS: must be >= 1")
	}

	workerPoolSize, err := getInt("WORKER_POOL_SIZE", 4)
	if err != nil || workerPoolSize < 1 {
		return nil, fmt.Errorf("invalid WORKER_POOL_SIZE: must be >= 1")
	}

	workerTaskTimeout, err := getDuration("WORKER_TASK_TIMEOUT", 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_TASK_TIMEOUT: %w", err)
	}

	goods, err := parseGoods(getStr("GOODS", "grain:200,iron:500,wool:300"), defaultElasticity)
	if err != nil {
		return nil, err
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                port,
		LogLevel:            logLevel,
		TickInterval:        tickInterval,
		HealthCheckInterval: int64(healthCheckInterval),
		DeviationThreshold:  deviationThreshold,
		AboveCorrection:     aboveCorrection,
		BelowCorrection:     belowCorrection,
		DefaultElasticity:   defaultElasticity,
		PriceRetention:      priceRetention,
		TradeRetention:      tradeRetention,
		JournalSize:         journalSize,
		DepthLevels:         depthLevels,
		WorkerPoolSize:      workerPoolSize,
		WorkerTaskTimeout:   workerTaskTimeout,
		Goods:               goods,
		ReadTimeout:         readTimeout,
		WriteTimeout:        writeTimeout,
		IdleTimeout:         idleTimeout,
		ShutdownTimeout:     shutdownTimeout,
	}, nil
}

// DomainGoods converts the configured goods to domain values.
func (c *Config) DomainGoods() []*domain.Good {
	out := make([]*domain.Good, len(c.Goods))
	for i, g := range c.Goods {
		out[i] = &domain.Good{
			ID:         g.ID,
			Name:       g.Name,
			BasePrice:  g.BasePrice,
			Elasticity: g.Elasticity,
		}
	}
	return out
}

// parseGoods parses the GOODS variable. Each entry is
// "id:basePrice[:elasticity]", entries separated by commas, e.g.
// "grain:200,iron:500:0.2". Base prices are minor currency units.
func parseGoods(raw string, defaultElasticity float64) ([]GoodConfig, error) {
	entries := strings.Split(raw, ",")
	goods := make([]GoodConfig, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid GOODS entry %q: want id:basePrice[:elasticity]", entry)
		}

		id := strings.TrimSpace(parts[0])
		if id == "" {
			return nil, fmt.Errorf("invalid GOODS entry %q: empty id", entry)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate good %q in GOODS", id)
		}
		seen[id] = true

		basePrice, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil || basePrice < 1 {
			return nil, fmt.Errorf("invalid base price for good %q: must be a positive integer", id)
		}

		elasticity := defaultElasticity
		if len(parts) == 3 {
			elasticity, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
			if err != nil || elasticity <= 0 {
				return nil, fmt.Errorf("invalid elasticity for good %q: must be positive", id)
			}
		}

		goods = append(goods, GoodConfig{
			ID:         id,
			Name:       titleCase(id),
			BasePrice:  basePrice,
			Elasticity: elasticity,
		})
	}

	if len(goods) == 0 {
		return nil, fmt.Errorf("GOODS must define at least one good")
	}
	return goods, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
