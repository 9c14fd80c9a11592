package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/plantops/internal/app"
	"github.com/tair/plantops/internal/inventory/ledger"
	"github.com/tair/plantops/pkg/config"
	"github.com/tair/plantops/pkg/logger"
)

// ledger-audit replays every part's stock journal and reports the parts
// whose stored quantity disagrees with it. Exits with status 1 on drift.
func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "audit timeout")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.ServiceName+"-ledger-audit", cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	store, err := app.NewPostgresStore(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	drifts, err := ledger.NewLedger(store.Inventory, store.Tx, prometheus.NewRegistry()).Audit(ctx)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Ledger audit failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(drifts); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to write report")
	}
	if len(drifts) > 0 {
		store.Close()
		os.Exit(1)
	}
}
