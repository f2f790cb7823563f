package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/trogers1052/quant-sim/internal/api"
	"github.com/trogers1052/quant-sim/internal/backtest"
	"github.com/trogers1052/quant-sim/internal/combiner"
	"github.com/trogers1052/quant-sim/internal/config"
	"github.com/trogers1052/quant-sim/internal/database"
	"github.com/trogers1052/quant-sim/internal/kafka"
	"github.com/trogers1052/quant-sim/internal/live"
	"github.com/trogers1052/quant-sim/internal/marketdata"
	"github.com/trogers1052/quant-sim/internal/portfolio"
	"github.com/trogers1052/quant-sim/internal/strategy"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the live simulation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(migrationsPath)
		},
	}
	cmd.Flags().StringVar(&migrationsPath, "migrations", "db/migrations", "Path to database migrations")
	return cmd
}

func runServe(migrationsPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(migrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	quotes := marketdata.NewQuoteCache(cfg.Redis)
	defer quotes.Close()
	if err := quotes.Ping(context.Background()); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TradeTopic)
	defer producer.Close()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.PriceTopic, cfg.Kafka.GroupID, quotes)
	defer consumer.Close()

	strategies, err := buildStrategies()
	if err != nil {
		return err
	}
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name()
	}

	comb, err := combiner.New(cfg.Combiner, names)
	if err != nil {
		return fmt.Errorf("failed to create signal combiner: %w", err)
	}

	manager := portfolio.NewManager(cfg.Trading, cfg.Risk)
	backtester := backtest.New(cfg.Trading)

	engine, err := live.New(cfg, strategies, comb, manager, db, quotes, producer)
	if err != nil {
		return fmt.Errorf("failed to create live engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Price consumer stopped: %v", err)
		}
	}()

	if err := engine.Start(ctx); err != nil {
		return err
	}

	handler := api.NewHandler(db, engine, backtester, comb)
	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: api.SetupRoutes(handler),
	}

	go func() {
		log.Printf("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down...")

	cancel()
	if err := engine.Stop(shutdownTimeout); err != nil {
		log.Printf("Live engine shutdown: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.Load()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func buildStrategies() ([]strategy.Strategy, error) {
	doubleMA, err := strategy.NewDoubleMA(5, 20)
	if err != nil {
		return nil, err
	}
	rsi, err := strategy.NewRSIStrategy(14, 30, 70)
	if err != nil {
		return nil, err
	}
	return []strategy.Strategy{doubleMA, rsi}, nil
}
