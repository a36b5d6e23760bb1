package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"salesperf-backend/internal/admin"
	"salesperf-backend/internal/aggregate"
	"salesperf-backend/internal/config"
	"salesperf-backend/internal/dashboard"
	"salesperf-backend/internal/database"
	"salesperf-backend/internal/insights"
	"salesperf-backend/internal/leaderboard"
	"salesperf-backend/internal/logger"
	"salesperf-backend/internal/period"
	"salesperf-backend/internal/sales"
	"salesperf-backend/internal/server"
	"salesperf-backend/internal/store"
	"salesperf-backend/internal/targets"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	repo := store.NewPostgres(db)
	clock := period.SystemClock(cfg.Location)
	engine := aggregate.NewEngine(repo)
	targetSvc := targets.NewService(repo, log)

	app := server.New(server.Deps{
		Repo:           repo,
		Sales:          sales.NewService(repo, sales.NewValidator(repo), sales.NewWriter(repo, cfg.Location, log)),
		Targets:        targetSvc,
		Dashboard:      dashboard.NewAssembler(repo, engine, targetSvc.Resolver(), clock),
		Leaderboard:    leaderboard.NewService(engine, clock),
		Insights:       insights.NewService(engine, insights.Summarizer{}, clock, log),
		Directory:      admin.NewDirectory(repo),
		Log:            log,
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTTTL,
		AllowedOrigins: cfg.AllowedOrigins(),
		Location:       cfg.Location,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.HTTPPort), zap.String("timezone", cfg.Timezone))
		errc <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	return nil
}
