package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/anamnesis"
	"github.com/aretw0/anamnesis/internal/config"
	"github.com/aretw0/anamnesis/internal/logging"
	"github.com/aretw0/anamnesis/pkg/adapters/memory"
	"github.com/aretw0/anamnesis/pkg/domain"
)

// loadConfig layers command flags over the file and environment configuration.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(path, envFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("graph") {
		cfg.Graph, _ = flags.GetString("graph")
	}
	if flags.Changed("store") {
		cfg.Store.Kind, _ = flags.GetString("store")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(os.Stderr, level, cfg.Log.Format), nil
}

// app is the wired runtime shared by the commands.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	engine  *anamnesis.Engine
	backend *config.Backend
}

func (a *app) Close() error {
	return a.backend.Close()
}

// hooksFunc builds lifecycle hooks once the configured logger exists.
type hooksFunc func(*slog.Logger) domain.LifecycleHooks

// newApp loads configuration and builds the engine over the configured store.
func newApp(cmd *cobra.Command, hooks hooksFunc) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	backend, err := cfg.OpenBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	opts := []anamnesis.Option{
		anamnesis.WithLogger(logger),
		anamnesis.WithStore(backend.Store),
		anamnesis.WithBackNavigation(cfg.Consultation.BackNavigation),
		anamnesis.WithReuseOpen(cfg.Consultation.ReuseOpen),
		anamnesis.WithLockTimeout(cfg.Consultation.LockTimeout),
		anamnesis.WithDirectory(memory.NewDirectory(nilIfEmpty(cfg.Directory.Patients), nilIfEmpty(cfg.Directory.Doctors))),
	}
	if hooks != nil {
		opts = append(opts, anamnesis.WithLifecycleHooks(hooks(logger)))
	}
	if backend.Locker != nil {
		opts = append(opts, anamnesis.WithLocker(backend.Locker))
	}

	engine, err := anamnesis.New(cfg.Graph, opts...)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("error initializing anamnesis: %w", err)
	}
	logger.Debug("Engine ready", "graph", cfg.Graph, "store", cfg.Store.Kind, "nodes", engine.Graph().Len())
	return &app{cfg: cfg, logger: logger, engine: engine, backend: backend}, nil
}

func nilIfEmpty(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return ids
}
