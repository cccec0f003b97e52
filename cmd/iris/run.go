package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/git-iris/gitiris/internal/agentrt"
	"github.com/git-iris/gitiris/internal/config"
	gitctx "github.com/git-iris/gitiris/internal/context"
	"github.com/git-iris/gitiris/internal/observability"
	"github.com/git-iris/gitiris/internal/pulseobserver"
	"github.com/git-iris/gitiris/pkg/giris"
)

// loadConfig loads and applies CLI-level overrides on top of the merged
// personal/project/environment configuration, per spec.md §6's
// Configuration shape.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(repoPath)
	if err != nil {
		return config.Config{}, err
	}
	if providerOverride != "" {
		cfg.DefaultProvider = providerOverride
	}
	if modelOverride != "" {
		p := cfg.Providers[cfg.DefaultProvider]
		p.Model = modelOverride
		cfg.Providers[cfg.DefaultProvider] = p
	}
	if noGitmoji {
		cfg.UseGitmoji = false
	}
	if instructionPreset != "" {
		cfg.InstructionPreset = instructionPreset
	}
	if verbose {
		cfg.Performance.VerboseLogging = true
	}
	return cfg, nil
}

func newLogger(verboseLogging bool) observability.Logger {
	var z *zap.Logger
	var err error
	if verboseLogging {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		return observability.NoopLogger{}
	}
	return observability.NewZapLogger(z)
}

// runCapability executes cap against the repository at repoPath and prints
// the rendered artifact to stdout.
func runCapability(cap gitctx.Capability) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Performance.VerboseLogging)

	ctx := context.Background()
	observer, closeObserver := newPulseObserver(logger)
	if closeObserver != nil {
		defer closeObserver(ctx)
	}

	resp, err := giris.ExecuteTask(ctx, repoPath, giris.Request{
		Capability: cap,
		Config:     cfg,
		Logger:     logger,
		Observer:   observer,
	})
	if err != nil {
		return err
	}
	fmt.Println(resp.Text)
	return nil
}

// newPulseObserver builds a PulseObserver publishing this run's status
// updates to Redis when --pulse-redis is set, so a detached process can
// tail progress the CLI itself does not display. Returns a nil Observer
// (agentrt falls back to its own no-op) when the flag is unset.
func newPulseObserver(logger observability.Logger) (agentrt.Observer, func(context.Context)) {
	if pulseRedisAddr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: pulseRedisAddr})
	client, err := pulseobserver.NewClient(pulseobserver.ClientOptions{Redis: rdb})
	if err != nil {
		logger.Warn(context.Background(), "pulse observer disabled", "error", err.Error())
		return nil, nil
	}
	obs, err := pulseobserver.NewPulseObserver(pulseobserver.Options{
		Client: client,
		RunID:  uuid.New().String(),
		Logger: logger,
	})
	if err != nil {
		logger.Warn(context.Background(), "pulse observer disabled", "error", err.Error())
		return nil, func(ctx context.Context) { _ = rdb.Close() }
	}
	return obs, func(ctx context.Context) {
		_ = obs.Close(ctx)
		_ = rdb.Close()
	}
}
