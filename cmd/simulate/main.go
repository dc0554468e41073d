// Package main provides the battle simulator binary: it generates two armies
// from the unit catalog, fights them to the end and prints the survivors.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/battle"
	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/army"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/server"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment only")
	unitsDir := flag.String("units", "content/units", "path to unit template YAML directory")
	programsDir := flag.String("programs", "", "directory of Lua attack programs; overrides scripting.programs_dir")
	seed := flag.Uint64("seed", 0, "random seed; overrides battle.seed (0 = keep config)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *programsDir != "" {
		cfg.Scripting.ProgramsDir = *programsDir
	}
	if *seed != 0 {
		cfg.Battle.Seed = *seed
	}
	if cfg.Battle.Seed == 0 {
		cfg.Battle.Seed = uint64(dice.NewCryptoSource().Intn(math.MaxInt)) + 1
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = observability.Sync(logger) }()

	roller := dice.NewLoggedRoller(dice.NewSeededSource(cfg.Battle.Seed), logger)

	templates, err := army.LoadTemplates(*unitsDir)
	if err != nil {
		logger.Fatal("loading unit templates", zap.Error(err))
	}
	logger.Info("loaded unit templates", zap.Int("count", len(templates)))

	var scripts *scripting.Manager
	if cfg.Scripting.ProgramsDir != "" {
		scripts = scripting.NewManager(roller, logger, cfg.Scripting.InstructionLimit)
		defer scripts.Close()
		if err := scripts.LoadDir(cfg.Scripting.ProgramsDir); err != nil {
			logger.Fatal("loading attack programs", zap.Error(err))
		}
	}

	var reports battle.ReportStore
	if cfg.Reports.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		reports = pool.Reports()
	}

	runner := battle.NewRunner(battle.OptionsFromConfig(cfg.Battle), templates, scripts, roller, reports, logger)

	lc := server.NewLifecycle(logger)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	lc.Add("battle", &server.FuncService{
		StartFn: func(ctx context.Context) error {
			res, err := runner.Run(ctx)
			if res != nil {
				if werr := res.WriteSummary(os.Stdout); werr != nil {
					logger.Warn("writing summary", zap.Error(werr))
				}
			}
			return err
		},
		StopFn: cancel,
	})

	logger.Info("simulation starting",
		zap.Uint64("seed", cfg.Battle.Seed),
		zap.Int("point_budget", cfg.Battle.PointBudget),
		zap.Duration("startup", time.Since(start)),
	)
	if err := lc.Run(runCtx); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		_ = observability.Sync(logger)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "done [%s]\n", time.Since(start).Round(time.Millisecond))
}
