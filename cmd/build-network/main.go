// Package main builds the routable trail network from the ingested trails.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mkoster/trailnet/internal/build"
	"github.com/mkoster/trailnet/internal/config"
	"github.com/mkoster/trailnet/internal/db"
	"github.com/mkoster/trailnet/internal/ingest"
	"github.com/mkoster/trailnet/internal/repository"
	"github.com/mkoster/trailnet/internal/repository/sqlite"
)

const (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func main() {
	fmt.Printf("%s%strailnet Network Builder%s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("%s%s%s\n\n", colorGray, strings.Repeat("─", 40), colorReset)

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	fmt.Printf("%s→%s Loading configuration from %s%s%s...\n", colorBlue, colorReset, colorYellow, configPath, colorReset)
	cfg, err := config.LoadFromYAML(configPath)
	if err != nil {
		fmt.Printf("%s✗ Failed to load config:%s %v\n", colorRed, colorReset, err)
		os.Exit(1)
	}
	fmt.Printf("%s✓%s Configuration loaded\n\n", colorGreen, colorReset)

	database, err := db.NewDB(db.Config{Path: cfg.Database.Path})
	if err != nil {
		fmt.Printf("%s✗ Failed to open store:%s %v\n", colorRed, colorReset, err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.InitializeSchema(); err != nil {
		fmt.Printf("%s✗ Failed to initialize schema:%s %v\n", colorRed, colorReset, err)
		os.Exit(1)
	}

	repos := sqlite.NewRepositories(database.DB)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ingestTrails(ctx, cfg, repos); err != nil {
		fmt.Printf("%s✗ Ingest failed:%s %v\n", colorRed, colorReset, err)
		os.Exit(1)
	}

	coordinator := build.NewCoordinator(cfg, repos, database.DB)
	if err := runBuild(ctx, coordinator); err != nil {
		os.Exit(1)
	}

	if cfg.Ingest.Watch {
		fmt.Printf("\n%s→%s Watching %s%s%s for changes...\n",
			colorBlue, colorReset, colorYellow, cfg.Ingest.TrailDir, colorReset)
		watcher, err := ingest.NewWatcher(cfg.Ingest.TrailDir, 2*time.Second, func() {
			if err := ingestTrails(ctx, cfg, repos); err != nil {
				log.Printf("WARNING: re-ingest failed: %v", err)
				return
			}
			_ = runBuild(ctx, coordinator)
		})
		if err != nil {
			fmt.Printf("%s✗ Failed to start watcher:%s %v\n", colorRed, colorReset, err)
			os.Exit(1)
		}
		defer watcher.Close()
		<-ctx.Done()
		fmt.Printf("\n%s✓%s Shutting down\n", colorGreen, colorReset)
	}
}

// ingestTrails replaces the trail table with the GeoJSON directory's
// contents. A missing directory keeps whatever the store already holds.
func ingestTrails(ctx context.Context, cfg *config.Config, repos *repository.Repositories) error {
	if _, err := os.Stat(cfg.Ingest.TrailDir); os.IsNotExist(err) {
		fmt.Printf("%s→%s Trail directory %s absent, using stored trails\n",
			colorBlue, colorReset, cfg.Ingest.TrailDir)
		return nil
	}

	trails, stats, err := ingest.LoadDir(cfg.Ingest.TrailDir)
	if err != nil {
		return err
	}
	fmt.Printf("%s✓%s Ingested %d trails from %d files (%d features skipped)\n",
		colorGreen, colorReset, len(trails), stats.Files, stats.FeaturesSkipped)
	for _, reason := range stats.SkipReasons {
		log.Printf("WARNING: skipped feature: %s", reason)
	}
	if len(trails) == 0 {
		return nil
	}

	return repos.TxManager.WithTransaction(ctx, func(tx repository.Transaction) error {
		exec := tx.Executor()
		if err := repos.Trails.DeleteAll(exec, ctx); err != nil {
			return err
		}
		return repos.Trails.CreateBatch(exec, ctx, trails)
	})
}

// runBuild executes one build and prints the per-stage summary.
func runBuild(ctx context.Context, coordinator *build.Coordinator) error {
	fmt.Printf("%s→%s Building network...\n", colorBlue, colorReset)
	stats, err := coordinator.Run(ctx)
	if err != nil {
		fmt.Printf("%s✗ Build failed:%s %v\n", colorRed, colorReset, err)
		return err
	}

	fmt.Printf("%s✓%s Build complete in %d ms\n", colorGreen, colorReset, stats.BuildDurationMS)
	for _, stage := range stats.Stages {
		fmt.Printf("  %s%-12s%s in=%-5d out=%-5d removed=%-4d %s%dms%s\n",
			colorCyan, stage.Stage, colorReset, stage.Inputs, stage.Outputs,
			stage.Removed, colorGray, stage.DurationMS, colorReset)
	}
	if len(stats.Warnings) > 0 {
		fmt.Printf("%s! %d warnings%s\n", colorYellow, len(stats.Warnings), colorReset)
		for _, w := range stats.Warnings {
			fmt.Printf("  %s- %s%s\n", colorYellow, w, colorReset)
		}
	}
	fmt.Printf("\n  Trails: %d → Split: %d → Edges: %d, Vertices: %d, Composition: %d\n",
		stats.TrailsIn, stats.SplitTrails, stats.Edges, stats.Vertices, stats.CompositionEntries)
	return nil
}
