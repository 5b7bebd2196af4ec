package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/universe/internal/config"
	"github.com/l1jgo/universe/internal/core/ecs"
	"github.com/l1jgo/universe/internal/core/event"
	coresys "github.com/l1jgo/universe/internal/core/system"
	"github.com/l1jgo/universe/internal/data"
	"github.com/l1jgo/universe/internal/scripting"
	"github.com/l1jgo/universe/internal/system"
	"github.com/l1jgo/universe/internal/universe"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(cfgPath string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             Universe  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      chunk / entity hierarchy manager     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mconfig:\033[0m %s\n\n", cfgPath)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ──────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfgPath)

	// 3. Host world, event bus and universe
	printSection("universe")
	world := ecs.NewWorld()
	host := universe.NewWorldHost(world)
	bus := event.NewBus()
	u := universe.New(host, bus, log.Named("universe"),
		universe.WithQueueWarnThreshold(cfg.Universe.QueueWarnThreshold))
	subscribeEvents(bus, log.Named("events"))
	printOK("universe ready")

	// 4. Scripts
	var engine *scripting.Engine
	if cfg.Scripting.Enabled {
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, u, host, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		printOK(fmt.Sprintf("lua scripts loaded from %s", cfg.Scripting.Dir))
	}
	fmt.Println()

	// 5. Seed layout
	printSection("layout")
	if err := seedLayout(u, cfg.Universe.Layout, log); err != nil {
		return err
	}
	fmt.Println()

	// 6. Systems
	runner := coresys.NewRunner()
	if engine != nil {
		runner.Register(system.NewScriptSystem(engine))
	}
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewUniverseSystem(u, log.Named("universe")))
	runner.Register(system.NewStatsSystem(u, host, cfg.Universe.StatsInterval, log.Named("stats")))
	runner.Register(system.NewCleanupSystem(host, log))

	// 7. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Universe.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Universe.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Universe.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			// drain what is already queued so callbacks see their outcome
			runner.Tick(cfg.Universe.TickRate)
			s := u.Stats()
			log.Info("universe stopped",
				zap.Uint64("ticks", runner.Ticks()),
				zap.Int("chunks", s.Chunks),
				zap.Int("entities", s.Entities))
			if err := u.VerifyConsistency(); err != nil {
				log.Error("hierarchy inconsistent at shutdown", zap.Error(err))
			}
			return nil
		}
	}
}

// seedLayout queues the configured layout. A missing file starts empty.
func seedLayout(u *universe.Universe, path string, log *zap.Logger) error {
	if path == "" {
		printOK("no layout configured")
		return nil
	}
	l, err := data.LoadLayout(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("layout file not found, starting empty", zap.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load layout: %w", err)
	}
	chunks, entities := l.Counts()
	printStat("chunks", chunks)
	printStat("entities", entities)

	sent, err := u.SeedLayout(l, func(err error) {
		log.Warn("layout operation failed", zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("seed layout: %w", err)
	}
	printStat("requests queued", sent)
	return nil
}

func subscribeEvents(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(ev universe.ChunkEvent) {
		log.Debug("chunk", zap.Stringer("op", ev.Kind), zap.Stringer("id", ev.ID))
	})
	event.Subscribe(bus, func(ev universe.EntityEvent) {
		log.Debug("entity", zap.Stringer("op", ev.Kind), zap.Stringer("id", ev.ID))
	})
	event.Subscribe(bus, func(ev event.QueueBacklog) {
		log.Info("backlog drained",
			zap.Uint64("tick", ev.Tick),
			zap.Int("requests", ev.Pending))
	})
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
