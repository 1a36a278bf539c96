package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hexworld/engine/internal/config"
	"github.com/hexworld/engine/internal/core/event"
	coresys "github.com/hexworld/engine/internal/core/system"
	"github.com/hexworld/engine/internal/data"
	"github.com/hexworld/engine/internal/observer"
	"github.com/hexworld/engine/internal/persist"
	"github.com/hexworld/engine/internal/render"
	"github.com/hexworld/engine/internal/scripting"
	"github.com/hexworld/engine/internal/stream"
	"github.com/hexworld/engine/internal/system"
	"github.com/hexworld/engine/internal/tile"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(worldName, seed string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             hexworld  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       六角格程序世界 · 區塊串流引擎       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m世界:\033[0m %s \033[90m(種子: %s)\033[0m\n\n", worldName, seed)
}

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(p *message.Printer, label string, count int) {
	numStr := p.Sprintf("%d", count)
	dotsLen := 42 - displayWidth(label) - len(numStr)
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

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/hexworld.toml"
	if p := os.Getenv("HEXWORLD_CONFIG"); p != "" {
		cfgPath = p
	}
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

	p := message.NewPrinter(language.Make(cfg.Logging.Locale))
	printBanner(cfg.World.Name, cfg.World.Seed)

	// 3. World generation tables and rule scripts
	printSection("世界生成")

	table := data.DefaultWorldgen()
	if cfg.World.Worldgen != "" {
		if table, err = data.LoadWorldgen(cfg.World.Worldgen); err != nil {
			return fmt.Errorf("load worldgen: %w", err)
		}
		printOK("生成參數表 " + cfg.World.Worldgen)
	} else {
		printOK("使用內建生成參數")
	}

	gen, err := tile.NewGenerator(cfg.World.NoiseSeed(), table)
	if err != nil {
		return fmt.Errorf("generator: %w", err)
	}

	if cfg.World.Scripts != "" {
		rules, err := scripting.NewEngine(cfg.World.Scripts, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer rules.Close()
		if rules.HasRule() {
			gen.SetHook(rules)
			printOK("Lua 地塊規則已載入")
		}
	}
	fmt.Println()

	store := tile.NewStore(gen, cfg.World.Resolution)
	bus := event.NewBus()
	proxies := render.NewMemoryFactory()

	// 4. Database and restore
	printSection("資料庫")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := persist.Open(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if repo != nil {
		defer repo.Close()
		printOK(fmt.Sprintf("%s 連線成功，遷移完成", cfg.Database.Driver))
	} else {
		printOK("資料庫停用")
	}

	grid := stream.New(context.Background(), log, store, proxies, bus, stream.SystemClock{}, streamOptions(cfg.Streaming))

	persistSys := system.NewPersistSystem(grid, repo, cfg.World.Name, cfg.Database.SaveEvery, cfg.Snapshot, log)
	restored, err := persistSys.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	printStat(p, "已還原地塊", restored)
	fmt.Println()

	// 5. Observer
	var pub system.StatsPublisher
	obsCtx, stopObserver := context.WithCancel(context.Background())
	defer stopObserver()
	if cfg.Observer.Enabled {
		obs := observer.NewServer(cfg.Observer, log)
		obs.Subscribe(bus)
		pub = obs
		go func() {
			if err := obs.ListenAndServe(obsCtx, cfg.Observer.BindAddress); err != nil {
				log.Error("觀察者服務停止", zap.Error(err))
			}
		}()
	}

	// 6. Systems
	camera := system.NewFlyCamera(cfg.Camera, cfg.World.NoiseSeed())
	runner := coresys.NewRunner()
	runner.Register(system.NewNotifySystem(bus, log))
	runner.Register(system.NewFinalizeSystem(grid))
	runner.Register(system.NewStreamingSystem(grid, camera))
	runner.Register(persistSys)
	statsEvery := int(time.Second / cfg.Streaming.TickRate)
	runner.Register(system.NewStatsSystem(grid, pub, log, statsEvery))

	// 7. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Streaming.TickRate)
	defer ticker.Stop()

	printSection("引擎就緒")
	if cfg.Observer.Enabled {
		printReady(fmt.Sprintf("觀察者位址 ws://%s/ws", cfg.Observer.BindAddress))
	}
	printReady(fmt.Sprintf("主迴圈啟動 (tick: %s, 工作者: %d)", cfg.Streaming.TickRate, cfg.Streaming.Workers))
	fmt.Println()

loop:
	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Streaming.TickRate)
			if cfg.Camera.StopAfter > 0 && runner.Ticks() >= uint64(cfg.Camera.StopAfter) {
				log.Info("飛行結束", zap.Uint64("ticks", runner.Ticks()))
				break loop
			}
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			break loop
		}
	}

	// 8. Shutdown: let in-flight builds finish, then save
	stopObserver()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Streaming.ShutdownTimeout)
	defer cancelShutdown()
	var errs []error
	if err := grid.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := persistSys.SaveAll(); err != nil {
		errs = append(errs, fmt.Errorf("final save: %w", err))
	}

	st := grid.Stats()
	printSection("統計")
	printStat(p, "已探索地塊", st.Tiles)
	printStat(p, "建立的代理", proxies.Created())
	fmt.Println()
	log.Info("引擎已停止")
	return errors.Join(errs...)
}

func streamOptions(c config.StreamingConfig) stream.Options {
	return stream.Options{
		Workers:            c.Workers,
		MaxInFlight:        c.MaxInFlight,
		MaxQueued:          c.MaxQueued,
		MaxHiddenChunks:    c.MaxHiddenChunks,
		ChunkTTL:           c.ChunkTTL,
		LookAheadThreshold: c.LookAheadThreshold,
		LookAheadMax:       c.LookAheadMax,
		LookAheadStride:    c.LookAheadStride,
		RetainDiscovered:   c.RetainDiscovered,
	}
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
