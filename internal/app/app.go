package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	server "rift-and-ruin/server"
	servernet "rift-and-ruin/server/internal/net"
	"rift-and-ruin/server/internal/observability"
	"rift-and-ruin/server/internal/sim"
	"rift-and-ruin/server/internal/telemetry"
	"rift-and-ruin/server/internal/world"
	"rift-and-ruin/server/layout"
	"rift-and-ruin/server/logging"
	"rift-and-ruin/server/logging/lifecycle"
	loggingSinks "rift-and-ruin/server/logging/sinks"
)

// Config carries everything Run needs to assemble the server. Zero values
// fall back to DefaultConfig, so a missing config file starts a playable
// arena without any setup.
type Config struct {
	Addr      string `yaml:"addr"`
	ClientDir string `yaml:"clientDir"`
	Layout    string `yaml:"layout"`
	Seed      string `yaml:"seed"`
	TickRate  int    `yaml:"tickRate"`

	World   WorldConfig `yaml:"world"`
	Logging LogConfig   `yaml:"logging"`

	Logger        telemetry.Logger     `yaml:"-"`
	Observability observability.Config `yaml:"-"`
}

// WorldConfig mirrors the procedural generation flags of the arena. The
// seed lives at the top level of Config so operators override it in one
// place.
type WorldConfig struct {
	Walls     bool    `yaml:"walls"`
	WallCount int     `yaml:"wallCount"`
	Ruins     bool    `yaml:"ruins"`
	RuinCount int     `yaml:"ruinCount"`
	Palisade  bool    `yaml:"palisade"`
	Boundary  float64 `yaml:"boundary"`
}

// LogConfig selects the event sinks. Sinks accepts "console", "json", and
// "memory"; JSONPath redirects the json sink away from the default
// logs/events.jsonl.
type LogConfig struct {
	Sinks    []string `yaml:"sinks"`
	JSONPath string   `yaml:"jsonPath"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	worldCfg := world.DefaultConfig()
	return Config{
		Addr:     ":8080",
		Seed:     worldCfg.Seed,
		TickRate: sim.DefaultTickRate,
		World: WorldConfig{
			Walls:     worldCfg.Walls,
			WallCount: worldCfg.WallCount,
			Ruins:     worldCfg.Ruins,
			RuinCount: worldCfg.RuinCount,
			Palisade:  worldCfg.Palisade,
			Boundary:  worldCfg.Boundary,
		},
		Logging: LogConfig{Sinks: []string{"console"}},
	}
}

// LoadConfig reads a YAML file and overlays it on DefaultConfig. Absent
// keys keep their defaults and a missing file is not an error; a file that
// exists but fails to parse is, so a typo never silently reverts the
// server to stock settings.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) worldConfig() world.Config {
	return world.Config{
		Walls:     c.World.Walls,
		WallCount: c.World.WallCount,
		Ruins:     c.World.Ruins,
		RuinCount: c.World.RuinCount,
		Palisade:  c.World.Palisade,
		Seed:      c.Seed,
		Boundary:  c.World.Boundary,
	}
}

func applyEnv(cfg *Config, logger telemetry.Logger) {
	if raw := os.Getenv("ARENA_ADDR"); raw != "" {
		cfg.Addr = raw
	}
	if raw := os.Getenv("ARENA_SEED"); raw != "" {
		cfg.Seed = raw
	}
	if raw := os.Getenv("ARENA_LAYOUT"); raw != "" {
		cfg.Layout = raw
	}
	if raw := os.Getenv("ARENA_CLIENT_DIR"); raw != "" {
		cfg.ClientDir = raw
	}
	if raw := os.Getenv("ARENA_TICK_RATE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			cfg.TickRate = value
		} else {
			logger.Printf("invalid ARENA_TICK_RATE=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("ARENA_PPROF_TRACE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Observability.EnablePprofTrace = value
		} else {
			logger.Printf("invalid ARENA_PPROF_TRACE=%q: %v", raw, err)
		}
	}
}

// buildRouter assembles the logging pipeline from the sink selection. The
// returned file is the json sink's destination when one was opened; the
// sink itself only flushes on Close, so Run owns the handle.
func buildRouter(cfg LogConfig) (*logging.Router, *os.File, error) {
	logCfg := logging.DefaultConfig()
	if len(cfg.Sinks) > 0 {
		logCfg.EnabledSinks = append([]string(nil), cfg.Sinks...)
	}
	if cfg.JSONPath != "" {
		logCfg.JSON.FilePath = cfg.JSONPath
		if !logCfg.HasSink("json") {
			logCfg.EnabledSinks = append(logCfg.EnabledSinks, "json")
		}
	}

	var named []logging.NamedSink
	var jsonFile *os.File
	if logCfg.HasSink("console") {
		named = append(named, logging.NamedSink{
			Name: "console",
			Sink: loggingSinks.NewConsoleSink(os.Stdout, logCfg.Console),
		})
	}
	if logCfg.HasSink("json") {
		path := logCfg.JSON.FilePath
		if path == "" {
			path = filepath.Join("logs", "events.jsonl")
			logCfg.JSON.FilePath = path
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		jsonFile = file
		named = append(named, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, logCfg.JSON.FlushInterval),
		})
	}
	if logCfg.HasSink("memory") {
		named = append(named, logging.NamedSink{
			Name: "memory",
			Sink: loggingSinks.NewMemorySink(logCfg.Memory.Capacity),
		})
	}

	router, err := logging.NewRouter(logging.ClockFunc(time.Now), logCfg, named)
	if err != nil {
		if jsonFile != nil {
			jsonFile.Close()
		}
		return nil, nil, err
	}
	return router, jsonFile, nil
}

// loadLayout resolves the authored arena document. An explicit path must
// load cleanly; with no path configured the default locations are probed
// and a missing document falls back to procedural generation. A document
// that exists but fails to decode or validate is always fatal, since two
// servers disagreeing about geometry can never reconcile their hashes.
func loadLayout(cfg Config, logger telemetry.Logger) (*layout.Document, error) {
	if cfg.Layout != "" {
		return layout.Load(cfg.Layout)
	}
	doc, err := layout.Load()
	if err != nil {
		if errors.Is(err, layout.ErrNotFound) {
			logger.Printf("no arena document found, generating layout from seed %q", cfg.Seed)
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

// Run assembles the hub, the HTTP surface, and the logging pipeline, then
// serves until ctx is canceled or the listener fails. Shutdown closes the
// simulation loop first so the final state broadcast still reaches
// connected clients.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	applyEnv(&cfg, logger)
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	router, jsonFile, err := buildRouter(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
		if jsonFile != nil {
			jsonFile.Close()
		}
	}()

	doc, err := loadLayout(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to load arena layout: %w", err)
	}

	hub, err := server.NewHub(server.HubConfig{
		World:     cfg.worldConfig(),
		Layout:    doc,
		Loop:      sim.LoopConfig{TickRate: cfg.TickRate},
		Logger:    logger,
		Metrics:   telemetry.NewCounters(),
		Publisher: router,
	})
	if err != nil {
		return fmt.Errorf("failed to build hub: %w", err)
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir:     cfg.ClientDir,
		Logger:        logger,
		Observability: cfg.Observability,
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	started := time.Now()
	lifecycle.ServerStarted(ctx, router, lifecycle.StartedPayload{Addr: cfg.Addr, Seed: cfg.Seed})

	stop := make(chan struct{})
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		hub.RunSimulation(stop)
		return nil
	})
	group.Go(func() error {
		logger.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		close(stop)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down listener: %w", err)
		}
		return nil
	})

	err = group.Wait()
	reason := "shutdown"
	if err != nil {
		reason = "error"
	}
	lifecycle.ServerStopped(context.Background(), router, lifecycle.StoppedPayload{
		UptimeMillis: time.Since(started).Milliseconds(),
		Reason:       reason,
	})
	return err
}
