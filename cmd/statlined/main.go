package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/statlinehq/statline/internal/stats/common/clock"
	"github.com/statlinehq/statline/internal/stats/common/log"
	"github.com/statlinehq/statline/internal/stats/common/metrics"
	"github.com/statlinehq/statline/internal/stats/domain"
	"github.com/statlinehq/statline/internal/stats/gateways/provider"
	"github.com/statlinehq/statline/internal/stats/infra/config"
	"github.com/statlinehq/statline/internal/stats/repos/aliasdb"
	"github.com/statlinehq/statline/internal/stats/repos/colstore"
	"github.com/statlinehq/statline/internal/stats/repos/memcache"
	"github.com/statlinehq/statline/internal/stats/repos/querycache"
	"github.com/statlinehq/statline/internal/stats/repos/registry"
	"github.com/statlinehq/statline/internal/stats/services/engine"
)

const (
	version = "0.1.0-dev"
	appName = "statlined"

	defaultQueryTimeout = 2 * time.Minute
)

// filterFlags collects repeated -filter key=value pairs. Comma-separated
// values become lists.
type filterFlags map[string]any

func (f filterFlags) String() string { return fmt.Sprintf("%v", map[string]any(f)) }

func (f filterFlags) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("want key=value, got %q", s)
	}
	if strings.Contains(value, ",") {
		f[key] = strings.Split(value, ",")
	} else {
		f[key] = value
	}
	return nil
}

// Application holds the wired engine and the resources that need closing.
type Application struct {
	config  *config.AppConfig
	engine  *engine.Engine
	aliases *aliasdb.Resolver
}

func main() {
	var (
		configPath   = flag.String("config", "", "path to a YAML config file")
		dataset      = flag.String("dataset", "", "dataset to query (schedule, box_score, play_by_play, shot_chart, season_totals)")
		limit        = flag.Int("limit", 0, "truncate the result to at most this many rows")
		strict       = flag.Bool("strict", false, "reject droppable filters instead of warning")
		forceRefresh = flag.Bool("force-refresh", false, "bypass cache reads for this query")
		asJSON       = flag.Bool("json", false, "print rows as JSON instead of a table")
		filters      = filterFlags{}
	)
	flag.Var(filters, "filter", "filter as key=value, repeatable (comma-separated values become lists)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	if *dataset == "" {
		fmt.Fprintln(os.Stderr, "a -dataset is required")
		flag.Usage()
		os.Exit(2)
	}

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.LogLevel,
		"sources":   len(cfg.Sources),
		"data_dir":  cfg.DataDir,
	}, "Starting statline query engine")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Interrupt received")
		cancel()
	}()

	table, warnings, err := app.engine.Query(ctx, *dataset, filters, engine.QueryOptions{
		Limit:        *limit,
		ForceRefresh: *forceRefresh,
		Strict:       *strict,
	})
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Query failed")
	}

	if *asJSON {
		printJSON(table)
	} else {
		printTable(table)
	}
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()
	m := metrics.New(prometheus.DefaultRegisterer)

	cache, err := buildCache(cfg, clk, logger, m)
	if err != nil {
		return nil, fmt.Errorf("failed to build cache: %w", err)
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}

	guard, err := buildGuard(cfg, clk, logger, m)
	if err != nil {
		return nil, fmt.Errorf("failed to build call guard: %w", err)
	}

	var aliases *aliasdb.Resolver
	var names engine.NameResolver
	if cfg.AliasDBPath != "" {
		aliases, err = aliasdb.Open(cfg.AliasDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open alias database: %w", err)
		}
		names = aliases
		log.Info(map[string]any{"path": cfg.AliasDBPath}, "Name alias database opened")
	}

	eng, err := engine.New(engine.Options{
		Registry:      reg,
		Cache:         cache,
		Guard:         guard,
		Names:         names,
		Clock:         clk,
		Logger:        logger,
		Metrics:       m,
		FanOutWorkers: cfg.FanOutWorkers,
		MemoryTTL:     time.Duration(cfg.MemoryTTLSeconds) * time.Second,
		PersistTTL:    time.Duration(cfg.PersistTTLSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	return &Application{config: cfg, engine: eng, aliases: aliases}, nil
}

func buildCache(cfg *config.AppConfig, clk clock.Clock, logger log.Logger, m *metrics.Metrics) (*querycache.Manager, error) {
	mem, err := memcache.New(cfg.CacheSize, clk)
	if err != nil {
		return nil, err
	}

	var disk *colstore.Store
	if cfg.DataDir != "" {
		disk, err = colstore.New(cfg.DataDir, clk, logger)
		if err != nil {
			return nil, err
		}
		log.Info(map[string]any{"dir": cfg.DataDir}, "Persistent cache tier enabled")
	} else {
		log.Info(nil, "Persistent cache tier disabled, memory only")
	}

	return querycache.New(querycache.Options{
		Memory:    mem,
		Disk:      disk,
		MemoryTTL: time.Duration(cfg.MemoryTTLSeconds) * time.Second,
		Metrics:   m,
		Logger:    logger,
	})
}

func buildRegistry(cfg *config.AppConfig) (*registry.Registry, error) {
	reg := registry.New()
	for _, src := range cfg.Sources {
		ds, err := domain.ParseDataset(src.Dataset)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Provider, err)
		}
		lg, err := domain.ParseLeague(src.League)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Provider, err)
		}

		var adapter domain.Provider
		switch src.Kind {
		case "html":
			adapter = provider.NewHTMLTable(src.Provider, src.URL, nil)
		default:
			adapter = provider.NewJSONAPI(src.Provider, src.URL, nil)
		}

		err = reg.Register(&domain.ProviderDescriptor{
			ProviderID:     src.Provider,
			Dataset:        ds,
			League:         lg,
			Capabilities:   parseCapabilities(src.Capabilities),
			RequiresGameID: src.RequiresGameID,
			Adapter:        adapter,
		})
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Provider, err)
		}
	}
	log.Info(map[string]any{"pairs": len(reg.Pairs())}, "Provider registry configured")
	return reg, nil
}

func parseCapabilities(names []string) domain.Capabilities {
	var caps domain.Capabilities
	for _, n := range names {
		switch n {
		case "date_range":
			caps.DateRange = true
		case "season":
			caps.Season = true
		case "season_type":
			caps.SeasonType = true
		case "team_id":
			caps.TeamID = true
		case "player_id":
			caps.PlayerID = true
		case "game_id":
			caps.GameID = true
		case "home_away":
			caps.HomeAway = true
		}
	}
	return caps
}

func buildGuard(cfg *config.AppConfig, clk clock.Clock, logger log.Logger, m *metrics.Metrics) (*provider.Guard, error) {
	buckets := make(map[string]provider.BucketConfig, len(cfg.Providers))
	for id, lim := range cfg.Providers {
		buckets[id] = provider.BucketConfig{Capacity: lim.Capacity, RefillRate: lim.RefillRate}
	}
	limiter := provider.NewLimiter(buckets, clk)

	return provider.NewGuard(provider.GuardOptions{
		Limiter: limiter,
		Jitter:  true,
		Metrics: m,
		Logger:  logger,
	})
}

// Close releases resources held by the application.
func (app *Application) Close() {
	if app.aliases != nil {
		if err := app.aliases.Close(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error closing alias database")
		}
	}
}

func printTable(t domain.Table) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	for _, r := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cells[i] = r.String(c)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	fmt.Fprintf(os.Stderr, "%d row(s)\n", t.Len())
}

func printJSON(t domain.Table) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t.Rows); err != nil {
		log.Error(map[string]any{"error": err}, "Failed to encode rows")
	}
}
