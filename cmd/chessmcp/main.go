package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/hailam/chessmcp/internal/config"
	"github.com/hailam/chessmcp/internal/engine"
	"github.com/hailam/chessmcp/internal/server"
	"github.com/hailam/chessmcp/internal/storage"
	"github.com/hailam/chessmcp/internal/tools"
	"github.com/hailam/chessmcp/internal/uci"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "chessmcp: %v\n", err)
		os.Exit(2)
	}

	log, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chessmcp: log level: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	path, err := engine.FindBinary(cfg.Engine.Path)
	if err != nil {
		return err
	}
	log.Info().Str("engine", path).Int("depth", cfg.Engine.Depth).Int("instances", cfg.Engine.Instances).Msg("using engine")

	cache, closeCache, err := openCache(cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	oracles := make([]engine.Oracle, 0, cfg.Engine.Instances)
	for i := 0; i < cfg.Engine.Instances; i++ {
		proc := uci.NewProcess(path, uci.Options{
			Threads: cfg.Engine.Threads,
			HashMB:  cfg.Engine.HashMB,
			Extra:   cfg.Engine.Options,
		}, log.With().Int("instance", i).Logger())

		startCtx, cancel := context.WithTimeout(ctx, cfg.Engine.Timeout)
		err := proc.Start(startCtx)
		cancel()
		if err != nil {
			proc.Close()
			for _, o := range oracles {
				if c, ok := o.(io.Closer); ok {
					c.Close()
				}
			}
			return fmt.Errorf("start engine %s: %w", path, err)
		}

		var o engine.Oracle = engine.NewUCIOracle(proc, engine.UCIOracleConfig{
			Depth:   cfg.Engine.Depth,
			Timeout: cfg.Engine.Timeout,
			Logger:  log,
		})
		if cache != nil {
			o = cache.Wrap(o)
		}
		oracles = append(oracles, o)
	}

	pool := engine.NewPool(oracles...)
	defer func() {
		if err := pool.Close(); err != nil {
			log.Warn().Err(err).Msg("engine shutdown")
		}
	}()

	s := server.New(server.Deps{
		Analyzer: engine.NewAnalyzer(pool, log),
		Image:    tools.ImageConfig{Size: cfg.Image.Size, Dir: cfg.Image.Dir},
		Logger:   log,
	})

	if cfg.Server.HTTPAddr != "" {
		go func() {
			if err := server.ServeHTTP(ctx, cfg.Server.HTTPAddr, s, log); err != nil {
				log.Error().Err(err).Msg("http transport stopped")
			}
		}()
	}

	log.Info().Str("name", server.Name).Str("version", server.Version).Msg("serving MCP over stdio")
	err = server.ServeStdio(ctx, s, os.Stdin, os.Stdout, log)
	if cache != nil {
		hits, misses := cache.Stats()
		log.Info().Uint64("hits", hits).Uint64("misses", misses).Float64("hit_rate", cache.HitRate()).Msg("evaluation cache")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openCache builds the evaluation cache described by cfg, or nil when
// caching is off. The returned func releases it.
func openCache(cfg *config.Config, log zerolog.Logger) (*engine.EvalCache, func(), error) {
	if !cfg.Cache.Enabled && !cfg.Cache.Persist {
		return nil, func() {}, nil
	}

	var store *storage.EvalStore
	if cfg.Cache.Persist {
		var err error
		store, err = storage.Open(cfg.Cache.Dir, log.With().Str("component", "evalstore").Logger())
		if err != nil {
			log.Warn().Err(err).Msg("persistent evaluation cache disabled")
			store = nil
		}
	}

	cacheCfg := engine.CacheConfig{
		Depth:  cfg.Engine.Depth,
		Logger: log,
	}
	if cfg.Cache.Enabled {
		cacheCfg.MaxEntries = cfg.Cache.Size
	}
	if store != nil {
		cacheCfg.Store = store
	}

	cache, err := engine.NewEvalCache(cacheCfg)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}

	return cache, func() {
		cache.Close()
		if store != nil {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("close evaluation store")
			}
		}
	}, nil
}
