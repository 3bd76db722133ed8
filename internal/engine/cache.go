package engine

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"

	"github.com/hailam/chessmcp/internal/board"
	"github.com/hailam/chessmcp/internal/eval"
	"github.com/hailam/chessmcp/internal/storage"
)

// EvalStore persists evaluations. *storage.EvalStore implements it.
type EvalStore interface {
	Get(depth int, fen string) (eval.Evaluation, bool, error)
	Put(depth int, fen string, ev eval.Evaluation) error
}

// CacheConfig configures an EvalCache.
type CacheConfig struct {
	Depth      int       // depth the wrapped oracles search to; part of every key
	MaxEntries int64     // in-memory capacity, 0 disables the memory layer
	Store      EvalStore // optional persistent layer
	Logger     zerolog.Logger
}

// EvalCache memoizes oracle results in memory and, optionally, on disk.
// One cache is shared by all oracles of a pool.
type EvalCache struct {
	depth int
	mem   *ristretto.Cache[string, eval.Evaluation]
	store EvalStore
	log   zerolog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewEvalCache creates a cache. With no memory capacity and no store it
// still works but never hits.
func NewEvalCache(cfg CacheConfig) (*EvalCache, error) {
	c := &EvalCache{
		depth: cfg.Depth,
		store: cfg.Store,
		log:   cfg.Logger.With().Str("component", "evalcache").Logger(),
	}
	if cfg.MaxEntries > 0 {
		mem, err := ristretto.NewCache(&ristretto.Config[string, eval.Evaluation]{
			NumCounters: cfg.MaxEntries * 10,
			MaxCost:     cfg.MaxEntries,
			BufferItems: 64,
			// One entry costs 1; MaxCost counts entries.
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, err
		}
		c.mem = mem
	}
	return c, nil
}

// Wrap returns an oracle that consults the cache before inner.
func (c *EvalCache) Wrap(inner Oracle) *CachedOracle {
	return &CachedOracle{inner: inner, cache: c}
}

// Stats returns the number of cache hits and misses so far.
func (c *EvalCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// HitRate returns the hit rate as a percentage (0-100).
func (c *EvalCache) HitRate() float64 {
	hits, misses := c.Stats()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses) * 100
}

// Close releases the memory layer. The store is owned by the caller.
func (c *EvalCache) Close() {
	if c.mem != nil {
		c.mem.Close()
	}
}

func (c *EvalCache) get(fen string) (eval.Evaluation, bool) {
	key := storage.Key(c.depth, fen)
	if c.mem != nil {
		if ev, ok := c.mem.Get(key); ok {
			return ev, true
		}
	}
	if c.store != nil {
		ev, ok, err := c.store.Get(c.depth, fen)
		if err != nil {
			c.log.Warn().Err(err).Str("fen", fen).Msg("eval store read failed")
			return eval.Evaluation{}, false
		}
		if ok {
			c.remember(key, ev)
			return ev, true
		}
	}
	return eval.Evaluation{}, false
}

func (c *EvalCache) put(fen string, ev eval.Evaluation) {
	c.remember(storage.Key(c.depth, fen), ev)
	if c.store != nil {
		if err := c.store.Put(c.depth, fen, ev); err != nil {
			c.log.Warn().Err(err).Str("fen", fen).Msg("eval store write failed")
		}
	}
}

func (c *EvalCache) remember(key string, ev eval.Evaluation) {
	if c.mem == nil {
		return
	}
	c.mem.Set(key, ev, 1)
	c.mem.Wait()
}

// CachedOracle is an Oracle backed by an EvalCache.
type CachedOracle struct {
	inner Oracle
	cache *EvalCache
}

// Evaluate returns the cached evaluation of pos or asks the inner oracle.
// Only successful results are cached.
func (o *CachedOracle) Evaluate(ctx context.Context, pos *board.Position) (eval.Evaluation, error) {
	fen := pos.FEN()
	if ev, ok := o.cache.get(fen); ok {
		o.cache.hits.Add(1)
		return ev.WithPerspective(board.NoColor), nil
	}
	o.cache.misses.Add(1)

	ev, err := o.inner.Evaluate(ctx, pos)
	if err != nil {
		return eval.Evaluation{}, err
	}
	o.cache.put(fen, ev.WithPerspective(board.NoColor))
	return ev, nil
}

// Close closes the inner oracle when it supports it.
func (o *CachedOracle) Close() error {
	if c, ok := o.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
