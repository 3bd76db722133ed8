package engine

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Pool hands out oracles one request at a time. A caller holds its oracle
// for the whole request so evaluations of one request never interleave with
// another's on the same engine.
type Pool struct {
	free chan Oracle
	all  []Oracle
}

// NewPool creates a pool over the given oracles. It panics if none are
// given.
func NewPool(oracles ...Oracle) *Pool {
	if len(oracles) == 0 {
		panic("engine: NewPool needs at least one oracle")
	}
	p := &Pool{
		free: make(chan Oracle, len(oracles)),
		all:  oracles,
	}
	for _, o := range oracles {
		p.free <- o
	}
	return p
}

// Size returns the number of oracles in the pool.
func (p *Pool) Size() int {
	return len(p.all)
}

// Acquire waits for a free oracle. The returned release func must be called
// exactly once; later calls are no-ops.
func (p *Pool) Acquire(ctx context.Context) (Oracle, func(), error) {
	select {
	case o := <-p.free:
		var once sync.Once
		return o, func() { once.Do(func() { p.free <- o }) }, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Close closes every oracle that implements io.Closer.
func (p *Pool) Close() error {
	var errs []error
	for _, o := range p.all {
		if c, ok := o.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
