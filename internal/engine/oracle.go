// Package engine ranks candidate moves by asking an external evaluation
// oracle about each successor position.
package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chessmcp/internal/board"
	"github.com/hailam/chessmcp/internal/eval"
	"github.com/hailam/chessmcp/internal/failure"
	"github.com/hailam/chessmcp/internal/uci"
)

// Oracle evaluates a single position. Results are from White's point of
// view and carry no perspective. An Oracle is not safe for concurrent use;
// share one through a Pool.
type Oracle interface {
	Evaluate(ctx context.Context, pos *board.Position) (eval.Evaluation, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, pos *board.Position) (eval.Evaluation, error)

func (f OracleFunc) Evaluate(ctx context.Context, pos *board.Position) (eval.Evaluation, error) {
	return f(ctx, pos)
}

// Searcher runs a fixed-depth UCI search. *uci.Process implements it.
type Searcher interface {
	Search(ctx context.Context, fen string, depth int) (uci.Result, error)
}

// Default oracle settings.
const (
	DefaultDepth   = 10
	DefaultTimeout = 10 * time.Second
)

// UCIOracleConfig configures a UCIOracle.
type UCIOracleConfig struct {
	Depth   int           // search depth, DefaultDepth if zero
	Timeout time.Duration // per search, DefaultTimeout if zero
	Logger  zerolog.Logger
}

// UCIOracle evaluates positions with a UCI engine searching to a fixed depth.
type UCIOracle struct {
	engine  Searcher
	depth   int
	timeout time.Duration
	log     zerolog.Logger
}

// NewUCIOracle creates an oracle backed by engine.
func NewUCIOracle(engine Searcher, cfg UCIOracleConfig) *UCIOracle {
	if cfg.Depth <= 0 {
		cfg.Depth = DefaultDepth
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &UCIOracle{
		engine:  engine,
		depth:   cfg.Depth,
		timeout: cfg.Timeout,
		log:     cfg.Logger.With().Str("component", "oracle").Logger(),
	}
}

// Depth returns the fixed search depth.
func (o *UCIOracle) Depth() int {
	return o.depth
}

// Evaluate searches pos and returns the final score normalized to White's
// point of view.
func (o *UCIOracle) Evaluate(ctx context.Context, pos *board.Position) (eval.Evaluation, error) {
	fen := pos.FEN()

	searchCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	res, err := o.engine.Search(searchCtx, fen, o.depth)
	if err != nil {
		if ctx.Err() != nil {
			return eval.Evaluation{}, ctx.Err()
		}
		return eval.Evaluation{}, o.classify(err, fen)
	}

	score := res.Info.Score
	var ev eval.Evaluation
	if score.IsMate {
		ev = eval.NewMate(score.Mate)
	} else {
		ev = eval.NewScore(score.CP)
	}
	// UCI scores are relative to the side to move.
	if pos.SideToMove() == board.Black {
		ev.Value = -ev.Value
	}

	o.log.Debug().
		Str("fen", fen).
		Int("depth", o.depth).
		Stringer("eval", ev).
		Dur("took", time.Since(start)).
		Msg("position evaluated")

	return ev, nil
}

// Close shuts the engine down when it supports it.
func (o *UCIOracle) Close() error {
	if c, ok := o.engine.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (o *UCIOracle) classify(err error, fen string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return failure.Wrap(failure.OracleUnavailable, err, "engine did not answer within %s", o.timeout)
	case errors.Is(err, uci.ErrProtocol):
		return failure.Wrap(failure.OracleProtocolError, err, "unusable engine response for %s", fen)
	default:
		return failure.Wrap(failure.OracleUnavailable, err, "engine failed")
	}
}
