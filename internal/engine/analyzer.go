package engine

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chessmcp/internal/board"
	"github.com/hailam/chessmcp/internal/eval"
	"github.com/hailam/chessmcp/internal/failure"
)

// Candidate is one legal move with the position it leads to and that
// position's evaluation.
type Candidate struct {
	Move     board.Move
	Position *board.Position
	Eval     eval.Evaluation
}

// MarshalJSON encodes the candidate as {move, san, board, eval}.
func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Move  string          `json:"move"`
		SAN   string          `json:"san"`
		Board string          `json:"board"`
		Eval  eval.Evaluation `json:"eval"`
	}{
		Move:  c.Move.UCI(),
		SAN:   c.Move.SAN(),
		Board: c.Position.FEN(),
		Eval:  c.Eval,
	})
}

// RankRequest asks for the successors of Position ordered best-first for
// Perspective. A nil Cutoff returns every candidate.
type RankRequest struct {
	Position    *board.Position
	Perspective board.Color
	Cutoff      *int
}

// Analyzer ranks moves and evaluates positions using oracles from a pool.
type Analyzer struct {
	pool *Pool
	log  zerolog.Logger
}

// NewAnalyzer creates an analyzer drawing oracles from pool.
func NewAnalyzer(pool *Pool, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		pool: pool,
		log:  log.With().Str("component", "analyzer").Logger(),
	}
}

// Rank evaluates every legal successor of req.Position and returns them
// best-first for req.Perspective, truncated to the cutoff. Candidates that
// compare equal keep move generation order. Any oracle failure fails the
// whole request.
func (a *Analyzer) Rank(ctx context.Context, req RankRequest) ([]Candidate, error) {
	if req.Position == nil {
		return nil, failure.New(failure.InvalidRequest, "no position given")
	}
	if req.Perspective != board.White && req.Perspective != board.Black {
		return nil, failure.New(failure.InvalidRequest, "perspective must be white or black")
	}
	limit := -1
	if req.Cutoff != nil {
		if *req.Cutoff < 0 {
			return nil, failure.New(failure.InvalidRequest, "cutoff must not be negative, got %d", *req.Cutoff)
		}
		limit = *req.Cutoff
	}

	moves := req.Position.LegalMoves()
	if len(moves) == 0 || limit == 0 {
		return []Candidate{}, nil
	}

	oracle, release, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	candidates := make([]Candidate, 0, len(moves))
	for _, m := range moves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := req.Position.Apply(m)
		ev, err := oracle.Evaluate(ctx, next)
		if err != nil {
			a.log.Warn().Err(err).Str("fen", req.Position.FEN()).Str("move", m.UCI()).Msg("ranking aborted")
			return nil, err
		}
		candidates = append(candidates, Candidate{
			Move:     m,
			Position: next,
			Eval:     ev.WithPerspective(req.Perspective),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return eval.Compare(candidates[i].Eval, candidates[j].Eval, req.Perspective) < 0
	})

	if limit >= 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	a.log.Debug().
		Str("fen", req.Position.FEN()).
		Stringer("perspective", req.Perspective).
		Int("moves", len(moves)).
		Int("returned", len(candidates)).
		Dur("took", time.Since(start)).
		Msg("moves ranked")

	return candidates, nil
}

// Evaluate returns the oracle's evaluation of pos, tagged with the side to
// move as its perspective.
func (a *Analyzer) Evaluate(ctx context.Context, pos *board.Position) (eval.Evaluation, error) {
	if pos == nil {
		return eval.Evaluation{}, failure.New(failure.InvalidRequest, "no position given")
	}

	oracle, release, err := a.pool.Acquire(ctx)
	if err != nil {
		return eval.Evaluation{}, err
	}
	defer release()

	ev, err := oracle.Evaluate(ctx, pos)
	if err != nil {
		return eval.Evaluation{}, err
	}
	return ev.WithPerspective(pos.SideToMove()), nil
}
