// Package tools implements the chess analysis tools exposed over MCP. Each
// tool has a Definition for registration and a Handle that serves calls.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hailam/chessmcp/internal/board"
	"github.com/hailam/chessmcp/internal/engine"
	"github.com/hailam/chessmcp/internal/eval"
	"github.com/hailam/chessmcp/internal/failure"
)

// Analyzer ranks moves and evaluates positions. *engine.Analyzer
// implements it.
type Analyzer interface {
	Rank(ctx context.Context, req engine.RankRequest) ([]engine.Candidate, error)
	Evaluate(ctx context.Context, pos *board.Position) (eval.Evaluation, error)
}

// errorResult logs err and turns it into a tool error result. Failures
// render as "<Kind>: <message>".
func errorResult(log zerolog.Logger, tool string, err error) *mcp.CallToolResult {
	log.Warn().Err(err).Str("tool", tool).Str("kind", string(failure.KindOf(err))).Msg("tool call failed")
	return mcp.NewToolResultError(err.Error())
}

// positionArg parses the required "board" argument.
func positionArg(req mcp.CallToolRequest) (*board.Position, error) {
	fen, err := req.RequireString("board")
	if err != nil {
		return nil, failure.Wrap(failure.InvalidRequest, err, "board")
	}
	return board.ParseFEN(fen)
}

// sideArg parses a side given as "white"/"black" or as a boolean where true
// means white. A missing argument yields def.
func sideArg(req mcp.CallToolRequest, name string, def board.Color) (board.Color, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		if def == board.NoColor {
			return board.NoColor, failure.New(failure.InvalidRequest, "missing required argument %q", name)
		}
		return def, nil
	}
	switch v := v.(type) {
	case bool:
		if v {
			return board.White, nil
		}
		return board.Black, nil
	case string:
		c, err := board.ParseColor(v)
		if err != nil {
			return board.NoColor, failure.Wrap(failure.InvalidRequest, err, "argument %q", name)
		}
		return c, nil
	}
	return board.NoColor, failure.New(failure.InvalidRequest, "argument %q must be white or black, got %v", name, v)
}

// intArg parses an optional integer argument. JSON numbers arrive as
// float64 and must be integral.
func intArg(req mcp.CallToolRequest, name string) (*int, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return nil, nil
	}
	var n int
	switch v := v.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
		if int64(n) != v {
			n = clampInt(float64(v))
		}
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, failure.New(failure.InvalidRequest, "argument %q must be an integer, got %v", name, v)
		}
		n = clampInt(v)
	case json.Number:
		if i, err := v.Int64(); err == nil && int64(int(i)) == i {
			n = int(i)
			break
		}
		f, err := v.Float64()
		if err != nil || f != math.Trunc(f) {
			return nil, failure.New(failure.InvalidRequest, "argument %q must be an integer, got %v", name, v)
		}
		n = clampInt(f)
	default:
		return nil, failure.New(failure.InvalidRequest, "argument %q must be an integer, got %T", name, v)
	}
	return &n, nil
}

// clampInt converts v to an int, saturating at the int range.
func clampInt(v float64) int {
	switch {
	case v >= math.MaxInt:
		return math.MaxInt
	case v <= math.MinInt:
		return math.MinInt
	}
	return int(v)
}

func describeSide(name string) string {
	return fmt.Sprintf("%s: %q or %q", name, "white", "black")
}
