package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hailam/chessmcp/internal/board"
	"github.com/hailam/chessmcp/internal/engine"
)

// EvalNextMovesTool ranks every legal move of a position.
type EvalNextMovesTool struct {
	analyzer Analyzer
	log      zerolog.Logger
}

// NewEvalNextMovesTool creates the eval_next_moves tool.
func NewEvalNextMovesTool(analyzer Analyzer, log zerolog.Logger) *EvalNextMovesTool {
	return &EvalNextMovesTool{analyzer: analyzer, log: log}
}

// Definition returns the MCP tool definition for registration.
func (t *EvalNextMovesTool) Definition() mcp.Tool {
	return mcp.NewTool("eval_next_moves",
		mcp.WithDescription(
			"Evaluate every legal move from a position with the chess engine and return them "+
				"best first for the given side, as a JSON array of {move, san, board, eval}. "+
				"eval is CP[n] for centipawns or Mate[n] for moves to mate, from White's point of view.",
		),
		mcp.WithString("board",
			mcp.Required(),
			mcp.Description("Position in FEN"),
		),
		mcp.WithString("perspective",
			mcp.Required(),
			mcp.Description("Side the ranking favors, "+describeSide("perspective")),
			mcp.Enum("white", "black"),
		),
		mcp.WithNumber("cutoff",
			mcp.Description("Return at most this many moves; all moves when omitted"),
			mcp.Min(0),
		),
	)
}

// Handle serves an eval_next_moves call.
func (t *EvalNextMovesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := positionArg(req)
	if err != nil {
		return errorResult(t.log, "eval_next_moves", err), nil
	}
	side, err := sideArg(req, "perspective", board.NoColor)
	if err != nil {
		return errorResult(t.log, "eval_next_moves", err), nil
	}
	cutoff, err := intArg(req, "cutoff")
	if err != nil {
		return errorResult(t.log, "eval_next_moves", err), nil
	}

	ranked, err := t.analyzer.Rank(ctx, engine.RankRequest{
		Position:    pos,
		Perspective: side,
		Cutoff:      cutoff,
	})
	if err != nil {
		return errorResult(t.log, "eval_next_moves", err), nil
	}

	data, err := json.Marshal(ranked)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
