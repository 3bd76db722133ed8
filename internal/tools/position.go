package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hailam/chessmcp/internal/board"
	"github.com/hailam/chessmcp/internal/failure"
)

// NextBoardStateTool applies one move to a position.
type NextBoardStateTool struct {
	log zerolog.Logger
}

// NewNextBoardStateTool creates the get_next_board_state tool.
func NewNextBoardStateTool(log zerolog.Logger) *NextBoardStateTool {
	return &NextBoardStateTool{log: log}
}

// Definition returns the MCP tool definition for registration.
func (t *NextBoardStateTool) Definition() mcp.Tool {
	return mcp.NewTool("get_next_board_state",
		mcp.WithDescription("Play a legal move in a position and return the resulting position in FEN."),
		mcp.WithString("board",
			mcp.Required(),
			mcp.Description("Position in FEN"),
		),
		mcp.WithString("move",
			mcp.Required(),
			mcp.Description("Move in SAN (e4, Nf3, O-O) or UCI (e2e4, e7e8q) notation"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// Handle serves a get_next_board_state call.
func (t *NextBoardStateTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := positionArg(req)
	if err != nil {
		return errorResult(t.log, "get_next_board_state", err), nil
	}
	s, err := req.RequireString("move")
	if err != nil {
		return errorResult(t.log, "get_next_board_state", failure.Wrap(failure.InvalidRequest, err, "move")), nil
	}
	m, err := board.ParseMove(pos, s)
	if err != nil {
		return errorResult(t.log, "get_next_board_state", err), nil
	}
	return mcp.NewToolResultText(pos.Apply(m).FEN()), nil
}

// EvaluationTool reports the engine's evaluation of one position.
type EvaluationTool struct {
	analyzer Analyzer
	log      zerolog.Logger
}

// NewEvaluationTool creates the get_evaluation tool.
func NewEvaluationTool(analyzer Analyzer, log zerolog.Logger) *EvaluationTool {
	return &EvaluationTool{analyzer: analyzer, log: log}
}

// Definition returns the MCP tool definition for registration.
func (t *EvaluationTool) Definition() mcp.Tool {
	return mcp.NewTool("get_evaluation",
		mcp.WithDescription(
			"Evaluate a position with the chess engine. Returns CP[n] (centipawns) or Mate[n] "+
				"(moves to mate), positive values favoring White.",
		),
		mcp.WithString("board",
			mcp.Required(),
			mcp.Description("Position in FEN"),
		),
	)
}

// Handle serves a get_evaluation call.
func (t *EvaluationTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := positionArg(req)
	if err != nil {
		return errorResult(t.log, "get_evaluation", err), nil
	}
	ev, err := t.analyzer.Evaluate(ctx, pos)
	if err != nil {
		return errorResult(t.log, "get_evaluation", err), nil
	}
	return mcp.NewToolResultText(ev.String()), nil
}

// StartBoardTool returns the initial position.
type StartBoardTool struct{}

// NewStartBoardTool creates the start_board tool.
func NewStartBoardTool() *StartBoardTool {
	return &StartBoardTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *StartBoardTool) Definition() mcp.Tool {
	return mcp.NewTool("start_board",
		mcp.WithDescription("Return the standard starting position in FEN."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// Handle serves a start_board call.
func (t *StartBoardTool) Handle(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(board.NewPosition().FEN()), nil
}
