// Package server is the composition root: it builds the MCP server, registers
// the tools and serves them over stdio or streamable HTTP.
package server

import (
	"context"
	"io"
	stdlog "log"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/hailam/chessmcp/internal/tools"
)

// Name is the MCP server name announced to hosts.
const Name = "chess-ai"

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the dependencies the tools need.
type Deps struct {
	Analyzer tools.Analyzer
	Image    tools.ImageConfig
	Logger   zerolog.Logger
}

// New creates the MCP server with every tool registered.
func New(d Deps) *mcpserver.MCPServer {
	log := d.Logger.With().Str("component", "tools").Logger()

	s := mcpserver.NewMCPServer(
		Name,
		Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(instructions),
	)

	rank := tools.NewEvalNextMovesTool(d.Analyzer, log)
	s.AddTool(rank.Definition(), rank.Handle)

	next := tools.NewNextBoardStateTool(log)
	s.AddTool(next.Definition(), next.Handle)

	evaluation := tools.NewEvaluationTool(d.Analyzer, log)
	s.AddTool(evaluation.Definition(), evaluation.Handle)

	start := tools.NewStartBoardTool()
	s.AddTool(start.Definition(), start.Handle)

	img := tools.NewBoardImageTool(d.Image, log)
	s.AddTool(img.Definition(), img.Handle)

	imgFile := tools.NewBoardImageFileTool(d.Image, log)
	s.AddTool(imgFile.Definition(), imgFile.Handle)

	return s
}

// ServeStdio serves s over the given streams until ctx ends or in is
// closed. Transport errors are logged through log.
func ServeStdio(ctx context.Context, s *mcpserver.MCPServer, in io.Reader, out io.Writer, log zerolog.Logger) error {
	stdio := mcpserver.NewStdioServer(s)
	stdio.SetErrorLogger(stdlog.New(log, "", 0))
	return stdio.Listen(ctx, in, out)
}

const instructions = `Chess analysis tools backed by a UCI engine.
Positions are exchanged as FEN. Start from start_board, advance with get_next_board_state,
rank candidate moves for one side with eval_next_moves and draw positions with board_image.
Evaluations read CP[n] (centipawns) or Mate[n] (moves to mate); positive values favor White.`
