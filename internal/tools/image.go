package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hailam/chessmcp/internal/board"
	"github.com/hailam/chessmcp/internal/failure"
	"github.com/hailam/chessmcp/internal/render"
)

// ImageConfig holds defaults for the image tools.
type ImageConfig struct {
	Size int    // default edge length in pixels
	Dir  string // where files are written, OS temp dir if empty
}

// imageOptions parses the arguments shared by both image tools.
func imageOptions(req mcp.CallToolRequest, cfg ImageConfig) (*board.Position, render.Options, error) {
	pos, err := positionArg(req)
	if err != nil {
		return nil, render.Options{}, err
	}

	opts := render.Options{Size: cfg.Size}
	if opts.Perspective, err = sideArg(req, "perspective", board.White); err != nil {
		return nil, render.Options{}, err
	}
	size, err := intArg(req, "size")
	if err != nil {
		return nil, render.Options{}, err
	}
	if size != nil {
		opts.Size = *size
	}

	raw, ok := req.GetArguments()["arrows"]
	if !ok || raw == nil {
		return pos, opts, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, render.Options{}, failure.New(failure.InvalidRequest, "arrows must be an array")
	}
	for _, item := range list {
		a, err := arrowArg(pos, item)
		if err != nil {
			return nil, render.Options{}, err
		}
		opts.Arrows = append(opts.Arrows, a)
	}
	return pos, opts, nil
}

// arrowArg parses {"move": "...", "color": "..."} or a bare move string.
func arrowArg(pos *board.Position, item any) (render.Arrow, error) {
	var move, colorName string
	switch v := item.(type) {
	case string:
		move = v
	case map[string]any:
		move, _ = v["move"].(string)
		colorName, _ = v["color"].(string)
	default:
		return render.Arrow{}, failure.New(failure.InvalidRequest, "want {move, color}, got %T", item)
	}
	if move == "" {
		return render.Arrow{}, failure.New(failure.InvalidRequest, "missing move")
	}

	var c color.Color
	if colorName != "" {
		rgba, err := render.ParseColor(colorName)
		if err != nil {
			return render.Arrow{}, failure.Wrap(failure.InvalidRequest, err, "color")
		}
		c = rgba
	}
	return render.ParseArrow(pos, move, c)
}

func imageParams(sizeDefault int) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("board",
			mcp.Required(),
			mcp.Description("Position in FEN"),
		),
		mcp.WithArray("arrows",
			mcp.Description("Arrows to draw. move is a square pair (e2e4) or a legal SAN move; "+
				"color is #rgb, #rrggbb, #rrggbbaa or an SVG color name"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"move":  map[string]any{"type": "string"},
					"color": map[string]any{"type": "string"},
				},
				"required": []string{"move"},
			}),
		),
		mcp.WithString("perspective",
			mcp.Description("Side shown at the bottom, "+describeSide("perspective")+"; white by default"),
			mcp.Enum("white", "black"),
		),
		mcp.WithNumber("size",
			mcp.Description(fmt.Sprintf("Image edge length in pixels, default %d", sizeDefault)),
			mcp.Min(render.MinSize),
			mcp.Max(render.MaxSize),
		),
	}
}

// BoardImageTool renders a position as a PNG image.
type BoardImageTool struct {
	cfg ImageConfig
	log zerolog.Logger
}

// NewBoardImageTool creates the board_image tool.
func NewBoardImageTool(cfg ImageConfig, log zerolog.Logger) *BoardImageTool {
	return &BoardImageTool{cfg: cfg, log: log}
}

// Definition returns the MCP tool definition for registration.
func (t *BoardImageTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Render a position as a PNG image, optionally with move arrows."),
		mcp.WithReadOnlyHintAnnotation(true),
	}, imageParams(t.cfg.Size)...)
	return mcp.NewTool("board_image", opts...)
}

// Handle serves a board_image call.
func (t *BoardImageTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, opts, err := imageOptions(req, t.cfg)
	if err != nil {
		return errorResult(t.log, "board_image", err), nil
	}
	data, err := render.PNG(pos, opts)
	if err != nil {
		return errorResult(t.log, "board_image", err), nil
	}
	return mcp.NewToolResultImage(pos.FEN(), base64.StdEncoding.EncodeToString(data), "image/png"), nil
}

// BoardImageFileTool renders a position to a PNG file and returns its path.
type BoardImageFileTool struct {
	cfg ImageConfig
	log zerolog.Logger
}

// NewBoardImageFileTool creates the board_image_filepath tool.
func NewBoardImageFileTool(cfg ImageConfig, log zerolog.Logger) *BoardImageFileTool {
	return &BoardImageFileTool{cfg: cfg, log: log}
}

// Definition returns the MCP tool definition for registration.
func (t *BoardImageFileTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Render a position as a PNG file and return the file's absolute path."),
	}, imageParams(t.cfg.Size)...)
	return mcp.NewTool("board_image_filepath", opts...)
}

// Handle serves a board_image_filepath call.
func (t *BoardImageFileTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, opts, err := imageOptions(req, t.cfg)
	if err != nil {
		return errorResult(t.log, "board_image_filepath", err), nil
	}
	data, err := render.PNG(pos, opts)
	if err != nil {
		return errorResult(t.log, "board_image_filepath", err), nil
	}

	path, err := t.write(data)
	if err != nil {
		return errorResult(t.log, "board_image_filepath", err), nil
	}
	t.log.Debug().Str("path", path).Str("fen", pos.FEN()).Msg("board image written")
	return mcp.NewToolResultText(path), nil
}

func (t *BoardImageFileTool) write(data []byte) (string, error) {
	dir := t.cfg.Dir
	if dir == "" {
		dir = os.TempDir()
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return "", failure.Wrap(failure.RenderError, err, "image dir")
	}

	f, err := os.CreateTemp(dir, "board-*.png")
	if err != nil {
		return "", failure.Wrap(failure.RenderError, err, "create image file")
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", failure.Wrap(failure.RenderError, err, "write image file")
	}
	if err := f.Close(); err != nil {
		return "", failure.Wrap(failure.RenderError, err, "write image file")
	}
	path, err := filepath.Abs(f.Name())
	if err != nil {
		return "", failure.Wrap(failure.RenderError, err, "image path")
	}
	return path, nil
}
