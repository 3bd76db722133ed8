package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hailam/chessmcp/internal/board"
	"github.com/hailam/chessmcp/internal/engine"
	"github.com/hailam/chessmcp/internal/eval"
	"github.com/hailam/chessmcp/internal/uci"
)

const foolsMateFEN = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"

func callRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

// resultText returns the concatenated text content of a result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// mustSucceed returns a check that takes a handler's results directly,
// as in mustSucceed(t)(tool.Handle(ctx, req)).
func mustSucceed(t *testing.T) func(*mcp.CallToolResult, error) string {
	return func(res *mcp.CallToolResult, err error) string {
		t.Helper()
		if err != nil {
			t.Fatalf("Handler returned error: %v", err)
		}
		if res.IsError {
			t.Fatalf("Tool failed: %s", resultText(t, res))
		}
		return resultText(t, res)
	}
}

func mustFail(t *testing.T, res *mcp.CallToolResult, err error, kind string) {
	t.Helper()
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if !res.IsError {
		t.Fatalf("Expected a %s error, got %s", kind, resultText(t, res))
	}
	if text := resultText(t, res); !strings.HasPrefix(text, kind+": ") {
		t.Errorf("Expected error text to start with %q, got %q", kind+": ", text)
	}
}

// sequenceAnalyzer scores positions in the order they are first seen,
// which gives distinct, repeatable evaluations.
func sequenceAnalyzer() *engine.Analyzer {
	var mu sync.Mutex
	seen := make(map[string]int)
	o := engine.OracleFunc(func(_ context.Context, pos *board.Position) (eval.Evaluation, error) {
		mu.Lock()
		defer mu.Unlock()
		v, ok := seen[pos.FEN()]
		if !ok {
			v = len(seen) * 7
			seen[pos.FEN()] = v
		}
		return eval.NewScore(v), nil
	})
	return engine.NewAnalyzer(engine.NewPool(o), zerolog.Nop())
}

func TestStartBoard(t *testing.T) {
	tool := NewStartBoardTool()
	text := mustSucceed(t)(tool.Handle(context.Background(), callRequest(nil)))
	if text != board.StartFEN {
		t.Errorf("Expected %s, got %s", board.StartFEN, text)
	}
}

func TestNextBoardState(t *testing.T) {
	tool := NewNextBoardStateTool(zerolog.Nop())

	for _, move := range []string{"e4", "e2e4"} {
		text := mustSucceed(t)(tool.Handle(context.Background(), callRequest(map[string]any{
			"board": board.StartFEN,
			"move":  move,
		})))
		if !strings.HasPrefix(text, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq ") {
			t.Errorf("Move %s: unexpected FEN %s", move, text)
		}
	}
}

func TestNextBoardStateErrors(t *testing.T) {
	tool := NewNextBoardStateTool(zerolog.Nop())

	res, err := tool.Handle(context.Background(), callRequest(map[string]any{"board": board.StartFEN, "move": "e5"}))
	mustFail(t, res, err, "IllegalMove")

	res, err = tool.Handle(context.Background(), callRequest(map[string]any{"board": "garbage", "move": "e4"}))
	mustFail(t, res, err, "InvalidPosition")

	res, err = tool.Handle(context.Background(), callRequest(map[string]any{"board": board.StartFEN}))
	mustFail(t, res, err, "InvalidRequest")
}

func TestEvalNextMoves(t *testing.T) {
	tool := NewEvalNextMovesTool(sequenceAnalyzer(), zerolog.Nop())

	tests := []struct {
		name string
		args map[string]any
		want int
	}{
		{"all", map[string]any{"board": board.StartFEN, "perspective": "white"}, 20},
		{"cutoff", map[string]any{"board": board.StartFEN, "perspective": "black", "cutoff": float64(3)}, 3},
		{"cutoff zero", map[string]any{"board": board.StartFEN, "perspective": "white", "cutoff": 0}, 0},
		{"cutoff beyond", map[string]any{"board": board.StartFEN, "perspective": "white", "cutoff": 99}, 20},
		{"cutoff beyond int range", map[string]any{"board": board.StartFEN, "perspective": "white", "cutoff": 1e19}, 20},
		{"cutoff large number", map[string]any{"board": board.StartFEN, "perspective": "white", "cutoff": json.Number("100000000000000000000")}, 20},
		{"bool perspective", map[string]any{"board": board.StartFEN, "perspective": true}, 20},
		{"checkmate", map[string]any{"board": foolsMateFEN, "perspective": "white"}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text := mustSucceed(t)(tool.Handle(context.Background(), callRequest(tc.args)))

			var got []struct {
				Move  string `json:"move"`
				SAN   string `json:"san"`
				Board string `json:"board"`
				Eval  string `json:"eval"`
			}
			if err := json.Unmarshal([]byte(text), &got); err != nil {
				t.Fatalf("Result is not a JSON array: %v: %s", err, text)
			}
			if len(got) != tc.want {
				t.Fatalf("Expected %d candidates, got %d", tc.want, len(got))
			}
			for _, c := range got {
				if c.Move == "" || c.SAN == "" || c.Board == "" || !strings.HasPrefix(c.Eval, "CP[") {
					t.Errorf("Incomplete candidate: %+v", c)
				}
			}
		})
	}
}

func TestEvalNextMovesOrder(t *testing.T) {
	tool := NewEvalNextMovesTool(sequenceAnalyzer(), zerolog.Nop())

	rank := func(side string) []string {
		text := mustSucceed(t)(tool.Handle(context.Background(), callRequest(map[string]any{
			"board": board.StartFEN, "perspective": side, "cutoff": 1,
		})))
		var got []map[string]string
		if err := json.Unmarshal([]byte(text), &got); err != nil {
			t.Fatal(err)
		}
		return []string{got[0]["san"], got[0]["eval"]}
	}

	white, black := rank("white"), rank("black")
	if white[1] == black[1] {
		t.Errorf("White and black should prefer different moves, both got %v", white)
	}
}

func TestEvalNextMovesErrors(t *testing.T) {
	tool := NewEvalNextMovesTool(sequenceAnalyzer(), zerolog.Nop())

	tests := []struct {
		name string
		args map[string]any
		kind string
	}{
		{"negative cutoff", map[string]any{"board": board.StartFEN, "perspective": "white", "cutoff": -1}, "InvalidRequest"},
		{"fractional cutoff", map[string]any{"board": board.StartFEN, "perspective": "white", "cutoff": 1.5}, "InvalidRequest"},
		{"string cutoff", map[string]any{"board": board.StartFEN, "perspective": "white", "cutoff": "3"}, "InvalidRequest"},
		{"bad perspective", map[string]any{"board": board.StartFEN, "perspective": "purple"}, "InvalidRequest"},
		{"missing perspective", map[string]any{"board": board.StartFEN}, "InvalidRequest"},
		{"bad board", map[string]any{"board": "8/8/8/8/8/8/8/8 w - - 0 1", "perspective": "white"}, "InvalidPosition"},
		{"missing board", map[string]any{"perspective": "white"}, "InvalidRequest"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tool.Handle(context.Background(), callRequest(tc.args))
			mustFail(t, res, err, tc.kind)
		})
	}
}

func TestEvalNextMovesOracleTimeout(t *testing.T) {
	hung := searcherFunc(func(ctx context.Context, _ string, _ int) (uci.Result, error) {
		<-ctx.Done()
		return uci.Result{}, ctx.Err()
	})
	o := engine.NewUCIOracle(hung, engine.UCIOracleConfig{Timeout: 10 * time.Millisecond, Logger: zerolog.Nop()})
	tool := NewEvalNextMovesTool(engine.NewAnalyzer(engine.NewPool(o), zerolog.Nop()), zerolog.Nop())

	res, err := tool.Handle(context.Background(), callRequest(map[string]any{"board": board.StartFEN, "perspective": "white"}))
	mustFail(t, res, err, "OracleUnavailable")
}

type searcherFunc func(ctx context.Context, fen string, depth int) (uci.Result, error)

func (f searcherFunc) Search(ctx context.Context, fen string, depth int) (uci.Result, error) {
	return f(ctx, fen, depth)
}

func TestGetEvaluation(t *testing.T) {
	s := searcherFunc(func(context.Context, string, int) (uci.Result, error) {
		return uci.Result{Info: uci.Info{HasScore: true, Score: uci.Score{Mate: 2, IsMate: true}}}, nil
	})
	o := engine.NewUCIOracle(s, engine.UCIOracleConfig{Logger: zerolog.Nop()})
	tool := NewEvaluationTool(engine.NewAnalyzer(engine.NewPool(o), zerolog.Nop()), zerolog.Nop())

	text := mustSucceed(t)(tool.Handle(context.Background(), callRequest(map[string]any{"board": board.StartFEN})))
	if text != "Mate[2]" {
		t.Errorf("Expected Mate[2], got %s", text)
	}

	// Black to move: the engine's relative score is flipped to White's view.
	afterE4 := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	text = mustSucceed(t)(tool.Handle(context.Background(), callRequest(map[string]any{"board": afterE4})))
	if text != "Mate[-2]" {
		t.Errorf("Expected Mate[-2], got %s", text)
	}
}

func imageData(t *testing.T, res *mcp.CallToolResult) []byte {
	t.Helper()
	for _, c := range res.Content {
		if ic, ok := c.(mcp.ImageContent); ok {
			if ic.MIMEType != "image/png" {
				t.Errorf("Expected image/png, got %s", ic.MIMEType)
			}
			data, err := base64.StdEncoding.DecodeString(ic.Data)
			if err != nil {
				t.Fatalf("Image data is not base64: %v", err)
			}
			return data
		}
	}
	t.Fatal("Result has no image content")
	return nil
}

func TestBoardImage(t *testing.T) {
	tool := NewBoardImageTool(ImageConfig{Size: 256}, zerolog.Nop())

	tests := []struct {
		name string
		args map[string]any
		size int
	}{
		{"plain", map[string]any{"board": board.StartFEN}, 256},
		{"sized", map[string]any{"board": board.StartFEN, "size": float64(100)}, 100},
		{"arrows", map[string]any{
			"board":       board.StartFEN,
			"perspective": "black",
			"arrows": []any{
				map[string]any{"move": "e2e4", "color": "#ff000080"},
				map[string]any{"move": "Nf3"},
				"d2d4",
			},
		}, 256},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tool.Handle(context.Background(), callRequest(tc.args))
			if err != nil || res.IsError {
				t.Fatalf("board_image failed: %v %s", err, resultText(t, res))
			}
			img, err := png.Decode(bytes.NewReader(imageData(t, res)))
			if err != nil {
				t.Fatalf("Not a PNG: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tc.size || b.Dy() != tc.size {
				t.Errorf("Expected %dx%d, got %dx%d", tc.size, tc.size, b.Dx(), b.Dy())
			}
		})
	}
}

func TestBoardImageErrors(t *testing.T) {
	tool := NewBoardImageTool(ImageConfig{Size: 256}, zerolog.Nop())

	tests := []struct {
		name string
		args map[string]any
		kind string
	}{
		{"illegal arrow", map[string]any{"board": board.StartFEN, "arrows": []any{map[string]any{"move": "Nf6"}}}, "IllegalMove"},
		{"bad color", map[string]any{"board": board.StartFEN, "arrows": []any{map[string]any{"move": "e2e4", "color": "plaid"}}}, "InvalidRequest"},
		{"arrows not array", map[string]any{"board": board.StartFEN, "arrows": "e2e4"}, "InvalidRequest"},
		{"tiny", map[string]any{"board": board.StartFEN, "size": 4}, "InvalidRequest"},
		{"bad board", map[string]any{"board": "xyz"}, "InvalidPosition"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tool.Handle(context.Background(), callRequest(tc.args))
			mustFail(t, res, err, tc.kind)
		})
	}
}

func TestBoardImageFile(t *testing.T) {
	dir := t.TempDir()
	tool := NewBoardImageFileTool(ImageConfig{Size: 64, Dir: dir}, zerolog.Nop())

	path := mustSucceed(t)(tool.Handle(context.Background(), callRequest(map[string]any{
		"board":  board.StartFEN,
		"arrows": []any{map[string]any{"move": "e2e4", "color": "red"}},
	})))

	if !filepath.IsAbs(path) || filepath.Dir(path) != dir {
		t.Errorf("Expected an absolute path in %s, got %s", dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Image file not written: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 {
		t.Errorf("Expected 64 pixels wide, got %d", b.Dx())
	}
}

func TestBoardImageFileUnwritable(t *testing.T) {
	// A regular file where the image directory should be.
	dir := filepath.Join(t.TempDir(), "taken")
	if err := os.WriteFile(dir, nil, 0644); err != nil {
		t.Fatal(err)
	}
	tool := NewBoardImageFileTool(ImageConfig{Size: 64, Dir: dir}, zerolog.Nop())

	res, err := tool.Handle(context.Background(), callRequest(map[string]any{"board": board.StartFEN}))
	mustFail(t, res, err, "RenderError")
}

func TestDefinitions(t *testing.T) {
	a := sequenceAnalyzer()
	cfg := ImageConfig{Size: 256}
	names := []string{
		NewEvalNextMovesTool(a, zerolog.Nop()).Definition().Name,
		NewNextBoardStateTool(zerolog.Nop()).Definition().Name,
		NewEvaluationTool(a, zerolog.Nop()).Definition().Name,
		NewStartBoardTool().Definition().Name,
		NewBoardImageTool(cfg, zerolog.Nop()).Definition().Name,
		NewBoardImageFileTool(cfg, zerolog.Nop()).Definition().Name,
	}
	want := []string{"eval_next_moves", "get_next_board_state", "get_evaluation", "start_board", "board_image", "board_image_filepath"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Tool %d: expected %s, got %s", i, want[i], names[i])
		}
	}

	def := NewEvalNextMovesTool(a, zerolog.Nop()).Definition()
	for _, req := range []string{"board", "perspective"} {
		found := false
		for _, r := range def.InputSchema.Required {
			found = found || r == req
		}
		if !found {
			t.Errorf("eval_next_moves should require %q, schema requires %v", req, def.InputSchema.Required)
		}
	}
}
