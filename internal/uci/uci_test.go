package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeEngine answers commands written by a Client using a script.
type fakeEngine struct {
	mu   sync.Mutex
	sent []string
	out  *io.PipeWriter
}

func (f *fakeEngine) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeEngine) sentContains(s string) bool {
	for _, cmd := range f.commands() {
		if cmd == s {
			return true
		}
	}
	return false
}

// newFakeEngine returns a client wired to a fake engine. respond returns the
// lines to print for each command received.
func newFakeEngine(t *testing.T, respond func(cmd string) []string) (*Client, *fakeEngine) {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	f := &fakeEngine{out: outW}

	go func() {
		scanner := bufio.NewScanner(inR)
		for scanner.Scan() {
			cmd := scanner.Text()
			f.mu.Lock()
			f.sent = append(f.sent, cmd)
			f.mu.Unlock()
			for _, line := range respond(cmd) {
				if _, err := fmt.Fprintln(outW, line); err != nil {
					return
				}
			}
			if cmd == "quit" {
				outW.Close()
				return
			}
		}
	}()

	t.Cleanup(func() {
		inW.Close()
		outW.Close()
	})

	return NewClient(outR, inW, zerolog.Nop()), f
}

// stockfishLike answers the handshake and gives every search the same
// output.
func stockfishLike(search []string) func(string) []string {
	return func(cmd string) []string {
		switch {
		case cmd == "uci":
			return []string{"id name Fakefish 1", "id author test", "option name Hash type spin default 16 min 1 max 33554432", "uciok"}
		case cmd == "isready":
			return []string{"readyok"}
		case strings.HasPrefix(cmd, "go "):
			return search
		}
		return nil
	}
}

func TestParseInfo(t *testing.T) {
	tests := []struct {
		line  string
		depth int
		score Score
		has   bool
		pv    int
	}{
		{"info depth 10 seldepth 14 multipv 1 score cp 23 nodes 12345 nps 1000 time 12 pv e2e4 e7e5", 10, Score{CP: 23}, true, 2},
		{"info depth 5 score cp -150 pv d7d5", 5, Score{CP: -150}, true, 1},
		{"info depth 12 score mate 3 pv h5f7", 12, Score{Mate: 3, IsMate: true}, true, 1},
		{"info depth 12 score mate -2", 12, Score{Mate: -2, IsMate: true}, true, 0},
		{"info depth 8 score cp 40 lowerbound nodes 100", 8, Score{CP: 40, LowerBound: true}, true, 0},
		{"info depth 8 score cp 40 upperbound", 8, Score{CP: 40, UpperBound: true}, true, 0},
		{"info depth 20 score cp 31 wdl 100 850 50 nodes 10 pv g1f3", 20, Score{CP: 31}, true, 1},
		{"info depth 3 currmove e2e4 currmovenumber 1", 3, Score{}, false, 0},
		{"info string NNUE evaluation using nn-xyz.nnue enabled", 0, Score{}, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			info, err := ParseInfo(tc.line)
			if err != nil {
				t.Fatalf("ParseInfo failed: %v", err)
			}
			if info.Depth != tc.depth {
				t.Errorf("Expected depth %d, got %d", tc.depth, info.Depth)
			}
			if info.HasScore != tc.has {
				t.Errorf("Expected HasScore=%v, got %v", tc.has, info.HasScore)
			}
			if info.Score != tc.score {
				t.Errorf("Expected score %+v, got %+v", tc.score, info.Score)
			}
			if len(info.PV) != tc.pv {
				t.Errorf("Expected %d pv moves, got %v", tc.pv, info.PV)
			}
		})
	}
}

func TestParseInfoErrors(t *testing.T) {
	lines := []string{
		"bestmove e2e4",
		"info depth x",
		"info depth 4 score cp",
		"info depth 4 score cp abc",
		"info depth 4 score wdl 1",
		"info nodes -5",
	}
	for _, line := range lines {
		if _, err := ParseInfo(line); !errors.Is(err, ErrProtocol) {
			t.Errorf("ParseInfo(%q): expected ErrProtocol, got %v", line, err)
		}
	}
}

func TestInitHandshake(t *testing.T) {
	c, f := newFakeEngine(t, stockfishLike(nil))

	opts := Options{Threads: 2, HashMB: 64, Extra: map[string]string{"UCI_ShowWDL": "false"}}
	if err := c.Init(context.Background(), opts); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if c.Name() != "Fakefish 1" {
		t.Errorf("Expected engine name Fakefish 1, got %q", c.Name())
	}

	for _, want := range []string{
		"uci",
		"setoption name Threads value 2",
		"setoption name Hash value 64",
		"setoption name UCI_ShowWDL value false",
		"isready",
	} {
		if !f.sentContains(want) {
			t.Errorf("Expected %q to be sent, got %q", want, f.commands())
		}
	}
}

func TestNewGameSendsCommands(t *testing.T) {
	c, f := newFakeEngine(t, stockfishLike(nil))

	if err := c.NewGame(context.Background()); err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	if !f.sentContains("ucinewgame") || !f.sentContains("isready") {
		t.Errorf("NewGame did not send expected commands: %q", f.commands())
	}
}

func TestSearchUsesLastScore(t *testing.T) {
	c, f := newFakeEngine(t, stockfishLike([]string{
		"info depth 1 seldepth 1 score cp 10 pv e2e4",
		"info depth 2 seldepth 2 score cp 18 pv e2e4 e7e5",
		"info depth 3 currmove d2d4 currmovenumber 2",
		"info depth 3 seldepth 4 score cp 27 pv d2d4 d7d5",
		"bestmove d2d4 ponder d7d5",
	}))

	res, err := c.Search(context.Background(), "test-fen", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Info.Score.CP != 27 || res.Info.Depth != 3 {
		t.Errorf("Expected cp 27 at depth 3, got %+v", res.Info)
	}
	if res.BestMove != "d2d4" || res.Ponder != "d7d5" {
		t.Errorf("Expected bestmove d2d4 ponder d7d5, got %+v", res)
	}
	if !f.sentContains("position fen test-fen") {
		t.Errorf("Search did not send position: %q", f.commands())
	}
	if !f.sentContains("go depth 3") {
		t.Errorf("Search did not send depth: %q", f.commands())
	}
}

func TestSearchPrefersExactScore(t *testing.T) {
	c, _ := newFakeEngine(t, stockfishLike([]string{
		"info depth 9 score cp 50 pv e2e4",
		"info depth 10 score cp 80 lowerbound",
		"bestmove e2e4",
	}))

	res, err := c.Search(context.Background(), "fen", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Info.Score.CP != 50 {
		t.Errorf("Expected exact score 50, got %+v", res.Info.Score)
	}
}

func TestSearchMate(t *testing.T) {
	c, _ := newFakeEngine(t, stockfishLike([]string{
		"info depth 1 score mate 1 pv d8h4",
		"bestmove d8h4",
	}))

	res, err := c.Search(context.Background(), "fen", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !res.Info.Score.IsMate || res.Info.Score.Mate != 1 {
		t.Errorf("Expected mate 1, got %+v", res.Info.Score)
	}
}

func TestSearchWithoutScore(t *testing.T) {
	c, _ := newFakeEngine(t, stockfishLike([]string{
		"info depth 0 score mate 0",
		"bestmove (none)",
	}))

	res, err := c.Search(context.Background(), "fen", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.BestMove != "(none)" {
		t.Errorf("Expected bestmove (none), got %q", res.BestMove)
	}

	c2, _ := newFakeEngine(t, stockfishLike([]string{"bestmove e2e4"}))
	if _, err := c2.Search(context.Background(), "fen", 10); !errors.Is(err, ErrProtocol) {
		t.Errorf("Expected ErrProtocol for search without score, got %v", err)
	}
}

func TestSearchMalformedInfo(t *testing.T) {
	c, _ := newFakeEngine(t, stockfishLike([]string{
		"info depth 4 score cp banana",
		"info depth 5 score cp 12",
		"bestmove e2e4",
	}))

	if _, err := c.Search(context.Background(), "fen", 5); !errors.Is(err, ErrProtocol) {
		t.Fatalf("Expected ErrProtocol, got %v", err)
	}

	// The bestmove was consumed, so the client stays in sync.
	if err := c.IsReady(context.Background()); err != nil {
		t.Errorf("IsReady after protocol error failed: %v", err)
	}
	if c.Broken() {
		t.Error("Client should not be broken after a protocol error")
	}
}

func TestSearchTimeoutStops(t *testing.T) {
	c, f := newFakeEngine(t, func(cmd string) []string {
		switch cmd {
		case "stop":
			return []string{"info depth 7 score cp 3", "bestmove e2e4"}
		case "isready":
			return []string{"readyok"}
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Search(ctx, "fen", 30)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %v", err)
	}
	if errors.Is(err, ErrUnresponsive) {
		t.Errorf("Engine answered stop, should not be unresponsive: %v", err)
	}
	if !f.sentContains("stop") {
		t.Errorf("Expected stop to be sent, got %q", f.commands())
	}
	if c.Broken() {
		t.Error("Client should be usable after a stopped search")
	}
	if err := c.IsReady(context.Background()); err != nil {
		t.Errorf("IsReady after stop failed: %v", err)
	}
}

func TestSearchHungEngine(t *testing.T) {
	c, _ := newFakeEngine(t, func(string) []string { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Search(ctx, "fen", 30)
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, ErrUnresponsive) {
		t.Fatalf("Expected deadline exceeded and ErrUnresponsive, got %v", err)
	}
	if !c.Broken() {
		t.Error("Client should be broken after the engine ignored stop")
	}
	if _, err := c.Search(context.Background(), "fen", 1); !errors.Is(err, ErrUnresponsive) {
		t.Errorf("Expected ErrUnresponsive from broken client, got %v", err)
	}
}

func TestSearchEngineExit(t *testing.T) {
	c, f := newFakeEngine(t, func(cmd string) []string {
		if strings.HasPrefix(cmd, "go ") {
			return []string{"info depth 1 score cp 5"}
		}
		return nil
	})

	go func() {
		for !f.sentContains("go depth 4") {
			time.Sleep(time.Millisecond)
		}
		f.out.Close()
	}()

	if _, err := c.Search(context.Background(), "fen", 4); !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
}

func TestProcessStartFailure(t *testing.T) {
	p := NewProcess("/nonexistent/engine-binary", Options{}, zerolog.Nop())
	defer p.Close()

	_, err := p.Search(context.Background(), "fen", 1)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed for missing binary, got %v", err)
	}
}
