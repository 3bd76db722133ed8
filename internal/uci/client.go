package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrClosed is returned once the engine's output has ended.
	ErrClosed = errors.New("uci: engine closed")

	// ErrUnresponsive is returned after a search could not be stopped. The
	// engine's output stream is out of sync and the client must be discarded.
	ErrUnresponsive = errors.New("uci: engine unresponsive")
)

// stopGrace bounds how long a cancelled search may take to answer "stop".
const stopGrace = 500 * time.Millisecond

// Options are sent to the engine with "setoption" during Init.
// Zero values are left at the engine's defaults.
type Options struct {
	Threads int
	HashMB  int
	Extra   map[string]string
}

// Result is the outcome of one search.
type Result struct {
	BestMove string
	Ponder   string
	Info     Info // last scored info line before bestmove
}

// Client speaks UCI to a single engine over a pair of streams.
// All methods are safe for concurrent use; commands are serialized.
type Client struct {
	log zerolog.Logger

	mu      sync.Mutex
	w       *bufio.Writer
	lines   chan string
	readErr error // valid once lines is closed
	broken  bool

	name string
}

// NewClient returns a client reading engine output from r and writing
// commands to w. A goroutine reads r until EOF.
func NewClient(r io.Reader, w io.Writer, log zerolog.Logger) *Client {
	c := &Client{
		log:   log,
		w:     bufio.NewWriter(w),
		lines: make(chan string, 256),
	}
	go c.readLoop(r)
	return c
}

func (c *Client) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.lines <- line
	}
	c.readErr = scanner.Err()
	close(c.lines)
}

// Name returns the engine's "id name", known after Init.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Broken reports whether the client lost sync with the engine.
func (c *Client) Broken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broken
}

// Init performs the "uci" handshake, applies options and waits for
// "readyok".
func (c *Client) Init(ctx context.Context, opts Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return err
	}

	if err := c.send("uci"); err != nil {
		return err
	}
	err := c.waitFor(ctx, func(line string) bool {
		if name, ok := strings.CutPrefix(line, "id name "); ok {
			c.name = name
		}
		return line == "uciok"
	})
	if err != nil {
		return fmt.Errorf("uci handshake: %w", err)
	}

	if opts.Threads > 0 {
		if err := c.send(fmt.Sprintf("setoption name Threads value %d", opts.Threads)); err != nil {
			return err
		}
	}
	if opts.HashMB > 0 {
		if err := c.send(fmt.Sprintf("setoption name Hash value %d", opts.HashMB)); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(opts.Extra))
	for name := range opts.Extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.send(fmt.Sprintf("setoption name %s value %s", name, opts.Extra[name])); err != nil {
			return err
		}
	}

	return c.isReady(ctx)
}

// IsReady sends "isready" and waits for "readyok".
func (c *Client) IsReady(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return err
	}
	return c.isReady(ctx)
}

// NewGame sends "ucinewgame" and waits until the engine is ready.
func (c *Client) NewGame(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return err
	}
	if err := c.send("ucinewgame"); err != nil {
		return err
	}
	return c.isReady(ctx)
}

// Search sets the position and searches it to a fixed depth, returning the
// last scored info line before "bestmove".
//
// When ctx ends first the search is stopped. If the engine does not
// acknowledge within a short grace period the client is marked broken and
// ErrUnresponsive is joined to the context error.
func (c *Client) Search(ctx context.Context, fen string, depth int) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return Result{}, err
	}

	c.drain()

	if err := c.send("position fen " + fen); err != nil {
		return Result{}, err
	}
	if err := c.send(fmt.Sprintf("go depth %d", depth)); err != nil {
		return Result{}, err
	}

	var res Result
	var exact, bound *Info
	var parseErr error

	err := c.waitFor(ctx, func(line string) bool {
		switch {
		case strings.HasPrefix(line, "info "):
			info, err := ParseInfo(line)
			if err != nil {
				if parseErr == nil {
					parseErr = err
				}
				return false
			}
			if !info.HasScore || info.MultiPV > 1 {
				return false
			}
			if info.Score.IsBound() {
				bound = &info
			} else {
				exact = &info
			}
		case strings.HasPrefix(line, "bestmove"):
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				res.BestMove = fields[1]
			}
			if len(fields) >= 4 && fields[2] == "ponder" {
				res.Ponder = fields[3]
			}
			return true
		}
		return false
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, errors.Join(err, c.stop())
		}
		return Result{}, err
	}

	if parseErr != nil {
		return Result{}, parseErr
	}
	switch {
	case exact != nil:
		res.Info = *exact
	case bound != nil:
		res.Info = *bound
	default:
		return Result{}, fmt.Errorf("%w: no score before bestmove for %q", ErrProtocol, fen)
	}

	c.log.Debug().
		Str("fen", fen).
		Int("depth", res.Info.Depth).
		Bool("mate", res.Info.Score.IsMate).
		Int("cp", res.Info.Score.CP).
		Int("mate_in", res.Info.Score.Mate).
		Str("bestmove", res.BestMove).
		Msg("search done")

	return res, nil
}

// Quit asks the engine to exit.
func (c *Client) Quit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send("quit")
}

func (c *Client) usable() error {
	if c.broken {
		return ErrUnresponsive
	}
	return nil
}

func (c *Client) isReady(ctx context.Context) error {
	if err := c.send("isready"); err != nil {
		return err
	}
	return c.waitFor(ctx, func(line string) bool { return line == "readyok" })
}

// stop interrupts a running search and consumes its bestmove.
func (c *Client) stop() error {
	if err := c.send("stop"); err != nil {
		c.broken = true
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	err := c.waitFor(ctx, func(line string) bool { return strings.HasPrefix(line, "bestmove") })
	if err != nil {
		c.broken = true
		c.log.Warn().Err(err).Msg("engine did not stop, discarding")
		return ErrUnresponsive
	}
	return nil
}

// drain discards output left over from earlier commands.
func (c *Client) drain() {
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return
			}
			c.log.Trace().Str("line", line).Msg("discarding stale engine output")
		default:
			return
		}
	}
}

func (c *Client) waitFor(ctx context.Context, match func(line string) bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-c.lines:
			if !ok {
				if c.readErr != nil {
					return fmt.Errorf("%w: %v", ErrClosed, c.readErr)
				}
				return ErrClosed
			}
			c.log.Trace().Str("line", line).Msg("<- engine")
			if match(line) {
				return nil
			}
		}
	}
}

func (c *Client) send(cmd string) error {
	c.log.Trace().Str("cmd", cmd).Msg("-> engine")
	if _, err := fmt.Fprintln(c.w, cmd); err != nil {
		return fmt.Errorf("%w: write %q: %v", ErrClosed, cmd, err)
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("%w: write %q: %v", ErrClosed, cmd, err)
	}
	return nil
}
