package uci

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// exitWait bounds how long Close waits for the engine to quit on its own.
const exitWait = 2 * time.Second

// Process runs an engine binary and talks to it through a Client. The
// process is started on first use and restarted on the next call after it
// exits or stops responding.
type Process struct {
	path string
	opts Options
	log  zerolog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	client *Client
	exited chan struct{}
}

// NewProcess returns a Process for the engine at path. Nothing is started
// until the first search.
func NewProcess(path string, opts Options, log zerolog.Logger) *Process {
	return &Process{
		path: path,
		opts: opts,
		log:  log.With().Str("engine", path).Logger(),
	}
}

// Start launches the engine if it is not running and completes the
// handshake.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.ensure(ctx)
	return err
}

// Search runs a fixed-depth search of fen. A failure that leaves the engine
// unusable kills the process so the next call starts a fresh one.
func (p *Process) Search(ctx context.Context, fen string, depth int) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.ensure(ctx)
	if err != nil {
		return Result{}, err
	}

	res, err := c.Search(ctx, fen, depth)
	if err != nil && (errors.Is(err, ErrClosed) || errors.Is(err, ErrUnresponsive)) {
		p.log.Warn().Err(err).Msg("engine lost, will restart on next search")
		p.kill()
	}
	return res, err
}

// Close asks the engine to quit and waits briefly before killing it.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil {
		return nil
	}
	_ = p.client.Quit()
	select {
	case <-p.exited:
		p.cmd, p.client, p.exited = nil, nil, nil
		return nil
	case <-time.After(exitWait):
	}
	p.kill()
	return nil
}

func (p *Process) ensure(ctx context.Context) (*Client, error) {
	if p.client != nil {
		select {
		case <-p.exited:
			p.log.Warn().Msg("engine exited")
			p.cmd, p.client, p.exited = nil, nil, nil
		default:
			if !p.client.Broken() {
				return p.client, nil
			}
			p.kill()
		}
	}

	cmd := exec.Command(p.path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrClosed, p.path, err)
	}

	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		p.log.Debug().Err(err).Int("pid", cmd.Process.Pid).Msg("engine process ended")
		close(exited)
	}()

	c := NewClient(stdout, stdin, p.log)
	if err := c.Init(ctx, p.opts); err != nil {
		_ = cmd.Process.Kill()
		<-exited
		return nil, err
	}

	p.cmd, p.client, p.exited = cmd, c, exited
	p.log.Info().Str("id", c.Name()).Int("pid", cmd.Process.Pid).Msg("engine started")
	return c, nil
}

func (p *Process) kill() {
	if p.cmd == nil {
		return
	}
	_ = p.cmd.Process.Kill()
	<-p.exited
	p.cmd, p.client, p.exited = nil, nil, nil
}
