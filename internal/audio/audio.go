// Package audio plays response audio and speaks short cues through external
// commands.
package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Command runs an external program with the payload as its last argument.
// Calls never block the caller; failures are logged.
type Command struct {
	name   string
	args   []string
	logger *zap.Logger
	run    func(ctx context.Context, name string, args ...string) error

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

// NewCommand parses a command line such as "ffplay -nodisp -autoexit".
func NewCommand(line string, logger *zap.Logger) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty audio command")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Command{
		name:   fields[0],
		args:   fields[1:],
		logger: logger.With(zap.String("component", "audio"), zap.String("cmd", fields[0])),
		run:    runCommand,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Play starts playback of the audio at locator.
func (c *Command) Play(locator string) { c.start(locator) }

// Speak says text aloud.
func (c *Command) Speak(text string) { c.start(text) }

func (c *Command) start(payload string) {
	if payload == "" {
		return
	}
	c.mu.Lock()
	ctx := c.ctx
	c.pending.Add(1)
	c.mu.Unlock()

	args := append(append([]string{}, c.args...), payload)
	go func() {
		defer c.pending.Done()
		if err := c.run(ctx, c.name, args...); err != nil && ctx.Err() == nil {
			c.logger.Warn("audio command failed", zap.Error(err))
		}
	}()
}

// Wait blocks until every started command has exited.
func (c *Command) Wait() { c.pending.Wait() }

// Stop kills any running commands and waits for them to exit.
func (c *Command) Stop() {
	c.mu.Lock()
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()
	c.pending.Wait()
}

// Nop discards everything.
type Nop struct{}

func (Nop) Play(string)  {}
func (Nop) Speak(string) {}
