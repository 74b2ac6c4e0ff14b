package mpv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// ErrNotConnected is returned by Player while it has no command client.
var ErrNotConnected = errors.New("mpv not connected")

// Player implements playback.Player on top of a command client. The client
// can be replaced after a reconnect.
type Player struct {
	mu     sync.Mutex
	client *Client
}

// NewPlayer returns a player that sends commands on client, which may be nil
// until SetClient is called.
func NewPlayer(client *Client) *Player {
	return &Player{client: client}
}

// SetClient replaces the command client. It does not close the old one.
func (p *Player) SetClient(client *Client) {
	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
}

func (p *Player) run(args ...any) error {
	p.mu.Lock()
	c := p.client
	p.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	return c.Run(args...)
}

// Load replaces the current file and leaves it paused at the start.
func (p *Player) Load(path string) error {
	if err := p.run("loadfile", path, "replace"); err != nil {
		return err
	}
	return p.run("set_property", PropPause, true)
}

// Play resumes playback.
func (p *Player) Play() error {
	return p.run("set_property", PropPause, false)
}

// Pause pauses playback.
func (p *Player) Pause() error {
	return p.run("set_property", PropPause, true)
}

// Seek jumps to an absolute position in seconds.
func (p *Player) Seek(seconds float64) error {
	return p.run("seek", seconds, "absolute")
}

// SetSpeed sets the playback speed multiplier.
func (p *Player) SetSpeed(rate float64) error {
	return p.run("set_property", PropSpeed, rate)
}

// SetVolume sets the volume from a 0..1 level; mpv uses 0..100.
func (p *Player) SetVolume(level float64) error {
	return p.run("set_property", PropVolume, level*100)
}

// Quit asks mpv to exit.
func (p *Player) Quit() error {
	return p.run("quit")
}

// Launch starts an idle mpv whose IPC server listens on socketPath.
func Launch(ctx context.Context, binary, socketPath string) (*exec.Cmd, error) {
	os.Remove(socketPath)

	cmd := exec.CommandContext(ctx, binary,
		"--idle=yes",
		"--force-window=yes",
		"--keep-open=yes",
		"--input-ipc-server="+socketPath,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mpv: %w", err)
	}
	return cmd, nil
}

// WaitForSocket polls until socketPath exists or ctx is done.
func WaitForSocket(ctx context.Context, socketPath string) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(socketPath); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for mpv socket %s: %w", socketPath, ctx.Err())
		case <-ticker.C:
		}
	}
}
