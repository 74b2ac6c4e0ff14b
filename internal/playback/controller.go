// Package playback mirrors the state of a media player and exposes a uniform
// control surface over it.
package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Player is the media element being controlled. Implementations apply each
// call to the real playback pipeline before returning.
type Player interface {
	Load(path string) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetSpeed(rate float64) error
	SetVolume(level float64) error // 0..1
}

// Playback rate bounds.
const (
	MinRate = 0.25
	MaxRate = 4.0
)

// ErrNoSource is returned by controls that need a loaded video.
var ErrNoSource = errors.New("no video loaded")

// State is the mirrored playback state.
type State struct {
	Source       string
	CurrentTime  float64
	Duration     float64
	Playing      bool
	Rate         float64
	Volume       float64
	NativeWidth  int
	NativeHeight int
}

// Muted reports whether the volume is zero.
func (s State) Muted() bool { return s.Volume == 0 }

// Loaded reports whether a source is loaded.
func (s State) Loaded() bool { return s.Source != "" }

// Controller wraps a Player and keeps State consistent with it. Setters call
// the Player first and only update State when the Player accepted the change.
type Controller struct {
	player Player

	// opMu serializes operations that call the Player.
	opMu sync.Mutex

	mu         sync.Mutex
	state      State
	prevVolume float64 // last nonzero volume, restored by ToggleMute

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// NewController returns a controller for player with nothing loaded.
func NewController(player Player) *Controller {
	return &Controller{
		player:    player,
		state:     State{Rate: 1, Volume: 1},
		observers: make(map[int]func(State)),
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to be called with the new state after every change.
// The returned cancel func removes it.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.obsMu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.obsMu.Lock()
			delete(c.observers, id)
			c.obsMu.Unlock()
		})
	}
}

func (c *Controller) notify() {
	st := c.State()
	c.obsMu.Lock()
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// do runs op with the operation lock held and notifies observers when it
// succeeded. Holding the lock across the state read, the Player call and the
// state write keeps concurrent key presses from overwriting each other.
func (c *Controller) do(op func() error) error {
	c.opMu.Lock()
	err := op()
	c.opMu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

// Load opens source and resets playback state. Rate and volume are pushed
// back to their defaults on the player.
func (c *Controller) Load(source string) error {
	return c.do(func() error {
		if err := c.player.Load(source); err != nil {
			return fmt.Errorf("load %s: %w", source, err)
		}
		if err := c.player.SetSpeed(1); err != nil {
			return fmt.Errorf("reset speed: %w", err)
		}
		if err := c.player.SetVolume(1); err != nil {
			return fmt.Errorf("reset volume: %w", err)
		}

		c.mu.Lock()
		c.state = State{Source: source, Rate: 1, Volume: 1}
		c.prevVolume = 0
		c.mu.Unlock()
		return nil
	})
}

// TogglePlayPause pauses a playing video and plays a paused one.
func (c *Controller) TogglePlayPause() error {
	return c.do(func() error {
		st := c.State()
		if !st.Loaded() {
			return ErrNoSource
		}
		if st.Playing {
			if err := c.player.Pause(); err != nil {
				return fmt.Errorf("pause: %w", err)
			}
		} else {
			if err := c.player.Play(); err != nil {
				return fmt.Errorf("play: %w", err)
			}
		}

		c.mu.Lock()
		c.state.Playing = !st.Playing
		c.mu.Unlock()
		return nil
	})
}

// SeekTo moves to an absolute position clamped to [0, duration].
func (c *Controller) SeekTo(seconds float64) error {
	return c.do(func() error { return c.seek(seconds) })
}

// SeekBy moves relative to the current position, clamped like SeekTo.
func (c *Controller) SeekBy(delta float64) error {
	return c.do(func() error { return c.seek(c.State().CurrentTime + delta) })
}

// seek is called with opMu held.
func (c *Controller) seek(seconds float64) error {
	st := c.State()
	if !st.Loaded() {
		return ErrNoSource
	}
	if math.IsNaN(seconds) {
		return fmt.Errorf("invalid seek position %v", seconds)
	}
	t := clamp(seconds, 0, st.Duration)
	if err := c.player.Seek(t); err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	c.mu.Lock()
	c.state.CurrentTime = t
	c.mu.Unlock()
	return nil
}

// SetRate sets the playback speed multiplier, bounded to [MinRate, MaxRate].
func (c *Controller) SetRate(rate float64) error {
	return c.do(func() error { return c.setRate(rate) })
}

// StepRate changes the speed by delta relative to the current rate.
func (c *Controller) StepRate(delta float64) error {
	return c.do(func() error { return c.setRate(max(c.State().Rate+delta, MinRate)) })
}

func (c *Controller) setRate(rate float64) error {
	if math.IsNaN(rate) || rate <= 0 {
		return fmt.Errorf("invalid playback rate %v", rate)
	}
	rate = clamp(rate, MinRate, MaxRate)
	if err := c.player.SetSpeed(rate); err != nil {
		return fmt.Errorf("set speed: %w", err)
	}

	c.mu.Lock()
	c.state.Rate = rate
	c.mu.Unlock()
	return nil
}

// SetVolume sets the volume in [0, 1]. Zero mutes and remembers the previous
// nonzero level; any nonzero level unmutes.
func (c *Controller) SetVolume(level float64) error {
	return c.do(func() error { return c.setVolume(level) })
}

// StepVolume changes the volume by delta relative to the current level.
func (c *Controller) StepVolume(delta float64) error {
	return c.do(func() error { return c.setVolume(c.State().Volume + delta) })
}

func (c *Controller) setVolume(level float64) error {
	if math.IsNaN(level) {
		return fmt.Errorf("invalid volume %v", level)
	}
	level = clamp(level, 0, 1)
	if err := c.player.SetVolume(level); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}

	c.mu.Lock()
	if level == 0 && c.state.Volume > 0 {
		c.prevVolume = c.state.Volume
	}
	c.state.Volume = level
	c.mu.Unlock()
	return nil
}

// ToggleMute mutes, or restores the level that was active before muting
// (full volume when there is none).
func (c *Controller) ToggleMute() error {
	return c.do(func() error {
		c.mu.Lock()
		muted := c.state.Volume == 0
		restore := c.prevVolume
		c.mu.Unlock()

		if !muted {
			return c.setVolume(0)
		}
		if restore <= 0 {
			restore = 1
		}
		return c.setVolume(restore)
	})
}

// ObserveTime records a position reported by the player.
func (c *Controller) ObserveTime(t float64) {
	c.mu.Lock()
	if c.state.Duration > 0 {
		t = min(t, c.state.Duration)
	}
	c.state.CurrentTime = math.Max(0, t)
	c.mu.Unlock()
	c.notify()
}

// ObserveDuration records the duration reported by the player.
func (c *Controller) ObserveDuration(d float64) {
	c.mu.Lock()
	c.state.Duration = math.Max(0, d)
	c.mu.Unlock()
	c.notify()
}

// ObservePaused records a pause state change made outside the controller,
// for example from the player's own window.
func (c *Controller) ObservePaused(paused bool) {
	c.mu.Lock()
	c.state.Playing = !paused
	c.mu.Unlock()
	c.notify()
}

// ObserveEnded marks playback as stopped at the end of the video.
func (c *Controller) ObserveEnded() {
	c.ObservePaused(true)
}

// ObserveRate records a speed change made outside the controller.
func (c *Controller) ObserveRate(rate float64) {
	if rate <= 0 {
		return
	}
	c.mu.Lock()
	c.state.Rate = rate
	c.mu.Unlock()
	c.notify()
}

// ObserveVolume records a volume change made outside the controller.
func (c *Controller) ObserveVolume(level float64) {
	level = clamp(level, 0, 1)
	c.mu.Lock()
	if level == 0 && c.state.Volume > 0 {
		c.prevVolume = c.state.Volume
	}
	c.state.Volume = level
	c.mu.Unlock()
	c.notify()
}

// ObserveDimensions records the native video frame size.
func (c *Controller) ObserveDimensions(width, height int) {
	c.mu.Lock()
	if width > 0 {
		c.state.NativeWidth = width
	}
	if height > 0 {
		c.state.NativeHeight = height
	}
	c.mu.Unlock()
	c.notify()
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
