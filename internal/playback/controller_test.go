package playback

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

// fakePlayer records the last value applied to each control.
type fakePlayer struct {
	loaded  string
	playing bool
	pos     float64
	speed   float64
	volume  float64
	fail    error
	calls   int
}

func (p *fakePlayer) Load(path string) error {
	p.calls++
	if p.fail != nil {
		return p.fail
	}
	p.loaded = path
	return nil
}

func (p *fakePlayer) Play() error {
	p.calls++
	if p.fail != nil {
		return p.fail
	}
	p.playing = true
	return nil
}

func (p *fakePlayer) Pause() error {
	p.calls++
	if p.fail != nil {
		return p.fail
	}
	p.playing = false
	return nil
}

func (p *fakePlayer) Seek(s float64) error {
	p.calls++
	if p.fail != nil {
		return p.fail
	}
	p.pos = s
	return nil
}

func (p *fakePlayer) SetSpeed(r float64) error {
	p.calls++
	if p.fail != nil {
		return p.fail
	}
	p.speed = r
	return nil
}

func (p *fakePlayer) SetVolume(v float64) error {
	p.calls++
	if p.fail != nil {
		return p.fail
	}
	p.volume = v
	return nil
}

func loadedController(t *testing.T, duration float64) (*Controller, *fakePlayer) {
	t.Helper()
	p := &fakePlayer{}
	c := NewController(p)
	if err := c.Load("/clips/game.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.ObserveDuration(duration)
	return c, p
}

func TestLoadResetsState(t *testing.T) {
	c, p := loadedController(t, 100)
	c.SetRate(2)
	c.SetVolume(0.3)
	c.ObserveTime(42)
	c.TogglePlayPause()

	if err := c.Load("/clips/next.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := c.State()
	if st.Source != "/clips/next.mp4" || st.CurrentTime != 0 || st.Duration != 0 || st.Playing {
		t.Errorf("state after load = %+v", st)
	}
	if st.Rate != 1 || st.Volume != 1 {
		t.Errorf("rate/volume = %v/%v, want 1/1", st.Rate, st.Volume)
	}
	if p.speed != 1 || p.volume != 1 {
		t.Errorf("player speed/volume = %v/%v, want 1/1", p.speed, p.volume)
	}
}

func TestTogglePlayPause(t *testing.T) {
	c, p := loadedController(t, 100)

	if err := c.TogglePlayPause(); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !c.State().Playing || !p.playing {
		t.Error("should be playing after first toggle")
	}
	c.TogglePlayPause()
	if c.State().Playing || p.playing {
		t.Error("should be paused after second toggle")
	}
}

func TestControlsWithoutSource(t *testing.T) {
	c := NewController(&fakePlayer{})
	if err := c.TogglePlayPause(); !errors.Is(err, ErrNoSource) {
		t.Errorf("toggle err = %v, want ErrNoSource", err)
	}
	if err := c.SeekBy(3); !errors.Is(err, ErrNoSource) {
		t.Errorf("seek err = %v, want ErrNoSource", err)
	}
}

func TestSeekClamps(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		seek  func(c *Controller) error
		want  float64
	}{
		{"absolute inside", 0, func(c *Controller) error { return c.SeekTo(50) }, 50},
		{"absolute negative", 10, func(c *Controller) error { return c.SeekTo(-5) }, 0},
		{"absolute past end", 10, func(c *Controller) error { return c.SeekTo(1e9) }, 120},
		{"relative forward", 10, func(c *Controller) error { return c.SeekBy(3) }, 13},
		{"relative underflow", 2, func(c *Controller) error { return c.SeekBy(-3) }, 0},
		{"relative overflow", 119, func(c *Controller) error { return c.SeekBy(3) }, 120},
		{"huge negative", 60, func(c *Controller) error { return c.SeekBy(-math.MaxFloat64) }, 0},
		{"infinite", 60, func(c *Controller) error { return c.SeekBy(math.Inf(1)) }, 120},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, p := loadedController(t, 120)
			c.ObserveTime(tc.start)
			if err := tc.seek(c); err != nil {
				t.Fatalf("seek: %v", err)
			}
			if got := c.State().CurrentTime; got != tc.want {
				t.Errorf("currentTime = %v, want %v", got, tc.want)
			}
			if p.pos != tc.want {
				t.Errorf("player position = %v, want %v", p.pos, tc.want)
			}
		})
	}
}

func TestSeekRejectsNaN(t *testing.T) {
	c, _ := loadedController(t, 120)
	if err := c.SeekTo(math.NaN()); err == nil {
		t.Error("NaN seek should fail")
	}
}

func TestPlayerFailureLeavesStateUnchanged(t *testing.T) {
	c, p := loadedController(t, 120)
	c.ObserveTime(30)
	p.fail = errors.New("ipc closed")

	if err := c.SeekTo(60); err == nil {
		t.Fatal("expected error")
	}
	if err := c.SetVolume(0.2); err == nil {
		t.Fatal("expected error")
	}
	st := c.State()
	if st.CurrentTime != 30 || st.Volume != 1 {
		t.Errorf("state drifted: %+v", st)
	}
}

func TestSetRate(t *testing.T) {
	c, p := loadedController(t, 120)

	c.SetRate(1.5)
	if c.State().Rate != 1.5 || p.speed != 1.5 {
		t.Errorf("rate = %v, player %v", c.State().Rate, p.speed)
	}
	c.SetRate(10)
	if c.State().Rate != MaxRate {
		t.Errorf("rate = %v, want %v", c.State().Rate, MaxRate)
	}
	if err := c.SetRate(0); err == nil {
		t.Error("zero rate should be rejected")
	}
}

func TestMuteRestoresPriorVolume(t *testing.T) {
	c, p := loadedController(t, 120)

	c.SetVolume(0.4)
	c.SetVolume(0)
	if !c.State().Muted() {
		t.Fatal("volume 0 should mute")
	}
	if err := c.ToggleMute(); err != nil {
		t.Fatalf("ToggleMute: %v", err)
	}
	if got := c.State().Volume; got != 0.4 {
		t.Errorf("volume = %v, want 0.4", got)
	}
	if p.volume != 0.4 {
		t.Errorf("player volume = %v, want 0.4", p.volume)
	}

	// Toggle mute from an audible level, then back.
	c.SetVolume(0.7)
	c.ToggleMute()
	if !c.State().Muted() {
		t.Error("toggle should mute")
	}
	c.ToggleMute()
	if got := c.State().Volume; got != 0.7 {
		t.Errorf("volume = %v, want 0.7", got)
	}
}

func TestMuteWithoutPriorVolumeDefaultsToFull(t *testing.T) {
	c, _ := loadedController(t, 120)
	c.ObserveVolume(0) // started muted by the player, no prior level known
	c.prevVolume = 0

	c.ToggleMute()
	if got := c.State().Volume; got != 1 {
		t.Errorf("volume = %v, want 1", got)
	}
}

func TestVolumeClamped(t *testing.T) {
	c, _ := loadedController(t, 120)
	c.SetVolume(3)
	if got := c.State().Volume; got != 1 {
		t.Errorf("volume = %v, want 1", got)
	}
	c.SetVolume(-1)
	if got := c.State().Volume; got != 0 {
		t.Errorf("volume = %v, want 0", got)
	}
}

func TestObserveSignals(t *testing.T) {
	c, _ := loadedController(t, 0)
	c.ObserveDuration(300)
	c.ObserveTime(12.5)
	c.ObservePaused(false)
	c.ObserveDimensions(1920, 1080)

	st := c.State()
	if st.Duration != 300 || st.CurrentTime != 12.5 || !st.Playing {
		t.Errorf("state = %+v", st)
	}
	if st.NativeWidth != 1920 || st.NativeHeight != 1080 {
		t.Errorf("dimensions = %dx%d", st.NativeWidth, st.NativeHeight)
	}

	c.ObserveEnded()
	if c.State().Playing {
		t.Error("ended should stop playing")
	}
}

func TestSubscribeAndCancel(t *testing.T) {
	c, _ := loadedController(t, 120)

	var seen []State
	cancel := c.Subscribe(func(s State) { seen = append(seen, s) })

	c.SeekTo(10)
	if len(seen) != 1 || seen[0].CurrentTime != 10 {
		t.Fatalf("seen = %+v", seen)
	}

	cancel()
	cancel()
	c.SeekTo(20)
	if len(seen) != 1 {
		t.Errorf("observer called after cancel: %d calls", len(seen))
	}
}

func TestKeyMap(t *testing.T) {
	c, _ := loadedController(t, 120)
	c.ObserveTime(10)
	km := KeyMap{SeekStep: 3}

	tests := []struct {
		key   string
		check func(State) bool
	}{
		{KeyForward, func(s State) bool { return s.CurrentTime == 13 }},
		{KeyBack, func(s State) bool { return s.CurrentTime == 10 }},
		{KeyToggle, func(s State) bool { return s.Playing }},
		{KeyFaster, func(s State) bool { return s.Rate == 1.25 }},
		{KeySlower, func(s State) bool { return s.Rate == 1 }},
		{KeyMute, func(s State) bool { return s.Muted() }},
		{KeyMute, func(s State) bool { return s.Volume == 1 }},
	}
	for _, tc := range tests {
		handled, err := km.HandleKey(c, tc.key)
		if !handled || err != nil {
			t.Fatalf("HandleKey(%q) = %v, %v", tc.key, handled, err)
		}
		if !tc.check(c.State()) {
			t.Errorf("after %q state = %+v", tc.key, c.State())
		}
	}

	handled, _ := km.HandleKey(c, "z")
	if handled {
		t.Error("z is not a playback key")
	}
}

// slowPlayer takes a while to apply each control, like mpv over IPC.
type slowPlayer struct {
	mu      sync.Mutex
	playing bool
	pos     float64
	plays   int
}

func (p *slowPlayer) Load(string) error { return nil }

func (p *slowPlayer) Play() error {
	time.Sleep(20 * time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	p.plays++
	return nil
}

func (p *slowPlayer) Pause() error {
	time.Sleep(20 * time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *slowPlayer) Seek(s float64) error {
	time.Sleep(20 * time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = s
	return nil
}

func (p *slowPlayer) SetSpeed(float64) error  { return nil }
func (p *slowPlayer) SetVolume(float64) error { return nil }

func pressConcurrently(t *testing.T, c *Controller, key string, n int) {
	t.Helper()
	km := KeyMap{SeekStep: 3}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := km.HandleKey(c, key); err != nil {
				t.Errorf("HandleKey(%q): %v", key, err)
			}
		}()
	}
	wg.Wait()
}

func TestConcurrentSeekKeysAccumulate(t *testing.T) {
	p := &slowPlayer{}
	c := NewController(p)
	if err := c.Load("/clips/game.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.ObserveDuration(120)
	c.ObserveTime(10)

	pressConcurrently(t, c, KeyForward, 2)

	if got := c.State().CurrentTime; got != 16 {
		t.Errorf("CurrentTime = %v, want 16", got)
	}
	if p.pos != 16 {
		t.Errorf("player position = %v, want 16", p.pos)
	}
}

func TestConcurrentToggleKeys(t *testing.T) {
	p := &slowPlayer{}
	c := NewController(p)
	if err := c.Load("/clips/game.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	pressConcurrently(t, c, KeyToggle, 2)

	if c.State().Playing {
		t.Error("two toggles from paused should end paused")
	}
	if p.playing {
		t.Error("player should be paused")
	}
	if p.plays != 1 {
		t.Errorf("Play called %d times, want 1", p.plays)
	}
}

func TestObserveTimeClampedToDuration(t *testing.T) {
	c, _ := loadedController(t, 0)

	c.ObserveTime(-1)
	if got := c.State().CurrentTime; got != 0 {
		t.Errorf("CurrentTime = %v, want 0", got)
	}

	// Duration not known yet: nothing to clamp against.
	c.ObserveTime(50)
	if got := c.State().CurrentTime; got != 50 {
		t.Errorf("CurrentTime = %v, want 50", got)
	}

	c.ObserveDuration(30)
	c.ObserveTime(30.04)
	if got := c.State().CurrentTime; got != 30 {
		t.Errorf("CurrentTime = %v, want 30", got)
	}
}
