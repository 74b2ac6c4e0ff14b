package playback

// Key names as reported by bubbletea's KeyMsg.String().
const (
	KeyToggle     = " "
	KeyBack       = "left"
	KeyForward    = "right"
	KeySlower     = ","
	KeyFaster     = "."
	KeyMute       = "m"
	KeyVolumeUp   = "+"
	KeyVolumeDown = "-"
)

// DefaultSeekStep is the arrow-key seek distance in seconds.
const DefaultSeekStep = 3.0

const (
	rateStep   = 0.25
	volumeStep = 0.1
)

// KeyMap binds playback keys to a controller. The caller only forwards keys
// while no text input has focus.
type KeyMap struct {
	SeekStep float64
}

// Handles reports whether key is bound to a playback control.
func (k KeyMap) Handles(key string) bool {
	switch key {
	case KeyToggle, KeyBack, KeyForward, KeySlower, KeyFaster, KeyMute, KeyVolumeUp, "=", KeyVolumeDown:
		return true
	}
	return false
}

// HandleKey applies the binding for key, if any. It reports whether the key
// was a playback key.
func (k KeyMap) HandleKey(c *Controller, key string) (bool, error) {
	step := k.SeekStep
	if step <= 0 {
		step = DefaultSeekStep
	}
	switch key {
	case KeyToggle:
		return true, c.TogglePlayPause()
	case KeyBack:
		return true, c.SeekBy(-step)
	case KeyForward:
		return true, c.SeekBy(step)
	case KeySlower:
		return true, c.StepRate(-rateStep)
	case KeyFaster:
		return true, c.StepRate(rateStep)
	case KeyMute:
		return true, c.ToggleMute()
	case KeyVolumeUp, "=":
		return true, c.StepVolume(volumeStep)
	case KeyVolumeDown:
		return true, c.StepVolume(-volumeStep)
	}
	return false, nil
}
