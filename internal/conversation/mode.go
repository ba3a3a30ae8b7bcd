package conversation

import "sync"

type Mode string

const (
	// ModeLive keeps the microphone open; the server's VAD segments turns.
	ModeLive Mode = "live"
	// ModePushToTalk opens the microphone only while the talk control is held.
	ModePushToTalk Mode = "push_to_talk"
)

// ModeController folds the conversation mode, the explicit mute flag and the
// push-to-talk gesture into the single audio-enable signal. State is tracked
// while disconnected and applied on the next bind.
type ModeController struct {
	mu      sync.Mutex
	mode    Mode
	muted   bool
	talking bool
	apply   func(enabled bool)
}

func NewModeController() *ModeController {
	return &ModeController{mode: ModeLive}
}

// An explicit mute dominates both modes; holding the talk control never
// overrides it.
func audioEnabled(mode Mode, muted, talking bool) bool {
	if muted {
		return false
	}
	if mode == ModePushToTalk {
		return talking
	}
	return true
}

// Bind attaches the connection's audio gate and immediately applies the
// current state. Pass nil on disconnect.
func (c *ModeController) Bind(apply func(enabled bool)) {
	c.mu.Lock()
	c.apply = apply
	c.applyLocked()
	c.mu.Unlock()
}

func (c *ModeController) SetMode(mode Mode) {
	if mode != ModeLive && mode != ModePushToTalk {
		return
	}
	c.mu.Lock()
	c.mode = mode
	if mode == ModePushToTalk {
		c.talking = false
	}
	c.applyLocked()
	c.mu.Unlock()
}

func (c *ModeController) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.applyLocked()
	c.mu.Unlock()
}

// SetTalking tracks the push-to-talk gesture. It has no effect on the gate
// in live mode.
func (c *ModeController) SetTalking(talking bool) {
	c.mu.Lock()
	c.talking = talking
	c.applyLocked()
	c.mu.Unlock()
}

func (c *ModeController) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *ModeController) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// AudioEnabled reports the gate the current state resolves to, whether or
// not a connection is bound.
func (c *ModeController) AudioEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return audioEnabled(c.mode, c.muted, c.talking)
}

func (c *ModeController) applyLocked() {
	if c.apply != nil {
		c.apply(audioEnabled(c.mode, c.muted, c.talking))
	}
}
