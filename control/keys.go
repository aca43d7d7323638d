package control

import (
	"strings"
	"sync/atomic"
)

// Key is one of the four steering keys.
type Key uint8

const (
	KeyForward Key = iota
	KeyBack
	KeyLeft
	KeyRight
	numKeys
)

// ParseKey maps a key name to a steering key. Names are case-insensitive;
// both WASD and arrow keys are accepted.
func ParseKey(name string) (Key, bool) {
	switch strings.ToLower(name) {
	case "w", "arrowup", "up":
		return KeyForward, true
	case "s", "arrowdown", "down":
		return KeyBack, true
	case "a", "arrowleft", "left":
		return KeyLeft, true
	case "d", "arrowright", "right":
		return KeyRight, true
	}
	return 0, false
}

// KeyState is the process-wide keyboard table. Input handlers write it from
// any goroutine; the simulation reads it during a tick. Each key is an
// independent flag, so a read may see a mix of old and new presses.
type KeyState struct {
	down [numKeys]atomic.Bool
}

// NewKeyState returns a table with every key released.
func NewKeyState() *KeyState {
	return &KeyState{}
}

// Set records a press or release by key name and reports whether the name
// was recognized.
func (k *KeyState) Set(name string, down bool) bool {
	key, ok := ParseKey(name)
	if !ok {
		return false
	}
	k.Press(key, down)
	return true
}

// Press records a press or release.
func (k *KeyState) Press(key Key, down bool) {
	if key < numKeys {
		k.down[key].Store(down)
	}
}

// Down reports whether a key is held.
func (k *KeyState) Down(key Key) bool {
	if k == nil || key >= numKeys {
		return false
	}
	return k.down[key].Load()
}

// Clear releases every key.
func (k *KeyState) Clear() {
	for i := range k.down {
		k.down[i].Store(false)
	}
}

// Action returns the keyboard action [left, forward, right, back]. Opposing
// keys held together cancel.
func (k *KeyState) Action() Action {
	var a Action
	if k.Down(KeyLeft) != k.Down(KeyRight) {
		if k.Down(KeyLeft) {
			a[ActLeft] = 1
		} else {
			a[ActRight] = 1
		}
	}
	if k.Down(KeyForward) != k.Down(KeyBack) {
		if k.Down(KeyForward) {
			a[ActForward] = 1
		} else {
			a[ActBack] = 1
		}
	}
	return a
}

// Active reports whether the keyboard currently produces any movement.
func (k *KeyState) Active() bool {
	return k.Action() != Action{}
}
