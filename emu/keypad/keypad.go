// Package keypad is the 16 key hex keypad. Frontends press and release keys
// from their own goroutines while the interpreter polls it, so every method
// is safe for concurrent use.
package keypad

import (
	"strings"
	"sync"
)

const NumKeys = 16

type Keypad struct {
	mu   sync.RWMutex
	keys [NumKeys]bool
}

func New() *Keypad {
	return &Keypad{}
}

// Press marks key as held. Ids outside 0-15 are ignored.
func (k *Keypad) Press(key uint8) {
	if key >= NumKeys {
		return
	}
	k.mu.Lock()
	k.keys[key] = true
	k.mu.Unlock()
}

func (k *Keypad) Release(key uint8) {
	if key >= NumKeys {
		return
	}
	k.mu.Lock()
	k.keys[key] = false
	k.mu.Unlock()
}

// Reset releases every key.
func (k *Keypad) Reset() {
	k.mu.Lock()
	k.keys = [NumKeys]bool{}
	k.mu.Unlock()
}

// Set replaces the state of every key in one step.
func (k *Keypad) Set(state [NumKeys]bool) {
	k.mu.Lock()
	k.keys = state
	k.mu.Unlock()
}

// Held folds physical keys into keypad state: a keypad key is down when any
// physical key bound to it is down. Bindings outside 0-15 are ignored.
func Held[K comparable](bindings map[K]uint8, down func(K) bool) [NumKeys]bool {
	var state [NumKeys]bool
	for key, id := range bindings {
		if id < NumKeys && down(key) {
			state[id] = true
		}
	}
	return state
}

func (k *Keypad) IsPressed(key uint8) bool {
	if key >= NumKeys {
		return false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.keys[key]
}

// Pressed lists held keys in ascending order.
func (k *Keypad) Pressed() []uint8 {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var out []uint8
	for i, down := range k.keys {
		if down {
			out = append(out, uint8(i))
		}
	}
	return out
}

// Layout maps lower-case physical key names to keypad ids.
type Layout map[string]uint8

// DefaultLayout puts the 4x4 pad on the left of a QWERTY keyboard:
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  Q W E R
//	7 8 9 E      A S D F
//	A 0 B F      Z X C V
func DefaultLayout() Layout {
	return Layout{
		"1": 0x1, "2": 0x2, "3": 0x3, "4": 0xC,
		"q": 0x4, "w": 0x5, "e": 0x6, "r": 0xD,
		"a": 0x7, "s": 0x8, "d": 0x9, "f": 0xE,
		"z": 0xA, "x": 0x0, "c": 0xB, "v": 0xF,
	}
}

// Lookup finds the keypad id for a physical key name, case-insensitively.
func (l Layout) Lookup(name string) (uint8, bool) {
	id, ok := l[strings.ToLower(name)]
	if !ok || id >= NumKeys {
		return 0, false
	}
	return id, true
}
