// Package terminal is a text-mode frontend built on termbox. Two display
// rows share one character cell, drawn with the upper half block, so the
// whole 64x32 frame fits in 64x16 cells.
//
// Terminals report key presses but never releases, so each press holds its
// keypad key down for a short while and then lets go. Auto-repeat from a
// held key keeps refreshing that hold.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nsf/termbox-go"
	"golang.org/x/term"

	"github.com/beanboi7/chyp8/emu/display"
	"github.com/beanboi7/chyp8/emu/keypad"
)

// keyHold is how long a key stays down after the last press event.
const keyHold = time.Second / 5

const (
	cellRows  = display.Height / 2
	upperHalf = '▀'
)

var ErrNotTerminal = errors.New("stdout is not a terminal")

// Source is the running machine as seen by the terminal.
type Source interface {
	Snapshot() display.Frame
	Done() <-chan struct{}
	Err() error
	OnUpdate(fn func())
}

// dirty records that the machine has moved since the last redraw. The
// machine marks it from its own goroutine, the ticker takes it, so the
// terminal is flushed at most once a tick and not at all while idle.
type dirty struct {
	set atomic.Bool
}

func (d *dirty) mark() { d.set.Store(true) }

func (d *dirty) take() bool { return d.set.Swap(false) }

// watch starts out dirty so the first tick draws the loaded frame.
func watch(src Source) *dirty {
	d := &dirty{}
	d.mark()
	src.OnUpdate(d.mark)
	return d
}

// Input turns key events into timed keypad presses.
type Input struct {
	keys   *keypad.Keypad
	layout keypad.Layout
	hold   time.Duration

	mu     sync.Mutex
	timers [keypad.NumKeys]*time.Timer
}

func NewInput(keys *keypad.Keypad, layout keypad.Layout) *Input {
	if layout == nil {
		layout = keypad.DefaultLayout()
	}
	return &Input{keys: keys, layout: layout, hold: keyHold}
}

// Key presses the keypad key bound to r, if any, and schedules its release.
func (in *Input) Key(r rune) bool {
	id, ok := in.layout.Lookup(string(r))
	if !ok {
		return false
	}

	in.keys.Press(id)

	in.mu.Lock()
	defer in.mu.Unlock()
	if t := in.timers[id]; t != nil {
		t.Stop()
	}
	in.timers[id] = time.AfterFunc(in.hold, func() {
		in.keys.Release(id)
	})
	return true
}

// Stop cancels pending releases and lets go of every key.
func (in *Input) Stop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i, t := range in.timers {
		if t != nil {
			t.Stop()
			in.timers[i] = nil
		}
	}
	in.keys.Reset()
}

// halfBlock gives the cell for a pair of vertically adjacent pixels. The
// foreground paints the top pixel and the background the bottom one.
func halfBlock(top, bottom bool) (rune, termbox.Attribute, termbox.Attribute) {
	fg, bg := termbox.ColorBlack, termbox.ColorBlack
	if top {
		fg = termbox.ColorWhite
	}
	if bottom {
		bg = termbox.ColorWhite
	}
	return upperHalf, fg, bg
}

func draw(f display.Frame) error {
	for row := 0; row < cellRows; row++ {
		for x := 0; x < display.Width; x++ {
			ch, fg, bg := halfBlock(f[2*row][x], f[2*row+1][x])
			termbox.SetCell(x, row, ch, fg, bg)
		}
	}
	return termbox.Flush()
}

// Run takes over the terminal until ctx is cancelled, Escape or Ctrl-C is
// typed, or the machine stops on its own. It returns the machine's error,
// if any.
func Run(ctx context.Context, src Source, in *Input) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return ErrNotTerminal
	}
	if w, h, err := term.GetSize(fd); err == nil && (w < display.Width || h < cellRows) {
		return fmt.Errorf("terminal is %dx%d, need at least %dx%d", w, h, display.Width, cellRows)
	}

	// switch STDIN into 'raw' mode before termbox sets up.
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	if err := termbox.Init(); err != nil {
		return fmt.Errorf("starting termbox: %w", err)
	}
	defer termbox.Close()
	defer in.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan termbox.Event)
	go poll(ctx, events)
	defer termbox.Interrupt()

	redraw := watch(src)
	defer src.OnUpdate(nil)

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-src.Done():
			return src.Err()
		case ev := <-events:
			switch ev.Type {
			case termbox.EventKey:
				if ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC {
					return nil
				}
				if ev.Ch != 0 {
					in.Key(ev.Ch)
				}
			case termbox.EventError:
				return ev.Err
			}
		case <-ticker.C:
			if !redraw.take() {
				continue
			}
			if err := draw(src.Snapshot()); err != nil {
				return err
			}
		}
	}
}

// poll forwards termbox events until it is interrupted or ctx ends.
func poll(ctx context.Context, events chan<- termbox.Event) {
	for {
		ev := termbox.PollEvent()
		if ev.Type == termbox.EventInterrupt {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
