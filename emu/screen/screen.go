// Package screen is the desktop frontend: a pixelgl window that draws the
// 64x32 frame scaled up and feeds the physical keyboard into the keypad.
//
// pixelgl needs the main OS thread, so New and Run must be called from the
// function handed to pixelgl.Run.
package screen

import (
	"fmt"
	"image/color"

	"github.com/faiface/pixel"
	"github.com/faiface/pixel/imdraw"
	"github.com/faiface/pixel/pixelgl"
	"golang.org/x/image/colornames"

	"github.com/beanboi7/chyp8/emu/display"
	"github.com/beanboi7/chyp8/emu/keypad"
)

const DefaultScale = 10

// Source is the running machine as seen by the window.
type Source interface {
	Snapshot() display.Frame
	Done() <-chan struct{}
	Err() error
}

type Config struct {
	Title  string
	Scale  int
	Layout keypad.Layout
	On     color.Color
	Off    color.Color
}

type Window struct {
	*pixelgl.Window
	KeyMap map[pixelgl.Button]uint8

	keys  *keypad.Keypad
	imd   *imdraw.IMDraw
	scale float64
	on    color.Color
	off   color.Color
}

// buttons names every pixelgl key a layout may use.
var buttons = map[string]pixelgl.Button{
	"0": pixelgl.Key0, "1": pixelgl.Key1, "2": pixelgl.Key2, "3": pixelgl.Key3,
	"4": pixelgl.Key4, "5": pixelgl.Key5, "6": pixelgl.Key6, "7": pixelgl.Key7,
	"8": pixelgl.Key8, "9": pixelgl.Key9,
	"a": pixelgl.KeyA, "b": pixelgl.KeyB, "c": pixelgl.KeyC, "d": pixelgl.KeyD,
	"e": pixelgl.KeyE, "f": pixelgl.KeyF, "g": pixelgl.KeyG, "h": pixelgl.KeyH,
	"i": pixelgl.KeyI, "j": pixelgl.KeyJ, "k": pixelgl.KeyK, "l": pixelgl.KeyL,
	"m": pixelgl.KeyM, "n": pixelgl.KeyN, "o": pixelgl.KeyO, "p": pixelgl.KeyP,
	"q": pixelgl.KeyQ, "r": pixelgl.KeyR, "s": pixelgl.KeyS, "t": pixelgl.KeyT,
	"u": pixelgl.KeyU, "v": pixelgl.KeyV, "w": pixelgl.KeyW, "x": pixelgl.KeyX,
	"y": pixelgl.KeyY, "z": pixelgl.KeyZ,
}

// KeyMap resolves a layout to pixelgl buttons.
func KeyMap(l keypad.Layout) (map[pixelgl.Button]uint8, error) {
	km := make(map[pixelgl.Button]uint8, len(l))
	for name := range l {
		b, ok := buttons[name]
		if !ok {
			return nil, fmt.Errorf("no window key called %q", name)
		}
		id, ok := l.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("key %q maps outside the keypad", name)
		}
		km[b] = id
	}
	return km, nil
}

// New opens the window.
func New(cfg Config, keys *keypad.Keypad) (*Window, error) {
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	if cfg.Title == "" {
		cfg.Title = "Chyp8"
	}
	if cfg.Layout == nil {
		cfg.Layout = keypad.DefaultLayout()
	}
	if cfg.On == nil {
		cfg.On = colornames.White
	}
	if cfg.Off == nil {
		cfg.Off = colornames.Black
	}

	km, err := KeyMap(cfg.Layout)
	if err != nil {
		return nil, err
	}

	scale := float64(cfg.Scale)
	win, err := pixelgl.NewWindow(pixelgl.WindowConfig{
		Title:  cfg.Title,
		Bounds: pixel.R(0, 0, display.Width*scale, display.Height*scale),
		VSync:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening window: %w", err)
	}

	return &Window{
		Window: win,
		KeyMap: km,
		keys:   keys,
		imd:    imdraw.New(nil),
		scale:  scale,
		on:     cfg.On,
		off:    cfg.Off,
	}, nil
}

// Run redraws and polls input until the window is closed, Escape is pressed
// or the machine stops on its own. It returns the machine's error, if any.
func (w *Window) Run(src Source) error {
	for !w.Closed() {
		select {
		case <-src.Done():
			return src.Err()
		default:
		}

		if w.JustPressed(pixelgl.KeyEscape) {
			w.SetClosed(true)
		}
		w.pollKeys()
		w.Draw(src.Snapshot())
		w.Update()
	}
	return nil
}

// pollKeys samples every bound button before touching the keypad, so two
// buttons sharing an id cannot undo each other.
func (w *Window) pollKeys() {
	w.keys.Set(keypad.Held(w.KeyMap, w.Pressed))
}

// Draw renders a frame. Row 0 is at the top of the window.
func (w *Window) Draw(f display.Frame) {
	w.Clear(w.off)
	w.imd.Clear()
	w.imd.Color = w.on

	for y := 0; y < display.Height; y++ {
		for x := 0; x < display.Width; x++ {
			if !f[y][x] {
				continue
			}
			r := cell(x, y, w.scale)
			w.imd.Push(r.Min, r.Max)
			w.imd.Rectangle(0)
		}
	}
	w.imd.Draw(w.Window)
}

// cell is the window rectangle covering display pixel (x, y). pixel's origin
// is the bottom left corner.
func cell(x, y int, scale float64) pixel.Rect {
	left := float64(x) * scale
	bottom := float64(display.Height-1-y) * scale
	return pixel.R(left, bottom, left+scale, bottom+scale)
}
