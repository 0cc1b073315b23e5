// Package display is the 64x32 monochrome frame buffer the interpreter draws
// into. Renderers only ever see a Frame copy.
package display

import "strings"

const (
	Width       = 64
	Height      = 32
	SpriteWidth = 8
)

// Frame is a full copy of the pixel state, indexed [y][x].
type Frame [Height][Width]bool

// String renders the frame as rows of '#' (on) and '.' (off).
func (f Frame) String() string {
	var sb strings.Builder
	sb.Grow(Height * (Width + 1))
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if f[y][x] {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Lit counts pixels that are on.
func (f Frame) Lit() int {
	n := 0
	for y := range f {
		for x := range f[y] {
			if f[y][x] {
				n++
			}
		}
	}
	return n
}

// Buffer is not safe for concurrent use; the interpreter serializes access.
type Buffer struct {
	pixels Frame
}

func New() *Buffer {
	return &Buffer{}
}

// Clear turns every pixel off.
func (b *Buffer) Clear() {
	b.pixels = Frame{}
}

// DrawSprite XORs one byte per row onto the buffer starting at (x, y). Every
// target coordinate wraps, so a sprite hanging off the right or bottom edge
// reappears on the left or top. The return value reports whether any lit
// pixel was switched off.
func (b *Buffer) DrawSprite(x, y uint8, rows []byte) bool {
	collision := false
	for row, bits := range rows {
		py := (int(y) + row) % Height
		for col := 0; col < SpriteWidth; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}
			px := (int(x) + col) % Width
			if b.pixels[py][px] {
				collision = true
			}
			b.pixels[py][px] = !b.pixels[py][px]
		}
	}
	return collision
}

// Pixel reports the state at (x, y), wrapping out of range coordinates.
func (b *Buffer) Pixel(x, y int) bool {
	return b.pixels[mod(y, Height)][mod(x, Width)]
}

// Snapshot returns a copy safe to hand to a renderer.
func (b *Buffer) Snapshot() Frame {
	return b.pixels
}

func mod(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
