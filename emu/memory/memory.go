// Package memory holds the 4K address space of the Chip-8: the built-in font
// and the loaded program live here, next to whatever the program stores at
// runtime.
package memory

import (
	"errors"
	"fmt"
)

const (
	Size         = 4096
	FontStart    = 0x050
	FontWidth    = 5
	ProgramStart = 0x200
	MaxROMSize   = Size - ProgramStart
)

var (
	ErrOutOfRange  = errors.New("address out of range")
	ErrROMTooLarge = errors.New("rom too large")
)

// FontSet is the 16 glyph (0-F) sprite table, 5 bytes per glyph.
var FontSet = [80]uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the flat 4096 byte RAM. Every accessor is bounds checked and
// reports ErrOutOfRange rather than wrapping.
type Memory struct {
	buf [Size]uint8
}

// New returns memory with the font already in place.
func New() *Memory {
	m := &Memory{}
	m.loadFont()
	return m
}

func (m *Memory) loadFont() {
	copy(m.buf[FontStart:], FontSet[:])
}

// Reset zeroes everything and rewrites the font.
func (m *Memory) Reset() {
	m.buf = [Size]uint8{}
	m.loadFont()
}

func rangeErr(addr uint16, n int) error {
	return fmt.Errorf("%w: 0x%04X+%d", ErrOutOfRange, addr, n)
}

func inRange(addr uint16, n int) bool {
	return int(addr)+n <= Size
}

// Get returns the byte at addr.
func (m *Memory) Get(addr uint16) (uint8, error) {
	if !inRange(addr, 1) {
		return 0, rangeErr(addr, 1)
	}
	return m.buf[addr], nil
}

// Set writes value at addr.
func (m *Memory) Set(addr uint16, value uint8) error {
	if !inRange(addr, 1) {
		return rangeErr(addr, 1)
	}
	m.buf[addr] = value
	return nil
}

// Word returns the big-endian word at addr: high byte first.
func (m *Memory) Word(addr uint16) (uint16, error) {
	if !inRange(addr, 2) {
		return 0, rangeErr(addr, 2)
	}
	return uint16(m.buf[addr])<<8 | uint16(m.buf[addr+1]), nil
}

// GetRange returns a copy of n bytes starting at addr.
func (m *Memory) GetRange(addr uint16, n int) ([]uint8, error) {
	if !inRange(addr, n) {
		return nil, rangeErr(addr, n)
	}
	out := make([]uint8, n)
	copy(out, m.buf[addr:int(addr)+n])
	return out, nil
}

// PutRange copies data into memory starting at addr.
func (m *Memory) PutRange(addr uint16, data ...uint8) error {
	if !inRange(addr, len(data)) {
		return rangeErr(addr, len(data))
	}
	copy(m.buf[addr:], data)
	return nil
}

// LoadProgram clears the program area and copies rom to ProgramStart.
func (m *Memory) LoadProgram(rom []byte) error {
	if len(rom) > MaxROMSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrROMTooLarge, len(rom), MaxROMSize)
	}
	for i := ProgramStart; i < Size; i++ {
		m.buf[i] = 0
	}
	copy(m.buf[ProgramStart:], rom)
	return nil
}

// FontAddress is where the glyph for digit starts. digit is not masked, so
// values above 0xF point past the font table.
func FontAddress(digit uint8) uint16 {
	return FontStart + FontWidth*uint16(digit)
}
