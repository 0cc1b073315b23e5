// Package cpu is the Chip-8 interpreter: registers, stack, timers and the
// fetch-decode-execute cycle that drives memory, the display buffer and the
// keypad.
//
// All machine state sits behind one mutex. A cycle and a timer tick each hold
// it for their whole duration, so callers on other goroutines (renderers,
// the timer loop, Stop) only ever observe state between instructions.
package cpu

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/beanboi7/chyp8/emu/display"
	"github.com/beanboi7/chyp8/emu/keypad"
	"github.com/beanboi7/chyp8/emu/memory"
)

const (
	NumRegisters = 16
	StackDepth   = 16
	FlagRegister = 0xF

	DefaultTimerRate = 60
)

// State is where the machine is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateWaitingForKey
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateWaitingForKey:
		return "waiting-for-key"
	case StateHalted:
		return "halted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Display is what the interpreter needs from a frame buffer.
type Display interface {
	Clear()
	DrawSprite(x, y uint8, rows []byte) bool
	Snapshot() display.Frame
}

// Keypad is the query side of the keypad. Pressed must be ascending.
type Keypad interface {
	IsPressed(key uint8) bool
	Pressed() []uint8
}

// Sounder is told when the tone should start or stop. It is called with the
// interpreter lock held and must not call back into the EMU.
type Sounder interface {
	SetTone(on bool)
}

// Quirks toggle behaviours that differ between Chip-8 interpreters. The zero
// value is the behaviour this interpreter documents as default.
type Quirks struct {
	// ShiftUsesVY makes 8xy6/8xyE shift Vy into Vx instead of shifting Vx.
	ShiftUsesVY bool

	// LoadStoreIncrementsI leaves I pointing past the last register copied
	// by Fx55/Fx65.
	LoadStoreIncrementsI bool

	// IndexOverflowFlag sets VF when Fx1E moves I past 0xFFF.
	IndexOverflowFlag bool
}

// Registers is a copy of the CPU registers.
type Registers struct {
	V          [NumRegisters]uint8
	I          uint16
	PC         uint16
	SP         uint8
	Stack      [StackDepth]uint16
	DelayTimer uint8
	SoundTimer uint8
}

type EMU struct {
	mu sync.Mutex

	memory     *memory.Memory
	v          [NumRegisters]uint8
	index      uint16 //address register I
	pc         uint16
	stack      [StackDepth]uint16
	sp         uint8
	delayTimer uint8 //counts down at 60Hz
	soundTimer uint8 //same as above
	soundOn    bool

	state   State
	waitReg uint8 //target of Fx0A while waiting
	fault   error
	cycles  uint64

	display Display
	keys    Keypad
	sound   Sounder
	rnd     *rand.Rand
	quirks  Quirks
	log     *slog.Logger

	onUpdate  func()
	timerRate int

	// run loop, guarded by runMu rather than mu
	runMu   sync.Mutex
	cancel  func()
	done    chan struct{}
	lastErr error
}

// Option configures an EMU at construction.
type Option func(*EMU)

func WithDisplay(d Display) Option {
	return func(emu *EMU) { emu.display = d }
}

func WithKeypad(k Keypad) Option {
	return func(emu *EMU) { emu.keys = k }
}

func WithSounder(s Sounder) Option {
	return func(emu *EMU) { emu.sound = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(emu *EMU) { emu.log = l }
}

func WithQuirks(q Quirks) Option {
	return func(emu *EMU) { emu.quirks = q }
}

// WithSeed makes RND reproducible. A zero seed keeps the time based default.
func WithSeed(seed int64) Option {
	return func(emu *EMU) {
		if seed != 0 {
			emu.rnd = rand.New(rand.NewSource(seed))
		}
	}
}

// WithTimerRate sets how many times per second the timers count down.
func WithTimerRate(hz int) Option {
	return func(emu *EMU) {
		if hz > 0 {
			emu.timerRate = hz
		}
	}
}

// NewEMU builds an idle interpreter with the font loaded. Nothing runs until
// a ROM is loaded.
func NewEMU(opts ...Option) *EMU {
	emu := &EMU{
		memory:    memory.New(),
		state:     StateIdle,
		display:   display.New(),
		keys:      keypad.New(),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       slog.Default(),
		timerRate: DefaultTimerRate,
	}
	for _, opt := range opts {
		opt(emu)
	}
	return emu
}

// LoadROM resets the machine, copies rom to 0x200 and makes it runnable.
// On error the machine is left untouched.
func (emu *EMU) LoadROM(rom []byte) error {
	if len(rom) > memory.MaxROMSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", memory.ErrROMTooLarge, len(rom), memory.MaxROMSize)
	}

	emu.mu.Lock()
	defer emu.mu.Unlock()

	emu.reset()
	if err := emu.memory.LoadProgram(rom); err != nil {
		return err
	}
	emu.pc = memory.ProgramStart
	emu.state = StateRunning

	emu.log.Info("rom loaded", slog.Int("size", len(rom)))
	return nil
}

// LoadROMFile reads filename and loads it.
func (emu *EMU) LoadROMFile(filename string) error {
	rom, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading rom: %w", err)
	}
	if err := emu.LoadROM(rom); err != nil {
		return fmt.Errorf("loading %s: %w", filename, err)
	}
	return nil
}

func (emu *EMU) reset() {
	emu.memory.Reset()
	emu.v = [NumRegisters]uint8{}
	emu.index = 0
	emu.pc = memory.ProgramStart
	emu.stack = [StackDepth]uint16{}
	emu.sp = 0
	emu.delayTimer = 0
	emu.soundTimer = 0
	emu.updateSound()
	emu.state = StateIdle
	emu.waitReg = 0
	emu.fault = nil
	emu.cycles = 0
	emu.display.Clear()
}

// OnUpdate registers fn to run after every completed cycle. It runs without
// the interpreter lock so it may call Snapshot.
func (emu *EMU) OnUpdate(fn func()) {
	emu.mu.Lock()
	emu.onUpdate = fn
	emu.mu.Unlock()
}

// Snapshot copies the display for rendering.
func (emu *EMU) Snapshot() display.Frame {
	emu.mu.Lock()
	defer emu.mu.Unlock()
	return emu.display.Snapshot()
}

func (emu *EMU) State() State {
	emu.mu.Lock()
	defer emu.mu.Unlock()
	return emu.state
}

// Registers returns a copy of the register file.
func (emu *EMU) Registers() Registers {
	emu.mu.Lock()
	defer emu.mu.Unlock()
	return Registers{
		V:          emu.v,
		I:          emu.index,
		PC:         emu.pc,
		SP:         emu.sp,
		Stack:      emu.stack,
		DelayTimer: emu.delayTimer,
		SoundTimer: emu.soundTimer,
	}
}

// Cycles counts instructions executed since the last load.
func (emu *EMU) Cycles() uint64 {
	emu.mu.Lock()
	defer emu.mu.Unlock()
	return emu.cycles
}
