package cpu

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beanboi7/chyp8/emu/keypad"
	"github.com/beanboi7/chyp8/emu/memory"
)

func TestNewIsIdle(t *testing.T) {
	emu := NewEMU(WithLogger(quietLogger()))

	if emu.State() != StateIdle {
		t.Fatalf("new machine should be idle, is %s", emu.State())
	}
	if err := emu.Step(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}

	// font is there before any load
	b, _ := emu.memory.Get(memory.FontStart)
	if b != memory.FontSet[0] {
		t.Fatalf("font not loaded at construction")
	}
}

func TestLoadROMLimits(t *testing.T) {
	emu := NewEMU(WithLogger(quietLogger()))

	if err := emu.LoadROM(make([]byte, memory.Size-memory.ProgramStart+1)); !errors.Is(err, memory.ErrROMTooLarge) {
		t.Fatalf("expected ErrROMTooLarge, got %v", err)
	}
	if emu.State() != StateIdle {
		t.Fatalf("a failed load must not start the machine")
	}

	if err := emu.LoadROM(make([]byte, memory.Size-memory.ProgramStart)); err != nil {
		t.Fatalf("a rom filling memory should load: %s", err)
	}
	if emu.State() != StateRunning {
		t.Fatalf("state %s after load", emu.State())
	}
	if emu.Registers().PC != memory.ProgramStart {
		t.Fatalf("pc 0x%03X after load", emu.Registers().PC)
	}
}

func TestLoadResets(t *testing.T) {
	emu := newTestEMU(t, 0x6A42, 0x2300)
	steps(t, emu, 2)
	emu.display.DrawSprite(0, 0, []byte{0xFF})

	if err := emu.LoadROM(words(0x00E0)); err != nil {
		t.Fatalf("reload failed: %s", err)
	}

	regs := emu.Registers()
	if regs.V[0xA] != 0 || regs.SP != 0 || regs.PC != 0x200 {
		t.Fatalf("registers survived a reload: %+v", regs)
	}
	if emu.Snapshot().Lit() != 0 {
		t.Fatalf("display survived a reload")
	}
	if emu.Cycles() != 0 {
		t.Fatalf("cycle count survived a reload")
	}
}

func TestLoadROMFile(t *testing.T) {
	emu := NewEMU(WithLogger(quietLogger()))

	if err := emu.LoadROMFile("/this/file-does/not/exist"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "clear.ch8")
	if err := os.WriteFile(path, words(0x00E0, 0x1200), 0o644); err != nil {
		t.Fatalf("failed to write rom: %s", err)
	}
	if err := emu.LoadROMFile(path); err != nil {
		t.Fatalf("failed to load rom: %s", err)
	}
	w, _ := emu.memory.Word(0x202)
	if w != 0x1200 {
		t.Fatalf("rom not copied verbatim, got %04X at 0x202", w)
	}

	big := filepath.Join(t.TempDir(), "big.ch8")
	if err := os.WriteFile(big, make([]byte, 4000), 0o644); err != nil {
		t.Fatalf("failed to write rom: %s", err)
	}
	if err := emu.LoadROMFile(big); !errors.Is(err, memory.ErrROMTooLarge) {
		t.Fatalf("expected ErrROMTooLarge, got %v", err)
	}
}

// TestClearThenJump loads 00E0 1200 over a dirty screen. The screen stays
// clear for every N, and PC alternates between the jump target and the
// jump itself.
func TestClearThenJump(t *testing.T) {
	emu := newTestEMU(t, 0x00E0, 0x1200)
	emu.display.DrawSprite(20, 10, []byte{0xFF, 0xFF})

	for n := 1; n <= 20; n++ {
		steps(t, emu, 1)

		if emu.Snapshot().Lit() != 0 {
			t.Fatalf("after %d cycles the screen is not clear", n)
		}
		want := uint16(0x202)
		if n%2 == 0 {
			want = 0x200
		}
		if pc := emu.Registers().PC; pc != want {
			t.Fatalf("after %d cycles pc is 0x%03X, want 0x%03X", n, pc, want)
		}
	}
}

// TestJumpToSelf pins PC on a jump that targets its own address.
func TestJumpToSelf(t *testing.T) {
	emu := newTestEMU(t, 0x00E0, 0x1202)

	for n := 1; n <= 10; n++ {
		steps(t, emu, 1)
		if n >= 2 && emu.Registers().PC != 0x202 {
			t.Fatalf("after %d cycles pc is 0x%03X", n, emu.Registers().PC)
		}
	}
	if emu.Cycles() != 10 {
		t.Fatalf("cycle count %d", emu.Cycles())
	}
}

func TestCallReturn(t *testing.T) {
	rom := make([]byte, 0x102)
	copy(rom, words(0x2300))          // 0x200: CALL 0x300
	copy(rom[0x100:], words(0x00EE)) // 0x300: RET
	emu := NewEMU(WithLogger(quietLogger()))
	if err := emu.LoadROM(rom); err != nil {
		t.Fatalf("load failed: %s", err)
	}

	steps(t, emu, 1)
	regs := emu.Registers()
	if regs.PC != 0x300 || regs.SP != 1 || regs.Stack[0] != 0x202 {
		t.Fatalf("after CALL: %+v", regs)
	}

	steps(t, emu, 1)
	regs = emu.Registers()
	if regs.PC != 0x202 || regs.SP != 0 {
		t.Fatalf("after RET: pc 0x%03X sp %d", regs.PC, regs.SP)
	}
}

func TestStackOverflow(t *testing.T) {
	emu := newTestEMU(t, 0x2200)

	steps(t, emu, StackDepth)

	err := emu.Step()
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("expected ErrStackOverflow, got %v", err)
	}
	if emu.State() != StateHalted {
		t.Fatalf("state %s, want halted", emu.State())
	}

	// halted for good; no retry
	if again := emu.Step(); again != err {
		t.Fatalf("a halted machine should keep returning its fault, got %v", again)
	}
	if emu.fault != err {
		t.Fatalf("the halt was not recorded")
	}
}

func TestStackUnderflow(t *testing.T) {
	emu := newTestEMU(t, 0x00EE)

	err := emu.Step()
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("expected ErrStackUnderflow, got %v", err)
	}

	var fault *FaultError
	if !errors.As(err, &fault) {
		t.Fatalf("expected a *FaultError, got %T", err)
	}
	if fault.PC != 0x200 || fault.Opcode != 0x00EE {
		t.Fatalf("fault carries pc 0x%03X opcode %04X", fault.PC, fault.Opcode)
	}
}

func TestFetchOutOfRange(t *testing.T) {
	emu := newTestEMU(t, 0x1FFF)
	steps(t, emu, 1)

	err := emu.Step()
	if !errors.Is(err, memory.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if emu.State() != StateHalted {
		t.Fatalf("state %s, want halted", emu.State())
	}
}

func TestFetchLastWord(t *testing.T) {
	rom := make([]byte, memory.MaxROMSize)
	copy(rom, words(0x1FFE))
	rom[len(rom)-2], rom[len(rom)-1] = 0x1F, 0xFE // 0xFFE: JP 0xFFE

	emu := NewEMU(WithLogger(quietLogger()))
	if err := emu.LoadROM(rom); err != nil {
		t.Fatalf("load failed: %s", err)
	}
	steps(t, emu, 5)
	if emu.Registers().PC != 0xFFE {
		t.Fatalf("pc 0x%03X", emu.Registers().PC)
	}
}

func TestUnknownOpcodesAreNops(t *testing.T) {
	emu := newTestEMU(t, 0x812F, 0xF1FF, 0x0123, 0xE100)
	before := emu.Registers()

	steps(t, emu, 4)

	after := emu.Registers()
	if after.PC != 0x208 {
		t.Fatalf("pc 0x%03X", after.PC)
	}
	after.PC = before.PC
	if after != before {
		t.Fatalf("unknown opcodes changed state: %+v", after)
	}
}

func TestWaitForKey(t *testing.T) {
	keys := keypad.New()
	emu := NewEMU(WithLogger(quietLogger()), WithKeypad(keys))
	if err := emu.LoadROM(words(0xF30A, 0x6001)); err != nil {
		t.Fatalf("load failed: %s", err)
	}

	steps(t, emu, 1)
	if emu.State() != StateWaitingForKey {
		t.Fatalf("state %s, want waiting", emu.State())
	}

	// still blocked, pc does not drift
	steps(t, emu, 5)
	if emu.State() != StateWaitingForKey || emu.Registers().PC != 0x202 {
		t.Fatalf("state %s pc 0x%03X", emu.State(), emu.Registers().PC)
	}

	keys.Press(0x9)
	keys.Press(0x4)
	steps(t, emu, 1)

	regs := emu.Registers()
	if emu.State() != StateRunning {
		t.Fatalf("state %s, want running", emu.State())
	}
	if regs.V[3] != 0x4 {
		t.Fatalf("expected the lowest key, got %X", regs.V[3])
	}
	if regs.PC != 0x202 {
		t.Fatalf("pc 0x%03X", regs.PC)
	}

	steps(t, emu, 1)
	if emu.Registers().V[0] != 1 || emu.Registers().PC != 0x204 {
		t.Fatalf("execution did not resume after the key")
	}
}

func TestWaitForKeyAlreadyHeld(t *testing.T) {
	keys := keypad.New()
	keys.Press(0xE)
	emu := NewEMU(WithLogger(quietLogger()), WithKeypad(keys))
	if err := emu.LoadROM(words(0xF50A)); err != nil {
		t.Fatalf("load failed: %s", err)
	}

	steps(t, emu, 1)
	if emu.State() != StateRunning || emu.Registers().V[5] != 0xE {
		t.Fatalf("held key not picked up: state %s V5 %X", emu.State(), emu.Registers().V[5])
	}
}

func TestSkipOnKey(t *testing.T) {
	keys := keypad.New()
	emu := NewEMU(WithLogger(quietLogger()), WithKeypad(keys))

	tests := []struct {
		op      uint16
		key     uint8
		pressed bool
		skip    bool
	}{
		{0xE19E, 0x7, true, true},
		{0xE19E, 0x7, false, false},
		{0xE1A1, 0x7, true, false},
		{0xE1A1, 0x7, false, true},
		{0xE19E, 0x17, true, false}, // no such key
		{0xE1A1, 0x17, true, true},
	}

	for _, tt := range tests {
		if err := emu.LoadROM(words(tt.op)); err != nil {
			t.Fatalf("load failed: %s", err)
		}
		keys.Reset()
		if tt.pressed {
			keys.Press(tt.key & 0x0F)
		}
		emu.v[1] = tt.key
		steps(t, emu, 1)

		want := uint16(0x202)
		if tt.skip {
			want = 0x204
		}
		if emu.Registers().PC != want {
			t.Fatalf("%04X key %X pressed=%v: pc 0x%03X want 0x%03X",
				tt.op, tt.key, tt.pressed, emu.Registers().PC, want)
		}
	}
}

func TestOnUpdate(t *testing.T) {
	emu := newTestEMU(t, 0x1200)

	calls := 0
	emu.OnUpdate(func() {
		calls++
		_ = emu.Snapshot() // must not deadlock
	})

	steps(t, emu, 3)
	if calls != 3 {
		t.Fatalf("expected 3 updates, got %d", calls)
	}
}

func TestTimers(t *testing.T) {
	rec := &toneRecorder{}
	emu := NewEMU(WithLogger(quietLogger()), WithSounder(rec))
	if err := emu.LoadROM(nil); err != nil {
		t.Fatalf("load failed: %s", err)
	}

	emu.v[1] = 2
	exec(t, emu, 0xF115, 0xF118)
	if !emu.soundOn {
		t.Fatalf("sound should start when ST is set")
	}

	emu.TickTimers()
	exec(t, emu, 0xF207)
	if emu.v[2] != 1 {
		t.Fatalf("delay timer read %d, want 1", emu.v[2])
	}

	emu.TickTimers()
	emu.TickTimers()
	emu.TickTimers()

	regs := emu.Registers()
	if regs.DelayTimer != 0 || regs.SoundTimer != 0 {
		t.Fatalf("timers should stop at zero: %d/%d", regs.DelayTimer, regs.SoundTimer)
	}
	if emu.soundOn {
		t.Fatalf("sound should stop with ST at zero")
	}
	if len(rec.edges) != 2 || !rec.edges[0] || rec.edges[1] {
		t.Fatalf("expected on then off, got %v", rec.edges)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateIdle:          "idle",
		StateRunning:       "running",
		StateWaitingForKey: "waiting-for-key",
		StateHalted:        "halted",
		State(42):          "State(42)",
	} {
		if s.String() != want {
			t.Errorf("got %q want %q", s.String(), want)
		}
	}
}

func TestRegistersIsACopy(t *testing.T) {
	emu := newTestEMU(t, 0x6A42, 0xA123)
	steps(t, emu, 2)

	regs := emu.Registers()
	regs.V[0xA] = 0
	regs.I = 0

	again := emu.Registers()
	if again.V[0xA] != 0x42 || again.I != 0x123 {
		t.Fatalf("editing a Registers copy reached the machine: %+v", again)
	}
}

func TestDebugLogsInstructions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	emu := NewEMU(WithLogger(logger))
	if err := emu.LoadROM(words(0x00E0, 0x6A42)); err != nil {
		t.Fatalf("load failed: %s", err)
	}
	steps(t, emu, 2)

	out := buf.String()
	for _, want := range []string{"pc=0x200", "op=CLS", "pc=0x202", "LD VA, $42"} {
		if !strings.Contains(out, want) {
			t.Fatalf("debug log is missing %q:\n%s", want, out)
		}
	}

	// nothing per instruction above debug
	buf.Reset()
	quiet := NewEMU(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	if err := quiet.LoadROM(words(0x00E0)); err != nil {
		t.Fatalf("load failed: %s", err)
	}
	steps(t, quiet, 1)
	if strings.Contains(buf.String(), "exec") {
		t.Fatalf("instructions logged at info level:\n%s", buf.String())
	}
}
