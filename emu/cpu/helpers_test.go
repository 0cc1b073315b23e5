package cpu

import (
	"io"
	"log/slog"
	"testing"

	"github.com/beanboi7/chyp8/emu/opcode"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// words encodes opcodes as a big-endian rom image.
func words(ops ...uint16) []byte {
	rom := make([]byte, 0, len(ops)*2)
	for _, op := range ops {
		rom = append(rom, byte(op>>8), byte(op))
	}
	return rom
}

// newTestEMU returns a machine with ops loaded at 0x200 and a fixed seed.
func newTestEMU(t *testing.T, ops ...uint16) *EMU {
	t.Helper()
	emu := NewEMU(WithLogger(quietLogger()), WithSeed(1))
	if err := emu.LoadROM(words(ops...)); err != nil {
		t.Fatalf("failed to load rom: %s", err)
	}
	return emu
}

// exec runs opcodes straight through the handler table, bypassing fetch.
func exec(t *testing.T, emu *EMU, ops ...uint16) {
	t.Helper()
	emu.mu.Lock()
	defer emu.mu.Unlock()
	for _, op := range ops {
		in := opcode.Decode(op)
		if err := handlers[in.Op](emu, in); err != nil {
			t.Fatalf("opcode %04X failed: %s", op, err)
		}
	}
}

func steps(t *testing.T, emu *EMU, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := emu.Step(); err != nil {
			t.Fatalf("step %d failed: %s", i, err)
		}
	}
}

type toneRecorder struct {
	edges []bool
}

func (r *toneRecorder) SetTone(on bool) {
	r.edges = append(r.edges, on)
}
