package cpu

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/beanboi7/chyp8/emu/opcode"
)

// Step runs a single cycle: fetch the word at PC, advance PC, decode and
// execute. A machine waiting on Fx0A spends the cycle polling the keypad
// instead. Once a fault has been returned every later Step returns it again.
func (emu *EMU) Step() error {
	emu.mu.Lock()
	err := emu.emulateCycle()
	notify := emu.onUpdate
	emu.mu.Unlock()

	if err != nil {
		return err
	}
	if notify != nil {
		notify()
	}
	return nil
}

func (emu *EMU) emulateCycle() error {
	switch emu.state {
	case StateIdle:
		return ErrNotLoaded
	case StateHalted:
		return emu.fault
	case StateWaitingForKey:
		emu.pollKey()
		emu.cycles++
		return nil
	}

	pc := emu.pc
	word, err := emu.memory.Word(pc)
	if err != nil {
		return emu.halt(pc, 0, err)
	}
	emu.pc += 2

	in := opcode.Decode(word)
	if emu.debugEnabled() {
		emu.log.Debug("exec",
			slog.String("pc", fmt.Sprintf("0x%03X", pc)),
			slog.String("op", in.String()))
	}
	if err := handlers[in.Op](emu, in); err != nil {
		return emu.halt(pc, word, err)
	}
	emu.cycles++
	return nil
}

// pollKey finishes an Fx0A once any key is down, taking the lowest one.
func (emu *EMU) pollKey() {
	keys := emu.keys.Pressed()
	if len(keys) == 0 {
		return
	}
	emu.v[emu.waitReg] = keys[0]
	emu.state = StateRunning
}

func (emu *EMU) halt(pc, word uint16, err error) error {
	fault := &FaultError{PC: pc, Opcode: word, Err: err}
	emu.fault = fault
	emu.state = StateHalted
	emu.log.Error("machine halted",
		slog.String("pc", fmt.Sprintf("0x%03X", pc)),
		slog.String("opcode", fmt.Sprintf("%04X", word)),
		slog.String("error", err.Error()))
	return fault
}

func (emu *EMU) debugEnabled() bool {
	return emu.log.Enabled(context.Background(), slog.LevelDebug)
}
