package cpu

import (
	"fmt"
	"log/slog"

	"github.com/beanboi7/chyp8/emu/memory"
	"github.com/beanboi7/chyp8/emu/opcode"
)

// handlers is indexed by opcode.Op. Every entry runs with emu.mu held and PC
// already pointing at the next instruction.
var handlers = [opcode.NumOps]func(*EMU, opcode.Instruction) error{
	opcode.Nop:       (*EMU).nop,
	opcode.Cls:       (*EMU).cls,
	opcode.Ret:       (*EMU).ret,
	opcode.Jp:        (*EMU).jp,
	opcode.Call:      (*EMU).call,
	opcode.SeByte:    (*EMU).seByte,
	opcode.SneByte:   (*EMU).sneByte,
	opcode.SeReg:     (*EMU).seReg,
	opcode.LdByte:    (*EMU).ldByte,
	opcode.AddByte:   (*EMU).addByte,
	opcode.LdReg:     (*EMU).ldReg,
	opcode.Or:        (*EMU).or,
	opcode.And:       (*EMU).and,
	opcode.Xor:       (*EMU).xor,
	opcode.AddReg:    (*EMU).addReg,
	opcode.Sub:       (*EMU).sub,
	opcode.Shr:       (*EMU).shr,
	opcode.Subn:      (*EMU).subn,
	opcode.Shl:       (*EMU).shl,
	opcode.SneReg:    (*EMU).sneReg,
	opcode.LdI:       (*EMU).ldI,
	opcode.JpV0:      (*EMU).jpV0,
	opcode.Rnd:       (*EMU).rndByte,
	opcode.Drw:       (*EMU).drw,
	opcode.Skp:       (*EMU).skp,
	opcode.Sknp:      (*EMU).sknp,
	opcode.LdVxDT:    (*EMU).ldVxDT,
	opcode.LdKey:     (*EMU).ldKey,
	opcode.LdDTVx:    (*EMU).ldDTVx,
	opcode.LdSTVx:    (*EMU).ldSTVx,
	opcode.AddI:      (*EMU).addI,
	opcode.LdFont:    (*EMU).ldFont,
	opcode.LdBCD:     (*EMU).ldBCD,
	opcode.StoreRegs: (*EMU).storeRegs,
	opcode.LoadRegs:  (*EMU).loadRegs,
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func (emu *EMU) skipIf(cond bool) {
	if cond {
		emu.pc += 2
	}
}

func (emu *EMU) nop(in opcode.Instruction) error {
	if emu.debugEnabled() {
		emu.log.Debug("ignoring unknown opcode",
			slog.String("opcode", fmt.Sprintf("%04X", in.Opcode)),
			slog.String("pc", fmt.Sprintf("0x%03X", emu.pc-2)))
	}
	return nil
}

// 00E0
func (emu *EMU) cls(opcode.Instruction) error {
	emu.display.Clear()
	return nil
}

// 00EE
func (emu *EMU) ret(opcode.Instruction) error {
	if emu.sp == 0 {
		return ErrStackUnderflow
	}
	emu.sp--
	emu.pc = emu.stack[emu.sp]
	return nil
}

// 1nnn
func (emu *EMU) jp(in opcode.Instruction) error {
	emu.pc = in.NNN
	return nil
}

// 2nnn
func (emu *EMU) call(in opcode.Instruction) error {
	if emu.sp >= StackDepth {
		return ErrStackOverflow
	}
	emu.stack[emu.sp] = emu.pc
	emu.sp++
	emu.pc = in.NNN
	return nil
}

// 3xkk
func (emu *EMU) seByte(in opcode.Instruction) error {
	emu.skipIf(emu.v[in.X] == in.KK)
	return nil
}

// 4xkk
func (emu *EMU) sneByte(in opcode.Instruction) error {
	emu.skipIf(emu.v[in.X] != in.KK)
	return nil
}

// 5xy0
func (emu *EMU) seReg(in opcode.Instruction) error {
	emu.skipIf(emu.v[in.X] == emu.v[in.Y])
	return nil
}

// 6xkk
func (emu *EMU) ldByte(in opcode.Instruction) error {
	emu.v[in.X] = in.KK
	return nil
}

// 7xkk, no carry
func (emu *EMU) addByte(in opcode.Instruction) error {
	emu.v[in.X] += in.KK
	return nil
}

// 8xy0
func (emu *EMU) ldReg(in opcode.Instruction) error {
	emu.v[in.X] = emu.v[in.Y]
	return nil
}

// 8xy1
func (emu *EMU) or(in opcode.Instruction) error {
	emu.v[in.X] |= emu.v[in.Y]
	return nil
}

// 8xy2
func (emu *EMU) and(in opcode.Instruction) error {
	emu.v[in.X] &= emu.v[in.Y]
	return nil
}

// 8xy3
func (emu *EMU) xor(in opcode.Instruction) error {
	emu.v[in.X] ^= emu.v[in.Y]
	return nil
}

// The 8xy4-8xyE group writes VF after the result, so with x == F the flag
// is what remains in VF.

// 8xy4
func (emu *EMU) addReg(in opcode.Instruction) error {
	sum := uint16(emu.v[in.X]) + uint16(emu.v[in.Y])
	emu.v[in.X] = uint8(sum)
	emu.v[FlagRegister] = flag(sum > 0xFF)
	return nil
}

// 8xy5
func (emu *EMU) sub(in opcode.Instruction) error {
	x, y := emu.v[in.X], emu.v[in.Y]
	emu.v[in.X] = x - y
	emu.v[FlagRegister] = flag(x > y)
	return nil
}

// 8xy7
func (emu *EMU) subn(in opcode.Instruction) error {
	x, y := emu.v[in.X], emu.v[in.Y]
	emu.v[in.X] = y - x
	emu.v[FlagRegister] = flag(y > x)
	return nil
}

func (emu *EMU) shiftSource(in opcode.Instruction) uint8 {
	if emu.quirks.ShiftUsesVY {
		return emu.v[in.Y]
	}
	return emu.v[in.X]
}

// 8xy6
func (emu *EMU) shr(in opcode.Instruction) error {
	src := emu.shiftSource(in)
	emu.v[in.X] = src >> 1
	emu.v[FlagRegister] = src & 0x01
	return nil
}

// 8xyE
func (emu *EMU) shl(in opcode.Instruction) error {
	src := emu.shiftSource(in)
	emu.v[in.X] = src << 1
	emu.v[FlagRegister] = src >> 7
	return nil
}

// 9xy0
func (emu *EMU) sneReg(in opcode.Instruction) error {
	emu.skipIf(emu.v[in.X] != emu.v[in.Y])
	return nil
}

// Annn
func (emu *EMU) ldI(in opcode.Instruction) error {
	emu.index = in.NNN
	return nil
}

// Bnnn
func (emu *EMU) jpV0(in opcode.Instruction) error {
	emu.pc = uint16(emu.v[0]) + in.NNN
	return nil
}

// Cxkk
func (emu *EMU) rndByte(in opcode.Instruction) error {
	emu.v[in.X] = uint8(emu.rnd.Intn(256)) & in.KK
	return nil
}

// Dxyn
func (emu *EMU) drw(in opcode.Instruction) error {
	rows, err := emu.memory.GetRange(emu.index, int(in.N))
	if err != nil {
		return err
	}
	emu.v[FlagRegister] = flag(emu.display.DrawSprite(emu.v[in.X], emu.v[in.Y], rows))
	return nil
}

// Ex9E
func (emu *EMU) skp(in opcode.Instruction) error {
	emu.skipIf(emu.keys.IsPressed(emu.v[in.X]))
	return nil
}

// ExA1
func (emu *EMU) sknp(in opcode.Instruction) error {
	emu.skipIf(!emu.keys.IsPressed(emu.v[in.X]))
	return nil
}

// Fx07
func (emu *EMU) ldVxDT(in opcode.Instruction) error {
	emu.v[in.X] = emu.delayTimer
	return nil
}

// Fx0A completes at once if a key is already held, otherwise the machine
// parks in StateWaitingForKey and later cycles poll until one is.
func (emu *EMU) ldKey(in opcode.Instruction) error {
	emu.waitReg = in.X
	emu.state = StateWaitingForKey
	emu.pollKey()
	return nil
}

// Fx15
func (emu *EMU) ldDTVx(in opcode.Instruction) error {
	emu.delayTimer = emu.v[in.X]
	return nil
}

// Fx18
func (emu *EMU) ldSTVx(in opcode.Instruction) error {
	emu.soundTimer = emu.v[in.X]
	emu.updateSound()
	return nil
}

// Fx1E wraps at 16 bits. VF is only touched with the IndexOverflowFlag quirk.
func (emu *EMU) addI(in opcode.Instruction) error {
	sum := uint32(emu.index) + uint32(emu.v[in.X])
	emu.index = uint16(sum)
	if emu.quirks.IndexOverflowFlag {
		emu.v[FlagRegister] = flag(sum > 0xFFF)
	}
	return nil
}

// Fx29
func (emu *EMU) ldFont(in opcode.Instruction) error {
	emu.index = memory.FontAddress(emu.v[in.X])
	return nil
}

// Fx33
func (emu *EMU) ldBCD(in opcode.Instruction) error {
	v := emu.v[in.X]
	return emu.memory.PutRange(emu.index, v/100, (v/10)%10, v%10)
}

// Fx55 copies V0 through Vx inclusive.
func (emu *EMU) storeRegs(in opcode.Instruction) error {
	n := int(in.X) + 1
	if err := emu.memory.PutRange(emu.index, emu.v[:n]...); err != nil {
		return err
	}
	if emu.quirks.LoadStoreIncrementsI {
		emu.index += uint16(n)
	}
	return nil
}

// Fx65 fills V0 through Vx inclusive.
func (emu *EMU) loadRegs(in opcode.Instruction) error {
	n := int(in.X) + 1
	data, err := emu.memory.GetRange(emu.index, n)
	if err != nil {
		return err
	}
	copy(emu.v[:n], data)
	if emu.quirks.LoadStoreIncrementsI {
		emu.index += uint16(n)
	}
	return nil
}
