// Package opcode decodes 16-bit Chip-8 opcodes into an operation tag and the
// operand fields packed into them.
//
// Decoding is two flat table lookups: the top nibble picks a group, and the
// groups that hold more than one operation are resolved again on their low
// nibble or low byte. Anything that does not resolve is Nop.
package opcode

import "fmt"

// Op identifies one Chip-8 operation.
type Op uint8

const (
	Nop Op = iota
	Cls
	Ret
	Jp
	Call
	SeByte
	SneByte
	SeReg
	LdByte
	AddByte
	LdReg
	Or
	And
	Xor
	AddReg
	Sub
	Shr
	Subn
	Shl
	SneReg
	LdI
	JpV0
	Rnd
	Drw
	Skp
	Sknp
	LdVxDT
	LdKey
	LdDTVx
	LdSTVx
	AddI
	LdFont
	LdBCD
	StoreRegs
	LoadRegs

	NumOps
)

var mnemonics = [NumOps]string{
	Nop:       "NOP",
	Cls:       "CLS",
	Ret:       "RET",
	Jp:        "JP",
	Call:      "CALL",
	SeByte:    "SE",
	SneByte:   "SNE",
	SeReg:     "SE",
	LdByte:    "LD",
	AddByte:   "ADD",
	LdReg:     "LD",
	Or:        "OR",
	And:       "AND",
	Xor:       "XOR",
	AddReg:    "ADD",
	Sub:       "SUB",
	Shr:       "SHR",
	Subn:      "SUBN",
	Shl:       "SHL",
	SneReg:    "SNE",
	LdI:       "LD",
	JpV0:      "JP",
	Rnd:       "RND",
	Drw:       "DRW",
	Skp:       "SKP",
	Sknp:      "SKNP",
	LdVxDT:    "LD",
	LdKey:     "LD",
	LdDTVx:    "LD",
	LdSTVx:    "LD",
	AddI:      "ADD",
	LdFont:    "LD",
	LdBCD:     "LD",
	StoreRegs: "LD",
	LoadRegs:  "LD",
}

func (op Op) String() string {
	if op >= NumOps {
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
	return mnemonics[op]
}

// Instruction is a decoded opcode. All fields are extracted regardless of
// which ones Op actually uses.
type Instruction struct {
	Op     Op
	Opcode uint16
	X      uint8  // bits 8-11
	Y      uint8  // bits 4-7
	N      uint8  // bits 0-3
	KK     uint8  // bits 0-7
	NNN    uint16 // bits 0-11
}

// group resolves the operation for a top nibble.
type group func(opcode uint16) Op

var groups [16]group

// sub-tables for groups that share a top nibble
var (
	group0 [256]Op
	group8 [16]Op
	groupE [256]Op
	groupF [256]Op
)

func fixed(op Op) group {
	return func(uint16) Op { return op }
}

func init() {
	group0[0xE0] = Cls
	group0[0xEE] = Ret

	group8[0x0] = LdReg
	group8[0x1] = Or
	group8[0x2] = And
	group8[0x3] = Xor
	group8[0x4] = AddReg
	group8[0x5] = Sub
	group8[0x6] = Shr
	group8[0x7] = Subn
	group8[0xE] = Shl

	groupE[0x9E] = Skp
	groupE[0xA1] = Sknp

	groupF[0x07] = LdVxDT
	groupF[0x0A] = LdKey
	groupF[0x15] = LdDTVx
	groupF[0x18] = LdSTVx
	groupF[0x1E] = AddI
	groupF[0x29] = LdFont
	groupF[0x33] = LdBCD
	groupF[0x55] = StoreRegs
	groupF[0x65] = LoadRegs

	groups = [16]group{
		0x0: func(opcode uint16) Op {
			// 0nnn other than CLS/RET is a machine code call; ignored
			if opcode&0x0F00 != 0 {
				return Nop
			}
			return group0[opcode&0x00FF]
		},
		0x1: fixed(Jp),
		0x2: fixed(Call),
		0x3: fixed(SeByte),
		0x4: fixed(SneByte),
		0x5: fixed(SeReg), // low nibble not checked
		0x6: fixed(LdByte),
		0x7: fixed(AddByte),
		0x8: func(opcode uint16) Op { return group8[opcode&0x000F] },
		0x9: fixed(SneReg),
		0xA: fixed(LdI),
		0xB: fixed(JpV0),
		0xC: fixed(Rnd),
		0xD: fixed(Drw),
		0xE: func(opcode uint16) Op { return groupE[opcode&0x00FF] },
		0xF: func(opcode uint16) Op { return groupF[opcode&0x00FF] },
	}
}

// Decode never fails; unknown opcodes come back as Nop.
func Decode(opcode uint16) Instruction {
	return Instruction{
		Op:     groups[opcode>>12](opcode),
		Opcode: opcode,
		X:      uint8((opcode & 0x0F00) >> 8),
		Y:      uint8((opcode & 0x00F0) >> 4),
		N:      uint8(opcode & 0x000F),
		KK:     uint8(opcode & 0x00FF),
		NNN:    opcode & 0x0FFF,
	}
}

// String renders the instruction in the usual Chip-8 assembly notation.
func (in Instruction) String() string {
	name := in.Op.String()
	switch in.Op {
	case Cls, Ret:
		return name
	case Nop:
		return fmt.Sprintf("DW $%04X", in.Opcode)
	case Jp, Call:
		return fmt.Sprintf("%s $%03X", name, in.NNN)
	case JpV0:
		return fmt.Sprintf("%s V0, $%03X", name, in.NNN)
	case SeByte, SneByte, LdByte, AddByte, Rnd:
		return fmt.Sprintf("%s V%X, $%02X", name, in.X, in.KK)
	case SeReg, SneReg, LdReg, Or, And, Xor, AddReg, Sub, Subn:
		return fmt.Sprintf("%s V%X, V%X", name, in.X, in.Y)
	case Shr, Shl:
		return fmt.Sprintf("%s V%X, V%X", name, in.X, in.Y)
	case LdI:
		return fmt.Sprintf("%s I, $%03X", name, in.NNN)
	case Drw:
		return fmt.Sprintf("%s V%X, V%X, $%X", name, in.X, in.Y, in.N)
	case Skp, Sknp:
		return fmt.Sprintf("%s V%X", name, in.X)
	case LdVxDT:
		return fmt.Sprintf("%s V%X, DT", name, in.X)
	case LdKey:
		return fmt.Sprintf("%s V%X, K", name, in.X)
	case LdDTVx:
		return fmt.Sprintf("%s DT, V%X", name, in.X)
	case LdSTVx:
		return fmt.Sprintf("%s ST, V%X", name, in.X)
	case AddI:
		return fmt.Sprintf("%s I, V%X", name, in.X)
	case LdFont:
		return fmt.Sprintf("%s F, V%X", name, in.X)
	case LdBCD:
		return fmt.Sprintf("%s B, V%X", name, in.X)
	case StoreRegs:
		return fmt.Sprintf("%s [I], V%X", name, in.X)
	case LoadRegs:
		return fmt.Sprintf("%s V%X, [I]", name, in.X)
	}
	return name
}

// Target is the fixed destination of JP and CALL. Computed jumps (JP V0)
// and everything else report false.
func (in Instruction) Target() (uint16, bool) {
	switch in.Op {
	case Jp, Call:
		return in.NNN, true
	}
	return 0, false
}
