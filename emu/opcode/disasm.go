package opcode

import (
	"fmt"
	"io"
)

// Disassemble writes one line per word of code, starting at address base.
// Addresses that a JP or CALL in the code lands on are marked with '>':
//
//	0x200 > 00E0  CLS
//	0x202   1200  JP $200
//
// A trailing odd byte is shown as DB.
func Disassemble(w io.Writer, base uint16, code []byte) error {
	targets := map[uint16]bool{}
	for i := 0; i+1 < len(code); i += 2 {
		if t, ok := Decode(word(code, i)).Target(); ok {
			targets[t] = true
		}
	}

	addr := base
	for i := 0; i < len(code); i += 2 {
		mark := ' '
		if targets[addr] {
			mark = '>'
		}

		if i+1 == len(code) {
			_, err := fmt.Fprintf(w, "0x%03X %c %02X    DB $%02X\n", addr, mark, code[i], code[i])
			return err
		}

		wd := word(code, i)
		if _, err := fmt.Fprintf(w, "0x%03X %c %04X  %s\n", addr, mark, wd, Decode(wd)); err != nil {
			return err
		}
		addr += 2
	}
	return nil
}

func word(code []byte, i int) uint16 {
	return uint16(code[i])<<8 | uint16(code[i+1])
}
