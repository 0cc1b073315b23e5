package cpu

import (
	"errors"
	"fmt"
)

var (
	ErrStackOverflow  = errors.New("call stack overflow")
	ErrStackUnderflow = errors.New("return with empty call stack")
	ErrNotLoaded      = errors.New("no rom loaded")
	ErrAlreadyRunning = errors.New("emulation already running")
)

// FaultError is a fatal execution fault. The machine is halted once one has
// been returned and stays halted until the next load.
type FaultError struct {
	PC     uint16 // address of the faulting instruction
	Opcode uint16
	Err    error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("fault at 0x%03X (opcode %04X): %v", e.PC, e.Opcode, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}
