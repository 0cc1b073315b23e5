// Package headless runs a machine for a fixed number of cycles with no
// window, ticking the timers at their proper ratio to the cycle rate, and
// prints the final frame as text.
package headless

import (
	"fmt"
	"io"

	"github.com/beanboi7/chyp8/emu/display"
)

type Machine interface {
	Step() error
	TickTimers()
	Snapshot() display.Frame
}

// Run executes cycles instructions, ticking the timers once every
// cyclesPerTick of them. The frame is written to w even when a cycle fails.
func Run(w io.Writer, m Machine, cycles, cyclesPerTick int) error {
	if cyclesPerTick < 1 {
		cyclesPerTick = 1
	}

	var err error
	for i := 1; i <= cycles; i++ {
		if err = m.Step(); err != nil {
			break
		}
		if i%cyclesPerTick == 0 {
			m.TickTimers()
		}
	}

	if _, werr := fmt.Fprint(w, m.Snapshot()); werr != nil && err == nil {
		err = werr
	}
	return err
}
