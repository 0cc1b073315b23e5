package cpu

// TickTimers counts both timers down by one, stopping at zero. The run loop
// calls it timerRate times a second. It is exported so a frontend that
// drives the machine itself (or a test) can tick in lockstep.
func (emu *EMU) TickTimers() {
	emu.mu.Lock()
	defer emu.mu.Unlock()

	if emu.delayTimer > 0 {
		emu.delayTimer--
	}
	if emu.soundTimer > 0 {
		emu.soundTimer--
	}
	emu.updateSound()
}

// updateSound pushes on/off edges of the sound timer to the Sounder.
func (emu *EMU) updateSound() {
	on := emu.soundTimer > 0
	if on == emu.soundOn {
		return
	}
	emu.soundOn = on
	if emu.sound != nil {
		emu.sound.SetTone(on)
	}
}
