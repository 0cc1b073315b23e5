package cpu

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Run executes one cycle every interval and ticks the timers at the timer
// rate until ctx is cancelled or the machine faults. A non-positive interval
// runs cycles back to back. Cancellation only takes effect between cycles.
//
// Run returns nil when cancelled and the *FaultError when halted.
func (emu *EMU) Run(ctx context.Context, interval time.Duration) error {
	if emu.State() == StateIdle {
		return ErrNotLoaded
	}

	emu.log.Info("emulation started",
		slog.Duration("cycle", interval),
		slog.Int("timer_hz", emu.timerRate))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return emu.cycleLoop(ctx, interval)
	})
	g.Go(func() error {
		return emu.timerLoop(ctx)
	})
	err := g.Wait()

	emu.log.Info("emulation stopped", slog.Uint64("cycles", emu.Cycles()))
	return err
}

func (emu *EMU) cycleLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if err := emu.Step(); err != nil {
				return err
			}
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := emu.Step(); err != nil {
				return err
			}
		}
	}
}

func (emu *EMU) timerLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(emu.timerRate))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			emu.TickTimers()
		}
	}
}

// Start runs the machine in the background. It fails if a ROM has not been
// loaded or a previous Start is still running.
func (emu *EMU) Start(interval time.Duration) error {
	emu.runMu.Lock()
	defer emu.runMu.Unlock()

	if emu.cancel != nil {
		select {
		case <-emu.done:
			emu.cancel()
		default:
			return ErrAlreadyRunning
		}
	}
	if emu.State() == StateIdle {
		return ErrNotLoaded
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	emu.cancel = cancel
	emu.done = done
	emu.lastErr = nil

	go func() {
		err := emu.Run(ctx, interval)
		emu.runMu.Lock()
		emu.lastErr = err
		emu.runMu.Unlock()
		close(done)
	}()
	return nil
}

// Stop cancels a running Start and waits for the in-flight cycle to finish.
// It returns the fault if the machine halted on its own.
func (emu *EMU) Stop() error {
	emu.runMu.Lock()
	cancel, done := emu.cancel, emu.done
	emu.runMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	emu.runMu.Lock()
	defer emu.runMu.Unlock()
	emu.cancel = nil
	return emu.lastErr
}

// Done is closed when the background run ends, whether stopped or halted.
// It is nil before the first Start.
func (emu *EMU) Done() <-chan struct{} {
	emu.runMu.Lock()
	defer emu.runMu.Unlock()
	return emu.done
}

// Err is the result of the last background run.
func (emu *EMU) Err() error {
	emu.runMu.Lock()
	defer emu.runMu.Unlock()
	return emu.lastErr
}
