package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/faiface/pixel/pixelgl"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beanboi7/chyp8/config"
	"github.com/beanboi7/chyp8/emu/audio"
	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/headless"
	"github.com/beanboi7/chyp8/emu/keypad"
	"github.com/beanboi7/chyp8/emu/screen"
	"github.com/beanboi7/chyp8/emu/terminal"
	"github.com/beanboi7/chyp8/statsview"
)

var startCmd = &cobra.Command{
	Use:   "start path/ROM",
	Short: "load and start the Emulator",
	Args:  cobra.ExactArgs(1),
	RunE:  Start,
}

// chyp8 start 'path/to/ROM' -r 60 -c 700
func Start(cmd *cobra.Command, args []string) error {
	s, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(s)
	if err != nil {
		return err
	}
	defer closeLog()

	keys := keypad.New()
	opts := []cpu.Option{
		cpu.WithLogger(log),
		cpu.WithKeypad(keys),
		cpu.WithQuirks(s.CPUQuirks()),
		cpu.WithSeed(s.Seed),
		cpu.WithTimerRate(s.TimerRate),
	}

	if s.Sound.Enabled && s.Frontend != config.FrontendHeadless {
		b, err := audio.New(audio.Config{Tone: s.Sound.Tone, Volume: s.Sound.Volume, File: s.Sound.File})
		if err != nil {
			log.Warn("sound disabled", slog.String("error", err.Error()))
		} else {
			defer b.Close()
			opts = append(opts, cpu.WithSounder(b))
		}
	}

	emu := cpu.NewEMU(opts...)
	if err := emu.LoadROMFile(args[0]); err != nil {
		return err
	}

	if s.Statsview {
		stop := statsview.Launch(cmd.ErrOrStderr(), statsview.Address)
		defer stop()
	}

	log.Info("starting",
		slog.String("frontend", s.Frontend),
		slog.Int("cycle_rate", s.CycleRate),
		slog.Int("timer_rate", s.TimerRate))

	switch s.Frontend {
	case config.FrontendHeadless:
		return headless.Run(cmd.OutOrStdout(), emu, s.Headless.Cycles, s.CyclesPerTick())
	case config.FrontendTerminal:
		return runTerminal(emu, keys, s)
	}
	return runWindow(emu, keys, s)
}

func runTerminal(emu *cpu.EMU, keys *keypad.Keypad, s *config.Settings) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := emu.Start(s.CycleInterval()); err != nil {
		return err
	}
	err := terminal.Run(ctx, emu, terminal.NewInput(keys, s.Layout()))
	if stopErr := emu.Stop(); err == nil {
		err = stopErr
	}
	return err
}

// runWindow hands the main thread to pixelgl for the life of the window.
func runWindow(emu *cpu.EMU, keys *keypad.Keypad, s *config.Settings) error {
	var err error
	pixelgl.Run(func() {
		var win *screen.Window
		win, err = screen.New(screen.Config{Title: "Chyp8", Scale: s.Scale, Layout: s.Layout()}, keys)
		if err != nil {
			return
		}
		defer win.Destroy()

		if err = emu.Start(s.CycleInterval()); err != nil {
			return
		}
		err = win.Run(emu)
		if stopErr := emu.Stop(); err == nil {
			err = stopErr
		}
	})
	return err
}

func init() {
	rootCmd.AddCommand(startCmd)

	f := startCmd.Flags()
	f.IntP("refresh", "r", cpu.DefaultTimerRate, "sets the refresh rate of the timers in Hz")
	f.IntP("cycles", "c", config.DefaultCycleRate, "instructions executed per second")
	f.StringP("frontend", "f", config.FrontendWindow, "window, terminal or headless")
	f.Int("scale", config.DefaultScale, "window pixels per Chip-8 pixel")
	f.Int64("seed", 0, "random seed, 0 seeds from the clock")
	f.Bool("sound", true, "play the buzzer")
	f.Int("headless-cycles", config.DefaultHeadlessCycles, "instructions to run in headless mode")
	f.Bool("statsview", false, "serve runtime statistics on "+statsview.Address)

	viper.BindPFlag("timer_rate", f.Lookup("refresh"))
	viper.BindPFlag("cycle_rate", f.Lookup("cycles"))
	viper.BindPFlag("frontend", f.Lookup("frontend"))
	viper.BindPFlag("scale", f.Lookup("scale"))
	viper.BindPFlag("seed", f.Lookup("seed"))
	viper.BindPFlag("sound.enabled", f.Lookup("sound"))
	viper.BindPFlag("headless.cycles", f.Lookup("headless-cycles"))
	viper.BindPFlag("statsview", f.Lookup("statsview"))
}
