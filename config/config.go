// Package config reads chyp8's settings with viper: defaults, then the config
// file ($HOME/.chyp8.yaml unless --config names one), then CHYP8_* environment
// variables, then bound command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/keypad"
)

const (
	EnvPrefix = "CHYP8"
	fileName  = ".chyp8"
)

const (
	FrontendWindow   = "window"
	FrontendTerminal = "terminal"
	FrontendHeadless = "headless"
)

const (
	DefaultCycleRate      = 700
	DefaultScale          = 10
	DefaultTone           = 440.0
	DefaultVolume         = 0.25
	DefaultHeadlessCycles = 1000
)

type Settings struct {
	Debug     bool
	CycleRate int `mapstructure:"cycle_rate"`
	TimerRate int `mapstructure:"timer_rate"`
	Frontend  string
	Scale     int
	Seed      int64
	Keys      map[string]uint8
	Statsview bool

	Quirks struct {
		ShiftVY            bool `mapstructure:"shift_vy"`
		LoadStoreIncrement bool `mapstructure:"load_store_increment"`
		IndexOverflow      bool `mapstructure:"index_overflow"`
	}

	Sound struct {
		Enabled bool
		Tone    float64
		Volume  float64
		File    string
	}

	Log struct {
		Level string
		File  string
	}

	Headless struct {
		Cycles int
	}
}

// SetDefaults registers every key, which also lets AutomaticEnv see them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("cycle_rate", DefaultCycleRate)
	v.SetDefault("timer_rate", cpu.DefaultTimerRate)
	v.SetDefault("frontend", FrontendWindow)
	v.SetDefault("scale", DefaultScale)
	v.SetDefault("seed", 0)
	v.SetDefault("statsview", false)

	keys := make(map[string]interface{})
	for name, id := range keypad.DefaultLayout() {
		keys[name] = id
	}
	v.SetDefault("keys", keys)

	v.SetDefault("quirks.shift_vy", false)
	v.SetDefault("quirks.load_store_increment", false)
	v.SetDefault("quirks.index_overflow", false)

	v.SetDefault("sound.enabled", true)
	v.SetDefault("sound.tone", DefaultTone)
	v.SetDefault("sound.volume", DefaultVolume)
	v.SetDefault("sound.file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("headless.cycles", DefaultHeadlessCycles)
}

// Read wires up the environment and reads the config file. A missing file
// is only an error when it was asked for by name.
func Read(v *viper.Viper, file string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(fileName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load decodes and validates the settings.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) Validate() error {
	if s.CycleRate <= 0 {
		return fmt.Errorf("cycle_rate must be positive, got %d", s.CycleRate)
	}
	if s.TimerRate <= 0 {
		return fmt.Errorf("timer_rate must be positive, got %d", s.TimerRate)
	}
	if s.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %d", s.Scale)
	}
	if s.Headless.Cycles < 0 {
		return fmt.Errorf("headless.cycles cannot be negative")
	}

	switch s.Frontend {
	case FrontendWindow, FrontendTerminal, FrontendHeadless:
	default:
		return fmt.Errorf("unknown frontend %q", s.Frontend)
	}

	for name, id := range s.Keys {
		if id >= keypad.NumKeys {
			return fmt.Errorf("key %q is bound to %d, keypad ids run 0-15", name, id)
		}
	}

	if _, err := s.Level(); err != nil {
		return err
	}
	return nil
}

// CycleInterval is the time between instructions.
func (s *Settings) CycleInterval() time.Duration {
	return time.Second / time.Duration(s.CycleRate)
}

// CyclesPerTick is how many instructions run per timer tick, for frontends
// that step the machine themselves.
func (s *Settings) CyclesPerTick() int {
	n := s.CycleRate / s.TimerRate
	if n < 1 {
		return 1
	}
	return n
}

func (s *Settings) Layout() keypad.Layout {
	if len(s.Keys) == 0 {
		return keypad.DefaultLayout()
	}
	return keypad.Layout(s.Keys)
}

func (s *Settings) CPUQuirks() cpu.Quirks {
	return cpu.Quirks{
		ShiftUsesVY:          s.Quirks.ShiftVY,
		LoadStoreIncrementsI: s.Quirks.LoadStoreIncrement,
		IndexOverflowFlag:    s.Quirks.IndexOverflow,
	}
}

// Level is the log level, with debug overriding log.level.
func (s *Settings) Level() (slog.Level, error) {
	if s.Debug {
		return slog.LevelDebug, nil
	}
	var l slog.Level
	if s.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return l, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
