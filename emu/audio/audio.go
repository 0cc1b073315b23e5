// Package audio plays the Chip-8 buzzer through beep's speaker. The source
// is either a generated square wave or a looped mp3 file; it is started once
// and then paused or resumed as the sound timer turns on and off.
package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const (
	SampleRate    = beep.SampleRate(44100)
	DefaultTone   = 440.0
	DefaultVolume = 0.25

	resampleQuality = 4
)

type Config struct {
	Tone   float64 // Hz, used when File is empty
	Volume float64 // 0..1
	File   string  // optional mp3 to loop instead of the tone
}

// Beeper implements cpu.Sounder.
type Beeper struct {
	ctrl   *beep.Ctrl
	closer io.Closer
}

// New initialises the speaker and starts the (paused) buzzer.
func New(cfg Config) (*Beeper, error) {
	src, closer, err := source(cfg)
	if err != nil {
		return nil, err
	}

	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/20)); err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("initialising speaker: %w", err)
	}

	b := newBeeper(src, closer)
	speaker.Play(b.ctrl)
	return b, nil
}

func newBeeper(src beep.Streamer, closer io.Closer) *Beeper {
	return &Beeper{
		ctrl:   &beep.Ctrl{Streamer: src, Paused: true},
		closer: closer,
	}
}

func source(cfg Config) (beep.Streamer, io.Closer, error) {
	if cfg.File == "" {
		tone := cfg.Tone
		if tone <= 0 {
			tone = DefaultTone
		}
		vol := cfg.Volume
		if vol <= 0 || vol > 1 {
			vol = DefaultVolume
		}
		return Square(SampleRate, tone, vol), nil, nil
	}
	return loadFile(cfg.File)
}

// loadFile decodes an mp3 and loops it forever at SampleRate.
func loadFile(path string) (beep.Streamer, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening sound file: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	var s beep.Streamer = beep.Loop(-1, streamer)
	if format.SampleRate != SampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, SampleRate, s)
	}
	return s, streamer, nil
}

// SetTone resumes or pauses the buzzer.
func (b *Beeper) SetTone(on bool) {
	speaker.Lock()
	b.ctrl.Paused = !on
	speaker.Unlock()
}

// Playing reports whether the buzzer is currently unpaused.
func (b *Beeper) Playing() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return !b.ctrl.Paused
}

func (b *Beeper) Close() error {
	b.SetTone(false)
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}

// Square is an endless square wave of the given frequency and amplitude.
func Square(sr beep.SampleRate, freq, volume float64) beep.Streamer {
	period := float64(sr) / freq
	pos := 0.0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			v := volume
			if pos >= period/2 {
				v = -volume
			}
			samples[i][0], samples[i][1] = v, v

			pos++
			if pos >= period {
				pos -= period
			}
		}
		return len(samples), true
	})
}
