package audio

import (
	"testing"

	"github.com/faiface/beep"
)

func TestSquare(t *testing.T) {
	// 8 samples per period: 4 high, 4 low
	s := Square(beep.SampleRate(800), 100, 0.5)

	buf := make([][2]float64, 16)
	n, ok := s.Stream(buf)
	if n != len(buf) || !ok {
		t.Fatalf("square wave must never run dry: n=%d ok=%v", n, ok)
	}

	for i, sample := range buf {
		want := 0.5
		if i%8 >= 4 {
			want = -0.5
		}
		if sample[0] != want || sample[1] != want {
			t.Fatalf("sample %d: got %v want %v on both channels", i, sample, want)
		}
	}
}

func TestBeeperToggles(t *testing.T) {
	b := newBeeper(Square(SampleRate, DefaultTone, DefaultVolume), nil)

	if b.Playing() {
		t.Fatalf("beeper must start paused")
	}
	b.SetTone(true)
	if !b.Playing() {
		t.Fatalf("SetTone(true) should resume")
	}

	// a paused Ctrl streams silence
	b.SetTone(false)
	buf := make([][2]float64, 32)
	b.ctrl.Stream(buf)
	for i, sample := range buf {
		if sample[0] != 0 || sample[1] != 0 {
			t.Fatalf("sample %d is not silent while paused: %v", i, sample)
		}
	}

	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %s", err)
	}
}

func TestSourceDefaults(t *testing.T) {
	s, closer, err := source(Config{})
	if err != nil {
		t.Fatalf("default source failed: %s", err)
	}
	if closer != nil {
		t.Fatalf("generated tone has nothing to close")
	}

	buf := make([][2]float64, 4)
	s.Stream(buf)
	if buf[0][0] != DefaultVolume {
		t.Fatalf("expected default volume, got %v", buf[0][0])
	}
}

func TestMissingFile(t *testing.T) {
	if _, _, err := source(Config{File: "/this/file-does/not/exist.mp3"}); err == nil {
		t.Fatalf("expected an error for a missing sound file")
	}
}
