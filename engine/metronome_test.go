package engine

import (
	"math"
	"testing"
)

func TestNewMetronomeValidation(t *testing.T) {
	if _, err := NewMetronome(0); err == nil {
		t.Fatal("NewMetronome(0) expected error")
	}
	if _, err := NewMetronome(44100, WithMetronomeBPM(10)); err == nil {
		t.Fatal("WithMetronomeBPM(10) expected error")
	}
	if _, err := NewMetronome(44100, WithTimeSignature(TimeSignature{Numerator: 4, Denominator: 3})); err == nil {
		t.Fatal("denominator 3 expected error")
	}
	if _, err := NewMetronome(44100, WithMetronomeVolume(2)); err == nil {
		t.Fatal("WithMetronomeVolume(2) expected error")
	}
}

func TestMetronomeStoppedIsSilent(t *testing.T) {
	m, err := NewMetronome(44100)
	if err != nil {
		t.Fatalf("NewMetronome() error = %v", err)
	}
	buf := make([]float64, 1024)
	buf[0] = 1 // Generate must overwrite
	m.Generate(buf)
	for i, s := range buf {
		if s != 0 {
			t.Fatalf("sample %f at %d while stopped", s, i)
		}
	}
}

func TestMetronomeClicksOnBeats(t *testing.T) {
	const sampleRate = 44100.0
	m, err := NewMetronome(sampleRate, WithMetronomeBPM(120), WithMetronomeVolume(1))
	if err != nil {
		t.Fatalf("NewMetronome() error = %v", err)
	}
	m.Start()

	// 120 BPM is one beat every 22050 samples. Render one second.
	buf := make([]float64, 44100)
	m.Generate(buf)

	samplesPerBeat := int(60.0 / 120.0 * sampleRate)
	if buf[1] == 0 {
		t.Error("no click at the first beat")
	}
	if buf[samplesPerBeat+1] == 0 {
		t.Error("no click at the second beat")
	}
	// Between clicks the track is silent.
	quiet := samplesPerBeat / 2
	if buf[quiet] != 0 {
		t.Errorf("unexpected output %f between beats", buf[quiet])
	}
}

func TestMetronomeAccentsDownbeat(t *testing.T) {
	const sampleRate = 44100.0
	m, err := NewMetronome(sampleRate, WithMetronomeBPM(120), WithMetronomeVolume(1))
	if err != nil {
		t.Fatalf("NewMetronome() error = %v", err)
	}
	m.Start()

	samplesPerBeat := int(60.0 / 120.0 * sampleRate)
	buf := make([]float64, 2*samplesPerBeat)
	m.Generate(buf)

	clickLen := int(math.Round(clickDurationSeconds * sampleRate))
	diff := 0.0
	for i := 0; i < clickLen; i++ {
		diff += math.Abs(buf[i] - buf[samplesPerBeat+i])
	}
	if diff < 1 {
		t.Fatal("downbeat click should differ from the following beat")
	}

	if m.CurrentBeat() != 2 {
		t.Errorf("CurrentBeat() = %d after two beats, want 2", m.CurrentBeat())
	}
}

func TestMetronomeBeatsWrapAtMeasure(t *testing.T) {
	m, err := NewMetronome(44100, WithMetronomeBPM(300),
		WithTimeSignature(TimeSignature{Numerator: 3, Denominator: 4}))
	if err != nil {
		t.Fatalf("NewMetronome() error = %v", err)
	}
	m.Start()

	samplesPerBeat := int(60.0 / 300.0 * 44100.0)
	buf := make([]float64, 3*samplesPerBeat)
	m.Generate(buf)
	if m.CurrentBeat() != 0 {
		t.Fatalf("CurrentBeat() = %d after a full 3/4 measure, want 0", m.CurrentBeat())
	}
}

func TestMetronomeSetBPMClamps(t *testing.T) {
	m, err := NewMetronome(44100)
	if err != nil {
		t.Fatalf("NewMetronome() error = %v", err)
	}
	m.SetBPM(1000)
	if got := m.BPM(); got != maxMetronomeBPM {
		t.Errorf("BPM() = %f, want %f", got, maxMetronomeBPM)
	}
	m.SetBPM(1)
	if got := m.BPM(); got != minMetronomeBPM {
		t.Errorf("BPM() = %f, want %f", got, minMetronomeBPM)
	}
	m.SetBPM(math.NaN())
	if got := m.BPM(); got != minMetronomeBPM {
		t.Errorf("BPM() = %f after NaN, want unchanged", got)
	}
}
