package osc

import (
	"math"
	"testing"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for invalid sample rate")
	}

	if _, err := New(44100, WithFrequencyHz(5)); err == nil {
		t.Fatal("expected error for frequency below range")
	}

	if _, err := New(44100, WithLevel(1.5)); err == nil {
		t.Fatal("expected error for level out of range")
	}

	if _, err := New(44100, WithPulseWidth(0.99)); err == nil {
		t.Fatal("expected error for pulse width out of range")
	}

	if _, err := New(44100, WithWaveform(Waveform(99))); err == nil {
		t.Fatal("expected error for invalid waveform")
	}
}

func TestMIDIToFrequency(t *testing.T) {
	if got := MIDIToFrequency(69); math.Abs(got-440) > 1e-9 {
		t.Fatalf("MIDIToFrequency(69) = %g, want 440", got)
	}

	if got := MIDIToFrequency(81); math.Abs(got-880) > 1e-9 {
		t.Fatalf("MIDIToFrequency(81) = %g, want 880", got)
	}

	if got := MIDIToFrequency(60); math.Abs(got-261.6255653005986) > 1e-9 {
		t.Fatalf("MIDIToFrequency(60) = %g, want 261.6255653005986", got)
	}
}

func TestParseWaveform(t *testing.T) {
	names := map[string]Waveform{
		"sine":     WaveformSine,
		"sawtooth": WaveformSawtooth,
		"square":   WaveformSquare,
		"triangle": WaveformTriangle,
		"pulse":    WaveformPulse,
	}

	for name, want := range names {
		got, err := ParseWaveform(name)
		if err != nil {
			t.Fatalf("ParseWaveform(%q) error = %v", name, err)
		}

		if got != want {
			t.Fatalf("ParseWaveform(%q) = %v, want %v", name, got, want)
		}

		if got.String() != name {
			t.Fatalf("String() = %q, want %q", got.String(), name)
		}
	}

	if _, err := ParseWaveform("ramp"); err == nil {
		t.Fatal("expected error for unknown waveform name")
	}
}

func TestSineFrequency(t *testing.T) {
	const (
		sr   = 44100.0
		freq = 441.0
		n    = 4410
	)

	o, err := New(sr, WithFrequencyHz(freq))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out := make([]float64, n)
	o.Generate(out)

	// Count rising zero crossings; 441 Hz over 0.1 s gives 44 full cycles.
	crossings := 0
	for i := 1; i < n; i++ {
		if out[i-1] < 0 && out[i] >= 0 {
			crossings++
		}
	}

	if crossings < 43 || crossings > 45 {
		t.Fatalf("zero crossings = %d, want ~44", crossings)
	}
}

func TestGenerateMatchesProcessSample(t *testing.T) {
	for _, wf := range []Waveform{WaveformSine, WaveformSawtooth, WaveformSquare, WaveformTriangle, WaveformPulse} {
		o1, err := New(44100, WithWaveform(wf), WithFrequencyHz(220))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		o2, err := New(44100, WithWaveform(wf), WithFrequencyHz(220))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		buf := make([]float64, 512)
		o1.Generate(buf)

		for i := range buf {
			want := o2.ProcessSample()
			if math.Abs(buf[i]-want) > 1e-12 {
				t.Fatalf("%v sample %d mismatch: got=%g want=%g", wf, i, buf[i], want)
			}
		}
	}
}

func TestPhaseContinuityAcrossBuffers(t *testing.T) {
	o1, err := New(44100, WithWaveform(WaveformSawtooth), WithFrequencyHz(300))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	o2, err := New(44100, WithWaveform(WaveformSawtooth), WithFrequencyHz(300))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	whole := make([]float64, 1024)
	o1.Generate(whole)

	split := make([]float64, 1024)
	o2.Generate(split[:300])
	o2.Generate(split[300:700])
	o2.Generate(split[700:])

	for i := range whole {
		if math.Abs(whole[i]-split[i]) > 1e-12 {
			t.Fatalf("discontinuity at %d: %g vs %g", i, whole[i], split[i])
		}
	}
}

func TestSawtoothBandlimiting(t *testing.T) {
	const (
		sr = 44100.0
		n  = 8192
	)

	o, err := New(sr, WithWaveform(WaveformSawtooth), WithFrequencyHz(2000))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out := make([]float64, n)
	o.Generate(out)

	// PolyBLEP keeps per-sample steps well below the naive discontinuity of 2.
	maxStep := 0.0
	for i := 1; i < n; i++ {
		if d := math.Abs(out[i] - out[i-1]); d > maxStep {
			maxStep = d
		}
	}

	if maxStep > 1.5 {
		t.Fatalf("max step = %g, want < 1.5 with PolyBLEP smoothing", maxStep)
	}
}

func TestPulseBandlimiting(t *testing.T) {
	const (
		sr = 44100.0
		n  = 8192
	)

	o, err := New(sr, WithWaveform(WaveformPulse), WithFrequencyHz(2000), WithPulseWidth(0.3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out := make([]float64, n)
	o.Generate(out)

	maxStep := 0.0
	for i := 1; i < n; i++ {
		if d := math.Abs(out[i] - out[i-1]); d > maxStep {
			maxStep = d
		}
	}

	if maxStep > 1.5 {
		t.Fatalf("max step = %g, want < 1.5 with PolyBLEP smoothing at both edges", maxStep)
	}
}

func TestPulseWidthChangesDuty(t *testing.T) {
	o, err := New(44100, WithWaveform(WaveformPulse), WithFrequencyHz(100), WithPulseWidth(0.25))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out := make([]float64, 4410)
	o.Generate(out)

	high := 0
	for _, v := range out {
		if v > 0 {
			high++
		}
	}

	ratio := float64(high) / float64(len(out))
	if ratio < 0.2 || ratio > 0.3 {
		t.Fatalf("duty ratio = %g, want ~0.25", ratio)
	}
}

func TestSilentClampingOnSetters(t *testing.T) {
	o, err := New(44100)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	o.SetFrequencyHz(100000)
	if got := o.FrequencyHz(); got != maxFrequencyHz {
		t.Fatalf("frequency = %g, want clamp to %g", got, maxFrequencyHz)
	}

	o.SetFrequencyHz(1)
	if got := o.FrequencyHz(); got != minFrequencyHz {
		t.Fatalf("frequency = %g, want clamp to %g", got, minFrequencyHz)
	}

	o.SetLevel(2)
	if got := o.Level(); got != 1 {
		t.Fatalf("level = %g, want clamp to 1", got)
	}

	o.SetPulseWidth(0.01)
	if got := o.PulseWidth(); got != minPulseWidth {
		t.Fatalf("pulse width = %g, want clamp to %g", got, minPulseWidth)
	}

	o.SetPulseWidthMod(0.7)
	if got := o.PulseWidthMod(); got != maxPWMod {
		t.Fatalf("pw mod = %g, want clamp to %g", got, maxPWMod)
	}

	before := o.FrequencyHz()

	o.SetFrequencyHz(math.NaN())
	if got := o.FrequencyHz(); got != before {
		t.Fatalf("frequency = %g, NaN write should be ignored", got)
	}
}

func TestPitchModShiftsFrequency(t *testing.T) {
	o, err := New(44100, WithFrequencyHz(440))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	o.SetPitchMod(12)

	if got := o.EffectiveFrequencyHz(); math.Abs(got-880) > 1e-9 {
		t.Fatalf("effective frequency = %g, want 880", got)
	}

	o.SetPitchMod(-12)

	if got := o.EffectiveFrequencyHz(); math.Abs(got-220) > 1e-9 {
		t.Fatalf("effective frequency = %g, want 220", got)
	}
}

func TestResetPhase(t *testing.T) {
	o, err := New(44100, WithWaveform(WaveformSawtooth), WithFrequencyHz(500))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first := make([]float64, 256)
	o.Generate(first)

	o.ResetPhase()

	second := make([]float64, 256)
	o.Generate(second)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("phase reset not deterministic at %d: %g vs %g", i, first[i], second[i])
		}
	}
}

func TestOutputBounded(t *testing.T) {
	for _, wf := range []Waveform{WaveformSine, WaveformSawtooth, WaveformSquare, WaveformTriangle, WaveformPulse} {
		o, err := New(44100, WithWaveform(wf), WithFrequencyHz(5000))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		out := make([]float64, 4096)
		o.Generate(out)

		for i, v := range out {
			if !isFinite(v) {
				t.Fatalf("%v: non-finite sample at %d", wf, i)
			}

			// The residual never pushes output past the naive bound.
			if math.Abs(v) > 1.0001 {
				t.Fatalf("%v: sample %d out of range: %g", wf, i, v)
			}
		}
	}
}

func BenchmarkGenerateSawtooth(b *testing.B) {
	o, err := New(44100, WithWaveform(WaveformSawtooth), WithFrequencyHz(440))
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}

	buf := make([]float64, 512)

	b.ResetTimer()

	for range b.N {
		o.Generate(buf)
	}
}
