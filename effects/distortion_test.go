package effects

import (
	"math"
	"testing"
)

func TestNewDistortionValidation(t *testing.T) {
	if _, err := NewDistortion(0); err == nil {
		t.Fatal("NewDistortion(0) expected error")
	}
	if _, err := NewDistortion(44100, WithDistortionDrive(0.5)); err == nil {
		t.Fatal("WithDistortionDrive(0.5) expected error")
	}
	if _, err := NewDistortion(44100, WithDistortionTone(2)); err == nil {
		t.Fatal("WithDistortionTone(2) expected error")
	}
	if _, err := NewDistortion(44100, WithDistortionMode(DistortionMode(9))); err == nil {
		t.Fatal("WithDistortionMode(9) expected error")
	}
}

func TestParseDistortionMode(t *testing.T) {
	tests := []struct {
		name string
		want DistortionMode
		ok   bool
	}{
		{"soft", DistortionSoft, true},
		{"hard", DistortionHard, true},
		{"tube", DistortionTube, true},
		{"valve", DistortionSoft, false},
	}
	for _, tt := range tests {
		got, err := ParseDistortionMode(tt.name)
		if tt.ok && err != nil {
			t.Errorf("ParseDistortionMode(%q) error = %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("ParseDistortionMode(%q) expected error", tt.name)
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseDistortionMode(%q) = %v, want %v", tt.name, got, tt.want)
		}
		if tt.ok && got.String() != tt.name {
			t.Errorf("String() = %q, want %q", got.String(), tt.name)
		}
	}
}

func TestDistortionDisabledLeavesInputUntouched(t *testing.T) {
	d, err := NewDistortion(44100)
	if err != nil {
		t.Fatalf("NewDistortion() error = %v", err)
	}
	buf := []float64{0.5, -0.5, 0.9}
	want := []float64{0.5, -0.5, 0.9}
	d.ProcessInPlace(buf)
	for i := range buf {
		if buf[i] != want[i] {
			t.Fatalf("sample %d changed while disabled", i)
		}
	}
}

func TestDistortionHardClipSaturatesMostSamples(t *testing.T) {
	d, err := NewDistortion(44100,
		WithDistortionMode(DistortionHard),
		WithDistortionDrive(20),
		WithDistortionTone(1))
	if err != nil {
		t.Fatalf("NewDistortion() error = %v", err)
	}
	d.SetEnabled(true)

	buf := make([]float64, 4096)
	for i := range buf {
		buf[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 44100)
	}
	d.ProcessInPlace(buf)

	saturated := 0
	for _, s := range buf {
		if math.Abs(s) > 0.9 {
			saturated++
		}
	}
	if ratio := float64(saturated) / float64(len(buf)); ratio < 0.3 {
		t.Fatalf("only %.0f%% of samples saturated, want over 30%%", ratio*100)
	}
}

func TestDistortionSoftClipIsBounded(t *testing.T) {
	d, err := NewDistortion(44100, WithDistortionDrive(20), WithDistortionTone(1))
	if err != nil {
		t.Fatalf("NewDistortion() error = %v", err)
	}
	d.SetEnabled(true)

	buf := make([]float64, 4096)
	for i := range buf {
		buf[i] = 2 * math.Sin(2*math.Pi*100*float64(i)/44100)
	}
	d.ProcessInPlace(buf)
	for i, s := range buf {
		// Waveshaping stays inside [-1, 1]; the DC blocker overshoots
		// on the near-square edges by up to roughly half the step.
		if math.Abs(s) > 1.6 {
			t.Fatalf("sample %f at %d exceeds soft clip bound", s, i)
		}
	}
}

func TestDistortionModesDiffer(t *testing.T) {
	process := func(mode DistortionMode) []float64 {
		d, err := NewDistortion(44100, WithDistortionMode(mode), WithDistortionDrive(5))
		if err != nil {
			t.Fatalf("NewDistortion() error = %v", err)
		}
		d.SetEnabled(true)
		buf := make([]float64, 1024)
		for i := range buf {
			buf[i] = 0.8 * math.Sin(2*math.Pi*220*float64(i)/44100)
		}
		d.ProcessInPlace(buf)
		return buf
	}

	soft := process(DistortionSoft)
	hard := process(DistortionHard)
	tube := process(DistortionTube)

	diff := func(a, b []float64) float64 {
		total := 0.0
		for i := range a {
			total += math.Abs(a[i] - b[i])
		}
		return total
	}
	if diff(soft, hard) < 1 {
		t.Error("soft and hard modes produced nearly identical output")
	}
	if diff(soft, tube) < 1 {
		t.Error("soft and tube modes produced nearly identical output")
	}
}

func TestDistortionToneDarkensSignal(t *testing.T) {
	process := func(tone float64) float64 {
		d, err := NewDistortion(44100, WithDistortionTone(tone), WithDistortionDrive(5))
		if err != nil {
			t.Fatalf("NewDistortion() error = %v", err)
		}
		d.SetEnabled(true)
		buf := make([]float64, 4096)
		for i := range buf {
			buf[i] = 0.8 * math.Sin(2*math.Pi*5000*float64(i)/44100)
		}
		d.ProcessInPlace(buf)
		rms := 0.0
		for _, s := range buf[1024:] {
			rms += s * s
		}
		return math.Sqrt(rms / float64(len(buf)-1024))
	}

	bright := process(1.0)
	dark := process(0.0)
	if dark >= bright {
		t.Fatalf("tone=0 rms %f should be below tone=1 rms %f at 5 kHz", dark, bright)
	}
}

func TestDistortionSettersClampSilently(t *testing.T) {
	d, err := NewDistortion(44100)
	if err != nil {
		t.Fatalf("NewDistortion() error = %v", err)
	}
	d.SetDrive(100)
	if got := d.Drive(); got != maxDistortionDrive {
		t.Errorf("Drive() = %f, want %f", got, maxDistortionDrive)
	}
	d.SetDrive(0)
	if got := d.Drive(); got != minDistortionDrive {
		t.Errorf("Drive() = %f, want %f", got, minDistortionDrive)
	}
	d.SetMode(DistortionMode(42))
	if got := d.Mode(); got != DistortionSoft {
		t.Errorf("Mode() = %v after invalid set, want soft", got)
	}
	d.SetMix(math.NaN())
	if got := d.Mix(); got != defaultDistortionMix {
		t.Errorf("Mix() = %f after NaN, want %f", got, defaultDistortionMix)
	}
}

func BenchmarkDistortionProcessInPlace(b *testing.B) {
	d, err := NewDistortion(44100, WithDistortionMode(DistortionTube))
	if err != nil {
		b.Fatalf("NewDistortion() error = %v", err)
	}
	d.SetEnabled(true)
	buf := make([]float64, 512)
	for i := range buf {
		buf[i] = math.Sin(float64(i) * 0.05)
	}
	b.ResetTimer()
	for range b.N {
		d.ProcessInPlace(buf)
	}
}
