package analyze

import (
	"math"
	"testing"
)

func TestNewAnalyzerValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("New(0) expected error")
	}
	if _, err := New(math.NaN()); err == nil {
		t.Fatal("New(NaN) expected error")
	}
	if _, err := New(44100, WithFFTSize(1000)); err == nil {
		t.Fatal("non power of two fft size expected error")
	}
	if _, err := New(44100, WithFFTSize(128)); err == nil {
		t.Fatal("fft size below range expected error")
	}
	if _, err := New(44100, WithWindow(Window(99))); err == nil {
		t.Fatal("invalid window expected error")
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    Window
		wantErr bool
	}{
		{"hann", WindowHann, false},
		{" Hamming ", WindowHamming, false},
		{"BLACKMAN", WindowBlackman, false},
		{"kaiser", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWindow(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWindow(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseWindow(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func binCenteredSine(sampleRate float64, fftSize, bin int, amplitude float64) []float64 {
	out := make([]float64, fftSize)
	freq := float64(bin) * sampleRate / float64(fftSize)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

func TestSpectrumSinePeak(t *testing.T) {
	const (
		sampleRate = 44100.0
		fftSize    = 2048
		bin        = 100
	)
	a, err := New(sampleRate, WithFFTSize(fftSize))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	spec := a.Spectrum(nil, binCenteredSine(sampleRate, fftSize, bin, 0.5))
	if len(spec) != fftSize/2+1 {
		t.Fatalf("len(spectrum) = %d, want %d", len(spec), fftSize/2+1)
	}

	peak, mag := a.PeakBin(spec)
	if peak != bin {
		t.Errorf("peak bin = %d, want %d", peak, bin)
	}
	if math.Abs(mag-0.5) > 0.01 {
		t.Errorf("peak magnitude = %f, want 0.5", mag)
	}

	// Bins away from the tone should be deep below the peak.
	if spec[bin/2] > 0.01 {
		t.Errorf("off-tone bin magnitude = %f, want near zero", spec[bin/2])
	}
}

func TestSpectrumDBFullScaleSine(t *testing.T) {
	const (
		sampleRate = 48000.0
		fftSize    = 1024
		bin        = 64
	)
	a, err := New(sampleRate, WithFFTSize(fftSize), WithWindow(WindowBlackman))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	db := a.SpectrumDB(nil, binCenteredSine(sampleRate, fftSize, bin, 1.0))
	if math.Abs(db[bin]) > 0.2 {
		t.Errorf("full-scale sine bin = %f dB, want about 0", db[bin])
	}
	if db[bin/4] > -60 {
		t.Errorf("off-tone bin = %f dB, want below -60", db[bin/4])
	}
}

func TestSpectrumSilenceFloors(t *testing.T) {
	a, err := New(44100, WithFFTSize(512))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	db := a.SpectrumDB(nil, make([]float64, 512))
	for k, v := range db {
		if v != -130 {
			t.Fatalf("silence bin %d = %f dB, want -130", k, v)
		}
	}
}

func TestSpectrumZeroPadsShortInput(t *testing.T) {
	a, err := New(44100, WithFFTSize(1024))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	short := binCenteredSine(44100, 1024, 32, 1.0)[:256]
	spec := a.Spectrum(nil, short)
	peak, mag := a.PeakBin(spec)
	if peak != 32 {
		t.Errorf("peak bin = %d, want 32", peak)
	}
	if mag <= 0 {
		t.Error("zero-padded input should still show the tone")
	}
}

func TestPeakFrequency(t *testing.T) {
	const sampleRate = 44100.0
	a, err := New(sampleRate, WithFFTSize(4096))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	signal := make([]float64, 4096)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 440 * float64(i) / sampleRate)
	}
	got := a.PeakFrequency(signal)
	binWidth := sampleRate / 4096
	if math.Abs(got-440) > binWidth {
		t.Errorf("PeakFrequency() = %f Hz, want 440 within one bin (%f Hz)", got, binWidth)
	}
}

func TestSpectrumReusesDst(t *testing.T) {
	a, err := New(44100, WithFFTSize(512))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	dst := make([]float64, a.Bins())
	got := a.Spectrum(dst, binCenteredSine(44100, 512, 10, 1.0))
	if &got[0] != &dst[0] {
		t.Error("Spectrum should fill the provided slice")
	}
}

func BenchmarkSpectrum(b *testing.B) {
	a, err := New(44100, WithFFTSize(2048))
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}
	signal := binCenteredSine(44100, 2048, 100, 0.7)
	dst := make([]float64, a.Bins())
	b.ResetTimer()
	for range b.N {
		a.Spectrum(dst, signal)
	}
}
