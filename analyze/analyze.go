// Package analyze computes magnitude spectra of rendered audio for
// scope and response displays. It is an offline helper and is not safe
// to call from the audio thread.
package analyze

import (
	"fmt"
	"math"
	"strings"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultFFTSize = 2048
	minDB          = -130.0
	magnitudeEps   = 1e-12
)

// Window selects the analysis window applied before the FFT.
type Window int

const (
	// WindowHann is the default analysis window.
	WindowHann Window = iota
	// WindowHamming trades sidelobe rejection for a narrower main lobe.
	WindowHamming
	// WindowBlackman has the strongest sidelobe rejection of the three.
	WindowBlackman
)

// String returns the window name.
func (w Window) String() string {
	switch w {
	case WindowHann:
		return "hann"
	case WindowHamming:
		return "hamming"
	case WindowBlackman:
		return "blackman"
	default:
		return "unknown"
	}
}

// ParseWindow converts a window name to a Window value.
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hann":
		return WindowHann, nil
	case "hamming":
		return WindowHamming, nil
	case "blackman":
		return WindowBlackman, nil
	default:
		return 0, fmt.Errorf("analyze: unknown window: %q", s)
	}
}

// Option configures an Analyzer.
type Option func(*config) error

type config struct {
	fftSize int
	window  Window
}

func defaultConfig() config {
	return config{
		fftSize: defaultFFTSize,
		window:  WindowHann,
	}
}

// WithFFTSize sets the transform length. It must be a power of two in
// [256, 16384].
func WithFFTSize(n int) Option {
	return func(cfg *config) error {
		if n < 256 || n > 16384 || n&(n-1) != 0 {
			return fmt.Errorf("analyze: fft size must be a power of two in [256, 16384]: %d", n)
		}
		cfg.fftSize = n
		return nil
	}
}

// WithWindow sets the analysis window.
func WithWindow(w Window) Option {
	return func(cfg *config) error {
		switch w {
		case WindowHann, WindowHamming, WindowBlackman:
			cfg.window = w
			return nil
		default:
			return fmt.Errorf("analyze: invalid window: %d", w)
		}
	}
}

// Analyzer turns blocks of samples into normalized magnitude spectra.
// A full-scale sine centered on a bin reads 1.0 linear (0 dBFS).
type Analyzer struct {
	sampleRate float64
	fftSize    int
	window     []float64
	windowSum  float64

	plan   *algofft.Plan[complex128]
	input  []complex128
	output []complex128
	re     []float64
	im     []float64
}

// New creates an analyzer for the given sample rate.
func New(sampleRate float64, opts ...Option) (*Analyzer, error) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return nil, fmt.Errorf("analyze: sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	plan, err := algofft.NewPlan64(cfg.fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyze: fft plan: %w", err)
	}

	win, sum := makeWindow(cfg.window, cfg.fftSize)
	bins := cfg.fftSize/2 + 1

	return &Analyzer{
		sampleRate: sampleRate,
		fftSize:    cfg.fftSize,
		window:     win,
		windowSum:  sum,
		plan:       plan,
		input:      make([]complex128, cfg.fftSize),
		output:     make([]complex128, cfg.fftSize),
		re:         make([]float64, bins),
		im:         make([]float64, bins),
	}, nil
}

// FFTSize returns the transform length.
func (a *Analyzer) FFTSize() int { return a.fftSize }

// Bins returns the number of spectrum bins, fftSize/2+1.
func (a *Analyzer) Bins() int { return a.fftSize/2 + 1 }

// BinFrequency returns the center frequency of bin k in Hz.
func (a *Analyzer) BinFrequency(k int) float64 {
	return float64(k) * a.sampleRate / float64(a.fftSize)
}

// Spectrum computes the single-sided linear magnitude spectrum of
// samples into dst and returns it. Input shorter than the FFT size is
// zero padded, longer input is truncated. When dst is too small a new
// slice is allocated.
func (a *Analyzer) Spectrum(dst, samples []float64) []float64 {
	n := len(samples)
	if n > a.fftSize {
		n = a.fftSize
	}
	for i := 0; i < n; i++ {
		a.input[i] = complex(samples[i]*a.window[i], 0)
	}
	for i := n; i < a.fftSize; i++ {
		a.input[i] = 0
	}

	bins := a.Bins()
	if cap(dst) < bins {
		dst = make([]float64, bins)
	}
	dst = dst[:bins]

	if err := a.plan.Forward(a.output, a.input); err != nil {
		for i := range dst {
			dst[i] = 0
		}
		return dst
	}

	for k := 0; k < bins; k++ {
		a.re[k] = real(a.output[k])
		a.im[k] = imag(a.output[k])
	}
	vecmath.Magnitude(dst, a.re, a.im)

	// Coherent-gain normalization with single-sided doubling so a
	// unit-amplitude bin-centered sine reads 1.0.
	last := bins - 1
	norm := math.Max(a.windowSum, magnitudeEps)
	for k := range dst {
		dst[k] /= norm
		if k > 0 && k < last {
			dst[k] *= 2
		}
	}
	return dst
}

// SpectrumDB computes the spectrum in dBFS, floored at -130 dB.
func (a *Analyzer) SpectrumDB(dst, samples []float64) []float64 {
	dst = a.Spectrum(dst, samples)
	for k, m := range dst {
		db := 20 * math.Log10(math.Max(magnitudeEps, m))
		if db < minDB {
			db = minDB
		}
		dst[k] = db
	}
	return dst
}

// PeakBin returns the bin with the largest magnitude and its value.
func (a *Analyzer) PeakBin(spectrum []float64) (bin int, magnitude float64) {
	for k, m := range spectrum {
		if m > magnitude {
			magnitude = m
			bin = k
		}
	}
	return bin, magnitude
}

// PeakFrequency returns the frequency of the strongest component of
// samples in Hz.
func (a *Analyzer) PeakFrequency(samples []float64) float64 {
	spec := a.Spectrum(nil, samples)
	bin, _ := a.PeakBin(spec)
	return a.BinFrequency(bin)
}

// makeWindow builds a periodic analysis window and its coefficient sum.
func makeWindow(w Window, n int) ([]float64, float64) {
	win := make([]float64, n)
	sum := 0.0
	for i := range win {
		x := 2 * math.Pi * float64(i) / float64(n)
		var v float64
		switch w {
		case WindowHamming:
			v = 0.54 - 0.46*math.Cos(x)
		case WindowBlackman:
			v = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
		default:
			v = 0.5 * (1 - math.Cos(x))
		}
		win[i] = v
		sum += v
	}
	return win, sum
}
