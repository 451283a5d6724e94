// Package lfo implements a low-frequency oscillator for parameter
// modulation. Waveforms are generated naively; at sub-audio rates there is
// nothing to bandlimit.
package lfo

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-synth/synth/osc"
)

const (
	defaultRateHz = 5.0
	defaultDepth  = 0.5

	minRateHz = 0.1
	maxRateHz = 50.0

	// pulseDuty is the duty cycle of the pulse shape. A 25% pulse gives a
	// more useful modulation contour than a plain square.
	pulseDuty = 0.25
)

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	waveform osc.Waveform
	rate     float64
	depth    float64
}

func defaultConfig() config {
	return config{
		waveform: osc.WaveformSine,
		rate:     defaultRateHz,
		depth:    defaultDepth,
	}
}

// WithWaveform selects the modulation shape.
func WithWaveform(waveform osc.Waveform) Option {
	return func(cfg *config) error {
		if _, err := osc.ParseWaveform(waveform.String()); err != nil {
			return fmt.Errorf("lfo: invalid waveform: %d", waveform)
		}

		cfg.waveform = waveform

		return nil
	}
}

// WithRateHz sets the rate in [0.1, 50] Hz.
func WithRateHz(rateHz float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(rateHz, minRateHz, maxRateHz, "rate"); err != nil {
			return err
		}

		cfg.rate = rateHz

		return nil
	}
}

// WithDepth sets the modulation depth in [0, 1].
func WithDepth(depth float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(depth, 0, 1, "depth"); err != nil {
			return err
		}

		cfg.depth = depth

		return nil
	}
}

// LFO is a phase-accumulation modulation source.
//
// Bipolar output spans [-depth, +depth]; the unipolar variants remap it to
// [0, depth] for destinations like filter cutoff.
type LFO struct {
	sampleRate float64

	waveform osc.Waveform
	rate     float64
	depth    float64

	phase float64
}

// New constructs an LFO.
func New(sampleRate float64, opts ...Option) (*LFO, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("lfo: sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &LFO{
		sampleRate: sampleRate,
		waveform:   cfg.waveform,
		rate:       cfg.rate,
		depth:      cfg.depth,
	}, nil
}

// SampleRate returns the sample rate in Hz.
func (l *LFO) SampleRate() float64 { return l.sampleRate }

// Waveform returns the modulation shape.
func (l *LFO) Waveform() osc.Waveform { return l.waveform }

// RateHz returns the rate in Hz.
func (l *LFO) RateHz() float64 { return l.rate }

// Depth returns the modulation depth.
func (l *LFO) Depth() float64 { return l.depth }

// Phase returns the current phase in [0, 1).
func (l *LFO) Phase() float64 { return l.phase }

// SetWaveform switches the modulation shape. Invalid values are ignored.
func (l *LFO) SetWaveform(waveform osc.Waveform) {
	if waveform >= osc.WaveformSine && waveform <= osc.WaveformPulse {
		l.waveform = waveform
	}
}

// SetRateHz sets the rate, clamped to [0.1, 50] Hz.
func (l *LFO) SetRateHz(rateHz float64) {
	if !isFinite(rateHz) {
		return
	}

	l.rate = clamp(rateHz, minRateHz, maxRateHz)
}

// SetDepth sets the modulation depth, clamped to [0, 1].
func (l *LFO) SetDepth(depth float64) {
	if !isFinite(depth) {
		return
	}

	l.depth = clamp(depth, 0, 1)
}

// ResetPhase rewinds the phase to zero, synchronizing the LFO with a note
// event.
func (l *LFO) ResetPhase() {
	l.phase = 0
}

// ProcessSample advances the LFO and returns one bipolar sample in
// [-depth, +depth].
func (l *LFO) ProcessSample() float64 {
	v := l.shapeAt(l.phase)

	l.phase += l.rate / l.sampleRate
	if l.phase >= 1 {
		l.phase -= math.Floor(l.phase)
	}

	return v * l.depth
}

// ProcessSampleUnipolar advances the LFO and returns one sample remapped
// to [0, depth].
func (l *LFO) ProcessSampleUnipolar() float64 {
	return (l.ProcessSample() + l.depth) * 0.5
}

// Generate fills dst with bipolar modulation samples.
func (l *LFO) Generate(dst []float64) {
	for i := range dst {
		dst[i] = l.ProcessSample()
	}
}

// GenerateUnipolar fills dst with unipolar modulation samples.
func (l *LFO) GenerateUnipolar(dst []float64) {
	for i := range dst {
		dst[i] = l.ProcessSampleUnipolar()
	}
}

func (l *LFO) shapeAt(phase float64) float64 {
	switch l.waveform {
	case osc.WaveformSine:
		return math.Sin(2 * math.Pi * phase)
	case osc.WaveformSawtooth:
		return 2*phase - 1
	case osc.WaveformSquare:
		if phase < 0.5 {
			return 1
		}

		return -1
	case osc.WaveformTriangle:
		return 4*math.Abs(phase-0.5) - 1
	case osc.WaveformPulse:
		if phase < pulseDuty {
			return 1
		}

		return -1
	default:
		return 0
	}
}

func validateFiniteRange(value, min, max float64, name string) error {
	if !isFinite(value) {
		return fmt.Errorf("lfo: %s must be finite: %v", name, value)
	}

	if value < min || value > max {
		return fmt.Errorf("lfo: %s must be in [%g, %g]: %f", name, min, max, value)
	}

	return nil
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}

	if x > hi {
		return hi
	}

	return x
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
