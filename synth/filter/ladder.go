// Package filter implements the 4-pole resonant lowpass ladder used in the
// synthesizer voice path.
//
// The topology is a TPT (topology-preserving transform) ladder in the
// Zavalishin style: four trapezoidal one-pole stages with tanh-saturated
// global feedback, pre-warped so the cutoff lands where the analog
// prototype puts it.
package filter

import (
	"fmt"
	"math"
)

const (
	defaultCutoffHz  = 1000.0
	defaultResonance = 0.0

	minCutoffHz  = 20.0
	maxResonance = 1.0

	// maxCutoffRatio keeps the pre-warped cutoff away from Nyquist where
	// tan(π·f/fs) blows up.
	maxCutoffRatio = 0.9

	// cutoffModOctaves is the full-scale sweep of the modulation input: a
	// cutoff_mod of 1 shifts the cutoff up four octaves.
	cutoffModOctaves = 4.0
)

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	cutoffHz  float64
	resonance float64
}

func defaultConfig() config {
	return config{
		cutoffHz:  defaultCutoffHz,
		resonance: defaultResonance,
	}
}

// WithCutoffHz sets the cutoff frequency. Must be finite and >= 20 Hz;
// the upper bound (90% of Nyquist) is checked against the sample rate at
// construction.
func WithCutoffHz(cutoffHz float64) Option {
	return func(cfg *config) error {
		if !isFinite(cutoffHz) || cutoffHz < minCutoffHz {
			return fmt.Errorf("filter: cutoff must be finite and >= %g Hz: %f", minCutoffHz, cutoffHz)
		}

		cfg.cutoffHz = cutoffHz

		return nil
	}
}

// WithResonance sets feedback resonance in [0, 1].
func WithResonance(resonance float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(resonance, 0, maxResonance, "resonance"); err != nil {
			return err
		}

		cfg.resonance = resonance

		return nil
	}
}

// Ladder is a 4-pole (24 dB/octave) resonant lowpass filter.
//
// Construction validates its configuration; the Set methods clamp silently
// so modulation sources can write without error handling on the audio
// thread.
type Ladder struct {
	sampleRate float64
	nyquist    float64

	cutoffHz  float64
	resonance float64
	cutoffMod float64

	g float64
	k float64

	stage [4]float64
}

// New constructs a ladder filter.
func New(sampleRate float64, opts ...Option) (*Ladder, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("filter: sample rate must be > 0 and finite: %f", sampleRate)
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

	maxCutoff := sampleRate * 0.5 * maxCutoffRatio
	if cfg.cutoffHz > maxCutoff {
		return nil, fmt.Errorf("filter: cutoff must be <= %g Hz at this sample rate: %f", maxCutoff, cfg.cutoffHz)
	}

	f := &Ladder{
		sampleRate: sampleRate,
		nyquist:    sampleRate * 0.5,
		cutoffHz:   cfg.cutoffHz,
		resonance:  cfg.resonance,
	}
	f.updateCoefficients()

	return f, nil
}

// SampleRate returns the sample rate in Hz.
func (f *Ladder) SampleRate() float64 { return f.sampleRate }

// CutoffHz returns the unmodulated cutoff frequency in Hz.
func (f *Ladder) CutoffHz() float64 { return f.cutoffHz }

// Resonance returns the resonance amount.
func (f *Ladder) Resonance() float64 { return f.resonance }

// CutoffMod returns the modulation input.
func (f *Ladder) CutoffMod() float64 { return f.cutoffMod }

// SetCutoffHz sets the cutoff, clamped to [20 Hz, 0.9·Nyquist].
func (f *Ladder) SetCutoffHz(cutoffHz float64) {
	if !isFinite(cutoffHz) {
		return
	}

	f.cutoffHz = clamp(cutoffHz, minCutoffHz, f.nyquist*maxCutoffRatio)
	f.updateCoefficients()
}

// SetResonance sets the resonance, clamped to [0, 1].
func (f *Ladder) SetResonance(resonance float64) {
	if !isFinite(resonance) {
		return
	}

	f.resonance = clamp(resonance, 0, maxResonance)
	f.updateCoefficients()
}

// SetCutoffMod sets the modulation input. A value of 1 raises the
// effective cutoff by four octaves, -1 lowers it by four.
func (f *Ladder) SetCutoffMod(amount float64) {
	if !isFinite(amount) {
		return
	}

	f.cutoffMod = amount
	f.updateCoefficients()
}

// EffectiveCutoffHz returns the cutoff including modulation, clamped to
// the usable range.
func (f *Ladder) EffectiveCutoffHz() float64 {
	modulated := f.cutoffHz * math.Pow(2, f.cutoffMod*cutoffModOctaves)
	return clamp(modulated, minCutoffHz, f.nyquist*maxCutoffRatio)
}

// Reset clears the four stage states.
func (f *Ladder) Reset() {
	f.stage = [4]float64{}
}

// ProcessSample filters one sample.
func (f *Ladder) ProcessSample(input float64) float64 {
	if !isFinite(input) {
		input = 0
	}

	// Saturated global feedback from the last stage.
	u := input - f.k*fastTanhApprox(f.stage[3])
	u = fastTanhApprox(u)

	g := f.g

	v0 := g * (u - f.stage[0])
	lp0 := v0 + f.stage[0]
	f.stage[0] = lp0 + v0

	v1 := g * (lp0 - f.stage[1])
	lp1 := v1 + f.stage[1]
	f.stage[1] = lp1 + v1

	v2 := g * (lp1 - f.stage[2])
	lp2 := v2 + f.stage[2]
	f.stage[2] = lp2 + v2

	v3 := g * (lp2 - f.stage[3])
	lp3 := v3 + f.stage[3]
	f.stage[3] = lp3 + v3

	return sanitizeOutput(lp3)
}

// ProcessInPlace filters a mono buffer in place.
func (f *Ladder) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = f.ProcessSample(buf[i])
	}
}

// ProcessTo filters src into dst. Both slices must have the same length.
func (f *Ladder) ProcessTo(dst, src []float64) {
	n := len(src)
	if n == 0 {
		return
	}

	_ = dst[n-1]
	for i, x := range src {
		dst[i] = f.ProcessSample(x)
	}
}

// FrequencyResponse writes the linear magnitude response at each frequency
// in freqs into dst. Both slices must have the same length. Intended for
// display curves, so the resonance peak is an approximation rather than
// the exact closed-loop response.
func (f *Ladder) FrequencyResponse(dst, freqs []float64) {
	n := len(freqs)
	if n == 0 {
		return
	}

	_ = dst[n-1]

	g := f.g
	fc := f.EffectiveCutoffHz()
	peakWidth := fc * 0.5

	for i, freq := range freqs {
		w := freq / f.sampleRate
		cosW := math.Cos(2 * math.Pi * w)

		onePole := g / math.Sqrt(g*g+(1-g)*(1-g)-2*g*(1-g)*cosW+1e-10)
		mag := onePole * onePole * onePole * onePole

		if f.resonance > 0 {
			d := (freq - fc) / peakWidth
			mag *= 1 + f.resonance*3*math.Exp(-0.5*d*d)
		}

		dst[i] = mag
	}
}

func (f *Ladder) updateCoefficients() {
	fc := f.EffectiveCutoffHz()
	fn := fc / f.sampleRate

	// Tustin pre-warp keeps the digital cutoff aligned with the analog one.
	wd := 2 * f.sampleRate * math.Tan(math.Pi*fn)
	f.g = wd / (2*f.sampleRate + wd)

	f.k = 4 * f.resonance
}

func validateFiniteRange(value, min, max float64, name string) error {
	if !isFinite(value) {
		return fmt.Errorf("filter: %s must be finite: %v", name, value)
	}

	if value < min || value > max {
		return fmt.Errorf("filter: %s must be in [%g, %g]: %f", name, min, max, value)
	}

	return nil
}

func sanitizeOutput(value float64) float64 {
	if !isFinite(value) {
		return 0
	}

	return value
}

func fastTanhApprox(x float64) float64 {
	if x > 3 {
		return 1
	}

	if x < -3 {
		return -1
	}

	x2 := x * x

	return clamp(x*(27+x2)/(27+9*x2), -1, 1)
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
