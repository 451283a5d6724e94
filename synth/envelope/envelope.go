// Package envelope implements an ADSR envelope generator with a linear
// attack ramp and exponential decay/release segments.
package envelope

import (
	"fmt"
	"math"
)

const (
	defaultAttackSeconds  = 0.01
	defaultDecaySeconds   = 0.1
	defaultSustainLevel   = 0.7
	defaultReleaseSeconds = 0.3

	minTimeSeconds = 0.001
	maxTimeSeconds = 10.0

	// expSharpness controls how fast the exponential segments approach
	// their targets; 5 time constants reach ~99.3% of the distance within
	// the nominal segment time.
	expSharpness = 5.0

	// settleThreshold is the distance from the segment target at which the
	// envelope snaps to it and advances.
	settleThreshold = 0.001
)

// Stage identifies the current envelope segment.
type Stage int

const (
	// StageIdle outputs zero and waits for a gate.
	StageIdle Stage = iota
	// StageAttack ramps linearly toward 1.
	StageAttack
	// StageDecay falls exponentially toward the sustain level.
	StageDecay
	// StageSustain holds the sustain level while the gate is high.
	StageSustain
	// StageRelease falls exponentially toward zero.
	StageRelease
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	attack  float64
	decay   float64
	sustain float64
	release float64
}

func defaultConfig() config {
	return config{
		attack:  defaultAttackSeconds,
		decay:   defaultDecaySeconds,
		sustain: defaultSustainLevel,
		release: defaultReleaseSeconds,
	}
}

// WithAttack sets the attack time in [0.001, 10] seconds.
func WithAttack(seconds float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(seconds, minTimeSeconds, maxTimeSeconds, "attack"); err != nil {
			return err
		}

		cfg.attack = seconds

		return nil
	}
}

// WithDecay sets the decay time in [0.001, 10] seconds.
func WithDecay(seconds float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(seconds, minTimeSeconds, maxTimeSeconds, "decay"); err != nil {
			return err
		}

		cfg.decay = seconds

		return nil
	}
}

// WithSustain sets the sustain level in [0, 1].
func WithSustain(level float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(level, 0, 1, "sustain"); err != nil {
			return err
		}

		cfg.sustain = level

		return nil
	}
}

// WithRelease sets the release time in [0.001, 10] seconds.
func WithRelease(seconds float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(seconds, minTimeSeconds, maxTimeSeconds, "release"); err != nil {
			return err
		}

		cfg.release = seconds

		return nil
	}
}

// ADSR is a four-segment envelope generator.
//
// GateOn restarts the attack from the current value rather than from zero,
// so retriggering a sounding note stays click-free (legato retrigger).
type ADSR struct {
	sampleRate float64

	attack  float64
	decay   float64
	sustain float64
	release float64

	attackInc   float64
	decayCoef   float64
	releaseCoef float64

	stage Stage
	value float64
}

// New constructs an ADSR envelope.
func New(sampleRate float64, opts ...Option) (*ADSR, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("envelope: sample rate must be > 0 and finite: %f", sampleRate)
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

	e := &ADSR{
		sampleRate: sampleRate,
		attack:     cfg.attack,
		decay:      cfg.decay,
		sustain:    cfg.sustain,
		release:    cfg.release,
	}
	e.updateCoefficients()

	return e, nil
}

// SampleRate returns the sample rate in Hz.
func (e *ADSR) SampleRate() float64 { return e.sampleRate }

// Stage returns the current envelope segment.
func (e *ADSR) Stage() Stage { return e.stage }

// Value returns the current envelope output in [0, 1].
func (e *ADSR) Value() float64 { return e.value }

// Attack returns the attack time in seconds.
func (e *ADSR) Attack() float64 { return e.attack }

// Decay returns the decay time in seconds.
func (e *ADSR) Decay() float64 { return e.decay }

// Sustain returns the sustain level.
func (e *ADSR) Sustain() float64 { return e.sustain }

// Release returns the release time in seconds.
func (e *ADSR) Release() float64 { return e.release }

// SetAttack sets the attack time, clamped to [0.001, 10] seconds.
func (e *ADSR) SetAttack(seconds float64) {
	if !isFinite(seconds) {
		return
	}

	e.attack = clamp(seconds, minTimeSeconds, maxTimeSeconds)
	e.updateCoefficients()
}

// SetDecay sets the decay time, clamped to [0.001, 10] seconds.
func (e *ADSR) SetDecay(seconds float64) {
	if !isFinite(seconds) {
		return
	}

	e.decay = clamp(seconds, minTimeSeconds, maxTimeSeconds)
	e.updateCoefficients()
}

// SetSustain sets the sustain level, clamped to [0, 1].
func (e *ADSR) SetSustain(level float64) {
	if !isFinite(level) {
		return
	}

	e.sustain = clamp(level, 0, 1)
}

// SetRelease sets the release time, clamped to [0.001, 10] seconds.
func (e *ADSR) SetRelease(seconds float64) {
	if !isFinite(seconds) {
		return
	}

	e.release = clamp(seconds, minTimeSeconds, maxTimeSeconds)
	e.updateCoefficients()
}

// GateOn starts the attack segment. The current value is kept so a
// retrigger during decay or release continues from where it was.
func (e *ADSR) GateOn() {
	e.stage = StageAttack
}

// GateOff starts the release segment. Ignored while idle.
func (e *ADSR) GateOff() {
	if e.stage != StageIdle {
		e.stage = StageRelease
	}
}

// Reset forces the envelope back to idle with zero output.
func (e *ADSR) Reset() {
	e.stage = StageIdle
	e.value = 0
}

// IsActive reports whether the envelope produces non-zero output.
func (e *ADSR) IsActive() bool {
	return e.stage != StageIdle
}

// IsReleasing reports whether the envelope is in its release segment.
func (e *ADSR) IsReleasing() bool {
	return e.stage == StageRelease
}

// ProcessSample advances the envelope by one sample and returns its value.
func (e *ADSR) ProcessSample() float64 {
	switch e.stage {
	case StageIdle:
		e.value = 0

	case StageAttack:
		e.value += e.attackInc
		if e.value >= 1 {
			e.value = 1
			e.stage = StageDecay
		}

	case StageDecay:
		e.value = e.sustain + (e.value-e.sustain)*e.decayCoef
		if math.Abs(e.value-e.sustain) < settleThreshold {
			e.value = e.sustain
			e.stage = StageSustain
		}

	case StageSustain:
		e.value = e.sustain

	case StageRelease:
		e.value *= e.releaseCoef
		if e.value < settleThreshold {
			e.value = 0
			e.stage = StageIdle
		}
	}

	return e.value
}

// Generate fills dst with exactly len(dst) envelope samples.
func (e *ADSR) Generate(dst []float64) {
	for i := range dst {
		dst[i] = e.ProcessSample()
	}
}

func (e *ADSR) updateCoefficients() {
	e.attackInc = 1 / (e.attack * e.sampleRate)

	decaySamples := e.decay * e.sampleRate
	releaseSamples := e.release * e.sampleRate

	e.decayCoef = math.Exp(-expSharpness / math.Max(1, decaySamples))
	e.releaseCoef = math.Exp(-expSharpness / math.Max(1, releaseSamples))
}

func validateFiniteRange(value, min, max float64, name string) error {
	if !isFinite(value) {
		return fmt.Errorf("envelope: %s must be finite: %v", name, value)
	}

	if value < min || value > max {
		return fmt.Errorf("envelope: %s must be in [%g, %g]: %f", name, min, max, value)
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
