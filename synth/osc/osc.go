// Package osc implements bandlimited wavetable-free oscillators for the
// synthesizer voice path.
//
// Sawtooth, square, and pulse waveforms apply PolyBLEP corrections at their
// step discontinuities; sine and triangle are generated naively (triangle's
// harmonics fall off fast enough that aliasing stays inaudible at musical
// frequencies).
package osc

import (
	"fmt"
	"math"
)

const (
	defaultFrequencyHz = 440.0
	defaultLevel       = 1.0
	defaultPulseWidth  = 0.5

	minFrequencyHz = 20.0
	maxFrequencyHz = 20000.0
	minPulseWidth  = 0.05
	maxPulseWidth  = 0.95
	maxPWMod       = 0.45

	referenceFrequencyHz = 440.0
	referenceMIDINote    = 69
)

// Waveform selects the generated wave shape.
type Waveform int

const (
	// WaveformSine is a pure tone with no harmonics.
	WaveformSine Waveform = iota
	// WaveformSawtooth rises linearly from -1 to +1; PolyBLEP corrected.
	WaveformSawtooth
	// WaveformSquare is a 50% duty square; PolyBLEP corrected at both edges.
	WaveformSquare
	// WaveformTriangle rises and falls linearly; naturally bandlimited.
	WaveformTriangle
	// WaveformPulse is a variable-duty square; PolyBLEP corrected at both edges.
	WaveformPulse
)

func (w Waveform) String() string {
	switch w {
	case WaveformSine:
		return "sine"
	case WaveformSawtooth:
		return "sawtooth"
	case WaveformSquare:
		return "square"
	case WaveformTriangle:
		return "triangle"
	case WaveformPulse:
		return "pulse"
	default:
		return "unknown"
	}
}

// ParseWaveform maps a control-surface name to a Waveform.
func ParseWaveform(name string) (Waveform, error) {
	switch name {
	case "sine":
		return WaveformSine, nil
	case "sawtooth":
		return WaveformSawtooth, nil
	case "square":
		return WaveformSquare, nil
	case "triangle":
		return WaveformTriangle, nil
	case "pulse":
		return WaveformPulse, nil
	default:
		return 0, fmt.Errorf("osc: unknown waveform: %q", name)
	}
}

// MIDIToFrequency converts a MIDI note number to its equal-tempered
// frequency in Hz, with A4 = 440 Hz at note 69.
func MIDIToFrequency(note int) float64 {
	return referenceFrequencyHz * math.Pow(2, float64(note-referenceMIDINote)/12)
}

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	waveform   Waveform
	frequency  float64
	level      float64
	pulseWidth float64
}

func defaultConfig() config {
	return config{
		waveform:   WaveformSine,
		frequency:  defaultFrequencyHz,
		level:      defaultLevel,
		pulseWidth: defaultPulseWidth,
	}
}

// WithWaveform selects the initial waveform.
func WithWaveform(waveform Waveform) Option {
	return func(cfg *config) error {
		if !validWaveform(waveform) {
			return fmt.Errorf("osc: invalid waveform: %d", waveform)
		}

		cfg.waveform = waveform

		return nil
	}
}

// WithFrequencyHz sets the base frequency in [20, 20000] Hz.
func WithFrequencyHz(frequencyHz float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(frequencyHz, minFrequencyHz, maxFrequencyHz, "frequency"); err != nil {
			return err
		}

		cfg.frequency = frequencyHz

		return nil
	}
}

// WithLevel sets the output level in [0, 1].
func WithLevel(level float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(level, 0, 1, "level"); err != nil {
			return err
		}

		cfg.level = level

		return nil
	}
}

// WithPulseWidth sets the pulse duty cycle in [0.05, 0.95].
func WithPulseWidth(pulseWidth float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(pulseWidth, minPulseWidth, maxPulseWidth, "pulse width"); err != nil {
			return err
		}

		cfg.pulseWidth = pulseWidth

		return nil
	}
}

// Oscillator is a phase-accumulation waveform generator.
//
// Construction validates its configuration; once running, the Set methods
// clamp out-of-range values silently so the audio thread never has to
// branch on parameter errors.
type Oscillator struct {
	sampleRate float64

	waveform   Waveform
	frequency  float64
	level      float64
	pulseWidth float64

	pitchMod float64
	pwMod    float64

	phase float64
}

// New constructs an oscillator.
func New(sampleRate float64, opts ...Option) (*Oscillator, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("osc: sample rate must be > 0 and finite: %f", sampleRate)
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

	return &Oscillator{
		sampleRate: sampleRate,
		waveform:   cfg.waveform,
		frequency:  cfg.frequency,
		level:      cfg.level,
		pulseWidth: cfg.pulseWidth,
	}, nil
}

// SampleRate returns the sample rate in Hz.
func (o *Oscillator) SampleRate() float64 { return o.sampleRate }

// Waveform returns the current waveform.
func (o *Oscillator) Waveform() Waveform { return o.waveform }

// FrequencyHz returns the base frequency in Hz.
func (o *Oscillator) FrequencyHz() float64 { return o.frequency }

// Level returns the output level.
func (o *Oscillator) Level() float64 { return o.level }

// PulseWidth returns the unmodulated pulse duty cycle.
func (o *Oscillator) PulseWidth() float64 { return o.pulseWidth }

// PitchMod returns the pitch modulation in semitones.
func (o *Oscillator) PitchMod() float64 { return o.pitchMod }

// PulseWidthMod returns the pulse-width modulation offset.
func (o *Oscillator) PulseWidthMod() float64 { return o.pwMod }

// Phase returns the current phase in [0, 1).
func (o *Oscillator) Phase() float64 { return o.phase }

// SetWaveform switches the waveform. Invalid values are ignored.
func (o *Oscillator) SetWaveform(waveform Waveform) {
	if validWaveform(waveform) {
		o.waveform = waveform
	}
}

// SetFrequencyHz sets the base frequency, clamped to [20, 20000] Hz.
func (o *Oscillator) SetFrequencyHz(frequencyHz float64) {
	if !isFinite(frequencyHz) {
		return
	}

	o.frequency = clamp(frequencyHz, minFrequencyHz, maxFrequencyHz)
}

// SetNote sets the base frequency from a MIDI note number.
func (o *Oscillator) SetNote(note int) {
	o.SetFrequencyHz(MIDIToFrequency(note))
}

// SetLevel sets the output level, clamped to [0, 1].
func (o *Oscillator) SetLevel(level float64) {
	if !isFinite(level) {
		return
	}

	o.level = clamp(level, 0, 1)
}

// SetPulseWidth sets the duty cycle, clamped to [0.05, 0.95].
func (o *Oscillator) SetPulseWidth(pulseWidth float64) {
	if !isFinite(pulseWidth) {
		return
	}

	o.pulseWidth = clamp(pulseWidth, minPulseWidth, maxPulseWidth)
}

// SetPitchMod sets pitch modulation in semitones.
func (o *Oscillator) SetPitchMod(semitones float64) {
	if !isFinite(semitones) {
		return
	}

	o.pitchMod = semitones
}

// SetPulseWidthMod sets the pulse-width modulation offset, clamped to
// [-0.45, 0.45].
func (o *Oscillator) SetPulseWidthMod(amount float64) {
	if !isFinite(amount) {
		return
	}

	o.pwMod = clamp(amount, -maxPWMod, maxPWMod)
}

// EffectiveFrequencyHz returns the frequency including pitch modulation.
func (o *Oscillator) EffectiveFrequencyHz() float64 {
	return o.frequency * math.Pow(2, o.pitchMod/12)
}

// EffectivePulseWidth returns the duty cycle including modulation, clamped
// to [0.05, 0.95].
func (o *Oscillator) EffectivePulseWidth() float64 {
	return clamp(o.pulseWidth+o.pwMod, minPulseWidth, maxPulseWidth)
}

// ResetPhase rewinds the phase accumulator to zero for a consistent attack.
func (o *Oscillator) ResetPhase() {
	o.phase = 0
}

// ProcessSample generates one sample at the current settings.
func (o *Oscillator) ProcessSample() float64 {
	dt := o.EffectiveFrequencyHz() / o.sampleRate
	out := o.sampleAt(o.phase, dt)

	o.phase += dt
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}

	return out * o.level
}

// Generate fills dst with exactly len(dst) samples.
func (o *Oscillator) Generate(dst []float64) {
	if len(dst) == 0 {
		return
	}

	dt := o.EffectiveFrequencyHz() / o.sampleRate

	phase := o.phase
	for i := range dst {
		dst[i] = o.sampleAt(phase, dt) * o.level

		phase += dt
		if phase >= 1 {
			phase -= math.Floor(phase)
		}
	}

	o.phase = phase
}

func (o *Oscillator) sampleAt(phase, dt float64) float64 {
	switch o.waveform {
	case WaveformSine:
		return math.Sin(2 * math.Pi * phase)
	case WaveformSawtooth:
		// Downward step of 2 at the wrap point. The residual is
		// already scaled for the full step height.
		return 2*phase - 1 - polyBLEP(phase, dt)
	case WaveformSquare:
		return o.pulseAt(phase, dt, 0.5)
	case WaveformTriangle:
		return 4*math.Abs(phase-0.5) - 1
	case WaveformPulse:
		return o.pulseAt(phase, dt, o.EffectivePulseWidth())
	default:
		return 0
	}
}

func (o *Oscillator) pulseAt(phase, dt, width float64) float64 {
	out := -1.0
	if phase < width {
		out = 1.0
	}

	// Rising edge at phase 0, falling edge at the duty-cycle point.
	out += polyBLEP(phase, dt)
	out -= polyBLEPAt(phase, dt, width)

	return out
}

// polyBLEP returns the residual correcting a unit step discontinuity at
// phase zero. The two-sample polynomial segment approximates the ideal
// bandlimited step.
func polyBLEP(t, dt float64) float64 {
	switch {
	case t < dt:
		tn := t / dt
		return tn + tn - tn*tn - 1
	case t > 1-dt:
		tn := (t - 1) / dt
		return tn*tn + tn + tn + 1
	default:
		return 0
	}
}

// polyBLEPAt applies the correction for a discontinuity at an arbitrary
// phase position instead of zero.
func polyBLEPAt(t, dt, transition float64) float64 {
	shifted := t - transition
	if shifted < 0 {
		shifted++
	}

	if shifted >= 1 {
		shifted--
	}

	return polyBLEP(shifted, dt)
}

func validWaveform(waveform Waveform) bool {
	return waveform >= WaveformSine && waveform <= WaveformPulse
}

func validateFiniteRange(value, min, max float64, name string) error {
	if !isFinite(value) {
		return fmt.Errorf("osc: %s must be finite: %v", name, value)
	}

	if value < min || value > max {
		return fmt.Errorf("osc: %s must be in [%g, %g]: %f", name, min, max, value)
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
