package effects

import (
	"fmt"
	"math"
)

const (
	minDistortionDrive     = 1.0
	maxDistortionDrive     = 20.0
	defaultDistortionDrive = 2.0
	defaultDistortionTone  = 0.5
	defaultDistortionMix   = 1.0
	distortionDCBlockCoeff = 0.995
)

// DistortionMode selects the waveshaping transfer function.
type DistortionMode int

const (
	// DistortionSoft is symmetric tanh saturation.
	DistortionSoft DistortionMode = iota
	// DistortionHard clips abruptly at unity.
	DistortionHard
	// DistortionTube clips the positive and negative halves
	// asymmetrically to generate even harmonics.
	DistortionTube
)

// String returns the mode name used in presets and parameter values.
func (m DistortionMode) String() string {
	switch m {
	case DistortionSoft:
		return "soft"
	case DistortionHard:
		return "hard"
	case DistortionTube:
		return "tube"
	default:
		return "unknown"
	}
}

// ParseDistortionMode converts a mode name to a DistortionMode.
func ParseDistortionMode(name string) (DistortionMode, error) {
	switch name {
	case "soft":
		return DistortionSoft, nil
	case "hard":
		return DistortionHard, nil
	case "tube":
		return DistortionTube, nil
	default:
		return DistortionSoft, fmt.Errorf("effects: unknown distortion mode: %q", name)
	}
}

// DistortionOption mutates construction-time distortion parameters.
type DistortionOption func(*distortionConfig) error

type distortionConfig struct {
	mode  DistortionMode
	drive float64
	tone  float64
	mix   float64
}

func defaultDistortionConfig() distortionConfig {
	return distortionConfig{
		mode:  DistortionSoft,
		drive: defaultDistortionDrive,
		tone:  defaultDistortionTone,
		mix:   defaultDistortionMix,
	}
}

// WithDistortionMode selects the waveshaping mode.
func WithDistortionMode(mode DistortionMode) DistortionOption {
	return func(cfg *distortionConfig) error {
		if mode < DistortionSoft || mode > DistortionTube {
			return fmt.Errorf("effects: distortion mode is invalid: %d", mode)
		}
		cfg.mode = mode
		return nil
	}
}

// WithDistortionDrive sets the pre-gain in [1, 20].
func WithDistortionDrive(drive float64) DistortionOption {
	return func(cfg *distortionConfig) error {
		if !isFinite(drive) || drive < minDistortionDrive || drive > maxDistortionDrive {
			return fmt.Errorf("effects: distortion drive must be in [%.0f, %.0f]: %f",
				minDistortionDrive, maxDistortionDrive, drive)
		}
		cfg.drive = drive
		return nil
	}
}

// WithDistortionTone sets the post-shaping tone in [0, 1], where 0 is
// dark and 1 is bright.
func WithDistortionTone(tone float64) DistortionOption {
	return func(cfg *distortionConfig) error {
		if !isFinite(tone) || tone < 0 || tone > 1 {
			return fmt.Errorf("effects: distortion tone must be in [0, 1]: %f", tone)
		}
		cfg.tone = tone
		return nil
	}
}

// WithDistortionMix sets the wet/dry mix in [0, 1].
func WithDistortionMix(mix float64) DistortionOption {
	return func(cfg *distortionConfig) error {
		if !isFinite(mix) || mix < 0 || mix > 1 {
			return fmt.Errorf("effects: distortion mix must be in [0, 1]: %f", mix)
		}
		cfg.mix = mix
		return nil
	}
}

// Distortion applies drive, a selectable waveshaper, a one-pole tone
// filter, and a DC blocker that removes the offset asymmetric shaping
// would otherwise leave on the signal.
type Distortion struct {
	sampleRate float64
	mode       DistortionMode
	drive      float64
	tone       float64
	mix        float64
	enabled    bool

	toneState    float64
	dcPrevInput  float64
	dcPrevOutput float64
}

// NewDistortion creates a distortion for the given sample rate.
func NewDistortion(sampleRate float64, opts ...DistortionOption) (*Distortion, error) {
	if !validSampleRate(sampleRate) {
		return nil, fmt.Errorf("effects: sample rate must be > 0 and finite: %f", sampleRate)
	}
	cfg := defaultDistortionConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	return &Distortion{
		sampleRate: sampleRate,
		mode:       cfg.mode,
		drive:      cfg.drive,
		tone:       cfg.tone,
		mix:        cfg.mix,
	}, nil
}

// SetMode selects the waveshaping mode. Invalid modes are ignored.
func (d *Distortion) SetMode(mode DistortionMode) {
	if mode < DistortionSoft || mode > DistortionTube {
		return
	}
	d.mode = mode
}

// SetDrive updates the pre-gain, clamped to [1, 20].
func (d *Distortion) SetDrive(drive float64) {
	if !isFinite(drive) {
		return
	}
	d.drive = clamp(drive, minDistortionDrive, maxDistortionDrive)
}

// SetTone updates the tone, clamped to [0, 1].
func (d *Distortion) SetTone(tone float64) {
	if !isFinite(tone) {
		return
	}
	d.tone = clamp(tone, 0, 1)
}

// SetMix updates the wet/dry mix, clamped to [0, 1].
func (d *Distortion) SetMix(mix float64) {
	if !isFinite(mix) {
		return
	}
	d.mix = clamp(mix, 0, 1)
}

// SetEnabled toggles the distortion. Disabling clears the filter state.
func (d *Distortion) SetEnabled(enabled bool) {
	d.enabled = enabled
	if !enabled {
		d.Reset()
	}
}

// Mode returns the waveshaping mode.
func (d *Distortion) Mode() DistortionMode { return d.mode }

// Drive returns the pre-gain in [1, 20].
func (d *Distortion) Drive() float64 { return d.drive }

// Tone returns the tone in [0, 1].
func (d *Distortion) Tone() float64 { return d.tone }

// Mix returns the wet/dry mix in [0, 1].
func (d *Distortion) Mix() float64 { return d.mix }

// Enabled reports whether the distortion is active.
func (d *Distortion) Enabled() bool { return d.enabled }

// Reset clears the tone filter and DC blocker state.
func (d *Distortion) Reset() {
	d.toneState = 0
	d.dcPrevInput = 0
	d.dcPrevOutput = 0
}

func (d *Distortion) shape(x float64) float64 {
	switch d.mode {
	case DistortionHard:
		return clamp(x, -1, 1)
	case DistortionTube:
		if x >= 0 {
			return math.Tanh(x * 0.9)
		}
		return math.Tanh(x*1.1) * 0.9
	default:
		return math.Tanh(x)
	}
}

// ProcessInPlace applies the distortion to buf.
func (d *Distortion) ProcessInPlace(buf []float64) {
	if !d.enabled || d.mix == 0 {
		return
	}
	toneCoeff := 0.1 + 0.9*d.tone
	for i, dry := range buf {
		shaped := d.shape(dry * d.drive)

		d.toneState = toneCoeff*shaped + (1-toneCoeff)*d.toneState

		dcBlocked := d.toneState - d.dcPrevInput + distortionDCBlockCoeff*d.dcPrevOutput
		d.dcPrevInput = d.toneState
		d.dcPrevOutput = dcBlocked

		buf[i] = dry*(1-d.mix) + dcBlocked*d.mix
	}
}
