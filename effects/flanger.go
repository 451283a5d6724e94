package effects

import (
	"fmt"
	"math"
)

const (
	flangerMinDelayMs = 1.0
	flangerMaxDelayMs = 10.0

	minFlangerRateHz       = 0.1
	maxFlangerRateHz       = 5.0
	defaultFlangerRateHz   = 0.3
	defaultFlangerDepth    = 0.7
	maxFlangerFeedback     = 0.95
	defaultFlangerFeedback = 0.5
	defaultFlangerWet      = 0.5
)

// FlangerOption mutates construction-time flanger parameters.
type FlangerOption func(*flangerConfig) error

type flangerConfig struct {
	rateHz   float64
	depth    float64
	feedback float64
	wet      float64
}

func defaultFlangerConfig() flangerConfig {
	return flangerConfig{
		rateHz:   defaultFlangerRateHz,
		depth:    defaultFlangerDepth,
		feedback: defaultFlangerFeedback,
		wet:      defaultFlangerWet,
	}
}

// WithFlangerRateHz sets the sweep rate in Hz, in [0.1, 5].
func WithFlangerRateHz(rateHz float64) FlangerOption {
	return func(cfg *flangerConfig) error {
		if !isFinite(rateHz) || rateHz < minFlangerRateHz || rateHz > maxFlangerRateHz {
			return fmt.Errorf("effects: flanger rate must be in [%.1f, %.1f] Hz: %f",
				minFlangerRateHz, maxFlangerRateHz, rateHz)
		}
		cfg.rateHz = rateHz
		return nil
	}
}

// WithFlangerDepth sets the sweep depth in [0, 1].
func WithFlangerDepth(depth float64) FlangerOption {
	return func(cfg *flangerConfig) error {
		if !isFinite(depth) || depth < 0 || depth > 1 {
			return fmt.Errorf("effects: flanger depth must be in [0, 1]: %f", depth)
		}
		cfg.depth = depth
		return nil
	}
}

// WithFlangerFeedback sets the feedback amount in [0, 0.95].
func WithFlangerFeedback(feedback float64) FlangerOption {
	return func(cfg *flangerConfig) error {
		if !isFinite(feedback) || feedback < 0 || feedback > maxFlangerFeedback {
			return fmt.Errorf("effects: flanger feedback must be in [0, %.2f]: %f",
				maxFlangerFeedback, feedback)
		}
		cfg.feedback = feedback
		return nil
	}
}

// WithFlangerWet sets the wet/dry mix in [0, 1].
func WithFlangerWet(wet float64) FlangerOption {
	return func(cfg *flangerConfig) error {
		if !isFinite(wet) || wet < 0 || wet > 1 {
			return fmt.Errorf("effects: flanger wet must be in [0, 1]: %f", wet)
		}
		cfg.wet = wet
		return nil
	}
}

// Flanger sweeps a short feedback delay between 1 ms and 11 ms with a
// sine LFO, producing the characteristic jet comb filtering.
type Flanger struct {
	sampleRate float64
	rateHz     float64
	depth      float64
	feedback   float64
	wet        float64
	enabled    bool

	buffer         []float64
	write          int
	phase          float64
	feedbackSample float64
}

// NewFlanger creates a flanger for the given sample rate.
func NewFlanger(sampleRate float64, opts ...FlangerOption) (*Flanger, error) {
	if !validSampleRate(sampleRate) {
		return nil, fmt.Errorf("effects: sample rate must be > 0 and finite: %f", sampleRate)
	}
	cfg := defaultFlangerConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	return &Flanger{
		sampleRate: sampleRate,
		rateHz:     cfg.rateHz,
		depth:      cfg.depth,
		feedback:   cfg.feedback,
		wet:        cfg.wet,
		// The sweep tops out at the minimum delay plus the full depth.
		buffer:     make([]float64, int((flangerMinDelayMs+flangerMaxDelayMs)/1000.0*sampleRate)+10),
	}, nil
}

// SetRateHz updates the sweep rate, clamped to [0.1, 5] Hz.
func (f *Flanger) SetRateHz(rateHz float64) {
	if !isFinite(rateHz) {
		return
	}
	f.rateHz = clamp(rateHz, minFlangerRateHz, maxFlangerRateHz)
}

// SetDepth updates the sweep depth, clamped to [0, 1].
func (f *Flanger) SetDepth(depth float64) {
	if !isFinite(depth) {
		return
	}
	f.depth = clamp(depth, 0, 1)
}

// SetFeedback updates the feedback amount, clamped to [0, 0.95].
func (f *Flanger) SetFeedback(feedback float64) {
	if !isFinite(feedback) {
		return
	}
	f.feedback = clamp(feedback, 0, maxFlangerFeedback)
}

// SetWet updates the wet/dry mix in [0, 1].
func (f *Flanger) SetWet(wet float64) {
	if !isFinite(wet) {
		return
	}
	f.wet = clamp(wet, 0, 1)
}

// SetEnabled toggles the flanger. Enabling from the disabled state
// resets so the sweep always starts from a clean buffer.
func (f *Flanger) SetEnabled(enabled bool) {
	if enabled && !f.enabled {
		f.Reset()
	}
	f.enabled = enabled
}

// RateHz returns the sweep rate in Hz.
func (f *Flanger) RateHz() float64 { return f.rateHz }

// Depth returns the sweep depth in [0, 1].
func (f *Flanger) Depth() float64 { return f.depth }

// Feedback returns the feedback amount in [0, 0.95].
func (f *Flanger) Feedback() float64 { return f.feedback }

// Wet returns the wet/dry mix in [0, 1].
func (f *Flanger) Wet() float64 { return f.wet }

// Enabled reports whether the flanger is active.
func (f *Flanger) Enabled() bool { return f.enabled }

// Reset clears the delay line, the LFO phase, and the feedback sample.
func (f *Flanger) Reset() {
	for i := range f.buffer {
		f.buffer[i] = 0
	}
	f.write = 0
	f.phase = 0
	f.feedbackSample = 0
}

// ProcessInPlace applies the flanger to buf.
func (f *Flanger) ProcessInPlace(buf []float64) {
	if !f.enabled || f.wet == 0 {
		return
	}
	size := len(f.buffer)
	minSamples := flangerMinDelayMs / 1000.0 * f.sampleRate
	maxSamples := flangerMaxDelayMs / 1000.0 * f.depth * f.sampleRate
	phaseInc := 2 * math.Pi * f.rateHz / f.sampleRate

	for i, dry := range buf {
		delay := minSamples + maxSamples*(math.Sin(f.phase)+1)*0.5
		delay = clamp(delay, 0, float64(size-2))

		readPos := float64(f.write) - delay
		if readPos < 0 {
			readPos += float64(size)
		}
		idx0 := int(readPos) % size
		idx1 := (idx0 + 1) % size
		frac := readPos - math.Floor(readPos)
		delayed := f.buffer[idx0]*(1-frac) + f.buffer[idx1]*frac

		f.buffer[f.write] = dry + f.feedbackSample*f.feedback
		f.write++
		if f.write >= size {
			f.write = 0
		}
		f.feedbackSample = delayed

		f.phase += phaseInc
		if f.phase >= 2*math.Pi {
			f.phase -= 2 * math.Pi
		}

		buf[i] = dry*(1-f.wet) + delayed*f.wet
	}
}
