package effects

import (
	"fmt"
	"math"
)

const (
	minChorusVoices     = 2
	maxChorusVoices     = 4
	defaultChorusVoices = 3

	chorusBaseDelayMs = 25.0
	chorusMaxDepthMs  = 5.0

	minChorusRateHz     = 0.1
	maxChorusRateHz     = 5.0
	defaultChorusRateHz = 0.5
	defaultChorusDepth  = 0.5
	defaultChorusWet    = 0.3
)

// ChorusOption mutates construction-time chorus parameters.
type ChorusOption func(*chorusConfig) error

type chorusConfig struct {
	voices int
	rateHz float64
	depth  float64
	wet    float64
}

func defaultChorusConfig() chorusConfig {
	return chorusConfig{
		voices: defaultChorusVoices,
		rateHz: defaultChorusRateHz,
		depth:  defaultChorusDepth,
		wet:    defaultChorusWet,
	}
}

// WithChorusVoices sets the number of modulated taps, in [2, 4].
func WithChorusVoices(voices int) ChorusOption {
	return func(cfg *chorusConfig) error {
		if voices < minChorusVoices || voices > maxChorusVoices {
			return fmt.Errorf("effects: chorus voices must be in [%d, %d]: %d",
				minChorusVoices, maxChorusVoices, voices)
		}
		cfg.voices = voices
		return nil
	}
}

// WithChorusRateHz sets the LFO rate in Hz, in [0.1, 5].
func WithChorusRateHz(rateHz float64) ChorusOption {
	return func(cfg *chorusConfig) error {
		if !isFinite(rateHz) || rateHz < minChorusRateHz || rateHz > maxChorusRateHz {
			return fmt.Errorf("effects: chorus rate must be in [%.1f, %.1f] Hz: %f",
				minChorusRateHz, maxChorusRateHz, rateHz)
		}
		cfg.rateHz = rateHz
		return nil
	}
}

// WithChorusDepth sets the modulation depth in [0, 1].
func WithChorusDepth(depth float64) ChorusOption {
	return func(cfg *chorusConfig) error {
		if !isFinite(depth) || depth < 0 || depth > 1 {
			return fmt.Errorf("effects: chorus depth must be in [0, 1]: %f", depth)
		}
		cfg.depth = depth
		return nil
	}
}

// WithChorusWet sets the wet/dry mix in [0, 1].
func WithChorusWet(wet float64) ChorusOption {
	return func(cfg *chorusConfig) error {
		if !isFinite(wet) || wet < 0 || wet > 1 {
			return fmt.Errorf("effects: chorus wet must be in [0, 1]: %f", wet)
		}
		cfg.wet = wet
		return nil
	}
}

// Chorus thickens the signal with several delay taps modulated by
// phase-offset sine LFOs around a 25 ms base delay.
type Chorus struct {
	sampleRate float64
	voices     int
	rateHz     float64
	depth      float64
	wet        float64
	enabled    bool

	buffer []float64
	write  int
	phases [maxChorusVoices]float64
}

// NewChorus creates a chorus for the given sample rate.
func NewChorus(sampleRate float64, opts ...ChorusOption) (*Chorus, error) {
	if !validSampleRate(sampleRate) {
		return nil, fmt.Errorf("effects: sample rate must be > 0 and finite: %f", sampleRate)
	}
	cfg := defaultChorusConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	c := &Chorus{
		sampleRate: sampleRate,
		voices:     cfg.voices,
		rateHz:     cfg.rateHz,
		depth:      cfg.depth,
		wet:        cfg.wet,
		buffer:     make([]float64, int((chorusBaseDelayMs+chorusMaxDepthMs)/1000.0*sampleRate)+10),
	}
	c.resetPhases()
	return c, nil
}

func (c *Chorus) resetPhases() {
	for i := 0; i < c.voices; i++ {
		c.phases[i] = 2 * math.Pi * float64(i) / float64(c.voices)
	}
}

// SetVoices updates the tap count, clamped to [2, 4]. Changing the
// count restarts the LFO phase spread.
func (c *Chorus) SetVoices(voices int) {
	if voices < minChorusVoices {
		voices = minChorusVoices
	}
	if voices > maxChorusVoices {
		voices = maxChorusVoices
	}
	if voices == c.voices {
		return
	}
	c.voices = voices
	c.resetPhases()
}

// SetRateHz updates the LFO rate, clamped to [0.1, 5] Hz.
func (c *Chorus) SetRateHz(rateHz float64) {
	if !isFinite(rateHz) {
		return
	}
	c.rateHz = clamp(rateHz, minChorusRateHz, maxChorusRateHz)
}

// SetDepth updates the modulation depth, clamped to [0, 1].
func (c *Chorus) SetDepth(depth float64) {
	if !isFinite(depth) {
		return
	}
	c.depth = clamp(depth, 0, 1)
}

// SetWet updates the wet/dry mix in [0, 1].
func (c *Chorus) SetWet(wet float64) {
	if !isFinite(wet) {
		return
	}
	c.wet = clamp(wet, 0, 1)
}

// SetEnabled toggles the chorus. Disabling clears the delay line.
func (c *Chorus) SetEnabled(enabled bool) {
	c.enabled = enabled
	if !enabled {
		c.Reset()
	}
}

// Voices returns the tap count.
func (c *Chorus) Voices() int { return c.voices }

// RateHz returns the LFO rate in Hz.
func (c *Chorus) RateHz() float64 { return c.rateHz }

// Depth returns the modulation depth in [0, 1].
func (c *Chorus) Depth() float64 { return c.depth }

// Wet returns the wet/dry mix in [0, 1].
func (c *Chorus) Wet() float64 { return c.wet }

// Enabled reports whether the chorus is active.
func (c *Chorus) Enabled() bool { return c.enabled }

// Reset clears the delay line and restarts the LFO phases.
func (c *Chorus) Reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.write = 0
	c.resetPhases()
}

// ProcessInPlace applies the chorus to buf.
func (c *Chorus) ProcessInPlace(buf []float64) {
	if !c.enabled || c.wet == 0 {
		return
	}
	size := len(c.buffer)
	baseSamples := chorusBaseDelayMs / 1000.0 * c.sampleRate
	depthSamples := chorusMaxDepthMs / 1000.0 * c.depth * c.sampleRate
	phaseInc := 2 * math.Pi * c.rateHz / c.sampleRate

	for i, dry := range buf {
		c.buffer[c.write] = dry

		wet := 0.0
		for v := 0; v < c.voices; v++ {
			delay := baseSamples + math.Sin(c.phases[v])*depthSamples
			if delay < 1 {
				delay = 1
			}
			whole := int(delay)
			frac := delay - float64(whole)
			pos1 := (c.write - whole + size) % size
			pos2 := (pos1 - 1 + size) % size
			wet += c.buffer[pos1]*(1-frac) + c.buffer[pos2]*frac

			c.phases[v] += phaseInc
			if c.phases[v] >= 2*math.Pi {
				c.phases[v] -= 2 * math.Pi
			}
		}
		wet /= float64(c.voices)

		c.write++
		if c.write >= size {
			c.write = 0
		}

		buf[i] = dry*(1-c.wet) + wet*c.wet
	}
}
