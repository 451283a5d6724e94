package effects

import (
	"fmt"
	"math"
)

const (
	defaultReverbRoomSize = 0.5
	defaultReverbWet      = 0.3
	reverbCombGain        = 0.25
	reverbAllpassGain     = 0.5
	reverbBaseSampleRate  = 44100.0
	reverbRebuildEpsilon  = 0.01
)

// Comb and allpass tunings in samples at 44.1 kHz, scaled to the actual
// sample rate at construction. Comb lengths additionally scale with the
// room size.
var (
	reverbCombTunings    = [4]int{1557, 1617, 1491, 1422}
	reverbAllpassTunings = [2]int{225, 556}
)

type combFilter struct {
	buffer   []float64
	write    int
	feedback float64
}

func newCombFilter(size int, feedback float64) *combFilter {
	if size < 1 {
		size = 1
	}
	return &combFilter{buffer: make([]float64, size), feedback: feedback}
}

func (c *combFilter) processSample(input float64) float64 {
	out := c.buffer[c.write]
	c.buffer[c.write] = input + out*c.feedback
	c.write++
	if c.write >= len(c.buffer) {
		c.write = 0
	}
	return out
}

func (c *combFilter) reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.write = 0
}

type allpassFilter struct {
	buffer []float64
	write  int
	gain   float64
}

func newAllpassFilter(size int, gain float64) *allpassFilter {
	if size < 1 {
		size = 1
	}
	return &allpassFilter{buffer: make([]float64, size), gain: gain}
}

func (a *allpassFilter) processSample(input float64) float64 {
	delayed := a.buffer[a.write]
	out := -a.gain*input + delayed
	a.buffer[a.write] = input + a.gain*delayed
	a.write++
	if a.write >= len(a.buffer) {
		a.write = 0
	}
	return out
}

func (a *allpassFilter) reset() {
	for i := range a.buffer {
		a.buffer[i] = 0
	}
	a.write = 0
}

// ReverbOption mutates construction-time reverb parameters.
type ReverbOption func(*reverbConfig) error

type reverbConfig struct {
	roomSize float64
	wet      float64
}

func defaultReverbConfig() reverbConfig {
	return reverbConfig{
		roomSize: defaultReverbRoomSize,
		wet:      defaultReverbWet,
	}
}

// WithReverbRoomSize sets the room size in [0, 1].
func WithReverbRoomSize(roomSize float64) ReverbOption {
	return func(cfg *reverbConfig) error {
		if !isFinite(roomSize) || roomSize < 0 || roomSize > 1 {
			return fmt.Errorf("effects: reverb room size must be in [0, 1]: %f", roomSize)
		}
		cfg.roomSize = roomSize
		return nil
	}
}

// WithReverbWet sets the wet/dry mix in [0, 1].
func WithReverbWet(wet float64) ReverbOption {
	return func(cfg *reverbConfig) error {
		if !isFinite(wet) || wet < 0 || wet > 1 {
			return fmt.Errorf("effects: reverb wet must be in [0, 1]: %f", wet)
		}
		cfg.wet = wet
		return nil
	}
}

// Reverb is a Schroeder reverberator: four parallel feedback combs
// followed by two series allpass diffusers. Unlike the other effects it
// starts enabled.
type Reverb struct {
	sampleRate float64
	roomSize   float64
	wet        float64
	enabled    bool

	combs     [4]*combFilter
	allpasses [2]*allpassFilter
}

// NewReverb creates a reverb for the given sample rate.
func NewReverb(sampleRate float64, opts ...ReverbOption) (*Reverb, error) {
	if !validSampleRate(sampleRate) {
		return nil, fmt.Errorf("effects: sample rate must be > 0 and finite: %f", sampleRate)
	}
	cfg := defaultReverbConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	r := &Reverb{
		sampleRate: sampleRate,
		roomSize:   cfg.roomSize,
		wet:        cfg.wet,
		enabled:    true,
	}
	r.rebuildCombs()
	scale := sampleRate / reverbBaseSampleRate
	for i, tuning := range reverbAllpassTunings {
		r.allpasses[i] = newAllpassFilter(int(float64(tuning)*scale), reverbAllpassGain)
	}
	return r, nil
}

func (r *Reverb) rebuildCombs() {
	scale := r.sampleRate / reverbBaseSampleRate
	roomScale := 0.5 + r.roomSize*1.5
	feedback := 0.7 + r.roomSize*0.2
	for i, tuning := range reverbCombTunings {
		r.combs[i] = newCombFilter(int(float64(tuning)*scale*roomScale), feedback)
	}
}

// SetRoomSize updates the room size in [0, 1]. Changing the size
// rebuilds the comb delay lines, which audibly interrupts the tail, so
// changes smaller than 1% are ignored.
func (r *Reverb) SetRoomSize(roomSize float64) {
	if !isFinite(roomSize) {
		return
	}
	roomSize = clamp(roomSize, 0, 1)
	if math.Abs(roomSize-r.roomSize) <= reverbRebuildEpsilon {
		return
	}
	r.roomSize = roomSize
	r.rebuildCombs()
}

// SetWet updates the wet/dry mix in [0, 1].
func (r *Reverb) SetWet(wet float64) {
	if !isFinite(wet) {
		return
	}
	r.wet = clamp(wet, 0, 1)
}

// SetEnabled toggles the reverb. Disabling clears all delay lines so a
// later enable starts from silence.
func (r *Reverb) SetEnabled(enabled bool) {
	r.enabled = enabled
	if !enabled {
		r.Reset()
	}
}

// RoomSize returns the room size in [0, 1].
func (r *Reverb) RoomSize() float64 { return r.roomSize }

// Wet returns the wet/dry mix in [0, 1].
func (r *Reverb) Wet() float64 { return r.wet }

// Enabled reports whether the reverb is active.
func (r *Reverb) Enabled() bool { return r.enabled }

// Reset clears all comb and allpass state.
func (r *Reverb) Reset() {
	for _, c := range r.combs {
		c.reset()
	}
	for _, a := range r.allpasses {
		a.reset()
	}
}

// ProcessInPlace applies the reverb to buf. A disabled or fully dry
// reverb leaves buf untouched.
func (r *Reverb) ProcessInPlace(buf []float64) {
	if !r.enabled || r.wet == 0 {
		return
	}
	for i, dry := range buf {
		wet := 0.0
		for _, c := range r.combs {
			wet += c.processSample(dry)
		}
		wet *= reverbCombGain
		for _, a := range r.allpasses {
			wet = a.processSample(wet)
		}
		buf[i] = dry*(1-r.wet) + wet*r.wet
	}
}
