package effects

import "fmt"

// Effect is the contract shared by every effect in the chain.
type Effect interface {
	ProcessInPlace(buf []float64)
	SetEnabled(enabled bool)
	Enabled() bool
	Reset()
}

// Chain runs the five effects in a fixed serial order: distortion
// first so later time-based effects process the saturated signal,
// modulation before the echoes, and reverb last so the tail is not
// re-flanged or re-delayed.
type Chain struct {
	distortion *Distortion
	chorus     *Chorus
	delay      *Delay
	flanger    *Flanger
	reverb     *Reverb

	ordered [5]Effect
}

// NewChain creates a chain with all effects at their defaults. Only the
// reverb starts enabled.
func NewChain(sampleRate float64) (*Chain, error) {
	if !validSampleRate(sampleRate) {
		return nil, fmt.Errorf("effects: sample rate must be > 0 and finite: %f", sampleRate)
	}
	distortion, err := NewDistortion(sampleRate)
	if err != nil {
		return nil, err
	}
	chorus, err := NewChorus(sampleRate)
	if err != nil {
		return nil, err
	}
	delay, err := NewDelay(sampleRate)
	if err != nil {
		return nil, err
	}
	flanger, err := NewFlanger(sampleRate)
	if err != nil {
		return nil, err
	}
	reverb, err := NewReverb(sampleRate)
	if err != nil {
		return nil, err
	}
	c := &Chain{
		distortion: distortion,
		chorus:     chorus,
		delay:      delay,
		flanger:    flanger,
		reverb:     reverb,
	}
	c.ordered = [5]Effect{distortion, chorus, delay, flanger, reverb}
	return c, nil
}

// Distortion returns the distortion stage.
func (c *Chain) Distortion() *Distortion { return c.distortion }

// Chorus returns the chorus stage.
func (c *Chain) Chorus() *Chorus { return c.chorus }

// Delay returns the delay stage.
func (c *Chain) Delay() *Delay { return c.delay }

// Flanger returns the flanger stage.
func (c *Chain) Flanger() *Flanger { return c.flanger }

// Reverb returns the reverb stage.
func (c *Chain) Reverb() *Reverb { return c.reverb }

// ProcessInPlace runs buf through every enabled stage in order.
func (c *Chain) ProcessInPlace(buf []float64) {
	for _, e := range c.ordered {
		e.ProcessInPlace(buf)
	}
}

// Reset clears the state of every stage without changing parameters.
func (c *Chain) Reset() {
	for _, e := range c.ordered {
		e.Reset()
	}
}

// ActiveCount returns the number of enabled stages.
func (c *Chain) ActiveCount() int {
	n := 0
	for _, e := range c.ordered {
		if e.Enabled() {
			n++
		}
	}
	return n
}
