package effects

import "fmt"

const (
	minDelayMs           = 10.0
	maxDelayMs           = 2000.0
	defaultDelayMs       = 300.0
	maxDelayFeedback     = 0.95
	defaultDelayFeedback = 0.4
	defaultDelayWet      = 0.3
	delayDCBlockCoeff    = 0.995
)

// DelayOption mutates construction-time delay parameters.
type DelayOption func(*delayConfig) error

type delayConfig struct {
	delayMs  float64
	feedback float64
	wet      float64
}

func defaultDelayConfig() delayConfig {
	return delayConfig{
		delayMs:  defaultDelayMs,
		feedback: defaultDelayFeedback,
		wet:      defaultDelayWet,
	}
}

// WithDelayTimeMs sets the delay time in milliseconds, in [10, 2000].
func WithDelayTimeMs(delayMs float64) DelayOption {
	return func(cfg *delayConfig) error {
		if !isFinite(delayMs) || delayMs < minDelayMs || delayMs > maxDelayMs {
			return fmt.Errorf("effects: delay time must be in [%.0f, %.0f] ms: %f",
				minDelayMs, maxDelayMs, delayMs)
		}
		cfg.delayMs = delayMs
		return nil
	}
}

// WithDelayFeedback sets the feedback amount in [0, 0.95].
func WithDelayFeedback(feedback float64) DelayOption {
	return func(cfg *delayConfig) error {
		if !isFinite(feedback) || feedback < 0 || feedback > maxDelayFeedback {
			return fmt.Errorf("effects: delay feedback must be in [0, %.2f]: %f",
				maxDelayFeedback, feedback)
		}
		cfg.feedback = feedback
		return nil
	}
}

// WithDelayWet sets the wet/dry mix in [0, 1].
func WithDelayWet(wet float64) DelayOption {
	return func(cfg *delayConfig) error {
		if !isFinite(wet) || wet < 0 || wet > 1 {
			return fmt.Errorf("effects: delay wet must be in [0, 1]: %f", wet)
		}
		cfg.wet = wet
		return nil
	}
}

// Delay is a feedback delay line with tempo sync and a DC blocker in
// the feedback path to stop offset from accumulating over repeats.
type Delay struct {
	sampleRate float64
	delayMs    float64
	feedback   float64
	wet        float64
	enabled    bool

	buffer       []float64
	write        int
	delaySamples int

	dcPrevInput  float64
	dcPrevOutput float64
}

// NewDelay creates a delay for the given sample rate. The buffer is
// sized for the maximum delay time so runtime changes never allocate.
func NewDelay(sampleRate float64, opts ...DelayOption) (*Delay, error) {
	if !validSampleRate(sampleRate) {
		return nil, fmt.Errorf("effects: sample rate must be > 0 and finite: %f", sampleRate)
	}
	cfg := defaultDelayConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	d := &Delay{
		sampleRate: sampleRate,
		delayMs:    cfg.delayMs,
		feedback:   cfg.feedback,
		wet:        cfg.wet,
		buffer:     make([]float64, int(maxDelayMs/1000.0*sampleRate)+1),
	}
	d.updateDelaySamples()
	return d, nil
}

func (d *Delay) updateDelaySamples() {
	d.delaySamples = int(d.delayMs / 1000.0 * d.sampleRate)
	if d.delaySamples < 1 {
		d.delaySamples = 1
	}
	if d.delaySamples > len(d.buffer)-1 {
		d.delaySamples = len(d.buffer) - 1
	}
}

// SetTimeMs updates the delay time in milliseconds, clamped to
// [10, 2000].
func (d *Delay) SetTimeMs(delayMs float64) {
	if !isFinite(delayMs) {
		return
	}
	d.delayMs = clamp(delayMs, minDelayMs, maxDelayMs)
	d.updateDelaySamples()
}

// SetFeedback updates the feedback amount, clamped to [0, 0.95].
func (d *Delay) SetFeedback(feedback float64) {
	if !isFinite(feedback) {
		return
	}
	d.feedback = clamp(feedback, 0, maxDelayFeedback)
}

// SetWet updates the wet/dry mix in [0, 1].
func (d *Delay) SetWet(wet float64) {
	if !isFinite(wet) {
		return
	}
	d.wet = clamp(wet, 0, 1)
}

// SetEnabled toggles the delay. Disabling clears the delay line.
func (d *Delay) SetEnabled(enabled bool) {
	d.enabled = enabled
	if !enabled {
		d.Reset()
	}
}

// SyncToTempo sets the delay time from a tempo and note value and
// returns the resulting time in milliseconds. Note values follow the
// usual shorthand: "1/4" is a quarter note, "1/8." a dotted eighth,
// "1/8T" an eighth triplet. Unknown note values fall back to a quarter
// note.
func (d *Delay) SyncToTempo(bpm float64, noteValue string) float64 {
	if !isFinite(bpm) || bpm <= 0 {
		return d.delayMs
	}
	quarterMs := 60000.0 / bpm
	multiplier := 1.0
	switch noteValue {
	case "1/1":
		multiplier = 4.0
	case "1/2":
		multiplier = 2.0
	case "1/4":
		multiplier = 1.0
	case "1/8":
		multiplier = 0.5
	case "1/16":
		multiplier = 0.25
	case "1/32":
		multiplier = 0.125
	case "1/4.":
		multiplier = 1.5
	case "1/8.":
		multiplier = 0.75
	case "1/8T":
		multiplier = 1.0 / 3.0
	case "1/4T":
		multiplier = 2.0 / 3.0
	}
	d.SetTimeMs(quarterMs * multiplier)
	return d.delayMs
}

// TimeMs returns the delay time in milliseconds.
func (d *Delay) TimeMs() float64 { return d.delayMs }

// Feedback returns the feedback amount in [0, 0.95].
func (d *Delay) Feedback() float64 { return d.feedback }

// Wet returns the wet/dry mix in [0, 1].
func (d *Delay) Wet() float64 { return d.wet }

// Enabled reports whether the delay is active.
func (d *Delay) Enabled() bool { return d.enabled }

// Reset clears the delay line and the DC blocker state.
func (d *Delay) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.write = 0
	d.dcPrevInput = 0
	d.dcPrevOutput = 0
}

// ProcessInPlace applies the delay to buf. The feedback signal is DC
// blocked before being written back so long repeat tails stay centred.
func (d *Delay) ProcessInPlace(buf []float64) {
	if !d.enabled || d.wet == 0 {
		return
	}
	size := len(d.buffer)
	for i, dry := range buf {
		read := d.write - d.delaySamples
		if read < 0 {
			read += size
		}
		delayed := d.buffer[read]

		dcBlocked := delayed - d.dcPrevInput + delayDCBlockCoeff*d.dcPrevOutput
		d.dcPrevInput = delayed
		d.dcPrevOutput = dcBlocked

		d.buffer[d.write] = dry + dcBlocked*d.feedback
		d.write++
		if d.write >= size {
			d.write = 0
		}

		buf[i] = dry*(1-d.wet) + delayed*d.wet
	}
}
