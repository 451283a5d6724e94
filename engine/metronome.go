package engine

import (
	"fmt"
	"math"
	"sync/atomic"
)

const (
	minMetronomeBPM     = 20.0
	maxMetronomeBPM     = 300.0
	defaultMetronomeBPM = 120.0

	defaultMetronomeVolume = 0.5

	clickFrequencyHighHz = 1500.0
	clickFrequencyLowHz  = 1000.0
	clickDurationSeconds = 0.015
	clickAttackSeconds   = 0.001
)

// TimeSignature describes beats per measure and the beat note value.
type TimeSignature struct {
	Numerator   int
	Denominator int
}

// Validate checks the signature against the supported ranges.
func (ts TimeSignature) Validate() error {
	if ts.Numerator < 1 || ts.Numerator > 16 {
		return fmt.Errorf("engine: time signature numerator must be in [1, 16]: %d", ts.Numerator)
	}
	switch ts.Denominator {
	case 2, 4, 8, 16:
	default:
		return fmt.Errorf("engine: time signature denominator must be 2, 4, 8 or 16: %d", ts.Denominator)
	}
	return nil
}

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.Numerator, ts.Denominator)
}

// MetronomeOption mutates construction-time metronome parameters.
type MetronomeOption func(*metronomeConfig) error

type metronomeConfig struct {
	bpm     float64
	timeSig TimeSignature
	volume  float64
	accent  bool
}

func defaultMetronomeConfig() metronomeConfig {
	return metronomeConfig{
		bpm:     defaultMetronomeBPM,
		timeSig: TimeSignature{Numerator: 4, Denominator: 4},
		volume:  defaultMetronomeVolume,
		accent:  true,
	}
}

// WithMetronomeBPM sets the tempo in [20, 300] beats per minute.
func WithMetronomeBPM(bpm float64) MetronomeOption {
	return func(cfg *metronomeConfig) error {
		if math.IsNaN(bpm) || bpm < minMetronomeBPM || bpm > maxMetronomeBPM {
			return fmt.Errorf("engine: metronome bpm must be in [%.0f, %.0f]: %f",
				minMetronomeBPM, maxMetronomeBPM, bpm)
		}
		cfg.bpm = bpm
		return nil
	}
}

// WithTimeSignature sets the time signature.
func WithTimeSignature(ts TimeSignature) MetronomeOption {
	return func(cfg *metronomeConfig) error {
		if err := ts.Validate(); err != nil {
			return err
		}
		cfg.timeSig = ts
		return nil
	}
}

// WithMetronomeVolume sets the click volume in [0, 1].
func WithMetronomeVolume(volume float64) MetronomeOption {
	return func(cfg *metronomeConfig) error {
		if math.IsNaN(volume) || volume < 0 || volume > 1 {
			return fmt.Errorf("engine: metronome volume must be in [0, 1]: %f", volume)
		}
		cfg.volume = volume
		return nil
	}
}

// Metronome generates a click track of short enveloped sine bursts, the
// downbeat accented with a higher pitch. Start and Stop may be called
// from any thread; all other mutation belongs to the audio thread.
type Metronome struct {
	sampleRate float64
	bpm        float64
	timeSig    TimeSignature
	volume     float64
	accent     bool

	running        atomic.Bool
	samplesPerBeat int
	currentBeat    int
	samplePosition int

	clickHigh []float64
	clickLow  []float64
}

// NewMetronome creates a metronome for the given sample rate.
func NewMetronome(sampleRate float64, opts ...MetronomeOption) (*Metronome, error) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return nil, fmt.Errorf("engine: sample rate must be > 0 and finite: %f", sampleRate)
	}
	cfg := defaultMetronomeConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	m := &Metronome{
		sampleRate: sampleRate,
		timeSig:    cfg.timeSig,
		volume:     cfg.volume,
		accent:     cfg.accent,
		clickHigh:  renderClick(clickFrequencyHighHz, sampleRate),
		clickLow:   renderClick(clickFrequencyLowHz, sampleRate),
	}
	m.SetBPM(cfg.bpm)
	return m, nil
}

// renderClick synthesizes one click: a sine burst with a 1 ms linear
// attack and an exponential decay over the rest of the 15 ms duration.
func renderClick(frequencyHz, sampleRate float64) []float64 {
	n := int(clickDurationSeconds * sampleRate)
	attack := int(clickAttackSeconds * sampleRate)
	click := make([]float64, n)
	for i := range click {
		t := float64(i) / sampleRate
		env := 0.0
		if i < attack {
			env = float64(i) / float64(attack)
		} else if n > attack {
			env = math.Exp(-5 * float64(i-attack) / float64(n-attack))
		}
		click[i] = math.Sin(2*math.Pi*frequencyHz*t) * env
	}
	return click
}

// SetBPM updates the tempo, clamped to [20, 300].
func (m *Metronome) SetBPM(bpm float64) {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return
	}
	if bpm < minMetronomeBPM {
		bpm = minMetronomeBPM
	}
	if bpm > maxMetronomeBPM {
		bpm = maxMetronomeBPM
	}
	m.bpm = bpm
	m.samplesPerBeat = int(60.0 / bpm * m.sampleRate)
}

// SetTimeSignature updates the signature and restarts the measure.
// Invalid signatures are ignored.
func (m *Metronome) SetTimeSignature(ts TimeSignature) {
	if ts.Validate() != nil {
		return
	}
	m.timeSig = ts
	m.Reset()
}

// SetVolume updates the click volume, clamped to [0, 1].
func (m *Metronome) SetVolume(volume float64) {
	if math.IsNaN(volume) || math.IsInf(volume, 0) {
		return
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	m.volume = volume
}

// SetAccentEnabled toggles the downbeat accent.
func (m *Metronome) SetAccentEnabled(enabled bool) { m.accent = enabled }

// Start begins click generation at the top of a measure.
func (m *Metronome) Start() { m.running.Store(true) }

// Stop halts click generation.
func (m *Metronome) Stop() { m.running.Store(false) }

// Reset rewinds to the first beat of the measure.
func (m *Metronome) Reset() {
	m.currentBeat = 0
	m.samplePosition = 0
}

// Running reports whether the metronome is generating clicks.
func (m *Metronome) Running() bool { return m.running.Load() }

// BPM returns the tempo.
func (m *Metronome) BPM() float64 { return m.bpm }

// Volume returns the click volume in [0, 1].
func (m *Metronome) Volume() float64 { return m.volume }

// TimeSignature returns the current signature.
func (m *Metronome) TimeSignature() TimeSignature { return m.timeSig }

// CurrentBeat returns the zero-indexed beat within the measure.
func (m *Metronome) CurrentBeat() int { return m.currentBeat }

// BeatDurationMs returns the duration of one beat in milliseconds.
func (m *Metronome) BeatDurationMs() float64 { return 60000.0 / m.bpm }

// Generate overwrites dst with the click track. A stopped metronome
// writes silence. Clicks that straddle a buffer boundary are truncated,
// which at 15 ms is inaudible against the next beat.
func (m *Metronome) Generate(dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
	if !m.running.Load() || len(dst) == 0 {
		return
	}

	writePos := 0
	for writePos < len(dst) {
		if m.samplePosition == 0 {
			click := m.clickLow
			if m.currentBeat == 0 && m.accent {
				click = m.clickHigh
			}
			n := len(click)
			if remaining := len(dst) - writePos; n > remaining {
				n = remaining
			}
			for i := 0; i < n; i++ {
				dst[writePos+i] = click[i] * m.volume
			}
		}

		advance := m.samplesPerBeat - m.samplePosition
		if remaining := len(dst) - writePos; advance > remaining {
			advance = remaining
		}
		writePos += advance
		m.samplePosition += advance

		if m.samplePosition >= m.samplesPerBeat {
			m.samplePosition = 0
			m.currentBeat = (m.currentBeat + 1) % m.timeSig.Numerator
		}
	}
}
