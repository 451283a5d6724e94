// Package manager implements polyphonic voice allocation: a fixed voice
// pool, note-to-voice tracking, voice stealing, and the summed mix with
// smoothed normalization and a soft output limiter.
package manager

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-synth/synth/voice"
)

const (
	defaultMaxVoices    = 8
	defaultMasterVolume = 0.8

	minVoices = 1
	maxVoices = 32

	// normSmoothing is the one-pole coefficient easing the 1/sqrt(n)
	// normalization toward its target so voice-count changes do not pop.
	normSmoothing = 0.99

	// limitThreshold is the peak magnitude above which the mix is run
	// through tanh soft limiting.
	limitThreshold = 0.95

	// releasingBias lowers the steal score of releasing voices so they are
	// taken before sustaining ones.
	releasingBias = 10.0
)

// StealStrategy selects which voice is reassigned when the pool is full.
type StealStrategy int

const (
	// StealQuietest takes the voice with the lowest envelope value,
	// preferring releasing voices.
	StealQuietest StealStrategy = iota
	// StealOldest takes the longest-sounding voice, using envelope decay
	// as the age proxy.
	StealOldest
	// StealLowest takes the voice sounding the lowest pitch.
	StealLowest
	// StealHighest takes the voice sounding the highest pitch.
	StealHighest
)

func (s StealStrategy) String() string {
	switch s {
	case StealQuietest:
		return "quietest"
	case StealOldest:
		return "oldest"
	case StealLowest:
		return "lowest"
	case StealHighest:
		return "highest"
	default:
		return "unknown"
	}
}

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	maxVoices    int
	masterVolume float64
	strategy     StealStrategy
}

func defaultConfig() config {
	return config{
		maxVoices:    defaultMaxVoices,
		masterVolume: defaultMasterVolume,
		strategy:     StealQuietest,
	}
}

// WithMaxVoices sets the polyphony in [1, 32].
func WithMaxVoices(n int) Option {
	return func(cfg *config) error {
		if n < minVoices || n > maxVoices {
			return fmt.Errorf("manager: max voices must be in [%d, %d]: %d", minVoices, maxVoices, n)
		}

		cfg.maxVoices = n

		return nil
	}
}

// WithMasterVolume sets the output volume in [0, 1].
func WithMasterVolume(volume float64) Option {
	return func(cfg *config) error {
		if !isFinite(volume) || volume < 0 || volume > 1 {
			return fmt.Errorf("manager: master volume must be in [0, 1]: %f", volume)
		}

		cfg.masterVolume = volume

		return nil
	}
}

// WithStealStrategy selects the voice-stealing strategy.
func WithStealStrategy(strategy StealStrategy) Option {
	return func(cfg *config) error {
		if strategy < StealQuietest || strategy > StealHighest {
			return fmt.Errorf("manager: invalid steal strategy: %d", strategy)
		}

		cfg.strategy = strategy

		return nil
	}
}

// State is a snapshot of the manager for displays and diagnostics.
type State struct {
	ActiveVoices int
	NotesPlaying []int
	MasterVolume float64
}

// Manager owns the voice pool and the note map.
//
// All methods are intended to be called from the audio thread or, before
// playback starts, from setup code; they are not safe for concurrent use.
type Manager struct {
	sampleRate float64

	voices   []*voice.Voice
	noteMap  map[int]int
	params   voice.Parameters
	strategy StealStrategy

	masterVolume float64
	smoothNorm   float64

	voiceBuf []float64
}

// New constructs a manager with its voice pool.
func New(sampleRate float64, opts ...Option) (*Manager, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("manager: sample rate must be > 0 and finite: %f", sampleRate)
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

	voices := make([]*voice.Voice, cfg.maxVoices)
	for i := range voices {
		v, err := voice.New(sampleRate, i)
		if err != nil {
			return nil, err
		}

		voices[i] = v
	}

	return &Manager{
		sampleRate:   sampleRate,
		voices:       voices,
		noteMap:      make(map[int]int, cfg.maxVoices),
		params:       voice.DefaultParameters(),
		strategy:     cfg.strategy,
		masterVolume: cfg.masterVolume,
		smoothNorm:   1,
	}, nil
}

// SampleRate returns the sample rate in Hz.
func (m *Manager) SampleRate() float64 { return m.sampleRate }

// MaxVoices returns the size of the voice pool.
func (m *Manager) MaxVoices() int { return len(m.voices) }

// MasterVolume returns the output volume.
func (m *Manager) MasterVolume() float64 { return m.masterVolume }

// SetMasterVolume sets the output volume, clamped to [0, 1].
func (m *Manager) SetMasterVolume(volume float64) {
	if !isFinite(volume) {
		return
	}

	m.masterVolume = clamp(volume, 0, 1)
}

// StealStrategy returns the active voice-stealing strategy.
func (m *Manager) StealStrategy() StealStrategy { return m.strategy }

// SetStealStrategy switches the strategy. Invalid values are ignored.
func (m *Manager) SetStealStrategy(strategy StealStrategy) {
	if strategy >= StealQuietest && strategy <= StealHighest {
		m.strategy = strategy
	}
}

// Parameters returns the shared voice parameter snapshot.
func (m *Manager) Parameters() voice.Parameters { return m.params }

// SetParameters installs a snapshot on the manager and every voice.
func (m *Manager) SetParameters(params voice.Parameters) {
	m.params = params
	for _, v := range m.voices {
		v.SetParameters(params)
	}
}

// NoteOn starts a note. Out-of-range notes are ignored, velocity 0 acts as
// NoteOff, and a duplicate NoteOn for a sounding note is a no-op so OS key
// repeat cannot restart the envelope.
func (m *Manager) NoteOn(note, velocity int) {
	if note < 0 || note > 127 {
		return
	}

	if velocity < 0 {
		velocity = 0
	}

	if velocity > 127 {
		velocity = 127
	}

	if velocity == 0 {
		m.NoteOff(note)
		return
	}

	if _, sounding := m.noteMap[note]; sounding {
		return
	}

	idx := m.allocateVoice()
	v := m.voices[idx]

	v.SetParameters(m.params)
	v.NoteOn(note, velocity)

	m.noteMap[note] = idx
}

// NoteOff releases a note. Unknown notes are ignored.
func (m *Manager) NoteOff(note int) {
	idx, ok := m.noteMap[note]
	if !ok {
		return
	}

	delete(m.noteMap, note)
	m.voices[idx].NoteOff()
}

// AllNotesOff releases every sounding note through its envelope.
func (m *Manager) AllNotesOff() {
	for note, idx := range m.noteMap {
		delete(m.noteMap, note)
		m.voices[idx].NoteOff()
	}
}

// Panic silences everything immediately, skipping release ramps.
func (m *Manager) Panic() {
	clear(m.noteMap)

	for _, v := range m.voices {
		v.Reset()
	}
}

// ActiveVoiceCount returns the number of sounding voices.
func (m *Manager) ActiveVoiceCount() int {
	count := 0

	for _, v := range m.voices {
		if v.IsActive() {
			count++
		}
	}

	return count
}

// PlayingNotes returns the MIDI notes currently held.
func (m *Manager) PlayingNotes() []int {
	return m.PlayingNotesInto(nil)
}

// PlayingNotesInto appends the held MIDI notes to dst and returns the
// result. Passing a slice with enough capacity keeps it allocation free
// for callers on the audio thread.
func (m *Manager) PlayingNotesInto(dst []int) []int {
	for note := range m.noteMap {
		dst = append(dst, note)
	}

	return dst
}

// Snapshot returns a state snapshot for displays.
func (m *Manager) Snapshot() State {
	return State{
		ActiveVoices: m.ActiveVoiceCount(),
		NotesPlaying: m.PlayingNotes(),
		MasterVolume: m.masterVolume,
	}
}

// Generate renders exactly len(dst) mixed samples into dst, overwriting it.
func (m *Manager) Generate(dst []float64) {
	n := len(dst)
	if n == 0 {
		return
	}

	for i := range dst {
		dst[i] = 0
	}

	if len(m.voiceBuf) < n {
		m.voiceBuf = make([]float64, n)
	}

	buf := m.voiceBuf[:n]
	active := 0

	for _, v := range m.voices {
		if !v.IsActive() {
			continue
		}

		v.Generate(buf)
		vecmath.AddBlockInPlace(dst, buf)

		active++
	}

	// Ease the 1/sqrt(n) normalization so voice-count changes glide
	// instead of stepping.
	target := 1 / math.Sqrt(float64(max(active, 1)))
	m.smoothNorm = normSmoothing*m.smoothNorm + (1-normSmoothing)*target

	vecmath.ScaleBlock(dst, dst, m.smoothNorm*m.masterVolume)

	peak := 0.0
	for _, s := range dst {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}

	if peak > limitThreshold {
		for i := range dst {
			dst[i] = math.Tanh(dst[i])
		}
	}
}

func (m *Manager) allocateVoice() int {
	for i, v := range m.voices {
		if !v.IsActive() {
			return i
		}
	}

	idx := m.stealCandidate()
	stolen := m.voices[idx]

	if note := stolen.Note(); note >= 0 {
		delete(m.noteMap, note)
	}

	stolen.Steal()

	return idx
}

func (m *Manager) stealCandidate() int {
	switch m.strategy {
	case StealQuietest, StealOldest:
		// Both score by envelope value with a strong preference for
		// releasing voices; decayed envelopes double as an age proxy.
		bestIdx := 0
		bestScore := math.Inf(1)

		for i, v := range m.voices {
			score := v.Age()
			if v.IsReleasing() {
				score -= releasingBias
			}

			if score < bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		return bestIdx

	case StealLowest:
		bestIdx := 0
		lowest := 128

		for i, v := range m.voices {
			if note := v.Note(); note >= 0 && note < lowest {
				lowest = note
				bestIdx = i
			}
		}

		return bestIdx

	case StealHighest:
		bestIdx := 0
		highest := -1

		for i, v := range m.voices {
			if note := v.Note(); note > highest {
				highest = note
				bestIdx = i
			}
		}

		return bestIdx

	default:
		return 0
	}
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
