// Package record captures rendered audio from the real-time callback
// and exports it to WAV files. The capture path is lock-free: the audio
// thread appends into a pre-allocated buffer and publishes progress
// through atomics, so it never contends with the control thread.
package record

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

const (
	// DefaultMaxDurationSeconds caps a take at 30 minutes.
	DefaultMaxDurationSeconds = 30 * 60

	armThreshold = 0.01
	maxUndoDepth = 3
)

// State describes the recorder lifecycle.
type State int32

const (
	StateIdle State = iota
	StateArmed
	StateRecording
	StatePaused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Info summarizes a recording.
type Info struct {
	DurationSamples int
	DurationSeconds float64
	PeakLevel       float64
	SampleRate      int
}

// Option mutates construction-time recorder settings.
type Option func(*recorderConfig) error

type recorderConfig struct {
	maxDurationSeconds float64
}

// WithMaxDuration caps the take length. The full buffer is allocated up
// front so the audio thread never allocates.
func WithMaxDuration(seconds float64) Option {
	return func(cfg *recorderConfig) error {
		if math.IsNaN(seconds) || seconds <= 0 {
			return fmt.Errorf("record: max duration must be > 0: %f", seconds)
		}
		cfg.maxDurationSeconds = seconds
		return nil
	}
}

// Recorder captures mono audio from the audio callback. Append is
// wait-free; all lifecycle control happens on the control thread.
// Samples are stored as float32, matching WAV export precision, to
// halve the footprint of long takes.
type Recorder struct {
	sampleRate int
	buffer     []float32

	state    atomic.Int32
	writePos atomic.Uint64
	peakBits atomic.Uint64

	// Control-thread state. The audio thread never touches these.
	mu        sync.Mutex
	undoStack [][]float32
}

// New creates a recorder for the given sample rate.
func New(sampleRate int, opts ...Option) (*Recorder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("record: sample rate must be > 0: %d", sampleRate)
	}
	cfg := recorderConfig{maxDurationSeconds: DefaultMaxDurationSeconds}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	return &Recorder{
		sampleRate: sampleRate,
		buffer:     make([]float32, int(cfg.maxDurationSeconds*float64(sampleRate))),
	}, nil
}

// SampleRate returns the capture sample rate.
func (r *Recorder) SampleRate() int { return r.sampleRate }

// State returns the current lifecycle state.
func (r *Recorder) State() State { return State(r.state.Load()) }

// IsRecording reports whether samples are being captured.
func (r *Recorder) IsRecording() bool { return r.State() == StateRecording }

// IsArmed reports whether the recorder is waiting for signal.
func (r *Recorder) IsArmed() bool { return r.State() == StateArmed }

// DurationSamples returns how many samples have been captured.
func (r *Recorder) DurationSamples() int { return int(r.writePos.Load()) }

// DurationSeconds returns the captured length in seconds.
func (r *Recorder) DurationSeconds() float64 {
	return float64(r.writePos.Load()) / float64(r.sampleRate)
}

// PeakLevel returns the largest absolute sample captured so far.
func (r *Recorder) PeakLevel() float64 {
	return math.Float64frombits(r.peakBits.Load())
}

// Arm puts an idle recorder into the armed state; capture starts on the
// first buffer whose peak exceeds the arm threshold.
func (r *Recorder) Arm() {
	r.state.CompareAndSwap(int32(StateIdle), int32(StateArmed))
}

// Start begins capturing immediately, pushing any previous take onto
// the undo stack.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.State()
	if s != StateIdle && s != StateArmed {
		return
	}
	r.pushUndoLocked()
	r.writePos.Store(0)
	r.peakBits.Store(0)
	r.state.Store(int32(StateRecording))
}

// Stop ends the take.
func (r *Recorder) Stop() {
	r.state.Store(int32(StateIdle))
}

// Pause suspends capture without ending the take.
func (r *Recorder) Pause() {
	r.state.CompareAndSwap(int32(StateRecording), int32(StatePaused))
}

// Resume continues a paused take.
func (r *Recorder) Resume() {
	r.state.CompareAndSwap(int32(StatePaused), int32(StateRecording))
}

// Append stores one rendered buffer. It is called from the audio thread
// and reports whether the samples were captured; a full buffer or a
// recorder that is not running drops them. It never blocks and never
// allocates.
func (r *Recorder) Append(samples []float64) bool {
	state := r.State()
	if state != StateRecording && state != StateArmed {
		return false
	}

	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}

	if state == StateArmed {
		if peak <= armThreshold {
			return false
		}
		r.state.Store(int32(StateRecording))
	}

	pos := r.writePos.Load()
	n := uint64(len(samples))
	if pos+n > uint64(len(r.buffer)) {
		return false
	}
	for i, s := range samples {
		r.buffer[pos+uint64(i)] = float32(s)
	}
	// Publish the new length after the samples are in place so readers
	// never see uninitialized data.
	r.writePos.Store(pos + n)

	for {
		old := r.peakBits.Load()
		if peak <= math.Float64frombits(old) {
			break
		}
		if r.peakBits.CompareAndSwap(old, math.Float64bits(peak)) {
			break
		}
	}
	return true
}

// Audio returns a copy of the captured take.
func (r *Recorder) Audio() []float64 {
	n := int(r.writePos.Load())
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(r.buffer[i])
	}
	return out
}

// GetInfo returns a summary of the current take.
func (r *Recorder) GetInfo() Info {
	return Info{
		DurationSamples: r.DurationSamples(),
		DurationSeconds: r.DurationSeconds(),
		PeakLevel:       r.PeakLevel(),
		SampleRate:      r.sampleRate,
	}
}

// Clear discards the take of an idle recorder, saving it for undo.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State() != StateIdle {
		return
	}
	r.pushUndoLocked()
	r.writePos.Store(0)
	r.peakBits.Store(0)
}

// CanUndo reports whether a previous take can be restored.
func (r *Recorder) CanUndo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.undoStack) > 0
}

// Undo restores the most recently replaced take. It only operates on an
// idle recorder and reports whether anything was restored.
func (r *Recorder) Undo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State() != StateIdle || len(r.undoStack) == 0 {
		return false
	}
	previous := r.undoStack[len(r.undoStack)-1]
	r.undoStack = r.undoStack[:len(r.undoStack)-1]

	n := copy(r.buffer, previous)
	peak := 0.0
	for _, s := range previous {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	r.peakBits.Store(math.Float64bits(peak))
	r.writePos.Store(uint64(n))
	return true
}

func (r *Recorder) pushUndoLocked() {
	n := int(r.writePos.Load())
	if n == 0 {
		return
	}
	take := make([]float32, n)
	copy(take, r.buffer[:n])
	r.undoStack = append(r.undoStack, take)
	if len(r.undoStack) > maxUndoDepth {
		r.undoStack = r.undoStack[1:]
	}
}
