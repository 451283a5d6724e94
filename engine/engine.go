// Package engine ties the synthesis core together behind the real-time
// audio callback contract: a host driver calls Process with a fixed
// size buffer, and the engine drains deferred parameter edits, renders
// the voice mix, adds the metronome, and runs the effect chain without
// allocating or blocking.
//
// Two threads are involved. The audio thread owns every audio-rate
// object and is the only caller of Process. The control thread talks to
// the engine exclusively through lock-free queues (parameter edits and
// note events) and reads output through the Monitor.
package engine

import (
	"math"
	"strings"
	"sync/atomic"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-synth/effects"
	"github.com/cwbudde/algo-synth/synth/manager"
	"github.com/cwbudde/algo-synth/synth/osc"
	"github.com/cwbudde/algo-synth/synth/voice"
)

const noteEventCapacity = 128

// Capture receives every rendered buffer, e.g. for recording. Append
// must be lock-free and non-blocking; it reports whether the samples
// were stored.
type Capture interface {
	Append(samples []float64) bool
}

type noteEventKind int

const (
	eventNoteOn noteEventKind = iota
	eventNoteOff
	eventAllNotesOff
	eventPanic
)

type noteEvent struct {
	kind     noteEventKind
	note     int
	velocity int
}

// Option mutates construction-time engine settings.
type Option func(*engineConfig) error

type engineConfig struct {
	managerOpts []manager.Option
	capture     Capture
	paramCap    int
}

// WithMaxVoices sets the polyphony limit.
func WithMaxVoices(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.managerOpts = append(cfg.managerOpts, manager.WithMaxVoices(n))
		return nil
	}
}

// WithMasterVolume sets the output gain.
func WithMasterVolume(volume float64) Option {
	return func(cfg *engineConfig) error {
		cfg.managerOpts = append(cfg.managerOpts, manager.WithMasterVolume(volume))
		return nil
	}
}

// WithStealStrategy selects how voices are reclaimed at full polyphony.
func WithStealStrategy(strategy manager.StealStrategy) Option {
	return func(cfg *engineConfig) error {
		cfg.managerOpts = append(cfg.managerOpts, manager.WithStealStrategy(strategy))
		return nil
	}
}

// WithCapture attaches a recording sink to the callback.
func WithCapture(capture Capture) Option {
	return func(cfg *engineConfig) error {
		cfg.capture = capture
		return nil
	}
}

// WithParameterCapacity sizes the parameter channel.
func WithParameterCapacity(capacity int) Option {
	return func(cfg *engineConfig) error {
		cfg.paramCap = capacity
		return nil
	}
}

// Engine is the root of the real-time path.
type Engine struct {
	cfg       Config
	manager   *manager.Manager
	chain     *effects.Chain
	metronome *Metronome
	params    *ParameterChannel
	notes     *spscRing[noteEvent]
	monitor   *Monitor
	capture   Capture

	voiceParams  voice.Parameters
	metronomeBuf []float64
	notesScratch []int

	underruns atomic.Uint64
	lastFault atomic.Pointer[string]
}

var faultNonFinite = "non-finite sample in rendered buffer"

// New creates an engine for the given stream configuration.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ec := engineConfig{paramCap: defaultParameterCapacity}
	for _, opt := range opts {
		if err := opt(&ec); err != nil {
			return nil, err
		}
	}

	sampleRate := float64(cfg.SampleRate)
	mgr, err := manager.New(sampleRate, ec.managerOpts...)
	if err != nil {
		return nil, err
	}
	chain, err := effects.NewChain(sampleRate)
	if err != nil {
		return nil, err
	}
	metro, err := NewMetronome(sampleRate)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:          cfg,
		manager:      mgr,
		chain:        chain,
		metronome:    metro,
		params:       NewParameterChannel(ec.paramCap),
		notes:        newSPSCRing[noteEvent](noteEventCapacity),
		monitor:      NewMonitor(cfg.BufferSize, mgr.MaxVoices()),
		capture:      ec.capture,
		voiceParams:  voice.DefaultParameters(),
		metronomeBuf: make([]float64, cfg.BufferSize),
		notesScratch: make([]int, 0, mgr.MaxVoices()),
	}, nil
}

// Configuration returns the stream settings.
func (e *Engine) Configuration() Config { return e.cfg }

// Chain returns the effect chain. Outside of tests the control thread
// must route changes through SetParameter instead of mutating stages.
func (e *Engine) Chain() *effects.Chain { return e.chain }

// Metronome returns the click track generator.
func (e *Engine) Metronome() *Metronome { return e.metronome }

// Monitor returns the display hand-off buffer.
func (e *Engine) Monitor() *Monitor { return e.monitor }

// Underruns returns how many buffers were replaced with silence or
// reported late by the host.
func (e *Engine) Underruns() uint64 { return e.underruns.Load() }

// ReportUnderrun lets the host count a driver-signalled underrun.
func (e *Engine) ReportUnderrun() { e.underruns.Add(1) }

// LastFault returns a description of the most recent callback fault, or
// the empty string.
func (e *Engine) LastFault() string {
	if p := e.lastFault.Load(); p != nil {
		return *p
	}
	return ""
}

// ClearFault resets the fault record.
func (e *Engine) ClearFault() { e.lastFault.Store(nil) }

// NoteOn queues a note-on for the next callback. It reports whether the
// event was accepted.
func (e *Engine) NoteOn(note, velocity int) bool {
	return e.notes.push(noteEvent{kind: eventNoteOn, note: note, velocity: velocity})
}

// NoteOff queues a note-off for the next callback.
func (e *Engine) NoteOff(note int) bool {
	return e.notes.push(noteEvent{kind: eventNoteOff, note: note})
}

// AllNotesOff queues a release of every held note.
func (e *Engine) AllNotesOff() bool {
	return e.notes.push(noteEvent{kind: eventAllNotesOff})
}

// Panic queues an immediate hard stop of all voices, bypassing release
// and fade-out.
func (e *Engine) Panic() bool {
	return e.notes.push(noteEvent{kind: eventPanic})
}

// SetParameter queues a numeric parameter edit. It reports whether the
// edit was accepted; a full channel drops it.
func (e *Engine) SetParameter(name string, value float64) bool {
	return e.params.Push(Change{Name: name, Value: value})
}

// SetParameterText queues a string-valued parameter edit, used for
// waveform and distortion mode names.
func (e *Engine) SetParameterText(name, text string) bool {
	return e.params.Push(Change{Name: name, Text: text})
}

// SetParameterBool queues an on/off parameter edit.
func (e *Engine) SetParameterBool(name string, on bool) bool {
	value := 0.0
	if on {
		value = 1.0
	}
	return e.params.Push(Change{Name: name, Value: value})
}

// Process renders exactly len(dst) samples. It is the audio callback
// root: it drains pending edits and note events, renders the voice mix,
// adds the metronome, runs the effect chain, and publishes the buffer
// to the monitor. A buffer that comes out non-finite is replaced with
// silence and recorded as a fault.
func (e *Engine) Process(dst []float64) {
	if len(dst) == 0 {
		return
	}

	e.params.Drain(e.applyChange)
	e.notes.drain(e.applyNoteEvent)

	e.manager.Generate(dst)

	if e.metronome.Running() {
		clicks := e.ensureMetronomeBuf(len(dst))
		e.metronome.Generate(clicks)
		vecmath.AddBlockInPlace(dst, clicks)
	}

	e.chain.ProcessInPlace(dst)

	for _, s := range dst {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			for i := range dst {
				dst[i] = 0
			}
			e.underruns.Add(1)
			e.lastFault.Store(&faultNonFinite)
			break
		}
	}

	if e.capture != nil {
		e.capture.Append(dst)
	}

	e.notesScratch = e.manager.PlayingNotesInto(e.notesScratch[:0])
	e.monitor.Publish(dst, e.manager.ActiveVoiceCount(), e.notesScratch)
}

func (e *Engine) ensureMetronomeBuf(n int) []float64 {
	if n > len(e.metronomeBuf) {
		e.metronomeBuf = make([]float64, n)
	}
	return e.metronomeBuf[:n]
}

func (e *Engine) applyNoteEvent(ev noteEvent) {
	switch ev.kind {
	case eventNoteOn:
		e.manager.NoteOn(ev.note, ev.velocity)
	case eventNoteOff:
		e.manager.NoteOff(ev.note)
	case eventAllNotesOff:
		e.manager.AllNotesOff()
	case eventPanic:
		e.manager.Panic()
	}
}

func (e *Engine) applyChange(c Change) {
	switch {
	case c.Name == "master_volume":
		e.manager.SetMasterVolume(c.Value)
	case strings.HasPrefix(c.Name, "osc1_"):
		e.applyOscillatorChange(1, strings.TrimPrefix(c.Name, "osc1_"), c)
	case strings.HasPrefix(c.Name, "osc2_"):
		e.applyOscillatorChange(2, strings.TrimPrefix(c.Name, "osc2_"), c)
	case strings.HasPrefix(c.Name, "amp_"):
		e.applyAmpEnvelopeChange(strings.TrimPrefix(c.Name, "amp_"), c.Value)
	case strings.HasPrefix(c.Name, "filter_"):
		e.applyFilterChange(strings.TrimPrefix(c.Name, "filter_"), c.Value)
	case strings.HasPrefix(c.Name, "lfo_"):
		e.applyLFOChange(strings.TrimPrefix(c.Name, "lfo_"), c)
	case strings.HasPrefix(c.Name, "distortion_"):
		e.applyDistortionChange(strings.TrimPrefix(c.Name, "distortion_"), c)
	case strings.HasPrefix(c.Name, "chorus_"):
		e.applyChorusChange(strings.TrimPrefix(c.Name, "chorus_"), c.Value)
	case strings.HasPrefix(c.Name, "delay_"):
		e.applyDelayChange(strings.TrimPrefix(c.Name, "delay_"), c.Value)
	case strings.HasPrefix(c.Name, "flanger_"):
		e.applyFlangerChange(strings.TrimPrefix(c.Name, "flanger_"), c.Value)
	case strings.HasPrefix(c.Name, "reverb_"):
		e.applyReverbChange(strings.TrimPrefix(c.Name, "reverb_"), c.Value)
	case strings.HasPrefix(c.Name, "metronome_"):
		e.applyMetronomeChange(strings.TrimPrefix(c.Name, "metronome_"), c.Value)
	}
}

func (e *Engine) applyOscillatorChange(oscNum int, param string, c Change) {
	switch param {
	case "waveform":
		waveform, err := osc.ParseWaveform(c.Text)
		if err != nil {
			return
		}
		if oscNum == 1 {
			e.voiceParams.Osc1Waveform = waveform
		} else {
			e.voiceParams.Osc2Waveform = waveform
		}
	case "level":
		level := clampFinite(c.Value, 0, 1)
		if oscNum == 1 {
			e.voiceParams.Osc1Level = level
		} else {
			e.voiceParams.Osc2Level = level
		}
	case "detune":
		// Oscillator 1 has no detune control.
		if oscNum == 2 {
			e.voiceParams.Osc2DetuneCents = clampFinite(c.Value, -100, 100)
		}
	case "octave":
		// Octave shifts are applied by the control surface before
		// note-on and carry no voice-level state.
		return
	default:
		return
	}
	e.manager.SetParameters(e.voiceParams)
}

func (e *Engine) applyAmpEnvelopeChange(param string, value float64) {
	switch param {
	case "attack":
		e.voiceParams.AmpAttack = clampFinite(value, 0.001, 10)
	case "decay":
		e.voiceParams.AmpDecay = clampFinite(value, 0.001, 10)
	case "sustain":
		e.voiceParams.AmpSustain = clampFinite(value, 0, 1)
	case "release":
		e.voiceParams.AmpRelease = clampFinite(value, 0.001, 10)
	default:
		return
	}
	e.manager.SetParameters(e.voiceParams)
}

func (e *Engine) applyFilterChange(param string, value float64) {
	switch param {
	case "cutoff":
		e.voiceParams.FilterCutoffHz = clampFinite(value, 20, 20000)
	case "resonance":
		e.voiceParams.FilterResonance = clampFinite(value, 0, 1)
	case "env_amount":
		e.voiceParams.FilterEnvAmount = clampFinite(value, -1, 1)
	case "attack":
		e.voiceParams.FilterAttack = clampFinite(value, 0.001, 10)
	case "decay":
		e.voiceParams.FilterDecay = clampFinite(value, 0.001, 10)
	case "sustain":
		e.voiceParams.FilterSustain = clampFinite(value, 0, 1)
	case "release":
		e.voiceParams.FilterRelease = clampFinite(value, 0.001, 10)
	default:
		return
	}
	e.manager.SetParameters(e.voiceParams)
}

func (e *Engine) applyLFOChange(param string, c Change) {
	switch param {
	case "waveform":
		waveform, err := osc.ParseWaveform(c.Text)
		if err != nil {
			return
		}
		e.voiceParams.LFOWaveform = waveform
	case "rate":
		e.voiceParams.LFORateHz = clampFinite(c.Value, 0.1, 50)
	case "depth":
		e.voiceParams.LFODepth = clampFinite(c.Value, 0, 1)
	case "to_pitch":
		e.voiceParams.LFOToPitch = clampFinite(c.Value, 0, 1)
	case "to_filter":
		e.voiceParams.LFOToFilter = clampFinite(c.Value, 0, 1)
	case "to_pw":
		e.voiceParams.LFOToPW = clampFinite(c.Value, 0, 1)
	default:
		return
	}
	e.manager.SetParameters(e.voiceParams)
}

func (e *Engine) applyDistortionChange(param string, c Change) {
	d := e.chain.Distortion()
	switch param {
	case "enabled":
		d.SetEnabled(c.Value >= 0.5)
	case "drive":
		d.SetDrive(c.Value)
	case "tone":
		d.SetTone(c.Value)
	case "mix":
		d.SetMix(c.Value)
	case "mode":
		mode, err := effects.ParseDistortionMode(c.Text)
		if err != nil {
			return
		}
		d.SetMode(mode)
	}
}

func (e *Engine) applyChorusChange(param string, value float64) {
	c := e.chain.Chorus()
	switch param {
	case "enabled":
		c.SetEnabled(value >= 0.5)
	case "rate":
		c.SetRateHz(value)
	case "depth":
		c.SetDepth(value)
	case "wet":
		c.SetWet(value)
	case "voices":
		c.SetVoices(int(value))
	}
}

func (e *Engine) applyDelayChange(param string, value float64) {
	d := e.chain.Delay()
	switch param {
	case "enabled":
		d.SetEnabled(value >= 0.5)
	case "time":
		d.SetTimeMs(value)
	case "feedback":
		d.SetFeedback(value)
	case "wet":
		d.SetWet(value)
	}
}

func (e *Engine) applyFlangerChange(param string, value float64) {
	f := e.chain.Flanger()
	switch param {
	case "enabled":
		f.SetEnabled(value >= 0.5)
	case "rate":
		f.SetRateHz(value)
	case "depth":
		f.SetDepth(value)
	case "feedback":
		f.SetFeedback(value)
	case "wet":
		f.SetWet(value)
	}
}

func (e *Engine) applyReverbChange(param string, value float64) {
	r := e.chain.Reverb()
	switch param {
	case "enabled":
		r.SetEnabled(value >= 0.5)
	case "room_size":
		r.SetRoomSize(value)
	case "wet":
		r.SetWet(value)
	}
}

func (e *Engine) applyMetronomeChange(param string, value float64) {
	switch param {
	case "enabled":
		if value >= 0.5 {
			e.metronome.Reset()
			e.metronome.Start()
		} else {
			e.metronome.Stop()
		}
	case "bpm":
		e.metronome.SetBPM(value)
	case "volume":
		e.metronome.SetVolume(value)
	}
}

func clampFinite(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
