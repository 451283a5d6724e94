// Package voice combines two oscillators, a ladder filter, two envelopes,
// and an LFO into one monophonic synthesizer voice.
//
// Signal flow:
//
//	OSC1 + OSC2 (mixed) -> Ladder filter -> VCA (amp envelope) -> output
//
// The LFO modulates pitch, filter cutoff, and pulse width; the filter
// envelope modulates cutoff; the amplitude envelope drives the VCA.
package voice

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-synth/synth/envelope"
	"github.com/cwbudde/algo-synth/synth/filter"
	"github.com/cwbudde/algo-synth/synth/lfo"
	"github.com/cwbudde/algo-synth/synth/osc"
)

const (
	// fadeSeconds is the anti-click ramp applied at note starts and voice
	// steals (3 ms, about 132 samples at 44.1 kHz).
	fadeSeconds = 0.003

	// pitchModSemitones is the full-scale vibrato range.
	pitchModSemitones = 2.0

	// pwModRange is the full-scale pulse-width modulation swing.
	pwModRange = 0.4

	// filterEnvOctaveScale converts the envelope-amount product into the
	// filter's cutoff-mod units.
	filterEnvOctaveScale = 4.0
)

// Parameters is an immutable snapshot of every controllable voice setting.
// Snapshots are built off the audio thread and handed over whole, so the
// voice never sees a half-updated set.
type Parameters struct {
	Osc1Waveform    osc.Waveform
	Osc1Level       float64
	Osc2Waveform    osc.Waveform
	Osc2Level       float64
	Osc2DetuneCents float64

	FilterCutoffHz  float64
	FilterResonance float64
	FilterEnvAmount float64

	AmpAttack  float64
	AmpDecay   float64
	AmpSustain float64
	AmpRelease float64

	FilterAttack  float64
	FilterDecay   float64
	FilterSustain float64
	FilterRelease float64

	LFOWaveform osc.Waveform
	LFORateHz   float64
	LFODepth    float64
	LFOToPitch  float64
	LFOToFilter float64
	LFOToPW     float64
}

// DefaultParameters returns the init patch: two slightly detuned saws into
// a gently resonant filter.
func DefaultParameters() Parameters {
	return Parameters{
		Osc1Waveform:    osc.WaveformSawtooth,
		Osc1Level:       0.7,
		Osc2Waveform:    osc.WaveformSawtooth,
		Osc2Level:       0.5,
		Osc2DetuneCents: 5,

		FilterCutoffHz:  2000,
		FilterResonance: 0.3,
		FilterEnvAmount: 0,

		AmpAttack:  0.01,
		AmpDecay:   0.1,
		AmpSustain: 0.7,
		AmpRelease: 0.3,

		FilterAttack:  0.01,
		FilterDecay:   0.2,
		FilterSustain: 0.3,
		FilterRelease: 0.3,

		LFOWaveform: osc.WaveformSine,
		LFORateHz:   5,
		LFODepth:    0.3,
	}
}

// Voice is a complete monophonic sound chain. Multiple voices under a
// manager provide polyphony.
type Voice struct {
	sampleRate float64
	id         int

	note          int
	velocity      int
	velocityScale float64

	osc1      *osc.Oscillator
	osc2      *osc.Oscillator
	ladder    *filter.Ladder
	ampEnv    *envelope.ADSR
	filterEnv *envelope.ADSR
	mod       *lfo.LFO

	fadeSamples int
	fadeIn      int
	fadeOut     int
	stealing    bool

	params Parameters

	osc2Buf      []float64
	ampEnvBuf    []float64
	filterEnvBuf []float64
	lfoBuf       []float64
}

// New constructs a voice with the default patch.
func New(sampleRate float64, id int) (*Voice, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("voice: sample rate must be > 0 and finite: %f", sampleRate)
	}

	osc1, err := osc.New(sampleRate)
	if err != nil {
		return nil, err
	}

	osc2, err := osc.New(sampleRate)
	if err != nil {
		return nil, err
	}

	ladder, err := filter.New(sampleRate)
	if err != nil {
		return nil, err
	}

	ampEnv, err := envelope.New(sampleRate)
	if err != nil {
		return nil, err
	}

	filterEnv, err := envelope.New(sampleRate)
	if err != nil {
		return nil, err
	}

	mod, err := lfo.New(sampleRate)
	if err != nil {
		return nil, err
	}

	v := &Voice{
		sampleRate:  sampleRate,
		id:          id,
		note:        -1,
		osc1:        osc1,
		osc2:        osc2,
		ladder:      ladder,
		ampEnv:      ampEnv,
		filterEnv:   filterEnv,
		mod:         mod,
		fadeSamples: int(sampleRate * fadeSeconds),
		params:      DefaultParameters(),
	}
	v.applyParameters()

	return v, nil
}

// ID returns the voice identifier assigned at construction.
func (v *Voice) ID() int { return v.id }

// SampleRate returns the sample rate in Hz.
func (v *Voice) SampleRate() float64 { return v.sampleRate }

// Note returns the sounding MIDI note, or -1 when the voice is free.
func (v *Voice) Note() int { return v.note }

// Velocity returns the note velocity (0-127).
func (v *Voice) Velocity() int { return v.velocity }

// Parameters returns the current parameter snapshot.
func (v *Voice) Parameters() Parameters { return v.params }

// SetParameters installs a new snapshot and pushes it into the components.
func (v *Voice) SetParameters(params Parameters) {
	v.params = params
	v.applyParameters()
}

func (v *Voice) applyParameters() {
	p := &v.params

	v.osc1.SetWaveform(p.Osc1Waveform)
	v.osc1.SetLevel(p.Osc1Level)
	v.osc2.SetWaveform(p.Osc2Waveform)
	v.osc2.SetLevel(p.Osc2Level)

	v.ladder.SetCutoffHz(p.FilterCutoffHz)
	v.ladder.SetResonance(p.FilterResonance)

	v.ampEnv.SetAttack(p.AmpAttack)
	v.ampEnv.SetDecay(p.AmpDecay)
	v.ampEnv.SetSustain(p.AmpSustain)
	v.ampEnv.SetRelease(p.AmpRelease)

	v.filterEnv.SetAttack(p.FilterAttack)
	v.filterEnv.SetDecay(p.FilterDecay)
	v.filterEnv.SetSustain(p.FilterSustain)
	v.filterEnv.SetRelease(p.FilterRelease)

	v.mod.SetWaveform(p.LFOWaveform)
	v.mod.SetRateHz(p.LFORateHz)
	v.mod.SetDepth(p.LFODepth)
}

// NoteOn starts a note: tunes both oscillators, resets phases and filter
// state, gates the envelopes, and arms the anti-click fade-in.
func (v *Voice) NoteOn(note, velocity int) {
	v.note = note
	v.velocity = velocity
	v.velocityScale = float64(velocity) / 127

	freq := osc.MIDIToFrequency(note)
	v.osc1.SetFrequencyHz(freq)

	detuneRatio := math.Pow(2, v.params.Osc2DetuneCents/1200)
	v.osc2.SetFrequencyHz(freq * detuneRatio)

	v.osc1.ResetPhase()
	v.osc2.ResetPhase()
	v.ladder.Reset()
	v.mod.ResetPhase()

	v.ampEnv.GateOn()
	v.filterEnv.GateOn()

	v.fadeIn = 0
	v.stealing = false
}

// NoteOff releases the note. The voice keeps sounding until the amplitude
// envelope finishes its release.
func (v *Voice) NoteOff() {
	if v.note >= 0 {
		v.ampEnv.GateOff()
		v.filterEnv.GateOff()
	}
}

// IsActive reports whether the voice is producing sound.
func (v *Voice) IsActive() bool {
	return v.ampEnv.IsActive()
}

// IsReleasing reports whether the amplitude envelope is releasing.
func (v *Voice) IsReleasing() bool {
	return v.ampEnv.IsReleasing()
}

// Steal begins a fast fade-out so the voice can be reassigned without a
// click. The voice frees itself once the fade completes inside Generate.
func (v *Voice) Steal() {
	v.fadeOut = v.fadeSamples
	v.stealing = true
}

// Reset forces the voice to idle immediately. For panic handling; skips
// the anti-click ramps.
func (v *Voice) Reset() {
	v.note = -1
	v.velocity = 0
	v.velocityScale = 0
	v.ampEnv.Reset()
	v.filterEnv.Reset()
	v.ladder.Reset()
	v.osc1.ResetPhase()
	v.osc2.ResetPhase()
	v.mod.ResetPhase()
	v.fadeIn = v.fadeSamples
	v.fadeOut = 0
	v.stealing = false
}

// Age returns the steal-priority proxy: the amplitude envelope value, or 0
// when idle. Quieter voices are better steal candidates.
func (v *Voice) Age() float64 {
	if !v.IsActive() {
		return 0
	}

	return v.ampEnv.Value()
}

// Generate renders exactly len(dst) samples into dst, overwriting it.
func (v *Voice) Generate(dst []float64) {
	n := len(dst)
	if n == 0 {
		return
	}

	if !v.IsActive() {
		for i := range dst {
			dst[i] = 0
		}

		return
	}

	v.ensureBuffers(n)

	p := &v.params

	lfoOut := v.lfoBuf[:n]
	v.mod.Generate(lfoOut)

	// Modulation targets are held per buffer; the first LFO sample sets
	// the rate for the whole block.
	lfoVal := lfoOut[0]

	pitchMod := 0.0
	if p.LFOToPitch > 0 {
		pitchMod = lfoVal * p.LFOToPitch * pitchModSemitones
	}

	v.osc1.SetPitchMod(pitchMod)
	v.osc2.SetPitchMod(pitchMod)

	pwMod := 0.0
	if p.LFOToPW > 0 {
		pwMod = lfoVal * p.LFOToPW * pwModRange
	}

	v.osc1.SetPulseWidthMod(pwMod)
	v.osc2.SetPulseWidthMod(pwMod)

	v.osc1.Generate(dst)

	osc2Out := v.osc2Buf[:n]
	v.osc2.Generate(osc2Out)
	vecmath.AddBlockInPlace(dst, osc2Out)

	// Keep the summed oscillators from clipping while preserving level
	// differences below half scale.
	totalLevel := p.Osc1Level + p.Osc2Level
	if totalLevel > 0 {
		vecmath.ScaleBlock(dst, dst, 0.5/math.Max(0.5, totalLevel*0.5))
	}

	filterEnvOut := v.filterEnvBuf[:n]
	v.filterEnv.Generate(filterEnvOut)

	cutoffMod := filterEnvOut[0] * p.FilterEnvAmount * filterEnvOctaveScale
	if p.LFOToFilter > 0 {
		cutoffMod += lfoVal * p.LFOToFilter
	}

	v.ladder.SetCutoffMod(cutoffMod)
	v.ladder.ProcessInPlace(dst)

	ampEnvOut := v.ampEnvBuf[:n]
	v.ampEnv.Generate(ampEnvOut)
	vecmath.MulBlockInPlace(dst, ampEnvOut)

	vecmath.ScaleBlock(dst, dst, v.velocityScale)

	if v.fadeIn < v.fadeSamples {
		for i := 0; i < n && v.fadeIn < v.fadeSamples; i++ {
			dst[i] *= float64(v.fadeIn) / float64(v.fadeSamples)
			v.fadeIn++
		}
	}

	if v.stealing && v.fadeOut > 0 {
		i := 0
		for ; i < n && v.fadeOut > 0; i++ {
			dst[i] *= float64(v.fadeOut) / float64(v.fadeSamples)
			v.fadeOut--
		}

		if v.fadeOut <= 0 {
			// The voice is freed; the rest of the buffer must be silent.
			for ; i < n; i++ {
				dst[i] = 0
			}
			v.completeSteal()
		}
	}

	if !v.ampEnv.IsActive() {
		v.note = -1
	}
}

// completeSteal frees the voice after the steal fade. Filter state is kept
// so the next NoteOn's reset is what clears it.
func (v *Voice) completeSteal() {
	v.note = -1
	v.velocity = 0
	v.velocityScale = 0
	v.ampEnv.Reset()
	v.filterEnv.Reset()
	v.stealing = false
}

func (v *Voice) ensureBuffers(n int) {
	if len(v.osc2Buf) >= n {
		return
	}

	v.osc2Buf = make([]float64, n)
	v.ampEnvBuf = make([]float64, n)
	v.filterEnvBuf = make([]float64, n)
	v.lfoBuf = make([]float64, n)
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
