// Package preset loads, saves, and applies synthesizer patches. A
// preset is a flat JSON object of parameter names; applying one pushes
// every field through the engine's parameter channel, so invalid values
// are dropped per field by the audio thread without failing the load.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Target receives preset parameters. *engine.Engine satisfies it.
type Target interface {
	SetParameter(name string, value float64) bool
	SetParameterText(name, text string) bool
}

// Preset is a full synthesizer patch. Field names match the parameter
// names understood by the engine.
type Preset struct {
	Name string `json:"name"`

	Osc1Waveform string  `json:"osc1_waveform"`
	Osc1Level    float64 `json:"osc1_level"`
	Osc1Detune   float64 `json:"osc1_detune"`
	Osc1Octave   int     `json:"osc1_octave"`

	Osc2Waveform string  `json:"osc2_waveform"`
	Osc2Level    float64 `json:"osc2_level"`
	Osc2Detune   float64 `json:"osc2_detune"`
	Osc2Octave   int     `json:"osc2_octave"`

	FilterCutoff    float64 `json:"filter_cutoff"`
	FilterResonance float64 `json:"filter_resonance"`
	FilterEnvAmount float64 `json:"filter_env_amount"`

	AmpAttack  float64 `json:"amp_attack"`
	AmpDecay   float64 `json:"amp_decay"`
	AmpSustain float64 `json:"amp_sustain"`
	AmpRelease float64 `json:"amp_release"`

	FilterAttack  float64 `json:"filter_attack"`
	FilterDecay   float64 `json:"filter_decay"`
	FilterSustain float64 `json:"filter_sustain"`
	FilterRelease float64 `json:"filter_release"`

	LFOWaveform string  `json:"lfo_waveform"`
	LFORate     float64 `json:"lfo_rate"`
	LFODepth    float64 `json:"lfo_depth"`
	LFOToPitch  float64 `json:"lfo_to_pitch"`
	LFOToFilter float64 `json:"lfo_to_filter"`
	LFOToPW     float64 `json:"lfo_to_pw"`

	MasterVolume float64 `json:"master_volume"`
}

// Init returns the neutral patch every other preset derives from.
func Init() Preset {
	return Preset{
		Name:            "Init",
		Osc1Waveform:    "sawtooth",
		Osc1Level:       0.7,
		Osc2Waveform:    "sawtooth",
		Osc2Level:       0.5,
		Osc2Detune:      5.0,
		FilterCutoff:    2000.0,
		FilterResonance: 0.3,
		AmpAttack:       0.01,
		AmpDecay:        0.1,
		AmpSustain:      0.7,
		AmpRelease:      0.3,
		FilterAttack:    0.01,
		FilterDecay:     0.2,
		FilterSustain:   0.5,
		FilterRelease:   0.2,
		LFOWaveform:     "sine",
		LFORate:         5.0,
		LFODepth:        0.5,
		MasterVolume:    0.7,
	}
}

// Apply pushes every parameter of the preset to the target. It returns
// the number of parameter writes that were accepted into the queue.
func Apply(p Preset, t Target) int {
	accepted := 0
	push := func(ok bool) {
		if ok {
			accepted++
		}
	}

	push(t.SetParameterText("osc1_waveform", p.Osc1Waveform))
	push(t.SetParameter("osc1_level", p.Osc1Level))
	push(t.SetParameter("osc1_detune", p.Osc1Detune))
	push(t.SetParameter("osc1_octave", float64(p.Osc1Octave)))
	push(t.SetParameterText("osc2_waveform", p.Osc2Waveform))
	push(t.SetParameter("osc2_level", p.Osc2Level))
	push(t.SetParameter("osc2_detune", p.Osc2Detune))
	push(t.SetParameter("osc2_octave", float64(p.Osc2Octave)))
	push(t.SetParameter("filter_cutoff", p.FilterCutoff))
	push(t.SetParameter("filter_resonance", p.FilterResonance))
	push(t.SetParameter("filter_env_amount", p.FilterEnvAmount))
	push(t.SetParameter("amp_attack", p.AmpAttack))
	push(t.SetParameter("amp_decay", p.AmpDecay))
	push(t.SetParameter("amp_sustain", p.AmpSustain))
	push(t.SetParameter("amp_release", p.AmpRelease))
	push(t.SetParameter("filter_attack", p.FilterAttack))
	push(t.SetParameter("filter_decay", p.FilterDecay))
	push(t.SetParameter("filter_sustain", p.FilterSustain))
	push(t.SetParameter("filter_release", p.FilterRelease))
	push(t.SetParameterText("lfo_waveform", p.LFOWaveform))
	push(t.SetParameter("lfo_rate", p.LFORate))
	push(t.SetParameter("lfo_depth", p.LFODepth))
	push(t.SetParameter("lfo_to_pitch", p.LFOToPitch))
	push(t.SetParameter("lfo_to_filter", p.LFOToFilter))
	push(t.SetParameter("lfo_to_pw", p.LFOToPW))
	push(t.SetParameter("master_volume", p.MasterVolume))

	return accepted
}

// LoadFile reads a preset from a JSON file. Fields missing from the
// file keep their Init defaults; unknown fields are ignored.
func LoadFile(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("preset: read %s: %w", path, err)
	}
	p := Init()
	p.Name = "" // so a file without a name falls back to its base name
	if err := json.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("preset: parse %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// SaveFile writes the preset as indented JSON, creating the directory
// if needed.
func SaveFile(path string, p Preset) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("preset: encode %s: %w", p.Name, err)
	}
	data = append(data, '\n')
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("preset: create preset directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("preset: write %s: %w", path, err)
	}
	return nil
}

// FileName returns the conventional file name for a preset name, for
// example "Fat Bass" becomes "fat_bass.json".
func FileName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_") + ".json"
}

// Load resolves name as a factory preset first and a file path second.
func Load(name string) (Preset, error) {
	if p, ok := Factory(name); ok {
		return p, nil
	}
	if _, err := os.Stat(name); err == nil {
		return LoadFile(name)
	}
	return Preset{}, fmt.Errorf("preset: unknown preset: %q", name)
}

// Factory returns the built-in preset with the given name.
func Factory(name string) (Preset, bool) {
	p, ok := factoryPresets[name]
	return p, ok
}

// FactoryNames lists the built-in presets in alphabetical order with
// Init first.
func FactoryNames() []string {
	names := make([]string, 0, len(factoryPresets))
	for name := range factoryPresets {
		if name == "Init" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{"Init"}, names...)
}
