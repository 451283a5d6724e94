package preset

// factoryPresets holds the built-in patches.
var factoryPresets = map[string]Preset{
	"Init":             Init(),
	"Fat Bass":         fatBass(),
	"Bright Lead":      brightLead(),
	"Soft Pad":         softPad(),
	"Retro Square":     retroSquare(),
	"Ethereal Strings": etherealStrings(),
	"Plucky Keys":      pluckyKeys(),
	"Warm Organ":       warmOrgan(),
	"Acid Squelch":     acidSquelch(),
	"Cosmic Bell":      cosmicBell(),
}

func fatBass() Preset {
	p := Init()
	p.Name = "Fat Bass"
	p.Osc1Level = 0.8
	p.Osc2Waveform = "square"
	p.Osc2Level = 0.6
	p.Osc2Detune = 7.0
	p.FilterCutoff = 500.0
	p.FilterResonance = 0.5
	p.FilterEnvAmount = 0.7
	p.AmpAttack = 0.005
	p.AmpDecay = 0.15
	p.AmpSustain = 0.6
	p.AmpRelease = 0.2
	return p
}

func brightLead() Preset {
	p := Init()
	p.Name = "Bright Lead"
	p.Osc1Level = 0.9
	p.Osc2Level = 0.7
	p.Osc2Detune = 10.0
	p.FilterCutoff = 8000.0
	p.FilterResonance = 0.4
	p.FilterEnvAmount = 0.3
	p.AmpSustain = 0.8
	p.LFORate = 6.0
	p.LFODepth = 0.3
	p.LFOToPitch = 0.1
	return p
}

func softPad() Preset {
	p := Init()
	p.Name = "Soft Pad"
	p.Osc1Waveform = "triangle"
	p.Osc1Level = 0.6
	p.Osc2Waveform = "sine"
	p.Osc2Detune = 3.0
	p.FilterCutoff = 3000.0
	p.FilterResonance = 0.2
	p.FilterEnvAmount = 0.2
	p.AmpAttack = 0.5
	p.AmpDecay = 0.3
	p.AmpRelease = 1.0
	p.LFORate = 2.0
	p.LFODepth = 0.2
	p.LFOToFilter = 0.3
	return p
}

func retroSquare() Preset {
	p := Init()
	p.Name = "Retro Square"
	p.Osc1Waveform = "square"
	p.Osc2Waveform = "square"
	p.Osc2Detune = 12.0
	p.Osc2Octave = -1
	p.FilterCutoff = 1500.0
	p.FilterResonance = 0.6
	p.FilterEnvAmount = 0.6
	p.AmpDecay = 0.2
	p.AmpSustain = 0.5
	p.AmpRelease = 0.4
	return p
}

func etherealStrings() Preset {
	p := Init()
	p.Name = "Ethereal Strings"
	p.Osc1Level = 0.5
	p.Osc1Detune = -7.0
	p.Osc2Detune = 7.0
	p.FilterCutoff = 2500.0
	p.FilterResonance = 0.15
	p.FilterEnvAmount = 0.25
	p.AmpAttack = 0.8
	p.AmpDecay = 0.4
	p.AmpSustain = 0.85
	p.AmpRelease = 1.5
	p.LFORate = 0.3
	p.LFODepth = 0.35
	p.LFOToPitch = 0.05
	p.LFOToFilter = 0.2
	return p
}

func pluckyKeys() Preset {
	p := Init()
	p.Name = "Plucky Keys"
	p.Osc1Waveform = "triangle"
	p.Osc1Level = 0.8
	p.Osc2Waveform = "sine"
	p.Osc2Level = 0.4
	p.Osc2Octave = 1
	p.FilterCutoff = 4000.0
	p.FilterResonance = 0.25
	p.FilterEnvAmount = 0.6
	p.AmpAttack = 0.002
	p.AmpDecay = 0.35
	p.AmpSustain = 0.3
	p.AmpRelease = 0.4
	return p
}

func warmOrgan() Preset {
	p := Init()
	p.Name = "Warm Organ"
	p.Osc1Waveform = "sine"
	p.Osc2Waveform = "sine"
	p.Osc2Octave = 1
	p.FilterResonance = 0.1
	p.FilterEnvAmount = 0.1
	p.AmpAttack = 0.02
	p.AmpDecay = 0.05
	p.AmpSustain = 0.9
	p.AmpRelease = 0.15
	p.LFORate = 6.5
	p.LFODepth = 0.2
	p.LFOToPitch = 0.08
	return p
}

func acidSquelch() Preset {
	p := Init()
	p.Name = "Acid Squelch"
	p.Osc1Level = 0.9
	p.Osc1Octave = -1
	p.Osc2Waveform = "square"
	p.Osc2Level = 0.3
	p.Osc2Octave = -1
	p.FilterCutoff = 500.0
	p.FilterResonance = 0.85
	p.FilterEnvAmount = 0.9
	p.AmpAttack = 0.001
	p.AmpDecay = 0.25
	p.AmpSustain = 0.0
	p.AmpRelease = 0.1
	return p
}

func cosmicBell() Preset {
	p := Init()
	p.Name = "Cosmic Bell"
	p.Osc1Waveform = "triangle"
	p.Osc1Level = 0.6
	p.Osc1Octave = 1
	p.Osc2Waveform = "sine"
	p.Osc2Level = 0.7
	p.Osc2Detune = 12.0
	p.Osc2Octave = 2
	p.FilterCutoff = 6000.0
	p.FilterResonance = 0.35
	p.FilterEnvAmount = 0.4
	p.AmpAttack = 0.001
	p.AmpDecay = 1.5
	p.AmpSustain = 0.0
	p.AmpRelease = 2.0
	p.LFORate = 0.2
	p.LFODepth = 0.25
	p.LFOToPitch = 0.02
	p.LFOToFilter = 0.15
	return p
}
