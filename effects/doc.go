// Package effects provides the send/insert effects used by the synth
// engine: distortion, chorus, delay, flanger, and reverb, plus a fixed
// serial chain that runs them in a musically sensible order.
//
// All effects process mono float64 buffers in place and are safe to
// call from a real-time audio callback once constructed. Construction
// validates parameters and returns errors; runtime setters clamp out
// of range values silently and ignore non-finite input so the audio
// thread never has to handle an error path.
package effects
