package engine

import "fmt"

const (
	// DefaultSampleRate is the standard CD sample rate.
	DefaultSampleRate = 44100
	// DefaultBufferSize gives about 11.6 ms of latency at 44.1 kHz.
	DefaultBufferSize = 512

	minBufferSize = 64
	maxBufferSize = 4096
)

// Config holds the audio stream settings the host driver is opened
// with. The zero value is not valid; use DefaultConfig.
type Config struct {
	// SampleRate in Hz. Must be one of 22050, 44100, 48000, or 96000.
	SampleRate int
	// BufferSize in samples per callback, in [64, 4096].
	BufferSize int
	// Channels is 1 for mono or 2 for duplicated stereo.
	Channels int
}

// DefaultConfig returns mono output at 44.1 kHz with a 512 sample
// buffer.
func DefaultConfig() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		BufferSize: DefaultBufferSize,
		Channels:   1,
	}
}

// Validate checks the configuration against the supported ranges.
func (c Config) Validate() error {
	switch c.SampleRate {
	case 22050, 44100, 48000, 96000:
	default:
		return fmt.Errorf("engine: unsupported sample rate: %d", c.SampleRate)
	}
	if c.BufferSize < minBufferSize || c.BufferSize > maxBufferSize {
		return fmt.Errorf("engine: buffer size must be in [%d, %d]: %d",
			minBufferSize, maxBufferSize, c.BufferSize)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("engine: channels must be 1 or 2: %d", c.Channels)
	}
	return nil
}

// LatencyMs returns the duration of one buffer in milliseconds.
func (c Config) LatencyMs() float64 {
	return float64(c.BufferSize) / float64(c.SampleRate) * 1000.0
}
