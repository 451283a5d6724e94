package record

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
)

// BitDepth selects the WAV sample format.
type BitDepth int

const (
	// Depth16 writes 16-bit PCM, CD quality.
	Depth16 BitDepth = 16
	// Depth24 writes 24-bit PCM.
	Depth24 BitDepth = 24
	// DepthFloat32 writes 32-bit IEEE float.
	DepthFloat32 BitDepth = 32
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// ExportConfig controls WAV export.
type ExportConfig struct {
	// BitDepth is 16, 24, or 32 (float).
	BitDepth BitDepth
	// SampleRate in Hz, in [8000, 192000].
	SampleRate int
	// Channels is 1 for mono or 2 for duplicated stereo.
	Channels int
	// Normalize scales the take so its peak sits HeadroomDB below full
	// scale.
	Normalize bool
	// HeadroomDB is the headroom below 0 dBFS used when normalizing.
	HeadroomDB float64
	// Dither adds triangular dither before integer quantization.
	Dither bool
}

// DefaultExportConfig returns dithered 16-bit mono at 44.1 kHz.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		BitDepth:   Depth16,
		SampleRate: 44100,
		Channels:   1,
		HeadroomDB: 0.5,
		Dither:     true,
	}
}

// Validate checks the configuration.
func (c ExportConfig) Validate() error {
	switch c.BitDepth {
	case Depth16, Depth24, DepthFloat32:
	default:
		return fmt.Errorf("record: bit depth must be 16, 24 or 32: %d", c.BitDepth)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("record: channels must be 1 or 2: %d", c.Channels)
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("record: sample rate out of range: %d", c.SampleRate)
	}
	return nil
}

// ExportWAV writes mono samples in [-1, 1] to path as a WAV file.
func ExportWAV(path string, samples []float64, cfg ExportConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("record: no samples to export")
	}

	if cfg.Normalize {
		samples = normalize(samples, cfg.HeadroomDB)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("record: create export directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("record: create wav file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeWAV(w, samples, cfg); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("record: flush wav file: %w", err)
	}
	return f.Close()
}

func normalize(samples []float64, headroomDB float64) []float64 {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return samples
	}
	target := math.Pow(10, -headroomDB/20)
	out := make([]float64, len(samples))
	gain := target / peak
	for i, s := range samples {
		out[i] = s * gain
	}
	return out
}

func writeWAV(w *bufio.Writer, samples []float64, cfg ExportConfig) error {
	sampleWidth := int(cfg.BitDepth) / 8
	formatTag := uint16(wavFormatPCM)
	fmtChunkSize := uint32(16)
	if cfg.BitDepth == DepthFloat32 {
		formatTag = wavFormatFloat
		fmtChunkSize = 18 // extended format with zero extension size
	}

	dataSize := uint32(len(samples) * sampleWidth * cfg.Channels)

	le := binary.LittleEndian
	var scratch [8]byte

	writeBytes := func(b []byte) { w.Write(b) }
	writeU16 := func(v uint16) { le.PutUint16(scratch[:2], v); w.Write(scratch[:2]) }
	writeU32 := func(v uint32) { le.PutUint32(scratch[:4], v); w.Write(scratch[:4]) }

	writeBytes([]byte("RIFF"))
	// RIFF size: "WAVE" + fmt chunk with header + data chunk with header.
	writeU32(4 + 8 + fmtChunkSize + 8 + dataSize)
	writeBytes([]byte("WAVE"))

	writeBytes([]byte("fmt "))
	writeU32(fmtChunkSize)
	writeU16(formatTag)
	writeU16(uint16(cfg.Channels))
	writeU32(uint32(cfg.SampleRate))
	writeU32(uint32(cfg.SampleRate * cfg.Channels * sampleWidth))
	writeU16(uint16(cfg.Channels * sampleWidth))
	writeU16(uint16(cfg.BitDepth))
	if cfg.BitDepth == DepthFloat32 {
		writeU16(0)
	}

	writeBytes([]byte("data"))
	writeU32(dataSize)

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	tpdf := func() float64 { return rng.Float64() + rng.Float64() - 1 }

	for _, s := range samples {
		s = clampUnit(s)
		var frame []byte
		switch cfg.BitDepth {
		case Depth16:
			if cfg.Dither {
				s = clampUnit(s + tpdf()/32768.0)
			}
			v := int16(math.Round(clampRange(s*32767.0, -32768, 32767)))
			le.PutUint16(scratch[:2], uint16(v))
			frame = scratch[:2]
		case Depth24:
			if cfg.Dither {
				s = clampUnit(s + tpdf()/8388608.0)
			}
			v := int32(math.Round(clampRange(s*8388607.0, -8388608, 8388607)))
			le.PutUint32(scratch[:4], uint32(v))
			frame = scratch[:3] // little-endian low 3 bytes
		case DepthFloat32:
			le.PutUint32(scratch[:4], math.Float32bits(float32(s)))
			frame = scratch[:4]
		}
		for ch := 0; ch < cfg.Channels; ch++ {
			if _, err := w.Write(frame); err != nil {
				return fmt.Errorf("record: write wav data: %w", err)
			}
		}
	}
	return nil
}

func clampUnit(s float64) float64 { return clampRange(s, -1, 1) }

func clampRange(s, lo, hi float64) float64 {
	if s < lo {
		return lo
	}
	if s > hi {
		return hi
	}
	return s
}
