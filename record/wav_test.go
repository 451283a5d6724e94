package record

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestExportConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ExportConfig)
		wantErr bool
	}{
		{"default", func(*ExportConfig) {}, false},
		{"bad depth", func(c *ExportConfig) { c.BitDepth = 8 }, true},
		{"bad channels", func(c *ExportConfig) { c.Channels = 3 }, true},
		{"rate too low", func(c *ExportConfig) { c.SampleRate = 4000 }, true},
		{"rate too high", func(c *ExportConfig) { c.SampleRate = 200000 }, true},
		{"float stereo", func(c *ExportConfig) { c.BitDepth = DepthFloat32; c.Channels = 2 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultExportConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func exportToTemp(t *testing.T, samples []float64, cfg ExportConfig) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "take.wav")
	if err := ExportWAV(path, samples, cfg); err != nil {
		t.Fatalf("ExportWAV() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return data
}

func TestExportWAV16BitHeader(t *testing.T) {
	cfg := DefaultExportConfig()
	cfg.Dither = false
	data := exportToTemp(t, []float64{0, 0.5, -0.5, 1}, cfg)

	le := binary.LittleEndian
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if got := le.Uint32(data[4:8]); got != uint32(len(data)-8) {
		t.Errorf("RIFF size = %d, want %d", got, len(data)-8)
	}
	if string(data[12:16]) != "fmt " {
		t.Fatal("missing fmt chunk")
	}
	if got := le.Uint32(data[16:20]); got != 16 {
		t.Errorf("fmt chunk size = %d, want 16", got)
	}
	if got := le.Uint16(data[20:22]); got != wavFormatPCM {
		t.Errorf("format tag = %d, want %d", got, wavFormatPCM)
	}
	if got := le.Uint16(data[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := le.Uint32(data[24:28]); got != 44100 {
		t.Errorf("sample rate = %d, want 44100", got)
	}
	if got := le.Uint32(data[28:32]); got != 44100*2 {
		t.Errorf("byte rate = %d, want %d", got, 44100*2)
	}
	if got := le.Uint16(data[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
	if string(data[36:40]) != "data" {
		t.Fatal("missing data chunk")
	}
	if got := le.Uint32(data[40:44]); got != 8 {
		t.Errorf("data size = %d, want 8", got)
	}

	if got := int16(le.Uint16(data[44:46])); got != 0 {
		t.Errorf("sample 0 = %d, want 0", got)
	}
	if got := int16(le.Uint16(data[46:48])); got != 16384 {
		t.Errorf("sample 1 = %d, want 16384", got)
	}
	if got := int16(le.Uint16(data[48:50])); got != -16384 {
		t.Errorf("sample 2 = %d, want -16384", got)
	}
	if got := int16(le.Uint16(data[50:52])); got != 32767 {
		t.Errorf("sample 3 = %d, want 32767", got)
	}
}

func TestExportWAVFloat32(t *testing.T) {
	cfg := DefaultExportConfig()
	cfg.BitDepth = DepthFloat32
	cfg.Dither = false
	data := exportToTemp(t, []float64{0.25, -0.75}, cfg)

	le := binary.LittleEndian
	if got := le.Uint32(data[16:20]); got != 18 {
		t.Fatalf("fmt chunk size = %d, want 18", got)
	}
	if got := le.Uint16(data[20:22]); got != wavFormatFloat {
		t.Errorf("format tag = %d, want %d", got, wavFormatFloat)
	}
	if got := le.Uint16(data[36:38]); got != 0 {
		t.Errorf("extension size = %d, want 0", got)
	}
	if string(data[38:42]) != "data" {
		t.Fatal("missing data chunk")
	}

	s0 := math.Float32frombits(le.Uint32(data[46:50]))
	s1 := math.Float32frombits(le.Uint32(data[50:54]))
	if s0 != 0.25 {
		t.Errorf("sample 0 = %f, want 0.25", s0)
	}
	if s1 != -0.75 {
		t.Errorf("sample 1 = %f, want -0.75", s1)
	}
}

func TestExportWAV24BitFrames(t *testing.T) {
	cfg := DefaultExportConfig()
	cfg.BitDepth = Depth24
	cfg.Dither = false
	data := exportToTemp(t, []float64{1, -1}, cfg)

	if got := binary.LittleEndian.Uint32(data[40:44]); got != 6 {
		t.Fatalf("data size = %d, want 6", got)
	}
	// 8388607 = 0x7FFFFF little-endian.
	if data[44] != 0xFF || data[45] != 0xFF || data[46] != 0x7F {
		t.Errorf("positive full scale = % x, want ff ff 7f", data[44:47])
	}
	// -8388607 = 0x800001 little-endian.
	if data[47] != 0x01 || data[48] != 0x00 || data[49] != 0x80 {
		t.Errorf("negative full scale = % x, want 01 00 80", data[47:50])
	}
}

func TestExportWAVStereoDuplicatesFrames(t *testing.T) {
	cfg := DefaultExportConfig()
	cfg.Channels = 2
	cfg.Dither = false
	data := exportToTemp(t, []float64{0.5}, cfg)

	le := binary.LittleEndian
	if got := le.Uint16(data[22:24]); got != 2 {
		t.Fatalf("channels = %d, want 2", got)
	}
	if got := le.Uint32(data[40:44]); got != 4 {
		t.Fatalf("data size = %d, want 4", got)
	}
	left := int16(le.Uint16(data[44:46]))
	right := int16(le.Uint16(data[46:48]))
	if left != right {
		t.Errorf("stereo frames differ: left %d right %d", left, right)
	}
}

func TestExportWAVNormalizeAppliesHeadroom(t *testing.T) {
	cfg := DefaultExportConfig()
	cfg.Normalize = true
	cfg.HeadroomDB = 6
	cfg.Dither = false
	data := exportToTemp(t, []float64{0.1, -0.05}, cfg)

	got := int16(binary.LittleEndian.Uint16(data[44:46]))
	want := int16(math.Round(math.Pow(10, -6.0/20) * 32767))
	if got < want-1 || got > want+1 {
		t.Errorf("normalized peak = %d, want about %d", got, want)
	}
}

func TestExportWAVDitherStaysInRange(t *testing.T) {
	cfg := DefaultExportConfig()
	samples := make([]float64, 2000)
	for i := range samples {
		samples[i] = math.Sin(float64(i) * 0.01)
	}
	data := exportToTemp(t, samples, cfg)
	if len(data) != 44+len(samples)*2 {
		t.Fatalf("file length = %d, want %d", len(data), 44+len(samples)*2)
	}
}

func TestExportWAVRejectsEmptyTake(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	if err := ExportWAV(path, nil, DefaultExportConfig()); err == nil {
		t.Fatal("ExportWAV() with no samples expected error")
	}
}
