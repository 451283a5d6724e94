package record

import (
	"math"
	"testing"
)

func TestNewRecorderValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("New(0) expected error")
	}
	if _, err := New(44100, WithMaxDuration(-1)); err == nil {
		t.Fatal("WithMaxDuration(-1) expected error")
	}
}

func TestRecorderIgnoresSamplesWhileIdle(t *testing.T) {
	r, err := New(44100, WithMaxDuration(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if r.Append([]float64{0.5, 0.5}) {
		t.Fatal("Append should report false while idle")
	}
	if got := r.DurationSamples(); got != 0 {
		t.Fatalf("DurationSamples() = %d, want 0", got)
	}
}

func TestRecorderCapturesAndReportsPeak(t *testing.T) {
	r, err := New(44100, WithMaxDuration(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.Start()
	if !r.IsRecording() {
		t.Fatal("recorder should be recording after Start")
	}

	if !r.Append([]float64{0.1, -0.8, 0.3}) {
		t.Fatal("Append dropped samples while recording")
	}
	r.Stop()

	if got := r.DurationSamples(); got != 3 {
		t.Errorf("DurationSamples() = %d, want 3", got)
	}
	if got := r.PeakLevel(); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("PeakLevel() = %f, want 0.8", got)
	}

	audio := r.Audio()
	if len(audio) != 3 {
		t.Fatalf("Audio() returned %d samples, want 3", len(audio))
	}
	if math.Abs(audio[1]+0.8) > 1e-6 {
		t.Errorf("audio[1] = %f, want -0.8", audio[1])
	}
}

func TestRecorderArmWaitsForSignal(t *testing.T) {
	r, err := New(44100, WithMaxDuration(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.Arm()
	if !r.IsArmed() {
		t.Fatal("recorder should be armed")
	}

	if r.Append(make([]float64, 64)) {
		t.Fatal("silence should not trigger an armed recorder")
	}
	if !r.IsArmed() {
		t.Fatal("recorder should stay armed on silence")
	}

	loud := make([]float64, 64)
	loud[10] = 0.5
	if !r.Append(loud) {
		t.Fatal("signal above threshold should start capture")
	}
	if !r.IsRecording() {
		t.Fatal("recorder should auto-start from armed")
	}
}

func TestRecorderStopsAtCapacity(t *testing.T) {
	r, err := New(1000, WithMaxDuration(0.1)) // 100 samples
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.Start()

	buf := make([]float64, 60)
	for i := range buf {
		buf[i] = 0.1
	}
	if !r.Append(buf) {
		t.Fatal("first append should fit")
	}
	if r.Append(buf) {
		t.Fatal("second append exceeds capacity and must be dropped")
	}
	if got := r.DurationSamples(); got != 60 {
		t.Fatalf("DurationSamples() = %d, want 60", got)
	}
}

func TestRecorderPauseResume(t *testing.T) {
	r, err := New(44100, WithMaxDuration(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.Start()
	r.Append([]float64{0.2})
	r.Pause()
	if r.Append([]float64{0.2}) {
		t.Fatal("paused recorder must drop samples")
	}
	r.Resume()
	if !r.Append([]float64{0.2}) {
		t.Fatal("resumed recorder must capture again")
	}
	if got := r.DurationSamples(); got != 2 {
		t.Fatalf("DurationSamples() = %d, want 2", got)
	}
}

func TestRecorderUndoRestoresPreviousTake(t *testing.T) {
	r, err := New(44100, WithMaxDuration(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	r.Start()
	r.Append([]float64{0.5, 0.5})
	r.Stop()

	r.Start() // pushes first take onto the undo stack
	r.Append([]float64{0.1})
	r.Stop()

	if !r.CanUndo() {
		t.Fatal("undo should be available")
	}
	if !r.Undo() {
		t.Fatal("Undo() = false")
	}
	if got := r.DurationSamples(); got != 2 {
		t.Fatalf("DurationSamples() = %d after undo, want 2", got)
	}
	if math.Abs(r.PeakLevel()-0.5) > 1e-6 {
		t.Errorf("PeakLevel() = %f after undo, want 0.5", r.PeakLevel())
	}
	if r.Undo() {
		t.Fatal("second Undo() should fail with an empty stack")
	}
}

func TestRecorderClearRequiresIdle(t *testing.T) {
	r, err := New(44100, WithMaxDuration(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.Start()
	r.Append([]float64{0.4})
	r.Clear() // recording, ignored
	if got := r.DurationSamples(); got != 1 {
		t.Fatalf("Clear() while recording changed the take")
	}
	r.Stop()
	r.Clear()
	if got := r.DurationSamples(); got != 0 {
		t.Fatalf("DurationSamples() = %d after clear, want 0", got)
	}
	if !r.CanUndo() {
		t.Error("cleared take should be recoverable")
	}
}

func TestRecorderInfo(t *testing.T) {
	r, err := New(44100, WithMaxDuration(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.Start()
	r.Append(make([]float64, 4410))
	info := r.GetInfo()
	if info.DurationSamples != 4410 {
		t.Errorf("DurationSamples = %d, want 4410", info.DurationSamples)
	}
	if math.Abs(info.DurationSeconds-0.1) > 1e-9 {
		t.Errorf("DurationSeconds = %f, want 0.1", info.DurationSeconds)
	}
	if info.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", info.SampleRate)
	}
}

func BenchmarkRecorderAppend(b *testing.B) {
	r, err := New(44100, WithMaxDuration(60))
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}
	r.Start()
	buf := make([]float64, 512)
	for i := range buf {
		buf[i] = math.Sin(float64(i) * 0.05)
	}
	b.ResetTimer()
	for range b.N {
		if !r.Append(buf) {
			r.Stop()
			r.Start()
		}
	}
}
