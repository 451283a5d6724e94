package engine

import "sync/atomic"

// Snapshot is one published view of the audio thread's output, read
// asynchronously by displays on the control thread.
type Snapshot struct {
	// Samples holds the most recent rendered buffer. Its length is the
	// number of samples produced by that callback.
	Samples []float64
	// ActiveVoices is the sounding voice count at publish time.
	ActiveVoices int
	// Notes are the MIDI notes held at publish time.
	Notes []int
	// Peak is the largest absolute sample in Samples.
	Peak float64
}

// Monitor hands rendered audio from the audio thread to the control
// thread using two alternating frames and an atomic pointer swap. The
// audio thread always writes the frame that is not published, so a
// reader copying the published frame can only race with a write that is
// two publishes ahead, tight enough for display use.
type Monitor struct {
	frames    [2]Snapshot
	next      int
	published atomic.Pointer[Snapshot]
}

// NewMonitor creates a monitor sized for bufferSize samples per frame
// and up to maxNotes held notes.
func NewMonitor(bufferSize, maxNotes int) *Monitor {
	m := &Monitor{}
	for i := range m.frames {
		m.frames[i].Samples = make([]float64, 0, bufferSize)
		m.frames[i].Notes = make([]int, 0, maxNotes)
	}
	return m
}

// Publish stores the latest buffer and state. Only the audio thread may
// call this; it does not allocate while samples fit the configured
// buffer size.
func (m *Monitor) Publish(samples []float64, activeVoices int, notes []int) {
	f := &m.frames[m.next]
	f.Samples = append(f.Samples[:0], samples...)
	f.Notes = append(f.Notes[:0], notes...)
	f.ActiveVoices = activeVoices

	peak := 0.0
	for _, s := range samples {
		if s > peak {
			peak = s
		} else if -s > peak {
			peak = -s
		}
	}
	f.Peak = peak

	m.published.Store(f)
	m.next ^= 1
}

// Read copies the latest published frame into dst and reports whether
// anything has been published yet. dst's slices are reused when they
// have capacity.
func (m *Monitor) Read(dst *Snapshot) bool {
	f := m.published.Load()
	if f == nil {
		return false
	}
	dst.Samples = append(dst.Samples[:0], f.Samples...)
	dst.Notes = append(dst.Notes[:0], f.Notes...)
	dst.ActiveVoices = f.ActiveVoices
	dst.Peak = f.Peak
	return true
}
