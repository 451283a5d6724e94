package engine

const defaultParameterCapacity = 256

// Change is one deferred parameter edit. Numeric parameters use Value;
// waveform and mode parameters carry their name in Text.
type Change struct {
	Name  string
	Value float64
	Text  string
}

// ParameterChannel carries parameter edits from the control thread into
// the audio callback. It is a lock-free single-producer/single-consumer
// ring: the control thread enqueues without blocking and edits are
// dropped when the ring is full, which is harmless because sliders
// re-send their value on every move.
type ParameterChannel struct {
	ring *spscRing[Change]
}

// NewParameterChannel creates a channel holding up to capacity pending
// edits. A capacity below 1 falls back to the default of 256.
func NewParameterChannel(capacity int) *ParameterChannel {
	if capacity < 1 {
		capacity = defaultParameterCapacity
	}
	return &ParameterChannel{ring: newSPSCRing[Change](capacity)}
}

// Push enqueues an edit from the control thread. It reports whether the
// edit was accepted; a full channel drops it.
func (p *ParameterChannel) Push(change Change) bool {
	return p.ring.push(change)
}

// Drain applies every pending edit in FIFO order. Only the audio thread
// may call this.
func (p *ParameterChannel) Drain(apply func(Change)) {
	p.ring.drain(apply)
}

// Pending returns the number of queued edits.
func (p *ParameterChannel) Pending() int {
	return p.ring.length()
}
