package engine

import (
	"sync"
	"testing"
)

func TestParameterChannelFIFO(t *testing.T) {
	ch := NewParameterChannel(8)
	ch.Push(Change{Name: "filter_cutoff", Value: 800})
	ch.Push(Change{Name: "filter_cutoff", Value: 1200})
	ch.Push(Change{Name: "master_volume", Value: 0.5})

	if got := ch.Pending(); got != 3 {
		t.Fatalf("Pending() = %d, want 3", got)
	}

	var drained []Change
	ch.Drain(func(c Change) { drained = append(drained, c) })

	if len(drained) != 3 {
		t.Fatalf("drained %d changes, want 3", len(drained))
	}
	if drained[0].Value != 800 || drained[1].Value != 1200 {
		t.Error("changes drained out of order")
	}
	if got := ch.Pending(); got != 0 {
		t.Errorf("Pending() = %d after drain, want 0", got)
	}
}

func TestParameterChannelDropsOnOverflow(t *testing.T) {
	ch := NewParameterChannel(4)
	accepted := 0
	for i := range 10 {
		if ch.Push(Change{Name: "master_volume", Value: float64(i)}) {
			accepted++
		}
	}
	if accepted != 4 {
		t.Fatalf("accepted %d pushes into a 4 slot channel", accepted)
	}

	// The oldest edits survive; the rest were dropped by the producer.
	var got []float64
	ch.Drain(func(c Change) { got = append(got, c.Value) })
	for i, v := range got {
		if v != float64(i) {
			t.Fatalf("slot %d = %f, want %d", i, v, i)
		}
	}
}

func TestSPSCRingConcurrentHandoff(t *testing.T) {
	const count = 10000
	ring := newSPSCRing[int](64)

	var wg sync.WaitGroup
	wg.Add(2)

	received := make([]int, 0, count)
	done := make(chan struct{})

	go func() {
		defer wg.Done()
		for i := 0; i < count; {
			if ring.push(i) {
				i++
			}
		}
		close(done)
	}()

	go func() {
		defer wg.Done()
		for {
			ring.drain(func(v int) { received = append(received, v) })
			select {
			case <-done:
				ring.drain(func(v int) { received = append(received, v) })
				return
			default:
			}
		}
	}()

	wg.Wait()

	if len(received) != count {
		t.Fatalf("received %d values, want %d", len(received), count)
	}
	for i, v := range received {
		if v != i {
			t.Fatalf("value %d out of order: got %d", i, v)
		}
	}
}
