package ring

import "testing"

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := New(3); err == nil {
		t.Error("expected error for non-power-of-two capacity")
	}
	if _, err := New(0); err == nil {
		t.Error("expected error for zero capacity")
	}
}

func TestTryPushAndDrainFIFO(t *testing.T) {
	r, err := New(4)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	for i := uint64(0); i < 4; i++ {
		if !r.TryPush(PositionSample{TimestampNs: i + 1}) {
			t.Fatalf("expected push %d to succeed", i)
		}
	}

	// Ring is now full; the producer never overwrites unread data.
	if r.TryPush(PositionSample{TimestampNs: 99}) {
		t.Error("expected push to fail when ring is full")
	}

	buf := make([]PositionSample, 4)
	n := r.Drain(buf)
	if n != 4 {
		t.Fatalf("expected to drain 4, got %d", n)
	}
	for i, s := range buf {
		if s.TimestampNs != uint64(i+1) {
			t.Errorf("expected FIFO order, slot %d has timestamp %d", i, s.TimestampNs)
		}
	}
}

func TestDrainPartial(t *testing.T) {
	r, _ := New(8)
	r.TryPush(PositionSample{TimestampNs: 1})
	r.TryPush(PositionSample{TimestampNs: 2})

	buf := make([]PositionSample, 5)
	n := r.Drain(buf)
	if n != 2 {
		t.Fatalf("expected to drain 2, got %d", n)
	}
}

func TestAvailableAndConservation(t *testing.T) {
	r, _ := New(4)
	captured := 0
	dropped := 0

	// Every attempted push is a captured sample, as in the Sampler's tick;
	// the ones the full ring refuses are also counted as dropped.
	for i := 0; i < 10; i++ {
		captured++
		if !r.TryPush(PositionSample{TimestampNs: uint64(i)}) {
			dropped++
		}
	}
	buffered := r.Available()
	if buffered != 4 {
		t.Errorf("expected 4 buffered records in a full ring of capacity 4, got %d", buffered)
	}

	published := 0
	buf := make([]PositionSample, 16)
	published += r.Drain(buf)

	// Ring conservation: captured = published + dropped + currently buffered
	// (SPEC_FULL.md §8, universal property 6) — here nothing remains
	// buffered after a full drain.
	if captured != published+dropped {
		t.Errorf("conservation violated: captured=%d published=%d dropped=%d buffered=%d",
			captured, published, dropped, buffered)
	}
}
