// Package ring implements the Sample Ring of SPEC_FULL.md §4.3: a bounded
// lock-free single-producer/single-consumer ring of PositionSample records.
//
// The cache-line padding around the producer and consumer cursors is
// grounded on the disruptor-style ring buffer found elsewhere in the
// example pack (an LMAX-Disruptor-inspired order-matching engine): placing
// each hot cursor alone on its own cache line prevents the producer's
// writes from invalidating the consumer's cache line and vice versa. The
// teacher's own ring (io_uring submission/completion queues) shares memory
// with the kernel and needs explicit memory-fence instructions for that
// reason; this ring is pure Go memory, where sync/atomic's Load/Store pairs
// already establish the happens-before edges the Go memory model requires
// between a producer's release and a consumer's acquire.
package ring

import "sync/atomic"

const cacheLineSize = 64

// PositionSample is the fixed-size, plain-data record produced by the
// Sampler and consumed by the Publisher (SPEC_FULL.md §3). ValidMask bit0=X,
// bit1=Y, bit2=Z, bit3=R.
type PositionSample struct {
	TimestampNs uint64
	X, Y, Z, R  int32
	ValidMask   uint8
}

const (
	ValidX uint8 = 1 << iota
	ValidY
	ValidZ
	ValidR
)

type paddedCursor struct {
	v   atomic.Uint64
	_   [cacheLineSize - 8]byte
}

// Ring is a bounded SPSC ring of PositionSample. Capacity must be a power of
// two; the zero value is not usable, construct with New.
type Ring struct {
	mask  uint64
	slots []PositionSample

	producer paddedCursor
	consumer paddedCursor
}

// New creates a Ring with the given capacity, which must be a power of two
// (SPEC_FULL.md §4.3 requires at least 4x the Publisher batch size).
func New(capacity int) (*Ring, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, errInvalidCapacity
	}
	return &Ring{
		mask:  uint64(capacity - 1),
		slots: make([]PositionSample, capacity),
	}, nil
}

// TryPush attempts to enqueue s. It returns false without blocking if the
// ring is full; the caller (Sampler) must count that as a drop and must
// never overwrite unread data.
func (r *Ring) TryPush(s PositionSample) bool {
	prod := r.producer.v.Load()
	cons := r.consumer.v.Load() // acquire: see the consumer's latest progress
	if prod-cons >= uint64(len(r.slots)) {
		return false
	}
	r.slots[prod&r.mask] = s
	r.producer.v.Store(prod + 1) // release: publish the write above
	return true
}

// Drain copies up to len(buf) available records into buf in FIFO order and
// returns the number copied. Only the Publisher may call this.
func (r *Ring) Drain(buf []PositionSample) int {
	cons := r.consumer.v.Load()
	prod := r.producer.v.Load() // acquire: see the producer's latest writes
	available := prod - cons
	n := uint64(len(buf))
	if available < n {
		n = available
	}
	for i := uint64(0); i < n; i++ {
		buf[i] = r.slots[(cons+i)&r.mask]
	}
	if n > 0 {
		r.consumer.v.Store(cons + n) // release: mark slots free for reuse
	}
	return int(n)
}

// Available returns a lower bound on the number of readable slots, safe to
// call concurrently with the producer.
func (r *Ring) Available() int {
	prod := r.producer.v.Load()
	cons := r.consumer.v.Load()
	return int(prod - cons)
}

// Capacity returns the ring's fixed capacity.
func (r *Ring) Capacity() int {
	return len(r.slots)
}

type ringError string

func (e ringError) Error() string { return string(e) }

const errInvalidCapacity = ringError("ring: capacity must be a power of two greater than zero")
