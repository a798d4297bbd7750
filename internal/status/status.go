package status

import "sync/atomic"

// Counters is the CounterBlock of SPEC_FULL.md §3/§4.9: atomic totals shared
// read-mostly across the Sampler, Publisher, and Dispatcher. Each field has
// exactly one writer at runtime (Sampler owns Captured/Dropped, Publisher
// owns Published, Dispatcher owns CommandsReceived/CommandsDropped/
// ResultsPublished/SampleRateHz), so relaxed atomic access is sufficient.
type Counters struct {
	Captured         atomic.Uint64
	Published        atomic.Uint64
	Dropped          atomic.Uint64
	CommandsReceived atomic.Uint64
	CommandsDropped  atomic.Uint64
	ResultsPublished atomic.Uint64
	SampleRateHz     atomic.Uint32
	SampleIntervalNs atomic.Uint64
}

// NewCounters creates a Counters block initialized to the given sample rate.
func NewCounters(initialRateHz uint32) *Counters {
	c := &Counters{}
	c.SetRate(initialRateHz)
	return c
}

// SetRate atomically updates the configured sample rate and its derived
// interval. Observed no later than the tick following the update
// (SPEC_FULL.md §5, "Sample rate changes").
func (c *Counters) SetRate(hz uint32) {
	c.SampleRateHz.Store(hz)
	if hz > 0 {
		c.SampleIntervalNs.Store(uint64(1_000_000_000) / uint64(hz))
	}
}

// Snapshot is a point-in-time copy of Counters for STATUS results and tests.
type Snapshot struct {
	Captured         uint64
	Published        uint64
	Dropped          uint64
	CommandsReceived uint64
	CommandsDropped  uint64
	ResultsPublished uint64
	SampleRateHz     uint32
}

// Snapshot returns a consistent-enough point-in-time copy of the counters.
// Ring conservation (SPEC_FULL.md §8, "captured = published + dropped +
// currently buffered") holds modulo in-flight records at snapshot time.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Captured:         c.Captured.Load(),
		Published:        c.Published.Load(),
		Dropped:          c.Dropped.Load(),
		CommandsReceived: c.CommandsReceived.Load(),
		CommandsDropped:  c.CommandsDropped.Load(),
		ResultsPublished: c.ResultsPublished.Load(),
		SampleRateHz:     c.SampleRateHz.Load(),
	}
}

// Observer allows pluggable observation of sampling, publishing, and
// command/result activity, mirroring the teacher's Observer/NoOpObserver
// pattern so Counters is one Observer implementation among possibly others.
type Observer interface {
	ObserveSample(validMask uint8, pushed bool)
	ObservePublishBatch(records int, ok bool)
	ObserveCommand(dropped bool)
	ObserveResult()
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveSample(uint8, bool)    {}
func (NoOpObserver) ObservePublishBatch(int, bool) {}
func (NoOpObserver) ObserveCommand(bool)           {}
func (NoOpObserver) ObserveResult()                {}

// CountersObserver implements Observer by recording into a Counters block.
//
// Sampler/Publisher/Dispatcher already write their own Config.Counters field
// directly; a CountersObserver wired as Options.Observer is an independent
// second recorder, not a replacement for that direct write. Passing it the
// same *Counters a component already writes to double-counts every field.
// Give it a distinct Counters block (e.g. a per-subsystem or exporter-local
// one) when wiring it as an Observer.
type CountersObserver struct {
	counters *Counters
}

// NewCountersObserver creates an Observer that records into c.
func NewCountersObserver(c *Counters) *CountersObserver {
	return &CountersObserver{counters: c}
}

func (o *CountersObserver) ObserveSample(_ uint8, pushed bool) {
	o.counters.Captured.Add(1)
	if !pushed {
		o.counters.Dropped.Add(1)
	}
}

func (o *CountersObserver) ObservePublishBatch(records int, ok bool) {
	if ok {
		o.counters.Published.Add(uint64(records))
	}
}

func (o *CountersObserver) ObserveCommand(dropped bool) {
	o.counters.CommandsReceived.Add(1)
	if dropped {
		o.counters.CommandsDropped.Add(1)
	}
}

func (o *CountersObserver) ObserveResult() {
	o.counters.ResultsPublished.Add(1)
}

var _ Observer = (*CountersObserver)(nil)
var _ Observer = NoOpObserver{}
