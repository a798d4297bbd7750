// Package sampler implements the Sampler of SPEC_FULL.md §4.4: a pinned,
// deadline-driven loop that stamps a timestamp, reads every connected axis
// through the DAL, and pushes a PositionSample onto the Sample Ring.
//
// The loop structure — runtime.LockOSThread, best-effort CPU affinity via
// golang.org/x/sys/unix.SchedSetaffinity that degrades to a warning rather
// than a fatal error, and a cancellation-gated for-loop — is grounded
// directly on the teacher's queue/runner.go ioLoop, which runs the same
// kind of dedicated, pinned per-thread hot loop for a different domain
// (submitting io_uring I/O instead of reading motion-controller axes).
package sampler

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cas-centre/stagecore/internal/dal"
	"github.com/cas-centre/stagecore/internal/logging"
	"github.com/cas-centre/stagecore/internal/ring"
	"github.com/cas-centre/stagecore/internal/status"
	"github.com/cas-centre/stagecore/internal/topology"
)

// preDeadlineMargin is how far ahead of the computed deadline the Sampler
// switches from a coarse sleep to a tight busy-yield wait (SPEC_FULL.md
// §4.4: "sleep until ≈ 50µs before deadline, then busy-yield until
// deadline").
const preDeadlineMargin = 50 * time.Microsecond

// AxisHandle pairs a connected topology entry with the DAL handle for its
// controller slot.
type AxisHandle struct {
	Axis   topology.AxisId
	Addr   topology.PhysicalAddress
	Handle dal.Handle
}

// Config configures a Sampler.
type Config struct {
	Driver      dal.Driver
	Axes        []AxisHandle // connected axes only, Topology.IterConnected() resolved to handles
	Ring        *ring.Ring
	Counters    *status.Counters
	Observer    status.Observer
	Logger      *logging.Logger
	CPUAffinity []int // optional; best-effort, a failure to pin is a warning
}

// Sampler runs the real-time sampling loop described in SPEC_FULL.md §4.4.
type Sampler struct {
	cfg Config
	obs status.Observer
}

// New creates a Sampler from cfg. If cfg.Observer is nil, a NoOpObserver is
// used.
func New(cfg Config) *Sampler {
	obs := cfg.Observer
	if obs == nil {
		obs = status.NoOpObserver{}
	}
	return &Sampler{cfg: cfg, obs: obs}
}

// Run executes the sampling loop until ctx is cancelled. It locks the
// calling goroutine to its OS thread for the duration, so callers must run
// it on a dedicated goroutine (typically `go sampler.Run(ctx)`).
func (s *Sampler) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.pinCPU()

	deadline := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		intervalNs := s.cfg.Counters.SampleIntervalNs.Load()
		if intervalNs == 0 {
			intervalNs = 1_000_000 // 1kHz fallback if misconfigured
		}
		interval := time.Duration(intervalNs)

		s.tick()

		deadline = deadline.Add(interval)
		s.waitUntil(ctx, deadline)
	}
}

// tick performs one sampling iteration: stamp time, read every connected
// axis, and push the record onto the ring.
func (s *Sampler) tick() {
	sample := ring.PositionSample{TimestampNs: uint64(time.Now().UnixNano())}

	for _, ah := range s.cfg.Axes {
		pos, err := s.cfg.Driver.ReadPosition(ah.Handle, ah.Addr.Axis)
		if err != nil {
			// Transient per-sample read error: absorbed into ValidMask,
			// never surfaced (SPEC_FULL.md §7).
			continue
		}
		switch ah.Axis {
		case topology.AxisX:
			sample.X = pos
			sample.ValidMask |= ring.ValidX
		case topology.AxisY:
			sample.Y = pos
			sample.ValidMask |= ring.ValidY
		case topology.AxisZ:
			sample.Z = pos
			sample.ValidMask |= ring.ValidZ
		case topology.AxisR:
			sample.R = pos
			sample.ValidMask |= ring.ValidR
		}
	}

	pushed := s.cfg.Ring.TryPush(sample)
	s.cfg.Counters.Captured.Add(1)
	if !pushed {
		s.cfg.Counters.Dropped.Add(1)
	}
	s.obs.ObserveSample(sample.ValidMask, pushed)
}

// waitUntil sleeps in coarse steps until shortly before deadline, then
// busy-yields until deadline — a hybrid wait that bounds scheduler jitter
// without burning a full core the entire interval (SPEC_FULL.md §4.4).
// Never advances the deadline by wall-clock drift: the caller always adds a
// fixed interval to the previous deadline.
func (s *Sampler) waitUntil(ctx context.Context, deadline time.Time) {
	for {
		now := time.Now()
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return
		}
		if remaining > preDeadlineMargin {
			sleepFor := remaining - preDeadlineMargin
			timer := time.NewTimer(sleepFor)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}
		// Within the pre-deadline margin: busy-yield rather than sleep, to
		// avoid the scheduler's coarse timer granularity overshooting the
		// deadline.
		if ctx.Err() != nil {
			return
		}
		runtime.Gosched()
	}
}

// pinCPU attempts to pin the calling thread to one of the configured CPUs.
// Failure is logged as a warning and is not fatal, per SPEC_FULL.md §4.4
// ("failure to do either is a warning, not fatal").
func (s *Sampler) pinCPU() {
	if len(s.cfg.CPUAffinity) == 0 {
		return
	}
	cpu := s.cfg.CPUAffinity[0]
	var set unix.CPUSet
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		if s.cfg.Logger != nil {
			s.cfg.Logger.Warn("failed to set sampler CPU affinity", "cpu", cpu, "error", err)
		}
	}
}
