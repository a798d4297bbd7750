// Package dispatcher implements the Dispatcher of SPEC_FULL.md §4.6: a
// single-threaded consumer of a bounded FIFO fed by the bus-client
// callback, parsing commands and invoking the DAL, always producing exactly
// one result message.
package dispatcher

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cas-centre/stagecore/internal/bus"
	"github.com/cas-centre/stagecore/internal/dal"
	"github.com/cas-centre/stagecore/internal/logging"
	"github.com/cas-centre/stagecore/internal/stageerr"
	"github.com/cas-centre/stagecore/internal/status"
	"github.com/cas-centre/stagecore/internal/topology"
	"github.com/cas-centre/stagecore/internal/wire"
)

// MinRateHz and MaxRateHz bound SET_RATE (SPEC_FULL.md §4.6).
const (
	MinRateHz = 100
	MaxRateHz = 15000
)

// CommandRecord is a raw bus payload plus its arrival time (SPEC_FULL.md
// §3).
type CommandRecord struct {
	Payload   []byte
	ArrivalNs int64
}

// axisConfig caches the last value this Dispatcher itself set for an axis,
// since the DAL interface (SPEC_FULL.md §4.1/§6.5) offers write-only
// amplitude/frequency/target-range operations with no corresponding reads —
// any compliant external driver need only implement the operations in §4.1.
// STATUS reports these cached values rather than requiring a read-back
// capability no vendor driver is guaranteed to expose.
type axisConfig struct {
	amplitudeMv  int32
	frequencyMHz int32
	targetRange  int32
}

// Config configures a Dispatcher.
type Config struct {
	Topology     *topology.Topology
	Driver       dal.Driver
	Handles      map[int]dal.Handle // physical slot -> handle
	Bus          bus.Client
	ResultTopic  string
	Counters     *status.Counters
	Observer     status.Observer
	Logger       *logging.Logger
	FIFOCapacity int
}

// Dispatcher runs the command consume/dispatch loop described in
// SPEC_FULL.md §4.6.
type Dispatcher struct {
	cfg  Config
	obs  status.Observer
	fifo chan CommandRecord

	mu      sync.Mutex
	configs map[topology.AxisId]*axisConfig
}

// New creates a Dispatcher from cfg.
func New(cfg Config) *Dispatcher {
	obs := cfg.Observer
	if obs == nil {
		obs = status.NoOpObserver{}
	}
	cap := cfg.FIFOCapacity
	if cap <= 0 {
		cap = 256
	}
	return &Dispatcher{
		cfg:     cfg,
		obs:     obs,
		fifo:    make(chan CommandRecord, cap),
		configs: make(map[topology.AxisId]*axisConfig),
	}
}

// HandleMessage is a bus.MessageHandler that enqueues the payload. It must
// not block, per SPEC_FULL.md §5: the bus callback only appends to the FIFO.
func (d *Dispatcher) HandleMessage(_ string, payload []byte) {
	rec := CommandRecord{Payload: append([]byte(nil), payload...), ArrivalNs: time.Now().UnixNano()}

	select {
	case d.fifo <- rec:
		d.cfg.Counters.CommandsReceived.Add(1)
		d.obs.ObserveCommand(false)
		return
	default:
	}

	// FIFO full: drop the oldest command to make room, per SPEC_FULL.md
	// §4.6 ("overflow drops oldest commands and increments a counter") —
	// commands are operator input, not telemetry.
	select {
	case <-d.fifo:
		d.cfg.Counters.CommandsDropped.Add(1)
	default:
	}
	select {
	case d.fifo <- rec:
		d.cfg.Counters.CommandsReceived.Add(1)
		d.obs.ObserveCommand(false)
	default:
		d.cfg.Counters.CommandsDropped.Add(1)
		d.obs.ObserveCommand(true)
	}
}

// Run consumes the FIFO until ctx is cancelled, dispatching each command in
// arrival order.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-d.fifo:
			d.dispatch(rec)
		}
	}
}

func (d *Dispatcher) dispatch(rec CommandRecord) {
	ts := uint64(time.Now().UnixNano())
	cmd, err := ParseCommand(string(rec.Payload))
	if err != nil {
		detail := err.Error()
		if se, ok := err.(*stageerr.StageError); ok {
			detail = se.Msg
		}
		d.publishResult(ts, wire.ChannelError, "PARSE", "SYSTEM", wire.OutcomeFailed, detail)
		return
	}

	switch cmd.Kind {
	case CmdStatus:
		d.handleStatus(ts)
	case CmdSetRate:
		d.handleSetRate(ts, cmd)
	case CmdSetAmp:
		d.handleSetAmp(ts, cmd)
	case CmdSetFreq:
		d.handleSetFreq(ts, cmd)
	case CmdMove:
		d.handleMove(ts, cmd)
	case CmdStop:
		d.handleStop(ts, cmd)
	}
}

func (d *Dispatcher) publishResult(ts uint64, ch wire.Channel, subject, scope string, outcome wire.Outcome, detail string) {
	buf := wire.AppendResultLine(nil, ts, ch, subject, scope, outcome, detail)
	if err := d.cfg.Bus.Publish(d.cfg.ResultTopic, buf, bus.QoSAtLeastOnce, false); err != nil && d.cfg.Logger != nil {
		d.cfg.Logger.Error("failed to publish result", "error", err)
	}
	d.cfg.Counters.ResultsPublished.Add(1)
	d.obs.ObserveResult()
}

// resolve returns the handle for axis, or a FAILED result already published
// and ok=false if the axis is not connected.
func (d *Dispatcher) resolve(ts uint64, subject string, axis topology.AxisId) (dal.Handle, topology.PhysicalAddress, bool) {
	addr, connected := d.cfg.Topology.Resolve(axis)
	if !connected {
		d.publishResult(ts, wire.ChannelCommand, subject, string(axis), wire.OutcomeFailed, "Axis not connected")
		return nil, addr, false
	}
	h := d.cfg.Handles[addr.Slot]
	return h, addr, true
}

func (d *Dispatcher) handleSetRate(ts uint64, cmd Command) {
	if cmd.IntArg < MinRateHz || cmd.IntArg > MaxRateHz {
		d.publishResult(ts, wire.ChannelCommand, "SET_RATE", "SYSTEM", wire.OutcomeFailed,
			fmt.Sprintf("Invalid rate (must be %d-%d Hz)", MinRateHz, MaxRateHz))
		return
	}
	// The Sampler reloads the interval atomically at the top of its next
	// tick (SPEC_FULL.md §4.4/§5); the result is published immediately.
	d.cfg.Counters.SetRate(uint32(cmd.IntArg))
	d.publishResult(ts, wire.ChannelCommand, "SET_RATE", "SYSTEM", wire.OutcomeSuccess, strconv.Itoa(int(cmd.IntArg)))
}

func (d *Dispatcher) handleSetAmp(ts uint64, cmd Command) {
	h, addr, ok := d.resolve(ts, "SET_AMP", cmd.Axis)
	if !ok {
		return
	}
	if err := d.cfg.Driver.SetAmplitude(h, addr.Axis, cmd.IntArg); err != nil {
		d.publishResult(ts, wire.ChannelCommand, "SET_AMP", string(cmd.Axis), wire.OutcomeFailed, err.Error())
		return
	}
	d.cacheFor(cmd.Axis).amplitudeMv = cmd.IntArg
	d.publishResult(ts, wire.ChannelCommand, "SET_AMP", string(cmd.Axis), wire.OutcomeSuccess, "")
}

func (d *Dispatcher) handleSetFreq(ts uint64, cmd Command) {
	h, addr, ok := d.resolve(ts, "SET_FREQ", cmd.Axis)
	if !ok {
		return
	}
	if err := d.cfg.Driver.SetFrequency(h, addr.Axis, cmd.IntArg); err != nil {
		d.publishResult(ts, wire.ChannelCommand, "SET_FREQ", string(cmd.Axis), wire.OutcomeFailed, err.Error())
		return
	}
	d.cacheFor(cmd.Axis).frequencyMHz = cmd.IntArg
	d.publishResult(ts, wire.ChannelCommand, "SET_FREQ", string(cmd.Axis), wire.OutcomeSuccess, "")
}

func (d *Dispatcher) handleMove(ts uint64, cmd Command) {
	h, addr, ok := d.resolve(ts, "MOVE", cmd.Axis)
	if !ok {
		return
	}
	if err := d.cfg.Driver.SetTarget(h, addr.Axis, cmd.IntArg); err != nil {
		d.publishResult(ts, wire.ChannelCommand, "MOVE", string(cmd.Axis), wire.OutcomeFailed, err.Error())
		return
	}
	if err := d.cfg.Driver.SetMoveEnable(h, addr.Axis, true); err != nil {
		// Partial success: target was set but enable failed. Best-effort
		// rollback, per SPEC_FULL.md §4.6/§7.
		_ = d.cfg.Driver.SetMoveEnable(h, addr.Axis, false)
		d.publishResult(ts, wire.ChannelCommand, "MOVE", string(cmd.Axis), wire.OutcomeFailed, err.Error())
		return
	}
	d.publishResult(ts, wire.ChannelCommand, "MOVE", string(cmd.Axis), wire.OutcomeSuccess, "")
}

func (d *Dispatcher) handleStop(ts uint64, cmd Command) {
	h, addr, ok := d.resolve(ts, "STOP", cmd.Axis)
	if !ok {
		return
	}
	if err := d.cfg.Driver.SetMoveEnable(h, addr.Axis, false); err != nil {
		d.publishResult(ts, wire.ChannelCommand, "STOP", string(cmd.Axis), wire.OutcomeFailed, err.Error())
		return
	}
	d.publishResult(ts, wire.ChannelCommand, "STOP", string(cmd.Axis), wire.OutcomeSuccess, "")
}

func (d *Dispatcher) handleStatus(ts uint64) {
	snap := d.cfg.Counters.Snapshot()
	detail := fmt.Sprintf("Sample Rate=%d captured=%d published=%d dropped=%d", snap.SampleRateHz, snap.Captured, snap.Published, snap.Dropped)

	for _, c := range d.cfg.Topology.Controllers() {
		detail += fmt.Sprintf(" Controller %d (ID=%d)", c.Slot, c.ControllerID)
	}

	for _, entry := range d.cfg.Topology.IterConnected() {
		h := d.cfg.Handles[entry.Addr.Slot]
		pos, err := d.cfg.Driver.ReadPosition(h, entry.Addr.Axis)
		if err != nil {
			continue
		}
		st, _ := d.cfg.Driver.ReadStatus(h, entry.Addr.Axis)
		cfg := d.cacheFor(entry.Axis)
		detail += fmt.Sprintf(" %s{pos=%d ref_valid=%t in_target=%t amp=%d freq=%d range=%d}",
			entry.Axis, pos, st.RefValid, st.InTarget, cfg.amplitudeMv, cfg.frequencyMHz, cfg.targetRange)
	}

	d.publishResult(ts, wire.ChannelStatus, "STATUS", "SYSTEM", wire.OutcomeSuccess, detail)
}

func (d *Dispatcher) cacheFor(axis topology.AxisId) *axisConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.configs[axis]
	if !ok {
		c = &axisConfig{}
		d.configs[axis] = c
	}
	return c
}
