// Package stagecore is the real-time streaming core for a piezoelectric
// motion-control platform: it samples logical axes {X, Y, Z, R} through a
// Device Access Layer, publishes position telemetry over MQTT, and executes
// motion commands received the same way. See SPEC_FULL.md for the full
// component design.
package stagecore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cas-centre/stagecore/internal/bus"
	"github.com/cas-centre/stagecore/internal/config"
	"github.com/cas-centre/stagecore/internal/dal"
	"github.com/cas-centre/stagecore/internal/dispatcher"
	"github.com/cas-centre/stagecore/internal/logging"
	"github.com/cas-centre/stagecore/internal/publisher"
	"github.com/cas-centre/stagecore/internal/ring"
	"github.com/cas-centre/stagecore/internal/sampler"
	"github.com/cas-centre/stagecore/internal/status"
	"github.com/cas-centre/stagecore/internal/topology"
)

// shutdownGrace bounds how long StopAndDelete waits for in-flight work to
// notice context cancellation before it starts tearing down axes.
const shutdownGrace = 50 * time.Millisecond

// Params configures Core construction (SPEC_FULL.md §4.11).
type Params struct {
	// Config is required.
	Config *config.Config

	// Driver is the motion-controller DAL implementation. If nil, a
	// dal.SimDriver seeded with Config.ControllerA/ControllerB is used —
	// the "-sim" runtime mode.
	Driver dal.Driver

	// Bus is the MQTT client. If nil, one is built from Config and
	// connected during CreateAndServe.
	Bus bus.Client

	// CPUAffinity is passed through to the Sampler; nil disables pinning.
	CPUAffinity []int
}

// Options carries optional collaborators, mirroring the teacher's
// CreateAndServe(ctx, params, options) shape.
type Options struct {
	Context  context.Context
	Logger   *logging.Logger
	Observer status.Observer
}

// Core wires the DAL, Topology Map, Sample Ring, Sampler, Publisher, and
// Dispatcher into one running process (SPEC_FULL.md §4.11).
type Core struct {
	cfg         *config.Config
	driver      dal.Driver
	client      bus.Client
	topo        *topology.Topology
	samplerRing *ring.Ring
	sampler     *sampler.Sampler
	publisher   *publisher.Publisher
	dispatcher  *dispatcher.Dispatcher
	counters    *status.Counters
	logger      *logging.Logger
	handles     map[int]dal.Handle

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// CreateAndServe builds a Core from params, connects the bus, enumerates the
// Topology Map, and starts the Sampler, Publisher, and Dispatcher. It
// publishes SYSTEM_STARTING to the status topic, then, once every component
// is running, SYSTEM_READY, or SYSTEM_DEGRADED instead when an axis's
// controller is absent from the enumeration.
func CreateAndServe(ctx context.Context, params Params, options *Options) (*Core, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if options == nil {
		options = &Options{}
	}
	if options.Context != nil {
		ctx = options.Context
	}
	if params.Config == nil {
		return nil, NewError("create", ErrCodeInvalidParameters, "Config is required")
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.Default()
	}

	driver := params.Driver
	if driver == nil {
		driver = dal.NewSimDriver(params.Config.ControllerA, params.Config.ControllerB)
	}

	client := params.Bus
	if client == nil {
		client = bus.New(bus.Config{
			Broker:   params.Config.MQTTBroker,
			ClientID: params.Config.MQTTClientID,
			Username: params.Config.MQTTUsername,
			Password: params.Config.MQTTPassword,
		}, logger)
	}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect bus: %w", err)
	}

	topo, err := topology.Build(driver, params.Config.ControllerA, params.Config.ControllerB)
	if err != nil {
		client.Disconnect()
		return nil, fmt.Errorf("build topology: %w", err)
	}

	ids, err := driver.Enumerate()
	if err != nil {
		client.Disconnect()
		return nil, fmt.Errorf("enumerate controllers: %w", err)
	}
	handles := make(map[int]dal.Handle, len(ids))
	for slot, cid := range ids {
		h, err := driver.Connect(cid)
		if err != nil {
			logger.Warn("failed to connect controller", "controller_id", cid, "error", err)
			continue
		}
		handles[slot] = h
	}

	sampleRing, err := ring.New(params.Config.RingCapacity)
	if err != nil {
		client.Disconnect()
		return nil, fmt.Errorf("create sample ring: %w", err)
	}

	counters := status.NewCounters(uint32(params.Config.SampleRateHz))
	observer := options.Observer
	if observer == nil {
		observer = status.NoOpObserver{}
	}

	var axes []sampler.AxisHandle
	for _, e := range topo.IterConnected() {
		h, ok := handles[e.Addr.Slot]
		if !ok {
			continue
		}
		axes = append(axes, sampler.AxisHandle{Axis: e.Axis, Addr: e.Addr, Handle: h})
	}

	smp := sampler.New(sampler.Config{
		Driver:      driver,
		Axes:        axes,
		Ring:        sampleRing,
		Counters:    counters,
		Observer:    observer,
		Logger:      logger,
		CPUAffinity: params.CPUAffinity,
	})

	pub := publisher.New(publisher.Config{
		Ring:        sampleRing,
		Bus:         client,
		Topic:       params.Config.TopicPosition,
		BatchMax:    params.Config.BatchMax,
		BatchPeriod: time.Duration(params.Config.BatchPeriodMs) * time.Millisecond,
		Counters:    counters,
		Observer:    observer,
		Logger:      logger,
	})

	disp := dispatcher.New(dispatcher.Config{
		Topology:    topo,
		Driver:      driver,
		Handles:     handles,
		Bus:         client,
		ResultTopic: params.Config.TopicResult,
		Counters:    counters,
		Observer:    observer,
		Logger:      logger,
	})

	if err := client.Subscribe(params.Config.TopicCommand, bus.QoSAtMostOnce, disp.HandleMessage); err != nil {
		client.Disconnect()
		return nil, fmt.Errorf("subscribe command topic: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	core := &Core{
		cfg:         params.Config,
		driver:      driver,
		client:      client,
		topo:        topo,
		samplerRing: sampleRing,
		sampler:     smp,
		publisher:   pub,
		dispatcher:  disp,
		counters:    counters,
		logger:      logger,
		handles:     handles,
		ctx:         runCtx,
		cancel:      cancel,
		running:     true,
	}

	core.publishStatus(SystemStarting)

	core.wg.Add(3)
	go func() {
		defer core.wg.Done()
		core.sampler.Run(runCtx)
	}()
	go func() {
		defer core.wg.Done()
		core.publisher.Run(runCtx)
	}()
	go func() {
		defer core.wg.Done()
		core.dispatcher.Run(runCtx)
	}()

	if topo.Degraded() {
		core.publishStatus(SystemDegraded)
	} else {
		core.publishStatus(SystemReady)
	}
	return core, nil
}

// Counters returns the live counter block, for status endpoints or tests.
func (c *Core) Counters() *status.Counters {
	return c.counters
}

// Topology returns the resolved Topology Map.
func (c *Core) Topology() *topology.Topology {
	return c.topo
}

// IsRunning reports whether the Core has not yet been stopped.
func (c *Core) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Core) publishStatus(state string) {
	if err := c.client.Publish(c.cfg.TopicStatus, []byte(state), bus.QoSAtLeastOnce, true); err != nil {
		c.logger.Warn("failed to publish status", "state", state, "error", err)
	}
}

// StopAndDelete runs the shutdown sequence of SPEC_FULL.md §5: cancel every
// loop, disable move/output on every connected axis, publish
// SYSTEM_STOPPING/SYSTEM_STOPPED, then release driver and bus resources.
func StopAndDelete(ctx context.Context, core *Core) error {
	if core == nil {
		return NewError("stop", ErrCodeInvalidParameters, "core is nil")
	}

	core.mu.Lock()
	if !core.running {
		core.mu.Unlock()
		return nil
	}
	core.running = false
	core.mu.Unlock()

	core.publishStatus(SystemStopping)
	core.cancel()

	done := make(chan struct{})
	go func() {
		core.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		core.logger.Warn("shutdown grace period elapsed before all loops exited")
	case <-ctx.Done():
	}

	for _, entry := range core.topo.IterConnected() {
		h, ok := core.handles[entry.Addr.Slot]
		if !ok {
			continue
		}
		if err := core.driver.SetMoveEnable(h, entry.Addr.Axis, false); err != nil {
			core.logger.Warn("failed to disable move on shutdown", "axis", entry.Axis, "error", err)
		}
		if err := core.driver.SetOutput(h, entry.Addr.Axis, false); err != nil {
			core.logger.Warn("failed to disable output on shutdown", "axis", entry.Axis, "error", err)
		}
	}

	for _, h := range core.handles {
		if err := core.driver.Close(h); err != nil {
			core.logger.Warn("failed to close driver handle", "error", err)
		}
	}

	core.publishStatus(SystemStopped)
	core.client.Disconnect()
	return nil
}
