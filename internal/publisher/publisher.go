// Package publisher implements the Publisher of SPEC_FULL.md §4.5: drains
// the Sample Ring in periodic batches, formats each record per §6.1, and
// publishes one concatenated message per batch at QoS 0.
package publisher

import (
	"context"
	"time"

	"github.com/cas-centre/stagecore/internal/bus"
	"github.com/cas-centre/stagecore/internal/logging"
	"github.com/cas-centre/stagecore/internal/ring"
	"github.com/cas-centre/stagecore/internal/status"
	"github.com/cas-centre/stagecore/internal/wire"
)

// Config configures a Publisher.
type Config struct {
	Ring        *ring.Ring
	Bus         bus.Client
	Topic       string
	BatchMax    int
	BatchPeriod time.Duration
	Counters    *status.Counters
	Observer    status.Observer
	Logger      *logging.Logger
}

// Publisher runs the batch drain/format/publish loop described in
// SPEC_FULL.md §4.5.
type Publisher struct {
	cfg     Config
	obs     status.Observer
	scratch []ring.PositionSample
}

// New creates a Publisher from cfg. If cfg.Observer is nil, a NoOpObserver
// is used.
func New(cfg Config) *Publisher {
	obs := cfg.Observer
	if obs == nil {
		obs = status.NoOpObserver{}
	}
	return &Publisher{
		cfg:     cfg,
		obs:     obs,
		scratch: make([]ring.PositionSample, cfg.BatchMax),
	}
}

// Run drains and publishes batches every cfg.BatchPeriod until ctx is
// cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.BatchPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drainAndPublish()
		}
	}
}

// drainAndPublish performs one batch period's worth of work.
func (p *Publisher) drainAndPublish() {
	n := p.cfg.Ring.Drain(p.scratch)
	if n == 0 {
		return
	}

	buf := getLineBuf()
	defer func() { putLineBuf(buf) }()

	for i := 0; i < n; i++ {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = wire.AppendPositionLine(buf, p.scratch[i])
	}

	err := p.cfg.Bus.Publish(p.cfg.Topic, buf, bus.QoSAtMostOnce, false)
	ok := err == nil
	if ok {
		p.cfg.Counters.Published.Add(uint64(n))
	} else if p.cfg.Logger != nil {
		// Positions are telemetry, not history: a failed publish drops
		// the whole batch rather than retrying and violating pacing
		// (SPEC_FULL.md §4.5/§7).
		p.cfg.Logger.Warn("position batch publish failed, dropping batch", "records", n, "error", err)
	}
	p.obs.ObservePublishBatch(n, ok)
}
