package stagecore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cas-centre/stagecore/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ControllerA = 4
	cfg.ControllerB = 2222
	cfg.RingCapacity = 64
	cfg.BatchMax = 16
	cfg.BatchPeriodMs = 10
	cfg.SampleRateHz = 1000
	return &cfg
}

func TestCreateAndServePublishesReadyStatus(t *testing.T) {
	mc := NewMockClient()
	driver := NewSimDriver(4, 2222)

	core, err := CreateAndServe(context.Background(), Params{
		Config: testConfig(),
		Driver: driver,
		Bus:    mc,
	}, nil)
	if err != nil {
		t.Fatalf("CreateAndServe: %v", err)
	}
	defer StopAndDelete(context.Background(), core)

	if !core.IsRunning() {
		t.Fatal("expected core to be running")
	}

	found := false
	for _, m := range mc.Published() {
		if m.Topic == testConfig().TopicStatus && string(m.Payload) == SystemReady {
			found = true
		}
	}
	if !found {
		t.Error("expected SYSTEM_READY published to status topic")
	}
}

func TestCreateAndServePublishesDegradedWhenAxisAbsent(t *testing.T) {
	mc := NewMockClient()
	driver := NewSimDriver(4) // controller 2222 (R) absent
	cfg := testConfig()

	core, err := CreateAndServe(context.Background(), Params{
		Config: cfg,
		Driver: driver,
		Bus:    mc,
	}, nil)
	if err != nil {
		t.Fatalf("CreateAndServe: %v", err)
	}
	defer StopAndDelete(context.Background(), core)

	foundDegraded, foundReady := false, false
	for _, m := range mc.Published() {
		if m.Topic != cfg.TopicStatus {
			continue
		}
		switch string(m.Payload) {
		case SystemDegraded:
			foundDegraded = true
		case SystemReady:
			foundReady = true
		}
	}
	if !foundDegraded {
		t.Error("expected SYSTEM_DEGRADED published when R's controller is absent")
	}
	if foundReady {
		t.Error("did not expect SYSTEM_READY when starting degraded")
	}
}

func TestCreateAndServeRejectsNilConfig(t *testing.T) {
	if _, err := CreateAndServe(context.Background(), Params{}, nil); err == nil {
		t.Fatal("expected error for nil Config")
	}
}

func TestCoreSamplesAndPublishesPosition(t *testing.T) {
	mc := NewMockClient()
	driver := NewSimDriver(4, 2222)
	cfg := testConfig()

	core, err := CreateAndServe(context.Background(), Params{
		Config: cfg,
		Driver: driver,
		Bus:    mc,
	}, nil)
	if err != nil {
		t.Fatalf("CreateAndServe: %v", err)
	}
	defer StopAndDelete(context.Background(), core)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		for _, m := range mc.Published() {
			if m.Topic == cfg.TopicPosition {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("expected at least one position batch published within 1s")
}

func TestCoreDispatchesCommandsViaBusSubscription(t *testing.T) {
	mc := NewMockClient()
	driver := NewSimDriver(4, 2222)
	cfg := testConfig()

	core, err := CreateAndServe(context.Background(), Params{
		Config: cfg,
		Driver: driver,
		Bus:    mc,
	}, nil)
	if err != nil {
		t.Fatalf("CreateAndServe: %v", err)
	}
	defer StopAndDelete(context.Background(), core)

	mc.Deliver(cfg.TopicCommand, []byte("STATUS"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		for _, m := range mc.Published() {
			if m.Topic == cfg.TopicResult && strings.Contains(string(m.Payload), "STATUS") {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("expected a STATUS result published within 1s")
}

func TestStopAndDeleteDisablesAxesAndPublishesStopped(t *testing.T) {
	mc := NewMockClient()
	driver := NewSimDriver(4, 2222)
	cfg := testConfig()

	core, err := CreateAndServe(context.Background(), Params{
		Config: cfg,
		Driver: driver,
		Bus:    mc,
	}, nil)
	if err != nil {
		t.Fatalf("CreateAndServe: %v", err)
	}

	if err := StopAndDelete(context.Background(), core); err != nil {
		t.Fatalf("StopAndDelete: %v", err)
	}
	if core.IsRunning() {
		t.Error("expected core to report stopped")
	}

	found := false
	for _, m := range mc.Published() {
		if m.Topic == cfg.TopicStatus && string(m.Payload) == SystemStopped {
			found = true
		}
	}
	if !found {
		t.Error("expected SYSTEM_STOPPED published on shutdown")
	}
}

func TestStopAndDeleteIsIdempotent(t *testing.T) {
	mc := NewMockClient()
	driver := NewSimDriver(4, 2222)
	core, err := CreateAndServe(context.Background(), Params{
		Config: testConfig(),
		Driver: driver,
		Bus:    mc,
	}, nil)
	if err != nil {
		t.Fatalf("CreateAndServe: %v", err)
	}

	if err := StopAndDelete(context.Background(), core); err != nil {
		t.Fatalf("first StopAndDelete: %v", err)
	}
	if err := StopAndDelete(context.Background(), core); err != nil {
		t.Fatalf("second StopAndDelete: %v", err)
	}
}
