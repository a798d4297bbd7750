package topology

import (
	"testing"

	"github.com/cas-centre/stagecore/internal/dal"
)

func TestBuildResolvesAllAxesWhenBothControllersPresent(t *testing.T) {
	d := dal.NewSimDriver(4, 2222)
	topo, err := Build(d, 4, 2222)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	cases := []struct {
		axis AxisId
		want PhysicalAddress
	}{
		{AxisY, PhysicalAddress{Slot: 0, Axis: 0}},
		{AxisX, PhysicalAddress{Slot: 0, Axis: 1}},
		{AxisZ, PhysicalAddress{Slot: 0, Axis: 2}},
		{AxisR, PhysicalAddress{Slot: 1, Axis: 0}},
	}
	for _, c := range cases {
		addr, connected := topo.Resolve(c.axis)
		if !connected {
			t.Errorf("axis %s: expected connected", c.axis)
		}
		if addr != c.want {
			t.Errorf("axis %s: expected %+v, got %+v", c.axis, c.want, addr)
		}
	}

	if len(topo.IterConnected()) != 4 {
		t.Errorf("expected 4 connected axes, got %d", len(topo.IterConnected()))
	}
}

func TestBuildMarksAbsentControllerAxesDisconnected(t *testing.T) {
	// Only controller A (4) present; R's controller (2222) absent — S4 in
	// SPEC_FULL.md §8.
	d := dal.NewSimDriver(4)
	topo, err := Build(d, 4, 2222)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, connected := topo.Resolve(AxisR); connected {
		t.Error("expected R to be disconnected when controller 2222 is absent")
	}
	if _, connected := topo.Resolve(AxisX); !connected {
		t.Error("expected X to remain connected")
	}

	connected := topo.IterConnected()
	if len(connected) != 3 {
		t.Errorf("expected 3 connected axes, got %d", len(connected))
	}
	if !topo.Degraded() {
		t.Error("expected topology to report degraded when an axis is absent")
	}
}

func TestDegradedFalseWhenAllAxesConnected(t *testing.T) {
	d := dal.NewSimDriver(4, 2222)
	topo, _ := Build(d, 4, 2222)
	if topo.Degraded() {
		t.Error("expected topology not to report degraded when every axis is connected")
	}
}

func TestControllersReportsSlotAndId(t *testing.T) {
	d := dal.NewSimDriver(4, 2222)
	topo, err := Build(d, 4, 2222)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []ControllerInfo{{Slot: 0, ControllerID: 4}, {Slot: 1, ControllerID: 2222}}
	got := topo.Controllers()
	if len(got) != len(want) {
		t.Fatalf("expected %d controllers, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("controller %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestResolveUnknownAxis(t *testing.T) {
	d := dal.NewSimDriver(4, 2222)
	topo, _ := Build(d, 4, 2222)
	if _, ok := topo.Resolve("Q"); ok {
		t.Error("expected unknown axis to resolve as not connected")
	}
}
