// Package topology implements the Topology Map of SPEC_FULL.md §4.2: an
// immutable-after-init table resolving logical axis names to physical
// (controller-slot, axis-index) pairs.
package topology

import "github.com/cas-centre/stagecore/internal/dal"

// AxisId is a logical axis name.
type AxisId string

const (
	AxisX AxisId = "X"
	AxisY AxisId = "Y"
	AxisZ AxisId = "Z"
	AxisR AxisId = "R"
)

// AllAxes lists every logical axis in a stable order, used for iteration
// where determinism matters (STATUS output, tests).
var AllAxes = []AxisId{AxisX, AxisY, AxisZ, AxisR}

// PhysicalAddress identifies a controller slot and an axis index within it.
type PhysicalAddress struct {
	Slot int
	Axis int
}

// TopologyEntry is one row of the map, fixed at construction.
type TopologyEntry struct {
	Axis      AxisId
	Addr      PhysicalAddress
	Connected bool
}

// binding is the build/deploy-time logical-axis-to-controller-id mapping,
// normalized per SPEC_FULL.md §9 (Y=0, X=1, Z=2 on controller A; R=0 on
// controller B).
type binding struct {
	axis         AxisId
	controllerID int
	axisIndex    int
}

// ControllerInfo names one enumerated controller by its slot and reported id
// (spec.md §3 ControllerState, narrowed to the fields STATUS reports).
type ControllerInfo struct {
	Slot         int
	ControllerID int
}

// Topology is the fully-built, read-only-after-construction axis map.
type Topology struct {
	entries     map[AxisId]TopologyEntry
	controllers []ControllerInfo
}

// Build enumerates the driver and constructs the Topology Map by binding
// logical axes to the given controller ids (SPEC_FULL.md §4.2/§4.7). Axes
// whose controller id is not present in the enumeration are marked absent;
// Build never fails for that reason alone — the system starts with those
// axes permanently invalid, per spec.md §4.2.
func Build(d dal.Driver, controllerA, controllerB int) (*Topology, error) {
	ids, err := d.Enumerate()
	if err != nil {
		return nil, err
	}
	present := make(map[int]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	bindings := []binding{
		{AxisY, controllerA, 0},
		{AxisX, controllerA, 1},
		{AxisZ, controllerA, 2},
		{AxisR, controllerB, 0},
	}

	entries := make(map[AxisId]TopologyEntry, len(bindings))
	slots := slotsByControllerID(ids)
	for _, b := range bindings {
		slot, ok := slots[b.controllerID]
		entries[b.axis] = TopologyEntry{
			Axis:      b.axis,
			Addr:      PhysicalAddress{Slot: slot, Axis: b.axisIndex},
			Connected: ok && present[b.controllerID],
		}
	}

	controllers := make([]ControllerInfo, len(ids))
	for slot, cid := range ids {
		controllers[slot] = ControllerInfo{Slot: slot, ControllerID: cid}
	}

	return &Topology{entries: entries, controllers: controllers}, nil
}

// slotsByControllerID resolves controller-id to slot by linear scan of the
// enumeration results; first match wins (SPEC_FULL.md §4.2).
func slotsByControllerID(ids []int) map[int]int {
	slots := make(map[int]int, len(ids))
	for i, id := range ids {
		if _, seen := slots[id]; !seen {
			slots[id] = i
		}
	}
	return slots
}

// Resolve returns the physical address bound to axis, and whether it is
// connected.
func (t *Topology) Resolve(axis AxisId) (PhysicalAddress, bool) {
	e, ok := t.entries[axis]
	if !ok {
		return PhysicalAddress{}, false
	}
	return e.Addr, e.Connected
}

// Degraded reports whether any bound axis is disconnected (its controller id
// was not present in the enumeration). The system still starts in this
// state per SPEC_FULL.md §4.2; the lifecycle status published at startup
// reflects it (SPEC_FULL.md §3).
func (t *Topology) Degraded() bool {
	for _, e := range t.entries {
		if !e.Connected {
			return true
		}
	}
	return false
}

// IterConnected returns every connected axis entry, in AllAxes order.
func (t *Topology) IterConnected() []TopologyEntry {
	var out []TopologyEntry
	for _, a := range AllAxes {
		if e, ok := t.entries[a]; ok && e.Connected {
			out = append(out, e)
		}
	}
	return out
}

// Controllers returns every enumerated controller in slot order, for STATUS
// reporting (spec.md §8 scenario S1).
func (t *Topology) Controllers() []ControllerInfo {
	return append([]ControllerInfo(nil), t.controllers...)
}

// All returns every entry (connected or not) in AllAxes order.
func (t *Topology) All() []TopologyEntry {
	out := make([]TopologyEntry, 0, len(AllAxes))
	for _, a := range AllAxes {
		if e, ok := t.entries[a]; ok {
			out = append(out, e)
		}
	}
	return out
}
