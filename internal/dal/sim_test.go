package dal

import (
	"testing"

	"github.com/cas-centre/stagecore/internal/stageerr"
)

func TestSimDriverEnumerateAndConnect(t *testing.T) {
	d := NewSimDriver(4, 2222)

	ids, err := d.Enumerate()
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	if len(ids) != 2 || ids[0] != 4 || ids[1] != 2222 {
		t.Fatalf("unexpected enumeration order: %v", ids)
	}

	h, err := d.Connect(4)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if h.FirmwareID() == "" {
		t.Error("expected non-empty firmware id")
	}
}

func TestSimDriverConnectUnknownController(t *testing.T) {
	d := NewSimDriver(4)
	_, err := d.Connect(999)
	if !stageerr.IsCode(err, stageerr.ErrCodeDeviceNotFound) {
		t.Fatalf("expected device-not-found, got %v", err)
	}
}

func TestSimDriverMoveAndReadPosition(t *testing.T) {
	d := NewSimDriver(4)
	h, _ := d.Connect(4)

	if err := d.SetTarget(h, 0, 12345); err != nil {
		t.Fatalf("set_target: %v", err)
	}
	if err := d.SetMoveEnable(h, 0, true); err != nil {
		t.Fatalf("set_move_enable: %v", err)
	}
	pos, err := d.ReadPosition(h, 0)
	if err != nil {
		t.Fatalf("read_position: %v", err)
	}
	if pos != 12345 {
		t.Errorf("expected position 12345, got %d", pos)
	}

	st, err := d.ReadStatus(h, 0)
	if err != nil {
		t.Fatalf("read_status: %v", err)
	}
	if !st.InTarget {
		t.Error("expected in-target after converged move")
	}
}

func TestSimDriverDisconnectedAxisFailsReads(t *testing.T) {
	d := NewSimDriver(4)
	h, _ := d.Connect(4)
	d.Disconnect(4, 1)

	if d.IsConnected(h, 1) {
		t.Error("expected axis 1 to report disconnected")
	}
	_, err := d.ReadPosition(h, 1)
	if !stageerr.IsCode(err, stageerr.ErrCodeDeviceNotFound) {
		t.Fatalf("expected device-not-found reading disconnected axis, got %v", err)
	}
}

func TestSimDriverCallCounts(t *testing.T) {
	d := NewSimDriver(4)
	h, _ := d.Connect(4)

	d.ReadPosition(h, 0)
	d.ReadPosition(h, 0)
	d.SetTarget(h, 0, 1)

	reads, writes := d.CallCounts()
	if reads != 2 {
		t.Errorf("expected 2 reads, got %d", reads)
	}
	if writes != 1 {
		t.Errorf("expected 1 write, got %d", writes)
	}
}
