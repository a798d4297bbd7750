package dal

import (
	"fmt"
	"sync"

	"github.com/cas-centre/stagecore/internal/stageerr"
)

// simHandle is the SimDriver's Handle implementation.
type simHandle struct {
	controllerID int
	firmwareID   string
}

func (h *simHandle) FirmwareID() string { return h.firmwareID }
func (h *simHandle) Locked() bool       { return false }

type axisState struct {
	mu         sync.Mutex
	connected  bool
	position   int32
	target     int32
	moving     bool
	amplitude  int32
	frequency  int32
	targetRng  int32
	output     bool
}

// SimDriver is an in-memory simulated motion-controller driver. It stands in
// for the external vendor library (SPEC_FULL.md §6.5) in tests and in the
// "-sim" runtime mode. Each (controller, axis) pair is guarded by its own
// mutex, the same fine-grained-locking idiom the teacher uses to shard a
// backing store across independent regions rather than one coarse lock.
//
// Call counts are tracked for test assertions, mirroring the teacher's
// MockBackend.
type SimDriver struct {
	mu          sync.Mutex
	controllers []int
	axes        map[int]map[int]*axisState // controllerID -> axis -> state

	readCalls   int
	writeCalls  int
	closeCalled bool
}

// NewSimDriver creates a simulated driver exposing the given controller ids,
// each with 3 axes (0, 1, 2) connected and parked at position 0.
func NewSimDriver(controllerIDs ...int) *SimDriver {
	d := &SimDriver{
		controllers: append([]int(nil), controllerIDs...),
		axes:        make(map[int]map[int]*axisState),
	}
	for _, cid := range controllerIDs {
		axes := make(map[int]*axisState)
		for a := 0; a < 3; a++ {
			axes[a] = &axisState{connected: true}
		}
		d.axes[cid] = axes
	}
	return d
}

func (d *SimDriver) Enumerate() ([]int, error) {
	return append([]int(nil), d.controllers...), nil
}

func (d *SimDriver) Connect(controllerID int) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.axes[controllerID]; !ok {
		return nil, stageerr.NewAxis("connect", "", stageerr.ErrCodeDeviceNotFound, fmt.Sprintf("controller %d not present", controllerID))
	}
	return &simHandle{controllerID: controllerID, firmwareID: fmt.Sprintf("sim-fw-%d", controllerID)}, nil
}

func (d *SimDriver) state(h Handle, axis int) (*axisState, error) {
	sh, ok := h.(*simHandle)
	if !ok {
		return nil, stageerr.New("dal", stageerr.ErrCodeInvalidParameters, "invalid handle type")
	}
	d.mu.Lock()
	axes, ok := d.axes[sh.controllerID]
	d.mu.Unlock()
	if !ok {
		return nil, stageerr.New("dal", stageerr.ErrCodeDeviceNotFound, "unknown controller")
	}
	st, ok := axes[axis]
	if !ok {
		return nil, stageerr.New("dal", stageerr.ErrCodeInvalidParameters, "unknown axis index")
	}
	return st, nil
}

func (d *SimDriver) IsConnected(h Handle, axis int) bool {
	st, err := d.state(h, axis)
	if err != nil {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.connected
}

func (d *SimDriver) ReadPosition(h Handle, axis int) (int32, error) {
	d.mu.Lock()
	d.readCalls++
	d.mu.Unlock()

	st, err := d.state(h, axis)
	if err != nil {
		return 0, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.connected {
		return 0, stageerr.New("read_position", stageerr.ErrCodeDeviceNotFound, "axis not connected")
	}
	// Simulated actors converge toward target instantaneously; a real
	// driver would report the in-flight position.
	if st.moving {
		st.position = st.target
	}
	return st.position, nil
}

func (d *SimDriver) ReadStatus(h Handle, axis int) (Status, error) {
	st, err := d.state(h, axis)
	if err != nil {
		return Status{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	// SetMoveEnable converges position to target synchronously, so a
	// simulated axis is never observed mid-move: always idle.
	return Status{
		Moving:   MoveIdle,
		RefValid: true,
		InTarget: st.position == st.target,
	}, nil
}

func (d *SimDriver) SetTarget(h Handle, axis int, pos int32) error {
	d.mu.Lock()
	d.writeCalls++
	d.mu.Unlock()

	st, err := d.state(h, axis)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.target = pos
	return nil
}

func (d *SimDriver) SetMoveEnable(h Handle, axis int, on bool) error {
	st, err := d.state(h, axis)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.moving = on
	if on {
		st.position = st.target
	}
	return nil
}

func (d *SimDriver) SetOutput(h Handle, axis int, on bool) error {
	st, err := d.state(h, axis)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.output = on
	return nil
}

func (d *SimDriver) SetAmplitude(h Handle, axis int, millivolts int32) error {
	st, err := d.state(h, axis)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.amplitude = millivolts
	return nil
}

func (d *SimDriver) SetFrequency(h Handle, axis int, millihertz int32) error {
	st, err := d.state(h, axis)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.frequency = millihertz
	return nil
}

func (d *SimDriver) SetTargetRange(h Handle, axis int, rng int32) error {
	st, err := d.state(h, axis)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.targetRng = rng
	return nil
}

func (d *SimDriver) Close(h Handle) error {
	d.mu.Lock()
	d.closeCalled = true
	d.mu.Unlock()
	return nil
}

// Disconnect marks an axis as disconnected, for exercising the
// "axis present in topology but absent at read time" path in tests.
func (d *SimDriver) Disconnect(controllerID, axis int) {
	d.mu.Lock()
	axes := d.axes[controllerID]
	d.mu.Unlock()
	if axes == nil {
		return
	}
	if st, ok := axes[axis]; ok {
		st.mu.Lock()
		st.connected = false
		st.mu.Unlock()
	}
}

// CallCounts returns the number of ReadPosition calls (reads) and SetTarget
// calls (writes) issued so far, for test assertions. No other operation is
// counted.
func (d *SimDriver) CallCounts() (reads, writes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readCalls, d.writeCalls
}

var _ Driver = (*SimDriver)(nil)
