// Package dal implements the Device Access Layer of SPEC_FULL.md §4.1/§6.5:
// a narrow, synchronous wrapper around a motion-controller driver. The real
// vendor driver is an external capability; this package defines the
// interface it must satisfy and ships SimDriver, a simulated implementation
// used for tests and the "-sim" runtime mode.
package dal

import "github.com/cas-centre/stagecore/internal/logging"

// MoveState describes the motion state of an axis (SPEC_FULL.md §4.1
// read_status).
type MoveState int

const (
	MoveIdle MoveState = iota
	MoveMoving
	MovePending
)

// Status is the result of a read_status call for a single axis.
type Status struct {
	Moving    MoveState
	RefValid  bool
	EotFwd    bool
	EotBkwd   bool
	InTarget  bool
	Error     bool
}

// Handle is an opaque per-controller connection returned by Connect.
type Handle interface {
	// FirmwareID is a driver-reported identifier for diagnostics.
	FirmwareID() string
	// Locked reports whether the controller reported itself as locked
	// (e.g. held by another process) at connect time.
	Locked() bool
}

// Driver is the narrow synchronous capability SPEC_FULL.md §4.1 requires.
// Every method is wall-clock bounded in the normal case; callers invoking
// these from the Sampler accept that latency as part of the tick budget.
// Implementations that are not internally thread-safe must serialize calls
// against the same Handle themselves (SimDriver does this with one mutex per
// controller axis; see sim.go).
type Driver interface {
	// Enumerate returns the ordered list of controller ids the driver can
	// currently see, in driver enumeration order.
	Enumerate() ([]int, error)

	// Connect opens a handle to the controller identified by its id, as
	// reported by Enumerate.
	Connect(controllerID int) (Handle, error)

	IsConnected(h Handle, axis int) bool
	ReadPosition(h Handle, axis int) (int32, error)
	ReadStatus(h Handle, axis int) (Status, error)
	SetTarget(h Handle, axis int, pos int32) error
	SetMoveEnable(h Handle, axis int, on bool) error
	SetOutput(h Handle, axis int, on bool) error
	SetAmplitude(h Handle, axis int, millivolts int32) error
	SetFrequency(h Handle, axis int, millihertz int32) error
	SetTargetRange(h Handle, axis int, rng int32) error

	Close(h Handle) error
}

// WithLogger is implemented by drivers that accept an ambient logger.
type WithLogger interface {
	SetLogger(l *logging.Logger)
}
