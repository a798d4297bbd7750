package stagecore

import "github.com/cas-centre/stagecore/internal/stageerr"

// StageError, ErrorCode, and the constructors below re-export
// internal/stageerr as stagecore's public error API, the same way the
// teacher's root constants.go re-exports internal constants: every leaf
// package constructs these errors directly against internal/stageerr (to
// avoid importing the root package), and callers of this module see them
// here.
type (
	StageError = stageerr.StageError
	ErrorCode  = stageerr.ErrorCode
)

const (
	ErrCodeDeviceNotFound    = stageerr.ErrCodeDeviceNotFound
	ErrCodeDeviceBusy        = stageerr.ErrCodeDeviceBusy
	ErrCodeInvalidParameters = stageerr.ErrCodeInvalidParameters
	ErrCodeIOError           = stageerr.ErrCodeIOError
	ErrCodeTimeout           = stageerr.ErrCodeTimeout
	ErrCodeAxisNotConnected  = stageerr.ErrCodeAxisNotConnected
	ErrCodeNotImplemented    = stageerr.ErrCodeNotImplemented
)

var (
	NewError     = stageerr.New
	NewAxisError = stageerr.NewAxis
	WrapError    = stageerr.Wrap
	IsCode       = stageerr.IsCode
)
