package stagecore

import (
	"github.com/cas-centre/stagecore/internal/bus"
	"github.com/cas-centre/stagecore/internal/dal"
)

// MockClient and SimDriver are re-exported for consumers who want to build
// and exercise a Core without a real broker or motion-controller library,
// mirroring the teacher's exported MockBackend convenience.
type (
	MockClient = bus.MockClient
	SimDriver  = dal.SimDriver
)

var (
	NewMockClient = bus.NewMockClient
	NewSimDriver  = dal.NewSimDriver
)
