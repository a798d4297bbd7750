package stagecore

// Status lifecycle strings published on the status topic (SPEC_FULL.md §3).
const (
	SystemStarting = "SYSTEM_STARTING"
	SystemReady    = "SYSTEM_READY"
	SystemDegraded = "SYSTEM_DEGRADED"
	SystemStopping = "SYSTEM_STOPPING"
	SystemStopped  = "SYSTEM_STOPPED"
)
