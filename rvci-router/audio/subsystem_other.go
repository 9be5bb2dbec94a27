//go:build !windows

package audio

// NewSubsystem returns the no-op subsystem on platforms without a Core
// Audio backend. The router still runs the full protocol loop; every
// audio call degrades to a best-effort failure.
func NewSubsystem() Subsystem {
	return Unavailable()
}
