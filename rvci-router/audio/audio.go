// Package audio isolates every direct OS audio-handle manipulation behind
// small capability interfaces so the router stays platform-independent.
package audio

import "errors"

// ErrUnavailable is returned by the no-op subsystem used when the platform
// audio backend could not be initialized. Callers treat it like any other
// best-effort failure.
var ErrUnavailable = errors.New("audio subsystem unavailable")

// Device is one playback endpoint as reported by the OS.
type Device struct {
	Name string // display name, possibly decorated with driver details
	ID   string // stable identifier, passed to the switch helper
}

// Endpoint controls the master volume of the default render device.
// Acquired per use and released immediately; a failed acquisition is
// simply retried on the next frame.
type Endpoint interface {
	SetMasterVolume(level float32) error
	Release()
}

// Session is one OS-level audio stream owned by a process.
type Session interface {
	PID() uint32
	SetVolume(level float32) error
	Release()
}

// Subsystem is the platform audio backend. COM initialization is
// per-thread, so Init must be called from the goroutine that will make
// every subsequent call, before any other method.
type Subsystem interface {
	Init() error
	DefaultEndpoint() (Endpoint, error)
	Sessions() ([]Session, error)
	PlaybackDevices() ([]Device, error)
	Release() error
}

// ProcessNameResolver resolves a process id to its executable name.
type ProcessNameResolver interface {
	Resolve(pid uint32) (string, error)
}

// DeviceLister is the slice of Subsystem the device switcher needs.
type DeviceLister interface {
	PlaybackDevices() ([]Device, error)
}

type unavailable struct{}

func (unavailable) Init() error { return nil }

func (unavailable) DefaultEndpoint() (Endpoint, error) { return nil, ErrUnavailable }

func (unavailable) Sessions() ([]Session, error) { return nil, ErrUnavailable }

func (unavailable) PlaybackDevices() ([]Device, error) { return nil, ErrUnavailable }

func (unavailable) Release() error { return nil }

// Unavailable returns a Subsystem whose every call fails with
// ErrUnavailable. The router degrades to a protocol-only run.
func Unavailable() Subsystem { return unavailable{} }
