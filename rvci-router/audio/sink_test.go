package audio

import (
	"errors"
	"testing"

	"github.com/TZeys/RVCI/rvci-router/config"
)

type fakeEndpoint struct {
	set      []float32
	released int
	err      error
}

func (f *fakeEndpoint) SetMasterVolume(v float32) error {
	f.set = append(f.set, v)
	return f.err
}

func (f *fakeEndpoint) Release() { f.released++ }

type fakeSession struct {
	pid      uint32
	set      []float32
	released int
	err      error
}

func (f *fakeSession) PID() uint32 { return f.pid }

func (f *fakeSession) SetVolume(v float32) error {
	f.set = append(f.set, v)
	return f.err
}

func (f *fakeSession) Release() { f.released++ }

type fakeSubsystem struct {
	endpoint    *fakeEndpoint
	endpointErr error
	sessions    []*fakeSession
	sessionsErr error
	devices     []Device
	devicesErr  error
}

func (f *fakeSubsystem) Init() error { return nil }

func (f *fakeSubsystem) DefaultEndpoint() (Endpoint, error) {
	if f.endpointErr != nil {
		return nil, f.endpointErr
	}
	return f.endpoint, nil
}

func (f *fakeSubsystem) Sessions() ([]Session, error) {
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	out := make([]Session, len(f.sessions))
	for i, s := range f.sessions {
		out[i] = s
	}
	return out, nil
}

func (f *fakeSubsystem) PlaybackDevices() ([]Device, error) {
	if f.devicesErr != nil {
		return nil, f.devicesErr
	}
	return f.devices, nil
}

func (f *fakeSubsystem) Release() error { return nil }

type mapResolver map[uint32]string

func (m mapResolver) Resolve(pid uint32) (string, error) {
	name, ok := m[pid]
	if !ok {
		return "", errors.New("no such process")
	}
	return name, nil
}

func TestSinkSystemDial(t *testing.T) {
	ep := &fakeEndpoint{}
	sys := &fakeSubsystem{endpoint: ep}
	sink := NewSink(sys, mapResolver{}, nil)

	sink.Apply(config.Dial{Type: config.DialSystem}, 0.5)
	if len(ep.set) != 1 || ep.set[0] != 0.5 {
		t.Errorf("set = %v", ep.set)
	}
	if ep.released != 1 {
		t.Errorf("endpoint released %d times, want 1", ep.released)
	}
}

func TestSinkSystemDialEndpointError(t *testing.T) {
	sys := &fakeSubsystem{endpointErr: errors.New("no device")}
	sink := NewSink(sys, mapResolver{}, nil)
	sink.Apply(config.Dial{Type: config.DialSystem}, 0.5) // must not panic
}

func TestSinkProcessDialMatchesByName(t *testing.T) {
	chrome := &fakeSession{pid: 100}
	spotify := &fakeSession{pid: 200}
	sys := &fakeSubsystem{sessions: []*fakeSession{chrome, spotify}}
	resolver := mapResolver{100: "chrome.exe", 200: "spotify.exe"}
	sink := NewSink(sys, resolver, nil)

	sink.Apply(config.Dial{Type: config.DialProcess, ProcessName: "Chrome.exe"}, 0.3)
	if len(chrome.set) != 1 || chrome.set[0] != 0.3 {
		t.Errorf("chrome set = %v", chrome.set)
	}
	if len(spotify.set) != 0 {
		t.Errorf("spotify set = %v, want untouched", spotify.set)
	}
	if chrome.released != 1 || spotify.released != 1 {
		t.Error("every session must be released")
	}
}

func TestSinkProcessDialEmptyNameIsNoop(t *testing.T) {
	sess := &fakeSession{pid: 100}
	sys := &fakeSubsystem{sessions: []*fakeSession{sess}}
	sink := NewSink(sys, mapResolver{100: "chrome.exe"}, nil)

	sink.Apply(config.Dial{Type: config.DialProcess, ProcessName: ""}, 0.3)
	if len(sess.set) != 0 {
		t.Errorf("set = %v, want no calls", sess.set)
	}
}

func TestSinkAllOthersSkipsClaimed(t *testing.T) {
	chrome := &fakeSession{pid: 100}
	spotify := &fakeSession{pid: 200}
	system := &fakeSession{pid: 0}
	sys := &fakeSubsystem{sessions: []*fakeSession{system, chrome, spotify}}
	resolver := mapResolver{100: "chrome.exe", 200: "spotify.exe"}
	claims := map[string]struct{}{"chrome.exe": {}}
	sink := NewSink(sys, resolver, claims)

	sink.Apply(config.Dial{Type: config.DialAllOthers}, 0.8)
	if len(chrome.set) != 0 {
		t.Errorf("claimed session was set: %v", chrome.set)
	}
	if len(spotify.set) != 1 || spotify.set[0] != 0.8 {
		t.Errorf("unclaimed set = %v", spotify.set)
	}
	if len(system.set) != 0 {
		t.Error("pid 0 session must be skipped")
	}
	if system.released != 1 {
		t.Error("pid 0 session must still be released")
	}
}

func TestSinkUnresolvablePIDTreatedAsUnclaimed(t *testing.T) {
	ghost := &fakeSession{pid: 999}
	sys := &fakeSubsystem{sessions: []*fakeSession{ghost}}
	sink := NewSink(sys, mapResolver{}, map[string]struct{}{"chrome.exe": {}})

	sink.Apply(config.Dial{Type: config.DialAllOthers}, 0.4)
	if len(ghost.set) != 1 {
		t.Errorf("unresolvable session set = %v, want 1 call", ghost.set)
	}
}

func TestSinkSessionsErrorIsNoop(t *testing.T) {
	sys := &fakeSubsystem{sessionsErr: errors.New("enumeration failed")}
	sink := NewSink(sys, mapResolver{}, nil)
	sink.Apply(config.Dial{Type: config.DialAllOthers}, 0.5) // must not panic
}

func TestNameCacheCachesFailures(t *testing.T) {
	calls := 0
	resolver := resolverFunc(func(pid uint32) (string, error) {
		calls++
		return "", errors.New("gone")
	})
	cache := NewNameCache(resolver)
	cache.Lookup(42)
	cache.Lookup(42)
	if calls != 1 {
		t.Errorf("resolver called %d times, want 1", calls)
	}
	cache.Reset()
	cache.Lookup(42)
	if calls != 2 {
		t.Errorf("resolver called %d times after reset, want 2", calls)
	}
}

func TestNameCacheLowercases(t *testing.T) {
	resolver := resolverFunc(func(pid uint32) (string, error) { return "Chrome.EXE", nil })
	cache := NewNameCache(resolver)
	if got := cache.Lookup(1); got != "chrome.exe" {
		t.Errorf("Lookup = %q", got)
	}
}

type resolverFunc func(pid uint32) (string, error)

func (f resolverFunc) Resolve(pid uint32) (string, error) { return f(pid) }
