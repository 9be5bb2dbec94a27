package audio

import (
	"strings"

	"github.com/TZeys/RVCI/rvci-router/config"
)

// Sink applies a normalized volume value to one of three targets: the
// system master volume, one named process's sessions, or every session
// not claimed by a process-type dial. All OS calls are best-effort; a
// failed enumeration or set degrades to a no-op for that frame and is
// retried naturally on the next one.
type Sink struct {
	sys    Subsystem
	names  *NameCache
	claims map[string]struct{}
}

// NewSink builds a sink for one configuration load. claims is the set of
// lower-cased process names owned by process-type dials, computed once
// per load, not per frame.
func NewSink(sys Subsystem, resolver ProcessNameResolver, claims map[string]struct{}) *Sink {
	return &Sink{
		sys:    sys,
		names:  NewNameCache(resolver),
		claims: claims,
	}
}

func (s *Sink) Apply(dial config.Dial, level float64) {
	switch dial.Type {
	case config.DialSystem:
		s.applySystem(level)
	case config.DialProcess:
		target := strings.ToLower(dial.ProcessName)
		if target == "" {
			return
		}
		s.applySessions(target, false, level)
	case config.DialAllOthers:
		s.applySessions("", true, level)
	}
}

// ResetNames drops the pid-to-name cache (the periodic amnesty).
func (s *Sink) ResetNames() {
	s.names.Reset()
}

func (s *Sink) applySystem(level float64) {
	ep, err := s.sys.DefaultEndpoint()
	if err != nil {
		return
	}
	defer ep.Release()
	_ = ep.SetMasterVolume(float32(level))
}

func (s *Sink) applySessions(target string, others bool, level float64) {
	sessions, err := s.sys.Sessions()
	if err != nil {
		return
	}
	for _, sess := range sessions {
		pid := sess.PID()
		if pid == 0 {
			sess.Release()
			continue
		}
		name := s.names.Lookup(pid)
		var match bool
		if others {
			_, claimed := s.claims[name]
			match = !claimed
		} else {
			match = name == target
		}
		if match {
			_ = sess.SetVolume(float32(level))
		}
		sess.Release()
	}
}
