package router

import (
	"sync"
	"time"

	"github.com/TZeys/RVCI/rvci-router/config"
	"github.com/TZeys/RVCI/rvci-router/database"
)

// Command structs
type SwitchDeviceCmd struct{ Slot int } // 1 or 2, per the configured work devices

// LineInfo describes the most recent wire line for the UI.
type LineInfo struct {
	Timestamp string
	Text      string
	Count     uint64
}

// ChannelState is the per-channel runtime state: one smoother plus one
// last-applied value, indexed positionally to match the configured dials.
// It is recreated only when the link signature changes; dial-only reloads
// resize it positionally so cosmetic reconfiguration does not cause
// volume jumps.
type ChannelState struct {
	Smoothers   []Smoother
	LastApplied []float64
}

func NewChannelState(n int) *ChannelState {
	cs := &ChannelState{
		Smoothers:   make([]Smoother, n),
		LastApplied: make([]float64, n),
	}
	for i := range cs.LastApplied {
		cs.LastApplied[i] = -1 // below any reachable value, so the first frame always applies
	}
	return cs
}

// Resize grows the arrays with fresh zeroed state or truncates them,
// preserving the history of surviving positions.
func (cs *ChannelState) Resize(n int) {
	for len(cs.Smoothers) < n {
		cs.Smoothers = append(cs.Smoothers, Smoother{})
		cs.LastApplied = append(cs.LastApplied, -1)
	}
	if len(cs.Smoothers) > n {
		cs.Smoothers = cs.Smoothers[:n]
		cs.LastApplied = cs.LastApplied[:n]
	}
}

// RouterState holds the router's live data for the UI. The UI only reads
// snapshots and queues commands; it never touches the link or the audio
// subsystem directly.
type RouterState struct {
	mu             sync.Mutex
	Levels         []float64
	Dials          []config.Dial
	LastLine       LineInfo
	FramesAccepted uint64
	FramesDropped  uint64
	ButtonPresses  uint64
	LinkUp         bool
	Status         string
	CommandChan    chan interface{}
	EventChan      chan<- database.Event
}

func NewRouterState(eventChan chan<- database.Event) *RouterState {
	return &RouterState{
		Status:      "Initializing...",
		CommandChan: make(chan interface{}, 10),
		EventChan:   eventChan,
	}
}

func (rs *RouterState) SendCommand(cmd interface{}) { rs.CommandChan <- cmd }

// Emit forwards a lifecycle event to the database writer.
func (rs *RouterState) Emit(eventType, source, detail string) {
	rs.EventChan <- database.Event{
		Timestamp: time.Now(),
		Source:    source,
		Detail:    detail,
		EventType: eventType,
	}
}

// SetConfig installs the dial definitions of a freshly loaded snapshot.
func (rs *RouterState) SetConfig(cfg *config.AppConfig) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.Dials = append([]config.Dial(nil), cfg.Dials...)
	levels := make([]float64, len(cfg.Dials))
	copy(levels, rs.Levels)
	rs.Levels = levels
}

func (rs *RouterState) SetStatus(status string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.Status = status
}

func (rs *RouterState) SetLink(up bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.LinkUp = up
}

func (rs *RouterState) UpdateLine(text string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.LastLine.Timestamp = time.Now().Format("15:04:05.000")
	rs.LastLine.Text = text
	rs.LastLine.Count++
}

func (rs *RouterState) UpdateLevel(i int, v float64) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if i >= 0 && i < len(rs.Levels) {
		rs.Levels[i] = v
	}
}

func (rs *RouterState) MarkAccepted() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.FramesAccepted++
}

func (rs *RouterState) MarkDropped() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.FramesDropped++
}

func (rs *RouterState) MarkButton() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.ButtonPresses++
}

// GetSnapshot returns copies of everything the UI renders.
func (rs *RouterState) GetSnapshot() ([]float64, []config.Dial, LineInfo, uint64, uint64, uint64, bool, string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	levels := make([]float64, len(rs.Levels))
	copy(levels, rs.Levels)
	dials := make([]config.Dial, len(rs.Dials))
	copy(dials, rs.Dials)
	return levels, dials, rs.LastLine, rs.FramesAccepted, rs.FramesDropped, rs.ButtonPresses, rs.LinkUp, rs.Status
}
