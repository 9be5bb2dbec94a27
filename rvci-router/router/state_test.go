package router

import (
	"testing"

	"github.com/TZeys/RVCI/rvci-router/config"
	"github.com/TZeys/RVCI/rvci-router/database"
)

func TestNewChannelStateFirstFrameAlwaysApplies(t *testing.T) {
	cs := NewChannelState(3)
	for i, v := range cs.LastApplied {
		if v != -1 {
			t.Errorf("LastApplied[%d] = %v, want -1", i, v)
		}
	}
}

func TestChannelStateResizePreservesSurvivors(t *testing.T) {
	cs := NewChannelState(3)
	cs.Smoothers[1].Process(0.7)
	cs.LastApplied[1] = 0.7

	cs.Resize(5)
	if len(cs.Smoothers) != 5 || len(cs.LastApplied) != 5 {
		t.Fatalf("grow: len = %d/%d", len(cs.Smoothers), len(cs.LastApplied))
	}
	if cs.LastApplied[1] != 0.7 {
		t.Error("grow lost surviving state")
	}
	if cs.LastApplied[4] != -1 {
		t.Error("new positions should start fresh")
	}

	cs.Resize(2)
	if len(cs.Smoothers) != 2 {
		t.Fatalf("shrink: len = %d", len(cs.Smoothers))
	}
	if cs.LastApplied[1] != 0.7 {
		t.Error("shrink lost surviving state")
	}
}

func TestRouterStateSnapshotIsCopy(t *testing.T) {
	events := make(chan database.Event, 10)
	rs := NewRouterState(events)
	rs.SetConfig(&config.AppConfig{Dials: []config.Dial{{Type: config.DialSystem}, {Type: config.DialAllOthers}}})
	rs.UpdateLevel(0, 0.5)

	levels, dials, _, _, _, _, _, _ := rs.GetSnapshot()
	levels[0] = 0.9
	dials[0].Type = config.DialProcess

	got, gotDials, _, _, _, _, _, _ := rs.GetSnapshot()
	if got[0] != 0.5 {
		t.Error("snapshot levels alias internal state")
	}
	if gotDials[0].Type != config.DialSystem {
		t.Error("snapshot dials alias internal state")
	}
}

func TestRouterStateCounters(t *testing.T) {
	events := make(chan database.Event, 10)
	rs := NewRouterState(events)
	rs.MarkAccepted()
	rs.MarkAccepted()
	rs.MarkDropped()
	rs.MarkButton()
	_, _, _, accepted, dropped, buttons, _, _ := rs.GetSnapshot()
	if accepted != 2 || dropped != 1 || buttons != 1 {
		t.Errorf("counters = %d/%d/%d, want 2/1/1", accepted, dropped, buttons)
	}
}

func TestEmitForwardsEvent(t *testing.T) {
	events := make(chan database.Event, 1)
	rs := NewRouterState(events)
	rs.Emit("LINK_UP", "COM3", "9600 baud")
	ev := <-events
	if ev.EventType != "LINK_UP" || ev.Source != "COM3" || ev.Detail != "9600 baud" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Error("event timestamp not set")
	}
}
