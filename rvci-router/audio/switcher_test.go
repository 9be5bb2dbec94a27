package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func helperFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "SoundVolumeView.exe")
	if err := os.WriteFile(path, []byte("stub"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

type invocation struct {
	path string
	args []string
}

func captureRun(calls *[]invocation) func(string, ...string) error {
	return func(path string, args ...string) error {
		*calls = append(*calls, invocation{path, args})
		return nil
	}
}

func TestSwitchMatchesBySubstring(t *testing.T) {
	sys := &fakeSubsystem{devices: []Device{
		{Name: "Speakers (Realtek High Definition Audio)", ID: "id-speakers"},
		{Name: "Headphones (USB Audio)", ID: "id-headphones"},
	}}
	sw := NewSwitcher(helperFile(t), sys)
	var calls []invocation
	sw.run = captureRun(&calls)

	if !sw.Switch("speakers") {
		t.Fatal("Switch returned false")
	}
	if len(calls) != 1 {
		t.Fatalf("helper invoked %d times", len(calls))
	}
	got := calls[0]
	if got.args[0] != "/SetDefault" || got.args[1] != "id-speakers" || got.args[2] != "all" {
		t.Errorf("args = %v", got.args)
	}
}

func TestSwitchFirstMatchInNameOrder(t *testing.T) {
	// Devices arrive unsorted; the match must be deterministic.
	sys := &fakeSubsystem{devices: []Device{
		{Name: "Z Speakers Rear", ID: "id-z"},
		{Name: "A Speakers Front", ID: "id-a"},
	}}
	sw := NewSwitcher(helperFile(t), sys)
	var calls []invocation
	sw.run = captureRun(&calls)

	sw.Switch("speakers")
	if len(calls) != 1 || calls[0].args[1] != "id-a" {
		t.Errorf("calls = %v, want first match in name order", calls)
	}
}

func TestSwitchNoneTargetIsNoop(t *testing.T) {
	sys := &fakeSubsystem{devices: []Device{{Name: "Speakers", ID: "id"}}}
	sw := NewSwitcher(helperFile(t), sys)
	var calls []invocation
	sw.run = captureRun(&calls)

	if sw.Switch("None") || sw.Switch("") {
		t.Error("None/empty target must not switch")
	}
	if len(calls) != 0 {
		t.Errorf("helper invoked: %v", calls)
	}
}

func TestSwitchMissingHelper(t *testing.T) {
	sys := &fakeSubsystem{devices: []Device{{Name: "Speakers", ID: "id"}}}
	sw := NewSwitcher(filepath.Join(t.TempDir(), "missing.exe"), sys)
	var calls []invocation
	sw.run = captureRun(&calls)

	if sw.Switch("Speakers") {
		t.Error("Switch should fail without the helper binary")
	}
	if len(calls) != 0 {
		t.Errorf("helper invoked: %v", calls)
	}
}

func TestSwitchEmptyHelperPath(t *testing.T) {
	sys := &fakeSubsystem{devices: []Device{{Name: "Speakers", ID: "id"}}}
	sw := NewSwitcher("", sys)
	if sw.Switch("Speakers") {
		t.Error("Switch should fail with no helper configured")
	}
}

func TestSwitchNoMatch(t *testing.T) {
	sys := &fakeSubsystem{devices: []Device{{Name: "Speakers", ID: "id"}}}
	sw := NewSwitcher(helperFile(t), sys)
	var calls []invocation
	sw.run = captureRun(&calls)

	if sw.Switch("Bluetooth") {
		t.Error("Switch should report no match")
	}
	if len(calls) != 0 {
		t.Errorf("helper invoked: %v", calls)
	}
}

func TestSwitchDeviceListError(t *testing.T) {
	sys := &fakeSubsystem{devicesErr: errors.New("COM failure")}
	sw := NewSwitcher(helperFile(t), sys)
	if sw.Switch("Speakers") {
		t.Error("Switch should fail when enumeration fails")
	}
}
