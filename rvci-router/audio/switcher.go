package audio

import (
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Switcher changes the default playback device by invoking an external
// helper (SoundVolumeView or compatible) with a resolved device id. The
// command is advisory: every failure short-circuits to "no effect".
type Switcher struct {
	helperPath string
	devices    DeviceLister
	run        func(path string, args ...string) error
}

func NewSwitcher(helperPath string, devices DeviceLister) *Switcher {
	return &Switcher{
		helperPath: helperPath,
		devices:    devices,
		run:        runDetached,
	}
}

// Switch resolves target against the live device list using
// case-insensitive substring containment and invokes the helper on the
// first match in display-name order. The configured target is a
// simplified label; live devices may decorate the same name with driver
// details, hence containment rather than exact match. Returns whether a
// helper invocation was attempted.
func (sw *Switcher) Switch(target string) bool {
	if target == "" || target == "None" {
		return false
	}
	if sw.helperPath == "" {
		return false
	}
	if _, err := os.Stat(sw.helperPath); err != nil {
		return false
	}
	devices, err := sw.devices.PlaybackDevices()
	if err != nil {
		return false
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })

	want := strings.ToLower(target)
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), want) {
			_ = sw.run(sw.helperPath, "/SetDefault", d.ID, "all")
			return true
		}
	}
	return false
}

func runDetached(path string, args ...string) error {
	cmd := exec.Command(path, args...)
	hideWindow(cmd)
	return cmd.Start()
}
