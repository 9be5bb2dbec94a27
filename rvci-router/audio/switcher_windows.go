//go:build windows

package audio

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// The helper must not flash a console window every time a knob button is
// pressed.
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}
