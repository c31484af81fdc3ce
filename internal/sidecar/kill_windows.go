//go:build windows

package sidecar

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

// kill force-terminates the scanner and its children. Windows does not tear
// down child processes with the parent, so taskkill /T handles the tree; a
// direct kill covers the case where taskkill is missing or fails.
func kill(p *os.Process) {
	if p == nil {
		return
	}
	if err := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(p.Pid)).Run(); err != nil {
		_ = p.Kill()
	}
}
