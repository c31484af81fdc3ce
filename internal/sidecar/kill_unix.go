//go:build !windows

package sidecar

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr puts the scanner in its own process group so the whole tree
// can be signalled at once.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// kill signals the scanner's process group, then the process itself in case
// the group signal did not apply (e.g. the child changed its group).
func kill(p *os.Process) {
	if p == nil {
		return
	}
	_ = unix.Kill(-p.Pid, unix.SIGKILL)
	_ = p.Kill()
}
