//go:build !linux

package process

import "syscall"

// sysProcAttr puts the child in its own process group.
// Pdeathsig is not available outside Linux.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// groupAlive reports whether any member is left in the group led by pid.
func groupAlive(pid int) bool {
	return groupExists(pid)
}
