package process

import (
	"syscall"

	"github.com/prometheus/procfs"
)

// sysProcAttr puts the child in its own process group so termination reaches
// the whole tree (npm -> node). Pdeathsig makes the kernel send SIGTERM to
// the direct child if devup dies without shutting down.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}

// groupAlive reports whether a running member is left in the group led by
// pid. Zombies waiting for a reaper do not count.
func groupAlive(pid int) bool {
	if !groupExists(pid) {
		return false
	}
	procs, err := procfs.AllProcs()
	if err != nil {
		return true
	}
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil {
			continue
		}
		if stat.PGRP == pid && stat.State != "Z" {
			return true
		}
	}
	return false
}
