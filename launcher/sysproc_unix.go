//go:build !windows

package launcher

import "syscall"

// detached puts the child in its own session so it survives our exit.
func detached() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
