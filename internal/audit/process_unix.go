//go:build unix

package audit

import "syscall"

// isProcessRunning checks if a process with given PID is running on Unix systems
func isProcessRunning(pid int) bool {
	// Signal 0 performs error checking only, nothing is delivered
	err := syscall.Kill(pid, syscall.Signal(0))
	if err == nil {
		return true
	}

	if err == syscall.ESRCH {
		return false
	}

	// EPERM: the process exists but belongs to someone else
	if err == syscall.EPERM {
		return true
	}

	return false
}
