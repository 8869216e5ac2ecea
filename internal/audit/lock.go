package audit

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	lockFileName  = "journal.lock"
	lockTimeout   = 5 * time.Second
	lockRetryWait = 500 * time.Millisecond
)

// isProcessRunning is implemented in platform-specific files:
// - process_unix.go for Unix/Linux/macOS
// - process_windows.go for Windows

// pidLock is an inter-process lock holding the owner's PID in a file.
// A lock whose owner is no longer running is considered stale and removed.
type pidLock struct {
	path    string
	timeout time.Duration
	retry   time.Duration
}

func newPIDLock(dir string) *pidLock {
	return &pidLock{
		path:    filepath.Join(dir, lockFileName),
		timeout: lockTimeout,
		retry:   lockRetryWait,
	}
}

// owner returns the PID recorded in the lock file, 0 if there is none
func (l *pidLock) owner() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return -1, nil
	}
	return pid, nil
}

// cleanStale removes the lock file if the owning process is dead
func (l *pidLock) cleanStale() error {
	pid, err := l.owner()
	if err != nil {
		return err
	}

	switch {
	case pid == 0:
		return nil
	case pid < 0:
		log.Printf("Warning: Corrupted journal lock (invalid PID), removing...")
		return os.Remove(l.path)
	case isProcessRunning(pid):
		return fmt.Errorf("lock held by running process %d", pid)
	}

	log.Printf("Stale journal lock detected (PID %d not running), cleaning...", pid)
	return os.Remove(l.path)
}

// acquire takes the lock, waiting up to l.timeout for a live owner to let go
func (l *pidLock) acquire() error {
	ourPID := os.Getpid()

	if pid, err := l.owner(); err == nil && pid == ourPID {
		return nil
	}

	start := time.Now()
	for {
		if err := l.cleanStale(); err != nil {
			elapsed := time.Since(start)
			if elapsed >= l.timeout {
				return fmt.Errorf("timeout waiting for journal lock after %v: %w", elapsed.Round(time.Millisecond), err)
			}

			log.Printf("Journal locked by another process, waiting... (%v elapsed)", elapsed.Round(100*time.Millisecond))
			time.Sleep(l.retry)
			continue
		}

		f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if os.IsExist(err) {
				// Lost a race with another process, go around again
				continue
			}
			return fmt.Errorf("failed to create lock file: %w", err)
		}
		_, werr := f.WriteString(strconv.Itoa(ourPID))
		cerr := f.Close()
		if werr != nil {
			return fmt.Errorf("failed to write lock file: %w", werr)
		}
		if cerr != nil {
			return fmt.Errorf("failed to write lock file: %w", cerr)
		}

		return nil
	}
}

// release removes the lock file if this process owns it
func (l *pidLock) release() error {
	pid, err := l.owner()
	if err != nil {
		return err
	}
	if pid == 0 {
		return nil
	}
	if pid != os.Getpid() {
		log.Printf("Warning: Journal lock file contains different PID (%d vs %d), not removing", pid, os.Getpid())
		return nil
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// HeldBy returns the PID of the live process holding the journal in dir,
// or 0 when the journal is free.
func HeldBy(dir string) int {
	pid, err := newPIDLock(dir).owner()
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return 0
	}
	if !isProcessRunning(pid) {
		return 0
	}
	return pid
}
