package audit

import (
	"os"
	"strconv"
	"testing"
	"time"
)

func TestLockMechanism(t *testing.T) {
	dir := t.TempDir()
	lock := newPIDLock(dir)
	lock.timeout = 100 * time.Millisecond
	lock.retry = 10 * time.Millisecond

	t.Run("acquire and release lock", func(t *testing.T) {
		os.Remove(lock.path)

		if err := lock.acquire(); err != nil {
			t.Fatalf("Failed to acquire lock: %v", err)
		}

		data, err := os.ReadFile(lock.path)
		if err != nil {
			t.Fatalf("Lock file not found: %v", err)
		}
		pid, err := strconv.Atoi(string(data))
		if err != nil {
			t.Fatalf("Invalid PID in lock file: %v", err)
		}
		if pid != os.Getpid() {
			t.Errorf("Lock has wrong PID: got %d, want %d", pid, os.Getpid())
		}

		if err := lock.release(); err != nil {
			t.Fatalf("Failed to release lock: %v", err)
		}
		if _, err := os.Stat(lock.path); !os.IsNotExist(err) {
			t.Error("Lock file should be removed after release")
		}
	})

	t.Run("detect stale lock", func(t *testing.T) {
		os.Remove(lock.path)

		// PIDs this high are not handed out on default Linux configurations
		stalePID := 4194304 + 17
		if err := os.WriteFile(lock.path, []byte(strconv.Itoa(stalePID)), 0644); err != nil {
			t.Fatalf("Failed to create stale lock: %v", err)
		}

		if err := lock.acquire(); err != nil {
			t.Fatalf("Failed to acquire lock after stale lock: %v", err)
		}

		data, _ := os.ReadFile(lock.path)
		pid, _ := strconv.Atoi(string(data))
		if pid != os.Getpid() {
			t.Errorf("Expected our PID after cleaning stale lock, got %d", pid)
		}

		lock.release()
	})

	t.Run("corrupted lock is replaced", func(t *testing.T) {
		if err := os.WriteFile(lock.path, []byte("not-a-pid"), 0644); err != nil {
			t.Fatalf("Failed to create corrupted lock: %v", err)
		}

		if err := lock.acquire(); err != nil {
			t.Fatalf("Failed to acquire over corrupted lock: %v", err)
		}
		lock.release()
	})

	t.Run("reacquire same lock", func(t *testing.T) {
		os.Remove(lock.path)

		if err := lock.acquire(); err != nil {
			t.Fatalf("Failed to acquire lock: %v", err)
		}
		if err := lock.acquire(); err != nil {
			t.Fatalf("Failed to reacquire lock: %v", err)
		}

		lock.release()
	})

	t.Run("timeout on held lock", func(t *testing.T) {
		// The test binary's parent is alive for the whole run
		holder := os.Getppid()
		if err := os.WriteFile(lock.path, []byte(strconv.Itoa(holder)), 0644); err != nil {
			t.Fatalf("Failed to create lock: %v", err)
		}
		defer os.Remove(lock.path)

		if err := lock.acquire(); err == nil {
			t.Error("Expected error acquiring held lock, got nil")
		}

		if got := HeldBy(dir); got != holder {
			t.Errorf("HeldBy: got %d, want %d", got, holder)
		}

		// A lock owned by someone else is left alone on release
		if err := lock.release(); err != nil {
			t.Errorf("release of foreign lock: %v", err)
		}
		if _, err := os.Stat(lock.path); err != nil {
			t.Error("foreign lock file must not be removed")
		}
	})

	t.Run("is process running", func(t *testing.T) {
		if !isProcessRunning(os.Getpid()) {
			t.Error("Our own process should be detected as running")
		}
		if isProcessRunning(4194304 + 17) {
			t.Error("Non-existent process should not be detected as running")
		}
	})

	t.Run("free journal", func(t *testing.T) {
		if got := HeldBy(t.TempDir()); got != 0 {
			t.Errorf("HeldBy on empty dir: got %d", got)
		}
	})
}
