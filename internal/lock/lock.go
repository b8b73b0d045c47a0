package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockHeldError reports that another daemon owns the session.
type LockHeldError struct {
	PID  int
	Path string
}

func (e *LockHeldError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("session lock %s held by pid %d", e.Path, e.PID)
	}
	return fmt.Sprintf("session lock %s held by another process", e.Path)
}

// Lock is an acquired flock on a session lock file. The flock itself fences
// concurrent daemons; the pid and time lines inside the file are diagnostics
// for error messages and humans.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes the exclusive lock at lockPath, creating parent directories
// as needed. A held lock surfaces as LockHeldError carrying the owner pid
// when the file names one.
func Acquire(lockPath string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		held := &LockHeldError{PID: ownerPID(lockPath), Path: lockPath}
		_ = f.Close()
		return nil, held
	}

	l := &Lock{file: f, path: lockPath}
	if err := l.stamp(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

// stamp replaces the file content with the owner pid and acquisition time.
func (l *Lock) stamp() error {
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	if _, err := l.file.Seek(0, 0); err != nil {
		return err
	}
	_, err := fmt.Fprintf(l.file, "pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	return err
}

// Release removes the lock file and drops the flock. Safe on a nil receiver
// and after a previous Release.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// ownerPID reads the pid= line of an existing lock file. Zero means the
// owner is unknown.
func ownerPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if after, ok := strings.CutPrefix(line, "pid="); ok {
			pid, _ := strconv.Atoi(strings.TrimSpace(after))
			return pid
		}
	}
	return 0
}
