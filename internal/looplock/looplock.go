// Package looplock implements the primary-loop advisory file lock: at
// most one primary loop may run against a repository root at a time.
package looplock

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/gofrs/flock"
)

// FileName is the lock file's name under <repo_root>/.ralph/.
const FileName = "loop.lock"

// Record is the metadata written alongside the advisory lock, read
// back by a contending process to decide whether to wait, spawn a
// worktree, or abort.
type Record struct {
	PID           int       `json:"pid"`
	StartedAt     time.Time `json:"started_at"`
	PromptSummary string    `json:"prompt_summary"`
}

// AlreadyLockedError reports that another live process holds the lock.
type AlreadyLockedError struct {
	Record Record
}

func (e *AlreadyLockedError) Error() string {
	return fmt.Sprintf("loop already running: pid %d, started %s", e.Record.PID, e.Record.StartedAt.Format(time.RFC3339))
}

// Guard is a held lock; Release must be called exactly once.
type Guard struct {
	flock *flock.Flock
	path  string
}

// Release unlocks the file and removes the metadata record.
func (g *Guard) Release() error {
	defer os.Remove(g.path)
	return g.flock.Unlock()
}

func lockPaths(repoRoot string) (lockPath, recordPath string) {
	dir := repoRoot + "/.ralph"
	return dir + "/" + FileName, dir + "/" + FileName + ".json"
}

// TryAcquire attempts a non-blocking exclusive lock. If another live
// process already holds it, returns *AlreadyLockedError with that
// process's recorded metadata. A lock whose recorded pid is no longer
// alive is treated as stale and silently overridden.
func TryAcquire(repoRoot, promptSummary string) (*Guard, error) {
	if err := os.MkdirAll(repoRoot+"/.ralph", 0o755); err != nil {
		return nil, fmt.Errorf("creating .ralph directory: %w", err)
	}

	lockPath, recordPath := lockPaths(repoRoot)
	fl := flock.New(lockPath)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring loop lock: %w", err)
	}
	if !locked {
		if rec, staleErr := readRecord(recordPath); staleErr == nil && !alive(rec.PID) {
			// Stale: the recorded process is gone but still held the OS
			// lock handle (e.g. it crashed without releasing). Steal it.
			fl.Close()
			fl = flock.New(lockPath)
			locked, err = fl.TryLock()
			if err != nil {
				return nil, fmt.Errorf("acquiring loop lock after stale override: %w", err)
			}
		}
	}
	if !locked {
		rec, _ := readRecord(recordPath)
		return nil, &AlreadyLockedError{Record: rec}
	}

	rec := Record{PID: os.Getpid(), StartedAt: time.Now(), PromptSummary: promptSummary}
	if err := writeRecord(recordPath, rec); err != nil {
		fl.Unlock()
		return nil, err
	}
	return &Guard{flock: fl, path: recordPath}, nil
}

// Acquire blocks until the lock is available.
func Acquire(repoRoot, promptSummary string) (*Guard, error) {
	if err := os.MkdirAll(repoRoot+"/.ralph", 0o755); err != nil {
		return nil, fmt.Errorf("creating .ralph directory: %w", err)
	}
	lockPath, recordPath := lockPaths(repoRoot)
	fl := flock.New(lockPath)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquiring loop lock: %w", err)
	}
	rec := Record{PID: os.Getpid(), StartedAt: time.Now(), PromptSummary: promptSummary}
	if err := writeRecord(recordPath, rec); err != nil {
		fl.Unlock()
		return nil, err
	}
	return &Guard{flock: fl, path: recordPath}, nil
}

// ReadExisting reads the lock record for repoRoot without taking the
// lock itself, so a contending process (or the merge queue) can
// inspect who holds it.
func ReadExisting(repoRoot string) (Record, error) {
	_, recordPath := lockPaths(repoRoot)
	return readRecord(recordPath)
}

func readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func writeRecord(path string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling lock record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing lock record: %w", err)
	}
	return nil
}

// alive reports whether pid is a live process, via signal 0 — sending
// no signal but still performing the existence check the kernel does
// for any kill(2) call.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
