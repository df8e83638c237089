package sessionlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	// MaxFiles bounds the number of journal files kept in the log directory.
	MaxFiles = 20
	// MaxEntries bounds the in-memory tail returned by Entries.
	MaxEntries = 500

	filePrefix = "session-"
	fileSuffix = ".jsonl"
)

var nowFn = time.Now

// Journal appends entries to a per-run JSONL file and keeps the most recent
// ones in memory. Safe for concurrent use. Journal methods must not log
// through slog: the TeeHandler feeding it would re-enter.
type Journal struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	entries ring
	seq     uint64
}

// Open creates the journal file for this run inside dir and prunes old files.
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	// The PID keeps sub-second restarts from colliding.
	name := fmt.Sprintf("%s%s-%d%s", filePrefix, nowFn().Format("20060102-150405"), os.Getpid(), fileSuffix)
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	j := &Journal{file: f, path: path, entries: newRing(MaxEntries)}
	pruneOldFiles(dir, name, MaxFiles)
	return j, nil
}

// NewMemory returns a journal with no backing file.
func NewMemory() *Journal {
	return &Journal{entries: newRing(MaxEntries)}
}

// Path returns the journal file path, or "" for an in-memory journal.
func (j *Journal) Path() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.path
}

// Record assigns the next sequence number and stores entry.
// Error entries are synced to disk outside the lock.
func (j *Journal) Record(entry Entry) {
	var writeErr error
	var syncFile *os.File

	j.mu.Lock()
	j.seq++
	entry.Seq = j.seq
	if j.file != nil {
		raw, err := json.Marshal(entry)
		if err == nil {
			_, err = j.file.Write(append(raw, '\n'))
		}
		writeErr = err
		if err == nil && entry.Level == "error" {
			syncFile = j.file
		}
	}
	j.entries.push(entry)
	j.mu.Unlock()

	if syncFile != nil {
		if err := syncFile.Sync(); err != nil && !isCloseRace(err) {
			fmt.Fprintf(os.Stderr, "[session-log] failed to sync log file: %v\n", err)
		}
	}
	if writeErr != nil {
		fmt.Fprintf(os.Stderr, "[session-log] failed to write log entry: %v\n", writeErr)
	}
}

// Entries returns the in-memory tail, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.entries.snapshot()
}

// Close flushes and closes the file. Later Record calls only update memory.
func (j *Journal) Close() error {
	j.mu.Lock()
	f := j.file
	j.file = nil
	j.mu.Unlock()
	if f == nil {
		return nil
	}
	syncErr := f.Sync()
	closeErr := f.Close()
	if syncErr != nil && !isCloseRace(syncErr) {
		return errors.Join(syncErr, closeErr)
	}
	return closeErr
}

// isCloseRace reports errors from a Sync racing Close. Windows reports EINVAL.
func isCloseRace(err error) bool {
	return errors.Is(err, os.ErrClosed) ||
		(runtime.GOOS == "windows" && errors.Is(err, syscall.EINVAL))
}

// pruneOldFiles removes the oldest journal files beyond keep, never current.
// Names sort by their timestamp prefix.
func pruneOldFiles(dir, current string, keep int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[session-log] failed to read log directory: %v\n", err)
		return
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	excess := len(names) - keep
	for _, name := range names {
		if excess <= 0 {
			return
		}
		if name == current {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			fmt.Fprintf(os.Stderr, "[session-log] failed to delete old log file: %v\n", err)
			continue
		}
		excess--
	}
}

// ring is a fixed-capacity circular buffer. Callers hold Journal.mu.
type ring struct {
	buf   []Entry
	head  int
	count int
}

func newRing(capacity int) ring {
	if capacity < 1 {
		capacity = 1
	}
	return ring{buf: make([]Entry, capacity)}
}

func (r *ring) push(entry Entry) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = entry
		r.count++
		return
	}
	r.buf[r.head] = entry
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring) snapshot() []Entry {
	out := make([]Entry, r.count)
	first := min(len(r.buf)-r.head, r.count)
	copy(out, r.buf[r.head:r.head+first])
	if rest := r.count - first; rest > 0 {
		copy(out[first:], r.buf[:rest])
	}
	return out
}
