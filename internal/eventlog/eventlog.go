// Package eventlog tails the on-disk JSONL event log that the agent
// appends to through the `ralph emit` command, turning newly appended lines into
// parsed topic.Event values without re-reading lines already seen.
package eventlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/ralph-loop/ralph/internal/topic"
)

// MalformedLine reports a JSONL line that failed to parse.
type MalformedLine struct {
	LineNumber int
	Raw        string
	Err        error
}

func (m MalformedLine) Error() string {
	return fmt.Sprintf("line %d: %v", m.LineNumber, m.Err)
}

// Reader tails a JSONL file from a remembered byte offset. It is not
// safe for concurrent use; the scheduler owns one Reader per active
// hat subprocess.
type Reader struct {
	path       string
	offset     int64
	lineNumber int
}

// NewReader constructs a Reader positioned at the start of path. The
// file need not exist yet — ReadNew tolerates ENOENT and returns no
// events until the backend process creates it.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Offset returns the current byte offset, for persisting across
// process restarts (e.g. resuming a loop after a crash).
func (r *Reader) Offset() int64 { return r.offset }

// SeekOffset repositions the reader at a previously persisted offset.
func (r *Reader) SeekOffset(offset int64) { r.offset = offset }

// ReadNew reads every complete line appended to the file since the
// last call, returning parsed events in order and a slice of
// malformed-line reports for any line that failed to unmarshal as a
// topic.Event. A trailing partial line (no terminating newline yet) is
// left unconsumed so a future call can read it once complete.
func (r *Reader) ReadNew() ([]topic.Event, []MalformedLine, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if info.Size() < r.offset {
		// File was truncated or replaced; restart from the beginning.
		r.offset = 0
		r.lineNumber = 0
	}

	if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
		return nil, nil, err
	}

	var events []topic.Event
	var malformed []MalformedLine
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			return i + 1, data[:i], nil
		}
		// No newline yet: leave the partial line for a later call.
		return 0, nil, nil
	})

	consumed := r.offset
	for scanner.Scan() {
		line := scanner.Text()
		consumed += int64(len(line)) + 1 // +1 for the newline
		r.lineNumber++

		if line == "" {
			continue
		}

		var e topic.Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			malformed = append(malformed, MalformedLine{LineNumber: r.lineNumber, Raw: line, Err: err})
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return events, malformed, err
	}

	r.offset = consumed
	return events, malformed, nil
}

// LineCount returns the total number of non-empty lines currently in
// the file, independent of the reader's own offset. The driver uses
// this before and after a hat's subprocess run to detect whether it
// published anything at all (the default-publishes fallback).
func (r *Reader) LineCount() (int, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		if scanner.Text() != "" {
			count++
		}
	}
	return count, scanner.Err()
}

// Watcher wraps a Reader with an fsnotify watch on the containing
// directory so callers can block until new lines are likely available
// instead of busy-polling.
type Watcher struct {
	reader  *Reader
	watcher *fsnotify.Watcher
}

// NewWatcher constructs a Watcher for path. The caller must call
// Close when done.
func NewWatcher(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := dirOf(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{reader: NewReader(path), watcher: w}, nil
}

// Events returns the fsnotify event channel; a receive indicates the
// watched directory changed and ReadNew is worth calling again.
func (w *Watcher) Events() <-chan fsnotify.Event { return w.watcher.Events }

// Errors returns the fsnotify error channel.
func (w *Watcher) Errors() <-chan error { return w.watcher.Errors }

// ReadNew delegates to the wrapped Reader.
func (w *Watcher) ReadNew() ([]topic.Event, []MalformedLine, error) {
	return w.reader.ReadNew()
}

// Close stops the underlying fsnotify watch.
func (w *Watcher) Close() error { return w.watcher.Close() }

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
