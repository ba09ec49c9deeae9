package ralph

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/ralph-loop/ralph/internal/topic"
)

// sessionRecorder is a bus observer that appends every published event
// to a JSONL file, for offline inspection of a run.
type sessionRecorder struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	enc *json.Encoder
}

func newSessionRecorder(path string) (*sessionRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	return &sessionRecorder{f: f, w: w, enc: json.NewEncoder(w)}, nil
}

// Observe satisfies bus.Observer. Encoding errors are swallowed; the
// recording is a side channel and must never disturb routing.
func (r *sessionRecorder) Observe(e topic.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(e)
}

func (r *sessionRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}
