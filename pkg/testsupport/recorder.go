package testsupport

import "sync"

// Recorder counts invocations of fake service operations. It is safe for
// concurrent use.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// Record appends one invocation of op.
func (r *Recorder) Record(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op)
}

// Calls returns every recorded invocation in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Count returns how many times op was recorded.
func (r *Recorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, call := range r.calls {
		if call == op {
			n++
		}
	}
	return n
}

// Reset drops every recorded invocation.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
