package testing

import (
	"sync"

	"github.com/Alia5/remapd/controller"
)

// RecordingCommitter records every committed state. After SetErr the
// following commits are still recorded but fail.
type RecordingCommitter struct {
	mu      sync.Mutex
	commits []controller.State
	err     error
}

func (r *RecordingCommitter) Commit(state controller.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits = append(r.commits, state.Clone())
	return r.err
}

// Commits returns the recorded states in commit order.
func (r *RecordingCommitter) Commits() []controller.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]controller.State, len(r.commits))
	copy(out, r.commits)
	return out
}

// Count returns the number of recorded commits.
func (r *RecordingCommitter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commits)
}

// Last returns the most recent committed state.
func (r *RecordingCommitter) Last() (controller.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commits) == 0 {
		return controller.State{}, false
	}
	return r.commits[len(r.commits)-1], true
}

func (r *RecordingCommitter) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}
