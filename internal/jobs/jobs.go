// Package jobs drives stepped engine handles to completion in
// cancellable, progress-reporting batches. Every job emits zero or more
// progress messages followed by exactly one terminal message: success,
// failure, or aborted. Cancellation is cooperative and only honored
// between batches; a batch in flight always finishes.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/krines/arcstep/internal/engine"
	"github.com/krines/arcstep/internal/wire"
)

var (
	// ErrAborted marks cooperative cancellation. It is a distinct outcome,
	// not an engine or validation failure.
	ErrAborted = errors.New("jobs: aborted")

	// ErrDuplicateID rejects reuse of a job id that is still pending.
	ErrDuplicateID = errors.New("jobs: job id already pending")
)

// State is the lifecycle of one job. Terminal states have no transitions
// out.
type State int

const (
	Created State = iota
	Running
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Message is one protocol notification for a job. Non-terminal messages
// carry a progress snapshot; the single terminal message carries either
// the result, a failure, or the aborted marker.
type Message struct {
	JobID    string
	Progress *wire.Progress
	Terminal bool
	OK       bool
	Aborted  bool
	Result   *wire.BranchData
	Err      error
}

// targetBatches breaks a run into roughly this many observable
// increments regardless of total step count.
const targetBatches = 50

// BatchSize computes the per-call step batch from the engine's reported
// maximum. Non-finite or non-positive maximums force single stepping.
func BatchSize(maxSteps float64) int {
	if math.IsNaN(maxSteps) || math.IsInf(maxSteps, 0) || maxSteps <= 0 {
		return 1
	}
	b := int(math.Ceil(maxSteps / targetBatches))
	if b < 1 {
		return 1
	}
	return b
}

// Registry is the only shared mutable state of the protocol: a map from
// pending job id to its cancellation handle. It is injected, not global,
// so independent engine sessions cannot cross-talk.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*job)}
}

func (r *Registry) add(id string, cancel context.CancelFunc) (*job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	j := &job{state: Created, cancel: cancel}
	r.jobs[id] = j
	return j, nil
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}

// Cancel requests cooperative cancellation of a pending job. It reports
// whether a pending job with that id existed; cancelling a completed or
// unknown job is a no-op.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	j, ok := r.jobs[id]
	if ok {
		delete(r.jobs, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	j.cancel()
	return true
}

// StateOf reports the lifecycle state of a pending job.
func (r *Registry) StateOf(id string) (State, bool) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return 0, false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state, true
}

func (j *job) transition(to State) {
	j.mu.Lock()
	if !j.state.Terminal() {
		j.state = to
	}
	j.mu.Unlock()
}

// Loader asynchronously prepares the stepped engine handle for a job,
// for example by instantiating a runner inside the engine.
type Loader func(ctx context.Context) (engine.Stepped, error)

// Start launches a job and returns its message stream. The stream is
// closed after the terminal message. The job id must not be pending.
func Start(ctx context.Context, reg *Registry, id string, load Loader) (<-chan Message, error) {
	jobCtx, cancel := context.WithCancel(ctx)
	j, err := reg.add(id, cancel)
	if err != nil {
		cancel()
		return nil, err
	}
	ch := make(chan Message)
	go run(jobCtx, reg, id, j, load, ch)
	return ch, nil
}

func run(ctx context.Context, reg *Registry, id string, j *job, load Loader, ch chan<- Message) {
	defer close(ch)
	defer reg.remove(id)

	j.transition(Running)

	terminal := func(m Message) {
		m.JobID = id
		m.Terminal = true
		switch {
		case m.Aborted:
			j.transition(Cancelled)
		case m.OK:
			j.transition(Completed)
		default:
			j.transition(Failed)
		}
		ch <- m
	}

	handle, err := load(ctx)
	if ctx.Err() != nil {
		// A cancel issued while the engine was still loading wins over
		// whatever the load returned.
		terminal(Message{Aborted: true, Err: ErrAborted})
		return
	}
	if err != nil {
		terminal(Message{Err: err})
		return
	}

	prog, err := handle.Progress()
	if err != nil {
		terminal(Message{Err: err})
		return
	}
	batch := BatchSize(float64(prog.MaxSteps))

	// The initial snapshot is emitted before the first batch executes so
	// observers see max_steps immediately.
	snapshot := prog
	ch <- Message{JobID: id, Progress: &snapshot}

	for !prog.Done {
		if ctx.Err() != nil {
			terminal(Message{Aborted: true, Err: ErrAborted})
			return
		}
		prog, err = handle.RunSteps(batch)
		if err != nil {
			terminal(Message{Err: err})
			return
		}
		snapshot := prog
		ch <- Message{JobID: id, Progress: &snapshot}
	}

	result, err := handle.Result()
	if err != nil {
		terminal(Message{Err: err})
		return
	}
	terminal(Message{OK: true, Result: result})
}
