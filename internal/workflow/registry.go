package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// minSweepInterval bounds how often the idle sweep runs for very short TTLs.
const minSweepInterval = 10 * time.Millisecond

// Registry keeps the workflows of the forms currently mounted. Nothing in it
// outlives the process. With a TTL set, workflows nobody has looked up for
// that long are closed and forgotten unless a request is in flight.
type Registry struct {
	ctx       context.Context
	predictor Predictor
	logger    *zap.Logger
	ttl       time.Duration

	mu        sync.Mutex
	workflows map[string]*entry
}

type entry struct {
	workflow   *Workflow
	lastAccess time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTTL evicts workflows left untouched for longer than ttl. Zero disables
// eviction.
func WithTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

// NewRegistry creates an empty registry. Workflows it mounts issue their
// requests under ctx, and the idle sweep stops when ctx is done.
func NewRegistry(ctx context.Context, predictor Predictor, logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		ctx:       ctx,
		predictor: predictor,
		logger:    logger,
		workflows: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ttl > 0 {
		go r.sweepLoop()
	}
	return r
}

// Mount creates and registers a new idle workflow.
func (r *Registry) Mount() *Workflow {
	id := uuid.New().String()
	w := New(r.ctx, id, r.predictor, r.logger)

	r.mu.Lock()
	r.workflows[id] = &entry{workflow: w, lastAccess: time.Now()}
	r.mu.Unlock()

	r.logger.Debug("mounted workflow", zap.String("workflow", id))
	return w
}

// Get returns the workflow with the given ID and marks it as recently used.
func (r *Registry) Get(id string) (*Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.workflows[id]
	if !ok {
		return nil, ErrWorkflowNotFound
	}
	e.lastAccess = time.Now()
	return e.workflow, nil
}

// Unmount closes and forgets the workflow with the given ID.
func (r *Registry) Unmount(id string) error {
	r.mu.Lock()
	e, ok := r.workflows[id]
	delete(r.workflows, id)
	r.mu.Unlock()

	if !ok {
		return ErrWorkflowNotFound
	}
	e.workflow.Close()
	r.logger.Debug("unmounted workflow", zap.String("workflow", id))
	return nil
}

// Len returns the number of mounted workflows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workflows)
}

// Sweep closes and forgets every workflow last used more than the TTL before
// now. Workflows waiting on a prediction are kept. It returns the number
// evicted and does nothing when no TTL is set.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-r.ttl)

	var evicted []*Workflow
	r.mu.Lock()
	for id, e := range r.workflows {
		if !e.lastAccess.Before(cutoff) {
			continue
		}
		if e.workflow.State().Phase() == PhaseLoading {
			continue
		}
		evicted = append(evicted, e.workflow)
		delete(r.workflows, id)
	}
	r.mu.Unlock()

	for _, w := range evicted {
		w.Close()
		r.logger.Debug("evicted idle workflow", zap.String("workflow", w.ID()))
	}
	return len(evicted)
}

func (r *Registry) sweepLoop() {
	interval := r.ttl / 2
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				r.logger.Info("evicted idle workflows", zap.Int("count", n))
			}
		}
	}
}

// CloseAll unmounts every workflow.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	workflows := r.workflows
	r.workflows = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range workflows {
		e.workflow.Close()
	}
	r.logger.Info("closed all workflows", zap.Int("count", len(workflows)))
}
