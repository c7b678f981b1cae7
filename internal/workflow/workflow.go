// Package workflow drives one ingredient form: it validates the input, runs
// at most one prediction request at a time and holds the resulting state.
package workflow

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"recipepredictor/internal/recipe"
)

// Predictor sends an ingredient query to the prediction service.
type Predictor interface {
	Predict(ctx context.Context, ingredients string) (recipe.PredictionResult, error)
}

// Workflow owns the state of one ingredient form. All methods are safe for
// concurrent use.
type Workflow struct {
	id        string
	predictor Predictor
	logger    *zap.Logger
	baseCtx   context.Context

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc
	closed     bool
}

// New creates an idle workflow. Requests it issues are canceled when ctx ends.
func New(ctx context.Context, id string, predictor Predictor, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		id:        id,
		predictor: predictor,
		logger:    logger.With(zap.String("workflow", id)),
		baseCtx:   ctx,
		state:     Idle{},
	}
}

// ID returns the workflow identifier.
func (w *Workflow) ID() string { return w.id }

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Submit validates raw and, if it is not blank, starts a prediction request
// in the background. The returned channel is closed once that request has
// settled, whether its outcome was applied or discarded.
//
// Blank input moves the workflow to Failed with ValidationMessage and
// returns a *ValidationError without contacting the service. Submitting
// while a request is in flight returns ErrRequestInFlight and leaves the
// state untouched.
func (w *Workflow) Submit(raw string) (<-chan struct{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWorkflowClosed
	}
	if _, loading := w.state.(Loading); loading {
		return nil, ErrRequestInFlight
	}

	query, err := Validate(raw)
	if err != nil {
		w.state = Failed{Raw: raw, Message: ValidationMessage, Err: err}
		return nil, err
	}

	w.generation++
	gen := w.generation
	ctx, cancel := context.WithCancel(w.baseCtx)
	w.cancel = cancel
	w.state = Loading{Raw: raw, Query: query}

	w.logger.Debug("submitting prediction", zap.Uint64("generation", gen), zap.String("query", query))

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		result, err := w.predictor.Predict(ctx, query)
		w.settle(gen, result, err)
	}()
	return done, nil
}

// settle applies the outcome of request gen unless it has been superseded.
func (w *Workflow) settle(gen uint64, result recipe.PredictionResult, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.generation {
		w.logger.Debug("dropping stale prediction response",
			zap.Uint64("generation", gen),
			zap.Uint64("current", w.generation),
			zap.Bool("failed", err != nil),
		)
		return
	}
	w.cancel = nil

	loading, ok := w.state.(Loading)
	if !ok {
		// Only Clear or Close move a workflow out of Loading, and both bump the generation.
		w.logger.Error("prediction settled outside loading state", zap.String("phase", string(w.state.Phase())))
		return
	}

	if err == nil && result == nil {
		err = errEmptyResult
	}
	if err != nil {
		w.logger.Error("prediction request failed",
			zap.Uint64("generation", gen),
			zap.Error(err),
		)
		w.state = Failed{Raw: loading.Raw, Message: RequestFailureMessage, Err: &RequestError{Err: err}}
		return
	}

	if m, ok := result.(recipe.ModelResult); ok && !m.Recognized() {
		w.logger.Warn("unrecognized prediction source, treating as model prediction",
			zap.String("source", m.Source()),
		)
	}
	w.state = Succeeded{Raw: loading.Raw, Query: loading.Query, Result: result}
}

// Clear returns the workflow to Idle with an empty input. Any request in
// flight is canceled and its response will be discarded.
func (w *Workflow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.supersede()
	w.state = Idle{}
}

// Close unmounts the workflow. Later calls to Submit fail with
// ErrWorkflowClosed.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.supersede()
	w.state = Idle{}
	w.closed = true
}

func (w *Workflow) supersede() {
	w.generation++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}
