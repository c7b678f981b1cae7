package workflow

import "recipepredictor/internal/recipe"

// Phase names the variant of a State.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// State is the single value describing a workflow at any moment. It is one
// of Idle, Loading, Succeeded or Failed.
type State interface {
	Phase() Phase
	// Input returns the text currently in the ingredient box.
	Input() string
	isState()
}

// Idle is the state of a freshly mounted or cleared workflow.
type Idle struct{}

func (Idle) Phase() Phase  { return PhaseIdle }
func (Idle) Input() string { return "" }
func (Idle) isState()      {}

// Loading means a request for Query is in flight.
type Loading struct {
	Raw   string
	Query string
}

func (Loading) Phase() Phase    { return PhaseLoading }
func (s Loading) Input() string { return s.Raw }
func (Loading) isState()        {}

// Succeeded holds the result of the last request.
type Succeeded struct {
	Raw    string
	Query  string
	Result recipe.PredictionResult
}

func (Succeeded) Phase() Phase    { return PhaseSucceeded }
func (s Succeeded) Input() string { return s.Raw }
func (Succeeded) isState()        {}

// Failed holds the user-facing message and the error behind it. Err is a
// *ValidationError or a *RequestError and is never rendered.
type Failed struct {
	Raw     string
	Message string
	Err     error
}

func (Failed) Phase() Phase    { return PhaseFailed }
func (s Failed) Input() string { return s.Raw }
func (Failed) isState()        {}
