package workflow

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"recipepredictor/internal/recipe"
)

// Mode is what the result region of the form shows.
type Mode string

const (
	ModeIdle            Mode = "idle"
	ModeLoading         Mode = "loading"
	ModeError           Mode = "error"
	ModeDatasetMatches       = Mode(recipe.ModeDatasetMatches)
	ModeNoMatches            = Mode(recipe.ModeNoMatches)
	ModeModelPrediction      = Mode(recipe.ModeModelPrediction)
)

// Button labels for the Predict action.
const (
	SubmitLabel        = "Predict"
	SubmitLabelLoading = "Predicting..."
)

// View is everything the form needs to draw itself.
type View struct {
	Mode           Mode        `json:"mode"`
	Input          string      `json:"input"`
	SubmitLabel    string      `json:"submit_label"`
	SubmitDisabled bool        `json:"submit_disabled"`
	Error          string      `json:"error,omitempty"`
	Heading        string      `json:"heading,omitempty"`
	Matches        []MatchView `json:"matches,omitempty"`
	Category       string      `json:"category,omitempty"`
	Cuisine        string      `json:"cuisine,omitempty"`
}

// MatchView is one dataset recipe as displayed.
type MatchView struct {
	Category           string `json:"category"`
	Cuisine            string `json:"cuisine"`
	MatchedIngredients string `json:"matched_ingredients"`
	AllIngredients     string `json:"all_ingredients"`
}

// Render maps a state to its view.
func Render(s State) View {
	v := View{
		Mode:        ModeIdle,
		Input:       s.Input(),
		SubmitLabel: SubmitLabel,
	}

	switch st := s.(type) {
	case Idle:
	case Loading:
		v.Mode = ModeLoading
		v.SubmitLabel = SubmitLabelLoading
		v.SubmitDisabled = true
	case Failed:
		v.Mode = ModeError
		v.Error = st.Message
	case Succeeded:
		res := recipe.Resolve(st.Result)
		v.Mode = Mode(res.Mode)
		v.Heading = res.Heading
		v.Category = res.Category
		v.Cuisine = res.Cuisine
		v.Matches = lo.Map(res.Matches, func(m recipe.RecipeMatch, _ int) MatchView {
			return MatchView{
				Category:           m.Category,
				Cuisine:            m.Cuisine,
				MatchedIngredients: joinOr(m.MatchedIngredients, "None"),
				AllIngredients:     strings.Join(m.AllIngredients, ", "),
			}
		})
	default:
		panic(fmt.Sprintf("workflow: unhandled state %T", s))
	}
	return v
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
