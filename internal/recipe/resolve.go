package recipe

import "fmt"

// Mode is the way a prediction result is rendered.
type Mode string

const (
	ModeDatasetMatches  Mode = "dataset-matches"
	ModeNoMatches       Mode = "no-matches"
	ModeModelPrediction Mode = "model-prediction"
)

// Undetermined replaces the Unknown label in model predictions.
const Undetermined = "Couldn't determine"

// NoMatchesMessage is shown when the dataset search came back empty.
const NoMatchesMessage = "No matching recipes found in dataset."

// Resolution is the display form of a prediction result.
type Resolution struct {
	Mode Mode
	// Heading is the line shown above the result body.
	Heading string
	// Matches is set for ModeDatasetMatches only.
	Matches []RecipeMatch
	// Category and Cuisine are set for ModeModelPrediction only.
	Category string
	Cuisine  string
}

// Resolve selects the rendering mode for result. It has no side effects and
// always returns the same Resolution for the same input.
func Resolve(result PredictionResult) Resolution {
	switch r := result.(type) {
	case DatasetResult:
		if len(r.Matches) == 0 {
			return Resolution{Mode: ModeNoMatches, Heading: NoMatchesMessage}
		}
		return Resolution{
			Mode:    ModeDatasetMatches,
			Heading: fmt.Sprintf("Found %d recipe(s) from dataset:", len(r.Matches)),
			Matches: r.Matches,
		}
	case ModelResult:
		return Resolution{
			Mode:     ModeModelPrediction,
			Category: displayLabel(r.Category),
			Cuisine:  displayLabel(r.Cuisine),
		}
	default:
		panic(fmt.Sprintf("recipe: unhandled prediction result %T", result))
	}
}

func displayLabel(label string) string {
	if label == Unknown {
		return Undetermined
	}
	return label
}
