package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Source values reported by the prediction service.
const (
	SourceDataset = "dataset"
	SourceModel   = "model"
)

// Unknown is the label the service reports when the model cannot decide.
const Unknown = "Unknown"

// RecipeMatch is a dataset recipe whose ingredients fuzzy-matched the query.
type RecipeMatch struct {
	Category           string   `json:"Category"`
	Cuisine            string   `json:"Cuisine"`
	MatchedIngredients []string `json:"MatchedIngredients"`
	AllIngredients     []string `json:"AllIngredients"`
}

// PredictionResult is the payload of a successful prediction. It is either
// a DatasetResult or a ModelResult.
type PredictionResult interface {
	// Source returns the discriminant reported by the service.
	Source() string
	isPredictionResult()
}

// DatasetResult holds the matches found in the recipe dataset, in the order
// the service returned them.
type DatasetResult struct {
	Matches []RecipeMatch `json:"matches"`
}

// Source implements PredictionResult.
func (DatasetResult) Source() string { return SourceDataset }

func (DatasetResult) isPredictionResult() {}

// ModelResult holds the category and cuisine inferred by the model.
type ModelResult struct {
	// SourceValue keeps whatever non-dataset discriminant arrived, so callers
	// can tell "model" apart from values the service has not used before.
	SourceValue string `json:"source"`
	Category    string `json:"Category"`
	Cuisine     string `json:"Cuisine"`
}

// Source implements PredictionResult.
func (r ModelResult) Source() string { return r.SourceValue }

// Recognized reports whether the discriminant is the documented "model" value.
func (r ModelResult) Recognized() bool { return r.SourceValue == SourceModel }

func (ModelResult) isPredictionResult() {}

// errNotObject is returned for a body that is valid JSON but not an object.
var errNotObject = errors.New("prediction is not a JSON object")

// fields holds the members of a JSON object keyed exactly as sent. Lookups
// are case-sensitive, unlike struct decoding in encoding/json.
type fields map[string]json.RawMessage

func decodeObject(data []byte) (fields, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errNotObject
	}
	return f, nil
}

// decode unmarshals the member named key into dst. A missing member leaves
// dst untouched.
func (f fields) decode(key string, dst any) error {
	raw, ok := f[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

func decodeMatch(data []byte) (RecipeMatch, error) {
	var m RecipeMatch
	f, err := decodeObject(data)
	if err != nil {
		return m, err
	}
	for key, dst := range map[string]any{
		"Category":           &m.Category,
		"Cuisine":            &m.Cuisine,
		"MatchedIngredients": &m.MatchedIngredients,
		"AllIngredients":     &m.AllIngredients,
	} {
		if err := f.decode(key, dst); err != nil {
			return m, err
		}
	}
	if m.MatchedIngredients == nil {
		m.MatchedIngredients = []string{}
	}
	if m.AllIngredients == nil {
		m.AllIngredients = []string{}
	}
	return m, nil
}

// DecodePrediction parses a response body into the matching result variant.
// The body must be a JSON object and its keys are matched exactly. Any
// source other than "dataset" decodes to a ModelResult.
func DecodePrediction(data []byte) (PredictionResult, error) {
	f, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %w", err)
	}

	var source string
	if err := f.decode("source", &source); err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %w", err)
	}

	if source == SourceDataset {
		var raw []json.RawMessage
		if err := f.decode("matches", &raw); err != nil {
			return nil, fmt.Errorf("failed to decode prediction: %w", err)
		}
		matches := make([]RecipeMatch, 0, len(raw))
		for i, r := range raw {
			m, err := decodeMatch(r)
			if err != nil {
				return nil, fmt.Errorf("failed to decode prediction: match %d: %w", i, err)
			}
			matches = append(matches, m)
		}
		return DatasetResult{Matches: matches}, nil
	}

	model := ModelResult{SourceValue: source}
	if err := f.decode("Category", &model.Category); err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %w", err)
	}
	if err := f.decode("Cuisine", &model.Cuisine); err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %w", err)
	}
	return model, nil
}
