package workflow

import "strings"

// Validate trims surrounding whitespace from raw and returns the query to
// submit. Internal whitespace is kept as typed.
func Validate(raw string) (string, error) {
	query := strings.TrimSpace(raw)
	if query == "" {
		return "", &ValidationError{Err: ErrEmptyInput}
	}
	return query, nil
}
