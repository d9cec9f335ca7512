package domain

import (
	"html"
	"strings"
	"sync"

	"github.com/amaumene/moviecollection/internal/validator"
	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// ValidateMovieForm records every rule f breaks in v.
func ValidateMovieForm(v *validator.Validator, f MovieForm) {
	v.Check(validator.NotBlank(f.Title), "title", "Title is required!")
	v.Check(f.Year != 0, "year", "Year is required!")
	v.Check(validator.NotBlank(f.Director), "director", "Director is required!")
	v.Check(f.Rating != "", "rating", "Rating is required!")
	v.Check(f.Rating == "" || validator.PermittedValue(f.Rating, Ratings()...), "rating", "Rating must be one of G, PG, PG-13 or R!")
	v.Check(validator.MaxChars(f.Notes, NotesMaxLength), "notes", "Notes must be less than 25 characters!")
}

// Sanitized returns f with markup stripped and surrounding whitespace
// trimmed from its free-text fields.
func (f MovieForm) Sanitized() MovieForm {
	f.Title = sanitizeText(f.Title)
	f.Director = sanitizeText(f.Director)
	f.LentTo = sanitizeText(f.LentTo)
	f.Notes = sanitizeText(f.Notes)
	return f
}

func sanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	// StrictPolicy escapes entities; templates escape on output already.
	cleaned := html.UnescapeString(textSanitizer().Sanitize(trimmed))
	return strings.TrimSpace(cleaned)
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
