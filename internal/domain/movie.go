package domain

import (
	"fmt"
	"strings"
)

const (
	movieTable     = "movies"
	movieKeyColumn = "movie_id"

	// NotesMaxLength is the upper bound on Movie.Notes, in characters.
	NotesMaxLength = 25
)

// Rating is the audience rating of a movie.
type Rating string

const (
	RatingG    Rating = "G"
	RatingPG   Rating = "PG"
	RatingPG13 Rating = "PG-13"
	RatingR    Rating = "R"
)

// Ratings returns every rating, least restrictive first.
func Ratings() []Rating {
	return []Rating{RatingG, RatingPG, RatingPG13, RatingR}
}

// ParseRating accepts a display name ("PG-13") or its identifier spelling
// ("PG13"), case-insensitively.
func ParseRating(s string) (Rating, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	for _, r := range Ratings() {
		if normalized == string(r) || normalized == strings.ReplaceAll(string(r), "-", "") {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown rating %q", ErrInvalidInput, s)
}

func (r Rating) Valid() bool {
	for _, known := range Ratings() {
		if r == known {
			return true
		}
	}
	return false
}

func (r Rating) String() string {
	return string(r)
}

// Movie is a persisted movie record. MovieID is assigned by storage on insert.
type Movie struct {
	MovieID  int64
	Title    string
	Year     int
	Director string
	Rating   Rating
	Edited   bool
	LentTo   string
	Notes    string
}

func (m *Movie) Table() string {
	return movieTable
}

func (m *Movie) Key() int64 {
	return m.MovieID
}

func (m *Movie) SetKey(key int64) {
	m.MovieID = key
}

func (m *Movie) KeyColumn() string {
	return movieKeyColumn
}

func (m *Movie) Columns() []string {
	return []string{"title", "year", "director", "rating", "edited", "lent_to", "notes"}
}

func (m *Movie) Values() []any {
	return []any{m.Title, m.Year, m.Director, string(m.Rating), m.Edited, m.LentTo, m.Notes}
}

// ScanTargets lists the key followed by Columns, in order.
func (m *Movie) ScanTargets() []any {
	return []any{
		&m.MovieID,
		&m.Title,
		&m.Year,
		&m.Director,
		(*string)(&m.Rating),
		&m.Edited,
		&m.LentTo,
		&m.Notes,
	}
}

// MovieForm carries a movie as submitted through the add and edit pages.
// It has no identity; edit and delete flows take the MovieID from the route.
type MovieForm struct {
	Title    string
	Year     int
	Director string
	Rating   Rating
	Edited   bool
	LentTo   string
	Notes    string
}

func (f MovieForm) String() string {
	return fmt.Sprintf("%s by %s in %d", f.Title, f.Director, f.Year)
}

// ToForm copies every field of m except its identity.
func ToForm(m *Movie) MovieForm {
	return MovieForm{
		Title:    m.Title,
		Year:     m.Year,
		Director: m.Director,
		Rating:   m.Rating,
		Edited:   m.Edited,
		LentTo:   m.LentTo,
		Notes:    m.Notes,
	}
}

// ToMovie builds an unsaved Movie from f. MovieID is left zero.
func ToMovie(f MovieForm) *Movie {
	return &Movie{
		Title:    f.Title,
		Year:     f.Year,
		Director: f.Director,
		Rating:   f.Rating,
		Edited:   f.Edited,
		LentTo:   f.LentTo,
		Notes:    f.Notes,
	}
}
