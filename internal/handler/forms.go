package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/amaumene/moviecollection/internal/validator"
	"github.com/gofiber/fiber/v2"
)

var ErrInvalidMovieID = errors.New("invalid movie ID")

// validateMovieID validates and parses a movie ID route parameter.
func validateMovieID(movieIDStr string) (int64, error) {
	if movieIDStr == "" {
		return 0, ErrInvalidMovieID
	}

	movieID, err := strconv.ParseInt(movieIDStr, 10, 64)
	if err != nil {
		return 0, ErrInvalidMovieID
	}

	if movieID <= 0 {
		return 0, ErrInvalidMovieID
	}

	return movieID, nil
}

// formInput is a submitted movie form after binding, sanitizing and
// validation. YearInput keeps the raw year so it can be shown again.
type formInput struct {
	Form      domain.MovieForm
	YearInput string
	Validator *validator.Validator
}

func bindMovieForm(c *fiber.Ctx) formInput {
	v := validator.New()
	// Edited is not read from the request; handleEdit sets it.
	in := formInput{
		Form: domain.MovieForm{
			Title:    c.FormValue("title"),
			Director: c.FormValue("director"),
			LentTo:   c.FormValue("lent_to"),
			Notes:    c.FormValue("notes"),
		},
		YearInput: strings.TrimSpace(c.FormValue("year")),
		Validator: v,
	}

	if in.YearInput != "" {
		year, err := strconv.Atoi(in.YearInput)
		if err != nil {
			v.AddError("year", "Year must be a number!")
		} else {
			in.Form.Year = year
		}
	}

	if raw := strings.TrimSpace(c.FormValue("rating")); raw != "" {
		rating, err := domain.ParseRating(raw)
		if err != nil {
			rating = domain.Rating(raw)
		}
		in.Form.Rating = rating
	}

	in.Form = in.Form.Sanitized()
	domain.ValidateMovieForm(v, in.Form)
	return in
}

func yearInput(f domain.MovieForm) string {
	if f.Year == 0 {
		return ""
	}
	return strconv.Itoa(f.Year)
}

func emptyInput(f domain.MovieForm) formInput {
	return formInput{
		Form:      f,
		YearInput: yearInput(f),
		Validator: validator.New(),
	}
}
