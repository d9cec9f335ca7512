package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/amaumene/moviecollection/internal/validator"
	"github.com/spf13/cobra"
)

// movieAnswers holds the raw answers for a new movie, from flags or prompts.
type movieAnswers struct {
	Title    string
	Year     string
	Director string
	Rating   string
	LentTo   string
	Notes    string
}

func newAddCmd(flags *globalFlags) *cobra.Command {
	var answers movieAnswers

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a movie, prompting for any field not given as a flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := promptMissing(&answers); err != nil {
				return err
			}

			form, v := answers.toForm()
			if !v.Valid() {
				return validationError(v)
			}

			return flags.withUnitOfWork(cmd.Context(), func(uow domain.UnitOfWork) error {
				movie := domain.ToMovie(form)
				uow.MovieRepo().Insert(movie)
				if err := uow.Save(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (id %d)\n", form, movie.MovieID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&answers.Title, "title", "", "Movie title")
	cmd.Flags().StringVar(&answers.Year, "year", "", "Release year")
	cmd.Flags().StringVar(&answers.Director, "director", "", "Director")
	cmd.Flags().StringVar(&answers.Rating, "rating", "", "Rating: G, PG, PG-13 or R")
	cmd.Flags().StringVar(&answers.LentTo, "lent-to", "", "Who borrowed the movie")
	cmd.Flags().StringVar(&answers.Notes, "notes", "", "Short notes")
	return cmd
}

// promptMissing asks for every field that is still empty. Optional fields
// are only asked for when a required one was missing too.
func promptMissing(a *movieAnswers) error {
	interactive := a.Title == "" || a.Year == "" || a.Director == "" || a.Rating == ""

	if a.Title == "" {
		if err := askInput("Title:", &a.Title, survey.Required); err != nil {
			return err
		}
	}
	if a.Year == "" {
		if err := askInput("Year:", &a.Year, survey.Required, yearValidator); err != nil {
			return err
		}
	}
	if a.Director == "" {
		if err := askInput("Director:", &a.Director, survey.Required); err != nil {
			return err
		}
	}
	if a.Rating == "" {
		options := make([]string, 0, len(domain.Ratings()))
		for _, r := range domain.Ratings() {
			options = append(options, r.String())
		}
		prompt := &survey.Select{
			Message: "Rating:",
			Options: options,
			Default: domain.RatingPG.String(),
		}
		if err := survey.AskOne(prompt, &a.Rating); err != nil {
			return fmt.Errorf("prompt rating: %w", err)
		}
	}

	if !interactive {
		return nil
	}
	if a.LentTo == "" {
		if err := askInput("Lent to (optional):", &a.LentTo); err != nil {
			return err
		}
	}
	if a.Notes == "" {
		if err := askInput("Notes (optional):", &a.Notes, notesValidator); err != nil {
			return err
		}
	}
	return nil
}

func askInput(message string, out *string, validators ...survey.Validator) error {
	prompt := &survey.Input{Message: message}
	var opts []survey.AskOpt
	for _, v := range validators {
		opts = append(opts, survey.WithValidator(v))
	}
	if err := survey.AskOne(prompt, out, opts...); err != nil {
		return fmt.Errorf("prompt %q: %w", message, err)
	}
	return nil
}

func yearValidator(ans interface{}) error {
	s, ok := ans.(string)
	if !ok {
		return errors.New("year must be text")
	}
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return errors.New("Year must be a number!")
	}
	return nil
}

func notesValidator(ans interface{}) error {
	s, ok := ans.(string)
	if !ok {
		return errors.New("notes must be text")
	}
	if !validator.MaxChars(s, domain.NotesMaxLength) {
		return errors.New("Notes must be less than 25 characters!")
	}
	return nil
}

// toForm converts the answers into a sanitized, validated form.
func (a movieAnswers) toForm() (domain.MovieForm, *validator.Validator) {
	v := validator.New()
	form := domain.MovieForm{
		Title:    a.Title,
		Director: a.Director,
		LentTo:   a.LentTo,
		Notes:    a.Notes,
	}

	if year := strings.TrimSpace(a.Year); year != "" {
		n, err := strconv.Atoi(year)
		if err != nil {
			v.AddError("year", "Year must be a number!")
		}
		form.Year = n
	}
	if raw := strings.TrimSpace(a.Rating); raw != "" {
		rating, err := domain.ParseRating(raw)
		if err != nil {
			rating = domain.Rating(raw)
		}
		form.Rating = rating
	}

	form = form.Sanitized()
	domain.ValidateMovieForm(v, form)
	return form, v
}

func validationError(v *validator.Validator) error {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, len(fields))
	for i, field := range fields {
		msgs[i] = fmt.Sprintf("%s: %s", field, v.Errors[field])
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}
