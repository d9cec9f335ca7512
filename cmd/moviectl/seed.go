package main

import (
	"fmt"

	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/spf13/cobra"
)

func sampleMovies() []*domain.Movie {
	return []*domain.Movie{
		{Title: "Casablanca", Year: 1942, Director: "Michael Curtiz", Rating: domain.RatingPG},
		{Title: "Jaws", Year: 1975, Director: "Steven Spielberg", Rating: domain.RatingPG},
		{Title: "Alien", Year: 1979, Director: "Ridley Scott", Rating: domain.RatingR},
		{Title: "Back to the Future", Year: 1985, Director: "Robert Zemeckis", Rating: domain.RatingPG},
		{Title: "Independence Day", Year: 1996, Director: "Roland Emmerich", Rating: domain.RatingPG13},
		{Title: "Toy Story", Year: 1995, Director: "John Lasseter", Rating: domain.RatingG, LentTo: "Sam", Notes: "Kids favourite"},
	}
}

func newSeedCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample movies into an empty collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withUnitOfWork(cmd.Context(), func(uow domain.UnitOfWork) error {
				count, err := uow.MovieRepo().Count(cmd.Context())
				if err != nil {
					return err
				}
				if count > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Collection already holds %d movies, nothing seeded\n", count)
					return nil
				}

				movies := sampleMovies()
				uow.MovieRepo().BulkInsert(movies)
				if err := uow.Save(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d movies\n", len(movies))
				return nil
			})
		},
	}
}
