package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/spf13/cobra"
)

// Colors for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
	colorBold   = "\033[1m"
)

type colorizer func(color, text string) string

// collectionStats holds statistics about the movie collection.
type collectionStats struct {
	Total    int
	LentOut  int
	Edited   int
	ByRating map[domain.Rating]int
}

func newListCmd(flags *globalFlags) *cobra.Command {
	var (
		sortBy    string
		lentOnly  bool
		statsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every movie in the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withUnitOfWork(cmd.Context(), func(uow domain.UnitOfWork) error {
				movies, err := uow.MovieRepo().GetAll(cmd.Context())
				if err != nil {
					return err
				}

				colorize := getColorizer(flags.noColor)
				out := cmd.OutOrStdout()
				stats := calculateStats(movies)
				if statsOnly {
					printStatistics(out, colorize, stats)
					return nil
				}

				filtered := filterMovies(movies, lentOnly)
				sortMovies(filtered, sortBy)
				printMovies(out, colorize, filtered)
				printStatistics(out, colorize, stats)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "title", "Sort by: title, year, rating, id")
	cmd.Flags().BoolVar(&lentOnly, "lent", false, "Show only movies lent to someone")
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "Show only statistics")
	return cmd
}

func filterMovies(movies []*domain.Movie, lentOnly bool) []*domain.Movie {
	if !lentOnly {
		return slices.Clone(movies)
	}

	var filtered []*domain.Movie
	for _, m := range movies {
		if m.LentTo != "" {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func sortMovies(movies []*domain.Movie, sortBy string) {
	slices.SortStableFunc(movies, func(a, b *domain.Movie) int {
		switch sortBy {
		case "year":
			if a.Year != b.Year {
				return b.Year - a.Year
			}
		case "rating":
			if ra, rb := ratingRank(a.Rating), ratingRank(b.Rating); ra != rb {
				return ra - rb
			}
		case "id":
			switch {
			case a.MovieID < b.MovieID:
				return -1
			case a.MovieID > b.MovieID:
				return 1
			}
			return 0
		}
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	})
}

func ratingRank(r domain.Rating) int {
	if i := slices.Index(domain.Ratings(), r); i >= 0 {
		return i
	}
	return len(domain.Ratings())
}

func calculateStats(movies []*domain.Movie) collectionStats {
	stats := collectionStats{ByRating: make(map[domain.Rating]int)}
	for _, m := range movies {
		stats.Total++
		stats.ByRating[m.Rating]++
		if m.LentTo != "" {
			stats.LentOut++
		}
		if m.Edited {
			stats.Edited++
		}
	}
	return stats
}

func getColorizer(noColor bool) colorizer {
	if noColor {
		return func(color, text string) string { return text }
	}

	colors := map[string]string{
		"red":    colorRed,
		"green":  colorGreen,
		"yellow": colorYellow,
		"blue":   colorBlue,
		"purple": colorPurple,
		"cyan":   colorCyan,
		"white":  colorWhite,
		"bold":   colorBold,
	}

	return func(color, text string) string {
		if c, ok := colors[color]; ok {
			return c + text + colorReset
		}
		return text
	}
}

func ratingColor(r domain.Rating) string {
	switch r {
	case domain.RatingG:
		return "green"
	case domain.RatingPG:
		return "cyan"
	case domain.RatingPG13:
		return "yellow"
	case domain.RatingR:
		return "red"
	default:
		return "white"
	}
}

func printMovies(out io.Writer, colorize colorizer, movies []*domain.Movie) {
	fmt.Fprintln(out, colorize("bold", "MOVIE COLLECTION"))
	if len(movies) == 0 {
		fmt.Fprintln(out, "  No movies found.")
		fmt.Fprintln(out)
		return
	}

	for _, m := range movies {
		fmt.Fprintf(out, "%s %s %s\n",
			colorize("white", fmt.Sprintf("[%03d]", m.MovieID)),
			colorize("bold", m.Title),
			colorize(ratingColor(m.Rating), fmt.Sprintf("[%s]", m.Rating)))

		details := []string{
			colorize("yellow", fmt.Sprintf("Year: %d", m.Year)),
			colorize("blue", fmt.Sprintf("Director: %s", m.Director)),
		}
		if m.LentTo != "" {
			details = append(details, colorize("purple", fmt.Sprintf("Lent to: %s", m.LentTo)))
		}
		if m.Edited {
			details = append(details, colorize("cyan", "edited"))
		}
		fmt.Fprintf(out, "    %s\n", strings.Join(details, " | "))

		if m.Notes != "" {
			fmt.Fprintf(out, "    %s %s\n", colorize("white", "Notes:"), m.Notes)
		}
	}
	fmt.Fprintln(out)
}

func printStatistics(out io.Writer, colorize colorizer, stats collectionStats) {
	fmt.Fprintln(out, colorize("bold", "COLLECTION STATISTICS"))
	fmt.Fprintf(out, "  Total Movies:    %s\n", colorize("white", fmt.Sprintf("%d", stats.Total)))
	for _, r := range domain.Ratings() {
		fmt.Fprintf(out, "  %-16s %s\n", "Rated "+r.String()+":", colorize(ratingColor(r), fmt.Sprintf("%d", stats.ByRating[r])))
	}
	fmt.Fprintf(out, "  Lent Out:        %s\n", colorize("purple", fmt.Sprintf("%d", stats.LentOut)))
	fmt.Fprintf(out, "  Edited:          %s\n", colorize("cyan", fmt.Sprintf("%d", stats.Edited)))

	if stats.Total > 0 {
		onShelf := float64(stats.Total-stats.LentOut) / float64(stats.Total) * 100
		fmt.Fprintf(out, "  On Shelf:        %s\n", colorize("green", fmt.Sprintf("%.1f%%", onShelf)))
	}
	fmt.Fprintln(out)
}
