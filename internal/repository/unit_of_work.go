package repository

import (
	"context"

	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/amaumene/moviecollection/internal/storage"
	log "github.com/sirupsen/logrus"
)

// UnitOfWork groups the repositories of one request over a single
// storage.Context. It is not safe for concurrent use.
type UnitOfWork struct {
	sc     *storage.Context
	movies *Repository[domain.Movie, *domain.Movie]
}

func NewUnitOfWork(sc *storage.Context) *UnitOfWork {
	return &UnitOfWork{sc: sc}
}

// MovieRepo builds the movie repository on first use and returns the same
// instance afterwards.
func (u *UnitOfWork) MovieRepo() domain.MovieRepository {
	if u.movies == nil {
		u.movies = New[domain.Movie](u.sc)
	}
	return u.movies
}

// Save commits every change staged through this unit of work.
func (u *UnitOfWork) Save(ctx context.Context) error {
	pending := u.sc.Pending()
	if err := u.sc.SaveChanges(ctx); err != nil {
		return err
	}

	if pending > 0 {
		log.WithField("changes", pending).Debug("Saved unit of work")
	}
	return nil
}
