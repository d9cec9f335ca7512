package domain

import "context"

// Include loads related data into items already materialized by GetAll.
type Include[T any] func(ctx context.Context, items []T) error

// MovieRepository stages changes to movies and reads stored movies. Staged
// changes become durable only when the owning UnitOfWork is saved.
type MovieRepository interface {
	Insert(movie *Movie)
	BulkInsert(movies []*Movie)
	GetAll(ctx context.Context, includes ...Include[*Movie]) ([]*Movie, error)
	GetByID(ctx context.Context, id int64) (*Movie, error)
	Update(movie *Movie) error
	Delete(movie *Movie) error
	DeleteByID(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// UnitOfWork groups the repositories of one request over a single storage
// context and commits their staged changes together.
type UnitOfWork interface {
	MovieRepo() MovieRepository
	Save(ctx context.Context) error
}
