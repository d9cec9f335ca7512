package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/amaumene/moviecollection/internal/storage"
)

// Record constrains P to be a pointer to T that the storage layer can persist.
type Record[T any] interface {
	*T
	storage.Record
}

// Repository stages changes to entities of type T on a storage.Context.
type Repository[T any, P Record[T]] struct {
	sc *storage.Context
}

func New[T any, P Record[T]](sc *storage.Context) *Repository[T, P] {
	return &Repository[T, P]{sc: sc}
}

func (r *Repository[T, P]) newRecord() storage.Record {
	return P(new(T))
}

// Insert stages item for insertion. Its key is assigned on save.
// Inserting an instance the unit of work already tracks is a no-op,
// including one that was saved earlier.
func (r *Repository[T, P]) Insert(item P) {
	r.sc.Add(item)
}

func (r *Repository[T, P]) BulkInsert(items []P) {
	for _, item := range items {
		r.sc.Add(item)
	}
}

// GetAll returns every stored entity in ascending key order, then runs the
// includes over the result.
func (r *Repository[T, P]) GetAll(ctx context.Context, includes ...domain.Include[P]) ([]P, error) {
	records, err := r.sc.All(ctx, r.newRecord)
	if err != nil {
		return nil, fmt.Errorf("getting all %s: %w", r.newRecord().Table(), err)
	}

	items := make([]P, 0, len(records))
	for _, rec := range records {
		item, ok := rec.(P)
		if !ok {
			return nil, fmt.Errorf("database integrity error: invalid record type %T", rec)
		}
		items = append(items, item)
	}

	for _, include := range includes {
		if err := include(ctx, items); err != nil {
			return nil, fmt.Errorf("loading includes: %w", err)
		}
	}
	return items, nil
}

// GetByID returns nil without an error when no entity has the given id.
func (r *Repository[T, P]) GetByID(ctx context.Context, id int64) (P, error) {
	var none P
	rec, err := r.sc.Find(ctx, id, r.newRecord)
	if errors.Is(err, domain.ErrNotFound) {
		return none, nil
	}
	if err != nil {
		return none, fmt.Errorf("getting %s %d: %w", r.newRecord().Table(), id, err)
	}

	item, ok := rec.(P)
	if !ok {
		return none, fmt.Errorf("database integrity error: invalid record type %T", rec)
	}
	return item, nil
}

// Update stages a full replacement of the stored entity with item's fields.
// An item still staged for insertion stays staged and is inserted with its
// current fields on save; any key set on it is replaced then. A key staged
// for deletion reports ErrNotFound.
func (r *Repository[T, P]) Update(item P) error {
	if item.Key() <= 0 {
		return fmt.Errorf("updating %s without a key: %w", item.Table(), domain.ErrNotFound)
	}

	switch r.sc.State(item) {
	case storage.Added:
		return nil
	case storage.Detached:
		if err := r.sc.Attach(item); err != nil {
			return err
		}
	}
	return r.sc.SetState(item, storage.Modified)
}

// Delete stages removal of item, attaching it first when it is not tracked.
func (r *Repository[T, P]) Delete(item P) error {
	if r.sc.State(item) == storage.Detached {
		if err := r.sc.Attach(item); err != nil {
			return fmt.Errorf("deleting %s: %w", item.Table(), err)
		}
	}
	return r.sc.Remove(item)
}

// DeleteByID stages removal of the entity stored under id. It returns an
// error matching domain.ErrNotFound when there is none.
func (r *Repository[T, P]) DeleteByID(ctx context.Context, id int64) error {
	rec, err := r.sc.Find(ctx, id, r.newRecord)
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", r.newRecord().Table(), id, err)
	}
	return r.sc.Remove(rec)
}

func (r *Repository[T, P]) Count(ctx context.Context) (int, error) {
	items, err := r.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
