package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/amaumene/moviecollection/internal/storage"
	"github.com/google/go-cmp/cmp"
)

func setupTestBackend(t *testing.T) *storage.BoltBackend {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test_*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	tmpfile.Close()

	backend, err := storage.OpenBolt(tmpfile.Name(), 0666)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	t.Cleanup(func() {
		backend.Close()
		os.Remove(tmpfile.Name())
	})

	return backend
}

func newUnitOfWork(backend storage.Backend) *UnitOfWork {
	return NewUnitOfWork(storage.NewContext(backend))
}

func movie(title string, year int) *domain.Movie {
	return &domain.Movie{
		Title:    title,
		Year:     year,
		Director: "Director of " + title,
		Rating:   domain.RatingPG13,
	}
}

func seed(t *testing.T, backend storage.Backend, movies ...*domain.Movie) {
	t.Helper()
	uow := newUnitOfWork(backend)
	uow.MovieRepo().BulkInsert(movies)
	if err := uow.Save(context.Background()); err != nil {
		t.Fatalf("seeding: %v", err)
	}
}

func titles(movies []*domain.Movie) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = m.Title
	}
	return out
}

func TestRepository_InsertThenGetByID(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		movie *domain.Movie
	}{
		{
			name: "every field set",
			movie: &domain.Movie{
				Title:    "The Matrix",
				Year:     1999,
				Director: "The Wachowskis",
				Rating:   domain.RatingR,
				Edited:   true,
				LentTo:   "Neo",
				Notes:    "Red pill edition",
			},
		},
		{
			name:  "optional fields empty",
			movie: movie("Toy Story", 1995),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := newUnitOfWork(backend)
			uow.MovieRepo().Insert(tt.movie)
			if err := uow.Save(ctx); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if tt.movie.MovieID <= 0 {
				t.Fatalf("MovieID = %d, want a positive key", tt.movie.MovieID)
			}

			got, err := newUnitOfWork(backend).MovieRepo().GetByID(ctx, tt.movie.MovieID)
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if diff := cmp.Diff(tt.movie, got); diff != "" {
				t.Errorf("GetByID() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRepository_GetByIDMissing(t *testing.T) {
	backend := setupTestBackend(t)

	got, err := newUnitOfWork(backend).MovieRepo().GetByID(context.Background(), 404)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetByID() = %+v, want nil", got)
	}
}

func TestRepository_DeleteByIDMissing(t *testing.T) {
	backend := setupTestBackend(t)
	seed(t, backend, movie("Present", 2000))

	uow := newUnitOfWork(backend)
	err := uow.MovieRepo().DeleteByID(context.Background(), 404)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteByID() error = %v, want ErrNotFound", err)
	}
}

func TestRepository_DeleteAfterSave(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	uow := newUnitOfWork(backend)
	repo := uow.MovieRepo()
	a, b := movie("A", 2001), movie("B", 2002)
	repo.Insert(a)
	repo.Insert(b)
	if err := uow.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := repo.Delete(a); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := uow.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	all, err := newUnitOfWork(backend).MovieRepo().GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if diff := cmp.Diff([]string{"B"}, titles(all)); diff != "" {
		t.Errorf("GetAll() titles mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_DeleteDetached(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	stored := movie("Detached", 2010)
	seed(t, backend, stored)

	detached := &domain.Movie{MovieID: stored.MovieID}
	uow := newUnitOfWork(backend)
	if err := uow.MovieRepo().Delete(detached); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := uow.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	count, err := newUnitOfWork(backend).MovieRepo().Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}
}

func TestRepository_DeleteStagedInsert(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	uow := newUnitOfWork(backend)
	m := movie("Never saved", 2020)
	uow.MovieRepo().Insert(m)
	if err := uow.MovieRepo().Delete(m); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := uow.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	all, err := newUnitOfWork(backend).MovieRepo().GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("GetAll() returned %d movies, want 0", len(all))
	}
}

func TestRepository_UpdateReplacesAllFields(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	stored := &domain.Movie{
		Title:    "X",
		Year:     1999,
		Director: "Old Director",
		Rating:   domain.RatingG,
		LentTo:   "Alice",
		Notes:    "old notes",
	}
	seed(t, backend, stored)

	replacement := &domain.Movie{
		MovieID:  stored.MovieID,
		Title:    "Y",
		Year:     1999,
		Director: "New Director",
		Rating:   domain.RatingR,
		Edited:   true,
	}
	uow := newUnitOfWork(backend)
	if err := uow.MovieRepo().Update(replacement); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := uow.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := newUnitOfWork(backend).MovieRepo().GetByID(ctx, stored.MovieID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if diff := cmp.Diff(replacement, got); diff != "" {
		t.Errorf("GetByID() after update mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_UpdateErrors(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	t.Run("no key", func(t *testing.T) {
		uow := newUnitOfWork(backend)
		if err := uow.MovieRepo().Update(movie("Keyless", 2000)); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("stale key", func(t *testing.T) {
		uow := newUnitOfWork(backend)
		stale := movie("Stale", 2000)
		stale.MovieID = 999
		if err := uow.MovieRepo().Update(stale); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if err := uow.Save(ctx); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Save() error = %v, want ErrNotFound", err)
		}
	})
}

func TestRepository_StagedDeleteSurvivesCopies(t *testing.T) {
	tests := []struct {
		name  string
		stage func(repo domain.MovieRepository, dup *domain.Movie) error
	}{
		{name: "update", stage: func(repo domain.MovieRepository, dup *domain.Movie) error { return repo.Update(dup) }},
		{name: "delete", stage: func(repo domain.MovieRepository, dup *domain.Movie) error { return repo.Delete(dup) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := setupTestBackend(t)
			ctx := context.Background()

			stored := movie("X", 1999)
			seed(t, backend, stored)

			uow := newUnitOfWork(backend)
			repo := uow.MovieRepo()
			if err := repo.DeleteByID(ctx, stored.MovieID); err != nil {
				t.Fatalf("DeleteByID() error = %v", err)
			}

			dup := movie("Y", 2000)
			dup.MovieID = stored.MovieID
			if err := tt.stage(repo, dup); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("%s() error = %v, want ErrNotFound", tt.name, err)
			}
			if err := uow.Save(ctx); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, err := newUnitOfWork(backend).MovieRepo().GetByID(ctx, stored.MovieID)
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if got != nil {
				t.Errorf("GetByID() = %+v, want nil after delete", got)
			}
		})
	}
}

func TestRepository_InsertTrackedIsNoop(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	uow := newUnitOfWork(backend)
	repo := uow.MovieRepo()
	m := movie("Once", 2005)
	repo.Insert(m)
	if err := uow.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	id := m.MovieID

	repo.Insert(m)
	if err := uow.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
	if m.MovieID != id {
		t.Errorf("MovieID = %d, want %d", m.MovieID, id)
	}
}

func TestRepository_UpdateStagedInsert(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	uow := newUnitOfWork(backend)
	repo := uow.MovieRepo()
	m := movie("Draft", 2011)
	repo.Insert(m)
	m.MovieID = 7
	m.Title = "Final"
	if err := repo.Update(m); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := uow.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	all, err := newUnitOfWork(backend).MovieRepo().GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Final"}, titles(all)); diff != "" {
		t.Errorf("GetAll() titles mismatch (-want +got):\n%s", diff)
	}
}

func TestUnitOfWork_SaveIsAtomic(t *testing.T) {
	ctx := context.Background()

	t.Run("insert and delete commit together", func(t *testing.T) {
		backend := setupTestBackend(t)
		old := movie("Old", 1980)
		seed(t, backend, old)

		uow := newUnitOfWork(backend)
		uow.MovieRepo().Insert(movie("New", 2020))
		if err := uow.MovieRepo().DeleteByID(ctx, old.MovieID); err != nil {
			t.Fatalf("DeleteByID() error = %v", err)
		}
		if err := uow.Save(ctx); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		all, err := newUnitOfWork(backend).MovieRepo().GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll() error = %v", err)
		}
		if diff := cmp.Diff([]string{"New"}, titles(all)); diff != "" {
			t.Errorf("GetAll() titles mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("failed save leaves nothing behind", func(t *testing.T) {
		backend := setupTestBackend(t)
		old := movie("Old", 1980)
		seed(t, backend, old)

		uow := newUnitOfWork(backend)
		added := movie("New", 2020)
		uow.MovieRepo().Insert(added)
		if err := uow.MovieRepo().DeleteByID(ctx, old.MovieID); err != nil {
			t.Fatalf("DeleteByID() error = %v", err)
		}
		stale := movie("Stale", 1990)
		stale.MovieID = 999
		if err := uow.MovieRepo().Update(stale); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		if err := uow.Save(ctx); err == nil {
			t.Fatal("Save() should fail on a stale update")
		}
		if added.MovieID != 0 {
			t.Errorf("MovieID of the rolled back insert = %d, want 0", added.MovieID)
		}

		all, err := newUnitOfWork(backend).MovieRepo().GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll() error = %v", err)
		}
		if diff := cmp.Diff([]string{"Old"}, titles(all)); diff != "" {
			t.Errorf("GetAll() titles mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestRepository_GetAllAppliesNoFiltering(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()
	seed(t, backend,
		movie("Independence Day", 1996),
		movie("Jaws", 1975),
		movie("Alien", 1979),
	)

	all, err := newUnitOfWork(backend).MovieRepo().GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	want := []string{"Independence Day", "Jaws", "Alien"}
	if diff := cmp.Diff(want, titles(all)); diff != "" {
		t.Errorf("GetAll() titles mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_GetAllRunsIncludes(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()
	seed(t, backend, movie("One", 2001), movie("Two", 2002))

	var seen int
	countLoaded := func(_ context.Context, items []*domain.Movie) error {
		seen = len(items)
		return nil
	}
	failing := func(_ context.Context, _ []*domain.Movie) error {
		return errors.New("relation missing")
	}

	repo := newUnitOfWork(backend).MovieRepo()
	if _, err := repo.GetAll(ctx, countLoaded); err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if seen != 2 {
		t.Errorf("include saw %d items, want 2", seen)
	}
	if _, err := repo.GetAll(ctx, failing); err == nil {
		t.Error("GetAll() should fail when an include fails")
	}
}

func TestRepository_Count(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	repo := newUnitOfWork(backend).MovieRepo()
	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() on empty store = %d, want 0", count)
	}

	seed(t, backend, movie("One", 2001), movie("Two", 2002), movie("Three", 2003))
	count, err = newUnitOfWork(backend).MovieRepo().Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestUnitOfWork_MovieRepoIsMemoized(t *testing.T) {
	backend := setupTestBackend(t)
	uow := newUnitOfWork(backend)
	other := newUnitOfWork(backend)

	if uow.MovieRepo() != uow.MovieRepo() {
		t.Error("MovieRepo() returned different instances within one unit of work")
	}
	if uow.MovieRepo() == other.MovieRepo() {
		t.Error("MovieRepo() shared an instance across units of work")
	}
}

func TestUnitOfWork_SaveWithoutChanges(t *testing.T) {
	backend := setupTestBackend(t)
	if err := newUnitOfWork(backend).Save(context.Background()); err != nil {
		t.Errorf("Save() error = %v", err)
	}
}
