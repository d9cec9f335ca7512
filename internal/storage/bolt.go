package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"

	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/timshannon/bolthold"
	bolt "go.etcd.io/bbolt"
)

const sequenceBucket = "_sequence"

// BoltBackend stores records in an embedded bolthold store, one bucket per
// record type. Keys come from a per-table bbolt sequence.
type BoltBackend struct {
	store *bolthold.Store
}

func OpenBolt(path string, mode os.FileMode) (*BoltBackend, error) {
	store, err := bolthold.Open(path, mode, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt store %s: %w", path, err)
	}
	return &BoltBackend{store: store}, nil
}

func (b *BoltBackend) Get(ctx context.Context, key int64, dst Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.store.Get(key, dst); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("getting %s %d: %w", dst.Table(), key, err)
	}
	return nil
}

func (b *BoltBackend) All(ctx context.Context, newRecord func() Record) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proto := newRecord()
	slice := reflect.New(reflect.SliceOf(reflect.TypeOf(proto)))
	if err := b.store.Find(slice.Interface(), &bolthold.Query{}); err != nil {
		return nil, fmt.Errorf("finding all %s: %w", proto.Table(), err)
	}

	found := slice.Elem()
	records := make([]Record, 0, found.Len())
	for i := 0; i < found.Len(); i++ {
		rec, ok := found.Index(i).Interface().(Record)
		if !ok {
			return nil, fmt.Errorf("database integrity error: invalid record type %T", found.Index(i).Interface())
		}
		records = append(records, rec)
	}
	slices.SortFunc(records, func(x, y Record) int {
		return cmp.Compare(x.Key(), y.Key())
	})
	return records, nil
}

func (b *BoltBackend) Commit(ctx context.Context, changes []Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := b.store.Bolt().Begin(true)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ch := range changes {
		if err := b.apply(tx, ch); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (b *BoltBackend) apply(tx *bolt.Tx, ch Change) error {
	rec := ch.Record
	switch ch.State {
	case Added:
		key, err := nextKey(tx, rec.Table())
		if err != nil {
			return err
		}
		rec.SetKey(key)
		if err := b.store.TxInsert(tx, key, rec); err != nil {
			return fmt.Errorf("inserting %s %d: %w", rec.Table(), key, err)
		}
	case Modified:
		if err := b.exists(tx, rec); err != nil {
			return err
		}
		if err := b.store.TxUpdate(tx, rec.Key(), rec); err != nil {
			return fmt.Errorf("updating %s %d: %w", rec.Table(), rec.Key(), err)
		}
	case Deleted:
		if err := b.exists(tx, rec); err != nil {
			return err
		}
		if err := b.store.TxDelete(tx, rec.Key(), rec); err != nil {
			return fmt.Errorf("deleting %s %d: %w", rec.Table(), rec.Key(), err)
		}
	default:
		return fmt.Errorf("cannot commit %s record in state %s", rec.Table(), ch.State)
	}
	return nil
}

// exists fails with domain.ErrNotFound when rec is no longer stored.
func (b *BoltBackend) exists(tx *bolt.Tx, rec Record) error {
	probe := reflect.New(reflect.TypeOf(rec).Elem()).Interface()
	err := b.store.TxGet(tx, rec.Key(), probe)
	if errors.Is(err, bolthold.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", rec.Table(), rec.Key(), domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking %s %d: %w", rec.Table(), rec.Key(), err)
	}
	return nil
}

func nextKey(tx *bolt.Tx, table string) (int64, error) {
	root, err := tx.CreateBucketIfNotExists([]byte(sequenceBucket))
	if err != nil {
		return 0, fmt.Errorf("creating sequence bucket: %w", err)
	}
	bkt, err := root.CreateBucketIfNotExists([]byte(table))
	if err != nil {
		return 0, fmt.Errorf("creating %s sequence: %w", table, err)
	}
	seq, err := bkt.NextSequence()
	if err != nil {
		return 0, fmt.Errorf("next %s key: %w", table, err)
	}
	return int64(seq), nil
}

func (b *BoltBackend) Close() error {
	return b.store.Close()
}
