package storage

import "context"

// Record is an entity the storage layer can persist. Key is zero until the
// backend assigns one on insert.
type Record interface {
	Table() string
	Key() int64
	SetKey(key int64)
}

// Columnar describes a record as relational columns. The key column is not
// part of Columns; ScanTargets lists the key followed by Columns.
type Columnar interface {
	Record
	KeyColumn() string
	Columns() []string
	Values() []any
	ScanTargets() []any
}

// State is the tracking state of a record inside a Context.
type State int

const (
	Detached State = iota
	Unchanged
	Added
	Modified
	Deleted
)

func (s State) String() string {
	switch s {
	case Detached:
		return "detached"
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one staged write handed to Backend.Commit.
type Change struct {
	State  State
	Record Record
}

// Backend persists records. Implementations must be safe for concurrent use;
// Commit applies every change or none of them.
type Backend interface {
	// Get loads the record stored under key into dst. It returns an error
	// matching domain.ErrNotFound when no such record exists.
	Get(ctx context.Context, key int64, dst Record) error
	// All returns every stored record of the type built by newRecord, in
	// ascending key order.
	All(ctx context.Context, newRecord func() Record) ([]Record, error)
	// Commit applies changes in order inside one transaction. Keys assigned
	// to added records are set on them before Commit returns.
	Commit(ctx context.Context, changes []Change) error
	Close() error
}
