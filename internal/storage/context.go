package storage

import (
	"context"
	"fmt"

	"github.com/amaumene/moviecollection/internal/domain"
)

type identity struct {
	table string
	key   int64
}

type entry struct {
	record Record
	state  State
}

// Context is a change tracker over a Backend. It is not safe for concurrent
// use; create one per request or CLI invocation.
type Context struct {
	backend Backend
	entries []*entry
	byKey   map[identity]*entry
}

func NewContext(backend Backend) *Context {
	return &Context{
		backend: backend,
		byKey:   make(map[identity]*entry),
	}
}

func identityOf(rec Record) identity {
	return identity{table: rec.Table(), key: rec.Key()}
}

func (c *Context) lookup(rec Record) *entry {
	for _, e := range c.entries {
		if e.record == rec {
			return e
		}
	}
	return nil
}

func (c *Context) track(rec Record, state State) *entry {
	e := &entry{record: rec, state: state}
	c.entries = append(c.entries, e)
	if state != Added {
		c.byKey[identityOf(rec)] = e
	}
	return e
}

func (c *Context) forget(e *entry) {
	for i, tracked := range c.entries {
		if tracked == e {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
	if e.state != Added {
		id := identityOf(e.record)
		if c.byKey[id] == e {
			delete(c.byKey, id)
		}
	}
}

// Add stages rec for insertion. Adding an already tracked record is a no-op.
func (c *Context) Add(rec Record) {
	if c.lookup(rec) != nil {
		return
	}
	c.track(rec, Added)
}

func (c *Context) AddRange(recs ...Record) {
	for _, rec := range recs {
		c.Add(rec)
	}
}

// Attach starts tracking rec as Unchanged. A different instance already
// tracked under the same key is replaced, unless that key is staged for
// deletion, in which case the record counts as missing.
func (c *Context) Attach(rec Record) error {
	if rec.Key() <= 0 {
		return fmt.Errorf("attaching %s record: %w", rec.Table(), domain.ErrNotFound)
	}
	if c.lookup(rec) != nil {
		return nil
	}
	if previous, ok := c.byKey[identityOf(rec)]; ok {
		if previous.state == Deleted {
			return fmt.Errorf("attaching %s record %d staged for deletion: %w", rec.Table(), rec.Key(), domain.ErrNotFound)
		}
		c.forget(previous)
	}
	c.track(rec, Unchanged)
	return nil
}

// State reports how rec is tracked; Detached when it is not.
func (c *Context) State(rec Record) State {
	if e := c.lookup(rec); e != nil {
		return e.state
	}
	return Detached
}

// SetState moves a tracked record to state. Setting Detached stops tracking it.
func (c *Context) SetState(rec Record, state State) error {
	e := c.lookup(rec)
	if e == nil {
		return fmt.Errorf("setting state of untracked %s record %d", rec.Table(), rec.Key())
	}
	if state == Detached {
		c.forget(e)
		return nil
	}
	if e.state == Added && state != Added {
		if rec.Key() <= 0 {
			return fmt.Errorf("record %s has no key to be %s", rec.Table(), state)
		}
		c.byKey[identityOf(rec)] = e
	}
	e.state = state
	return nil
}

// Remove stages rec for deletion. A record that was only staged for
// insertion is unstaged instead.
func (c *Context) Remove(rec Record) error {
	e := c.lookup(rec)
	if e == nil {
		return fmt.Errorf("removing untracked %s record %d", rec.Table(), rec.Key())
	}
	if e.state == Added {
		c.forget(e)
		return nil
	}
	e.state = Deleted
	return nil
}

// Find returns the record stored under key, preferring an instance already
// tracked by this context. It returns an error matching domain.ErrNotFound
// when the record does not exist or is staged for deletion.
func (c *Context) Find(ctx context.Context, key int64, newRecord func() Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := newRecord()
	if e, ok := c.byKey[identity{table: rec.Table(), key: key}]; ok {
		if e.state == Deleted {
			return nil, domain.ErrNotFound
		}
		return e.record, nil
	}
	if key <= 0 {
		return nil, domain.ErrNotFound
	}

	if err := c.backend.Get(ctx, key, rec); err != nil {
		return nil, err
	}
	rec.SetKey(key)
	c.track(rec, Unchanged)
	return rec, nil
}

// All returns every stored record of the type built by newRecord. Tracked
// instances replace their loaded copies and records staged for deletion are
// left out. Staged insertions are not included.
func (c *Context) All(ctx context.Context, newRecord func() Record) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loaded, err := c.backend.All(ctx, newRecord)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(loaded))
	for _, rec := range loaded {
		if e, ok := c.byKey[identityOf(rec)]; ok {
			if e.state == Deleted {
				continue
			}
			records = append(records, e.record)
			continue
		}
		c.track(rec, Unchanged)
		records = append(records, rec)
	}
	return records, nil
}

// Pending reports how many changes SaveChanges would send.
func (c *Context) Pending() int {
	n := 0
	for _, e := range c.entries {
		if e.state == Added || e.state == Modified || e.state == Deleted {
			n++
		}
	}
	return n
}

// SaveChanges commits every staged change in staging order as one backend
// transaction. On failure tracking is left as it was and keys assigned to
// added records are reset.
func (c *Context) SaveChanges(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var changes []Change
	for _, e := range c.entries {
		switch e.state {
		case Added, Modified, Deleted:
			changes = append(changes, Change{State: e.state, Record: e.record})
		}
	}
	if len(changes) == 0 {
		return nil
	}

	if err := c.backend.Commit(ctx, changes); err != nil {
		for _, ch := range changes {
			if ch.State == Added {
				ch.Record.SetKey(0)
			}
		}
		return fmt.Errorf("saving changes: %w", err)
	}

	kept := c.entries[:0]
	for _, e := range c.entries {
		switch e.state {
		case Deleted:
			id := identityOf(e.record)
			if c.byKey[id] == e {
				delete(c.byKey, id)
			}
			continue
		case Added:
			e.state = Unchanged
			c.byKey[identityOf(e.record)] = e
		case Modified:
			e.state = Unchanged
		}
		kept = append(kept, e)
	}
	c.entries = kept
	return nil
}
