package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

const pingTimeout = 5 * time.Second

// PostgreSQL error codes mapped to domain.ErrConstraint.
const (
	pgUniqueViolation  = "23505"
	pgCheckViolation   = "23514"
	pgNotNullViolation = "23502"
)

type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnIdleTime time.Duration
}

// PostgresBackend stores Columnar records in PostgreSQL, one table per
// record type.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresBackend, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

// Migrate creates the tables used by the domain records if they are missing.
func (p *PostgresBackend) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Get(ctx context.Context, key int64, dst Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec, err := columnar(dst)
	if err != nil {
		return err
	}
	err = p.pool.QueryRow(ctx, selectSQL(rec), key).Scan(rec.ScanTargets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("getting %s %d: %w", rec.Table(), key, err)
	}
	return nil
}

func (p *PostgresBackend) All(ctx context.Context, newRecord func() Record) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proto, err := columnar(newRecord())
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, allSQL(proto))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", proto.Table(), err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := columnar(newRecord())
		if err != nil {
			return nil, err
		}
		if err := rows.Scan(rec.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", rec.Table(), err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", proto.Table(), err)
	}
	return records, nil
}

func (p *PostgresBackend) Commit(ctx context.Context, changes []Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ch := range changes {
		if err := applyChange(ctx, tx, ch); err != nil {
			return mapPgError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", mapPgError(err))
	}
	return nil
}

func applyChange(ctx context.Context, tx pgx.Tx, ch Change) error {
	rec, err := columnar(ch.Record)
	if err != nil {
		return err
	}

	switch ch.State {
	case Added:
		var key int64
		if err := tx.QueryRow(ctx, insertSQL(rec), rec.Values()...).Scan(&key); err != nil {
			return fmt.Errorf("inserting %s: %w", rec.Table(), err)
		}
		rec.SetKey(key)
	case Modified:
		args := append(rec.Values(), rec.Key())
		tag, err := tx.Exec(ctx, updateSQL(rec), args...)
		if err != nil {
			return fmt.Errorf("updating %s %d: %w", rec.Table(), rec.Key(), err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%s %d: %w", rec.Table(), rec.Key(), domain.ErrNotFound)
		}
	case Deleted:
		tag, err := tx.Exec(ctx, deleteSQL(rec), rec.Key())
		if err != nil {
			return fmt.Errorf("deleting %s %d: %w", rec.Table(), rec.Key(), err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%s %d: %w", rec.Table(), rec.Key(), domain.ErrNotFound)
		}
	default:
		return fmt.Errorf("cannot commit %s record in state %s", rec.Table(), ch.State)
	}
	return nil
}

func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}

func columnar(rec Record) (Columnar, error) {
	c, ok := rec.(Columnar)
	if !ok {
		return nil, fmt.Errorf("record type %T does not describe its columns", rec)
	}
	return c, nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgCheckViolation, pgNotNullViolation:
			return fmt.Errorf("%w: %s", domain.ErrConstraint, pgErr.Message)
		}
	}
	return err
}

func selectSQL(rec Columnar) string {
	return fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = $1",
		rec.KeyColumn(), strings.Join(rec.Columns(), ", "), rec.Table(), rec.KeyColumn())
}

func allSQL(rec Columnar) string {
	return fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s",
		rec.KeyColumn(), strings.Join(rec.Columns(), ", "), rec.Table(), rec.KeyColumn())
}

func insertSQL(rec Columnar) string {
	cols := rec.Columns()
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		rec.Table(), strings.Join(cols, ", "), placeholders(1, len(cols)), rec.KeyColumn())
}

func updateSQL(rec Columnar) string {
	cols := rec.Columns()
	set := make([]string, len(cols))
	for i, col := range cols {
		set[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		rec.Table(), strings.Join(set, ", "), rec.KeyColumn(), len(cols)+1)
}

func deleteSQL(rec Columnar) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", rec.Table(), rec.KeyColumn())
}

func placeholders(start, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ps, ", ")
}
