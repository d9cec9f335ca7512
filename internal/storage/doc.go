// Package storage tracks staged entity changes and persists them through a
// pluggable Backend.
//
// A Context is the change tracker shared by every repository of one unit of
// work. It keeps an identity map of loaded records, stages additions,
// modifications and removals in order, and hands them to the Backend as a
// single transaction on SaveChanges. BoltBackend (bolthold over bbolt) is the
// embedded default; PostgresBackend persists the same records through pgx.
package storage
