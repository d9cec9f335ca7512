// Package domain defines the movie collection's entities and the contracts
// of its data-access layer.
//
// Movie is the persisted entity and MovieForm its identity-less input shape;
// ToForm and ToMovie convert between the two. MovieRepository and UnitOfWork
// describe the repository operations available to request handlers. All
// operations touching storage accept a context for cancellation.
package domain
