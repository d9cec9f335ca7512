// Package repository provides the generic repository and the unit of work
// used by the handlers and the operator CLI.
//
// Repositories only stage changes on a shared storage.Context; nothing is
// written until UnitOfWork.Save commits the context in one transaction.
package repository
