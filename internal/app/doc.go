// Package app provides application initialization and lifecycle management.
//
// The App type loads configuration, opens the configured storage backend,
// builds the HTTP server with a unit of work per request and shuts
// everything down gracefully on SIGINT or SIGTERM.
package app
