// Package handler serves the movie collection pages over fiber.
//
// Every request gets its own unit of work from the factory passed to
// NewHTTPHandler. Pages are rendered from templates embedded in the binary.
package handler
