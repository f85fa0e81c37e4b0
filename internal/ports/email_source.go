// Package ports declares the boundary interfaces the wiring layer
// assembles adapters against.
package ports

// EmailSource is a running ingest surface that feeds messages into the
// analysis pool.
type EmailSource interface {
	// Start begins accepting messages and blocks until the source stops.
	Start() error
	// Stop shuts the source down and waits for in-flight work.
	Stop() error
}
