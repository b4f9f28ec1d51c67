package infrastructure

import "context"

// Server is anything the App supervises: transport servers and workers.
// Start blocks until the server exits; Stop requests a graceful shutdown.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
