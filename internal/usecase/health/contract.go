package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// SparseChecker reports the size of the loaded keyword index. Zero means
// search is serving in dense-only mode.
type SparseChecker interface {
	Len() int
}
