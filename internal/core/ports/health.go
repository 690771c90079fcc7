package ports

import "context"

// HealthChecker probes one dependency of the verification flow (user
// database, token store, welcome dispatcher). Name is the key reported by
// /health; Check returns nil when the dependency can serve requests.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
