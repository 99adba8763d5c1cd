package health

import "context"

// DBPinger checks storage availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an optional dependency such as a data provider or the
// guideline interpreter.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
