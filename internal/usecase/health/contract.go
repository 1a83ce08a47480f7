package health

import "context"

// StorePinger checks key-value store availability. Stores without a real
// connection (memory, file) simply don't implement it.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// UpstreamChecker checks the upstream inventory service.
type UpstreamChecker interface {
	HealthCheck(ctx context.Context) error
}
