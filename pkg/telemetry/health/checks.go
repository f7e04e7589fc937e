package health

import (
	"context"
	"fmt"
)

// Pinger is implemented by storage backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StorageCheck reports whether the audit storage answers a ping.
func StorageCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("storage unreachable: %w", err)
		}
		return nil
	}
}

// QueueCheck reports the dispatcher as unhealthy while its queue is full,
// since new audit records are being dropped.
func QueueCheck(depth func() int, capacity int) CheckFunc {
	return func(ctx context.Context) error {
		if d := depth(); capacity > 0 && d >= capacity {
			return fmt.Errorf("dispatch queue full (%d/%d)", d, capacity)
		}
		return nil
	}
}
