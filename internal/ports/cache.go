package ports

import (
	"context"
	"time"
)

// Cache defines a generic key-value capability for usecases. The engine
// only uses it best-effort (artifact state mirrors for queue views); a
// cache failure never fails an operation.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
