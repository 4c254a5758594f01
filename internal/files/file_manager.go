package files

import (
	"context"
	"time"
)

// Fetcher is the network collaborator used for URL sources.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}
