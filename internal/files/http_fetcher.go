package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// TransportError is any failure to obtain bytes from a remote URL:
// connection errors, timeouts, non-200 responses and oversize bodies.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

var errTooLarge = errors.New("response body too large")

type httpFetcher struct {
	client   *http.Client
	maxBytes int64
	logger   zerolog.Logger
}

func NewHTTPFetcher(client *http.Client, maxBytes int64, logger zerolog.Logger) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpFetcher{
		client:   client,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "fetcher").Logger(),
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := readAllWithLimit(resp.Body, f.maxBytes)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	f.logger.Debug().Str("url", url).Int("bytes", len(data)).Msg("source fetched")
	return data, nil
}

func readAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	lr := &io.LimitedReader{R: r, N: limit + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit %d bytes", errTooLarge, limit)
	}
	return data, nil
}
