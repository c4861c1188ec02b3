package installer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/schollz/progressbar/v3"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "pour/1.0"
	// DefaultMaxDownloadSize caps archive downloads at 512 MiB
	DefaultMaxDownloadSize int64 = 512 << 20
)

// Fetcher downloads release artifacts over HTTP. It makes exactly one
// attempt per call.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxSize   int64
	progress  io.Writer
}

// NewFetcher creates a new fetcher. progress may be nil.
func NewFetcher(maxSize int64, progress io.Writer) *Fetcher {
	if maxSize <= 0 {
		maxSize = DefaultMaxDownloadSize
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// GitHub release downloads redirect to object storage.
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: DefaultUserAgent,
		maxSize:   maxSize,
		progress:  progress,
	}
}

// Fetch downloads url into memory.
//
// A 404 or 410 response returns ErrNotFound. Transport failures, other
// non-200 responses and oversized bodies return ErrNetwork. If ctx is
// cancelled the context error is returned.
func (f *Fetcher) Fetch(ctx context.Context, url, label string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: execute request: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s returned %s", ErrNotFound, url, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s returned %s", ErrNetwork, url, resp.Status)
	}

	if resp.ContentLength > f.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrNetwork, url, resp.ContentLength, f.maxSize)
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}

	var w io.Writer = &buf
	if f.progress != nil {
		bar := newProgressBar(f.progress, resp.ContentLength, label)
		defer bar.Close()
		w = io.MultiWriter(&buf, bar)
	}

	n, err := io.Copy(w, io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read response body: %w", ErrNetwork, err)
	}
	if n > f.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds download limit of %d bytes", ErrNetwork, url, f.maxSize)
	}

	return buf.Bytes(), nil
}

func newProgressBar(w io.Writer, total int64, label string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(20),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
}
