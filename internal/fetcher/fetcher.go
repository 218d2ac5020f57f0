// Package fetcher downloads ledger export files from remote sources. State
// bureaus distribute SPED exports over plain HTTP listings and legacy FTP
// servers, frequently zipped.
package fetcher

import (
	"context"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote ledger files.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Options configures a fetcher regardless of scheme.
type Options struct {
	TimeoutSecs   int
	RatePerSecond float64
	UserAgent     string
}

// ForURL picks a fetcher implementation by URL scheme.
func ForURL(rawURL string, opts Options) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	switch u.Scheme {
	case "ftp":
		return NewFTPFetcher(opts), nil
	case "http", "https":
		return NewHTTPFetcher(opts), nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
