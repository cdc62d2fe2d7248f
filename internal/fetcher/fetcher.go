// Package fetcher resolves a dataset input argument to a local file.
// Local paths pass through; http(s) and ftp URLs download into a work
// directory, and zip archives are extracted with the dataset inside
// located by extension.
package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Options configures the download client.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  rate.Limit // requests per second
	Burst      int
}

// Client resolves dataset inputs, downloading over HTTP or FTP when needed.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	opts    Options
}

// NewClient creates a Client with the given options.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "site-analysis-cli/1.0"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(opts.RateLimit, opts.Burst),
		opts:    opts,
	}
}

// Resolve returns a local path for input. Remote inputs download into
// destDir; zip archives are extracted there as well.
func (c *Client) Resolve(ctx context.Context, input, destDir string) (string, error) {
	var local string
	switch {
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		p, err := c.downloadHTTP(ctx, input, destDir)
		if err != nil {
			return "", err
		}
		local = p
	case strings.HasPrefix(input, "ftp://"):
		p, err := c.downloadFTP(ctx, input, destDir)
		if err != nil {
			return "", err
		}
		local = p
	default:
		if _, err := os.Stat(input); err != nil {
			return "", eris.Wrapf(err, "fetcher: input %s", input)
		}
		local = input
	}

	if strings.EqualFold(filepath.Ext(local), ".zip") {
		return extractDataset(local, destDir)
	}
	return local, nil
}

// destName picks a local file name for a URL, falling back when the URL
// path carries none.
func destName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return "download"
	}
	return base
}
