// Package fetcher downloads the reference files listed in agent configs.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"

	"github.com/lmspace/lmspace/pkg/logger"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultFilename = "download"
)

// DefaultGithubHosts are the host patterns that receive the GitHub token
var DefaultGithubHosts = []string{
	"github.com",
	"*.github.com",
	"*.githubusercontent.com",
}

// RetrievedFile is a downloaded file held in memory
type RetrievedFile struct {
	URL         string
	Filename    string
	ContentType string
	Data        []byte
}

// StatusError is returned when the server answers with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch %s: HTTP %d", e.URL, e.StatusCode)
}

// ContentFetcher downloads URLs over HTTP
type ContentFetcher struct {
	client      *http.Client
	githubToken string
	githubHosts []glob.Glob
}

// Option configures a ContentFetcher
type Option func(*ContentFetcher) error

// WithGithubToken sets the token sent to GitHub hosts
func WithGithubToken(token string) Option {
	return func(f *ContentFetcher) error {
		f.githubToken = token
		return nil
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(f *ContentFetcher) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		f.client = client
		return nil
	}
}

// WithGithubHosts replaces the host patterns that receive the GitHub token
func WithGithubHosts(patterns ...string) Option {
	return func(f *ContentFetcher) error {
		hosts, err := compileHosts(patterns)
		if err != nil {
			return err
		}
		f.githubHosts = hosts
		return nil
	}
}

// New creates a ContentFetcher
func New(opts ...Option) (*ContentFetcher, error) {
	hosts, err := compileHosts(DefaultGithubHosts)
	if err != nil {
		return nil, err
	}
	f := &ContentFetcher{
		client:      &http.Client{Timeout: defaultTimeout},
		githubHosts: hosts,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func compileHosts(patterns []string) ([]glob.Glob, error) {
	hosts := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid host pattern '%s'", pattern)
		}
		hosts = append(hosts, g)
	}
	return hosts, nil
}

// FetchMany downloads every URL in order and stops at the first failure
func (f *ContentFetcher) FetchMany(ctx context.Context, urls []string) ([]RetrievedFile, error) {
	files := make([]RetrievedFile, 0, len(urls))
	for _, rawURL := range urls {
		file, err := f.Fetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, nil
}

// Fetch downloads a single URL
func (f *ContentFetcher) Fetch(ctx context.Context, rawURL string) (*RetrievedFile, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid URL '%s'", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if f.githubToken != "" && f.isGithubHost(u.Hostname()) {
		req.Header.Set("Authorization", "token "+f.githubToken)
	}

	logger.G(ctx).WithField("url", rawURL).Debug("fetching file")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response from %s", rawURL)
	}

	return &RetrievedFile{
		URL:         rawURL,
		Filename:    filenameFor(u),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (f *ContentFetcher) isGithubHost(host string) bool {
	host = strings.ToLower(host)
	for _, g := range f.githubHosts {
		if g.Match(host) {
			return true
		}
	}
	return false
}

func filenameFor(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return defaultFilename
	}
	return name
}
