// Package loader fetches specification text from files and URLs and probes
// hosts for published specifications.
package loader

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInputTooLarge indicates a document larger than the configured cap.
	ErrInputTooLarge = errors.New("specification exceeds the maximum input size")

	// ErrNotUTF8 indicates a document that is not valid UTF-8 text.
	ErrNotUTF8 = errors.New("specification is not valid UTF-8")
)

// DefaultMaxBytes caps documents when no limit is configured
const DefaultMaxBytes int64 = 10 << 20

// Options tune a Loader
type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	// Insecure skips TLS certificate verification
	Insecure bool
}

// Loader reads specification documents
type Loader struct {
	logger   *logrus.Logger
	client   *http.Client
	maxBytes int64
}

// New creates a new Loader instance
func New(logger *logrus.Logger, opts Options) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Loader{
		logger: logger,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		maxBytes: opts.MaxBytes,
	}
}

// IsURL reports whether source names an http(s) resource
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load returns the text of the document at source, a file path or URL
func (l *Loader) Load(ctx context.Context, source string) (string, error) {
	var (
		data []byte
		err  error
	)
	if IsURL(source) {
		data, err = l.fetch(ctx, source)
	} else {
		data, err = l.readFile(source)
	}
	if err != nil {
		return "", err
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: %w", source, ErrNotUTF8)
	}
	l.logger.Debugf("Loaded %d bytes from %s", len(data), source)
	return string(data), nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to read spec file: %s is a directory", path)
	}
	if info.Size() > l.maxBytes {
		return nil, fmt.Errorf("%s is %d bytes: %w", path, info.Size(), ErrInputTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	return data, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid spec URL: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml, application/xml, text/plain, */*")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spec: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch spec from %s: unexpected status %s", url, resp.Status)
	}

	// Read one byte past the cap to tell "exactly at" from "over"
	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read spec response: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%s: %w", url, ErrInputTooLarge)
	}
	return data, nil
}
