package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/propenster/rustysec/internal/dialect"
)

// Common paths where API specs might be found
var commonSpecPaths = []string{
	// Swagger paths
	"/swagger.json",
	"/swagger.yaml",
	"/swagger.yml",
	"/swagger/v1/swagger.json",
	"/swagger/v2/swagger.json",
	"/api/swagger.json",
	"/api/swagger.yaml",
	"/api/v1/swagger.json",
	"/docs/swagger.json",

	// OpenAPI paths
	"/openapi",
	"/openapi.json",
	"/openapi.yaml",
	"/openapi.yml",
	"/api/openapi.json",
	"/api/openapi.yaml",
	"/v1/openapi.json",
	"/v2/openapi.json",
	"/v3/api-docs",
	"/v2/api-docs",
	"/api-docs",
	"/api/spec",

	// WSDL paths
	"/?wsdl",
	"/service?wsdl",
	"/services?wsdl",
	"/ws?wsdl",
	"/soap?wsdl",
	"/service.wsdl",
}

// Headers worth reporting about the host
var relevantHeaders = []string{
	"Server",
	"X-Powered-By",
	"X-API-Version",
	"X-API-Gateway",
}

// sniffBytes is how much of each candidate is read to classify it
const sniffBytes = 1024

// Found is one specification document located on a host
type Found struct {
	URL     string `json:"url"`
	Dialect string `json:"dialect"`
}

// DiscoveryResult represents the result of spec discovery
type DiscoveryResult struct {
	BaseURL string            `json:"base_url"`
	Specs   []Found           `json:"specs"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Discover probes the well-known spec locations of a host concurrently
func (l *Loader) Discover(ctx context.Context, baseURL string) (*DiscoveryResult, error) {
	l.logger.Infof("Starting spec discovery for: %s", baseURL)

	// Ensure baseURL has a protocol
	if !IsURL(baseURL) {
		baseURL = "https://" + baseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	baseURL = parsed.Scheme + "://" + parsed.Host

	result := &DiscoveryResult{
		BaseURL: baseURL,
		Specs:   make([]Found, 0),
		Headers: l.serverHeaders(ctx, baseURL),
	}

	var wg sync.WaitGroup
	var mutex sync.Mutex
	for _, path := range commonSpecPaths {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			specURL := baseURL + p
			d, ok := l.probe(ctx, specURL)
			if !ok {
				return
			}
			l.logger.Infof("Found %s specification at: %s", d, specURL)
			mutex.Lock()
			result.Specs = append(result.Specs, Found{URL: specURL, Dialect: d.String()})
			mutex.Unlock()
		}(path)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(result.Specs, func(a, b Found) int {
		return strings.Compare(a.URL, b.URL)
	})
	l.logger.Infof("Discovery completed. Found %d spec(s)", len(result.Specs))
	return result, nil
}

// serverHeaders collects identifying headers from the host root
func (l *Loader) serverHeaders(ctx context.Context, baseURL string) map[string]string {
	headers := make(map[string]string)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return headers
	}
	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Debugf("Header probe failed: %v", err)
		return headers
	}
	defer resp.Body.Close()

	for _, header := range relevantHeaders {
		if value := resp.Header.Get(header); value != "" {
			headers[header] = value
		}
	}
	return headers
}

// probe fetches the head of a candidate and classifies it
func (l *Loader) probe(ctx context.Context, specURL string) (dialect.SpecDialect, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, specURL, nil)
	if err != nil {
		return dialect.Unknown, false
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return dialect.Unknown, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dialect.Unknown, false
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, sniffBytes))
	if err != nil {
		return dialect.Unknown, false
	}
	return sniff(string(content))
}

// sniff classifies the head of a document. The head is usually truncated, so
// key indicators are used for OpenAPI instead of a full parse.
func sniff(head string) (dialect.SpecDialect, bool) {
	if d := dialect.Detect(head); d != dialect.Unknown {
		return d, true
	}

	indicators := []string{
		`"swagger":`, `"openapi":`,
		"swagger:", "openapi:",
	}
	for _, indicator := range indicators {
		if strings.Contains(head, indicator) {
			return dialect.OpenApiRest, true
		}
	}
	return dialect.Unknown, false
}
