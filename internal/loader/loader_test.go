package loader

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/propenster/rustysec/internal/dialect"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const openAPIDoc = `{"openapi": "3.0.0", "info": {"title": "t", "version": "1"}, "paths": {}}`

const wsdlDoc = `<definitions name="Quote" xmlns="http://schemas.xmlsoap.org/wsdl/"></definitions>`

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.json")
	require.NoError(t, os.WriteFile(path, []byte(openAPIDoc), 0o644))

	l := New(newTestLogger(), Options{})
	text, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, openAPIDoc, text)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.json")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat(" ", 64)), 0o644))
	binary := filepath.Join(dir, "binary.bin")
	require.NoError(t, os.WriteFile(binary, []byte{0xff, 0xfe, 0xfd}, 0o644))

	l := New(newTestLogger(), Options{MaxBytes: 32})

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing file", filepath.Join(dir, "nope.json"), os.ErrNotExist},
		{"too large", big, ErrInputTooLarge},
		{"not utf-8", binary, ErrNotUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(context.Background(), tt.path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	_, err := l.Load(context.Background(), dir)
	assert.Error(t, err)
}

func TestLoadURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/openapi.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(openAPIDoc))
		case "/big.json":
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	l := New(newTestLogger(), Options{MaxBytes: 90})

	text, err := l.Load(context.Background(), server.URL+"/openapi.json")
	require.NoError(t, err)
	assert.Equal(t, openAPIDoc, text)

	_, err = l.Load(context.Background(), server.URL+"/big.json")
	assert.True(t, errors.Is(err, ErrInputTooLarge))

	_, err = l.Load(context.Background(), server.URL+"/missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestLoadURLHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	l := New(newTestLogger(), Options{})
	_, err := l.Load(ctx, server.URL+"/slow.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestDiscover(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/" && r.URL.RawQuery == "wsdl":
			_, _ = w.Write([]byte(wsdlDoc))
		case r.URL.Path == "/":
			w.Header().Set("Server", "test-gateway")
			_, _ = w.Write([]byte("<html></html>"))
		case r.URL.Path == "/openapi.json":
			_, _ = w.Write([]byte(openAPIDoc))
		case r.URL.Path == "/swagger.yaml":
			_, _ = w.Write([]byte("swagger: \"2.0\"\ninfo:\n  title: t\n"))
		case r.URL.Path == "/api-docs":
			_, _ = w.Write([]byte("<html>not a spec</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	l := New(newTestLogger(), Options{})
	result, err := l.Discover(context.Background(), server.URL+"/some/page")
	require.NoError(t, err)

	assert.Equal(t, server.URL, result.BaseURL)
	assert.Equal(t, "test-gateway", result.Headers["Server"])
	assert.Equal(t, []Found{
		{URL: server.URL + "/?wsdl", Dialect: dialect.SoapWSDL.String()},
		{URL: server.URL + "/openapi.json", Dialect: dialect.OpenApiRest.String()},
		{URL: server.URL + "/swagger.yaml", Dialect: dialect.OpenApiRest.String()},
	}, result.Specs)
}

func TestDiscoverInvalidBase(t *testing.T) {
	l := New(newTestLogger(), Options{})
	_, err := l.Discover(context.Background(), "http://")
	assert.Error(t, err)
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		head string
		want dialect.SpecDialect
		ok   bool
	}{
		{"openapi json", openAPIDoc, dialect.OpenApiRest, true},
		{"truncated json", `{"openapi": "3.0.0", "paths": {"/a`, dialect.OpenApiRest, true},
		{"wsdl", wsdlDoc, dialect.SoapWSDL, true},
		{"html", "<html><body>hello</body></html>", dialect.Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := sniff(tt.head)
			assert.Equal(t, tt.want, d)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
