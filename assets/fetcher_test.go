package assets

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssetServer(t *testing.T, status int, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestEnsureDownloadsOnce(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 512)
	srv, hits := newAssetServer(t, http.StatusOK, payload)
	path := filepath.Join(t.TempDir(), "models", "model.json")

	f := NewFetcher(Source{URL: srv.URL}, WithMinSize(100), WithHTTPClient(srv.Client()))
	require.NoError(t, f.Ensure(context.Background(), path))
	require.NoError(t, f.Ensure(context.Background(), path))

	assert.Equal(t, int32(1), hits.Load())
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestEnsureExistingFileMakesNoRequest(t *testing.T) {
	srv, hits := newAssetServer(t, http.StatusOK, nil)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	f := NewFetcher(Source{URL: srv.URL}, WithHTTPClient(srv.Client()))
	require.NoError(t, f.Ensure(context.Background(), path))
	assert.Zero(t, hits.Load())
}

func TestEnsureRejectsSmallDownload(t *testing.T) {
	srv, _ := newAssetServer(t, http.StatusOK, []byte("<html>quota exceeded</html>"))
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	f := NewFetcher(Source{URL: srv.URL}, WithMinSize(1024), WithHTTPClient(srv.Client()))
	err := f.Ensure(context.Background(), path)
	require.ErrorIs(t, err, ErrAssetUnavailable)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "truncated artifact must not be left behind")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary file must be removed")
}

func TestEnsureRejectsExactThreshold(t *testing.T) {
	srv, _ := newAssetServer(t, http.StatusOK, bytes.Repeat([]byte("x"), 100))
	f := NewFetcher(Source{URL: srv.URL}, WithMinSize(100), WithHTTPClient(srv.Client()))
	err := f.Ensure(context.Background(), filepath.Join(t.TempDir(), "model.json"))
	assert.ErrorIs(t, err, ErrAssetUnavailable)
}

func TestEnsureHTTPError(t *testing.T) {
	srv, _ := newAssetServer(t, http.StatusNotFound, bytes.Repeat([]byte("x"), 4096))
	f := NewFetcher(Source{URL: srv.URL}, WithMinSize(10), WithHTTPClient(srv.Client()))
	err := f.Ensure(context.Background(), filepath.Join(t.TempDir(), "model.json"))
	assert.ErrorIs(t, err, ErrAssetUnavailable)
}

func TestEnsureWithoutSource(t *testing.T) {
	f := NewFetcher(Source{})
	err := f.Ensure(context.Background(), filepath.Join(t.TempDir(), "model.json"))
	assert.ErrorIs(t, err, ErrAssetUnavailable)
}

func TestEnsureCancelledContext(t *testing.T) {
	srv, _ := newAssetServer(t, http.StatusOK, bytes.Repeat([]byte("x"), 512))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(Source{URL: srv.URL}, WithMinSize(10), WithHTTPClient(srv.Client()))
	err := f.Ensure(ctx, filepath.Join(t.TempDir(), "model.json"))
	assert.ErrorIs(t, err, ErrAssetUnavailable)
}

func TestDriveLocator(t *testing.T) {
	locator, err := Source{DriveFileID: "abc123"}.Locator()
	require.NoError(t, err)

	u, err := url.Parse(locator)
	require.NoError(t, err)
	assert.Equal(t, "drive.usercontent.google.com", u.Host)
	assert.Equal(t, "abc123", u.Query().Get("id"))
	assert.Equal(t, "t", u.Query().Get("confirm"))

	locator, err = Source{URL: "http://example.com/m.json", DriveFileID: "abc123"}.Locator()
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/m.json", locator)
}
