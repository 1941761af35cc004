// Package assets makes sure the serialized model is present on local disk,
// downloading it once when it is not.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// DefaultMinSize separates a real model artifact from an error page or a
// truncated transfer.
const DefaultMinSize int64 = 10_000_000

const driveDownloadURL = "https://drive.usercontent.google.com/download"

var ErrAssetUnavailable = errors.New("model asset unavailable")

// Source locates the remote copy of the artifact. URL wins over DriveFileID.
type Source struct {
	URL         string
	DriveFileID string
}

// Locator returns the URL the artifact is fetched from.
func (s Source) Locator() (string, error) {
	if s.URL != "" {
		return s.URL, nil
	}
	if s.DriveFileID == "" {
		return "", errors.New("no remote source configured")
	}
	q := url.Values{}
	q.Set("id", s.DriveFileID)
	q.Set("export", "download")
	// skips the virus-scan interstitial served for large files
	q.Set("confirm", "t")
	return driveDownloadURL + "?" + q.Encode(), nil
}

type Fetcher struct {
	source  Source
	minSize int64
	client  *http.Client
	logger  *zap.Logger
}

type Option func(*Fetcher)

func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

func WithMinSize(n int64) Option {
	return func(f *Fetcher) { f.minSize = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

func NewFetcher(source Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:  source,
		minSize: DefaultMinSize,
		client:  &http.Client{Timeout: 30 * time.Minute},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// Ensure downloads the artifact to path unless a file already exists there.
// Every failure wraps ErrAssetUnavailable and leaves nothing at path.
func (f *Fetcher) Ensure(ctx context.Context, path string) error {
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrAssetUnavailable, path)
		}
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}

	locator, err := f.source.Locator()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}

	f.logger.Warn("Downloading model file (first run only)", zap.String("path", path), zap.String("source", locator))
	start := time.Now()
	n, err := f.download(ctx, locator, path)
	if err != nil {
		f.logger.Error("Model download failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}
	f.logger.Info("Model downloaded",
		zap.String("path", path),
		zap.Int64("bytes", n),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (f *Fetcher) download(ctx context.Context, locator, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.part")
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return n, err
	}
	if n <= f.minSize {
		return n, fmt.Errorf("downloaded file looks too small (%d bytes, need more than %d)", n, f.minSize)
	}
	if err := tmp.Close(); err != nil {
		return n, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, err
	}
	committed = true
	return n, nil
}
