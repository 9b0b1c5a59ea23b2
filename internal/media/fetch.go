package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/clipscribe/clipscribe/internal/apperrors"
)

// Fetcher downloads remote source files to local temp storage.
type Fetcher struct {
	cfg    Config
	client *http.Client
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg Config) *Fetcher {
	cfg.ApplyDefaults()
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// Fetch downloads the URL to a temp file and returns its path and size.
// Downloads over the configured byte cap abort with a payload-too-large
// error. The caller owns the returned file.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, int64, error) {
	if IsYouTubeURL(rawURL) {
		return "", 0, apperrors.Validation("YouTube links cannot be fetched directly; upload the file instead")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, apperrors.Validation(fmt.Sprintf("invalid source URL: %v", err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, apperrors.ExternalServiceError("fetch source", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, apperrors.ExternalServiceError("fetch source",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if resp.ContentLength > 0 && resp.ContentLength > f.cfg.MaxFetchBytes {
		return "", 0, apperrors.PayloadTooLarge(resp.ContentLength, f.cfg.MaxFetchBytes)
	}

	dir := f.cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "source-"+uuid.NewString())
	out, err := os.Create(path)
	if err != nil {
		return "", 0, apperrors.Internal("create temp file", err)
	}

	written, err := io.Copy(out, io.LimitReader(resp.Body, f.cfg.MaxFetchBytes+1))
	closeErr := out.Close()
	if err != nil {
		os.Remove(path)
		return "", 0, apperrors.ExternalServiceError("fetch source", err)
	}
	if closeErr != nil {
		os.Remove(path)
		return "", 0, apperrors.Internal("write temp file", closeErr)
	}
	if written > f.cfg.MaxFetchBytes {
		os.Remove(path)
		return "", 0, apperrors.PayloadTooLarge(written, f.cfg.MaxFetchBytes)
	}
	return path, written, nil
}

// IsYouTubeURL reports whether the URL points at YouTube. Such links need
// a downloader rather than a plain HTTP fetch.
func IsYouTubeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	return host == "youtube.com" || host == "youtu.be" || host == "m.youtube.com"
}

// EstimateDurationSeconds derives a rough duration from file size. The
// entitlement check needs an estimate before any transcription happens;
// compressed video runs about one megabyte per minute of speech.
func EstimateDurationSeconds(sizeBytes int64) float64 {
	const bytesPerMinute = 1 << 20
	minutes := float64(sizeBytes) / bytesPerMinute
	return minutes * 60
}
