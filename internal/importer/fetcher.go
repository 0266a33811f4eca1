package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"market-service/internal/apperr"
	"market-service/internal/util"

	"go.uber.org/zap"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxImageBytes    = 10 << 20
)

// Fetcher wraps the outbound HTTP client with browser-like headers and
// linear-backoff retries for transient failures.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewFetcher creates a fetcher with the given timeout per request.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: util.GetLogger(),
	}
}

func browserHeaders(req *http.Request, referer string) {
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
}

// attemptWithRetry runs fn up to retries+1 times with linearly growing delay
// between attempts.
func attemptWithRetry(ctx context.Context, retries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i <= retries; i++ {
		if err := fn(); err != nil {
			lastErr = err
			if i < retries {
				select {
				case <-time.After(baseDelay * time.Duration(i+1)):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue
		}
		return nil
	}
	return lastErr
}

// FetchPage downloads a listing page. Any upstream status >= 400 is reported
// as UpstreamFetch so the caller can suggest pasting the HTML manually.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL, referer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", apperr.Validation("invalid URL")
	}
	browserHeaders(req, referer)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstreamFetch, "network error reaching marketplace", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", apperr.New(apperr.KindUpstreamFetch,
			fmt.Sprintf("marketplace responded with status %d, possibly bot protection", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstreamFetch, "failed to read marketplace response", err)
	}
	return string(body), nil
}

func isTransientStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout || status == http.StatusTooEarly ||
		status == http.StatusLocked
}

// FetchImage downloads a candidate's image, retrying transient statuses.
// Returns the bytes and the file extension derived from Content-Type.
func (f *Fetcher) FetchImage(ctx context.Context, imageURL, referer string) ([]byte, string, error) {
	var buf []byte
	var contentType string

	err := attemptWithRetry(ctx, 2, 700*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
		if err != nil {
			return err
		}
		browserHeaders(req, referer)
		req.Header.Set("Accept", "image/avif,image/webp,image/*,*/*;q=0.8")

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("image status %d", resp.StatusCode)
			if !isTransientStatus(resp.StatusCode) {
				// still an error, just not worth retrying
				buf = nil
			}
			return err
		}

		buf, err = io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
		if err != nil {
			return err
		}
		contentType = resp.Header.Get("Content-Type")
		return nil
	})
	if err != nil {
		f.logger.Warn("Image download failed",
			zap.String("url", imageURL),
			zap.Error(err))
		return nil, "", err
	}

	return buf, extFromContentType(contentType), nil
}

func extFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "webp"):
		return ".webp"
	case strings.Contains(ct, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}
