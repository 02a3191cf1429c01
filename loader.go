package codolio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxPageBytes caps the markup read in http render mode.
const maxPageBytes = 16 << 20

// driver is the part of browser automation a page load needs. Each driver
// owns one browser process; Close releases it and is safe to call twice.
type driver interface {
	// Navigate opens url and returns once the network has gone quiet.
	Navigate(ctx context.Context, url string) error
	// WaitForText blocks until text is rendered somewhere on the page.
	WaitForText(ctx context.Context, text string) error
	// HTML returns the current markup of the page.
	HTML(ctx context.Context) (string, error)
	Close() error
}

func (s *Scraper) loadPage(ctx context.Context, profileURL string) (string, error) {
	if s.mode == RenderHTTP {
		return s.fetchMarkup(ctx, profileURL)
	}
	return s.renderPage(ctx, profileURL)
}

// renderPage drives a fresh browser through navigation, the landmark wait and
// the settle pause. The browser is released on every return path.
func (s *Scraper) renderPage(ctx context.Context, profileURL string) (string, error) {
	launchStart := time.Now()
	d, err := s.launchFunc(ctx)
	if err != nil {
		return "", stepError("launch browser", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			s.logger.Warn("release browser", zap.Error(err))
		}
	}()
	launchDur := time.Since(launchStart)

	navStart := time.Now()
	navCtx, cancel := context.WithTimeout(ctx, s.navigationTimeout)
	err = d.Navigate(navCtx, profileURL)
	cancel()
	if err != nil {
		return "", stepError("navigate", err)
	}
	navDur := time.Since(navStart)

	landmarkStart := time.Now()
	landmarkCtx, cancel := context.WithTimeout(ctx, s.landmarkTimeout)
	err = d.WaitForText(landmarkCtx, Landmark)
	cancel()
	if err != nil {
		return "", stepError("wait for landmark", err)
	}
	landmarkDur := time.Since(landmarkStart)

	if err := sleepContext(ctx, s.settleDelay); err != nil {
		return "", stepError("settle", err)
	}

	markup, err := d.HTML(ctx)
	if err != nil {
		return "", stepError("read page", err)
	}

	s.logger.Debug("rendered page",
		zap.String("url", profileURL),
		zap.Duration("launch", launchDur),
		zap.Duration("navigate", navDur),
		zap.Duration("landmark", landmarkDur),
		zap.Int("bytes", len(markup)),
	)
	return markup, nil
}

// fetchMarkup is the http render mode: one GET bounded by the navigation
// timeout, then a check that the landmark is present in the raw markup.
func (s *Scraper) fetchMarkup(ctx context.Context, profileURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.navigationTimeout)
	defer cancel()

	resp, err := s.doRequest(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return "", stepError("fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", stepError("read body", err)
	}

	markup := string(body)
	if !strings.Contains(strings.ToLower(markup), strings.ToLower(Landmark)) {
		return "", fmt.Errorf("%w: %q absent from markup", ErrLandmarkMissing, Landmark)
	}
	return markup, nil
}

// stepError wraps err with the load step that produced it, tagging deadline
// failures with ErrTimeout.
func stepError(step string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%s: %w: %w", step, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", step, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
