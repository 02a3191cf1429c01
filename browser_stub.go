//go:build unittest

package codolio

import (
	"context"
	"fmt"
)

func (s *Scraper) launchBrowser(ctx context.Context) (driver, error) {
	return nil, fmt.Errorf("browser: %w (build tag: unittest)", ErrBrowserNotReady)
}
