//go:build !unittest

package codolio

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// requestIdle is how long the network must stay quiet before navigation
// counts as finished.
const requestIdle = 500 * time.Millisecond

// rodDriver is a single headless Chrome with one stealth page.
type rodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter

	closeOnce sync.Once
	closeErr  error
}

// launchBrowser starts a headless Chrome for one page load.
func (s *Scraper) launchBrowser(ctx context.Context) (driver, error) {
	l := launcher.New().Headless(true).NoSandbox(s.noSandbox)
	if s.proxy != "" {
		l = l.Proxy(s.proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	d := &rodDriver{launcher: l, browser: browser}

	page, err := stealth.Page(browser)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("create stealth page: %w", err)
	}
	d.page = page

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.userAgent}); err != nil {
		d.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	if s.blockResources {
		d.setupResourceBlocking()
	}
	if err := ctx.Err(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// setupResourceBlocking fails image, font and media requests; the stats are
// plain text and never need them.
func (d *rodDriver) setupResourceBlocking() {
	router := d.page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		switch h.Request.Type() {
		case proto.NetworkResourceTypeImage, proto.NetworkResourceTypeFont, proto.NetworkResourceTypeMedia:
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	d.router = router
}

func (d *rodDriver) Navigate(ctx context.Context, url string) error {
	page := d.page.Context(ctx)
	wait := page.WaitRequestIdle(requestIdle, nil, nil, nil)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	wait()
	return ctx.Err()
}

func (d *rodDriver) WaitForText(ctx context.Context, text string) error {
	if _, err := d.page.Context(ctx).ElementR("body", "/"+regexp.QuoteMeta(text)+"/i"); err != nil {
		return fmt.Errorf("wait for %q: %w", text, err)
	}
	return nil
}

func (d *rodDriver) HTML(ctx context.Context) (string, error) {
	res, err := d.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("read outer html: %w", err)
	}
	return res.Value.Str(), nil
}

// Close stops request hijacking, closes the browser and kills its process.
// Only the first call does any work.
func (d *rodDriver) Close() error {
	d.closeOnce.Do(func() {
		if d.router != nil {
			_ = d.router.Stop()
		}
		if err := d.browser.Close(); err != nil {
			d.closeErr = fmt.Errorf("close browser: %w", err)
		}
		d.launcher.Kill()
		d.launcher.Cleanup()
	})
	return d.closeErr
}
