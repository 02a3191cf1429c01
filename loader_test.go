package codolio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fakeDriver scripts the browser steps of a page load.
type fakeDriver struct {
	navigate func(ctx context.Context, url string) error
	wait     func(ctx context.Context, text string) error
	markup   string

	visited string
	closed  atomic.Int32
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.visited = url
	if d.navigate != nil {
		return d.navigate(ctx, url)
	}
	return nil
}

func (d *fakeDriver) WaitForText(ctx context.Context, text string) error {
	if d.wait != nil {
		return d.wait(ctx, text)
	}
	return nil
}

func (d *fakeDriver) HTML(context.Context) (string, error) {
	return d.markup, nil
}

func (d *fakeDriver) Close() error {
	d.closed.Add(1)
	return nil
}

// blockUntilDone simulates a browser wait that never succeeds.
func blockUntilDone(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func newDriverScraper(d *fakeDriver) *Scraper {
	s := New().WithSettleDelay(0)
	s.launchFunc = func(context.Context) (driver, error) { return d, nil }
	return s
}

// ---------------------------------------------------------------------------
// Browser render mode
// ---------------------------------------------------------------------------

func TestRenderPage_Success(t *testing.T) {
	t.Parallel()
	d := &fakeDriver{markup: `<div class="MuiCard-root"><span>Total Questions</span><span>500</span></div>`}
	s := newDriverScraper(d)

	p, err := s.FetchProfile(testContext(t), "SambhavSurthi")
	require.NoError(t, err)

	assert.Equal(t, "500", p.BasicStats["total_questions"])
	assert.Equal(t, "https://codolio.com/profile/SambhavSurthi/problemSolving", d.visited)
	assert.EqualValues(t, 1, d.closed.Load())
}

func TestRenderPage_LandmarkTimeout(t *testing.T) {
	t.Parallel()
	d := &fakeDriver{wait: blockUntilDone}
	s := newDriverScraper(d).WithLandmarkTimeout(20 * time.Millisecond)

	_, err := s.FetchProfile(testContext(t), "someone")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, d.closed.Load(), "browser must be released exactly once")
}

func TestRenderPage_NavigationTimeout(t *testing.T) {
	t.Parallel()
	d := &fakeDriver{navigate: func(ctx context.Context, _ string) error { return blockUntilDone(ctx, "") }}
	s := newDriverScraper(d).WithNavigationTimeout(20 * time.Millisecond)

	_, err := s.FetchProfile(testContext(t), "someone")

	assert.ErrorIs(t, err, ErrTimeout)
	assert.EqualValues(t, 1, d.closed.Load())
}

func TestRenderPage_NavigationFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("net::ERR_NAME_NOT_RESOLVED")
	d := &fakeDriver{navigate: func(context.Context, string) error { return boom }}
	s := newDriverScraper(d)

	_, err := s.FetchProfile(testContext(t), "someone")

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.EqualValues(t, 1, d.closed.Load())
}

func TestRenderPage_LaunchFailure(t *testing.T) {
	t.Parallel()
	s := New()
	s.launchFunc = func(context.Context) (driver, error) {
		return nil, ErrBrowserNotReady
	}

	_, err := s.FetchProfile(testContext(t), "someone")

	assert.ErrorIs(t, err, ErrBrowserNotReady)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestRenderPage_LaunchDeadline(t *testing.T) {
	t.Parallel()
	s := New()
	s.launchFunc = func(context.Context) (driver, error) {
		return nil, context.DeadlineExceeded
	}

	_, err := s.FetchProfile(testContext(t), "someone")

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRenderPage_CanceledDuringSettle(t *testing.T) {
	t.Parallel()
	d := &fakeDriver{markup: "<p>Total Questions</p>"}
	s := newDriverScraper(d).WithSettleDelay(time.Minute)

	ctx, cancel := context.WithCancel(testContext(t))
	d.wait = func(context.Context, string) error {
		cancel()
		return nil
	}

	_, err := s.FetchProfile(ctx, "someone")

	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, d.closed.Load())
}

func TestRenderPage_WaitsForLandmark(t *testing.T) {
	t.Parallel()
	var waited string
	d := &fakeDriver{
		markup: "<p>Total Questions</p>",
		wait: func(_ context.Context, text string) error {
			waited = text
			return nil
		},
	}
	_, err := newDriverScraper(d).FetchProfile(testContext(t), "someone")
	require.NoError(t, err)
	assert.Equal(t, Landmark, waited)
}

// ---------------------------------------------------------------------------
// HTTP render mode
// ---------------------------------------------------------------------------

func TestFetchMarkup_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profile/a%20b/problemSolving", r.URL.EscapedPath())
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(`<div><span>Total Questions</span> <span>77</span></div>`))
	}))
	defer srv.Close()

	s := New().WithRenderMode(RenderHTTP).WithBaseURL(srv.URL + "/")
	p, err := s.FetchProfile(testContext(t), "a b")
	require.NoError(t, err)
	assert.Equal(t, "77", p.BasicStats["total_questions"])
}

func TestFetchMarkup_LandmarkMissing(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<div id="root"></div>`))
	}))
	defer srv.Close()

	s := New().WithRenderMode(RenderHTTP).WithBaseURL(srv.URL)
	_, err := s.FetchProfile(testContext(t), "someone")
	assert.ErrorIs(t, err, ErrLandmarkMissing)
}

func TestFetchMarkup_StatusErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			s := New().WithRenderMode(RenderHTTP).WithBaseURL(srv.URL)
			_, err := s.FetchProfile(testContext(t), "someone")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchMarkup_ServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("Total Questions"))
	}))
	defer srv.Close()

	s := New().WithRenderMode(RenderHTTP).WithBaseURL(srv.URL)
	_, err := s.FetchProfile(testContext(t), "someone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestFetchMarkup_Timeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s := New().WithRenderMode(RenderHTTP).WithBaseURL(srv.URL).WithNavigationTimeout(30 * time.Millisecond)
	_, err := s.FetchProfile(testContext(t), "someone")
	assert.ErrorIs(t, err, ErrTimeout)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestStepError(t *testing.T) {
	t.Parallel()
	err := stepError("navigate", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	plain := errors.New("boom")
	err = stepError("navigate", plain)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, "navigate: boom", err.Error())
}

func TestSleepContext(t *testing.T) {
	t.Parallel()
	require.NoError(t, sleepContext(testContext(t), 0))
	require.NoError(t, sleepContext(testContext(t), time.Millisecond))

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
