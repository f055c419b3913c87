package shared

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies the bot to source sites with a contact
// address, so operators can reach us instead of blocking us.
const DefaultUserAgent = "UnlistedSharesBot/1.0 (+contact@unlistedhub.io)"

// PageFetcher retrieves the raw bytes of a source document. Implementations
// return an error for network failures, timeouts, and non-2xx responses.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// HTTPPageFetcher fetches documents over plain HTTP with connection pooling
// and politeness rate limiting shared across all sources.
type HTTPPageFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewHTTPPageFetcher creates an HTTP fetcher with the given per-request
// timeout and a politeness budget of requestsPerSecond.
func NewHTTPPageFetcher(timeout time.Duration, requestsPerSecond float64) *HTTPPageFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2.0
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,

			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return &HTTPPageFetcher{
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		userAgent: DefaultUserAgent,
	}
}

// FetchPage retrieves the document at url, waiting on the rate limiter
// first so consecutive tasks do not hammer the same site.
func (f *HTTPPageFetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, NewIngestError(ErrorCategoryFetch, "RATE_LIMIT_WAIT", "rate limit wait aborted", url, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewIngestError(ErrorCategoryFetch, "BAD_REQUEST", fmt.Sprintf("build request for %s", url), url, err)
	}
	request.Header.Set("User-Agent", f.userAgent)
	request.Header.Set("Accept", "text/html,application/xhtml+xml")
	request.Header.Set("Accept-Language", "en-US,en;q=0.9")

	response, err := f.client.Do(request)
	if err != nil {
		return nil, NewIngestError(ErrorCategoryFetch, "NETWORK_ERROR", fmt.Sprintf("fetch %s", url), url, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, NewIngestError(ErrorCategoryFetch, "HTTP_STATUS",
			fmt.Sprintf("unexpected status %d fetching %s", response.StatusCode, url), url, nil)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, NewIngestError(ErrorCategoryFetch, "READ_BODY", fmt.Sprintf("read body of %s", url), url, err)
	}

	logrus.WithFields(logrus.Fields{
		"component":   "HTTPPageFetcher",
		"url":         url,
		"status_code": response.StatusCode,
		"body_bytes":  len(body),
	}).Debug("Fetched source document")

	return body, nil
}

// RenderedPageFetcher fetches documents through headless Chrome for sources
// that build their listing pages with JavaScript.
type RenderedPageFetcher struct {
	timeout time.Duration
}

// NewRenderedPageFetcher creates a headless-browser fetcher. Rendering is
// slower than a plain GET, so the timeout is given some headroom.
func NewRenderedPageFetcher(timeout time.Duration) *RenderedPageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RenderedPageFetcher{timeout: timeout}
}

// FetchPage navigates to url in a fresh browser context and returns the
// rendered document.
func (f *RenderedPageFetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, f.timeout)
	defer cancelTimeout()

	browserCtx, cancelBrowser := chromedp.NewContext(timeoutCtx)
	defer cancelBrowser()

	var renderedHTML string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &renderedHTML),
	)
	if err != nil {
		return nil, NewIngestError(ErrorCategoryFetch, "RENDER_FAILED", fmt.Sprintf("render %s", url), url, err)
	}

	logrus.WithFields(logrus.Fields{
		"component":  "RenderedPageFetcher",
		"url":        url,
		"body_bytes": len(renderedHTML),
	}).Debug("Rendered source document")

	return []byte(renderedHTML), nil
}
