// Package collyfetcher implements the page Fetcher and website prober using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/seo"
)

// DefaultUserAgent mimics a desktop browser; many small hotel sites block
// unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	ProbeTimeout time.Duration
	MaxBodyBytes int
}

// Fetcher retrieves pages with a GET and probes websites with a HEAD. Both
// follow redirects and never retry.
type Fetcher struct {
	cfg   Config
	fetch *colly.Collector
	probe *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Fetch and Probe get their own collectors because the
// request timeout lives on the shared HTTP backend of a collector.
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	transport := newHTTPTransport()
	return &Fetcher{
		cfg:   cfg,
		fetch: newCollector(cfg, transport, cfg.Timeout),
		probe: newCollector(cfg, transport, cfg.ProbeTimeout),
	}
}

func newCollector(cfg Config, transport http.RoundTripper, timeout time.Duration) *colly.Collector {
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(transport)
	c.SetRequestTimeout(timeout)
	c.UserAgent = cfg.UserAgent
	c.MaxBodySize = cfg.MaxBodyBytes
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true
	return c
}

// Fetch executes a single HTTP GET and returns the document served after
// redirects. Statuses of 400 and above are returned as *scanner.HTTPStatusError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (seo.Document, error) {
	var (
		doc      seo.Document
		fetchErr error
	)
	collector := f.fetch.Clone()
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	f.configureHooks(collector, func(r *colly.Response) {
		if r.StatusCode >= http.StatusBadRequest {
			fetchErr = &scanner.HTTPStatusError{StatusCode: r.StatusCode}
			return
		}
		doc = seo.Document{
			RequestURL: url,
			FinalURL:   r.Request.URL.String(),
			Scheme:     r.Request.URL.Scheme,
			Body:       append([]byte(nil), r.Body...),
		}
	}, &fetchErr)

	if err := runCollector(ctx, func() error { return collector.Visit(url) }, &fetchErr); err != nil {
		return seo.Document{}, err
	}
	return doc, nil
}

// Probe issues a HEAD request and reports whether the final response status
// is 200.
func (f *Fetcher) Probe(ctx context.Context, url string) (bool, error) {
	var (
		status   int
		probeErr error
	)
	collector := f.probe.Clone()
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	f.configureHooks(collector, func(r *colly.Response) {
		status = r.StatusCode
	}, &probeErr)

	if err := runCollector(ctx, func() error { return collector.Head(url) }, &probeErr); err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

func (f *Fetcher) configureHooks(hooks collectorHooks, onResponse colly.ResponseCallback, fetchErr *error) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "nb-NO,nb;q=0.9,no;q=0.8,en;q=0.6")
	})
	hooks.OnResponse(onResponse)
	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func runCollector(ctx context.Context, visit func() error, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- visit()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
