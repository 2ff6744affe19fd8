package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"relaypool/internal/domain/entity"
	"relaypool/internal/resilience/retry"
	"relaypool/internal/usecase/scrape"
)

// HTTPFetcher fetches targets over HTTP, optionally through a relay proxy.
// All requests share one pacing limiter regardless of route.
//
// Thread safety: HTTPFetcher is safe for concurrent use.
type HTTPFetcher struct {
	cfg     Config
	limiter *rate.Limiter
}

var _ scrape.Fetcher = (*HTTPFetcher)(nil)

// New creates an HTTPFetcher with the given configuration.
func New(cfg Config) *HTTPFetcher {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &HTTPFetcher{cfg: cfg, limiter: limiter}
}

// Fetch performs a GET against the target. A non-nil relay routes the request
// through that proxy; a nil relay goes out directly. Responses with an error
// status are returned as classified FetchErrors so the retry controller can
// decide whether to try again.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string, relay *entity.Relay) (*scrape.Result, error) {
	if err := validateURL(target, f.cfg.DenyPrivateIPs); err != nil {
		return nil, &retry.FetchError{Class: retry.ClassPermanent, Msg: err.Error()}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &retry.FetchError{Class: retry.ClassPermanent, Msg: err.Error()}
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	resp, err := f.client(relay).Do(req)
	if err != nil {
		// transport errors keep their native types for classification
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &retry.FetchError{
			StatusCode: resp.StatusCode,
			Msg:        http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", target, err)
	}
	if int64(len(body)) > f.cfg.MaxBodySize {
		return nil, &retry.FetchError{
			Class: retry.ClassPermanent,
			Msg:   fmt.Sprintf("response body exceeds %d bytes", f.cfg.MaxBodySize),
		}
	}

	return &scrape.Result{
		StatusCode: resp.StatusCode,
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// client builds the HTTP client for one fetch. Clients are per-call because
// the proxy differs per relay; connection reuse across relays would leak
// requests onto the wrong route.
func (f *HTTPFetcher) client(relay *entity.Relay) *http.Client {
	transport := &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: f.cfg.Timeout,
		DisableKeepAlives:     true,
	}
	if relay != nil {
		transport.Proxy = http.ProxyURL(relay.ProxyURL())
	}

	return &http.Client{
		Transport: transport,
		Timeout:   f.cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", f.cfg.MaxRedirects)
			}
			return validateURL(req.URL.String(), f.cfg.DenyPrivateIPs)
		},
	}
}
