package poll

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"nuxthub/shared"
)

var logger = shared.PackageLogger("poll", "⏳ POLL")

const (
	DefaultTimeout  = 5 * time.Minute
	DefaultInterval = time.Second
)

// ErrTimeout means the target never became ready within the timeout.
var ErrTimeout = errors.New("poll: timed out")

// Resolver is the part of net.Resolver used to check DNS propagation.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

type config struct {
	timeout      time.Duration
	interval     time.Duration
	initialDelay time.Duration
	resolver     Resolver
	client       *resty.Client
}

type Option func(*config)

func WithTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }

func WithInterval(d time.Duration) Option { return func(c *config) { c.interval = d } }

// WithInitialDelay waits before the first DNS probe; fresh records rarely resolve immediately.
func WithInitialDelay(d time.Duration) Option { return func(c *config) { c.initialDelay = d } }

func WithResolver(r Resolver) Option { return func(c *config) { c.resolver = r } }

func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.client = resty.NewWithClient(hc) }
}

func newConfig(opts []Option) *config {
	c := &config{
		timeout:  DefaultTimeout,
		interval: DefaultInterval,
		resolver: net.DefaultResolver,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = resty.New().SetTimeout(30 * time.Second)
	}
	c.client.SetHeader("Cache-Control", "no-cache").SetHeader("User-Agent", shared.UserAgent())
	return c
}

// run calls probe at most once per interval until it reports done, fails or the timeout elapses.
func run(parent context.Context, c *config, probe func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(c.interval), 1)
	start := time.Now()
	for {
		// Wait also fails early when the next slot lies past the deadline.
		if err := limiter.Wait(ctx); err != nil {
			if parent.Err() != nil {
				return parent.Err()
			}
			return fmt.Errorf("%w after %s", ErrTimeout, time.Since(start).Round(time.Second))
		}
		done, err := probe(ctx)
		if err != nil || done {
			return err
		}
		logger.Debug("Not ready yet (%s)", time.Since(start).Round(time.Second))
	}
}

// DNS waits until the host of rawURL resolves.
func DNS(ctx context.Context, rawURL string, opts ...Option) error {
	c := newConfig(opts)
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse %s: %w", rawURL, err)
	}
	host := u.Hostname()

	if c.initialDelay > 0 {
		t := time.NewTimer(c.initialDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	logger.Info("Waiting for DNS of %s to propagate", host)
	err = run(ctx, c, func(ctx context.Context) (bool, error) {
		addrs, err := c.resolver.LookupHost(ctx, host)
		return err == nil && len(addrs) > 0, nil
	})
	if err == nil {
		logger.Success("DNS propagation complete")
	}
	return err
}

// HTTP waits until rawURL answers below 300 or with 401. A 404 keeps polling,
// any other status fails right away.
func HTTP(ctx context.Context, rawURL string, opts ...Option) error {
	c := newConfig(opts)
	logger.Info("Waiting for deployment to become available")

	err := run(ctx, c, func(ctx context.Context) (bool, error) {
		resp, err := c.client.R().SetContext(ctx).Get(rawURL)
		if err != nil {
			logger.Debug("Request failed: %v", err)
			return false, nil
		}
		switch status := resp.StatusCode(); {
		case status < 300, status == http.StatusUnauthorized:
			return true, nil
		case status == http.StatusNotFound:
			return false, nil
		default:
			return false, &shared.APIError{StatusCode: status, Message: fmt.Sprintf("%s responded with %s", rawURL, resp.Status())}
		}
	})
	if err == nil {
		logger.Success("Deployment is ready at %s", rawURL)
	}
	return err
}
