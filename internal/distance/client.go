// Package distance resolves a postal code into a road distance from the
// kitchen through an external HTTP service.
package distance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"privatize-quote/internal/config"
	"privatize-quote/internal/quote"
	"privatize-quote/pkg/api"
)

const serviceName = "distance"

type Client struct {
	api        *api.Client
	maxElapsed time.Duration
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

type Option func(*Client)

// WithBackOff replaces the retry policy.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = f }
}

func New(cfg config.Distance, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		api:        api.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout, logger),
		maxElapsed: cfg.MaxElapsed,
		logger:     logger,
	}
	c.newBackOff = c.defaultBackOff
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = c.maxElapsed
	return b
}

type distanceResponse struct {
	Km *float64 `json:"km"`
}

// ResolveDistanceKm implements quote.DistanceResolver. Every failure comes
// back as *quote.ServiceUnavailableError.
func (c *Client) ResolveDistanceKm(ctx context.Context, postalCode string) (float64, error) {
	const operation = "distance.ResolveDistanceKm"

	var km float64
	err := backoff.RetryNotify(
		func() error {
			var resp distanceResponse
			err := c.api.GetJSON(ctx, "/distance", url.Values{"postal_code": {postalCode}}, &resp)
			if err != nil {
				var se *api.StatusError
				if errors.As(err, &se) && !se.Temporary() {
					return backoff.Permanent(err)
				}
				return err
			}
			if resp.Km == nil {
				return backoff.Permanent(errors.New("response has no km field"))
			}
			if v := *resp.Km; v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return backoff.Permanent(fmt.Errorf("invalid distance %v", v))
			}
			km = *resp.Km
			return nil
		},
		backoff.WithContext(c.newBackOff(), ctx),
		func(err error, next time.Duration) {
			c.logger.Warn("Distance lookup failed, retrying...",
				zap.String("postal_code", postalCode),
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
	if err != nil {
		c.logger.Error("Distance lookup failed",
			zap.String("postal_code", postalCode),
			zap.Error(err))
		return 0, &quote.ServiceUnavailableError{
			Service: serviceName,
			Err:     fmt.Errorf("%s: %s: %w", operation, postalCode, err),
		}
	}
	return km, nil
}
