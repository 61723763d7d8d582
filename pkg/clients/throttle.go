package clients

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// ThrottledConnection bounds the request rate of a connection with a token
// bucket. Ping and Close are not throttled.
type ThrottledConnection struct {
	store.Connection
	limiter *rate.Limiter
}

// Throttle wraps conn so that at most requestsPerSecond requests are issued,
// with bursts of up to burst requests. A non-positive rate returns conn as is.
func Throttle(conn store.Connection, requestsPerSecond float64, burst int) store.Connection {
	if requestsPerSecond <= 0 {
		return conn
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledConnection{
		Connection: conn,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Limiter returns the underlying token bucket
func (c *ThrottledConnection) Limiter() *rate.Limiter { return c.limiter }

func (c *ThrottledConnection) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "throttled request abandoned")
	}
	return nil
}

func (c *ThrottledConnection) Fetch(ctx context.Context, container, key string) (*models.Record, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.Connection.Fetch(ctx, container, key)
}

func (c *ThrottledConnection) ListKeys(ctx context.Context, container string) ([]string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.Connection.ListKeys(ctx, container)
}

func (c *ThrottledConnection) IndexQuery(ctx context.Context, q store.IndexQuery) ([]models.RecordID, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.Connection.IndexQuery(ctx, q)
}

func (c *ThrottledConnection) Search(ctx context.Context, container, query string) ([]models.RecordID, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.Connection.Search(ctx, container, query)
}

func (c *ThrottledConnection) Store(ctx context.Context, container, key string, value []byte, contentType string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.Connection.Store(ctx, container, key, value, contentType)
}
