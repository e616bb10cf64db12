package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"golang.org/x/sync/singleflight"
)

const defaultConnectTimeout = 5 * time.Second

// Connector owns the process-wide pool. The pool is created on first use;
// concurrent first callers share one connection attempt, and a failed attempt
// is retried by the next caller.
type Connector struct {
	dsn     string
	timeout time.Duration
	connect func(ctx context.Context, dsn string) (*pgxpool.Pool, error)
	sf      singleflight.Group

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

func NewConnector(dsn string) *Connector {
	return &Connector{dsn: dsn, timeout: defaultConnectTimeout, connect: pgxpool.Connect}
}

// Pool returns the shared pool, connecting if needed.
func (c *Connector) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	if pool := c.current(); pool != nil {
		return pool, nil
	}

	result, err, _ := c.sf.Do("pool", func() (interface{}, error) {
		if pool := c.current(); pool != nil {
			return pool, nil
		}
		// The attempt is shared, so it ignores the first caller's cancellation.
		connectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		pool, err := c.connect(connectCtx, c.dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.mu.Lock()
		c.pool = pool
		c.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*pgxpool.Pool), nil
}

func (c *Connector) current() *pgxpool.Pool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pool
}

// Close releases the pool if one was created.
func (c *Connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}
