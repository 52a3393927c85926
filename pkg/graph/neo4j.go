package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/maraichr/neogm/pkg/cypher"
)

// Config holds the connection settings for a Client.
type Config struct {
	URI            string
	User           string
	Password       string
	Database       string
	MaxPoolSize    int
	ConnectTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for statement tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client wraps the Neo4j driver and implements Session.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewClient creates a new Neo4j client from configuration.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxPoolSize
			}
			if cfg.ConnectTimeout > 0 {
				c.SocketConnectTimeout = cfg.ConnectTimeout
			}
		})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	c := &Client{driver: driver, database: cfg.Database, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases the Neo4j driver resources.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Verify checks connectivity to Neo4j.
func (c *Client) Verify(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: c.database})
}

// Run executes q in its own managed transaction, read or write depending on
// whether q modifies the graph.
func (c *Client) Run(ctx context.Context, q *cypher.Query) ([]*neo4j.Record, error) {
	stmt, params, err := q.Cypher()
	if err != nil {
		return nil, err
	}
	work := func(tx neo4j.ManagedTransaction) ([]*neo4j.Record, error) {
		return run(ctx, tx, stmt, params)
	}

	start := time.Now()
	var records []*neo4j.Record
	if q.Writes() {
		session := c.session(ctx, neo4j.AccessModeWrite)
		defer session.Close(ctx)
		records, err = neo4j.ExecuteWrite(ctx, session, work)
	} else {
		session := c.session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)
		records, err = neo4j.ExecuteRead(ctx, session, work)
	}
	c.trace(stmt, params, q.ChainLevel(), start, err)
	return records, err
}

// WriteTransaction runs fn in one managed write transaction. The driver may
// retry fn on transient errors.
func (c *Client) WriteTransaction(ctx context.Context, fn func(tx Runner) error) error {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (struct{}, error) {
		return struct{}{}, fn(&txRunner{tx: tx, client: c})
	})
	return err
}

// EnsureConstraints creates uniqueness constraints for the given label and
// property pairs if they do not exist.
func (c *Client) EnsureConstraints(ctx context.Context, constraints ...Constraint) error {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (struct{}, error) {
		for _, con := range constraints {
			if _, err := tx.Run(ctx, con.Cypher(), nil); err != nil {
				return struct{}{}, fmt.Errorf("create %s constraint: %w", con.Name(), err)
			}
		}
		return struct{}{}, nil
	})
	return err
}

// Constraints lists the names of existing constraints.
func (c *Client) Constraints(ctx context.Context) ([]string, error) {
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	return neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]string, error) {
		records, err := run(ctx, tx, ShowConstraints, nil)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(records))
		for _, rec := range records {
			if name, ok := rec.Values[0].(string); ok {
				names = append(names, name)
			}
		}
		return names, nil
	})
}

func (c *Client) trace(stmt string, params map[string]any, level int, start time.Time, err error) {
	attrs := []any{
		slog.String("cypher", stmt),
		slog.Int("params", len(params)),
		slog.Int("chain_level", level),
		slog.Duration("took", time.Since(start)),
	}
	if err != nil {
		c.logger.Debug("cypher failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	c.logger.Debug("cypher", attrs...)
}

func run(ctx context.Context, tx neo4j.ManagedTransaction, stmt string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := tx.Run(ctx, stmt, params)
	if err != nil {
		return nil, fmt.Errorf("run cypher: %w", err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect results: %w", err)
	}
	return records, nil
}

type txRunner struct {
	tx     neo4j.ManagedTransaction
	client *Client
}

func (r *txRunner) Run(ctx context.Context, q *cypher.Query) ([]*neo4j.Record, error) {
	stmt, params, err := q.Cypher()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	records, err := run(ctx, r.tx, stmt, params)
	r.client.trace(stmt, params, q.ChainLevel(), start, err)
	return records, err
}

// Constraint is a uniqueness constraint on one label property.
type Constraint struct {
	Label    string
	Property string
}

// Name derives the constraint name, e.g. "person_uuid".
func (c Constraint) Name() string {
	return strings.ToLower(c.Label) + "_" + strings.ToLower(c.Property)
}

// Cypher renders the idempotent CREATE CONSTRAINT statement.
func (c Constraint) Cypher() string {
	return fmt.Sprintf(CreateUniqueConstraint, c.Name(), c.Label, c.Property)
}
