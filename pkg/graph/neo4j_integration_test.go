//go:build integration

package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maraichr/neogm/pkg/cypher"
)

func setupClient(t *testing.T) *Client {
	t.Helper()
	_ = godotenv.Load("../../.env")
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}
	c, err := NewClient(Config{
		URI:            uri,
		User:           os.Getenv("NEO4J_USER"),
		Password:       os.Getenv("NEO4J_PASSWORD"),
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	ctx := context.Background()
	if err := c.Verify(ctx); err != nil {
		t.Skipf("neo4j not available: %v", err)
	}
	t.Cleanup(func() { c.Close(ctx) })
	return c
}

func TestClient_RunRoundTrip(t *testing.T) {
	c := setupClient(t)
	ctx := context.Background()
	label := "NeogmIT"
	t.Cleanup(func() {
		c.Run(ctx, cypher.New().Match("(n:"+label+")").Delete("n"))
	})

	_, err := c.Run(ctx, cypher.New().Create("(n:"+label+" {name: $name})").Params(map[string]any{"name": "a"}))
	require.NoError(t, err)

	recs, err := c.Run(ctx, cypher.New().Match("(n:"+label+")").Where(cypher.Cond{"n": {"name": "a"}}).Return("count(n) AS c"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(1), recs[0].Values[0])
}

func TestClient_WriteTransactionRollsBack(t *testing.T) {
	c := setupClient(t)
	ctx := context.Background()
	label := "NeogmRollback"

	err := c.WriteTransaction(ctx, func(tx Runner) error {
		if _, err := tx.Run(ctx, cypher.New().Create("(n:"+label+")")); err != nil {
			return err
		}
		_, err := tx.Run(ctx, cypher.New().Return("not a valid expression ("))
		return err
	})
	require.Error(t, err)
	assert.True(t, IsCypherError(err))

	recs, err := c.Run(ctx, cypher.New().Match("(n:"+label+")").Return("count(n) AS c"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), recs[0].Values[0])
}

func TestClient_EnsureConstraints(t *testing.T) {
	c := setupClient(t)
	ctx := context.Background()
	con := Constraint{Label: "NeogmConstrained", Property: "uuid"}

	require.NoError(t, c.EnsureConstraints(ctx, con))
	require.NoError(t, c.EnsureConstraints(ctx, con))

	names, err := c.Constraints(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, con.Name())
}
