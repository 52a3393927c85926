// Package graph executes built Cypher queries against Neo4j.
package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/maraichr/neogm/pkg/cypher"
)

// Runner executes one query and returns all of its rows.
type Runner interface {
	Run(ctx context.Context, q *cypher.Query) ([]*neo4j.Record, error)
}

// Session is a Runner that can also group queries in one write transaction.
// Returning an error from fn rolls the transaction back.
type Session interface {
	Runner
	WriteTransaction(ctx context.Context, fn func(tx Runner) error) error
}

// NewRecord builds a row, mainly for tests and mocks.
func NewRecord(keys []string, values ...any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}
