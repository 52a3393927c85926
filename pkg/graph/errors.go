package graph

import (
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	statementErrorPrefix = "Neo.ClientError.Statement."
	transientErrorPrefix = "Neo.TransientError."
)

// IsCypherError reports whether the server rejected a statement as invalid,
// as opposed to connectivity, security or transient failures.
func IsCypherError(err error) bool {
	var neoErr *neo4j.Neo4jError
	if !errors.As(err, &neoErr) {
		return false
	}
	return strings.HasPrefix(neoErr.Code, statementErrorPrefix)
}

// IsTransientError reports whether the server failed the transaction in a
// way that succeeds when retried, such as a deadlock.
func IsTransientError(err error) bool {
	var neoErr *neo4j.Neo4jError
	if !errors.As(err, &neoErr) {
		return false
	}
	return strings.HasPrefix(neoErr.Code, transientErrorPrefix)
}
