package proxy

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/require"

	"github.com/maraichr/neogm/pkg/graph"
	"github.com/maraichr/neogm/pkg/model"
)

type schema struct {
	person     *model.Model
	dog        *model.Model
	cat        *model.Model
	friendship *model.RelModel
}

func newSchema() schema {
	s := schema{
		person:     model.New("Person").Property("name", model.TypeString).Property("age", model.TypeInteger),
		dog:        model.New("Dog").Property("name", model.TypeString),
		cat:        model.New("Cat").Property("name", model.TypeString),
		friendship: model.NewRelModel("Friendship", "FRIEND").Property("since", model.TypeInteger),
	}
	friends := s.person.HasMany("friends", model.DirOut, "FRIEND", s.person)
	friends.RelModel = s.friendship
	s.person.HasMany("pets", model.DirOut, "OWNS", s.dog, s.cat)
	s.person.HasOne("employer", model.DirOut, "WORKS_AT")
	return s
}

func setup(t *testing.T) (*Graph, *graph.MockSession, schema) {
	t.Helper()
	sess := graph.NewMockSession()
	return New(sess), sess, newSchema()
}

func dbNode(id int64, label string, props map[string]any) dbtype.Node {
	if props == nil {
		props = map[string]any{}
	}
	return dbtype.Node{
		Id:        id,
		ElementId: fmt.Sprintf("4:test:%d", id),
		Labels:    []string{label},
		Props:     props,
	}
}

func dbRel(id, start, end int64, typ string, props map[string]any) dbtype.Relationship {
	if props == nil {
		props = map[string]any{}
	}
	return dbtype.Relationship{Id: id, StartId: start, EndId: end, Type: typ, Props: props}
}

// persisted returns a saved Person with the given identity.
func persisted(t *testing.T, m *model.Model, id int64) *model.Node {
	t.Helper()
	n := model.NodeFromDB(m, dbNode(id, m.Name(), map[string]any{"uuid": fmt.Sprintf("uuid-%d", id)}))
	require.True(t, n.Persisted())
	return n
}

func rec(values ...any) *neo4j.Record {
	keys := make([]string, len(values))
	for i := range values {
		keys[i] = fmt.Sprintf("c%d", i)
	}
	return graph.NewRecord(keys, values...)
}

// creatingHandler answers node CREATE statements with fresh identities.
func creatingHandler(next int64) func(string, map[string]any) ([]*neo4j.Record, error) {
	var counter atomic.Int64
	counter.Store(next - 1)
	return func(stmt string, params map[string]any) ([]*neo4j.Record, error) {
		if !strings.HasPrefix(stmt, "CREATE (n") {
			return nil, nil
		}
		id := counter.Add(1)
		props, _ := params["props"].(map[string]any)
		return []*neo4j.Record{rec(dbNode(id, "Person", props))}, nil
	}
}

func cyphers(calls []graph.MockCall) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Cypher
	}
	return out
}
