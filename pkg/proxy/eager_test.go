package proxy

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithAssociations_SingleRoundTrip(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	sess.Respond(
		rec(dbNode(1, "Person", nil), []any{
			[]any{dbNode(2, "Person", nil), dbNode(3, "Person", nil)},
			[]any{dbNode(4, "Dog", nil)},
		}),
		rec(dbNode(5, "Person", nil), []any{[]any{}, []any{}}),
	)

	people, err := g.Model(s.person).WithAssociations("friends", "pets").ToA(ctx)
	require.NoError(t, err)
	require.Len(t, people, 2)
	require.Equal(t, 1, sess.CallCount())

	gold := goldie.New(t)
	gold.Assert(t, "eager_load", []byte(sess.LastCall().Cypher))

	friends, err := g.Assoc(people[0], "friends").ToA(ctx)
	require.NoError(t, err)
	assert.Len(t, friends, 2)
	pets, err := g.Assoc(people[0], "pets").ToA(ctx)
	require.NoError(t, err)
	require.Len(t, pets, 1)
	assert.Same(t, s.dog, pets[0].Model())

	none, err := g.Assoc(people[1], "friends").ToA(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, 1, sess.CallCount())
}

func TestWithAssociations_KeepsChainFilters(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	_, err := g.Model(s.person).Where(map[string]any{"age": 30}).Limit(5).WithAssociations("friends").ToA(ctx)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (result_person:Person) WHERE (result_person.age = $result_person_age) WITH result_person LIMIT 5 "+
		"OPTIONAL MATCH (result_person)-[:FRIEND]->(friends:Person) "+
		"WITH result_person, collect(DISTINCT friends) AS friends_collection "+
		"RETURN result_person, [friends_collection]", sess.LastCall().Cypher)
}

func TestWithAssociations_ToCypherMatchesExecutedStatement(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	p := g.Model(s.person).WithAssociations("friends", "pets")

	stmt, _, err := p.ToCypher()
	require.NoError(t, err)
	assert.Contains(t, stmt, "collect(DISTINCT friends) AS friends_collection")

	_, err = p.ToA(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.LastCall().Cypher, stmt)
}
