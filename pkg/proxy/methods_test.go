package proxy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maraichr/neogm/pkg/apierr"
	"github.com/maraichr/neogm/pkg/model"
)

// --- count ---

func TestCount_DropsOrdering(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	sess.Respond(rec(int64(4)))

	n, err := g.Model(s.person).Order(Asc("name")).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, "MATCH (result_person:Person) RETURN count(result_person) AS result_person", sess.LastCall().Cypher)
}

func TestCountDistinct(t *testing.T) {
	g, sess, s := setup(t)
	_, err := g.Model(s.person).CountDistinct(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MATCH (result_person:Person) RETURN count(DISTINCT result_person) AS result_person", sess.LastCall().Cypher)
}

func TestCount_NoRowsIsZero(t *testing.T) {
	g, _, s := setup(t)
	n, err := g.Model(s.person).Size(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// --- first / last ---

func TestFirst_UnorderedUsesIDProperty(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	sess.Respond(rec(dbNode(1, "Person", map[string]any{"name": "Ann"})))

	n, err := g.Model(s.person).Where(map[string]any{"name": "Ann"}).First(ctx)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "Ann", n.Get("name"))
	assert.Equal(t, "MATCH (result_person:Person) WHERE (result_person.name = $result_person_name) "+
		"RETURN result_person ORDER BY result_person.uuid LIMIT 1", sess.LastCall().Cypher)

	_, err = g.Model(s.person).Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (result_person:Person) RETURN result_person ORDER BY result_person.uuid DESC LIMIT 1",
		sess.LastCall().Cypher)
}

func TestFirst_OrderedCollectsThroughWith(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	ordered := g.Model(s.person).Order(Asc("name"))

	_, err := ordered.First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (result_person:Person) WITH result_person ORDER BY result_person.name "+
		"RETURN HEAD(COLLECT(result_person)) AS result_person", sess.LastCall().Cypher)

	_, err = ordered.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (result_person:Person) WITH result_person ORDER BY result_person.name "+
		"RETURN LAST(COLLECT(result_person)) AS result_person", sess.LastCall().Cypher)
}

func TestFirst_ParentOrderDoesNotOrderTraversal(t *testing.T) {
	g, sess, s := setup(t)
	_, err := g.Model(s.person).Order(Asc("name")).Limit(3).Assoc("friends").First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MATCH (node2:Person) WITH node2 ORDER BY node2.name LIMIT 3 "+
		"MATCH (node2)-[rel1:FRIEND]->(result_friends:Person) "+
		"RETURN result_friends ORDER BY result_friends.uuid LIMIT 1", sess.LastCall().Cypher)
}

func TestFirst_WithoutModelOrdersByIdentity(t *testing.T) {
	g, sess, _ := setup(t)
	n, err := g.Model(nil).First(context.Background())
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, "MATCH (result) RETURN result ORDER BY ID(result) LIMIT 1", sess.LastCall().Cypher)
}

// --- exists / include ---

func TestExists(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	p := g.Model(s.person)

	sess.Respond(rec(int64(2)))
	ok, err := p.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "MATCH (result_person:Person) RETURN COUNT(result_person) AS count", sess.LastCall().Cypher)

	sess.Respond(rec(int64(0)))
	ok, err = p.Exists(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "MATCH (result_person:Person) WHERE (ID(result_person) = $result_person_neo_id) "+
		"RETURN COUNT(result_person) AS count", sess.LastCall().Cypher)
	assert.Equal(t, int64(5), sess.LastCall().Params["result_person_neo_id"])

	_, err = p.Exists(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.Contains(t, sess.LastCall().Cypher, "WHERE (result_person.name = $result_person_name)")

	calls := sess.CallCount()
	_, err = p.Exists(ctx, "Ann")
	assert.True(t, apierr.HasCode(err, apierr.CodeInvalidParameter))
	_, err = p.Exists(ctx, 1, 2)
	assert.True(t, apierr.HasCode(err, apierr.CodeInvalidParameter))
	assert.Equal(t, calls, sess.CallCount())
}

func TestEmpty(t *testing.T) {
	g, sess, s := setup(t)
	sess.Respond(rec(int64(0)))
	empty, err := g.Model(s.person).Empty(context.Background())
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestInclude(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	start := persisted(t, s.person, 7)
	friend := persisted(t, s.person, 8)

	sess.Respond(rec(int64(1)))
	ok, err := g.Assoc(start, "friends").Include(ctx, friend)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, sess.LastCall().Cypher, "WHERE (ID(result_friends) = $result_friends_neo_id) RETURN COUNT(result_friends) AS count")
	assert.Equal(t, int64(8), sess.LastCall().Params["result_friends_neo_id"])

	_, err = g.Assoc(start, "friends").Include(ctx, model.NewNode(s.person, nil))
	assert.True(t, apierr.HasCode(err, apierr.CodeInvalidParameter))
	_, err = g.Assoc(start, "friends").Include(ctx, "uuid-8")
	assert.True(t, apierr.HasCode(err, apierr.CodeInvalidParameter))
}

// --- relationships ---

func TestRelsTo(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	start := persisted(t, s.person, 7)
	friend := persisted(t, s.person, 8)
	sess.Respond(rec(dbRel(20, 7, 8, "FRIEND", nil)))

	rels, err := g.Assoc(start, "friends").RelsTo(ctx, friend)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, int64(20), rels[0].NeoID())
	assert.Equal(t, "MATCH (person7:Person) WHERE (ID(person7) = $person7_neo_id) "+
		"MATCH (person7)-[rel0:FRIEND]->(result_friends:Person) "+
		"WHERE (ID(result_friends) = $result_friends_neo_id) RETURN rel0", sess.LastCall().Cypher)

	r, err := g.Assoc(start, "friends").FirstRelTo(ctx, friend)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Contains(t, sess.LastCall().Cypher, "RETURN rel0 LIMIT 1")

	_, err = g.Model(s.person).RelsTo(ctx, friend)
	assert.True(t, apierr.HasCode(err, apierr.CodeNotAssociation))
}

func TestDelete_RemovesRelationshipAndClearsCache(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	start := persisted(t, s.person, 7)
	friend := persisted(t, s.person, 8)
	start.SetAssociationCache("friends", []*model.Node{friend})

	require.NoError(t, g.Assoc(start, "friends").Delete(ctx, friend))
	assert.Equal(t, "MATCH (person7:Person) WHERE (ID(person7) = $person7_neo_id) "+
		"MATCH (person7)-[rel0:FRIEND]->(result_friends:Person) "+
		"WHERE (ID(result_friends) = $result_friends_neo_id) DELETE rel0", sess.LastCall().Cypher)
	_, ok := start.AssociationCache("friends")
	assert.False(t, ok)

	assert.True(t, apierr.HasCode(g.Model(s.person).Delete(ctx, friend), apierr.CodeNotAssociation))
}

func TestDestroy_RunsRelationshipHooks(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	start := persisted(t, s.person, 7)
	friend := persisted(t, s.person, 8)

	var events []string
	s.friendship.BeforeDestroy = func(r *model.Rel) error {
		events = append(events, "before")
		return nil
	}
	s.friendship.AfterDestroy = func(r *model.Rel) error {
		events = append(events, "after")
		return nil
	}
	sess.Respond(rec(dbRel(20, 7, 8, "FRIEND", nil)))

	require.NoError(t, g.Assoc(start, "friends").Destroy(ctx, friend))
	assert.Equal(t, []string{"before", "after"}, events)
	require.Equal(t, 2, sess.CallCount())
	assert.Equal(t, "MATCH ()-[r]->() WHERE (ID(r) = $r_neo_id) DELETE r", sess.LastCall().Cypher)
	assert.Equal(t, int64(20), sess.LastCall().Params["r_neo_id"])
}

func TestDestroy_BeforeHookAborts(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	start := persisted(t, s.person, 7)
	friend := persisted(t, s.person, 8)
	stop := errors.New("keep it")
	s.friendship.BeforeDestroy = func(*model.Rel) error { return stop }
	sess.Respond(rec(dbRel(20, 7, 8, "FRIEND", nil)))

	err := g.Assoc(start, "friends").Destroy(ctx, friend)
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, sess.CallCount())
}

func TestReplaceWith_DeletesThenRelatesInOneTransaction(t *testing.T) {
	ctx := context.Background()
	g, sess, s := setup(t)
	start := persisted(t, s.person, 7)
	friend := persisted(t, s.person, 8)

	ok, err := g.Assoc(start, "friends").ReplaceWith(ctx, friend)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, sess.Transactions())

	calls := sess.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "MATCH (person7:Person) WHERE (ID(person7) = $person7_neo_id) "+
		"MATCH (person7)-[rel0:FRIEND]->(result_friends:Person) DELETE rel0", calls[0].Cypher)
	assert.Equal(t, "MATCH (from_node), (to_node) "+
		"WHERE (ID(from_node) = $from_node_neo_id AND ID(to_node) = $to_node_neo_id) "+
		"CREATE (from_node)-[r:FRIEND]->(to_node)", calls[1].Cypher)
	for _, c := range calls {
		assert.True(t, c.InTx)
	}
}
