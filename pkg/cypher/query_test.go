package cypher

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, q *Query) (string, map[string]any) {
	t.Helper()
	s, params, err := q.Cypher()
	require.NoError(t, err)
	return s, params
}

// --- golden snapshots ---

func TestCypher_SinglePartitionGolden(t *testing.T) {
	q := New().
		Match("(n:Person)").
		Where(Cond{"n": {"name": "Alice"}}).
		Where("n.age > $min", Params{"min": 30}).
		Return("n").
		Order(OrderBy{Var: "n", Prop: "name", Desc: true}).
		Skip(5).
		Limit(10)

	s, params := render(t, q)
	g := goldie.New(t)
	g.Assert(t, "single_partition", []byte(s))
	assert.Equal(t, map[string]any{"n_name": "Alice", "min": 30}, params)
}

func TestCypher_PartitionedTraversalGolden(t *testing.T) {
	q := New().
		Match("(a:Person)").
		Where(Cond{"a": {NeoIDKey: int64(7)}}).
		Break().
		Match("(a)-[rel0:FRIEND]->(b:Person)").
		Where(Cond{"b": {"age": int64(30)}}).
		Return("b")

	s, params := render(t, q)
	g := goldie.New(t)
	g.Assert(t, "partitioned_traversal", []byte(s))
	assert.Equal(t, int64(7), params["a_neo_id"])
	assert.Equal(t, int64(30), params["b_age"])
}

// --- clause ordering ---

func TestCypher_ReordersWithinPartition(t *testing.T) {
	q := New().Return("n").Limit(1).Where("n.x = 1").Match("(n)")
	s, _ := render(t, q)
	assert.Equal(t, "MATCH (n) WHERE (n.x = 1) RETURN n LIMIT 1", s)
}

func TestCypher_BreakKeepsPartitionsApart(t *testing.T) {
	q := New().Match("(a)").Where("a.x = 1").Break().OptionalMatch("(a)-[r]-()").Delete("a", "r")
	s, _ := render(t, q)
	assert.Equal(t, "MATCH (a) WHERE (a.x = 1) OPTIONAL MATCH (a)-[r]-() DELETE a, r", s)
}

func TestCypher_MergesMatchesAndWheres(t *testing.T) {
	q := New().Match("(a)").Match("(b)").Where("a.x = 1").Where("b.y = 2")
	s, _ := render(t, q)
	assert.Equal(t, "MATCH (a), (b) WHERE (a.x = 1) AND (b.y = 2)", s)
}

func TestCypher_OptionalMatchesStaySeparate(t *testing.T) {
	q := New().OptionalMatch("(a)-->(b)", "(a)-->(c)")
	s, _ := render(t, q)
	assert.Equal(t, "OPTIONAL MATCH (a)-->(b) OPTIONAL MATCH (a)-->(c)", s)
}

func TestCypher_WithTakesOrderingBeforeBreak(t *testing.T) {
	q := New().Match("(n)").Order(OrderBy{Var: "n", Prop: "name"}).With("n").Break().Return("HEAD(COLLECT(n)) AS n")
	s, _ := render(t, q)
	assert.Equal(t, "MATCH (n) WITH n ORDER BY n.name RETURN HEAD(COLLECT(n)) AS n", s)
}

func TestCypher_LastSkipAndLimitWin(t *testing.T) {
	q := New().Match("(n)").Skip(1).Skip(2).Limit(5).Limit(3).Return("n")
	s, _ := render(t, q)
	assert.Equal(t, "MATCH (n) RETURN n SKIP 2 LIMIT 3", s)
}

// --- conditions ---

func TestWhere_CondShapes(t *testing.T) {
	q := New().Match("(n)").Where(Cond{"n": {"deleted": nil, "tags": []string{"a", "b"}, NeoIDKey: int64(3)}})
	s, params := render(t, q)
	assert.Equal(t, "MATCH (n) WHERE (n.deleted IS NULL AND ID(n) = $n_neo_id AND n.tags IN $n_tags)", s)
	assert.Equal(t, []string{"a", "b"}, params["n_tags"])
	assert.NotContains(t, params, "n_deleted")
}

func TestWhereNot_Negates(t *testing.T) {
	q := New().Match("(n)").WhereNot(Cond{"n": {"name": "Bob"}}).Where("n.age > 1")
	s, _ := render(t, q)
	assert.Equal(t, "MATCH (n) WHERE NOT(n.name = $n_name) AND (n.age > 1)", s)
}

func TestWhere_QuestionMarkPlaceholders(t *testing.T) {
	q := New().Match("(n)").Where("n.age > ? AND n.age < ?", 18, 65)
	s, params := render(t, q)
	assert.Equal(t, "MATCH (n) WHERE (n.age > $question_mark_param AND n.age < $question_mark_param_2)", s)
	assert.Equal(t, 18, params["question_mark_param"])
	assert.Equal(t, 65, params["question_mark_param_2"])
}

func TestWhere_PlaceholderMismatchIsBuildError(t *testing.T) {
	q := New().Match("(n)").Where("n.age > ?")
	_, _, err := q.Cypher()
	require.Error(t, err)
}

func TestWhere_UnsupportedArgumentIsBuildError(t *testing.T) {
	q := New().Match("(n)").Where(42)
	_, _, err := q.Cypher()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported argument int")
}

func TestWhere_ParamCollisionGetsSuffix(t *testing.T) {
	q := New().Match("(n)").Where(Cond{"n": {"name": "a"}}).Where(Cond{"n": {"name": "b"}}).Where(Cond{"n": {"name": "a"}})
	s, params := render(t, q)
	assert.Equal(t, "MATCH (n) WHERE (n.name = $n_name) AND (n.name = $n_name_2) AND (n.name = $n_name)", s)
	assert.Len(t, params, 2)
}

// --- set / reorder / misc ---

func TestSet_CondAndRaw(t *testing.T) {
	q := New().Match("(n)").Set(Cond{"n": {"age": 3, "name": "x"}}).Set("n.seen = $now", Params{"now": 10}).Return("count(n)")
	s, params := render(t, q)
	assert.Equal(t, "MATCH (n) SET n.age = $setter_n_age, n.name = $setter_n_name, n.seen = $now RETURN count(n)", s)
	assert.Equal(t, 10, params["now"])
	assert.True(t, q.Writes())
}

func TestReorder_RemovesExistingOrder(t *testing.T) {
	q := New().Match("(n)").Order("n.name").Return("n")
	assert.True(t, q.HasClause(KindOrder))
	stripped := q.Reorder()
	assert.False(t, stripped.HasClause(KindOrder))
	s, _ := render(t, stripped)
	assert.Equal(t, "MATCH (n) RETURN n", s)
}

func TestPending_OnlySeesOpenPartition(t *testing.T) {
	q := New().Match("(n)").Order("n.name").Limit(3)
	assert.True(t, q.Pending(KindOrder, KindSkip, KindLimit))
	assert.True(t, q.Pending(KindLimit))
	assert.False(t, q.Pending(KindSkip))

	next := q.With("n").Break().Match("(n)-->(m)")
	assert.False(t, next.Pending(KindOrder, KindSkip, KindLimit))
	assert.True(t, next.HasClause(KindOrder))
}

func TestQuery_IsImmutable(t *testing.T) {
	base := New().Match("(n)")
	a := base.Where("n.a = 1")
	b := base.Where("n.b = 2")
	sBase, _ := render(t, base)
	sA, _ := render(t, a)
	sB, _ := render(t, b)
	assert.Equal(t, "MATCH (n)", sBase)
	assert.Equal(t, "MATCH (n) WHERE (n.a = 1)", sA)
	assert.Equal(t, "MATCH (n) WHERE (n.b = 2)", sB)
}

func TestReturnDistinct(t *testing.T) {
	s, _ := render(t, New().Match("(n)").ReturnDistinct("n", "n.name"))
	assert.Equal(t, "MATCH (n) RETURN DISTINCT n, n.name", s)
}

func TestChainLevelTag(t *testing.T) {
	q := New().WithChainLevel(3)
	assert.Equal(t, 3, q.ChainLevel())
	assert.Equal(t, 3, q.Match("(n)").ChainLevel())
}
