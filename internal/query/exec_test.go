package query

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/rulegraph/internal/graph"
	"github.com/specialistvlad/rulegraph/internal/memgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture is a tiny scanned model:
//
//	Bean   -ANNOTATED_BY-> @Stateless  -OF_TYPE-> javax.ejb.Stateless
//	Bean   -DECLARES->     run(), stop()
//	Worker -ANNOTATED_BY-> @Schedule   -OF_TYPE-> javax.ejb.Schedule  (on tick())
//	Worker -DECLARES->     tick()
type fixture struct {
	store                    graph.Store
	bean, worker             graph.NodeID
	run, stop, tick          graph.NodeID
	statelessType, schedType graph.NodeID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memgraph.New()}
	t.Cleanup(func() { f.store.Close() })

	err := graph.Update(context.Background(), f.store, func(tx graph.Tx) error {
		create := func(labels []string, props map[string]any) graph.NodeID {
			id, err := tx.CreateNode(labels, props)
			require.NoError(t, err)
			return id
		}
		rel := func(from graph.NodeID, typ string, to graph.NodeID) {
			require.NoError(t, tx.CreateRelationship(from, typ, to))
		}

		f.statelessType = create([]string{"Type"}, map[string]any{"fqn": "javax.ejb.Stateless"})
		f.schedType = create([]string{"Type"}, map[string]any{"fqn": "javax.ejb.Schedule"})
		f.bean = create([]string{"Type", "Class"}, map[string]any{"fqn": "com.acme.Bean", "name": "Bean"})
		f.worker = create([]string{"Type", "Class"}, map[string]any{"fqn": "com.acme.Worker", "name": "Worker"})
		f.run = create([]string{"Method"}, map[string]any{"name": "run", "signature": "void run()"})
		f.stop = create([]string{"Method"}, map[string]any{"name": "stop", "signature": "void stop()"})
		f.tick = create([]string{"Method"}, map[string]any{"name": "tick", "signature": "void tick()"})

		stateless := create([]string{"Annotation"}, nil)
		rel(f.bean, "ANNOTATED_BY", stateless)
		rel(stateless, "OF_TYPE", f.statelessType)
		sched := create([]string{"Annotation"}, nil)
		rel(f.tick, "ANNOTATED_BY", sched)
		rel(sched, "OF_TYPE", f.schedType)

		rel(f.bean, "DECLARES", f.run)
		rel(f.bean, "DECLARES", f.stop)
		rel(f.worker, "DECLARES", f.tick)
		return nil
	})
	require.NoError(t, err)
	return f
}

func nodeIDs(t *testing.T, rows []Row, column string) []graph.NodeID {
	t.Helper()
	var ids []graph.NodeID
	for _, r := range rows {
		n, ok := r[column].(*graph.Node)
		require.True(t, ok, "column %q holds %T", column, r[column])
		ids = append(ids, n.ID)
	}
	return ids
}

func TestRunMatchesPathsThroughAnonymousNodes(t *testing.T) {
	f := newFixture(t)
	res, err := Run(context.Background(), f.store, `
		MATCH (t:Type)-[:ANNOTATED_BY]->()-[:OF_TYPE]->(a:Type)
		WHERE a.fqn == "javax.ejb.Stateless"
		RETURN t AS bean, a.fqn AS annotation`)
	require.NoError(t, err)

	assert.Equal(t, []string{"bean", "annotation"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []graph.NodeID{f.bean}, nodeIDs(t, res.Rows, "bean"))
	assert.Equal(t, "javax.ejb.Stateless", res.Rows[0]["annotation"])
	assert.Zero(t, res.LabelsAdded)
}

func TestRunJoinsPatternsOnSharedVariables(t *testing.T) {
	f := newFixture(t)
	res, err := Run(context.Background(), f.store, `
		MATCH (t:Type)-[:DECLARES]->(m:Method)-[:ANNOTATED_BY]->()-[:OF_TYPE]->(a:Type)
		WHERE a.fqn == "javax.ejb.Schedule"
		RETURN t.fqn AS invalidBean, m.name AS methodName`)
	require.NoError(t, err)

	want := []Row{{"invalidBean": "com.acme.Worker", "methodName": "tick"}}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRunOrdersRowsByNodeID(t *testing.T) {
	f := newFixture(t)
	res, err := Run(context.Background(), f.store, `MATCH (t:Type)-[:DECLARES]->(m) RETURN t, m.name AS name`)
	require.NoError(t, err)

	assert.Equal(t, []graph.NodeID{f.bean, f.bean, f.worker}, nodeIDs(t, res.Rows, "t"))
	var names []any
	for _, r := range res.Rows {
		names = append(names, r["name"])
	}
	assert.Equal(t, []any{"run", "stop", "tick"}, names)
}

func TestRunIncomingAndAnyType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := Run(ctx, f.store, `MATCH (m:Method)<-[:DECLARES]-(t) WHERE m.name == "tick" RETURN t`)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{f.worker}, nodeIDs(t, res.Rows, "t"))

	res, err = Run(ctx, f.store, `MATCH (t:Class)-[]->(x) WHERE t.name == "Bean" RETURN x`)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3, "annotation plus two methods")
}

func TestRunDistinct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := Run(ctx, f.store, `MATCH (t:Type)-[:DECLARES]->(m) RETURN t.fqn AS fqn`)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)

	res, err = Run(ctx, f.store, `MATCH (t:Type)-[:DECLARES]->(m) RETURN DISTINCT t.fqn AS fqn`)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"fqn": "com.acme.Bean"}, {"fqn": "com.acme.Worker"}}, res.Rows)
}

func TestRunSetIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	text := `
		MATCH (t:Type)-[:ANNOTATED_BY]->()-[:OF_TYPE]->(a:Type)
		WHERE a.fqn == "javax.ejb.Stateless"
		SET t:Stateless:Ejb
		RETURN t AS bean`

	first, err := Run(ctx, f.store, text)
	require.NoError(t, err)
	assert.Equal(t, 2, first.LabelsAdded)
	require.Len(t, first.Rows, 1)
	bean := first.Rows[0]["bean"].(*graph.Node)
	assert.True(t, bean.Labels.HasAll("Type", "Class", "Stateless", "Ejb"), "projection sees labels attached by SET")

	second, err := Run(ctx, f.store, text)
	require.NoError(t, err)
	assert.Zero(t, second.LabelsAdded)
	assert.Len(t, second.Rows, 1)

	res, err := Run(ctx, f.store, `MATCH (t:Type:Stateless:Ejb) RETURN t`)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{f.bean}, nodeIDs(t, res.Rows, "t"))
}

func TestWhereFunctions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		where string
		want  []graph.NodeID
	}{
		{"has_label", `has_label(t, "Class")`, []graph.NodeID{f.bean, f.worker}},
		{"not has_label", `!has_label(t, "Class")`, []graph.NodeID{f.statelessType, f.schedType}},
		{"contains labels", `contains(t.labels, "Class") && t.name == "Worker"`, []graph.NodeID{f.worker}},
		{"lower", `lower(t.fqn) == "com.acme.bean"`, []graph.NodeID{f.bean}},
		{"upper", `upper(t.fqn) == "JAVAX.EJB.SCHEDULE"`, []graph.NodeID{f.schedType}},
		{"matches", `matches(t.fqn, "^javax\\.ejb\\.")`, []graph.NodeID{f.statelessType, f.schedType}},
		{"length", `length(t.fqn) == 13`, []graph.NodeID{f.bean}},
		{"length of labels", `length(t.labels) == 2`, []graph.NodeID{f.bean, f.worker}},
		{"length of missing property", `length(t.name) == 4`, []graph.NodeID{f.bean}},
		{"missing property is null", `t.name == null`, []graph.NodeID{f.statelessType, f.schedType}},
		{"id", `t.id == ` + f.worker.String(), []graph.NodeID{f.worker}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Run(ctx, f.store, `MATCH (t:Type) WHERE `+tc.where+` RETURN t`)
			require.NoError(t, err)
			assert.Equal(t, tc.want, nodeIDs(t, res.Rows, "t"))
		})
	}
}

func TestReturnScalarConversion(t *testing.T) {
	f := newFixture(t)
	res, err := Run(context.Background(), f.store, `
		MATCH (t:Class) WHERE t.name == "Bean"
		RETURN t.id AS id, t.labels AS labels, length(t.labels) AS count, t.name == "Bean" AS isBean, t.missing AS missing`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, int64(f.bean), row["id"])
	assert.Equal(t, []string{"Class", "Type"}, row["labels"])
	assert.Equal(t, int64(2), row["count"])
	assert.Equal(t, true, row["isBean"])
	assert.Nil(t, row["missing"])
}

func TestExecuteErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := Run(ctx, f.store, `MATCH (t:Type) WHERE t.fqn RETURN t`)
	assert.ErrorContains(t, err, "WHERE must evaluate to a bool")

	_, err = Run(ctx, f.store, `MATCH (t:Type) WHERE matches(t.fqn, "(") RETURN t`)
	assert.ErrorContains(t, err, "evaluate WHERE")

	_, err = Run(ctx, f.store, `MATCH (t:Type) WHERE has_label(t.fqn, "X") RETURN t`)
	assert.ErrorContains(t, err, "has_label expects a node")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Run(cancelled, f.store, `MATCH (t:Type) RETURN t`)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteSetRequiresWritableTx(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q, err := Parse(`MATCH (t:Class) SET t:Touched`)
	require.NoError(t, err)

	err = graph.View(ctx, f.store, func(tx graph.Tx) error {
		_, err := Execute(ctx, tx, q)
		return err
	})
	assert.ErrorIs(t, err, graph.ErrReadOnly)
}

func TestExecuteWithoutMatchesReturnsNoRows(t *testing.T) {
	f := newFixture(t)
	res, err := Run(context.Background(), f.store, `MATCH (t:Type:Stateful) SET t:Ejb RETURN t AS bean`)
	require.NoError(t, err)
	assert.Equal(t, []string{"bean"}, res.Columns)
	assert.Empty(t, res.Rows)
	assert.NotNil(t, res.Rows)
}
