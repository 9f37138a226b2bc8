package scanner

import (
	"context"
	"testing"

	"github.com/specialistvlad/rulegraph/internal/graph"
	"github.com/specialistvlad/rulegraph/internal/memgraph"
	"github.com/specialistvlad/rulegraph/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) graph.Store {
	t.Helper()
	s := memgraph.New()
	t.Cleanup(func() { s.Close() })
	return s
}

func column(t *testing.T, s graph.Store, text, col string) []any {
	t.Helper()
	res, err := query.Run(context.Background(), s, text)
	require.NoError(t, err)
	var out []any
	for _, row := range res.Rows {
		out = append(out, row[col])
	}
	return out
}

func TestScanWritesTypesMethodsAndAnnotations(t *testing.T) {
	s := newStore(t)
	ids, err := New(s).Scan(context.Background(),
		TypeDescriptor{
			FQN:         "com.acme.OrderBean",
			Kind:        Class,
			Annotations: Annotate("javax.ejb.Stateless", "javax.ejb.Local"),
			Methods: []MethodDescriptor{
				{Name: "place", Signature: "void place(com.acme.Order)"},
				{
					Name:        "cleanup",
					Annotations: []AnnotationDescriptor{{Type: "javax.ejb.Schedule", Values: map[string]any{"hour": "*"}}},
				},
			},
		},
		TypeDescriptor{FQN: "com.acme.OrderService", Kind: Interface},
	)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	err = graph.View(context.Background(), s, func(tx graph.Tx) error {
		bean, err := tx.Node(ids[0])
		require.NoError(t, err)
		assert.Equal(t, []string{"Class", "Type"}, bean.Labels.Sorted())
		assert.Equal(t, "com.acme.OrderBean", bean.StringProp("fqn"))
		assert.Equal(t, "OrderBean", bean.StringProp("name"))

		service, err := tx.Node(ids[1])
		require.NoError(t, err)
		assert.True(t, service.HasLabel("Interface"))
		return nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []any{"javax.ejb.Local", "javax.ejb.Stateless"}, column(t, s, `
		MATCH (t:Type)-[:ANNOTATED_BY]->(:Annotation)-[:OF_TYPE]->(a:Type)
		WHERE t.fqn == "com.acme.OrderBean"
		RETURN a.fqn AS annotation`, "annotation"))

	assert.Equal(t, []any{"void place(com.acme.Order)", "cleanup()"}, column(t, s,
		`MATCH (:Class)-[:DECLARES]->(m:Method) RETURN m.signature AS sig`, "sig"))

	assert.Equal(t, []any{"*"}, column(t, s, `
		MATCH (m:Method)-[:ANNOTATED_BY]->(a:Annotation)-[:OF_TYPE]->(:Type)
		RETURN a.hour AS hour`, "hour"))
}

func TestReferencedTypesAreSharedAndUpgraded(t *testing.T) {
	s := newStore(t)
	sc := New(s)
	ctx := context.Background()

	_, err := sc.Scan(ctx,
		TypeDescriptor{FQN: "com.acme.A", Kind: Class, Annotations: Annotate("com.acme.Marker")},
		TypeDescriptor{FQN: "com.acme.B", Kind: Class, Annotations: Annotate("com.acme.Marker")},
	)
	require.NoError(t, err)
	assert.Equal(t, []any{"com.acme.Marker"}, column(t, s,
		`MATCH (t:Type) WHERE length(t.labels) == 1 RETURN t.fqn AS fqn`, "fqn"))

	ids, err := sc.Scan(ctx, TypeDescriptor{FQN: "com.acme.Marker", Kind: Annotation})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(ids[0])}, column(t, s,
		`MATCH (t:Type:Annotation) RETURN t.id AS id`, "id"), "the referenced node is reused")
	assert.Len(t, column(t, s, `MATCH (t:Type) RETURN t`, "t"), 3)
}

func TestScanRejectsInvalidInput(t *testing.T) {
	s := newStore(t)
	sc := New(s)
	ctx := context.Background()

	tests := []struct {
		name string
		desc TypeDescriptor
		want string
	}{
		{"missing name", TypeDescriptor{Kind: Class}, "type descriptor has no name"},
		{"unknown kind", TypeDescriptor{FQN: "a.B", Kind: "Record"}, `unknown kind "Record"`},
		{"nameless method", TypeDescriptor{FQN: "a.B", Kind: Class, Methods: []MethodDescriptor{{}}}, "method without name"},
		{"untyped annotation", TypeDescriptor{FQN: "a.B", Kind: Class, Annotations: []AnnotationDescriptor{{}}}, "annotation without type"},
		{"bad annotation value", TypeDescriptor{
			FQN: "a.B", Kind: Class,
			Annotations: []AnnotationDescriptor{{Type: "a.C", Values: map[string]any{"v": struct{}{}}}},
		}, `property "v"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sc.Scan(ctx, tc.desc)
			assert.ErrorContains(t, err, tc.want)
		})
	}
	assert.Empty(t, column(t, s, `MATCH (n) RETURN n`, "n"), "failed scans write nothing")

	t.Run("duplicate type", func(t *testing.T) {
		_, err := sc.Scan(ctx, TypeDescriptor{FQN: "a.B", Kind: Class})
		require.NoError(t, err)
		_, err = sc.Scan(ctx, TypeDescriptor{FQN: "a.B", Kind: Class})
		assert.ErrorContains(t, err, `type "a.B" is already scanned`)

		_, err = sc.Scan(ctx, TypeDescriptor{FQN: "x.Y", Kind: Class}, TypeDescriptor{FQN: "x.Y", Kind: Enum})
		assert.ErrorContains(t, err, `type "x.Y" is already scanned`)
	})
}

func TestSimpleName(t *testing.T) {
	assert.Equal(t, "OrderBean", SimpleName("com.acme.OrderBean"))
	assert.Equal(t, "Inner", SimpleName("com.acme.Outer$Inner"))
	assert.Equal(t, "Plain", SimpleName("Plain"))
}
