package query

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/rulegraph/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullQuery(t *testing.T) {
	q, err := Parse(`
		MATCH (t:Type)-[:ANNOTATED_BY]->()-[:OF_TYPE]->(a:Type), (t)-[:DECLARES]->(m:Method)
		WHERE a.fqn == "javax.ejb.Schedule" && !has_label(t, "Ejb")
		SET t:Scheduled:Checked
		RETURN t AS bean, m.name AS method`)
	require.NoError(t, err)

	want := []Pattern{
		{
			Start: NodePattern{Var: "t", Labels: []string{"Type"}},
			Steps: []Step{
				{Rel: RelPattern{Type: "ANNOTATED_BY", Dir: graph.Outgoing}, Node: NodePattern{}},
				{Rel: RelPattern{Type: "OF_TYPE", Dir: graph.Outgoing}, Node: NodePattern{Var: "a", Labels: []string{"Type"}}},
			},
		},
		{
			Start: NodePattern{Var: "t"},
			Steps: []Step{
				{Rel: RelPattern{Type: "DECLARES", Dir: graph.Outgoing}, Node: NodePattern{Var: "m", Labels: []string{"Method"}}},
			},
		},
	}
	if diff := cmp.Diff(want, q.Patterns, cmpopts.IgnoreUnexported(NodePattern{})); diff != "" {
		t.Errorf("patterns mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"t", "a", "m"}, q.Variables())
	assert.NotNil(t, q.Where)
	assert.Equal(t, []LabelUpdate{{Var: "t", Labels: []string{"Scheduled", "Checked"}}}, q.Set)
	assert.False(t, q.ReadOnly())
	assert.Equal(t, []string{"bean", "method"}, q.Columns())
	assert.Equal(t, "t", q.Return[0].Var)
	assert.Equal(t, "", q.Return[1].Var)
	assert.Equal(t, []string{"fqn"}, q.attrs["a"])
	assert.Equal(t, []string{"name"}, q.attrs["m"])
	// Four slots: t, the anonymous annotation, a and m.
	assert.Equal(t, 4, q.slots)
}

func TestParseRelationshipForms(t *testing.T) {
	tests := []struct {
		name string
		text string
		want RelPattern
	}{
		{"outgoing typed", "MATCH (a)-[:X]->(b) RETURN a", RelPattern{Type: "X", Dir: graph.Outgoing}},
		{"incoming typed", "MATCH (a)<-[:X]-(b) RETURN a", RelPattern{Type: "X", Dir: graph.Incoming}},
		{"outgoing any", "MATCH (a)-[]->(b) RETURN a", RelPattern{Dir: graph.Outgoing}},
		{"outgoing short", "MATCH (a)-->(b) RETURN a", RelPattern{Dir: graph.Outgoing}},
		{"incoming short", "MATCH (a)<--(b) RETURN a", RelPattern{Dir: graph.Incoming}},
		{"spaces", "MATCH ( a ) - [ :X ] -> ( b ) RETURN a", RelPattern{Type: "X", Dir: graph.Outgoing}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Parse(tc.text)
			require.NoError(t, err)
			require.Len(t, q.Patterns, 1)
			require.Len(t, q.Patterns[0].Steps, 1)
			assert.Equal(t, tc.want, q.Patterns[0].Steps[0].Rel)
		})
	}
}

func TestParseKeywordsAreCaseInsensitive(t *testing.T) {
	q, err := Parse(`match (t:Type) where t.fqn == "a" set t:X return distinct t.fqn as name`)
	require.NoError(t, err)
	assert.True(t, q.Distinct)
	assert.Equal(t, []string{"name"}, q.Columns())
	assert.Len(t, q.Set, 1)
}

func TestParseKeywordsInsideStringsAreIgnored(t *testing.T) {
	q, err := Parse(`MATCH (t:Type) WHERE t.fqn == "x RETURN y SET z" RETURN t.fqn`)
	require.NoError(t, err)
	assert.Equal(t, []string{"t.fqn"}, q.Columns(), "default column name is the expression text")
	assert.Empty(t, q.Set)
}

func TestParseKeywordsAsAliases(t *testing.T) {
	q, err := Parse(`MATCH (t:Type) WHERE t.fqn != "" RETURN t.fqn AS set, t.name as match, t AS where`)
	require.NoError(t, err)
	assert.Equal(t, []string{"set", "match", "where"}, q.Columns())
	assert.True(t, q.ReadOnly())
	assert.Empty(t, q.Set)
}

func TestParseWithoutReturnProjectsNamedVariables(t *testing.T) {
	q, err := Parse(`MATCH (t:Type)-[:DECLARES]->(), (t)-[:DECLARES]->(m) SET t:X`)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "m"}, q.Columns())
	for _, p := range q.Return {
		assert.Equal(t, p.Name, p.Var)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantMsg string
	}{
		{"empty", "", "must start with MATCH"},
		{"no match", "RETURN 1", "must start with MATCH"},
		{"garbage before match", "FOO MATCH (a) RETURN a", "must start with MATCH"},
		{"clause order", "MATCH (a) RETURN a WHERE true", "unexpected WHERE clause"},
		{"repeated clause", "MATCH (a) MATCH (b) RETURN a", "unexpected MATCH clause"},
		{"empty clause", "MATCH (a) WHERE RETURN a", "empty WHERE clause"},
		{"unbalanced", "MATCH (a RETURN a", "unbalanced brackets"},
		{"unterminated string", `MATCH (a) WHERE a.x == "oops RETURN a`, "unterminated string"},
		{"missing node", "MATCH (a)-[:X]-> RETURN a", `expected "("`},
		{"undirected", "MATCH (a)-[:X]-(b) RETURN a", "undirected relationships"},
		{"both ways", "MATCH (a)<-[:X]->(b) RETURN a", "both ways"},
		{"relationship variable", "MATCH (a)-[r:X]->(b) RETURN a", "relationship variables"},
		{"missing label", "MATCH (a:) RETURN a", "expected label"},
		{"unbound in where", "MATCH (a) WHERE b.x == 1 RETURN a", `unbound variable "b"`},
		{"unbound in return", "MATCH (a) RETURN b.name", `unbound variable "b"`},
		{"unbound in set", "MATCH (a) SET b:X", `unbound variable "b"`},
		{"bad set item", "MATCH (a) SET a", "must be var:Label"},
		{"unknown function", "MATCH (a) WHERE nope(a) RETURN a", "unknown function nope"},
		{"bad hcl", "MATCH (a) WHERE a.x == == 1 RETURN a", ""},
		{"duplicate column", "MATCH (a) RETURN a.x AS c, a.y AS c", `duplicate column "c"`},
		{"trailing comma", "MATCH (a) RETURN a,", "empty list item"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.text)
			require.Error(t, err)
			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr), "expected *SyntaxError, got %T: %v", err, err)
			assert.Contains(t, syntaxErr.Msg, tc.wantMsg)
		})
	}
}

func TestSyntaxErrorOffsetPointsIntoClause(t *testing.T) {
	text := "MATCH (a) WHERE b.x == 1"
	_, err := Parse(text)
	var syntaxErr *SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, "b", text[syntaxErr.Offset:syntaxErr.Offset+1])
}

func TestWhereIsAnHCLExpression(t *testing.T) {
	q, err := Parse(`MATCH (a:Type) WHERE contains(["x", "y"], lower(a.fqn)) RETURN a`)
	require.NoError(t, err)
	vars := q.Where.Variables()
	require.Len(t, vars, 1)
	assert.Equal(t, "a", vars[0].RootName())
	_, ok := vars[0][1].(hcl.TraverseAttr)
	assert.True(t, ok)
}
