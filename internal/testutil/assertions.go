package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/specialistvlad/rulegraph/internal/graph"
	"github.com/stretchr/testify/require"
)

// FQNs runs text and returns the fqn property of the nodes in column, in
// row order.
func (h *Harness) FQNs(t *testing.T, text, column string) []string {
	t.Helper()

	res, err := h.App.Query(text)
	require.NoError(t, err)

	fqns := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		n, ok := row[column].(*graph.Node)
		require.True(t, ok, "column %q holds %T, not a node", column, row[column])
		fqns = append(fqns, n.StringProp("fqn"))
	}
	return fqns
}

// RuleExecutions counts how often the logs report the rule as finished.
func (h *Harness) RuleExecutions(name string) int {
	count := 0
	for _, line := range strings.Split(h.Logs.String(), "\n") {
		if strings.Contains(line, "Finished rule") && strings.Contains(line, fmt.Sprintf("rule=%s ", name)) {
			count++
		}
	}
	return count
}

// AssertRuleRan checks that the logs report the rule as finished at least once.
func (h *Harness) AssertRuleRan(t *testing.T, name string) {
	t.Helper()
	require.Positive(t, h.RuleExecutions(name), "expected rule %q to have finished", name)
}
