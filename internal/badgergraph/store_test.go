package badgergraph

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/specialistvlad/rulegraph/internal/graph"
	"github.com/specialistvlad/rulegraph/internal/graph/graphtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSuite(t *testing.T) {
	graphtest.RunStoreSuite(t, func(t *testing.T) graph.Store {
		s, err := Open(InMemoryConfig())
		require.NoError(t, err)
		return s
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorContains(t, err, "path is required")
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cfg := DefaultConfig(dir)
	cfg.SyncWrites = false
	s, err := Open(cfg)
	require.NoError(t, err)

	var typ, method graph.NodeID
	require.NoError(t, graph.Update(ctx, s, func(tx graph.Tx) error {
		typ, err = tx.CreateNode([]string{"Type", "Class"}, map[string]any{"fqn": "com.acme.Bean"})
		require.NoError(t, err)
		method, err = tx.CreateNode([]string{"Method"}, map[string]any{"name": "run"})
		require.NoError(t, err)
		return tx.CreateRelationship(typ, "DECLARES", method)
	}))
	require.NoError(t, s.Close())

	s, err = Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, graph.View(ctx, s, func(tx graph.Tx) error {
		n, err := tx.Node(typ)
		require.NoError(t, err)
		assert.Equal(t, "com.acme.Bean", n.StringProp("fqn"))
		assert.True(t, n.Labels.HasAll("Type", "Class"))

		declared, err := tx.Neighbors(typ, "DECLARES", graph.Outgoing)
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{method}, declared)
		return nil
	}))

	// The id sequence resumes after the ids handed out before the restart.
	require.NoError(t, graph.Update(ctx, s, func(tx graph.Tx) error {
		next, err := tx.CreateNode([]string{"Type"}, nil)
		require.NoError(t, err)
		assert.Greater(t, next, method)
		return nil
	}))
}

func TestKeysSortByID(t *testing.T) {
	low := labelKey("Type", 2)
	high := labelKey("Type", 256)
	assert.Equal(t, -1, bytes.Compare(low, high))
	assert.Equal(t, graph.NodeID(256), trailingID(high))

	typed := adjacencyScanPrefix(graph.Outgoing, 5, "DECLARES")
	assert.True(t, bytes.HasPrefix(adjacencyKey(graph.Outgoing, 5, "DECLARES", 9), typed))
	assert.False(t, bytes.HasPrefix(adjacencyKey(graph.Outgoing, 5, "DECLARES_ALSO", 9), typed))
}

func TestBadgerLoggerForwardsToSlog(t *testing.T) {
	var buf bytes.Buffer
	l := &badgerLogger{logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	l.Warningf("value log %d", 3)
	assert.Contains(t, buf.String(), "value log 3")
	assert.Contains(t, buf.String(), "level=WARN")
}
