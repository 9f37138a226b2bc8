// Package graphtest holds the conformance suite every graph.Store
// implementation must pass.
package graphtest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/specialistvlad/rulegraph/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewStoreFunc returns a fresh, empty store. The suite closes it.
type NewStoreFunc func(t *testing.T) graph.Store

// RunStoreSuite runs every conformance test against stores built by newStore.
func RunStoreSuite(t *testing.T, newStore NewStoreFunc) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s graph.Store)
	}{
		{"CreateAndReadNode", testCreateAndReadNode},
		{"IdsAscend", testIdsAscend},
		{"NodesByLabel", testNodesByLabel},
		{"Relationships", testRelationships},
		{"AddLabelsIsIdempotent", testAddLabelsIsIdempotent},
		{"ReadYourWrites", testReadYourWrites},
		{"RollbackDiscardsWrites", testRollbackDiscardsWrites},
		{"UncommittedWritesAreIsolated", testUncommittedWritesAreIsolated},
		{"ReadOnlyRejectsWrites", testReadOnlyRejectsWrites},
		{"FinishedTxRejectsEverything", testFinishedTxRejectsEverything},
		{"MissingNodes", testMissingNodes},
		{"UpdateHelper", testUpdateHelper},
		{"ConcurrentReaders", testConcurrentReaders},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tc.fn(t, s)
		})
	}

	t.Run("ClosedStore", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())
		_, err := s.Begin(context.Background(), false)
		assert.True(t, errors.Is(err, graph.ErrStoreClosed), "got %v", err)
	})
}

func mustCreate(t *testing.T, tx graph.Tx, labels []string, props map[string]any) graph.NodeID {
	t.Helper()
	id, err := tx.CreateNode(labels, props)
	require.NoError(t, err)
	return id
}

func testCreateAndReadNode(t *testing.T, s graph.Store) {
	ctx := context.Background()
	var id graph.NodeID
	err := graph.Update(ctx, s, func(tx graph.Tx) error {
		id = mustCreate(t, tx, []string{"Type", "Class"}, map[string]any{
			"fqn":      "com.acme.Bean",
			"modifier": 1,
			"weight":   0.5,
			"abstract": false,
			"tags":     []string{"a", "b"},
		})
		return nil
	})
	require.NoError(t, err)

	err = graph.View(ctx, s, func(tx graph.Tx) error {
		n, err := tx.Node(id)
		require.NoError(t, err)
		assert.Equal(t, id, n.ID)
		assert.Equal(t, []string{"Class", "Type"}, n.Labels.Sorted())
		assert.Equal(t, "com.acme.Bean", n.Props["fqn"])
		assert.Equal(t, int64(1), n.Props["modifier"])
		assert.Equal(t, 0.5, n.Props["weight"])
		assert.Equal(t, false, n.Props["abstract"])
		assert.Equal(t, []string{"a", "b"}, n.Props["tags"])

		// Snapshots are detached from the store.
		n.Labels.Add("Mutated")
		again, err := tx.Node(id)
		require.NoError(t, err)
		assert.False(t, again.HasLabel("Mutated"))
		return nil
	})
	require.NoError(t, err)
}

func testIdsAscend(t *testing.T, s graph.Store) {
	ctx := context.Background()
	var ids []graph.NodeID
	for i := 0; i < 3; i++ {
		err := graph.Update(ctx, s, func(tx graph.Tx) error {
			ids = append(ids, mustCreate(t, tx, []string{"Type"}, nil))
			ids = append(ids, mustCreate(t, tx, []string{"Type"}, nil))
			return nil
		})
		require.NoError(t, err)
	}
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}

	err := graph.View(ctx, s, func(tx graph.Tx) error {
		all, err := tx.AllNodes()
		require.NoError(t, err)
		assert.Equal(t, ids, all)
		return nil
	})
	require.NoError(t, err)
}

func testNodesByLabel(t *testing.T, s graph.Store) {
	ctx := context.Background()
	var a, b, m graph.NodeID
	err := graph.Update(ctx, s, func(tx graph.Tx) error {
		a = mustCreate(t, tx, []string{"Type", "Class"}, nil)
		m = mustCreate(t, tx, []string{"Method"}, nil)
		b = mustCreate(t, tx, []string{"Type", "Interface"}, nil)
		return nil
	})
	require.NoError(t, err)

	err = graph.View(ctx, s, func(tx graph.Tx) error {
		types, err := tx.NodesByLabel("Type")
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{a, b}, types)

		methods, err := tx.NodesByLabel("Method")
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{m}, methods)

		none, err := tx.NodesByLabel("Nope")
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	})
	require.NoError(t, err)
}

func testRelationships(t *testing.T, s graph.Store) {
	ctx := context.Background()
	var typ, m1, m2, ann graph.NodeID
	err := graph.Update(ctx, s, func(tx graph.Tx) error {
		typ = mustCreate(t, tx, []string{"Type"}, nil)
		m1 = mustCreate(t, tx, []string{"Method"}, nil)
		m2 = mustCreate(t, tx, []string{"Method"}, nil)
		ann = mustCreate(t, tx, []string{"Annotation"}, nil)
		require.NoError(t, tx.CreateRelationship(typ, "DECLARES", m2))
		require.NoError(t, tx.CreateRelationship(typ, "DECLARES", m1))
		require.NoError(t, tx.CreateRelationship(typ, "DECLARES", m1)) // duplicate
		require.NoError(t, tx.CreateRelationship(typ, "ANNOTATED_BY", ann))
		require.NoError(t, tx.CreateRelationship(m1, "ANNOTATED_BY", ann))
		return nil
	})
	require.NoError(t, err)

	err = graph.View(ctx, s, func(tx graph.Tx) error {
		declared, err := tx.Neighbors(typ, "DECLARES", graph.Outgoing)
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{m1, m2}, declared)

		anyType, err := tx.Neighbors(typ, "", graph.Outgoing)
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{m1, m2, ann}, anyType)

		annotated, err := tx.Neighbors(ann, "ANNOTATED_BY", graph.Incoming)
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{typ, m1}, annotated)

		declarer, err := tx.Neighbors(m2, "DECLARES", graph.Incoming)
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{typ}, declarer)

		none, err := tx.Neighbors(m2, "DECLARES", graph.Outgoing)
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	})
	require.NoError(t, err)
}

func testAddLabelsIsIdempotent(t *testing.T, s graph.Store) {
	ctx := context.Background()
	var id graph.NodeID
	require.NoError(t, graph.Update(ctx, s, func(tx graph.Tx) error {
		id = mustCreate(t, tx, []string{"Type"}, nil)
		return nil
	}))

	for i, want := range []int{2, 0} {
		err := graph.Update(ctx, s, func(tx graph.Tx) error {
			added, err := tx.AddLabels(id, "Stateless", "Ejb", "Type")
			require.NoError(t, err)
			assert.Equal(t, want, added, "round %d", i)
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, graph.View(ctx, s, func(tx graph.Tx) error {
		n, err := tx.Node(id)
		require.NoError(t, err)
		assert.Equal(t, []string{"Ejb", "Stateless", "Type"}, n.Labels.Sorted())

		ejbs, err := tx.NodesByLabel("Ejb")
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{id}, ejbs)
		return nil
	}))
}

func testReadYourWrites(t *testing.T, s graph.Store) {
	ctx := context.Background()
	var existing graph.NodeID
	require.NoError(t, graph.Update(ctx, s, func(tx graph.Tx) error {
		existing = mustCreate(t, tx, []string{"Type"}, nil)
		return nil
	}))

	require.NoError(t, graph.Update(ctx, s, func(tx graph.Tx) error {
		fresh := mustCreate(t, tx, []string{"Type"}, map[string]any{"fqn": "x.Y"})
		require.NoError(t, tx.CreateRelationship(existing, "DECLARES", fresh))
		_, err := tx.AddLabels(existing, "Ejb")
		require.NoError(t, err)

		types, err := tx.NodesByLabel("Type")
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{existing, fresh}, types)

		ejbs, err := tx.NodesByLabel("Ejb")
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{existing}, ejbs)

		n, err := tx.Node(existing)
		require.NoError(t, err)
		assert.True(t, n.HasLabel("Ejb"))

		out, err := tx.Neighbors(existing, "DECLARES", graph.Outgoing)
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{fresh}, out)
		return nil
	}))
}

func testRollbackDiscardsWrites(t *testing.T, s graph.Store) {
	ctx := context.Background()
	var id graph.NodeID
	require.NoError(t, graph.Update(ctx, s, func(tx graph.Tx) error {
		id = mustCreate(t, tx, []string{"Type"}, nil)
		return nil
	}))

	boom := errors.New("boom")
	err := graph.Update(ctx, s, func(tx graph.Tx) error {
		_, err := tx.AddLabels(id, "Ejb")
		require.NoError(t, err)
		other := mustCreate(t, tx, []string{"Type"}, nil)
		require.NoError(t, tx.CreateRelationship(id, "DECLARES", other))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, graph.View(ctx, s, func(tx graph.Tx) error {
		n, err := tx.Node(id)
		require.NoError(t, err)
		assert.False(t, n.HasLabel("Ejb"))

		all, err := tx.AllNodes()
		require.NoError(t, err)
		assert.Equal(t, []graph.NodeID{id}, all)

		ejbs, err := tx.NodesByLabel("Ejb")
		require.NoError(t, err)
		assert.Empty(t, ejbs)

		out, err := tx.Neighbors(id, "", graph.Outgoing)
		require.NoError(t, err)
		assert.Empty(t, out)
		return nil
	}))
}

func testUncommittedWritesAreIsolated(t *testing.T, s graph.Store) {
	ctx := context.Background()
	var id graph.NodeID
	require.NoError(t, graph.Update(ctx, s, func(tx graph.Tx) error {
		id = mustCreate(t, tx, []string{"Type"}, nil)
		return nil
	}))

	wtx, err := s.Begin(ctx, true)
	require.NoError(t, err)
	defer wtx.Rollback()
	_, err = wtx.AddLabels(id, "Ejb")
	require.NoError(t, err)

	require.NoError(t, graph.View(ctx, s, func(tx graph.Tx) error {
		n, err := tx.Node(id)
		require.NoError(t, err)
		assert.False(t, n.HasLabel("Ejb"), "uncommitted label leaked to another transaction")
		return nil
	}))

	require.NoError(t, wtx.Commit())

	require.NoError(t, graph.View(ctx, s, func(tx graph.Tx) error {
		n, err := tx.Node(id)
		require.NoError(t, err)
		assert.True(t, n.HasLabel("Ejb"))
		return nil
	}))
}

func testReadOnlyRejectsWrites(t *testing.T, s graph.Store) {
	ctx := context.Background()
	var id graph.NodeID
	require.NoError(t, graph.Update(ctx, s, func(tx graph.Tx) error {
		id = mustCreate(t, tx, []string{"Type"}, nil)
		return nil
	}))

	require.NoError(t, graph.View(ctx, s, func(tx graph.Tx) error {
		_, err := tx.CreateNode([]string{"Type"}, nil)
		assert.ErrorIs(t, err, graph.ErrReadOnly)
		assert.ErrorIs(t, tx.CreateRelationship(id, "DECLARES", id), graph.ErrReadOnly)
		_, err = tx.AddLabels(id, "Ejb")
		assert.ErrorIs(t, err, graph.ErrReadOnly)
		return nil
	}))
}

func testFinishedTxRejectsEverything(t *testing.T, s graph.Store) {
	ctx := context.Background()
	tx, err := s.Begin(ctx, true)
	require.NoError(t, err)
	id := mustCreate(t, tx, []string{"Type"}, nil)
	require.NoError(t, tx.Commit())

	_, err = tx.Node(id)
	assert.ErrorIs(t, err, graph.ErrTxDone)
	_, err = tx.CreateNode(nil, nil)
	assert.ErrorIs(t, err, graph.ErrTxDone)
	_, err = tx.AllNodes()
	assert.ErrorIs(t, err, graph.ErrTxDone)
	assert.ErrorIs(t, tx.Commit(), graph.ErrTxDone)
	assert.NoError(t, tx.Rollback(), "rollback after commit is a no-op")

	tx, err = s.Begin(ctx, false)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	_, err = tx.NodesByLabel("Type")
	assert.ErrorIs(t, err, graph.ErrTxDone)
}

func testMissingNodes(t *testing.T, s graph.Store) {
	ctx := context.Background()
	require.NoError(t, graph.Update(ctx, s, func(tx graph.Tx) error {
		id := mustCreate(t, tx, []string{"Type"}, nil)

		_, err := tx.Node(id + 100)
		assert.ErrorIs(t, err, graph.ErrNodeNotFound)
		assert.ErrorIs(t, tx.CreateRelationship(id, "DECLARES", id+100), graph.ErrNodeNotFound)
		assert.ErrorIs(t, tx.CreateRelationship(id+100, "DECLARES", id), graph.ErrNodeNotFound)
		_, err = tx.AddLabels(id+100, "Ejb")
		assert.ErrorIs(t, err, graph.ErrNodeNotFound)
		_, err = tx.Neighbors(id+100, "", graph.Outgoing)
		assert.ErrorIs(t, err, graph.ErrNodeNotFound)

		_, err = tx.CreateNode([]string{"Type"}, map[string]any{"bad": struct{}{}})
		assert.ErrorIs(t, err, graph.ErrInvalidProperty)
		return nil
	}))
}

func testUpdateHelper(t *testing.T, s graph.Store) {
	ctx := context.Background()
	var id graph.NodeID
	err := graph.Update(ctx, s, func(tx graph.Tx) error {
		var err error
		id, err = tx.CreateNode([]string{"Type"}, nil)
		return err
	})
	require.NoError(t, err)

	err = graph.View(ctx, s, func(tx graph.Tx) error {
		_, err := tx.Node(id)
		return err
	})
	assert.NoError(t, err)
}

func testConcurrentReaders(t *testing.T, s graph.Store) {
	ctx := context.Background()
	require.NoError(t, graph.Update(ctx, s, func(tx graph.Tx) error {
		for i := 0; i < 20; i++ {
			mustCreate(t, tx, []string{"Type"}, map[string]any{"n": i})
		}
		return nil
	}))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- graph.View(ctx, s, func(tx graph.Tx) error {
				ids, err := tx.NodesByLabel("Type")
				if err != nil {
					return err
				}
				if len(ids) != 20 {
					return errors.New("reader saw a partial graph")
				}
				return nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
