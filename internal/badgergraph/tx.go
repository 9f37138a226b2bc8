package badgergraph

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/specialistvlad/rulegraph/internal/graph"
	"github.com/vmihailenco/msgpack/v5"
)

// nodeRecord is the stored form of a node.
type nodeRecord struct {
	Labels []string       `msgpack:"labels"`
	Props  map[string]any `msgpack:"props"`
}

type tx struct {
	s        *Store
	txn      *badger.Txn
	writable bool
	done     bool
}

var _ graph.Tx = (*tx)(nil)

func (t *tx) check(write bool) error {
	if t.done {
		return graph.ErrTxDone
	}
	if write && !t.writable {
		return graph.ErrReadOnly
	}
	return nil
}

func (t *tx) CreateNode(labels []string, props map[string]any) (graph.NodeID, error) {
	if err := t.check(true); err != nil {
		return 0, err
	}
	normalized, err := graph.NormalizeProps(props)
	if err != nil {
		return 0, err
	}
	id, err := t.s.nextID()
	if err != nil {
		return 0, err
	}

	set := graph.NewLabels(labels...)
	if err := t.put(id, &nodeRecord{Labels: set.Sorted(), Props: normalized}); err != nil {
		return 0, err
	}
	for label := range set {
		if err := t.txn.Set(labelKey(label, id), nil); err != nil {
			return 0, fmt.Errorf("index label %q: %w", label, err)
		}
	}
	return id, nil
}

func (t *tx) CreateRelationship(from graph.NodeID, typ string, to graph.NodeID) error {
	if err := t.check(true); err != nil {
		return err
	}
	if typ == "" {
		return errors.New("relationship type must not be empty")
	}
	for _, id := range []graph.NodeID{from, to} {
		if _, err := t.load(id); err != nil {
			return fmt.Errorf("relationship endpoint: %w", err)
		}
	}

	if err := t.txn.Set(adjacencyKey(graph.Outgoing, from, typ, to), nil); err != nil {
		return fmt.Errorf("write relationship: %w", err)
	}
	if err := t.txn.Set(adjacencyKey(graph.Incoming, to, typ, from), nil); err != nil {
		return fmt.Errorf("write relationship: %w", err)
	}
	return nil
}

func (t *tx) Node(id graph.NodeID) (*graph.Node, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	rec, err := t.load(id)
	if err != nil {
		return nil, err
	}
	props, err := graph.NormalizeProps(rec.Props)
	if err != nil {
		return nil, fmt.Errorf("decode node %s: %w", id, err)
	}
	return &graph.Node{ID: id, Labels: graph.NewLabels(rec.Labels...), Props: props}, nil
}

func (t *tx) NodesByLabel(label string) ([]graph.NodeID, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	return t.scanIDs(labelScanPrefix(label)), nil
}

func (t *tx) AllNodes() ([]graph.NodeID, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	return t.scanIDs([]byte(nodePrefix)), nil
}

func (t *tx) Neighbors(id graph.NodeID, typ string, dir graph.Direction) ([]graph.NodeID, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	if _, err := t.load(id); err != nil {
		return nil, err
	}

	ids := t.scanIDs(adjacencyScanPrefix(dir, id, typ))
	if typ == "" {
		// Peers are only ordered within one relationship type.
		slices.Sort(ids)
		ids = slices.Compact(ids)
	}
	return ids, nil
}

func (t *tx) AddLabels(id graph.NodeID, labels ...string) (int, error) {
	if err := t.check(true); err != nil {
		return 0, err
	}
	rec, err := t.load(id)
	if err != nil {
		return 0, err
	}

	set := graph.NewLabels(rec.Labels...)
	added := 0
	for _, label := range labels {
		if !set.Add(label) {
			continue
		}
		added++
		if err := t.txn.Set(labelKey(label, id), nil); err != nil {
			return 0, fmt.Errorf("index label %q: %w", label, err)
		}
	}
	if added == 0 {
		return 0, nil
	}

	rec.Labels = set.Sorted()
	if err := t.put(id, rec); err != nil {
		return 0, err
	}
	return added, nil
}

func (t *tx) Commit() error {
	if t.done {
		return graph.ErrTxDone
	}
	t.done = true
	if !t.writable {
		t.txn.Discard()
		return nil
	}
	if err := t.txn.Commit(); err != nil {
		return fmt.Errorf("commit graph transaction: %w", err)
	}
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.txn.Discard()
	return nil
}

func (t *tx) load(id graph.NodeID) (*nodeRecord, error) {
	item, err := t.txn.Get(nodeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("node %s: %w", id, graph.ErrNodeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read node %s: %w", id, err)
	}

	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("read node %s: %w", id, err)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	var rec nodeRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode node %s: %w", id, err)
	}
	return &rec, nil
}

func (t *tx) put(id graph.NodeID, rec *nodeRecord) error {
	raw, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode node %s: %w", id, err)
	}
	if err := t.txn.Set(nodeKey(id), raw); err != nil {
		return fmt.Errorf("write node %s: %w", id, err)
	}
	return nil
}

// scanIDs collects the trailing ids of every key under prefix. Keys only, so
// values are never fetched.
func (t *tx) scanIDs(prefix []byte) []graph.NodeID {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := t.txn.NewIterator(opts)
	defer it.Close()

	var ids []graph.NodeID
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		ids = append(ids, trailingID(it.Item().Key()))
	}
	return ids
}
