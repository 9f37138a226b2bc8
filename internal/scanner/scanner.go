package scanner

import (
	"context"
	"fmt"

	"github.com/specialistvlad/rulegraph/internal/ctxlog"
	"github.com/specialistvlad/rulegraph/internal/graph"
)

// Scanner writes descriptors into a store.
type Scanner struct {
	store graph.Store
}

// New creates a Scanner for store.
func New(store graph.Store) *Scanner {
	return &Scanner{store: store}
}

// Scan writes the descriptors in one transaction and returns the node ids of
// the scanned types in descriptor order. Nothing is written if any
// descriptor is invalid or a type was already scanned.
func (s *Scanner) Scan(ctx context.Context, descs ...TypeDescriptor) ([]graph.NodeID, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Scan: Starting.", "types", len(descs))

	for i := range descs {
		if err := descs[i].validate(); err != nil {
			return nil, err
		}
	}

	var ids []graph.NodeID
	err := graph.Update(ctx, s.store, func(tx graph.Tx) error {
		w, err := newWriter(tx)
		if err != nil {
			return err
		}
		logger.Debug("Scan: Loaded existing types.", "count", len(w.types))

		// First pass: every scanned type gets its node, so references between
		// the scanned types resolve to them regardless of order.
		for _, d := range descs {
			id, err := w.declare(d.FQN, d.Kind)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		// Second pass: members and annotations.
		for i, d := range descs {
			if err := w.annotate(ids[i], d.Annotations); err != nil {
				return fmt.Errorf("type %q: %w", d.FQN, err)
			}
			for _, m := range d.Methods {
				if err := w.method(ids[i], m); err != nil {
					return fmt.Errorf("method %s.%s: %w", d.FQN, m.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	logger.Info("Scan: Types written.", "types", len(ids))
	return ids, nil
}

// writer keeps the fqn index for one scan transaction.
type writer struct {
	tx    graph.Tx
	types map[string]graph.NodeID
	// scanned holds the types this scan declared.
	scanned map[graph.NodeID]bool
}

func newWriter(tx graph.Tx) (*writer, error) {
	w := &writer{tx: tx, types: make(map[string]graph.NodeID), scanned: make(map[graph.NodeID]bool)}

	existing, err := tx.NodesByLabel(LabelType)
	if err != nil {
		return nil, err
	}
	for _, id := range existing {
		n, err := tx.Node(id)
		if err != nil {
			return nil, err
		}
		if fqn := n.StringProp("fqn"); fqn != "" {
			w.types[fqn] = id
		}
	}
	return w, nil
}

// declare returns the node of a scanned type, creating it or upgrading a
// referenced-only node.
func (w *writer) declare(fqn string, kind TypeKind) (graph.NodeID, error) {
	id, ok := w.types[fqn]
	if !ok {
		id, err := w.tx.CreateNode([]string{LabelType, string(kind)}, typeProps(fqn))
		if err != nil {
			return 0, err
		}
		w.types[fqn] = id
		w.scanned[id] = true
		return id, nil
	}

	n, err := w.tx.Node(id)
	if err != nil {
		return 0, err
	}
	if w.scanned[id] || n.HasLabel(string(Class)) || n.HasLabel(string(Interface)) ||
		n.HasLabel(string(Annotation)) || n.HasLabel(string(Enum)) {
		return 0, fmt.Errorf("type %q is already scanned", fqn)
	}
	if _, err := w.tx.AddLabels(id, string(kind)); err != nil {
		return 0, err
	}
	w.scanned[id] = true
	return id, nil
}

// reference returns the node of a type, creating a plain Type node when it
// is unknown.
func (w *writer) reference(fqn string) (graph.NodeID, error) {
	if id, ok := w.types[fqn]; ok {
		return id, nil
	}
	id, err := w.tx.CreateNode([]string{LabelType}, typeProps(fqn))
	if err != nil {
		return 0, err
	}
	w.types[fqn] = id
	return id, nil
}

func (w *writer) method(owner graph.NodeID, m MethodDescriptor) error {
	sig := m.Signature
	if sig == "" {
		sig = m.Name + "()"
	}
	id, err := w.tx.CreateNode([]string{LabelMethod}, map[string]any{"name": m.Name, "signature": sig})
	if err != nil {
		return err
	}
	if err := w.tx.CreateRelationship(owner, RelDeclares, id); err != nil {
		return err
	}
	return w.annotate(id, m.Annotations)
}

func (w *writer) annotate(target graph.NodeID, annotations []AnnotationDescriptor) error {
	for _, a := range annotations {
		typ, err := w.reference(a.Type)
		if err != nil {
			return err
		}
		id, err := w.tx.CreateNode([]string{LabelAnnotation}, a.Values)
		if err != nil {
			return fmt.Errorf("annotation %q: %w", a.Type, err)
		}
		if err := w.tx.CreateRelationship(target, RelAnnotatedBy, id); err != nil {
			return err
		}
		if err := w.tx.CreateRelationship(id, RelOfType, typ); err != nil {
			return err
		}
	}
	return nil
}

func typeProps(fqn string) map[string]any {
	return map[string]any{"fqn": fqn, "name": SimpleName(fqn)}
}
