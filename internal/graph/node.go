package graph

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// NodeID identifies a node for the lifetime of a store. Ids are assigned in
// ascending order of creation and are never reused.
type NodeID uint64

func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Labels is a set of node labels.
type Labels map[string]struct{}

// NewLabels returns a set holding the given labels. Duplicates collapse.
func NewLabels(labels ...string) Labels {
	l := make(Labels, len(labels))
	for _, label := range labels {
		l[label] = struct{}{}
	}
	return l
}

// Add inserts the label and reports whether it was not present before.
func (l Labels) Add(label string) bool {
	if _, ok := l[label]; ok {
		return false
	}
	l[label] = struct{}{}
	return true
}

// Has reports whether the label is in the set.
func (l Labels) Has(label string) bool {
	_, ok := l[label]
	return ok
}

// HasAll reports whether every given label is in the set.
func (l Labels) HasAll(labels ...string) bool {
	for _, label := range labels {
		if !l.Has(label) {
			return false
		}
	}
	return true
}

// Sorted returns the labels in lexical order.
func (l Labels) Sorted() []string {
	return slices.Sorted(maps.Keys(l))
}

func (l Labels) Clone() Labels {
	return maps.Clone(l)
}

// Node is a snapshot of a graph node. Changing it does not change the store.
type Node struct {
	ID     NodeID
	Labels Labels
	Props  map[string]any
}

// HasLabel reports whether the node carries the label.
func (n *Node) HasLabel(label string) bool {
	return n.Labels.Has(label)
}

// StringProp returns a string property, or "" when it is absent or not a
// string.
func (n *Node) StringProp(key string) string {
	s, _ := n.Props[key].(string)
	return s
}

// String renders the node as `(#id:Label:Label)`.
func (n *Node) String() string {
	var b strings.Builder
	b.WriteString("(#")
	b.WriteString(n.ID.String())
	for _, label := range n.Labels.Sorted() {
		b.WriteByte(':')
		b.WriteString(label)
	}
	b.WriteByte(')')
	return b.String()
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := &Node{
		ID:     n.ID,
		Labels: n.Labels.Clone(),
		Props:  make(map[string]any, len(n.Props)),
	}
	for k, v := range n.Props {
		if ss, ok := v.([]string); ok {
			v = slices.Clone(ss)
		}
		c.Props[k] = v
	}
	return c
}

// NormalizeProps converts property values to the canonical types a store
// holds: integers become int64, floats become float64 and []any of strings
// becomes []string. Any other type fails with ErrInvalidProperty.
func NormalizeProps(props map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(props))
	for k, v := range props {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		return uintValue(uint64(x))
	case uint64:
		return uintValue(x)
	case float32:
		return float64(x), nil
	case []string:
		return slices.Clone(x), nil
	case []any:
		ss := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: list element of type %T", ErrInvalidProperty, item)
			}
			ss = append(ss, s)
		}
		return ss, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidProperty, v)
	}
}

func uintValue(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d overflows int64", ErrInvalidProperty, u)
	}
	return int64(u), nil
}
