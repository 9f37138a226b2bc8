package query

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/specialistvlad/rulegraph/internal/graph"
	"github.com/zclconf/go-cty/cty"
)

// nodeValue renders a node as the object expressions see. The attributes id
// and labels shadow properties of the same name. Every name in referenced
// that the node lacks is present as null.
func nodeValue(n *graph.Node, referenced []string) cty.Value {
	attrs := make(map[string]cty.Value, len(n.Props)+len(referenced)+2)
	for _, name := range referenced {
		attrs[name] = cty.NullVal(cty.DynamicPseudoType)
	}
	for k, v := range n.Props {
		attrs[k] = propValue(v)
	}
	attrs["id"] = cty.NumberUIntVal(uint64(n.ID))
	attrs["labels"] = stringList(n.Labels.Sorted())
	return cty.ObjectVal(attrs)
}

func propValue(v any) cty.Value {
	switch x := v.(type) {
	case string:
		return cty.StringVal(x)
	case bool:
		return cty.BoolVal(x)
	case int64:
		return cty.NumberIntVal(x)
	case float64:
		return cty.NumberFloatVal(x)
	case []string:
		return stringList(x)
	default:
		return cty.NullVal(cty.DynamicPseudoType)
	}
}

func stringList(ss []string) cty.Value {
	if len(ss) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}

// goValue converts an evaluated expression into a plain Go value: nil,
// string, bool, int64, float64, []string, []any or map[string]any.
func goValue(v cty.Value) (any, error) {
	if !v.IsKnown() {
		return nil, errors.New("value is unknown")
	}
	if v.IsNull() {
		return nil, nil
	}

	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Bool:
		return v.True(), nil
	case t == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case t.IsListType() || t.IsSetType() || t.IsTupleType():
		out := make([]any, 0, v.LengthInt())
		strs := make([]string, 0, v.LengthInt())
		allStrings := true
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			gv, err := goValue(ev)
			if err != nil {
				return nil, err
			}
			s, ok := gv.(string)
			allStrings = allStrings && ok
			strs = append(strs, s)
			out = append(out, gv)
		}
		if allStrings {
			return strs, nil
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			gv, err := goValue(ev)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = gv
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", t.FriendlyName())
}
