package query

import (
	"regexp"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions are the functions WHERE and RETURN expressions may call.
var functions = map[string]function.Function{
	"has_label": hasLabelFunc,
	"contains":  stdlib.ContainsFunc,
	"length":    lengthFunc,
	"lower":     stdlib.LowerFunc,
	"upper":     stdlib.UpperFunc,
	"matches":   matchesFunc,
}

// hasLabelFunc reports whether a node variable carries a label.
var hasLabelFunc = function.New(&function.Spec{
	Description: "Returns true if the node carries the given label.",
	Params: []function.Parameter{
		{Name: "node", Type: cty.DynamicPseudoType},
		{Name: "label", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		n := args[0]
		if !n.Type().IsObjectType() || !n.Type().HasAttribute("labels") {
			return cty.NilVal, function.NewArgErrorf(0, "has_label expects a node variable, got %s", n.Type().FriendlyName())
		}
		want := args[1].AsString()
		for it := n.GetAttr("labels").ElementIterator(); it.Next(); {
			_, label := it.Element()
			if label.AsString() == want {
				return cty.True, nil
			}
		}
		return cty.False, nil
	},
})

// lengthFunc counts the characters of a string or the elements of a
// collection. Null has no length and yields null.
var lengthFunc = function.New(&function.Spec{
	Description: "Returns the number of characters in a string or elements in a collection.",
	Params: []function.Parameter{
		{Name: "value", Type: cty.DynamicPseudoType, AllowNull: true, AllowDynamicType: true},
	},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		v := args[0]
		switch {
		case v.IsNull():
			return cty.NullVal(cty.Number), nil
		case v.Type() == cty.String:
			return stdlib.Strlen(v)
		default:
			return stdlib.Length(v)
		}
	},
})

// matchesFunc reports whether a string matches an RE2 regular expression.
// Unlike regex from the stdlib package it returns a bool instead of failing
// when nothing matches.
var matchesFunc = function.New(&function.Spec{
	Description: "Returns true if str matches the regular expression pattern.",
	Params: []function.Parameter{
		{Name: "str", Type: cty.String},
		{Name: "pattern", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		re, err := regexp.Compile(args[1].AsString())
		if err != nil {
			return cty.NilVal, function.NewArgErrorf(1, "invalid regular expression: %s", err)
		}
		return cty.BoolVal(re.MatchString(args[0].AsString())), nil
	},
})
