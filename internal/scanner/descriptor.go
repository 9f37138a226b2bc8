package scanner

import (
	"fmt"
	"strings"
)

// TypeKind is the kind of a scanned type. It becomes a node label.
type TypeKind string

const (
	Class      TypeKind = "Class"
	Interface  TypeKind = "Interface"
	Annotation TypeKind = "Annotation"
	Enum       TypeKind = "Enum"
)

func (k TypeKind) valid() bool {
	switch k {
	case Class, Interface, Annotation, Enum:
		return true
	}
	return false
}

// Node labels and relationship types written by the scanner.
const (
	LabelType       = "Type"
	LabelMethod     = "Method"
	LabelAnnotation = "Annotation"

	RelDeclares    = "DECLARES"
	RelAnnotatedBy = "ANNOTATED_BY"
	RelOfType      = "OF_TYPE"
)

// TypeDescriptor describes one scanned type.
type TypeDescriptor struct {
	// FQN is the fully qualified name, e.g. "com.acme.OrderBean".
	FQN         string
	Kind        TypeKind
	Annotations []AnnotationDescriptor
	Methods     []MethodDescriptor
}

// MethodDescriptor describes a method declared by a type.
type MethodDescriptor struct {
	Name        string
	Signature   string
	Annotations []AnnotationDescriptor
}

// AnnotationDescriptor describes one annotation usage. Values become
// properties of the annotation node.
type AnnotationDescriptor struct {
	// Type is the fully qualified name of the annotation type.
	Type   string
	Values map[string]any
}

// Annotate is shorthand for annotation usages without values.
func Annotate(types ...string) []AnnotationDescriptor {
	out := make([]AnnotationDescriptor, len(types))
	for i, t := range types {
		out[i] = AnnotationDescriptor{Type: t}
	}
	return out
}

// SimpleName returns the part of a qualified name after the last dot or
// '$'.
func SimpleName(fqn string) string {
	if i := strings.LastIndexAny(fqn, ".$"); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}

func (d *TypeDescriptor) validate() error {
	if d.FQN == "" {
		return fmt.Errorf("type descriptor has no name")
	}
	if !d.Kind.valid() {
		return fmt.Errorf("type %q: unknown kind %q", d.FQN, d.Kind)
	}
	for _, a := range d.Annotations {
		if a.Type == "" {
			return fmt.Errorf("type %q: annotation without type", d.FQN)
		}
	}
	for _, m := range d.Methods {
		if m.Name == "" {
			return fmt.Errorf("type %q: method without name", d.FQN)
		}
		for _, a := range m.Annotations {
			if a.Type == "" {
				return fmt.Errorf("method %s.%s: annotation without type", d.FQN, m.Name)
			}
		}
	}
	return nil
}
