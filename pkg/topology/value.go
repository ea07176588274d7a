package topology

import (
	"strings"
)

type Attr string

const (
	AttrName Attr = "Name"
	AttrArn  Attr = "Arn"
	AttrUri  Attr = "Uri"
	AttrId   Attr = "Id"
)

// Ref points at an attribute of a declared resource. It carries no behavior of its own;
// resolution happens once every resource has been declared.
type Ref struct {
	Target string
	Attr   Attr
}

func (r Ref) String() string {
	return r.Target + "." + string(r.Attr)
}

type Part struct {
	Literal string
	Ref     *Ref
}

// Value is a string expression made of literal parts and attribute references.
type Value struct {
	Parts []Part
}

func Lit(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{Parts: []Part{{Literal: s}}}
}

func Attribute(target string, attr Attr) Value {
	return Value{Parts: []Part{{Ref: &Ref{Target: target, Attr: attr}}}}
}

// Join concatenates values, merging adjacent literals.
func Join(values ...Value) Value {
	var joined Value
	for _, value := range values {
		for _, part := range value.Parts {
			joined = joined.append(part)
		}
	}
	return joined
}

func (v Value) append(p Part) Value {
	if p.Ref == nil {
		if p.Literal == "" {
			return v
		}

		if n := len(v.Parts); n > 0 && v.Parts[n-1].Ref == nil {
			parts := append([]Part{}, v.Parts...)
			parts[n-1].Literal += p.Literal
			return Value{Parts: parts}
		}
	}

	ref := p.Ref
	if ref != nil {
		copied := *ref
		ref = &copied
	}

	return Value{Parts: append(append([]Part{}, v.Parts...), Part{Literal: p.Literal, Ref: ref})}
}

func (v Value) IsZero() bool {
	return len(v.Parts) == 0
}

func (v Value) IsLiteral() bool {
	for _, part := range v.Parts {
		if part.Ref != nil {
			return false
		}
	}
	return true
}

// Literal returns the concatenated literal parts, ignoring references.
func (v Value) Literal() string {
	var b strings.Builder
	for _, part := range v.Parts {
		if part.Ref == nil {
			b.WriteString(part.Literal)
		}
	}
	return b.String()
}

func (v Value) Refs() []Ref {
	var refs []Ref
	for _, part := range v.Parts {
		if part.Ref != nil {
			refs = append(refs, *part.Ref)
		}
	}
	return refs
}

// Suffix appends a literal to the value.
func (v Value) Suffix(s string) Value {
	return Join(v, Lit(s))
}

func (v Value) String() string {
	var b strings.Builder
	for _, part := range v.Parts {
		if part.Ref != nil {
			b.WriteString("${" + part.Ref.String() + "}")
			continue
		}
		b.WriteString(part.Literal)
	}
	return b.String()
}
