package ifc

import "strings"

// ValueKind discriminates the STEP attribute value variants.
type ValueKind int

const (
	// KindNull is the unset marker `$`.
	KindNull ValueKind = iota
	// KindDerived is the redeclared-attribute marker `*`.
	KindDerived
	// KindString is a quoted string, already unescaped.
	KindString
	// KindEnum is an enumeration literal, e.g. `.ELEMENT.` (dots stripped).
	KindEnum
	// KindNumber is an integer or real literal.
	KindNumber
	// KindRef is an instance reference `#n`.
	KindRef
	// KindList is an aggregate `(...)`.
	KindList
	// KindTyped is a wrapped simple value, e.g. `IFCLABEL('x')`. Str holds
	// the wrapping type name, List holds the inner values.
	KindTyped
)

// Value is one attribute slot of an Entity.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Ref  int64
	List []Value
}

// unwrap descends through typed wrappers so accessors see the simple value.
func (v Value) unwrap() Value {
	for v.Kind == KindTyped && len(v.List) == 1 {
		v = v.List[0]
	}
	return v
}

// IsNull reports whether the value is the `$` placeholder.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// AsString returns the string content of a string or enum value, or "".
func (v Value) AsString() string {
	v = v.unwrap()
	if v.Kind == KindString || v.Kind == KindEnum {
		return v.Str
	}
	return ""
}

// AsFloat returns the numeric content and whether the value was numeric.
func (v Value) AsFloat() (float64, bool) {
	v = v.unwrap()
	if v.Kind == KindNumber {
		return v.Num, true
	}
	return 0, false
}

// AsRef returns the referenced instance id and whether the value was a ref.
func (v Value) AsRef() (int64, bool) {
	v = v.unwrap()
	if v.Kind == KindRef {
		return v.Ref, true
	}
	return 0, false
}

// AsList returns the aggregate members, or nil for non-aggregates.
func (v Value) AsList() []Value {
	v = v.unwrap()
	if v.Kind == KindList {
		return v.List
	}
	return nil
}

// AttrString returns the string value of attribute i, or "" when the slot is
// missing, null or not string-like.
func (e *Entity) AttrString(i int) string {
	if i < 0 || i >= len(e.Attrs) {
		return ""
	}
	return strings.TrimSpace(e.Attrs[i].AsString())
}

// AttrFloat returns the numeric value of attribute i.
func (e *Entity) AttrFloat(i int) (float64, bool) {
	if i < 0 || i >= len(e.Attrs) {
		return 0, false
	}
	return e.Attrs[i].AsFloat()
}

// AttrRef returns the instance reference held by attribute i.
func (e *Entity) AttrRef(i int) (int64, bool) {
	if i < 0 || i >= len(e.Attrs) {
		return 0, false
	}
	return e.Attrs[i].AsRef()
}

// AttrList returns the aggregate held by attribute i, or nil.
func (e *Entity) AttrList(i int) []Value {
	if i < 0 || i >= len(e.Attrs) {
		return nil
	}
	return e.Attrs[i].AsList()
}

// AttrRefs returns the instance references of an aggregate attribute,
// skipping members that are not references.
func (e *Entity) AttrRefs(i int) []int64 {
	list := e.AttrList(i)
	if len(list) == 0 {
		return nil
	}
	refs := make([]int64, 0, len(list))
	for _, v := range list {
		if id, ok := v.AsRef(); ok {
			refs = append(refs, id)
		}
	}
	return refs
}
