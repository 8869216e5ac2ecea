package tree

import (
	"encoding/json"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSeq
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSeq:
		return "sequence"
	case KindMap:
		return "mapping"
	}
	return "unknown"
}

// Value is an immutable JSON value.
// The zero Value is null.
type Value struct {
	kind    Kind
	b       bool
	num     json.Number
	str     string
	items   []Value
	entries []Entry
}

// Entry is a single key/value pair of a mapping.
// Mappings keep their entries in document order.
type Entry struct {
	Key   string
	Value Value
}

// Null returns the null value
func Null() Value { return Value{} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a number value holding the literal JSON text n
func Number(n json.Number) Value { return Value{kind: KindNumber, num: n} }

// String returns a string value
func String(s string) Value { return Value{kind: KindString, str: s} }

// Seq returns a sequence of the given items
func Seq(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSeq, items: items}
}

// Map returns a mapping of the given entries, in order
func Map(entries ...Entry) Value {
	if entries == nil {
		entries = []Entry{}
	}
	return Value{kind: KindMap, entries: entries}
}

// E is shorthand for building an Entry
func E(key string, v Value) Entry { return Entry{Key: key, Value: v} }

func (v Value) Kind() Kind { return v.kind }

// Str returns the string content. It is empty for non-string values.
func (v Value) Str() string { return v.str }

// Num returns the number text. It is empty for non-number values.
func (v Value) Num() json.Number { return v.num }

// Truth returns the boolean content. It is false for non-boolean values.
func (v Value) Truth() bool { return v.b }

// Items returns the elements of a sequence. The slice must not be modified.
func (v Value) Items() []Value { return v.items }

// Entries returns the entries of a mapping. The slice must not be modified.
func (v Value) Entries() []Entry { return v.entries }

// Len returns the number of items or entries of a container, 0 otherwise
func (v Value) Len() int {
	switch v.kind {
	case KindSeq:
		return len(v.items)
	case KindMap:
		return len(v.entries)
	}
	return 0
}

// Get returns the value of the first entry with the given key
func (v Value) Get(key string) (Value, bool) {
	for _, e := range v.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Equal reports whether v and o have the same kind and contents.
// Mapping entries are compared in order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindSeq:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.entries) != len(o.entries) {
			return false
		}
		for i := range v.entries {
			if v.entries[i].Key != o.entries[i].Key || !v.entries[i].Value.Equal(o.entries[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// SameShape reports whether v and o have the same container kinds, key
// sequences and sequence lengths at every depth. Leaf contents are ignored.
func SameShape(v, o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindSeq:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !SameShape(v.items[i], o.items[i]) {
				return false
			}
		}
	case KindMap:
		if len(v.entries) != len(o.entries) {
			return false
		}
		for i := range v.entries {
			if v.entries[i].Key != o.entries[i].Key || !SameShape(v.entries[i].Value, o.entries[i].Value) {
				return false
			}
		}
	}
	return true
}
