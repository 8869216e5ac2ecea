package tree

import (
	"strconv"
	"strings"
)

const (
	// InsecureScheme is the marker searched for in string leaves
	InsecureScheme = "http://"

	// SecureScheme replaces every InsecureScheme occurrence
	SecureScheme = "https://"
)

// Occurrence is a string leaf containing InsecureScheme, located by a
// dotted/bracketed path such as "body.blocks[2].url".
type Occurrence struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

// Scan returns every string leaf of v containing InsecureScheme.
// Sequence items are visited by ascending index and mapping entries in
// stored order. path is the location of v itself; pass "" for a root value.
func Scan(v Value, path string) []Occurrence {
	switch v.kind {
	case KindString:
		if strings.Contains(v.str, InsecureScheme) {
			return []Occurrence{{Path: path, Value: v.str}}
		}
	case KindSeq:
		var out []Occurrence
		for i, item := range v.items {
			out = append(out, Scan(item, path+"["+strconv.Itoa(i)+"]")...)
		}
		return out
	case KindMap:
		var out []Occurrence
		for _, e := range v.entries {
			childPath := e.Key
			if path != "" {
				childPath = path + "." + e.Key
			}
			out = append(out, Scan(e.Value, childPath)...)
		}
		return out
	}
	return nil
}

// Rewrite returns a copy of v with every InsecureScheme occurrence in string
// leaves replaced by SecureScheme. The shape of v is preserved and v itself
// is left untouched.
func Rewrite(v Value) Value {
	switch v.kind {
	case KindString:
		return String(strings.ReplaceAll(v.str, InsecureScheme, SecureScheme))
	case KindSeq:
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			items[i] = Rewrite(item)
		}
		return Seq(items...)
	case KindMap:
		entries := make([]Entry, len(v.entries))
		for i, e := range v.entries {
			entries[i] = Entry{Key: e.Key, Value: Rewrite(e.Value)}
		}
		return Map(entries...)
	}
	return v
}
