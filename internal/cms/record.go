package cms

import (
	"fmt"

	"github.com/cmsfix/https-migrator/internal/tree"
)

// Record is one DatoCMS item in its simplified form: id, type, every
// attribute, the linkage of every relationship and meta, all as entries of
// a single mapping.
type Record struct {
	ID     string
	Fields tree.Value

	// Relationships names the Fields entries that came from the item's
	// relationships. They are not sent back as attributes on update.
	Relationships []string
}

// reservedKeys never travel as attributes
var reservedKeys = map[string]bool{
	"id":   true,
	"type": true,
	"meta": true,
}

// attributes returns the entries of r.Fields that are item attributes
func (r Record) attributes() tree.Value {
	rel := make(map[string]bool, len(r.Relationships))
	for _, k := range r.Relationships {
		rel[k] = true
	}

	var entries []tree.Entry
	for _, e := range r.Fields.Entries() {
		if reservedKeys[e.Key] || rel[e.Key] {
			continue
		}
		entries = append(entries, e)
	}
	return tree.Map(entries...)
}

// recordFromResource flattens a JSON:API resource object into a Record
func recordFromResource(res tree.Value) (Record, error) {
	if res.Kind() != tree.KindMap {
		return Record{}, fmt.Errorf("resource is a %s, not a mapping", res.Kind())
	}

	idVal, ok := res.Get("id")
	if !ok || idVal.Kind() != tree.KindString || idVal.Str() == "" {
		return Record{}, fmt.Errorf("resource has no id")
	}

	rec := Record{ID: idVal.Str()}
	entries := []tree.Entry{tree.E("id", idVal)}

	if typ, ok := res.Get("type"); ok {
		entries = append(entries, tree.E("type", typ))
	}

	if attrs, ok := res.Get("attributes"); ok && attrs.Kind() == tree.KindMap {
		entries = append(entries, attrs.Entries()...)
	}

	if rels, ok := res.Get("relationships"); ok && rels.Kind() == tree.KindMap {
		for _, e := range rels.Entries() {
			linkage := e.Value
			if data, ok := e.Value.Get("data"); ok {
				linkage = data
			}
			entries = append(entries, tree.E(e.Key, linkage))
			rec.Relationships = append(rec.Relationships, e.Key)
		}
	}

	if meta, ok := res.Get("meta"); ok {
		entries = append(entries, tree.E("meta", meta))
	}

	rec.Fields = tree.Map(entries...)
	return rec, nil
}
