package audit

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Index is an interface that abstracts bleve.Index operations
// This allows for easier testing with mocks
type Index interface {
	// Batch indexes all entries in one batch
	Batch(entries []Entry) error

	// Search executes a search request
	Search(req *bleve.SearchRequest) (*bleve.SearchResult, error)

	// DocCount returns the number of documents in the index
	DocCount() (uint64, error)

	// Close closes the index
	Close() error
}

// bleveIndexWrapper wraps a bleve.Index to implement our Index interface
type bleveIndexWrapper struct {
	index bleve.Index
}

// NewBleveIndexWrapper wraps a bleve.Index
func NewBleveIndexWrapper(index bleve.Index) Index {
	return &bleveIndexWrapper{index: index}
}

func (w *bleveIndexWrapper) Batch(entries []Entry) error {
	batch := w.index.NewBatch()
	for _, e := range entries {
		if err := batch.Index(e.ID, e); err != nil {
			return err
		}
	}
	return w.index.Batch(batch)
}

func (w *bleveIndexWrapper) Search(req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	return w.index.Search(req)
}

func (w *bleveIndexWrapper) DocCount() (uint64, error) {
	return w.index.DocCount()
}

func (w *bleveIndexWrapper) Close() error {
	return w.index.Close()
}

// newIndexMapping indexes identifiers and decisions as exact keywords so
// that queries like "record_id:101 decision:skipped" match whole values.
// Path, value and fixed stay full-text.
func newIndexMapping() mapping.IndexMapping {
	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name

	entry := bleve.NewDocumentMapping()
	entry.AddFieldMappingsAt("run_id", kw)
	entry.AddFieldMappingsAt("model_id", kw)
	entry.AddFieldMappingsAt("record_id", kw)
	entry.AddFieldMappingsAt("decision", kw)
	entry.AddFieldMappingsAt("time", bleve.NewDateTimeFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = entry
	return m
}
