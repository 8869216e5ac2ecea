package audit

import (
	"fmt"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
)

// mockIndex is a simple in-memory mock of the Index interface for testing
type mockIndex struct {
	batches    [][]Entry
	batchError error
	closeError error
	closed     atomic.Bool
}

func newMockIndex() *mockIndex {
	return &mockIndex{}
}

func (m *mockIndex) Batch(entries []Entry) error {
	if m.closed.Load() {
		return fmt.Errorf("index closed")
	}
	if m.batchError != nil {
		return m.batchError
	}
	m.batches = append(m.batches, entries)
	return nil
}

func (m *mockIndex) Search(req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("index closed")
	}
	// Return minimal valid search result (nil hits is valid)
	return &bleve.SearchResult{Request: req}, nil
}

func (m *mockIndex) DocCount() (uint64, error) {
	if m.closed.Load() {
		return 0, fmt.Errorf("index closed")
	}
	var n uint64
	for _, b := range m.batches {
		n += uint64(len(b))
	}
	return n, nil
}

func (m *mockIndex) Close() error {
	if m.closed.Load() {
		return fmt.Errorf("already closed")
	}
	m.closed.Store(true)
	return m.closeError
}

// IsClosed returns true if the index has been closed
func (m *mockIndex) IsClosed() bool {
	return m.closed.Load()
}
