package audit

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"

	"github.com/cmsfix/https-migrator/internal/tree"
)

const (
	indexDirName = "index"

	// DefaultSearchSize is the number of hits returned when none is requested
	DefaultSearchSize = 20
	maxSearchSize     = 500
)

// Decision is what happened to a record holding occurrences
type Decision string

const (
	DecisionUpdated Decision = "updated"
	DecisionSkipped Decision = "skipped"
	DecisionDryRun  Decision = "dry_run"
)

// Entry is one occurrence as seen during a run, with the operator's decision
// for the record it belongs to.
type Entry struct {
	ID       string    `json:"id"`
	RunID    string    `json:"run_id"`
	ModelID  string    `json:"model_id"`
	RecordID string    `json:"record_id"`
	Path     string    `json:"path"`
	Value    string    `json:"value"`
	Fixed    string    `json:"fixed"`
	Decision Decision  `json:"decision"`
	Time     time.Time `json:"time"`
}

// Journal is a searchable log of every occurrence found by migration runs.
// One process at a time may hold a journal directory.
type Journal struct {
	dir   string
	runID string
	index Index
	lock  *pidLock
	now   func() time.Time

	closeOnce sync.Once
	closeErr  error
}

// Open locks dir and opens the journal index in it, creating both on first use
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("audit: create journal directory: %w", err)
	}

	lock := newPIDLock(dir)
	if err := lock.acquire(); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	indexPath := filepath.Join(dir, indexDirName)
	index, err := bleve.Open(indexPath)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		log.Printf("Creating audit journal: %s", indexPath)
		index, err = bleve.New(indexPath, newIndexMapping())
	}
	if err != nil {
		lock.release()
		return nil, fmt.Errorf("audit: open index %s: %w", indexPath, err)
	}

	return newJournal(dir, NewBleveIndexWrapper(index), lock), nil
}

func newJournal(dir string, index Index, lock *pidLock) *Journal {
	return &Journal{
		dir:   dir,
		runID: uuid.NewString(),
		index: index,
		lock:  lock,
		now:   time.Now,
	}
}

// RunID identifies the entries written through this Journal
func (j *Journal) RunID() string { return j.runID }

func (j *Journal) Dir() string { return j.dir }

// Record stores one entry per occurrence of recordID
func (j *Journal) Record(modelID, recordID string, occurrences []tree.Occurrence, decision Decision) error {
	if len(occurrences) == 0 {
		return nil
	}

	now := j.now().UTC()
	entries := make([]Entry, 0, len(occurrences))
	for _, occ := range occurrences {
		entries = append(entries, Entry{
			ID:       uuid.NewString(),
			RunID:    j.runID,
			ModelID:  modelID,
			RecordID: recordID,
			Path:     occ.Path,
			Value:    occ.Value,
			Fixed:    tree.Rewrite(tree.String(occ.Value)).Str(),
			Decision: decision,
			Time:     now,
		})
	}

	if err := j.index.Batch(entries); err != nil {
		return fmt.Errorf("audit: record %s: %w", recordID, err)
	}
	return nil
}

// Search runs a bleve query string against the journal. An empty query
// matches everything. Hits come back oldest first.
func (j *Journal) Search(query string, size int) ([]Entry, uint64, error) {
	return Search(j.index, query, size)
}

// Close closes the index and releases the directory lock.
// Only the first call has an effect.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() {
		j.closeErr = j.index.Close()
		if j.lock != nil {
			if err := j.lock.release(); err != nil && j.closeErr == nil {
				j.closeErr = err
			}
		}
	})
	return j.closeErr
}

// OpenReadOnly opens the journal in dir for searching only.
// It refuses while a live process holds the journal.
func OpenReadOnly(dir string) (Index, error) {
	if pid := HeldBy(dir); pid != 0 {
		return nil, fmt.Errorf("audit: journal %s is in use by process %d", dir, pid)
	}

	index, err := bleve.OpenUsing(filepath.Join(dir, indexDirName), map[string]interface{}{
		"read_only": true,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: open index: %w", err)
	}
	return NewBleveIndexWrapper(index), nil
}

// Search runs query against any journal index
func Search(index Index, query string, size int) ([]Entry, uint64, error) {
	if size <= 0 {
		size = DefaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	var req *bleve.SearchRequest
	if query == "" || query == "*" {
		req = bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	} else {
		req = bleve.NewSearchRequest(bleve.NewQueryStringQuery(query))
	}
	req.Size = size
	req.Fields = []string{"*"}
	req.SortBy([]string{"time", "_id"})

	result, err := index.Search(req)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: search failed: %w", err)
	}

	entries := make([]Entry, 0, len(result.Hits))
	for _, hit := range result.Hits {
		e := Entry{ID: hit.ID}
		if v, ok := hit.Fields["run_id"].(string); ok {
			e.RunID = v
		}
		if v, ok := hit.Fields["model_id"].(string); ok {
			e.ModelID = v
		}
		if v, ok := hit.Fields["record_id"].(string); ok {
			e.RecordID = v
		}
		if v, ok := hit.Fields["path"].(string); ok {
			e.Path = v
		}
		if v, ok := hit.Fields["value"].(string); ok {
			e.Value = v
		}
		if v, ok := hit.Fields["fixed"].(string); ok {
			e.Fixed = v
		}
		if v, ok := hit.Fields["decision"].(string); ok {
			e.Decision = Decision(v)
		}
		if v, ok := hit.Fields["time"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				e.Time = ts
			}
		}
		entries = append(entries, e)
	}

	return entries, result.Total, nil
}
