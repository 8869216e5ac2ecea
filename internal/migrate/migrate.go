package migrate

import (
	"context"
	"fmt"
	"log"

	"github.com/cmsfix/https-migrator/internal/audit"
	"github.com/cmsfix/https-migrator/internal/cms"
	"github.com/cmsfix/https-migrator/internal/tree"
)

// ConfirmQuestion is asked once per record holding occurrences
const ConfirmQuestion = "\nDo you want to update this record? (y/n): "

// Store persists a rewritten record
type Store interface {
	Update(ctx context.Context, id string, rec cms.Record) (cms.Record, error)
}

// Gate asks the operator a yes/no question
type Gate interface {
	Confirm(question string) (bool, error)
}

// Journal receives every occurrence along with the decision taken for its record
type Journal interface {
	Record(modelID, recordID string, occurrences []tree.Occurrence, decision audit.Decision) error
}

// Summary counts what a run did
type Summary struct {
	Total    int
	Clean    int
	Updated  int
	Skipped  int
	DryRun   int
	Findings int
}

// Migrator walks every record of a model and, record by record, offers to
// replace "http://" with "https://" in all of its string fields.
type Migrator struct {
	Source  cms.Lister
	Store   Store
	Gate    Gate
	Journal Journal
	Logger  *log.Logger

	ModelID  string
	PageSize int

	// DryRun reports findings without asking or updating
	DryRun bool
}

// Run fetches all records and processes them in store order. A fetch or
// update failure stops the run and is returned. The Gate is left open.
func (m *Migrator) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	records, err := cms.FetchAll(ctx, m.Source, m.ModelID, m.PageSize)
	if err != nil {
		return sum, fmt.Errorf("migrate: %w", err)
	}

	sum.Total = len(records)
	m.logf("Found %d records in total.", len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("migrate: %w", err)
		}
		if err := m.process(ctx, rec, &sum); err != nil {
			return sum, err
		}
	}

	m.logf("\nAll records have been processed.")
	return sum, nil
}

func (m *Migrator) process(ctx context.Context, rec cms.Record, sum *Summary) error {
	m.logf("\nExamining record %s", rec.ID)

	occurrences := tree.Scan(rec.Fields, "")
	if len(occurrences) == 0 {
		sum.Clean++
		m.logf("No 'http://' found in record %s", rec.ID)
		return nil
	}

	sum.Findings += len(occurrences)
	m.logf("Found %d 'http://' occurrences in record %s", len(occurrences), rec.ID)
	for _, occ := range occurrences {
		m.logf("  Path: %s", occ.Path)
		m.logf("  Value: %s", occ.Value)
	}

	rewritten := rec
	rewritten.Fields = tree.Rewrite(rec.Fields)

	if m.DryRun {
		sum.DryRun++
		m.logf("Dry run, not updating record %s", rec.ID)
		m.record(rec.ID, occurrences, audit.DecisionDryRun)
		return nil
	}

	ok, err := m.Gate.Confirm(ConfirmQuestion)
	if err != nil {
		return fmt.Errorf("migrate: no answer for record %s: %w", rec.ID, err)
	}

	if !ok {
		sum.Skipped++
		m.logf("Skipped record: %s", rec.ID)
		m.record(rec.ID, occurrences, audit.DecisionSkipped)
		return nil
	}

	if _, err := m.Store.Update(ctx, rec.ID, rewritten); err != nil {
		return fmt.Errorf("migrate: update record %s: %w", rec.ID, err)
	}
	sum.Updated++
	m.logf("Updated record: %s", rec.ID)
	m.record(rec.ID, occurrences, audit.DecisionUpdated)
	return nil
}

// record forwards to the Journal. A journal failure never stops a run.
func (m *Migrator) record(id string, occurrences []tree.Occurrence, decision audit.Decision) {
	if m.Journal == nil {
		return
	}
	if err := m.Journal.Record(m.ModelID, id, occurrences, decision); err != nil {
		m.logf("Warning: audit journal: %v", err)
	}
}

func (m *Migrator) logf(format string, args ...interface{}) {
	if m.Logger == nil {
		return
	}
	m.Logger.Printf(format, args...)
}
