package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cmsfix/https-migrator/internal/audit"
)

// SearchAuditJournalInput defines input for search_audit_journal tool
type SearchAuditJournalInput struct {
	Query      string `json:"query,omitempty" jsonschema:"Bleve query string, e.g. 'decision:skipped' or 'record_id:123'. Empty matches everything"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of entries to return (default 20)"`
}

// JournalEntry is one audit journal entry as returned to MCP clients
type JournalEntry struct {
	RunID    string `json:"run_id"`
	ModelID  string `json:"model_id"`
	RecordID string `json:"record_id"`
	Path     string `json:"path"`
	Value    string `json:"value"`
	Fixed    string `json:"fixed"`
	Decision string `json:"decision"`
	Time     string `json:"time"`
}

// SearchAuditJournalOutput defines output for search_audit_journal tool
type SearchAuditJournalOutput struct {
	Query   string         `json:"query"`
	Total   uint64         `json:"total"`
	Entries []JournalEntry `json:"entries"`
}

// journalSearcher serves search_audit_journal from one journal directory
type journalSearcher struct {
	dir string
}

// Search opens the journal read-only for each call so a concurrent
// migration run keeps ownership of the directory.
func (s *journalSearcher) Search(ctx context.Context, req *mcp.CallToolRequest, input SearchAuditJournalInput) (*mcp.CallToolResult, SearchAuditJournalOutput, error) {
	index, err := audit.OpenReadOnly(s.dir)
	if err != nil {
		return nil, SearchAuditJournalOutput{}, fmt.Errorf("failed to open audit journal: %w", err)
	}
	defer index.Close()

	return searchJournal(index, input)
}

func searchJournal(index audit.Index, input SearchAuditJournalInput) (*mcp.CallToolResult, SearchAuditJournalOutput, error) {
	entries, total, err := audit.Search(index, input.Query, input.MaxResults)
	if err != nil {
		return nil, SearchAuditJournalOutput{}, err
	}

	out := SearchAuditJournalOutput{
		Query:   input.Query,
		Total:   total,
		Entries: make([]JournalEntry, 0, len(entries)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, JournalEntry{
			RunID:    e.RunID,
			ModelID:  e.ModelID,
			RecordID: e.RecordID,
			Path:     e.Path,
			Value:    e.Value,
			Fixed:    e.Fixed,
			Decision: string(e.Decision),
			Time:     e.Time.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

// RegisterJournalTools registers search_audit_journal for the journal in dir.
// Nothing is registered when dir is empty.
func RegisterJournalTools(server *mcp.Server, dir string) {
	if dir == "" {
		return
	}

	searcher := &journalSearcher{dir: dir}
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_audit_journal",
			Description: "Searches the audit journal of past migration runs: which record fields held 'http://', their rewritten value and whether the record was updated, skipped or only reported in a dry run. Fields: run_id, model_id, record_id, path, value, fixed, decision, time.",
		},
		searcher.Search,
	)
}
