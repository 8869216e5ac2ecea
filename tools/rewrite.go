package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cmsfix/https-migrator/internal/tree"
)

// ScanInsecureURLsInput defines input for scan_insecure_urls tool
type ScanInsecureURLsInput struct {
	Document string `json:"document" jsonschema:"JSON document (inline JSON or file path)"`
}

// ScanInsecureURLsOutput defines output for scan_insecure_urls tool
type ScanInsecureURLsOutput struct {
	Count       int               `json:"count"`
	Occurrences []tree.Occurrence `json:"occurrences"`
}

// RewriteInsecureURLsInput defines input for rewrite_insecure_urls tool
type RewriteInsecureURLsInput struct {
	Document string `json:"document" jsonschema:"JSON document (inline JSON or file path)"`
}

// RewriteInsecureURLsOutput defines output for rewrite_insecure_urls tool
type RewriteInsecureURLsOutput struct {
	Replaced  int    `json:"replaced"`
	Document  string `json:"document"`
	Unchanged bool   `json:"unchanged"`
}

// ScanInsecureURLs lists every string in a JSON document that contains "http://"
func ScanInsecureURLs(ctx context.Context, req *mcp.CallToolRequest, input ScanInsecureURLsInput) (*mcp.CallToolResult, ScanInsecureURLsOutput, error) {
	doc, err := loadDocument(input.Document)
	if err != nil {
		return nil, ScanInsecureURLsOutput{}, err
	}

	occurrences := tree.Scan(doc, "")
	if occurrences == nil {
		occurrences = []tree.Occurrence{}
	}

	return nil, ScanInsecureURLsOutput{
		Count:       len(occurrences),
		Occurrences: occurrences,
	}, nil
}

// RewriteInsecureURLs returns the document with every "http://" replaced by
// "https://". Key order and number formatting are preserved.
func RewriteInsecureURLs(ctx context.Context, req *mcp.CallToolRequest, input RewriteInsecureURLsInput) (*mcp.CallToolResult, RewriteInsecureURLsOutput, error) {
	doc, err := loadDocument(input.Document)
	if err != nil {
		return nil, RewriteInsecureURLsOutput{}, err
	}

	replaced := 0
	for _, occ := range tree.Scan(doc, "") {
		replaced += strings.Count(occ.Value, tree.InsecureScheme)
	}

	out, err := tree.Rewrite(doc).MarshalJSON()
	if err != nil {
		return nil, RewriteInsecureURLsOutput{}, fmt.Errorf("failed to encode document: %w", err)
	}

	return nil, RewriteInsecureURLsOutput{
		Replaced:  replaced,
		Document:  string(out),
		Unchanged: replaced == 0,
	}, nil
}

// RegisterRewriteTools registers the scan and rewrite tools with the MCP server
func RegisterRewriteTools(server *mcp.Server) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "scan_insecure_urls",
			Description: "Lists every string value of a JSON document that contains 'http://', with its path (for example 'body.blocks[2].url'). Use before rewriting to review what would change.",
		},
		ScanInsecureURLs,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "rewrite_insecure_urls",
			Description: "Replaces every 'http://' with 'https://' in all string values of a JSON document and returns the rewritten document. Keys, key order, numbers and structure are left untouched.",
		},
		RewriteInsecureURLs,
	)
}

// loadDocument parses inline JSON or reads and parses the file it names
func loadDocument(document string) (tree.Value, error) {
	content, err := readDocumentContent(document)
	if err != nil {
		return tree.Value{}, err
	}

	doc, err := tree.Parse([]byte(content))
	if err != nil {
		return tree.Value{}, fmt.Errorf("invalid JSON document: %w", err)
	}
	return doc, nil
}

// readDocumentContent returns inline JSON as is, anything else is read as a file path
func readDocumentContent(document string) (string, error) {
	trimmed := strings.TrimSpace(document)
	if trimmed == "" {
		return "", fmt.Errorf("document is required")
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "\"") {
		return document, nil
	}

	content, err := os.ReadFile(trimmed)
	if err != nil {
		return "", fmt.Errorf("failed to read document file '%s': %w", trimmed, err)
	}

	return string(content), nil
}
