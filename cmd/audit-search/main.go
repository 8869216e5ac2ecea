package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/cmsfix/https-migrator/internal/audit"
)

func main() {
	if len(os.Args) < 3 || len(os.Args) > 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <index-dir> <query> [max]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s audit '*'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s audit 'decision:skipped' 50\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s audit '+record_id:123 +path:body'\n", os.Args[0])
		os.Exit(1)
	}

	indexDir := os.Args[1]
	query := os.Args[2]
	size := audit.DefaultSearchSize
	if len(os.Args) == 4 {
		n, err := strconv.Atoi(os.Args[3])
		if err != nil || n <= 0 {
			log.Fatalf("Invalid max %q: must be a positive number", os.Args[3])
		}
		size = n
	}

	index, err := audit.OpenReadOnly(indexDir)
	if err != nil {
		log.Fatalf("Failed to open audit journal: %v", err)
	}
	defer index.Close()

	count, err := index.DocCount()
	if err != nil {
		index.Close()
		log.Fatalf("Failed to read audit journal: %v", err)
	}

	entries, total, err := audit.Search(index, query, size)
	if err != nil {
		index.Close()
		log.Fatalf("Search failed: %v", err)
	}

	log.Printf("Audit journal: %s (%d entries)", indexDir, count)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("Query: %s", query)
	log.Printf("✓ %d matches, showing %d", total, len(entries))

	for _, e := range entries {
		fmt.Printf("%s  %-8s  %s/%s  %s\n", e.Time.Local().Format(time.DateTime), e.Decision, e.ModelID, e.RecordID, e.Path)
		fmt.Printf("    - %s\n", e.Value)
		fmt.Printf("    + %s\n", e.Fixed)
	}
}
