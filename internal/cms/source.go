package cms

import (
	"context"
	"fmt"
)

// Lister returns one page of records
type Lister interface {
	List(ctx context.Context, opts ListOptions) ([]Record, error)
}

// FetchAll retrieves every record of modelID, pageSize records at a time,
// and returns them in the order the store produced them. The first page
// shorter than pageSize ends the walk. A failed page aborts it.
func FetchAll(ctx context.Context, l Lister, modelID string, pageSize int) ([]Record, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var all []Record
	for page := 1; ; page++ {
		records, err := l.List(ctx, ListOptions{
			ModelID: modelID,
			Offset:  (page - 1) * pageSize,
			Limit:   pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		all = append(all, records...)

		if len(records) < pageSize {
			return all, nil
		}
	}
}
