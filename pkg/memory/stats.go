package memory

import "context"

// StoreStats reports row counts per record family.
type StoreStats struct {
	Entries       int
	Chunks        int
	Summaries     int
	Relationships int
	UserEdits     int
}

// Stats counts the stored records.
func (s *SQLiteStore) Stats(ctx context.Context) (StoreStats, error) {
	if err := s.guard(); err != nil {
		return StoreStats{}, err
	}
	var stats StoreStats
	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM entries WHERE archived = 0`, &stats.Entries},
		{`SELECT COUNT(*) FROM chunks`, &stats.Chunks},
		{`SELECT COUNT(*) FROM summaries`, &stats.Summaries},
		{`SELECT COUNT(*) FROM relationships`, &stats.Relationships},
		{`SELECT COUNT(*) FROM user_edits`, &stats.UserEdits},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return StoreStats{}, err
		}
	}
	return stats, nil
}
