package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// chunkWindow is how many neighbouring chunk indexes on each side of a hit
// are pulled in for conversational context.
const chunkWindow = 2

// buildRelevantSection runs the query-aware retrieval pipeline: three
// concurrent sub-searches, chunk window expansion, dedup against the base
// context, per-category budgets, and a temporal anchor over the surfaced
// material. Returns "" when nothing survives.
func (a *ContextAssembler) buildRelevantSection(ctx context.Context, agentID string, cfg Config, query, base string) string {
	if a.search == nil {
		return ""
	}
	opts := SearchOptions{
		TopK:            cfg.RecallTopK,
		Lambda:          cfg.MMRLambda,
		FetchMultiplier: cfg.MMRFetchMultiplier,
	}

	// The sub-searches run concurrently and join before formatting; each
	// resolves its own failures to an empty slice inside the search service.
	var (
		wg        sync.WaitGroup
		entries   []Entry
		chunks    []Chunk
		summaries []Summary
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		entries = a.search.SearchEntries(ctx, query, agentID, opts)
	}()
	go func() {
		defer wg.Done()
		chunks = a.search.SearchConversations(ctx, query, agentID, cfg.SummaryRetentionDays, opts)
	}()
	go func() {
		defer wg.Done()
		summaries = a.search.SearchSummaries(ctx, query, agentID, cfg.SummaryRetentionDays, opts)
	}()
	wg.Wait()

	chunks = a.expandChunkWindows(ctx, chunks)

	entries = dedupEntriesAgainst(entries, base)
	summaries = dedupSummariesAgainst(summaries, base)

	sections := make([]string, 0, 4)
	if len(chunks) > 0 {
		lines := make([]string, len(chunks))
		for i, c := range chunks {
			lines[i] = formatChunkLine(c)
		}
		if s := buildBudgetSection("## Conversation Excerpts", lines, cfg.ChunkBudgetTokens); s != "" {
			sections = append(sections, s)
		}
	}
	if len(entries) > 0 {
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = formatEntryLine(e)
		}
		if s := buildBudgetSection("## Relevant Memories", lines, cfg.WorkingMemoryBudgetTokens); s != "" {
			sections = append(sections, s)
		}
	}
	if len(summaries) > 0 {
		lines := make([]string, len(summaries))
		for i, s := range summaries {
			lines[i] = formatSummaryLine(s)
		}
		if s := buildBudgetSection("## Relevant Summaries", lines, cfg.SummaryBudgetTokens); s != "" {
			sections = append(sections, s)
		}
	}
	if len(sections) == 0 {
		return ""
	}

	if anchor := temporalAnchor(a.now(), chunks, entries, summaries); anchor != "" {
		sections = append([]string{anchor}, sections...)
	}
	return strings.Join(sections, "\n\n")
}

// expandChunkWindows loads the chunks at index +/-2 around every hit from
// the same conversation, deduplicates by composite key and sorts the result
// by (conversation, index) for coherent reading order.
func (a *ContextAssembler) expandChunkWindows(ctx context.Context, hits []Chunk) []Chunk {
	if len(hits) == 0 {
		return hits
	}
	present := make(map[ChunkKey]bool, len(hits))
	for _, c := range hits {
		present[c.Key()] = true
	}
	var wanted []ChunkKey
	for _, c := range hits {
		for delta := -chunkWindow; delta <= chunkWindow; delta++ {
			if delta == 0 {
				continue
			}
			idx := c.ChunkIndex + delta
			if idx < 0 {
				continue
			}
			key := ChunkKey{ConversationID: c.ConversationID, ChunkIndex: idx}
			if !present[key] {
				present[key] = true
				wanted = append(wanted, key)
			}
		}
	}
	out := append([]Chunk(nil), hits...)
	if len(wanted) > 0 {
		neighbours, err := a.store.LoadChunksByKeys(ctx, wanted)
		if err != nil {
			a.log.Warn("load neighbour chunks failed", "error", err)
		} else {
			out = append(out, neighbours...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConversationID != out[j].ConversationID {
			return out[i].ConversationID < out[j].ConversationID
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out
}

// dedupEntriesAgainst drops entries whose exact text already appears in the
// base context, preventing redundant repetition.
func dedupEntriesAgainst(entries []Entry, base string) []Entry {
	if base == "" {
		return entries
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Content != "" && strings.Contains(base, e.Content) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func dedupSummariesAgainst(summaries []Summary, base string) []Summary {
	if base == "" {
		return summaries
	}
	out := summaries[:0]
	for _, s := range summaries {
		if s.Summary != "" && strings.Contains(base, s.Summary) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// temporalAnchor states today's date and the date range the surfaced
// material covers, so the model can reason about recency. Omitted when no
// surfaced date parses.
func temporalAnchor(now time.Time, chunks []Chunk, entries []Entry, summaries []Summary) string {
	var dates []time.Time
	collect := func(s string) {
		if t, ok := parseStoredDate(s); ok {
			dates = append(dates, t)
		}
	}
	for _, c := range chunks {
		collect(c.CreatedAt)
	}
	for _, e := range entries {
		collect(e.ValidFrom)
		collect(e.ValidUntil)
	}
	for _, s := range summaries {
		collect(s.ConversationAt)
	}
	if len(dates) == 0 {
		return ""
	}
	minDate, maxDate := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(minDate) {
			minDate = d
		}
		if d.After(maxDate) {
			maxDate = d
		}
	}
	today := formatDisplayDate(now)
	if minDate.Equal(maxDate) {
		return "Today is " + today + ". The material below is from " + formatDisplayDate(minDate) + "."
	}
	return "Today is " + today + ". The material below covers " + formatDisplayDate(minDate) + " to " + formatDisplayDate(maxDate) + "."
}
