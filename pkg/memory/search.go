package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// IndexFactory constructs the semantic index collaborator. Kept as a factory
// so initialization failure can degrade the service instead of failing
// construction of the service itself.
type IndexFactory func() (SemanticIndex, error)

// SearchOptions tunes a single search call. Zero fields fall back to the
// service defaults.
type SearchOptions struct {
	TopK            int
	Lambda          float64
	FetchMultiplier int
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.Lambda <= 0 || o.Lambda > 1 {
		o.Lambda = 0.7
	}
	if o.FetchMultiplier <= 0 {
		o.FetchMultiplier = 3
	}
	return o
}

// SearchService owns the semantic index lifecycle and executes hybrid search
// with MMR reranking, falling back to the store's lexical search when the
// index is absent or failing. All public operations serialize on one mutex so
// the reverse key maps and availability flag never interleave between
// logical operations.
type SearchService struct {
	mu       sync.Mutex
	store    Store
	newIndex IndexFactory
	log      *slog.Logger

	index     SemanticIndex
	available bool

	// Reverse maps from surrogate document id to natural composite key.
	// Always rebuilt together with the index contents, never independently.
	chunkKeys   map[string]ChunkKey
	summaryKeys map[string]SummaryKey

	// Minimum raw similarity a hit must clear before reranking.
	minScore float64
}

// NewSearchService creates a search service over the given store. The index
// factory may be nil, in which case the service runs lexical-only.
func NewSearchService(store Store, newIndex IndexFactory, log *slog.Logger) *SearchService {
	if log == nil {
		log = slog.Default()
	}
	return &SearchService{
		store:       store,
		newIndex:    newIndex,
		log:         log,
		chunkKeys:   map[string]ChunkKey{},
		summaryKeys: map[string]SummaryKey{},
		minScore:    0.15,
	}
}

// Initialize attempts to construct the semantic index and rebuilds the
// reverse key maps from the store's key listings. Index construction failure
// is logged and leaves the service in lexical-only mode; Initialize never
// fails the caller.
func (s *SearchService) Initialize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.newIndex == nil {
		s.available = false
		s.log.Info("semantic index not configured, running lexical-only")
	} else {
		idx, err := s.newIndex()
		if err != nil {
			s.available = false
			s.log.Warn("semantic index init failed, degrading to lexical search", "error", err)
		} else {
			s.index = idx
			s.available = true
		}
	}
	s.reloadKeyMapsLocked(ctx)
}

// reloadKeyMapsLocked repopulates both reverse maps from the store. Failures
// leave the corresponding map empty and are logged.
func (s *SearchService) reloadKeyMapsLocked(ctx context.Context) {
	s.chunkKeys = map[string]ChunkKey{}
	s.summaryKeys = map[string]SummaryKey{}

	chunkKeys, err := s.store.LoadAllChunkKeys(ctx)
	if err != nil {
		s.log.Warn("load chunk keys failed", "error", err)
	} else {
		for _, key := range chunkKeys {
			s.chunkKeys[ChunkDocID(key)] = key
		}
	}
	summaryKeys, err := s.store.LoadAllSummaryKeys(ctx)
	if err != nil {
		s.log.Warn("load summary keys failed", "error", err)
	} else {
		for _, key := range summaryKeys {
			s.summaryKeys[SummaryDocID(key)] = key
		}
	}
}

// Available reports whether the semantic index is serving.
func (s *SearchService) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// IndexEntry adds one memory entry to the semantic index under its natural
// id. The caller may ignore the error; an unindexed entry simply will not be
// found semantically yet.
func (s *SearchService) IndexEntry(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return ErrIndexUnavailable
	}
	if err := s.index.Add(ctx, entry.Content, entry.ID); err != nil {
		s.log.Warn("index entry failed", "id", entry.ID, "error", err)
		return err
	}
	return nil
}

// IndexChunk adds one conversation chunk under its deterministic surrogate id
// and records the reverse mapping.
func (s *SearchService) IndexChunk(ctx context.Context, chunk Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return ErrIndexUnavailable
	}
	id := ChunkDocID(chunk.Key())
	if err := s.index.Add(ctx, chunk.Content, id); err != nil {
		s.log.Warn("index chunk failed", "conversation", chunk.ConversationID, "chunk", chunk.ChunkIndex, "error", err)
		return err
	}
	s.chunkKeys[id] = chunk.Key()
	return nil
}

// IndexSummary adds one conversation summary under its deterministic
// surrogate id and records the reverse mapping.
func (s *SearchService) IndexSummary(ctx context.Context, summary Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return ErrIndexUnavailable
	}
	id := SummaryDocID(summary.Key())
	if err := s.index.Add(ctx, summary.Summary, id); err != nil {
		s.log.Warn("index summary failed", "conversation", summary.ConversationID, "error", err)
		return err
	}
	s.summaryKeys[id] = summary.Key()
	return nil
}

// RemoveDocument deletes one document from the semantic index by id.
func (s *SearchService) RemoveDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return ErrIndexUnavailable
	}
	if err := s.index.Delete(ctx, []string{id}); err != nil {
		s.log.Warn("remove document failed", "id", id, "error", err)
		return err
	}
	delete(s.chunkKeys, id)
	delete(s.summaryKeys, id)
	return nil
}

// RebuildIndex clears the semantic index and reverse maps, then re-adds every
// active entry, summary and chunk from the store. Individual add failures are
// logged and skipped so one bad record cannot abort the rebuild.
func (s *SearchService) RebuildIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return ErrIndexUnavailable
	}
	if err := s.index.Reset(ctx); err != nil {
		s.log.Warn("index reset failed", "error", err)
		return err
	}
	s.chunkKeys = map[string]ChunkKey{}
	s.summaryKeys = map[string]SummaryKey{}

	entries, err := s.store.LoadAllActiveEntries(ctx)
	if err != nil {
		s.log.Warn("load entries for rebuild failed", "error", err)
	}
	for _, entry := range entries {
		if err := s.index.Add(ctx, entry.Content, entry.ID); err != nil {
			s.log.Warn("rebuild: index entry failed", "id", entry.ID, "error", err)
		}
	}

	summaries, err := s.store.LoadAllSummaries(ctx)
	if err != nil {
		s.log.Warn("load summaries for rebuild failed", "error", err)
	}
	for _, summary := range summaries {
		id := SummaryDocID(summary.Key())
		if err := s.index.Add(ctx, summary.Summary, id); err != nil {
			s.log.Warn("rebuild: index summary failed", "conversation", summary.ConversationID, "error", err)
			continue
		}
		s.summaryKeys[id] = summary.Key()
	}

	chunks, err := s.store.LoadAllChunks(ctx)
	if err != nil {
		s.log.Warn("load chunks for rebuild failed", "error", err)
	}
	for _, chunk := range chunks {
		id := ChunkDocID(chunk.Key())
		if err := s.index.Add(ctx, chunk.Content, id); err != nil {
			s.log.Warn("rebuild: index chunk failed", "conversation", chunk.ConversationID, "chunk", chunk.ChunkIndex, "error", err)
			continue
		}
		s.chunkKeys[id] = chunk.Key()
	}
	return nil
}

// ClearIndex empties the semantic index and reverse maps without rebuilding.
func (s *SearchService) ClearIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return ErrIndexUnavailable
	}
	if err := s.index.Reset(ctx); err != nil {
		return err
	}
	s.chunkKeys = map[string]ChunkKey{}
	s.summaryKeys = map[string]SummaryKey{}
	return nil
}

// SearchEntries finds memory entries relevant to query, MMR-reranked for
// diversity. When the semantic index is unavailable or errors, the store's
// lexical results are returned directly, unreranked.
func (s *SearchService) SearchEntries(ctx context.Context, query, agentID string, opts SearchOptions) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts = opts.withDefaults()

	if s.available {
		entries, scores, ok := s.semanticEntriesLocked(ctx, query, agentID, opts.TopK*opts.FetchMultiplier)
		if ok {
			cands := make([]rerankCandidate, len(entries))
			for i, e := range entries {
				cands[i] = rerankCandidate{rawScore: scores[i], text: e.Content}
			}
			picked := mmrSelect(cands, opts.Lambda, opts.TopK)
			out := make([]Entry, 0, len(picked))
			for _, idx := range picked {
				out = append(out, entries[idx])
			}
			return out
		}
	}

	results, err := s.store.SearchEntriesLexical(ctx, query, agentID)
	if err != nil {
		s.log.Warn("lexical entry search failed", "error", err)
		return nil
	}
	return results
}

// SearchEntriesWithScores returns entries with their raw similarity scores,
// sorted descending and not reranked, for callers that need calibrated
// scores (near-duplicate checks). Without a semantic index there is no
// calibrated score to report, so the result is empty.
func (s *SearchService) SearchEntriesWithScores(ctx context.Context, query, agentID string, topK int) []ScoredEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if topK <= 0 {
		topK = 5
	}
	if !s.available {
		return nil
	}
	entries, scores, ok := s.semanticEntriesLocked(ctx, query, agentID, topK)
	if !ok {
		return nil
	}
	out := make([]ScoredEntry, len(entries))
	for i, e := range entries {
		out[i] = ScoredEntry{Entry: e, Score: scores[i]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// semanticEntriesLocked runs the raw semantic entry search and resolves hits
// to entries. ok=false means the index call failed and the caller should
// fall back.
func (s *SearchService) semanticEntriesLocked(ctx context.Context, query, agentID string, fetch int) ([]Entry, []float64, bool) {
	hits, err := s.index.Search(ctx, query, fetch, s.minScore)
	if err != nil {
		s.log.Warn("semantic entry search failed", "error", err)
		return nil, nil, false
	}
	ids := make([]string, 0, len(hits))
	scoreByID := make(map[string]float64, len(hits))
	for _, hit := range hits {
		// Chunk and summary surrogate ids are not entry ids.
		if _, isChunk := s.chunkKeys[hit.ID]; isChunk {
			continue
		}
		if _, isSummary := s.summaryKeys[hit.ID]; isSummary {
			continue
		}
		ids = append(ids, hit.ID)
		scoreByID[hit.ID] = hit.Score
	}
	if len(ids) == 0 {
		return nil, nil, true
	}
	entries, err := s.store.LoadEntriesByIDs(ctx, ids, agentID)
	if err != nil {
		s.log.Warn("resolve entry hits failed", "error", err)
		return nil, nil, true
	}
	scores := make([]float64, len(entries))
	for i, e := range entries {
		scores[i] = scoreByID[e.ID]
	}
	return entries, scores, true
}

// SearchConversations finds conversation chunks relevant to query. Semantic
// hits resolve through the reverse chunk map to composite keys; the fallback
// is the store's lexical chunk search scoped by agent and day window.
func (s *SearchService) SearchConversations(ctx context.Context, query, agentID string, days int, opts SearchOptions) []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts = opts.withDefaults()

	if s.available {
		chunks, scores, ok := s.semanticChunksLocked(ctx, query, agentID, opts.TopK*opts.FetchMultiplier)
		if ok {
			cands := make([]rerankCandidate, len(chunks))
			for i, c := range chunks {
				cands[i] = rerankCandidate{rawScore: scores[i], text: c.Content}
			}
			picked := mmrSelect(cands, opts.Lambda, opts.TopK)
			out := make([]Chunk, 0, len(picked))
			for _, idx := range picked {
				out = append(out, chunks[idx])
			}
			return out
		}
	}

	results, err := s.store.SearchChunksLexical(ctx, query, agentID, days)
	if err != nil {
		s.log.Warn("lexical chunk search failed", "error", err)
		return nil
	}
	return results
}

func (s *SearchService) semanticChunksLocked(ctx context.Context, query, agentID string, fetch int) ([]Chunk, []float64, bool) {
	hits, err := s.index.Search(ctx, query, fetch, s.minScore)
	if err != nil {
		s.log.Warn("semantic chunk search failed", "error", err)
		return nil, nil, false
	}
	keys := make([]ChunkKey, 0, len(hits))
	scoreByKey := make(map[ChunkKey]float64, len(hits))
	for _, hit := range hits {
		key, ok := s.chunkKeys[hit.ID]
		if !ok {
			continue
		}
		keys = append(keys, key)
		scoreByKey[key] = hit.Score
	}
	if len(keys) == 0 {
		return nil, nil, true
	}
	chunks, err := s.store.LoadChunksByKeys(ctx, keys)
	if err != nil {
		s.log.Warn("resolve chunk hits failed", "error", err)
		return nil, nil, true
	}
	filtered := chunks[:0]
	for _, c := range chunks {
		if agentID != "" && c.AgentID != agentID {
			continue
		}
		filtered = append(filtered, c)
	}
	chunks = filtered
	scores := make([]float64, len(chunks))
	for i, c := range chunks {
		scores[i] = scoreByKey[c.Key()]
	}
	return chunks, scores, true
}

// SearchSummaries finds conversation summaries relevant to query, with the
// same shape as SearchConversations.
func (s *SearchService) SearchSummaries(ctx context.Context, query, agentID string, days int, opts SearchOptions) []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts = opts.withDefaults()

	if s.available {
		summaries, scores, ok := s.semanticSummariesLocked(ctx, query, agentID, opts.TopK*opts.FetchMultiplier)
		if ok {
			cands := make([]rerankCandidate, len(summaries))
			for i, sm := range summaries {
				cands[i] = rerankCandidate{rawScore: scores[i], text: sm.Summary}
			}
			picked := mmrSelect(cands, opts.Lambda, opts.TopK)
			out := make([]Summary, 0, len(picked))
			for _, idx := range picked {
				out = append(out, summaries[idx])
			}
			return out
		}
	}

	results, err := s.store.SearchSummariesLexical(ctx, query, agentID, days)
	if err != nil {
		s.log.Warn("lexical summary search failed", "error", err)
		return nil
	}
	return results
}

func (s *SearchService) semanticSummariesLocked(ctx context.Context, query, agentID string, fetch int) ([]Summary, []float64, bool) {
	hits, err := s.index.Search(ctx, query, fetch, s.minScore)
	if err != nil {
		s.log.Warn("semantic summary search failed", "error", err)
		return nil, nil, false
	}
	keys := make([]SummaryKey, 0, len(hits))
	scoreByKey := make(map[SummaryKey]float64, len(hits))
	for _, hit := range hits {
		key, ok := s.summaryKeys[hit.ID]
		if !ok {
			continue
		}
		keys = append(keys, key)
		scoreByKey[key] = hit.Score
	}
	if len(keys) == 0 {
		return nil, nil, true
	}
	summaries, err := s.store.LoadSummariesByKeys(ctx, keys, agentID)
	if err != nil {
		s.log.Warn("resolve summary hits failed", "error", err)
		return nil, nil, true
	}
	scores := make([]float64, len(summaries))
	for i, sm := range summaries {
		scores[i] = scoreByKey[sm.Key()]
	}
	return summaries, scores, true
}

// SearchGraph passes through to the store's graph traversal. Depth is
// clamped to [1,4]. Entity name takes precedence over relation; with neither
// the result is empty. No ranking or indexing applies.
func (s *SearchService) SearchGraph(ctx context.Context, entityName, relation string, depth int) []GraphResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if depth < 1 {
		depth = 1
	} else if depth > 4 {
		depth = 4
	}
	switch {
	case entityName != "":
		results, err := s.store.QueryEntityGraph(ctx, entityName, depth)
		if err != nil {
			s.log.Warn("entity graph query failed", "entity", entityName, "error", err)
			return nil
		}
		return results
	case relation != "":
		results, err := s.store.QueryRelationships(ctx, relation)
		if err != nil {
			s.log.Warn("relationship query failed", "relation", relation, "error", err)
			return nil
		}
		return results
	default:
		return nil
	}
}
