package memory

import "context"

// Store provides durable persistence for entries, chunks, summaries and the
// entity graph, plus a substring-based lexical search used as the fallback
// when the semantic index is unavailable.
type Store interface {
	Close() error

	// IsOpen reports whether the store can serve reads. Consulted before
	// every read; a closed store degrades to empty results upstream.
	IsOpen() bool

	LoadUserEdits(ctx context.Context) ([]UserEdit, error)
	LoadUserProfile(ctx context.Context) (string, error)

	LoadActiveEntries(ctx context.Context, agentID string) ([]Entry, error)
	LoadAllActiveEntries(ctx context.Context) ([]Entry, error)
	LoadEntriesByIDs(ctx context.Context, ids []string, agentID string) ([]Entry, error)
	TouchEntries(ctx context.Context, ids []string) error

	LoadSummaries(ctx context.Context, agentID string, days int) ([]Summary, error)
	LoadAllSummaries(ctx context.Context) ([]Summary, error)
	LoadAllSummaryKeys(ctx context.Context) ([]SummaryKey, error)
	LoadSummariesByKeys(ctx context.Context, keys []SummaryKey, agentID string) ([]Summary, error)

	LoadAllChunks(ctx context.Context) ([]Chunk, error)
	LoadAllChunkKeys(ctx context.Context) ([]ChunkKey, error)
	LoadChunksByKeys(ctx context.Context, keys []ChunkKey) ([]Chunk, error)

	LoadRecentRelationships(ctx context.Context, limit int) ([]Relationship, error)
	QueryEntityGraph(ctx context.Context, name string, depth int) ([]GraphResult, error)
	QueryRelationships(ctx context.Context, relation string) ([]GraphResult, error)

	// Lexical fallback searches (substring / LIKE-style).
	SearchEntriesLexical(ctx context.Context, query, agentID string) ([]Entry, error)
	SearchChunksLexical(ctx context.Context, query, agentID string, days int) ([]Chunk, error)
	SearchSummariesLexical(ctx context.Context, query, agentID string, days int) ([]Summary, error)
}

// IndexHit is one raw semantic search result.
type IndexHit struct {
	ID    string
	Score float64
	Text  string
}

// SemanticIndex is the pluggable vector/hybrid index collaborator. Documents
// are addressed by fixed-format string ids supplied by the caller.
type SemanticIndex interface {
	Add(ctx context.Context, text, id string) error
	AddBatch(ctx context.Context, texts, ids []string) error
	Search(ctx context.Context, query string, numResults int, threshold float64) ([]IndexHit, error)
	Delete(ctx context.Context, ids []string) error
	Reset(ctx context.Context) error
}
