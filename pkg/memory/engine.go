package memory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// EngineOptions configures the composition root.
type EngineOptions struct {
	// Workspace is the directory holding the state database and index
	// snapshot.
	Workspace string
	Assembly  Config
	Index     IndexOptions
	Logger    *slog.Logger
}

// Engine wires the default store, hybrid index, search service and context
// assembler into one unit. Callers embedding the subsystem with their own
// collaborators can skip Engine and construct the pieces directly.
type Engine struct {
	cfg       Config
	log       *slog.Logger
	store     *SQLiteStore
	index     *HybridIndex
	search    *SearchService
	assembler *ContextAssembler
}

// NewEngine opens the workspace store and builds the search and assembly
// pipeline. The semantic index is constructed lazily by Initialize so index
// failure degrades rather than failing here.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if strings.TrimSpace(opts.Workspace) == "" {
		return nil, fmt.Errorf("engine workspace is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	store, err := NewSQLiteStore(filepath.Join(opts.Workspace, "state", "context.db"))
	if err != nil {
		return nil, err
	}

	indexOpts := opts.Index
	if indexOpts.Name == "" {
		indexOpts.Name = "contextkit"
	}
	if indexOpts.StorageLocation == "" {
		indexOpts.StorageLocation = filepath.Join(opts.Workspace, "state", "index.json")
	}

	e := &Engine{
		cfg:   opts.Assembly.withDefaults(),
		log:   log,
		store: store,
	}
	e.search = NewSearchService(store, func() (SemanticIndex, error) {
		idx, err := NewHybridIndex(indexOpts)
		if err != nil {
			return nil, err
		}
		e.index = idx
		return idx, nil
	}, log)
	e.assembler = NewContextAssembler(store, e.search, log)
	return e, nil
}

// Initialize brings up the semantic index (degrading on failure) and, when
// the index came up empty, rebuilds it from the store.
func (e *Engine) Initialize(ctx context.Context) {
	e.search.Initialize(ctx)
	if e.index != nil && e.index.Len() == 0 {
		if err := e.search.RebuildIndex(ctx); err != nil {
			e.log.Warn("initial index build failed", "error", err)
		}
	}
}

// Close snapshots the index and closes the store.
func (e *Engine) Close() error {
	if e.index != nil {
		if err := e.index.Close(); err != nil {
			e.log.Warn("index snapshot failed", "error", err)
		}
	}
	return e.store.Close()
}

// Store exposes the underlying sqlite store for writes.
func (e *Engine) Store() *SQLiteStore { return e.store }

// Search exposes the search service.
func (e *Engine) Search() *SearchService { return e.search }

// Assembler exposes the context assembler.
func (e *Engine) Assembler() *ContextAssembler { return e.assembler }

// Config returns the assembly configuration in effect.
func (e *Engine) Config() Config { return e.cfg }

// Remember stores one entry and indexes it. The index error is non-fatal;
// an unindexed entry is still found by the lexical fallback.
func (e *Engine) Remember(ctx context.Context, entry Entry) (Entry, error) {
	saved, err := e.store.SaveEntry(ctx, entry)
	if err != nil {
		return Entry{}, err
	}
	if err := e.search.IndexEntry(ctx, saved); err != nil {
		e.log.Warn("entry not indexed yet", "id", saved.ID, "error", err)
	}
	return saved, nil
}

// AddChunk stores one conversation chunk and indexes it.
func (e *Engine) AddChunk(ctx context.Context, chunk Chunk) error {
	if err := e.store.SaveChunk(ctx, chunk); err != nil {
		return err
	}
	if err := e.search.IndexChunk(ctx, chunk); err != nil {
		e.log.Warn("chunk not indexed yet", "conversation", chunk.ConversationID, "error", err)
	}
	return nil
}

// AddSummary stores one conversation summary and indexes it.
func (e *Engine) AddSummary(ctx context.Context, summary Summary) error {
	if err := e.store.SaveSummary(ctx, summary); err != nil {
		return err
	}
	if err := e.search.IndexSummary(ctx, summary); err != nil {
		e.log.Warn("summary not indexed yet", "conversation", summary.ConversationID, "error", err)
	}
	return nil
}

// Context assembles the context block for an agent; query may be empty.
func (e *Engine) Context(ctx context.Context, agentID, query string) string {
	if query == "" {
		return e.assembler.AssembleContext(ctx, agentID, e.cfg)
	}
	return e.assembler.AssembleContextForQuery(ctx, agentID, e.cfg, query)
}

// Reindex rebuilds the semantic index from the store and drops cached
// contexts, whose section contents may have shifted.
func (e *Engine) Reindex(ctx context.Context) error {
	if err := e.search.RebuildIndex(ctx); err != nil {
		return err
	}
	e.assembler.InvalidateCache("")
	return nil
}
