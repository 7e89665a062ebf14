package memory

import (
	"context"
	"strings"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineOptions{
		Workspace: t.TempDir(),
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	engine.Initialize(context.Background())
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func TestEngineRequiresWorkspace(t *testing.T) {
	if _, err := NewEngine(EngineOptions{Workspace: "  "}); err == nil {
		t.Fatalf("blank workspace must be rejected")
	}
}

func TestEngineRememberAndContext(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if !engine.Search().Available() {
		t.Fatalf("engine index should come up")
	}
	saved, err := engine.Remember(ctx, Entry{AgentID: "a", Type: EntryPreference, Content: "prefers staging deploys"})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("remember should mint an id")
	}

	out := engine.Context(ctx, "a", "")
	if !strings.Contains(out, "- [preference] prefers staging deploys") {
		t.Fatalf("base context missing the remembered entry:\n%s", out)
	}
}

func TestEngineQueryContextFindsChunks(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	err := engine.AddChunk(ctx, Chunk{
		ConversationID: "conv-1", ChunkIndex: 0, AgentID: "a", Role: "user",
		Content: "the payroll export breaks on leap days", CreatedAt: "2026-08-14",
		ConversationTitle: "payroll bug",
	})
	if err != nil {
		t.Fatalf("add chunk: %v", err)
	}
	if err := engine.AddSummary(ctx, Summary{
		AgentID: "a", ConversationID: "conv-1", ConversationAt: "2026-08-14",
		Summary: "debugged the payroll export",
	}); err != nil {
		t.Fatalf("add summary: %v", err)
	}

	out := engine.Context(ctx, "a", "payroll export")
	if !strings.Contains(out, "## Conversation Excerpts") {
		t.Fatalf("query context missing conversation excerpts:\n%s", out)
	}
	if !strings.Contains(out, "payroll bug") {
		t.Fatalf("chunk line should carry the conversation title:\n%s", out)
	}
}

func TestEngineReindexAfterDirectWrites(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	// A write that bypasses the engine is invisible to the index until
	// Reindex runs.
	if _, err := engine.Store().SaveEntry(ctx, Entry{AgentID: "a", Type: EntryFact, Content: "imported offline"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := engine.Reindex(ctx); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	got := engine.Search().SearchEntries(ctx, "imported offline", "a", SearchOptions{})
	if len(got) == 0 || got[0].Content != "imported offline" {
		t.Fatalf("reindexed entry not searchable: %+v", got)
	}
}

func TestEngineInitializeRebuildsEmptyIndexFromStore(t *testing.T) {
	workspace := t.TempDir()
	first, err := NewEngine(EngineOptions{Workspace: workspace, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	first.Initialize(context.Background())
	if _, err := first.Store().SaveEntry(context.Background(), Entry{AgentID: "a", Type: EntryFact, Content: "survives restart"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := NewEngine(EngineOptions{Workspace: workspace, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("reopen engine: %v", err)
	}
	defer second.Close()
	second.Initialize(context.Background())

	got := second.Search().SearchEntries(context.Background(), "survives restart", "a", SearchOptions{})
	if len(got) == 0 {
		t.Fatalf("restarted engine should find stored entries")
	}
}
