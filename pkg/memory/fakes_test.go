package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// fakeStore is an in-memory Store with per-call error injection, used to
// exercise degraded paths without sqlite.
type fakeStore struct {
	closed bool

	edits   []UserEdit
	profile string

	entries       []Entry
	summaries     []Summary
	chunks        []Chunk
	relationships []Relationship

	touched [][]string

	editsErr    error
	profileErr  error
	entriesErr  error
	summaryErr  error
	chunksErr   error
	relErr      error
	touchErr    error
	lexicalErr  error
	graphErr    error
	byKeysCalls int

	lastGraphDepth int
}

func (f *fakeStore) Close() error { f.closed = true; return nil }
func (f *fakeStore) IsOpen() bool { return !f.closed }

func (f *fakeStore) LoadUserEdits(context.Context) ([]UserEdit, error) {
	return f.edits, f.editsErr
}

func (f *fakeStore) LoadUserProfile(context.Context) (string, error) {
	return f.profile, f.profileErr
}

func (f *fakeStore) LoadActiveEntries(_ context.Context, agentID string) ([]Entry, error) {
	if f.entriesErr != nil {
		return nil, f.entriesErr
	}
	var out []Entry
	for _, e := range f.entries {
		if e.AgentID == "" || e.AgentID == agentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) LoadAllActiveEntries(context.Context) ([]Entry, error) {
	return f.entries, f.entriesErr
}

func (f *fakeStore) LoadEntriesByIDs(_ context.Context, ids []string, agentID string) ([]Entry, error) {
	if f.entriesErr != nil {
		return nil, f.entriesErr
	}
	byID := map[string]Entry{}
	for _, e := range f.entries {
		byID[e.ID] = e
	}
	var out []Entry
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			continue
		}
		if agentID != "" && e.AgentID != "" && e.AgentID != agentID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) TouchEntries(_ context.Context, ids []string) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched = append(f.touched, ids)
	return nil
}

func (f *fakeStore) LoadSummaries(_ context.Context, agentID string, _ int) ([]Summary, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	var out []Summary
	for _, s := range f.summaries {
		if s.AgentID == agentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) LoadAllSummaries(context.Context) ([]Summary, error) {
	return f.summaries, f.summaryErr
}

func (f *fakeStore) LoadAllSummaryKeys(context.Context) ([]SummaryKey, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	keys := make([]SummaryKey, len(f.summaries))
	for i, s := range f.summaries {
		keys[i] = s.Key()
	}
	return keys, nil
}

func (f *fakeStore) LoadSummariesByKeys(_ context.Context, keys []SummaryKey, agentID string) ([]Summary, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	byKey := map[SummaryKey]Summary{}
	for _, s := range f.summaries {
		byKey[s.Key()] = s
	}
	var out []Summary
	for _, key := range keys {
		s, ok := byKey[key]
		if !ok {
			continue
		}
		if agentID != "" && s.AgentID != agentID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) LoadAllChunks(context.Context) ([]Chunk, error) {
	return f.chunks, f.chunksErr
}

func (f *fakeStore) LoadAllChunkKeys(context.Context) ([]ChunkKey, error) {
	if f.chunksErr != nil {
		return nil, f.chunksErr
	}
	keys := make([]ChunkKey, len(f.chunks))
	for i, c := range f.chunks {
		keys[i] = c.Key()
	}
	return keys, nil
}

func (f *fakeStore) LoadChunksByKeys(_ context.Context, keys []ChunkKey) ([]Chunk, error) {
	f.byKeysCalls++
	if f.chunksErr != nil {
		return nil, f.chunksErr
	}
	byKey := map[ChunkKey]Chunk{}
	for _, c := range f.chunks {
		byKey[c.Key()] = c
	}
	var out []Chunk
	for _, key := range keys {
		if c, ok := byKey[key]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) LoadRecentRelationships(_ context.Context, limit int) ([]Relationship, error) {
	if f.relErr != nil {
		return nil, f.relErr
	}
	rels := append([]Relationship(nil), f.relationships...)
	sort.Slice(rels, func(i, j int) bool { return rels[i].CreatedAtMS > rels[j].CreatedAtMS })
	if len(rels) > limit {
		rels = rels[:limit]
	}
	return rels, nil
}

func (f *fakeStore) QueryEntityGraph(_ context.Context, name string, depth int) ([]GraphResult, error) {
	f.lastGraphDepth = depth
	if f.graphErr != nil {
		return nil, f.graphErr
	}
	var out []GraphResult
	for _, r := range f.relationships {
		if r.FromEntity == name {
			out = append(out, GraphResult{Path: r.FromEntity + " -> " + r.Relation + " -> " + r.ToEntity, EntityType: "entity", Depth: 1})
		}
	}
	return out, nil
}

func (f *fakeStore) QueryRelationships(_ context.Context, relation string) ([]GraphResult, error) {
	if f.graphErr != nil {
		return nil, f.graphErr
	}
	var out []GraphResult
	for _, r := range f.relationships {
		if r.Relation == relation {
			out = append(out, GraphResult{Path: r.FromEntity + " -> " + r.Relation + " -> " + r.ToEntity, EntityType: "entity", Depth: 1})
		}
	}
	return out, nil
}

func (f *fakeStore) SearchEntriesLexical(_ context.Context, query, agentID string) ([]Entry, error) {
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	var out []Entry
	for _, e := range f.entries {
		if agentID != "" && e.AgentID != "" && e.AgentID != agentID {
			continue
		}
		if strings.Contains(strings.ToLower(e.Content), strings.ToLower(query)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) SearchChunksLexical(_ context.Context, query, agentID string, _ int) ([]Chunk, error) {
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	var out []Chunk
	for _, c := range f.chunks {
		if agentID != "" && c.AgentID != agentID {
			continue
		}
		if strings.Contains(strings.ToLower(c.Content), strings.ToLower(query)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) SearchSummariesLexical(_ context.Context, query, agentID string, _ int) ([]Summary, error) {
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	var out []Summary
	for _, s := range f.summaries {
		if agentID != "" && s.AgentID != agentID {
			continue
		}
		if strings.Contains(strings.ToLower(s.Summary), strings.ToLower(query)) {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeIndex records added documents and serves scripted search hits.
type fakeIndex struct {
	docs       map[string]string
	hits       []IndexHit
	searchErr  error
	addErr     error
	resetCalls int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[string]string{}}
}

func (f *fakeIndex) Add(_ context.Context, text, id string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.docs[id] = text
	return nil
}

func (f *fakeIndex) AddBatch(ctx context.Context, texts, ids []string) error {
	for i := range texts {
		if err := f.Add(ctx, texts[i], ids[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, numResults int, _ float64) ([]IndexHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	hits := f.hits
	if len(hits) > numResults {
		hits = hits[:numResults]
	}
	return hits, nil
}

func (f *fakeIndex) Delete(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.docs, id)
	}
	return nil
}

func (f *fakeIndex) Reset(context.Context) error {
	f.resetCalls++
	f.docs = map[string]string{}
	return nil
}

var errIndexBroken = errors.New("index broken")

// failingIndex errors on every call, modelling a semantic index that came up
// but cannot serve.
type failingIndex struct{}

func (failingIndex) Add(context.Context, string, string) error { return errIndexBroken }
func (failingIndex) AddBatch(context.Context, []string, []string) error {
	return errIndexBroken
}
func (failingIndex) Search(context.Context, string, int, float64) ([]IndexHit, error) {
	return nil, errIndexBroken
}
func (failingIndex) Delete(context.Context, []string) error { return errIndexBroken }
func (failingIndex) Reset(context.Context) error            { return errIndexBroken }
