package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the default durable Store. Single shared connection to
// avoid writer lock contention with SQLite under concurrent goroutines.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// NewSQLiteStore creates or opens the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS user_edits (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			content TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL DEFAULT '',
			entry_type TEXT NOT NULL,
			content TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			created_at_ms INTEGER NOT NULL,
			valid_from TEXT NOT NULL DEFAULT '',
			valid_until TEXT NOT NULL DEFAULT '',
			archived INTEGER NOT NULL DEFAULT 0,
			last_used_at_ms INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS entries_agent_idx ON entries(agent_id, archived, created_at_ms DESC);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			conversation_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			agent_id TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			conversation_title TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (conversation_id, chunk_index)
		);`,
		`CREATE INDEX IF NOT EXISTS chunks_agent_idx ON chunks(agent_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			agent_id TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			conversation_at TEXT NOT NULL,
			summary TEXT NOT NULL,
			PRIMARY KEY (agent_id, conversation_id, conversation_at)
		);`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id TEXT PRIMARY KEY,
			from_entity TEXT NOT NULL,
			from_type TEXT NOT NULL DEFAULT '',
			relation TEXT NOT NULL,
			to_entity TEXT NOT NULL,
			to_type TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS relationships_edge_idx ON relationships(from_entity, relation, to_entity);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.closed.Store(true)
	return s.db.Close()
}

// IsOpen reports whether the store still serves reads.
func (s *SQLiteStore) IsOpen() bool {
	return s != nil && s.db != nil && !s.closed.Load()
}

func (s *SQLiteStore) guard() error {
	if !s.IsOpen() {
		return ErrStoreClosed
	}
	return nil
}

// --- writes (used by importers, the CLI and tests) ---

// SaveUserEdit appends one user override, minting an id when absent.
func (s *SQLiteStore) SaveUserEdit(ctx context.Context, edit UserEdit) (UserEdit, error) {
	if err := s.guard(); err != nil {
		return UserEdit{}, err
	}
	if edit.ID == "" {
		edit.ID = "edit-" + ulid.Make().String()
	}
	if edit.CreatedAt.IsZero() {
		edit.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_edits (id, content, created_at_ms) VALUES (?, ?, ?)`,
		edit.ID, edit.Content, edit.CreatedAt.UnixMilli())
	if err != nil {
		return UserEdit{}, fmt.Errorf("save user edit: %w", err)
	}
	return edit, nil
}

// SaveUserProfile replaces the single free-text profile block.
func (s *SQLiteStore) SaveUserProfile(ctx context.Context, content string) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_profile (id, content) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET content = excluded.content`, content)
	if err != nil {
		return fmt.Errorf("save user profile: %w", err)
	}
	return nil
}

// SaveEntry inserts or replaces a memory entry, minting a ULID when the id
// is absent.
func (s *SQLiteStore) SaveEntry(ctx context.Context, entry Entry) (Entry, error) {
	if err := s.guard(); err != nil {
		return Entry{}, err
	}
	if entry.ID == "" {
		entry.ID = "ent-" + ulid.Make().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (id, agent_id, entry_type, content, confidence, created_at_ms, valid_from, valid_until)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			agent_id = excluded.agent_id,
			entry_type = excluded.entry_type,
			content = excluded.content,
			confidence = excluded.confidence,
			valid_from = excluded.valid_from,
			valid_until = excluded.valid_until`,
		entry.ID, entry.AgentID, string(entry.Type), entry.Content, entry.Confidence,
		entry.CreatedAt.UnixMilli(), entry.ValidFrom, entry.ValidUntil)
	if err != nil {
		return Entry{}, fmt.Errorf("save entry: %w", err)
	}
	return entry, nil
}

// ArchiveEntry soft-deletes an entry; archived entries drop out of active
// listings and lexical search.
func (s *SQLiteStore) ArchiveEntry(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE entries SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive entry: %w", err)
	}
	return nil
}

// SaveChunk upserts one conversation chunk by its composite key.
func (s *SQLiteStore) SaveChunk(ctx context.Context, chunk Chunk) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks (conversation_id, chunk_index, agent_id, role, content, conversation_title, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(conversation_id, chunk_index) DO UPDATE SET
			agent_id = excluded.agent_id,
			role = excluded.role,
			content = excluded.content,
			conversation_title = excluded.conversation_title,
			created_at = excluded.created_at`,
		chunk.ConversationID, chunk.ChunkIndex, chunk.AgentID, chunk.Role,
		chunk.Content, chunk.ConversationTitle, chunk.CreatedAt)
	if err != nil {
		return fmt.Errorf("save chunk: %w", err)
	}
	return nil
}

// SaveSummary upserts one conversation summary by its composite key.
func (s *SQLiteStore) SaveSummary(ctx context.Context, summary Summary) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (agent_id, conversation_id, conversation_at, summary)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(agent_id, conversation_id, conversation_at) DO UPDATE SET
			summary = excluded.summary`,
		summary.AgentID, summary.ConversationID, summary.ConversationAt, summary.Summary)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// SaveRelationship upserts one graph edge, minting an id when absent.
func (s *SQLiteStore) SaveRelationship(ctx context.Context, rel Relationship) (Relationship, error) {
	if err := s.guard(); err != nil {
		return Relationship{}, err
	}
	if rel.ID == "" {
		rel.ID = "rel-" + ulid.Make().String()
	}
	if rel.CreatedAtMS == 0 {
		rel.CreatedAtMS = time.Now().UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relationships (id, from_entity, from_type, relation, to_entity, to_type, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(from_entity, relation, to_entity) DO UPDATE SET
			from_type = excluded.from_type,
			to_type = excluded.to_type,
			created_at_ms = excluded.created_at_ms`,
		rel.ID, rel.FromEntity, rel.FromType, rel.Relation, rel.ToEntity, rel.ToType, rel.CreatedAtMS)
	if err != nil {
		return Relationship{}, fmt.Errorf("save relationship: %w", err)
	}
	return rel, nil
}

// --- reads ---

func (s *SQLiteStore) LoadUserEdits(ctx context.Context) ([]UserEdit, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, created_at_ms FROM user_edits ORDER BY created_at_ms ASC`)
	if err != nil {
		return nil, fmt.Errorf("load user edits: %w", err)
	}
	defer rows.Close()
	var edits []UserEdit
	for rows.Next() {
		var edit UserEdit
		var createdMS int64
		if err := rows.Scan(&edit.ID, &edit.Content, &createdMS); err != nil {
			return nil, err
		}
		edit.CreatedAt = time.UnixMilli(createdMS)
		edits = append(edits, edit)
	}
	return edits, rows.Err()
}

func (s *SQLiteStore) LoadUserProfile(ctx context.Context) (string, error) {
	if err := s.guard(); err != nil {
		return "", err
	}
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM user_profile WHERE id = 1`).Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load user profile: %w", err)
	}
	return content, nil
}

const entryColumns = `id, agent_id, entry_type, content, confidence, created_at_ms, valid_from, valid_until`

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var entryType string
	var createdMS int64
	if err := rows.Scan(&e.ID, &e.AgentID, &entryType, &e.Content, &e.Confidence, &createdMS, &e.ValidFrom, &e.ValidUntil); err != nil {
		return Entry{}, err
	}
	e.Type = EntryType(entryType)
	e.CreatedAt = time.UnixMilli(createdMS)
	return e, nil
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) LoadActiveEntries(ctx context.Context, agentID string) ([]Entry, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE archived = 0 AND (agent_id = ? OR agent_id = '')
		 ORDER BY created_at_ms DESC`, agentID)
}

func (s *SQLiteStore) LoadAllActiveEntries(ctx context.Context) ([]Entry, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE archived = 0 ORDER BY created_at_ms DESC`)
}

func (s *SQLiteStore) LoadEntriesByIDs(ctx context.Context, ids []string, agentID string) ([]Entry, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT ` + entryColumns + ` FROM entries WHERE archived = 0 AND id IN (` + placeholders + `)`
	if agentID != "" {
		query += ` AND (agent_id = ? OR agent_id = '')`
		args = append(args, agentID)
	}
	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	// Preserve the caller's id order; it carries ranking information.
	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	ordered := make([]Entry, 0, len(entries))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
		}
	}
	return ordered, nil
}

func (s *SQLiteStore) TouchEntries(ctx context.Context, ids []string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, time.Now().UnixMilli())
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE entries SET last_used_at_ms = ? WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("touch entries: %w", err)
	}
	return nil
}

func cutoffDate(days int) string {
	return time.Now().AddDate(0, 0, -days).Format(storedDateLayout)
}

func (s *SQLiteStore) querySummaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var summaries []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.AgentID, &sm.ConversationID, &sm.ConversationAt, &sm.Summary); err != nil {
			return nil, err
		}
		summaries = append(summaries, sm)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStore) LoadSummaries(ctx context.Context, agentID string, days int) ([]Summary, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.querySummaries(ctx,
		`SELECT agent_id, conversation_id, conversation_at, summary FROM summaries
		 WHERE agent_id = ? AND conversation_at >= ?
		 ORDER BY conversation_at DESC`, agentID, cutoffDate(days))
}

func (s *SQLiteStore) LoadAllSummaries(ctx context.Context) ([]Summary, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.querySummaries(ctx,
		`SELECT agent_id, conversation_id, conversation_at, summary FROM summaries
		 ORDER BY conversation_at DESC`)
}

func (s *SQLiteStore) LoadAllSummaryKeys(ctx context.Context) ([]SummaryKey, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, conversation_id, conversation_at FROM summaries`)
	if err != nil {
		return nil, fmt.Errorf("load summary keys: %w", err)
	}
	defer rows.Close()
	var keys []SummaryKey
	for rows.Next() {
		var key SummaryKey
		if err := rows.Scan(&key.AgentID, &key.ConversationID, &key.ConversationAt); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) LoadSummariesByKeys(ctx context.Context, keys []SummaryKey, agentID string) ([]Summary, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	all := make([]Summary, 0, len(keys))
	for _, key := range keys {
		if agentID != "" && key.AgentID != agentID {
			continue
		}
		rows, err := s.querySummaries(ctx,
			`SELECT agent_id, conversation_id, conversation_at, summary FROM summaries
			 WHERE agent_id = ? AND conversation_id = ? AND conversation_at = ?`,
			key.AgentID, key.ConversationID, key.ConversationAt)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

const chunkColumns = `conversation_id, chunk_index, agent_id, role, content, conversation_title, created_at`

func (s *SQLiteStore) queryChunks(ctx context.Context, query string, args ...any) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ConversationID, &c.ChunkIndex, &c.AgentID, &c.Role, &c.Content, &c.ConversationTitle, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStore) LoadAllChunks(ctx context.Context) ([]Chunk, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.queryChunks(ctx,
		`SELECT `+chunkColumns+` FROM chunks ORDER BY conversation_id, chunk_index`)
}

func (s *SQLiteStore) LoadAllChunkKeys(ctx context.Context) ([]ChunkKey, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT conversation_id, chunk_index FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("load chunk keys: %w", err)
	}
	defer rows.Close()
	var keys []ChunkKey
	for rows.Next() {
		var key ChunkKey
		if err := rows.Scan(&key.ConversationID, &key.ChunkIndex); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) LoadChunksByKeys(ctx context.Context, keys []ChunkKey) ([]Chunk, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	all := make([]Chunk, 0, len(keys))
	for _, key := range keys {
		chunks, err := s.queryChunks(ctx,
			`SELECT `+chunkColumns+` FROM chunks WHERE conversation_id = ? AND chunk_index = ?`,
			key.ConversationID, key.ChunkIndex)
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
	}
	return all, nil
}

func (s *SQLiteStore) LoadRecentRelationships(ctx context.Context, limit int) ([]Relationship, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = maxRelationships
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_entity, from_type, relation, to_entity, to_type, created_at_ms
		 FROM relationships ORDER BY created_at_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	defer rows.Close()
	var rels []Relationship
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.ID, &r.FromEntity, &r.FromType, &r.Relation, &r.ToEntity, &r.ToType, &r.CreatedAtMS); err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

func (s *SQLiteStore) loadAllRelationships(ctx context.Context) ([]Relationship, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_entity, from_type, relation, to_entity, to_type, created_at_ms FROM relationships`)
	if err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	defer rows.Close()
	var rels []Relationship
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.ID, &r.FromEntity, &r.FromType, &r.Relation, &r.ToEntity, &r.ToType, &r.CreatedAtMS); err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// QueryEntityGraph walks outgoing relationship edges breadth-first from the
// named entity, up to depth hops, returning one row per edge traversed with
// the accumulated path.
func (s *SQLiteStore) QueryEntityGraph(ctx context.Context, name string, depth int) ([]GraphResult, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if depth < 1 {
		depth = 1
	}
	rels, err := s.loadAllRelationships(ctx)
	if err != nil {
		return nil, err
	}
	outgoing := map[string][]Relationship{}
	for _, r := range rels {
		outgoing[r.FromEntity] = append(outgoing[r.FromEntity], r)
	}

	type frontier struct {
		entity string
		path   string
		depth  int
	}
	var results []GraphResult
	visited := map[string]bool{name: true}
	queue := []frontier{{entity: name, path: name, depth: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= depth {
			continue
		}
		for _, edge := range outgoing[cur.entity] {
			path := cur.path + " -> " + edge.Relation + " -> " + edge.ToEntity
			entityType := edge.ToType
			if entityType == "" {
				entityType = "entity"
			}
			results = append(results, GraphResult{Path: path, EntityType: entityType, Depth: cur.depth + 1})
			if !visited[edge.ToEntity] {
				visited[edge.ToEntity] = true
				queue = append(queue, frontier{entity: edge.ToEntity, path: path, depth: cur.depth + 1})
			}
		}
	}
	return results, nil
}

// QueryRelationships returns every edge with the given relation as a
// single-hop graph result.
func (s *SQLiteStore) QueryRelationships(ctx context.Context, relation string) ([]GraphResult, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_entity, relation, to_entity, to_type FROM relationships
		 WHERE relation = ? ORDER BY created_at_ms DESC`, relation)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()
	var results []GraphResult
	for rows.Next() {
		var from, rel, to, toType string
		if err := rows.Scan(&from, &rel, &to, &toType); err != nil {
			return nil, err
		}
		if toType == "" {
			toType = "entity"
		}
		results = append(results, GraphResult{
			Path:       from + " -> " + rel + " -> " + to,
			EntityType: toType,
			Depth:      1,
		})
	}
	return results, rows.Err()
}

// --- lexical fallback search (substring matching, case-insensitive) ---

func likePattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
	return "%" + escaped + "%"
}

func (s *SQLiteStore) SearchEntriesLexical(ctx context.Context, query, agentID string) ([]Entry, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	sqlQuery := `SELECT ` + entryColumns + ` FROM entries
		 WHERE archived = 0 AND content LIKE ? ESCAPE '\'`
	args := []any{likePattern(query)}
	if agentID != "" {
		sqlQuery += ` AND (agent_id = ? OR agent_id = '')`
		args = append(args, agentID)
	}
	sqlQuery += ` ORDER BY created_at_ms DESC`
	return s.queryEntries(ctx, sqlQuery, args...)
}

func (s *SQLiteStore) SearchChunksLexical(ctx context.Context, query, agentID string, days int) ([]Chunk, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	sqlQuery := `SELECT ` + chunkColumns + ` FROM chunks
		 WHERE content LIKE ? ESCAPE '\'`
	args := []any{likePattern(query)}
	if agentID != "" {
		sqlQuery += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	if days > 0 {
		sqlQuery += ` AND created_at >= ?`
		args = append(args, cutoffDate(days))
	}
	sqlQuery += ` ORDER BY conversation_id, chunk_index`
	return s.queryChunks(ctx, sqlQuery, args...)
}

func (s *SQLiteStore) SearchSummariesLexical(ctx context.Context, query, agentID string, days int) ([]Summary, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	sqlQuery := `SELECT agent_id, conversation_id, conversation_at, summary FROM summaries
		 WHERE summary LIKE ? ESCAPE '\'`
	args := []any{likePattern(query)}
	if agentID != "" {
		sqlQuery += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	if days > 0 {
		sqlQuery += ` AND conversation_at >= ?`
		args = append(args, cutoffDate(days))
	}
	sqlQuery += ` ORDER BY conversation_at DESC`
	return s.querySummaries(ctx, sqlQuery, args...)
}
