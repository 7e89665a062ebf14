package memory

import "time"

// EntryType classifies long-term memory entries.
type EntryType string

const (
	EntryFact       EntryType = "fact"
	EntryPreference EntryType = "preference"
	EntryDecision   EntryType = "decision"
	EntryTask       EntryType = "task"
)

// Entry is a durable remembered fact, preference or decision. Entries are
// owned by the store; the search and assembly layers only read them.
type Entry struct {
	ID         string
	AgentID    string
	Type       EntryType
	Content    string
	Confidence float64
	CreatedAt  time.Time
	ValidFrom  string
	ValidUntil string
}

// ChunkKey is the natural composite identity of a conversation chunk.
type ChunkKey struct {
	ConversationID string
	ChunkIndex     int
}

// Chunk is one stored excerpt of a conversation transcript.
type Chunk struct {
	ConversationID    string
	ChunkIndex        int
	AgentID           string
	Role              string
	Content           string
	ConversationTitle string
	CreatedAt         string
}

// Key returns the chunk's composite identity.
func (c Chunk) Key() ChunkKey {
	return ChunkKey{ConversationID: c.ConversationID, ChunkIndex: c.ChunkIndex}
}

// SummaryKey is the natural composite identity of a conversation summary.
type SummaryKey struct {
	AgentID        string
	ConversationID string
	ConversationAt string
}

// Summary is a per-conversation summary produced elsewhere and consumed here.
type Summary struct {
	AgentID        string
	ConversationID string
	ConversationAt string
	Summary        string
}

// Key returns the summary's composite identity.
func (s Summary) Key() SummaryKey {
	return SummaryKey{AgentID: s.AgentID, ConversationID: s.ConversationID, ConversationAt: s.ConversationAt}
}

// GraphResult is one row of an entity-graph traversal. Graph rows are never
// indexed for semantic search.
type GraphResult struct {
	Path       string
	EntityType string
	Depth      int
}

// Relationship is a stored entity relationship edge. Entity types are
// free-form labels ("person", "project"); empty means unclassified.
type Relationship struct {
	ID          string
	FromEntity  string
	FromType    string
	Relation    string
	ToEntity    string
	ToType      string
	CreatedAtMS int64
}

// UserEdit is one explicit user correction to remembered state.
type UserEdit struct {
	ID        string
	Content   string
	CreatedAt time.Time
}

// ScoredEntry pairs an entry with its raw semantic similarity score.
type ScoredEntry struct {
	Entry Entry
	Score float64
}

// ToolCall is an assistant-requested tool invocation carried on a message.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is the provider-agnostic conversation message shape consumed by
// the budget manager.
type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// Config is the tunable surface of the retrieval and assembly engine.
type Config struct {
	Enabled                   bool
	WorkingMemoryBudgetTokens int
	SummaryBudgetTokens       int
	GraphBudgetTokens         int
	ChunkBudgetTokens         int
	SummaryRetentionDays      int
	RecallTopK                int
	MMRLambda                 float64
	MMRFetchMultiplier        int
}

// CharsPerToken is the global character-per-token estimate used by every
// budget computation. Deliberately coarse; the 0.85 context-window margin
// absorbs the error.
const CharsPerToken = 4

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:                   true,
		WorkingMemoryBudgetTokens: 1200,
		SummaryBudgetTokens:       800,
		GraphBudgetTokens:         400,
		ChunkBudgetTokens:         1200,
		SummaryRetentionDays:      30,
		RecallTopK:                5,
		MMRLambda:                 0.7,
		MMRFetchMultiplier:        3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WorkingMemoryBudgetTokens <= 0 {
		c.WorkingMemoryBudgetTokens = d.WorkingMemoryBudgetTokens
	}
	if c.SummaryBudgetTokens <= 0 {
		c.SummaryBudgetTokens = d.SummaryBudgetTokens
	}
	if c.GraphBudgetTokens <= 0 {
		c.GraphBudgetTokens = d.GraphBudgetTokens
	}
	if c.ChunkBudgetTokens <= 0 {
		c.ChunkBudgetTokens = d.ChunkBudgetTokens
	}
	if c.SummaryRetentionDays <= 0 {
		c.SummaryRetentionDays = d.SummaryRetentionDays
	}
	if c.RecallTopK <= 0 {
		c.RecallTopK = d.RecallTopK
	}
	if c.MMRLambda <= 0 || c.MMRLambda > 1 {
		c.MMRLambda = d.MMRLambda
	}
	if c.MMRFetchMultiplier <= 0 {
		c.MMRFetchMultiplier = d.MMRFetchMultiplier
	}
	return c
}
