package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// cacheTTL is how long an assembled base context stays valid per agent.
// Within the window callers get a stale-but-consistent snapshot; after it a
// full synchronous rebuild runs.
const cacheTTL = 10 * time.Second

// maxRelationships caps the Key Relationships section at the most recent
// graph edges.
const maxRelationships = 30

type cacheEntry struct {
	context   string
	timestamp time.Time
}

// ContextAssembler builds the bounded context block prepended to model
// prompts: fixed-order budgeted sections from the store, optionally layered
// with query-relevant search results. One mutex serializes all operations so
// the per-agent cache never interleaves between logical operations.
type ContextAssembler struct {
	mu     sync.Mutex
	store  Store
	search *SearchService
	log    *slog.Logger
	cache  map[string]cacheEntry
	now    func() time.Time
}

// NewContextAssembler wires an assembler over its storage and search
// collaborators.
func NewContextAssembler(store Store, search *SearchService, log *slog.Logger) *ContextAssembler {
	if log == nil {
		log = slog.Default()
	}
	return &ContextAssembler{
		store:  store,
		search: search,
		log:    log,
		cache:  map[string]cacheEntry{},
		now:    time.Now,
	}
}

// AssembleContext returns the base context for an agent, rebuilding it when
// the cached copy is older than the TTL. A disabled config yields "".
func (a *ContextAssembler) AssembleContext(ctx context.Context, agentID string, cfg Config) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !cfg.Enabled {
		return ""
	}
	return a.cachedBaseLocked(ctx, agentID, cfg.withDefaults())
}

// AssembleContextForQuery returns the base context plus, for a non-empty
// query, a freshly computed query-relevant section. The relevant section is
// never cached because it depends on the caller's query string.
func (a *ContextAssembler) AssembleContextForQuery(ctx context.Context, agentID string, cfg Config, query string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !cfg.Enabled {
		return ""
	}
	cfg = cfg.withDefaults()
	base := a.cachedBaseLocked(ctx, agentID, cfg)
	if strings.TrimSpace(query) == "" {
		return base
	}
	relevant := a.buildRelevantSection(ctx, agentID, cfg, query, base)
	if relevant == "" {
		return base
	}
	if base == "" {
		return relevant
	}
	return base + "\n\n" + relevant
}

// InvalidateCache drops one agent's cached context, or every agent's when
// agentID is empty.
func (a *ContextAssembler) InvalidateCache(agentID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if agentID == "" {
		a.cache = map[string]cacheEntry{}
		return
	}
	delete(a.cache, agentID)
}

func (a *ContextAssembler) cachedBaseLocked(ctx context.Context, agentID string, cfg Config) string {
	if entry, ok := a.cache[agentID]; ok && a.now().Sub(entry.timestamp) < cacheTTL {
		return entry.context
	}
	built := a.buildBase(ctx, agentID, cfg)
	a.cache[agentID] = cacheEntry{context: built, timestamp: a.now()}
	return built
}

// buildBase assembles the fixed-order base sections. Every storage failure
// degrades to an empty section; assembly never aborts.
func (a *ContextAssembler) buildBase(ctx context.Context, agentID string, cfg Config) string {
	sections := []string{"Current date: " + formatDisplayDate(a.now())}

	if !a.store.IsOpen() {
		a.log.Warn("store unavailable, assembling date-only context", "agent", agentID)
		return sections[0]
	}

	if s := a.userOverridesSection(ctx); s != "" {
		sections = append(sections, s)
	}
	if s := a.userProfileSection(ctx); s != "" {
		sections = append(sections, s)
	}
	if s := a.rememberedSection(ctx, agentID, cfg); s != "" {
		sections = append(sections, s)
	}
	if s := a.summariesSection(ctx, agentID, cfg); s != "" {
		sections = append(sections, s)
	}
	if s := a.relationshipsSection(ctx, cfg); s != "" {
		sections = append(sections, s)
	}
	return strings.Join(sections, "\n\n")
}

// userOverridesSection lists every stored user edit. Overrides are
// correctness-critical and assumed small, so they are never trimmed.
func (a *ContextAssembler) userOverridesSection(ctx context.Context) string {
	edits, err := a.store.LoadUserEdits(ctx)
	if err != nil {
		a.log.Warn("load user edits failed", "error", err)
		return ""
	}
	if len(edits) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## User Overrides")
	for _, edit := range edits {
		b.WriteString("\n- ")
		b.WriteString(edit.Content)
	}
	return b.String()
}

func (a *ContextAssembler) userProfileSection(ctx context.Context) string {
	profile, err := a.store.LoadUserProfile(ctx)
	if err != nil {
		a.log.Warn("load user profile failed", "error", err)
		return ""
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return ""
	}
	return "## User Profile\n" + profile
}

func (a *ContextAssembler) rememberedSection(ctx context.Context, agentID string, cfg Config) string {
	entries, err := a.store.LoadActiveEntries(ctx, agentID)
	if err != nil {
		a.log.Warn("load active entries failed", "agent", agentID, "error", err)
		return ""
	}
	if len(entries) == 0 {
		return ""
	}

	// Mark everything loaded as recently used, whether or not it survives
	// trimming. Failure here must not abort assembly.
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := a.store.TouchEntries(ctx, ids); err != nil {
		a.log.Warn("touch entries failed", "error", err)
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = formatEntryLine(e)
	}
	return buildBudgetSection("## Remembered Details", lines, cfg.WorkingMemoryBudgetTokens)
}

func (a *ContextAssembler) summariesSection(ctx context.Context, agentID string, cfg Config) string {
	summaries, err := a.store.LoadSummaries(ctx, agentID, cfg.SummaryRetentionDays)
	if err != nil {
		a.log.Warn("load summaries failed", "agent", agentID, "error", err)
		return ""
	}
	if len(summaries) == 0 {
		return ""
	}
	lines := make([]string, len(summaries))
	for i, s := range summaries {
		lines[i] = formatSummaryLine(s)
	}
	return buildBudgetSection("## Recent Conversation Summaries", lines, cfg.SummaryBudgetTokens)
}

func (a *ContextAssembler) relationshipsSection(ctx context.Context, cfg Config) string {
	rels, err := a.store.LoadRecentRelationships(ctx, maxRelationships)
	if err != nil {
		a.log.Warn("load relationships failed", "error", err)
		return ""
	}
	if len(rels) == 0 {
		return ""
	}
	lines := make([]string, len(rels))
	for i, r := range rels {
		lines[i] = fmt.Sprintf("- %s %s %s", r.FromEntity, r.Relation, r.ToEntity)
	}
	return buildBudgetSection("## Key Relationships", lines, cfg.GraphBudgetTokens)
}

// buildBudgetSection joins header and lines, greedily including lines in
// source order and stopping before the first line that would push the
// running character total (line plus newline) past budgetTokens worth of
// characters. No reordering, no partial lines. Returns "" when nothing fits.
func buildBudgetSection(header string, lines []string, budgetTokens int) string {
	charBudget := budgetTokens * CharsPerToken
	var b strings.Builder
	used := 0
	included := 0
	for _, line := range lines {
		cost := len(line) + 1
		if used+cost > charBudget {
			break
		}
		b.WriteString("\n")
		b.WriteString(line)
		used += cost
		included++
	}
	if included == 0 {
		return ""
	}
	return header + b.String()
}

func formatEntryLine(e Entry) string {
	return fmt.Sprintf("- [%s] %s", e.Type, e.Content)
}

func formatSummaryLine(s Summary) string {
	return fmt.Sprintf("- [%s] %s", displayDate(s.ConversationAt), s.Summary)
}

func formatChunkLine(c Chunk) string {
	label := c.ConversationTitle
	if label == "" {
		label = c.ConversationID
	}
	return fmt.Sprintf("- [%s, %s] %s: %s", label, displayDate(c.CreatedAt), c.Role, c.Content)
}
