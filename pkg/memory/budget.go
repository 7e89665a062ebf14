package memory

import (
	"fmt"
	"strings"
)

// BudgetCategory names one slice of the outbound request token budget.
type BudgetCategory string

const (
	CategorySystemPrompt BudgetCategory = "system_prompt"
	CategoryTools        BudgetCategory = "tools"
	CategoryMemory       BudgetCategory = "memory"
	CategoryResponse     BudgetCategory = "response"

	// CategoryHistory is never reserved directly; its budget is whatever
	// remains after all other reservations.
	CategoryHistory BudgetCategory = "history"
)

// contextWindowMargin discounts the model context window to compensate for
// the coarse chars-per-token estimator.
const contextWindowMargin = 0.85

// BudgetManager accounts tokens for one outbound model request and trims a
// conversation history to fit the remaining budget. It is a pure
// value-in/value-out transformation with no retries or cross-call state.
type BudgetManager struct {
	effectiveBudget int
	reservations    map[BudgetCategory]int
}

// NewBudgetManager creates a manager for a model with the given context
// window. The effective budget is floor(window * 0.85).
func NewBudgetManager(contextWindowTokens int) *BudgetManager {
	if contextWindowTokens < 0 {
		contextWindowTokens = 0
	}
	return &BudgetManager{
		effectiveBudget: int(float64(contextWindowTokens) * contextWindowMargin),
		reservations:    map[BudgetCategory]int{},
	}
}

// EffectiveBudget returns the total usable token budget.
func (b *BudgetManager) EffectiveBudget() int { return b.effectiveBudget }

// Reserve sets the exact token reservation for a category, replacing any
// prior value. Reserving history is ignored; it is always computed as the
// remainder.
func (b *BudgetManager) Reserve(category BudgetCategory, tokens int) {
	if category == CategoryHistory {
		return
	}
	if tokens < 0 {
		tokens = 0
	}
	b.reservations[category] = tokens
}

// ReserveChars reserves a category by character count at the global
// chars-per-token rate, minimum one token.
func (b *BudgetManager) ReserveChars(category BudgetCategory, characters int) {
	tokens := characters / CharsPerToken
	if tokens < 1 {
		tokens = 1
	}
	b.Reserve(category, tokens)
}

// HistoryBudget returns the tokens left for conversation history after all
// other reservations, never negative.
func (b *BudgetManager) HistoryBudget() int {
	used := 0
	for category, tokens := range b.reservations {
		if category == CategoryHistory {
			continue
		}
		used += tokens
	}
	remaining := b.effectiveBudget - used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// EstimateTextTokens estimates tokens for a text: length/4, minimum one for
// non-empty text, zero for empty.
func EstimateTextTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len(text) / CharsPerToken
	if tokens < 1 {
		return 1
	}
	return tokens
}

// messageOverheadTokens is the flat structural cost charged per message.
const messageOverheadTokens = 4

// toolCallOverheadTokens covers a tool call's name and id fields.
const toolCallOverheadTokens = 8

// EstimateMessageTokens estimates one message: content plus serialized tool
// call arguments plus structural overhead.
func EstimateMessageTokens(msg Message) int {
	tokens := EstimateTextTokens(msg.Content)
	if msg.Role == "assistant" {
		for _, call := range msg.ToolCalls {
			tokens += EstimateTextTokens(call.Arguments) + toolCallOverheadTokens
		}
	}
	return tokens + messageOverheadTokens
}

// EstimateMessagesTokens estimates a whole message list.
func EstimateMessagesTokens(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateMessageTokens(m)
	}
	return total
}

// TrimMessages fits msgs into the history budget using a three phase degrade
// strategy: protect the first message and the last recentPairsToKeep
// assistant turns, then compress middle tool results to one-line summaries,
// then drop middle messages newest-first-kept until the rest fits. A
// synthetic user note marks how many messages were dropped. Input within
// budget is returned unchanged.
func (b *BudgetManager) TrimMessages(msgs []Message, recentPairsToKeep int) []Message {
	if recentPairsToKeep <= 0 {
		recentPairsToKeep = 3
	}
	budget := b.HistoryBudget()
	if len(msgs) == 0 || EstimateMessagesTokens(msgs) <= budget {
		return msgs
	}

	tailStart := protectedTailStart(msgs, recentPairsToKeep)
	// Head and tail overlapping or covering everything leaves nothing to trim.
	if tailStart <= 1 {
		return msgs
	}

	// Phase 1: compress tool results strictly between head and tail.
	compressed := make([]Message, len(msgs))
	copy(compressed, msgs)
	for i := 1; i < tailStart; i++ {
		if compressed[i].Role == "tool" {
			compressed[i].Content = SummarizeToolResult(compressed[i].Content)
		}
	}
	if EstimateMessagesTokens(compressed) <= budget {
		return compressed
	}

	// Phase 2: drop middle messages, keeping the newest that still fit a
	// running total seeded by head plus tail.
	running := EstimateMessageTokens(compressed[0])
	for i := tailStart; i < len(compressed); i++ {
		running += EstimateMessageTokens(compressed[i])
	}
	keep := make([]bool, tailStart)
	kept := 0
	for i := tailStart - 1; i >= 1; i-- {
		tokens := EstimateMessageTokens(compressed[i])
		if running+tokens <= budget {
			keep[i] = true
			kept++
			running += tokens
		}
	}
	dropped := (tailStart - 1) - kept
	if dropped == 0 {
		return compressed
	}

	out := make([]Message, 0, len(compressed)-dropped+1)
	out = append(out, compressed[0])
	out = append(out, trimNote(dropped))
	for i := 1; i < tailStart; i++ {
		if keep[i] {
			out = append(out, compressed[i])
		}
	}
	out = append(out, compressed[tailStart:]...)
	return out
}

// protectedTailStart returns the index where the protected tail window
// begins: walking backward, the position of the Nth assistant message from
// the end, or 0 when fewer than N assistant messages exist.
func protectedTailStart(msgs []Message, pairs int) int {
	seen := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "assistant" {
			seen++
			if seen >= pairs {
				return i
			}
		}
	}
	return 0
}

func trimNote(dropped int) Message {
	noun := "messages"
	if dropped == 1 {
		noun = "message"
	}
	return Message{
		Role:    "user",
		Content: fmt.Sprintf("[%d earlier %s trimmed to fit the context window]", dropped, noun),
	}
}

// summarizeThreshold is the size below which unrecognized tool output is
// left untouched; compression only applies where it clearly helps.
const summarizeThreshold = 200

const summaryPreviewChars = 150

// SummarizeToolResult collapses a verbose tool result into a one-line
// description based on its content shape. Short content with no recognized
// shape passes through unchanged.
func SummarizeToolResult(content string) string {
	lines := strings.Count(content, "\n") + 1
	switch {
	case strings.HasPrefix(content, "File content"):
		return fmt.Sprintf("file content, %d lines, %d chars: %s", lines, len(content), firstLine(content))
	case strings.HasPrefix(content, "Found "):
		return firstLine(content)
	case strings.HasPrefix(content, "$ "):
		return fmt.Sprintf("command output, %d lines: %s", lines, lastLine(content))
	case strings.HasPrefix(content, "diff --git") || strings.HasPrefix(content, "--- "):
		return fmt.Sprintf("diff, %d lines, %d chars", lines, len(content))
	case len(content) > summarizeThreshold:
		preview := content
		if len(preview) > summaryPreviewChars {
			preview = preview[:summaryPreviewChars]
		}
		return fmt.Sprintf("tool result, %d chars: %s", len(content), preview)
	default:
		return content
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
