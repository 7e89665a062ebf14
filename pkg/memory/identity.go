package memory

import (
	"strconv"

	"github.com/google/uuid"
)

// The semantic index addresses documents by fixed-width ids while the store
// addresses chunks and summaries by composite natural keys. Surrogate ids are
// name-based (version 5 style) UUIDs over a canonical key string, so the same
// record always maps to the same id: reindexing is idempotent, any process can
// compute the id without a lookup, and a rebuild reproduces identical ids.
var docNamespace = uuid.MustParse("8f8e9cb2-51ae-4d91-b9a3-2f1c70a64d3e")

// ChunkDocID derives the deterministic index id for a conversation chunk.
func ChunkDocID(key ChunkKey) string {
	canonical := "chunk:" + key.ConversationID + ":" + strconv.Itoa(key.ChunkIndex)
	return uuid.NewSHA1(docNamespace, []byte(canonical)).String()
}

// SummaryDocID derives the deterministic index id for a conversation summary.
func SummaryDocID(key SummaryKey) string {
	canonical := "summary:" + key.AgentID + ":" + key.ConversationID + ":" + key.ConversationAt
	return uuid.NewSHA1(docNamespace, []byte(canonical)).String()
}
