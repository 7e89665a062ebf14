package memory

import (
	"testing"

	"github.com/google/uuid"
)

func TestChunkDocIDDeterministic(t *testing.T) {
	key := ChunkKey{ConversationID: "conv-42", ChunkIndex: 7}
	first := ChunkDocID(key)
	second := ChunkDocID(key)
	if first != second {
		t.Fatalf("same key produced different ids: %s vs %s", first, second)
	}
}

func TestSummaryDocIDDeterministic(t *testing.T) {
	key := SummaryKey{AgentID: "a", ConversationID: "conv-1", ConversationAt: "2023-05-08"}
	if SummaryDocID(key) != SummaryDocID(key) {
		t.Fatalf("summary id not deterministic")
	}
}

func TestDocIDsAreValidVersion5UUIDs(t *testing.T) {
	id, err := uuid.Parse(ChunkDocID(ChunkKey{ConversationID: "c", ChunkIndex: 0}))
	if err != nil {
		t.Fatalf("chunk doc id is not a uuid: %v", err)
	}
	if id.Version() != 5 {
		t.Fatalf("expected version 5 uuid, got version %d", id.Version())
	}
}

func TestDocIDsDistinguishKeys(t *testing.T) {
	a := ChunkDocID(ChunkKey{ConversationID: "conv", ChunkIndex: 1})
	b := ChunkDocID(ChunkKey{ConversationID: "conv", ChunkIndex: 2})
	if a == b {
		t.Fatalf("different chunk indexes mapped to the same id")
	}
	// A chunk and a summary sharing raw field values must not collide.
	c := ChunkDocID(ChunkKey{ConversationID: "x", ChunkIndex: 0})
	d := SummaryDocID(SummaryKey{AgentID: "x", ConversationID: "0", ConversationAt: ""})
	if c == d {
		t.Fatalf("chunk and summary ids collided")
	}
}
