package semantic

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
)

func TestRecordPoint(t *testing.T) {
	p := recordPoint(ChunkRecord{
		ID:        "7b5a1c3e-0000-0000-0000-000000000001",
		Embedding: []float32{0.1, 0.2},
		Text:      "hello world",
		ChatID:    "chat-1",
	})

	if got := p.GetId().GetUuid(); got != "7b5a1c3e-0000-0000-0000-000000000001" {
		t.Errorf("unexpected id: %s", got)
	}
	if got := p.GetVectors().GetVector().GetData(); len(got) != 2 || got[0] != 0.1 {
		t.Errorf("unexpected vector: %v", got)
	}
	if got := p.Payload[fieldText].GetStringValue(); got != "hello world" {
		t.Errorf("unexpected text payload: %q", got)
	}
	if got := p.Payload[fieldChatID].GetStringValue(); got != "chat-1" {
		t.Errorf("unexpected chat_id payload: %q", got)
	}
}

func TestChatFilter(t *testing.T) {
	f := chatFilter("chat-9")
	if len(f.Must) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(f.Must))
	}
	cond := f.Must[0].GetField()
	if cond.GetKey() != fieldChatID {
		t.Errorf("expected key chat_id, got %s", cond.GetKey())
	}
	if cond.GetMatch().GetKeyword() != "chat-9" {
		t.Errorf("expected keyword chat-9, got %s", cond.GetMatch().GetKeyword())
	}
}

func TestHitFromScored(t *testing.T) {
	sp := &pb.ScoredPoint{
		Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "abc"}},
		Score: 0.44,
		Payload: map[string]*pb.Value{
			fieldText:   {Kind: &pb.Value_StringValue{StringValue: "chunk text"}},
			fieldChatID: {Kind: &pb.Value_StringValue{StringValue: "chat-2"}},
		},
	}
	h := hitFromScored(sp)
	if h.ID != "abc" || h.Score != 0.44 || h.Text != "chunk text" || h.ChatID != "chat-2" {
		t.Errorf("unexpected hit: %+v", h)
	}
}
