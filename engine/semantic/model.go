package semantic

// ChunkRecord is one vector plus its payload, ready for upsert. The payload
// carries the chunk text and the owning chat so that every search and delete
// can be scoped by chat_id.
type ChunkRecord struct {
	ID        string
	Embedding []float32
	Text      string
	ChatID    string
}

// Hit is a single similarity-search result.
type Hit struct {
	ID     string  `json:"id"`
	Score  float32 `json:"score"`
	Text   string  `json:"text"`
	ChatID string  `json:"chat_id"`
}
