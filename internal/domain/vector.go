package domain

import "time"

// Chunk is one unit of pre-chunked text with its provenance, the atomic
// unit embedded into a vector. Source is the original document locator
// recorded by whatever produced the chunk file.
type Chunk struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// KnowledgeVector is one embedded chunk. Vectors are write-once: they are
// appended during ingestion and only ever removed in bulk with their
// snapshot. They are addressed by snapshot ID plus similarity ranking.
type KnowledgeVector struct {
	ID         string
	SnapshotID string
	SourceID   string
	Content    string
	Embedding  []float32

	// Provenance metadata carried from the chunk file
	ChunkFile  string
	ChunkIndex int

	CreatedAt time.Time
}
