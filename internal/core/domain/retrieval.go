package domain

import "time"

// LandedEvent announces a document stored in object storage.
type LandedEvent struct {
	StorageKey  string    `json:"storage_key"`
	StoragePath string    `json:"storage_path"`
	Category    Category  `json:"category"`
	Filename    string    `json:"filename"`
	LandedAt    time.Time `json:"landed_at"`
}

type SearchFilter struct {
	Category string
}

type RetrievedChunk struct {
	StorageKey string  `json:"storage_key"`
	Location   string  `json:"location"`
	Filename   string  `json:"filename"`
	Category   string  `json:"category"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type Citation struct {
	Content  string  `json:"content"`
	Location string  `json:"location"`
	Score    float64 `json:"score"`
}

type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}
