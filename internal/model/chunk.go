package model

import (
	"encoding/json"
	"time"
)

// ChunkMetadata travels with every stored chunk and is what metadata filters match against.
type ChunkMetadata struct {
	DocumentID      string       `json:"document_id"`
	Title           string       `json:"title"`
	Type            DocumentType `json:"type"`
	Source          string       `json:"source"`
	ChunkIndex      int          `json:"chunk_index"`
	YearsExperience int          `json:"years_experience,omitempty"`
	Skills          []string     `json:"skills,omitempty"`
	Technologies    []string     `json:"technologies,omitempty"`
	ProjectName     string       `json:"project_name,omitempty"`
}

// EmbeddedChunk is a chunk ready to be written to a vector store.
type EmbeddedChunk struct {
	Content   string
	Embedding []float32
	Metadata  ChunkMetadata
}

// Chunk stores a text chunk and its embedding for retrieval.
// Embedding and metadata are stored as JSON for portability.
type Chunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID string    `gorm:"size:64;not null;index" json:"document_id"`
	ChunkIndex int       `gorm:"not null" json:"chunk_index"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Embedding  string    `gorm:"type:mediumtext" json:"-"`
	Metadata   string    `gorm:"type:text" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Chunk) TableName() string {
	return "documents"
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *Chunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

func (c *Chunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}

// ChunkMetadata decodes the stored metadata; a broken payload yields the column values only.
func (c *Chunk) ChunkMetadata() ChunkMetadata {
	meta := ChunkMetadata{}
	if c.Metadata != "" {
		_ = json.Unmarshal([]byte(c.Metadata), &meta)
	}
	if meta.DocumentID == "" {
		meta.DocumentID = c.DocumentID
	}
	meta.ChunkIndex = c.ChunkIndex
	return meta
}

func (c *Chunk) SetChunkMetadata(meta ChunkMetadata) {
	c.DocumentID = meta.DocumentID
	c.ChunkIndex = meta.ChunkIndex
	b, _ := json.Marshal(meta)
	c.Metadata = string(b)
}

// NewChunk converts an embedded chunk into its storage row.
func NewChunk(in EmbeddedChunk) Chunk {
	var c Chunk
	c.Content = in.Content
	c.SetEmbedding(in.Embedding)
	c.SetChunkMetadata(in.Metadata)
	return c
}

// RetrievalResult is a scored chunk produced by a similarity search. It is never persisted.
type RetrievalResult struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float64       `json:"score"`
}
