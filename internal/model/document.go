package model

import (
	"strings"
	"time"
)

type DocumentType string

const (
	DocumentTypeCV        DocumentType = "cv"
	DocumentTypePortfolio DocumentType = "portfolio"
	DocumentTypeProject   DocumentType = "project"
	DocumentTypeBlog      DocumentType = "blog"
	DocumentTypeGitHub    DocumentType = "github"
	DocumentTypeLinkedIn  DocumentType = "linkedin"
	DocumentTypeOther     DocumentType = "other"
)

// DocumentTypes lists the accepted document types in display order.
var DocumentTypes = []DocumentType{
	DocumentTypeCV,
	DocumentTypePortfolio,
	DocumentTypeProject,
	DocumentTypeBlog,
	DocumentTypeGitHub,
	DocumentTypeLinkedIn,
	DocumentTypeOther,
}

// ParseDocumentType accepts only the closed set of document types.
func ParseDocumentType(raw string) (DocumentType, bool) {
	t := DocumentType(strings.TrimSpace(raw))
	return t, t.Valid()
}

func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Document is the metadata row of an ingested source (CV, blog post, ...).
type Document struct {
	ID         string       `gorm:"primaryKey;size:64" json:"id"`
	Title      string       `gorm:"size:256;not null" json:"title"`
	Type       DocumentType `gorm:"size:32;not null;index" json:"type"`
	Source     string       `gorm:"size:256" json:"source"`
	ChunkCount int          `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (Document) TableName() string {
	return "documents_metadata"
}
