package app

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidDocumentType  = errors.New("invalid document type")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrDependency           = errors.New("dependency failure")
)

// PartialIngestionError reports an ingestion that stopped after the metadata
// row was written. Written counts the chunks already stored; they are not
// rolled back.
type PartialIngestionError struct {
	DocumentID string
	Written    int
	Err        error
}

func (e *PartialIngestionError) Error() string {
	return fmt.Sprintf("ingestion of %s stopped after %d chunks: %v", e.DocumentID, e.Written, e.Err)
}

func (e *PartialIngestionError) Unwrap() error {
	return e.Err
}
