package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"portfolio-rag/internal/app"
	"portfolio-rag/internal/model"
	"portfolio-rag/internal/pkg/pdfextract"
	"portfolio-rag/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

type DocumentIngester interface {
	Ingest(ctx context.Context, input app.IngestInput) (*app.IngestResult, error)
	IngestCV(ctx context.Context, cv model.CVData) (*app.IngestResult, error)
	ListDocuments(ctx context.Context) ([]model.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

type DocumentHandler struct {
	ingestService DocumentIngester
}

type CreateDocumentRequest struct {
	ID              string   `json:"id" binding:"max=64"`
	Title           string   `json:"title" binding:"max=256"`
	Text            string   `json:"text" binding:"required"`
	Type            string   `json:"type" binding:"required"`
	Source          string   `json:"source" binding:"max=256"`
	YearsExperience int      `json:"years_experience" binding:"min=0"`
	ProjectName     string   `json:"project_name"`
	Technologies    []string `json:"technologies"`
	Skills          []string `json:"skills"`
}

func NewDocumentHandler(ingestService DocumentIngester) *DocumentHandler {
	return &DocumentHandler{ingestService: ingestService}
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.ingestService.ListDocuments(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeDependency, "list documents failed")
		return
	}
	response.OK(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), app.IngestInput{
		ID:              req.ID,
		Title:           req.Title,
		Text:            req.Text,
		Type:            req.Type,
		Source:          req.Source,
		YearsExperience: req.YearsExperience,
		ProjectName:     req.ProjectName,
		Technologies:    req.Technologies,
		Skills:          req.Skills,
	})
	if err != nil {
		writeIngestError(c, err)
		return
	}
	response.OK(c, result)
}

// Upload accepts a multipart form with "file", "type" and optional "title"
// and "source". PDFs are converted to text; anything else must be UTF-8.
func (h *DocumentHandler) Upload(c *gin.Context) {
	docType := strings.TrimSpace(c.PostForm("type"))
	if _, ok := model.ParseDocumentType(docType); !ok {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidDocumentType, fmt.Sprintf("invalid document type %q", docType))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	text, err := readUpload(f, file.Filename)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFile, err.Error())
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}
	source := strings.TrimSpace(c.PostForm("source"))
	if source == "" {
		source = file.Filename
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), app.IngestInput{
		Title:  title,
		Text:   text,
		Type:   docType,
		Source: source,
	})
	if err != nil {
		writeIngestError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	err := h.ingestService.DeleteDocument(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		response.OK(c, gin.H{"deleted": c.Param("id")})
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	default:
		response.Error(c, http.StatusServiceUnavailable, response.CodeDependency, err.Error())
	}
}

func (h *DocumentHandler) IngestCV(c *gin.Context) {
	var cv model.CVData
	if err := c.ShouldBindJSON(&cv); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.ingestService.IngestCV(c.Request.Context(), cv)
	if err != nil {
		writeIngestError(c, err)
		return
	}
	response.OK(c, result)
}

func readUpload(r io.Reader, filename string) (string, error) {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		text, err := pdfextract.ExtractText(r, maxUploadSize)
		if err != nil {
			return "", fmt.Errorf("read pdf: %w", err)
		}
		return text, nil
	}

	b, err := io.ReadAll(io.LimitReader(r, maxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if len(b) > maxUploadSize {
		return "", pdfextract.ErrTooLarge
	}
	if !utf8.Valid(b) {
		return "", errors.New("file is not valid UTF-8 text")
	}
	return string(b), nil
}

// writeIngestError exposes the reason; these routes are admin-only.
func writeIngestError(c *gin.Context, err error) {
	var partial *app.PartialIngestionError
	switch {
	case errors.Is(err, app.ErrInvalidDocumentType):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidDocumentType, err.Error())
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.As(err, &partial):
		response.ErrorWithData(c, http.StatusInternalServerError, response.CodePartialIngestion, err.Error(), gin.H{
			"document_id":    partial.DocumentID,
			"chunks_written": partial.Written,
		})
	case errors.Is(err, app.ErrDependency):
		response.Error(c, http.StatusServiceUnavailable, response.CodeDependency, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed: "+err.Error())
	}
}
