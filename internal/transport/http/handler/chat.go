package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-rag/internal/ai"
	"portfolio-rag/internal/app"
	"portfolio-rag/internal/model"
	"portfolio-rag/internal/transport/http/response"
)

type ChatResponder interface {
	Respond(ctx context.Context, message string, history []ai.ChatMessage, opts app.ChatOptions) app.ChatResult
	AskWithContext(ctx context.Context, message string, history []ai.ChatMessage) app.AskResult
	History(ctx context.Context, conversationID string) ([]model.Message, error)
}

type ChatHandler struct {
	chatService ChatResponder
	defaults    app.ChatOptions
}

type HistoryMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest leaves every option optional; nil means the server default.
type ChatRequest struct {
	Message          string           `json:"message" binding:"required,max=4000"`
	ConversationID   string           `json:"conversation_id"`
	History          []HistoryMessage `json:"history" binding:"dive"`
	MaxContextLength *int             `json:"max_context_length"`
	Temperature      *float64         `json:"temperature"`
	RetrievalEnabled *bool            `json:"retrieval_enabled"`
	RetrievalCount   *int             `json:"retrieval_count"`
	IncludeHistory   *bool            `json:"include_history"`
}

type AskRequest struct {
	Message string           `json:"message" binding:"required,max=4000"`
	History []HistoryMessage `json:"history" binding:"dive"`
}

func NewChatHandler(chatService ChatResponder, defaults app.ChatOptions) *ChatHandler {
	return &ChatHandler{chatService: chatService, defaults: defaults}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result := h.chatService.Respond(c.Request.Context(), req.Message, toHistory(req.History), h.options(req))
	// A failed turn still answers 200 with the fallback reply. The diagnostic
	// is logged by the service and never leaves the process.
	result.Error = ""
	response.OK(c, result)
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result := h.chatService.AskWithContext(c.Request.Context(), req.Message, toHistory(req.History))
	result.Error = ""
	response.OK(c, result)
}

func (h *ChatHandler) Messages(c *gin.Context) {
	conversationID := strings.TrimSpace(c.Param("id"))
	messages, err := h.chatService.History(c.Request.Context(), conversationID)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "conversation id is required")
			return
		}
		response.Error(c, http.StatusServiceUnavailable, response.CodeDependency, "load history failed")
		return
	}
	if len(messages) == 0 {
		response.Error(c, http.StatusNotFound, response.CodeConversationMissing, "conversation not found")
		return
	}
	response.OK(c, gin.H{
		"conversation_id": conversationID,
		"messages":        messages,
	})
}

func (h *ChatHandler) options(req ChatRequest) app.ChatOptions {
	opts := h.defaults
	opts.ConversationID = strings.TrimSpace(req.ConversationID)
	if req.MaxContextLength != nil {
		opts.MaxContextLength = *req.MaxContextLength
	}
	if req.Temperature != nil {
		temperature := *req.Temperature
		opts.Temperature = &temperature
	}
	if req.RetrievalEnabled != nil {
		opts.RetrievalEnabled = *req.RetrievalEnabled
	}
	if req.RetrievalCount != nil {
		opts.RetrievalCount = *req.RetrievalCount
	}
	if req.IncludeHistory != nil {
		opts.IncludeHistory = *req.IncludeHistory
	}
	return opts
}

func toHistory(in []HistoryMessage) []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, len(in))
	for _, m := range in {
		out = append(out, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
