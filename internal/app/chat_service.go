package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"portfolio-rag/internal/ai"
	"portfolio-rag/internal/model"
)

const (
	FallbackMessage = "I'm sorry, I encountered an error processing your request. Please try again."
	NoContextReply  = "I don't have specific information about that in my CV or portfolio. Can I help with something related to my development experience?"

	askTemperature = 0.6
	askMaxTokens   = 500
)

// ChatOptions controls a single Respond call. Zero counts and a nil or
// negative Temperature fall back to DefaultChatOptions.
type ChatOptions struct {
	MaxContextLength int
	Temperature      *float64
	RetrievalEnabled bool
	RetrievalCount   int
	IncludeHistory   bool
	ConversationID   string
}

func DefaultChatOptions() ChatOptions {
	return ChatOptions{
		MaxContextLength: 8,
		Temperature:      ai.Float64(0.7),
		RetrievalEnabled: true,
		RetrievalCount:   5,
		IncludeHistory:   true,
	}
}

type ChatResult struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

type AskResult struct {
	Message string        `json:"message"`
	Context []ContextItem `json:"context"`
	Error   string        `json:"error,omitempty"`
}

type Persona struct {
	Name     string
	Headline string
	Location string
}

type ChatService struct {
	completer     Completer
	retrieval     *RetrievalService
	extractor     *EntityExtractor
	conversations ConversationStore
	persona       Persona
	timeout       time.Duration
	logger        *slog.Logger
}

func NewChatService(
	completer Completer,
	retrieval *RetrievalService,
	extractor *EntityExtractor,
	conversations ConversationStore,
	persona Persona,
	timeout time.Duration,
	logger *slog.Logger,
) *ChatService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		completer:     completer,
		retrieval:     retrieval,
		extractor:     extractor,
		conversations: conversations,
		persona:       persona,
		timeout:       timeout,
		logger:        logger,
	}
}

// Respond answers a chat message as the persona. It never returns a Go
// error: failures produce FallbackMessage with the diagnostic in Error.
func (s *ChatService) Respond(ctx context.Context, message string, history []ai.ChatMessage, opts ChatOptions) (result ChatResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "chat panicked", "panic", r)
			result = ChatResult{Message: FallbackMessage, Error: fmt.Sprint(r)}
		}
	}()

	res, err := s.respond(ctx, message, history, normalizeChatOptions(opts))
	if err != nil {
		s.logger.ErrorContext(ctx, "chat failed", "conversation_id", opts.ConversationID, "error", err)
		return ChatResult{Message: FallbackMessage, Error: err.Error()}
	}
	return res
}

func (s *ChatService) respond(ctx context.Context, message string, history []ai.ChatMessage, opts ChatOptions) (ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatResult{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	systemPrompt := s.systemPrompt()
	messages := []ai.ChatMessage{{Role: model.RoleSystem, Content: systemPrompt}}

	if opts.IncludeHistory {
		relevant := history
		if opts.ConversationID != "" && s.conversations != nil {
			stored, err := s.conversations.History(ctx, opts.ConversationID)
			if err != nil {
				return ChatResult{}, fmt.Errorf("%w: load conversation history failed: %w", ErrDependency, err)
			}
			relevant = toChatMessages(stored)
		}
		messages = append(messages, TruncateHistory(relevant, opts.MaxContextLength)...)
	}
	messages = append(messages, ai.ChatMessage{Role: model.RoleUser, Content: message})

	if opts.RetrievalEnabled && s.retrieval != nil {
		if extra := s.retrievalContext(ctx, message, opts.RetrievalCount); extra != "" {
			messages[0].Content = systemPrompt + "\n\nHere is some additional information that may be relevant to the user's query:\n\n" + extra
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reply, err := s.completer.Complete(callCtx, ai.ChatRequest{
		Messages:    messages,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return ChatResult{}, fmt.Errorf("%w: completion failed: %w", ErrDependency, err)
	}

	conversationID := opts.ConversationID
	if s.conversations == nil {
		return ChatResult{Message: reply, ConversationID: conversationID}, nil
	}
	if conversationID == "" && opts.IncludeHistory {
		conversationID, err = s.conversations.Create(ctx)
		if err != nil {
			return ChatResult{}, fmt.Errorf("%w: create conversation failed: %w", ErrDependency, err)
		}
	}
	if conversationID != "" {
		if err := s.conversations.Append(ctx, conversationID, model.RoleUser, message); err != nil {
			return ChatResult{}, fmt.Errorf("%w: store user message failed: %w", ErrDependency, err)
		}
		if err := s.conversations.Append(ctx, conversationID, model.RoleAssistant, reply); err != nil {
			return ChatResult{}, fmt.Errorf("%w: store assistant message failed: %w", ErrDependency, err)
		}
	}

	return ChatResult{Message: reply, ConversationID: conversationID}, nil
}

// retrievalContext swallows every failure; the chat proceeds without context.
func (s *ChatService) retrievalContext(ctx context.Context, message string, count int) string {
	var filter model.MetadataFilter
	if s.extractor != nil {
		filter = s.extractor.BuildFilter(ctx, message)
	}
	results, err := s.retrieval.Retrieve(ctx, message, RetrieveOptions{Limit: count, Filter: filter})
	if err != nil {
		s.logger.WarnContext(ctx, "retrieval failed, answering without context", "error", err)
		return ""
	}
	items, ok := AssembleContext(results)
	if !ok {
		return ""
	}
	return FormatContext(items)
}

// AskWithContext answers strictly from retrieved context. When nothing
// relevant is found the model is not called.
func (s *ChatService) AskWithContext(ctx context.Context, message string, history []ai.ChatMessage) AskResult {
	message = strings.TrimSpace(message)
	if message == "" {
		return AskResult{Message: FallbackMessage, Context: []ContextItem{}, Error: ErrInvalidInput.Error()}
	}
	if s.retrieval == nil {
		return AskResult{Message: FallbackMessage, Context: []ContextItem{}, Error: ErrRetrievalUnavailable.Error()}
	}

	items, ok, err := s.retrieval.EnhancedContext(ctx, message, DefaultRetrievalLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "enhanced context failed", "error", err)
		return AskResult{Message: FallbackMessage, Error: err.Error()}
	}
	if !ok {
		return AskResult{Message: NoContextReply, Context: []ContextItem{}}
	}

	messages := []ai.ChatMessage{{Role: model.RoleSystem, Content: s.groundedPrompt(items)}}
	messages = append(messages, history...)
	messages = append(messages, ai.ChatMessage{Role: model.RoleUser, Content: message})

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reply, err := s.completer.Complete(callCtx, ai.ChatRequest{
		Messages:    messages,
		Temperature: ai.Float64(askTemperature),
		MaxTokens:   askMaxTokens,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "grounded completion failed", "error", err)
		return AskResult{Message: FallbackMessage, Error: err.Error()}
	}
	if strings.TrimSpace(reply) == "" {
		reply = "Sorry, I couldn't generate a response."
	}
	return AskResult{Message: reply, Context: items}
}

// History returns the stored messages of a conversation.
func (s *ChatService) History(ctx context.Context, conversationID string) ([]model.Message, error) {
	if strings.TrimSpace(conversationID) == "" || s.conversations == nil {
		return nil, ErrInvalidInput
	}
	msgs, err := s.conversations.History(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: load conversation history failed: %w", ErrDependency, err)
	}
	return msgs, nil
}

// TruncateHistory keeps the most recent maxContextLength exchanges, that is
// maxContextLength*2 messages, dropping the oldest.
func TruncateHistory(history []ai.ChatMessage, maxContextLength int) []ai.ChatMessage {
	limit := maxContextLength * 2
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}

func normalizeChatOptions(opts ChatOptions) ChatOptions {
	def := DefaultChatOptions()
	if opts.MaxContextLength <= 0 {
		opts.MaxContextLength = def.MaxContextLength
	}
	if opts.Temperature == nil || *opts.Temperature < 0 {
		opts.Temperature = def.Temperature
	}
	if opts.RetrievalCount <= 0 {
		opts.RetrievalCount = def.RetrievalCount
	}
	opts.ConversationID = strings.TrimSpace(opts.ConversationID)
	return opts
}

func toChatMessages(stored []model.Message) []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, len(stored))
	for _, m := range stored {
		out = append(out, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (s *ChatService) systemPrompt() string {
	name := s.persona.Name
	if name == "" {
		name = "the portfolio owner"
	}
	var who strings.Builder
	who.WriteString(name)
	if s.persona.Headline != "" {
		who.WriteString(", " + s.persona.Headline)
	}
	if s.persona.Location != "" {
		who.WriteString(" based in " + s.persona.Location)
	}

	return fmt.Sprintf(`You are an AI assistant representing %s.

COMMUNICATION STYLE:
- Your tone is friendly yet professional
- Your level of formality is conversational but knowledgeable

RESPONSE STYLE:
- Provide appropriately detailed answers without being overwhelming
- Use concrete examples from actual projects when relevant
- Structure responses to be clear and organized

IMPORTANT GUIDELINES:
1. Always respond as if you are %s. Don't break character or refer to yourself as an AI.
2. Base your answers on the provided knowledge base when applicable.
3. If you don't know the answer, respond in a way that is consistent with %s's background and experience.
4. Use "I" statements as if you are %s sharing your experience or perspective.
`, who.String(), name, name, name)
}

func (s *ChatService) groundedPrompt(items []ContextItem) string {
	name := s.persona.Name
	if name == "" {
		name = "the portfolio owner"
	}
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		blocks = append(blocks, fmt.Sprintf("Content: %s\nSource: %s\nRelevance: %s", it.Content, it.Source, it.Relevance))
	}

	return fmt.Sprintf(`You are an assistant representing %s.

IMPORTANT GUIDELINES:
1. Keep your answers concise and informative (3-5 sentences is ideal).
2. Discuss ONLY technologies and experiences present in the CV and portfolio.
3. Do NOT claim experience with technologies that are not explicitly mentioned in the context.
4. If asked about a technology or skill that is not in the context, say you don't have significant experience with it.
5. When answering about technologies that are in your experience, mention years of experience when available and give 1-2 concrete project examples.

CONTEXT RETRIEVED FROM YOUR CV AND PORTFOLIO:
%s

Answer based ONLY on the context above.`, name, strings.Join(blocks, "\n---\n"))
}

// IsClientError reports whether err stems from bad caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidDocumentType)
}
