package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"portfolio-rag/internal/ai"
	"portfolio-rag/internal/model"
)

const (
	extractionTemperature = 0.3
	extractionPrompt      = `Extract the key entities from the user's query, especially technologies, skills, professional experience or project types mentioned.
Return only a JSON object with the following keys:
- technologies: array of technologies/frameworks mentioned
- experience: references to years of experience
- projectTypes: types of projects mentioned
- skills: skills mentioned`
)

// QueryEntities is what the extractor pulls out of a user query.
type QueryEntities struct {
	Technologies []string `json:"technologies"`
	Experience   []string `json:"experience"`
	ProjectTypes []string `json:"projectTypes"`
	Skills       []string `json:"skills"`
}

type EntityExtractor struct {
	completer Completer
	timeout   time.Duration
	logger    *slog.Logger
}

func NewEntityExtractor(completer Completer, timeout time.Duration, logger *slog.Logger) *EntityExtractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityExtractor{completer: completer, timeout: timeout, logger: logger}
}

// ExtractEntities never fails the caller: a provider error or an unusable
// answer is reported as ok == false.
func (e *EntityExtractor) ExtractEntities(ctx context.Context, query string) (*QueryEntities, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	content, err := e.completer.Complete(callCtx, ai.ChatRequest{
		Messages: []ai.ChatMessage{
			{Role: model.RoleSystem, Content: extractionPrompt},
			{Role: model.RoleUser, Content: query},
		},
		Temperature:  ai.Float64(extractionTemperature),
		JSONResponse: true,
	})
	if err != nil {
		e.logger.WarnContext(ctx, "entity extraction failed", "error", err)
		return nil, false
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, false
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		e.logger.WarnContext(ctx, "parse entity extraction response failed", "error", err)
		return nil, false
	}
	return &QueryEntities{
		Technologies: stringList(raw["technologies"]),
		Experience:   stringList(raw["experience"]),
		ProjectTypes: stringList(raw["projectTypes"]),
		Skills:       stringList(raw["skills"]),
	}, true
}

// BuildFilter turns extracted technologies and project types into a metadata
// filter. Nothing extracted means an empty filter.
func (e *EntityExtractor) BuildFilter(ctx context.Context, query string) model.MetadataFilter {
	filter := model.MetadataFilter{}
	entities, ok := e.ExtractEntities(ctx, query)
	if !ok {
		return filter
	}
	if len(entities.Technologies) > 0 {
		filter[model.FilterKeyTechnologies] = entities.Technologies
	}
	if len(entities.ProjectTypes) > 0 {
		filter[model.FilterKeyProjectName] = entities.ProjectTypes
	}
	return filter
}

// stringList accepts either a JSON array of strings or a single string; any
// other shape yields nil.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return dedupe(list)
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return []string{strings.TrimSpace(single)}
	}
	return nil
}
