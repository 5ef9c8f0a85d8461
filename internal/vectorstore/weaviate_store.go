package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"portfolio-rag/internal/model"
)

const ChunkClass = "PortfolioChunk"

// filterProperties maps metadata filter keys to class property names.
var filterProperties = map[string]string{
	model.FilterKeyDocumentID:      "documentId",
	model.FilterKeyTitle:           "title",
	model.FilterKeyType:            "docType",
	model.FilterKeySource:          "source",
	model.FilterKeyProjectName:     "projectName",
	model.FilterKeyTechnologies:    "technologies",
	model.FilterKeySkills:          "skills",
	model.FilterKeyYearsExperience: "yearsExperience",
}

// DocumentDeleter removes the metadata row once the chunks are gone.
type DocumentDeleter interface {
	Delete(ctx context.Context, id string) error
}

// WeaviateStore keeps chunk vectors in Weaviate; document metadata stays in
// MySQL behind DocumentDeleter.
type WeaviateStore struct {
	client    *weaviate.Client
	documents DocumentDeleter
}

func NewWeaviateStore(client *weaviate.Client, documents DocumentDeleter) *WeaviateStore {
	return &WeaviateStore{client: client, documents: documents}
}

func (s *WeaviateStore) UpsertChunks(ctx context.Context, chunks []model.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	objects := make([]*models.Object, 0, len(chunks))
	for _, c := range chunks {
		objects = append(objects, &models.Object{
			Class:      ChunkClass,
			Properties: chunkProperties(c),
			Vector:     c.Embedding,
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate batch insert failed: %w", err)
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviate batch insert failed: %s", r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

func (s *WeaviateStore) SimilaritySearch(ctx context.Context, query []float32, k int, filter model.MetadataFilter) ([]model.RetrievalResult, error) {
	if k <= 0 || len(query) == 0 {
		return []model.RetrievalResult{}, nil
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(query)
	get := s.client.GraphQL().Get().
		WithClassName(ChunkClass).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(resultFields()...)
	if where := buildWhere(filter); where != nil {
		get = get.WithWhere(where)
	}

	res, err := get.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("weaviate graphql error: %s", res.Errors[0].Message)
	}
	return parseResults(res.Data), nil
}

func (s *WeaviateStore) DeleteDocumentChunks(ctx context.Context, documentID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(ChunkClass).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueText(documentID)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate delete chunks failed: %w", err)
	}
	return nil
}

func (s *WeaviateStore) DeleteDocument(ctx context.Context, documentID string) error {
	if err := s.DeleteDocumentChunks(ctx, documentID); err != nil {
		return err
	}
	return s.documents.Delete(ctx, documentID)
}

func chunkProperties(c model.EmbeddedChunk) map[string]interface{} {
	m := c.Metadata
	props := map[string]interface{}{
		"content":    c.Content,
		"documentId": m.DocumentID,
		"title":      m.Title,
		"docType":    string(m.Type),
		"source":     m.Source,
		"chunkIndex": m.ChunkIndex,
	}
	if m.YearsExperience > 0 {
		props["yearsExperience"] = m.YearsExperience
	}
	if m.ProjectName != "" {
		props["projectName"] = m.ProjectName
	}
	if len(m.Technologies) > 0 {
		props["technologies"] = m.Technologies
	}
	if len(m.Skills) > 0 {
		props["skills"] = m.Skills
	}
	return props
}

func resultFields() []graphql.Field {
	return []graphql.Field{
		{Name: "content"},
		{Name: "documentId"},
		{Name: "title"},
		{Name: "docType"},
		{Name: "source"},
		{Name: "chunkIndex"},
		{Name: "yearsExperience"},
		{Name: "projectName"},
		{Name: "technologies"},
		{Name: "skills"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}
}

// buildWhere ANDs one operand per non-empty filter key. Unknown keys become
// an operand no chunk satisfies, matching MetadataFilter.Matches.
func buildWhere(filter model.MetadataFilter) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder
	for key, values := range filter {
		if len(values) == 0 {
			continue
		}
		prop, ok := filterProperties[key]
		if !ok {
			operands = append(operands, noMatchOperand())
			continue
		}
		if key == model.FilterKeyYearsExperience {
			operands = append(operands, yearsOperand(prop, values))
			continue
		}
		operands = append(operands, filters.Where().
			WithPath([]string{prop}).
			WithOperator(filters.ContainsAny).
			WithValueText(values...))
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().WithOperator(filters.And).WithOperands(operands)
	}
}

// noMatchOperand selects nothing: chunk indexes start at zero.
func noMatchOperand() *filters.WhereBuilder {
	return filters.Where().WithPath([]string{"chunkIndex"}).WithOperator(filters.Equal).WithValueInt(-1)
}

func yearsOperand(prop string, values []string) *filters.WhereBuilder {
	var ors []*filters.WhereBuilder
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		ors = append(ors, filters.Where().WithPath([]string{prop}).WithOperator(filters.Equal).WithValueInt(int64(n)))
	}
	if len(ors) == 0 {
		return filters.Where().WithPath([]string{prop}).WithOperator(filters.Equal).WithValueInt(-1)
	}
	if len(ors) == 1 {
		return ors[0]
	}
	return filters.Where().WithOperator(filters.Or).WithOperands(ors)
}

func parseResults(data map[string]models.JSONObject) []model.RetrievalResult {
	results := []model.RetrievalResult{}
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return results
	}
	rows, ok := get[ChunkClass].([]interface{})
	if !ok {
		return results
	}

	for _, row := range rows {
		props, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		r := model.RetrievalResult{
			Content: stringProp(props, "content"),
			Metadata: model.ChunkMetadata{
				DocumentID:      stringProp(props, "documentId"),
				Title:           stringProp(props, "title"),
				Type:            model.DocumentType(stringProp(props, "docType")),
				Source:          stringProp(props, "source"),
				ChunkIndex:      intProp(props, "chunkIndex"),
				YearsExperience: intProp(props, "yearsExperience"),
				ProjectName:     stringProp(props, "projectName"),
				Technologies:    listProp(props, "technologies"),
				Skills:          listProp(props, "skills"),
			},
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				r.Score = clamp01(1 - d)
			}
		}
		results = append(results, r)
	}
	return results
}

func stringProp(props map[string]interface{}, key string) string {
	s, _ := props[key].(string)
	return s
}

func intProp(props map[string]interface{}, key string) int {
	if f, ok := props[key].(float64); ok {
		return int(f)
	}
	return 0
}

func listProp(props map[string]interface{}, key string) []string {
	raw, ok := props[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
