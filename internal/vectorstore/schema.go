package vectorstore

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

func chunkClassProperties() []*models.Property {
	return []*models.Property{
		{Name: "content", DataType: []string{"text"}},
		{Name: "documentId", DataType: []string{"text"}, Tokenization: "field"},
		{Name: "title", DataType: []string{"text"}, Tokenization: "lowercase"},
		{Name: "docType", DataType: []string{"text"}, Tokenization: "lowercase"},
		{Name: "source", DataType: []string{"text"}, Tokenization: "lowercase"},
		{Name: "chunkIndex", DataType: []string{"int"}},
		{Name: "yearsExperience", DataType: []string{"int"}},
		{Name: "projectName", DataType: []string{"text"}, Tokenization: "lowercase"},
		{Name: "technologies", DataType: []string{"text[]"}, Tokenization: "lowercase"},
		{Name: "skills", DataType: []string{"text[]"}, Tokenization: "lowercase"},
	}
}

// EnsureSchema creates the chunk class, or adds any properties an older
// deployment is missing.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ChunkClass)
	if err != nil {
		return fmt.Errorf("check weaviate class failed: %w", err)
	}

	properties := chunkClassProperties()
	if !exists {
		class := &models.Class{
			Class:             ChunkClass,
			Description:       "A chunk of a portfolio document",
			Vectorizer:        "none",
			VectorIndexConfig: map[string]interface{}{"distance": "cosine"},
			Properties:        properties,
		}
		if err := client.CreateClass(ctx, class); err != nil {
			return fmt.Errorf("create weaviate class failed: %w", err)
		}
		return nil
	}

	class, err := client.GetClass(ctx, ChunkClass)
	if err != nil {
		return fmt.Errorf("get weaviate class failed: %w", err)
	}
	existing := make(map[string]bool, len(class.Properties))
	for _, p := range class.Properties {
		existing[p.Name] = true
	}
	for _, p := range properties {
		if existing[p.Name] {
			continue
		}
		if err := client.AddProperty(ctx, ChunkClass, p); err != nil {
			return fmt.Errorf("add weaviate property %s failed: %w", p.Name, err)
		}
	}
	return nil
}

type SchemaAdapter struct {
	client *weaviate.Client
}

func NewSchemaAdapter(client *weaviate.Client) *SchemaAdapter {
	return &SchemaAdapter{client: client}
}

func (a *SchemaAdapter) ClassExists(ctx context.Context, className string) (bool, error) {
	return a.client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
}

func (a *SchemaAdapter) CreateClass(ctx context.Context, class *models.Class) error {
	return a.client.Schema().ClassCreator().WithClass(class).Do(ctx)
}

func (a *SchemaAdapter) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return a.client.Schema().ClassGetter().WithClassName(className).Do(ctx)
}

func (a *SchemaAdapter) AddProperty(ctx context.Context, className string, property *models.Property) error {
	return a.client.Schema().PropertyCreator().WithClassName(className).WithProperty(property).Do(ctx)
}
