package weaviate

import (
	"context"
	"fmt"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
)

type Config struct {
	Host   string
	Scheme string
	APIKey string
}

// New builds a client and waits for the instance to report ready.
func New(ctx context.Context, cfg Config) (*weaviate.Client, error) {
	wCfg := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		wCfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(wCfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client failed: %w", err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ready, err := client.Misc().ReadyChecker().Do(readyCtx)
	if err != nil {
		return nil, fmt.Errorf("weaviate ready check failed: %w", err)
	}
	if !ready {
		return nil, fmt.Errorf("weaviate at %s is not ready", cfg.Host)
	}
	return client, nil
}
