package models

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"codeberg.org/snonux/bulkimagen/internal/imagen"
)

// Lister lists the image models of one provider
type Lister struct {
	provider string
	apiKey   string
	baseURL  string // OpenAI endpoint override, used by tests
}

// NewLister creates a new model lister
func NewLister(provider, apiKey string) *Lister {
	if provider == "" {
		provider = imagen.ProviderImagen
	}
	return &Lister{
		provider: provider,
		apiKey:   apiKey,
	}
}

// ListImageModels returns the sorted IDs of all image generation models
func (l *Lister) ListImageModels(ctx context.Context) ([]string, error) {
	if l.apiKey == "" {
		return nil, fmt.Errorf("no API key for provider %s. Use --key, --keys-file or configure api.keys in .bulkimagen.yaml", l.provider)
	}

	var (
		ids []string
		err error
	)
	switch l.provider {
	case imagen.ProviderImagen:
		ids, err = l.listGenAI(ctx)
	case imagen.ProviderOpenAI:
		ids, err = l.listOpenAI(ctx)
	default:
		return nil, fmt.Errorf("unknown provider: %s", l.provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}

func (l *Lister) listGenAI(ctx context.Context) ([]string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  l.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	var ids []string
	for model, err := range client.Models.All(ctx) {
		if err != nil {
			return nil, err
		}
		name := strings.TrimPrefix(model.Name, "models/")
		if strings.Contains(name, "imagen") {
			ids = append(ids, name)
		}
	}
	return ids, nil
}

func (l *Lister) listOpenAI(ctx context.Context) ([]string, error) {
	config := openai.DefaultConfig(l.apiKey)
	if l.baseURL != "" {
		config.BaseURL = l.baseURL
	}
	client := openai.NewClientWithConfig(config)

	list, err := client.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, model := range list.Models {
		if strings.Contains(model.ID, "dall-e") || strings.Contains(model.ID, "gpt-image") {
			ids = append(ids, model.ID)
		}
	}
	return ids, nil
}

// Print writes the image models of the provider to w
func (l *Lister) Print(ctx context.Context, w io.Writer) error {
	ids, err := l.ListImageModels(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Image generation models (%s):\n", l.provider)
	if len(ids) == 0 {
		fmt.Fprintln(w, "  No image models found")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}
