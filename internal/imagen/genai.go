package imagen

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// DefaultImagenModel is the Imagen model used when none is configured
const DefaultImagenModel = "imagen-3.0-generate-002"

// GenAIGenerator implements Generator with Google's Imagen models
type GenAIGenerator struct {
	model string

	mu      sync.Mutex
	clients map[string]*genai.Client // one client per API key
}

// NewGenAIGenerator creates an Imagen backend
func NewGenAIGenerator(model string) *GenAIGenerator {
	if model == "" {
		model = DefaultImagenModel
	}
	return &GenAIGenerator{
		model:   model,
		clients: make(map[string]*genai.Client),
	}
}

// Name returns the backend name
func (g *GenAIGenerator) Name() string {
	return ProviderImagen
}

// Model returns the Imagen model name
func (g *GenAIGenerator) Model() string {
	return g.model
}

// Generate calls Models.GenerateImages with the given key
func (g *GenAIGenerator) Generate(ctx context.Context, apiKey string, req *Request) ([]Image, error) {
	if apiKey == "" {
		return nil, &GenerationError{Provider: ProviderImagen, Code: "NO_API_KEY", Message: "API key is required"}
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	client, err := g.client(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	mime := req.OutputMIMEType
	if mime == "" {
		mime = MIMEJPEG
	}

	resp, err := client.Models.GenerateImages(ctx, g.model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(req.NumberOfImages),
		OutputMIMEType: mime,
		AspectRatio:    string(req.AspectRatio),
	})
	if err != nil {
		return nil, classifyGenAIError(err)
	}
	if resp == nil {
		return nil, &GenerationError{Provider: ProviderImagen, Code: "EMPTY_RESPONSE", Message: "empty response from model"}
	}

	images := make([]Image, 0, len(resp.GeneratedImages))
	for _, generated := range resp.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		imgMIME := generated.Image.MIMEType
		if imgMIME == "" {
			imgMIME = mime
		}
		images = append(images, Image{Data: generated.Image.ImageBytes, MIMEType: imgMIME})
	}

	return images, nil
}

func (g *GenAIGenerator) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &GenerationError{Provider: ProviderImagen, Code: "CLIENT", Message: "failed to create client", Err: err}
	}
	g.clients[apiKey] = c
	return c, nil
}

// classifyGenAIError tags quota and auth failures so callers can report them
func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return &GenerationError{Provider: ProviderImagen, Code: "REQUEST", Message: "generation failed", Err: err}
	}

	code := "API"
	switch {
	case apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED":
		code = "RATE_LIMITED"
	case apiErr.Code == 401 || apiErr.Code == 403:
		code = "UNAUTHORIZED"
	case apiErr.Code == 400:
		code = "BAD_REQUEST"
	}

	return &GenerationError{
		Provider: ProviderImagen,
		Code:     code,
		Message:  fmt.Sprintf("generation failed (HTTP %d)", apiErr.Code),
		Err:      err,
	}
}
