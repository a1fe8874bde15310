package imagen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the DALL-E model used when none is configured
const DefaultOpenAIModel = openai.CreateImageModelDallE3

// OpenAIGenerator implements Generator with OpenAI DALL-E
type OpenAIGenerator struct {
	model   string
	baseURL string // overrides the API endpoint, used by tests
}

// NewOpenAIGenerator creates a DALL-E backend
func NewOpenAIGenerator(model string) *OpenAIGenerator {
	if model == "" || model == DefaultImagenModel {
		model = DefaultOpenAIModel
	}
	return &OpenAIGenerator{model: model}
}

// Name returns the backend name
func (g *OpenAIGenerator) Name() string {
	return ProviderOpenAI
}

// Model returns the DALL-E model name
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// Generate creates images with the given key. DALL-E 3 only accepts n=1,
// so multi-image jobs are issued as sequential single-image requests.
func (g *OpenAIGenerator) Generate(ctx context.Context, apiKey string, req *Request) ([]Image, error) {
	if apiKey == "" {
		return nil, &GenerationError{Provider: ProviderOpenAI, Code: "NO_API_KEY", Message: "API key is required"}
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	config := openai.DefaultConfig(apiKey)
	if g.baseURL != "" {
		config.BaseURL = g.baseURL
	}
	client := openai.NewClientWithConfig(config)

	perRequest := req.NumberOfImages
	requests := 1
	if g.model == openai.CreateImageModelDallE3 {
		perRequest = 1
		requests = req.NumberOfImages
	}

	var images []Image
	for i := 0; i < requests; i++ {
		resp, err := client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         req.Prompt,
			Model:          g.model,
			N:              perRequest,
			Size:           g.sizeFor(req.AspectRatio),
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		})
		if err != nil {
			// Keep what earlier requests produced; the caller pads the rest.
			if len(images) > 0 {
				return images, nil
			}
			return nil, classifyOpenAIError(err)
		}

		for _, item := range resp.Data {
			if item.B64JSON == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(item.B64JSON)
			if err != nil {
				return nil, &GenerationError{Provider: ProviderOpenAI, Code: "DECODE", Message: "invalid image payload", Err: err}
			}
			images = append(images, Image{Data: data, MIMEType: "image/png"})
		}
	}

	return images, nil
}

// sizeFor maps an aspect ratio onto the closest size the model accepts
func (g *OpenAIGenerator) sizeFor(ratio AspectRatio) string {
	if g.model != openai.CreateImageModelDallE3 {
		return openai.CreateImageSize1024x1024
	}

	switch ratio {
	case AspectCinematic, AspectLandscape:
		return openai.CreateImageSize1792x1024
	case AspectPortrait, AspectTall:
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return &GenerationError{Provider: ProviderOpenAI, Code: "REQUEST", Message: "generation failed", Err: err}
	}

	code := "API"
	switch apiErr.HTTPStatusCode {
	case 429:
		code = "RATE_LIMITED"
	case 401, 403:
		code = "UNAUTHORIZED"
	case 400:
		code = "BAD_REQUEST"
	}

	return &GenerationError{
		Provider: ProviderOpenAI,
		Code:     code,
		Message:  fmt.Sprintf("generation failed (HTTP %d)", apiErr.HTTPStatusCode),
		Err:      err,
	}
}
