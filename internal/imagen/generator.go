package imagen

import (
	"context"
	"fmt"
)

// Generator defines the interface for text-to-image backends
type Generator interface {
	// Generate runs one generation call with the given API key
	Generate(ctx context.Context, apiKey string, req *Request) ([]Image, error)

	// Name returns the backend name
	Name() string
}

// Request describes a single call to a generation backend
type Request struct {
	Prompt         string
	NumberOfImages int
	AspectRatio    AspectRatio
	OutputMIMEType string // "image/jpeg" unless the backend cannot honour it
}

// Config holds the settings used to build a Generator
type Config struct {
	Provider string // "imagen" or "openai"
	Model    string // Backend model name; empty selects the backend default
}

// Provider names
const (
	ProviderImagen = "imagen"
	ProviderOpenAI = "openai"
)

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderImagen,
		Model:    DefaultImagenModel,
	}
}

// NewGenerator creates the backend selected by config.Provider
func NewGenerator(config *Config) (Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderImagen, "":
		return NewGenAIGenerator(config.Model), nil
	case ProviderOpenAI:
		return NewOpenAIGenerator(config.Model), nil
	default:
		return nil, fmt.Errorf("unknown image provider: %s", config.Provider)
	}
}

// GenerationError represents a failed call to a generation backend
type GenerationError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
