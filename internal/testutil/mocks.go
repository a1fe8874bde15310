package testutil

import (
	"context"
	"fmt"
	"sync"

	"codeberg.org/snonux/bulkimagen/internal/imagen"
)

// GenerateCall records one call made to a MockGenerator
type GenerateCall struct {
	APIKey         string
	Prompt         string
	NumberOfImages int
	AspectRatio    imagen.AspectRatio
}

// MockGenerator mocks a generation backend.
// Keys listed in Errors fail; keys listed in Counts return that many
// images (default: the requested number). PromptErrors fail by prompt.
type MockGenerator struct {
	Errors       map[string]error
	PromptErrors map[string]error
	Counts       map[string]int

	mu    sync.Mutex
	Calls []GenerateCall
}

// NewMockGenerator creates a mock where every key succeeds
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		Errors:       make(map[string]error),
		PromptErrors: make(map[string]error),
		Counts:       make(map[string]int),
	}
}

// FailKey makes every call with apiKey fail
func (m *MockGenerator) FailKey(apiKey string) *MockGenerator {
	m.Errors[apiKey] = fmt.Errorf("mock: key %s rejected", apiKey)
	return m
}

// Generate mocks a generation call
func (m *MockGenerator) Generate(ctx context.Context, apiKey string, req *imagen.Request) ([]imagen.Image, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, GenerateCall{
		APIKey:         apiKey,
		Prompt:         req.Prompt,
		NumberOfImages: req.NumberOfImages,
		AspectRatio:    req.AspectRatio,
	})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[apiKey]; ok {
		return nil, err
	}
	if err, ok := m.PromptErrors[req.Prompt]; ok {
		return nil, err
	}

	n := req.NumberOfImages
	if c, ok := m.Counts[apiKey]; ok {
		n = c
	}

	var gen TestDataGenerator
	images := make([]imagen.Image, n)
	for i := range images {
		images[i] = imagen.Image{
			Data:     append(gen.GenerateImageData(), []byte(fmt.Sprintf("%s#%d", req.Prompt, i))...),
			MIMEType: imagen.MIMEJPEG,
		}
	}
	return images, nil
}

// Name returns the mock backend name
func (m *MockGenerator) Name() string {
	return "mock"
}

// KeysCalled returns the API keys in call order
func (m *MockGenerator) KeysCalled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		out[i] = c.APIKey
	}
	return out
}

// CallCount returns the number of calls made so far
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// TestDataGenerator generates test data
type TestDataGenerator struct{}

// GenerateImageData generates mock image data
func (g *TestDataGenerator) GenerateImageData() []byte {
	// Simple mock JPEG header
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}
}

// GenerateImage returns a mock JPEG image
func (g *TestDataGenerator) GenerateImage() *imagen.Image {
	return &imagen.Image{Data: g.GenerateImageData(), MIMEType: imagen.MIMEJPEG}
}
