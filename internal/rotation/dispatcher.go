// Package rotation runs a generation job against a pool of API keys,
// falling back to the next key whenever one fails.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/keys"
)

// ErrKeysExhausted is returned when no key in the scanned range succeeded
var ErrKeysExhausted = errors.New("all API keys are exhausted or invalid")

// Job is one prompt with its generation settings
type Job struct {
	Prompt         string
	NumberOfImages int
	AspectRatio    imagen.AspectRatio
}

// Result is the outcome of a successful dispatch
type Result struct {
	Images   []imagen.Image
	KeyIndex int // index of the key that produced the images
}

// Dispatcher tries keys in order until one produces images
type Dispatcher struct {
	generator imagen.Generator
	breakers  *Breakers
	logger    *slog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithBreakers routes every key's calls through its circuit breaker
func WithBreakers(b *Breakers) Option {
	return func(d *Dispatcher) {
		d.breakers = b
	}
}

// WithLogger sets the logger used for key failure warnings
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a dispatcher for the given backend
func NewDispatcher(generator imagen.Generator, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		generator: generator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch scans apiKeys from startIndex to the end of the list, never
// wrapping, and returns the images of the first key that succeeds.
// Empty slots are skipped and each key is called at most once.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job, apiKeys []string, startIndex int) (*Result, error) {
	if startIndex < 0 {
		startIndex = 0
	}

	req := &imagen.Request{
		Prompt:         job.Prompt,
		NumberOfImages: job.NumberOfImages,
		AspectRatio:    job.AspectRatio,
		OutputMIMEType: imagen.MIMEJPEG,
	}

	var lastErr error
	for i := startIndex; i < len(apiKeys); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		apiKey := apiKeys[i]
		if apiKey == "" {
			continue
		}

		images, err := d.call(ctx, apiKey, req)
		if err == nil {
			return &Result{Images: images, KeyIndex: i}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		d.logger.Warn("API key failed, trying next key",
			"index", i,
			"key", keys.Mask(apiKey),
			"provider", d.generator.Name(),
			"error", err)
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w (last error: %w)", ErrKeysExhausted, lastErr)
	}
	return nil, ErrKeysExhausted
}

func (d *Dispatcher) call(ctx context.Context, apiKey string, req *imagen.Request) ([]imagen.Image, error) {
	if d.breakers == nil {
		return d.generator.Generate(ctx, apiKey, req)
	}
	return d.breakers.Execute(apiKey, func() ([]imagen.Image, error) {
		return d.generator.Generate(ctx, apiKey, req)
	})
}
