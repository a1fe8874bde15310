package rotation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/keys"
)

// BreakerConfig controls the per-key circuit breakers
type BreakerConfig struct {
	Failures uint32        // consecutive failures that open a key's breaker
	Cooldown time.Duration // how long an open breaker rejects calls
}

// DefaultBreakerConfig returns the settings used by the CLI. Breakers are
// off unless a failure threshold is configured, so every key from the
// start index gets its one attempt.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Failures: 0,
		Cooldown: 5 * time.Minute,
	}
}

// Breakers keeps one circuit breaker per API key so that a key which keeps
// failing is rejected without a network call until its cooldown expires.
type Breakers struct {
	config BreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakers creates a breaker set; it returns nil when config.Failures is 0
func NewBreakers(config BreakerConfig, logger *slog.Logger) *Breakers {
	if config.Failures == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Breakers{
		config:   config,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Execute runs fn through the breaker of apiKey
func (b *Breakers) Execute(apiKey string, fn func() ([]imagen.Image, error)) ([]imagen.Image, error) {
	out, err := b.get(apiKey).Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	images, _ := out.([]imagen.Image)
	return images, nil
}

// State returns the breaker state of apiKey
func (b *Breakers) State(apiKey string) gobreaker.State {
	return b.get(apiKey).State()
}

func (b *Breakers) get(apiKey string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[apiKey]; ok {
		return cb
	}

	failures := b.config.Failures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        keys.Mask(apiKey),
		MaxRequests: 1,
		Timeout:     b.config.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Cancellation says nothing about the key itself.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Info("key breaker changed state", "key", name, "from", from.String(), "to", to.String())
		},
	})
	b.breakers[apiKey] = cb
	return cb
}
