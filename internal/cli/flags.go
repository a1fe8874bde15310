package cli

import (
	"time"

	"codeberg.org/snonux/bulkimagen/internal/batch"
	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/rotation"
)

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile     string
	PromptsFile string
	Output      string
	Report      string
	ReportFile  string
	ListModels  bool
	Verbose     bool

	// API flags
	Keys     []string
	KeysFile string
	Provider string
	Model    string

	// Generation flags
	ImageCount   int
	AspectRatio  string
	ImagesPerKey int

	// Circuit breaker flags
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	breaker := rotation.DefaultBreakerConfig()
	return &Flags{
		Output:          "current-generation.zip",
		Provider:        imagen.ProviderImagen,
		ImageCount:      imagen.DefaultImages,
		AspectRatio:     string(imagen.AspectSquare),
		ImagesPerKey:    batch.DefaultImagesPerKey,
		BreakerFailures: breaker.Failures,
		BreakerCooldown: breaker.Cooldown,
	}
}
