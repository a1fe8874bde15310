package cli

import (
	"os"

	"github.com/spf13/viper"

	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/keys"
	"codeberg.org/snonux/bulkimagen/internal/rotation"
	"codeberg.org/snonux/bulkimagen/internal/session"
)

// Settings are the effective settings after flags, config file and
// environment have been merged by viper
type Settings struct {
	Provider     string
	Model        string
	ImageCount   int
	AspectRatio  string
	ImagesPerKey int
	Breaker      rotation.BreakerConfig
	Output       string
	Report       string
}

// LoadSettings reads the effective settings from viper
func LoadSettings() *Settings {
	s := &Settings{
		Provider:     viper.GetString("api.provider"),
		Model:        viper.GetString("api.model"),
		ImageCount:   viper.GetInt("generation.count"),
		AspectRatio:  viper.GetString("generation.aspect_ratio"),
		ImagesPerKey: viper.GetInt("generation.images_per_key"),
		Breaker: rotation.BreakerConfig{
			Failures: viper.GetUint32("breaker.failures"),
			Cooldown: viper.GetDuration("breaker.cooldown"),
		},
		Output: viper.GetString("output.file"),
		Report: viper.GetString("output.report"),
	}
	if s.Provider == "" {
		s.Provider = imagen.ProviderImagen
	}
	return s
}

// GeneratorConfig returns the backend configuration of the settings
func (s *Settings) GeneratorConfig() *imagen.Config {
	return &imagen.Config{Provider: s.Provider, Model: s.Model}
}

// SessionConfig returns the initial session settings
func (s *Settings) SessionConfig() *session.Config {
	return &session.Config{
		ImageCount:   s.ImageCount,
		AspectRatio:  imagen.AspectRatio(s.AspectRatio),
		ImagesPerKey: s.ImagesPerKey,
	}
}

// envKeyNames lists the environment variables checked for each provider
var envKeyNames = map[string][]string{
	imagen.ProviderImagen: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	imagen.ProviderOpenAI: {"OPENAI_API_KEY"},
}

// GetAPIKeys collects the API keys in this order: --key flags, the
// --keys-file, api.keys from the config file and finally the provider's
// environment variables. Duplicates are dropped.
func GetAPIKeys(flags *Flags, provider string) ([]string, error) {
	store := keys.NewStore(flags.Keys...)

	if flags.KeysFile != "" {
		if _, err := store.AddFile(flags.KeysFile); err != nil {
			return nil, err
		}
	}

	store.Add(viper.GetStringSlice("api.keys")...)

	for _, name := range envKeyNames[provider] {
		store.Add(os.Getenv(name))
	}

	return store.List(), nil
}
