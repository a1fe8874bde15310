// Package batch turns prompt text into generation jobs and runs them
// sequentially against a rotating pool of API keys.
package batch

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/rotation"
)

// Precondition errors, reported before any generation call is made
var (
	ErrNoPrompts  = errors.New("no prompts to generate")
	ErrNoKeys     = errors.New("no API keys configured")
	ErrInvalidJob = errors.New("invalid generation settings")
)

// ParsePrompts splits text into prompts, one per non-empty trimmed line
func ParsePrompts(text string) []string {
	var prompts []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			prompts = append(prompts, line)
		}
	}
	return prompts
}

// ReadPromptFile reads a prompt file and returns its raw text.
// Callers replace the current prompt text with the result.
func ReadPromptFile(filename string) (string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	return string(content), nil
}

// BuildJobs creates one job per prompt with identical settings
func BuildJobs(prompts []string, imageCount int, aspectRatio imagen.AspectRatio) []rotation.Job {
	jobs := make([]rotation.Job, len(prompts))
	for i, prompt := range prompts {
		jobs[i] = rotation.Job{
			Prompt:         prompt,
			NumberOfImages: imageCount,
			AspectRatio:    aspectRatio,
		}
	}
	return jobs
}

// ValidateSettings checks the image count and aspect ratio shared by all jobs
func ValidateSettings(imageCount int, aspectRatio imagen.AspectRatio) error {
	if imageCount < imagen.MinImages || imageCount > imagen.MaxImages {
		return fmt.Errorf("%w: image count must be between %d and %d, got %d",
			ErrInvalidJob, imagen.MinImages, imagen.MaxImages, imageCount)
	}
	if _, err := imagen.ParseAspectRatio(string(aspectRatio)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return nil
}
