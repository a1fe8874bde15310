package imagen

import (
	"fmt"
	"strings"
)

// AspectRatio is one of the ratios supported by the generation API
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectCinematic AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "4:3"
	AspectTall      AspectRatio = "3:4"
)

// AspectRatioOption pairs a ratio with its display label
type AspectRatioOption struct {
	Label string
	Value AspectRatio
}

// AspectRatios lists the supported ratios; the first one is the default
var AspectRatios = []AspectRatioOption{
	{Label: "Square (1:1)", Value: AspectSquare},
	{Label: "Cinematic (16:9)", Value: AspectCinematic},
	{Label: "Portrait (9:16)", Value: AspectPortrait},
	{Label: "Landscape (4:3)", Value: AspectLandscape},
	{Label: "Tall (3:4)", Value: AspectTall},
}

// Image count bounds for a single job
const (
	MinImages     = 1
	MaxImages     = 4
	DefaultImages = 2
)

// ParseAspectRatio returns the AspectRatio for s
func ParseAspectRatio(s string) (AspectRatio, error) {
	s = strings.TrimSpace(s)
	for _, opt := range AspectRatios {
		if string(opt.Value) == s {
			return opt.Value, nil
		}
	}
	return "", fmt.Errorf("unsupported aspect ratio %q (use 1:1, 16:9, 9:16, 4:3 or 3:4)", s)
}

// Label returns the display label of the ratio
func (a AspectRatio) Label() string {
	for _, opt := range AspectRatios {
		if opt.Value == a {
			return opt.Label
		}
	}
	return string(a)
}

// ValidateRequest checks that a request can be sent to a backend
func ValidateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("request cannot be nil")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	if req.NumberOfImages < MinImages || req.NumberOfImages > MaxImages {
		return fmt.Errorf("number of images must be between %d and %d, got %d", MinImages, MaxImages, req.NumberOfImages)
	}
	if _, err := ParseAspectRatio(string(req.AspectRatio)); err != nil {
		return err
	}
	return nil
}
