// Package results keeps the generated image groups of a session: the
// groups of the current run and the accumulated history of earlier runs.
package results

import (
	"codeberg.org/snonux/bulkimagen/internal/imagen"
)

// Group is the outcome of one job: its prompt, one slot per requested
// image (nil where the API returned nothing) and an optional error.
type Group struct {
	Prompt string          `json:"prompt" yaml:"prompt"`
	Images []*imagen.Image `json:"-" yaml:"-"`
	Error  string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewGroup builds a successful group, padding missing images with nil so
// that it always holds exactly requested slots.
func NewGroup(prompt string, images []imagen.Image, requested int) *Group {
	g := &Group{
		Prompt: prompt,
		Images: make([]*imagen.Image, requested),
	}
	for i := 0; i < requested && i < len(images); i++ {
		img := images[i]
		g.Images[i] = &img
	}
	return g
}

// NewFailedGroup builds a group with every slot absent and an error message
func NewFailedGroup(prompt string, requested int, err error) *Group {
	return &Group{
		Prompt: prompt,
		Images: make([]*imagen.Image, requested),
		Error:  "Failed: " + err.Error(),
	}
}

// Present returns the number of slots holding an image
func (g *Group) Present() int {
	n := 0
	for _, img := range g.Images {
		if img != nil {
			n++
		}
	}
	return n
}

// Missing returns the number of absent slots
func (g *Group) Missing() int {
	return len(g.Images) - g.Present()
}

// Clone returns a deep copy of the group
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	c := &Group{
		Prompt: g.Prompt,
		Images: make([]*imagen.Image, len(g.Images)),
		Error:  g.Error,
	}
	for i, img := range g.Images {
		c.Images[i] = img.Clone()
	}
	return c
}

func cloneGroups(groups []*Group) []*Group {
	out := make([]*Group, len(groups))
	for i, g := range groups {
		out[i] = g.Clone()
	}
	return out
}
