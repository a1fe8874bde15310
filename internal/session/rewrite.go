package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codeberg.org/snonux/bulkimagen/internal/results"
	"codeberg.org/snonux/bulkimagen/internal/rotation"
)

var (
	errNoRewriteImage = errors.New("rewrite generation returned no image")
	errStaleRewrite   = errors.New("the results changed since the image was selected, select it again")
)

// RewriteTarget identifies one image slot and the prompt of its group
type RewriteTarget struct {
	Source     results.Source
	GroupIndex int
	ImageIndex int
	Prompt     string

	run int
}

// SelectRewrite validates a slot and remembers it as the pending rewrite
func (s *Session) SelectRewrite(source results.Source, groupIndex, imageIndex int) (*RewriteTarget, error) {
	g, err := s.results.Group(source, groupIndex)
	if err != nil {
		return nil, s.fail(err)
	}
	if imageIndex < 0 || imageIndex >= len(g.Images) {
		return nil, s.fail(fmt.Errorf("%w: image %d of %s group %d",
			results.ErrNoSuchSlot, imageIndex+1, source, groupIndex+1))
	}

	target := &RewriteTarget{
		Source:     source,
		GroupIndex: groupIndex,
		ImageIndex: imageIndex,
		Prompt:     g.Prompt,
	}

	s.mu.Lock()
	target.run = s.run
	s.pending = target
	s.mu.Unlock()
	return target, nil
}

// PendingRewrite returns the slot chosen by the last SelectRewrite, if any
func (s *Session) PendingRewrite() *RewriteTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	t := *s.pending
	return &t
}

// Rewrite regenerates one image of target with newPrompt, or with the
// group's own prompt when newPrompt is blank. On success exactly that
// slot is replaced; on failure the group is left untouched.
func (s *Session) Rewrite(ctx context.Context, target *RewriteTarget, newPrompt string) error {
	if target == nil {
		target = s.PendingRewrite()
		if target == nil {
			err := errors.New("no image selected")
			s.mu.Lock()
			s.errMsg = "Rewrite failed: " + err.Error()
			s.mu.Unlock()
			return fmt.Errorf("rewrite failed: %w", err)
		}
	}

	prompt := strings.TrimSpace(newPrompt)
	if prompt == "" {
		prompt = target.Prompt
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if target.run != s.run {
		s.errMsg = "Rewrite failed: " + errStaleRewrite.Error()
		s.mu.Unlock()
		return fmt.Errorf("rewrite failed: %w", errStaleRewrite)
	}
	s.busy = true
	s.errMsg = ""
	apiKeys := s.keys.List()
	start := s.keyIndex
	if start >= len(apiKeys) {
		start = 0
	}
	job := rotation.Job{
		Prompt:         prompt,
		NumberOfImages: 1,
		AspectRatio:    s.aspectRatio,
	}
	s.mu.Unlock()

	res, err := s.dispatcher.Dispatch(ctx, job, apiKeys, start)
	if err == nil && len(res.Images) == 0 {
		err = errNoRewriteImage
	}
	if err == nil {
		err = s.results.ApplyRewrite(target.Source, target.GroupIndex, target.ImageIndex, res.Images[0])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if err != nil {
		s.errMsg = "Rewrite failed: " + err.Error()
		s.logger.Warn("rewrite failed",
			"source", target.Source,
			"group", target.GroupIndex+1,
			"image", target.ImageIndex+1,
			"error", err)
		return fmt.Errorf("rewrite failed: %w", err)
	}

	s.keyIndex = res.KeyIndex
	s.pending = nil
	s.logger.Debug("image rewritten",
		"source", target.Source,
		"group", target.GroupIndex+1,
		"image", target.ImageIndex+1,
		"key_index", res.KeyIndex)
	return nil
}
