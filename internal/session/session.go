package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"codeberg.org/snonux/bulkimagen/internal/archive"
	"codeberg.org/snonux/bulkimagen/internal/batch"
	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/keys"
	"codeberg.org/snonux/bulkimagen/internal/results"
)

// MsgMissingInput is shown when a run is started without prompts or keys
const MsgMissingInput = "Please add at least one prompt and one API key."

// ErrBusy is returned when a generation or rewrite is already in flight
var ErrBusy = errors.New("a generation is already in progress")

// Config holds the initial generation settings of a session
type Config struct {
	ImageCount   int
	AspectRatio  imagen.AspectRatio
	ImagesPerKey int
}

// DefaultConfig returns the settings of a fresh session
func DefaultConfig() *Config {
	return &Config{
		ImageCount:   imagen.DefaultImages,
		AspectRatio:  imagen.AspectRatios[0].Value,
		ImagesPerKey: batch.DefaultImagesPerKey,
	}
}

// Summary describes one finished generation run
type Summary struct {
	ID              string           `json:"id" yaml:"id"`
	Started         time.Time        `json:"started" yaml:"started"`
	Duration        time.Duration    `json:"duration" yaml:"duration"`
	Prompts         int              `json:"prompts" yaml:"prompts"`
	ImagesRequested int              `json:"images_requested" yaml:"images_requested"`
	ImagesGenerated int              `json:"images_generated" yaml:"images_generated"`
	Succeeded       int              `json:"succeeded" yaml:"succeeded"`
	Failed          int              `json:"failed" yaml:"failed"`
	KeyIndex        int              `json:"key_index" yaml:"key_index"`
	Cancelled       bool             `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	Groups          []*results.Group `json:"groups" yaml:"groups"`
}

// Session is the state of one interactive or one-shot session
type Session struct {
	dispatcher batch.Dispatcher
	runner     *batch.Runner
	logger     *slog.Logger

	keys    *keys.Store
	results *results.Store

	mu          sync.Mutex
	promptText  string
	imageCount  int
	aspectRatio imagen.AspectRatio
	keyIndex    int
	busy        bool
	errMsg      string
	pending     *RewriteTarget
	run         int // bumped whenever a generation reorders the results
}

// New creates a session that sends its jobs through dispatcher
func New(dispatcher batch.Dispatcher, cfg *Config, logger *slog.Logger) *Session {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		dispatcher:  dispatcher,
		runner:      batch.NewRunner(dispatcher, cfg.ImagesPerKey, logger),
		logger:      logger,
		keys:        keys.NewStore(),
		results:     results.NewStore(),
		imageCount:  imagen.DefaultImages,
		aspectRatio: imagen.AspectRatios[0].Value,
	}
	if cfg.ImageCount >= imagen.MinImages && cfg.ImageCount <= imagen.MaxImages {
		s.imageCount = cfg.ImageCount
	}
	if ratio, err := imagen.ParseAspectRatio(string(cfg.AspectRatio)); err == nil {
		s.aspectRatio = ratio
	}
	return s
}

// Keys returns the session's key pool
func (s *Session) Keys() *keys.Store {
	return s.keys
}

// Results returns the session's result store
func (s *Session) Results() *results.Store {
	return s.results
}

// SetPromptText replaces the prompt text
func (s *Session) SetPromptText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptText = text
}

// PromptText returns the raw prompt text
func (s *Session) PromptText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promptText
}

// Prompts returns the parsed prompts of the current prompt text
func (s *Session) Prompts() []string {
	return batch.ParsePrompts(s.PromptText())
}

// LoadPromptFile replaces the prompt text with the content of filename
// and returns the number of prompts it holds
func (s *Session) LoadPromptFile(filename string) (int, error) {
	text, err := batch.ReadPromptFile(filename)
	if err != nil {
		return 0, s.fail(err)
	}
	s.SetPromptText(text)
	return len(batch.ParsePrompts(text)), nil
}

// SetImageCount sets the number of images generated per prompt
func (s *Session) SetImageCount(n int) error {
	if n < imagen.MinImages || n > imagen.MaxImages {
		return s.fail(fmt.Errorf("%w: image count must be between %d and %d, got %d",
			batch.ErrInvalidJob, imagen.MinImages, imagen.MaxImages, n))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageCount = n
	return nil
}

// ImageCount returns the number of images generated per prompt
func (s *Session) ImageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imageCount
}

// SetAspectRatio sets the aspect ratio of every following job
func (s *Session) SetAspectRatio(value string) error {
	ratio, err := imagen.ParseAspectRatio(value)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", batch.ErrInvalidJob, err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aspectRatio = ratio
	return nil
}

// AspectRatio returns the current aspect ratio
func (s *Session) AspectRatio() imagen.AspectRatio {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aspectRatio
}

// KeyIndex returns the index of the key that last succeeded
func (s *Session) KeyIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyIndex
}

// PlannedImages is the number of images the next run asks for
func (s *Session) PlannedImages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(batch.ParsePrompts(s.promptText)) * s.imageCount
}

// Busy reports whether a generation or rewrite is in flight
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Err returns the last error message, or "" when the last operation succeeded
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// StartGeneration runs every prompt against the key pool. The previous
// current results move to the history first and each finished group is
// recorded as soon as it completes, then passed on to observer.
func (s *Session) StartGeneration(ctx context.Context, observer batch.Observer) (*Summary, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}

	req := batch.RunRequest{
		PromptText:    s.promptText,
		Keys:          s.keys.List(),
		ImageCount:    s.imageCount,
		AspectRatio:   s.aspectRatio,
		StartKeyIndex: s.keyIndex,
	}
	jobs, err := batch.Prepare(req)
	if err != nil {
		if errors.Is(err, batch.ErrNoPrompts) || errors.Is(err, batch.ErrNoKeys) {
			s.errMsg = MsgMissingInput
		} else {
			s.errMsg = err.Error()
		}
		s.mu.Unlock()
		return nil, err
	}

	s.busy = true
	s.errMsg = ""
	s.pending = nil
	s.run++
	s.mu.Unlock()

	summary := &Summary{
		ID:              uuid.NewString(),
		Started:         time.Now(),
		Prompts:         len(jobs),
		ImagesRequested: len(jobs) * req.ImageCount,
	}
	logger := s.logger.With("run_id", summary.ID)
	logger.Info("generation started", "prompts", summary.Prompts, "images", summary.ImagesRequested, "keys", len(req.Keys))

	s.results.StartRun()
	record := batch.ObserverFunc(func(p batch.JobProgress) {
		s.results.Append(p.Group)
		if observer != nil {
			observer.JobDone(p)
		}
	})

	res, runErr := s.runner.Run(ctx, req, record)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	summary.Duration = time.Since(summary.Started)
	if res != nil {
		s.keyIndex = res.KeyIndex
		summary.KeyIndex = res.KeyIndex
		summary.Succeeded = res.Succeeded
		summary.Failed = res.Failed
		summary.Groups = res.Groups
		for _, g := range res.Groups {
			summary.ImagesGenerated += g.Present()
		}
	}

	if runErr != nil {
		summary.Cancelled = errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)
		s.errMsg = fmt.Sprintf("Generation stopped: %v", runErr)
		logger.Warn("generation stopped", "error", runErr, "completed", len(summary.Groups))
		return summary, runErr
	}

	logger.Info("generation finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"images", summary.ImagesGenerated,
		"duration", summary.Duration)
	return summary, nil
}

// ExportCurrent writes the current results to path, or to
// current-generation.zip when path is empty
func (s *Session) ExportCurrent(path string) (string, error) {
	return s.export(results.SourceCurrent, path, archive.DefaultCurrentName)
}

// ExportHistory writes the history to path, or to generated-images.zip
// when path is empty
func (s *Session) ExportHistory(path string) (string, error) {
	return s.export(results.SourceHistory, path, archive.DefaultHistoryName)
}

func (s *Session) export(source results.Source, path, fallback string) (string, error) {
	if path == "" {
		path = fallback
	}
	if err := archive.ExportFile(path, s.results.Groups(source)); err != nil {
		return "", s.fail(err)
	}
	s.logger.Debug("exported results", "source", source, "path", path)
	return path, nil
}

// SaveImage writes one image of a group into dir
func (s *Session) SaveImage(source results.Source, groupIndex, imageIndex int, dir string) (string, error) {
	g, err := s.results.Group(source, groupIndex)
	if err != nil {
		return "", s.fail(err)
	}
	path, err := archive.SaveImage(dir, g, groupIndex, imageIndex)
	if err != nil {
		return "", s.fail(err)
	}
	return path, nil
}

// ClearHistory drops the history and returns the number of groups removed
func (s *Session) ClearHistory() int {
	return s.results.ClearHistory()
}

// fail records err as the session's error message and returns it
func (s *Session) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = err.Error()
	return err
}
