package batch

import (
	"context"
	"log/slog"

	"codeberg.org/snonux/bulkimagen/internal/imagen"
	"codeberg.org/snonux/bulkimagen/internal/results"
	"codeberg.org/snonux/bulkimagen/internal/rotation"
)

// DefaultImagesPerKey is the client-side soft quota per key before the
// runner moves on to the next one. It is a load-spreading heuristic, not
// a limit enforced by the API.
const DefaultImagesPerKey = 15

// Dispatcher runs one job against the key pool
type Dispatcher interface {
	Dispatch(ctx context.Context, job rotation.Job, apiKeys []string, startIndex int) (*rotation.Result, error)
}

// RunRequest describes one generation run
type RunRequest struct {
	PromptText    string
	Keys          []string
	ImageCount    int
	AspectRatio   imagen.AspectRatio
	StartKeyIndex int // last successful index of the previous run
}

// RotationState is the key rotation state threaded through a run
type RotationState struct {
	KeyIndex             int
	ImagesWithCurrentKey int
}

// JobProgress is reported after every job, in prompt order
type JobProgress struct {
	Index   int // zero-based job index
	Total   int
	Group   *results.Group
	Percent float64
}

// Observer receives progress while a run is in flight
type Observer interface {
	JobDone(p JobProgress)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(p JobProgress)

// JobDone calls f(p)
func (f ObserverFunc) JobDone(p JobProgress) {
	f(p)
}

// RunResult is the outcome of a finished run
type RunResult struct {
	Groups    []*results.Group
	KeyIndex  int // starting point for the next run
	Succeeded int
	Failed    int
}

// Runner processes jobs strictly sequentially
type Runner struct {
	dispatcher   Dispatcher
	imagesPerKey int
	logger       *slog.Logger
}

// NewRunner creates a runner; imagesPerKey <= 0 selects DefaultImagesPerKey
func NewRunner(dispatcher Dispatcher, imagesPerKey int, logger *slog.Logger) *Runner {
	if imagesPerKey <= 0 {
		imagesPerKey = DefaultImagesPerKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		dispatcher:   dispatcher,
		imagesPerKey: imagesPerKey,
		logger:       logger,
	}
}

// Prepare validates a request and builds its jobs without running them
func Prepare(req RunRequest) ([]rotation.Job, error) {
	prompts := ParsePrompts(req.PromptText)
	if len(prompts) == 0 {
		return nil, ErrNoPrompts
	}
	if len(req.Keys) == 0 {
		return nil, ErrNoKeys
	}
	if err := ValidateSettings(req.ImageCount, req.AspectRatio); err != nil {
		return nil, err
	}
	return BuildJobs(prompts, req.ImageCount, req.AspectRatio), nil
}

// Run executes every job of req. Precondition errors are returned before
// any call is made. A failed job is recorded on its group and the run
// continues. A cancelled context stops the run after the current job and
// returns the groups finished so far together with the context error.
func (r *Runner) Run(ctx context.Context, req RunRequest, observer Observer) (*RunResult, error) {
	jobs, err := Prepare(req)
	if err != nil {
		return nil, err
	}

	state := RotationState{KeyIndex: req.StartKeyIndex}
	if state.KeyIndex < 0 || state.KeyIndex >= len(req.Keys) {
		state.KeyIndex = 0
	}

	result := &RunResult{Groups: make([]*results.Group, 0, len(jobs))}

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			result.KeyIndex = state.KeyIndex
			return result, err
		}

		r.applyQuota(&state, job, len(req.Keys))

		var group *results.Group
		dispatched, err := r.dispatcher.Dispatch(ctx, job, req.Keys, state.KeyIndex)
		if err != nil {
			r.logger.Error("generation failed", "prompt", job.Prompt, "error", err)
			group = results.NewFailedGroup(job.Prompt, job.NumberOfImages, err)
			result.Failed++
		} else {
			group = results.NewGroup(job.Prompt, dispatched.Images, job.NumberOfImages)
			state.KeyIndex = dispatched.KeyIndex
			state.ImagesWithCurrentKey += len(dispatched.Images)
			result.Succeeded++
		}
		result.Groups = append(result.Groups, group)

		if observer != nil {
			observer.JobDone(JobProgress{
				Index:   i,
				Total:   len(jobs),
				Group:   group,
				Percent: float64(i+1) / float64(len(jobs)) * 100,
			})
		}
	}

	result.KeyIndex = state.KeyIndex
	return result, nil
}

// applyQuota moves to the next key when the next job would push the
// current key past its soft quota. Only applies with more than one key.
func (r *Runner) applyQuota(state *RotationState, job rotation.Job, numKeys int) {
	if numKeys <= 1 {
		return
	}
	if state.ImagesWithCurrentKey+job.NumberOfImages <= r.imagesPerKey {
		return
	}

	next := (state.KeyIndex + 1) % numKeys
	r.logger.Debug("key quota reached, rotating",
		"from", state.KeyIndex,
		"to", next,
		"images", state.ImagesWithCurrentKey,
		"quota", r.imagesPerKey)
	state.KeyIndex = next
	state.ImagesWithCurrentKey = 0
}
