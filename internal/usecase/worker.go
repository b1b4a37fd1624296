package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"matchcast/internal/domain"
	"matchcast/internal/domain/ports"
	"matchcast/internal/metrics"
)

// StreamWorker runs one transcoding job per locator: it refreshes the part's
// download URL, launches the external process, follows its log output to
// track completion and records the terminal state.
type StreamWorker struct {
	Transcoder ports.Transcoder
	Files      ports.FileResolver
	Locators   *LocatorService
	Registry   *JobRegistry
	Log        *slog.Logger

	// Slots caps how many jobs transcode at once. Nil means unlimited.
	Slots *semaphore.Weighted
}

// Begin submits the job for the locator and returns without waiting for the
// transcode to run. Without a concurrency cap the process is started before
// returning; with one, the job waits for a slot in the background and the
// locator stays queued until a slot frees. onDone, when non-nil, fires
// exactly once after the terminal state is recorded.
func (w *StreamWorker) Begin(ctx context.Context, loc domain.StreamLocator, onDone func()) error {
	if w.Slots == nil {
		return w.begin(ctx, loc, onDone)
	}
	go func() {
		ctx := context.Background()
		if err := w.Slots.Acquire(ctx, 1); err != nil {
			w.fail(loc.ID, fmt.Sprintf("acquiring stream slot: %v", err))
			if onDone != nil {
				onDone()
			}
			return
		}
		if err := w.begin(ctx, loc, onDone); err != nil {
			w.release()
			w.Log.Error("starting queued stream", "locatorId", loc.ID, "error", err)
			if onDone != nil {
				onDone()
			}
		}
	}()
	return nil
}

func (w *StreamWorker) begin(ctx context.Context, loc domain.StreamLocator, onDone func()) error {
	part, err := w.Files.Refresh(ctx, loc.Part)
	if err != nil {
		w.fail(loc.ID, fmt.Sprintf("refreshing download url: %v", err))
		return fmt.Errorf("refreshing part %s: %w", loc.Part.ID, err)
	}

	job, err := w.Transcoder.StreamJob(part.InternalURL, loc.PlaylistPath)
	if err != nil {
		w.fail(loc.ID, fmt.Sprintf("preparing transcode: %v", err))
		return wrapTranscoder(err)
	}
	if err := job.Start(); err != nil {
		w.fail(loc.ID, fmt.Sprintf("starting transcode: %v", err))
		return wrapTranscoder(err)
	}

	w.Registry.Put(loc.ID, job)
	metrics.StreamsStarted.Inc()
	metrics.ActiveStreams.Inc()

	if _, err := w.Locators.Mutate(ctx, loc.ID, func(st *domain.JobState) {
		st.Status = domain.JobStreaming
	}); err != nil {
		w.Log.Error("recording streaming state", "locatorId", loc.ID, "error", err)
	}

	go w.follow(loc.ID, job, onDone)
	return nil
}

// follow consumes the job's log output until exit, then records the
// terminal state. A state already made terminal by a kill or a previous
// error is left untouched.
func (w *StreamWorker) follow(id domain.LocatorID, job ports.TranscodeJob, onDone func()) {
	ctx := context.Background()
	var fired atomic.Bool
	fire := func() {
		if onDone != nil && fired.CompareAndSwap(false, true) {
			onDone()
		}
	}
	defer fire()
	defer w.release()
	defer metrics.ActiveStreams.Dec()
	defer w.Registry.Remove(id)

	parser := NewProgressParser(w.Log, func(ratio float64) {
		if _, err := w.Locators.Mutate(ctx, id, func(st *domain.JobState) {
			if st.Status == domain.JobStreaming {
				st.CompletionRatio = ratio
			}
		}); err != nil {
			w.Log.Warn("recording progress", "locatorId", id, "error", err)
		}
	})
	for line := range job.Lines() {
		parser.Parse(line)
	}
	<-job.Done()

	stopped := job.Stopped()
	exitErr := job.Err()
	if _, err := w.Locators.Mutate(ctx, id, func(st *domain.JobState) {
		if st.Status.Terminal() {
			return
		}
		switch {
		case stopped:
			// The exit was asked for. Keep the ratio the job reached.
			st.Status = domain.JobStopped
		case exitErr != nil:
			st.Status = domain.JobError
			st.Error = exitErr.Error()
		default:
			st.Status = domain.JobCompleted
			st.CompletionRatio = 1
		}
	}); err != nil {
		w.Log.Error("recording terminal state", "locatorId", id, "error", err)
	}
	switch {
	case stopped:
		w.Log.Info("transcode stopped", "locatorId", id)
	case exitErr != nil:
		metrics.StreamsFailed.Inc()
		w.Log.Warn("transcode exited with error", "locatorId", id, "error", exitErr)
	default:
		w.Log.Info("transcode finished", "locatorId", id)
	}
}

// fail records an error state for a job that never started.
func (w *StreamWorker) fail(id domain.LocatorID, detail string) {
	metrics.StreamsFailed.Inc()
	if _, err := w.Locators.Mutate(context.Background(), id, func(st *domain.JobState) {
		if !st.Status.Terminal() {
			st.Status = domain.JobError
			st.Error = detail
		}
	}); err != nil {
		w.Log.Error("recording error state", "locatorId", id, "error", err)
	}
}

func (w *StreamWorker) release() {
	if w.Slots != nil {
		w.Slots.Release(1)
	}
}
