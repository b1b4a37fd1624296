package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"matchcast/internal/domain"
	"matchcast/internal/metrics"
)

// Orchestrator drives the transcoding jobs of locator playlists: starting,
// killing and deleting them, and serving the files they produce.
type Orchestrator struct {
	Playlists *PlaylistService
	Locators  *LocatorService
	Worker    *StreamWorker
	Registry  *JobRegistry
	Log       *slog.Logger

	// PollInterval and MaxPollWait bound waiting for a playlist file that a
	// freshly started job has not written yet.
	PollInterval time.Duration
	MaxPollWait  time.Duration
}

// StartStream launches a transcoding job for every member locator of the
// playlist that is not already running or finished. A playlist with any
// live job is rejected with domain.ErrAlreadyStreaming.
func (o *Orchestrator) StartStream(ctx context.Context, pl domain.LocatorPlaylist) error {
	for _, loc := range pl.Locators {
		if _, live := o.Registry.Get(loc.ID); live {
			return fmt.Errorf("%w: locator %d", domain.ErrAlreadyStreaming, loc.ID)
		}
	}
	for _, loc := range pl.Locators {
		if loc.State.Status != domain.JobQueued {
			continue
		}
		if err := o.QueueJob(ctx, loc); err != nil {
			o.Log.Error("starting member job", "locatorId", loc.ID, "error", err)
		}
	}
	return nil
}

// QueueJob launches the transcoding job for one locator.
func (o *Orchestrator) QueueJob(ctx context.Context, loc domain.StreamLocator) error {
	return o.Worker.Begin(ctx, loc, nil)
}

// ReadPlaylistFile returns the rendered playlist file for the locator,
// polling until the transcoder has written it or MaxPollWait elapses.
func (o *Orchestrator) ReadPlaylistFile(ctx context.Context, id domain.LocatorID) ([]byte, error) {
	loc, err := o.Locators.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(o.MaxPollWait)
	ticker := time.NewTicker(o.PollInterval)
	defer ticker.Stop()
	for {
		data, err := os.ReadFile(loc.PlaylistPath)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, wrapIO(err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: playlist %s not written within %s",
				ErrIO, loc.PlaylistPath, o.MaxPollWait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// SegmentPath resolves the on-disk path of a media segment next to the
// locator's playlist file. Segment names carrying path separators or parent
// references are rejected.
func (o *Orchestrator) SegmentPath(ctx context.Context, id domain.LocatorID, segment string) (string, error) {
	if segment == "" || segment != filepath.Base(segment) || strings.HasPrefix(segment, ".") {
		return "", fmt.Errorf("%w: invalid segment name %q", domain.ErrNotFound, segment)
	}
	loc, err := o.Locators.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(loc.PlaylistPath), segment), nil
}

// Kill stops the locator's job and marks it stopped, preserving whatever
// completion ratio it reached. Each step is attempted independently so a
// vanished process still gets its state recorded.
func (o *Orchestrator) Kill(ctx context.Context, loc domain.StreamLocator) {
	if job, ok := o.Registry.Get(loc.ID); ok {
		o.Registry.Remove(loc.ID)
		job.Stop()
		metrics.StreamsKilled.Inc()
	} else if o.Worker.Transcoder.Interrupt(loc.PlaylistPath) {
		// A job producing this path without a registry handle belongs to a
		// start that never finished registering. Stop it all the same.
		metrics.StreamsKilled.Inc()
	}

	if _, err := o.Locators.Mutate(ctx, loc.ID, func(st *domain.JobState) {
		if st.Status == domain.JobCompleted || st.Status == domain.JobError {
			return
		}
		st.Status = domain.JobStopped
	}); err != nil {
		o.Log.Error("recording stopped state", "locatorId", loc.ID, "error", err)
	}
}

// KillAllFor kills every member job of the playlist.
func (o *Orchestrator) KillAllFor(ctx context.Context, pl domain.LocatorPlaylist) {
	for _, loc := range pl.Locators {
		o.Kill(ctx, loc)
	}
}

// KillAll kills every live job in the subsystem, then sweeps the transcoder
// for jobs the registry has no handle on.
func (o *Orchestrator) KillAll(ctx context.Context) int {
	ids := o.Registry.IDs()
	for _, id := range ids {
		loc, err := o.Locators.Get(ctx, id)
		if err != nil {
			o.Log.Error("resolving locator for kill", "locatorId", id, "error", err)
			continue
		}
		o.Kill(ctx, loc)
	}
	killed := len(ids)
	if n := o.Worker.Transcoder.InterruptAll(); n > 0 {
		o.Log.Warn("interrupted unregistered transcodes", "count", n)
		killed += n
	}
	return killed
}

// DeleteAll kills the playlist's jobs, deletes its database records and
// only then removes its on-disk data, locator directories first and the
// storage root last.
func (o *Orchestrator) DeleteAll(ctx context.Context, pl domain.LocatorPlaylist) error {
	o.KillAllFor(ctx, pl)
	if err := o.Playlists.Delete(ctx, pl); err != nil {
		return err
	}
	for _, loc := range pl.Locators {
		if err := o.deleteLocatorData(loc); err != nil {
			return err
		}
	}
	if pl.StorageRoot != "" {
		if err := os.RemoveAll(pl.StorageRoot); err != nil {
			return wrapIO(err)
		}
	}
	o.Log.Info("deleted locator playlist", "playlistId", pl.ID, "sourceId", pl.SourceID)
	return nil
}

// DeleteOne removes a single locator: its job, record and data. The owning
// playlist record is updated, or deleted outright when the locator was its
// last member.
func (o *Orchestrator) DeleteOne(ctx context.Context, loc domain.StreamLocator) error {
	pl, err := o.Playlists.GetContaining(ctx, loc.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("locator %d has no owning playlist: %w", loc.ID, err)
		}
		return err
	}

	o.Kill(ctx, loc)
	if err := o.Locators.Delete(ctx, loc); err != nil {
		return err
	}

	remaining := pl.Locators[:0:0]
	for _, member := range pl.Locators {
		if member.ID != loc.ID {
			remaining = append(remaining, member)
		}
	}
	if len(remaining) == 0 {
		if err := o.Playlists.Delete(ctx, domain.LocatorPlaylist{ID: pl.ID, StorageRoot: pl.StorageRoot}); err != nil {
			return err
		}
		if err := o.deleteLocatorData(loc); err != nil {
			return err
		}
		if pl.StorageRoot != "" {
			return wrapIO(os.RemoveAll(pl.StorageRoot))
		}
		return nil
	}

	pl.Locators = remaining
	if err := o.Playlists.Update(ctx, pl); err != nil {
		return err
	}
	return o.deleteLocatorData(loc)
}

// deleteLocatorData removes the locator's playlist file directory. An
// absent file is a no-op; a playlist path that exists but is not a regular
// file is refused, since removing its parent could destroy unrelated data.
func (o *Orchestrator) deleteLocatorData(loc domain.StreamLocator) error {
	info, err := os.Stat(loc.PlaylistPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return wrapIO(err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", domain.ErrNotRegularFile, loc.PlaylistPath)
	}

	dir := filepath.Dir(loc.PlaylistPath)
	if err := os.RemoveAll(dir); err != nil {
		return wrapIO(err)
	}
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: %s still present after removal", ErrIO, dir)
	}
	return nil
}
