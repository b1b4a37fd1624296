package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"matchcast/internal/domain"
)

func newWorkerEnv(t *testing.T, job *fakeJob) (*StreamWorker, *LocatorService, *fakeTranscoder) {
	t.Helper()
	repo := newFakeLocatorRepo()
	locators := newLocatorService(repo, &fakeNotifier{})
	transcoder := newFakeTranscoder()
	transcoder.nextJob = job
	worker := &StreamWorker{
		Transcoder: transcoder,
		Files:      &fakeResolver{servers: []*fakeFileServer{{id: "s1", hostname: "files.example", resolved: "https://files.example/dl/a"}}},
		Locators:   locators,
		Registry:   NewJobRegistry(),
		Log:        discardLogger(),
	}
	return worker, locators, transcoder
}

func queuedLocator(t *testing.T, locators *LocatorService) domain.StreamLocator {
	t.Helper()
	loc, err := locators.Create(context.Background(), t.TempDir(), domain.Part{ID: uuid.New(), ExternalURL: "https://src/a"})
	if err != nil {
		t.Fatalf("creating locator: %v", err)
	}
	return loc
}

func waitForStatus(t *testing.T, locators *LocatorService, id domain.LocatorID, want domain.JobStatus) domain.StreamLocator {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		loc, err := locators.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if loc.State.Status == want {
			return loc
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("locator %d never reached status %s", id, want)
	return domain.StreamLocator{}
}

func TestWorkerCompletesJob(t *testing.T) {
	job := newFakeJob([]string{
		"  Duration: 00:10:00.00, start: 0.000000",
		"frame=1 time=00:05:00.00",
	}, nil)
	worker, locators, _ := newWorkerEnv(t, job)
	loc := queuedLocator(t, locators)

	var fired atomic.Int32
	if err := worker.Begin(context.Background(), loc, func() { fired.Add(1) }); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	got := waitForStatus(t, locators, loc.ID, domain.JobCompleted)
	if got.State.CompletionRatio != 1 {
		t.Fatalf("completed ratio = %v, want 1", got.State.CompletionRatio)
	}

	deadline := time.Now().Add(time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := fired.Load(); n != 1 {
		t.Fatalf("onDone fired %d times, want exactly 1", n)
	}
	if _, live := worker.Registry.Get(loc.ID); live {
		t.Fatal("job still registered after completion")
	}
}

func TestWorkerRecordsExitError(t *testing.T) {
	job := newFakeJob(nil, errors.New("exit status 1"))
	worker, locators, _ := newWorkerEnv(t, job)
	loc := queuedLocator(t, locators)

	if err := worker.Begin(context.Background(), loc, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	got := waitForStatus(t, locators, loc.ID, domain.JobError)
	if got.State.Error == "" {
		t.Fatal("expected the exit error detail to be recorded")
	}
}

func TestWorkerKeepsStoppedState(t *testing.T) {
	job := newFakeJob(nil, errors.New("signal: killed"))
	worker, locators, _ := newWorkerEnv(t, job)
	loc := queuedLocator(t, locators)

	// A kill lands before the process exit is observed: the stopped state
	// must survive the terminal write.
	if _, err := locators.Mutate(context.Background(), loc.ID, func(st *domain.JobState) {
		st.Status = domain.JobStopped
		st.CompletionRatio = 0.4
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	worker.follow(loc.ID, job, nil)

	got, _ := locators.Get(context.Background(), loc.ID)
	if got.State.Status != domain.JobStopped {
		t.Fatalf("status = %s, want stopped preserved", got.State.Status)
	}
	if got.State.CompletionRatio != 0.4 {
		t.Fatalf("ratio = %v, want 0.4 preserved", got.State.CompletionRatio)
	}
}

func TestWorkerRecordsStopRequestedExit(t *testing.T) {
	job := newFakeJob(nil, nil)
	worker, locators, _ := newWorkerEnv(t, job)
	loc := queuedLocator(t, locators)

	if _, err := locators.Mutate(context.Background(), loc.ID, func(st *domain.JobState) {
		st.Status = domain.JobStreaming
		st.CompletionRatio = 0.42
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	// The process exit is observed after Stop but before the stopped state
	// lands: the clean exit must not read as a completion.
	job.Stop()
	worker.follow(loc.ID, job, nil)

	got, _ := locators.Get(context.Background(), loc.ID)
	if got.State.Status != domain.JobStopped {
		t.Fatalf("status = %s, want stopped", got.State.Status)
	}
	if got.State.CompletionRatio != 0.42 {
		t.Fatalf("ratio = %v, want 0.42 preserved", got.State.CompletionRatio)
	}
}

func TestWorkerQueuesWhenSlotsSaturated(t *testing.T) {
	job := newFakeJob(nil, nil)
	worker, locators, _ := newWorkerEnv(t, job)
	worker.Slots = semaphore.NewWeighted(1)
	loc := queuedLocator(t, locators)

	ctx := context.Background()
	if err := worker.Slots.Acquire(ctx, 1); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// With every slot taken, Begin must return at once and leave the
	// locator queued instead of blocking the caller.
	start := time.Now()
	if err := worker.Begin(ctx, loc, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Begin blocked for %v", elapsed)
	}
	time.Sleep(20 * time.Millisecond)
	got, _ := locators.Get(ctx, loc.ID)
	if got.State.Status != domain.JobQueued {
		t.Fatalf("status while waiting for a slot = %s, want queued", got.State.Status)
	}

	worker.Slots.Release(1)
	waitForStatus(t, locators, loc.ID, domain.JobCompleted)
}

func TestWorkerFailsOnRefreshError(t *testing.T) {
	worker, locators, _ := newWorkerEnv(t, newFakeJob(nil, nil))
	worker.Files = &fakeResolver{refreshErr: errors.New("server down")}
	loc := queuedLocator(t, locators)

	if err := worker.Begin(context.Background(), loc, nil); err == nil {
		t.Fatal("expected Begin to fail when the refresh fails")
	}
	got, _ := locators.Get(context.Background(), loc.ID)
	if got.State.Status != domain.JobError {
		t.Fatalf("status = %s, want error", got.State.Status)
	}
}
