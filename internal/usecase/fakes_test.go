package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"matchcast/internal/domain"
	"matchcast/internal/domain/ports"
)

// fakeLocatorRepo keeps locators in memory and assigns sequential IDs.
type fakeLocatorRepo struct {
	mu     sync.Mutex
	nextID domain.LocatorID
	byID   map[domain.LocatorID]domain.StreamLocator

	createErr error
	updateErr error
	updates   int
}

func newFakeLocatorRepo() *fakeLocatorRepo {
	return &fakeLocatorRepo{byID: make(map[domain.LocatorID]domain.StreamLocator)}
}

func (f *fakeLocatorRepo) Create(ctx context.Context, loc domain.StreamLocator) (domain.StreamLocator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.StreamLocator{}, f.createErr
	}
	f.nextID++
	loc.ID = f.nextID
	f.byID[loc.ID] = loc
	return loc, nil
}

func (f *fakeLocatorRepo) Get(ctx context.Context, id domain.LocatorID) (domain.StreamLocator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc, ok := f.byID[id]
	if !ok {
		return domain.StreamLocator{}, domain.ErrNotFound
	}
	return loc, nil
}

func (f *fakeLocatorRepo) GetByPart(ctx context.Context, partID uuid.UUID) (domain.StreamLocator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best domain.StreamLocator
	found := false
	for _, loc := range f.byID {
		if loc.Part.ID == partID && (!found || loc.ID > best.ID) {
			best, found = loc, true
		}
	}
	if !found {
		return domain.StreamLocator{}, domain.ErrNotFound
	}
	return best, nil
}

func (f *fakeLocatorRepo) Update(ctx context.Context, loc domain.StreamLocator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[loc.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[loc.ID] = loc
	f.updates++
	return nil
}

func (f *fakeLocatorRepo) Delete(ctx context.Context, id domain.LocatorID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakePlaylistRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]domain.LocatorPlaylist

	createErr error
}

func newFakePlaylistRepo() *fakePlaylistRepo {
	return &fakePlaylistRepo{byID: make(map[int64]domain.LocatorPlaylist)}
}

func (f *fakePlaylistRepo) Create(ctx context.Context, pl domain.LocatorPlaylist) (domain.LocatorPlaylist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.LocatorPlaylist{}, f.createErr
	}
	f.nextID++
	pl.ID = f.nextID
	f.byID[pl.ID] = pl
	return pl, nil
}

func (f *fakePlaylistRepo) GetBySource(ctx context.Context, sourceID uuid.UUID) (domain.LocatorPlaylist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best domain.LocatorPlaylist
	found := false
	for _, pl := range f.byID {
		if pl.SourceID == sourceID && (!found || pl.ID > best.ID) {
			best, found = pl, true
		}
	}
	if !found {
		return domain.LocatorPlaylist{}, domain.ErrNotFound
	}
	return best, nil
}

func (f *fakePlaylistRepo) GetContaining(ctx context.Context, locatorID domain.LocatorID) (domain.LocatorPlaylist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pl := range f.byID {
		if _, ok := pl.Locator(locatorID); ok {
			return pl, nil
		}
	}
	return domain.LocatorPlaylist{}, domain.ErrNotFound
}

func (f *fakePlaylistRepo) List(ctx context.Context) ([]domain.LocatorPlaylist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.LocatorPlaylist, 0, len(f.byID))
	for _, pl := range f.byID {
		out = append(out, pl)
	}
	return out, nil
}

func (f *fakePlaylistRepo) Update(ctx context.Context, pl domain.LocatorPlaylist) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[pl.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[pl.ID] = pl
	return nil
}

func (f *fakePlaylistRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeEventRepo struct {
	events map[uuid.UUID]domain.Event
}

func (f *fakeEventRepo) Get(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return ev, nil
}

func (f *fakeEventRepo) GetBySource(ctx context.Context, sourceID uuid.UUID) (domain.Event, error) {
	for _, ev := range f.events {
		if _, ok := ev.Source(sourceID); ok {
			return ev, nil
		}
	}
	return domain.Event{}, domain.ErrNotFound
}

type fakeNotifier struct {
	mu        sync.Mutex
	published []domain.StreamLocator
}

func (f *fakeNotifier) PublishLocatorStatus(loc domain.StreamLocator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, loc)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func (f *fakeNotifier) last() domain.StreamLocator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[len(f.published)-1]
}

type fakeFileServer struct {
	id       string
	hostname string
	accepts  func(string) bool
	resolved string
	interval time.Duration
}

func (f *fakeFileServer) ID() string       { return f.id }
func (f *fakeFileServer) Hostname() string { return f.hostname }

func (f *fakeFileServer) Accepts(externalURL string) bool {
	if f.accepts == nil {
		return true
	}
	return f.accepts(externalURL)
}

func (f *fakeFileServer) ResolveDownloadURL(ctx context.Context, externalURL string) (string, error) {
	return f.resolved, nil
}

func (f *fakeFileServer) RefreshInterval() time.Duration { return f.interval }

type fakeResolver struct {
	servers    []*fakeFileServer
	refreshErr error
	refreshed  int
}

func (f *fakeResolver) EnabledServerFor(externalURL string) (ports.FileServer, bool) {
	for _, srv := range f.servers {
		if srv.Accepts(externalURL) {
			return srv, true
		}
	}
	return nil, false
}

func (f *fakeResolver) ListEnabled() []ports.FileServer {
	out := make([]ports.FileServer, len(f.servers))
	for i, srv := range f.servers {
		out[i] = srv
	}
	return out
}

func (f *fakeResolver) Refresh(ctx context.Context, part domain.Part) (domain.Part, error) {
	f.refreshed++
	if f.refreshErr != nil {
		return domain.Part{}, f.refreshErr
	}
	srv, ok := f.EnabledServerFor(part.ExternalURL)
	if !ok {
		return domain.Part{}, domain.ErrNotFound
	}
	url, err := srv.ResolveDownloadURL(ctx, part.ExternalURL)
	if err != nil {
		return domain.Part{}, err
	}
	part.InternalURL = url
	part.LastRefreshed = time.Now()
	return part, nil
}

// fakeJob scripts one transcode process: callers feed lines and an exit
// error, the job replays them.
type fakeJob struct {
	lines    []string
	exitErr  error
	startErr error

	started  bool
	stops    int
	mu       sync.Mutex
	doneCh   chan struct{}
	doneOnce sync.Once
}

func newFakeJob(lines []string, exitErr error) *fakeJob {
	return &fakeJob{lines: lines, exitErr: exitErr, doneCh: make(chan struct{})}
}

func (j *fakeJob) Start() error {
	if j.startErr != nil {
		return j.startErr
	}
	j.started = true
	return nil
}

func (j *fakeJob) Lines() <-chan string {
	ch := make(chan string)
	go func() {
		for _, line := range j.lines {
			ch <- line
		}
		close(ch)
		j.doneOnce.Do(func() { close(j.doneCh) })
	}()
	return ch
}

func (j *fakeJob) Done() <-chan struct{} { return j.doneCh }

func (j *fakeJob) Err() error { return j.exitErr }

func (j *fakeJob) Stop() {
	j.mu.Lock()
	j.stops++
	j.mu.Unlock()
	j.doneOnce.Do(func() { close(j.doneCh) })
}

func (j *fakeJob) Stopped() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stops > 0
}

type fakeTranscoder struct {
	mu   sync.Mutex
	jobs map[string]*fakeJob

	nextJob *fakeJob
	jobErr  error
}

func newFakeTranscoder() *fakeTranscoder {
	return &fakeTranscoder{jobs: make(map[string]*fakeJob)}
}

func (t *fakeTranscoder) StreamJob(inputURL, playlistPath string) (ports.TranscodeJob, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.jobErr != nil {
		return nil, t.jobErr
	}
	job := t.nextJob
	if job == nil {
		job = newFakeJob(nil, nil)
	}
	t.jobs[playlistPath] = job
	return job, nil
}

func (t *fakeTranscoder) Interrupt(playlistPath string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[playlistPath]
	if !ok {
		return false
	}
	delete(t.jobs, playlistPath)
	job.Stop()
	return true
}

func (t *fakeTranscoder) InterruptAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.jobs)
	for path, job := range t.jobs {
		job.Stop()
		delete(t.jobs, path)
	}
	return n
}

func (t *fakeTranscoder) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

type fakePingCache struct {
	mu   sync.Mutex
	rtts map[string]time.Duration
}

func newFakePingCache() *fakePingCache {
	return &fakePingCache{rtts: make(map[string]time.Duration)}
}

func (f *fakePingCache) Get(ctx context.Context, host string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rtt, ok := f.rtts[host]
	return rtt, ok
}

func (f *fakePingCache) Set(ctx context.Context, host string, rtt time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rtts[host] = rtt
}
