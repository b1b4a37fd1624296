package usecase

import (
	"sync"

	"matchcast/internal/domain"
	"matchcast/internal/domain/ports"
)

// JobRegistry maps live transcoding jobs to the locator they serve. It is
// the orchestrator's in-memory view; the registry and the job table of the
// transcoder must agree, so both are driven from the same code paths.
type JobRegistry struct {
	mu   sync.Mutex
	jobs map[domain.LocatorID]ports.TranscodeJob
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[domain.LocatorID]ports.TranscodeJob)}
}

func (r *JobRegistry) Put(id domain.LocatorID, job ports.TranscodeJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = job
}

func (r *JobRegistry) Get(id domain.LocatorID) (ports.TranscodeJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	return job, ok
}

func (r *JobRegistry) Remove(id domain.LocatorID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

func (r *JobRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// IDs snapshots the locator IDs with a live job.
func (r *JobRegistry) IDs() []domain.LocatorID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]domain.LocatorID, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	return ids
}
