package domain

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobStreaming JobStatus = "streaming"
	JobCompleted JobStatus = "completed"
	JobError     JobStatus = "error"
	JobStopped   JobStatus = "stopped"
)

// Terminal reports whether no further progress updates are expected.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobError, JobStopped:
		return true
	}
	return false
}

// StepsToComplete is the ordinal distance from the current status to
// JobCompleted on the queued -> streaming -> completed ladder.
func (s JobStatus) StepsToComplete() int {
	switch s {
	case JobQueued:
		return 2
	case JobStreaming:
		return 1
	default:
		return 0
	}
}

// JobState is the observable state of one transcoding job, or the reduced
// state of a whole locator playlist.
type JobState struct {
	Status          JobStatus `json:"status"`
	CompletionRatio float64   `json:"completionRatio"`
	Error           string    `json:"error,omitempty"`
}

// ReduceStates collapses member states into one aggregate state:
// completed iff every member completed; error if any member errored;
// otherwise streaming if any member is streaming, else queued.
// The aggregate ratio is the mean of member ratios, clamped to [0,1].
func ReduceStates(states []JobState) JobState {
	if len(states) == 0 {
		return JobState{Status: JobQueued}
	}

	var (
		sum       float64
		errDetail string
		completed = true
		anyError  bool
		streaming bool
	)
	for _, st := range states {
		sum += clampRatio(st.CompletionRatio)
		if st.Status != JobCompleted {
			completed = false
		}
		if st.Status == JobError {
			anyError = true
			if errDetail == "" {
				errDetail = st.Error
			}
		}
		if st.Status == JobStreaming {
			streaming = true
		}
	}

	reduced := JobState{CompletionRatio: clampRatio(sum / float64(len(states)))}
	switch {
	case completed:
		reduced.Status = JobCompleted
	case anyError:
		reduced.Status = JobError
		reduced.Error = errDetail
	case streaming:
		reduced.Status = JobStreaming
	default:
		reduced.Status = JobQueued
	}
	return reduced
}

func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
