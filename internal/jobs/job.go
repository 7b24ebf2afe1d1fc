// Package jobs runs normalization jobs in the background and tracks their
// lifecycle. Each job moves submitted -> processing -> completed or failed;
// only the job's own goroutine advances it.
package jobs

import (
	"github.com/agentstation/utc"

	"github.com/pb40development/ifc-normalizer/pkg/report"
)

// State is the lifecycle state of a job.
type State string

const (
	// StateSubmitted means the job is accepted but not yet running.
	StateSubmitted State = "submitted"
	// StateProcessing means the job's goroutine is running.
	StateProcessing State = "processing"
	// StateCompleted means the job finished and its results are available.
	StateCompleted State = "completed"
	// StateFailed means the job finished with an error.
	StateFailed State = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Status is a point-in-time snapshot of a job, safe to hand out.
type Status struct {
	ID          string    `json:"jobId"`
	State       State     `json:"status"`
	FileName    string    `json:"fileName"`
	SizeBytes   int       `json:"fileSize"`
	SubmittedAt utc.Time  `json:"submittedAt"`
	StartedAt   *utc.Time `json:"startedAt,omitempty"`
	CompletedAt *utc.Time `json:"completedAt,omitempty"`
	Error       string    `json:"error,omitempty"`
	Walls       int       `json:"walls,omitempty"`
	Changes     int       `json:"changes,omitempty"`
}

// Result holds the artifacts of a completed job.
type Result struct {
	Output []byte
	Report *report.Full
}

// job is the registry's internal record. Fields past the identity block
// are written only by the job's goroutine and read under the registry
// lock.
type job struct {
	id          string
	fileName    string
	sizeBytes   int
	input       []byte
	state       State
	submittedAt utc.Time
	startedAt   *utc.Time
	completedAt *utc.Time
	err         error
	output      []byte
	report      *report.Full
}

func (j *job) snapshot() Status {
	s := Status{
		ID:          j.id,
		State:       j.state,
		FileName:    j.fileName,
		SizeBytes:   j.sizeBytes,
		SubmittedAt: j.submittedAt,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	if j.report != nil {
		s.Walls = j.report.Analysis.Walls
		s.Changes = j.report.Analysis.TotalChanges
	}
	return s
}
