package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/pb40development/ifc-normalizer/pkg/errors"
	"github.com/pb40development/ifc-normalizer/pkg/ifc"
	"github.com/pb40development/ifc-normalizer/pkg/logging"
	"github.com/pb40development/ifc-normalizer/pkg/report"
)

// DefaultJobTimeout bounds a single job's processing time.
const DefaultJobTimeout = 10 * time.Minute

// ProcessFunc turns an uploaded document into the normalized output and
// its report.
type ProcessFunc func(ctx context.Context, fileName string, input []byte) ([]byte, *report.Full, error)

// Registry tracks jobs and runs them in the background.
type Registry struct {
	process ProcessFunc
	timeout time.Duration

	mu   sync.RWMutex
	jobs map[string]*job

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures the registry.
type Option func(*Registry)

// WithJobTimeout bounds each job's processing time.
func WithJobTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRegistry creates a registry that processes jobs with the given
// function.
func NewRegistry(process ProcessFunc, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		process: process,
		timeout: DefaultJobTimeout,
		jobs:    make(map[string]*job),
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit validates the upload, registers a job and starts processing it in
// the background. Returns the new job ID.
func (r *Registry) Submit(ctx context.Context, fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.NewValidationError("ifcFile", fileName, "uploaded file is empty")
	}
	if !ifc.LooksLikeIFC(data) {
		return "", errors.NewValidationError("ifcFile", fileName, "uploaded file is not a STEP/IFC document")
	}

	j := &job{
		id:          uuid.NewString(),
		fileName:    fileName,
		sizeBytes:   len(data),
		input:       data,
		state:       StateSubmitted,
		submittedAt: utc.Now(),
	}

	r.mu.Lock()
	r.jobs[j.id] = j
	r.mu.Unlock()

	logging.FromContext(ctx).Info().
		Str("job_id", j.id).
		Str("file", fileName).
		Int("bytes", len(data)).
		Msg("Job submitted")

	r.wg.Add(1)
	go r.run(j.id)

	return j.id, nil
}

// run executes one job. It is the only writer of the job's mutable fields;
// the registry lock makes the writes visible to Status and Result readers.
func (r *Registry) run(id string) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(r.baseCtx, r.timeout)
	defer cancel()
	ctx = logging.WithJobID(ctx, id)
	logger := logging.FromContext(ctx)

	r.mu.Lock()
	j, ok := r.jobs[id]
	if !ok {
		// Deleted before the goroutine started.
		r.mu.Unlock()
		return
	}
	started := utc.Now()
	j.state = StateProcessing
	j.startedAt = &started
	fileName, input := j.fileName, j.input
	r.mu.Unlock()

	output, full, err := r.process(ctx, fileName, input)

	done := utc.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return
	}
	j.completedAt = &done
	j.input = nil
	if err != nil {
		j.state = StateFailed
		j.err = &errors.JobError{JobID: id, Message: err.Error(), Err: err}
		logger.Error().Err(err).Msg("Job failed")
		return
	}
	j.state = StateCompleted
	j.output = output
	j.report = full
	logger.Info().
		Int("changes", full.Analysis.TotalChanges).
		Msg("Job completed")
}

// Status returns a snapshot of the job's current state.
func (r *Registry) Status(id string) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return Status{}, errors.ErrNotFound
	}
	return j.snapshot(), nil
}

// Result returns a completed job's artifacts. ErrNotReady is returned
// while the job is still running; a failed job returns its error.
func (r *Registry) Result(id string) (*Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	switch j.state {
	case StateCompleted:
		return &Result{Output: j.output, Report: j.report}, nil
	case StateFailed:
		return nil, j.err
	default:
		return nil, errors.ErrNotReady
	}
}

// Delete removes a job and its artifacts.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return errors.ErrNotFound
	}
	delete(r.jobs, id)
	return nil
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Shutdown cancels running jobs and waits for their goroutines, bounded by
// the given context.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
