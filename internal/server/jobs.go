package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snapetech/skyclip/internal/assemble"
	"github.com/snapetech/skyclip/internal/materializer"
	"github.com/snapetech/skyclip/internal/pipeline"
)

// eventPayload is the JSON body of one SSE message.
type eventPayload struct {
	Stage    pipeline.Stage `json:"stage"`
	Status   string         `json:"status"`
	Progress float64        `json:"progress"`
	Error    string         `json:"error,omitempty"`
	Filename string         `json:"filename,omitempty"`
	Size     int64          `json:"size,omitempty"`
	Location string         `json:"location,omitempty"`
	Time     time.Time      `json:"time"`
}

type jobEvent struct {
	Kind    pipeline.EventKind
	Payload eventPayload
}

// Job is one download tracked by the server.
type Job struct {
	ID        string
	PostURL   string
	Format    assemble.Format
	CreatedAt time.Time

	task *pipeline.Task

	mu         sync.Mutex
	stage      pipeline.Stage
	status     string
	progress   float64
	err        error
	result     *pipeline.Result
	location   string
	finishedAt time.Time
	history    []jobEvent
	changed    chan struct{}
}

// Snapshot is the JSON view of a job.
type Snapshot struct {
	ID          string         `json:"id"`
	URL         string         `json:"url"`
	Format      string         `json:"format"`
	Stage       pipeline.Stage `json:"stage"`
	Status      string         `json:"status"`
	Progress    float64        `json:"progress"`
	Error       string         `json:"error,omitempty"`
	Filename    string         `json:"filename,omitempty"`
	ContentType string         `json:"content_type,omitempty"`
	Size        int64          `json:"size,omitempty"`
	Segments    int            `json:"segments,omitempty"`
	Container   string         `json:"container,omitempty"`
	Location    string         `json:"location,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
}

func newJob(postURL string, format assemble.Format, now time.Time) *Job {
	return &Job{
		ID:        uuid.NewString(),
		PostURL:   postURL,
		Format:    format,
		CreatedAt: now,
		stage:     pipeline.StageIdle,
		status:    pipeline.StageIdle.Status(),
		changed:   make(chan struct{}),
	}
}

// notifyLocked wakes every watcher. j.mu must be held.
func (j *Job) notifyLocked() {
	close(j.changed)
	j.changed = make(chan struct{})
}

func (j *Job) record(e pipeline.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stage, j.status = e.Stage, e.Status
	if e.Kind == pipeline.EventProgress {
		j.progress = e.Progress
	}
	j.history = append(j.history, jobEvent{Kind: e.Kind, Payload: eventPayload{
		Stage: e.Stage, Status: e.Status, Progress: j.progress, Time: e.Time,
	}})
	j.notifyLocked()
}

func (j *Job) finish(res *pipeline.Result, location string, err error, now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result, j.location, j.err, j.finishedAt = res, location, err, now
	ev := jobEvent{Payload: eventPayload{Time: now, Progress: j.progress}}
	if err != nil {
		j.stage, j.status = pipeline.StageFailed, err.Error()
		ev.Kind = pipeline.EventError
		ev.Payload.Error = err.Error()
	} else {
		j.stage, j.status, j.progress = pipeline.StageComplete, pipeline.StageComplete.Status(), 1
		ev.Kind = pipeline.EventDone
		ev.Payload.Progress = 1
		ev.Payload.Filename = res.Filename
		ev.Payload.Size = res.Video.Size()
		ev.Payload.Location = location
	}
	ev.Payload.Stage, ev.Payload.Status = j.stage, j.status
	j.history = append(j.history, ev)
	j.notifyLocked()
}

// since returns the events after the first n, a channel closed on the next
// change, and whether the job has finished.
func (j *Job) since(n int) ([]jobEvent, <-chan struct{}, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []jobEvent
	if n < len(j.history) {
		out = append(out, j.history[n:]...)
	}
	return out, j.changed, !j.finishedAt.IsZero()
}

// Result returns the finished result, or nil while running or after failure.
func (j *Job) Result() *pipeline.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return nil
	}
	return j.result
}

// Finished reports whether the job has ended and when.
func (j *Job) Finished() (time.Time, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finishedAt, !j.finishedAt.IsZero()
}

// Snapshot copies the current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := Snapshot{
		ID:        j.ID,
		URL:       j.PostURL,
		Format:    string(j.Format),
		Stage:     j.stage,
		Status:    j.status,
		Progress:  j.progress,
		Location:  j.location,
		CreatedAt: j.CreatedAt,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	if j.result != nil && j.err == nil {
		s.Filename = j.result.Filename
		s.ContentType = j.result.Video.ContentType()
		s.Size = j.result.Video.Size()
		s.Segments = len(j.result.Video.Chunks)
		s.Container = j.result.Container.Container.String()
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// Cancel stops a running job.
func (j *Job) Cancel() {
	if j.task != nil {
		j.task.Cancel()
	}
}

// watch follows the task to the end, then stores the video when store is set.
func (j *Job) watch(store materializer.Interface, now func() time.Time) {
	for e := range j.task.Events() {
		if e.Kind == pipeline.EventStatus || e.Kind == pipeline.EventProgress {
			j.record(e)
		}
	}
	res, err := j.task.Wait()
	var location string
	if err == nil && store != nil {
		location, err = store.Materialize(context.Background(), res.Video, res.Filename)
		if err != nil {
			log.Printf("server: store failed job=%s file=%q err=%v", j.ID, res.Filename, err)
		}
	}
	j.finish(res, location, err, now())
}

// Registry holds jobs in memory. Finished jobs are dropped after ttl or once
// their file has been collected.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{jobs: make(map[string]*Job), ttl: ttl, now: time.Now}
}

func (r *Registry) Add(j *Job) {
	r.mu.Lock()
	r.jobs[j.ID] = j
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Sweep drops jobs finished more than ttl ago and returns how many went.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, j := range r.jobs {
		if at, done := j.Finished(); done && at.Before(cutoff) {
			delete(r.jobs, id)
			n++
		}
	}
	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				log.Printf("server: expired jobs=%d remaining=%d", n, r.Len())
			}
		}
	}
}
