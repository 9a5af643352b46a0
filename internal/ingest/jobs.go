package ingest

import (
	"sync"
	"time"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusSegmenting JobStatus = "segmenting"
	StatusChunking   JobStatus = "chunking"
	StatusEmbedding  JobStatus = "embedding"
	StatusIndexing   JobStatus = "indexing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single paper ingestion.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	PaperID string `json:"paper_id"`
	GroupID string `json:"group_id,omitempty"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	filePath string
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalPages    int      `json:"total_pages"`
	TotalChunks   int      `json:"total_chunks"`
	ChunksIndexed int      `json:"chunks_indexed"`
	Errors        []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetTitle records the extracted title.
func (j *Job) SetTitle(title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Title = title
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTotals records page and chunk counts.
func (j *Job) SetTotals(pages, chunks int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalPages = pages
	j.Progress.TotalChunks = chunks
	j.UpdatedAt = time.Now()
}

// AddChunksIndexed advances the indexed-chunk counter.
func (j *Job) AddChunksIndexed(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksIndexed += n
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw upload bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw upload bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetFilePath records where the upload was saved on disk.
func (j *Job) SetFilePath(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.filePath = path
}

// FilePath returns the saved upload path.
func (j *Job) FilePath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.filePath
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string    `json:"job_id"`
	PaperID  string    `json:"paper_id"`
	GroupID  string    `json:"group_id,omitempty"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Progress Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:       j.ID,
		PaperID:  j.PaperID,
		GroupID:  j.GroupID,
		Status:   j.Status,
		Phase:    j.Phase,
		Filename: j.Filename,
		Title:    j.Title,
		Progress: Progress{
			TotalPages:    j.Progress.TotalPages,
			TotalChunks:   j.Progress.TotalChunks,
			ChunksIndexed: j.Progress.ChunksIndexed,
			Errors:        errs,
		},
	}
}
