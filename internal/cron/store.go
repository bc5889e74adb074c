package cron

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mira-ai/sentinel/pkg/models"
)

// document is the persisted shape described in spec.md §6: a version
// tag plus the job list. Next-run timestamps are not trusted from
// disk — Load recomputes them against the current clock.
type document struct {
	Version int               `json:"version"`
	Jobs    []models.CronJob  `json:"jobs"`
}

const documentVersion = 1

// JobStore round-trips the cron job collection losslessly.
type JobStore interface {
	Load() ([]models.CronJob, error)
	Save(jobs []models.CronJob) error
}

// FileJobStore persists the job document as a single JSON file,
// written with a temp-file-then-rename, matching the session store's
// atomic-write convention.
type FileJobStore struct {
	path string
	mu   sync.Mutex
}

// NewFileJobStore constructs a FileJobStore backed by path.
func NewFileJobStore(path string) *FileJobStore {
	return &FileJobStore{path: path}
}

// Load reads the job document, recomputing each job's NextRun from
// its expression against the current time. A missing file loads as
// an empty job list.
func (f *FileJobStore) Load() ([]models.CronJob, error) {
	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	f.mu.Unlock()
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cron: read job store: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cron: decode job store: %w", err)
	}

	now := time.Now()
	for i := range doc.Jobs {
		job := &doc.Jobs[i]
		if !job.Enabled {
			continue
		}
		next, err := Next(job.Expression, now)
		if err != nil {
			job.Enabled = false
			continue
		}
		job.NextRun = next
	}
	return doc.Jobs, nil
}

// Save writes jobs to disk atomically.
func (f *FileJobStore) Save(jobs []models.CronJob) error {
	doc := document{Version: documentVersion, Jobs: jobs}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("cron: encode job store: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cron: create job store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "cron-jobs.tmp-*")
	if err != nil {
		return fmt.Errorf("cron: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cron: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cron: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cron: rename into place: %w", err)
	}
	return nil
}

// RunLogStore keeps the run-log history for executed jobs. A bounded
// MemoryRunLogStore is the only implementation required in-core; a
// durable store is an external collaborator's concern.
type RunLogStore interface {
	Append(log models.RunLog) error
	Update(log models.RunLog) error
	ListByJob(jobID string, limit int) ([]models.RunLog, error)
}

// MemoryRunLogStore keeps run logs in memory, capped at maxPerJob
// entries per job (oldest dropped first).
type MemoryRunLogStore struct {
	maxPerJob int

	mu   sync.Mutex
	byID map[string]int // log id -> index within logs[jobID]
	logs map[string][]models.RunLog
}

// NewMemoryRunLogStore constructs a store retaining up to maxPerJob
// run logs per job id (0 means unbounded).
func NewMemoryRunLogStore(maxPerJob int) *MemoryRunLogStore {
	return &MemoryRunLogStore{
		maxPerJob: maxPerJob,
		byID:      make(map[string]int),
		logs:      make(map[string][]models.RunLog),
	}
}

// Append records a new run log.
func (s *MemoryRunLogStore) Append(log models.RunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[log.JobID] = append(s.logs[log.JobID], log)
	if s.maxPerJob > 0 && len(s.logs[log.JobID]) > s.maxPerJob {
		s.logs[log.JobID] = s.logs[log.JobID][len(s.logs[log.JobID])-s.maxPerJob:]
	}
	return nil
}

// Update overwrites the run log sharing log.ID for the same job, if
// present; otherwise it is a no-op.
func (s *MemoryRunLogStore) Update(log models.RunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.logs[log.JobID]
	for i := range entries {
		if entries[i].ID == log.ID {
			entries[i] = log
			return nil
		}
	}
	return nil
}

// ListByJob returns the most recent run logs for jobID, newest last,
// capped at limit (0 means unbounded).
func (s *MemoryRunLogStore) ListByJob(jobID string, limit int) ([]models.RunLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.logs[jobID]
	if limit > 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}
	out := make([]models.RunLog, len(entries))
	copy(out, entries)
	return out, nil
}
