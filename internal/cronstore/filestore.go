package cronstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// FileStore is a durable Store rooted at the directory passed to
// NewFileStore (for NewFromDSN, the path of a "file://" DSN); it does not
// derive its location from the manager's workspace. Each job is one JSON
// file under jobs/<id>.json; executions are appended as JSON lines to
// executions/<job_id>.jsonl. A process-wide mutex serializes in-process
// access and a gofrs/flock file lock serializes cross-process writes
// (reads do not take the file lock), mirroring the teacher's PID-file
// locking idiom repurposed for job-table safety.
type FileStore struct {
	mu           sync.Mutex
	root         string
	lock         *flock.Flock
	historyLimit int
}

// NewFileStore creates (if needed) the on-disk layout under root and returns
// a ready FileStore. historyLimit<=0 uses cronmodel.DefaultHistoryLimit.
func NewFileStore(root string, historyLimit int) (*FileStore, error) {
	if historyLimit <= 0 {
		historyLimit = cronmodel.DefaultHistoryLimit
	}
	jobsDir := filepath.Join(root, "jobs")
	execDir := filepath.Join(root, "executions")
	if err := os.MkdirAll(jobsDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	if err := os.MkdirAll(execDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s", cronmodel.ErrStorageError, err)
	}
	fs := &FileStore{
		root:         root,
		lock:         flock.New(filepath.Join(root, ".cronsched.lock")),
		historyLimit: historyLimit,
	}
	return fs, nil
}

func (s *FileStore) jobPath(id string) string  { return filepath.Join(s.root, "jobs", id+".json") }
func (s *FileStore) execPath(id string) string { return filepath.Join(s.root, "executions", id+".jsonl") }

func (s *FileStore) withLock(fn func() error) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("%w: acquiring file lock: %s", cronmodel.ErrStorageError, err)
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

func (s *FileStore) SaveJob(_ context.Context, job *cronmodel.CronJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withLock(func() error {
		if existing, err := s.findJobByNameLocked(job.Name); err == nil && existing != nil && existing.ID != job.ID {
			return fmt.Errorf("%w: name %q", cronmodel.ErrJobExists, job.Name)
		}
		b, err := json.MarshalIndent(job, "", "  ")
		if err != nil {
			return fmt.Errorf("%w: marshal job: %s", cronmodel.ErrStorageError, err)
		}
		if err := os.WriteFile(s.jobPath(job.ID), b, 0o644); err != nil {
			return fmt.Errorf("%w: write job: %s", cronmodel.ErrStorageError, err)
		}
		return nil
	})
}

func (s *FileStore) LoadJob(_ context.Context, id string) (*cronmodel.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadJobLocked(id)
}

func (s *FileStore) loadJobLocked(id string) (*cronmodel.CronJob, error) {
	b, err := os.ReadFile(s.jobPath(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read job: %s", cronmodel.ErrStorageError, err)
	}
	var job cronmodel.CronJob
	if err := json.Unmarshal(b, &job); err != nil {
		return nil, fmt.Errorf("%w: unmarshal job: %s", cronmodel.ErrStorageError, err)
	}
	return &job, nil
}

func (s *FileStore) FindJobByName(_ context.Context, name string) (*cronmodel.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findJobByNameLocked(name)
}

func (s *FileStore) findJobByNameLocked(name string) (*cronmodel.CronJob, error) {
	jobs, err := s.listJobsLocked()
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.Name == name {
			return j, nil
		}
	}
	return nil, nil
}

func (s *FileStore) ListJobs(_ context.Context) ([]*cronmodel.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listJobsLocked()
}

func (s *FileStore) listJobsLocked() ([]*cronmodel.CronJob, error) {
	dir := filepath.Join(s.root, "jobs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list jobs: %s", cronmodel.ErrStorageError, err)
	}
	out := make([]*cronmodel.CronJob, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		job, err := s.loadJobLocked(id)
		if err != nil {
			return nil, err
		}
		if job != nil {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func (s *FileStore) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withLock(func() error {
		job, err := s.loadJobLocked(id)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("%w: %s", cronmodel.ErrJobNotFound, id)
		}
		if err := os.Remove(s.jobPath(id)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: delete job: %s", cronmodel.ErrStorageError, err)
		}
		if err := os.Remove(s.execPath(id)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: delete executions: %s", cronmodel.ErrStorageError, err)
		}
		return nil
	})
}

func (s *FileStore) SaveExecution(_ context.Context, exec *cronmodel.JobExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withLock(func() error {
		f, err := os.OpenFile(s.execPath(exec.JobID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("%w: open executions: %s", cronmodel.ErrStorageError, err)
		}
		defer func() { _ = f.Close() }()
		b, err := json.Marshal(exec)
		if err != nil {
			return fmt.Errorf("%w: marshal execution: %s", cronmodel.ErrStorageError, err)
		}
		if _, err := f.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("%w: write execution: %s", cronmodel.ErrStorageError, err)
		}
		return s.trimExecutionsLocked(exec.JobID)
	})
}

// trimExecutionsLocked rewrites the per-job execution log to the configured
// history limit, keeping the newest entries. Called while holding s.mu and
// the file lock.
func (s *FileStore) trimExecutionsLocked(jobID string) error {
	all, err := s.readExecutionsLocked(jobID)
	if err != nil {
		return err
	}
	if len(all) <= s.historyLimit {
		return nil
	}
	all = all[len(all)-s.historyLimit:]
	f, err := os.Create(s.execPath(jobID))
	if err != nil {
		return fmt.Errorf("%w: rewrite executions: %s", cronmodel.ErrStorageError, err)
	}
	defer func() { _ = f.Close() }()
	for _, e := range all {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("%w: marshal execution: %s", cronmodel.ErrStorageError, err)
		}
		if _, err := f.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("%w: write execution: %s", cronmodel.ErrStorageError, err)
		}
	}
	return nil
}

func (s *FileStore) LoadExecutions(_ context.Context, jobID string, limit int) ([]*cronmodel.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.readExecutionsLocked(jobID)
	if err != nil {
		return nil, err
	}
	out := make([]*cronmodel.JobExecution, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *FileStore) readExecutionsLocked(jobID string) ([]*cronmodel.JobExecution, error) {
	f, err := os.Open(s.execPath(jobID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open executions: %s", cronmodel.ErrStorageError, err)
	}
	defer func() { _ = f.Close() }()

	var out []*cronmodel.JobExecution
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var exec cronmodel.JobExecution
		if err := json.Unmarshal(line, &exec); err != nil {
			return nil, fmt.Errorf("%w: unmarshal execution: %s", cronmodel.ErrStorageError, err)
		}
		out = append(out, &exec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan executions: %s", cronmodel.ErrStorageError, err)
	}
	return out, nil
}

func (s *FileStore) Close() error { return nil }
