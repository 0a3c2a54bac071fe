// Package opensearch implements a cronsink.Sink that writes completed
// executions to OpenSearch via its document HTTP API, adapted from the
// teacher's internal/history/opensearch.go. No dedicated OpenSearch client
// library is present anywhere in the example corpus — the teacher's own
// sink is hand-rolled net/http too — so this stays on net/http as well.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// Sink POSTs one JSON document per execution to <baseURL>/<index>/_doc.
type Sink struct {
	client  *http.Client
	baseURL string
	index   string
}

// New returns a Sink targeting baseURL and index (defaults to
// "cron-execution-history" when empty).
func New(baseURL, index string) *Sink {
	if index == "" {
		index = "cron-execution-history"
	}
	return &Sink{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		index:   index,
	}
}

type document struct {
	JobID       string    `json:"job_id"`
	JobName     string    `json:"job_name"`
	ExecutionID string    `json:"execution_id"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	ExitCode    int       `json:"exit_code"`
	Stdout      string    `json:"stdout"`
	Stderr      string    `json:"stderr"`
	Error       string    `json:"error,omitempty"`
}

func (s *Sink) Send(ctx context.Context, job *cronmodel.CronJob, exec *cronmodel.JobExecution) error {
	doc := document{
		JobID:       job.ID,
		JobName:     job.Name,
		ExecutionID: exec.ID,
		Status:      string(exec.Status),
		StartedAt:   exec.StartedAt.UTC(),
		FinishedAt:  exec.FinishedAt.UTC(),
		ExitCode:    exec.ExitCode,
		Stdout:      exec.Stdout,
		Stderr:      exec.Stderr,
		Error:       exec.Error,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/%s/_doc", s.baseURL, s.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("opensearch sink status %d", resp.StatusCode)
	}
	return nil
}

func (s *Sink) Close() error { return nil }
