// Package clickhouse implements a cronsink.Sink that writes completed
// executions to ClickHouse via its HTTP interface, adapted from the
// teacher's internal/history/clickhouse.go (JSONEachRow insert idiom).
package clickhouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// Sink posts one JSON line per execution via ClickHouse's HTTP insert
// endpoint using the JSONEachRow format.
type Sink struct {
	client *http.Client
	base   string
	table  string
}

// New returns a Sink targeting baseURL (e.g. "http://localhost:8123") and
// table (defaults to "cron_execution_history" when empty).
func New(baseURL, table string) (*Sink, error) {
	if table == "" {
		table = "cron_execution_history"
	}
	return &Sink{
		client: &http.Client{Timeout: 5 * time.Second},
		base:   strings.TrimRight(baseURL, "/"),
		table:  table,
	}, nil
}

type row struct {
	JobID       string `json:"job_id"`
	JobName     string `json:"job_name"`
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at"`
	ExitCode    int    `json:"exit_code"`
	Stdout      string `json:"stdout"`
	Stderr      string `json:"stderr"`
	Error       string `json:"error"`
}

func (s *Sink) Send(ctx context.Context, job *cronmodel.CronJob, exec *cronmodel.JobExecution) error {
	r := row{
		JobID:       job.ID,
		JobName:     job.Name,
		ExecutionID: exec.ID,
		Status:      string(exec.Status),
		StartedAt:   exec.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:  exec.FinishedAt.UTC().Format(time.RFC3339),
		ExitCode:    exec.ExitCode,
		Stdout:      exec.Stdout,
		Stderr:      exec.Stderr,
		Error:       exec.Error,
	}
	line, err := json.Marshal(r)
	if err != nil {
		return err
	}

	u, err := url.Parse(s.base)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("query", fmt.Sprintf("INSERT INTO %s FORMAT JSONEachRow", s.table))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(append(line, '\n')))
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
		return fmt.Errorf("clickhouse sink status %d", resp.StatusCode)
	}
	return nil
}

func (s *Sink) Close() error { return nil }
