package cronmgr

import (
	"io"

	"github.com/loykin/cronsched/internal/env"
)

// mergeEnv composes the child process environment as process env + jobEnv,
// with jobEnv winning on conflicts, per spec §4.5 step 4. jobEnv is applied
// as env.Env globals so process env + job env follow the same base ->
// globals composition order and ${VAR} expansion the teacher's Env.Merge
// already provides.
func mergeEnv(jobEnv map[string]string) []string {
	e := env.New()
	for k, v := range jobEnv {
		e = e.WithSet(k, v)
	}
	return e.Merge(nil)
}

// newMultiWriteCloser tees writes to an in-memory buffer and a rotating
// capture file.
func newMultiWriteCloser(buf io.Writer, capture io.WriteCloser) io.Writer {
	return io.MultiWriter(buf, capture)
}
