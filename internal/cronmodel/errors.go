package cronmodel

import "errors"

// Error kinds surfaced by the manager's public API. Callers classify with
// errors.Is; dynamic detail is attached via fmt.Errorf("%w: ...", ErrX).
var (
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrJobNotFound     = errors.New("job not found")
	ErrJobExists       = errors.New("job already exists")
	ErrStorageError    = errors.New("storage error")
	ErrInternal        = errors.New("internal error")
)
