package pipeline

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Stage names, used in logs and on Lead.Degraded.
const (
	StageAcquire  = "acquire"
	StageExtract  = "extract"
	StageAnalysis = "analysis"
	StageScore    = "score"
	StageOutreach = "outreach"
	StagePersist  = "persist"
	StageNotify   = "notify"
)

// DegradedError records a stage that failed and was replaced by its
// fallback. It is logged and summarized on the lead, never returned.
type DegradedError struct {
	Stage string
	Err   error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("pipeline: %s degraded: %v", e.Stage, e.Err)
}

func (e *DegradedError) Unwrap() error { return e.Err }

// PersistenceError is returned when the assembled lead could not be stored.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("pipeline: persist lead: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

var (
	// ErrNoURLs is returned by Bulk when no non-blank URL was submitted.
	ErrNoURLs = eris.New("pipeline: no URLs submitted")
	// ErrOwnerRequired is returned when a run has no owning user.
	ErrOwnerRequired = eris.New("pipeline: owner is required")
)

// TooManyURLsError is returned by Bulk when the submission exceeds the limit.
type TooManyURLsError struct {
	Count, Max int
}

func (e *TooManyURLsError) Error() string {
	return fmt.Sprintf("pipeline: %d URLs submitted, at most %d allowed", e.Count, e.Max)
}
