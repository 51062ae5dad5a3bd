package core

import "fmt"

// NotFoundError represents a resource that could not be found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound checks if an error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*NotFoundError)
	return ok
}

// ValidationError marks a record as quarantined; the batch continues.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NormalizationError is raised for a null/empty name; treated as a ValidationError by callers.
type NormalizationError struct {
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization failed: %s", e.Reason)
}

// MatchUncertain signals a fuzzy score landed in the review band. The caller
// records the team partial/failed and creates a ReviewEntry; the batch continues.
type MatchUncertain struct {
	ProviderTeamID string
	Score          float64
}

func (e *MatchUncertain) Error() string {
	return fmt.Sprintf("match uncertain for %s (score=%.4f)", e.ProviderTeamID, e.Score)
}

// TransientStorageError wraps a retryable network/rate-limit failure. Callers
// retry with jittered exponential backoff and refresh the storage handle,
// escalating to BatchFailure after K attempts.
type TransientStorageError struct {
	Attempt int
	Err     error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("transient storage error (attempt %d): %v", e.Attempt, e.Err)
}

func (e *TransientStorageError) Unwrap() error { return e.Err }

// BatchFailure records that a batch exhausted its retry budget; the
// ingestion run reports it but does not abort.
type BatchFailure struct {
	BatchIndex int
	Err        error
}

func (e *BatchFailure) Error() string {
	return fmt.Sprintf("batch %d failed: %v", e.BatchIndex, e.Err)
}

func (e *BatchFailure) Unwrap() error { return e.Err }

// RankingConvergenceWarning is non-fatal: the last iteration's values are
// emitted with this flag rather than discarding the run.
type RankingConvergenceWarning struct {
	Iterations int
	MaxDelta   float64
}

func (e *RankingConvergenceWarning) Error() string {
	return fmt.Sprintf("ranking did not converge after %d iterations (max delta %.6f)", e.Iterations, e.MaxDelta)
}

// FatalConfigError marks a missing/invalid enumerated config option; the
// process aborts before any work begins.
type FatalConfigError struct {
	Key    string
	Reason string
}

func (e *FatalConfigError) Error() string {
	return fmt.Sprintf("fatal config error for %s: %s", e.Key, e.Reason)
}
