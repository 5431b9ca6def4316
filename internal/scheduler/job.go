package scheduler

import (
	"context"
	"errors"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns a six-field cron expression (seconds first)
	// evaluated in MarketTimezone, or a descriptor such as "@daily"
	Schedule() string
}

// RetryPolicy is implemented by jobs that know some failures can never
// succeed on a later attempt. Jobs without it get DefaultRetryable.
type RetryPolicy interface {
	Retryable(err error) bool
}

// permanentError marks a failure the scheduler must not retry
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the scheduler records it without retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped by Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// DefaultRetryable retries everything except Permanent errors and
// context cancellation
func DefaultRetryable(err error) bool {
	if IsPermanent(err) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func retryable(job Job, err error) bool {
	if !DefaultRetryable(err) {
		return false
	}
	if policy, ok := job.(RetryPolicy); ok {
		return policy.Retryable(err)
	}
	return true
}

// JobResult is the outcome of one scheduled or manual activation,
// retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// DefaultHistoryLimit bounds JobHistory when no limit is configured
const DefaultHistoryLimit = 100

// JobHistory keeps the most recent results of a job, oldest first
type JobHistory struct {
	Results []JobResult
	limit   int
}

// NewJobHistory creates a history bounded to limit entries (<= 0 uses DefaultHistoryLimit)
func NewJobHistory(limit int) *JobHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &JobHistory{limit: limit}
}

// AddResult appends a result and drops the oldest beyond the limit
func (h *JobHistory) AddResult(result JobResult) {
	limit := h.limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	h.Results = append(h.Results, result)
	if len(h.Results) > limit {
		h.Results = h.Results[len(h.Results)-limit:]
	}
}

// Latest returns the most recent result
func (h *JobHistory) Latest() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// GetLatestResults returns up to n most recent results
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// GetFailedResults returns all failed results
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}

	successCount := 0
	for _, result := range h.Results {
		if result.Success {
			successCount++
		}
	}
	return float64(successCount) / float64(len(h.Results))
}
