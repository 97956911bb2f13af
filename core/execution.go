package core

import "time"

// ExecutionStatus is the state of one automation run.
// Transitions: PENDING → RUNNING → SUCCESS | FAILED | CANCELLED.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "PENDING"
	ExecutionRunning   ExecutionStatus = "RUNNING"
	ExecutionSuccess   ExecutionStatus = "SUCCESS"
	ExecutionFailed    ExecutionStatus = "FAILED"
	ExecutionCancelled ExecutionStatus = "CANCELLED"
)

// Terminal reports whether the status is a final state.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionSuccess || s == ExecutionFailed || s == ExecutionCancelled
}

// ExecutionRecord is the append-only log entry for one run of one automation.
// Output is keyed by action identifier. A condition miss yields CANCELLED
// (a normal skip), an executor failure yields FAILED with Error set.
type ExecutionRecord struct {
	ID           string                    `json:"id"`
	AutomationID string                    `json:"automation_id"`
	UserID       string                    `json:"user_id,omitempty"`
	Status       ExecutionStatus           `json:"status"`
	Input        map[string]any            `json:"input,omitempty"`
	Output       map[string]map[string]any `json:"output,omitempty"`
	Error        string                    `json:"error,omitempty"`
	Duration     time.Duration             `json:"duration"`
	CreatedAt    time.Time                 `json:"created_at"`
}

// NewExecutionRecord opens a RUNNING record for an automation run. Input is
// snapshotted shallowly; duration is measured from CreatedAt by Finish.
func NewExecutionRecord(automationID, userID string, input map[string]any) *ExecutionRecord {
	return &ExecutionRecord{
		ID:           NewID(),
		AutomationID: automationID,
		UserID:       userID,
		Status:       ExecutionRunning,
		Input:        cloneMap(input),
		Output:       make(map[string]map[string]any),
		CreatedAt:    time.Now().UTC(),
	}
}

// Finish moves the record to a terminal status and stamps the wall-clock
// duration since creation.
func (r *ExecutionRecord) Finish(status ExecutionStatus, now time.Time) {
	r.Status = status
	r.Duration = now.Sub(r.CreatedAt)
}

// Clone returns a deep enough copy for safe hand-out from stores.
func (r *ExecutionRecord) Clone() *ExecutionRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Input = cloneMap(r.Input)
	clone.Output = make(map[string]map[string]any, len(r.Output))
	for k, v := range r.Output {
		clone.Output[k] = cloneMap(v)
	}
	return &clone
}
