package flow

// Status is the lifecycle state of a membership.
type Status string

// Membership states. Queued and InProgress are the only non-terminal
// states; a fresh enqueue of the same item starts a new membership.
const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether s ends a membership's life.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// RetryPolicy advises callers on re-enqueueing failed items. The engine
// stores it and computes advice; it never re-enqueues on its own.
type RetryPolicy struct {
	// MaxAttempts counts the first try; 3 means two retries.
	MaxAttempts int `json:"maxAttempts"`
	// BackoffMs is the delay before the first retry.
	BackoffMs int64 `json:"backoffMs"`
	// BackoffMultiplier scales the delay per attempt; defaults to 2.
	BackoffMultiplier float64 `json:"backoffMultiplier,omitempty"`
	// MaxBackoffMs caps the delay; 0 means uncapped.
	MaxBackoffMs int64 `json:"maxBackoffMs,omitempty"`
}

// Queue is a named, ordered channel of work scoped to a project.
type Queue struct {
	ID             string            `json:"id"`
	ProjectID      string            `json:"projectId"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	IsActive       bool              `json:"isActive"`
	MaxConcurrency int               `json:"maxConcurrency"`
	RetryPolicy    *RetryPolicy      `json:"retryPolicy,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAtMs    int64             `json:"createdAtMs"`
	UpdatedAtMs    int64             `json:"updatedAtMs"`
}

// QueueSpec is the input to CreateQueue.
type QueueSpec struct {
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	MaxConcurrency int               `json:"maxConcurrency,omitempty"`
	RetryPolicy    *RetryPolicy      `json:"retryPolicy,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// QueuePatch updates a queue; nil fields are left unchanged.
type QueuePatch struct {
	Name           *string           `json:"name,omitempty"`
	Description    *string           `json:"description,omitempty"`
	IsActive       *bool             `json:"isActive,omitempty"`
	MaxConcurrency *int              `json:"maxConcurrency,omitempty"`
	RetryPolicy    *RetryPolicy      `json:"retryPolicy,omitempty"`
	ClearRetry     bool              `json:"clearRetryPolicy,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Membership records where a work item sits: its queue, position, status,
// claim holder, and lifecycle telemetry. One live row per work item; rows
// reaching a terminal status are archived to history.
type Membership struct {
	ItemType  ItemType `json:"itemType"`
	ItemID    string   `json:"itemId"`
	ProjectID string   `json:"projectId"`
	QueueID   string   `json:"queueId,omitempty"`
	Position  int      `json:"position"`
	Priority  int      `json:"priority"`
	Status    Status   `json:"status"`
	AgentID   string   `json:"agentId,omitempty"`

	QueuedAtMs    int64 `json:"queuedAtMs"`
	StartedAtMs   int64 `json:"startedAtMs,omitempty"`
	CompletedAtMs int64 `json:"completedAtMs,omitempty"`

	ErrorMessage          string `json:"errorMessage,omitempty"`
	Result                string `json:"result,omitempty"`
	EstimatedProcessingMs int64  `json:"estimatedProcessingMs,omitempty"`
	ActualProcessingMs    int64  `json:"actualProcessingMs,omitempty"`
}

// Ref returns the membership's work item reference.
func (m *Membership) Ref() Ref { return Ref{Type: m.ItemType, ID: m.ItemID} }

// EnqueueOptions carries the optional enqueue inputs.
type EnqueueOptions struct {
	// Priority breaks ties at claim time; it never repositions queued items.
	Priority int `json:"priority,omitempty"`
	// EstimatedProcessingMs feeds reporting and the stale-claim reaper.
	EstimatedProcessingMs int64 `json:"estimatedProcessingMs,omitempty"`
}

// QueueStats is a read-only rollup for one queue.
type QueueStats struct {
	QueueID                string `json:"queueId"`
	Queued                 int    `json:"queued"`
	InProgress             int    `json:"inProgress"`
	Completed              int    `json:"completed"`
	Failed                 int    `json:"failed"`
	Cancelled              int    `json:"cancelled"`
	AvgActualProcessingMs  int64  `json:"avgActualProcessingMs"`
	AvgEstimateMs          int64  `json:"avgEstimatedProcessingMs"`
}

// ProjectStats aggregates queue stats across a project.
type ProjectStats struct {
	ProjectID string       `json:"projectId"`
	Totals    QueueStats   `json:"totals"`
	Queues    []QueueStats `json:"queues"`
}

// RetryAdvice is the engine's answer to "should this failed item go again".
type RetryAdvice struct {
	Retry    bool  `json:"retry"`
	DelayMs  int64 `json:"delayMs,omitempty"`
	Attempts int   `json:"attempts"`
}
