package ports

import "context"

type RunNotice struct {
	RunID         string `json:"run_id"`
	Source        string `json:"source"`
	Organizer     string `json:"organizer"`
	Fetched       int    `json:"fetched"`
	Written       int    `json:"written"`
	Failed        int    `json:"failed"`
	Live          bool   `json:"live"`
	FallbackUsed  bool   `json:"fallback_used"`
	FailureReason string `json:"failure_reason,omitempty"`
	FinishedAt    string `json:"finished_at"`
}

// Notifier announces finished source runs to interested subscribers.
type Notifier interface {
	Notify(ctx context.Context, notice RunNotice) error
}
