package model

// AlertHistoryItem is one fired alert, append-only from the engine's
// point of view. The persistence layer caps the log and drops the
// oldest entries.
type AlertHistoryItem struct {
	ID          string         `json:"id"`
	Kind        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Timestamp   int64          `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
}
