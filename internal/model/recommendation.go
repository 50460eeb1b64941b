package model

// RecommendationKind classifies an operator suggestion.
type RecommendationKind string

const (
	RecommendWarning    RecommendationKind = "warning"
	RecommendReroute    RecommendationKind = "reroute"
	RecommendAllocation RecommendationKind = "allocation"
)

// Priority orders recommendations for display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns a sortable weight; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Recommendation is a single ranked operator suggestion.
type Recommendation struct {
	ID       string             `json:"id"`
	Kind     RecommendationKind `json:"type"`
	Priority Priority           `json:"priority"`
	Message  string             `json:"message"`

	// Optional structured payload.
	ResourceID   string  `json:"resource_id,omitempty"`
	ZoneID       string  `json:"zone_id,omitempty"`
	EdgeID       int64   `json:"edge_id,omitempty"`
	SavedMinutes float64 `json:"saved_minutes,omitempty"`
}
