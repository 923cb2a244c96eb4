package domain

// Total is a point-in-time sum of step counts across all entries.
type Total struct {
	TotalSteps   int64 `json:"total_steps" dynamodbav:"total_steps"`
	ComputedAtMs int64 `json:"computed_at_ms" dynamodbav:"updated_at_ms"`
}
