package dynamo

// DynamoDB attribute names. Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID     = "user_id"
	fieldRecordID   = "record_id"
	fieldTimestamp  = "timestamp" // reserved word: always go through #ts
	fieldStepCount  = "step_count"
	fieldDay        = "day"
	fieldExpiresAt  = "expires_at"
	fieldCounterID  = "counter_id"
	fieldTotalSteps = "total_steps"
	fieldUpdatedAt  = "updated_at_ms"

	globalCounterID = "global"

	conditionalCheckFailed = "ConditionalCheckFailed"
)
