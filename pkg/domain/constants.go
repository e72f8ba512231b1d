package domain

// Reserved session input names.
const (
	KeySessionID    = "session_id"
	KeyEnterpriseID = "enterprise_id"
)

// LookupInputPrefix marks a RecordSource lookup key that is read from the session inputs.
const LookupInputPrefix = "$"
