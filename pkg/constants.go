package shared

const (
	ProjectID = "fitglue-project" // Can be overridden by env var in main if needed

	SourceGarminConnect = "garminconnect"

	TopicRawActivity = "topic-raw-activity"

	CollectionUsers              = "users"
	CollectionUploadedActivities = "uploaded_activities"

	// CloudEvent types emitted by the Garmin Connect source
	EventTypeActivityImported = "com.fitglue.garminconnect.activity.imported"
	EventSourceGarminConnect  = "/integrations/garminconnect"
)
