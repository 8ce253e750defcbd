package models

/*
Run status and mode constants for pipeline runs and their background jobs.
Centralizing these avoids magic strings across the CLI, API and worker.
*/

// Run status constants
const (
	RunStatusEnqueued  = "enqueued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run mode constants
const (
	RunModeClassifyIngest = "classify_ingest"
	RunModeIngest         = "ingest"
	RunModeIngestUser     = "ingest_user"

	RunModeNewUserClassifyIngest = "new_user_classify_ingest"
	RunModeNewUserIngest         = "new_user_ingest"
)
