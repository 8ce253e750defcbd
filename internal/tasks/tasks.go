package tasks

// Task types and queues used with asynq.

const (
	// TypePipelineRun runs one ingestion pipeline for an account.
	TypePipelineRun = "pipeline:run"

	// QueuePipeline is the queue pipeline runs are enqueued on.
	QueuePipeline = "pipeline"
)
