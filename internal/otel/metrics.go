package otel

const (
	MetricTaskCount    = "sentinel.task.count"
	MetricTaskDuration = "sentinel.task.duration"
	MetricBatchCount   = "sentinel.batch.count"
	MetricPluginFaults = "sentinel.plugin.faults"
)

// TaskDurationBuckets are histogram boundaries in seconds.
var TaskDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}
