package metrics

import "time"

// TaskEnqueued records a task accepted into the queue.
func TaskEnqueued(task string) {
	TasksEnqueued.WithLabelValues(task).Inc()
}

// TaskStarted marks a task as executing. Pair with TaskFinished.
func TaskStarted() {
	TasksInFlight.Inc()
}

// TaskFinished records the outcome and duration of one execution.
func TaskFinished(task, outcome string, duration time.Duration) {
	TasksInFlight.Dec()
	TasksProcessed.WithLabelValues(task, outcome).Inc()
	TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// TasksRecoveredAdd counts stale tasks requeued at worker start.
func TasksRecoveredAdd(n int64) {
	if n > 0 {
		TasksRecovered.Add(float64(n))
	}
}
