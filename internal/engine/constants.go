package engine

import "time"

// Timing and sizing constants taken from the teacher's
// internal/engine/types/config.go size/timing table. Only dispatchTick,
// speedEMAAlpha and probeTimeout are read by this package; the engine does
// no progress batching, worker health checks, stall restarts or slow-worker
// detection, so the constants for those are unreferenced.
const (
	// workerBatchInterval is the teacher's progress-batching interval
	// (unused: chunk workers report progress after every read).
	workerBatchInterval = 200 * time.Millisecond

	// dispatchTick is the period of the Task Engine's dispatch loop.
	dispatchTick = 1 * time.Second

	// healthCheckInterval is the teacher's worker health-check period
	// (unused).
	healthCheckInterval = 1 * time.Second

	// stallTimeout is the teacher's no-data restart threshold (unused).
	stallTimeout = 5 * time.Second

	// slowWorkerGrace is the teacher's warm-up period before worker speeds
	// are compared (unused).
	slowWorkerGrace = 5 * time.Second

	// slowWorkerThreshold is the teacher's slow-worker cutoff, as a
	// fraction of the mean chunk speed (unused).
	slowWorkerThreshold = 0.50

	// speedEMAAlpha smooths the instantaneous speed samples reported in
	// events.Progress.Speed.
	speedEMAAlpha = 0.3

	probeTimeout = 30 * time.Second
)
