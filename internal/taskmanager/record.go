// Package taskmanager holds the map TaskId → TaskRecord and the map
// TaskId → Task Engine handle, and gates how many Engines may run
// simultaneously. Grounded on original_source/src/core/actor_manager.rs's
// DownloadManagerActor: message-style operations over an owned task map,
// expressed here as one mutex-guarded struct with a buffered-channel
// semaphore rather than a Tokio actor, since Go's goroutines already give
// the lightweight concurrency the original reached for actix actors to get
// (spec.md §9 "express this as one owning structure").
package taskmanager

import (
	"chunkdl/internal/ids"
)

// TaskRecord is the on-disk task-table row. Field names and JSON tags
// match spec.md §6's tasks.json format verbatim.
type TaskRecord struct {
	ID         ids.TaskID `json:"id"`
	URL        string     `json:"url"`
	File       string     `json:"file"`
	Status     string     `json:"status"`
	Progress   float64    `json:"progress"`
	Downloaded int64      `json:"downloaded"`
	Total      int64      `json:"total"`
}

// Stats is the aggregate-by-status snapshot returned by GetStats.
type Stats struct {
	Pending   int
	Running   int
	Paused    int
	Completed int
	Failed    int
	Cancelled int
}
