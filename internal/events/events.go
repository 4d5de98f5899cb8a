// Package events defines the external-signal messages the Task Manager
// emits as a task progresses, consumed by the CLI's live status view. The
// shape is grounded on the teacher's messages package, generalized from an
// int DownloadID to the opaque uuid.UUID task identifier and widened to
// cover pause/resume/cancel in addition to progress/complete/error, since
// those are first-class states in this spec.
package events

import (
	"encoding/json"
	"errors"
	"time"

	"chunkdl/internal/ids"
)

// Progress reports byte-level advancement for a running task.
type Progress struct {
	TaskID          ids.TaskID
	Downloaded      int64
	Total           int64
	Speed           float64 // bytes/sec, EMA-smoothed
	ActiveChunks    int
	CompletedChunks int
	TotalChunks     int
}

// Started is sent once probing completes and the engine has picked a mode.
type Started struct {
	TaskID   ids.TaskID
	URL      string
	Filename string
	Total    int64
	Chunked  bool
}

// Completed signals a task finished successfully.
type Completed struct {
	TaskID   ids.TaskID
	Filename string
	Elapsed  time.Duration
	Total    int64
}

// Failed signals a task ended in a terminal error. Err round-trips through
// JSON as a plain string, since error values themselves don't marshal.
type Failed struct {
	TaskID ids.TaskID
	Err    error
}

func (f Failed) MarshalJSON() ([]byte, error) {
	type encoded struct {
		TaskID ids.TaskID `json:"TaskID"`
		Err    string     `json:"Err,omitempty"`
	}

	out := encoded{TaskID: f.TaskID}
	if f.Err != nil {
		out.Err = f.Err.Error()
	}
	return json.Marshal(out)
}

func (f *Failed) UnmarshalJSON(data []byte) error {
	var aux struct {
		TaskID ids.TaskID `json:"TaskID"`
		Err    string     `json:"Err"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	f.TaskID = aux.TaskID
	f.Err = nil
	if aux.Err != "" {
		f.Err = errors.New(aux.Err)
	}
	return nil
}

// Paused signals a pause: the Task Manager emits it as soon as the pause
// flag is set, and the Engine emits it again once its Workers have exited.
type Paused struct {
	TaskID ids.TaskID
}

// Resumed signals a paused task has been handed back to the dispatch loop.
type Resumed struct {
	TaskID ids.TaskID
}

// Cancelled signals a task's temp state has been torn down after a cancel.
type Cancelled struct {
	TaskID ids.TaskID
}
