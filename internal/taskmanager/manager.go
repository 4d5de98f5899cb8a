package taskmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"chunkdl/internal/config"
	"chunkdl/internal/engine"
	"chunkdl/internal/events"
	"chunkdl/internal/ids"
	"chunkdl/internal/utils"
	"chunkdl/internal/xlog"
)

// handle bundles everything the Manager needs to track one in-memory
// task beyond its on-disk record.
type handle struct {
	eng        *engine.Engine
	cancel     context.CancelFunc
	permitHeld bool
}

// Manager is the single owner of the task map; every field below is only
// ever touched from behind mu, so callers never need to coordinate with
// each other.
type Manager struct {
	mu sync.Mutex

	rc     *config.RuntimeConfig
	client *http.Client

	records map[ids.TaskID]*TaskRecord
	handles map[ids.TaskID]*handle

	sem chan struct{}

	externalEmitter func(any)
	subscribers     []chan any
}

// New constructs a Manager. externalEmitter, if non-nil, receives every
// events.* message alongside the Manager's own bookkeeping (wired to the
// CLI's status line or the TUI).
func New(rc *config.RuntimeConfig, externalEmitter func(any)) *Manager {
	m := &Manager{
		rc:              rc,
		client:          engine.NewClient(rc, rc.MaxConcurrentChunks+2),
		records:         make(map[ids.TaskID]*TaskRecord),
		handles:         make(map[ids.TaskID]*handle),
		sem:             make(chan struct{}, rc.MaxConcurrentDownloads),
		externalEmitter: externalEmitter,
	}
	return m
}

// Emit implements engine.Emitter; every Engine the Manager spawns reports
// back through this single entry point.
func (m *Manager) Emit(msg any) {
	m.mu.Lock()
	switch e := msg.(type) {
	case events.Started:
		if r, ok := m.records[e.TaskID]; ok {
			r.Total = e.Total
			r.File = e.Filename
			r.Status = "Running"
		}
	case events.Progress:
		if r, ok := m.records[e.TaskID]; ok {
			r.Downloaded = e.Downloaded
			r.Total = e.Total
			if e.Total > 0 {
				r.Progress = 100 * float64(e.Downloaded) / float64(e.Total)
			}
		}
	case events.Completed:
		if r, ok := m.records[e.TaskID]; ok {
			r.Status = "Completed"
			r.Downloaded = e.Total
			r.Progress = 100
		}
		m.releasePermit(e.TaskID)
	case events.Failed:
		if r, ok := m.records[e.TaskID]; ok {
			r.Status = "Failed"
		}
		m.releasePermit(e.TaskID)
	case events.Paused:
		if r, ok := m.records[e.TaskID]; ok {
			r.Status = "Paused"
		}
	case events.Resumed:
		if r, ok := m.records[e.TaskID]; ok {
			r.Status = "Running"
		}
	case events.Cancelled:
		if r, ok := m.records[e.TaskID]; ok {
			r.Status = "Cancelled"
		}
		m.releasePermit(e.TaskID)
	}
	m.mu.Unlock()

	m.persist()
	if m.externalEmitter != nil {
		m.externalEmitter(msg)
	}

	m.mu.Lock()
	subs := append([]chan any(nil), m.subscribers...)
	m.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribe registers a new listener for every event the Manager emits; the
// caller must call the returned func to unsubscribe and let the channel be
// garbage collected. The channel is buffered and non-blocking: a slow
// reader drops events rather than stalling the Engine goroutine that's
// reporting them.
func (m *Manager) Subscribe(buffer int) (<-chan any, func()) {
	ch := make(chan any, buffer)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, c := range m.subscribers {
			if c == ch {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				break
			}
		}
	}
	return ch, unsubscribe
}

// releasePermit frees the global concurrency slot held by taskID. Must be
// called with mu held, since it reads m.handles; the receive on sem is
// non-blocking.
func (m *Manager) releasePermit(taskID ids.TaskID) {
	if h, ok := m.handles[taskID]; ok && h.permitHeld {
		h.permitHeld = false
		select {
		case <-m.sem:
		default:
		}
	}
}

// DownloadsDir returns the configured downloads directory, so callers can
// resolve relative output paths against it.
func (m *Manager) DownloadsDir() string {
	return m.rc.DownloadsDir
}

// mirroredDestDir places a task with no explicit output path under
// DownloadsDir/host/path, rather than flattening every download into one
// directory, so two tasks named file.zip from different sites don't
// collide. Falls back to the bare downloads dir if the URL won't parse
// (the Engine's own preflight will reject it properly).
func (m *Manager) mirroredDestDir(rawURL string) string {
	sub, err := utils.ExtractURLPath(rawURL)
	if err != nil || sub == "" {
		return m.rc.DownloadsDir
	}
	return filepath.Join(m.rc.DownloadsDir, sub)
}

// CreateTask allocates a task id, inserts a Pending record, and persists
// the table. destPath is the full output path; an empty destPath places the
// task under the mirrored host/path directory and lets the Engine derive
// the filename from the probe response (spec.md §4.5 step 2).
func (m *Manager) CreateTask(url, destPath string) (ids.TaskID, error) {
	id := ids.New()

	m.mu.Lock()
	m.records[id] = &TaskRecord{
		ID:     id,
		URL:    url,
		File:   destPath,
		Status: "Pending",
	}
	m.handles[id] = &handle{}
	m.mu.Unlock()

	xlog.Debug("taskmanager: created task %s for %s", id, url)
	return id, m.persist()
}

// StartTask acquires a global permit (may block the caller's goroutine if
// the pool is full) and spawns the task's Engine.
func (m *Manager) StartTask(ctx context.Context, id ids.TaskID) error {
	m.mu.Lock()
	rec, ok := m.records[id]
	h, hok := m.handles[id]
	m.mu.Unlock()
	if !ok || !hok {
		return fmt.Errorf("unknown task %s", id)
	}

	m.sem <- struct{}{}
	h.permitHeld = true

	runCtx, cancel := context.WithCancel(ctx)

	destDir := filepath.Dir(rec.File)
	filename := filepath.Base(rec.File)
	if rec.File == "" || rec.File == "." {
		destDir = m.mirroredDestDir(rec.URL)
		filename = ""
	}

	eng := engine.NewEngine(engine.Task{
		ID:       id,
		URL:      rec.URL,
		DestDir:  destDir,
		Filename: filename,
	}, m.rc, m.client, m)

	m.mu.Lock()
	h.eng = eng
	h.cancel = cancel
	rec.Status = "Running"
	m.mu.Unlock()

	go eng.Run(runCtx)
	return nil
}

// PauseTask sets the pause flag on the task's Engine.
func (m *Manager) PauseTask(id ids.TaskID) error {
	h, err := m.handleFor(id)
	if err != nil {
		return err
	}
	if h.eng == nil {
		return fmt.Errorf("task %s is not running", id)
	}
	h.eng.Pause()
	m.Emit(events.Paused{TaskID: id})
	return nil
}

// ResumeTask clears the pause flag, handing the task back to the dispatch
// loop.
func (m *Manager) ResumeTask(id ids.TaskID) error {
	h, err := m.handleFor(id)
	if err != nil {
		return err
	}
	if h.eng == nil {
		return fmt.Errorf("task %s is not running", id)
	}
	h.eng.Resume()
	m.Emit(events.Resumed{TaskID: id})
	return nil
}

// CancelTask sets the cancel flag; the Engine tears down temp state and
// reports Cancelled, which releases the permit.
func (m *Manager) CancelTask(id ids.TaskID) error {
	h, err := m.handleFor(id)
	if err != nil {
		return err
	}
	if h.eng == nil {
		m.mu.Lock()
		if r, ok := m.records[id]; ok {
			r.Status = "Cancelled"
		}
		m.mu.Unlock()
		return m.persist()
	}
	h.eng.Cancel()
	return nil
}

func (m *Manager) handleFor(id ids.TaskID) (*handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[id]
	if !ok {
		return nil, fmt.Errorf("unknown task %s", id)
	}
	return h, nil
}

// QueryProgress returns the current progress percent for id.
func (m *Manager) QueryProgress(id ids.TaskID) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return 0, fmt.Errorf("unknown task %s", id)
	}
	return r.Progress, nil
}

// QueryStatus returns the current status string for id.
func (m *Manager) QueryStatus(id ids.TaskID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return "", fmt.Errorf("unknown task %s", id)
	}
	return r.Status, nil
}

// QueryDetail returns a full snapshot of id's record.
func (m *Manager) QueryDetail(id ids.TaskID) (TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return TaskRecord{}, fmt.Errorf("unknown task %s", id)
	}
	return *r, nil
}

// List returns every task record, sorted by ID string for stable output.
func (m *Manager) List() []TaskRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TaskRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// GetStats returns aggregate counts by status.
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Stats
	for _, r := range m.records {
		switch r.Status {
		case "Pending":
			s.Pending++
		case "Running":
			s.Running++
		case "Paused":
			s.Paused++
		case "Completed":
			s.Completed++
		case "Failed":
			s.Failed++
		case "Cancelled":
			s.Cancelled++
		}
	}
	return s
}

// Shutdown cancels every running Engine's context, used on process exit so
// in-flight HTTP requests unblock immediately instead of waiting out their
// configured timeout.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handles {
		if h.cancel != nil {
			h.cancel()
		}
	}
}

// RemoveTask deletes a task's record from the table, refusing while the
// task is Running or Paused.
func (m *Manager) RemoveTask(id ids.TaskID) error {
	m.mu.Lock()
	r, ok := m.records[id]
	if ok {
		switch r.Status {
		case "Running", "Paused":
			m.mu.Unlock()
			return fmt.Errorf("task %s is not terminal (status %s); cancel it first", id, r.Status)
		}
	}
	delete(m.records, id)
	delete(m.handles, id)
	m.mu.Unlock()
	return m.persist()
}

// tasksFilePath returns downloads/tasks.json under the configured
// downloads directory.
func (m *Manager) tasksFilePath() string {
	return filepath.Join(m.rc.DownloadsDir, "tasks.json")
}

// persist writes the task table atomically (write-temp, rename), per
// spec.md §6 "write-rename is recommended but not mandated" — this
// implementation takes the recommendation.
func (m *Manager) persist() error {
	m.mu.Lock()
	records := make([]TaskRecord, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, *r)
	}
	m.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].ID.String() < records[j].ID.String() })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(m.rc.DownloadsDir, 0755); err != nil {
		return err
	}

	path := m.tasksFilePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads tasks.json if present, populating the in-memory table. Any
// task left Running from a previous crash is marked Paused —
// its Engine is gone, so it cannot still be in flight.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.tasksFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var records []TaskRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("corrupt tasks.json: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range records {
		r := records[i]
		if r.Status == "Running" {
			r.Status = "Paused"
		}
		m.records[r.ID] = &r
		m.handles[r.ID] = &handle{}
	}
	return nil
}

// AutoResume enumerates resume_*.json files in the downloads directory at
// startup; for each whose task id isn't already in memory, it re-creates
// the record as Paused so an operator must explicitly resume it — this
// avoids a thundering herd of downloads restarting at boot (spec.md §4.7).
func (m *Manager) AutoResume() error {
	entries, err := os.ReadDir(m.rc.DownloadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "resume_") || !strings.HasSuffix(name, ".json") {
			continue
		}

		idStr := strings.TrimSuffix(strings.TrimPrefix(name, "resume_"), ".json")
		taskID, err := ids.Parse(idStr)
		if err != nil {
			xlog.Debug("taskmanager: skipping malformed resume file %s: %v", name, err)
			continue
		}

		m.mu.Lock()
		_, exists := m.records[taskID]
		m.mu.Unlock()
		if exists {
			continue
		}

		data, err := os.ReadFile(filepath.Join(m.rc.DownloadsDir, name))
		if err != nil {
			continue
		}
		var partial struct {
			URL       string `json:"url"`
			File      string `json:"file"`
			TotalSize int64  `json:"total_size"`
		}
		if err := json.Unmarshal(data, &partial); err != nil {
			xlog.Debug("taskmanager: skipping corrupt resume file %s: %v", name, err)
			continue
		}

		m.mu.Lock()
		m.records[taskID] = &TaskRecord{
			ID:     taskID,
			URL:    partial.URL,
			File:   partial.File,
			Status: "Paused",
			Total:  partial.TotalSize,
		}
		m.handles[taskID] = &handle{}
		m.mu.Unlock()
		xlog.Debug("taskmanager: auto-resumed (paused) task %s from %s", taskID, name)
	}

	return m.persist()
}
