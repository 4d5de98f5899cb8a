package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"chunkdl/internal/chunkmanager"
	"chunkdl/internal/config"
	"chunkdl/internal/events"
	"chunkdl/internal/ids"
	"chunkdl/internal/ratelimiter"
	"chunkdl/internal/retrypolicy"
	"chunkdl/internal/utils"
	"chunkdl/internal/xlog"
)

// Emitter is how an Engine surfaces External Signals; the Task Manager
// wires this to its own fan-out (CLI status line, TUI, log).
type Emitter interface {
	Emit(any)
}

// Task pins the identifying details of one download for the lifetime of
// its Engine.
type Task struct {
	ID       ids.TaskID
	URL      string
	DestDir  string
	Filename string // empty ⇒ derived from probe
}

// Engine drives one task from probe through merge. Grounded on
// internal/downloader/manager.go's TUIDownload mode-selection and
// internal/downloader/concurrent.go's worker dispatch shape, replaced with
// the discrete-chunk-temp-file + merge model spec.md §4.4/§4.6 mandates.
type Engine struct {
	task   Task
	rc     *config.RuntimeConfig
	client *http.Client

	emitter Emitter
	flags   pauseCancelFlags

	mu        sync.Mutex
	status    Status
	lastErr   error
	filename  string
	total     int64
	startedAt time.Time

	downloaded atomic.Int64

	cm           *chunkmanager.Manager
	speedEMA     float64
	lastSample   time.Time
	lastSampleAt int64
}

// NewEngine constructs an Engine for task, ready to Run.
func NewEngine(task Task, rc *config.RuntimeConfig, client *http.Client, emitter Emitter) *Engine {
	return &Engine{
		task:    task,
		rc:      rc,
		client:  client,
		emitter: emitter,
		status:  Pending(),
	}
}

func (e *Engine) emit(msg any) {
	if e.emitter != nil {
		e.emitter.Emit(msg)
	}
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

// Status returns the Engine's current status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Pause sets the cooperative pause flag; observed by the dispatch loop
// before the next Worker spawn and by every in-flight Worker at its next
// frame boundary.
func (e *Engine) Pause() {
	e.flags.setPaused(true)
}

// Resume clears the pause flag, handing the task back to the dispatch
// loop.
func (e *Engine) Resume() {
	e.flags.setPaused(false)
}

// Cancel sets the cooperative cancel flag; the dispatch loop tears down
// temp state once every in-flight Worker has observed it.
func (e *Engine) Cancel() {
	e.flags.setCancelled(true)
}

// Progress returns (downloaded, total) bytes as observed right now.
func (e *Engine) Progress() (int64, int64) {
	e.mu.Lock()
	total := e.total
	e.mu.Unlock()
	return e.downloaded.Load(), total
}

// Run executes the full pipeline: pre-flight, probe, mode selection,
// resume validation, dispatch loop, merge. It blocks until the task
// reaches a terminal status, stops for a pause, or ctx is done.
func (e *Engine) Run(ctx context.Context) {
	e.setStatus(Running())
	e.startedAt = time.Now()

	destPath, err := e.preflight()
	if err != nil {
		e.fail(err)
		return
	}

	probeResult, err := e.probe(ctx)
	if err != nil {
		e.fail(err)
		return
	}

	e.mu.Lock()
	e.total = probeResult.Size
	e.filename = probeResult.Filename
	if e.task.Filename != "" {
		e.filename = e.task.Filename
	}
	e.mu.Unlock()

	if e.task.Filename != "" {
		destPath = filepath.Join(e.task.DestDir, e.task.Filename)
	} else {
		destPath = filepath.Join(e.task.DestDir, probeResult.Filename)
		if _, err := os.Stat(destPath); err == nil {
			e.fail(retrypolicy.New(retrypolicy.KindFileExists, fmt.Errorf("%s already exists", destPath)))
			return
		}
	}

	if err := os.MkdirAll(e.task.DestDir, 0755); err != nil {
		e.fail(retrypolicy.New(retrypolicy.KindPermissionError, err))
		return
	}

	e.emit(events.Started{
		TaskID:   e.task.ID,
		URL:      e.task.URL,
		Filename: filepath.Base(destPath),
		Total:    probeResult.Size,
		Chunked:  e.shouldChunk(probeResult),
	})

	limiter := ratelimiter.New(e.rc.SpeedLimitKB * 1024)
	policy := &retrypolicy.Policy{
		MaxRetries:      e.rc.RetryCount,
		BaseDelay:       e.rc.RetryDelay,
		MaxDelay:        e.rc.RetryMaxDelay,
		Multiplier:      e.rc.BackoffMultipler,
		JitterFactor:    e.rc.JitterFactor,
		RetryableErrors: e.rc.RetryableErrors,
	}

	if !e.shouldChunk(probeResult) {
		e.runSingle(ctx, destPath, probeResult, limiter, policy)
		return
	}

	e.runChunked(ctx, destPath, probeResult, limiter, policy)
}

// preflight validates the URL and rejects an existing output path
// (no-clobber policy) when the filename is fixed up front. A filename
// derived from the probe is checked in Run once it is known.
func (e *Engine) preflight() (string, error) {
	if _, err := url.ParseRequestURI(e.task.URL); err != nil {
		return "", retrypolicy.New(retrypolicy.KindInvalidURL, err)
	}

	if e.task.Filename != "" {
		destPath := filepath.Join(e.task.DestDir, e.task.Filename)
		if _, err := os.Stat(destPath); err == nil {
			return "", retrypolicy.New(retrypolicy.KindFileExists, fmt.Errorf("%s already exists", destPath))
		}
		return destPath, nil
	}
	return "", nil
}

func (e *Engine) probe(ctx context.Context) (*ProbeResult, error) {
	return Probe(ctx, e.client, e.task.URL, e.rc.UserAgent)
}

func (e *Engine) shouldChunk(p *ProbeResult) bool {
	return e.rc.EnableChunkedDownload && p.Size > e.rc.MinChunkSize && p.SupportsRange
}

func (e *Engine) fail(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	e.setStatus(Failed(err.Error()))
	e.emit(events.Failed{TaskID: e.task.ID, Err: err})
}

func (e *Engine) complete(destPath string) {
	e.setStatus(Completed())
	if kind, ok := utils.SniffFile(destPath); ok {
		xlog.Debug("task %s: post-merge sniff of %s -> %s (%s)", e.task.ID, filepath.Base(destPath), kind.Extension, kind.MIME)
	}
	e.emit(events.Completed{
		TaskID:   e.task.ID,
		Filename: filepath.Base(destPath),
		Elapsed:  time.Since(e.startedAt),
		Total:    e.downloaded.Load(),
	})
}

func (e *Engine) validators(p *ProbeResult) chunkmanager.Validators {
	return chunkmanager.Validators{ETag: p.ETag, LastModified: p.LastModified}
}

func (e *Engine) runSingle(ctx context.Context, destPath string, p *ProbeResult, limiter *ratelimiter.Bucket, policy *retrypolicy.Policy) {
	err := downloadSingle(ctx, e.client, e.task.URL, e.rc.UserAgent, destPath, p.Size, limiter, &e.flags, policy, func(n int64) {
		e.downloaded.Store(n)
		e.emit(events.Progress{
			TaskID:     e.task.ID,
			Downloaded: n,
			Total:      p.Size,
		})
	})
	if err != nil {
		if rerr, ok := err.(*retrypolicy.Error); ok && rerr.Kind == retrypolicy.KindCancelled {
			e.setStatus(Cancelled())
			e.emit(events.Cancelled{TaskID: e.task.ID})
			return
		}
		if rerr, ok := err.(*retrypolicy.Error); ok && rerr.Kind == retrypolicy.KindPaused {
			e.setStatus(Paused())
			e.emit(events.Paused{TaskID: e.task.ID})
			return
		}
		e.fail(err)
		return
	}
	e.complete(destPath)
}

func (e *Engine) runChunked(ctx context.Context, destPath string, p *ProbeResult, limiter *ratelimiter.Bucket, policy *retrypolicy.Policy) {
	outputDir := e.task.DestDir
	fileName := filepath.Base(destPath)

	e.cm = chunkmanager.New(p.Size, e.rc.ChunkSize, outputDir, fileName, e.rc.MaxConcurrentChunks)
	if err := e.cm.EnsureTempDir(); err != nil {
		e.fail(retrypolicy.New(retrypolicy.KindPermissionError, err))
		return
	}

	if e.rc.EnableResume {
		if err := e.cm.LoadAndValidateResume(e.task.ID, e.validators(p)); err != nil {
			xlog.Debug("task %s: resume invalid, restarting from scratch: %v", e.task.ID, err)
			e.cm.CleanupTemp()
			e.cm.EnsureTempDir()
		}
	}

	chunkRetryPolicy := &retrypolicy.Policy{
		MaxRetries:      policy.MaxRetries,
		BaseDelay:       policy.BaseDelay,
		MaxDelay:        policy.MaxDelay,
		Multiplier:      policy.Multiplier,
		JitterFactor:    policy.JitterFactor,
		RetryableErrors: policy.RetryableErrors,
	}

	var wg sync.WaitGroup
	var dispatchMu sync.Mutex
	inFlight := make(map[int]bool)

	ticker := time.NewTicker(dispatchTick)
	defer ticker.Stop()

	taskRetryBudget := retrypolicy.NewContext(policy)
	finalErr := error(nil)

dispatchLoop:
	for {
		if e.flags.cancelled() {
			break
		}

		if !e.flags.paused() {
			for {
				idx, ok := e.cm.NextAvailable()
				if !ok {
					break
				}
				wg.Add(1)
				dispatchMu.Lock()
				inFlight[idx] = true
				dispatchMu.Unlock()
				go func(idx int) {
					defer wg.Done()
					defer func() {
						dispatchMu.Lock()
						delete(inFlight, idx)
						dispatchMu.Unlock()
					}()
					e.runChunkWorker(ctx, idx, limiter, chunkRetryPolicy, p)
				}(idx)
			}
		}

		if e.cm.IsDone() {
			break
		}

		stats := e.cm.Stats()
		if e.flags.paused() && stats.Active == 0 {
			break
		}
		if !e.flags.paused() && stats.Pending == 0 && stats.Active == 0 && stats.Failed > 0 {
			if taskRetryBudget.Retries() >= policy.MaxRetries {
				finalErr = fmt.Errorf("task %s: %d chunk(s) failed, retry budget exhausted", e.task.ID, stats.Failed)
				break
			}
			delay := taskRetryBudget.RecordRetry()
			xlog.Debug("task %s: retrying %d failed chunk(s) after %v", e.task.ID, stats.Failed, delay)
			sleepOrCancel(ctx, delay)
			e.cm.RetryFailed()
		}

		e.reportProgress(p.Size)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			break dispatchLoop
		}
	}

	wg.Wait()

	if e.flags.cancelled() {
		e.cm.CleanupTemp()
		e.cm.RemoveResume(e.task.ID)
		e.setStatus(Cancelled())
		e.emit(events.Cancelled{TaskID: e.task.ID})
		return
	}

	if finalErr != nil {
		e.fail(retrypolicy.New(retrypolicy.KindUnknown, finalErr))
		return
	}

	if e.flags.paused() && !e.cm.IsDone() {
		e.setStatus(Paused())
		e.emit(events.Paused{TaskID: e.task.ID})
		return
	}

	if !e.cm.IsDone() {
		// Dispatch loop exited via ctx.Done() without a terminal decision.
		return
	}

	if err := e.cm.Merge(destPath); err != nil {
		e.fail(retrypolicy.New(retrypolicy.KindIoError, err))
		return
	}
	e.cm.RemoveResume(e.task.ID)
	e.complete(destPath)
}

func (e *Engine) runChunkWorker(ctx context.Context, idx int, limiter *ratelimiter.Bucket, policy *retrypolicy.Policy, p *ProbeResult) {
	chunk := e.cm.Chunk(idx)
	destPath := e.cm.ChunkFilePath(idx)

	err := downloadChunk(ctx, e.client, e.task.URL, e.rc.UserAgent, chunk, destPath, limiter, &e.flags, policy, func(n int64) {
		e.cm.UpdateProgress(idx, n)
	})

	if err != nil {
		rerr, ok := err.(*retrypolicy.Error)
		if ok && (rerr.Kind == retrypolicy.KindPaused || rerr.Kind == retrypolicy.KindCancelled) {
			e.cm.MarkFailed(idx)
			return
		}
		xlog.Debug("task %s: chunk %d failed terminally: %v", e.task.ID, idx, err)
		e.cm.MarkFailed(idx)
		return
	}

	e.cm.MarkCompleted(idx)
	if e.rc.EnableResume {
		e.cm.SaveResume(e.task.ID, e.task.URL, e.validators(p))
	}
}

// reportProgress emits a Progress event, smoothing the instantaneous
// between-tick rate with an exponential moving average so the reported
// speed doesn't jitter with every dispatch-loop tick.
func (e *Engine) reportProgress(total int64) {
	stats := e.cm.Stats()
	e.downloaded.Store(stats.Downloaded)

	now := time.Now()
	if !e.lastSample.IsZero() {
		elapsed := now.Sub(e.lastSample).Seconds()
		if elapsed > 0 {
			instant := float64(stats.Downloaded-e.lastSampleAt) / elapsed
			if e.speedEMA == 0 {
				e.speedEMA = instant
			} else {
				e.speedEMA = speedEMAAlpha*instant + (1-speedEMAAlpha)*e.speedEMA
			}
		}
	}
	e.lastSample = now
	e.lastSampleAt = stats.Downloaded

	e.emit(events.Progress{
		TaskID:          e.task.ID,
		Downloaded:      stats.Downloaded,
		Total:           total,
		Speed:           e.speedEMA,
		ActiveChunks:    stats.Active,
		CompletedChunks: stats.Completed,
		TotalChunks:     stats.Total,
	})
}
