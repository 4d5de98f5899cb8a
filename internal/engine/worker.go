package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"chunkdl/internal/bufwriter"
	"chunkdl/internal/chunkmanager"
	"chunkdl/internal/ratelimiter"
	"chunkdl/internal/retrypolicy"
	"chunkdl/internal/xlog"
)

// streamFrame is the read granularity for a chunk body, matching the
// teacher's worker buffer size.
const streamFrame = 32 * 1024

// downloadChunk implements the Chunk Worker contract: GET with a Range
// header, write sequentially into the chunk's own temp file, verify the
// byte count on completion. Retryable transport errors are retried inside
// this call using a private retry Context; once streaming has begun,
// errors propagate to the caller without further retry at this layer.
// Grounded on internal/downloader/concurrent.go's worker/downloadTask,
// replaced with the discrete-temp-file model spec.md §4.6 mandates.
func downloadChunk(ctx context.Context, client *http.Client, url, userAgent string, chunk chunkmanager.Chunk, destPath string, limiter *ratelimiter.Bucket, pauseFlag *pauseCancelFlags, policy *retrypolicy.Policy, progress func(downloaded int64)) error {
	retryCtx := retrypolicy.NewContext(policy)

	for {
		var streaming bool
		err := attemptChunk(ctx, client, url, userAgent, chunk, destPath, limiter, pauseFlag, progress, &streaming)
		if err == nil {
			return nil
		}

		rerr, ok := err.(*retrypolicy.Error)
		if !ok {
			return err
		}
		if streaming || !retryCtx.ShouldRetry(rerr) {
			return rerr
		}

		delay := retryCtx.RecordRetry()
		xlog.Debug("chunk %d: retrying after %v (attempt %d): %v", chunk.Index, delay, retryCtx.Retries(), rerr)
		sleepOrCancel(ctx, delay)
	}
}

// attemptChunk runs exactly one GET+stream attempt for the chunk. It sets
// *streaming once the response is accepted and the temp file is open.
func attemptChunk(ctx context.Context, client *http.Client, url, userAgent string, chunk chunkmanager.Chunk, destPath string, limiter *ratelimiter.Bucket, pauseFlag *pauseCancelFlags, progress func(int64), streaming *bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retrypolicy.New(retrypolicy.KindInvalidURL, err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", chunk.Start, chunk.End))
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return retrypolicy.New(retrypolicy.KindNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return retrypolicy.NewServerError(resp.StatusCode, fmt.Errorf("unexpected chunk status %d", resp.StatusCode))
	}

	w, err := bufwriter.New(destPath, streamFrame)
	if err != nil {
		return retrypolicy.New(retrypolicy.KindPermissionError, err)
	}
	defer w.Close()
	*streaming = true

	buf := make([]byte, streamFrame)
	var total int64
	expected := chunk.Len()

	for {
		if pauseFlag.paused() {
			return retrypolicy.New(retrypolicy.KindPaused, fmt.Errorf("paused"))
		}
		if pauseFlag.cancelled() {
			return retrypolicy.New(retrypolicy.KindCancelled, fmt.Errorf("cancelled"))
		}

		if wait := limiter.Reserve(int64(len(buf))); wait > 0 {
			sleepOrCancel(ctx, wait)
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if werr := w.Write(buf[:n]); werr != nil {
				return retrypolicy.New(retrypolicy.KindIoError, werr)
			}
			total += int64(n)
			progress(total)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return retrypolicy.New(retrypolicy.KindNetworkError, readErr)
		}
	}

	if err := w.Flush(); err != nil {
		return retrypolicy.New(retrypolicy.KindIoError, err)
	}

	if total != expected {
		return retrypolicy.New(retrypolicy.KindSizeMismatch, fmt.Errorf("chunk %d: expected %d bytes, got %d", chunk.Index, expected, total))
	}

	return nil
}
