package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/vfaronov/httpheader"

	"chunkdl/internal/retrypolicy"
	"chunkdl/internal/xlog"
)

// ProbeResult captures what the probe reveals about the target before any
// chunk bytes are fetched (spec.md §4.5 step 2).
type ProbeResult struct {
	Size          int64
	SupportsRange bool
	ETag          *string
	LastModified  *string
	Filename      string
	ContentType   string
}

// Probe issues a HEAD request to determine server capabilities without
// downloading any body (spec.md §4.5 step 2, §6 wire protocol: "Probe: HEAD
// url"). A non-success status is classified as ServerError; a transport
// failure as NetworkError, retryable once at this level via a small
// built-in retry loop (shaped after internal/engine/probe.go ProbeServer's
// retry loop).
func Probe(ctx context.Context, client *http.Client, rawurl, userAgent string) (*ProbeResult, error) {
	xlog.Debug("probing %s", rawurl)

	var resp *http.Response
	var err error

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Second)
			xlog.Debug("retrying probe: attempt %d", attempt+1)
		}

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		req, reqErr := http.NewRequestWithContext(probeCtx, http.MethodHead, rawurl, nil)
		if reqErr != nil {
			cancel()
			return nil, retrypolicy.New(retrypolicy.KindInvalidURL, reqErr)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err = client.Do(req)
		cancel()
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, retrypolicy.New(retrypolicy.KindNetworkError, fmt.Errorf("probe failed after retries: %w", err))
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, retrypolicy.NewServerError(resp.StatusCode, fmt.Errorf("unexpected probe status %d", resp.StatusCode))
	}

	result := &ProbeResult{
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    extractFilename(rawurl, resp.Header),
		Size:        resp.ContentLength,
	}

	for _, unit := range httpheader.AcceptRanges(resp.Header) {
		if unit == "bytes" {
			result.SupportsRange = true
			break
		}
	}

	if tag, ok := httpheader.ETag(resp.Header); ok {
		v := tag.String()
		result.ETag = &v
	}

	if lm := httpheader.LastModified(resp.Header); !lm.IsZero() {
		v := lm.Format(http.TimeFormat)
		result.LastModified = &v
	}

	xlog.Debug("probe complete: size=%d range=%v etag=%v", result.Size, result.SupportsRange, result.ETag)
	return result, nil
}

// extractFilename derives a destination basename from Content-Disposition
// first, falling back to the URL path, matching the teacher's
// probeServer/extractFilename heuristic.
func extractFilename(rawurl string, header http.Header) string {
	if _, name, err := httpheader.ContentDisposition(header); err == nil && name != "" {
		return filepath.Base(name)
	}

	if parsed, err := url.Parse(rawurl); err == nil {
		name := filepath.Base(parsed.Path)
		if name != "" && name != "." && name != "/" {
			return name
		}
	}

	return "download.bin"
}

// ProbeMirrors concurrently probes a list of candidate mirror URLs and
// partitions them into range-capable and rejected, supplementing the core
// single-source spec with the teacher's mirror-selection feature.
func ProbeMirrors(ctx context.Context, client *http.Client, userAgent string, mirrors []string) (valid []string, rejected map[string]error) {
	seen := make(map[string]bool)
	var candidates []string
	for _, m := range mirrors {
		if !seen[m] {
			seen[m] = true
			candidates = append(candidates, m)
		}
	}

	valid = make([]string, 0, len(candidates))
	rejected = make(map[string]error)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, target := range candidates {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			result, err := Probe(probeCtx, client, target, userAgent)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rejected[target] = err
				return
			}
			if result.SupportsRange {
				valid = append(valid, target)
			} else {
				rejected[target] = fmt.Errorf("does not support byte ranges")
			}
		}(target)
	}

	wg.Wait()
	xlog.Debug("mirror probe complete: %d valid, %d rejected", len(valid), len(rejected))
	return valid, rejected
}
