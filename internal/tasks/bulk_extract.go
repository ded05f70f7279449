package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/yubal/internal/formatter"
	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
	"golang.org/x/time/rate"
)

// BulkUpdate is a progress line from [BulkExtract].
type BulkUpdate struct {
	Step    int
	Total   int
	Message string
}

// BulkExtractOpts configures a bulk extraction.
type BulkExtractOpts struct {
	Format     string                 // json, csv, markdown, txt
	OutputDir  string                 // default: yubal_extract_{epoch}
	MaxItems   int                    // per URL; 0 means no limit
	NumWorkers int                    // default 3, capped at 10
	RateLimit  float64                // URLs started per second (default 2)
	FetchCover formatter.CoverFetcher // optional, for markdown covers
}

type bulkJob struct {
	index int
	url   string
}

type bulkOutcome struct {
	index int
	item  models.BulkItemResult
}

// BulkExtract extracts many URLs concurrently and writes one export per URL plus a manifest.
//
// Per-URL failures are recorded in the result and do not stop the run. The returned error is
// reserved for setup and manifest failures.
func BulkExtract(ctx context.Context, prog chan<- BulkUpdate, src Source, urls []string, opts BulkExtractOpts) (*models.BulkExtractResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: extractor not initialized", shared.ErrServiceUnavailable)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no URLs", shared.ErrMissingArgument)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("yubal_extract_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if !formatter.IsSupportedFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, opts.Format)
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &models.BulkExtractResult{
		Total:           len(urls),
		OutputDirectory: opts.OutputDir,
		Results:         make([]models.BulkItemResult, len(urls)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan bulkJob)
	results := make(chan bulkOutcome, len(urls))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				item := extractOne(ctx, src, j.url, opts)
				results <- bulkOutcome{index: j.index, item: item}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, url := range urls {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			sendUpdate(prog, BulkUpdate{Step: i + 1, Total: len(urls), Message: fmt.Sprintf("[%d/%d] Extracting: %s", i+1, len(urls), url)})
			select {
			case jobs <- bulkJob{index: i, url: url}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := make([]bool, len(urls))
	completed := 0
	for r := range results {
		completed++
		done[r.index] = true
		result.Results[r.index] = r.item

		if r.item.Success {
			result.Succeeded++
			sendUpdate(prog, BulkUpdate{Step: completed, Total: len(urls),
				Message: fmt.Sprintf("[%d/%d] ✓ %s (%d tracks, %d skipped)", completed, len(urls), r.item.Title, r.item.Tracks, r.item.Skipped)})
		} else {
			result.Failed++
			sendUpdate(prog, BulkUpdate{Step: completed, Total: len(urls),
				Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", completed, len(urls), r.item.URL, r.item.Error)})
		}
	}

	for i, ok := range done {
		if ok {
			continue
		}
		msg := "not started"
		if err := context.Cause(ctx); err != nil {
			msg = err.Error()
		}
		result.Failed++
		result.Results[i] = models.BulkItemResult{URL: urls[i], Error: msg}
	}

	manifestPath := filepath.Join(opts.OutputDir, "extract_manifest.json")
	if err := formatter.WriteBulkManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("extraction completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func extractOne(ctx context.Context, src Source, url string, opts BulkExtractOpts) models.BulkItemResult {
	item := models.BulkItemResult{URL: url}

	res, err := Collect(ctx, src, url, opts.MaxItems)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.Title = res.PlaylistInfo.Title
	item.Tracks = len(res.Tracks)
	item.Skipped = res.Skipped()

	files, err := formatter.WriteExport(ctx, res, formatter.WriteOpts{
		Format:     opts.Format,
		OutputDir:  opts.OutputDir,
		FetchCover: opts.FetchCover,
	})
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.Files = files
	item.Success = true
	return item
}

// Collect drains src for url into an [models.ExtractResult].
func Collect(ctx context.Context, src Source, url string, maxItems int) (*models.ExtractResult, error) {
	out := &models.ExtractResult{URL: url}
	for prog, err := range src.Extract(ctx, url, maxItems) {
		if err != nil {
			return nil, err
		}
		out.PlaylistInfo = prog.PlaylistInfo
		out.SkippedByReason = prog.SkippedByReason
		if prog.Track != nil {
			out.Tracks = append(out.Tracks, *prog.Track)
		}
	}
	return out, nil
}

// sendUpdate is a non-blocking send; a nil channel discards updates.
func sendUpdate(ch chan<- BulkUpdate, u BulkUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- u:
	default:
	}
}
