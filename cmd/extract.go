package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/desertthunder/yubal/internal/formatter"
	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
	"github.com/desertthunder/yubal/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Extract resolves track metadata for the given URLs.
//
// A single URL without --output is rendered to stdout; otherwise every URL is exported into the output
// directory concurrently alongside a manifest.
func (r *Runner) Extract(ctx context.Context, cmd *cli.Command) error {
	urls, err := urlArgs(cmd)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if !formatter.IsSupportedFormat(format) {
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	maxItems := cmd.Int("max-items")
	if maxItems < 0 {
		return fmt.Errorf("%w: --max-items must not be negative", shared.ErrInvalidFlag)
	}

	output := cmd.String("output")
	if output == "" && len(urls) == 1 {
		return r.extractOne(ctx, urls[0], format, maxItems, cmd.Bool("pretty"))
	}
	return r.extractBulk(ctx, urls, tasks.BulkExtractOpts{
		Format:     format,
		OutputDir:  output,
		MaxItems:   maxItems,
		NumWorkers: cmd.Int("workers"),
		FetchCover: r.covers.Get,
	})
}

func (r *Runner) extractOne(ctx context.Context, url, format string, maxItems int, pretty bool) error {
	res, err := tasks.Collect(ctx, r.extractor, url, maxItems)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if format == formatter.FormatJSON {
		if err := r.writeJSON(res, pretty); err != nil {
			return err
		}
	} else {
		data, err := formatter.Export(res, format)
		if err != nil {
			return err
		}
		if err := r.writePlain("%s", data); err != nil {
			return err
		}
	}

	r.logSkipSummary(res)
	return nil
}

func (r *Runner) extractBulk(ctx context.Context, urls []string, opts tasks.BulkExtractOpts) error {
	prog := make(chan tasks.BulkUpdate, len(urls)*2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.logger.Info(u.Message)
		}
	}()

	result, err := tasks.BulkExtract(ctx, prog, r.extractor, urls, opts)
	close(prog)
	<-done
	if result == nil {
		return fmt.Errorf("bulk extraction failed: %w", err)
	}

	r.writePlainHeader("Extraction summary")
	r.writePlain("URLs:      %d\n", result.Total)
	r.writePlain("Succeeded: %d\n", result.Succeeded)
	r.writePlain("Failed:    %d\n", result.Failed)
	r.writePlain("Output:    %s\n", result.OutputDirectory)
	for _, item := range result.Results {
		if !item.Success {
			r.writePlain("  ✗ %s: %s\n", item.URL, item.Error)
		}
	}
	if result.ManifestPath != "" {
		r.writePlainln("Manifest: %s", result.ManifestPath)
	}
	return err
}

func (r *Runner) logSkipSummary(res *models.ExtractResult) {
	kv := []any{"title", res.PlaylistInfo.Title, "tracks", len(res.Tracks), "skipped", res.Skipped()}

	reasons := make([]string, 0, len(res.SkippedByReason))
	for reason := range res.SkippedByReason {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		kv = append(kv, reason, res.SkippedByReason[models.SkipReason(reason)])
	}
	r.logger.Info("extraction complete", kv...)
}
