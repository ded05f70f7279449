// package formatter writes extraction results to files (JSON, CSV, Markdown, plain text) and playlists to M3U
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
)

// Supported export formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// IsSupportedFormat reports whether f names an export format.
func IsSupportedFormat(f string) bool {
	switch f {
	case FormatJSON, FormatCSV, FormatMarkdown, FormatText:
		return true
	}
	return false
}

// CoverFetcher returns image bytes for a cover URL.
type CoverFetcher func(ctx context.Context, url string) ([]byte, error)

var csvHeaders = []string{
	"Track", "Title", "Artists", "Album", "Album Artists", "Year",
	"Video Type", "OMV Video ID", "ATV Video ID", "Kind", "Confidence",
}

// ExportToCSV converts extracted tracks to CSV, one row per track.
func ExportToCSV(res *models.ExtractResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range res.Tracks {
		record := []string{
			trackNumber(t),
			t.Title,
			strings.Join(t.Artists, "; "),
			t.Album,
			strings.Join(t.AlbumArtists, "; "),
			t.Year,
			t.VideoType.Short(),
			t.OMVVideoID,
			t.ATVVideoID,
			string(t.Kind),
			string(t.Confidence),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders extracted tracks as a Markdown document, linking imageFilename as the cover when set.
func ExportToMarkdown(res *models.ExtractResult, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer
	info := res.PlaylistInfo

	fmt.Fprintf(&buf, "# %s\n\n", displayTitle(info))
	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}
	if info.Author != "" {
		fmt.Fprintf(&buf, "**Author**: %s\n\n", info.Author)
	}

	fmt.Fprintf(&buf, "**Kind**: %s\n", info.Kind)
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(res.Tracks))
	if n := res.Skipped(); n > 0 {
		fmt.Fprintf(&buf, "**Skipped**: %d\n", n)
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, t := range res.Tracks {
		album := ""
		if t.Album != "" {
			album = fmt.Sprintf(" (%s)", t.Album)
		}
		flag := ""
		if t.Confidence == models.ConfidenceLow {
			flag = " *low confidence*"
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s%s\n", i+1, strings.Join(t.Artists, ", "), t.Title, album, flag)
	}

	if len(info.UnavailableTracks) > 0 {
		buf.WriteString("\n## Unavailable\n\n")
		for _, u := range info.UnavailableTracks {
			fmt.Fprintf(&buf, "- %s - %s\n", strings.Join(u.Artists, ", "), u.Title)
		}
	}
	return buf.Bytes(), nil
}

// ExportToText renders extracted tracks as plain text.
func ExportToText(res *models.ExtractResult) ([]byte, error) {
	var buf bytes.Buffer
	info := res.PlaylistInfo

	fmt.Fprintf(&buf, "%s: %s\n", kindLabel(info.Kind), displayTitle(info))
	if info.Author != "" {
		fmt.Fprintf(&buf, "Author: %s\n", info.Author)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n", len(res.Tracks))
	if n := res.Skipped(); n > 0 {
		fmt.Fprintf(&buf, "Skipped: %d\n", n)
	}
	buf.WriteString("\n")

	for i, t := range res.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, strings.Join(t.Artists, ", "), t.Title)
	}
	return buf.Bytes(), nil
}

// ExportToJSON encodes the full result, indented.
func ExportToJSON(res *models.ExtractResult) ([]byte, error) {
	return shared.MarshalJSON(res, true)
}

// Export renders res in format.
func Export(res *models.ExtractResult, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(res)
	case FormatMarkdown:
		return ExportToMarkdown(res, "")
	case FormatText:
		return ExportToText(res)
	case FormatJSON, "":
		return ExportToJSON(res)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// WriteOpts controls [WriteExport].
type WriteOpts struct {
	Format     string
	OutputDir  string
	FetchCover CoverFetcher // used by the Markdown format; optional
}

// WriteExport writes res under opts.OutputDir and returns the created files.
//
// File names derive from the sanitized playlist id:
//   - json: {base}.json
//   - csv: {base}_tracks.csv and {base}_metadata.json
//   - txt: {base}_tracks.txt
//   - markdown: {base}/README.md and optionally {base}/cover.jpg
func WriteExport(ctx context.Context, res *models.ExtractResult, opts WriteOpts) ([]string, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := filepath.Join(opts.OutputDir, baseName(res.PlaylistInfo))

	switch opts.Format {
	case FormatCSV:
		return writeCSV(res, base)
	case FormatMarkdown:
		return writeMarkdown(ctx, res, base, opts.FetchCover)
	case FormatText:
		return writeFile(base+"_tracks.txt", res, ExportToText)
	case FormatJSON, "":
		return writeFile(base+".json", res, ExportToJSON)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, opts.Format)
	}
}

func writeFile(path string, res *models.ExtractResult, render func(*models.ExtractResult) ([]byte, error)) ([]string, error) {
	data, err := render(res)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return []string{path}, nil
}

func writeCSV(res *models.ExtractResult, base string) ([]string, error) {
	tracks, err := writeFile(base+"_tracks.csv", res, ExportToCSV)
	if err != nil {
		return nil, err
	}

	meta, err := shared.MarshalJSON(res.PlaylistInfo, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}
	metaPath := base + "_metadata.json"
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}
	return append(tracks, metaPath), nil
}

func writeMarkdown(ctx context.Context, res *models.ExtractResult, dir string, fetch CoverFetcher) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var files []string
	var cover string
	if url := res.PlaylistInfo.CoverURL; url != "" && fetch != nil {
		if data, err := fetch(ctx, url); err == nil {
			path := filepath.Join(dir, "cover.jpg")
			if err := os.WriteFile(path, data, 0o644); err == nil {
				cover = "cover.jpg"
				files = append(files, path)
			}
		}
	}

	data, err := ExportToMarkdown(res, cover)
	if err != nil {
		return nil, err
	}
	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return append(files, readme), nil
}

type manifest struct {
	Format string `json:"format"`
	*models.BulkExtractResult
}

// WriteBulkManifest writes a JSON summary of a bulk extraction to path.
func WriteBulkManifest(res *models.BulkExtractResult, format, path string) error {
	if format == "" {
		format = FormatJSON
	}
	data, err := shared.MarshalJSON(manifest{Format: format, BulkExtractResult: res}, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func trackNumber(t models.TrackMetadata) string {
	if t.TrackNumber <= 0 {
		return ""
	}
	if t.TotalTracks > 0 {
		return fmt.Sprintf("%d/%d", t.TrackNumber, t.TotalTracks)
	}
	return strconv.Itoa(t.TrackNumber)
}

func displayTitle(info models.PlaylistInfo) string {
	if info.Title != "" {
		return info.Title
	}
	if info.PlaylistID != "" {
		return info.PlaylistID
	}
	return "Untitled"
}

func kindLabel(k models.ContentKind) string {
	switch k {
	case models.KindAlbum:
		return "Album"
	case models.KindTrack:
		return "Track"
	default:
		return "Playlist"
	}
}

func baseName(info models.PlaylistInfo) string {
	if info.PlaylistID != "" {
		return shared.SanitizeFilename(info.PlaylistID)
	}
	return shared.SanitizeFilename(info.Title)
}
