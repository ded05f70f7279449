package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yubal/internal/formatter"
	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
)

// Overall progress bands of a sync.
const (
	progressStart        float64 = 0
	progressFetchDone    float64 = 10
	progressDownloadDone float64 = 80
	progressImportDone   float64 = 90
)

// Source yields extraction progress for a URL. [extractor.Service] satisfies it.
type Source interface {
	Extract(ctx context.Context, url string, maxItems int) iter.Seq2[models.ExtractProgress, error]
}

// DownloadItem is one track to fetch.
type DownloadItem struct {
	VideoID string
	Name    string // file name without extension
}

// DownloadRequest describes a batch download into OutputDir.
type DownloadRequest struct {
	Items       []DownloadItem
	OutputDir   string
	AudioFormat string
	Cancelled   func() bool // polled between items
}

// DownloadedFile is a finished download of Items[Index].
type DownloadedFile struct {
	Index int
	Path  string
}

// DownloadResult lists what the downloader produced. Failed holds item indexes.
type DownloadResult struct {
	Files  []DownloadedFile
	Failed []int
}

// Downloader fetches audio for a batch of tracks.
//
// Individual item failures are reported in [DownloadResult.Failed]; an error means the batch could not run.
type Downloader interface {
	Download(ctx context.Context, req DownloadRequest, onProgress func(DownloadProgress)) (*DownloadResult, error)
}

// ImportRequest asks a tagger to import the audio files in SourceDir.
type ImportRequest struct {
	SourceDir string
	Files     []string
}

// Tagger tags downloaded files and moves them into the library, returning the destination.
type Tagger interface {
	Import(ctx context.Context, req ImportRequest, onLine func(string)) (string, error)
}

// SyncRequest is the input of one pipeline run.
type SyncRequest struct {
	JobID       string
	URL         string
	AudioFormat string
	MaxItems    int
}

// SyncResult is the pipeline outcome. The executor derives the job's terminal state from it.
type SyncResult struct {
	Success     bool
	Cancelled   bool
	AlbumInfo   *models.AlbumInfo
	Destination string
	Error       string
	Downloaded  int
	Skipped     int
}

// SyncOpts configures a [SyncService].
type SyncOpts struct {
	Source       Source
	Downloader   Downloader
	Tagger       Tagger
	TempDir      string // base for per-job directories; defaults to $TMPDIR/yubal
	PlaylistsDir string // destination root for non-album collections
	AudioFormat  string
	Logger       *log.Logger
}

// SyncService runs extract → download → import → playlist file for one URL.
type SyncService struct {
	source       Source
	downloader   Downloader
	tagger       Tagger
	tempDir      string
	playlistsDir string
	audioFormat  string
	logger       *log.Logger
}

// NewSyncService creates a pipeline from opts.
func NewSyncService(opts SyncOpts) *SyncService {
	if opts.TempDir == "" {
		opts.TempDir = filepath.Join(os.TempDir(), "yubal")
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = "opus"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &SyncService{
		source:       opts.Source,
		downloader:   opts.Downloader,
		tagger:       opts.Tagger,
		tempDir:      opts.TempDir,
		playlistsDir: opts.PlaylistsDir,
		audioFormat:  opts.AudioFormat,
		logger:       shared.WithLogger(opts.Logger, "component", "sync"),
	}
}

// Run executes the pipeline. It never panics on pipeline errors; failures are reported in the result.
//
// Cancellation is checked between phases and per extracted entry. A cancelled run returns with Cancelled set.
func (s *SyncService) Run(ctx context.Context, req SyncRequest, em Emitter, token *CancelToken) SyncResult {
	if em == nil {
		em = NullEmitter{}
	}
	if token == nil {
		token = NewCancelToken()
	}
	logger := shared.WithLogger(s.logger, "job", req.JobID)

	var res SyncResult
	fail := func(format string, args ...any) SyncResult {
		res.Error = fmt.Sprintf(format, args...)
		logger.Error("sync failed", "err", res.Error)
		return res
	}
	cancelled := func() SyncResult {
		res.Cancelled = true
		res.Error = shared.ErrJobCancelled.Error()
		logger.Info("sync cancelled")
		return res
	}

	emit(em, StepFetchingInfo, "Fetching metadata...", progressStart)

	result, err := s.collect(ctx, req, em, token)
	if token.IsCancelled() {
		return cancelled()
	}
	if err != nil {
		return fail("Failed to fetch metadata: %v", err)
	}
	res.Skipped = result.Skipped()
	if len(result.Tracks) == 0 {
		return fail("%v", shared.ErrNoTracks)
	}

	info := buildAlbumInfo(req.URL, result.PlaylistInfo, result.Tracks)
	res.AlbumInfo = info
	fetched := progressFetchDone
	em.Emit(ProgressEvent{
		Step:      StepFetchingInfo,
		Message:   fmt.Sprintf("Found %d tracks: %s", len(result.Tracks), info.Title),
		Progress:  &fetched,
		AlbumInfo: info,
	})
	if token.IsCancelled() {
		return cancelled()
	}

	dir, cleanup, err := s.jobTempDir(req.JobID)
	if err != nil {
		return fail("%v", err)
	}
	defer cleanup()

	items := downloadItems(result.Tracks, info.Kind)
	format := req.AudioFormat
	if format == "" {
		format = s.audioFormat
	}

	emit(em, StepDownloading, fmt.Sprintf("Downloading %d tracks...", len(items)), progressFetchDone)
	dl, err := s.downloader.Download(ctx, DownloadRequest{
		Items:       items,
		OutputDir:   dir,
		AudioFormat: format,
		Cancelled:   token.IsCancelled,
	}, scaledDownloadProgress(em, len(items), progressFetchDone, progressDownloadDone))
	if token.IsCancelled() {
		return cancelled()
	}
	if err != nil {
		return fail("Download failed: %v", err)
	}
	if dl == nil {
		dl = &DownloadResult{}
	}
	if len(dl.Files) == 0 {
		return fail("No tracks were downloaded")
	}
	if len(dl.Failed) > 0 {
		logger.Warn("partial download", "downloaded", len(dl.Files), "failed", len(dl.Failed))
	}
	res.Downloaded = len(dl.Files)
	emit(em, StepDownloading, fmt.Sprintf("Downloaded %d/%d tracks", len(dl.Files), len(items)), progressDownloadDone)

	if token.IsCancelled() {
		return cancelled()
	}

	var dest string
	if info.Kind == models.KindPlaylist {
		dest, err = s.organizePlaylist(info, result.Tracks, dl.Files, em)
	} else {
		dest, err = s.importLibrary(ctx, dir, dl.Files, em)
	}
	if err != nil {
		return fail("Import failed: %v", err)
	}

	res.Success = true
	res.Destination = dest
	logger.Info("sync complete", "destination", dest, "tracks", res.Downloaded, "skipped", res.Skipped)
	return res
}

// collect drains the extraction sequence, mapping entry progress onto the fetch band.
func (s *SyncService) collect(ctx context.Context, req SyncRequest, em Emitter, token *CancelToken) (*models.ExtractResult, error) {
	out := &models.ExtractResult{URL: req.URL}
	for prog, err := range s.source.Extract(ctx, req.URL, req.MaxItems) {
		if err != nil {
			return out, err
		}
		if token.IsCancelled() {
			return out, shared.ErrJobCancelled
		}

		out.PlaylistInfo = prog.PlaylistInfo
		out.SkippedByReason = prog.SkippedByReason
		if prog.Track != nil {
			out.Tracks = append(out.Tracks, *prog.Track)
		}

		if prog.Total > 0 {
			pct := progressFetchDone * float64(prog.Current) / float64(prog.Total)
			emit(em, StepFetchingInfo, fmt.Sprintf("Extracting metadata [%d/%d]", prog.Current, prog.Total), min(pct, progressFetchDone))
		}
	}
	return out, nil
}

func (s *SyncService) importLibrary(ctx context.Context, dir string, files []DownloadedFile, em Emitter) (string, error) {
	emit(em, StepImporting, "Importing with beets...", progressDownloadDone)

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}

	dest, err := s.tagger.Import(ctx, ImportRequest{SourceDir: dir, Files: paths}, func(line string) {
		emitMessage(em, StepImporting, "[beets] "+line)
	})
	if err != nil {
		return "", err
	}

	emit(em, StepImporting, "Import complete", progressImportDone)
	return dest, nil
}

// organizePlaylist moves downloads into PlaylistsDir/<name>/ and writes an M3U next to them.
func (s *SyncService) organizePlaylist(info *models.AlbumInfo, tracks []models.TrackMetadata, files []DownloadedFile, em Emitter) (string, error) {
	if s.playlistsDir == "" {
		return "", fmt.Errorf("%w: playlists directory not configured", shared.ErrInvalidConfig)
	}

	name := shared.SanitizeFilename(info.Title)
	dest := filepath.Join(s.playlistsDir, name)
	emit(em, StepImporting, "Organizing files...", progressDownloadDone)

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("failed to create playlist directory: %w", err)
	}

	entries := make([]formatter.M3UEntry, 0, len(files))
	for _, f := range files {
		target := filepath.Join(dest, filepath.Base(f.Path))
		if err := moveFile(f.Path, target); err != nil {
			return "", err
		}
		if f.Index < 0 || f.Index >= len(tracks) {
			s.logger.Warn("downloaded file without metadata", "file", filepath.Base(f.Path))
			continue
		}
		t := tracks[f.Index]
		entries = append(entries, formatter.M3UEntry{
			Artist: strings.Join(t.Artists, ", "),
			Title:  t.Title,
			Path:   filepath.Base(target),
		})
	}

	emit(em, StepImporting, "Writing playlist file...", progressImportDone)
	path := filepath.Join(dest, name+".m3u")
	if err := formatter.WriteM3U(path, info.Title, entries); err != nil {
		return "", err
	}
	return dest, nil
}

func (s *SyncService) jobTempDir(jobID string) (string, func(), error) {
	if jobID == "" {
		jobID = shared.GenerateID()
	}
	dir := filepath.Join(s.tempDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove temp directory", "dir", dir, "err", err)
		}
	}, nil
}

func downloadItems(tracks []models.TrackMetadata, kind models.ContentKind) []DownloadItem {
	items := make([]DownloadItem, 0, len(tracks))
	for i, t := range tracks {
		n := i + 1
		if kind != models.KindPlaylist && t.TrackNumber > 0 {
			n = t.TrackNumber
		}
		items = append(items, DownloadItem{
			VideoID: t.VideoID(),
			Name:    shared.SanitizeFilename(fmt.Sprintf("%02d - %s - %s", n, t.PrimaryArtist(), t.Title)),
		})
	}
	return items
}

func buildAlbumInfo(url string, info models.PlaylistInfo, tracks []models.TrackMetadata) *models.AlbumInfo {
	first := tracks[0]
	out := &models.AlbumInfo{
		TrackCount:   len(tracks),
		PlaylistID:   info.PlaylistID,
		URL:          url,
		ThumbnailURL: info.CoverURL,
		Kind:         info.Kind,
	}

	switch info.Kind {
	case models.KindAlbum:
		out.Title = first.Album
		out.Artist = strings.Join(first.AlbumArtists, ", ")
		out.Year = first.Year
		if first.CoverURL != "" {
			out.ThumbnailURL = first.CoverURL
		}
	case models.KindTrack:
		out.Title = first.Title
		out.Artist = first.PrimaryArtist()
		out.Year = first.Year
		if first.CoverURL != "" {
			out.ThumbnailURL = first.CoverURL
		}
	default:
		out.Title = info.Title
		out.Artist = info.Author
		if out.Artist == "" {
			out.Artist = "Various Artists"
		}
	}

	if out.Title == "" {
		out.Title = info.Title
	}
	if out.Title == "" {
		out.Title = "Unknown"
	}
	if out.Artist == "" {
		out.Artist = "Unknown Artist"
	}
	return out
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		return errors.Join(fmt.Errorf("failed to copy %s: %w", src, err), out.Close())
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
