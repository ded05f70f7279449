package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yubal/internal/shared"
	"github.com/desertthunder/yubal/internal/tasks"
)

const watchURL = "https://music.youtube.com/watch?v="

var percentPattern = regexp.MustCompile(`\[download\]\s+([0-9]+(?:\.[0-9]+)?)%`)

// YtDlpOpts configures a [YtDlp] downloader.
type YtDlpOpts struct {
	Path        string // binary, default "yt-dlp"
	CookiesFile string
	Command     CommandFunc
	Logger      *log.Logger
}

// YtDlp downloads audio one track at a time with yt-dlp. It implements [tasks.Downloader].
type YtDlp struct {
	path    string
	cookies string
	command CommandFunc
	logger  *log.Logger
}

// NewYtDlp creates a downloader from opts.
func NewYtDlp(opts YtDlpOpts) *YtDlp {
	if opts.Path == "" {
		opts.Path = "yt-dlp"
	}
	if opts.Command == nil {
		opts.Command = DefaultCommand
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &YtDlp{
		path:    opts.Path,
		cookies: opts.CookiesFile,
		command: opts.Command,
		logger:  shared.WithLogger(opts.Logger, "component", "yt-dlp"),
	}
}

// Download fetches every item into req.OutputDir as <Name>.<AudioFormat>.
//
// A failed item is recorded and the batch continues. The batch stops early when req.Cancelled
// reports true or ctx ends; a missing binary fails the whole batch.
func (y *YtDlp) Download(ctx context.Context, req tasks.DownloadRequest, onProgress func(tasks.DownloadProgress)) (*tasks.DownloadResult, error) {
	if req.OutputDir == "" {
		return nil, fmt.Errorf("%w: output directory is required", shared.ErrInvalidInput)
	}
	if req.AudioFormat == "" {
		req.AudioFormat = "opus"
	}
	if onProgress == nil {
		onProgress = func(tasks.DownloadProgress) {}
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	res := &tasks.DownloadResult{}
	total := len(req.Items)
	for i, item := range req.Items {
		if req.Cancelled != nil && req.Cancelled() {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		label := fmt.Sprintf("[%d/%d] %s", i+1, total, item.Name)
		onProgress(tasks.DownloadProgress{Index: i, Percent: 0, Message: "Downloading " + label})

		path, err := y.downloadOne(ctx, req, item, func(pct float64) {
			onProgress(tasks.DownloadProgress{Index: i, Percent: pct, Message: "Downloading " + label})
		})
		if err != nil {
			if errors.Is(err, shared.ErrToolNotFound) {
				return nil, err
			}
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			y.logger.Warn("download failed", "video_id", item.VideoID, "err", err)
			res.Failed = append(res.Failed, i)
			continue
		}

		onProgress(tasks.DownloadProgress{Index: i, Percent: 100, Message: "Downloaded " + label})
		res.Files = append(res.Files, tasks.DownloadedFile{Index: i, Path: path})
	}
	return res, nil
}

func (y *YtDlp) args(req tasks.DownloadRequest, item tasks.DownloadItem) []string {
	args := []string{
		"--no-playlist",
		"--newline",
		"-x",
		"--audio-format", req.AudioFormat,
		"--embed-metadata",
		"--embed-thumbnail",
		"-P", req.OutputDir,
		"-o", item.Name + ".%(ext)s",
	}
	if strings.TrimSpace(y.cookies) != "" {
		args = append(args, "--cookies", y.cookies)
	}
	return append(args, watchURL+item.VideoID)
}

func (y *YtDlp) downloadOne(ctx context.Context, req tasks.DownloadRequest, item tasks.DownloadItem, onPercent func(float64)) (string, error) {
	if item.VideoID == "" {
		return "", fmt.Errorf("%w: missing video id for %q", shared.ErrInvalidInput, item.Name)
	}

	last := -1
	err := run(ctx, y.command, invocation{
		name: y.path,
		args: y.args(req, item),
		onLine: func(stream OutputStream, line string) {
			if stream != StreamStdout {
				return
			}
			pct, ok := parsePercent(line)
			if !ok || int(pct) == last {
				return
			}
			last = int(pct)
			onPercent(pct)
		},
	})
	if err != nil {
		return "", err
	}
	return findOutput(req.OutputDir, item.Name, req.AudioFormat)
}

func parsePercent(line string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// findOutput locates the extracted file, preferring <name>.<format>.
func findOutput(dir, name, format string) (string, error) {
	want := filepath.Join(dir, name+"."+format)
	if _, err := os.Stat(want); err == nil {
		return want, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read output directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), name+".") {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".part", ".ytdl", ".webp", ".jpg", ".png":
			continue
		}
		return filepath.Join(dir, e.Name()), nil
	}
	return "", fmt.Errorf("%w: yt-dlp produced no file for %q", shared.ErrToolFailed, name)
}
