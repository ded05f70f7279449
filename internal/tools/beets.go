package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yubal/internal/shared"
	"github.com/desertthunder/yubal/internal/tasks"
)

const defaultImportTimeout = 5 * time.Minute

// BeetsOpts configures a [Beets] tagger.
type BeetsOpts struct {
	Path       string // binary, default "beet"
	ConfigPath string // beets config.yaml; its directory becomes BEETSDIR
	LibraryDir string
	Timeout    time.Duration
	Command    CommandFunc
	Logger     *log.Logger
}

// Beets tags and moves albums into the library with `beet import -q`. It implements [tasks.Tagger].
type Beets struct {
	path       string
	configPath string
	libraryDir string
	timeout    time.Duration
	command    CommandFunc
	logger     *log.Logger
}

// NewBeets creates a tagger from opts.
func NewBeets(opts BeetsOpts) *Beets {
	if opts.Path == "" {
		opts.Path = "beet"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultImportTimeout
	}
	if opts.Command == nil {
		opts.Command = DefaultCommand
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Beets{
		path:       opts.Path,
		configPath: opts.ConfigPath,
		libraryDir: opts.LibraryDir,
		timeout:    opts.Timeout,
		command:    opts.Command,
		logger:     shared.WithLogger(opts.Logger, "component", "beets"),
	}
}

func (b *Beets) args(sourceDir string) []string {
	var args []string
	if b.configPath != "" {
		args = append(args, "--config", b.configPath)
	}
	return append(args, "--directory", b.libraryDir, "import", "-q", sourceDir)
}

// Import runs a quiet import of req.SourceDir and returns the album directory beets created.
//
// Both output streams are relayed to onLine. Prompts are answered with newlines on stdin.
func (b *Beets) Import(ctx context.Context, req tasks.ImportRequest, onLine func(string)) (string, error) {
	if len(req.Files) == 0 {
		return "", fmt.Errorf("%w: no audio files provided", shared.ErrInvalidInput)
	}
	if req.SourceDir == "" {
		req.SourceDir = filepath.Dir(req.Files[0])
	}
	if b.libraryDir == "" {
		return "", fmt.Errorf("%w: library directory not configured", shared.ErrInvalidConfig)
	}
	if err := os.MkdirAll(b.libraryDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create library directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var env []string
	if b.configPath != "" {
		env = append(env, "BEETSDIR="+filepath.Dir(b.configPath))
	}

	var mu sync.Mutex
	started := time.Now()
	b.logger.Info("running beets import", "source", req.SourceDir, "files", len(req.Files))

	err := run(ctx, b.command, invocation{
		name:  b.path,
		args:  b.args(req.SourceDir),
		env:   env,
		stdin: strings.NewReader(strings.Repeat("\n", 10)),
		onLine: func(_ OutputStream, line string) {
			line = strings.TrimRight(line, " \t")
			if line == "" {
				return
			}
			if strings.Contains(strings.ToLower(line), "error") {
				b.logger.Error("[beets] " + line)
			} else {
				b.logger.Debug("[beets] " + line)
			}
			if onLine != nil {
				mu.Lock()
				onLine(line)
				mu.Unlock()
			}
		},
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: beets import timed out after %s", shared.ErrTimeout, b.timeout)
	}
	if err != nil {
		return "", err
	}

	if dest := newestAlbumDir(b.libraryDir, started); dest != "" {
		return dest, nil
	}
	return b.libraryDir, nil
}

// newestAlbumDir returns the most recently modified <artist>/<album> directory under lib, ignoring
// anything older than since.
func newestAlbumDir(lib string, since time.Time) string {
	artists, err := os.ReadDir(lib)
	if err != nil {
		return ""
	}

	var newest string
	var newestTime time.Time
	for _, artist := range artists {
		if !artist.IsDir() {
			continue
		}
		albums, err := os.ReadDir(filepath.Join(lib, artist.Name()))
		if err != nil {
			continue
		}
		for _, album := range albums {
			if !album.IsDir() {
				continue
			}
			info, err := album.Info()
			if err != nil {
				continue
			}
			if mt := info.ModTime(); mt.After(newestTime) {
				newestTime = mt
				newest = filepath.Join(lib, artist.Name(), album.Name())
			}
		}
	}
	if newest == "" || newestTime.Before(since.Add(-time.Second)) {
		return ""
	}
	return newest
}
