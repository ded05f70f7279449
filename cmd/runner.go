package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yubal/internal/extractor"
	"github.com/desertthunder/yubal/internal/jobs"
	"github.com/desertthunder/yubal/internal/matching"
	"github.com/desertthunder/yubal/internal/services"
	"github.com/desertthunder/yubal/internal/shared"
	"github.com/desertthunder/yubal/internal/tasks"
	"github.com/desertthunder/yubal/internal/tools"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// It is the explicit services container: one catalog, extractor, pipeline and job queue per process.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	// injected overrides; nil means build from config
	customCatalog  services.Catalog
	customPipeline jobs.Pipeline

	catalog   services.Catalog
	pipeline  jobs.Pipeline
	covers    *services.CoverCache
	extractor *extractor.Service
	store     *jobs.Store
	executor  *jobs.Executor
	jobs      *jobs.Manager
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog // defaults to the YouTube Music proxy client
	Pipeline   jobs.Pipeline    // defaults to the yt-dlp/beets sync pipeline
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:         opts.Config,
		configPath:     opts.ConfigPath,
		httpClient:     opts.HTTPClient,
		logger:         opts.Logger,
		output:         opts.Output,
		customCatalog:  opts.Catalog,
		customPipeline: opts.Pipeline,
	}
	r.wire()
	return r
}

// wire (re)builds the services from the current config and logger.
func (r *Runner) wire() {
	cfg := r.config

	r.catalog = r.customCatalog
	if r.catalog == nil {
		r.catalog = services.NewYouTubeMusic(services.YouTubeOpts{
			BaseURL:           cfg.Catalog.ProxyURL,
			AuthFile:          cfg.Catalog.AuthFile,
			RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
			Timeout:           cfg.Catalog.Timeout(),
		})
	}
	r.extractor = extractor.NewService(r.catalog, matching.New(), r.logger)
	r.covers = services.NewCoverCache(r.httpClient)

	r.pipeline = r.customPipeline
	if r.pipeline == nil {
		r.pipeline = tasks.NewSyncService(tasks.SyncOpts{
			Source: r.extractor,
			Downloader: tools.NewYtDlp(tools.YtDlpOpts{
				Path:        cfg.Tools.YtDlpPath,
				CookiesFile: cfg.Tools.CookiesFile,
				Logger:      r.logger,
			}),
			Tagger: tools.NewBeets(tools.BeetsOpts{
				Path:       cfg.Tools.BeetsPath,
				ConfigPath: cfg.Tools.BeetsConfig,
				LibraryDir: cfg.Library.DataDir,
				Logger:     r.logger,
			}),
			TempDir:      cfg.Library.TempDir,
			PlaylistsDir: playlistsDir(cfg.Library),
			AudioFormat:  cfg.Tools.AudioFormat,
			Logger:       r.logger,
		})
	}

	r.store = jobs.NewStore(jobs.StoreOpts{
		MaxPending: cfg.Jobs.MaxPending,
		MaxJobs:    cfg.Jobs.MaxJobs,
		ListLimit:  cfg.Jobs.ListLimit,
		LogLimit:   cfg.Jobs.LogLimit,
	})
	r.executor = jobs.NewExecutor(jobs.ExecutorOpts{Store: r.store, Pipeline: r.pipeline, Logger: r.logger})
	r.jobs = jobs.NewManager(r.store, r.executor, r.logger)
}

// playlistsDir resolves the playlists directory relative to the library root.
func playlistsDir(lib shared.LibraryConfig) string {
	if lib.PlaylistsDir == "" || filepath.IsAbs(lib.PlaylistsDir) {
		return lib.PlaylistsDir
	}
	return filepath.Join(lib.DataDir, lib.PlaylistsDir)
}

// SetConfig replaces the configuration and rewires every service.
func (r *Runner) SetConfig(cfg *shared.Config) {
	r.config = cfg
	r.wire()
}

// SetLogger swaps the logger, e.g. for a file logger while the terminal monitor owns the screen.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.wire()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, extractCommand, syncCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
