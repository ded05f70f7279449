// submodule cmd contains command definitions
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yubal/internal/formatter"
	"github.com/desertthunder/yubal/internal/shared"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
		Sources: cli.EnvVars("YUBAL_CONFIG"),
	}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable debug logging",
		Sources: cli.EnvVars("YUBAL_VERBOSE"),
	}
}

// Before loads an explicitly requested config file and applies the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if !cmd.IsSet("config") || path == r.configPath {
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	r.configPath = path
	r.SetConfig(config)
	return ctx, nil
}

// serveCommand runs the HTTP job API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP job API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Usage:   "Listen address (overrides server.host)",
				Sources: cli.EnvVars("YUBAL_HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
				Sources: cli.EnvVars("YUBAL_PORT"),
			},
		},
		Action: r.Serve,
	}
}

// extractCommand runs the metadata extractor without downloading anything
func extractCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract track metadata for one or more URLs",
		ArgsUsage: "<url>...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "max-items",
				Aliases: []string{"n"},
				Usage:   "Maximum number of entries to process per URL (0 for no limit)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json, csv, markdown or txt",
				Value:   formatter.FormatJSON,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write exports to this directory instead of stdout",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent extractions when writing several URLs",
				Value: 3,
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Extract,
	}
}

// syncCommand runs sync jobs locally under the terminal monitor
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Download, tag and organize one or more URLs",
		ArgsUsage: "<url>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "audio-format",
				Usage:   "Audio format passed to yt-dlp (overrides tools.audio_format)",
				Sources: cli.EnvVars("YUBAL_AUDIO_FORMAT"),
			},
			&cli.IntFlag{
				Name:    "max-items",
				Aliases: []string{"n"},
				Usage:   "Maximum number of entries to sync per URL (0 for no limit)",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print progress lines instead of the interactive monitor",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file used while the monitor owns the terminal",
				Value: "./tmp/yubal-sync.log",
			},
		},
		Action: r.Sync,
	}
}

// setupCommand handles setup operations for configuration and authentication.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write config.toml from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output",
						Usage: "Destination path (default: --config)",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:    "youtube",
				Aliases: []string{"yt", "ytmusic"},
				Usage:   "Configure YouTube Music authentication from browser headers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Output path for browser.json (default: catalog.auth_file)",
					},
				},
				Action: r.SetupYouTube,
			},
		},
	}
}

// urlArgs returns the positional URLs, rejecting unsupported ones up front.
func urlArgs(cmd *cli.Command) ([]string, error) {
	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: at least one URL is required", shared.ErrMissingArgument)
	}
	for _, url := range urls {
		if !shared.IsSupportedURL(url) {
			return nil, fmt.Errorf("%w: %s", shared.ErrInvalidURL, url)
		}
	}
	return urls, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
