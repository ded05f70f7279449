package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/yubal/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded config template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		path = cmd.String("config")
	}

	if fileExists(path) {
		return fmt.Errorf("%w: config file already exists at %s", shared.ErrInvalidArgument, path)
	}
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Point catalog.proxy_url at your ytmusicapi proxy\n")
	r.writePlain("2. Run 'yubal setup youtube --curl-file request.sh' to capture browser headers\n")
	return nil
}

// SetupYouTube configures YouTube Music authentication from browser headers.
//
// Accepts a cURL command and writes the browser.json auth file read by the catalog proxy.
func (r *Runner) SetupYouTube(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	outputPath := cmd.String("output")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	r.logger.Info("parsing cURL command for YouTube Music headers")

	var headers *shared.BrowserHeaders
	var err error

	if curlFile != "" {
		headers, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		headers, err = shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	if outputPath == "" {
		outputPath = r.config.Catalog.AuthFile
	}
	if outputPath == "" {
		return fmt.Errorf("%w: --output or catalog.auth_file is required", shared.ErrMissingArgument)
	}

	r.logger.Debug("captured headers", "count", len(headers.Headers))
	if err := headers.WriteAuthFile(outputPath); err != nil {
		return err
	}

	r.logger.Info("browser.json saved", "path", outputPath)

	r.writePlain("✓ YouTube Music authentication configured successfully\n")
	r.writePlain("Auth file saved to: %s\n", outputPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Make sure catalog.auth_file in config.toml is \"%s\"\n", outputPath)
	r.writePlain("2. Run 'yubal extract <url>' to test authentication\n")

	return nil
}
