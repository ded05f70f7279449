package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
	"github.com/desertthunder/yubal/internal/tasks"
	tu "github.com/desertthunder/yubal/internal/testing"
)

const albumURL = "https://music.youtube.com/playlist?list=OLAK5uy_X"

type pipelineFunc func(ctx context.Context, req tasks.SyncRequest, em tasks.Emitter, token *tasks.CancelToken) tasks.SyncResult

func (f pipelineFunc) Run(ctx context.Context, req tasks.SyncRequest, em tasks.Emitter, token *tasks.CancelToken) tasks.SyncResult {
	return f(ctx, req, em, token)
}

func fixtureCatalog() *tu.MockCatalog {
	catalog := tu.NewMockCatalog()
	playlist, album := tu.AlbumFixture("OLAK5uy_X", "MPREb_X", 3)
	catalog.Playlists[playlist.ID] = playlist
	catalog.Albums[album.ID] = album
	return catalog
}

func newTestRunner(t *testing.T, output io.Writer, opts RunnerOpts) *Runner {
	t.Helper()
	opts.Output = output
	opts.Logger = shared.NewLogger(io.Discard)
	if opts.Catalog == nil {
		opts.Catalog = fixtureCatalog()
	}
	return NewRunner(opts)
}

func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return newApp(r).Run(ctx, append([]string{"yubal"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			catalog := tu.NewMockCatalog()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Catalog:    catalog,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.catalog == nil || runner.pipeline == nil || runner.jobs == nil || runner.covers == nil {
				t.Error("expected services to be wired")
			}
		})

		t.Run("rewiring keeps injected services", func(t *testing.T) {
			catalog := tu.NewMockCatalog()
			runner := NewRunner(RunnerOpts{Catalog: catalog})
			before := runner.store

			runner.SetLogger(shared.NewLogger(io.Discard))
			if runner.catalog != catalog {
				t.Error("expected injected catalog to survive SetLogger")
			}
			if runner.store == before {
				t.Error("expected a fresh job store")
			}
		})
	})

	t.Run("playlistsDir", func(t *testing.T) {
		tests := []struct {
			lib  shared.LibraryConfig
			want string
		}{
			{shared.LibraryConfig{DataDir: "/music", PlaylistsDir: "Playlists"}, filepath.Join("/music", "Playlists")},
			{shared.LibraryConfig{DataDir: "/music", PlaylistsDir: "/srv/playlists"}, "/srv/playlists"},
			{shared.LibraryConfig{DataDir: "/music"}, ""},
		}
		for _, tt := range tests {
			if got := playlistsDir(tt.lib); got != tt.want {
				t.Errorf("playlistsDir(%+v) = %q, want %q", tt.lib, got, tt.want)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"serve", "extract", "sync", "setup"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})
}

func TestExtractCommand(t *testing.T) {
	t.Run("single URL to stdout", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newTestRunner(t, output, RunnerOpts{})

		if err := runApp(t, runner, "extract", albumURL); err != nil {
			t.Fatalf("extract failed: %v", err)
		}

		var res models.ExtractResult
		if err := json.Unmarshal(output.Bytes(), &res); err != nil {
			t.Fatalf("expected JSON output: %v\n%s", err, output.String())
		}
		if len(res.Tracks) != 3 || res.PlaylistInfo.Title != "Fixture Album" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("text format", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newTestRunner(t, output, RunnerOpts{})

		if err := runApp(t, runner, "extract", "--format", "txt", "--max-items", "2", albumURL); err != nil {
			t.Fatalf("extract failed: %v", err)
		}
		if !strings.Contains(output.String(), "Track 01") || strings.Contains(output.String(), "Track 03") {
			t.Errorf("unexpected text output:\n%s", output.String())
		}
	})

	t.Run("bulk export", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newTestRunner(t, output, RunnerOpts{})
		dir := filepath.Join(t.TempDir(), "out")

		err := runApp(t, runner, "extract", "--output", dir, albumURL, "https://music.youtube.com/playlist?list=OLAK5uy_missing")
		if err != nil {
			t.Fatalf("extract failed: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "extract_manifest.json"))
		if !strings.Contains(output.String(), "Succeeded: 1") || !strings.Contains(output.String(), "Failed:    1") {
			t.Errorf("unexpected summary:\n%s", output.String())
		}
	})

	t.Run("argument errors", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want error
		}{
			{"no urls", []string{"extract"}, shared.ErrMissingArgument},
			{"unsupported url", []string{"extract", "https://example.com"}, shared.ErrInvalidURL},
			{"unknown format", []string{"extract", "--format", "xml", albumURL}, shared.ErrInvalidFlag},
			{"negative max items", []string{"extract", "--max-items=-1", albumURL}, shared.ErrInvalidFlag},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				runner := newTestRunner(t, &bytes.Buffer{}, RunnerOpts{})
				if err := runApp(t, runner, tt.args...); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})
}

func TestSyncCommand(t *testing.T) {
	t.Run("plain progress", func(t *testing.T) {
		var got []tasks.SyncRequest
		pipeline := pipelineFunc(func(ctx context.Context, req tasks.SyncRequest, em tasks.Emitter, token *tasks.CancelToken) tasks.SyncResult {
			got = append(got, req)
			return tasks.SyncResult{Success: true, Destination: "/music/Fixture Artist/Fixture Album"}
		})
		output := &bytes.Buffer{}
		runner := newTestRunner(t, output, RunnerOpts{Pipeline: pipeline})

		if err := runApp(t, runner, "sync", "--plain", "--audio-format", "mp3", albumURL); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if len(got) != 1 || got[0].AudioFormat != "mp3" || got[0].URL != albumURL {
			t.Errorf("unexpected pipeline requests %+v", got)
		}
		if !strings.Contains(output.String(), "Sync complete: /music/Fixture Artist/Fixture Album") {
			t.Errorf("expected completion in output:\n%s", output.String())
		}
	})

	t.Run("failed job is reported", func(t *testing.T) {
		pipeline := pipelineFunc(func(ctx context.Context, req tasks.SyncRequest, em tasks.Emitter, token *tasks.CancelToken) tasks.SyncResult {
			return tasks.SyncResult{Error: "no tracks downloaded"}
		})
		runner := newTestRunner(t, &bytes.Buffer{}, RunnerOpts{Pipeline: pipeline})

		if err := runApp(t, runner, "sync", "--plain", albumURL); !errors.Is(err, shared.ErrPipelineFault) {
			t.Errorf("expected ErrPipelineFault, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := newTestRunner(t, output, RunnerOpts{})

		if err := runApp(t, runner, "setup", "config", "--output", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("written config does not load: %v", err)
		}

		if err := runApp(t, runner, "setup", "config", "--output", path); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected error for existing file, got %v", err)
		}
	})

	t.Run("youtube", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "auth", "browser.json")
		output := &bytes.Buffer{}
		runner := newTestRunner(t, output, RunnerOpts{})

		curl := `curl -H 'cookie: SID=abc' -H 'X-Goog-AuthUser: 0' https://music.youtube.com`
		if err := runApp(t, runner, "setup", "youtube", "--curl", curl, "--output", path); err != nil {
			t.Fatalf("setup youtube failed: %v", err)
		}

		var auth map[string]string
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, path)), &auth); err != nil {
			t.Fatalf("invalid auth file: %v", err)
		}
		if auth["cookie"] != "SID=abc" || auth["x-goog-authuser"] != "0" {
			t.Errorf("unexpected auth file %v", auth)
		}
		if !strings.Contains(output.String(), path) {
			t.Error("expected output path to be printed")
		}
	})

	t.Run("youtube argument errors", func(t *testing.T) {
		runner := newTestRunner(t, &bytes.Buffer{}, RunnerOpts{})
		if err := runApp(t, runner, "setup", "youtube"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := runApp(t, runner, "setup", "youtube", "--curl", "curl x", "--curl-file", "x.sh"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestServe(t *testing.T) {
	runner := newTestRunner(t, &bytes.Buffer{}, RunnerOpts{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
