package tools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/desertthunder/yubal/internal/shared"
	"github.com/desertthunder/yubal/internal/tasks"
	tu "github.com/desertthunder/yubal/internal/testing"
)

const helperEnv = "YUBAL_WANT_HELPER_PROCESS"

// helperCommand re-executes the test binary as a stand-in for the external tool.
func helperCommand(scenario string, seen *[][]string) CommandFunc {
	var mu sync.Mutex
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if seen != nil {
			mu.Lock()
			*seen = append(*seen, append([]string{name}, args...))
			mu.Unlock()
		}
		cs := append([]string{"-test.run=TestHelperProcess", "--", scenario, name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), helperEnv+"=1")
		return cmd
	}
}

func flagValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	scenario, rest := args[0], args[2:]

	writeDownload := func() {
		dir, tmpl, format := flagValue(rest, "-P"), flagValue(rest, "-o"), flagValue(rest, "--audio-format")
		fmt.Print("[youtube] Extracting URL\n[download]  10.0% of 3.00MiB\r[download]  55.5% of 3.00MiB\n[download] 100% of 3.00MiB\n")
		name := strings.Replace(tmpl, "%(ext)s", format, 1)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("audio"), 0o644); err != nil {
			os.Exit(3)
		}
	}

	switch scenario {
	case "ytdlp-ok":
		writeDownload()
	case "ytdlp-fail-second":
		if strings.HasSuffix(rest[len(rest)-1], "v2") {
			fmt.Fprintln(os.Stderr, "ERROR: [youtube] v2: Video unavailable")
			os.Exit(1)
		}
		writeDownload()
	case "ytdlp-other-ext":
		dir, tmpl := flagValue(rest, "-P"), flagValue(rest, "-o")
		_ = os.WriteFile(filepath.Join(dir, strings.Replace(tmpl, "%(ext)s", "m4a", 1)), []byte("audio"), 0o644)
	case "beets-ok":
		lines := 0
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines++
		}
		lib := flagValue(rest, "--directory")
		_ = os.MkdirAll(filepath.Join(lib, "Fixture Artist", "Fixture Album"), 0o755)
		fmt.Println("Tagging:")
		fmt.Println("    Fixture Artist - Fixture Album")
		fmt.Printf("answered %d prompts\n", lines)
		fmt.Println("beetsdir=" + os.Getenv("BEETSDIR"))
		fmt.Fprintln(os.Stderr, "import done")
	case "beets-fail":
		fmt.Fprintln(os.Stderr, "error: could not read config")
		os.Exit(2)
	case "sleep":
		time.Sleep(10 * time.Second)
	}
	os.Exit(0)
}

func TestSplitByNewlineOrCR(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"mixed separators", "one\r\ntwo\rthree\n\nfour", []string{"one", "two", "three", "four"}},
		{"blank line before last", "progress\r\n\nerror: boom", []string{"progress", "error: boom"}},
		{"trailing separators", "done\r\n\r\n", []string{"done"}},
		{"leading separators", "\n\r\nonly", []string{"only"}},
		{"separators only", "\r\n\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := bufio.NewScanner(strings.NewReader(tt.input))
			scanner.Split(splitByNewlineOrCR)

			var got []string
			for scanner.Scan() {
				got = append(got, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				t.Fatalf("scan failed: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("one byte at a time", func(t *testing.T) {
		scanner := bufio.NewScanner(iotest.OneByteReader(strings.NewReader("a\r\n\nb")))
		scanner.Split(splitByNewlineOrCR)

		var got []string
		for scanner.Scan() {
			got = append(got, scanner.Text())
		}
		if want := []string{"a", "b"}; !slices.Equal(got, want) {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"[download]  45.3% of 3.52MiB at 1.2MiB/s ETA 00:02", 45.3, true},
		{"[download] 100% of 3.52MiB", 100, true},
		{"[ExtractAudio] Destination: song.opus", 0, false},
		{"50% done", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parsePercent(tt.line)
			if ok != tt.ok || got != tt.want {
				t.Errorf("parsePercent(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestAppendLimited(t *testing.T) {
	var b strings.Builder
	for range 1000 {
		appendLimited(&b, strings.Repeat("x", 100))
	}
	if b.Len() != maxKeep {
		t.Errorf("expected buffer capped at %d, got %d", maxKeep, b.Len())
	}
}

func downloadRequest(dir string) tasks.DownloadRequest {
	return tasks.DownloadRequest{
		Items: []tasks.DownloadItem{
			{VideoID: "v1", Name: "01 - Artist - One"},
			{VideoID: "v2", Name: "02 - Artist - Two"},
		},
		OutputDir:   dir,
		AudioFormat: "opus",
	}
}

func TestYtDlpDownload(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("downloads every item", func(t *testing.T) {
		dir := t.TempDir()
		var seen [][]string
		y := NewYtDlp(YtDlpOpts{CookiesFile: "/tmp/cookies.txt", Command: helperCommand("ytdlp-ok", &seen), Logger: logger})

		var progress []tasks.DownloadProgress
		res, err := y.Download(ctx, downloadRequest(dir), func(p tasks.DownloadProgress) {
			progress = append(progress, p)
		})
		if err != nil {
			t.Fatalf("Download failed: %v", err)
		}
		if len(res.Files) != 2 || len(res.Failed) != 0 {
			t.Fatalf("unexpected result %+v", res)
		}
		want := filepath.Join(dir, "01 - Artist - One.opus")
		if res.Files[0].Path != want || res.Files[0].Index != 0 {
			t.Errorf("unexpected first file %+v", res.Files[0])
		}
		tu.AssertFileExists(t, res.Files[1].Path)

		if len(seen) != 2 {
			t.Fatalf("expected two invocations, got %d", len(seen))
		}
		args := seen[0]
		if args[0] != "yt-dlp" {
			t.Errorf("unexpected binary %s", args[0])
		}
		if flagValue(args, "--cookies") != "/tmp/cookies.txt" || flagValue(args, "--audio-format") != "opus" {
			t.Errorf("unexpected args %v", args)
		}
		if last := args[len(args)-1]; last != "https://music.youtube.com/watch?v=v1" {
			t.Errorf("unexpected URL %s", last)
		}

		var saw55 bool
		for _, p := range progress {
			if p.Index == 0 && p.Percent == 55.5 {
				saw55 = true
			}
		}
		if !saw55 {
			t.Errorf("expected parsed progress, got %+v", progress)
		}
		if final := progress[len(progress)-1]; final.Index != 1 || final.Percent != 100 {
			t.Errorf("unexpected final progress %+v", final)
		}
	})

	t.Run("item failure is recorded", func(t *testing.T) {
		dir := t.TempDir()
		y := NewYtDlp(YtDlpOpts{Command: helperCommand("ytdlp-fail-second", nil), Logger: logger})

		res, err := y.Download(ctx, downloadRequest(dir), nil)
		if err != nil {
			t.Fatalf("Download failed: %v", err)
		}
		if len(res.Files) != 1 || !slices.Equal(res.Failed, []int{1}) {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("other extension is found", func(t *testing.T) {
		dir := t.TempDir()
		y := NewYtDlp(YtDlpOpts{Command: helperCommand("ytdlp-other-ext", nil), Logger: logger})

		req := downloadRequest(dir)
		req.Items = req.Items[:1]
		res, err := y.Download(ctx, req, nil)
		if err != nil {
			t.Fatalf("Download failed: %v", err)
		}
		if len(res.Files) != 1 || filepath.Ext(res.Files[0].Path) != ".m4a" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("cancellation stops the batch", func(t *testing.T) {
		dir := t.TempDir()
		var seen [][]string
		y := NewYtDlp(YtDlpOpts{Command: helperCommand("ytdlp-ok", &seen), Logger: logger})

		calls := 0
		req := downloadRequest(dir)
		req.Cancelled = func() bool {
			calls++
			return calls > 1
		}
		res, err := y.Download(ctx, req, nil)
		if err != nil {
			t.Fatalf("Download failed: %v", err)
		}
		if len(res.Files) != 1 || len(seen) != 1 {
			t.Errorf("expected one download before cancellation, got %+v", res)
		}
	})

	t.Run("missing binary fails the batch", func(t *testing.T) {
		y := NewYtDlp(YtDlpOpts{Path: "yubal-missing-yt-dlp", Logger: logger})
		if _, err := y.Download(ctx, downloadRequest(t.TempDir()), nil); !errors.Is(err, shared.ErrToolNotFound) {
			t.Errorf("expected ErrToolNotFound, got %v", err)
		}
	})

	t.Run("requires output directory", func(t *testing.T) {
		y := NewYtDlp(YtDlpOpts{Logger: logger})
		if _, err := y.Download(ctx, tasks.DownloadRequest{}, nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestBeetsImport(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("imports into the library", func(t *testing.T) {
		root := t.TempDir()
		lib := filepath.Join(root, "library")
		cfg := filepath.Join(root, "beets", "config.yaml")
		source := filepath.Join(root, "job")

		var seen [][]string
		b := NewBeets(BeetsOpts{ConfigPath: cfg, LibraryDir: lib, Command: helperCommand("beets-ok", &seen), Logger: logger})

		var mu sync.Mutex
		var lines []string
		dest, err := b.Import(ctx, tasks.ImportRequest{SourceDir: source, Files: []string{filepath.Join(source, "01.opus")}}, func(line string) {
			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if want := filepath.Join(lib, "Fixture Artist", "Fixture Album"); dest != want {
			t.Errorf("dest = %s, want %s", dest, want)
		}

		want := []string{"beet", "--config", cfg, "--directory", lib, "import", "-q", source}
		if !slices.Equal(seen[0], want) {
			t.Errorf("unexpected command %v", seen[0])
		}

		joined := strings.Join(lines, "\n")
		for _, w := range []string{"Tagging:", "answered 10 prompts", "beetsdir=" + filepath.Dir(cfg), "import done"} {
			if !strings.Contains(joined, w) {
				t.Errorf("output missing %q:\n%s", w, joined)
			}
		}
	})

	t.Run("failure carries output", func(t *testing.T) {
		b := NewBeets(BeetsOpts{LibraryDir: t.TempDir(), Command: helperCommand("beets-fail", nil), Logger: logger})
		_, err := b.Import(ctx, tasks.ImportRequest{Files: []string{"/tmp/x/01.opus"}}, nil)
		if !errors.Is(err, shared.ErrToolFailed) {
			t.Fatalf("expected ErrToolFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "could not read config") {
			t.Errorf("error should include stderr, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		b := NewBeets(BeetsOpts{LibraryDir: t.TempDir(), Timeout: 100 * time.Millisecond, Command: helperCommand("sleep", nil), Logger: logger})
		_, err := b.Import(ctx, tasks.ImportRequest{Files: []string{"/tmp/x/01.opus"}}, nil)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("no files", func(t *testing.T) {
		b := NewBeets(BeetsOpts{LibraryDir: t.TempDir(), Logger: logger})
		if _, err := b.Import(ctx, tasks.ImportRequest{}, nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("library fallback", func(t *testing.T) {
		lib := t.TempDir()
		b := NewBeets(BeetsOpts{LibraryDir: lib, Command: helperCommand("noop", nil), Logger: logger})
		dest, err := b.Import(ctx, tasks.ImportRequest{Files: []string{"/tmp/x/01.opus"}}, nil)
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if dest != lib {
			t.Errorf("expected library root, got %s", dest)
		}
	})
}
