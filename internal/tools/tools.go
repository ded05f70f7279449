// package tools wraps the external yt-dlp and beets binaries behind the sync pipeline's downloader and tagger
package tools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/desertthunder/yubal/internal/shared"
)

// OutputStream names the stream a line was read from.
type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

// maxKeep bounds how much of each stream is kept for error messages.
const maxKeep = 8192

// CommandFunc builds the command for name and args. Tests substitute a helper process.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// DefaultCommand is [exec.CommandContext].
func DefaultCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// LookPath reports where name resolves on PATH.
func LookPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}

type invocation struct {
	name   string
	args   []string
	env    []string
	stdin  io.Reader
	onLine func(stream OutputStream, line string)
}

// run starts the command and streams both outputs line by line (yt-dlp separates progress updates with CR).
func run(ctx context.Context, command CommandFunc, inv invocation) error {
	if command == nil {
		command = DefaultCommand
	}
	cmd := command(ctx, inv.name, inv.args...)
	if len(inv.env) > 0 {
		cmd.Env = append(cmd.Environ(), inv.env...)
	}
	if inv.stdin != nil {
		cmd.Stdin = inv.stdin
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s", shared.ErrToolNotFound, inv.name)
		}
		return fmt.Errorf("start %s: %w", inv.name, err)
	}

	var outBuf, errBuf strings.Builder
	var mu sync.Mutex
	var wg sync.WaitGroup

	read := func(stream OutputStream, r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			if stream == StreamStderr {
				appendLimited(&errBuf, line)
			} else {
				appendLimited(&outBuf, line)
			}
			mu.Unlock()
			if inv.onLine != nil {
				inv.onLine(stream, line)
			}
		}
	}

	wg.Add(2)
	go read(StreamStdout, stdoutPipe)
	go read(StreamStderr, stderrPipe)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		mu.Lock()
		defer mu.Unlock()
		return fmt.Errorf("%w: %s: %w\n%s", shared.ErrToolFailed, inv.name, err, tail(&errBuf, &outBuf))
	}
	return nil
}

func tail(errBuf, outBuf *strings.Builder) string {
	parts := make([]string, 0, 2)
	for _, b := range []*strings.Builder{errBuf, outBuf} {
		if s := strings.TrimSpace(b.String()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// splitByNewlineOrCR yields non-empty lines separated by any run of '\n' and '\r'.
//
// Separators are consumed together with the line they precede: a nil token with a positive advance
// would end the scan once the reader hits EOF.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == '\n' || data[start] == '\r') {
		start++
	}
	for i := start; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			return i + 1, data[start:i], nil
		}
	}
	if atEOF {
		if start < len(data) {
			return len(data), data[start:], nil
		}
		return len(data), nil, nil
	}
	return start, nil, nil
}

func appendLimited(b *strings.Builder, line string) {
	if b.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	if remain := maxKeep - b.Len(); len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}
