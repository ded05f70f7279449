package formatter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// M3UEntry is one playlist line pair. Path is written as given, normally relative to the playlist file.
type M3UEntry struct {
	Artist string
	Title  string
	Path   string
}

// ExportToM3U renders an extended M3U playlist. Durations are written as -1 (unknown).
func ExportToM3U(name string, entries []M3UEntry) []byte {
	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")
	if name != "" {
		fmt.Fprintf(&buf, "#PLAYLIST:%s\n", name)
	}

	for _, e := range entries {
		display := e.Title
		if e.Artist != "" {
			display = e.Artist + " - " + e.Title
		}
		fmt.Fprintf(&buf, "#EXTINF:-1,%s\n%s\n", display, filepath.ToSlash(e.Path))
	}
	return buf.Bytes()
}

// WriteM3U writes the playlist to path, creating its directory.
func WriteM3U(path, name string, entries []M3UEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create playlist directory: %w", err)
	}
	if err := os.WriteFile(path, ExportToM3U(name, entries), 0o644); err != nil {
		return fmt.Errorf("failed to write playlist file: %w", err)
	}
	return nil
}
