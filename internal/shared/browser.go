package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// openCommand is swapped in tests to avoid launching a browser.
var openCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// OpenURL opens url (a job's source page) in the default system browser.
func OpenURL(url string) error {
	if !IsSupportedURL(url) {
		return fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}

	var name string
	var args []string
	switch rt := getRuntime(); rt {
	case "darwin":
		name, args = "open", []string{url}
	case "linux":
		name, args = "xdg-open", []string{url}
	case "windows":
		name, args = "cmd", []string{"/c", "start", url}
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := openCommand(name, args...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
