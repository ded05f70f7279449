// Browser header capture for the catalog proxy's auth file.
package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	curlHeaderPattern = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookiePattern = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
)

// BrowserHeaders holds request headers copied from an authenticated browser session
// ("Copy as cURL" on a music.youtube.com request).
type BrowserHeaders struct {
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a file containing a cURL command and extracts its headers.
func ParseCurlFile(path string) (*BrowserHeaders, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurlCommand(content)
}

// ParseCurlCommand extracts -H headers and the cookie (-b or a cookie header) from a cURL command.
func ParseCurlCommand(data []byte) (*BrowserHeaders, error) {
	cmd := strings.ReplaceAll(string(data), "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\", "")

	h := &BrowserHeaders{Headers: make(map[string]string)}
	for _, m := range curlHeaderPattern.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(firstGroup(m), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if strings.EqualFold(key, "cookie") {
			if h.Cookie == "" {
				h.Cookie = value
			}
			continue
		}
		h.Headers[key] = value
	}

	// -b takes precedence over a cookie header
	if m := curlCookiePattern.FindStringSubmatch(cmd); m != nil {
		h.Cookie = firstGroup(m)
	}

	if len(h.Headers) == 0 && h.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrMissingAuth)
	}
	return h, nil
}

func firstGroup(m []string) string {
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// AuthFile converts the captured headers to the browser.json layout consumed by the proxy.
//
// Header names are lowercased; the cookie is stored under "cookie".
func (h *BrowserHeaders) AuthFile() map[string]string {
	out := make(map[string]string, len(h.Headers)+1)
	for k, v := range h.Headers {
		out[strings.ToLower(k)] = v
	}
	if h.Cookie != "" {
		out["cookie"] = h.Cookie
	}
	return out
}

// WriteAuthFile writes the browser.json auth file to path.
//
// A cookie is required since the proxy authenticates with it.
func (h *BrowserHeaders) WriteAuthFile(path string) error {
	if h.Cookie == "" {
		return fmt.Errorf("%w: cookie header is required", ErrMissingAuth)
	}

	data, err := json.MarshalIndent(h.AuthFile(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode auth file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create auth directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	return nil
}
