package shared

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCurlCommand(t *testing.T) {
	tt := []struct {
		name        string
		curlCmd     string
		wantHeaders map[string]string
		wantCookie  string
		wantErr     bool
	}{
		{
			name:        "single header with single quotes",
			curlCmd:     `curl -H 'Authorization: Bearer token123' https://music.youtube.com/youtubei/v1/browse`,
			wantHeaders: map[string]string{"Authorization": "Bearer token123"},
		},
		{
			name:        "single header with double quotes",
			curlCmd:     `curl -H "X-Goog-AuthUser: 0" https://music.youtube.com/youtubei/v1/browse`,
			wantHeaders: map[string]string{"X-Goog-AuthUser": "0"},
		},
		{
			name:        "cookie header",
			curlCmd:     `curl -H 'cookie: SID=abc' -H 'User-Agent: test' https://music.youtube.com`,
			wantHeaders: map[string]string{"User-Agent": "test"},
			wantCookie:  "SID=abc",
		},
		{
			name:        "-b flag wins over cookie header",
			curlCmd:     `curl -H 'Cookie: SID=header' -b 'SID=flag' https://music.youtube.com`,
			wantHeaders: map[string]string{},
			wantCookie:  "SID=flag",
		},
		{
			name:    "multiline command",
			curlCmd: "curl 'https://music.youtube.com' \\\n  -H 'Accept: */*' \\\n  -b 'SID=xyz'",
			wantHeaders: map[string]string{
				"Accept": "*/*",
			},
			wantCookie: "SID=xyz",
		},
		{
			name:    "no headers",
			curlCmd: `curl https://music.youtube.com`,
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCurlCommand([]byte(tc.curlCmd))
			if tc.wantErr {
				if !errors.Is(err, ErrMissingAuth) {
					t.Fatalf("expected ErrMissingAuth, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(got.Headers) != len(tc.wantHeaders) {
				t.Errorf("got %d headers, want %d: %v", len(got.Headers), len(tc.wantHeaders), got.Headers)
			}
			for k, v := range tc.wantHeaders {
				if got.Headers[k] != v {
					t.Errorf("header %q = %q, want %q", k, got.Headers[k], v)
				}
			}
			if got.Cookie != tc.wantCookie {
				t.Errorf("cookie = %q, want %q", got.Cookie, tc.wantCookie)
			}
		})
	}
}

func TestWriteAuthFile(t *testing.T) {
	t.Run("writes lowercased headers", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "browser.json")
		h := &BrowserHeaders{Headers: map[string]string{"User-Agent": "ua"}, Cookie: "SID=1"}

		if err := h.WriteAuthFile(path); err != nil {
			t.Fatalf("WriteAuthFile() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read auth file: %v", err)
		}

		var got map[string]string
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if got["user-agent"] != "ua" || got["cookie"] != "SID=1" {
			t.Errorf("unexpected auth file contents: %v", got)
		}
	})

	t.Run("requires cookie", func(t *testing.T) {
		h := &BrowserHeaders{Headers: map[string]string{"Accept": "*/*"}}
		err := h.WriteAuthFile(filepath.Join(t.TempDir(), "browser.json"))
		if !errors.Is(err, ErrMissingAuth) {
			t.Errorf("expected ErrMissingAuth, got %v", err)
		}
	})
}
