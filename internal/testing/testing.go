// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
)

// MockCatalog is an in-memory test double for [services.Catalog].
//
// Missing ids return the matching not-found sentinel; entries in Errors override lookups by id (or query).
type MockCatalog struct {
	mu        sync.Mutex
	Playlists map[string]*models.Playlist
	Albums    map[string]*models.Album
	Tracks    map[string]*models.PlaylistTrack
	Searches  map[string][]models.SearchResult
	Errors    map[string]error
	Calls     map[string]int
}

// NewMockCatalog creates an empty catalog.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Playlists: map[string]*models.Playlist{},
		Albums:    map[string]*models.Album{},
		Tracks:    map[string]*models.PlaylistTrack{},
		Searches:  map[string][]models.SearchResult{},
		Errors:    map[string]error{},
		Calls:     map[string]int{},
	}
}

func (m *MockCatalog) record(op, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[op]++
	return m.Errors[key]
}

// CallCount returns how many times op ("GetPlaylist", "GetAlbum", "GetTrack", "SearchSongs") was invoked.
func (m *MockCatalog) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[op]
}

func (m *MockCatalog) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if err := m.record("GetPlaylist", playlistID); err != nil {
		return nil, err
	}
	if p, ok := m.Playlists[playlistID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
}

func (m *MockCatalog) GetAlbum(ctx context.Context, albumID string) (*models.Album, error) {
	if err := m.record("GetAlbum", albumID); err != nil {
		return nil, err
	}
	if a, ok := m.Albums[albumID]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, albumID)
}

func (m *MockCatalog) GetTrack(ctx context.Context, videoID string) (*models.PlaylistTrack, error) {
	if err := m.record("GetTrack", videoID); err != nil {
		return nil, err
	}
	if t, ok := m.Tracks[videoID]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, videoID)
}

func (m *MockCatalog) SearchSongs(ctx context.Context, query string) ([]models.SearchResult, error) {
	if err := m.record("SearchSongs", query); err != nil {
		return nil, err
	}
	return m.Searches[query], nil
}

func (m *MockCatalog) Name() string { return "mock" }

// AlbumFixture builds an album with n tracks and the matching album playlist whose entries share the album's video ids.
func AlbumFixture(playlistID, albumID string, n int) (*models.Playlist, *models.Album) {
	album := &models.Album{
		ID:              albumID,
		Title:           "Fixture Album",
		Artists:         []models.Artist{{Name: "Fixture Artist"}},
		Year:            "2020",
		AudioPlaylistID: playlistID,
		Thumbnails:      []models.Thumbnail{{URL: "https://img/album.jpg", Width: 544, Height: 544}},
	}
	playlist := &models.Playlist{ID: playlistID, Title: "Fixture Album"}

	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%s-v%02d", albumID, i)
		title := fmt.Sprintf("Track %02d", i)
		album.Tracks = append(album.Tracks, models.AlbumTrack{
			VideoID:         id,
			Title:           title,
			Artists:         album.Artists,
			TrackNumber:     i,
			DurationSeconds: 180 + i,
		})
		playlist.Tracks = append(playlist.Tracks, models.PlaylistTrack{
			VideoID:         id,
			Title:           title,
			Artists:         album.Artists,
			Album:           &models.AlbumRef{Name: album.Title, ID: albumID},
			DurationSeconds: 180 + i,
			VideoType:       models.VideoTypeATV,
		})
	}
	return playlist, album
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
