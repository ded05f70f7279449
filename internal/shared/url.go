// YouTube Music URL parsing.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxURLLength bounds accepted URLs (standard browser limit).
const MaxURLLength = 2048

// AlbumPlaylistPrefix marks playlists auto-generated for an album release.
const AlbumPlaylistPrefix = "OLAK5uy_"

var (
	playlistIDPattern = regexp.MustCompile(`list=([A-Za-z0-9_-]+)`)
	videoIDPattern    = regexp.MustCompile(`v=([A-Za-z0-9_-]+)`)
	browseIDPattern   = regexp.MustCompile(`/browse/([A-Za-z0-9_-]+)`)
)

// ParsePlaylistID extracts the list= parameter from a playlist or album URL.
func ParsePlaylistID(url string) (string, error) {
	if url == "" || len(url) > MaxURLLength {
		return "", fmt.Errorf("%w: could not extract playlist ID from %q", ErrInvalidURL, url)
	}
	if m := playlistIDPattern.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: could not extract playlist ID from %q", ErrInvalidURL, url)
}

// ParseVideoID extracts the v= parameter from a watch URL.
//
// Returns false when a list= parameter is present since playlist URLs take priority.
func ParseVideoID(url string) (string, bool) {
	if url == "" || len(url) > MaxURLLength {
		return "", false
	}
	if playlistIDPattern.MatchString(url) {
		return "", false
	}
	if m := videoIDPattern.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	return "", false
}

// ParseBrowseID extracts the id of a music.youtube.com/browse/ page.
func ParseBrowseID(url string) (string, bool) {
	if url == "" || len(url) > MaxURLLength || !strings.Contains(url, "music.youtube.com") {
		return "", false
	}
	if m := browseIDPattern.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	return "", false
}

// IsSingleTrackURL reports whether url points at one track rather than a collection.
func IsSingleTrackURL(url string) bool {
	_, ok := ParseVideoID(url)
	return ok
}

// IsSupportedURL reports whether url is a playlist, album, or single track URL.
func IsSupportedURL(url string) bool {
	if url == "" || len(url) > MaxURLLength {
		return false
	}

	url = strings.TrimSpace(url)
	switch {
	case playlistIDPattern.MatchString(url):
		return true
	case videoIDPattern.MatchString(url):
		return true
	case strings.Contains(url, "/browse/") && strings.Contains(url, "music.youtube.com"):
		return true
	}
	return false
}

// IsAlbumPlaylistID reports whether id has the auto-generated album playlist shape.
func IsAlbumPlaylistID(id string) bool {
	return strings.HasPrefix(id, AlbumPlaylistPrefix)
}
