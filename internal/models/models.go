// package models defines catalog and pipeline records
package models

import (
	"strings"
)

// VideoType is the YouTube Music content-type tag of a video.
type VideoType string

const (
	VideoTypeATV        VideoType = "MUSIC_VIDEO_TYPE_ATV"         // Audio track video (album audio)
	VideoTypeOMV        VideoType = "MUSIC_VIDEO_TYPE_OMV"         // Official music video
	VideoTypeUGC        VideoType = "MUSIC_VIDEO_TYPE_UGC"         // User generated content
	VideoTypeOfficial   VideoType = "MUSIC_VIDEO_TYPE_OFFICIAL_SOURCE_MUSIC"
	VideoTypePodcast    VideoType = "MUSIC_VIDEO_TYPE_PODCAST_EPISODE"
	VideoTypeUnassigned VideoType = ""
)

// IsSupported reports whether the video type can be downloaded with reliable metadata.
func (v VideoType) IsSupported() bool {
	return v == VideoTypeATV || v == VideoTypeOMV
}

// Short returns the trailing tag name, e.g. "ATV".
func (v VideoType) Short() string {
	if v == VideoTypeUnassigned {
		return "unknown"
	}
	return strings.TrimPrefix(string(v), "MUSIC_VIDEO_TYPE_")
}

// ContentKind classifies what a URL resolved to.
type ContentKind string

const (
	KindTrack    ContentKind = "track"
	KindAlbum    ContentKind = "album"
	KindPlaylist ContentKind = "playlist"
)

// SkipReason explains why a playlist entry produced no output.
type SkipReason string

const (
	SkipUnsupportedVideoType SkipReason = "unsupported_video_type"
	SkipNoAlbumMatch         SkipReason = "no_album_match"
	SkipUnavailable          SkipReason = "unavailable"
)

// MatchConfidence records how an entry was reconciled with its album.
type MatchConfidence string

const (
	ConfidenceNone  MatchConfidence = ""      // No album match (fallback metadata)
	ConfidenceExact MatchConfidence = "exact" // Identifier, title, or unique duration
	ConfidenceHigh  MatchConfidence = "high"  // Fuzzy score above the silent-accept bound
	ConfidenceLow   MatchConfidence = "low"   // Fuzzy score in the warn-and-accept band
)

// Thumbnail is one artwork rendition.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Artist is a credited artist.
type Artist struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// AlbumRef is the album reference attached to a playlist entry or search result.
type AlbumRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// PlaylistTrack is one entry of a playlist (or a single watched track).
type PlaylistTrack struct {
	VideoID         string      `json:"video_id"`
	Title           string      `json:"title"`
	Artists         []Artist    `json:"artists"`
	Album           *AlbumRef   `json:"album,omitempty"`
	DurationSeconds int         `json:"duration_seconds,omitempty"`
	Thumbnails      []Thumbnail `json:"thumbnails,omitempty"`
	VideoType       VideoType   `json:"video_type,omitempty"`
}

// AlbumID returns the entry's album id, or "" when it carries none.
func (t PlaylistTrack) AlbumID() string {
	if t.Album == nil {
		return ""
	}
	return t.Album.ID
}

// UnavailableEntry is a playlist entry the catalog reports as not playable.
type UnavailableEntry struct {
	Title   string   `json:"title"`
	Artists []Artist `json:"artists,omitempty"`
	Album   string   `json:"album,omitempty"`
}

// Playlist is a playlist or album playlist as returned by the catalog.
type Playlist struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Author      *Artist            `json:"author,omitempty"`
	Thumbnails  []Thumbnail        `json:"thumbnails,omitempty"`
	Tracks      []PlaylistTrack    `json:"tracks"`
	Unavailable []UnavailableEntry `json:"unavailable,omitempty"`
}

// AlbumTrack is one track of a canonical album listing.
type AlbumTrack struct {
	VideoID         string   `json:"video_id"`
	Title           string   `json:"title"`
	Artists         []Artist `json:"artists"`
	TrackNumber     int      `json:"track_number,omitempty"`
	DurationSeconds int      `json:"duration_seconds,omitempty"`
}

// Album is a canonical album record.
type Album struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Artists         []Artist     `json:"artists"`
	Year            string       `json:"year,omitempty"`
	Thumbnails      []Thumbnail  `json:"thumbnails,omitempty"`
	Tracks          []AlbumTrack `json:"tracks"`
	AudioPlaylistID string       `json:"audio_playlist_id,omitempty"`
}

// SearchResult is a song search hit.
type SearchResult struct {
	VideoID   string    `json:"video_id"`
	VideoType VideoType `json:"video_type,omitempty"`
	Title     string    `json:"title"`
	Artists   []Artist  `json:"artists"`
	Album     *AlbumRef `json:"album,omitempty"`
}

// TrackMetadata is the reconciled output for one entry.
//
// Track number, total tracks and year are zero/empty when no album was resolved.
type TrackMetadata struct {
	OMVVideoID   string          `json:"omv_video_id,omitempty"`
	ATVVideoID   string          `json:"atv_video_id,omitempty"`
	Title        string          `json:"title"`
	Artists      []string        `json:"artists"`
	Album        string          `json:"album"`
	AlbumArtists []string        `json:"album_artists"`
	TrackNumber  int             `json:"track_number,omitempty"`
	TotalTracks  int             `json:"total_tracks,omitempty"`
	Year         string          `json:"year,omitempty"`
	CoverURL     string          `json:"cover_url,omitempty"`
	VideoType    VideoType       `json:"video_type"`
	Kind         ContentKind     `json:"kind,omitempty"`
	Confidence   MatchConfidence `json:"match_confidence,omitempty"`
}

// VideoID returns the id to download, preferring the audio-only variant.
func (m TrackMetadata) VideoID() string {
	if m.ATVVideoID != "" {
		return m.ATVVideoID
	}
	return m.OMVVideoID
}

// PrimaryArtist returns the joined artist credit.
func (m TrackMetadata) PrimaryArtist() string {
	return strings.Join(m.Artists, "; ")
}

// UnavailableTrack is an unavailable entry reported in a [PlaylistInfo].
type UnavailableTrack struct {
	Title   string     `json:"title"`
	Artists []string   `json:"artists,omitempty"`
	Album   string     `json:"album,omitempty"`
	Reason  SkipReason `json:"reason"`
}

// PlaylistInfo summarizes the collection being extracted.
type PlaylistInfo struct {
	PlaylistID        string             `json:"playlist_id"`
	Title             string             `json:"title"`
	CoverURL          string             `json:"cover_url,omitempty"`
	Kind              ContentKind        `json:"kind"`
	Author            string             `json:"author,omitempty"`
	UnavailableTracks []UnavailableTrack `json:"unavailable_tracks,omitempty"`
}

// ExtractProgress is emitted once per processed entry. Track is nil when the entry was skipped.
type ExtractProgress struct {
	Current         int                `json:"current"`
	Total           int                `json:"total"`
	PlaylistTotal   int                `json:"playlist_total"`
	SkippedByReason map[SkipReason]int `json:"skipped_by_reason"`
	Track           *TrackMetadata     `json:"track,omitempty"`
	PlaylistInfo    PlaylistInfo       `json:"playlist_info"`
}

// Skipped returns the total number of skipped entries so far.
func (p ExtractProgress) Skipped() int {
	n := 0
	for _, c := range p.SkippedByReason {
		n += c
	}
	return n
}

// SingleTrackResult is the result of extracting one watch URL.
type SingleTrackResult struct {
	Track        TrackMetadata `json:"track"`
	PlaylistInfo PlaylistInfo  `json:"playlist_info"`
}

// ArtistNames returns the names of artists, dropping empty names.
func ArtistNames(artists []Artist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

// FormatArtists joins artist names as "Artist One; Artist Two".
func FormatArtists(artists []Artist) string {
	return strings.Join(ArtistNames(artists), "; ")
}

// SquareThumbnail returns the URL of the largest square thumbnail, falling back to the last one.
func SquareThumbnail(thumbnails []Thumbnail) string {
	if len(thumbnails) == 0 {
		return ""
	}

	best := -1
	for i, t := range thumbnails {
		if t.Width != t.Height {
			continue
		}
		if best < 0 || t.Width > thumbnails[best].Width {
			best = i
		}
	}
	if best >= 0 {
		return thumbnails[best].URL
	}
	return thumbnails[len(thumbnails)-1].URL
}

// ExtractResult is the collected output of extracting one URL.
type ExtractResult struct {
	URL             string             `json:"url"`
	PlaylistInfo    PlaylistInfo       `json:"playlist"`
	Tracks          []TrackMetadata    `json:"tracks"`
	SkippedByReason map[SkipReason]int `json:"skipped_by_reason,omitempty"`
}

// Skipped returns the total number of skipped entries.
func (r ExtractResult) Skipped() int {
	n := 0
	for _, c := range r.SkippedByReason {
		n += c
	}
	return n
}

// BulkItemResult is the outcome of one URL in a bulk extraction.
type BulkItemResult struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Success bool     `json:"success"`
	Tracks  int      `json:"tracks"`
	Skipped int      `json:"skipped"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// BulkExtractResult summarizes a bulk extraction run.
type BulkExtractResult struct {
	Total           int              `json:"total"`
	Succeeded       int              `json:"succeeded"`
	Failed          int              `json:"failed"`
	OutputDirectory string           `json:"output_directory"`
	ManifestPath    string           `json:"-"`
	Results         []BulkItemResult `json:"results"`
}
