// YouTube Music [Catalog] implementation
//
// Communicates with the FastAPI proxy server wrapping ytmusicapi.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
	"golang.org/x/time/rate"
)

const defaultYTBaseURL string = "http://localhost:8080"

var errNotFound = errors.New("not found")

type youtubeImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type youtubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// youtubeTrack is the shape of playlist entries, watch-playlist tracks and search hits.
type youtubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []youtubeArtist `json:"artists"`
	Album       *youtubeAlbum   `json:"album"`
	DurationSec int             `json:"duration_seconds"`
	Thumbnails  []youtubeImage  `json:"thumbnails"`
	VideoType   string          `json:"videoType"`
	IsAvailable *bool           `json:"isAvailable"`
	TrackNumber int             `json:"trackNumber"`
}

type youtubePlaylist struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Author     *youtubeArtist `json:"author"`
	Thumbnails []youtubeImage `json:"thumbnails"`
	Tracks     []youtubeTrack `json:"tracks"`
}

type youtubeAlbumDetail struct {
	Title           string          `json:"title"`
	Artists         []youtubeArtist `json:"artists"`
	Year            string          `json:"year"`
	Thumbnails      []youtubeImage  `json:"thumbnails"`
	AudioPlaylistID string          `json:"audioPlaylistId"`
	Tracks          []youtubeTrack  `json:"tracks"`
}

// YouTubeOpts configures a [YouTubeMusic] client.
type YouTubeOpts struct {
	BaseURL           string       // Proxy base URL (default: http://localhost:8080)
	AuthFile          string       // browser.json path sent as X-Auth-File
	RequestsPerSecond float64      // 0 disables rate limiting
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// YouTubeMusic implements [Catalog] against the ytmusicapi proxy.
type YouTubeMusic struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewYouTubeMusic creates a new YouTube Music catalog client.
func NewYouTubeMusic(opts YouTubeOpts) *YouTubeMusic {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultYTBaseURL
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	y := &YouTubeMusic{
		baseURL:    opts.BaseURL,
		authFile:   opts.AuthFile,
		httpClient: client,
	}
	if opts.RequestsPerSecond > 0 {
		y.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return y
}

// Name returns the catalog name.
func (y *YouTubeMusic) Name() string {
	return "YouTube Music"
}

func (y *YouTubeMusic) doRequest(ctx context.Context, endpoint string, result any) error {
	if y.limiter != nil {
		if err := y.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: youtube music API error (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: youtube music API error: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// GetPlaylist retrieves a playlist by ID.
//
// Calls GET /api/playlists/{id}. Entries flagged unavailable (or without a video id) are moved to [models.Playlist.Unavailable].
func (y *YouTubeMusic) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var p youtubePlaylist
	if err := y.doRequest(ctx, "/api/playlists/"+url.PathEscape(playlistID), &p); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, err
	}

	out := &models.Playlist{
		ID:         playlistID,
		Title:      p.Title,
		Thumbnails: toThumbnails(p.Thumbnails),
		Tracks:     make([]models.PlaylistTrack, 0, len(p.Tracks)),
	}
	if p.Author != nil {
		out.Author = &models.Artist{Name: p.Author.Name, ID: p.Author.ID}
	}

	for _, t := range p.Tracks {
		if t.VideoID == "" || (t.IsAvailable != nil && !*t.IsAvailable) {
			entry := models.UnavailableEntry{Title: t.Title, Artists: toArtists(t.Artists)}
			if t.Album != nil {
				entry.Album = t.Album.Name
			}
			out.Unavailable = append(out.Unavailable, entry)
			continue
		}
		out.Tracks = append(out.Tracks, t.toPlaylistTrack())
	}
	return out, nil
}

// GetAlbum retrieves an album by browse ID.
//
// Calls GET /api/albums/{id}.
func (y *YouTubeMusic) GetAlbum(ctx context.Context, albumID string) (*models.Album, error) {
	var a youtubeAlbumDetail
	if err := y.doRequest(ctx, "/api/albums/"+url.PathEscape(albumID), &a); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, albumID)
		}
		return nil, err
	}

	album := &models.Album{
		ID:              albumID,
		Title:           a.Title,
		Artists:         toArtists(a.Artists),
		Year:            a.Year,
		Thumbnails:      toThumbnails(a.Thumbnails),
		AudioPlaylistID: a.AudioPlaylistID,
		Tracks:          make([]models.AlbumTrack, 0, len(a.Tracks)),
	}
	for _, t := range a.Tracks {
		album.Tracks = append(album.Tracks, models.AlbumTrack{
			VideoID:         t.VideoID,
			Title:           t.Title,
			Artists:         toArtists(t.Artists),
			TrackNumber:     t.TrackNumber,
			DurationSeconds: t.DurationSec,
		})
	}
	return album, nil
}

// GetTrack retrieves one track by video ID.
//
// Calls GET /api/tracks/{videoId}, which returns the first watch-playlist entry.
func (y *YouTubeMusic) GetTrack(ctx context.Context, videoID string) (*models.PlaylistTrack, error) {
	var t youtubeTrack
	if err := y.doRequest(ctx, "/api/tracks/"+url.PathEscape(videoID), &t); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, videoID)
		}
		return nil, err
	}
	if t.VideoID == "" {
		t.VideoID = videoID
	}

	track := t.toPlaylistTrack()
	return &track, nil
}

// SearchSongs searches the catalog restricted to songs.
//
// Calls GET /api/search?q={query}&filter=songs. A 404 yields no results.
func (y *YouTubeMusic) SearchSongs(ctx context.Context, query string) ([]models.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", "songs")

	var hits []youtubeTrack
	if err := y.doRequest(ctx, "/api/search?"+params.Encode(), &hits); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		r := models.SearchResult{
			VideoID:   h.VideoID,
			VideoType: models.VideoType(h.VideoType),
			Title:     h.Title,
			Artists:   toArtists(h.Artists),
		}
		if h.Album != nil {
			r.Album = &models.AlbumRef{Name: h.Album.Name, ID: h.Album.ID}
		}
		results = append(results, r)
	}
	return results, nil
}

func (t youtubeTrack) toPlaylistTrack() models.PlaylistTrack {
	track := models.PlaylistTrack{
		VideoID:         t.VideoID,
		Title:           t.Title,
		Artists:         toArtists(t.Artists),
		DurationSeconds: t.DurationSec,
		Thumbnails:      toThumbnails(t.Thumbnails),
		VideoType:       models.VideoType(t.VideoType),
	}
	if t.Album != nil && (t.Album.ID != "" || t.Album.Name != "") {
		track.Album = &models.AlbumRef{Name: t.Album.Name, ID: t.Album.ID}
	}
	return track
}

func toArtists(in []youtubeArtist) []models.Artist {
	out := make([]models.Artist, 0, len(in))
	for _, a := range in {
		out = append(out, models.Artist{Name: a.Name, ID: a.ID})
	}
	return out
}

func toThumbnails(in []youtubeImage) []models.Thumbnail {
	out := make([]models.Thumbnail, 0, len(in))
	for _, i := range in {
		out = append(out, models.Thumbnail{URL: i.URL, Width: i.Width, Height: i.Height})
	}
	return out
}
