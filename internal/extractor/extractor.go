// Package extractor reconciles YouTube Music playlists, albums and tracks into [models.TrackMetadata].
//
// [Service.Extract] is the main entry point. It detects the URL shape, classifies the collection as an
// album or a general playlist, and yields one [models.ExtractProgress] per processed entry.
// A single watch URL is processed as a one-element collection.
package extractor

import (
	"context"
	"fmt"
	"iter"
	"maps"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yubal/internal/matching"
	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/services"
	"github.com/desertthunder/yubal/internal/shared"
)

// Service extracts metadata using a [services.Catalog] and a [matching.Matcher].
type Service struct {
	catalog services.Catalog
	matcher *matching.Matcher
	logger  *log.Logger
}

// NewService creates an extractor. A nil matcher uses [matching.New]; a nil logger writes to stderr.
func NewService(catalog services.Catalog, matcher *matching.Matcher, logger *log.Logger) *Service {
	if matcher == nil {
		matcher = matching.New()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Service{
		catalog: catalog,
		matcher: matcher,
		logger:  shared.WithLogger(logger, "component", "extractor"),
	}
}

// Extract returns a lazy sequence of per-entry progress for url.
//
// maxItems <= 0 means no limit; it is ignored for single tracks. Fatal errors (unparseable URL, collection
// fetch failure, context cancellation) are yielded once and end the sequence. Per-entry failures degrade
// to fallback metadata instead. Iterating again restarts extraction from scratch.
func (s *Service) Extract(ctx context.Context, url string, maxItems int) iter.Seq2[models.ExtractProgress, error] {
	return func(yield func(models.ExtractProgress, error) bool) {
		if videoID, ok := shared.ParseVideoID(url); ok {
			s.extractSingle(ctx, videoID, yield)
			return
		}

		playlistID, err := s.resolvePlaylistID(ctx, url)
		if err != nil {
			yield(models.ExtractProgress{}, err)
			return
		}
		s.extractCollection(ctx, playlistID, maxItems, yield)
	}
}

// resolvePlaylistID accepts list= URLs and album browse pages (via the album's audio playlist).
func (s *Service) resolvePlaylistID(ctx context.Context, url string) (string, error) {
	if id, err := shared.ParsePlaylistID(url); err == nil {
		return id, nil
	}

	browseID, ok := shared.ParseBrowseID(url)
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrInvalidURL, url)
	}

	album, err := s.catalog.GetAlbum(ctx, browseID)
	if err != nil {
		return "", err
	}
	if album.AudioPlaylistID == "" {
		return "", fmt.Errorf("%w: album %s has no audio playlist", shared.ErrPlaylistNotFound, browseID)
	}
	return album.AudioPlaylistID, nil
}

func (s *Service) extractSingle(ctx context.Context, videoID string, yield func(models.ExtractProgress, error) bool) {
	s.logger.Debug("extracting track", "video_id", videoID)

	track, err := s.catalog.GetTrack(ctx, videoID)
	if err != nil {
		yield(models.ExtractProgress{}, err)
		return
	}

	meta, reason := s.processEntry(ctx, *track)
	info := models.PlaylistInfo{
		PlaylistID: videoID,
		Title:      track.Title,
		CoverURL:   models.SquareThumbnail(track.Thumbnails),
		Kind:       models.KindTrack,
	}

	prog := models.ExtractProgress{
		Current:         1,
		Total:           1,
		PlaylistTotal:   1,
		SkippedByReason: map[models.SkipReason]int{},
		PlaylistInfo:    info,
	}
	if meta == nil {
		s.logger.Info("track skipped", "title", track.Title, "reason", reason)
		prog.SkippedByReason[reason] = 1
	} else {
		meta.Kind = models.KindTrack
		prog.Track = meta
		prog.PlaylistInfo.Title = meta.Title
		prog.PlaylistInfo.CoverURL = meta.CoverURL
	}
	yield(prog, nil)
}

func (s *Service) extractCollection(ctx context.Context, playlistID string, maxItems int, yield func(models.ExtractProgress, error) bool) {
	s.logger.Debug("extracting playlist", "playlist_id", playlistID)

	playlist, err := s.catalog.GetPlaylist(ctx, playlistID)
	if err != nil {
		yield(models.ExtractProgress{}, err)
		return
	}

	unavailable := len(playlist.Unavailable)
	playlistTotal := len(playlist.Tracks) + unavailable

	entries := playlist.Tracks
	limited := false
	if maxItems > 0 && maxItems < len(entries) {
		s.logger.Debug("limiting tracks", "max_items", maxItems, "playlist_total", playlistTotal)
		entries = entries[:maxItems]
		limited = true
	}

	kind := s.classify(ctx, playlistID, playlist.Tracks)

	info := models.PlaylistInfo{
		PlaylistID: playlistID,
		Title:      playlist.Title,
		CoverURL:   models.SquareThumbnail(playlist.Thumbnails),
		Kind:       kind,
	}
	if playlist.Author != nil {
		info.Author = playlist.Author.Name
	}

	skipped := map[models.SkipReason]int{}
	if !limited {
		for _, u := range playlist.Unavailable {
			info.UnavailableTracks = append(info.UnavailableTracks, models.UnavailableTrack{
				Title:   u.Title,
				Artists: models.ArtistNames(u.Artists),
				Album:   u.Album,
				Reason:  models.SkipUnavailable,
			})
		}
		if unavailable > 0 {
			skipped[models.SkipUnavailable] = unavailable
		}
	}

	total := len(entries)
	s.logger.Debug("processing tracks", "total", total, "limited", limited, "unavailable", unavailable, "kind", kind)

	extracted := 0
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			yield(models.ExtractProgress{}, err)
			return
		}

		meta, reason := s.processEntry(ctx, entry)
		if meta == nil {
			skipped[reason]++
			s.logger.Debug("skipped track", "title", entry.Title, "reason", reason)
		} else {
			meta.Kind = kind
			extracted++
		}

		prog := models.ExtractProgress{
			Current:         i + 1,
			Total:           total,
			PlaylistTotal:   playlistTotal,
			SkippedByReason: maps.Clone(skipped),
			Track:           meta,
			PlaylistInfo:    info,
		}
		if !yield(prog, nil) {
			return
		}
	}

	s.logger.Debug("extraction complete", "extracted", extracted, "skipped", total-extracted)
}

// processEntry runs per-entry extraction, degrading fetch failures to fallback metadata.
func (s *Service) processEntry(ctx context.Context, entry models.PlaylistTrack) (*models.TrackMetadata, models.SkipReason) {
	meta, reason, err := s.extractEntry(ctx, entry)
	if err != nil {
		s.logger.Error("failed to extract track, using fallback metadata", "title", entry.Title, "err", err)
		return s.fallbackMetadata(entry), ""
	}
	return meta, reason
}

// ExtractAll collects [Service.Extract], discarding skipped entries.
//
// On a fatal error the results gathered so far are returned with it.
func (s *Service) ExtractAll(ctx context.Context, url string, maxItems int) ([]models.TrackMetadata, error) {
	var out []models.TrackMetadata
	for prog, err := range s.Extract(ctx, url, maxItems) {
		if err != nil {
			return out, err
		}
		if prog.Track != nil {
			out = append(out, *prog.Track)
		}
	}
	return out, nil
}

// ExtractTrack extracts a single watch URL.
//
// It returns (nil, nil) when the track is filtered out (unsupported video type or no album match),
// which distinguishes "found but filtered" from a lookup failure.
func (s *Service) ExtractTrack(ctx context.Context, url string) (*models.SingleTrackResult, error) {
	videoID, ok := shared.ParseVideoID(url)
	if !ok {
		return nil, fmt.Errorf("%w: could not extract video ID from %q", shared.ErrInvalidURL, url)
	}

	track, err := s.catalog.GetTrack(ctx, videoID)
	if err != nil {
		return nil, err
	}

	meta, reason := s.processEntry(ctx, *track)
	if meta == nil {
		s.logger.Info("track skipped", "title", track.Title, "reason", reason)
		return nil, nil
	}
	meta.Kind = models.KindTrack

	return &models.SingleTrackResult{
		Track: *meta,
		PlaylistInfo: models.PlaylistInfo{
			PlaylistID: videoID,
			Title:      meta.Title,
			CoverURL:   meta.CoverURL,
			Kind:       models.KindTrack,
		},
	}, nil
}
