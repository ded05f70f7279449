package extractor

import (
	"context"
	"fmt"

	"github.com/desertthunder/yubal/internal/matching"
	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
)

// classify reports [models.KindAlbum] only when every check holds:
//
//  1. the playlist id has the album playlist prefix
//  2. the playlist has entries
//  3. entries with album info reference exactly one album id
//  4. that album can be fetched
//  5. the set of matched album track ids is as large as the album
func (s *Service) classify(ctx context.Context, playlistID string, entries []models.PlaylistTrack) models.ContentKind {
	if !shared.IsAlbumPlaylistID(playlistID) {
		s.logger.Debug("not an album: missing album playlist prefix", "playlist_id", playlistID)
		return models.KindPlaylist
	}

	if len(entries) == 0 {
		s.logger.Debug("not an album: no tracks")
		return models.KindPlaylist
	}

	albumIDs := map[string]struct{}{}
	var albumID string
	for _, e := range entries {
		if id := e.AlbumID(); id != "" {
			albumIDs[id] = struct{}{}
			albumID = id
		}
	}
	if len(albumIDs) != 1 {
		s.logger.Debug("not an album: tracks reference multiple albums", "count", len(albumIDs))
		return models.KindPlaylist
	}

	album, err := s.catalog.GetAlbum(ctx, albumID)
	if err != nil {
		s.logger.Debug("not an album: failed to fetch album", "album_id", albumID, "err", err)
		return models.KindPlaylist
	}

	matched := len(s.matcher.MatchedIDs(*album, entries))
	if matched != len(album.Tracks) {
		s.logger.Debug("not an album: incomplete match", "matched", matched, "album_tracks", len(album.Tracks))
		return models.KindPlaylist
	}

	s.logger.Debug("detected complete album", "title", album.Title)
	return models.KindAlbum
}

// extractEntry validates, enriches and builds metadata for one entry.
//
// A nil result carries the skip reason. Errors are album fetch failures the caller recovers from.
func (s *Service) extractEntry(ctx context.Context, entry models.PlaylistTrack) (*models.TrackMetadata, models.SkipReason, error) {
	if !entry.VideoType.IsSupported() {
		s.logger.Warn("unsupported video type", "title", entry.Title, "video_type", entry.VideoType.Short())
		return nil, models.SkipUnsupportedVideoType, nil
	}

	albumID := entry.AlbumID()
	var searchATV string
	if albumID == "" {
		outcome := s.searchAlbum(ctx, entry)
		switch outcome.Status {
		case matching.SearchNoMatch:
			return nil, models.SkipNoAlbumMatch, nil
		case matching.SearchMatched:
			albumID, searchATV = outcome.AlbumID, outcome.ATVVideoID
		}
	}

	if albumID == "" {
		return s.fallbackMetadata(entry), "", nil
	}

	album, err := s.catalog.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch album %s: %w", albumID, err)
	}
	return s.albumMetadata(entry, album, searchATV), "", nil
}

// searchAlbum looks up an album for an entry without an album reference. Search failures count as no results.
func (s *Service) searchAlbum(ctx context.Context, entry models.PlaylistTrack) matching.SearchOutcome {
	query := matching.SearchQuery(entry)
	if query == "" {
		return matching.SearchOutcome{Status: matching.SearchNoResults}
	}

	results, err := s.catalog.SearchSongs(ctx, query)
	if err != nil {
		s.logger.Debug("search failed", "query", query, "err", err)
		return matching.SearchOutcome{Status: matching.SearchNoResults}
	}

	outcome := s.matcher.SelectAlbum(entry, results)
	for _, r := range outcome.Rejected {
		if r.LowArtist {
			s.logger.Warn("skipping search result: artist match too low",
				"result", r.Title, "score", fmt.Sprintf("%.0f%%", r.ArtistScore))
		} else {
			s.logger.Warn("skipping search result: low title match",
				"result", r.Title, "track", entry.Title, "score", fmt.Sprintf("%.0f%%", r.TitleScore))
		}
	}

	switch outcome.Status {
	case matching.SearchMatched:
		s.logger.Info("album search match", "result", outcome.Match.Title,
			"title", fmt.Sprintf("%.0f%%", outcome.TitleScore), "artist", fmt.Sprintf("%.0f%%", outcome.ArtistScore))
	case matching.SearchNoMatch:
		s.logger.Warn("no matching album found", "track", entry.Title, "artists", models.FormatArtists(entry.Artists))
	}
	return outcome
}

// albumMetadata builds album-sourced metadata, keeping entry fields when no album track matches.
func (s *Service) albumMetadata(entry models.PlaylistTrack, album *models.Album, searchATV string) *models.TrackMetadata {
	res, ok := s.matcher.Match(*album, entry)
	switch {
	case ok && res.Confidence == models.ConfidenceLow:
		s.logger.Warn("fuzzy match", "track", entry.Title, "matched", res.Track.Title, "score", fmt.Sprintf("%.0f%%", res.Score))
	case !ok && len(album.Tracks) > 0:
		s.logger.Warn("no confident match", "track", entry.Title, "best", res.Track.Title, "score", fmt.Sprintf("%.0f%%", res.Score))
	}

	meta := &models.TrackMetadata{
		Title:        entry.Title,
		Artists:      models.ArtistNames(entry.Artists),
		Album:        album.Title,
		AlbumArtists: models.ArtistNames(album.Artists),
		TotalTracks:  len(album.Tracks),
		Year:         album.Year,
		CoverURL:     models.SquareThumbnail(album.Thumbnails),
		VideoType:    entry.VideoType,
	}

	var albumVideoID string
	if ok {
		meta.Title = res.Track.Title
		if names := models.ArtistNames(res.Track.Artists); len(names) > 0 {
			meta.Artists = names
		}
		meta.TrackNumber = res.Track.TrackNumber
		meta.Confidence = res.Confidence
		albumVideoID = res.Track.VideoID
	}

	meta.OMVVideoID, meta.ATVVideoID = resolveVideoIDs(entry.VideoID, albumVideoID, entry.VideoType, searchATV)
	return meta
}

// resolveVideoIDs returns (omv, atv) ids.
//
// An ATV entry is the audio id itself and the album track is the video variant only when it differs.
// An OMV entry prefers the album track id, and the audio id comes from search.
func resolveVideoIDs(entryID, albumID string, vt models.VideoType, searchATV string) (string, string) {
	if vt == models.VideoTypeATV {
		if albumID == entryID {
			return "", entryID
		}
		return albumID, entryID
	}

	omv := albumID
	if omv == "" {
		omv = entryID
	}
	return omv, searchATV
}

// fallbackMetadata builds entry-only metadata: no track number, total or year.
func (s *Service) fallbackMetadata(entry models.PlaylistTrack) *models.TrackMetadata {
	artists := models.ArtistNames(entry.Artists)
	meta := &models.TrackMetadata{
		Title:        entry.Title,
		Artists:      artists,
		AlbumArtists: artists,
		CoverURL:     models.SquareThumbnail(entry.Thumbnails),
		VideoType:    entry.VideoType,
	}
	if entry.Album != nil {
		meta.Album = entry.Album.Name
	}
	if entry.VideoType == models.VideoTypeATV {
		meta.ATVVideoID = entry.VideoID
	} else {
		meta.OMVVideoID = entry.VideoID
	}
	return meta
}
