package extractor

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
	tu "github.com/desertthunder/yubal/internal/testing"
)

func newTestService(catalog *tu.MockCatalog) *Service {
	return NewService(catalog, nil, shared.NewLogger(io.Discard))
}

func collect(t *testing.T, s *Service, url string, maxItems int) []models.ExtractProgress {
	t.Helper()
	var out []models.ExtractProgress
	for prog, err := range s.Extract(context.Background(), url, maxItems) {
		if err != nil {
			t.Fatalf("unexpected extraction error: %v", err)
		}
		out = append(out, prog)
	}
	return out
}

func TestExtractAlbum(t *testing.T) {
	t.Run("complete album playlist", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		playlist, album := tu.AlbumFixture("OLAK5uy_X", "MPREb_X", 10)
		catalog.Playlists[playlist.ID] = playlist
		catalog.Albums[album.ID] = album

		progress := collect(t, newTestService(catalog), "https://music.youtube.com/playlist?list=OLAK5uy_X", 0)
		if len(progress) != 10 {
			t.Fatalf("expected 10 progress records, got %d", len(progress))
		}

		for i, p := range progress {
			if p.Current != i+1 || p.Total != 10 || p.PlaylistTotal != 10 {
				t.Errorf("record %d: unexpected counts %d/%d/%d", i, p.Current, p.Total, p.PlaylistTotal)
			}
			if p.PlaylistInfo.Kind != models.KindAlbum {
				t.Errorf("record %d: kind = %s, want album", i, p.PlaylistInfo.Kind)
			}
			if p.Track == nil {
				t.Fatalf("record %d: expected track", i)
			}
			if p.Track.TrackNumber != i+1 || p.Track.TotalTracks != 10 || p.Track.Year != "2020" {
				t.Errorf("record %d: unexpected album metadata %+v", i, p.Track)
			}
			if p.Track.Kind != models.KindAlbum || p.Track.Confidence != models.ConfidenceExact {
				t.Errorf("record %d: kind %s confidence %s", i, p.Track.Kind, p.Track.Confidence)
			}
			if p.Track.ATVVideoID != playlist.Tracks[i].VideoID || p.Track.OMVVideoID != "" {
				t.Errorf("record %d: ids omv=%q atv=%q", i, p.Track.OMVVideoID, p.Track.ATVVideoID)
			}
			if p.Track.CoverURL != "https://img/album.jpg" {
				t.Errorf("record %d: cover %q", i, p.Track.CoverURL)
			}
		}

		if last := progress[len(progress)-1]; last.Skipped() != 0 {
			t.Errorf("expected zero skips, got %v", last.SkippedByReason)
		}
	})

	t.Run("missing track flips to playlist", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		playlist, album := tu.AlbumFixture("OLAK5uy_X", "MPREb_X", 10)
		playlist.Tracks = playlist.Tracks[1:]
		catalog.Playlists[playlist.ID] = playlist
		catalog.Albums[album.ID] = album

		progress := collect(t, newTestService(catalog), "https://music.youtube.com/playlist?list=OLAK5uy_X", 0)
		if len(progress) != 9 {
			t.Fatalf("expected 9 records, got %d", len(progress))
		}
		if progress[0].PlaylistInfo.Kind != models.KindPlaylist || progress[0].Track.Kind != models.KindPlaylist {
			t.Errorf("kind = %s, want playlist", progress[0].PlaylistInfo.Kind)
		}
		if progress[0].Track.TrackNumber != 2 {
			t.Errorf("entries still enrich from the album, got track number %d", progress[0].Track.TrackNumber)
		}
	})

	t.Run("requires album playlist prefix", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		playlist, album := tu.AlbumFixture("PLcurated", "MPREb_X", 3)
		catalog.Playlists[playlist.ID] = playlist
		catalog.Albums[album.ID] = album

		progress := collect(t, newTestService(catalog), "https://music.youtube.com/playlist?list=PLcurated", 0)
		if progress[0].PlaylistInfo.Kind != models.KindPlaylist {
			t.Errorf("kind = %s, want playlist", progress[0].PlaylistInfo.Kind)
		}
	})

	t.Run("multiple album ids", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		playlist, album := tu.AlbumFixture("OLAK5uy_X", "MPREb_X", 3)
		playlist.Tracks[2].Album = &models.AlbumRef{ID: "MPREb_other", Name: "Other"}
		catalog.Playlists[playlist.ID] = playlist
		catalog.Albums[album.ID] = album

		progress := collect(t, newTestService(catalog), "https://music.youtube.com/playlist?list=OLAK5uy_X", 0)
		if progress[0].PlaylistInfo.Kind != models.KindPlaylist {
			t.Errorf("kind = %s, want playlist", progress[0].PlaylistInfo.Kind)
		}
	})

	t.Run("album fetch failure degrades to fallback metadata", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		playlist, _ := tu.AlbumFixture("OLAK5uy_X", "MPREb_X", 3)
		catalog.Playlists[playlist.ID] = playlist
		catalog.Errors["MPREb_X"] = errors.New("proxy exploded")

		progress := collect(t, newTestService(catalog), "https://music.youtube.com/playlist?list=OLAK5uy_X", 0)
		if len(progress) != 3 {
			t.Fatalf("expected 3 records, got %d", len(progress))
		}
		for _, p := range progress {
			if p.Track == nil {
				t.Fatal("fetch failure must not skip the entry")
			}
			if p.Track.TrackNumber != 0 || p.Track.TotalTracks != 0 || p.Track.Year != "" {
				t.Errorf("fallback metadata should have no album numbering: %+v", p.Track)
			}
			if p.Track.Album != "Fixture Album" || p.Track.Confidence != models.ConfidenceNone {
				t.Errorf("unexpected fallback metadata: %+v", p.Track)
			}
		}
		if progress[0].PlaylistInfo.Kind != models.KindPlaylist {
			t.Errorf("kind = %s, want playlist", progress[0].PlaylistInfo.Kind)
		}
	})
}

func TestExtractLimitsAndUnavailable(t *testing.T) {
	catalog := tu.NewMockCatalog()
	playlist, album := tu.AlbumFixture("PLmix", "MPREb_X", 5)
	playlist.Unavailable = []models.UnavailableEntry{
		{Title: "Gone", Artists: []models.Artist{{Name: "A"}}},
		{Title: "Also gone"},
	}
	catalog.Playlists[playlist.ID] = playlist
	catalog.Albums[album.ID] = album
	s := newTestService(catalog)

	t.Run("unlimited counts unavailable entries", func(t *testing.T) {
		progress := collect(t, s, "https://music.youtube.com/playlist?list=PLmix", 0)
		last := progress[len(progress)-1]
		if last.PlaylistTotal != 7 || last.Total != 5 {
			t.Errorf("totals = %d/%d, want 5/7", last.Total, last.PlaylistTotal)
		}
		if last.SkippedByReason[models.SkipUnavailable] != 2 {
			t.Errorf("expected 2 unavailable skips, got %v", last.SkippedByReason)
		}
		if len(last.PlaylistInfo.UnavailableTracks) != 2 {
			t.Errorf("expected unavailable listing, got %v", last.PlaylistInfo.UnavailableTracks)
		}
	})

	t.Run("max items disables unavailable accounting", func(t *testing.T) {
		progress := collect(t, s, "https://music.youtube.com/playlist?list=PLmix", 3)
		if len(progress) != 3 {
			t.Fatalf("expected 3 records, got %d", len(progress))
		}
		last := progress[len(progress)-1]
		if last.Total != 3 || last.PlaylistTotal != 7 {
			t.Errorf("totals = %d/%d, want 3/7", last.Total, last.PlaylistTotal)
		}
		if last.Skipped() != 0 || len(last.PlaylistInfo.UnavailableTracks) != 0 {
			t.Errorf("capped extraction should not report unavailable entries: %+v", last)
		}
	})

	t.Run("max items above size is not a cap", func(t *testing.T) {
		progress := collect(t, s, "https://music.youtube.com/playlist?list=PLmix", 50)
		if got := progress[len(progress)-1].SkippedByReason[models.SkipUnavailable]; got != 2 {
			t.Errorf("expected unavailable accounting, got %d", got)
		}
	})

	t.Run("skip tallies are snapshots", func(t *testing.T) {
		progress := collect(t, s, "https://music.youtube.com/playlist?list=PLmix", 0)
		progress[0].SkippedByReason[models.SkipNoAlbumMatch] = 99
		if progress[1].SkippedByReason[models.SkipNoAlbumMatch] != 0 {
			t.Error("progress records share the skip map")
		}
	})
}

func TestExtractSingleTrack(t *testing.T) {
	t.Run("unsupported video type", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.Tracks["ugc1"] = &models.PlaylistTrack{VideoID: "ugc1", Title: "Cover Song", VideoType: models.VideoTypeUGC}
		s := newTestService(catalog)
		url := "https://music.youtube.com/watch?v=ugc1"

		res, err := s.ExtractTrack(context.Background(), url)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res != nil {
			t.Errorf("expected nil result, got %+v", res)
		}

		progress := collect(t, s, url, 0)
		if len(progress) != 1 || progress[0].Track != nil {
			t.Fatalf("expected one skipped record, got %+v", progress)
		}
		if progress[0].SkippedByReason[models.SkipUnsupportedVideoType] != 1 {
			t.Errorf("unexpected skip tally %v", progress[0].SkippedByReason)
		}
		if progress[0].PlaylistInfo.Kind != models.KindTrack || progress[0].PlaylistInfo.Title != "Cover Song" {
			t.Errorf("unexpected playlist info %+v", progress[0].PlaylistInfo)
		}
	})

	t.Run("supported track", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		_, album := tu.AlbumFixture("OLAK5uy_X", "MPREb_X", 2)
		catalog.Albums[album.ID] = album
		catalog.Tracks[album.Tracks[1].VideoID] = &models.PlaylistTrack{
			VideoID:   album.Tracks[1].VideoID,
			Title:     "Track 02",
			Album:     &models.AlbumRef{ID: album.ID},
			VideoType: models.VideoTypeATV,
		}

		res, err := newTestService(catalog).ExtractTrack(context.Background(), "https://music.youtube.com/watch?v="+album.Tracks[1].VideoID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res == nil || res.Track.TrackNumber != 2 || res.Track.Kind != models.KindTrack {
			t.Fatalf("unexpected result %+v", res)
		}
		if res.PlaylistInfo.Kind != models.KindTrack || res.PlaylistInfo.PlaylistID != album.Tracks[1].VideoID {
			t.Errorf("unexpected playlist info %+v", res.PlaylistInfo)
		}
	})

	t.Run("not found is an error", func(t *testing.T) {
		_, err := newTestService(tu.NewMockCatalog()).ExtractTrack(context.Background(), "https://music.youtube.com/watch?v=nope")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("requires a watch URL", func(t *testing.T) {
		_, err := newTestService(tu.NewMockCatalog()).ExtractTrack(context.Background(), "https://music.youtube.com/playlist?list=PL1")
		if !errors.Is(err, shared.ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
	})
}

func searchFixture() (*tu.MockCatalog, models.PlaylistTrack, models.SearchResult) {
	entry := models.PlaylistTrack{
		VideoID:   "omv1",
		Title:     "Hello (Official Video)",
		Artists:   []models.Artist{{Name: "Adele"}},
		VideoType: models.VideoTypeOMV,
	}
	wrong := models.SearchResult{
		VideoID: "s1", Title: "Goodbye",
		Artists: []models.Artist{{Name: "Adele"}},
		Album:   &models.AlbumRef{ID: "A1"},
	}
	passing := models.SearchResult{
		VideoID: "atv1", VideoType: models.VideoTypeATV, Title: "Hello",
		Artists: []models.Artist{{Name: "Adele"}},
		Album:   &models.AlbumRef{ID: "A2", Name: "25"},
	}

	catalog := tu.NewMockCatalog()
	catalog.Playlists["PLsearch"] = &models.Playlist{ID: "PLsearch", Title: "Mix", Tracks: []models.PlaylistTrack{entry}}
	catalog.Albums["A2"] = &models.Album{
		ID: "A2", Title: "25", Year: "2015",
		Artists: []models.Artist{{Name: "Adele"}},
		Tracks: []models.AlbumTrack{
			{VideoID: "a-hello", Title: "Hello", TrackNumber: 1},
			{VideoID: "a-send", Title: "Send My Love", TrackNumber: 2},
		},
	}
	catalog.Searches["Adele Hello (Official Video)"] = []models.SearchResult{wrong, passing}
	return catalog, entry, passing
}

func TestExtractAlbumSearch(t *testing.T) {
	url := "https://music.youtube.com/playlist?list=PLsearch"

	t.Run("passing search result supplies the album", func(t *testing.T) {
		catalog, _, _ := searchFixture()
		progress := collect(t, newTestService(catalog), url, 0)

		track := progress[0].Track
		if track == nil {
			t.Fatal("expected metadata")
		}
		if track.Album != "25" || track.TrackNumber != 1 || track.Title != "Hello" || track.Year != "2015" {
			t.Errorf("unexpected metadata %+v", track)
		}
		if track.OMVVideoID != "a-hello" || track.ATVVideoID != "atv1" {
			t.Errorf("ids omv=%q atv=%q", track.OMVVideoID, track.ATVVideoID)
		}
		if track.Confidence != models.ConfidenceHigh {
			t.Errorf("confidence = %q, want high", track.Confidence)
		}
	})

	t.Run("no passing result skips with no album match", func(t *testing.T) {
		catalog, _, _ := searchFixture()
		results := catalog.Searches["Adele Hello (Official Video)"]
		catalog.Searches["Adele Hello (Official Video)"] = results[:1]

		progress := collect(t, newTestService(catalog), url, 0)
		if progress[0].Track != nil {
			t.Errorf("expected skip, got %+v", progress[0].Track)
		}
		if progress[0].SkippedByReason[models.SkipNoAlbumMatch] != 1 {
			t.Errorf("unexpected skip tally %v", progress[0].SkippedByReason)
		}
	})

	t.Run("no results proceeds without enrichment", func(t *testing.T) {
		catalog, _, _ := searchFixture()
		delete(catalog.Searches, "Adele Hello (Official Video)")

		progress := collect(t, newTestService(catalog), url, 0)
		track := progress[0].Track
		if track == nil || track.Album != "" || track.OMVVideoID != "omv1" || track.ATVVideoID != "" {
			t.Errorf("expected fallback metadata, got %+v", track)
		}
	})

	t.Run("search failure proceeds without enrichment", func(t *testing.T) {
		catalog, _, _ := searchFixture()
		catalog.Errors["Adele Hello (Official Video)"] = errors.New("rate limited")

		progress := collect(t, newTestService(catalog), url, 0)
		if progress[0].Track == nil || progress[0].Skipped() != 0 {
			t.Errorf("expected fallback metadata, got %+v", progress[0])
		}
	})
}

func TestExtractLowConfidence(t *testing.T) {
	catalog := tu.NewMockCatalog()
	catalog.Playlists["PLfuzzy"] = &models.Playlist{ID: "PLfuzzy", Tracks: []models.PlaylistTrack{{
		VideoID: "v1", Title: "abcde", VideoType: models.VideoTypeATV, Album: &models.AlbumRef{ID: "AL"},
	}}}
	catalog.Albums["AL"] = &models.Album{ID: "AL", Title: "Album", Tracks: []models.AlbumTrack{{VideoID: "v9", Title: "abcdx", TrackNumber: 4}}}

	progress := collect(t, newTestService(catalog), "https://music.youtube.com/playlist?list=PLfuzzy", 0)
	track := progress[0].Track
	if track.Confidence != models.ConfidenceLow || track.TrackNumber != 4 || track.Title != "abcdx" {
		t.Errorf("unexpected metadata %+v", track)
	}
	if track.ATVVideoID != "v1" || track.OMVVideoID != "v9" {
		t.Errorf("ids omv=%q atv=%q", track.OMVVideoID, track.ATVVideoID)
	}
}

func TestExtractErrors(t *testing.T) {
	s := newTestService(tu.NewMockCatalog())

	t.Run("invalid URL", func(t *testing.T) {
		_, err := s.ExtractAll(context.Background(), "https://example.com/", 0)
		if !errors.Is(err, shared.ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
	})

	t.Run("playlist not found", func(t *testing.T) {
		_, err := s.ExtractAll(context.Background(), "https://music.youtube.com/playlist?list=PLnope", 0)
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		playlist, album := tu.AlbumFixture("PLc", "MPREb_X", 3)
		catalog.Playlists[playlist.ID] = playlist
		catalog.Albums[album.ID] = album

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestService(catalog).ExtractAll(ctx, "https://music.youtube.com/playlist?list=PLc", 0)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestExtractIteration(t *testing.T) {
	catalog := tu.NewMockCatalog()
	playlist, album := tu.AlbumFixture("OLAK5uy_X", "MPREb_X", 4)
	catalog.Playlists[playlist.ID] = playlist
	catalog.Albums[album.ID] = album
	catalog.Albums["MPREb_browse"] = album
	s := newTestService(catalog)

	t.Run("stops when the consumer breaks", func(t *testing.T) {
		n := 0
		for range s.Extract(context.Background(), "https://music.youtube.com/playlist?list=OLAK5uy_X", 0) {
			n++
			if n == 2 {
				break
			}
		}
		if n != 2 {
			t.Errorf("expected 2 iterations, got %d", n)
		}
	})

	t.Run("lazy until iterated", func(t *testing.T) {
		before := catalog.CallCount("GetPlaylist")
		seq := s.Extract(context.Background(), "https://music.youtube.com/playlist?list=OLAK5uy_X", 0)
		if catalog.CallCount("GetPlaylist") != before {
			t.Fatal("Extract fetched before iteration")
		}
		for range seq {
		}
		for range seq {
		}
		if got := catalog.CallCount("GetPlaylist") - before; got != 2 {
			t.Errorf("expected each iteration to refetch, got %d fetches", got)
		}
	})

	t.Run("browse URL resolves through the album playlist", func(t *testing.T) {
		tracks, err := s.ExtractAll(context.Background(), "https://music.youtube.com/browse/MPREb_browse", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 4 || tracks[0].Kind != models.KindAlbum {
			t.Errorf("unexpected tracks %+v", tracks)
		}
	})
}
