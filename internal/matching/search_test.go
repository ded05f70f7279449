package matching

import (
	"testing"

	"github.com/desertthunder/yubal/internal/models"
)

func TestSearchQuery(t *testing.T) {
	got := SearchQuery(models.PlaylistTrack{
		Title:   "Hello",
		Artists: []models.Artist{{Name: "Adele"}, {Name: "Guest"}},
	})
	if got != "Adele; Guest Hello" {
		t.Errorf("SearchQuery() = %q", got)
	}

	if got := SearchQuery(models.PlaylistTrack{Title: "Solo"}); got != "Solo" {
		t.Errorf("SearchQuery() without artists = %q", got)
	}
}

func TestSelectAlbum(t *testing.T) {
	m := New()
	entry := models.PlaylistTrack{
		VideoID:   "omv1",
		Title:     "Hello (Official Music Video)",
		Artists:   []models.Artist{{Name: "Adele"}},
		VideoType: models.VideoTypeOMV,
	}

	wrong := models.SearchResult{
		VideoID: "s1", Title: "Goodbye",
		Artists: []models.Artist{{Name: "Adele"}},
		Album:   &models.AlbumRef{ID: "A1", Name: "Other"},
	}
	passing := models.SearchResult{
		VideoID: "atv1", VideoType: models.VideoTypeATV, Title: "Hello",
		Artists: []models.Artist{{Name: "ADELE "}},
		Album:   &models.AlbumRef{ID: "A2", Name: "25"},
	}

	t.Run("first passing result wins", func(t *testing.T) {
		out := m.SelectAlbum(entry, []models.SearchResult{wrong, passing})
		if out.Status != SearchMatched {
			t.Fatalf("status = %s, want matched", out.Status)
		}
		if out.AlbumID != "A2" || out.ATVVideoID != "atv1" {
			t.Errorf("got album %q atv %q", out.AlbumID, out.ATVVideoID)
		}
		if len(out.Rejected) != 1 || out.Rejected[0].Title != "Goodbye" {
			t.Errorf("expected the wrong title to be rejected, got %+v", out.Rejected)
		}
	})

	t.Run("removing the passing result skips", func(t *testing.T) {
		out := m.SelectAlbum(entry, []models.SearchResult{wrong})
		if out.Status != SearchNoMatch {
			t.Errorf("status = %s, want no_match", out.Status)
		}
	})

	t.Run("artist must match", func(t *testing.T) {
		r := passing
		r.Artists = []models.Artist{{Name: "Someone Else Entirely"}}
		out := m.SelectAlbum(entry, []models.SearchResult{r})
		if out.Status != SearchNoMatch {
			t.Fatalf("status = %s, want no_match", out.Status)
		}
		if !out.Rejected[0].LowArtist {
			t.Error("expected rejection to be attributed to the artist check")
		}
	})

	t.Run("non-ATV match leaves ATV id empty", func(t *testing.T) {
		r := passing
		r.VideoType = models.VideoTypeOMV
		out := m.SelectAlbum(entry, []models.SearchResult{r})
		if out.Status != SearchMatched || out.ATVVideoID != "" {
			t.Errorf("got %+v", out)
		}
	})

	t.Run("results without album info count as no results", func(t *testing.T) {
		r := passing
		r.Album = nil
		if out := m.SelectAlbum(entry, []models.SearchResult{r}); out.Status != SearchNoResults {
			t.Errorf("status = %s, want no_results", out.Status)
		}
	})

	t.Run("accented titles compare by character", func(t *testing.T) {
		accented := models.PlaylistTrack{
			Title:     "Café",
			Artists:   []models.Artist{{Name: "Björk"}},
			VideoType: models.VideoTypeOMV,
		}
		r := models.SearchResult{
			VideoID: "atv2", VideoType: models.VideoTypeATV, Title: "Cafe",
			Artists: []models.Artist{{Name: "Björk"}},
			Album:   &models.AlbumRef{ID: "A3", Name: "Debut"},
		}
		out := m.SelectAlbum(accented, []models.SearchResult{r})
		if out.Status != SearchMatched || out.AlbumID != "A3" {
			t.Fatalf("got %s %q, want matched A3", out.Status, out.AlbumID)
		}
		if out.TitleScore != 75 {
			t.Errorf("title score = %v, want 75", out.TitleScore)
		}
	})

	t.Run("empty results", func(t *testing.T) {
		if out := m.SelectAlbum(entry, nil); out.Status != SearchNoResults {
			t.Errorf("status = %s, want no_results", out.Status)
		}
	})
}
