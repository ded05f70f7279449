package matching

import (
	"strings"

	"github.com/desertthunder/yubal/internal/models"
)

// SearchStatus is the outcome class of album discovery.
type SearchStatus int

const (
	// SearchNoResults means nothing usable came back; proceed without album enrichment.
	SearchNoResults SearchStatus = iota
	// SearchMatched means a result passed both the title and artist checks.
	SearchMatched
	// SearchNoMatch means results with album info existed but none passed; the entry is skipped.
	SearchNoMatch
)

func (s SearchStatus) String() string {
	switch s {
	case SearchMatched:
		return "matched"
	case SearchNoMatch:
		return "no_match"
	default:
		return "no_results"
	}
}

// Rejection records a search result that failed a threshold.
type Rejection struct {
	Title       string
	TitleScore  float64
	ArtistScore float64
	LowArtist   bool // passed the title check but no artist pair matched
}

// SearchOutcome is the result of [Matcher.SelectAlbum].
type SearchOutcome struct {
	Status      SearchStatus
	AlbumID     string
	ATVVideoID  string // set when the matched result is itself an audio track
	Match       *models.SearchResult
	TitleScore  float64
	ArtistScore float64
	Rejected    []Rejection
}

// SearchQuery builds the "artists title" query used for album discovery.
func SearchQuery(entry models.PlaylistTrack) string {
	return strings.TrimSpace(models.FormatArtists(entry.Artists) + " " + entry.Title)
}

func artistSet(artists []models.Artist) []string {
	seen := make(map[string]struct{}, len(artists))
	out := make([]string, 0, len(artists))
	for _, a := range artists {
		n := fold(a.Name)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// bestArtistScore returns the best pairwise similarity between two artist sets.
func (m *Matcher) bestArtistScore(target, candidate []string) float64 {
	best := 0.0
	for _, t := range target {
		for _, c := range candidate {
			if s := m.score(t, c); s > best {
				best = s
			}
		}
	}
	return best
}

// SelectAlbum picks the first search result that carries album information and
// passes both the title check and the artist check.
//
// Results without album info are ignored. When no result carries album info the outcome is [SearchNoResults].
func (m *Matcher) SelectAlbum(entry models.PlaylistTrack, results []models.SearchResult) SearchOutcome {
	target := NormalizeTitle(entry.Title)
	targetArtists := artistSet(entry.Artists)

	out := SearchOutcome{Status: SearchNoResults}
	hadAlbum := false
	for i := range results {
		r := results[i]
		if r.Album == nil || r.Album.ID == "" {
			continue
		}
		hadAlbum = true

		titleScore := m.score(target, NormalizeTitle(r.Title))
		if titleScore < SearchTitleThreshold {
			out.Rejected = append(out.Rejected, Rejection{Title: r.Title, TitleScore: titleScore})
			continue
		}

		artistScore := m.bestArtistScore(targetArtists, artistSet(r.Artists))
		if artistScore < SearchArtistThreshold {
			out.Rejected = append(out.Rejected, Rejection{
				Title: r.Title, TitleScore: titleScore, ArtistScore: artistScore, LowArtist: true,
			})
			continue
		}

		out.Status = SearchMatched
		out.AlbumID = r.Album.ID
		out.Match = &results[i]
		out.TitleScore = titleScore
		out.ArtistScore = artistScore
		if r.VideoType == models.VideoTypeATV {
			out.ATVVideoID = r.VideoID
		}
		return out
	}

	if hadAlbum {
		out.Status = SearchNoMatch
	}
	return out
}
