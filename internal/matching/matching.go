// Package matching reconciles playlist entries with canonical album listings.
//
// Matching is tiered and first-success-wins:
//
//  1. Video id equality
//  2. Exact title (case-insensitive, trimmed)
//  3. Unique duration (ties disqualify the tier)
//  4. Fuzzy title similarity: > [HighConfidence] accepts silently,
//     > [LowConfidence] accepts flagged as low confidence, otherwise rejects
//
// Album discovery for entries without an album reference is handled by [Matcher.SelectAlbum].
//
// All functions are pure; callers own logging.
package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/yubal/internal/models"
	"github.com/xrash/smetrics"
)

const (
	HighConfidence        float64 = 80 // Fuzzy scores above this accept silently
	LowConfidence         float64 = 50 // Fuzzy scores at or below this reject
	SearchTitleThreshold  float64 = 70 // Minimum title similarity for an album search hit
	SearchArtistThreshold float64 = 70 // Minimum similarity of some artist pair
)

// videoSuffixes are trailing decorations YouTube adds to music video titles.
var videoSuffixes = []string{
	"(official video)",
	"(official music video)",
	"(official audio)",
	"(official lyric video)",
	"(official visualizer)",
	"(music video)",
	"(lyric video)",
	"(lyrics)",
	"(visualizer)",
	"(audio)",
	"(video)",
}

// Scorer returns a similarity score in [0, 100].
type Scorer func(a, b string) float64

// Ratio is the normalized InDel similarity of a and b on a 0–100 scale, counted in characters.
//
// It is computed from the Wagner–Fischer distance with insertion and deletion cost 1 and substitution cost 2,
// so that ratio = (len(a)+len(b)-distance) / (len(a)+len(b)) * 100 with lengths in runes. Two empty strings are identical.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return float64(total-indelDistance(ra, rb)) * 100 / float64(total)
}

// indelDistance returns the InDel distance of a and b over runes.
func indelDistance(a, b []rune) int {
	if ea, eb, ok := compact(a, b); ok {
		return smetrics.WagnerFischer(ea, eb, 1, 1, 2)
	}

	// InDel distance is len(a)+len(b) minus twice the longest common subsequence.
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range a {
		for j := range b {
			switch {
			case a[i] == b[j]:
				cur[j+1] = prev[j] + 1
			case prev[j+1] >= cur[j]:
				cur[j+1] = prev[j+1]
			default:
				cur[j+1] = cur[j]
			}
		}
		prev, cur = cur, prev
	}
	return len(a) + len(b) - 2*prev[len(b)]
}

// compact re-encodes a and b over a shared single-byte ASCII alphabet, so that the byte-wise
// distance of the results equals the rune-wise distance of the inputs.
//
// It fails when the two strings use more distinct runes than fit below [utf8.RuneSelf].
func compact(a, b []rune) (string, string, bool) {
	codes := make(map[rune]byte, len(a)+len(b))
	encode := func(rs []rune) (string, bool) {
		buf := make([]byte, len(rs))
		for i, r := range rs {
			c, ok := codes[r]
			if !ok {
				if len(codes) >= utf8.RuneSelf {
					return "", false
				}
				c = byte(len(codes))
				codes[r] = c
			}
			buf[i] = c
		}
		return string(buf), true
	}

	ea, ok := encode(a)
	if !ok {
		return "", "", false
	}
	eb, ok := encode(b)
	if !ok {
		return "", "", false
	}
	return ea, eb, true
}

// NormalizeTitle lowercases and trims title, then strips at most one trailing video suffix.
func NormalizeTitle(title string) string {
	n := strings.ToLower(strings.TrimSpace(title))
	for _, suffix := range videoSuffixes {
		if strings.HasSuffix(n, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(n, suffix))
		}
	}
	return n
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tier identifies which strategy produced a match.
type Tier int

const (
	TierNone Tier = iota
	TierVideoID
	TierTitle
	TierDuration
	TierFuzzy
)

func (t Tier) String() string {
	switch t {
	case TierVideoID:
		return "video_id"
	case TierTitle:
		return "title"
	case TierDuration:
		return "duration"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Result describes the outcome of [Matcher.Match].
//
// For a rejected fuzzy match Track and Score hold the best candidate so callers can report it.
type Result struct {
	Track      models.AlbumTrack
	Tier       Tier
	Score      float64
	Confidence models.MatchConfidence
}

// Matcher implements tiered matching with an injectable similarity [Scorer].
type Matcher struct {
	Scorer Scorer
}

// New creates a Matcher scoring with [Ratio].
func New() *Matcher {
	return &Matcher{Scorer: Ratio}
}

func (m *Matcher) score(a, b string) float64 {
	if m.Scorer == nil {
		return Ratio(a, b)
	}
	return m.Scorer(a, b)
}

// Match finds the album track corresponding to entry.
//
// An album without tracks never matches.
func (m *Matcher) Match(album models.Album, entry models.PlaylistTrack) (Result, bool) {
	if len(album.Tracks) == 0 {
		return Result{}, false
	}

	if entry.VideoID != "" {
		for _, t := range album.Tracks {
			if t.VideoID == entry.VideoID {
				return Result{Track: t, Tier: TierVideoID, Score: 100, Confidence: models.ConfidenceExact}, true
			}
		}
	}

	title := fold(entry.Title)
	for _, t := range album.Tracks {
		if fold(t.Title) == title {
			return Result{Track: t, Tier: TierTitle, Score: 100, Confidence: models.ConfidenceExact}, true
		}
	}

	if entry.DurationSeconds > 0 {
		var hit *models.AlbumTrack
		n := 0
		for i := range album.Tracks {
			if album.Tracks[i].DurationSeconds == entry.DurationSeconds {
				hit = &album.Tracks[i]
				n++
			}
		}
		if n == 1 {
			return Result{Track: *hit, Tier: TierDuration, Score: 100, Confidence: models.ConfidenceExact}, true
		}
	}

	return m.fuzzy(album, entry.Title)
}

func (m *Matcher) fuzzy(album models.Album, title string) (Result, bool) {
	target := NormalizeTitle(title)

	best, bestScore := 0, m.score(target, NormalizeTitle(album.Tracks[0].Title))
	for i := 1; i < len(album.Tracks); i++ {
		if s := m.score(target, NormalizeTitle(album.Tracks[i].Title)); s > bestScore {
			best, bestScore = i, s
		}
	}

	res := Result{Track: album.Tracks[best], Tier: TierFuzzy, Score: bestScore}
	switch {
	case bestScore > HighConfidence:
		res.Confidence = models.ConfidenceHigh
		return res, true
	case bestScore > LowConfidence:
		res.Confidence = models.ConfidenceLow
		return res, true
	default:
		res.Tier = TierNone
		return res, false
	}
}

// MatchedIDs returns the set of album track video ids matched by entries.
func (m *Matcher) MatchedIDs(album models.Album, entries []models.PlaylistTrack) map[string]struct{} {
	ids := make(map[string]struct{}, len(album.Tracks))
	for _, e := range entries {
		if r, ok := m.Match(album, e); ok {
			ids[r.Track.VideoID] = struct{}{}
		}
	}
	return ids
}
