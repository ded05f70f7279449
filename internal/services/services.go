// package services defines interface Catalog for reading YouTube Music metadata
//
// YouTube Music (via proxy), artwork cache
package services

import (
	"context"

	"github.com/desertthunder/yubal/internal/models"
)

// Catalog defines the read-only metadata operations the extractor needs.
//
// Implementations are synchronous and may be rate-limited; every call can fail independently.
type Catalog interface {
	// GetPlaylist retrieves a playlist with its entries and unavailable entry listing.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// GetAlbum retrieves a canonical album listing by its browse id.
	GetAlbum(ctx context.Context, albumID string) (*models.Album, error)

	// GetTrack retrieves a single track in the same shape as a playlist entry.
	GetTrack(ctx context.Context, videoID string) (*models.PlaylistTrack, error)

	// SearchSongs runs a song-filtered catalog search.
	SearchSongs(ctx context.Context, query string) ([]models.SearchResult, error)

	// Name returns the name of the catalog (e.g., "YouTube Music")
	Name() string
}
