// Package services defines the [Catalog] interface for YouTube Music metadata and implements it against the ytmusicapi proxy.
//
// # Catalog Interface
//
// The extractor depends only on [Catalog], so tests substitute an in-memory fake.
//
// # YouTube Music Implementation
//
// [YouTubeMusic] communicates with the FastAPI proxy server wrapping ytmusicapi.
//
// The proxy handles YouTube Music authentication complexities.
// The auth_file path (browser.json, see `yubal setup youtube`) is sent via X-Auth-File header on each request.
// Requests are throttled with a token bucket from golang.org/x/time/rate.
//
// # Artwork
//
// [CoverCache] is a read-through, write-back cache of cover bytes shared by the HTTP API.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrServiceUnavailable] : Proxy unreachable
//   - [shared.ErrAPIRequest] : Non-2xx response (the proxy's "detail" is included)
//   - [shared.ErrPlaylistNotFound], [shared.ErrAlbumNotFound], [shared.ErrTrackNotFound] : 404 for the given id
package services
