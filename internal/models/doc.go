// Package models defines the value types shared by the yubal extraction pipeline and job queue.
//
// The package contains three categories of types:
//
// 1. Catalog records: immutable data read from YouTube Music
//   - [Playlist] : Playlist entries plus unavailable entry accounting
//   - [PlaylistTrack] : One playlist entry with video type and optional album reference
//   - [Album], [AlbumTrack] : Canonical album listing used for matching
//   - [SearchResult] : Song search hit used for album discovery
//
// 2. Extraction output: records produced by the metadata extractor
//   - [TrackMetadata] : Reconciled per-track metadata
//   - [ExtractProgress] : Per-entry progress with running skip tallies
//   - [PlaylistInfo], [SingleTrackResult]
//
// 3. Jobs: in-memory queue state
//   - [Job] : Unit of work for one URL with its [JobStatus] lifecycle
//   - [AlbumInfo] : Last-known summary of what a job resolved to
//   - [LogEntry] : Per-transition activity log
//
// Catalog records are never mutated once decoded; matching only reads them and copies fields into new [TrackMetadata] values.
package models
