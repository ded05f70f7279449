// Package tasks runs the work behind a job: the sync pipeline and bulk extraction.
//
// # Sync pipeline
//
// [SyncService.Run] drives one URL through four phases, each mapped onto a fixed band of overall progress:
//
//  1. Extract metadata with a [Source] (0 → 10)
//  2. Download audio with a [Downloader] into a per-job temp directory (10 → 80)
//  3. Import: albums and single tracks go through a [Tagger]; playlists are moved into the playlists directory (80 → 90)
//  4. Playlists get an M3U file next to their tracks (90 → 100)
//
// Partial downloads continue; zero downloaded files fails the run. The temp directory is removed on exit.
//
// # Progress and cancellation
//
// The pipeline reports [ProgressEvent] values to an [Emitter]. The job executor passes a [ChannelEmitter]
// whose sends block until the controller drains them. A shared [CancelToken] is polled between phases
// and per extracted entry; once it is set the emitter drops events and the pipeline returns early.
//
// # Bulk extraction
//
// [BulkExtract] runs a rate-limited worker pool over many URLs, writes one export per URL through the
// formatter package and a JSON manifest summarizing the run.
package tasks
