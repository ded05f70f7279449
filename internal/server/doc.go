// Package server exposes the job queue over HTTP.
//
// # Routes
//
//	GET    /healthz              liveness probe
//	GET    /api/jobs             jobs (oldest first) and the activity log
//	POST   /api/jobs             create a job from {"url", "audio_format", "max_items"}
//	DELETE /api/jobs             clear finished jobs
//	GET    /api/jobs/ws          websocket stream of {"jobs": [...]} snapshots
//	GET    /api/jobs/{id}        one job
//	DELETE /api/jobs/{id}        delete a finished job
//	POST   /api/jobs/{id}/cancel cancel a pending or running job
//	GET    /api/jobs/{id}/cover  the job's artwork, served through the cover cache
//
// # Errors
//
// Failures are JSON objects of the form {"error": "..."}. Sentinel errors from package shared map to
// status codes: not found is 404, state conflicts and a full queue are 409, invalid input is 400.
//
// # Streaming
//
// The websocket handler subscribes to the job store and sends a fresh snapshot after each change.
// Notifications coalesce, so a slow client skips intermediate states rather than queueing them.
// [Server.Close] ends open streams during shutdown.
package server
