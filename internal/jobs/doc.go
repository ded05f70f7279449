// Package jobs holds the in-memory job queue and the executor that runs queued syncs one at a time.
//
// [Store] owns job state and enforces the single running job. [Executor] runs a [Pipeline] per job,
// relaying its progress through a channel into [Store.Transition], and starts the next pending job
// when one finishes. [Manager] validates input and maps failures onto the shared sentinel errors.
package jobs
