// Package workflow advances queue jobs through the production stages.
//
// The Manager runs one polling goroutine per lane: discover, script, voice,
// image, and render. The discover lane produces new jobs when the pipeline is
// idle; the other four claim eligible jobs through store-mediated leases,
// execute their stage handler, and advance exactly one stage axis on success.
// A failed attempt records the error on the job and releases the lease with
// the stage axes untouched, so the next poll retries it; terminal imaging
// failures park the image branch at failed until an operator retries.
//
// All coordination state lives in the queue database. The manager holds no
// cross-run state of its own, which makes it safe to stop and restart at any
// point: a dedicated sweep reclaims leases whose heartbeats went stale after
// a crash, and reclaimed jobs simply resume from their last committed stage.
package workflow
