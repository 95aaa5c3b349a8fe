// Package queue persists pipeline jobs in SQLite and exposes the claim
// queries that coordinate independent stage workers.
//
// A Job advances along two independent axes: the script axis (pending,
// scripted, voiced, completed) and the image axis (pending, completed,
// failed). Stage workers lease the next eligible job with an atomic claim
// query, mutate it exactly once, and write the whole row back. The render
// stage claims only jobs that are voiced with a completed image set, and
// discovery is suppressed while any job is still in flight on either axis.
//
// The database is treated as the single source of coordination between
// workers rather than a long-term archive, though completed jobs are kept
// as audit records. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
