// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Event types cover
// the milestones operators care about: stories discovered, a video rendered,
// a job failed. Workflow code depends only on the Service interface, so
// alternative transports slot in without touching the stages.
package notifications
