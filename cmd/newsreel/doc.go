// Command newsreel is the operator CLI for the newsreel video pipeline. It
// queues stories, inspects and repairs the job queue, runs individual
// pipeline lanes for debugging, and can host the daemon loop in the
// foreground on machines without a service manager.
package main
