// Package preflight provides readiness checks for external services
// and filesystem paths that the pipeline depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll once at startup and logs every failure, so a
//     misconfigured install surfaces before the first job stalls mid-lane.
//   - The CLI "newsreel status" command uses individual check functions
//     (CheckLLM, CheckDirectoryAccess) to display service health.
//
// The LLM check performs a real round trip because discovery and scripting
// cannot run without it. Speech and image generation checks inspect
// configuration only; a live probe would spend provider quota.
package preflight
