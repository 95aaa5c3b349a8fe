// Package llm provides an OpenRouter chat client for JSON-mode completions.
//
// This package is used by:
//   - Discovery stage: find story candidates worth narrating
//   - Script stage: turn an article into a narration script and visual prompts
//
// # Request Shape
//
// The client sends a system prompt and a user prompt to a configured model
// with response_format set to json_object, temperature 0. The raw JSON
// payload is returned to the caller; DecodeLLMJSON strips stray code fences
// before unmarshalling.
//
// # Configuration
//
// Requires api_key and model, and optionally base_url, referer, title, and a
// request timeout. Each caller builds its own Config so discovery and
// scripting can run different models against the same account.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.HealthCheck: verify API key and model availability.
// Transient: report whether an error is worth retrying on another model.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, network timeouts, and empty
// completions with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). Retry-After headers are honored when present. Context
// cancellation aborts retries immediately.
//
// Callers with more than one configured model (the script stage's waterfall)
// use Transient to decide whether falling through to the next model is
// worthwhile after the per-model retries are exhausted.
package llm
