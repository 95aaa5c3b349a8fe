// Package speech wraps the text-to-speech endpoint used by the voice stage.
//
// The synthesizer accepts narration text plus a voice and audio format and
// returns base64-encoded audio together with timing marks. Only marks of type
// "word" survive decoding; they drive caption cue construction. Throttling
// and server errors are retried with exponential backoff, and Transient lets
// callers distinguish retryable failures from terminal ones.
package speech
