// Package captions turns per-word timing marks into subtitle cues.
//
// The voice stage feeds it the word marks returned by speech synthesis; each
// word becomes one cue that stays visible until the next word starts, with a
// fixed tail so the last word does not vanish on the final frame. FormatSRT
// writes the SubRip layout the render stage burns in, and ValidateSRT checks
// a written file before the job advances.
package captions
