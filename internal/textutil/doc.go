// Package textutil provides text fingerprinting and similarity helpers.
//
// Discovery uses fingerprints to drop near-duplicate story candidates within
// a batch: the same story often comes back under two different URLs, and URL
// uniqueness alone does not catch that.
//
// Fingerprints are term-frequency vectors. Tokenization lowercases text,
// splits on non-alphanumeric characters, and filters tokens shorter than
// 3 characters.
package textutil
