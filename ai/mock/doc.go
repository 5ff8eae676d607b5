// Package mock provides deterministic test doubles for the ai package.
//
// The mock embedder hashes input text into a fixed-dimension unit vector, so
// identical text always embeds identically and tests stay reproducible
// without a running embedding service.
package mock
