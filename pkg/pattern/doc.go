// Package pattern generates random structured identifiers such as ground and
// helmet numbers.
//
// An identifier shape is a segment grammar: a mask with one character per
// segment ('0' for uppercase letters, anything else for digits) and a parallel
// list of segment lengths. Segments are joined with an underscore:
//
//	g := pattern.Default()
//	id, err := g.Combination("011", []int{3, 3, 4}) // e.g. "QRT_093_5512"
//
// Randomness comes from an injectable Source. Default uses the runtime's
// concurrency-safe generator; NewSeeded gives a reproducible sequence for
// tests. Nothing here is suitable for secrets or unguessable identifiers.
package pattern
