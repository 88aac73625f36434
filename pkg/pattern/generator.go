package pattern

import (
	"math"
	"math/rand/v2"
	"strings"
	"sync"
)

// Separator joins the segments produced by Combination.
const Separator = "_"

const (
	letterMask = '0'
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits     = "0123456789"
)

// Source supplies the randomness a Generator draws from.
// IntN and Uint64N return a uniform value in [0, n) and are never called with n <= 0.
type Source interface {
	IntN(n int) int
	Uint64N(n uint64) uint64
}

// Generator produces random identifiers from a segment grammar
type Generator struct {
	src Source
}

// NewGenerator creates a generator over the given source
func NewGenerator(src Source) *Generator {
	return &Generator{src: src}
}

// Default returns a generator backed by the runtime's concurrency-safe source
func Default() *Generator {
	return NewGenerator(runtimeSource{})
}

// NewSeeded returns a deterministic generator, safe for concurrent use
func NewSeeded(seed uint64) *Generator {
	return NewGenerator(&lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))})
}

// Letters returns count uppercase Latin letters
func (g *Generator) Letters(count int) string {
	return g.pick(alphabet, count)
}

// Digits returns count decimal digits
func (g *Generator) Digits(count int) string {
	return g.pick(digits, count)
}

// Int returns a uniform integer in the closed interval [min, max]
func (g *Generator) Int(min, max int) (int, error) {
	if min > max {
		return 0, &InvalidRangeError{Min: min, Max: max}
	}
	// the span is computed in uint64 so ranges wider than MaxInt do not overflow
	span := uint64(max) - uint64(min)
	if span == math.MaxUint64 {
		hi := g.src.Uint64N(1 << 32)
		lo := g.src.Uint64N(1 << 32)
		return int(hi<<32 | lo), nil
	}
	return int(uint64(min) + g.src.Uint64N(span+1)), nil
}

// Combination builds one segment per mask character and joins them with Separator.
// A '0' in the mask selects a letters segment, anything else a digits segment.
func (g *Generator) Combination(mask string, lengths []int) (string, error) {
	kinds := []rune(mask)
	if len(kinds) != len(lengths) {
		return "", &GrammarMismatchError{MaskLen: len(kinds), LengthsLen: len(lengths)}
	}

	var sb strings.Builder
	for i, kind := range kinds {
		if i > 0 {
			sb.WriteString(Separator)
		}
		if kind == letterMask {
			sb.WriteString(g.Letters(lengths[i]))
		} else {
			sb.WriteString(g.Digits(lengths[i]))
		}
	}
	return sb.String(), nil
}

// Generate produces a string conforming to the grammar
func (g *Generator) Generate(gr Grammar) (string, error) {
	return g.Combination(gr.Mask, gr.Lengths)
}

func (g *Generator) pick(set string, count int) string {
	if count <= 0 {
		return ""
	}
	buf := make([]byte, count)
	for i := range buf {
		buf[i] = set[g.src.IntN(len(set))]
	}
	return string(buf)
}

// runtimeSource uses the top-level math/rand/v2 functions, which are safe for concurrent use
type runtimeSource struct{}

func (runtimeSource) IntN(n int) int { return rand.IntN(n) }

func (runtimeSource) Uint64N(n uint64) uint64 { return rand.Uint64N(n) }

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *lockedSource) Uint64N(n uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Uint64N(n)
}
