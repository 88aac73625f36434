package pattern

import (
	"strconv"
	"strings"
)

// Grammar describes an identifier shape: one segment per mask character,
// Lengths[i] characters long.
type Grammar struct {
	Mask    string
	Lengths []int
}

// Validate reports a mask/lengths mismatch
func (gr Grammar) Validate() error {
	if n := len([]rune(gr.Mask)); n != len(gr.Lengths) {
		return &GrammarMismatchError{MaskLen: n, LengthsLen: len(gr.Lengths)}
	}
	return nil
}

// Matches reports whether s has exactly the segments the grammar describes
func (gr Grammar) Matches(s string) bool {
	if gr.Validate() != nil {
		return false
	}

	kinds := []rune(gr.Mask)
	if len(kinds) == 0 {
		return s == ""
	}
	segments := strings.Split(s, Separator)
	if len(segments) != len(kinds) {
		return false
	}

	for i, seg := range segments {
		if len(seg) != max(gr.Lengths[i], 0) {
			return false
		}
		set := digits
		if kinds[i] == letterMask {
			set = alphabet
		}
		for j := 0; j < len(seg); j++ {
			if strings.IndexByte(set, seg[j]) < 0 {
				return false
			}
		}
	}
	return true
}

// String renders the grammar as a regular expression, e.g. [A-Z]{3}_[0-9]{4}
func (gr Grammar) String() string {
	var sb strings.Builder
	for i, kind := range []rune(gr.Mask) {
		if i > 0 {
			sb.WriteString(Separator)
		}
		if kind == letterMask {
			sb.WriteString("[A-Z]")
		} else {
			sb.WriteString("[0-9]")
		}
		if i < len(gr.Lengths) {
			sb.WriteString("{")
			sb.WriteString(strconv.Itoa(max(gr.Lengths[i], 0)))
			sb.WriteString("}")
		}
	}
	return sb.String()
}
