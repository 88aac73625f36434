package pattern

import "fmt"

// InvalidRangeError is returned by Int when min > max
type InvalidRangeError struct {
	Min int
	Max int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: min %d > max %d", e.Min, e.Max)
}

// GrammarMismatchError is returned when a mask and its segment lengths disagree in length
type GrammarMismatchError struct {
	MaskLen    int
	LengthsLen int
}

func (e *GrammarMismatchError) Error() string {
	return fmt.Sprintf("grammar mismatch: mask has %d segments, lengths has %d", e.MaskLen, e.LengthsLen)
}
