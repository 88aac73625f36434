package codec

import (
	"errors"
	"fmt"
)

// ErrInvalidReading marks a reading whose structured codes break their grammar
var ErrInvalidReading = errors.New("invalid reading")

// MalformedAttributeError reports an attribute that cannot be parsed into its target type
type MalformedAttributeError struct {
	Field string
	Err   error
}

func (e *MalformedAttributeError) Error() string {
	return fmt.Sprintf("malformed attribute %s: %v", e.Field, e.Err)
}

func (e *MalformedAttributeError) Unwrap() error {
	return e.Err
}

// MalformedTextError reports structured text with a missing or wrong-shaped field.
// Field is empty when the text is not a JSON object at all.
type MalformedTextError struct {
	Field string
	Err   error
}

func (e *MalformedTextError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed reading text: %v", e.Err)
	}
	return fmt.Sprintf("malformed reading text: field %s: %v", e.Field, e.Err)
}

func (e *MalformedTextError) Unwrap() error {
	return e.Err
}
