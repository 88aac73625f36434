package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ssargent/minewatch/pkg/pattern"
)

var errMissingField = errors.New("required field is missing")

// ReadingCodec converts WorkerReadings to and from attribute maps and
// canonical JSON text
type ReadingCodec struct {
	gen      *pattern.Generator
	defaults func() WorkerReading
}

// Option configures a ReadingCodec
type Option func(*ReadingCodec)

// WithDefaults replaces the provider of default field values used by DecodeAttributes
func WithDefaults(fn func() WorkerReading) Option {
	return func(c *ReadingCodec) {
		c.defaults = fn
	}
}

// NewReadingCodec creates a codec drawing synthetic values from gen.
// A nil gen uses pattern.Default().
func NewReadingCodec(gen *pattern.Generator, opts ...Option) *ReadingCodec {
	if gen == nil {
		gen = pattern.Default()
	}
	c := &ReadingCodec{gen: gen}
	c.defaults = c.Synthetic
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Synthetic builds a reading entirely from generated values
func (c *ReadingCodec) Synthetic() WorkerReading {
	return WorkerReading{
		GroundNum:   must(c.gen.Generate(GroundNumGrammar)),
		HelmetNum:   must(c.gen.Generate(HelmetNumGrammar)),
		Spo2Level:   uint8(must(c.gen.Int(0, MaxSyntheticSpo2))),
		Temperature: uint16(must(c.gen.Int(0, MaxSyntheticTemperature))),
		GasLevel:    uint16(must(c.gen.Int(0, MaxSyntheticGasLevel))),
		HeartRate:   uint8(must(c.gen.Int(0, MaxSyntheticHeartRate))),
	}
}

// SyntheticText returns the canonical text of a freshly generated reading
func (c *ReadingCodec) SyntheticText() string {
	return string(must(c.EncodeText(c.Synthetic())))
}

// DefaultReading returns the values absent attributes fall back to
func (c *ReadingCodec) DefaultReading() WorkerReading {
	return c.defaults()
}

// EncodeAttributes maps every reading field to a tagged attribute
func (c *ReadingCodec) EncodeAttributes(r WorkerReading) AttributeMap {
	return AttributeMap{
		FieldGroundNum:   StringValue(r.GroundNum),
		FieldHelmetNum:   StringValue(r.HelmetNum),
		FieldSpo2Level:   NumberValue(strconv.FormatUint(uint64(r.Spo2Level), 10)),
		FieldTemperature: NumberValue(strconv.FormatUint(uint64(r.Temperature), 10)),
		FieldGasLevel:    NumberValue(strconv.FormatUint(uint64(r.GasLevel), 10)),
		FieldHeartRate:   NumberValue(strconv.FormatUint(uint64(r.HeartRate), 10)),
	}
}

// DecodeAttributes builds a reading from a stored item. Fields absent from m
// keep their DefaultReading value and unknown attributes are ignored. A
// present field that does not parse fails the whole decode.
func (c *ReadingCodec) DecodeAttributes(m AttributeMap) (WorkerReading, error) {
	r := c.DefaultReading()

	for _, name := range Fields {
		v, ok := m[name]
		if !ok {
			continue
		}

		var err error
		switch name {
		case FieldGroundNum:
			r.GroundNum, err = stringAttr(v)
		case FieldHelmetNum:
			r.HelmetNum, err = stringAttr(v)
		case FieldSpo2Level:
			r.Spo2Level, err = numberAttr[uint8](v, 8)
		case FieldTemperature:
			r.Temperature, err = numberAttr[uint16](v, 16)
		case FieldGasLevel:
			r.GasLevel, err = numberAttr[uint16](v, 16)
		case FieldHeartRate:
			r.HeartRate, err = numberAttr[uint8](v, 8)
		}
		if err != nil {
			return WorkerReading{}, &MalformedAttributeError{Field: name, Err: err}
		}
	}

	return r, nil
}

// EncodeText returns the canonical JSON object for a reading
func (c *ReadingCodec) EncodeText(r WorkerReading) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeText parses canonical JSON text. All six fields are required.
func (c *ReadingCodec) DecodeText(data []byte) (WorkerReading, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return WorkerReading{}, &MalformedTextError{Err: err}
	}
	if raw == nil {
		return WorkerReading{}, &MalformedTextError{Err: errors.New("expected a JSON object")}
	}

	var r WorkerReading
	targets := map[string]any{
		FieldGroundNum:   &r.GroundNum,
		FieldHelmetNum:   &r.HelmetNum,
		FieldSpo2Level:   &r.Spo2Level,
		FieldTemperature: &r.Temperature,
		FieldGasLevel:    &r.GasLevel,
		FieldHeartRate:   &r.HeartRate,
	}

	for _, name := range Fields {
		value, ok := raw[name]
		if !ok {
			return WorkerReading{}, &MalformedTextError{Field: name, Err: errMissingField}
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return WorkerReading{}, &MalformedTextError{Field: name, Err: errors.New("null value")}
		}
		if err := json.Unmarshal(value, targets[name]); err != nil {
			return WorkerReading{}, &MalformedTextError{Field: name, Err: err}
		}
	}

	return r, nil
}

func stringAttr(v AttributeValue) (string, error) {
	s, ok := v.(StringValue)
	if !ok {
		return "", fmt.Errorf("expected string attribute, got %s", kindOf(v))
	}
	return string(s), nil
}

func numberAttr[T uint8 | uint16](v AttributeValue, bits int) (T, error) {
	n, ok := v.(NumberValue)
	if !ok {
		return 0, fmt.Errorf("expected number attribute, got %s", kindOf(v))
	}
	parsed, err := strconv.ParseUint(string(n), 10, bits)
	if err != nil {
		return 0, err
	}
	return T(parsed), nil
}

func kindOf(v AttributeValue) string {
	if v == nil {
		return "nil"
	}
	return string(v.Kind())
}

// must panics on errors that can only come from a malformed built-in grammar
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
