//go:build fuzz
// +build fuzz

package codec

import (
	"errors"
	"testing"

	"github.com/ssargent/minewatch/pkg/pattern"
)

// FuzzReadingCodec_DecodeText checks that arbitrary text either decodes into a
// reading that re-encodes losslessly or fails with a MalformedTextError
func FuzzReadingCodec_DecodeText(f *testing.F) {
	c := NewReadingCodec(pattern.NewSeeded(1))

	f.Add([]byte(`{"GroundNum":"ABC_123_4567","HelmetNum":"0042","Spo2Level":97,"Temperature":36,"GasLevel":120,"HeartRate":72}`))
	f.Add([]byte(`{"GroundNum":"ABC_123_4567"}`))
	f.Add([]byte(`{"GroundNum":1,"HelmetNum":"0042","Spo2Level":97,"Temperature":36,"GasLevel":120,"HeartRate":72}`))
	f.Add([]byte(`null`))
	f.Add([]byte(``))
	f.Add([]byte(c.SyntheticText()))

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := c.DecodeText(data)
		if err != nil {
			var malformed *MalformedTextError
			if !errors.As(err, &malformed) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			return
		}

		text, err := c.EncodeText(r)
		if err != nil {
			t.Fatalf("EncodeText failed: %v", err)
		}
		again, err := c.DecodeText(text)
		if err != nil {
			t.Fatalf("re-decode failed for %s: %v", text, err)
		}
		if again != r {
			t.Errorf("round trip mismatch: got %+v, want %+v", again, r)
		}
	})
}

// FuzzReadingCodec_DecodeAttributes feeds arbitrary numeric text into every numeric field
func FuzzReadingCodec_DecodeAttributes(f *testing.F) {
	c := NewReadingCodec(pattern.NewSeeded(2))

	f.Add("GasLevel", "42")
	f.Add("HeartRate", "not-a-number")
	f.Add("Spo2Level", "256")
	f.Add("Temperature", "-1")

	f.Fuzz(func(t *testing.T, field, text string) {
		r, err := c.DecodeAttributes(AttributeMap{field: NumberValue(text)})
		if err != nil {
			var malformed *MalformedAttributeError
			if !errors.As(err, &malformed) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			if malformed.Field != field {
				t.Errorf("error names %q, want %q", malformed.Field, field)
			}
			return
		}

		decoded, err := c.DecodeAttributes(c.EncodeAttributes(r))
		if err != nil {
			t.Fatalf("round trip failed: %v", err)
		}
		if decoded != r {
			t.Errorf("round trip mismatch: got %+v, want %+v", decoded, r)
		}
	})
}
