//go:build bench
// +build bench

package codec

import (
	"testing"

	"github.com/ssargent/minewatch/pkg/pattern"
)

func BenchmarkReadingCodec_Synthetic(b *testing.B) {
	c := NewReadingCodec(pattern.NewSeeded(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Synthetic()
	}
}

func BenchmarkReadingCodec_Attributes(b *testing.B) {
	c := NewReadingCodec(pattern.NewSeeded(2))
	r := c.Synthetic()

	b.Run("encode", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = c.EncodeAttributes(r)
		}
	})

	b.Run("decode full", func(b *testing.B) {
		m := c.EncodeAttributes(r)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := c.DecodeAttributes(m); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("decode partial", func(b *testing.B) {
		m := AttributeMap{FieldGasLevel: NumberValue("42")}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := c.DecodeAttributes(m); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkReadingCodec_Text(b *testing.B) {
	c := NewReadingCodec(pattern.NewSeeded(3))
	r := c.Synthetic()
	text, err := c.EncodeText(r)
	if err != nil {
		b.Fatal(err)
	}

	b.Run("encode", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := c.EncodeText(r); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("decode", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := c.DecodeText(text); err != nil {
				b.Fatal(err)
			}
		}
	})
}
