// Package codec converts worker telemetry readings between their typed form
// and the two shapes they travel in.
//
// # Attribute Maps
//
// A stored item is an AttributeMap: attribute name to a tagged scalar. There
// are exactly two tags, matching the convention of DynamoDB-style stores:
//
//	{"GroundNum": {"S": "ABC_123_4567"}, "GasLevel": {"N": "42"}}
//
// StringValue carries the S variant and NumberValue the N variant, holding the
// number as base-10 text. EncodeAttributes always emits all six reading
// fields.
//
// DecodeAttributes is lenient about absent fields and strict about present
// ones: it starts from DefaultReading and overwrites each field found in the
// map, so a partial item still yields a fully formed reading. A present field
// with the wrong tag, non-numeric text, or a value wider than its target type
// fails the decode with a *MalformedAttributeError naming the field.
// Attributes the codec does not know (such as a table's partition key) are
// ignored.
//
// # Canonical Text
//
// EncodeText and DecodeText use a flat JSON object with the six field names as
// keys, strings for GroundNum and HelmetNum and integers for the rest:
//
//	{"GroundNum":"ABC_123_4567","HelmetNum":"0042","Spo2Level":97,
//	 "Temperature":36,"GasLevel":120,"HeartRate":72}
//
// DecodeText requires every field and reports the first missing, null or
// wrong-shaped one as a *MalformedTextError.
//
// # Synthetic Readings
//
// Synthetic generates a reading from the codec's pattern.Generator: GroundNum
// follows GroundNumGrammar, HelmetNum follows HelmetNumGrammar and the numeric
// fields are drawn from the MaxSynthetic* ranges. SyntheticText is always
// accepted by DecodeText.
//
// By default DefaultReading is also synthetic, so a partially decoded reading
// never holds zero values for fields the store did not return. WithDefaults
// swaps in any other provider.
//
// # Thread Safety
//
// ReadingCodec is safe for concurrent use provided its generator's Source is.
// Readings are plain values.
package codec
