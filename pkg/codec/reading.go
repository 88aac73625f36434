package codec

import (
	"fmt"

	"github.com/ssargent/minewatch/pkg/pattern"
)

// Attribute names of a stored reading
const (
	FieldGroundNum   = "GroundNum"
	FieldHelmetNum   = "HelmetNum"
	FieldSpo2Level   = "Spo2Level"
	FieldTemperature = "Temperature"
	FieldGasLevel    = "GasLevel"
	FieldHeartRate   = "HeartRate"
)

// Fields lists the reading attributes in canonical order
var Fields = []string{
	FieldGroundNum,
	FieldHelmetNum,
	FieldSpo2Level,
	FieldTemperature,
	FieldGasLevel,
	FieldHeartRate,
}

var (
	// GroundNumGrammar yields codes like ABC_123_4567
	GroundNumGrammar = pattern.Grammar{Mask: "011", Lengths: []int{3, 3, 4}}
	// HelmetNumGrammar yields four-digit codes
	HelmetNumGrammar = pattern.Grammar{Mask: "1", Lengths: []int{4}}
)

// Synthetic value ranges. Spo2Level and Temperature deliberately keep the
// full byte range the field devices have always been simulated with.
const (
	MaxSyntheticSpo2        = 255
	MaxSyntheticTemperature = 255
	MaxSyntheticGasLevel    = 65000
	MaxSyntheticHeartRate   = 255
)

// WorkerReading is one biometric/environmental sample from a worker's helmet
type WorkerReading struct {
	GroundNum   string `json:"GroundNum"`
	HelmetNum   string `json:"HelmetNum"`
	Spo2Level   uint8  `json:"Spo2Level"`
	Temperature uint16 `json:"Temperature"`
	GasLevel    uint16 `json:"GasLevel"`
	HeartRate   uint8  `json:"HeartRate"`
}

// UniqueKey identifies the worker/helmet pair the reading belongs to
func (r WorkerReading) UniqueKey() string {
	return r.GroundNum + r.HelmetNum
}

// Validate checks the structured-code fields against their grammars
func (r WorkerReading) Validate() error {
	if !GroundNumGrammar.Matches(r.GroundNum) {
		return fmt.Errorf("%w: %s %q does not match %s", ErrInvalidReading, FieldGroundNum, r.GroundNum, GroundNumGrammar)
	}
	if !HelmetNumGrammar.Matches(r.HelmetNum) {
		return fmt.Errorf("%w: %s %q does not match %s", ErrInvalidReading, FieldHelmetNum, r.HelmetNum, HelmetNumGrammar)
	}
	return nil
}
