package pebblestore

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"
)

// envelopeHeaderSize is CRC32(4) + Timestamp(8) + PayloadSize(4)
const envelopeHeaderSize = 16

// envelope frames a stored item so corruption is detected on read
type envelope struct {
	CRC32       uint32 // checksum over everything after this field
	Timestamp   uint64 // write time, Unix nanoseconds
	PayloadSize uint32
	Payload     []byte // JSON attribute map
}

func newEnvelope(payload []byte) *envelope {
	if len(payload) > int(^uint32(0)) {
		panic("payload too large")
	}
	return &envelope{
		Timestamp:   uint64(time.Now().UnixNano()),
		PayloadSize: uint32(len(payload)),
		Payload:     payload,
	}
}

// encodeEnvelope serializes a payload as [CRC32(4)][Timestamp(8)][PayloadSize(4)][Payload]
func encodeEnvelope(payload []byte) []byte {
	e := newEnvelope(payload)
	e.CRC32 = e.checksum()

	buf := make([]byte, envelopeHeaderSize+len(e.Payload))
	binary.LittleEndian.PutUint32(buf[0:], e.CRC32)
	binary.LittleEndian.PutUint64(buf[4:], e.Timestamp)
	binary.LittleEndian.PutUint32(buf[12:], e.PayloadSize)
	copy(buf[envelopeHeaderSize:], e.Payload)
	return buf
}

// decodeEnvelope parses and verifies a stored value. The payload aliases data.
func decodeEnvelope(data []byte) (*envelope, error) {
	if len(data) < envelopeHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for an envelope header", ErrCorruptItem, len(data))
	}

	e := &envelope{
		CRC32:       binary.LittleEndian.Uint32(data[0:4]),
		Timestamp:   binary.LittleEndian.Uint64(data[4:12]),
		PayloadSize: binary.LittleEndian.Uint32(data[12:16]),
	}
	if uint64(len(data)-envelopeHeaderSize) != uint64(e.PayloadSize) {
		return nil, fmt.Errorf("%w: payload size %d does not match %d stored bytes",
			ErrCorruptItem, e.PayloadSize, len(data)-envelopeHeaderSize)
	}
	e.Payload = data[envelopeHeaderSize:]

	if sum := e.checksum(); sum != e.CRC32 {
		return nil, fmt.Errorf("%w: CRC32 mismatch: %d != %d", ErrCorruptItem, e.CRC32, sum)
	}
	return e, nil
}

func (e *envelope) checksum() uint32 {
	var header [12]byte
	binary.LittleEndian.PutUint64(header[0:], e.Timestamp)
	binary.LittleEndian.PutUint32(header[8:], e.PayloadSize)

	crc := crc32.NewIEEE()
	_, _ = crc.Write(header[:])
	_, _ = crc.Write(e.Payload)
	return crc.Sum32()
}
