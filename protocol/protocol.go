// Package protocol implements the turret telemetry wire protocol:
// COBS framing, the word-aligned CRC-32 trailer and payload codecs.
package protocol

// Version represents the turretlink firmware version
const Version = "0.1.0"

// Protocol constants
const (
	BufSize     = 64              // DMA buffer capacity in bytes
	MessageSize = BufSize - 1     // Largest stuffed frame accepted off the wire
	MaxMessage  = MessageSize - 2 // Unstuffed payload + CRC, minus code byte and terminator
	CRCSize     = 4               // Big-endian CRC-32 trailer
	MaxPayload  = MaxMessage - CRCSize

	FrameDelimiter = 0x00 // COBS frame terminator
)

// ProtocolVersion selects the telemetry payload layout
type ProtocolVersion uint8

const (
	// ProtocolV1 carries the position as a float
	ProtocolV1 ProtocolVersion = 1
	// ProtocolV2 carries the raw count and rotation direction
	ProtocolV2 ProtocolVersion = 2
)
