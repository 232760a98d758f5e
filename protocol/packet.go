package protocol

import "errors"

var (
	// ErrUnknownVariant is returned when encoding an enum value with no name
	ErrUnknownVariant = errors.New("unknown enum variant")
	// ErrUnknownCodec is returned by CodecByName
	ErrUnknownCodec = errors.New("unknown codec")
)

// Direction is the rotation direction reported by the quadrature counter
type Direction uint8

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "Backward"
	}
	return "Forward"
}

// MarshalText encodes the direction by variant name
func (d Direction) MarshalText() ([]byte, error) {
	if d > Backward {
		return nil, ErrUnknownVariant
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts the variant names produced by MarshalText
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Forward":
		*d = Forward
	case "Backward":
		*d = Backward
	default:
		return ErrDeserializeFailed
	}
	return nil
}

// RequestKind discriminates inbound command requests
type RequestKind uint32

const (
	RequestDefault   RequestKind = 0
	RequestTelemetry RequestKind = 1
)

func (k RequestKind) String() string {
	switch k {
	case RequestDefault:
		return "Default"
	case RequestTelemetry:
		return "Telemetry"
	}
	return "Unknown"
}

// Valid reports whether k is a known variant
func (k RequestKind) Valid() bool {
	return k == RequestDefault || k == RequestTelemetry
}

// MarshalText encodes the kind by variant name
func (k RequestKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, ErrUnknownVariant
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts the variant names produced by MarshalText
func (k *RequestKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Default":
		*k = RequestDefault
	case "Telemetry":
		*k = RequestTelemetry
	default:
		return ErrDeserializeFailed
	}
	return nil
}

// Request is an inbound command. It is decoded and consumed within one RX
// pipeline invocation.
type Request struct {
	Kind RequestKind `cbor:"kind" json:"kind"`
}

// TelemetryPacket is the protocol v2 outbound payload
type TelemetryPacket struct {
	TurretPos uint32    `cbor:"turret_pos" json:"turret_pos"`
	TurretRot Direction `cbor:"turret_rot" json:"turret_rot"`
}

// TelemetryPacketV1 is the protocol v1 outbound payload
type TelemetryPacketV1 struct {
	TurretPos float32 `cbor:"turret_pos" json:"turret_pos"`
}

// Telemetry is a decoded outbound payload of either protocol version
type Telemetry struct {
	Version   ProtocolVersion
	Count     uint32    // v2
	Direction Direction // v2
	Position  float32   // v1
}

// Wire shapes shared by the self-describing codecs (CBOR, JSON)

// telemetryWire accepts either packet version; turret_rot is only present in v2
type telemetryWire struct {
	TurretPos *float64   `cbor:"turret_pos" json:"turret_pos"`
	TurretRot *Direction `cbor:"turret_rot" json:"turret_rot"`
}

func (w telemetryWire) telemetry() (Telemetry, error) {
	if w.TurretPos == nil {
		return Telemetry{}, ErrDeserializeFailed
	}
	if w.TurretRot == nil {
		return Telemetry{Version: ProtocolV1, Position: float32(*w.TurretPos)}, nil
	}
	pos := *w.TurretPos
	if pos < 0 || pos > 0xFFFFFFFF || pos != float64(uint32(pos)) {
		return Telemetry{}, ErrDeserializeFailed
	}
	return Telemetry{Version: ProtocolV2, Count: uint32(pos), Direction: *w.TurretRot}, nil
}

// requestWire makes a missing kind detectable
type requestWire struct {
	Kind *RequestKind `cbor:"kind" json:"kind"`
}
