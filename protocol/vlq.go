package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// VLQLen returns the number of bytes PutVLQInt needs for v
func VLQLen(v int32) int {
	n := 1
	if !(-(1<<26) <= v && v < (3<<26)) {
		n++
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		n++
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		n++
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		n++
	}
	return n
}

// PutVLQInt encodes a signed integer in Klipper VLQ format, most significant
// group first, and returns the number of bytes written
func PutVLQInt(dst []byte, v int32) (int, error) {
	n := VLQLen(v)
	if len(dst) < n {
		return 0, ErrBufferTooSmall
	}
	pos := 0
	if !(-(1<<26) <= v && v < (3<<26)) {
		dst[pos] = byte((v>>28)&0x7F) | 0x80
		pos++
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		dst[pos] = byte((v>>21)&0x7F) | 0x80
		pos++
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		dst[pos] = byte((v>>14)&0x7F) | 0x80
		pos++
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		dst[pos] = byte((v>>7)&0x7F) | 0x80
		pos++
	}
	dst[pos] = byte(v & 0x7F)
	return n, nil
}

// PutVLQUint encodes an unsigned integer
func PutVLQUint(dst []byte, v uint32) (int, error) {
	return PutVLQInt(dst, int32(v))
}

// DecodeVLQInt decodes a VLQ signed integer from the data slice.
// The data slice is advanced past the consumed bytes.
func DecodeVLQInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	// Sign extension for negative numbers
	if (c & 0x60) == 0x60 {
		v |= ^uint32(0x1F)
	}

	for n := 1; c&0x80 != 0; n++ {
		if n >= 5 {
			return 0, ErrInvalidVLQ
		}
		if len(*data) == 0 {
			return 0, ErrBufferTooSmall
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = (v << 7) | (c & 0x7F)
	}

	return int32(v), nil
}

// DecodeVLQUint decodes a VLQ unsigned integer from the data slice
func DecodeVLQUint(data *[]byte) (uint32, error) {
	val, err := DecodeVLQInt(data)
	return uint32(val), err
}
