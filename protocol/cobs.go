package protocol

// Consistent Overhead Byte Stuffing. Every encoded frame is free of
// FrameDelimiter and is terminated by exactly one FrameDelimiter, so a receiver
// can find frame boundaries without a length prefix.

// MaxEncodedLen returns the destination capacity Encode needs for n source
// bytes: one code byte per started 254-byte block plus the terminator.
func MaxEncodedLen(n int) int {
	return n + n/254 + 2
}

// Encode stuffs src into dst and appends the frame terminator. It returns the
// number of bytes written. dst must hold MaxEncodedLen(len(src)) bytes; a
// smaller dst is a programming error and panics.
func Encode(dst, src []byte) int {
	if len(dst) < MaxEncodedLen(len(src)) {
		panic("cobs: destination buffer too small")
	}

	codePos := 0
	out := 1
	code := byte(1)
	for i, b := range src {
		if b != FrameDelimiter {
			dst[out] = b
			out++
			code++
		}
		if b == FrameDelimiter || code == 0xFF {
			dst[codePos] = code
			code = 1
			codePos = out
			// A full block that ends the input needs no trailing code byte
			if b == FrameDelimiter || i+1 < len(src) {
				out++
			}
		}
	}
	if codePos != out {
		dst[codePos] = code
	}
	dst[out] = FrameDelimiter
	return out + 1
}

// Decode unstuffs the first frame in src into dst. It returns the message
// length n written to dst and the number of src bytes consumed, which is
// the stuffed length including the terminator. Bytes after the terminator are
// left untouched.
//
// Errors: ErrPushFailed for an empty src, ErrNeededMoreBytes if src ends
// before the terminator, *DecodeError if the stuffing is malformed or dst is
// too small.
func Decode(dst, src []byte) (n int, consumed int, err error) {
	if len(src) == 0 {
		return 0, 0, ErrPushFailed
	}
	if src[0] == FrameDelimiter {
		return 0, 0, decodeError(0)
	}

	i := 0
	for {
		code := src[i]
		i++
		for j := 1; j < int(code); j++ {
			if i >= len(src) {
				return n, i, ErrNeededMoreBytes
			}
			b := src[i]
			if b == FrameDelimiter || n >= len(dst) {
				return n, i, decodeError(i)
			}
			dst[n] = b
			n++
			i++
		}

		if i >= len(src) {
			return n, i, ErrNeededMoreBytes
		}
		if src[i] == FrameDelimiter {
			return n, i + 1, nil
		}
		if code != 0xFF {
			if n >= len(dst) {
				return n, i, decodeError(i)
			}
			dst[n] = 0
			n++
		}
	}
}

// Decoder unstuffs a byte stream one byte at a time. It is used where bytes
// arrive incrementally, e.g. from a host serial port.
type Decoder struct {
	buf       []byte
	n         int
	code      byte
	remaining int
	pushed    int
	skipping  bool
}

// NewDecoder creates a Decoder that accepts messages up to capacity bytes
func NewDecoder(capacity int) *Decoder {
	return &Decoder{buf: make([]byte, capacity)}
}

// Push feeds one byte. When b terminates a frame the decoded message is
// returned; it is only valid until the next call to Push. After an error the
// decoder discards input up to the next terminator.
func (d *Decoder) Push(b byte) ([]byte, error) {
	offset := d.pushed
	d.pushed++

	if b == FrameDelimiter {
		if d.skipping {
			d.Reset()
			return nil, nil
		}
		if d.code == 0 {
			// Back-to-back terminators, nothing to deliver
			d.Reset()
			return nil, nil
		}
		if d.remaining > 0 {
			d.Reset()
			return nil, decodeError(offset)
		}
		msg := d.buf[:d.n]
		d.Reset()
		return msg, nil
	}

	if d.skipping {
		return nil, nil
	}

	if d.remaining == 0 {
		if d.code != 0 && d.code != 0xFF {
			if !d.append(0) {
				return nil, d.fail(offset)
			}
		}
		d.code = b
		d.remaining = int(b) - 1
		return nil, nil
	}

	if !d.append(b) {
		return nil, d.fail(offset)
	}
	d.remaining--
	return nil, nil
}

// Reset discards any partially decoded frame
func (d *Decoder) Reset() {
	d.n = 0
	d.code = 0
	d.remaining = 0
	d.pushed = 0
	d.skipping = false
}

func (d *Decoder) append(b byte) bool {
	if d.n >= len(d.buf) {
		return false
	}
	d.buf[d.n] = b
	d.n++
	return true
}

func (d *Decoder) fail(offset int) error {
	d.n = 0
	d.code = 0
	d.remaining = 0
	d.skipping = true
	return decodeError(offset)
}
