package wasm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Reader errors.
var (
	// ErrOverflow is returned when a LEB128 value exceeds the maximum bit
	// width or sets bits beyond it in its final byte.
	ErrOverflow = errors.New("leb128: overflow")

	// ErrCountTooLarge is returned when a vector declares more elements than
	// the remaining bytes can hold.
	ErrCountTooLarge = errors.New("vector count exceeds remaining bytes")
)

// ParseError reports a decoding failure with its section and byte position.
type ParseError struct {
	Err      error
	Section  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("wasm: %s at position %d: %v", e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("wasm: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// reader is a position-tracking cursor over a byte slice.
type reader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) len() int {
	return len(r.data) - r.pos
}

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || n > r.len() {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readU32() (uint32, error) {
	v, err := r.readUnsigned(32)
	return uint32(v), err
}

func (r *reader) readU64() (uint64, error) {
	return r.readUnsigned(64)
}

// readCount reads a vector length. Every element takes at least one byte,
// so a count larger than the rest of the input is rejected before anything
// is allocated.
func (r *reader) readCount() (uint32, error) {
	n, err := r.readU32()
	if err != nil {
		return 0, err
	}
	if uint64(n) > uint64(r.len()) {
		return 0, r.wrap("", fmt.Errorf("%w: %d > %d", ErrCountTooLarge, n, r.len()))
	}
	return n, nil
}

func (r *reader) readUnsigned(bits uint) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		if rest := bits - shift; rest < 7 && b&0x7f>>rest != 0 {
			return 0, r.wrap("", ErrOverflow)
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= maxShift(bits) {
			return 0, r.wrap("", ErrOverflow)
		}
	}
}

func (r *reader) readS32() (int32, error) {
	v, err := r.readSigned(32)
	return int32(v), err
}

func (r *reader) readS64() (int64, error) {
	return r.readSigned(64)
}

func (r *reader) readSigned(bits uint) (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.readByte()
		if err != nil {
			return 0, err
		}
		if rest := bits - shift; rest < 7 {
			// bits above the value must repeat its sign bit
			high := (b & 0x7f) >> (rest - 1)
			if high != 0 && high != 0x7f>>(rest-1) {
				return 0, r.wrap("", ErrOverflow)
			}
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= maxShift(bits) {
			return 0, r.wrap("", ErrOverflow)
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= ^int64(0) << shift
	}
	return result, nil
}

// maxShift is the shift after the last byte a bits-wide LEB128 may use.
func maxShift(bits uint) uint {
	return (bits + 6) / 7 * 7
}

func (r *reader) readU32LE() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readU64LE() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) readName() (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", r.wrap("", errors.New("invalid UTF-8 in name"))
	}
	return string(b), nil
}

func (r *reader) wrap(section string, err error) error {
	return &ParseError{Err: err, Section: section, Position: r.pos}
}
