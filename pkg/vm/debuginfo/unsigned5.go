package debuginfo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// UNSIGNED5 is the Pack200 variable length encoding used by the VM for its
// compressed debug information: up to five bytes, bytes below L terminate
// the number and every following byte adds six more bits.
const (
	unsigned5L     = 192
	unsigned5H     = 64
	unsigned5Shift = 6
	unsigned5Max   = 5
)

var ErrMalformedStream = errors.New("malformed debug info stream")

// Reader decodes UNSIGNED5 numbers from a byte stream
type Reader struct {
	r io.ByteReader
}

// NewReader returns a reader positioned at the given offset of data
func NewReader(data []byte, offset int) (*Reader, error) {
	if offset < 0 || offset > len(data) {
		return nil, fmt.Errorf("%w: offset %d outside of %d byte stream", ErrMalformedStream, offset, len(data))
	}
	return &Reader{r: bytes.NewReader(data[offset:])}, nil
}

// Uint decodes one unsigned number
func (d *Reader) Uint() (uint32, error) {
	ch, err := d.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedStream, err)
	}

	sum := uint32(ch)
	for shift := unsigned5Shift; ch >= unsigned5L && shift < unsigned5Shift*unsigned5Max; shift += unsigned5Shift {
		ch, err = d.r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedStream, err)
		}
		sum += uint32(ch) << shift
	}
	return sum, nil
}

// Int decodes one zig-zag encoded signed number
func (d *Reader) Int() (int32, error) {
	val, err := d.Uint()
	if err != nil {
		return 0, err
	}
	return int32(val>>1) ^ -int32(val&1), nil
}

// Bool decodes a number and reports whether it is non zero
func (d *Reader) Bool() (bool, error) {
	val, err := d.Uint()
	return val != 0, err
}

// Writer encodes UNSIGNED5 numbers. A fresh writer starts with a single
// padding byte so that no real record is ever found at offset 0.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: []byte{0}}
}

// Position returns the offset the next write will start at
func (w *Writer) Position() int {
	return len(w.buf)
}

// Bytes returns the encoded stream
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Uint appends one unsigned number
func (w *Writer) Uint(v uint32) {
	for i := 0; i < unsigned5Max-1 && v >= unsigned5L; i++ {
		v -= unsigned5L
		w.buf = append(w.buf, byte(unsigned5L+v%unsigned5H))
		v /= unsigned5H
	}
	w.buf = append(w.buf, byte(v))
}

// Int appends one zig-zag encoded signed number
func (w *Writer) Int(v int32) {
	w.Uint(uint32(v<<1) ^ uint32(v>>31))
}

// Bool appends 1 or 0
func (w *Writer) Bool(v bool) {
	if v {
		w.Uint(1)
	} else {
		w.Uint(0)
	}
}
