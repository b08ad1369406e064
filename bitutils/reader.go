package bitutils

import (
	"fmt"
	"strings"
	"time"
)

// Reader pops fixed width fields off the front of a bit string.
type Reader struct {
	bits   string
	offset int
}

// NewReader returns a Reader positioned at the first bit. The bits are not validated here;
// every read validates the slice it returns.
func NewReader(bits string) *Reader {
	return &Reader{bits: bits}
}

// Offset is the index of the next unread bit.
func (r *Reader) Offset() int {
	return r.offset
}

// Remaining is the number of unread bits.
func (r *Reader) Remaining() int {
	return len(r.bits) - r.offset
}

// Next returns the next width bits and advances past them.
func (r *Reader) Next(width int) (string, error) {
	if width < 0 {
		return "", fmt.Errorf("cannot read a negative width of %d bits", width)
	}
	if r.Remaining() < width {
		return "", fmt.Errorf("expected %d bits to start at bit %d, but the bit string was only %d bits long", width, r.offset, len(r.bits))
	}
	bits := r.bits[r.offset : r.offset+width]
	if err := Validate(bits); err != nil {
		return "", err
	}
	r.offset += width
	return bits, nil
}

func (r *Reader) ReadInt(width int) (int, error) {
	bits, err := r.Next(width)
	if err != nil {
		return 0, err
	}
	return BitsToInt(bits)
}

func (r *Reader) ReadBool(width int) (bool, error) {
	bits, err := r.Next(width)
	if err != nil {
		return false, err
	}
	return BitsToBool(bits)
}

func (r *Reader) ReadTime(width int) (time.Time, error) {
	bits, err := r.Next(width)
	if err != nil {
		return time.Time{}, err
	}
	return BitsToTime(bits)
}

func (r *Reader) ReadLanguage(letterWidth int, width int) (string, error) {
	bits, err := r.Next(width)
	if err != nil {
		return "", err
	}
	return BitsToLanguage(bits, letterWidth)
}

// Writer appends fields to a bit string. The first error sticks and turns later writes into no-ops.
type Writer struct {
	sb  strings.Builder
	err error
}

func (w *Writer) WriteInt(value int, width int) {
	w.write(IntToBits(value, width))
}

func (w *Writer) WriteBool(value bool, width int) {
	w.write(BoolToBits(value, width))
}

func (w *Writer) WriteTime(value time.Time, width int) {
	w.write(TimeToBits(value, width))
}

func (w *Writer) WriteLanguage(code string, letterWidth int, width int) {
	w.write(LanguageToBits(code, letterWidth, width))
}

// WriteBits appends an already encoded bit string.
func (w *Writer) WriteBits(bits string) {
	w.write(bits, Validate(bits))
}

func (w *Writer) write(bits string, err error) {
	if w.err != nil {
		return
	}
	if err != nil {
		w.err = err
		return
	}
	w.sb.WriteString(bits)
}

// Len is the number of bits written so far.
func (w *Writer) Len() int {
	return w.sb.Len()
}

// Err returns the first error hit while writing.
func (w *Writer) Err() error {
	return w.err
}

// String returns the bits written so far.
func (w *Writer) String() string {
	return w.sb.String()
}
