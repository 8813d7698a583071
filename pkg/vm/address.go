package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Address is a pointer into the target process. It is never dereferenced
// directly; all reads go through a Memory or Target.
type Address uint64

// Null is the zero address
const Null Address = 0

// Offset returns the address displaced by n bytes
func (a Address) Offset(n int64) Address {
	return Address(int64(a) + n)
}

// Minus returns the signed distance in bytes from other to a
func (a Address) Minus(other Address) int64 {
	return int64(a) - int64(other)
}

// IsNull returns true for the zero address
func (a Address) IsNull() bool {
	return a == Null
}

// String formats the address as a 0x-prefixed hexadecimal number
func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// ParseAddress parses a hexadecimal address with or without 0x prefix
func ParseAddress(text string) (Address, error) {
	text = strings.TrimSpace(text)
	digits := strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	if digits == "" {
		return Null, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	value, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return Null, fmt.Errorf("%w: '%s'", ErrInvalidAddress, text)
	}

	return Address(value), nil
}

// Range is a half-open address interval [Begin, End)
type Range struct {
	Begin Address
	End   Address
}

// Contains returns true if the address is within the range
func (r Range) Contains(addr Address) bool {
	return addr >= r.Begin && addr < r.End
}

// Size returns the size of the range in bytes
func (r Range) Size() int64 {
	return r.End.Minus(r.Begin)
}

func (r Range) String() string {
	return fmt.Sprintf("[%v, %v)", r.Begin, r.End)
}
