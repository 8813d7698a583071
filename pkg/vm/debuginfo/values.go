package debuginfo

import (
	"fmt"
	"math"

	"github.com/Manu343726/vmlens/pkg/vm"
)

// ValueTag identifies the variant of a ScopeValue
type ValueTag uint32

const (
	TagLocation ValueTag = iota
	TagInt
	TagOop
	TagLong
	TagDouble
	TagObject
	TagObjectRef
)

func (t ValueTag) String() string {
	switch t {
	case TagLocation:
		return "location"
	case TagInt:
		return "int"
	case TagOop:
		return "oop"
	case TagLong:
		return "long"
	case TagDouble:
		return "double"
	case TagObject:
		return "object"
	case TagObjectRef:
		return "object_ref"
	default:
		return fmt.Sprintf("tag(%d)", uint32(t))
	}
}

// Where tells whether a location is a stack slot or a register
type Where uint32

const (
	OnStack Where = iota
	InRegister
)

// LocationType is the kind of value stored at a location
type LocationType uint32

const (
	LocNormal LocationType = iota
	LocOop
	LocNarrowOop
	LocInt
	LocLong
	LocFloat
	LocDouble
	LocAddress
	LocInvalid
)

var locationTypeSuffix = map[LocationType]string{
	LocNormal:    "",
	LocOop:       ",oop",
	LocNarrowOop: ",narrowoop",
	LocInt:       ",int",
	LocLong:      ",long",
	LocFloat:     ",float",
	LocDouble:    ",double",
	LocAddress:   ",address",
	LocInvalid:   ",invalid",
}

const (
	locationTypeShift   = 1
	locationTypeMask    = 0xf
	locationOffsetShift = 5
)

// Location is where the debug information finds a value at a safepoint
type Location struct {
	Where  Where
	Type   LocationType
	Offset int
}

// Encode packs the location into a single number
func (l Location) Encode() uint32 {
	return uint32(l.Where) | uint32(l.Type)<<locationTypeShift | uint32(l.Offset)<<locationOffsetShift
}

// DecodeLocation unpacks a number produced by Location.Encode
func DecodeLocation(v uint32) (Location, error) {
	l := Location{
		Where:  Where(v & 1),
		Type:   LocationType((v >> locationTypeShift) & locationTypeMask),
		Offset: int(v >> locationOffsetShift),
	}
	if l.Type > LocInvalid {
		return Location{}, fmt.Errorf("%w: location type %d", ErrMalformedStream, l.Type)
	}
	return l, nil
}

func (l Location) String() string {
	if l.Where == InRegister {
		return fmt.Sprintf("reg %s%s", registerName(l.Offset), locationTypeSuffix[l.Type])
	}
	return fmt.Sprintf("stack[%d]%s", l.Offset, locationTypeSuffix[l.Type])
}

var registers = []string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}

func registerName(n int) string {
	if n >= 0 && n < len(registers) {
		return registers[n]
	}
	if n >= len(registers) && n < len(registers)+32 {
		return fmt.Sprintf("xmm%d", n-len(registers))
	}
	return fmt.Sprintf("r#%d", n)
}

// ScopeValue is a single live value described by the debug information.
// The meaningful fields depend on Tag:
//
//   - TagLocation: Location
//   - TagInt, TagLong: Int
//   - TagDouble: Double
//   - TagOop: Oop, nil for a null constant
//   - TagObject, TagObjectRef: Object
type ScopeValue struct {
	Tag      ValueTag
	Location Location
	Int      int64
	Double   float64
	Oop      *vm.Oop
	Object   *ObjectRecord
}

func (v ScopeValue) String() string {
	switch v.Tag {
	case TagLocation:
		return v.Location.String()
	case TagInt, TagLong:
		return fmt.Sprint(v.Int)
	case TagDouble:
		return fmt.Sprint(v.Double)
	case TagOop:
		if v.Oop == nil {
			return "null"
		}
		return v.Oop.Address.String()
	case TagObject, TagObjectRef:
		return fmt.Sprintf("ScObj(id=%d)", v.Object.ID)
	default:
		return v.Tag.String()
	}
}

// Monitor is a lock held by a frame at a safepoint
type Monitor struct {
	Owner      ScopeValue
	Lock       Location
	Eliminated bool
}

func longFromHalves(hi int32, lo uint32) int64 {
	return int64(hi)<<32 | int64(lo)
}

func doubleFromHalves(hi int32, lo uint32) float64 {
	return math.Float64frombits(uint64(longFromHalves(hi, lo)))
}
