package vm

import "fmt"

// BlobKind classifies a code blob
type BlobKind int

const (
	BlobStub BlobKind = iota
	BlobNMethod
	BlobInterpreter
	BlobRuntimeStub
	BlobAdapter
)

func (k BlobKind) String() string {
	switch k {
	case BlobNMethod:
		return "nmethod"
	case BlobInterpreter:
		return "interpreter"
	case BlobRuntimeStub:
		return "runtime_stub"
	case BlobAdapter:
		return "adapter"
	default:
		return "stub"
	}
}

// ParseBlobKind is the inverse of BlobKind.String
func ParseBlobKind(text string) (BlobKind, error) {
	for k := BlobStub; k <= BlobAdapter; k++ {
		if k.String() == text {
			return k, nil
		}
	}
	return BlobStub, fmt.Errorf("unknown code blob kind '%s'", text)
}

// CodeMarkers are the notable entry points of a compiled method. Zero
// addresses mean the marker does not exist for the blob.
type CodeMarkers struct {
	Entry            Address
	VerifiedEntry    Address
	OSREntry         Address
	ExceptionHandler Address
	DeoptHandler     Address
	StubBegin        Address
}

// Labels returns the markers located exactly at pc
func (m CodeMarkers) Labels(pc Address) []string {
	labels := []string{}
	add := func(marker Address, label string) {
		if !marker.IsNull() && marker == pc {
			labels = append(labels, label)
		}
	}
	add(m.Entry, "[Entry Point]")
	add(m.VerifiedEntry, "[Verified Entry Point]")
	add(m.OSREntry, "[OSR Entry Point]")
	add(m.ExceptionHandler, "[Exception Handler]")
	add(m.DeoptHandler, "[Deopt Handler Code]")
	add(m.StubBegin, "[Stub Code]")
	return labels
}

// PCDesc maps a machine code address of a compiled method to the offset of
// its scope description in the blob scopes data.
type PCDesc struct {
	PC            Address
	ScopeOffset   int
	ObjectsOffset int
}

// Oop is an object pointer embedded in compiled code. Mirror is set when the
// object is the java.lang.Class instance of a loaded class.
type Oop struct {
	Address Address
	Klass   Class
	Mirror  Class
}

// OopSlotKind classifies a live slot in an oop map
type OopSlotKind int

const (
	SlotOop OopSlotKind = iota
	SlotNarrowOop
	SlotCalleeSaved
	SlotDerivedOop
)

func (k OopSlotKind) String() string {
	switch k {
	case SlotNarrowOop:
		return "NarrowOop"
	case SlotCalleeSaved:
		return "CalleeSaved"
	case SlotDerivedOop:
		return "DerivedOop"
	default:
		return "Oop"
	}
}

// OopMapSlot is either a register name or a stack offset
type OopMapSlot struct {
	Kind        OopSlotKind
	Register    string
	StackOffset int
}

func (s OopMapSlot) String() string {
	if s.Register != "" {
		return fmt.Sprintf("%s=%v", s.Register, s.Kind)
	}
	return fmt.Sprintf("[%d]=%v", s.StackOffset, s.Kind)
}

// OopMap lists the slots holding references at a safepoint pc
type OopMap struct {
	PC    Address
	Slots []OopMapSlot
}

// CodeBlob is a region of the code cache holding machine code.
type CodeBlob interface {
	Handle
	Name() string
	BlobKind() BlobKind
	// Begin and End delimit the instructions of the blob
	Begin() Address
	End() Address
	Method() (Method, bool)
	Markers() CodeMarkers
	PCDescs() []PCDesc
	ScopesData() []byte
	// MetadataAt and OopAt resolve the 1-based indices found in scope
	// descriptions. Index 0 means null.
	MetadataAt(index int) (Method, bool)
	OopAt(index int) (Oop, bool)
	OopMapAt(pc Address) (OopMap, bool)
}

// Codelet is a code fragment of the template interpreter.
type Codelet interface {
	Handle
	Begin() Address
	End() Address
	Description() string
	Bytecode() string
	Prev() (Codelet, bool)
	Next() (Codelet, bool)
}

// Interpreter is the template interpreter of the target
type Interpreter interface {
	Codelets() []Codelet
	CodeletContaining(addr Address) (Codelet, bool)
}
