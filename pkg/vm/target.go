package vm

// Memory gives read access to the address space of the target
type Memory interface {
	ReadBytes(addr Address, n int) ([]byte, error)
}

// FrameKind classifies a Java frame
type FrameKind int

const (
	FrameInterpreted FrameKind = iota
	FrameCompiled
	FrameNative
)

func (k FrameKind) String() string {
	switch k {
	case FrameCompiled:
		return "compiled"
	case FrameNative:
		return "native"
	default:
		return "interpreted"
	}
}

// Frame is a Java frame of a thread stack, innermost first.
type Frame interface {
	Method() Method
	BCI() int
	PC() Address
	FrameKind() FrameKind
	// Receiver returns the receiver object of the frame. ErrTypeMismatch is
	// returned when the local slot does not hold an object.
	Receiver() (Oop, error)
}

// Thread is a Java thread of the target
type Thread interface {
	Name() string
	ID() int
	Frames() []Frame
}

// Target is the debugger connection to a live or captured VM process. Every
// accessor reads through to the target; nothing is cached between calls.
type Target interface {
	Memory
	CodeCache() Range
	FindBlob(addr Address) (CodeBlob, bool)
	Interpreter() Interpreter
	// MetadataAt interprets the address as a class, method or constant pool.
	// ErrNotMetadata is returned when it is none of them.
	MetadataAt(addr Address) (Handle, error)
	Classes() []Class
	FindClass(name string) (Class, bool)
	Threads() []Thread
}
