package vm

// HandleKind identifies the active variant of a Handle
type HandleKind int

const (
	KindRawAddress HandleKind = iota
	KindUnknownCode
	KindClass
	KindMethod
	KindConstantPool
	KindCodeBlob
	KindCodelet
)

// String returns the string representation of a HandleKind
func (k HandleKind) String() string {
	switch k {
	case KindRawAddress:
		return "raw_address"
	case KindUnknownCode:
		return "unknown_code"
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindConstantPool:
		return "constant_pool"
	case KindCodeBlob:
		return "code_blob"
	case KindCodelet:
		return "interpreter_codelet"
	default:
		return "unknown"
	}
}

// Handle is a typed view over a runtime structure of the target.
// Exactly one variant is active, reported by Kind. Accessor interfaces
// (Class, Method, ...) re-read the target on every call.
type Handle interface {
	Kind() HandleKind
	Address() Address
}

// RawAddress is an address no specific interpretation could be found for.
type RawAddress struct {
	Addr Address
}

func (r RawAddress) Kind() HandleKind { return KindRawAddress }
func (r RawAddress) Address() Address { return r.Addr }

// UnknownCode is an address inside the code cache that no blob claims.
type UnknownCode struct {
	Addr Address
}

func (u UnknownCode) Kind() HandleKind { return KindUnknownCode }
func (u UnknownCode) Address() Address { return u.Addr }
