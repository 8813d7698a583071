// Package xref implements the cross reference wire format embedded in
// rendered documents: kind=payload, where the payload is a hexadecimal
// address, a comma separated list of addresses, or nothing at all.
package xref

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Manu343726/vmlens/pkg/vm"
)

var (
	ErrUnknownKind = errors.New("unknown cross reference kind")
	ErrBadPayload  = errors.New("malformed cross reference payload")
)

// Kind is the closed set of cross reference kinds
type Kind int

const (
	Klass Kind = iota
	Method
	NMethod
	PC
	PCMultiple
	Hierarchy
	CPool
	JCore
	JCoreMultiple
	InterpCodelets
)

// Kinds lists every kind, in declaration order
var Kinds = []Kind{Klass, Method, NMethod, PC, PCMultiple, Hierarchy, CPool, JCore, JCoreMultiple, InterpCodelets}

var kindNames = map[Kind]string{
	Klass:          "klass",
	Method:         "method",
	NMethod:        "nmethod",
	PC:             "pc",
	PCMultiple:     "pc_multiple",
	Hierarchy:      "hierarchy",
	CPool:          "cpool",
	JCore:          "jcore",
	JCoreMultiple:  "jcore_multiple",
	InterpCodelets: "interp_codelets",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var kindDescriptions = map[Kind]string{
	Klass:          "class declaration, members and navigation links",
	Method:         "method declaration, bytecode and exception table",
	NMethod:        "compiled code of a method, with safepoint debug information",
	PC:             "most specific view of a code address",
	PCMultiple:     "raw disassembly page; the first address is shown, the rest are the pages shown before",
	Hierarchy:      "superclass chain and direct subclasses",
	CPool:          "constant pool entries",
	JCore:          "exports the class file of a class",
	JCoreMultiple:  "exports the class files of a batch of classes",
	InterpCodelets: "index of the template interpreter codelets",
}

// Description summarizes the document a kind refers to
func (k Kind) Description() string {
	return kindDescriptions[k]
}

// Multiple returns true for kinds carrying a list of addresses
func (k Kind) Multiple() bool {
	return k == PCMultiple || k == JCoreMultiple
}

// HasPayload returns false for kinds that carry no address at all
func (k Kind) HasPayload() bool {
	return k != InterpCodelets
}

// Ref is a parsed cross reference. Single address kinds use Addresses[0].
type Ref struct {
	Kind      Kind
	Addresses []vm.Address
}

// New builds a reference to a single address
func New(kind Kind, addr vm.Address) Ref {
	return Ref{Kind: kind, Addresses: []vm.Address{addr}}
}

// Multi builds a reference to a list of addresses
func Multi(kind Kind, addrs ...vm.Address) Ref {
	return Ref{Kind: kind, Addresses: append([]vm.Address(nil), addrs...)}
}

// Address returns the first address of the reference
func (r Ref) Address() vm.Address {
	if len(r.Addresses) == 0 {
		return vm.Null
	}
	return r.Addresses[0]
}

// String encodes the reference in wire format
func (r Ref) String() string {
	if !r.Kind.HasPayload() {
		return r.Kind.String()
	}
	parts := make([]string, 0, len(r.Addresses))
	for _, a := range r.Addresses {
		parts = append(parts, a.String())
	}
	return r.Kind.String() + "=" + strings.Join(parts, ",")
}

// Documentation describes the wire format and every kind, each line
// prefixed by leftpad spaces.
func Documentation(leftpad int) string {
	pad := strings.Repeat(" ", leftpad)

	var builder strings.Builder
	builder.WriteString(pad + "Cross references are written kind=payload.\n")
	builder.WriteString(pad + "Addresses are hexadecimal with an optional 0x prefix.\n\n")
	builder.WriteString(pad + "Kinds:\n\n")
	for _, k := range Kinds {
		payload := "=<address>"
		switch {
		case !k.HasPayload():
			payload = ""
		case k.Multiple():
			payload = "=<address>,<address>..."
		}
		builder.WriteString(fmt.Sprintf("%s - %s%s: %s\n", pad, k, payload, k.Description()))
	}
	return builder.String()
}

// DocString is Documentation with no padding
func DocString() string {
	return Documentation(0)
}

// Parse decodes a reference in wire format
func Parse(text string) (Ref, error) {
	name, payload, hasPayload := strings.Cut(strings.TrimSpace(text), "=")

	var kind Kind
	found := false
	for k, n := range kindNames {
		if n == name {
			kind, found = k, true
			break
		}
	}
	if !found {
		return Ref{}, fmt.Errorf("%w: '%s'", ErrUnknownKind, name)
	}

	if !kind.HasPayload() {
		if hasPayload && payload != "" {
			return Ref{}, fmt.Errorf("%w: %v takes no payload", ErrBadPayload, kind)
		}
		return Ref{Kind: kind}, nil
	}
	if !hasPayload || payload == "" {
		return Ref{}, fmt.Errorf("%w: %v needs an address", ErrBadPayload, kind)
	}

	parts := strings.Split(payload, ",")
	if len(parts) > 1 && !kind.Multiple() {
		return Ref{}, fmt.Errorf("%w: %v takes a single address", ErrBadPayload, kind)
	}

	ref := Ref{Kind: kind}
	for _, p := range parts {
		addr, err := vm.ParseAddress(p)
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		ref.Addresses = append(ref.Addresses, addr)
	}
	return ref, nil
}
