package vm

import "strings"

// Class is a loaded class of the target VM.
//
// Name returns the internal, slash separated form (java/lang/String).
// Array classes report their element type through ArrayInfo and have no
// constant pool, fields or methods.
type Class interface {
	Handle
	Name() string
	AccessFlags() AccessFlags
	GenericSignature() string
	SourceFile() string
	Super() (Class, bool)
	Interfaces() []Class
	Fields() []Field
	Methods() []Method
	ConstantPool() (ConstantPool, bool)
	// Subklass and NextSibling walk the subclass tree the VM keeps for each
	// class: first child, then its siblings.
	Subklass() (Class, bool)
	NextSibling() (Class, bool)
	ArrayInfo() (ArrayInfo, bool)
	Version() (major, minor uint16)
}

// ArrayInfo describes an array class
type ArrayInfo struct {
	ElementType string
	Dimensions  int
}

// Field is a declared field of a class. Offset is the byte offset of the
// field in instances (or in the mirror for static fields).
type Field struct {
	Name        string
	Signature   string
	AccessFlags AccessFlags
	Offset      int
}

// ExceptionEntry is one row of a method exception table. CatchType is a
// constant pool index; zero means any exception.
type ExceptionEntry struct {
	StartBCI   int
	EndBCI     int
	HandlerBCI int
	CatchType  int
}

// LineNumberEntry maps the first bytecode index of a run of instructions
// to its source line.
type LineNumberEntry struct {
	StartBCI int
	Line     int
}

// LocalVariable is a row of the local variable table
type LocalVariable struct {
	StartBCI  int
	Length    int
	Slot      int
	Name      string
	Signature string
}

// Method is a method of a loaded class.
type Method interface {
	Handle
	Name() string
	Signature() string
	AccessFlags() AccessFlags
	Holder() Class
	// Bytecode returns a fresh copy of the method bytecode
	Bytecode() []byte
	MaxStack() int
	MaxLocals() int
	CompiledCode() (CodeBlob, bool)
	ExceptionTable() []ExceptionEntry
	LineNumberTable() []LineNumberEntry
	LocalVariableTable() []LocalVariable
}

// ExternalName converts an internal class name into dotted form
func ExternalName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// SimpleName returns the class name without its package
func SimpleName(internal string) string {
	if i := strings.LastIndex(internal, "/"); i >= 0 {
		return internal[i+1:]
	}
	return internal
}

// MethodDisplayName renders "Holder.name(signature)" using the simple name
// of the holder class.
func MethodDisplayName(m Method) string {
	return SimpleName(m.Holder().Name()) + "." + m.Name() + m.Signature()
}

// LineNumber returns the source line of the given bytecode index, if the
// method carries a line number table.
func LineNumber(m Method, bci int) (int, bool) {
	best, found := -1, false
	line := 0
	for _, entry := range m.LineNumberTable() {
		if entry.StartBCI <= bci && entry.StartBCI > best {
			best = entry.StartBCI
			line = entry.Line
			found = true
		}
	}
	return line, found
}

// LocalVariableName returns the name of the local in the given slot at bci
func LocalVariableName(m Method, bci int, slot int) (string, bool) {
	for _, local := range m.LocalVariableTable() {
		if local.Slot == slot && bci >= local.StartBCI && bci < local.StartBCI+local.Length {
			return local.Name, true
		}
	}
	return "", false
}

// FindMethod looks a method up by name and descriptor, walking superclasses
// and then interfaces.
func FindMethod(c Class, name, signature string) (Method, bool) {
	seen := map[Address]bool{}
	var find func(c Class) (Method, bool)
	find = func(c Class) (Method, bool) {
		if seen[c.Address()] {
			return nil, false
		}
		seen[c.Address()] = true

		for _, m := range c.Methods() {
			if m.Name() == name && m.Signature() == signature {
				return m, true
			}
		}
		if super, ok := c.Super(); ok {
			if m, ok := find(super); ok {
				return m, true
			}
		}
		for _, i := range c.Interfaces() {
			if m, ok := find(i); ok {
				return m, true
			}
		}
		return nil, false
	}
	return find(c)
}

// SuperChain returns the class followed by its superclasses up to the root.
// The walk stops at the first class seen twice, so a corrupt super link
// never loops.
func SuperChain(c Class) []Class {
	seen := map[Address]bool{}
	chain := []Class{}
	for current, ok := c, true; ok && !seen[current.Address()]; current, ok = current.Super() {
		seen[current.Address()] = true
		chain = append(chain, current)
	}
	return chain
}

// FindField looks a field up by name and signature through superclasses and
// interfaces.
func FindField(c Class, name, signature string) (Field, Class, bool) {
	seen := map[Address]bool{}
	var find func(c Class) (Field, Class, bool)
	find = func(c Class) (Field, Class, bool) {
		for _, current := range SuperChain(c) {
			if seen[current.Address()] {
				continue
			}
			seen[current.Address()] = true

			for _, f := range current.Fields() {
				if f.Name == name && f.Signature == signature {
					return f, current, true
				}
			}
			for _, i := range current.Interfaces() {
				if f, owner, ok := find(i); ok {
					return f, owner, true
				}
			}
		}
		return Field{}, nil, false
	}
	return find(c)
}
