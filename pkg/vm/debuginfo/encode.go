package debuginfo

import "math"

// ValueSpec describes a value to encode. It mirrors ScopeValue but refers to
// oops and objects by index and id.
type ValueSpec struct {
	Tag      ValueTag
	Location Location
	Int      int64
	Double   float64
	// OopIndex is the 1-based oop table index of TagOop values. For objects
	// it holds the oop index of the class mirror.
	OopIndex int
	ObjectID int
	Fields   []ValueSpec
}

type MonitorSpec struct {
	Owner      ValueSpec
	Lock       Location
	Eliminated bool
}

// ScopeSpec describes one frame of an inlining chain
type ScopeSpec struct {
	MethodIndex int
	BCI         int
	Locals      []ValueSpec
	Expressions []ValueSpec
	Monitors    []MonitorSpec
}

// Chain encodes an inlining chain given outermost frame first and returns
// the offset of the innermost scope, the one safepoint descriptors point to.
func (w *Writer) Chain(scopes []ScopeSpec) int {
	sender := 0
	for _, s := range scopes {
		locals := w.valueList(s.Locals)
		expressions := w.valueList(s.Expressions)
		monitors := w.monitorList(s.Monitors)

		offset := w.Position()
		w.Uint(uint32(sender))
		w.Uint(uint32(s.MethodIndex))
		w.Uint(uint32(s.BCI + 1))
		w.Uint(uint32(locals))
		w.Uint(uint32(expressions))
		w.Uint(uint32(monitors))
		sender = offset
	}
	return sender
}

// Objects encodes the object list of a safepoint and returns its offset
func (w *Writer) Objects(objects []ValueSpec) int {
	return w.valueList(objects)
}

func (w *Writer) valueList(values []ValueSpec) int {
	if len(values) == 0 {
		return 0
	}
	offset := w.Position()
	w.Uint(uint32(len(values)))
	for _, v := range values {
		w.Value(v)
	}
	return offset
}

func (w *Writer) monitorList(monitors []MonitorSpec) int {
	if len(monitors) == 0 {
		return 0
	}
	offset := w.Position()
	w.Uint(uint32(len(monitors)))
	for _, m := range monitors {
		w.Value(m.Owner)
		w.Uint(m.Lock.Encode())
		w.Bool(m.Eliminated)
	}
	return offset
}

// Value encodes a single tagged value
func (w *Writer) Value(v ValueSpec) {
	w.Uint(uint32(v.Tag))
	switch v.Tag {
	case TagLocation:
		w.Uint(v.Location.Encode())
	case TagInt:
		w.Int(int32(v.Int))
	case TagOop:
		w.Uint(uint32(v.OopIndex))
	case TagLong:
		w.Int(int32(v.Int >> 32))
		w.Uint(uint32(v.Int))
	case TagDouble:
		bits := math.Float64bits(v.Double)
		w.Int(int32(bits >> 32))
		w.Uint(uint32(bits))
	case TagObject:
		w.Uint(uint32(v.ObjectID))
		w.Value(ValueSpec{Tag: TagOop, OopIndex: v.OopIndex})
		w.Uint(uint32(len(v.Fields)))
		for _, f := range v.Fields {
			w.Value(f)
		}
	case TagObjectRef:
		w.Uint(uint32(v.ObjectID))
	}
}
