package debuginfo

import (
	"errors"
	"fmt"

	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/samber/lo"
)

var ErrMissingObjectClass = errors.New("scalar replaced object has no class")

// ObjectRecord is an object eliminated by escape analysis. Its field values
// are tracked individually by the debug information.
type ObjectRecord struct {
	ID     int
	Klass  ScopeValue
	Values []ScopeValue
}

// Class returns the class of the object. The class is always described by
// a constant oop holding the class mirror; ErrMissingObjectClass means the
// debug information is corrupt.
func (o *ObjectRecord) Class() (vm.Class, error) {
	if o.Klass.Tag != TagOop || o.Klass.Oop == nil || o.Klass.Oop.Mirror == nil {
		return nil, fmt.Errorf("%w: object id %d", ErrMissingObjectClass, o.ID)
	}
	return o.Klass.Oop.Mirror, nil
}

// FieldValue pairs a reconstructed value with the field it belongs to
type FieldValue struct {
	Field vm.Field
	Value ScopeValue
}

// InstanceFields returns the non-static fields of a class in layout order:
// superclass fields first, each class in declaration order.
func InstanceFields(c vm.Class) []vm.Field {
	fields := []vm.Field{}
	for _, class := range lo.Reverse(vm.SuperChain(c)) {
		fields = append(fields, lo.Filter(class.Fields(), func(f vm.Field, _ int) bool {
			return !f.AccessFlags.IsStatic()
		})...)
	}
	return fields
}

// Fields pairs the object values with the instance fields of its class,
// positionally. Values beyond the last field are left out.
func (o *ObjectRecord) Fields() ([]FieldValue, error) {
	class, err := o.Class()
	if err != nil {
		return nil, err
	}

	fields := InstanceFields(class)
	n := min(len(fields), len(o.Values))
	result := make([]FieldValue, 0, n)
	for i := 0; i < n; i++ {
		result = append(result, FieldValue{Field: fields[i], Value: o.Values[i]})
	}
	return result, nil
}

// ScalarReplaced returns every scalar replaced object reachable from the
// chain in encounter order: the safepoint object list first, then objects
// found in frame values from the outermost frame inwards.
func ScalarReplaced(innermost *ScopeRecord) []*ObjectRecord {
	if innermost == nil {
		return nil
	}

	seen := map[int]bool{}
	result := []*ObjectRecord{}
	add := func(o *ObjectRecord) {
		if o != nil && !seen[o.ID] {
			seen[o.ID] = true
			result = append(result, o)
		}
	}
	var addValues func(values []ScopeValue)
	addValues = func(values []ScopeValue) {
		for _, v := range values {
			if v.Tag == TagObject || v.Tag == TagObjectRef {
				fresh := !seen[v.Object.ID]
				add(v.Object)
				if fresh {
					addValues(v.Object.Values)
				}
			}
		}
	}

	for _, o := range innermost.Objects {
		add(o)
	}

	frames := []*ScopeRecord{}
	for s := innermost; s != nil; s = s.Caller {
		frames = append(frames, s)
	}
	for _, s := range lo.Reverse(frames) {
		addValues(s.Locals)
		addValues(s.Expressions)
		addValues(lo.Map(s.Monitors, func(m Monitor, _ int) ScopeValue { return m.Owner }))
	}
	return result
}
