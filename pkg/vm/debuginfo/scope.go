package debuginfo

import (
	"errors"
	"fmt"

	"github.com/Manu343726/vmlens/pkg/vm"
)

var (
	ErrUnknownMetadata = errors.New("scope references unknown metadata")
	ErrUnknownObject   = errors.New("scope references unknown scalar replaced object")
)

// ScopeRecord is one frame of the inlining chain at a safepoint. Caller
// links to the enclosing frame; the outermost frame has no caller.
type ScopeRecord struct {
	Offset      int
	Method      vm.Method
	BCI         int
	Locals      []ScopeValue
	Expressions []ScopeValue
	Monitors    []Monitor
	// Objects are the scalar replaced objects described by the safepoint.
	// Every record of a chain shares the same list.
	Objects []*ObjectRecord
	Caller  *ScopeRecord
}

// Line returns the source line of the frame, if known
func (s *ScopeRecord) Line() (int, bool) {
	if s.Method == nil {
		return 0, false
	}
	return vm.LineNumber(s.Method, s.BCI)
}

// Depth returns the number of callers above the frame
func (s *ScopeRecord) Depth() int {
	depth := 0
	for c := s.Caller; c != nil; c = c.Caller {
		depth++
	}
	return depth
}

// ChainAt returns the innermost scope of the first safepoint of the blob
// located in (start, end]. Safepoint pcs are return addresses, so the
// safepoint of an instruction [start, end) is reported for its end. A nil
// record without error means there is no debug information in the range.
func ChainAt(blob vm.CodeBlob, start, end vm.Address) (*ScopeRecord, error) {
	for _, desc := range blob.PCDescs() {
		if desc.PC > start && desc.PC <= end && desc.ScopeOffset != 0 {
			return Decode(blob, desc)
		}
	}
	return nil, nil
}

// Decode reads the scope chain of a single safepoint descriptor
func Decode(blob vm.CodeBlob, desc vm.PCDesc) (*ScopeRecord, error) {
	d := &decoder{
		blob:    blob,
		data:    blob.ScopesData(),
		objects: map[int]*ObjectRecord{},
	}

	var objects []*ObjectRecord
	if desc.ObjectsOffset != 0 {
		values, err := d.values(desc.ObjectsOffset)
		if err != nil {
			return nil, fmt.Errorf("decoding objects at %d: %w", desc.ObjectsOffset, err)
		}
		for _, v := range values {
			if v.Tag != TagObject {
				return nil, fmt.Errorf("%w: objects list holds a %v value", ErrMalformedStream, v.Tag)
			}
			objects = append(objects, v.Object)
		}
	}

	offsets, err := d.chainOffsets(desc.ScopeOffset)
	if err != nil || len(offsets) == 0 {
		return nil, err
	}

	// Objects are defined by the outermost frame mentioning them, inner
	// frames refer to them by id.
	records := make([]*ScopeRecord, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		record, err := d.scope(offsets[i])
		if err != nil {
			return nil, fmt.Errorf("decoding scope at %d: %w", offsets[i], err)
		}
		record.Objects = objects
		if i+1 < len(records) {
			record.Caller = records[i+1]
		}
		records[i] = record
	}

	return records[0], nil
}

// chainOffsets follows the sender links of a chain, innermost first
func (d *decoder) chainOffsets(offset int) ([]int, error) {
	var offsets []int
	limit := len(d.data)
	for offset != 0 {
		if offset >= limit {
			return nil, fmt.Errorf("%w: scope offset %d does not decrease below %d", ErrMalformedStream, offset, limit)
		}
		limit = offset

		r, err := NewReader(d.data, offset)
		if err != nil {
			return nil, err
		}
		sender, err := r.Uint()
		if err != nil {
			return nil, fmt.Errorf("decoding scope at %d: %w", offset, err)
		}
		offsets = append(offsets, offset)
		offset = int(sender)
	}
	return offsets, nil
}

type decoder struct {
	blob    vm.CodeBlob
	data    []byte
	objects map[int]*ObjectRecord
}

func (d *decoder) scope(offset int) (*ScopeRecord, error) {
	r, err := NewReader(d.data, offset)
	if err != nil {
		return nil, err
	}

	var header [6]uint32
	for i := range header {
		if header[i], err = r.Uint(); err != nil {
			return nil, err
		}
	}
	methodIndex, bci := header[1], header[2]

	record := &ScopeRecord{Offset: offset, BCI: int(bci) - 1}
	if methodIndex != 0 {
		m, ok := d.blob.MetadataAt(int(methodIndex))
		if !ok {
			return nil, fmt.Errorf("%w: method index %d", ErrUnknownMetadata, methodIndex)
		}
		record.Method = m
	}
	if record.Locals, err = d.values(int(header[3])); err != nil {
		return nil, fmt.Errorf("locals: %w", err)
	}
	if record.Expressions, err = d.values(int(header[4])); err != nil {
		return nil, fmt.Errorf("expressions: %w", err)
	}
	if record.Monitors, err = d.monitors(int(header[5])); err != nil {
		return nil, fmt.Errorf("monitors: %w", err)
	}
	return record, nil
}

func (d *decoder) values(offset int) ([]ScopeValue, error) {
	if offset == 0 {
		return nil, nil
	}
	r, err := NewReader(d.data, offset)
	if err != nil {
		return nil, err
	}
	count, err := r.Uint()
	if err != nil {
		return nil, err
	}
	values := make([]ScopeValue, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := d.value(r)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (d *decoder) monitors(offset int) ([]Monitor, error) {
	if offset == 0 {
		return nil, nil
	}
	r, err := NewReader(d.data, offset)
	if err != nil {
		return nil, err
	}
	count, err := r.Uint()
	if err != nil {
		return nil, err
	}
	monitors := make([]Monitor, 0, count)
	for i := uint32(0); i < count; i++ {
		var m Monitor
		if m.Owner, err = d.value(r); err != nil {
			return nil, err
		}
		encoded, err := r.Uint()
		if err != nil {
			return nil, err
		}
		if m.Lock, err = DecodeLocation(encoded); err != nil {
			return nil, err
		}
		if m.Eliminated, err = r.Bool(); err != nil {
			return nil, err
		}
		monitors = append(monitors, m)
	}
	return monitors, nil
}

func (d *decoder) value(r *Reader) (ScopeValue, error) {
	tag, err := r.Uint()
	if err != nil {
		return ScopeValue{}, err
	}

	v := ScopeValue{Tag: ValueTag(tag)}
	switch v.Tag {
	case TagLocation:
		encoded, err := r.Uint()
		if err != nil {
			return v, err
		}
		v.Location, err = DecodeLocation(encoded)
		return v, err
	case TagInt:
		i, err := r.Int()
		v.Int = int64(i)
		return v, err
	case TagOop:
		index, err := r.Uint()
		if err != nil || index == 0 {
			return v, err
		}
		oop, ok := d.blob.OopAt(int(index))
		if !ok {
			return v, fmt.Errorf("%w: oop index %d", ErrUnknownMetadata, index)
		}
		v.Oop = &oop
		return v, nil
	case TagLong, TagDouble:
		hi, err := r.Int()
		if err != nil {
			return v, err
		}
		lo, err := r.Uint()
		if err != nil {
			return v, err
		}
		if v.Tag == TagLong {
			v.Int = longFromHalves(hi, lo)
		} else {
			v.Double = doubleFromHalves(hi, lo)
		}
		return v, nil
	case TagObject:
		v.Object, err = d.object(r)
		return v, err
	case TagObjectRef:
		id, err := r.Uint()
		if err != nil {
			return v, err
		}
		object, ok := d.objects[int(id)]
		if !ok {
			return v, fmt.Errorf("%w: id %d", ErrUnknownObject, id)
		}
		v.Object = object
		return v, nil
	default:
		return v, fmt.Errorf("%w: unknown value tag %d", ErrMalformedStream, tag)
	}
}

func (d *decoder) object(r *Reader) (*ObjectRecord, error) {
	id, err := r.Uint()
	if err != nil {
		return nil, err
	}
	klass, err := d.value(r)
	if err != nil {
		return nil, err
	}
	if klass.Tag != TagOop {
		return nil, fmt.Errorf("%w: object %d class is a %v value", ErrMalformedStream, id, klass.Tag)
	}

	record := &ObjectRecord{ID: int(id), Klass: klass}
	if existing, ok := d.objects[record.ID]; ok {
		record = existing
	} else {
		d.objects[record.ID] = record
	}

	count, err := r.Uint()
	if err != nil {
		return nil, err
	}
	values := make([]ScopeValue, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := d.value(r)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	record.Values = values
	return record, nil
}
