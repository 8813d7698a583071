package snapshot

import (
	"fmt"

	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/Manu343726/vmlens/pkg/vm/debuginfo"
)

var locationTypes = map[string]debuginfo.LocationType{
	"":          debuginfo.LocNormal,
	"normal":    debuginfo.LocNormal,
	"oop":       debuginfo.LocOop,
	"narrowoop": debuginfo.LocNarrowOop,
	"int":       debuginfo.LocInt,
	"long":      debuginfo.LocLong,
	"float":     debuginfo.LocFloat,
	"double":    debuginfo.LocDouble,
	"address":   debuginfo.LocAddress,
	"invalid":   debuginfo.LocInvalid,
}

var slotKinds = map[string]vm.OopSlotKind{
	"":             vm.SlotOop,
	"oop":          vm.SlotOop,
	"narrowoop":    vm.SlotNarrowOop,
	"callee_saved": vm.SlotCalleeSaved,
	"derived":      vm.SlotDerivedOop,
}

func location(v ValueModel) (debuginfo.Location, error) {
	t, ok := locationTypes[v.Type]
	if !ok {
		return debuginfo.Location{}, fmt.Errorf("unknown location type '%s'", v.Type)
	}
	switch v.Kind {
	case "stack":
		return debuginfo.Location{Where: debuginfo.OnStack, Type: t, Offset: v.Offset}, nil
	case "reg":
		return debuginfo.Location{Where: debuginfo.InRegister, Type: t, Offset: v.Offset}, nil
	default:
		return debuginfo.Location{}, fmt.Errorf("'%s' is not a location", v.Kind)
	}
}

func valueSpec(v ValueModel) (debuginfo.ValueSpec, error) {
	switch v.Kind {
	case "stack", "reg":
		loc, err := location(v)
		return debuginfo.ValueSpec{Tag: debuginfo.TagLocation, Location: loc}, err
	case "int":
		return debuginfo.ValueSpec{Tag: debuginfo.TagInt, Int: v.Value}, nil
	case "long":
		return debuginfo.ValueSpec{Tag: debuginfo.TagLong, Int: v.Value}, nil
	case "double":
		return debuginfo.ValueSpec{Tag: debuginfo.TagDouble, Double: v.Double}, nil
	case "oop":
		return debuginfo.ValueSpec{Tag: debuginfo.TagOop, OopIndex: v.Oop}, nil
	case "object_ref":
		return debuginfo.ValueSpec{Tag: debuginfo.TagObjectRef, ObjectID: v.ID}, nil
	case "object":
		fields, err := valueSpecs(v.Fields)
		return debuginfo.ValueSpec{
			Tag:      debuginfo.TagObject,
			ObjectID: v.ID,
			OopIndex: v.Klass,
			Fields:   fields,
		}, err
	default:
		return debuginfo.ValueSpec{}, fmt.Errorf("unknown value kind '%s'", v.Kind)
	}
}

func valueSpecs(values []ValueModel) ([]debuginfo.ValueSpec, error) {
	result := make([]debuginfo.ValueSpec, 0, len(values))
	for _, v := range values {
		spec, err := valueSpec(v)
		if err != nil {
			return nil, err
		}
		result = append(result, spec)
	}
	return result, nil
}

func scopeSpec(s ScopeModel) (debuginfo.ScopeSpec, error) {
	spec := debuginfo.ScopeSpec{MethodIndex: s.Method, BCI: s.BCI}
	var err error
	if spec.Locals, err = valueSpecs(s.Locals); err != nil {
		return spec, fmt.Errorf("locals: %w", err)
	}
	if spec.Expressions, err = valueSpecs(s.Expressions); err != nil {
		return spec, fmt.Errorf("expressions: %w", err)
	}
	for _, m := range s.Monitors {
		owner, err := valueSpec(m.Owner)
		if err != nil {
			return spec, fmt.Errorf("monitor owner: %w", err)
		}
		lock, err := location(m.Lock)
		if err != nil {
			return spec, fmt.Errorf("monitor lock: %w", err)
		}
		spec.Monitors = append(spec.Monitors, debuginfo.MonitorSpec{Owner: owner, Lock: lock, Eliminated: m.Eliminated})
	}
	return spec, nil
}

func (img *Image) newBlobEntry(model *BlobModel) (*blobEntry, error) {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: blob '%s' at %v: %s", ErrInvalidImage, model.Name, model.Address, fmt.Sprintf(format, args...))
	}

	kind, err := vm.ParseBlobKind(model.Kind)
	if err != nil {
		return nil, fail("%v", err)
	}
	if model.Begin < model.Address || model.End < model.Begin {
		return nil, fail("inconsistent range [%v, %v)", model.Begin, model.End)
	}
	if !model.Method.IsNull() {
		if _, ok := img.methods[model.Method]; !ok {
			return nil, fail("unknown method %v", model.Method)
		}
	}
	for _, m := range model.Metadata {
		if _, ok := img.methods[m]; !ok {
			return nil, fail("unknown metadata %v", m)
		}
	}
	for _, o := range model.Oops {
		for _, c := range []vm.Address{o.Klass, o.Mirror} {
			if _, ok := img.classes[c]; !c.IsNull() && !ok {
				return nil, fail("oop %v refers to unknown class %v", o.Address, c)
			}
		}
	}
	for _, m := range model.OopMaps {
		for _, s := range m.Slots {
			if _, ok := slotKinds[s.Kind]; !ok {
				return nil, fail("unknown oop map slot kind '%s'", s.Kind)
			}
		}
	}

	entry := &blobEntry{model: model, kind: kind}
	w := debuginfo.NewWriter()
	for _, sp := range model.Safepoints {
		desc := vm.PCDesc{PC: sp.PC}

		objects, err := valueSpecs(sp.Objects)
		if err != nil {
			return nil, fail("safepoint %v objects: %v", sp.PC, err)
		}
		desc.ObjectsOffset = w.Objects(objects)

		scopes := make([]debuginfo.ScopeSpec, 0, len(sp.Scopes))
		for _, s := range sp.Scopes {
			spec, err := scopeSpec(s)
			if err != nil {
				return nil, fail("safepoint %v: %v", sp.PC, err)
			}
			scopes = append(scopes, spec)
		}
		desc.ScopeOffset = w.Chain(scopes)
		entry.pcs = append(entry.pcs, desc)
	}
	entry.scopesData = w.Bytes()
	return entry, nil
}

type codeBlob struct {
	img  *Image
	addr vm.Address
}

var _ vm.CodeBlob = (*codeBlob)(nil)

func (b *codeBlob) entry() *blobEntry { return b.img.blob(b.addr) }

func (b *codeBlob) Kind() vm.HandleKind   { return vm.KindCodeBlob }
func (b *codeBlob) Address() vm.Address   { return b.addr }
func (b *codeBlob) Name() string          { return b.entry().model.Name }
func (b *codeBlob) BlobKind() vm.BlobKind { return b.entry().kind }
func (b *codeBlob) Begin() vm.Address     { return b.entry().model.Begin }
func (b *codeBlob) End() vm.Address       { return b.entry().model.End }
func (b *codeBlob) ScopesData() []byte    { return b.entry().scopesData }

func (b *codeBlob) Method() (vm.Method, bool) {
	m := b.entry().model.Method
	if m.IsNull() {
		return nil, false
	}
	return b.img.method(m), true
}

func (b *codeBlob) Markers() vm.CodeMarkers {
	m := b.entry().model.Markers
	return vm.CodeMarkers{
		Entry:            m.Entry,
		VerifiedEntry:    m.VerifiedEntry,
		OSREntry:         m.OSREntry,
		ExceptionHandler: m.ExceptionHandler,
		DeoptHandler:     m.DeoptHandler,
		StubBegin:        m.StubBegin,
	}
}

func (b *codeBlob) PCDescs() []vm.PCDesc {
	return append([]vm.PCDesc(nil), b.entry().pcs...)
}

func (b *codeBlob) MetadataAt(index int) (vm.Method, bool) {
	metadata := b.entry().model.Metadata
	if index <= 0 || index > len(metadata) {
		return nil, false
	}
	return b.img.method(metadata[index-1]), true
}

func (b *codeBlob) OopAt(index int) (vm.Oop, bool) {
	oops := b.entry().model.Oops
	if index <= 0 || index > len(oops) {
		return vm.Oop{}, false
	}
	o := oops[index-1]
	oop := vm.Oop{Address: o.Address}
	if !o.Klass.IsNull() {
		oop.Klass = b.img.class(o.Klass)
	}
	if !o.Mirror.IsNull() {
		oop.Mirror = b.img.class(o.Mirror)
	}
	return oop, true
}

func (b *codeBlob) OopMapAt(pc vm.Address) (vm.OopMap, bool) {
	for _, m := range b.entry().model.OopMaps {
		if m.PC != pc {
			continue
		}
		result := vm.OopMap{PC: m.PC}
		for _, s := range m.Slots {
			result.Slots = append(result.Slots, vm.OopMapSlot{
				Kind:        slotKinds[s.Kind],
				Register:    s.Register,
				StackOffset: s.Stack,
			})
		}
		return result, true
	}
	return vm.OopMap{}, false
}

type interpreter struct {
	img *Image
}

func (i interpreter) Codelets() []vm.Codelet {
	result := make([]vm.Codelet, 0, len(i.img.codelets))
	for index := range i.img.codelets {
		result = append(result, &codelet{img: i.img, index: index})
	}
	return result
}

func (i interpreter) CodeletContaining(addr vm.Address) (vm.Codelet, bool) {
	for index, c := range i.img.codelets {
		if addr >= c.Begin && addr < c.End {
			return &codelet{img: i.img, index: index}, true
		}
	}
	return nil, false
}

// codelet is identified by its position in the begin-sorted codelet list
type codelet struct {
	img   *Image
	index int
}

var _ vm.Codelet = (*codelet)(nil)

func (c *codelet) model() *CodeletModel { return c.img.codelets[c.index] }

func (c *codelet) Kind() vm.HandleKind { return vm.KindCodelet }
func (c *codelet) Address() vm.Address { return c.model().Begin }
func (c *codelet) Begin() vm.Address   { return c.model().Begin }
func (c *codelet) End() vm.Address     { return c.model().End }
func (c *codelet) Description() string { return c.model().Description }
func (c *codelet) Bytecode() string    { return c.model().Bytecode }

func (c *codelet) Prev() (vm.Codelet, bool) {
	if c.index == 0 {
		return nil, false
	}
	return &codelet{img: c.img, index: c.index - 1}, true
}

func (c *codelet) Next() (vm.Codelet, bool) {
	if c.index+1 >= len(c.img.codelets) {
		return nil, false
	}
	return &codelet{img: c.img, index: c.index + 1}, true
}
