package snapshot

import (
	"fmt"

	"github.com/Manu343726/vmlens/pkg/vm"
)

type class struct {
	img  *Image
	addr vm.Address
}

var _ vm.Class = (*class)(nil)

func (c *class) model() *ClassModel {
	m, ok := c.img.classes[c.addr]
	if !ok {
		panic(fmt.Sprintf("snapshot: class %v vanished", c.addr))
	}
	return m
}

func (c *class) Kind() vm.HandleKind         { return vm.KindClass }
func (c *class) Address() vm.Address         { return c.addr }
func (c *class) Name() string                { return c.model().Name }
func (c *class) AccessFlags() vm.AccessFlags { return vm.AccessFlags(c.model().AccessFlags) }
func (c *class) GenericSignature() string    { return c.model().GenericSignature }
func (c *class) SourceFile() string          { return c.model().SourceFile }
func (c *class) Version() (major, minor uint16) {
	return c.model().MajorVersion, c.model().MinorVersion
}

func (c *class) Super() (vm.Class, bool) {
	super := c.model().Super
	if super.IsNull() {
		return nil, false
	}
	return c.img.class(super), true
}

func (c *class) Interfaces() []vm.Class {
	result := []vm.Class{}
	for _, i := range c.model().Interfaces {
		result = append(result, c.img.class(i))
	}
	return result
}

func (c *class) Fields() []vm.Field {
	result := []vm.Field{}
	for _, f := range c.model().Fields {
		result = append(result, vm.Field{
			Name:        f.Name,
			Signature:   f.Signature,
			AccessFlags: vm.AccessFlags(f.AccessFlags),
			Offset:      f.Offset,
		})
	}
	return result
}

func (c *class) Methods() []vm.Method {
	result := []vm.Method{}
	for _, m := range c.model().Methods {
		result = append(result, c.img.method(m))
	}
	return result
}

func (c *class) ConstantPool() (vm.ConstantPool, bool) {
	cp := c.model().ConstantPool
	if cp.IsNull() {
		return nil, false
	}
	return &constantPool{img: c.img, addr: cp}, true
}

// Subklass returns the first class, in image order, whose super is c
func (c *class) Subklass() (vm.Class, bool) {
	for _, other := range c.img.model.Classes {
		if other.Super == c.addr {
			return c.img.class(other.Address), true
		}
	}
	return nil, false
}

// NextSibling returns the next class, in image order, sharing c's super
func (c *class) NextSibling() (vm.Class, bool) {
	super := c.model().Super
	if super.IsNull() {
		return nil, false
	}
	found := false
	for _, other := range c.img.model.Classes {
		if found && other.Super == super {
			return c.img.class(other.Address), true
		}
		if other.Address == c.addr {
			found = true
		}
	}
	return nil, false
}

func (c *class) ArrayInfo() (vm.ArrayInfo, bool) {
	a := c.model().Array
	if a == nil {
		return vm.ArrayInfo{}, false
	}
	return vm.ArrayInfo{ElementType: a.Element, Dimensions: a.Dimensions}, true
}

type method struct {
	img  *Image
	addr vm.Address
}

var _ vm.Method = (*method)(nil)

func (m *method) model() *MethodModel {
	model, ok := m.img.methods[m.addr]
	if !ok {
		panic(fmt.Sprintf("snapshot: method %v vanished", m.addr))
	}
	return model
}

func (m *method) Kind() vm.HandleKind         { return vm.KindMethod }
func (m *method) Address() vm.Address         { return m.addr }
func (m *method) Name() string                { return m.model().Name }
func (m *method) Signature() string           { return m.model().Signature }
func (m *method) AccessFlags() vm.AccessFlags { return vm.AccessFlags(m.model().AccessFlags) }
func (m *method) Holder() vm.Class            { return m.img.class(m.model().Holder) }
func (m *method) MaxStack() int               { return m.model().MaxStack }
func (m *method) MaxLocals() int              { return m.model().MaxLocals }

func (m *method) Bytecode() []byte {
	code, _ := decodeHex(m.model().Bytecode)
	return code
}

func (m *method) CompiledCode() (vm.CodeBlob, bool) {
	code := m.model().Code
	if code.IsNull() {
		return nil, false
	}
	for _, b := range m.img.blobs {
		if b.model.Address == code {
			return &codeBlob{img: m.img, addr: code}, true
		}
	}
	return nil, false
}

func (m *method) ExceptionTable() []vm.ExceptionEntry {
	result := []vm.ExceptionEntry{}
	for _, e := range m.model().ExceptionTable {
		result = append(result, vm.ExceptionEntry{
			StartBCI:   e.Start,
			EndBCI:     e.End,
			HandlerBCI: e.Handler,
			CatchType:  e.CatchType,
		})
	}
	return result
}

func (m *method) LineNumberTable() []vm.LineNumberEntry {
	result := []vm.LineNumberEntry{}
	for _, l := range m.model().LineNumbers {
		result = append(result, vm.LineNumberEntry{StartBCI: l.BCI, Line: l.Line})
	}
	return result
}

func (m *method) LocalVariableTable() []vm.LocalVariable {
	result := []vm.LocalVariable{}
	for _, l := range m.model().Locals {
		result = append(result, vm.LocalVariable{
			StartBCI:  l.Start,
			Length:    l.Length,
			Slot:      l.Slot,
			Name:      l.Name,
			Signature: l.Signature,
		})
	}
	return result
}

func newConstantPoolEntry(model *ConstantPoolModel) (*constantPoolEntry, error) {
	entry := &constantPoolEntry{
		model: model,
		slots: []*ConstantModel{nil},
		tags:  []vm.ConstantTag{vm.TagInvalid},
	}
	for i := range model.Entries {
		c := &model.Entries[i]
		tag, err := vm.ParseConstantTag(c.Tag)
		if err != nil {
			return nil, fmt.Errorf("%w: constant pool %v entry %d: %v", ErrInvalidImage, model.Address, len(entry.slots), err)
		}
		entry.slots = append(entry.slots, c)
		entry.tags = append(entry.tags, tag)
		if tag.IsDoubleSlot() {
			entry.slots = append(entry.slots, nil)
			entry.tags = append(entry.tags, vm.TagInvalid)
		}
	}
	return entry, nil
}

type constantPool struct {
	img  *Image
	addr vm.Address
}

var _ vm.ConstantPool = (*constantPool)(nil)

func (cp *constantPool) entry() *constantPoolEntry {
	e, ok := cp.img.constantPools[cp.addr]
	if !ok {
		panic(fmt.Sprintf("snapshot: constant pool %v vanished", cp.addr))
	}
	return e
}

func (cp *constantPool) Kind() vm.HandleKind { return vm.KindConstantPool }
func (cp *constantPool) Address() vm.Address { return cp.addr }
func (cp *constantPool) Holder() vm.Class    { return cp.img.class(cp.entry().model.Holder) }
func (cp *constantPool) Length() int         { return len(cp.entry().slots) }

func (cp *constantPool) TagAt(index int) (vm.ConstantTag, error) {
	e := cp.entry()
	if index <= 0 || index >= len(e.slots) {
		return vm.TagInvalid, fmt.Errorf("%w: constant pool index %d, length %d", vm.ErrInvalidIndex, index, len(e.slots))
	}
	return e.tags[index], nil
}

func (cp *constantPool) At(index int) (vm.Constant, error) {
	e := cp.entry()
	if index <= 0 || index >= len(e.slots) {
		return vm.Constant{}, fmt.Errorf("%w: constant pool index %d, length %d", vm.ErrInvalidIndex, index, len(e.slots))
	}
	model := e.slots[index]
	if model == nil {
		return vm.Constant{}, fmt.Errorf("%w: index %d is the second slot of a two slot entry", vm.ErrInvalidConstant, index)
	}

	c := vm.Constant{
		Tag:     e.tags[index],
		Int:     model.Int,
		Float:   model.Float,
		Text:    model.Text,
		Index1:  model.Index1,
		Index2:  model.Index2,
		RefKind: model.RefKind,
	}
	if c.Tag == vm.TagClass {
		if _, ok := cp.img.classes[model.Class]; !ok {
			return vm.Constant{}, fmt.Errorf("%w: resolved class entry %d points to %v", ErrDanglingRef, index, model.Class)
		}
		c.Class = cp.img.class(model.Class)
		c.Text = c.Class.Name()
	}
	return c, nil
}
