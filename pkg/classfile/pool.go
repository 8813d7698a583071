package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Manu343726/vmlens/pkg/vm"
)

// poolBuilder serializes the runtime constant pool in class file form and
// appends the entries the rest of the class file needs.
type poolBuilder struct {
	buf     bytes.Buffer
	next    int
	utf8s   map[string]int
	classes map[string]int
}

func newPoolBuilder(cp vm.ConstantPool) (*poolBuilder, error) {
	p := &poolBuilder{
		next:    cp.Length(),
		utf8s:   map[string]int{},
		classes: map[string]int{},
	}

	entries := make([]vm.Constant, cp.Length())
	for i := 1; i < cp.Length(); i++ {
		c, err := cp.At(i)
		if err != nil {
			return nil, fmt.Errorf("constant pool entry %d: %w", i, err)
		}
		entries[i] = c
		switch c.Tag {
		case vm.TagUtf8:
			if _, seen := p.utf8s[c.Text]; !seen {
				p.utf8s[c.Text] = i
			}
		case vm.TagClass, vm.TagUnresolvedClass, vm.TagUnresolvedClassInError:
			if _, seen := p.classes[c.Text]; !seen {
				p.classes[c.Text] = i
			}
		}
		if c.Tag.IsDoubleSlot() {
			i++
		}
	}

	// Class and String entries of the runtime pool refer to their text
	// directly; the Utf8 entries they need may be appended, so the in-place
	// entries are serialized into their own buffer first.
	var inPlace bytes.Buffer
	for i := 1; i < len(entries); i++ {
		c := entries[i]
		if err := p.write(&inPlace, c); err != nil {
			return nil, fmt.Errorf("constant pool entry %d: %w", i, err)
		}
		if c.Tag.IsDoubleSlot() {
			i++
		}
	}
	appended := p.buf.Bytes()
	p.buf = bytes.Buffer{}
	p.buf.Write(inPlace.Bytes())
	p.buf.Write(appended)
	return p, nil
}

func u2(w *bytes.Buffer, v int) {
	binary.Write(w, binary.BigEndian, uint16(v))
}

func (p *poolBuilder) write(w *bytes.Buffer, c vm.Constant) error {
	switch c.Tag {
	case vm.TagUtf8:
		w.WriteByte(byte(vm.TagUtf8))
		u2(w, len(c.Text))
		w.WriteString(c.Text)
	case vm.TagInteger:
		w.WriteByte(byte(vm.TagInteger))
		binary.Write(w, binary.BigEndian, int32(c.Int))
	case vm.TagFloat:
		w.WriteByte(byte(vm.TagFloat))
		binary.Write(w, binary.BigEndian, math.Float32bits(float32(c.Float)))
	case vm.TagLong:
		w.WriteByte(byte(vm.TagLong))
		binary.Write(w, binary.BigEndian, c.Int)
	case vm.TagDouble:
		w.WriteByte(byte(vm.TagDouble))
		binary.Write(w, binary.BigEndian, math.Float64bits(c.Float))
	case vm.TagClass, vm.TagUnresolvedClass, vm.TagUnresolvedClassInError:
		w.WriteByte(byte(vm.TagClass))
		u2(w, p.utf8(c.Text))
	case vm.TagClassIndex:
		w.WriteByte(byte(vm.TagClass))
		u2(w, c.Index1)
	case vm.TagString:
		w.WriteByte(byte(vm.TagString))
		u2(w, p.utf8(c.Text))
	case vm.TagStringIndex:
		w.WriteByte(byte(vm.TagString))
		u2(w, c.Index1)
	case vm.TagFieldref, vm.TagMethodref, vm.TagInterfaceMethodref, vm.TagNameAndType,
		vm.TagDynamic, vm.TagInvokeDynamic:
		w.WriteByte(byte(c.Tag))
		u2(w, c.Index1)
		u2(w, c.Index2)
	case vm.TagMethodHandle:
		w.WriteByte(byte(vm.TagMethodHandle))
		w.WriteByte(byte(c.RefKind))
		u2(w, c.Index1)
	case vm.TagMethodType:
		w.WriteByte(byte(vm.TagMethodType))
		u2(w, c.Index1)
	default:
		return fmt.Errorf("%w: cannot write %v", vm.ErrInvalidConstant, c.Tag)
	}
	return nil
}

// utf8 returns the index of a Utf8 entry holding text, appending one if
// needed.
func (p *poolBuilder) utf8(text string) int {
	if index, ok := p.utf8s[text]; ok {
		return index
	}
	index := p.next
	p.next++
	p.utf8s[text] = index
	p.write(&p.buf, vm.Constant{Tag: vm.TagUtf8, Text: text})
	return index
}

// class returns the index of a Class entry naming the class, appending one
// if needed.
func (p *poolBuilder) class(name string) int {
	if index, ok := p.classes[name]; ok {
		return index
	}
	nameIndex := p.utf8(name)
	index := p.next
	p.next++
	p.classes[name] = index
	p.buf.WriteByte(byte(vm.TagClass))
	u2(&p.buf, nameIndex)
	return index
}

func (p *poolBuilder) bytes() []byte {
	return p.buf.Bytes()
}
