// Package classfile writes loaded classes back in class file format.
//
// The runtime constant pool is written in place so that the constant pool
// indices found in method bytecode stay valid. Resolved entries are turned
// back into their symbolic class file form; any Utf8 or Class entry needed
// for names that the runtime pool does not hold is appended after the last
// runtime entry.
package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/spf13/afero"
)

const (
	magic          = 0xcafebabe
	defaultMajor   = 52
	classFlagsMask = 0x7631
)

var (
	ErrNoConstantPool   = errors.New("class has no constant pool")
	ErrNotInstanceClass = errors.New("not an instance class")
	ErrPoolTooLarge     = errors.New("constant pool overflow")
)

// Path returns the file a class is exported to: the internal class name
// with host path separators, below root, with a .class extension.
func Path(root string, c vm.Class) string {
	return filepath.Join(root, filepath.FromSlash(c.Name())+".class")
}

// Export writes the class below root, creating parent directories as
// needed and truncating any existing file. It returns the written path.
func Export(fs afero.Fs, root string, c vm.Class) (path string, err error) {
	data, err := Bytes(c)
	if err != nil {
		return "", err
	}

	path = Path(root, c)
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	file, err := fs.Create(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			path, err = "", closeErr
		}
	}()

	if _, err := file.Write(data); err != nil {
		return "", err
	}
	return path, nil
}

// Write writes the class file of c to w
func Write(w io.Writer, c vm.Class) error {
	data, err := Bytes(c)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Bytes returns the class file of c
func Bytes(c vm.Class) ([]byte, error) {
	if _, isArray := c.ArrayInfo(); isArray {
		return nil, fmt.Errorf("%w: %s is an array class", ErrNotInstanceClass, c.Name())
	}
	cp, ok := c.ConstantPool()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoConstantPool, c.Name())
	}

	pool, err := newPoolBuilder(cp)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	u2 := func(v int) { binary.Write(&body, binary.BigEndian, uint16(v)) }

	u2(int(c.AccessFlags() & classFlagsMask))
	u2(pool.class(c.Name()))
	if super, ok := c.Super(); ok {
		u2(pool.class(super.Name()))
	} else {
		u2(0)
	}

	interfaces := c.Interfaces()
	u2(len(interfaces))
	for _, i := range interfaces {
		u2(pool.class(i.Name()))
	}

	fields := c.Fields()
	u2(len(fields))
	for _, f := range fields {
		u2(int(f.AccessFlags))
		u2(pool.utf8(f.Name))
		u2(pool.utf8(f.Signature))
		u2(0)
	}

	methods := c.Methods()
	u2(len(methods))
	for _, m := range methods {
		writeMethod(&body, pool, m)
	}

	attributes := []attribute{}
	if source := c.SourceFile(); source != "" {
		attributes = append(attributes, attribute{name: "SourceFile", data: be16(pool.utf8(source))})
	}
	if signature := c.GenericSignature(); signature != "" {
		attributes = append(attributes, attribute{name: "Signature", data: be16(pool.utf8(signature))})
	}
	writeAttributes(&body, pool, attributes)

	if pool.next > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d entries", ErrPoolTooLarge, pool.next)
	}

	var out bytes.Buffer
	major, minor := c.Version()
	if major == 0 {
		major = defaultMajor
	}
	binary.Write(&out, binary.BigEndian, uint32(magic))
	binary.Write(&out, binary.BigEndian, minor)
	binary.Write(&out, binary.BigEndian, major)
	binary.Write(&out, binary.BigEndian, uint16(pool.next))
	out.Write(pool.bytes())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

type attribute struct {
	name string
	data []byte
}

func be16(v int) []byte {
	return binary.BigEndian.AppendUint16(nil, uint16(v))
}

func writeAttributes(w *bytes.Buffer, pool *poolBuilder, attributes []attribute) {
	binary.Write(w, binary.BigEndian, uint16(len(attributes)))
	for _, a := range attributes {
		binary.Write(w, binary.BigEndian, uint16(pool.utf8(a.name)))
		binary.Write(w, binary.BigEndian, uint32(len(a.data)))
		w.Write(a.data)
	}
}

func writeMethod(w *bytes.Buffer, pool *poolBuilder, m vm.Method) {
	binary.Write(w, binary.BigEndian, uint16(m.AccessFlags()))
	binary.Write(w, binary.BigEndian, uint16(pool.utf8(m.Name())))
	binary.Write(w, binary.BigEndian, uint16(pool.utf8(m.Signature())))

	code := m.Bytecode()
	if len(code) == 0 || m.AccessFlags().IsNative() || m.AccessFlags().IsAbstract() {
		writeAttributes(w, pool, nil)
		return
	}

	var attr bytes.Buffer
	binary.Write(&attr, binary.BigEndian, uint16(m.MaxStack()))
	binary.Write(&attr, binary.BigEndian, uint16(m.MaxLocals()))
	binary.Write(&attr, binary.BigEndian, uint32(len(code)))
	attr.Write(code)

	exceptions := m.ExceptionTable()
	binary.Write(&attr, binary.BigEndian, uint16(len(exceptions)))
	for _, e := range exceptions {
		for _, v := range []int{e.StartBCI, e.EndBCI, e.HandlerBCI, e.CatchType} {
			binary.Write(&attr, binary.BigEndian, uint16(v))
		}
	}

	nested := []attribute{}
	if lines := m.LineNumberTable(); len(lines) > 0 {
		data := be16(len(lines))
		for _, l := range lines {
			data = binary.BigEndian.AppendUint16(data, uint16(l.StartBCI))
			data = binary.BigEndian.AppendUint16(data, uint16(l.Line))
		}
		nested = append(nested, attribute{name: "LineNumberTable", data: data})
	}
	if locals := m.LocalVariableTable(); len(locals) > 0 {
		data := be16(len(locals))
		for _, l := range locals {
			for _, v := range []int{l.StartBCI, l.Length, pool.utf8(l.Name), pool.utf8(l.Signature), l.Slot} {
				data = binary.BigEndian.AppendUint16(data, uint16(v))
			}
		}
		nested = append(nested, attribute{name: "LocalVariableTable", data: data})
	}
	writeAttributes(&attr, pool, nested)

	writeAttributes(w, pool, []attribute{{name: "Code", data: attr.Bytes()}})
}
