package snapshot

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidImage = errors.New("invalid snapshot image")
	ErrDanglingRef  = errors.New("dangling reference")
)

type segment struct {
	base  vm.Address
	bytes []byte
}

type blobEntry struct {
	model      *BlobModel
	kind       vm.BlobKind
	pcs        []vm.PCDesc
	scopesData []byte
}

type constantPoolEntry struct {
	model *ConstantPoolModel
	// slots maps pool indices to entries, nil for unusable indices
	slots []*ConstantModel
	tags  []vm.ConstantTag
}

// Image is a loaded snapshot. It implements vm.Target; handles returned by
// it are bound to an address and look the image up on every access.
type Image struct {
	model         *Model
	segments      []segment
	classes       map[vm.Address]*ClassModel
	classNames    map[string]vm.Address
	methods       map[vm.Address]*MethodModel
	constantPools map[vm.Address]*constantPoolEntry
	blobs         []*blobEntry
	codelets      []*CodeletModel
}

var _ vm.Target = (*Image)(nil)

// Load reads a YAML image
func Load(r io.Reader) (*Image, error) {
	var model Model
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&model); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return New(&model)
}

// LoadFile reads a YAML image from the given filesystem
func LoadFile(fs afero.Fs, path string) (*Image, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	image, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("loading '%s': %w", path, err)
	}
	return image, nil
}

// New builds an image from a model, checking its internal references and
// encoding the debug information of every blob.
func New(model *Model) (*Image, error) {
	img := &Image{
		model:         model,
		classes:       map[vm.Address]*ClassModel{},
		classNames:    map[string]vm.Address{},
		methods:       map[vm.Address]*MethodModel{},
		constantPools: map[vm.Address]*constantPoolEntry{},
	}

	for i := range model.Segments {
		s := &model.Segments[i]
		bytes, err := decodeHex(s.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: segment at %v: %v", ErrInvalidImage, s.Base, err)
		}
		img.segments = append(img.segments, segment{base: s.Base, bytes: bytes})
	}

	for i := range model.Classes {
		c := &model.Classes[i]
		if err := img.claim(c.Address, "class "+c.Name); err != nil {
			return nil, err
		}
		img.classes[c.Address] = c
		img.classNames[c.Name] = c.Address
	}
	for i := range model.Methods {
		m := &model.Methods[i]
		if err := img.claim(m.Address, "method "+m.Name); err != nil {
			return nil, err
		}
		img.methods[m.Address] = m
	}
	for i := range model.ConstantPools {
		cp, err := newConstantPoolEntry(&model.ConstantPools[i])
		if err != nil {
			return nil, err
		}
		if err := img.claim(cp.model.Address, "constant pool"); err != nil {
			return nil, err
		}
		img.constantPools[cp.model.Address] = cp
	}

	if err := img.checkReferences(); err != nil {
		return nil, err
	}

	for i := range model.Blobs {
		blob, err := img.newBlobEntry(&model.Blobs[i])
		if err != nil {
			return nil, err
		}
		img.blobs = append(img.blobs, blob)
	}

	for i := range model.Codelets {
		img.codelets = append(img.codelets, &model.Codelets[i])
	}
	sort.SliceStable(img.codelets, func(i, j int) bool {
		return img.codelets[i].Begin < img.codelets[j].Begin
	})

	return img, nil
}

func decodeHex(text string) ([]byte, error) {
	return hex.DecodeString(strings.Join(strings.Fields(text), ""))
}

func (img *Image) claim(addr vm.Address, what string) error {
	if addr.IsNull() {
		return fmt.Errorf("%w: %s has no address", ErrInvalidImage, what)
	}
	_, isClass := img.classes[addr]
	_, isMethod := img.methods[addr]
	_, isPool := img.constantPools[addr]
	if isClass || isMethod || isPool {
		return fmt.Errorf("%w: %s at %v overlaps another structure", ErrInvalidImage, what, addr)
	}
	return nil
}

func (img *Image) checkReferences() error {
	class := func(addr vm.Address, from string) error {
		if _, ok := img.classes[addr]; !ok {
			return fmt.Errorf("%w: %s refers to class %v", ErrDanglingRef, from, addr)
		}
		return nil
	}

	for _, c := range img.model.Classes {
		from := "class " + c.Name
		if !c.Super.IsNull() {
			if err := class(c.Super, from); err != nil {
				return err
			}
		}
		for _, i := range c.Interfaces {
			if err := class(i, from); err != nil {
				return err
			}
		}
		for _, m := range c.Methods {
			if _, ok := img.methods[m]; !ok {
				return fmt.Errorf("%w: %s refers to method %v", ErrDanglingRef, from, m)
			}
		}
		if !c.ConstantPool.IsNull() {
			if _, ok := img.constantPools[c.ConstantPool]; !ok {
				return fmt.Errorf("%w: %s refers to constant pool %v", ErrDanglingRef, from, c.ConstantPool)
			}
		}
	}
	for _, m := range img.model.Methods {
		if err := class(m.Holder, "method "+m.Name); err != nil {
			return err
		}
		if _, err := decodeHex(m.Bytecode); err != nil {
			return fmt.Errorf("%w: method %s bytecode: %v", ErrInvalidImage, m.Name, err)
		}
	}
	for _, cp := range img.model.ConstantPools {
		if err := class(cp.Holder, fmt.Sprintf("constant pool %v", cp.Address)); err != nil {
			return err
		}
	}
	for _, t := range img.model.Threads {
		for _, f := range t.Frames {
			if _, ok := img.methods[f.Method]; !ok {
				return fmt.Errorf("%w: thread %s frame refers to method %v", ErrDanglingRef, t.Name, f.Method)
			}
		}
	}
	return nil
}

// ReadBytes reads n bytes from a mapped segment
func (img *Image) ReadBytes(addr vm.Address, n int) ([]byte, error) {
	for _, s := range img.segments {
		end := s.base.Offset(int64(len(s.bytes)))
		if addr >= s.base && addr < end {
			offset := addr.Minus(s.base)
			if offset+int64(n) > int64(len(s.bytes)) {
				return nil, fmt.Errorf("%w: read of %d bytes at %v crosses the end of the segment", vm.ErrUnmappedMemory, n, addr)
			}
			result := make([]byte, n)
			copy(result, s.bytes[offset:])
			return result, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", vm.ErrUnmappedMemory, addr)
}

func (img *Image) CodeCache() vm.Range {
	return vm.Range{Begin: img.model.CodeCache.Begin, End: img.model.CodeCache.End}
}

// FindBlob returns the blob whose header or instructions contain addr
func (img *Image) FindBlob(addr vm.Address) (vm.CodeBlob, bool) {
	for _, b := range img.blobs {
		if addr >= b.model.Address && addr < b.model.End {
			return &codeBlob{img: img, addr: b.model.Address}, true
		}
	}
	return nil, false
}

func (img *Image) Interpreter() vm.Interpreter {
	return interpreter{img: img}
}

// MetadataAt returns the class, method or constant pool at addr
func (img *Image) MetadataAt(addr vm.Address) (vm.Handle, error) {
	if _, ok := img.classes[addr]; ok {
		return img.class(addr), nil
	}
	if _, ok := img.methods[addr]; ok {
		return img.method(addr), nil
	}
	if _, ok := img.constantPools[addr]; ok {
		return &constantPool{img: img, addr: addr}, nil
	}
	return nil, fmt.Errorf("%w: %v", vm.ErrNotMetadata, addr)
}

// Classes returns all loaded classes sorted by name
func (img *Image) Classes() []vm.Class {
	names := make([]string, 0, len(img.classNames))
	for name := range img.classNames {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]vm.Class, 0, len(names))
	for _, name := range names {
		result = append(result, img.class(img.classNames[name]))
	}
	return result
}

// FindClass accepts both internal (a/b/C) and external (a.b.C) names
func (img *Image) FindClass(name string) (vm.Class, bool) {
	addr, ok := img.classNames[strings.ReplaceAll(name, ".", "/")]
	if !ok {
		return nil, false
	}
	return img.class(addr), true
}

func (img *Image) Threads() []vm.Thread {
	result := make([]vm.Thread, 0, len(img.model.Threads))
	for i := range img.model.Threads {
		result = append(result, &thread{img: img, index: i})
	}
	return result
}

func (img *Image) class(addr vm.Address) *class {
	return &class{img: img, addr: addr}
}

func (img *Image) method(addr vm.Address) *method {
	return &method{img: img, addr: addr}
}

func (img *Image) blob(addr vm.Address) *blobEntry {
	for _, b := range img.blobs {
		if b.model.Address == addr {
			return b
		}
	}
	panic(fmt.Sprintf("snapshot: no code blob at %v", addr))
}
