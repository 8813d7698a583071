package classfile_test

import (
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Manu343726/vmlens/pkg/classfile"
	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/Manu343726/vmlens/pkg/vm/snapshot/snapshottest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parsedClass holds the parts of a class file the tests look at
type parsedClass struct {
	major     uint16
	poolCount int
	utf8      map[int]string
	classes   map[int]int
	thisClass int
	super     int
}

func parse(t *testing.T, data []byte) parsedClass {
	t.Helper()
	require.GreaterOrEqual(t, len(data), 10)
	require.Equal(t, uint32(0xcafebabe), binary.BigEndian.Uint32(data))

	p := parsedClass{
		major:     binary.BigEndian.Uint16(data[6:]),
		poolCount: int(binary.BigEndian.Uint16(data[8:])),
		utf8:      map[int]string{},
		classes:   map[int]int{},
	}

	offset := 10
	for i := 1; i < p.poolCount; i++ {
		tag := vm.ConstantTag(data[offset])
		offset++
		switch tag {
		case vm.TagUtf8:
			n := int(binary.BigEndian.Uint16(data[offset:]))
			p.utf8[i] = string(data[offset+2 : offset+2+n])
			offset += 2 + n
		case vm.TagClass:
			p.classes[i] = int(binary.BigEndian.Uint16(data[offset:]))
			offset += 2
		case vm.TagString, vm.TagMethodType:
			offset += 2
		case vm.TagMethodHandle:
			offset += 3
		case vm.TagInteger, vm.TagFloat, vm.TagFieldref, vm.TagMethodref, vm.TagInterfaceMethodref,
			vm.TagNameAndType, vm.TagDynamic, vm.TagInvokeDynamic:
			offset += 4
		case vm.TagLong, vm.TagDouble:
			offset += 8
			i++
		default:
			t.Fatalf("unexpected tag %v at pool index %d", tag, i)
		}
	}

	p.thisClass = int(binary.BigEndian.Uint16(data[offset+2:]))
	p.super = int(binary.BigEndian.Uint16(data[offset+4:]))
	return p
}

func (p parsedClass) className(index int) string {
	return p.utf8[p.classes[index]]
}

func TestBytes(t *testing.T) {
	img := snapshottest.Image(t)
	foo, ok := img.FindClass("com/example/Foo")
	require.True(t, ok)

	data, err := classfile.Bytes(foo)
	require.NoError(t, err)

	p := parse(t, data)
	assert.Equal(t, uint16(61), p.major)
	assert.Equal(t, 2, p.thisClass, "the runtime Class entry is reused")
	assert.Equal(t, "com/example/Foo", p.className(p.thisClass))
	assert.Equal(t, "java/lang/Object", p.className(p.super))

	texts := map[string]bool{}
	for _, s := range p.utf8 {
		texts[s] = true
	}
	for _, want := range []string{"Code", "LineNumberTable", "LocalVariableTable", "SourceFile", "Signature", "world", "com/example/Missing", "count"} {
		assert.True(t, texts[want], "missing Utf8 %q", want)
	}
	assert.Equal(t, "Foo.java", p.utf8[22])
}

func TestBytesRejects(t *testing.T) {
	img := snapshottest.Image(t)

	array, ok := img.FindClass("[I")
	require.True(t, ok)
	_, err := classfile.Bytes(array)
	assert.ErrorIs(t, err, classfile.ErrNotInstanceClass)

	bar, ok := img.FindClass("com/example/Bar")
	require.True(t, ok)
	_, err = classfile.Bytes(bar)
	assert.ErrorIs(t, err, classfile.ErrNoConstantPool)
}

func TestExport(t *testing.T) {
	img := snapshottest.Image(t)
	foo, ok := img.FindClass("com.example.Foo")
	require.True(t, ok)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join("out", "com", "example", "Foo.class"), []byte("stale contents that are longer than nothing"), 0o644))

	path, err := classfile.Export(fs, "out", foo)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "com", "example", "Foo.class"), path)

	written, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	expected, err := classfile.Bytes(foo)
	require.NoError(t, err)
	assert.Equal(t, expected, written)
}

var errFlush = errors.New("flush failed")

// flakyFs creates files whose Close always fails
type flakyFs struct {
	afero.Fs
}

func (fs flakyFs) Create(name string) (afero.File, error) {
	f, err := fs.Fs.Create(name)
	if err != nil {
		return nil, err
	}
	return flakyFile{f}, nil
}

type flakyFile struct {
	afero.File
}

func (f flakyFile) Close() error {
	f.File.Close()
	return errFlush
}

func TestExportReportsCloseErrors(t *testing.T) {
	img := snapshottest.Image(t)
	foo, ok := img.FindClass("com.example.Foo")
	require.True(t, ok)

	path, err := classfile.Export(flakyFs{afero.NewMemMapFs()}, "out", foo)
	assert.ErrorIs(t, err, errFlush)
	assert.Empty(t, path)
}
