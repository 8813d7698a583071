package snapshot_test

import (
	"strings"
	"testing"

	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/Manu343726/vmlens/pkg/vm/debuginfo"
	"github.com/Manu343726/vmlens/pkg/vm/snapshot"
	"github.com/Manu343726/vmlens/pkg/vm/snapshot/snapshottest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	img, err := snapshot.LoadFile(afero.NewOsFs(), "testdata/hello.yaml")
	require.NoError(t, err)

	class, ok := img.FindClass("demo.Hello")
	require.True(t, ok)
	assert.Equal(t, "demo/Hello", class.Name())
	assert.Equal(t, "Hello.java", class.SourceFile())

	super, ok := class.Super()
	require.True(t, ok)
	assert.Equal(t, "java/lang/Object", super.Name())

	methods := class.Methods()
	require.Len(t, methods, 1)
	assert.Equal(t, []byte{0x12, 0x01, 0xb0}, methods[0].Bytecode())

	blob, ok := methods[0].CompiledCode()
	require.True(t, ok)
	assert.Equal(t, vm.BlobNMethod, blob.BlobKind())

	chain, err := debuginfo.ChainAt(blob, blob.Begin(), 0x7f0000001004)
	require.NoError(t, err)
	require.NotNil(t, chain)
	assert.Equal(t, "greet", chain.Method.Name())
	assert.Nil(t, chain.Caller)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := snapshot.Load(strings.NewReader("code_cache: {begin: 1, end: 2}\nbogus: 1\n"))
	assert.ErrorIs(t, err, snapshot.ErrInvalidImage)
}

func TestNewRejectsDanglingReferences(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *snapshot.Model)
	}{
		{
			name:   "super",
			mutate: func(m *snapshot.Model) { m.Classes[1].Super = 0xbad },
		},
		{
			name:   "method holder",
			mutate: func(m *snapshot.Model) { m.Methods[0].Holder = 0xbad },
		},
		{
			name:   "class method",
			mutate: func(m *snapshot.Model) { m.Classes[1].Methods = append(m.Classes[1].Methods, 0xbad) },
		},
		{
			name:   "thread frame",
			mutate: func(m *snapshot.Model) { m.Threads[0].Frames[0].Method = 0xbad },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := snapshottest.Model()
			tt.mutate(model)
			_, err := snapshot.New(model)
			assert.ErrorIs(t, err, snapshot.ErrDanglingRef)
		})
	}
}

func TestConstantPoolDoubleSlots(t *testing.T) {
	img := snapshottest.Image(t)
	handle, err := img.MetadataAt(snapshottest.FooPool)
	require.NoError(t, err)
	cp := handle.(vm.ConstantPool)

	long, err := cp.At(11)
	require.NoError(t, err)
	assert.Equal(t, vm.TagLong, long.Tag)
	assert.Equal(t, int64(42), long.Int)

	_, err = cp.At(12)
	assert.ErrorIs(t, err, vm.ErrInvalidConstant)

	str, err := cp.At(13)
	require.NoError(t, err)
	assert.Equal(t, vm.TagString, str.Tag)
	assert.Equal(t, "world", str.Text)

	_, err = cp.At(0)
	assert.ErrorIs(t, err, vm.ErrInvalidIndex)
	_, err = cp.At(cp.Length())
	assert.ErrorIs(t, err, vm.ErrInvalidIndex)

	class, err := cp.At(2)
	require.NoError(t, err)
	assert.Equal(t, "com/example/Foo", class.Class.Name())
}

func TestSubclassTree(t *testing.T) {
	img := snapshottest.Image(t)
	foo, ok := img.FindClass("com/example/Foo")
	require.True(t, ok)

	first, ok := foo.Subklass()
	require.True(t, ok)
	assert.Equal(t, "com/example/Bar", first.Name())

	second, ok := first.NextSibling()
	require.True(t, ok)
	assert.Equal(t, "com/example/Baz", second.Name())

	_, ok = second.NextSibling()
	assert.False(t, ok)
}

func TestReadBytes(t *testing.T) {
	img := snapshottest.Image(t)

	code, err := img.ReadBytes(snapshottest.RawCode, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xb8, 0x2a, 0, 0, 0, 0xc3}, code)

	_, err = img.ReadBytes(0x10, 1)
	assert.ErrorIs(t, err, vm.ErrUnmappedMemory)

	_, err = img.ReadBytes(snapshottest.NMethodEnd-2, 4)
	assert.ErrorIs(t, err, vm.ErrUnmappedMemory)
}

func TestCodeletsAreOrdered(t *testing.T) {
	img := snapshottest.Image(t)
	codelets := img.Interpreter().Codelets()
	require.Len(t, codelets, 3)
	assert.Equal(t, "return entry points", codelets[0].Description())

	_, ok := codelets[0].Prev()
	assert.False(t, ok)
	next, ok := codelets[0].Next()
	require.True(t, ok)
	assert.Equal(t, "invokevirtual", next.Description())

	_, ok = img.Interpreter().CodeletContaining(snapshottest.InterpreterGap)
	assert.False(t, ok)
}

func TestReceiver(t *testing.T) {
	img := snapshottest.Image(t)
	frames := img.Threads()[0].Frames()

	oop, err := frames[0].Receiver()
	require.NoError(t, err)
	assert.Equal(t, vm.Address(0x7f000100), oop.Address)

	_, err = frames[1].Receiver()
	assert.ErrorIs(t, err, vm.ErrTypeMismatch)
}
