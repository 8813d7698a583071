package vm_test

import (
	"testing"

	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/Manu343726/vmlens/pkg/vm/snapshot"
	"github.com/Manu343726/vmlens/pkg/vm/snapshot/snapshottest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLadder(t *testing.T) {
	img := snapshottest.Image(t)

	tests := []struct {
		name string
		addr vm.Address
		kind vm.HandleKind
	}{
		{"nmethod instructions", snapshottest.NMethodBegin, vm.KindCodeBlob},
		{"nmethod header", snapshottest.NMethodHeader, vm.KindCodeBlob},
		{"interpreter codelet", 0xdeb00090, vm.KindCodelet},
		{"interpreter without codelet", snapshottest.InterpreterGap, vm.KindCodeBlob},
		{"runtime stub", snapshottest.StubBlob, vm.KindCodeBlob},
		{"unclaimed code cache", snapshottest.UnknownCode, vm.KindUnknownCode},
		{"method", snapshottest.FooBar, vm.KindMethod},
		{"class", snapshottest.FooClass, vm.KindClass},
		{"constant pool", snapshottest.FooPool, vm.KindConstantPool},
		{"raw", snapshottest.RawCode, vm.KindRawAddress},
		{"unmapped", 0x42, vm.KindRawAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle := vm.Resolve(img, tt.addr, nil)
			require.NotNil(t, handle)
			assert.Equal(t, tt.kind, handle.Kind())
		})
	}
}

func TestResolveNMethodOwner(t *testing.T) {
	img := snapshottest.Image(t)

	blob, ok := vm.Resolve(img, snapshottest.NMethodBegin, nil).(vm.CodeBlob)
	require.True(t, ok)
	assert.Equal(t, vm.BlobNMethod, blob.BlobKind())

	method, ok := blob.Method()
	require.True(t, ok)
	assert.Equal(t, "Foo.bar()V", vm.MethodDisplayName(method))

	codelet, ok := vm.Resolve(img, 0xdeb00090, nil).(vm.Codelet)
	require.True(t, ok)
	assert.Equal(t, "invokevirtual", codelet.Description())
}

type panickingTarget struct {
	*snapshot.Image
}

func (panickingTarget) MetadataAt(vm.Address) (vm.Handle, error) {
	panic("corrupt metadata")
}

func TestResolveSwallowsMetadataFailures(t *testing.T) {
	target := panickingTarget{Image: snapshottest.Image(t)}

	assert.NotPanics(t, func() {
		handle := vm.Resolve(target, snapshottest.FooBar, nil)
		assert.Equal(t, vm.KindRawAddress, handle.Kind())
	})

	// blobs are found before metadata is probed
	assert.Equal(t, vm.KindCodeBlob, vm.Resolve(target, snapshottest.NMethodBegin, nil).Kind())
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		text    string
		want    vm.Address
		wantErr bool
	}{
		{"0xdead0000", 0xdead0000, false},
		{"DEAD0000", 0xdead0000, false},
		{"  0x10 ", 0x10, false},
		{"0x", 0, true},
		{"zzz", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := vm.ParseAddress(tt.text)
			if tt.wantErr {
				assert.ErrorIs(t, err, vm.ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, vm.Address(0).Offset(int64(got)))
		})
	}
}

func TestFindMethodWalksSupers(t *testing.T) {
	img := snapshottest.Image(t)
	bar, ok := img.FindClass("com/example/Bar")
	require.True(t, ok)

	m, ok := vm.FindMethod(bar, "baz", "()V")
	require.True(t, ok)
	assert.Equal(t, "com/example/Foo", m.Holder().Name())

	_, ok = vm.FindMethod(bar, "nope", "()V")
	assert.False(t, ok)

	f, owner, ok := vm.FindField(bar, "count", "I")
	require.True(t, ok)
	assert.Equal(t, 12, f.Offset)
	assert.Equal(t, "com/example/Foo", owner.Name())
}

func TestSuperChainStopsAtCycles(t *testing.T) {
	model := snapshottest.Model()
	for i := range model.Classes {
		// Foo -> Object -> Foo
		if model.Classes[i].Address == snapshottest.ObjectClass {
			model.Classes[i].Super = snapshottest.FooClass
		}
	}
	img, err := snapshot.New(model)
	require.NoError(t, err)
	bar, ok := img.FindClass("com/example/Bar")
	require.True(t, ok)

	names := []string{}
	for _, c := range vm.SuperChain(bar) {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"com/example/Bar", "com/example/Foo", "java/lang/Object"}, names)

	_, ok = vm.FindMethod(bar, "nope", "()V")
	assert.False(t, ok)
	_, _, ok = vm.FindField(bar, "nope", "I")
	assert.False(t, ok)

	f, owner, ok := vm.FindField(bar, "count", "I")
	require.True(t, ok)
	assert.Equal(t, 12, f.Offset)
	assert.Equal(t, "com/example/Foo", owner.Name())
}

func TestLineNumber(t *testing.T) {
	img := snapshottest.Image(t)
	handle, err := img.MetadataAt(snapshottest.FooBar)
	require.NoError(t, err)
	bar := handle.(vm.Method)

	for bci, want := range map[int]int{0: 10, 11: 10, 12: 11, 33: 12} {
		line, ok := vm.LineNumber(bar, bci)
		require.True(t, ok)
		assert.Equal(t, want, line, "bci %d", bci)
	}

	name, ok := vm.LocalVariableName(bar, 5, 0)
	require.True(t, ok)
	assert.Equal(t, "this", name)
}
