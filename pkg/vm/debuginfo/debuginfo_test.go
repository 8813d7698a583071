package debuginfo_test

import (
	"math"
	"testing"

	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/Manu343726/vmlens/pkg/vm/debuginfo"
	"github.com/Manu343726/vmlens/pkg/vm/snapshot/snapshottest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsigned5(t *testing.T) {
	unsigned := []uint32{0, 1, 191, 192, 255, 256, 12479, 12480, 1 << 20, math.MaxUint32}
	signed := []int32{0, -1, 1, -96, 96, math.MinInt32, math.MaxInt32}

	w := debuginfo.NewWriter()
	for _, v := range unsigned {
		w.Uint(v)
	}
	for _, v := range signed {
		w.Int(v)
	}

	assert.Equal(t, byte(0), w.Bytes()[0], "offset 0 is padding")

	r, err := debuginfo.NewReader(w.Bytes(), 1)
	require.NoError(t, err)
	for _, want := range unsigned {
		got, err := r.Uint()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for _, want := range signed {
		got, err := r.Int()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = r.Uint()
	assert.ErrorIs(t, err, debuginfo.ErrMalformedStream)
}

func TestSmallNumbersTakeOneByte(t *testing.T) {
	w := debuginfo.NewWriter()
	w.Uint(191)
	assert.Equal(t, 2, w.Position())
	w.Uint(192)
	assert.Equal(t, 4, w.Position())
}

func TestLocation(t *testing.T) {
	tests := []struct {
		loc  debuginfo.Location
		text string
	}{
		{debuginfo.Location{Where: debuginfo.OnStack, Type: debuginfo.LocOop, Offset: 8}, "stack[8],oop"},
		{debuginfo.Location{Where: debuginfo.InRegister, Type: debuginfo.LocInt, Offset: 3}, "reg rbx,int"},
		{debuginfo.Location{Where: debuginfo.OnStack, Type: debuginfo.LocNormal, Offset: 24}, "stack[24]"},
		{debuginfo.Location{Where: debuginfo.InRegister, Type: debuginfo.LocDouble, Offset: 17}, "reg xmm1,double"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.text, tt.loc.String())
			decoded, err := debuginfo.DecodeLocation(tt.loc.Encode())
			require.NoError(t, err)
			assert.Equal(t, tt.loc, decoded)
		})
	}

	_, err := debuginfo.DecodeLocation(0xf << 1)
	assert.ErrorIs(t, err, debuginfo.ErrMalformedStream)
}

func nmethod(t *testing.T) vm.CodeBlob {
	img := snapshottest.Image(t)
	blob, ok := img.FindBlob(snapshottest.NMethodBegin)
	require.True(t, ok)
	return blob
}

func TestChainAt(t *testing.T) {
	blob := nmethod(t)

	inner, err := debuginfo.ChainAt(blob, 0xdead000b, snapshottest.Safepoint)
	require.NoError(t, err)
	require.NotNil(t, inner)

	middle := inner.Caller
	require.NotNil(t, middle)
	outer := middle.Caller
	require.NotNil(t, outer)
	assert.Nil(t, outer.Caller)

	assert.Equal(t, "qux", inner.Method.Name())
	assert.Equal(t, "baz", middle.Method.Name())
	assert.Equal(t, "bar", outer.Method.Name())
	assert.Equal(t, []int{2, 1, 0}, []int{inner.Depth(), middle.Depth(), outer.Depth()})
	assert.Equal(t, 6, outer.BCI)

	line, ok := outer.Line()
	require.True(t, ok)
	assert.Equal(t, 10, line)

	require.Len(t, outer.Locals, 1)
	assert.Equal(t, "stack[8],oop", outer.Locals[0].String())
	require.Len(t, outer.Expressions, 1)
	assert.Equal(t, int64(7), outer.Expressions[0].Int)
	require.Len(t, outer.Monitors, 1)
	require.NotNil(t, outer.Monitors[0].Owner.Oop)
	assert.Equal(t, "java/lang/String", outer.Monitors[0].Owner.Oop.Klass.Name())
	assert.Equal(t, "stack[24]", outer.Monitors[0].Lock.String())

	require.Len(t, middle.Locals, 2)
	object := middle.Locals[1].Object
	require.NotNil(t, object)
	require.Len(t, inner.Locals, 1)
	assert.Same(t, object, inner.Locals[0].Object)
	assert.Equal(t, debuginfo.TagObjectRef, inner.Locals[0].Tag)

	require.Len(t, inner.Expressions, 1)
	assert.Equal(t, int64(1)<<40, inner.Expressions[0].Int)
}

func TestChainAtOutsideSafepoints(t *testing.T) {
	blob := nmethod(t)

	chain, err := debuginfo.ChainAt(blob, snapshottest.NMethodBegin, snapshottest.NMethodBegin+1)
	require.NoError(t, err)
	assert.Nil(t, chain)

	// the safepoint belongs to the instruction ending at it, not the one starting at it
	chain, err = debuginfo.ChainAt(blob, snapshottest.Safepoint, snapshottest.Safepoint+1)
	require.NoError(t, err)
	assert.Nil(t, chain)
}

func TestScalarReplaced(t *testing.T) {
	blob := nmethod(t)
	inner, err := debuginfo.ChainAt(blob, 0xdead000b, snapshottest.Safepoint)
	require.NoError(t, err)

	objects := debuginfo.ScalarReplaced(inner)
	require.Len(t, objects, 1)
	assert.Equal(t, 1, objects[0].ID)

	class, err := objects[0].Class()
	require.NoError(t, err)
	assert.Equal(t, "com/example/Point", class.Name())

	fields, err := objects[0].Fields()
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "x", fields[0].Field.Name)
	assert.Equal(t, int64(3), fields[0].Value.Int)
	assert.Equal(t, "y", fields[1].Field.Name)
	assert.Equal(t, int64(4), fields[1].Value.Int)
}

func TestObjectWithoutClass(t *testing.T) {
	object := &debuginfo.ObjectRecord{ID: 3, Klass: debuginfo.ScopeValue{Tag: debuginfo.TagOop}}
	_, err := object.Class()
	assert.ErrorIs(t, err, debuginfo.ErrMissingObjectClass)
	_, err = object.Fields()
	assert.ErrorIs(t, err, debuginfo.ErrMissingObjectClass)
}

func TestLongAndDoubleValues(t *testing.T) {
	w := debuginfo.NewWriter()
	offset := w.Position()
	w.Value(debuginfo.ValueSpec{Tag: debuginfo.TagLong, Int: -5_000_000_000})
	w.Value(debuginfo.ValueSpec{Tag: debuginfo.TagDouble, Double: -2.75})

	r, err := debuginfo.NewReader(w.Bytes(), offset)
	require.NoError(t, err)
	tag, err := r.Uint()
	require.NoError(t, err)
	assert.Equal(t, uint32(debuginfo.TagLong), tag)
	hi, err := r.Int()
	require.NoError(t, err)
	lo, err := r.Uint()
	require.NoError(t, err)
	assert.Equal(t, int64(-5_000_000_000), int64(hi)<<32|int64(lo))

	tag, err = r.Uint()
	require.NoError(t, err)
	assert.Equal(t, uint32(debuginfo.TagDouble), tag)
	hi, err = r.Int()
	require.NoError(t, err)
	lo, err = r.Uint()
	require.NoError(t, err)
	assert.Equal(t, -2.75, math.Float64frombits(uint64(int64(hi)<<32|int64(lo))))
}
