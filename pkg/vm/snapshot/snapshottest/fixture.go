// Package snapshottest provides a small but complete VM image for tests.
//
// The image holds a class Foo whose method bar is compiled into an nmethod
// starting at 0xdead0000. The nmethod has a single safepoint with a three
// level inlining chain bar -> baz -> qux and one scalar replaced Point.
package snapshottest

import (
	"strings"
	"testing"

	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/Manu343726/vmlens/pkg/vm/snapshot"
	"github.com/stretchr/testify/require"
)

const (
	ObjectClass vm.Address = 0x1000
	FooClass    vm.Address = 0x1100
	BarClass    vm.Address = 0x1200
	BazClass    vm.Address = 0x1300
	RunnableIfc vm.Address = 0x1400
	PointClass  vm.Address = 0x1500
	IntArray    vm.Address = 0x1600
	StringClass vm.Address = 0x1700

	ObjectInit vm.Address = 0x2000
	FooBar     vm.Address = 0x2100
	FooBaz     vm.Address = 0x2200
	FooQux     vm.Address = 0x2300
	FooMain    vm.Address = 0x2400

	FooPool vm.Address = 0x3000

	NMethodHeader vm.Address = 0xdeacffc0
	NMethodBegin  vm.Address = 0xdead0000
	NMethodEnd    vm.Address = 0xdead0020
	// Safepoint is the return address of the call in Foo.bar
	Safepoint vm.Address = 0xdead0010

	InterpreterBlob  vm.Address = 0xdeb00000
	InterpreterBegin vm.Address = 0xdeb00040
	InterpreterEnd   vm.Address = 0xdeb00100
	// InterpreterGap is inside the interpreter blob but outside every codelet
	InterpreterGap vm.Address = 0xdeb000f8

	StubBlob    vm.Address = 0xdec00000
	UnknownCode vm.Address = 0xdee00000

	RawCode vm.Address = 0x600000

	CodeCacheBegin vm.Address = 0xdea00000
	CodeCacheEnd   vm.Address = 0xdf000000
)

// BarBytecode is the classfile form of Foo.bar
const BarBytecode = "2a b4 0006 57" + // getfield Foo.count
	"2a b6 000a" + // invokevirtual Foo.baz
	"12 02 57" + // ldc Foo
	"bb 0002 57" + // new Foo
	"14 000b 58" + // ldc2_w 42
	"12 0d 57" + // ldc "world"
	"bb 000e 57" + // new com/example/Missing
	"ba 0014 0000 57" + // invokedynamic
	"b1"

// NMethodCode is the machine code of the Foo.bar nmethod
const NMethodCode = "55" + // push rbp
	"4889e5" + // mov rbp, rsp
	"4883ec20" + // sub rsp, 0x20
	"8b460c" + // mov eax, [rsi+0xc]
	"e8f0ffffff" + // call 0xdead0000
	"90" + // nop
	"4883c420" + // add rsp, 0x20
	"5d" + // pop rbp
	"c3" + // ret
	"909090909090909090"

func constant(tag string, c snapshot.ConstantModel) snapshot.ConstantModel {
	c.Tag = tag
	return c
}

// Model returns a fresh copy of the fixture image model
func Model() *snapshot.Model {
	return &snapshot.Model{
		CodeCache: snapshot.RangeModel{Begin: CodeCacheBegin, End: CodeCacheEnd},
		Segments: []snapshot.SegmentModel{
			{Base: NMethodBegin, Bytes: NMethodCode},
			{Base: InterpreterBegin, Bytes: strings.Repeat("90", int(InterpreterEnd-InterpreterBegin))},
			{Base: StubBlob, Bytes: "c3" + strings.Repeat("90", 15)},
			{Base: RawCode, Bytes: "b82a000000" + "c3" + strings.Repeat("90", 0x7a)},
		},
		Classes: []snapshot.ClassModel{
			{
				Address:      ObjectClass,
				Name:         "java/lang/Object",
				AccessFlags:  0x21,
				SourceFile:   "Object.java",
				Methods:      []vm.Address{ObjectInit},
				MajorVersion: 61,
			},
			{
				Address:          FooClass,
				Name:             "com/example/Foo",
				AccessFlags:      0x21,
				GenericSignature: "<T:Ljava/lang/Object;>Ljava/lang/Object;Ljava/lang/Runnable;",
				SourceFile:       "Foo.java",
				Super:            ObjectClass,
				Interfaces:       []vm.Address{RunnableIfc},
				Fields: []snapshot.FieldModel{
					{Name: "count", Signature: "I", AccessFlags: 0x2, Offset: 12},
					{Name: "INSTANCE", Signature: "Lcom/example/Foo;", AccessFlags: 0x19, Offset: 112},
					{Name: "name", Signature: "Ljava/lang/String;", AccessFlags: 0x0, Offset: 16},
				},
				Methods:      []vm.Address{FooBar, FooBaz, FooQux, FooMain},
				ConstantPool: FooPool,
				MajorVersion: 61,
			},
			{Address: BarClass, Name: "com/example/Bar", AccessFlags: 0x21, Super: FooClass},
			{Address: BazClass, Name: "com/example/Baz", AccessFlags: 0x31, Super: FooClass},
			{Address: RunnableIfc, Name: "java/lang/Runnable", AccessFlags: 0x601, Super: ObjectClass},
			{
				Address:     PointClass,
				Name:        "com/example/Point",
				AccessFlags: 0x31,
				Super:       ObjectClass,
				Fields: []snapshot.FieldModel{
					{Name: "ORIGIN", Signature: "Lcom/example/Point;", AccessFlags: 0x19, Offset: 112},
					{Name: "x", Signature: "I", AccessFlags: 0x12, Offset: 12},
					{Name: "y", Signature: "I", AccessFlags: 0x12, Offset: 16},
				},
			},
			{
				Address:     IntArray,
				Name:        "[I",
				AccessFlags: 0x411,
				Super:       ObjectClass,
				Array:       &snapshot.ArrayModel{Element: "int", Dimensions: 1},
			},
			{Address: StringClass, Name: "java/lang/String", AccessFlags: 0x31, Super: ObjectClass},
		},
		Methods: []snapshot.MethodModel{
			{
				Address:   ObjectInit,
				Holder:    ObjectClass,
				Name:      "<init>",
				Signature: "()V",
				Bytecode:  "b1",
				MaxLocals: 1,
			},
			{
				Address:     FooBar,
				Holder:      FooClass,
				Name:        "bar",
				Signature:   "()V",
				AccessFlags: 0x1,
				Bytecode:    BarBytecode,
				MaxStack:    2,
				MaxLocals:   1,
				Code:        NMethodHeader,
				ExceptionTable: []snapshot.ExceptionModel{
					{Start: 0, End: 20, Handler: 33, CatchType: 0},
					{Start: 0, End: 12, Handler: 33, CatchType: 2},
				},
				LineNumbers: []snapshot.LineModel{{BCI: 0, Line: 10}, {BCI: 12, Line: 11}, {BCI: 27, Line: 12}},
				Locals: []snapshot.LocalModel{
					{Start: 0, Length: 34, Slot: 0, Name: "this", Signature: "Lcom/example/Foo;"},
				},
			},
			{
				Address:     FooBaz,
				Holder:      FooClass,
				Name:        "baz",
				Signature:   "()V",
				AccessFlags: 0x1,
				Bytecode:    "b1",
				MaxLocals:   2,
				LineNumbers: []snapshot.LineModel{{BCI: 0, Line: 20}},
				Locals: []snapshot.LocalModel{
					{Start: 0, Length: 1, Slot: 0, Name: "this", Signature: "Lcom/example/Foo;"},
					{Start: 0, Length: 1, Slot: 1, Name: "p", Signature: "Lcom/example/Point;"},
				},
			},
			{
				Address:     FooQux,
				Holder:      FooClass,
				Name:        "qux",
				Signature:   "()I",
				AccessFlags: 0x2,
				Bytecode:    "03ac",
				MaxStack:    1,
				MaxLocals:   1,
				LineNumbers: []snapshot.LineModel{{BCI: 0, Line: 30}},
			},
			{
				Address:     FooMain,
				Holder:      FooClass,
				Name:        "main",
				Signature:   "([Ljava/lang/String;)V",
				AccessFlags: 0x9,
				Bytecode:    "b1",
				MaxLocals:   1,
				LineNumbers: []snapshot.LineModel{{BCI: 0, Line: 40}},
			},
		},
		ConstantPools: []snapshot.ConstantPoolModel{
			{
				Address: FooPool,
				Holder:  FooClass,
				Entries: []snapshot.ConstantModel{
					constant("Utf8", snapshot.ConstantModel{Text: "com/example/Foo"}),                // 1
					constant("Class", snapshot.ConstantModel{Class: FooClass}),                       // 2
					constant("Utf8", snapshot.ConstantModel{Text: "count"}),                          // 3
					constant("Utf8", snapshot.ConstantModel{Text: "I"}),                              // 4
					constant("NameAndType", snapshot.ConstantModel{Index1: 3, Index2: 4}),            // 5
					constant("Fieldref", snapshot.ConstantModel{Index1: 2, Index2: 5}),               // 6
					constant("Utf8", snapshot.ConstantModel{Text: "baz"}),                            // 7
					constant("Utf8", snapshot.ConstantModel{Text: "()V"}),                            // 8
					constant("NameAndType", snapshot.ConstantModel{Index1: 7, Index2: 8}),            // 9
					constant("Methodref", snapshot.ConstantModel{Index1: 2, Index2: 9}),              // 10
					constant("Long", snapshot.ConstantModel{Int: 42}),                                // 11, 12
					constant("String", snapshot.ConstantModel{Text: "world"}),                        // 13
					constant("UnresolvedClass", snapshot.ConstantModel{Text: "com/example/Missing"}), // 14
					constant("Utf8", snapshot.ConstantModel{Text: "java/lang/Object"}),               // 15
					constant("Class", snapshot.ConstantModel{Class: ObjectClass}),                    // 16
					constant("Utf8", snapshot.ConstantModel{Text: "run"}),                            // 17
					constant("Double", snapshot.ConstantModel{Float: 2.5}),                           // 18, 19
					constant("InvokeDynamic", snapshot.ConstantModel{Index1: 0, Index2: 21}),         // 20
					constant("NameAndType", snapshot.ConstantModel{Index1: 17, Index2: 8}),           // 21
					constant("Utf8", snapshot.ConstantModel{Text: "Foo.java"}),                       // 22
				},
			},
		},
		Blobs: []snapshot.BlobModel{
			{
				Address: NMethodHeader,
				Name:    "nmethod",
				Kind:    "nmethod",
				Begin:   NMethodBegin,
				End:     NMethodEnd,
				Method:  FooBar,
				Markers: snapshot.MarkersModel{
					Entry:            NMethodBegin,
					VerifiedEntry:    NMethodBegin,
					ExceptionHandler: 0xdead0017,
					DeoptHandler:     0xdead001b,
				},
				Metadata: []vm.Address{FooBar, FooBaz, FooQux},
				Oops: []snapshot.OopModel{
					{Address: 0x7f000010, Mirror: PointClass},
					{Address: 0x7f000020, Klass: StringClass},
				},
				Safepoints: []snapshot.SafepointModel{
					{
						PC: Safepoint,
						Scopes: []snapshot.ScopeModel{
							{
								Method:      1,
								BCI:         6,
								Locals:      []snapshot.ValueModel{{Kind: "stack", Type: "oop", Offset: 8}},
								Expressions: []snapshot.ValueModel{{Kind: "int", Value: 7}},
								Monitors: []snapshot.MonitorModel{{
									Owner: snapshot.ValueModel{Kind: "oop", Oop: 2},
									Lock:  snapshot.ValueModel{Kind: "stack", Offset: 24},
								}},
							},
							{
								Method: 2,
								BCI:    0,
								Locals: []snapshot.ValueModel{
									{Kind: "reg", Type: "oop", Offset: 3},
									{Kind: "object", ID: 1, Klass: 1, Fields: []snapshot.ValueModel{
										{Kind: "int", Value: 3},
										{Kind: "int", Value: 4},
									}},
								},
							},
							{
								Method:      3,
								BCI:         1,
								Locals:      []snapshot.ValueModel{{Kind: "object_ref", ID: 1}},
								Expressions: []snapshot.ValueModel{{Kind: "long", Value: 1 << 40}},
							},
						},
					},
				},
				OopMaps: []snapshot.OopMapModel{
					{PC: Safepoint, Slots: []snapshot.OopMapSlotModel{
						{Kind: "oop", Register: "rbx"},
						{Kind: "narrowoop", Stack: 16},
					}},
				},
			},
			{
				Address: InterpreterBlob,
				Name:    "Interpreter",
				Kind:    "interpreter",
				Begin:   InterpreterBegin,
				End:     InterpreterEnd,
			},
			{
				Address: StubBlob,
				Name:    "StubRoutines (1)",
				Kind:    "stub",
				Begin:   StubBlob,
				End:     StubBlob + 0x10,
			},
		},
		Codelets: []snapshot.CodeletModel{
			{Begin: 0xdeb00080, End: 0xdeb000c0, Description: "invokevirtual", Bytecode: "invokevirtual"},
			{Begin: InterpreterBegin, End: 0xdeb00080, Description: "return entry points"},
			{Begin: 0xdeb000c0, End: 0xdeb000f0, Description: "method entry point (kind = zerolocals)"},
		},
		Threads: []snapshot.ThreadModel{
			{
				Name: "main",
				ID:   1,
				Frames: []snapshot.FrameModel{
					{Method: FooQux, BCI: 1, PC: Safepoint, Kind: "compiled", Receiver: 0x7f000100, ReceiverKlass: FooClass},
					{Method: FooBar, BCI: 6, PC: 0xdeb00090, Kind: "interpreted"},
					{Method: FooMain, BCI: 0, PC: 0xdeb000d0, Kind: "interpreted"},
				},
			},
		},
	}
}

// Image loads the fixture model, failing the test on error
func Image(t testing.TB) *snapshot.Image {
	t.Helper()
	img, err := snapshot.New(Model())
	require.NoError(t, err)
	return img
}
