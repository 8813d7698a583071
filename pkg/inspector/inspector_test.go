package inspector_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/inspector"
	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/Manu343726/vmlens/pkg/vm/snapshot"
	"github.com/Manu343726/vmlens/pkg/vm/snapshot/snapshottest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInspector(t *testing.T, target vm.Target) (*inspector.Inspector, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return inspector.New(target, inspector.Options{
		Style:      document.StylePlain,
		Fs:         fs,
		ExportRoot: "out",
	}), fs
}

func metadata[T vm.Handle](t *testing.T, target vm.Target, addr vm.Address) T {
	t.Helper()
	h, err := target.MetadataAt(addr)
	require.NoError(t, err)
	v, ok := h.(T)
	require.True(t, ok, "%v is a %v", addr, h.Kind())
	return v
}

func findLink(t *testing.T, doc document.Document, label string) string {
	t.Helper()
	for _, l := range doc.Links {
		if l.Label == label {
			return l.Ref
		}
	}
	require.Failf(t, "missing link", "no link labeled '%s' in %s", label, doc.Title)
	return ""
}

func hasRef(doc document.Document, ref string) bool {
	for _, l := range doc.Links {
		if l.Ref == ref {
			return true
		}
	}
	return false
}

// recoverInternal runs f and returns the internal error it panicked with
func recoverInternal(f func()) (err *inspector.InternalError) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(*inspector.InternalError)
		}
	}()
	f()
	return nil
}

func TestCompiledMethodLinksToItsMethod(t *testing.T) {
	in, _ := newInspector(t, snapshottest.Image(t))

	doc := in.RenderAddress(snapshottest.NMethodBegin)
	assert.Equal(t, "Compiled code for Foo.bar()V", doc.Title)
	require.True(t, hasRef(doc, "method=0x2100"), "links: %v", doc.Links)

	method := in.Dispatch("method=0x2100")
	assert.Contains(t, method.Title, "Foo.bar")
	assert.True(t, hasRef(method, "nmethod=0xdeacffc0"))
}

func TestRenderAddressFollowsTheResolver(t *testing.T) {
	in, _ := newInspector(t, snapshottest.Image(t))

	tests := []struct {
		name  string
		addr  vm.Address
		title string
	}{
		{"nmethod", snapshottest.Safepoint, "Compiled code for Foo.bar()V"},
		{"codelet", 0xdeb00090, "Interpreter codelet invokevirtual"},
		{"interpreter gap", snapshottest.InterpreterGap, "Code blob Interpreter"},
		{"stub", snapshottest.StubBlob, "Code blob StubRoutines (1)"},
		{"unknown code", snapshottest.UnknownCode, "Code cache location 0xdee00000"},
		{"method", snapshottest.FooBaz, "Method Foo.baz()V"},
		{"class", snapshottest.FooClass, "Class com.example.Foo"},
		{"constant pool", snapshottest.FooPool, "Constant pool of com.example.Foo"},
		{"raw", snapshottest.RawCode, "Disassembly at 0x600000"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.title, in.RenderAddress(test.addr).Title)
		})
	}
}

func TestRenderMethod(t *testing.T) {
	img := snapshottest.Image(t)
	in, _ := newInspector(t, img)

	doc := in.RenderMethod(metadata[vm.Method](t, img, snapshottest.FooBar))

	assert.Equal(t, "Method Foo.bar()V", doc.Title)
	assert.Contains(t, doc.Body, "Max stack: 2\n")
	assert.Contains(t, doc.Body, "1\t\tgetfield #6 // com.example.Foo [klass=0x1100].count:I\n")
	assert.Contains(t, doc.Body, "6\t\tinvokevirtual #10 // com.example.Foo.baz()V [method=0x2200]\n")
	assert.Contains(t, doc.Body, "9\t\tldc #2 // com.example.Foo [klass=0x1100]\n")
	assert.Contains(t, doc.Body, "16\t\tldc2_w #11 // 42\n")
	assert.Contains(t, doc.Body, "23\t\tnew #14 // com.example.Missing\n")
	assert.Contains(t, doc.Body, "12\tline 11\tnew #2 // com.example.Foo [klass=0x1100]\n")

	// invokedynamic has no target to link
	assert.Contains(t, doc.Body, "27\tline 12\tinvokedynamic #20 // run()V\n")

	assert.Contains(t, doc.Body, "0\t20\t33\tany\n")
	assert.Contains(t, doc.Body, "0\t12\t33\tcom.example.Foo [klass=0x1100]\n")
}

func TestRenderMethodReportsIllegalBytecodeInline(t *testing.T) {
	model := snapshottest.Model()
	for i := range model.Methods {
		if model.Methods[i].Address == snapshottest.FooQux {
			model.Methods[i].Bytecode = "03 ff ac"
		}
	}
	img, err := snapshot.New(model)
	require.NoError(t, err)
	in, _ := newInspector(t, img)

	doc := in.RenderMethod(metadata[vm.Method](t, img, snapshottest.FooQux))

	assert.Equal(t, "Method Foo.qux()I", doc.Title)
	assert.Contains(t, doc.Body, "0\tline 30\ticonst_0\n")
	assert.Contains(t, doc.Body, "<error: ")
	assert.NotContains(t, doc.Body, "ireturn")
}

func TestRenderConstantPoolSkipsSecondSlots(t *testing.T) {
	const (
		smallClass vm.Address = 0x1800
		smallPool  vm.Address = 0x3100
	)
	model := snapshottest.Model()
	model.Classes = append(model.Classes, snapshot.ClassModel{
		Address:      smallClass,
		Name:         "demo/Small",
		Super:        snapshottest.ObjectClass,
		ConstantPool: smallPool,
	})
	model.ConstantPools = append(model.ConstantPools, snapshot.ConstantPoolModel{
		Address: smallPool,
		Holder:  smallClass,
		Entries: []snapshot.ConstantModel{
			{Tag: "Utf8", Text: "hello"},
			{Tag: "Long", Int: 42},
			{Tag: "String", Text: "world"},
		},
	})
	img, err := snapshot.New(model)
	require.NoError(t, err)
	in, _ := newInspector(t, img)

	doc := in.RenderConstantPool(metadata[vm.ConstantPool](t, img, smallPool))

	rows := []string{}
	for _, line := range strings.Split(doc.Body, "\n") {
		if strings.Contains(line, "\tJVM_CONSTANT_") {
			rows = append(rows, line)
		}
	}
	assert.Equal(t, []string{
		"1\tJVM_CONSTANT_Utf8\t\"hello\"",
		"2\tJVM_CONSTANT_Long\t42",
		"4\tJVM_CONSTANT_String\t\"world\"",
	}, rows)
}

// brokenEntryPool fails to decode one of its entries
type brokenEntryPool struct {
	vm.ConstantPool
	broken int
}

func (cp brokenEntryPool) At(index int) (vm.Constant, error) {
	if index == cp.broken {
		return vm.Constant{}, errors.New("unreadable entry")
	}
	return cp.ConstantPool.At(index)
}

func TestRenderConstantPoolSkipsSecondSlotOfBrokenEntry(t *testing.T) {
	img := snapshottest.Image(t)
	in, _ := newInspector(t, img)

	pool := brokenEntryPool{
		ConstantPool: metadata[vm.ConstantPool](t, img, snapshottest.FooPool),
		broken:       11,
	}
	doc := in.RenderConstantPool(pool)

	assert.Contains(t, doc.Body, "11\tJVM_CONSTANT_Long\t<error: unreadable entry>\n")
	assert.NotContains(t, doc.Body, "\n12\t")
	assert.Contains(t, doc.Body, "13\tJVM_CONSTANT_String\t\"world\"\n")
}

func TestRenderConstantPoolResolvesReferences(t *testing.T) {
	img := snapshottest.Image(t)
	in, _ := newInspector(t, img)

	doc := in.RenderConstantPool(metadata[vm.ConstantPool](t, img, snapshottest.FooPool))

	assert.Contains(t, doc.Body, "2\tJVM_CONSTANT_Class\tcom.example.Foo [klass=0x1100]\n")
	assert.Contains(t, doc.Body, "6\tJVM_CONSTANT_Fieldref\t#2.#5 // com.example.Foo [klass=0x1100].count:I\n")
	assert.Contains(t, doc.Body, "10\tJVM_CONSTANT_Methodref\t#2.#9 // com.example.Foo.baz()V [method=0x2200]\n")
	assert.Contains(t, doc.Body, "14\tJVM_CONSTANT_UnresolvedClass\tcom.example.Missing\n")
	assert.Contains(t, doc.Body, "18\tJVM_CONSTANT_Double\t2.5\n")
	assert.NotContains(t, doc.Body, "\n12\t")
	assert.NotContains(t, doc.Body, "\n19\t")
}

func TestScopeChainRendersOutermostFirst(t *testing.T) {
	img := snapshottest.Image(t)
	in, _ := newInspector(t, img)

	blob, ok := img.FindBlob(snapshottest.NMethodBegin)
	require.True(t, ok)
	body := in.RenderCompiledMethod(blob).Body

	frames := []string{
		"  - Foo.bar()V [method=0x2100] @bci 6 (line 10)\n",
		"    - Foo.baz()V [method=0x2200] @bci 0 (line 20)\n",
		"      - Foo.qux()I [method=0x2300] @bci 1 (line 30)\n",
	}
	positions := []int{}
	for _, frame := range frames {
		position := strings.Index(body, frame)
		require.GreaterOrEqual(t, position, 0, "missing frame %q in\n%s", frame, body)
		positions = append(positions, position)
	}
	assert.Less(t, positions[0], positions[1])
	assert.Less(t, positions[1], positions[2])

	objects := strings.Index(body, "Scalar replaced objects")
	require.GreaterOrEqual(t, objects, 0)
	assert.Greater(t, objects, positions[2])

	assert.Contains(t, body, "    this = stack[8],oop\n")
	assert.Contains(t, body, "    expr[0] = 7\n")
	assert.Contains(t, body, "    monitor[0] owner = 0x7f000020 (java.lang.String [klass=0x1700]), lock = stack[24]\n")
	assert.Contains(t, body, "      p = ScObj0\n")
	assert.Contains(t, body, "        local[0] = ScObj0\n")
	assert.Contains(t, body, "        expr[0] = 1099511627776\n")
	assert.Contains(t, body, "    ScObj0 com.example.Point [klass=0x1500] = { x=3, y=4 }\n")
	assert.Contains(t, body, "  OopMap{rbx=Oop, [16]=NarrowOop}\n")
}

func TestCompiledMethodMarkersAndCallTargets(t *testing.T) {
	img := snapshottest.Image(t)
	in, _ := newInspector(t, img)

	doc := in.RenderAddress(snapshottest.NMethodBegin)

	assert.Contains(t, doc.Body, "[Entry Point]\n[Verified Entry Point]\n0xdead0000: push")
	assert.Contains(t, doc.Body, "[Exception Handler]\n0xdead0017: ")
	assert.Contains(t, doc.Body, "call 0xdead0000 [pc=0xdead0000]")
	assert.Contains(t, doc.Body, "Deopt handler: 0xdead001b [pc=0xdead001b]\n")
}

func TestRenderCodelet(t *testing.T) {
	in, _ := newInspector(t, snapshottest.Image(t))

	doc := in.RenderAddress(0xdeb00090)

	assert.Equal(t, "Interpreter codelet invokevirtual", doc.Title)
	assert.Equal(t, "pc=0xdeb00040", findLink(t, doc, "return entry points"))
	assert.Equal(t, "pc=0xdeb000c0", findLink(t, doc, "method entry point (kind = zerolocals)"))
	assert.Equal(t, "interp_codelets", findLink(t, doc, "All interpreter codelets"))

	index := in.Dispatch("interp_codelets")
	assert.Equal(t, "Interpreter codelets", index.Title)
	require.Len(t, index.Links, 3)
	assert.Equal(t, "pc=0xdeb00040", index.Links[0].Ref)
	assert.Equal(t, "pc=0xdeb00080", index.Links[1].Ref)
	assert.Equal(t, "pc=0xdeb000c0", index.Links[2].Ref)
}

func TestRenderHierarchy(t *testing.T) {
	img := snapshottest.Image(t)
	in, _ := newInspector(t, img)

	doc := in.RenderHierarchy(metadata[vm.Class](t, img, snapshottest.FooClass))

	assert.Equal(t, "Class hierarchy of com.example.Foo", doc.Title)
	assert.True(t, strings.HasPrefix(doc.Body,
		"java.lang.Object [klass=0x1000]\n  com.example.Foo [klass=0x1100]\nDirect subclasses\n"), doc.Body)
	assert.Contains(t, doc.Body, "  com.example.Bar [klass=0x1200]\n  com.example.Baz [klass=0x1300]\n")
}

func TestHierarchyGraph(t *testing.T) {
	img := snapshottest.Image(t)

	g := inspector.HierarchyGraph(metadata[vm.Class](t, img, snapshottest.FooClass))

	assert.ElementsMatch(t, []string{"com.example.Foo", "com.example.Bar", "com.example.Baz"}, g.Nodes)
	require.Len(t, g.Edges, 2)
	for _, e := range g.Edges {
		assert.Equal(t, "com.example.Foo", e.Caller)
	}

	dot := inspector.HierarchyDOT(metadata[vm.Class](t, img, snapshottest.FooClass))
	assert.Contains(t, dot, "com.example.Bar")
}

func TestRenderJavaStackTrace(t *testing.T) {
	img := snapshottest.Image(t)
	in, _ := newInspector(t, img)

	threads := img.Threads()
	require.Len(t, threads, 1)
	doc := in.RenderJavaStackTrace(threads[0])

	assert.Equal(t, "Java stack trace of thread main", doc.Title)
	assert.Equal(t, ""+
		"- Foo.qux()I [method=0x2300] @bci 1 (line 30), pc = 0xdead0010 [pc=0xdead0010] (compiled)\n"+
		"  receiver = 0x7f000100 (com.example.Foo [klass=0x1100])\n"+
		"- Foo.bar()V [method=0x2100] @bci 6 (line 10), pc = 0xdeb00090 [pc=0xdeb00090] (interpreted)\n"+
		"- Foo.main([Ljava/lang/String;)V [method=0x2400] @bci 0 (line 40), pc = 0xdeb000d0 [pc=0xdeb000d0] (interpreted)\n",
		doc.Body)

	all := in.RenderAllStackTraces()
	assert.Contains(t, all.Body, "Thread main (id 1)\n")
}

func TestPaginationGrowsTheShownList(t *testing.T) {
	img := snapshottest.Image(t)
	in := inspector.New(img, inspector.Options{PageSize: 16})

	doc := in.RenderAddress(snapshottest.RawCode)
	assert.Equal(t, "pc_multiple=0x600010,0x600000", findLink(t, doc, "Show more code"))

	shown := []string{}
	for page := 1; page <= 4; page++ {
		ref := findLink(t, doc, "Show more code")
		_, payload, _ := strings.Cut(ref, "=")
		addresses := strings.Split(payload, ",")

		history := addresses[1:]
		require.Len(t, history, page)
		assert.Equal(t, shown, history[:len(shown)], "previously shown pages must keep their order")
		shown = history

		doc = in.Dispatch(ref)
		assert.Equal(t, "Disassembly at "+addresses[0], doc.Title)
	}

	back := findLink(t, doc, "Show previous code")
	assert.Equal(t, "pc_multiple=0x600030,0x600000,0x600010,0x600020", back)
	assert.Equal(t, "Disassembly at 0x600030", in.Dispatch(back).Title)
}

func TestRawDisassemblyStopsAtUnmappedMemory(t *testing.T) {
	in, _ := newInspector(t, snapshottest.Image(t))

	doc := in.RenderRawRange(0x10, 0x20, nil)

	assert.Equal(t, "Disassembly at 0x10", doc.Title)
	assert.Contains(t, doc.Body, "<disassembly stopped at 0x10: ")
	assert.Empty(t, doc.Links)
}

func TestExportClass(t *testing.T) {
	img := snapshottest.Image(t)
	in, fs := newInspector(t, img)

	doc := in.Dispatch("jcore=0x1100")
	assert.Equal(t, "Export com.example.Foo", doc.Title)

	exists, err := afero.Exists(fs, "out/com/example/Foo.class")
	require.NoError(t, err)
	assert.True(t, exists)

	array := in.ExportClass(metadata[vm.Class](t, img, snapshottest.IntArray))
	assert.Equal(t, "Error", array.Title)
	assert.Contains(t, array.Body, "not an instance class")
}

func TestExportClassesContinuesPastFailures(t *testing.T) {
	img := snapshottest.Image(t)
	in, fs := newInspector(t, img)

	doc := in.ExportClasses([]vm.Class{
		metadata[vm.Class](t, img, snapshottest.FooClass),
		metadata[vm.Class](t, img, snapshottest.BarClass),
	})

	assert.Equal(t, "Export 2 classes", doc.Title)
	assert.Contains(t, doc.Body, "Wrote com.example.Foo [klass=0x1100] to out/com/example/Foo.class\n")
	assert.Contains(t, doc.Body, "Failed to export com.example.Bar [klass=0x1200]: class has no constant pool: com/example/Bar\n")
	assert.Contains(t, doc.Body, "1 exported, 1 failed")

	exists, err := afero.Exists(fs, "out/com/example/Foo.class")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBatchExportReportsUnresolvedAddresses(t *testing.T) {
	img := snapshottest.Image(t)
	in, fs := newInspector(t, img)

	doc := in.Dispatch("jcore_multiple=0x1100,0x42")

	assert.Equal(t, "Export 2 classes", doc.Title)
	assert.Contains(t, doc.Body, "Wrote com.example.Foo [klass=0x1100] to out/com/example/Foo.class\n")
	assert.Contains(t, doc.Body, "Failed to export 0x42: address does not hold metadata: 0x42\n")
	assert.Contains(t, doc.Body, "1 exported, 1 failed")

	exists, err := afero.Exists(fs, "out/com/example/Foo.class")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEveryEmittedLinkDispatches(t *testing.T) {
	img := snapshottest.Image(t)
	in, _ := newInspector(t, img)

	docs := []document.Document{
		in.RenderAddress(snapshottest.NMethodBegin),
		in.RenderAddress(snapshottest.FooBar),
		in.RenderAddress(snapshottest.FooClass),
		in.RenderAddress(snapshottest.FooPool),
		in.RenderAddress(0xdeb00090),
		in.RenderAddress(snapshottest.RawCode),
		in.RenderClassList(),
		in.RenderAllStackTraces(),
		in.Dispatch("hierarchy=0x1100"),
	}

	kinds := map[string]bool{}
	for _, doc := range docs {
		for _, l := range doc.Links {
			kind, _, _ := strings.Cut(l.Ref, "=")
			kinds[kind] = true

			t.Run(l.Ref, func(t *testing.T) {
				target := in.Dispatch(l.Ref)
				assert.NotEqual(t, "Error", target.Title, target.Body)
			})
		}
	}

	assert.Equal(t, map[string]bool{
		"klass": true, "method": true, "nmethod": true, "pc": true, "pc_multiple": true,
		"hierarchy": true, "cpool": true, "jcore": true, "jcore_multiple": true, "interp_codelets": true,
	}, kinds)
}

func TestDispatchReproducesTheRenderedDocument(t *testing.T) {
	img := snapshottest.Image(t)
	in, _ := newInspector(t, img)
	foo := metadata[vm.Class](t, img, snapshottest.FooClass)
	bar := metadata[vm.Method](t, img, snapshottest.FooBar)
	pool := metadata[vm.ConstantPool](t, img, snapshottest.FooPool)

	assert.Equal(t, in.RenderClass(foo), in.Dispatch("klass=0x1100"))
	assert.Equal(t, in.RenderMethod(bar), in.Dispatch("method=0x2100"))
	assert.Equal(t, in.RenderConstantPool(pool), in.Dispatch("cpool=0x3000"))
	assert.Equal(t, in.RenderHierarchy(foo), in.Dispatch("hierarchy=0x1100"))
	assert.Equal(t, in.RenderAddress(snapshottest.Safepoint), in.Dispatch("pc=0xdead0010"))
}

func TestDispatchInternalErrors(t *testing.T) {
	in, _ := newInspector(t, snapshottest.Image(t))

	tests := []struct {
		name string
		ref  string
	}{
		{"unknown kind", "frobnicate=0x1100"},
		{"class payload holding a method", "klass=0x2100"},
		{"method payload holding a class", "method=0x1100"},
		{"constant pool payload holding a class", "cpool=0x1100"},
		{"nmethod payload holding a stub", "nmethod=0xdec00000"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := recoverInternal(func() { in.Dispatch(test.ref) })
			assert.NotNil(t, err)
		})
	}
}

func TestDispatchMalformedPayload(t *testing.T) {
	in, _ := newInspector(t, snapshottest.Image(t))

	for _, ref := range []string{"klass", "klass=zz", "pc=0x1,0x2", "klass=0x42"} {
		t.Run(ref, func(t *testing.T) {
			assert.Equal(t, "Error", in.Dispatch(ref).Title)
		})
	}
}

func TestMissingScalarReplacedClassIsInternal(t *testing.T) {
	model := snapshottest.Model()
	// the String oop is an instance, not a class mirror
	model.Blobs[0].Safepoints[0].Scopes[1].Locals[1].Klass = 2
	img, err := snapshot.New(model)
	require.NoError(t, err)
	in, _ := newInspector(t, img)

	internal := recoverInternal(func() { in.RenderAddress(snapshottest.NMethodBegin) })
	require.NotNil(t, internal)
	assert.Contains(t, internal.Error(), "no class")
}

func TestScalarReplacedArray(t *testing.T) {
	model := snapshottest.Model()
	blob := &model.Blobs[0]
	blob.Oops = append(blob.Oops, snapshot.OopModel{Address: 0x7f000030, Mirror: snapshottest.IntArray})
	blob.Safepoints[0].Objects = []snapshot.ValueModel{
		{Kind: "object", ID: 2, Klass: 3, Fields: []snapshot.ValueModel{
			{Kind: "int", Value: 5},
			{Kind: "int", Value: 6},
			{Kind: "int", Value: 7},
		}},
	}
	img, err := snapshot.New(model)
	require.NoError(t, err)
	in, _ := newInspector(t, img)

	body := in.RenderAddress(snapshottest.NMethodBegin).Body
	assert.Contains(t, body, "    ScObj0 [I [klass=0x1600] element type int, dimensions 1, length 3 = { 5, 6, 7 }\n")
	assert.Contains(t, body, "    ScObj1 com.example.Point [klass=0x1500] = { x=3, y=4 }\n")
	assert.Contains(t, body, "      p = ScObj1\n")
}

func TestCyclicSuperChainTerminates(t *testing.T) {
	model := snapshottest.Model()
	for i := range model.Classes {
		if model.Classes[i].Address == snapshottest.BarClass {
			model.Classes[i].Super = snapshottest.BarClass
		}
	}
	img, err := snapshot.New(model)
	require.NoError(t, err)
	in, _ := newInspector(t, img)
	bar := metadata[vm.Class](t, img, snapshottest.BarClass)

	done := make(chan document.Document)
	go func() { done <- in.RenderHierarchy(bar) }()

	select {
	case doc := <-done:
		assert.Equal(t, "com.example.Bar [klass=0x1200]\n", strings.SplitAfter(doc.Body, "\n")[0])
	case <-time.After(5 * time.Second):
		t.Fatal("hierarchy of a class that is its own super did not terminate")
	}
}

type failingTarget struct {
	*snapshot.Image
}

func (failingTarget) Classes() []vm.Class {
	panic(errors.New("target went away"))
}

func TestFailuresBecomeErrorDocuments(t *testing.T) {
	in, _ := newInspector(t, failingTarget{snapshottest.Image(t)})

	doc := in.RenderClassList()
	assert.Equal(t, "Error", doc.Title)
	assert.Equal(t, "*errors.errorString: target went away\n", doc.Body)

	bad := in.RenderAddressText("not an address")
	assert.Equal(t, "Error", bad.Title)
	assert.Contains(t, bad.Body, "invalid address")
}

func TestMarkupDocuments(t *testing.T) {
	img := snapshottest.Image(t)
	in := inspector.New(img, inspector.Options{Style: document.StyleMarkup})

	doc := in.RenderHierarchy(metadata[vm.Class](t, img, snapshottest.FooClass))

	assert.Contains(t, doc.Body, `<a href="klass=0x1000">java.lang.Object</a><br>`)
	assert.Contains(t, doc.Body, `&nbsp;&nbsp;<a href="klass=0x1100">com.example.Foo</a>`)
	assert.Contains(t, doc.String(), "<title>Class hierarchy of com.example.Foo</title>")
}

func TestRenderClass(t *testing.T) {
	img := snapshottest.Image(t)
	in, _ := newInspector(t, img)
	foo := metadata[vm.Class](t, img, snapshottest.FooClass)

	doc := in.RenderClass(foo)

	assert.Equal(t, "Class com.example.Foo", doc.Title)
	assert.True(t, strings.HasPrefix(doc.Body, "public class com.example.Foo\nextends java.lang.Object [klass=0x1000]\n"), doc.Body)
	assert.Contains(t, doc.Body, "Source file: Foo.java\n")
	assert.Contains(t, doc.Body, "Class file version: 61.0\n")
	assert.Contains(t, doc.Body, "  public bar()V [method=0x2100]\n")
	assert.Equal(t, "cpool=0x3000", findLink(t, doc, "Constant pool"))
	assert.Equal(t, "jcore=0x1100", findLink(t, doc, "Create .class for this class"))

	// classes without a constant pool cannot be exported
	bar := in.RenderClass(metadata[vm.Class](t, img, snapshottest.BarClass))
	assert.False(t, hasRef(bar, "jcore=0x1200"))
	assert.False(t, hasRef(bar, "cpool=0x0"))

	array := in.RenderClass(metadata[vm.Class](t, img, snapshottest.IntArray))
	assert.Contains(t, array.Body, "Element type: int\nDimensions: 1\n")
}

func TestRenderFieldsAndInterfaces(t *testing.T) {
	img := snapshottest.Image(t)
	in, _ := newInspector(t, img)
	foo := metadata[vm.Class](t, img, snapshottest.FooClass)

	fields := in.RenderFields(foo)
	assert.Equal(t, "Fields of com.example.Foo", fields.Title)
	assert.Contains(t, fields.Body, "private I\tcount\toffset 12\n")
	assert.Contains(t, fields.Body, "Ljava/lang/String;\tname\toffset 16\n")

	interfaces := in.RenderInterfaces(foo)
	assert.Equal(t, "Interfaces of com.example.Foo", interfaces.Title)
	assert.Equal(t, "Interfaces\n  java.lang.Runnable [klass=0x1400]\n", interfaces.Body)

	point := in.RenderInterfaces(metadata[vm.Class](t, img, snapshottest.PointClass))
	assert.Empty(t, point.Body)
}

func TestRenderClassList(t *testing.T) {
	in, _ := newInspector(t, snapshottest.Image(t))

	doc := in.RenderClassList()

	assert.Equal(t, "Loaded classes", doc.Title)
	assert.Equal(t, "jcore_multiple=0x1100", findLink(t, doc, "Create .class for all classes"))
	assert.Equal(t, "klass=0x1100", findLink(t, doc, "com.example.Foo"))
	assert.Equal(t, "klass=0x1600", findLink(t, doc, "[I"))
}
