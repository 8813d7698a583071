package inspector

import (
	"fmt"
	"log/slog"

	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/inspector/xref"
	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/Manu343726/vmlens/pkg/vm/bytecode"
)

// RenderMethod renders the declaration, bytecode and exception table of a
// method.
func (in *Inspector) RenderMethod(m vm.Method) document.Document {
	return in.render("method", func(w *document.Writer) error {
		w.SetTitle("Method " + vm.MethodDisplayName(m))

		w.Bold("Holder: ")
		classLink(w, m.Holder())
		w.Newline()
		if modifiers := m.AccessFlags().MemberModifiers(); modifiers != "" {
			field(w, "Modifiers", modifiers)
		}
		field(w, "Signature", m.Signature())
		field(w, "Max stack", fmt.Sprint(m.MaxStack()))
		field(w, "Max locals", fmt.Sprint(m.MaxLocals()))

		if blob, ok := m.CompiledCode(); ok {
			w.Bold("Compiled code: ")
			link(w, xref.New(xref.NMethod, blob.Address()), fmt.Sprintf("%s %v", blob.Name(), vm.Range{Begin: blob.Begin(), End: blob.End()}))
			w.Newline()
		}

		in.writeBytecode(w, m)
		in.writeExceptionTable(w, m)
		return nil
	})
}

func (in *Inspector) writeBytecode(w *document.Writer, m vm.Method) {
	w.Heading("Bytecode")
	w.BeginTable(0)
	bytecode.Walk(m, &bytecodeWriter{in: in, w: w})
	w.EndTable()
}

// bytecodeWriter emits one table row per instruction
type bytecodeWriter struct {
	in     *Inspector
	w      *document.Writer
	method vm.Method
	lines  map[int]int
}

func (b *bytecodeWriter) Prologue(m vm.Method) {
	b.method = m
	b.lines = map[int]int{}
	for _, entry := range m.LineNumberTable() {
		b.lines[entry.StartBCI] = entry.Line
	}
}

func (b *bytecodeWriter) Visit(inst bytecode.Instruction) {
	if inst.Err != nil {
		b.in.logger.Debug("bytecode instruction failed",
			slog.String("method", vm.MethodDisplayName(b.method)),
			slog.Int("bci", inst.BCI),
			slog.Any("error", inst.Err))
	}

	spans := instructionSpans(inst)

	b.w.BeginRow()
	b.w.BeginCell()
	b.w.Emit(fmt.Sprint(inst.BCI))
	b.w.EndCell()
	b.w.BeginCell()
	if line, ok := b.lines[inst.BCI]; ok {
		b.w.Emitf("line %d", line)
	}
	b.w.EndCell()
	b.w.BeginCell()
	writeSpans(b.w, spans)
	b.w.EndCell()
	b.w.EndRow()
}

func (b *bytecodeWriter) Epilogue() {}

// span is a piece of rendered text, optionally linked
type span struct {
	text string
	ref  *xref.Ref
}

func textSpan(text string) span {
	return span{text: text}
}

func linkSpan(ref xref.Ref, label string) span {
	return span{text: label, ref: &ref}
}

func writeSpans(w *document.Writer, spans []span) {
	for _, s := range spans {
		if s.ref != nil {
			link(w, *s.ref, s.text)
		} else {
			w.Emit(s.text)
		}
	}
}

// instructionSpans renders an instruction with cross references to its
// resolved operands. A failure stringifying the instruction is rendered as
// an error marker in place of the instruction.
func instructionSpans(inst bytecode.Instruction) (spans []span) {
	defer func() {
		if r := recover(); r != nil {
			spans = []span{textSpan(fmt.Sprintf("%v <error: %v>", inst.Opcode, r))}
		}
	}()

	spans = []span{textSpan(inst.Text())}
	if inst.Err != nil {
		return append(spans, textSpan(" <error: "+inst.Err.Error()+">"))
	}

	target := inst.Target
	switch inst.Family {
	case bytecode.FamilyAllocation, bytecode.FamilyTypeCheck:
		if target.Resolved() {
			spans = append(spans, textSpan(" // "), linkSpan(xref.New(xref.Klass, target.Class.Address()), vm.ExternalName(target.Class.Name())))
		} else if target != nil {
			spans = append(spans, textSpan(" // "+inst.Symbol()))
		}
	case bytecode.FamilyFieldAccess:
		if target.Resolved() {
			spans = append(spans,
				textSpan(" // "),
				linkSpan(xref.New(xref.Klass, target.Class.Address()), vm.ExternalName(target.Class.Name())),
				textSpan("."+target.Name+":"+target.Signature))
		} else if target != nil {
			spans = append(spans, textSpan(" // "+inst.Symbol()))
		}
	case bytecode.FamilyInvoke:
		switch {
		case target == nil:
		case target.Method != nil:
			spans = append(spans, textSpan(" // "), linkSpan(xref.New(xref.Method, target.Method.Address()), inst.Symbol()))
		default:
			// invokedynamic and unresolved call sites have no target to link
			spans = append(spans, textSpan(" // "+inst.Symbol()))
		}
	case bytecode.FamilyConstantLoad:
		if target.Resolved() {
			spans = append(spans, textSpan(" // "), linkSpan(xref.New(xref.Klass, target.Class.Address()), inst.Symbol()))
		} else if symbol := inst.Symbol(); symbol != "" {
			spans = append(spans, textSpan(" // "+symbol))
		}
	}
	return spans
}

func (in *Inspector) writeExceptionTable(w *document.Writer, m vm.Method) {
	table := m.ExceptionTable()
	if len(table) == 0 {
		return
	}

	pool, hasPool := m.Holder().ConstantPool()

	w.Heading("Exception table")
	w.BeginTable(1)
	w.TableRow("start bci", "end bci", "handler bci", "catch type")
	for _, entry := range table {
		w.BeginRow()
		for _, value := range []int{entry.StartBCI, entry.EndBCI, entry.HandlerBCI} {
			w.BeginCell()
			w.Emit(fmt.Sprint(value))
			w.EndCell()
		}
		w.BeginCell()
		switch {
		case entry.CatchType == 0:
			w.Emit("any")
		case !hasPool:
			w.Emitf("#%d", entry.CatchType)
		default:
			writeSpans(w, catchTypeSpans(pool, entry.CatchType))
		}
		w.EndCell()
		w.EndRow()
	}
	w.EndTable()
}

func catchTypeSpans(pool vm.ConstantPool, index int) []span {
	c, err := pool.At(index)
	if err != nil {
		return []span{textSpan(fmt.Sprintf("#%d <error: %v>", index, err))}
	}
	if c.Tag == vm.TagClass && c.Class != nil {
		return []span{linkSpan(xref.New(xref.Klass, c.Class.Address()), vm.ExternalName(c.Class.Name()))}
	}
	name, err := vm.ClassNameAt(pool, index)
	if err != nil {
		return []span{textSpan(fmt.Sprintf("#%d <error: %v>", index, err))}
	}
	return []span{textSpan(vm.ExternalName(name))}
}
