package inspector

import (
	"fmt"
	"log/slog"

	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/inspector/xref"
	"github.com/Manu343726/vmlens/pkg/utils"
	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/Manu343726/vmlens/pkg/vm/debuginfo"
	"github.com/samber/lo"
)

// codeWriter renders decoded machine code. Inside compiled methods it also
// renders the entry markers and the debug information of every safepoint.
type codeWriter struct {
	in   *Inspector
	w    *document.Writer
	blob vm.CodeBlob
	pc   vm.Address
}

func (c *codeWriter) BeginInstruction(pc vm.Address) {
	c.pc = pc
	if c.blob != nil {
		for _, label := range c.blob.Markers().Labels(pc) {
			c.w.Bold(label)
			c.w.Newline()
		}
	}
	c.w.Emit(pc.String() + ": ")
}

func (c *codeWriter) PrintAddress(target vm.Address) {
	if c.in.target.CodeCache().Contains(target) {
		pcLink(c.w, target)
	} else {
		c.w.Emit(target.String())
	}
}

func (c *codeWriter) Print(text string) {
	c.w.Emit(text)
}

func (c *codeWriter) EndInstruction(next vm.Address) {
	c.w.Newline()
	if c.blob != nil && c.blob.BlobKind() == vm.BlobNMethod {
		c.in.writeSafepoint(c.w, c.blob, c.pc, next)
	}
}

// disassemble renders [start, end) and returns where decoding stopped. A
// decoding failure is reported after the instructions decoded so far.
func (in *Inspector) disassemble(w *document.Writer, blob vm.CodeBlob, start, end vm.Address) (vm.Address, error) {
	stopped, err := in.decoder.Decode(&codeWriter{in: in, w: w, blob: blob}, blob, start, end)
	if err != nil {
		in.logger.Debug("disassembly stopped",
			slog.String("start", start.String()),
			slog.String("stopped", stopped.String()),
			slog.Any("error", err))
		w.Emitf("<disassembly stopped at %v: %v>", stopped, err)
		w.Newline()
	}
	return stopped, err
}

// RenderCompiledMethod renders a code blob. Blobs of Java methods also get
// their entry markers, oop maps and the scope chain of every safepoint.
func (in *Inspector) RenderCompiledMethod(blob vm.CodeBlob) document.Document {
	return in.render("compiled method", func(w *document.Writer) error {
		method, hasMethod := blob.Method()
		if hasMethod {
			w.SetTitle("Compiled code for " + vm.MethodDisplayName(method))
			w.Bold("Method: ")
			methodLink(w, method)
			w.Newline()
		} else {
			w.SetTitle("Code blob " + blob.Name())
		}

		field(w, "Name", blob.Name())
		field(w, "Kind", blob.BlobKind().String())
		field(w, "Code", vm.Range{Begin: blob.Begin(), End: blob.End()}.String())
		writeMarkers(w, blob.Markers())

		if blob.BlobKind() == vm.BlobNMethod {
			writeSafepoints(w, blob)
		}

		w.Heading("Disassembly")
		in.disassemble(w, blob, blob.Begin(), blob.End())
		return nil
	})
}

func writeMarkers(w *document.Writer, markers vm.CodeMarkers) {
	for _, marker := range []struct {
		name string
		addr vm.Address
	}{
		{"Entry point", markers.Entry},
		{"Verified entry point", markers.VerifiedEntry},
		{"OSR entry point", markers.OSREntry},
		{"Exception handler", markers.ExceptionHandler},
		{"Deopt handler", markers.DeoptHandler},
		{"Stub code", markers.StubBegin},
	} {
		if marker.addr.IsNull() {
			continue
		}
		w.Bold(marker.name + ": ")
		pcLink(w, marker.addr)
		w.Newline()
	}
}

func writeSafepoints(w *document.Writer, blob vm.CodeBlob) {
	descs := lo.Filter(blob.PCDescs(), func(d vm.PCDesc, _ int) bool {
		return d.ScopeOffset != 0
	})
	if len(descs) == 0 {
		return
	}

	w.Heading("Safepoints")
	for _, desc := range descs {
		w.Indent(1)
		pcLink(w, desc.PC)
		if oopMap, ok := blob.OopMapAt(desc.PC); ok {
			w.Emit(" " + oopMapText(oopMap))
		}
		w.Newline()
	}
}

func oopMapText(m vm.OopMap) string {
	return "OopMap{" + utils.FormatSlice(m.Slots, ", ") + "}"
}

// writeSafepoint renders the debug information recorded for the
// instruction [start, end), if any.
func (in *Inspector) writeSafepoint(w *document.Writer, blob vm.CodeBlob, start, end vm.Address) {
	chain, err := debuginfo.ChainAt(blob, start, end)
	if err != nil {
		in.logger.Debug("undecodable debug information", slog.String("pc", end.String()), slog.Any("error", err))
		w.Indent(1)
		w.Emitf("<debug information at %v: %v>", end, err)
		w.Newline()
		return
	}
	if chain == nil {
		return
	}

	if oopMap, ok := blob.OopMapAt(end); ok {
		w.Indent(1)
		w.Emit(oopMapText(oopMap))
		w.Newline()
	}

	objects := debuginfo.ScalarReplaced(chain)
	names := map[int]string{}
	for i, o := range objects {
		names[o.ID] = fmt.Sprintf("ScObj%d", i)
	}

	in.writeScope(w, chain, names)
	in.writeScalarReplaced(w, objects, names)
}

// writeScope renders the callers of a scope before the scope itself, so the
// outermost frame comes first and each inlined frame is indented one level
// deeper. It returns the depth of the scope.
func (in *Inspector) writeScope(w *document.Writer, s *debuginfo.ScopeRecord, names map[int]string) int {
	depth := 0
	if s.Caller != nil {
		depth = in.writeScope(w, s.Caller, names) + 1
	}

	w.Indent(depth + 1)
	w.Emit("- ")
	if s.Method != nil {
		methodLink(w, s.Method)
	} else {
		w.Emit("<unknown method>")
	}
	w.Emitf(" @bci %d", s.BCI)
	if line, ok := s.Line(); ok {
		w.Emitf(" (line %d)", line)
	}
	w.Newline()

	for i, v := range s.Locals {
		name := fmt.Sprintf("local[%d]", i)
		if s.Method != nil {
			if local, ok := vm.LocalVariableName(s.Method, s.BCI, i); ok {
				name = local
			}
		}
		w.Indent(depth + 2)
		w.Emit(name + " = ")
		in.writeValue(w, v, names)
		w.Newline()
	}
	for i, v := range s.Expressions {
		w.Indent(depth + 2)
		w.Emitf("expr[%d] = ", i)
		in.writeValue(w, v, names)
		w.Newline()
	}
	for i, m := range s.Monitors {
		w.Indent(depth + 2)
		w.Emitf("monitor[%d] owner = ", i)
		in.writeValue(w, m.Owner, names)
		w.Emit(", lock = " + m.Lock.String())
		if m.Eliminated {
			w.Emit(" (eliminated)")
		}
		w.Newline()
	}
	return depth
}

func (in *Inspector) writeValue(w *document.Writer, v debuginfo.ScopeValue, names map[int]string) {
	switch v.Tag {
	case debuginfo.TagOop:
		if v.Oop == nil {
			w.Emit("null")
			return
		}
		w.Emit(v.Oop.Address.String())
		switch {
		case v.Oop.Mirror != nil:
			w.Emit(" (class ")
			classLink(w, v.Oop.Mirror)
			w.Emit(")")
		case v.Oop.Klass != nil:
			w.Emit(" (")
			classLink(w, v.Oop.Klass)
			w.Emit(")")
		}
	case debuginfo.TagObject, debuginfo.TagObjectRef:
		if name, ok := names[v.Object.ID]; ok {
			w.Emit(name)
		} else {
			w.Emit(v.String())
		}
	default:
		w.Emit(v.String())
	}
}

// writeScalarReplaced renders the objects eliminated at a safepoint, after
// the whole scope chain.
func (in *Inspector) writeScalarReplaced(w *document.Writer, objects []*debuginfo.ObjectRecord, names map[int]string) {
	if len(objects) == 0 {
		return
	}

	w.Indent(1)
	w.Bold("Scalar replaced objects")
	w.Newline()
	for i, o := range objects {
		class, err := o.Class()
		if err != nil {
			internalError("%v", err)
		}

		w.Indent(2)
		w.Emitf("ScObj%d ", i)
		classLink(w, class)

		if array, ok := class.ArrayInfo(); ok {
			w.Emitf(" element type %s, dimensions %d, length %d = { ", array.ElementType, array.Dimensions, len(o.Values))
			for j, v := range o.Values {
				if j > 0 {
					w.Emit(", ")
				}
				in.writeValue(w, v, names)
			}
		} else {
			fields, err := o.Fields()
			if err != nil {
				internalError("%v", err)
			}
			w.Emit(" = { ")
			for j, f := range fields {
				if j > 0 {
					w.Emit(", ")
				}
				w.Emit(f.Field.Name + "=")
				in.writeValue(w, f.Value, names)
			}
		}
		w.Emit(" }")
		w.Newline()
	}
}

// RenderCodelet renders a template interpreter codelet with links to its
// neighbours.
func (in *Inspector) RenderCodelet(c vm.Codelet) document.Document {
	return in.render("interpreter codelet", func(w *document.Writer) error {
		w.SetTitle("Interpreter codelet " + c.Description())

		field(w, "Code", vm.Range{Begin: c.Begin(), End: c.End()}.String())
		if bytecode := c.Bytecode(); bytecode != "" {
			field(w, "Bytecode", bytecode)
		}

		if prev, ok := c.Prev(); ok {
			w.Bold("Previous codelet: ")
			link(w, xref.New(xref.PC, prev.Begin()), prev.Description())
			w.Newline()
		}
		if next, ok := c.Next(); ok {
			w.Bold("Next codelet: ")
			link(w, xref.New(xref.PC, next.Begin()), next.Description())
			w.Newline()
		}
		link(w, xref.Ref{Kind: xref.InterpCodelets}, "All interpreter codelets")
		w.Newline()

		w.Heading("Disassembly")
		in.disassemble(w, nil, c.Begin(), c.End())
		return nil
	})
}

// RenderCodeletIndex renders every interpreter codelet in address order
func (in *Inspector) RenderCodeletIndex() document.Document {
	return in.render("interpreter codelets", func(w *document.Writer) error {
		w.SetTitle("Interpreter codelets")

		w.BeginTable(1)
		for _, c := range in.target.Interpreter().Codelets() {
			w.BeginRow()
			w.BeginCell()
			link(w, xref.New(xref.PC, c.Begin()), vm.Range{Begin: c.Begin(), End: c.End()}.String())
			w.EndCell()
			w.BeginCell()
			w.Emit(c.Description())
			w.EndCell()
			w.BeginCell()
			w.Emit(c.Bytecode())
			w.EndCell()
			w.EndRow()
		}
		w.EndTable()
		return nil
	})
}

// RenderRawRange disassembles size bytes at start without symbolic
// context. previous holds the start addresses of the pages shown before,
// oldest first; it is carried by the pagination links.
func (in *Inspector) RenderRawRange(start vm.Address, size int64, previous []vm.Address) document.Document {
	return in.render("raw disassembly", func(w *document.Writer) error {
		w.SetTitle("Disassembly at " + start.String())

		if len(previous) > 0 {
			last := len(previous) - 1
			back := append([]vm.Address{previous[last]}, previous[:last]...)
			link(w, xref.Multi(xref.PCMultiple, back...), "Show previous code")
			w.Newline()
		}

		stopped, err := in.disassemble(w, nil, start, start.Offset(size))
		if err == nil && stopped > start {
			shown := make([]vm.Address, 0, len(previous)+2)
			shown = append(shown, stopped)
			shown = append(shown, previous...)
			shown = append(shown, start)
			link(w, xref.Multi(xref.PCMultiple, shown...), "Show more code")
			w.Newline()
		}
		return nil
	})
}

// RenderPage renders a raw disassembly page of the configured size
func (in *Inspector) RenderPage(start vm.Address, previous []vm.Address) document.Document {
	return in.RenderRawRange(start, in.options.PageSize, previous)
}
