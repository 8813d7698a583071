package inspector

import (
	"fmt"
	"strings"

	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/inspector/xref"
	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/samber/lo"
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"
)

func declaration(c vm.Class) string {
	flags := c.AccessFlags()
	keyword := "class"
	if flags.IsInterface() {
		keyword = "interface"
	}
	if modifiers := flags.ClassModifiers(); modifiers != "" {
		keyword = modifiers + " " + keyword
	}
	return keyword + " " + vm.ExternalName(c.Name())
}

// RenderClass renders the declaration, members and navigation links of a
// class.
func (in *Inspector) RenderClass(c vm.Class) document.Document {
	return in.render("class", func(w *document.Writer) error {
		w.SetTitle("Class " + vm.ExternalName(c.Name()))

		w.Bold(declaration(c))
		w.Newline()
		if super, ok := c.Super(); ok {
			w.Emit("extends ")
			classLink(w, super)
			w.Newline()
		}
		if array, ok := c.ArrayInfo(); ok {
			field(w, "Element type", array.ElementType)
			field(w, "Dimensions", fmt.Sprint(array.Dimensions))
		}
		if source := c.SourceFile(); source != "" {
			field(w, "Source file", source)
		}
		if signature := c.GenericSignature(); signature != "" {
			field(w, "Generic signature", signature)
		}
		if major, minor := c.Version(); major != 0 {
			field(w, "Class file version", fmt.Sprintf("%d.%d", major, minor))
		}

		link(w, xref.New(xref.Hierarchy, c.Address()), "Class hierarchy")
		w.Newline()
		if pool, ok := c.ConstantPool(); ok {
			link(w, xref.New(xref.CPool, pool.Address()), "Constant pool")
			w.Newline()
		}
		if exportable(c) {
			link(w, xref.New(xref.JCore, c.Address()), "Create .class for this class")
			w.Newline()
		}

		writeInterfaces(w, c)
		writeFields(w, c)
		writeMethods(w, c)
		return nil
	})
}

// exportable returns true for instance classes with a constant pool
func exportable(c vm.Class) bool {
	_, isArray := c.ArrayInfo()
	_, hasPool := c.ConstantPool()
	return !isArray && hasPool
}

// RenderFields renders the declared fields of a class
func (in *Inspector) RenderFields(c vm.Class) document.Document {
	return in.render("fields", func(w *document.Writer) error {
		w.SetTitle("Fields of " + vm.ExternalName(c.Name()))
		writeFields(w, c)
		return nil
	})
}

// RenderInterfaces renders the interfaces a class directly implements
func (in *Inspector) RenderInterfaces(c vm.Class) document.Document {
	return in.render("interfaces", func(w *document.Writer) error {
		w.SetTitle("Interfaces of " + vm.ExternalName(c.Name()))
		writeInterfaces(w, c)
		return nil
	})
}

func writeInterfaces(w *document.Writer, c vm.Class) {
	interfaces := c.Interfaces()
	if len(interfaces) == 0 {
		return
	}
	w.Heading("Interfaces")
	for _, i := range interfaces {
		w.Indent(1)
		classLink(w, i)
		w.Newline()
	}
}

func writeFields(w *document.Writer, c vm.Class) {
	fields := c.Fields()
	if len(fields) == 0 {
		return
	}
	w.Heading("Fields")
	w.BeginTable(0)
	for _, f := range fields {
		w.TableRow(
			strings.TrimSpace(f.AccessFlags.MemberModifiers()+" "+f.Signature),
			f.Name,
			fmt.Sprintf("offset %d", f.Offset))
	}
	w.EndTable()
}

func writeMethods(w *document.Writer, c vm.Class) {
	methods := c.Methods()
	if len(methods) == 0 {
		return
	}
	w.Heading("Methods")
	for _, m := range methods {
		w.Indent(1)
		if modifiers := m.AccessFlags().MemberModifiers(); modifiers != "" {
			w.Emit(modifiers + " ")
		}
		link(w, xref.New(xref.Method, m.Address()), m.Name()+m.Signature())
		w.Newline()
	}
}

// RenderHierarchy renders the superclass chain of a class down from the
// root, followed by the direct subclasses of the class.
func (in *Inspector) RenderHierarchy(c vm.Class) document.Document {
	return in.render("hierarchy", func(w *document.Writer) error {
		w.SetTitle("Class hierarchy of " + vm.ExternalName(c.Name()))

		for depth, class := range lo.Reverse(vm.SuperChain(c)) {
			w.Indent(depth)
			classLink(w, class)
			w.Newline()
		}

		subclasses := directSubclasses(c)
		if len(subclasses) > 0 {
			w.Heading("Direct subclasses")
			for _, sub := range subclasses {
				w.Indent(1)
				classLink(w, sub)
				w.Newline()
			}
		}
		return nil
	})
}

func directSubclasses(c vm.Class) []vm.Class {
	seen := map[vm.Address]bool{}
	subclasses := []vm.Class{}
	for sub, ok := c.Subklass(); ok && !seen[sub.Address()]; sub, ok = sub.NextSibling() {
		seen[sub.Address()] = true
		subclasses = append(subclasses, sub)
	}
	return subclasses
}

// RenderClassList renders every loaded class, sorted by name
func (in *Inspector) RenderClassList() document.Document {
	return in.render("classes", func(w *document.Writer) error {
		classes := in.target.Classes()
		w.SetTitle("Loaded classes")

		batch := lo.FilterMap(classes, func(c vm.Class, _ int) (vm.Address, bool) {
			return c.Address(), exportable(c)
		})
		if len(batch) > 0 {
			link(w, xref.Multi(xref.JCoreMultiple, batch...), "Create .class for all classes")
			w.Newline()
		}

		for _, c := range classes {
			classLink(w, c)
			w.Newline()
		}
		return nil
	})
}

// HierarchyGraph returns the subclass tree rooted at a class. Nodes are the
// external class names; edges go from a class to each direct subclass.
func HierarchyGraph(c vm.Class) *lattice.Graph {
	g := &lattice.Graph{}
	seen := map[vm.Address]bool{}

	var walk func(c vm.Class)
	walk = func(c vm.Class) {
		if seen[c.Address()] {
			return
		}
		seen[c.Address()] = true

		name := vm.ExternalName(c.Name())
		g.Nodes = append(g.Nodes, name)
		for _, sub := range directSubclasses(c) {
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: name,
				Callee: vm.ExternalName(sub.Name()),
			})
			walk(sub)
		}
	}
	walk(c)

	g.Dedup()
	return g
}

// HierarchyDOT renders the subclass tree of a class as a Graphviz graph
func HierarchyDOT(c vm.Class) string {
	return render.DOT(HierarchyGraph(c), "subclasses of "+vm.ExternalName(c.Name()))
}
