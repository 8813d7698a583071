// Package inspector renders symbolic views of the runtime structures of a
// target VM: methods, classes, constant pools, compiled code, interpreter
// codelets and raw machine code.
//
// # Documents
//
// Every render operation returns a document.Document, in the style chosen
// when the Inspector was created. Documents embed cross references
// (see package xref) that Dispatch turns back into render calls, so a
// client can navigate the target by following links without holding any
// state of its own.
//
// # Failures
//
// Render operations never return errors. Failures reading the target are
// either rendered inline (an unresolved constant, a missing receiver) or
// replace the whole document with an error document titled "Error".
// Inconsistencies of the inspector itself, like a cross reference kind
// nobody dispatches, panic with an *InternalError.
package inspector

import (
	"fmt"
	"log/slog"

	"github.com/Manu343726/vmlens/pkg/disasm"
	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/inspector/xref"
	"github.com/Manu343726/vmlens/pkg/utils"
	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/spf13/afero"
)

// Sizes of raw disassembly pages, in bytes
const (
	DefaultPageSize = 64
	MaxPageSize     = 0x10000
)

// Options configure an Inspector. They are fixed at construction.
type Options struct {
	Style  document.Style
	Syntax disasm.Syntax
	// Decoder replaces the x86 decoder reading from the target memory
	Decoder disasm.Decoder

	// Exported class files are written to ExportRoot in Fs. Defaults to the
	// working directory of the host filesystem.
	Fs         afero.Fs
	ExportRoot string

	PageSize int64
	Logger   *slog.Logger
}

// Inspector renders documents describing a target VM. It holds no
// navigation state; concurrent use is safe as long as the target is.
type Inspector struct {
	target  vm.Target
	options Options
	decoder disasm.Decoder
	logger  *slog.Logger
}

func New(target vm.Target, options Options) *Inspector {
	if options.Fs == nil {
		options.Fs = afero.NewOsFs()
	}
	if options.ExportRoot == "" {
		options.ExportRoot = "."
	}
	if options.PageSize <= 0 {
		options.PageSize = DefaultPageSize
	}
	options.PageSize = utils.Clamp(options.PageSize, 1, MaxPageSize)
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	decoder := options.Decoder
	if decoder == nil {
		decoder = disasm.X86Decoder{Memory: target, Syntax: options.Syntax}
	}

	return &Inspector{
		target:  target,
		options: options,
		decoder: decoder,
		logger:  options.Logger,
	}
}

// Target returns the inspected target
func (in *Inspector) Target() vm.Target {
	return in.target
}

// InternalError reports a bug of the inspector itself. It is raised with
// panic and never converted into an error document.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return "internal inspector error: " + e.Message
}

func internalError(format string, args ...any) {
	panic(&InternalError{Message: fmt.Sprintf(format, args...)})
}

// renderFunc fills a document. A returned error replaces the document with
// an error document.
type renderFunc func(w *document.Writer) error

// render is the boundary of every public operation: errors and panics
// raised by body become an error document, except for internal errors.
func (in *Inspector) render(operation string, body renderFunc) (doc document.Document) {
	w := document.NewWriter(in.options.Style)

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if internal, ok := r.(*InternalError); ok {
			panic(internal)
		}
		doc = in.errorDocument(operation, r)
	}()

	if err := body(w); err != nil {
		return in.errorDocument(operation, err)
	}
	return w.Document()
}

func (in *Inspector) errorDocument(operation string, failure any) document.Document {
	in.logger.Warn("render operation failed",
		slog.String("operation", operation),
		slog.String("error", fmt.Sprint(failure)))

	w := document.NewWriter(in.options.Style)
	w.SetTitle("Error")
	w.Bold(fmt.Sprintf("%T", failure))
	w.Emitf(": %v", failure)
	w.NewlineIfPlain()
	return w.Document()
}

func link(w *document.Writer, ref xref.Ref, label string) {
	w.Link(ref.String(), label)
}

func classLink(w *document.Writer, c vm.Class) {
	link(w, xref.New(xref.Klass, c.Address()), vm.ExternalName(c.Name()))
}

func methodLink(w *document.Writer, m vm.Method) {
	link(w, xref.New(xref.Method, m.Address()), vm.MethodDisplayName(m))
}

func pcLink(w *document.Writer, pc vm.Address) {
	link(w, xref.New(xref.PC, pc), pc.String())
}

// field emits a "name: value" line
func field(w *document.Writer, name string, value string) {
	w.Bold(name + ": ")
	w.Emit(value)
	w.Newline()
}
