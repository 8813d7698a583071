package inspector

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/vm"
)

// RenderJavaStackTrace renders the Java frames of a thread, innermost first
func (in *Inspector) RenderJavaStackTrace(thread vm.Thread) document.Document {
	return in.render("java stack trace", func(w *document.Writer) error {
		w.SetTitle("Java stack trace of thread " + thread.Name())
		in.writeThread(w, thread)
		return nil
	})
}

// RenderAllStackTraces renders one section per Java thread of the target
func (in *Inspector) RenderAllStackTraces() document.Document {
	return in.render("java stack traces", func(w *document.Writer) error {
		w.SetTitle("Java stack traces")
		for _, thread := range in.target.Threads() {
			w.Heading(fmt.Sprintf("Thread %s (id %d)", thread.Name(), thread.ID()))
			in.writeThread(w, thread)
		}
		return nil
	})
}

func (in *Inspector) writeThread(w *document.Writer, thread vm.Thread) {
	for _, frame := range thread.Frames() {
		method := frame.Method()

		w.Emit("- ")
		methodLink(w, method)
		w.Emitf(" @bci %d", frame.BCI())
		if line, ok := vm.LineNumber(method, frame.BCI()); ok {
			w.Emitf(" (line %d)", line)
		}
		w.Emit(", pc = ")
		pcLink(w, frame.PC())
		w.Emitf(" (%v)", frame.FrameKind())
		w.Newline()

		flags := method.AccessFlags()
		if flags.IsStatic() || flags.IsNative() {
			continue
		}
		in.writeReceiver(w, thread, frame)
	}
}

// writeReceiver renders the receiver of a frame when it can be found.
// Frames whose receiver slot does not hold an object are skipped.
func (in *Inspector) writeReceiver(w *document.Writer, thread vm.Thread, frame vm.Frame) {
	receiver, err := frame.Receiver()
	switch {
	case errors.Is(err, vm.ErrTypeMismatch):
		in.logger.Debug("frame receiver is not an object",
			slog.String("thread", thread.Name()),
			slog.String("method", vm.MethodDisplayName(frame.Method())))
		return
	case err != nil:
		w.Indent(1)
		w.Emitf("receiver unavailable: %v", err)
		w.Newline()
		return
	}

	w.Indent(1)
	w.Emit("receiver = " + receiver.Address.String())
	if receiver.Klass != nil {
		w.Emit(" (")
		classLink(w, receiver.Klass)
		w.Emit(")")
	}
	w.Newline()
}
