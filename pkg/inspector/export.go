package inspector

import (
	"fmt"
	"log/slog"

	"github.com/Manu343726/vmlens/pkg/classfile"
	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/vm"
)

// ExportClass writes the class file of c below the export root. Failing to
// export gives an error document.
func (in *Inspector) ExportClass(c vm.Class) document.Document {
	return in.render("export class", func(w *document.Writer) error {
		w.SetTitle("Export " + vm.ExternalName(c.Name()))

		path, err := classfile.Export(in.options.Fs, in.options.ExportRoot, c)
		if err != nil {
			return err
		}
		in.logger.Info("class exported", slog.String("class", c.Name()), slog.String("path", path))

		w.Emit("Wrote ")
		classLink(w, c)
		w.Emit(" to " + path)
		w.NewlineIfPlain()
		return nil
	})
}

// ExportClasses exports every class of a batch. A failure is reported on
// the line of its class and does not stop the batch.
func (in *Inspector) ExportClasses(classes []vm.Class) document.Document {
	batch := make([]batchEntry, 0, len(classes))
	for _, c := range classes {
		batch = append(batch, batchEntry{address: c.Address(), class: c})
	}
	return in.exportBatch(batch)
}

// batchEntry is one class of an export batch. Entries whose address could
// not be resolved carry the resolution error instead of a class.
type batchEntry struct {
	address vm.Address
	class   vm.Class
	err     error
}

func (in *Inspector) exportBatch(batch []batchEntry) document.Document {
	return in.render("export classes", func(w *document.Writer) error {
		w.SetTitle(fmt.Sprintf("Export %d classes", len(batch)))

		failures := 0
		for _, entry := range batch {
			if entry.err != nil {
				failures++
				in.logger.Warn("class export failed", slog.String("address", entry.address.String()), slog.Any("error", entry.err))
				w.Emitf("Failed to export %v: %v", entry.address, entry.err)
				w.Newline()
				continue
			}

			c := entry.class
			path, err := in.exportOne(c)
			if err != nil {
				failures++
				in.logger.Warn("class export failed", slog.String("class", c.Name()), slog.Any("error", err))
				w.Emit("Failed to export ")
				classLink(w, c)
				w.Emitf(": %v", err)
			} else {
				w.Emit("Wrote ")
				classLink(w, c)
				w.Emit(" to " + path)
			}
			w.Newline()
		}
		w.Emitf("%d exported, %d failed", len(batch)-failures, failures)
		w.NewlineIfPlain()
		return nil
	})
}

// exportOne exports a single class, turning panics raised while reading
// the target into errors.
func (in *Inspector) exportOne(c vm.Class) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if internal, ok := r.(*InternalError); ok {
				panic(internal)
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	return classfile.Export(in.options.Fs, in.options.ExportRoot, c)
}
