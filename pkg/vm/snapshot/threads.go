package snapshot

import (
	"fmt"

	"github.com/Manu343726/vmlens/pkg/vm"
)

type thread struct {
	img   *Image
	index int
}

func (t *thread) model() *ThreadModel { return &t.img.model.Threads[t.index] }

func (t *thread) Name() string { return t.model().Name }
func (t *thread) ID() int      { return t.model().ID }

func (t *thread) Frames() []vm.Frame {
	result := []vm.Frame{}
	for i := range t.model().Frames {
		result = append(result, &frame{thread: t, index: i})
	}
	return result
}

type frame struct {
	thread *thread
	index  int
}

func (f *frame) model() *FrameModel { return &f.thread.model().Frames[f.index] }

func (f *frame) Method() vm.Method { return f.thread.img.method(f.model().Method) }
func (f *frame) BCI() int          { return f.model().BCI }
func (f *frame) PC() vm.Address    { return f.model().PC }

func (f *frame) FrameKind() vm.FrameKind {
	switch f.model().Kind {
	case "compiled":
		return vm.FrameCompiled
	case "native":
		return vm.FrameNative
	default:
		return vm.FrameInterpreted
	}
}

func (f *frame) Receiver() (vm.Oop, error) {
	m := f.model()
	if m.Receiver.IsNull() {
		return vm.Oop{}, fmt.Errorf("%w: local 0 of frame %d does not hold an object", vm.ErrTypeMismatch, f.index)
	}
	oop := vm.Oop{Address: m.Receiver}
	if _, ok := f.thread.img.classes[m.ReceiverKlass]; ok {
		oop.Klass = f.thread.img.class(m.ReceiverKlass)
	}
	return oop, nil
}
