package inspector

import (
	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/vm"
)

// RenderAddress renders the most specific view of an address the resolver
// finds: code blob, interpreter codelet, unknown code cache location,
// class, method, constant pool or, failing everything, raw disassembly.
func (in *Inspector) RenderAddress(addr vm.Address) document.Document {
	var handle vm.Handle
	doc := in.render("address", func(*document.Writer) error {
		handle = vm.Resolve(in.target, addr, in.logger)
		return nil
	})
	if handle == nil {
		return doc
	}
	return in.renderHandle(handle)
}

// RenderAddressText parses a hexadecimal address and renders it
func (in *Inspector) RenderAddressText(text string) document.Document {
	addr, err := vm.ParseAddress(text)
	if err != nil {
		return in.errorDocument("address", err)
	}
	return in.RenderAddress(addr)
}

func (in *Inspector) renderHandle(handle vm.Handle) document.Document {
	switch handle.Kind() {
	case vm.KindCodeBlob:
		return in.RenderCompiledMethod(as[vm.CodeBlob](handle))
	case vm.KindCodelet:
		return in.RenderCodelet(as[vm.Codelet](handle))
	case vm.KindClass:
		return in.RenderClass(as[vm.Class](handle))
	case vm.KindMethod:
		return in.RenderMethod(as[vm.Method](handle))
	case vm.KindConstantPool:
		return in.RenderConstantPool(as[vm.ConstantPool](handle))
	case vm.KindUnknownCode:
		return in.renderUnknownCode(handle.Address())
	case vm.KindRawAddress:
		return in.RenderPage(handle.Address(), nil)
	default:
		internalError("unhandled %v handle at %v", handle.Kind(), handle.Address())
		return document.Document{}
	}
}

// as narrows a handle to the variant its kind announces
func as[T vm.Handle](handle vm.Handle) T {
	variant, ok := handle.(T)
	if !ok {
		internalError("%v handle at %v is a %T", handle.Kind(), handle.Address(), handle)
	}
	return variant
}

func (in *Inspector) renderUnknownCode(addr vm.Address) document.Document {
	return in.render("unknown code", func(w *document.Writer) error {
		w.SetTitle("Code cache location " + addr.String())
		w.Emitf("%v is inside the code cache %v but no code blob contains it", addr, in.target.CodeCache())
		w.NewlineIfPlain()
		return nil
	})
}
