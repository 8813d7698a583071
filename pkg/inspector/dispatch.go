package inspector

import (
	"errors"

	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/inspector/xref"
	"github.com/Manu343726/vmlens/pkg/utils"
	"github.com/Manu343726/vmlens/pkg/vm"
)

// Dispatch renders the document a cross reference points to. Every
// reference embedded in a rendered document is accepted; an unknown kind
// means the inspector emitted a link it cannot follow and panics with an
// *InternalError. Malformed payloads give an error document.
func (in *Inspector) Dispatch(text string) document.Document {
	ref, err := xref.Parse(text)
	if errors.Is(err, xref.ErrUnknownKind) {
		internalError("dispatching '%s': %v", text, err)
	}
	if err != nil {
		return in.errorDocument("dispatch", err)
	}
	return in.DispatchRef(ref)
}

// DispatchRef renders the document of a parsed cross reference
func (in *Inspector) DispatchRef(ref xref.Ref) document.Document {
	switch ref.Kind {
	case xref.Klass:
		return in.withClass(ref, in.RenderClass)
	case xref.Hierarchy:
		return in.withClass(ref, in.RenderHierarchy)
	case xref.JCore:
		return in.withClass(ref, in.ExportClass)
	case xref.Method:
		return in.withMetadata(ref, vm.KindMethod, func(h vm.Handle) document.Document {
			return in.RenderMethod(as[vm.Method](h))
		})
	case xref.CPool:
		return in.withMetadata(ref, vm.KindConstantPool, func(h vm.Handle) document.Document {
			return in.RenderConstantPool(as[vm.ConstantPool](h))
		})
	case xref.NMethod:
		blob, ok := in.target.FindBlob(ref.Address())
		if !ok {
			return in.errorDocument("dispatch", utils.MakeError(vm.ErrUnmappedMemory, "no code blob at %v", ref.Address()))
		}
		if blob.BlobKind() != vm.BlobNMethod {
			internalError("%v refers to a %v blob", ref, blob.BlobKind())
		}
		return in.RenderCompiledMethod(blob)
	case xref.PC:
		return in.RenderAddress(ref.Address())
	case xref.PCMultiple:
		return in.RenderPage(ref.Addresses[0], ref.Addresses[1:])
	case xref.JCoreMultiple:
		batch := make([]batchEntry, 0, len(ref.Addresses))
		for _, addr := range ref.Addresses {
			h, err := in.target.MetadataAt(addr)
			if err != nil {
				batch = append(batch, batchEntry{address: addr, err: err})
				continue
			}
			if h.Kind() != vm.KindClass {
				internalError("%v refers to a %v at %v", ref.Kind, h.Kind(), addr)
			}
			batch = append(batch, batchEntry{address: addr, class: as[vm.Class](h)})
		}
		return in.exportBatch(batch)
	case xref.InterpCodelets:
		return in.RenderCodeletIndex()
	default:
		internalError("no dispatch for cross reference kind %v", ref.Kind)
		return document.Document{}
	}
}

func (in *Inspector) withClass(ref xref.Ref, render func(vm.Class) document.Document) document.Document {
	return in.withMetadata(ref, vm.KindClass, func(h vm.Handle) document.Document {
		return render(as[vm.Class](h))
	})
}

// withMetadata resolves the payload of a reference as metadata of the given
// kind. Addresses that hold no metadata at all give an error document; the
// wrong kind of metadata is an internal error.
func (in *Inspector) withMetadata(ref xref.Ref, kind vm.HandleKind, render func(vm.Handle) document.Document) document.Document {
	h, err := in.target.MetadataAt(ref.Address())
	if err != nil {
		return in.errorDocument("dispatch", err)
	}
	if h.Kind() != kind {
		internalError("%v refers to a %v at %v", ref.Kind, h.Kind(), ref.Address())
	}
	return render(h)
}
