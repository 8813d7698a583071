package inspector

import (
	"fmt"

	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/inspector/xref"
	"github.com/Manu343726/vmlens/pkg/vm"
)

// RenderConstantPool renders every entry of a constant pool. The second
// slot of Long and Double entries is not listed.
func (in *Inspector) RenderConstantPool(cp vm.ConstantPool) document.Document {
	return in.render("constant pool", func(w *document.Writer) error {
		holder := cp.Holder()
		w.SetTitle("Constant pool of " + vm.ExternalName(holder.Name()))

		w.Bold("Holder: ")
		classLink(w, holder)
		w.Newline()

		w.BeginTable(1)
		for index := 1; index < cp.Length(); index++ {
			tag, tagErr := cp.TagAt(index)
			c, err := cp.At(index)

			w.BeginRow()
			w.BeginCell()
			w.Emit(fmt.Sprint(index))
			w.EndCell()
			w.BeginCell()
			if tagErr == nil {
				w.Emit(tag.String())
			}
			w.EndCell()
			w.BeginCell()
			if err != nil {
				w.Emitf("<error: %v>", err)
			} else {
				writeSpans(w, constantSpans(cp, c))
			}
			w.EndCell()
			w.EndRow()

			// a Long or Double that fails to decode still owns two slots
			if tagErr == nil && tag.IsDoubleSlot() {
				index++
			}
		}
		w.EndTable()
		return nil
	})
}

func constantSpans(cp vm.ConstantPool, c vm.Constant) []span {
	switch c.Tag {
	case vm.TagUtf8, vm.TagString:
		return []span{textSpan(fmt.Sprintf("%q", c.Text))}
	case vm.TagInteger, vm.TagLong:
		return []span{textSpan(fmt.Sprint(c.Int))}
	case vm.TagFloat, vm.TagDouble:
		return []span{textSpan(fmt.Sprint(c.Float))}
	case vm.TagClass:
		if c.Class != nil {
			return []span{linkSpan(xref.New(xref.Klass, c.Class.Address()), vm.ExternalName(c.Class.Name()))}
		}
		return []span{textSpan(vm.ExternalName(c.Text))}
	case vm.TagUnresolvedClass, vm.TagUnresolvedClassInError:
		return []span{textSpan(vm.ExternalName(c.Text))}
	case vm.TagClassIndex, vm.TagStringIndex, vm.TagMethodType:
		return []span{textSpan(fmt.Sprintf("#%d", c.Index1))}
	case vm.TagFieldref, vm.TagMethodref, vm.TagInterfaceMethodref:
		return memberSpans(cp, c)
	case vm.TagNameAndType:
		spans := []span{textSpan(fmt.Sprintf("#%d:#%d", c.Index1, c.Index2))}
		name, nameErr := vm.SymbolAt(cp, c.Index1)
		signature, signatureErr := vm.SymbolAt(cp, c.Index2)
		if nameErr == nil && signatureErr == nil {
			spans = append(spans, textSpan(" // "+name+":"+signature))
		}
		return spans
	case vm.TagMethodHandle:
		return []span{textSpan(fmt.Sprintf("ref_kind=%d #%d", c.RefKind, c.Index1))}
	case vm.TagDynamic, vm.TagInvokeDynamic:
		return []span{textSpan(fmt.Sprintf("#%d:#%d", c.Index1, c.Index2))}
	default:
		return []span{textSpan(c.Tag.String())}
	}
}

func memberSpans(cp vm.ConstantPool, c vm.Constant) []span {
	spans := []span{textSpan(fmt.Sprintf("#%d.#%d", c.Index1, c.Index2))}

	name, signature, err := vm.NameAndTypeAt(cp, c.Index2)
	if err != nil {
		return append(spans, textSpan(fmt.Sprintf(" <error: %v>", err)))
	}
	className, err := vm.ClassNameAt(cp, c.Index1)
	if err != nil {
		return append(spans, textSpan(fmt.Sprintf(" <error: %v>", err)))
	}

	spans = append(spans, textSpan(" // "))
	owner, err := cp.At(c.Index1)
	if err == nil && owner.Tag == vm.TagClass && owner.Class != nil {
		if c.Tag != vm.TagFieldref {
			if m, ok := vm.FindMethod(owner.Class, name, signature); ok {
				return append(spans, linkSpan(xref.New(xref.Method, m.Address()), vm.ExternalName(className)+"."+name+signature))
			}
		}
		return append(spans,
			linkSpan(xref.New(xref.Klass, owner.Class.Address()), vm.ExternalName(className)),
			textSpan("."+name+":"+signature))
	}
	return append(spans, textSpan(vm.ExternalName(className)+"."+name+":"+signature))
}
