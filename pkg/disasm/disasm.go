// Package disasm decodes machine code of the target into a stream of
// visitor callbacks.
package disasm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Manu343726/vmlens/pkg/vm"
	"golang.org/x/arch/x86/x86asm"
)

// maxInstructionLen is the longest possible x86 instruction
const maxInstructionLen = 15

// Addresses below minSymbolAddress are never offered to the visitor as
// addresses; they are small displacements and immediates.
const (
	minSymbolAddress = 0x10000
	maxSymbolAddress = 1 << 48
)

var (
	ErrUnknownSyntax = errors.New("unknown assembly syntax")
	ErrDecode        = errors.New("undecodable instruction")
)

// Visitor receives the instructions of a decoded range. Between
// BeginInstruction and EndInstruction the instruction text is delivered as
// a sequence of Print and PrintAddress calls; PrintAddress carries an
// absolute address operand the visitor may render as a cross reference.
type Visitor interface {
	BeginInstruction(pc vm.Address)
	PrintAddress(target vm.Address)
	Print(text string)
	EndInstruction(next vm.Address)
}

// Decoder decodes [start, end) calling the visitor for every instruction.
// Decoding stops cleanly at the first instruction that cannot be read or
// decoded; the returned address is where it stopped and the error tells
// why. A nil error means the whole range was decoded.
type Decoder interface {
	Decode(v Visitor, blob vm.CodeBlob, start, end vm.Address) (vm.Address, error)
}

// Syntax selects the assembly dialect
type Syntax int

const (
	SyntaxIntel Syntax = iota
	SyntaxGNU
	SyntaxGo
)

func (s Syntax) String() string {
	switch s {
	case SyntaxGNU:
		return "gnu"
	case SyntaxGo:
		return "go"
	default:
		return "intel"
	}
}

func ParseSyntax(text string) (Syntax, error) {
	switch strings.ToLower(text) {
	case "intel", "":
		return SyntaxIntel, nil
	case "gnu", "att":
		return SyntaxGNU, nil
	case "go", "plan9":
		return SyntaxGo, nil
	default:
		return SyntaxIntel, fmt.Errorf("%w: '%s'", ErrUnknownSyntax, text)
	}
}

// X86Decoder decodes x86-64 machine code read from the target memory
type X86Decoder struct {
	Memory vm.Memory
	Syntax Syntax
}

// Decode implements Decoder. A zero end with a blob decodes up to the end of
// the blob instructions. The last instruction may extend past end.
func (d X86Decoder) Decode(v Visitor, blob vm.CodeBlob, start, end vm.Address) (vm.Address, error) {
	if end.IsNull() && blob != nil {
		end = blob.End()
	}

	pc := start
	for pc < end {
		code, err := d.read(pc, maxInstructionLen)
		if err != nil {
			return pc, err
		}

		inst, err := x86asm.Decode(code, 64)
		if err != nil {
			return pc, fmt.Errorf("%w at %v: %v", ErrDecode, pc, err)
		}

		next := pc.Offset(int64(inst.Len))
		v.BeginInstruction(pc)
		d.print(v, inst, pc)
		v.EndInstruction(next)
		pc = next
	}
	return pc, nil
}

// read fetches up to n bytes at pc, shrinking the read when it runs past
// the end of mapped memory.
func (d X86Decoder) read(pc vm.Address, n int) ([]byte, error) {
	var err error
	for ; n > 0; n-- {
		var code []byte
		if code, err = d.Memory.ReadBytes(pc, n); err == nil {
			return code, nil
		}
	}
	return nil, err
}

// DecodeN decodes size bytes starting at start
func DecodeN(d Decoder, v Visitor, blob vm.CodeBlob, start vm.Address, size int64) (vm.Address, error) {
	return d.Decode(v, blob, start, start.Offset(size))
}

// symbol markers delimit the operand addresses inside the formatted text
const marker = "\x1f"

func (d X86Decoder) print(v Visitor, inst x86asm.Inst, pc vm.Address) {
	addresses := []vm.Address{}
	symname := func(addr uint64) (string, uint64) {
		if addr < minSymbolAddress || addr >= maxSymbolAddress {
			return "", 0
		}
		addresses = append(addresses, vm.Address(addr))
		return marker + strconv.Itoa(len(addresses)-1) + marker, addr
	}

	var text string
	switch d.Syntax {
	case SyntaxGNU:
		text = x86asm.GNUSyntax(inst, uint64(pc), symname)
	case SyntaxGo:
		text = x86asm.GoSyntax(inst, uint64(pc), symname)
	default:
		text = x86asm.IntelSyntax(inst, uint64(pc), symname)
	}

	// pieces alternate between plain text and address indices
	for i, piece := range strings.Split(text, marker) {
		if i%2 == 0 {
			if piece != "" {
				v.Print(piece)
			}
			continue
		}
		index, err := strconv.Atoi(piece)
		if err != nil || index >= len(addresses) {
			v.Print(piece)
			continue
		}
		v.PrintAddress(addresses[index])
	}
}
