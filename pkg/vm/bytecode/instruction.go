package bytecode

import (
	"fmt"
	"strings"

	"github.com/Manu343726/vmlens/pkg/vm"
)

// Family is the closed classification of instructions the inspector
// attaches cross references to.
type Family int

const (
	FamilyPlain Family = iota
	// FamilyAllocation instructions create objects or arrays of a class
	FamilyAllocation
	// FamilyTypeCheck instructions test or cast against a class
	FamilyTypeCheck
	FamilyFieldAccess
	FamilyInvoke
	FamilyConstantLoad
	FamilyBranch
	FamilySwitch
)

func (f Family) String() string {
	switch f {
	case FamilyAllocation:
		return "allocation"
	case FamilyTypeCheck:
		return "type_check"
	case FamilyFieldAccess:
		return "field_access"
	case FamilyInvoke:
		return "invoke"
	case FamilyConstantLoad:
		return "constant_load"
	case FamilyBranch:
		return "branch"
	case FamilySwitch:
		return "switch"
	default:
		return "plain"
	}
}

// Target is the symbolic operand of an instruction referring to a class or
// class member. Class, Field and Method are only set when the constant
// pool entry is resolved.
type Target struct {
	ClassName string
	Class     vm.Class
	Name      string
	Signature string
	Field     *vm.Field
	Method    vm.Method
	// Dynamic marks invokedynamic call sites, which have no static target
	Dynamic bool
}

// Resolved returns true when the target class is known
func (t *Target) Resolved() bool {
	return t != nil && t.Class != nil
}

// SwitchCase is a match of a tableswitch or lookupswitch
type SwitchCase struct {
	Key    int32
	Target int
}

// Instruction is one decoded bytecode instruction
type Instruction struct {
	BCI    int
	Opcode Opcode
	Length int
	Family Family
	Wide   bool
	// CPIndex is the constant pool operand, zero if the instruction has none
	CPIndex int
	// Local is the local variable slot operand, -1 if there is none
	Local int
	// Immediate holds bipush/sipush values, iinc increments, newarray
	// element types and multianewarray dimensions.
	Immediate int
	// Branch is the absolute target of branch instructions
	Branch int
	// Default and Cases describe switch instructions
	Default int
	Cases   []SwitchCase

	Target   *Target
	Constant *vm.Constant
	// Err reports a failure resolving the symbolic operands. The instruction
	// is still decoded.
	Err error
}

func (i Instruction) operandText() string {
	switch {
	case i.Family == FamilySwitch:
		cases := make([]string, 0, len(i.Cases)+1)
		for _, c := range i.Cases {
			cases = append(cases, fmt.Sprintf("%d: %d", c.Key, c.Target))
		}
		cases = append(cases, fmt.Sprintf("default: %d", i.Default))
		return "{ " + strings.Join(cases, ", ") + " }"
	case i.Family == FamilyBranch:
		return fmt.Sprint(i.Branch)
	case i.Opcode == Iinc:
		return fmt.Sprintf("%d, %d", i.Local, i.Immediate)
	case i.Local >= 0:
		return fmt.Sprint(i.Local)
	case i.Opcode == Newarray:
		if name, ok := newarrayTypes[i.Immediate]; ok {
			return name
		}
		return fmt.Sprintf("type(%d)", i.Immediate)
	case i.Opcode == Multianewarray:
		return fmt.Sprintf("#%d, %d", i.CPIndex, i.Immediate)
	case i.CPIndex != 0:
		return fmt.Sprintf("#%d", i.CPIndex)
	case i.Opcode == Bipush || i.Opcode == Sipush:
		return fmt.Sprint(i.Immediate)
	default:
		return ""
	}
}

// Symbol describes the symbolic operand in source-like form, or returns an
// empty string for instructions without one.
func (i Instruction) Symbol() string {
	if i.Target != nil {
		switch {
		case i.Target.Dynamic:
			return i.Target.Name + i.Target.Signature
		case i.Target.Name == "":
			return vm.ExternalName(i.Target.ClassName)
		case i.Family == FamilyFieldAccess:
			return vm.ExternalName(i.Target.ClassName) + "." + i.Target.Name + ":" + i.Target.Signature
		default:
			return vm.ExternalName(i.Target.ClassName) + "." + i.Target.Name + i.Target.Signature
		}
	}
	if i.Constant != nil {
		return ConstantText(*i.Constant)
	}
	return ""
}

// Text renders the opcode and its numeric operands, without symbols
func (i Instruction) Text() string {
	text := i.Opcode.String()
	if i.Wide {
		text = "wide " + text
	}
	if operands := i.operandText(); operands != "" {
		text += " " + operands
	}
	return text
}

// String renders the instruction as plain text
func (i Instruction) String() string {
	text := i.Text()
	if symbol := i.Symbol(); symbol != "" {
		text += " // " + symbol
	}
	if i.Err != nil {
		text += " <error: " + i.Err.Error() + ">"
	}
	return text
}

// ConstantText renders a loadable constant value
func ConstantText(c vm.Constant) string {
	switch c.Tag {
	case vm.TagInteger, vm.TagLong:
		return fmt.Sprint(c.Int)
	case vm.TagFloat, vm.TagDouble:
		return fmt.Sprint(c.Float)
	case vm.TagString, vm.TagUtf8:
		return fmt.Sprintf("%q", c.Text)
	case vm.TagClass, vm.TagUnresolvedClass, vm.TagUnresolvedClassInError:
		return vm.ExternalName(c.Text) + ".class"
	default:
		return c.Tag.String()
	}
}
