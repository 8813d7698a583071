package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Manu343726/vmlens/pkg/vm"
)

var (
	ErrTruncated     = errors.New("truncated bytecode")
	ErrIllegalOpcode = errors.New("illegal opcode")
	ErrNoPool        = errors.New("method holder has no constant pool")
)

// Visitor receives the instructions of a method in order
type Visitor interface {
	Prologue(m vm.Method)
	Visit(inst Instruction)
	Epilogue()
}

// Walk decodes the bytecode of a method and feeds it to the visitor. Failing
// to resolve the operands of an instruction is reported through
// Instruction.Err and does not stop the walk. Malformed bytecode does: the
// undecodable instruction is visited with its error and the walk ends.
func Walk(m vm.Method, v Visitor) {
	v.Prologue(m)
	defer v.Epilogue()

	code := m.Bytecode()
	pool, hasPool := m.Holder().ConstantPool()

	for bci := 0; bci < len(code); {
		inst, err := Decode(code, bci)
		if err != nil {
			v.Visit(Instruction{BCI: bci, Opcode: Opcode(code[bci]), Length: 1, Local: -1, Err: err})
			return
		}
		if hasPool {
			resolve(pool, &inst)
		} else if inst.CPIndex != 0 {
			inst.Err = ErrNoPool
		}
		v.Visit(inst)
		bci += inst.Length
	}
}

// Instructions returns every decoded instruction of a method
func Instructions(m vm.Method) []Instruction {
	c := &collector{}
	Walk(m, c)
	return c.instructions
}

type collector struct {
	instructions []Instruction
}

func (c *collector) Prologue(vm.Method)     {}
func (c *collector) Visit(inst Instruction) { c.instructions = append(c.instructions, inst) }
func (c *collector) Epilogue()              {}

type reader struct {
	code []byte
	bci  int
}

func (r reader) need(offset, n int) error {
	if r.bci+offset+n > len(r.code) {
		return fmt.Errorf("%w: %d bytes needed at bci %d", ErrTruncated, n, r.bci+offset)
	}
	return nil
}

func (r reader) u1(offset int) int   { return int(r.code[r.bci+offset]) }
func (r reader) s1(offset int) int   { return int(int8(r.code[r.bci+offset])) }
func (r reader) u2(offset int) int   { return int(binary.BigEndian.Uint16(r.code[r.bci+offset:])) }
func (r reader) s2(offset int) int   { return int(int16(binary.BigEndian.Uint16(r.code[r.bci+offset:]))) }
func (r reader) s4(offset int) int32 { return int32(binary.BigEndian.Uint32(r.code[r.bci+offset:])) }

// Decode decodes the instruction starting at bci without resolving its
// constant pool operands.
func Decode(code []byte, bci int) (Instruction, error) {
	r := reader{code: code, bci: bci}
	op := Opcode(code[bci])
	if !op.IsValid() {
		return Instruction{}, fmt.Errorf("%w: 0x%02x at bci %d", ErrIllegalOpcode, uint8(op), bci)
	}

	inst := Instruction{BCI: bci, Opcode: op, Length: op.Length(), Local: -1}

	switch op {
	case Wide:
		return decodeWide(r)
	case Tableswitch, Lookupswitch:
		return decodeSwitch(r, inst)
	}

	if err := r.need(0, inst.Length); err != nil {
		return Instruction{}, err
	}

	switch {
	case op == Bipush:
		inst.Immediate = r.s1(1)
	case op == Sipush:
		inst.Immediate = r.s2(1)
	case op == Ldc:
		inst.Family = FamilyConstantLoad
		inst.CPIndex = r.u1(1)
	case op == LdcW || op == Ldc2W:
		inst.Family = FamilyConstantLoad
		inst.CPIndex = r.u2(1)
	case op == Iinc:
		inst.Local = r.u1(1)
		inst.Immediate = r.s1(2)
	case op.isLocalAccess():
		inst.Local = r.u1(1)
	case op == GotoW || op == JsrW:
		inst.Family = FamilyBranch
		inst.Branch = bci + int(r.s4(1))
	case op.isBranch():
		inst.Family = FamilyBranch
		inst.Branch = bci + r.s2(1)
	case op >= Getstatic && op <= Putfield:
		inst.Family = FamilyFieldAccess
		inst.CPIndex = r.u2(1)
	case op >= Invokevirtual && op <= Invokedynamic:
		inst.Family = FamilyInvoke
		inst.CPIndex = r.u2(1)
	case op == New || op == Anewarray:
		inst.Family = FamilyAllocation
		inst.CPIndex = r.u2(1)
	case op == Multianewarray:
		inst.Family = FamilyAllocation
		inst.CPIndex = r.u2(1)
		inst.Immediate = r.u1(3)
	case op == Newarray:
		inst.Family = FamilyAllocation
		inst.Immediate = r.u1(1)
	case op == Checkcast || op == Instanceof:
		inst.Family = FamilyTypeCheck
		inst.CPIndex = r.u2(1)
	}
	return inst, nil
}

func decodeWide(r reader) (Instruction, error) {
	if err := r.need(0, 4); err != nil {
		return Instruction{}, err
	}
	op := Opcode(r.u1(1))
	inst := Instruction{BCI: r.bci, Opcode: op, Wide: true, Length: 4, Local: r.u2(2)}
	switch {
	case op == Iinc:
		inst.Length = 6
		if err := r.need(0, 6); err != nil {
			return Instruction{}, err
		}
		inst.Immediate = r.s2(4)
	case op.isLocalAccess():
	default:
		return Instruction{}, fmt.Errorf("%w: wide %v at bci %d", ErrIllegalOpcode, op, r.bci)
	}
	return inst, nil
}

func decodeSwitch(r reader, inst Instruction) (Instruction, error) {
	inst.Family = FamilySwitch
	pad := (4 - (r.bci+1)%4) % 4
	base := 1 + pad

	if err := r.need(base, 8); err != nil {
		return Instruction{}, err
	}
	inst.Default = r.bci + int(r.s4(base))

	if inst.Opcode == Tableswitch {
		if err := r.need(base, 12); err != nil {
			return Instruction{}, err
		}
		low, high := r.s4(base+4), r.s4(base+8)
		if high < low {
			return Instruction{}, fmt.Errorf("%w: tableswitch bounds %d > %d at bci %d", ErrIllegalOpcode, low, high, r.bci)
		}
		// computed in 64 bits, the full int32 key range has 2^32 entries
		entries := int64(high) - int64(low) + 1
		if entries > int64(len(r.code)) {
			return Instruction{}, fmt.Errorf("%w: tableswitch with %d entries at bci %d", ErrTruncated, entries, r.bci)
		}
		count := int(entries)
		if err := r.need(base+12, count*4); err != nil {
			return Instruction{}, err
		}
		for i := 0; i < count; i++ {
			inst.Cases = append(inst.Cases, SwitchCase{
				Key:    low + int32(i),
				Target: r.bci + int(r.s4(base+12+i*4)),
			})
		}
		inst.Length = base + 12 + count*4
		return inst, nil
	}

	pairs := int(r.s4(base + 4))
	if pairs < 0 {
		return Instruction{}, fmt.Errorf("%w: lookupswitch with %d pairs at bci %d", ErrIllegalOpcode, pairs, r.bci)
	}
	if err := r.need(base+8, pairs*8); err != nil {
		return Instruction{}, err
	}
	for i := 0; i < pairs; i++ {
		inst.Cases = append(inst.Cases, SwitchCase{
			Key:    r.s4(base + 8 + i*8),
			Target: r.bci + int(r.s4(base+12+i*8)),
		})
	}
	inst.Length = base + 8 + pairs*8
	return inst, nil
}

// resolve fills the symbolic operands of an instruction. Panics raised by
// the target while reading the pool are turned into Instruction.Err.
func resolve(pool vm.ConstantPool, inst *Instruction) {
	if inst.CPIndex == 0 {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			inst.Err = fmt.Errorf("resolving #%d: %v", inst.CPIndex, r)
		}
	}()

	var err error
	switch inst.Family {
	case FamilyAllocation, FamilyTypeCheck:
		inst.Target, err = classTarget(pool, inst.CPIndex)
	case FamilyFieldAccess:
		inst.Target, err = fieldTarget(pool, inst.CPIndex)
	case FamilyInvoke:
		if inst.Opcode == Invokedynamic {
			inst.Target, err = dynamicTarget(pool, inst.CPIndex)
		} else {
			inst.Target, err = methodTarget(pool, inst.CPIndex)
		}
	case FamilyConstantLoad:
		err = constantTarget(pool, inst)
	}
	inst.Err = err
}

func classTarget(pool vm.ConstantPool, index int) (*Target, error) {
	c, err := pool.At(index)
	if err != nil {
		return nil, err
	}
	name, err := vm.ClassNameAt(pool, index)
	if err != nil {
		return nil, err
	}
	t := &Target{ClassName: name}
	if c.Tag == vm.TagClass {
		t.Class = c.Class
	}
	return t, nil
}

func fieldTarget(pool vm.ConstantPool, index int) (*Target, error) {
	ref, err := vm.MemberRefAt(pool, index)
	if err != nil {
		return nil, err
	}
	t := &Target{ClassName: ref.ClassName, Name: ref.Name, Signature: ref.Signature}
	if ref.Class != nil {
		if field, owner, ok := vm.FindField(ref.Class, ref.Name, ref.Signature); ok {
			t.Field = &field
			t.Class = owner
			t.ClassName = owner.Name()
		}
	}
	return t, nil
}

func methodTarget(pool vm.ConstantPool, index int) (*Target, error) {
	ref, err := vm.MemberRefAt(pool, index)
	if err != nil {
		return nil, err
	}
	t := &Target{ClassName: ref.ClassName, Name: ref.Name, Signature: ref.Signature}
	if ref.Class != nil {
		if m, ok := vm.FindMethod(ref.Class, ref.Name, ref.Signature); ok {
			t.Method = m
			t.Class = m.Holder()
			t.ClassName = t.Class.Name()
		}
	}
	return t, nil
}

func dynamicTarget(pool vm.ConstantPool, index int) (*Target, error) {
	c, err := pool.At(index)
	if err != nil {
		return nil, err
	}
	if c.Tag != vm.TagInvokeDynamic {
		return nil, fmt.Errorf("%w: invokedynamic operand #%d is %v", vm.ErrInvalidConstant, index, c.Tag)
	}
	name, signature, err := vm.NameAndTypeAt(pool, c.Index2)
	if err != nil {
		return nil, err
	}
	return &Target{Name: name, Signature: signature, Dynamic: true}, nil
}

func constantTarget(pool vm.ConstantPool, inst *Instruction) error {
	c, err := pool.At(inst.CPIndex)
	if err != nil {
		return err
	}
	inst.Constant = &c
	switch c.Tag {
	case vm.TagClass:
		inst.Target = &Target{ClassName: c.Text, Class: c.Class}
	case vm.TagUnresolvedClass, vm.TagUnresolvedClassInError:
		inst.Target = &Target{ClassName: c.Text}
	case vm.TagClassIndex:
		name, err := vm.SymbolAt(pool, c.Index1)
		if err != nil {
			return err
		}
		inst.Target = &Target{ClassName: name}
	}
	return nil
}
