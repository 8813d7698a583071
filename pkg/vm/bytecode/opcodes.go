package bytecode

// Opcode is a classfile instruction opcode
type Opcode uint8

const (
	Nop             Opcode = 0x00
	AconstNull      Opcode = 0x01
	Bipush          Opcode = 0x10
	Sipush          Opcode = 0x11
	Ldc             Opcode = 0x12
	LdcW            Opcode = 0x13
	Ldc2W           Opcode = 0x14
	Iload           Opcode = 0x15
	Aload           Opcode = 0x19
	Istore          Opcode = 0x36
	Astore          Opcode = 0x3a
	Iinc            Opcode = 0x84
	Ifeq            Opcode = 0x99
	Goto            Opcode = 0xa7
	Jsr             Opcode = 0xa8
	Ret             Opcode = 0xa9
	Tableswitch     Opcode = 0xaa
	Lookupswitch    Opcode = 0xab
	Return          Opcode = 0xb1
	Getstatic       Opcode = 0xb2
	Putstatic       Opcode = 0xb3
	Getfield        Opcode = 0xb4
	Putfield        Opcode = 0xb5
	Invokevirtual   Opcode = 0xb6
	Invokespecial   Opcode = 0xb7
	Invokestatic    Opcode = 0xb8
	Invokeinterface Opcode = 0xb9
	Invokedynamic   Opcode = 0xba
	New             Opcode = 0xbb
	Newarray        Opcode = 0xbc
	Anewarray       Opcode = 0xbd
	Checkcast       Opcode = 0xc0
	Instanceof      Opcode = 0xc1
	Wide            Opcode = 0xc4
	Multianewarray  Opcode = 0xc5
	Ifnull          Opcode = 0xc6
	Ifnonnull       Opcode = 0xc7
	GotoW           Opcode = 0xc8
	JsrW            Opcode = 0xc9
)

type opcodeInfo struct {
	name string
	// length of the instruction in bytes, 0 for variable length ones
	length int
}

var opcodes = [...]opcodeInfo{
	0x00: {"nop", 1}, 0x01: {"aconst_null", 1}, 0x02: {"iconst_m1", 1}, 0x03: {"iconst_0", 1},
	0x04: {"iconst_1", 1}, 0x05: {"iconst_2", 1}, 0x06: {"iconst_3", 1}, 0x07: {"iconst_4", 1},
	0x08: {"iconst_5", 1}, 0x09: {"lconst_0", 1}, 0x0a: {"lconst_1", 1}, 0x0b: {"fconst_0", 1},
	0x0c: {"fconst_1", 1}, 0x0d: {"fconst_2", 1}, 0x0e: {"dconst_0", 1}, 0x0f: {"dconst_1", 1},
	0x10: {"bipush", 2}, 0x11: {"sipush", 3}, 0x12: {"ldc", 2}, 0x13: {"ldc_w", 3},
	0x14: {"ldc2_w", 3}, 0x15: {"iload", 2}, 0x16: {"lload", 2}, 0x17: {"fload", 2},
	0x18: {"dload", 2}, 0x19: {"aload", 2}, 0x1a: {"iload_0", 1}, 0x1b: {"iload_1", 1},
	0x1c: {"iload_2", 1}, 0x1d: {"iload_3", 1}, 0x1e: {"lload_0", 1}, 0x1f: {"lload_1", 1},
	0x20: {"lload_2", 1}, 0x21: {"lload_3", 1}, 0x22: {"fload_0", 1}, 0x23: {"fload_1", 1},
	0x24: {"fload_2", 1}, 0x25: {"fload_3", 1}, 0x26: {"dload_0", 1}, 0x27: {"dload_1", 1},
	0x28: {"dload_2", 1}, 0x29: {"dload_3", 1}, 0x2a: {"aload_0", 1}, 0x2b: {"aload_1", 1},
	0x2c: {"aload_2", 1}, 0x2d: {"aload_3", 1}, 0x2e: {"iaload", 1}, 0x2f: {"laload", 1},
	0x30: {"faload", 1}, 0x31: {"daload", 1}, 0x32: {"aaload", 1}, 0x33: {"baload", 1},
	0x34: {"caload", 1}, 0x35: {"saload", 1}, 0x36: {"istore", 2}, 0x37: {"lstore", 2},
	0x38: {"fstore", 2}, 0x39: {"dstore", 2}, 0x3a: {"astore", 2}, 0x3b: {"istore_0", 1},
	0x3c: {"istore_1", 1}, 0x3d: {"istore_2", 1}, 0x3e: {"istore_3", 1}, 0x3f: {"lstore_0", 1},
	0x40: {"lstore_1", 1}, 0x41: {"lstore_2", 1}, 0x42: {"lstore_3", 1}, 0x43: {"fstore_0", 1},
	0x44: {"fstore_1", 1}, 0x45: {"fstore_2", 1}, 0x46: {"fstore_3", 1}, 0x47: {"dstore_0", 1},
	0x48: {"dstore_1", 1}, 0x49: {"dstore_2", 1}, 0x4a: {"dstore_3", 1}, 0x4b: {"astore_0", 1},
	0x4c: {"astore_1", 1}, 0x4d: {"astore_2", 1}, 0x4e: {"astore_3", 1}, 0x4f: {"iastore", 1},
	0x50: {"lastore", 1}, 0x51: {"fastore", 1}, 0x52: {"dastore", 1}, 0x53: {"aastore", 1},
	0x54: {"bastore", 1}, 0x55: {"castore", 1}, 0x56: {"sastore", 1}, 0x57: {"pop", 1},
	0x58: {"pop2", 1}, 0x59: {"dup", 1}, 0x5a: {"dup_x1", 1}, 0x5b: {"dup_x2", 1},
	0x5c: {"dup2", 1}, 0x5d: {"dup2_x1", 1}, 0x5e: {"dup2_x2", 1}, 0x5f: {"swap", 1},
	0x60: {"iadd", 1}, 0x61: {"ladd", 1}, 0x62: {"fadd", 1}, 0x63: {"dadd", 1},
	0x64: {"isub", 1}, 0x65: {"lsub", 1}, 0x66: {"fsub", 1}, 0x67: {"dsub", 1},
	0x68: {"imul", 1}, 0x69: {"lmul", 1}, 0x6a: {"fmul", 1}, 0x6b: {"dmul", 1},
	0x6c: {"idiv", 1}, 0x6d: {"ldiv", 1}, 0x6e: {"fdiv", 1}, 0x6f: {"ddiv", 1},
	0x70: {"irem", 1}, 0x71: {"lrem", 1}, 0x72: {"frem", 1}, 0x73: {"drem", 1},
	0x74: {"ineg", 1}, 0x75: {"lneg", 1}, 0x76: {"fneg", 1}, 0x77: {"dneg", 1},
	0x78: {"ishl", 1}, 0x79: {"lshl", 1}, 0x7a: {"ishr", 1}, 0x7b: {"lshr", 1},
	0x7c: {"iushr", 1}, 0x7d: {"lushr", 1}, 0x7e: {"iand", 1}, 0x7f: {"land", 1},
	0x80: {"ior", 1}, 0x81: {"lor", 1}, 0x82: {"ixor", 1}, 0x83: {"lxor", 1},
	0x84: {"iinc", 3}, 0x85: {"i2l", 1}, 0x86: {"i2f", 1}, 0x87: {"i2d", 1},
	0x88: {"l2i", 1}, 0x89: {"l2f", 1}, 0x8a: {"l2d", 1}, 0x8b: {"f2i", 1},
	0x8c: {"f2l", 1}, 0x8d: {"f2d", 1}, 0x8e: {"d2i", 1}, 0x8f: {"d2l", 1},
	0x90: {"d2f", 1}, 0x91: {"i2b", 1}, 0x92: {"i2c", 1}, 0x93: {"i2s", 1},
	0x94: {"lcmp", 1}, 0x95: {"fcmpl", 1}, 0x96: {"fcmpg", 1}, 0x97: {"dcmpl", 1},
	0x98: {"dcmpg", 1}, 0x99: {"ifeq", 3}, 0x9a: {"ifne", 3}, 0x9b: {"iflt", 3},
	0x9c: {"ifge", 3}, 0x9d: {"ifgt", 3}, 0x9e: {"ifle", 3}, 0x9f: {"if_icmpeq", 3},
	0xa0: {"if_icmpne", 3}, 0xa1: {"if_icmplt", 3}, 0xa2: {"if_icmpge", 3}, 0xa3: {"if_icmpgt", 3},
	0xa4: {"if_icmple", 3}, 0xa5: {"if_acmpeq", 3}, 0xa6: {"if_acmpne", 3}, 0xa7: {"goto", 3},
	0xa8: {"jsr", 3}, 0xa9: {"ret", 2}, 0xaa: {"tableswitch", 0}, 0xab: {"lookupswitch", 0},
	0xac: {"ireturn", 1}, 0xad: {"lreturn", 1}, 0xae: {"freturn", 1}, 0xaf: {"dreturn", 1},
	0xb0: {"areturn", 1}, 0xb1: {"return", 1}, 0xb2: {"getstatic", 3}, 0xb3: {"putstatic", 3},
	0xb4: {"getfield", 3}, 0xb5: {"putfield", 3}, 0xb6: {"invokevirtual", 3}, 0xb7: {"invokespecial", 3},
	0xb8: {"invokestatic", 3}, 0xb9: {"invokeinterface", 5}, 0xba: {"invokedynamic", 5}, 0xbb: {"new", 3},
	0xbc: {"newarray", 2}, 0xbd: {"anewarray", 3}, 0xbe: {"arraylength", 1}, 0xbf: {"athrow", 1},
	0xc0: {"checkcast", 3}, 0xc1: {"instanceof", 3}, 0xc2: {"monitorenter", 1}, 0xc3: {"monitorexit", 1},
	0xc4: {"wide", 0}, 0xc5: {"multianewarray", 4}, 0xc6: {"ifnull", 3}, 0xc7: {"ifnonnull", 3},
	0xc8: {"goto_w", 5}, 0xc9: {"jsr_w", 5},
}

// IsValid returns true for opcodes defined by the class file format
func (op Opcode) IsValid() bool {
	return int(op) < len(opcodes)
}

func (op Opcode) String() string {
	if !op.IsValid() {
		return "illegal"
	}
	return opcodes[op].name
}

// Length returns the fixed instruction length, or 0 for variable length
// instructions.
func (op Opcode) Length() int {
	if !op.IsValid() {
		return 0
	}
	return opcodes[op].length
}

func (op Opcode) isBranch() bool {
	return (op >= Ifeq && op <= Jsr) || op == Ifnull || op == Ifnonnull || op == GotoW || op == JsrW
}

func (op Opcode) isLocalAccess() bool {
	return (op >= Iload && op <= Aload) || (op >= Istore && op <= Astore) || op == Ret || op == Iinc
}

var newarrayTypes = map[int]string{
	4: "boolean", 5: "char", 6: "float", 7: "double",
	8: "byte", 9: "short", 10: "int", 11: "long",
}
