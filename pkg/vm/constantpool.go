package vm

import "fmt"

// ConstantTag identifies the kind of a constant pool entry. Class file tags
// keep their numbering; the VM specific tags used for entries that were
// not resolved yet start at 100.
type ConstantTag uint8

const (
	TagInvalid            ConstantTag = 0
	TagUtf8               ConstantTag = 1
	TagInteger            ConstantTag = 3
	TagFloat              ConstantTag = 4
	TagLong               ConstantTag = 5
	TagDouble             ConstantTag = 6
	TagClass              ConstantTag = 7
	TagString             ConstantTag = 8
	TagFieldref           ConstantTag = 9
	TagMethodref          ConstantTag = 10
	TagInterfaceMethodref ConstantTag = 11
	TagNameAndType        ConstantTag = 12
	TagMethodHandle       ConstantTag = 15
	TagMethodType         ConstantTag = 16
	TagDynamic            ConstantTag = 17
	TagInvokeDynamic      ConstantTag = 18

	TagUnresolvedClass        ConstantTag = 100
	TagClassIndex             ConstantTag = 101
	TagStringIndex            ConstantTag = 102
	TagUnresolvedClassInError ConstantTag = 103
)

var constantTagNames = map[ConstantTag]string{
	TagInvalid:                "JVM_CONSTANT_Invalid",
	TagUtf8:                   "JVM_CONSTANT_Utf8",
	TagInteger:                "JVM_CONSTANT_Integer",
	TagFloat:                  "JVM_CONSTANT_Float",
	TagLong:                   "JVM_CONSTANT_Long",
	TagDouble:                 "JVM_CONSTANT_Double",
	TagClass:                  "JVM_CONSTANT_Class",
	TagString:                 "JVM_CONSTANT_String",
	TagFieldref:               "JVM_CONSTANT_Fieldref",
	TagMethodref:              "JVM_CONSTANT_Methodref",
	TagInterfaceMethodref:     "JVM_CONSTANT_InterfaceMethodref",
	TagNameAndType:            "JVM_CONSTANT_NameAndType",
	TagMethodHandle:           "JVM_CONSTANT_MethodHandle",
	TagMethodType:             "JVM_CONSTANT_MethodType",
	TagDynamic:                "JVM_CONSTANT_Dynamic",
	TagInvokeDynamic:          "JVM_CONSTANT_InvokeDynamic",
	TagUnresolvedClass:        "JVM_CONSTANT_UnresolvedClass",
	TagClassIndex:             "JVM_CONSTANT_ClassIndex",
	TagStringIndex:            "JVM_CONSTANT_StringIndex",
	TagUnresolvedClassInError: "JVM_CONSTANT_UnresolvedClassInError",
}

func (t ConstantTag) String() string {
	if name, ok := constantTagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("JVM_CONSTANT_%d", uint8(t))
}

// IsDoubleSlot returns true for tags whose entry occupies two consecutive
// pool indices.
func (t ConstantTag) IsDoubleSlot() bool {
	return t == TagLong || t == TagDouble
}

// ParseConstantTag accepts both the short (Utf8) and long
// (JVM_CONSTANT_Utf8) tag names.
func ParseConstantTag(name string) (ConstantTag, error) {
	for tag, long := range constantTagNames {
		if long == name || long == "JVM_CONSTANT_"+name {
			return tag, nil
		}
	}
	return TagInvalid, fmt.Errorf("%w: unknown tag '%s'", ErrInvalidConstant, name)
}

// Constant is a decoded constant pool entry. Which fields are meaningful
// depends on Tag:
//
//   - Integer, Long: Int
//   - Float, Double: Float
//   - Utf8, String: Text
//   - Class: Class is the resolved class, Text its name
//   - UnresolvedClass: Text is the class name
//   - ClassIndex, StringIndex: Index1 is the Utf8 index
//   - Fieldref, Methodref, InterfaceMethodref: Index1 is the class index,
//     Index2 the name-and-type index
//   - NameAndType: Index1 name index, Index2 descriptor index
//   - MethodHandle: RefKind and Index1 the referenced member
//   - MethodType: Index1 descriptor index
//   - Dynamic, InvokeDynamic: Index1 bootstrap method index, Index2 the
//     name-and-type index
type Constant struct {
	Tag     ConstantTag
	Int     int64
	Float   float64
	Text    string
	Class   Class
	Index1  int
	Index2  int
	RefKind int
}

// ConstantPool is the runtime constant pool of a class. Index 0 is never
// valid; valid indices are 1..Length()-1.
type ConstantPool interface {
	Handle
	Holder() Class
	Length() int
	// TagAt returns the tag of an entry without decoding it
	TagAt(index int) (ConstantTag, error)
	At(index int) (Constant, error)
}

// SymbolAt returns the Utf8 text at the given index
func SymbolAt(cp ConstantPool, index int) (string, error) {
	c, err := cp.At(index)
	if err != nil {
		return "", err
	}
	if c.Tag != TagUtf8 {
		return "", fmt.Errorf("%w: entry %d is %v, not Utf8", ErrInvalidConstant, index, c.Tag)
	}
	return c.Text, nil
}

// ClassNameAt returns the name of the class referenced by a Class or
// UnresolvedClass entry.
func ClassNameAt(cp ConstantPool, index int) (string, error) {
	c, err := cp.At(index)
	if err != nil {
		return "", err
	}
	switch c.Tag {
	case TagClass:
		if c.Class != nil {
			return c.Class.Name(), nil
		}
		return c.Text, nil
	case TagUnresolvedClass, TagUnresolvedClassInError:
		return c.Text, nil
	case TagClassIndex:
		return SymbolAt(cp, c.Index1)
	default:
		return "", fmt.Errorf("%w: entry %d is %v, not a class", ErrInvalidConstant, index, c.Tag)
	}
}

// MemberRef is a decoded field or method reference
type MemberRef struct {
	ClassIndex int
	ClassName  string
	Class      Class
	Name       string
	Signature  string
}

// MemberRefAt decodes a Fieldref, Methodref or InterfaceMethodref entry.
// Class is only set when the referenced class entry is resolved.
func MemberRefAt(cp ConstantPool, index int) (MemberRef, error) {
	c, err := cp.At(index)
	if err != nil {
		return MemberRef{}, err
	}
	switch c.Tag {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
	default:
		return MemberRef{}, fmt.Errorf("%w: entry %d is %v, not a member reference", ErrInvalidConstant, index, c.Tag)
	}

	ref := MemberRef{ClassIndex: c.Index1}
	if ref.ClassName, err = ClassNameAt(cp, c.Index1); err != nil {
		return MemberRef{}, err
	}
	if klass, err := cp.At(c.Index1); err == nil && klass.Tag == TagClass {
		ref.Class = klass.Class
	}
	if ref.Name, ref.Signature, err = NameAndTypeAt(cp, c.Index2); err != nil {
		return MemberRef{}, err
	}
	return ref, nil
}

// NameAndTypeAt decodes a NameAndType entry
func NameAndTypeAt(cp ConstantPool, index int) (name, signature string, err error) {
	c, err := cp.At(index)
	if err != nil {
		return "", "", err
	}
	if c.Tag != TagNameAndType {
		return "", "", fmt.Errorf("%w: entry %d is %v, not NameAndType", ErrInvalidConstant, index, c.Tag)
	}
	if name, err = SymbolAt(cp, c.Index1); err != nil {
		return "", "", err
	}
	if signature, err = SymbolAt(cp, c.Index2); err != nil {
		return "", "", err
	}
	return name, signature, nil
}
