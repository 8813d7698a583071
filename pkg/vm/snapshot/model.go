// Package snapshot implements vm.Target over a captured image of a VM
// process.
//
// An image is described by a YAML document listing the mapped memory
// segments of the process together with the runtime structures living in
// them: classes, methods, constant pools, code blobs with their safepoint
// tables, interpreter codelets and thread stacks. Addresses are written as
// YAML integers (0x prefixed hex is accepted) and byte contents as hex
// strings. Debug information of compiled code is given structurally and
// encoded into the VM compressed stream format when the image is loaded.
package snapshot

import "github.com/Manu343726/vmlens/pkg/vm"

// Model is the YAML document describing an image
type Model struct {
	CodeCache     RangeModel          `yaml:"code_cache"`
	Segments      []SegmentModel      `yaml:"segments"`
	Classes       []ClassModel        `yaml:"classes"`
	Methods       []MethodModel       `yaml:"methods"`
	ConstantPools []ConstantPoolModel `yaml:"constant_pools"`
	Blobs         []BlobModel         `yaml:"blobs"`
	Codelets      []CodeletModel      `yaml:"codelets"`
	Threads       []ThreadModel       `yaml:"threads"`
}

type RangeModel struct {
	Begin vm.Address `yaml:"begin"`
	End   vm.Address `yaml:"end"`
}

// SegmentModel is a run of mapped memory starting at Base
type SegmentModel struct {
	Base  vm.Address `yaml:"base"`
	Bytes string     `yaml:"bytes"`
}

type ArrayModel struct {
	Element    string `yaml:"element"`
	Dimensions int    `yaml:"dimensions"`
}

type FieldModel struct {
	Name        string `yaml:"name"`
	Signature   string `yaml:"signature"`
	AccessFlags uint16 `yaml:"access_flags"`
	Offset      int    `yaml:"offset"`
}

type ClassModel struct {
	Address          vm.Address   `yaml:"address"`
	Name             string       `yaml:"name"`
	AccessFlags      uint16       `yaml:"access_flags"`
	GenericSignature string       `yaml:"generic_signature"`
	SourceFile       string       `yaml:"source_file"`
	Super            vm.Address   `yaml:"super"`
	Interfaces       []vm.Address `yaml:"interfaces"`
	Fields           []FieldModel `yaml:"fields"`
	Methods          []vm.Address `yaml:"methods"`
	ConstantPool     vm.Address   `yaml:"constant_pool"`
	Array            *ArrayModel  `yaml:"array"`
	MajorVersion     uint16       `yaml:"major_version"`
	MinorVersion     uint16       `yaml:"minor_version"`
}

type ExceptionModel struct {
	Start     int `yaml:"start"`
	End       int `yaml:"end"`
	Handler   int `yaml:"handler"`
	CatchType int `yaml:"catch_type"`
}

type LineModel struct {
	BCI  int `yaml:"bci"`
	Line int `yaml:"line"`
}

type LocalModel struct {
	Start     int    `yaml:"start"`
	Length    int    `yaml:"length"`
	Slot      int    `yaml:"slot"`
	Name      string `yaml:"name"`
	Signature string `yaml:"signature"`
}

type MethodModel struct {
	Address     vm.Address `yaml:"address"`
	Holder      vm.Address `yaml:"holder"`
	Name        string     `yaml:"name"`
	Signature   string     `yaml:"signature"`
	AccessFlags uint16     `yaml:"access_flags"`
	// Bytecode is the hex encoded classfile form of the method code
	Bytecode       string           `yaml:"bytecode"`
	MaxStack       int              `yaml:"max_stack"`
	MaxLocals      int              `yaml:"max_locals"`
	Code           vm.Address       `yaml:"code"`
	ExceptionTable []ExceptionModel `yaml:"exception_table"`
	LineNumbers    []LineModel      `yaml:"line_numbers"`
	Locals         []LocalModel     `yaml:"locals"`
}

// ConstantModel is a constant pool entry. Long and Double entries take two
// pool indices; the following entry lands after the unusable slot.
type ConstantModel struct {
	Tag     string     `yaml:"tag"`
	Int     int64      `yaml:"int"`
	Float   float64    `yaml:"float"`
	Text    string     `yaml:"text"`
	Class   vm.Address `yaml:"class"`
	Index1  int        `yaml:"index1"`
	Index2  int        `yaml:"index2"`
	RefKind int        `yaml:"ref_kind"`
}

type ConstantPoolModel struct {
	Address vm.Address      `yaml:"address"`
	Holder  vm.Address      `yaml:"holder"`
	Entries []ConstantModel `yaml:"entries"`
}

type MarkersModel struct {
	Entry            vm.Address `yaml:"entry"`
	VerifiedEntry    vm.Address `yaml:"verified_entry"`
	OSREntry         vm.Address `yaml:"osr_entry"`
	ExceptionHandler vm.Address `yaml:"exception_handler"`
	DeoptHandler     vm.Address `yaml:"deopt_handler"`
	StubBegin        vm.Address `yaml:"stub_begin"`
}

// OopModel is an object constant embedded in compiled code
type OopModel struct {
	Address vm.Address `yaml:"address"`
	Klass   vm.Address `yaml:"klass"`
	Mirror  vm.Address `yaml:"mirror"`
}

// ValueModel describes a debug info value. Kind is one of stack, reg, int,
// long, double, oop, object or object_ref.
type ValueModel struct {
	Kind   string       `yaml:"kind"`
	Type   string       `yaml:"type"`
	Offset int          `yaml:"offset"`
	Value  int64        `yaml:"value"`
	Double float64      `yaml:"double"`
	Oop    int          `yaml:"oop"`
	ID     int          `yaml:"id"`
	Klass  int          `yaml:"klass"`
	Fields []ValueModel `yaml:"fields"`
}

type MonitorModel struct {
	Owner      ValueModel `yaml:"owner"`
	Lock       ValueModel `yaml:"lock"`
	Eliminated bool       `yaml:"eliminated"`
}

// ScopeModel is one inlined frame. Method is a 1-based index into the blob
// metadata table.
type ScopeModel struct {
	Method      int            `yaml:"method"`
	BCI         int            `yaml:"bci"`
	Locals      []ValueModel   `yaml:"locals"`
	Expressions []ValueModel   `yaml:"expressions"`
	Monitors    []MonitorModel `yaml:"monitors"`
}

// SafepointModel lists the inlining chain at a pc, outermost frame first
type SafepointModel struct {
	PC      vm.Address   `yaml:"pc"`
	Scopes  []ScopeModel `yaml:"scopes"`
	Objects []ValueModel `yaml:"objects"`
}

type OopMapSlotModel struct {
	Kind     string `yaml:"kind"`
	Register string `yaml:"register"`
	Stack    int    `yaml:"stack"`
}

type OopMapModel struct {
	PC    vm.Address        `yaml:"pc"`
	Slots []OopMapSlotModel `yaml:"slots"`
}

// BlobModel is a code blob. Address is the blob header; Begin and End
// delimit its instructions.
type BlobModel struct {
	Address    vm.Address       `yaml:"address"`
	Name       string           `yaml:"name"`
	Kind       string           `yaml:"kind"`
	Begin      vm.Address       `yaml:"begin"`
	End        vm.Address       `yaml:"end"`
	Method     vm.Address       `yaml:"method"`
	Markers    MarkersModel     `yaml:"markers"`
	Metadata   []vm.Address     `yaml:"metadata"`
	Oops       []OopModel       `yaml:"oops"`
	Safepoints []SafepointModel `yaml:"safepoints"`
	OopMaps    []OopMapModel    `yaml:"oop_maps"`
}

type CodeletModel struct {
	Begin       vm.Address `yaml:"begin"`
	End         vm.Address `yaml:"end"`
	Description string     `yaml:"description"`
	Bytecode    string     `yaml:"bytecode"`
}

type FrameModel struct {
	Method vm.Address `yaml:"method"`
	BCI    int        `yaml:"bci"`
	PC     vm.Address `yaml:"pc"`
	Kind   string     `yaml:"kind"`
	// Receiver is the object in local slot 0. A zero address means the slot
	// does not hold an object.
	Receiver      vm.Address `yaml:"receiver"`
	ReceiverKlass vm.Address `yaml:"receiver_klass"`
}

type ThreadModel struct {
	Name   string       `yaml:"name"`
	ID     int          `yaml:"id"`
	Frames []FrameModel `yaml:"frames"`
}
