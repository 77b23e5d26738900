// Package instruction models a method body as a closed set of tagged
// instruction variants and emits the C fragment of each one against an
// explicit operand stack.
package instruction

import (
	"strconv"

	"github.com/daimatz/jvmc/pkg/descriptor"
)

// Label is an opaque program point. Labels are compared by pointer
// identity; ID is only used to print names and is unique per method.
type Label struct {
	ID     int
	Offset int
}

// Name returns the C label name.
func (l *Label) Name() string { return "label_" + strconv.Itoa(l.ID) }

func (l *Label) String() string { return l.Name() }

// Instruction is implemented by the variants in this package only.
type Instruction interface {
	instruction()
}

// Basic is an opcode without operands: arithmetic, conversions, compares,
// stack manipulation, array element access, returns, monitors and athrow.
type Basic struct {
	Op byte
}

// Push loads a constant. Value is nil (null), int32, int64, float32,
// float64, string or descriptor.Type for a class literal.
type Push struct {
	Value any
}

// Var loads or stores a local. Op is always the generic form
// (OpIload, OpAstore, ...), never a _<n> short form.
type Var struct {
	Op    byte
	Index int
}

// Inc is iinc.
type Inc struct {
	Index int
	Delta int
}

// Branch is a conditional or unconditional jump.
type Branch struct {
	Op     byte
	Target *Label
}

// Switch covers tableswitch and lookupswitch. Keys and Targets are
// parallel.
type Switch struct {
	Default *Label
	Keys    []int32
	Targets []*Label
}

// Field is a static or instance field access.
type Field struct {
	Op    byte
	Owner string
	Name  string
	Desc  string
	Type  descriptor.Type
}

// Invoke is a method call. Instances are never mutated after decoding;
// literal operands are supplied through an Overlay instead.
type Invoke struct {
	Op        byte
	Owner     string
	Name      string
	Desc      string
	Type      descriptor.MethodType
	Interface bool
}

// InvokeDynamic is an invokedynamic call site.
type InvokeDynamic struct {
	Name           string
	Desc           string
	Type           descriptor.MethodType
	BootstrapOwner string
	BootstrapName  string
	// Args are the static bootstrap arguments rendered as Go values
	// (string, int32, ... or descriptor.Type).
	Args []any
}

// TypeOp is new, anewarray, checkcast or instanceof. Class is an internal
// class name or, for array types, an array descriptor.
type TypeOp struct {
	Op    byte
	Class string
}

// NewArray is newarray with a primitive element kind.
type NewArray struct {
	Kind descriptor.Kind
}

// MultiArray is multianewarray.
type MultiArray struct {
	Type descriptor.Type
	Dims int
}

// LabelMark places a label in the stream.
type LabelMark struct {
	Label *Label
}

// LineNumber records the source line of the following instructions.
type LineNumber struct {
	Line int
}

// TryRegionBegin opens a guarded region at Start. Exception is the caught
// class, or "" for a catch-all handler. Region numbers the exception table
// entry.
type TryRegionBegin struct {
	Start     *Label
	Handler   *Label
	Exception string
	Region    int
}

// TryRegionEnd closes a guarded region at End.
type TryRegionEnd struct {
	End    *Label
	Region int
}

func (*Basic) instruction()          {}
func (*Push) instruction()           {}
func (*Var) instruction()            {}
func (*Inc) instruction()            {}
func (*Branch) instruction()         {}
func (*Switch) instruction()         {}
func (*Field) instruction()          {}
func (*Invoke) instruction()         {}
func (*InvokeDynamic) instruction()  {}
func (*TypeOp) instruction()         {}
func (*NewArray) instruction()       {}
func (*MultiArray) instruction()     {}
func (*LabelMark) instruction()      {}
func (*LineNumber) instruction()     {}
func (*TryRegionBegin) instruction() {}
func (*TryRegionEnd) instruction()   {}

// CatchType returns the class caught by the region; catch-all regions
// catch java/lang/Throwable.
func (t *TryRegionBegin) CatchType() string {
	if t.Exception == "" {
		return "java/lang/Throwable"
	}
	return t.Exception
}

// DispatchKind is how a call site selects its target.
type DispatchKind int

const (
	Static DispatchKind = iota
	Special
	Virtual
	Interface
)

func (k DispatchKind) String() string {
	switch k {
	case Static:
		return "static"
	case Special:
		return "special"
	case Virtual:
		return "virtual"
	case Interface:
		return "interface"
	}
	return "unknown"
}

// PrivacyResolver reports whether owner declares name+desc as private.
type PrivacyResolver interface {
	IsMethodPrivate(owner, name, desc string) bool
}

// Dispatch returns the dispatch kind of the call. invokevirtual on a
// private method is non-virtual: some compilers emit it for calls that
// cannot be overridden, and private methods have no virtual entry.
func (i *Invoke) Dispatch(r PrivacyResolver) DispatchKind {
	switch i.Op {
	case OpInvokestatic:
		return Static
	case OpInvokespecial:
		return Special
	case OpInvokeinterface:
		return Interface
	}
	if r != nil && r.IsMethodPrivate(i.Owner, i.Name, i.Desc) {
		return Special
	}
	return Virtual
}

// IsArrayClone reports whether the call is clone() on an array type,
// which the runtime implements directly.
func (i *Invoke) IsArrayClone() bool {
	return i.Name == "clone" && len(i.Owner) > 0 && i.Owner[0] == '['
}

// Targets returns every label an instruction refers to.
func Targets(ins Instruction) []*Label {
	switch x := ins.(type) {
	case *Branch:
		return []*Label{x.Target}
	case *Switch:
		return append([]*Label{x.Default}, x.Targets...)
	case *TryRegionBegin:
		return []*Label{x.Start, x.Handler}
	case *TryRegionEnd:
		return []*Label{x.End}
	}
	return nil
}
