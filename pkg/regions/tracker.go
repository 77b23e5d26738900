// Package regions rebuilds exception region nesting from the flat region
// markers of a method and emits the try bookkeeping attached to labels.
package regions

import (
	"fmt"
	"strings"

	"github.com/daimatz/jvmc/pkg/descriptor"
	"github.com/daimatz/jvmc/pkg/diag"
	"github.com/daimatz/jvmc/pkg/instruction"
)

// Pair is one region opening at a label.
type Pair struct {
	Class   string // caught class, internal name
	Counter int
	Handler *instruction.Label
}

// ClassID returns the runtime class id constant of the caught class.
func (p Pair) ClassID() string {
	return "cn1_class_id_" + descriptor.SanitizeClass(p.Class)
}

type entry struct {
	label *instruction.Label
	pair  Pair
}

// Tracker holds the region registries of one method. It is created per
// method and must not be shared between methods.
type Tracker struct {
	instrs []instruction.Instruction
	base   int

	begins  map[*instruction.Label][]Pair
	ends    map[*instruction.Label]int
	used    map[*instruction.Label]bool
	depths  map[*instruction.Label]int
	entries []entry
}

// New scans instrs once and registers every region marker and label use.
// A synchronized method starts one level deep for its monitor block.
func New(instrs []instruction.Instruction, synchronized bool) *Tracker {
	t := &Tracker{instrs: instrs}
	t.Reset()
	if synchronized {
		t.base = 1
	}
	for _, ins := range instrs {
		switch x := ins.(type) {
		case *instruction.TryRegionBegin:
			p := Pair{Class: x.CatchType(), Counter: x.Region, Handler: x.Handler}
			t.begins[x.Start] = append(t.begins[x.Start], p)
			t.entries = append(t.entries, entry{x.Start, p})
			t.used[x.Start] = true
			t.used[x.Handler] = true
		case *instruction.TryRegionEnd:
			t.ends[x.End]++
			t.used[x.End] = true
		default:
			for _, l := range instruction.Targets(ins) {
				t.used[l] = true
			}
		}
	}
	return t
}

// Reset clears all registries.
func (t *Tracker) Reset() {
	t.base = 0
	t.begins = map[*instruction.Label][]Pair{}
	t.ends = map[*instruction.Label]int{}
	t.used = map[*instruction.Label]bool{}
	t.depths = map[*instruction.Label]int{}
	t.entries = nil
}

// Base returns the depth at method entry.
func (t *Tracker) Base() int { return t.base }

// Used reports whether any instruction refers to l.
func (t *Tracker) Used(l *instruction.Label) bool { return t.used[l] }

// Depth returns the number of regions open just before l: begins minus
// ends at labels placed strictly before it, plus the method base.
func (t *Tracker) Depth(l *instruction.Label) int {
	if d, ok := t.depths[l]; ok {
		return d
	}
	d := t.base
	for _, ins := range t.instrs {
		m, ok := ins.(*instruction.LabelMark)
		if !ok {
			continue
		}
		if m.Label == l {
			break
		}
		d += len(t.begins[m.Label]) - t.ends[m.Label]
	}
	t.depths[l] = d
	return d
}

func (t *Tracker) suffix(l *instruction.Label, p Pair) string {
	return fmt.Sprintf("%d%s%d", l.ID, p.ClassID(), p.Counter)
}

// EmitLabel writes the label and its region bookkeeping. Unused labels
// produce no output.
func (t *Tracker) EmitLabel(b *strings.Builder, l *instruction.Label) {
	if !t.used[l] {
		return
	}
	fmt.Fprintf(b, "%s:\n", l.Name())
	// A label that closes regions may also open the next ones. END_TRY
	// comes first so the depth seen by the new BEGIN_TRY blocks is right.
	if t.ends[l] > 0 {
		fmt.Fprintf(b, "    END_TRY(%d);\n", t.Depth(l))
	}
	pairs := t.begins[l]
	for i := len(pairs) - 1; i >= 0; i-- {
		s := t.suffix(l, pairs[i])
		fmt.Fprintf(b, "    tryBlockOffset%s = threadStateData->tryBlockOffset;\n", s)
		fmt.Fprintf(b, "    BEGIN_TRY(%s, catch_%s);\n", pairs[i].ClassID(), s)
		fmt.Fprintf(b, "    restoreTo%s = threadStateData->threadObjectStackOffset;\n", s)
	}
}

// Declarations writes the C locals used by the regions of the method.
func (t *Tracker) Declarations(b *strings.Builder) {
	for _, e := range t.entries {
		s := t.suffix(e.label, e.pair)
		fmt.Fprintf(b, "    volatile JAVA_INT tryBlockOffset%s;\n", s)
		fmt.Fprintf(b, "    volatile JAVA_INT restoreTo%s;\n", s)
	}
}

// CatchStubs writes the landing code of every region. A stub restores the
// saved offsets, pushes the pending exception and jumps to the handler.
func (t *Tracker) CatchStubs(b *strings.Builder) {
	for _, e := range t.entries {
		s := t.suffix(e.label, e.pair)
		fmt.Fprintf(b, "    if(0) {\n    catch_%s:\n", s)
		fmt.Fprintf(b, "        threadStateData->threadObjectStackOffset = restoreTo%s;\n", s)
		fmt.Fprintf(b, "        threadStateData->tryBlockOffset = tryBlockOffset%s;\n", s)
		b.WriteString("        SP = stack;\n        PUSH_OBJ(threadStateData->exception);\n")
		fmt.Fprintf(b, "        goto %s;\n    }\n", e.pair.Handler.Name())
	}
}

// Validate replays the label stream and checks that the open region count
// never drops below the base and returns to it at the end. Region and
// handler labels missing from the stream are violations too.
func (t *Tracker) Validate() error {
	placed := map[*instruction.Label]bool{}
	running := t.base
	for _, ins := range t.instrs {
		m, ok := ins.(*instruction.LabelMark)
		if !ok {
			continue
		}
		placed[m.Label] = true
		running -= t.ends[m.Label]
		if running < t.base {
			return &diag.RegionInvariantViolation{Label: m.Label.Name(), Depth: running, Base: t.base}
		}
		running += len(t.begins[m.Label])
	}
	for _, ins := range t.instrs {
		switch ins.(type) {
		case *instruction.TryRegionBegin, *instruction.TryRegionEnd:
			for _, l := range instruction.Targets(ins) {
				if !placed[l] {
					return &diag.RegionInvariantViolation{Label: l.Name(), Depth: -1, Base: t.base}
				}
			}
		}
	}
	if running != t.base {
		return &diag.RegionInvariantViolation{Depth: running, Base: t.base}
	}
	return nil
}
