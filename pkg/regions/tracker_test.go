package regions

import (
	"errors"
	"strings"
	"testing"

	"github.com/daimatz/jvmc/pkg/diag"
	"github.com/daimatz/jvmc/pkg/instruction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(n int) []*instruction.Label {
	out := make([]*instruction.Label, n+1)
	for i := 1; i <= n; i++ {
		out[i] = &instruction.Label{ID: i, Offset: i * 10}
	}
	return out
}

func mark(l *instruction.Label) instruction.Instruction { return &instruction.LabelMark{Label: l} }

func nop() instruction.Instruction { return &instruction.Basic{Op: instruction.OpNop} }

// nested builds:
//
//	try {            // L1, region 0
//	    try {        // L2, region 1
//	    }            // L3
//	}                // L4
//	handler          // L5
func nested(l []*instruction.Label) []instruction.Instruction {
	return []instruction.Instruction{
		&instruction.TryRegionBegin{Start: l[1], Handler: l[5], Exception: "java/lang/Exception", Region: 0},
		&instruction.TryRegionEnd{End: l[4], Region: 0},
		&instruction.TryRegionBegin{Start: l[2], Handler: l[5], Region: 1},
		&instruction.TryRegionEnd{End: l[3], Region: 1},
		mark(l[1]), nop(),
		mark(l[2]), nop(),
		mark(l[3]), nop(),
		mark(l[4]), &instruction.Branch{Op: instruction.OpGoto, Target: l[6]},
		mark(l[5]), &instruction.Basic{Op: instruction.OpPop},
		mark(l[6]), &instruction.Basic{Op: instruction.OpReturn},
	}
}

func TestNestedDepth(t *testing.T) {
	for _, synchronized := range []bool{false, true} {
		l := labels(6)
		tr := New(nested(l), synchronized)
		base := tr.Base()
		if synchronized {
			assert.Equal(t, 1, base)
		}

		assert.Equal(t, base, tr.Depth(l[1]))
		assert.Equal(t, base+1, tr.Depth(l[2]))
		assert.Equal(t, base+2, tr.Depth(l[3]))
		assert.Equal(t, base+1, tr.Depth(l[4]))
		assert.Equal(t, 1, tr.Depth(l[3])-tr.Depth(l[4]), "inner end closes exactly one region")
		assert.Equal(t, base, tr.Depth(l[5]))
		require.NoError(t, tr.Validate())
	}
}

func TestEmitLabel(t *testing.T) {
	l := labels(6)
	tr := New(nested(l), false)

	var b strings.Builder
	tr.EmitLabel(&b, l[1])
	assert.Equal(t, "label_1:\n"+
		"    tryBlockOffset1cn1_class_id_java_lang_Exception0 = threadStateData->tryBlockOffset;\n"+
		"    BEGIN_TRY(cn1_class_id_java_lang_Exception, catch_1cn1_class_id_java_lang_Exception0);\n"+
		"    restoreTo1cn1_class_id_java_lang_Exception0 = threadStateData->threadObjectStackOffset;\n",
		b.String())

	b.Reset()
	tr.EmitLabel(&b, l[3])
	assert.Equal(t, "label_3:\n    END_TRY(2);\n", b.String())

	b.Reset()
	tr.EmitLabel(&b, l[5])
	assert.Equal(t, "label_5:\n", b.String())
}

func TestBeginsInReverseOrder(t *testing.T) {
	l := labels(3)
	tr := New([]instruction.Instruction{
		&instruction.TryRegionBegin{Start: l[1], Handler: l[3], Exception: "java/io/IOException", Region: 0},
		&instruction.TryRegionEnd{End: l[2], Region: 0},
		&instruction.TryRegionBegin{Start: l[1], Handler: l[3], Region: 1},
		&instruction.TryRegionEnd{End: l[2], Region: 1},
		mark(l[1]), nop(), mark(l[2]), nop(), mark(l[3]), nop(),
	}, false)

	var b strings.Builder
	tr.EmitLabel(&b, l[1])
	out := b.String()
	inner := strings.Index(out, "BEGIN_TRY(cn1_class_id_java_lang_Throwable")
	outer := strings.Index(out, "BEGIN_TRY(cn1_class_id_java_io_IOException")
	require.True(t, inner >= 0 && outer >= 0)
	assert.Less(t, inner, outer)

	b.Reset()
	tr.EmitLabel(&b, l[2])
	assert.Equal(t, "label_2:\n    END_TRY(2);\n", b.String())
	require.NoError(t, tr.Validate())
}

func TestLabelClosesAndOpens(t *testing.T) {
	l := labels(4)
	tr := New([]instruction.Instruction{
		&instruction.TryRegionBegin{Start: l[1], Handler: l[4], Region: 0},
		&instruction.TryRegionEnd{End: l[2], Region: 0},
		&instruction.TryRegionBegin{Start: l[2], Handler: l[4], Region: 1},
		&instruction.TryRegionEnd{End: l[3], Region: 1},
		mark(l[1]), nop(), mark(l[2]), nop(), mark(l[3]), nop(), mark(l[4]), nop(),
	}, false)
	require.NoError(t, tr.Validate())

	var b strings.Builder
	tr.EmitLabel(&b, l[2])
	assert.Equal(t, "label_2:\n"+
		"    END_TRY(1);\n"+
		"    tryBlockOffset2cn1_class_id_java_lang_Throwable1 = threadStateData->tryBlockOffset;\n"+
		"    BEGIN_TRY(cn1_class_id_java_lang_Throwable, catch_2cn1_class_id_java_lang_Throwable1);\n"+
		"    restoreTo2cn1_class_id_java_lang_Throwable1 = threadStateData->threadObjectStackOffset;\n",
		b.String())
}

// render emits labels through the tracker and every other instruction as
// its type name, which is enough to compare label output.
func render(instrs []instruction.Instruction, synchronized bool) string {
	tr := New(instrs, synchronized)
	var b strings.Builder
	tr.Declarations(&b)
	for _, ins := range instrs {
		if m, ok := ins.(*instruction.LabelMark); ok {
			tr.EmitLabel(&b, m.Label)
			continue
		}
		if _, ok := ins.(*instruction.Basic); ok {
			b.WriteString("    op;\n")
		}
	}
	tr.CatchStubs(&b)
	return b.String()
}

func TestDeadLabelElision(t *testing.T) {
	l := labels(6)
	instrs := nested(l)
	want := render(instrs, false)

	dead := &instruction.Label{ID: 42, Offset: 25}
	withDead := make([]instruction.Instruction, 0, len(instrs)+1)
	for _, ins := range instrs {
		if m, ok := ins.(*instruction.LabelMark); ok && m.Label == l[3] {
			withDead = append(withDead, mark(dead))
		}
		withDead = append(withDead, ins)
	}

	assert.Equal(t, want, render(withDead, false))
	assert.NotContains(t, want, "label_42")
	assert.False(t, New(withDead, false).Used(dead))
}

func TestDeclarationsAndStubs(t *testing.T) {
	l := labels(6)
	tr := New(nested(l), false)

	var b strings.Builder
	tr.Declarations(&b)
	assert.Equal(t, "    volatile JAVA_INT tryBlockOffset1cn1_class_id_java_lang_Exception0;\n"+
		"    volatile JAVA_INT restoreTo1cn1_class_id_java_lang_Exception0;\n"+
		"    volatile JAVA_INT tryBlockOffset2cn1_class_id_java_lang_Throwable1;\n"+
		"    volatile JAVA_INT restoreTo2cn1_class_id_java_lang_Throwable1;\n", b.String())

	b.Reset()
	tr.CatchStubs(&b)
	stubs := b.String()
	assert.Equal(t, 2, strings.Count(stubs, "goto label_5;"))
	assert.Contains(t, stubs, "    catch_2cn1_class_id_java_lang_Throwable1:\n"+
		"        threadStateData->threadObjectStackOffset = restoreTo2cn1_class_id_java_lang_Throwable1;\n"+
		"        threadStateData->tryBlockOffset = tryBlockOffset2cn1_class_id_java_lang_Throwable1;\n"+
		"        SP = stack;\n"+
		"        PUSH_OBJ(threadStateData->exception);\n")
}

func TestValidate(t *testing.T) {
	l := labels(4)
	missing := &instruction.Label{ID: 9}
	tests := []struct {
		name   string
		instrs []instruction.Instruction
		label  string
	}{
		{
			name: "end before begin",
			instrs: []instruction.Instruction{
				&instruction.TryRegionBegin{Start: l[2], Handler: l[3], Region: 0},
				&instruction.TryRegionEnd{End: l[1], Region: 0},
				mark(l[1]), nop(), mark(l[2]), nop(), mark(l[3]), nop(),
			},
			label: "label_1",
		},
		{
			name: "never closed",
			instrs: []instruction.Instruction{
				&instruction.TryRegionBegin{Start: l[1], Handler: l[3], Region: 0},
				mark(l[1]), nop(), mark(l[3]), nop(),
			},
		},
		{
			name: "marker label not placed",
			instrs: []instruction.Instruction{
				&instruction.TryRegionBegin{Start: l[1], Handler: l[3], Region: 0},
				&instruction.TryRegionEnd{End: missing, Region: 0},
				mark(l[1]), nop(), mark(l[3]), nop(),
			},
			label: "label_9",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.instrs, false).Validate()
			var v *diag.RegionInvariantViolation
			require.True(t, errors.As(err, &v), "got %v", err)
			assert.Equal(t, tt.label, v.Label)
		})
	}
}

func TestReset(t *testing.T) {
	l := labels(6)
	tr := New(nested(l), true)
	require.True(t, tr.Used(l[1]))
	tr.Reset()
	assert.False(t, tr.Used(l[1]))
	assert.Equal(t, 0, tr.Base())
}
