package native

import (
	"bytes"
	"sort"
	"testing"

	"github.com/daimatz/jvmc/pkg/metadata"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntime(t *testing.T) {
	assert.True(t, sort.StringsAreSorted(Runtime))
	assert.True(t, IsRuntime("java/lang/String"))
	assert.True(t, IsRuntime("java/lang/Thread$UncaughtExceptionHandler"))
	assert.False(t, IsRuntime("app/Main"))
}

func TestParseIntrinsic(t *testing.T) {
	tests := []struct {
		input   string
		want    Intrinsic
		wantErr bool
	}{
		{
			input: "java.lang.Integer.toString()Ljava/lang/String;",
			want:  Intrinsic{Class: "java/lang/Integer", Name: "toString", Desc: "()Ljava/lang/String;"},
		},
		{
			input: "app.Outer$Inner.run(I)V",
			want:  Intrinsic{Class: "app/Outer$Inner", Name: "run", Desc: "(I)V"},
		},
		{input: "java.lang.Integer.toString", wantErr: true},
		{input: "toString()V", wantErr: true},
		{input: "java.lang.Integer.()V", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseIntrinsic(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestMarkIntrinsics(t *testing.T) {
	integer := &metadata.Class{Name: "java/lang/Integer"}
	toString := &metadata.Method{Owner: integer, Name: "toString", Descriptor: "()Ljava/lang/String;"}
	parse := &metadata.Method{Owner: integer, Name: "parseInt", Descriptor: "(Ljava/lang/String;)I"}
	integer.Methods = []*metadata.Method{toString, parse}
	classes := metadata.ClassMap{}
	classes.Add(integer)

	var buf bytes.Buffer
	got := MarkIntrinsics(classes, []string{
		"java.lang.Integer.toString()Ljava/lang/String;",
		"broken",
		"java.lang.Missing.f()V",
		"java.lang.Integer.nope()V",
	}, zerolog.New(&buf))

	assert.Equal(t, []string{"java/lang/Integer", "java/lang/Integer"}, got)
	assert.True(t, toString.Intrinsic)
	assert.False(t, toString.HasBody())
	assert.False(t, parse.Intrinsic)

	log := buf.String()
	assert.Contains(t, log, "invalid intrinsic format")
	assert.Contains(t, log, "failed to find class for intrinsic")
	assert.Contains(t, log, "failed to mark method as intrinsic")
}
