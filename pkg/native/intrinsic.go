package native

import (
	"fmt"
	"strings"

	"github.com/daimatz/jvmc/pkg/metadata"
	"github.com/rs/zerolog"
)

// Intrinsic names a method whose body the runtime supplies.
type Intrinsic struct {
	Class string // internal name
	Name  string
	Desc  string
}

func (i Intrinsic) String() string {
	return strings.ReplaceAll(i.Class, "/", ".") + "." + i.Name + i.Desc
}

// ParseIntrinsic parses pkg.Cls.name(desc), for example
// java.lang.Integer.toString()Ljava/lang/String;.
func ParseIntrinsic(s string) (Intrinsic, error) {
	paren := strings.IndexByte(s, '(')
	if paren < 0 {
		return Intrinsic{}, fmt.Errorf("invalid intrinsic format %q", s)
	}
	dot := strings.LastIndexByte(s[:paren], '.')
	if dot <= 0 || dot == paren-1 {
		return Intrinsic{}, fmt.Errorf("invalid intrinsic format %q", s)
	}
	return Intrinsic{
		Class: strings.ReplaceAll(s[:dot], ".", "/"),
		Name:  s[dot+1 : paren],
		Desc:  s[paren:],
	}, nil
}

// MarkIntrinsics flags every listed method so that only its prototype is
// generated. Bad entries and unknown methods are logged and skipped. The
// classes of the listed methods are returned so the caller can keep them.
func MarkIntrinsics(r metadata.Resolver, specs []string, log zerolog.Logger) []string {
	var classes []string
	for _, s := range specs {
		in, err := ParseIntrinsic(s)
		if err != nil {
			log.Warn().Str("intrinsic", s).Msg("invalid intrinsic format")
			continue
		}
		c, ok := r.Lookup(in.Class)
		if !ok {
			log.Warn().Str("intrinsic", s).Msg("failed to find class for intrinsic")
			continue
		}
		classes = append(classes, c.Name)
		m := c.FindMethod(in.Name, in.Desc)
		if m == nil {
			log.Warn().Str("intrinsic", s).Msg("failed to mark method as intrinsic")
			continue
		}
		m.Intrinsic = true
	}
	return classes
}
