package instruction

import "github.com/daimatz/jvmc/pkg/descriptor"

// Dependencies returns the classes an instruction refers to directly:
// owners of called methods and accessed fields, instantiated or tested
// classes, class literals and the types of caught exceptions. Array types
// contribute their element class. Duplicates are not removed.
func Dependencies(ins Instruction) []string {
	switch x := ins.(type) {
	case *Push:
		if t, ok := x.Value.(descriptor.Type); ok {
			return typeClasses(t)
		}
		if _, ok := x.Value.(string); ok {
			return []string{"java/lang/String"}
		}
	case *Field:
		return append([]string{x.Owner}, typeClasses(x.Type)...)
	case *Invoke:
		out := []string{x.Owner}
		if len(x.Owner) > 0 && x.Owner[0] == '[' {
			out = []string{"java/lang/Object"}
		}
		for _, p := range x.Type.Params {
			out = append(out, typeClasses(p)...)
		}
		return append(out, typeClasses(x.Type.Return)...)
	case *InvokeDynamic:
		if x.IsStringConcat() {
			return []string{"java/lang/String"}
		}
	case *TypeOp:
		t, err := classType(x.Class)
		if err != nil {
			return nil
		}
		return typeClasses(t)
	case *MultiArray:
		return typeClasses(x.Type)
	case *TryRegionBegin:
		return []string{x.CatchType()}
	}
	return nil
}

func typeClasses(t descriptor.Type) []string {
	if t.Kind != descriptor.Object {
		return nil
	}
	return []string{t.Class}
}
