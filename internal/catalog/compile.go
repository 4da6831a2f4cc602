package catalog

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/tandem/internal/ir"
	"github.com/roach88/tandem/internal/statetree"
)

// Op is a mutation operation.
type Op string

const (
	OpSet    Op = "set"
	OpAdd    Op = "add"
	OpSub    Op = "sub"
	OpAppend Op = "append"
	OpDelete Op = "delete"
)

func (o Op) valid() bool {
	switch o {
	case OpSet, OpAdd, OpSub, OpAppend, OpDelete:
		return true
	}
	return false
}

// MutationSpec declares one named mutation.
type MutationSpec struct {
	Name    string
	Op      Op
	Path    []string
	Default int64 // add/sub amount when called without arguments
}

// Spec is a compiled tree declaration.
type Spec struct {
	Initial   ir.Value
	Mutations []MutationSpec // in declaration order
}

// LoadFile compiles the tree declared in a CUE file.
func LoadFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return compileSource(data, path)
}

// CompileString compiles the tree declared in CUE source.
func CompileString(src string) (*Spec, error) {
	return compileSource([]byte(src), "catalog.cue")
}

func compileSource(src []byte, filename string) (*Spec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	treeVal := v.LookupPath(cue.ParsePath("tree"))
	if !treeVal.Exists() {
		return nil, &CompileError{
			Field:   "tree",
			Message: "tree is required",
			Pos:     v.Pos(),
		}
	}
	return Compile(treeVal)
}

// Compile parses a CUE value into a Spec.
//
// The CUE value should be the tree struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`tree: { initial: {...}, mutation: {...} }`)
//	spec, err := Compile(v.LookupPath(cue.ParsePath("tree")))
func Compile(v cue.Value) (*Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &Spec{Initial: ir.Null{}}

	initialVal := v.LookupPath(cue.ParsePath("initial"))
	if initialVal.Exists() {
		initial, err := toValue(initialVal, "initial")
		if err != nil {
			return nil, err
		}
		spec.Initial = initial
	}

	mutations, err := parseMutations(v)
	if err != nil {
		return nil, err
	}
	if len(mutations) == 0 {
		return nil, &CompileError{
			Field:   "mutation",
			Message: "at least one mutation is required",
			Pos:     v.Pos(),
		}
	}
	spec.Mutations = mutations

	return spec, nil
}

// parseMutations extracts mutation declarations.
func parseMutations(v cue.Value) ([]MutationSpec, error) {
	var mutations []MutationSpec

	mutationVal := v.LookupPath(cue.ParsePath("mutation"))
	if !mutationVal.Exists() {
		return mutations, nil
	}

	iter, err := mutationVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		mv := iter.Value()
		field := "mutation." + name

		if reserved(name) {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("%q is a reserved action kind", name),
				Pos:     mv.Pos(),
			}
		}

		m := MutationSpec{Name: name, Default: 1}

		opVal := mv.LookupPath(cue.ParsePath("op"))
		if !opVal.Exists() {
			return nil, &CompileError{Field: field + ".op", Message: "op is required", Pos: mv.Pos()}
		}
		op, err := opVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m.Op = Op(op)
		if !m.Op.valid() {
			return nil, &CompileError{
				Field:   field + ".op",
				Message: fmt.Sprintf("unknown op %q (want set, add, sub, append or delete)", op),
				Pos:     opVal.Pos(),
			}
		}

		pathVal := mv.LookupPath(cue.ParsePath("path"))
		if !pathVal.Exists() {
			return nil, &CompileError{Field: field + ".path", Message: "path is required", Pos: mv.Pos()}
		}
		path, err := pathVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m.Path = strings.Split(path, ".")
		for _, key := range m.Path {
			if key == "" {
				return nil, &CompileError{
					Field:   field + ".path",
					Message: fmt.Sprintf("invalid path %q", path),
					Pos:     pathVal.Pos(),
				}
			}
		}

		if defVal := mv.LookupPath(cue.ParsePath("default")); defVal.Exists() {
			if defVal.IncompleteKind() != cue.IntKind {
				return nil, &CompileError{
					Field:   field + ".default",
					Message: "default must be an int",
					Pos:     defVal.Pos(),
				}
			}
			n, err := defVal.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			m.Default = n
		}

		mutations = append(mutations, m)
	}

	return mutations, nil
}

func reserved(name string) bool {
	return name == statetree.ReservedUpdate || name == ir.KindInit || ir.IsToolKind(name)
}

// toValue converts a concrete CUE value to the value model.
// Floats are forbidden - use int instead.
func toValue(v cue.Value, field string) (ir.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.IsConcrete() {
		return nil, &CompileError{
			Field:   field,
			Message: "value must be concrete",
			Pos:     v.Pos(),
		}
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for i := 0; iter.Next(); i++ {
			elem, err := toValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			elem, err := toValue(iter.Value(), field+"."+iter.Label())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "floats are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}
