// Package update compiles update specifications and applies them to
// documents.
//
// An update spec maps operator names to documents of field paths:
//
//	{"$set": {"in_stock": false}, "$inc": {"stock": -1}}
//
// All operations of a spec are logically simultaneous. Compile rejects specs
// where two operations touch the same or overlapping paths, so the order of
// operator keys never affects the result.
package update

import (
	"strings"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
	"github.com/adfharrison1/go-docquery/pkg/query/filter"
)

// Operator names an update operator.
type Operator string

const (
	OpSet      Operator = "$set"
	OpUnset    Operator = "$unset"
	OpInc      Operator = "$inc"
	OpMul      Operator = "$mul"
	OpMin      Operator = "$min"
	OpMax      Operator = "$max"
	OpPush     Operator = "$push"
	OpPull     Operator = "$pull"
	OpAddToSet Operator = "$addToSet"
)

var knownOperators = map[Operator]bool{
	OpSet: true, OpUnset: true, OpInc: true, OpMul: true, OpMin: true,
	OpMax: true, OpPush: true, OpPull: true, OpAddToSet: true,
}

// Operation is one field mutation of a spec.
type Operation struct {
	Op      Operator
	Path    string
	Operand document.Value

	// each holds the values appended by $push and $addToSet.
	each []document.Value
	// cond is set when $pull removes elements matching an operator condition.
	cond filter.Expr
}

// Spec is a validated update specification.
type Spec struct {
	ops []Operation
}

// Operations returns the operations of the spec in declaration order.
func (s *Spec) Operations() []Operation {
	out := make([]Operation, len(s.ops))
	copy(out, s.ops)
	return out
}

// Paths returns every field path the spec touches.
func (s *Spec) Paths() []string {
	out := make([]string, len(s.ops))
	for i, op := range s.ops {
		out[i] = op.Path
	}
	return out
}

// Document renders the spec in update document form, for logs.
func (s *Spec) Document() *document.Document {
	out := document.New()
	for _, op := range s.ops {
		fields, ok := out.Get(string(op.Op))
		if !ok {
			fields = document.Object(document.New())
			out.Set(string(op.Op), fields)
		}
		d, _ := fields.AsObject()
		d.Set(op.Path, op.Operand)
	}
	return out
}

func (s *Spec) String() string {
	return s.Document().String()
}

type config struct {
	protected []string
}

// Option configures Compile.
type Option func(*config)

// Protect rejects specs that touch any of the given fields or their
// sub-paths. Collections use it for their identity field.
func Protect(fields ...string) Option {
	return func(c *config) {
		c.protected = append(c.protected, fields...)
	}
}

// Compile validates an update document and returns the compiled spec.
func Compile(doc *document.Document, opts ...Option) (*Spec, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if doc == nil || doc.Len() == 0 {
		return nil, domain.Validation("update spec cannot be empty")
	}

	spec := &Spec{}
	for _, key := range doc.Keys() {
		op := Operator(key)
		if !strings.HasPrefix(key, "$") {
			return nil, domain.Validation("update spec field %q is not an operator", key)
		}
		if !knownOperators[op] {
			return nil, domain.Validation("unknown update operator %s", key)
		}
		v, _ := doc.Get(key)
		fields, ok := v.AsObject()
		if !ok {
			return nil, domain.Validation("%s requires a document of fields, got %s", key, v.Kind())
		}
		for _, path := range fields.Keys() {
			operand, _ := fields.Get(path)
			compiled, err := compileOperation(op, path, operand)
			if err != nil {
				return nil, err
			}
			spec.ops = append(spec.ops, compiled)
		}
	}

	if len(spec.ops) == 0 {
		return nil, domain.Validation("update spec has no fields to update")
	}
	if err := checkPaths(spec.ops, cfg.protected); err != nil {
		return nil, err
	}
	return spec, nil
}

func compileOperation(op Operator, path string, operand document.Value) (Operation, error) {
	if err := document.ValidatePath(path); err != nil {
		return Operation{}, err
	}
	compiled := Operation{Op: op, Path: path, Operand: operand}

	switch op {
	case OpInc, OpMul:
		if operand.Kind() != document.KindNumber {
			return Operation{}, domain.TypeError("%s on %q requires a numeric operand, got %s", op, path, operand.Kind())
		}
	case OpPush, OpAddToSet:
		compiled.each = []document.Value{operand}
		if d, ok := operand.AsObject(); ok && d.Has("$each") {
			if d.Len() != 1 {
				return Operation{}, domain.Validation("%s on %q supports only the $each modifier", op, path)
			}
			each, _ := d.Get("$each")
			elems, ok := each.AsArray()
			if !ok {
				return Operation{}, domain.Validation("$each on %q requires an array, got %s", path, each.Kind())
			}
			compiled.each = elems
		}
	case OpPull:
		if d, ok := operand.AsObject(); ok && d.Len() > 0 && strings.HasPrefix(d.Keys()[0], "$") {
			cond, err := filter.Compile(document.NewWith(document.F(pullElementKey, operand)))
			if err != nil {
				return Operation{}, err
			}
			compiled.cond = cond
		}
	}
	return compiled, nil
}

// checkPaths rejects duplicate or nested paths, and paths that touch a
// protected field.
func checkPaths(ops []Operation, protected []string) error {
	for i, a := range ops {
		for _, field := range protected {
			if overlaps(a.Path, field) {
				return domain.Validation("%s cannot modify protected field %q", a.Op, field)
			}
		}
		for _, b := range ops[i+1:] {
			if overlaps(a.Path, b.Path) {
				return domain.Validation("update paths conflict: %s %q and %s %q", a.Op, a.Path, b.Op, b.Path)
			}
		}
	}
	return nil
}

func overlaps(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	return strings.HasPrefix(b, a+".")
}
