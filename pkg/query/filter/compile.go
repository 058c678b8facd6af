package filter

import (
	"strings"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// Compile builds an expression tree from a filter document. Keys at one level
// are combined with AND. A nil or empty document yields an expression that
// matches every document.
func Compile(doc *document.Document) (Expr, error) {
	if doc == nil {
		return And(), nil
	}
	var children []Expr
	var err error
	doc.Range(func(key string, v document.Value) bool {
		var child Expr
		if strings.HasPrefix(key, "$") {
			child, err = compileTopLevel(Op(key), v)
		} else {
			child, err = compileField(key, v)
		}
		if err != nil {
			return false
		}
		children = append(children, child)
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return And(children...), nil
}

// MustCompile is Compile for filters known to be valid. It panics on error.
func MustCompile(doc *document.Document) Expr {
	expr, err := Compile(doc)
	if err != nil {
		panic(err)
	}
	return expr
}

func compileTopLevel(op Op, v document.Value) (Expr, error) {
	switch op {
	case OpAnd, OpOr, OpNor:
	default:
		return nil, domain.Validation("unknown top-level operator %s", op)
	}
	elems, ok := v.AsArray()
	if !ok || len(elems) == 0 {
		return nil, domain.Validation("%s requires a non-empty array of filter documents", op)
	}
	children := make([]Expr, 0, len(elems))
	for i, elem := range elems {
		sub, ok := elem.AsObject()
		if !ok {
			return nil, domain.Validation("%s element %d must be a document, got %s", op, i, elem.Kind())
		}
		child, err := Compile(sub)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &Logical{Op: op, Children: children}, nil
}

func compileField(path string, v document.Value) (Expr, error) {
	if err := document.ValidatePath(path); err != nil {
		return nil, err
	}
	ops, isOps, err := operatorObject(path, v)
	if err != nil {
		return nil, err
	}
	if !isOps {
		return Eq(path, v), nil
	}
	return compileOperators(path, ops)
}

// operatorObject reports whether v is a document of $-operators. Documents
// mixing operators with plain fields are rejected.
func operatorObject(path string, v document.Value) (*document.Document, bool, error) {
	d, ok := v.AsObject()
	if !ok || d.Len() == 0 {
		return nil, false, nil
	}
	dollar := 0
	for _, k := range d.Keys() {
		if strings.HasPrefix(k, "$") {
			dollar++
		}
	}
	switch dollar {
	case 0:
		return nil, false, nil
	case d.Len():
		return d, true, nil
	default:
		return nil, false, domain.Validation("filter on %q mixes operators and fields", path)
	}
}

func compileOperators(path string, ops *document.Document) (Expr, error) {
	var children []Expr
	if _, ok := ops.Get("$options"); ok && !ops.Has(string(OpRegex)) {
		return nil, domain.Validation("$options on %q requires $regex", path)
	}

	for _, key := range ops.Keys() {
		operand, _ := ops.Get(key)
		op := Op(key)
		var child Expr
		var err error

		switch op {
		case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
			child = &Comparison{Path: path, Op: op, Operand: operand}
		case OpIn, OpNin, OpAll:
			if operand.Kind() != document.KindArray {
				return nil, domain.Validation("%s on %q requires an array, got %s", op, path, operand.Kind())
			}
			child = &Comparison{Path: path, Op: op, Operand: operand}
		case OpSize:
			n, ok := operand.AsInt()
			if !ok || n < 0 {
				return nil, domain.Validation("$size on %q requires a non-negative integer, got %s", path, operand)
			}
			child = Size(path, n)
		case OpExists:
			switch operand.Kind() {
			case document.KindBool, document.KindNumber:
			default:
				return nil, domain.Validation("$exists on %q requires a boolean, got %s", path, operand.Kind())
			}
			child = Exists(path, operand.Truthy())
		case OpRegex:
			child, err = compileRegexOperator(path, operand, ops)
		case "$options":
			continue
		case OpNot:
			inner, isOps, ierr := operatorObject(path, operand)
			if ierr != nil {
				return nil, ierr
			}
			if !isOps {
				return nil, domain.Validation("$not on %q requires an operator document", path)
			}
			var compiled Expr
			compiled, err = compileOperators(path, inner)
			if err == nil {
				child = NotExpr(path, compiled)
			}
		default:
			return nil, domain.Validation("unknown operator %s on %q", key, path)
		}
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	if len(children) == 1 {
		return children[0], nil
	}
	return And(children...), nil
}

func compileRegexOperator(path string, operand document.Value, ops *document.Document) (Expr, error) {
	pattern, ok := operand.AsString()
	if !ok {
		return nil, domain.Validation("$regex on %q requires a string pattern, got %s", path, operand.Kind())
	}
	var options string
	if o, ok := ops.Get("$options"); ok {
		if options, ok = o.AsString(); !ok {
			return nil, domain.Validation("$options on %q must be a string", path)
		}
	}
	return MatchRegex(path, pattern, options)
}
