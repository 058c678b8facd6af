// Package filter evaluates boolean filter expressions against documents.
//
// A filter is an inspectable tree of Expr nodes. Trees are built either from
// a filter document with Compile:
//
//	{"category": "Technology", "price": {"$lt": 40}}
//
// or directly with the constructors:
//
//	filter.And(filter.Eq("category", document.String("Technology")),
//		filter.Lt("price", document.Int(40)))
//
// Evaluation is pure: it never mutates the document and has no side effects,
// so a compiled Expr may be shared between goroutines.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// Op names a filter operator.
type Op string

const (
	// Logical operators
	OpAnd Op = "$and"
	OpOr  Op = "$or"
	OpNor Op = "$nor"
	OpNot Op = "$not"

	// Field operators
	OpEq     Op = "$eq"
	OpNe     Op = "$ne"
	OpGt     Op = "$gt"
	OpGte    Op = "$gte"
	OpLt     Op = "$lt"
	OpLte    Op = "$lte"
	OpIn     Op = "$in"
	OpNin    Op = "$nin"
	OpAll    Op = "$all"
	OpSize   Op = "$size"
	OpExists Op = "$exists"
	OpRegex  Op = "$regex"
)

// Expr is a node of a filter expression tree.
type Expr interface {
	// Match reports whether doc satisfies the expression.
	Match(doc *document.Document) bool
	// Document renders the node in filter document form.
	Document() *document.Document
}

// Matches evaluates expr against doc. A nil expression matches everything.
func Matches(doc *document.Document, expr Expr) bool {
	if expr == nil {
		return true
	}
	return expr.Match(doc)
}

// String renders expr as a JSON filter document, for logs.
func String(expr Expr) string {
	if expr == nil {
		return "{}"
	}
	return expr.Document().String()
}

// Comparison tests the value(s) at Path against Operand.
type Comparison struct {
	Path    string
	Op      Op
	Operand document.Value
}

// Logical combines child expressions with AND, OR or NOR.
type Logical struct {
	Op       Op
	Children []Expr
}

// Not negates an operator expression on a single field. It matches documents
// where the field is absent.
type Not struct {
	Path  string
	Inner Expr
}

// Regex matches string values at Path against a compiled pattern.
type Regex struct {
	Path    string
	Pattern string
	Options string
	re      *regexp.Regexp
}

func Eq(path string, v document.Value) Expr  { return &Comparison{Path: path, Op: OpEq, Operand: v} }
func Ne(path string, v document.Value) Expr  { return &Comparison{Path: path, Op: OpNe, Operand: v} }
func Gt(path string, v document.Value) Expr  { return &Comparison{Path: path, Op: OpGt, Operand: v} }
func Gte(path string, v document.Value) Expr { return &Comparison{Path: path, Op: OpGte, Operand: v} }
func Lt(path string, v document.Value) Expr  { return &Comparison{Path: path, Op: OpLt, Operand: v} }
func Lte(path string, v document.Value) Expr { return &Comparison{Path: path, Op: OpLte, Operand: v} }

// In matches when the field (or any element of it) equals one of values.
func In(path string, values ...document.Value) Expr {
	return &Comparison{Path: path, Op: OpIn, Operand: document.Array(values...)}
}

// Nin is the negation of In; it matches absent fields.
func Nin(path string, values ...document.Value) Expr {
	return &Comparison{Path: path, Op: OpNin, Operand: document.Array(values...)}
}

// All matches array fields containing every one of values.
func All(path string, values ...document.Value) Expr {
	return &Comparison{Path: path, Op: OpAll, Operand: document.Array(values...)}
}

// Size matches array fields with exactly n elements.
func Size(path string, n int) Expr {
	return &Comparison{Path: path, Op: OpSize, Operand: document.Int(n)}
}

// Exists matches documents where path is present (or absent when exists is false).
func Exists(path string, exists bool) Expr {
	return &Comparison{Path: path, Op: OpExists, Operand: document.Bool(exists)}
}

// MatchRegex compiles pattern with the given option flags ("i", "m", "s").
func MatchRegex(path, pattern, options string) (Expr, error) {
	re, err := compileRegex(pattern, options)
	if err != nil {
		return nil, err
	}
	return &Regex{Path: path, Pattern: pattern, Options: options, re: re}, nil
}

func And(children ...Expr) Expr { return &Logical{Op: OpAnd, Children: children} }
func Or(children ...Expr) Expr  { return &Logical{Op: OpOr, Children: children} }
func Nor(children ...Expr) Expr { return &Logical{Op: OpNor, Children: children} }

// NotExpr negates inner, an expression over path.
func NotExpr(path string, inner Expr) Expr { return &Not{Path: path, Inner: inner} }

func compileRegex(pattern, options string) (*regexp.Regexp, error) {
	var flags strings.Builder
	for _, o := range options {
		switch o {
		case 'i', 'm', 's':
			if !strings.ContainsRune(flags.String(), o) {
				flags.WriteRune(o)
			}
		default:
			return nil, domain.Validation("unsupported $regex option %q", string(o))
		}
	}
	expr := pattern
	if flags.Len() > 0 {
		expr = fmt.Sprintf("(?%s)%s", flags.String(), pattern)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, domain.ValidationCause(err, "invalid $regex pattern %q", pattern)
	}
	return re, nil
}

func (c *Comparison) Document() *document.Document {
	inner := document.NewWith(document.F(string(c.Op), c.Operand))
	return document.NewWith(document.F(c.Path, document.Object(inner)))
}

func (l *Logical) Document() *document.Document {
	children := make([]document.Value, len(l.Children))
	for i, child := range l.Children {
		children[i] = document.Object(child.Document())
	}
	return document.NewWith(document.F(string(l.Op), document.Array(children...)))
}

func (n *Not) Document() *document.Document {
	operand := document.Object(n.Inner.Document())
	if ops, ok := n.Inner.Document().Get(n.Path); ok {
		operand = ops
	}
	inner := document.NewWith(document.F(string(OpNot), operand))
	return document.NewWith(document.F(n.Path, document.Object(inner)))
}

func (r *Regex) Document() *document.Document {
	inner := document.NewWith(document.F(string(OpRegex), document.String(r.Pattern)))
	if r.Options != "" {
		inner.Set("$options", document.String(r.Options))
	}
	return document.NewWith(document.F(r.Path, document.Object(inner)))
}
