package aggregate

import (
	"strings"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// GroupKeyField names the group key in $group output documents.
const GroupKeyField = "_id"

// Expression is a $group key or accumulator argument: a "$field" reference,
// a literal, or a document of named sub-expressions.
type Expression struct {
	Path    string
	Literal document.Value
	Fields  []NamedExpression
}

// NamedExpression is one field of a compound expression.
type NamedExpression struct {
	Name string
	Expr Expression
}

// Field, Literal and Compound build expressions in code.
func Field(path string) Expression                  { return Expression{Path: path} }
func Literal(v document.Value) Expression           { return Expression{Literal: v} }
func Compound(fields ...NamedExpression) Expression { return Expression{Fields: fields} }

func compileExpression(v document.Value) (Expression, error) {
	if path, ok := fieldRef(v); ok {
		if err := document.ValidatePath(path); err != nil {
			return Expression{}, err
		}
		return Field(path), nil
	}
	d, ok := v.AsObject()
	if !ok {
		return Literal(v), nil
	}
	var fields []NamedExpression
	for _, name := range d.Keys() {
		if strings.HasPrefix(name, "$") {
			return Expression{}, domain.Validation("unsupported expression operator %s", name)
		}
		sub, _ := d.Get(name)
		expr, err := compileExpression(sub)
		if err != nil {
			return Expression{}, err
		}
		fields = append(fields, NamedExpression{Name: name, Expr: expr})
	}
	return Compound(fields...), nil
}

// Eval resolves the expression against doc. The boolean is false when a
// field reference is absent.
func (e Expression) Eval(doc *document.Document) (document.Value, bool) {
	switch {
	case e.Path != "":
		return document.Get(doc, e.Path)
	case e.Fields != nil:
		out := document.New()
		for _, f := range e.Fields {
			if v, ok := f.Expr.Eval(doc); ok {
				out.Set(f.Name, v)
			}
		}
		return document.Object(out), true
	default:
		return e.Literal, true
	}
}

// Accumulator operators.
const (
	AccSum      = "$sum"
	AccAvg      = "$avg"
	AccCount    = "$count"
	AccMin      = "$min"
	AccMax      = "$max"
	AccFirst    = "$first"
	AccLast     = "$last"
	AccPush     = "$push"
	AccAddToSet = "$addToSet"
)

// Accumulator computes one output field per group.
type Accumulator struct {
	Field string
	Op    string
	Arg   Expression
}

// GroupStage partitions documents by Key and emits one document per distinct
// key, in the order keys are first seen.
type GroupStage struct {
	Key          Expression
	Accumulators []Accumulator
}

func (s *GroupStage) Name() string { return "$group" }

func compileGroup(spec *document.Document) (Stage, error) {
	keyValue, ok := spec.Get(GroupKeyField)
	if !ok {
		return nil, domain.Validation("$group requires an %s key expression", GroupKeyField)
	}
	key, err := compileExpression(keyValue)
	if err != nil {
		return nil, err
	}
	stage := &GroupStage{Key: key}

	for _, field := range spec.Keys() {
		if field == GroupKeyField {
			continue
		}
		if strings.Contains(field, ".") || strings.HasPrefix(field, "$") {
			return nil, domain.Validation("$group output field %q must be a plain name", field)
		}
		v, _ := spec.Get(field)
		d, ok := v.AsObject()
		if !ok || d.Len() != 1 {
			return nil, domain.Validation("$group field %q must be a single accumulator document", field)
		}
		op := d.Keys()[0]
		operand, _ := d.Get(op)

		acc := Accumulator{Field: field, Op: op}
		switch op {
		case AccCount:
			if args, ok := operand.AsObject(); !ok || args.Len() != 0 {
				return nil, domain.Validation("$count accumulator takes an empty document")
			}
		case AccSum, AccAvg, AccMin, AccMax, AccFirst, AccLast, AccPush, AccAddToSet:
			if acc.Arg, err = compileExpression(operand); err != nil {
				return nil, err
			}
		default:
			return nil, domain.Validation("unknown accumulator %s for field %q", op, field)
		}
		stage.Accumulators = append(stage.Accumulators, acc)
	}
	return stage, nil
}

type accState struct {
	sum    float64
	n      int
	value  document.Value
	has    bool
	values []document.Value
}

type group struct {
	key    document.Value
	states []accState
}

func (s *GroupStage) Apply(docs []*document.Document) []*document.Document {
	groups := make(map[string]*group)
	var keys []string

	for _, d := range docs {
		key, ok := s.Key.Eval(d)
		if !ok {
			key = document.Null()
		}
		id := groupID(key)
		g, exists := groups[id]
		if !exists {
			g = &group{key: key.Clone(), states: make([]accState, len(s.Accumulators))}
			groups[id] = g
			keys = append(keys, id)
		}
		for i, acc := range s.Accumulators {
			acc.add(&g.states[i], d)
		}
	}

	out := make([]*document.Document, 0, len(keys))
	for _, id := range keys {
		g := groups[id]
		res := document.NewWith(document.F(GroupKeyField, g.key))
		for i, acc := range s.Accumulators {
			res.Set(acc.Field, acc.result(&g.states[i]))
		}
		out = append(out, res)
	}
	return out
}

// groupID renders key so that values equal under Value.Equal share an id;
// -0 is written as 0.
func groupID(key document.Value) string {
	return canonicalZero(key).String()
}

func canonicalZero(v document.Value) document.Value {
	switch v.Kind() {
	case document.KindNumber:
		if n, _ := v.AsNumber(); n == 0 {
			return document.Int(0)
		}
	case document.KindArray:
		elems, _ := v.AsArray()
		out := make([]document.Value, len(elems))
		for i, e := range elems {
			out[i] = canonicalZero(e)
		}
		return document.Array(out...)
	case document.KindObject:
		d, _ := v.AsObject()
		out := document.New()
		d.Range(func(k string, e document.Value) bool {
			out.Set(k, canonicalZero(e))
			return true
		})
		return document.Object(out)
	}
	return v
}

func (a Accumulator) add(st *accState, doc *document.Document) {
	if a.Op == AccCount {
		st.n++
		return
	}
	v, ok := a.Arg.Eval(doc)

	switch a.Op {
	case AccSum, AccAvg:
		if n, isNum := v.AsNumber(); ok && isNum {
			st.sum += n
			st.n++
		}
	case AccMin, AccMax:
		if !ok || v.IsNull() {
			return
		}
		if !st.has {
			st.value, st.has = v.Clone(), true
			return
		}
		cmp := document.Compare(v, st.value)
		if (a.Op == AccMin && cmp < 0) || (a.Op == AccMax && cmp > 0) {
			st.value = v.Clone()
		}
	case AccFirst:
		if !st.has {
			st.value, st.has = v.Clone(), true
		}
	case AccLast:
		st.value, st.has = v.Clone(), true
	case AccPush:
		if ok {
			st.values = append(st.values, v.Clone())
		}
	case AccAddToSet:
		if !ok {
			return
		}
		for _, seen := range st.values {
			if seen.Equal(v) {
				return
			}
		}
		st.values = append(st.values, v.Clone())
	}
}

func (a Accumulator) result(st *accState) document.Value {
	switch a.Op {
	case AccCount:
		return document.Int(st.n)
	case AccSum:
		return document.Number(st.sum)
	case AccAvg:
		if st.n == 0 {
			return document.Null()
		}
		return document.Number(st.sum / float64(st.n))
	case AccPush, AccAddToSet:
		return document.Array(st.values...)
	}
	// Absent first/last values and empty min/max groups are null.
	return st.value
}
