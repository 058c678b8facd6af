package filter

import "github.com/adfharrison1/go-docquery/pkg/document"

// Match resolves the path and applies the operator. An absent path fails
// every operator except $ne, $nin and $exists:false. Array fields match when
// the array itself or any of its elements satisfies the operator.
//
// $all holds when each listed value equals some resolved value, so it also
// sees the values fanned out through an array of documents. $size only counts
// a stored array; values fanned out over several elements are not collected.
func (c *Comparison) Match(doc *document.Document) bool {
	candidates := document.Lookup(doc, c.Path)

	switch c.Op {
	case OpExists:
		return (len(candidates) > 0) == c.Operand.Truthy()
	case OpNe:
		return !anyMatch(candidates, equalTo(c.Operand))
	case OpNin:
		return !anyMatch(candidates, memberOf(c.Operand))
	case OpSize:
		n, _ := c.Operand.AsInt()
		for _, v := range candidates {
			if arr, ok := v.AsArray(); ok && len(arr) == n {
				return true
			}
		}
		return false
	case OpAll:
		want, _ := c.Operand.AsArray()
		if len(want) == 0 {
			return false
		}
		for _, w := range want {
			if !anyMatch(candidates, equalTo(w)) {
				return false
			}
		}
		return true
	}
	return anyMatch(candidates, c.predicate())
}

func (c *Comparison) predicate() func(document.Value) bool {
	switch c.Op {
	case OpEq:
		return equalTo(c.Operand)
	case OpIn:
		return memberOf(c.Operand)
	case OpGt:
		return numeric(c.Operand, func(a, b float64) bool { return a > b })
	case OpGte:
		return numeric(c.Operand, func(a, b float64) bool { return a >= b })
	case OpLt:
		return numeric(c.Operand, func(a, b float64) bool { return a < b })
	case OpLte:
		return numeric(c.Operand, func(a, b float64) bool { return a <= b })
	}
	return func(document.Value) bool { return false }
}

// anyMatch applies pred to each candidate and, for array candidates, to each
// of their elements.
func anyMatch(candidates []document.Value, pred func(document.Value) bool) bool {
	for _, v := range candidates {
		if pred(v) {
			return true
		}
		if arr, ok := v.AsArray(); ok {
			for _, elem := range arr {
				if pred(elem) {
					return true
				}
			}
		}
	}
	return false
}

func equalTo(operand document.Value) func(document.Value) bool {
	return func(v document.Value) bool { return v.Equal(operand) }
}

func memberOf(set document.Value) func(document.Value) bool {
	members, _ := set.AsArray()
	return func(v document.Value) bool {
		for _, m := range members {
			if v.Equal(m) {
				return true
			}
		}
		return false
	}
}

// numeric compares only when both sides are numbers; anything else is false.
func numeric(operand document.Value, cmp func(a, b float64) bool) func(document.Value) bool {
	b, ok := operand.AsNumber()
	if !ok {
		return func(document.Value) bool { return false }
	}
	return func(v document.Value) bool {
		a, ok := v.AsNumber()
		return ok && cmp(a, b)
	}
}

// Match evaluates children left to right, stopping at the first child that
// decides the result.
func (l *Logical) Match(doc *document.Document) bool {
	switch l.Op {
	case OpOr:
		for _, child := range l.Children {
			if child.Match(doc) {
				return true
			}
		}
		return false
	case OpNor:
		for _, child := range l.Children {
			if child.Match(doc) {
				return false
			}
		}
		return true
	default:
		for _, child := range l.Children {
			if !child.Match(doc) {
				return false
			}
		}
		return true
	}
}

func (n *Not) Match(doc *document.Document) bool {
	return !n.Inner.Match(doc)
}

func (r *Regex) Match(doc *document.Document) bool {
	re := r.re
	if re == nil {
		// Built as a literal. Expressions may be shared between
		// goroutines, so r is never written here.
		var err error
		if re, err = compileRegex(r.Pattern, r.Options); err != nil {
			return false
		}
	}
	return anyMatch(document.Lookup(doc, r.Path), func(v document.Value) bool {
		s, ok := v.AsString()
		return ok && re.MatchString(s)
	})
}
