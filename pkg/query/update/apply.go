package update

import (
	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// pullElementKey wraps array elements so $pull conditions can be evaluated
// with the filter package.
const pullElementKey = "element"

// Apply returns a copy of doc with spec applied. doc is never modified, so a
// failed update leaves the caller's document intact.
func Apply(doc *document.Document, spec *Spec) (*document.Document, error) {
	out := doc.Clone()
	for _, op := range spec.ops {
		if err := op.apply(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (o Operation) apply(doc *document.Document) error {
	current, exists := document.Get(doc, o.Path)

	switch o.Op {
	case OpSet:
		return document.Set(doc, o.Path, o.Operand.Clone())

	case OpUnset:
		document.Unset(doc, o.Path)
		return nil

	case OpInc, OpMul:
		operand, _ := o.Operand.AsNumber()
		if !exists {
			if o.Op == OpMul {
				operand = 0
			}
			return document.Set(doc, o.Path, document.Number(operand))
		}
		n, ok := current.AsNumber()
		if !ok {
			return domain.TypeError("%s on %q: field is %s, not a number", o.Op, o.Path, current.Kind())
		}
		if o.Op == OpInc {
			return document.Set(doc, o.Path, document.Number(n+operand))
		}
		return document.Set(doc, o.Path, document.Number(n*operand))

	case OpMin, OpMax:
		if exists {
			cmp := document.Compare(o.Operand, current)
			if (o.Op == OpMin && cmp >= 0) || (o.Op == OpMax && cmp <= 0) {
				return nil
			}
		}
		return document.Set(doc, o.Path, o.Operand.Clone())

	case OpPush, OpAddToSet:
		var elems []document.Value
		if exists {
			arr, ok := current.AsArray()
			if !ok {
				return domain.TypeError("%s on %q: field is %s, not an array", o.Op, o.Path, current.Kind())
			}
			elems = append(elems, arr...)
		}
		for _, v := range o.each {
			if o.Op == OpAddToSet && contains(elems, v) {
				continue
			}
			elems = append(elems, v.Clone())
		}
		return document.Set(doc, o.Path, document.Array(elems...))

	case OpPull:
		if !exists {
			return nil
		}
		arr, ok := current.AsArray()
		if !ok {
			return domain.TypeError("$pull on %q: field is %s, not an array", o.Path, current.Kind())
		}
		kept := make([]document.Value, 0, len(arr))
		for _, elem := range arr {
			if !o.pulls(elem) {
				kept = append(kept, elem)
			}
		}
		if len(kept) == len(arr) {
			return nil
		}
		return document.Set(doc, o.Path, document.Array(kept...))
	}
	return domain.Validation("unknown update operator %s", o.Op)
}

func (o Operation) pulls(elem document.Value) bool {
	if o.cond != nil {
		return o.cond.Match(document.NewWith(document.F(pullElementKey, elem)))
	}
	return elem.Equal(o.Operand)
}

func contains(elems []document.Value, v document.Value) bool {
	for _, e := range elems {
		if e.Equal(v) {
			return true
		}
	}
	return false
}
