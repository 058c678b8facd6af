package document

import (
	"strconv"
	"strings"

	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// MaxArrayPadding is the largest number of nulls Set appends to reach an
// array index past the end.
const MaxArrayPadding = 1024

// ValidatePath checks that path is a non-empty dotted path whose segments are
// non-empty and do not start with '$'.
func ValidatePath(path string) error {
	if path == "" {
		return domain.Validation("field path cannot be empty")
	}
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return domain.Validation("field path %q has an empty segment", path)
		}
		if strings.HasPrefix(seg, "$") {
			return domain.Validation("field path %q has a segment starting with '$'", path)
		}
	}
	return nil
}

// Lookup resolves a dotted path and returns every value it reaches. Through
// arrays, a numeric segment selects one element and any other segment is
// resolved against each object element. An empty result means the path is
// absent; this is never an error.
func Lookup(d *Document, path string) []Value {
	return lookup(Object(d), strings.Split(path, "."), nil)
}

func lookup(cur Value, segs []string, out []Value) []Value {
	if len(segs) == 0 {
		return append(out, cur)
	}
	seg := segs[0]
	switch cur.kind {
	case KindObject:
		next, ok := cur.obj.Get(seg)
		if !ok {
			return out
		}
		return lookup(next, segs[1:], out)
	case KindArray:
		if idx, ok := arrayIndex(seg); ok {
			if idx < len(cur.arr) {
				out = lookup(cur.arr[idx], segs[1:], out)
			}
			return out
		}
		for _, elem := range cur.arr {
			if elem.kind == KindObject {
				out = lookup(elem, segs, out)
			}
		}
	}
	return out
}

// Get resolves a dotted path to a single value. Arrays are only traversed by
// numeric segments. The boolean is false when the path is absent.
func Get(d *Document, path string) (Value, bool) {
	cur := Object(d)
	for _, seg := range strings.Split(path, ".") {
		switch cur.kind {
		case KindObject:
			next, ok := cur.obj.Get(seg)
			if !ok {
				return Value{}, false
			}
			cur = next
		case KindArray:
			idx, ok := arrayIndex(seg)
			if !ok || idx >= len(cur.arr) {
				return Value{}, false
			}
			cur = cur.arr[idx]
		default:
			return Value{}, false
		}
	}
	return cur, true
}

// Set stores v at path, creating missing intermediate documents. Numeric
// segments index arrays, padding with nulls past the end. Descending into a
// scalar is a TypeError. d is modified in place.
func Set(d *Document, path string, v Value) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	return setInDoc(d, strings.Split(path, "."), v, path)
}

func setInDoc(d *Document, segs []string, v Value, path string) error {
	key := segs[0]
	if len(segs) == 1 {
		d.Set(key, v)
		return nil
	}
	child, ok := d.Get(key)
	if !ok {
		nd := New()
		if err := setInDoc(nd, segs[1:], v, path); err != nil {
			return err
		}
		d.Set(key, Object(nd))
		return nil
	}
	updated, err := setInValue(child, segs[1:], v, path)
	if err != nil {
		return err
	}
	d.Set(key, updated)
	return nil
}

func setInValue(cur Value, segs []string, v Value, path string) (Value, error) {
	switch cur.kind {
	case KindObject:
		return cur, setInDoc(cur.obj, segs, v, path)
	case KindArray:
		idx, ok := arrayIndex(segs[0])
		if !ok {
			return cur, domain.TypeError("cannot create field %q in array at path %q", segs[0], path)
		}
		if idx > len(cur.arr)+MaxArrayPadding {
			return cur, domain.Validation("index %d at path %q pads array of length %d by more than %d elements", idx, path, len(cur.arr), MaxArrayPadding)
		}
		arr := cur.arr
		padded := idx >= len(arr)
		for len(arr) <= idx {
			arr = append(arr, Null())
		}
		if len(segs) == 1 {
			arr[idx] = v
			return Array(arr...), nil
		}
		elem := arr[idx]
		if padded {
			elem = Object(New())
		}
		updated, err := setInValue(elem, segs[1:], v, path)
		if err != nil {
			return cur, err
		}
		arr[idx] = updated
		return Array(arr...), nil
	default:
		return cur, domain.TypeError("cannot create field %q in %s value at path %q", segs[0], cur.kind, path)
	}
}

// Unset removes the value at path and reports whether anything was removed.
// Array elements addressed by index are replaced with null, keeping the
// positions of their siblings.
func Unset(d *Document, path string) bool {
	segs := strings.Split(path, ".")
	cur := Object(d)
	for i, seg := range segs {
		last := i == len(segs)-1
		switch cur.kind {
		case KindObject:
			if last {
				return cur.obj.Delete(seg)
			}
			next, ok := cur.obj.Get(seg)
			if !ok {
				return false
			}
			cur = next
		case KindArray:
			idx, ok := arrayIndex(seg)
			if !ok || idx >= len(cur.arr) {
				return false
			}
			if last {
				cur.arr[idx] = Null()
				return true
			}
			cur = cur.arr[idx]
		default:
			return false
		}
	}
	return false
}

// arrayIndex parses a non-negative decimal array index.
func arrayIndex(seg string) (int, bool) {
	if seg == "" || seg[0] < '0' || seg[0] > '9' {
		return 0, false
	}
	idx, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return idx, true
}
