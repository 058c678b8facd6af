package document

import "strings"

// kindRank orders kinds for cross-type comparison:
// null < number < string < object < array < bool.
func kindRank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindNumber:
		return 1
	case KindString:
		return 2
	case KindObject:
		return 3
	case KindArray:
		return 4
	case KindBool:
		return 5
	}
	return 6
}

// Compare imposes a total order over values and returns -1, 0 or 1.
// Values of different kinds order by kind; within a kind numbers compare
// numerically, strings byte-wise, arrays element-wise and documents field by
// field (key, then value).
func Compare(a, b Value) int {
	ra, rb := kindRank(a.kind), kindRank(b.kind)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNumber:
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		}
		return 0
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		}
		return 1
	case KindArray:
		for i := 0; i < len(a.arr) && i < len(b.arr); i++ {
			if c := Compare(a.arr[i], b.arr[i]); c != 0 {
				return c
			}
		}
		return compareInt(len(a.arr), len(b.arr))
	case KindObject:
		ak, bk := a.obj.keys, b.obj.keys
		for i := 0; i < len(ak) && i < len(bk); i++ {
			if c := strings.Compare(ak[i], bk[i]); c != 0 {
				return c
			}
			if c := Compare(a.obj.values[ak[i]], b.obj.values[bk[i]]); c != 0 {
				return c
			}
		}
		return compareInt(len(ak), len(bk))
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
