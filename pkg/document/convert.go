package document

import (
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// FromGo converts a native Go value into a Value. It accepts the shapes
// produced by encoding/json, by the mongo bson package (D, M, A, ObjectID,
// DateTime, Decimal128) and by this package. Go maps are unordered, so their
// keys are sorted to keep conversion deterministic; use D or *Document when
// field order matters.
func FromGo(x interface{}) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case *Document:
		return Object(v), nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(float64(v)), nil
	case int:
		return Number(float64(v)), nil
	case int8:
		return Number(float64(v)), nil
	case int16:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case uint:
		return Number(float64(v)), nil
	case uint8:
		return Number(float64(v)), nil
	case uint16:
		return Number(float64(v)), nil
	case uint32:
		return Number(float64(v)), nil
	case uint64:
		return Number(float64(v)), nil
	case primitive.D:
		d := New()
		for _, e := range v {
			ev, err := FromGo(e.Value)
			if err != nil {
				return Value{}, err
			}
			d.Set(e.Key, ev)
		}
		return Object(d), nil
	case primitive.M:
		return fromStringMap(v)
	case map[string]interface{}:
		return fromStringMap(v)
	case primitive.A:
		return fromSlice(v)
	case []interface{}:
		return fromSlice(v)
	case []string:
		out := make([]Value, len(v))
		for i, s := range v {
			out[i] = String(s)
		}
		return Array(out...), nil
	case primitive.ObjectID:
		return String(v.Hex()), nil
	case primitive.DateTime:
		return String(v.Time().UTC().Format(time.RFC3339Nano)), nil
	case time.Time:
		return String(v.UTC().Format(time.RFC3339Nano)), nil
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return Value{}, domain.ValidationCause(err, "decimal %s is not representable", v.String())
		}
		return Number(f), nil
	case primitive.Regex:
		// Extended JSON reads {"$regex": p, "$options": o} as a regex
		// literal; hand it back in query operator form.
		return Object(NewWith(F("$regex", String(v.Pattern)), F("$options", String(v.Options)))), nil
	case primitive.Null, primitive.Undefined:
		return Null(), nil
	}
	return fromReflect(x)
}

// fromReflect handles named slice and map types that the type switch misses.
func fromReflect(x interface{}) (Value, error) {
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]Value, rv.Len())
		for i := range out {
			ev, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return Value{}, err
			}
			out[i] = ev
		}
		return Array(out...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return fromStringMap(m)
	case reflect.Ptr:
		if rv.IsNil() {
			return Null(), nil
		}
		return FromGo(rv.Elem().Interface())
	}
	return Value{}, domain.Validation("unsupported value type %T", x)
}

func fromStringMap(m map[string]interface{}) (Value, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := New()
	for _, k := range keys {
		ev, err := FromGo(m[k])
		if err != nil {
			return Value{}, err
		}
		d.Set(k, ev)
	}
	return Object(d), nil
}

func fromSlice(s []interface{}) (Value, error) {
	out := make([]Value, len(s))
	for i, e := range s {
		ev, err := FromGo(e)
		if err != nil {
			return Value{}, err
		}
		out[i] = ev
	}
	return Array(out...), nil
}

// MustFromGo is FromGo for literals known to be valid. It panics on error.
func MustFromGo(x interface{}) Value {
	v, err := FromGo(x)
	if err != nil {
		panic(err)
	}
	return v
}

// FromMap converts a map into a document with sorted keys.
func FromMap(m map[string]interface{}) (*Document, error) {
	v, err := fromStringMap(m)
	if err != nil {
		return nil, err
	}
	d, _ := v.AsObject()
	return d, nil
}

// D builds a document from a bson.D literal, keeping field order. It panics
// on unsupported values and is intended for literals in code and tests.
func D(fields bson.D) *Document {
	d, _ := MustFromGo(fields).AsObject()
	return d
}

// ParseJSON decodes a JSON object (relaxed MongoDB Extended JSON is accepted)
// into a document, keeping the field order of the input.
func ParseJSON(data []byte) (*Document, error) {
	var raw bson.D
	if err := bson.UnmarshalExtJSON(data, false, &raw); err != nil {
		return nil, domain.ValidationCause(err, "invalid JSON document")
	}
	v, err := FromGo(raw)
	if err != nil {
		return nil, err
	}
	d, _ := v.AsObject()
	return d, nil
}

// ToGo converts v into plain Go values: nil, bool, float64, string,
// []interface{} and map[string]interface{}. Field order is lost.
func ToGo(v Value) interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			out[i] = ToGo(e)
		}
		return out
	case KindObject:
		return v.obj.ToMap()
	}
	return nil
}

// ToMap converts the document into a plain map.
func (d *Document) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, d.Len())
	d.Range(func(k string, v Value) bool {
		out[k] = ToGo(v)
		return true
	})
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
