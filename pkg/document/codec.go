package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

var (
	_ json.Marshaler        = Value{}
	_ json.Unmarshaler      = (*Value)(nil)
	_ json.Marshaler        = (*Document)(nil)
	_ json.Unmarshaler      = (*Document)(nil)
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
	_ msgpack.CustomEncoder = (*Document)(nil)
	_ msgpack.CustomDecoder = (*Document)(nil)
)

// MarshalJSON writes the value as JSON, keeping document field order.
// Non-finite numbers are written as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts any JSON value, decoding objects in field order.
func (v *Value) UnmarshalJSON(data []byte) error {
	wrapped := make([]byte, 0, len(data)+6)
	wrapped = append(wrapped, `{"v":`...)
	wrapped = append(wrapped, data...)
	wrapped = append(wrapped, '}')
	d, err := ParseJSON(wrapped)
	if err != nil {
		return err
	}
	*v, _ = d.Get("v")
	return nil
}

// MarshalJSON writes the document as an ordered JSON object.
func (d *Document) MarshalJSON() ([]byte, error) {
	return Object(d).MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping field order.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		if !isFinite(v.n) {
			buf.WriteString("null")
			return nil
		}
		data, err := json.Marshal(v.n)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindString:
		data, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.obj.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, v.obj.values[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode value of kind %s", v.kind)
	}
	return nil
}

// EncodeMsgpack writes the value with documents as ordered msgpack maps.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindNumber:
		return enc.EncodeFloat64(v.n)
	case KindString:
		return enc.EncodeString(v.s)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.arr)); err != nil {
			return err
		}
		for _, e := range v.arr {
			if err := e.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case KindObject:
		return v.obj.EncodeMsgpack(enc)
	}
	return fmt.Errorf("cannot encode value of kind %s", v.kind)
}

// DecodeMsgpack reads a value written by EncodeMsgpack. Integer encodings
// produced by other writers decode as numbers.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	c, err := dec.PeekCode()
	if err != nil {
		return err
	}
	switch {
	case c == msgpcode.Nil:
		*v = Null()
		return dec.DecodeNil()
	case c == msgpcode.True || c == msgpcode.False:
		b, err := dec.DecodeBool()
		if err != nil {
			return err
		}
		*v = Bool(b)
	case msgpcode.IsString(c):
		s, err := dec.DecodeString()
		if err != nil {
			return err
		}
		*v = String(s)
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		elems := make([]Value, 0, max(n, 0))
		for i := 0; i < n; i++ {
			var e Value
			if err := e.DecodeMsgpack(dec); err != nil {
				return err
			}
			elems = append(elems, e)
		}
		*v = Array(elems...)
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		d := New()
		if err := d.DecodeMsgpack(dec); err != nil {
			return err
		}
		*v = Object(d)
	default:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return fmt.Errorf("unsupported msgpack code 0x%x: %w", c, err)
		}
		*v = Number(f)
	}
	return nil
}

// EncodeMsgpack writes the document as a msgpack map in field order.
func (d *Document) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(d.Len()); err != nil {
		return err
	}
	for _, k := range d.keys {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := d.values[k].EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack reads a msgpack map into the document, keeping entry order.
func (d *Document) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	d.keys = nil
	d.values = make(map[string]Value, max(n, 0))
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		var v Value
		if err := v.DecodeMsgpack(dec); err != nil {
			return err
		}
		d.Set(key, v)
	}
	return nil
}
