package document

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/adfharrison1/go-docquery/pkg/domain"
)

func sampleBook() *Document {
	return D(bson.D{
		{Key: "book_id", Value: "B001"},
		{Key: "title", Value: "Go in Action"},
		{Key: "price", Value: 35},
		{Key: "tags", Value: bson.A{"go", "programming"}},
		{Key: "publisher", Value: bson.D{
			{Key: "name", Value: "Manning"},
			{Key: "address", Value: bson.D{{Key: "city", Value: "Shelter Island"}}},
		}},
		{Key: "reviews", Value: bson.A{
			bson.D{{Key: "user", Value: "ann"}, {Key: "rating", Value: 5}},
			bson.D{{Key: "user", Value: "bob"}, {Key: "rating", Value: 3}},
		}},
		{Key: "discount", Value: nil},
	})
}

func TestDocument_SetKeepsOrder(t *testing.T) {
	d := New()
	d.Set("b", Int(1))
	d.Set("a", Int(2))
	d.Set("b", Int(3))

	assert.Equal(t, []string{"b", "a"}, d.Keys())
	v, ok := d.Get("b")
	require.True(t, ok)
	assert.True(t, v.Equal(Int(3)))

	assert.True(t, d.Delete("b"))
	assert.False(t, d.Delete("b"))
	assert.Equal(t, []string{"a"}, d.Keys())
}

func TestDocument_CloneIsDeep(t *testing.T) {
	orig := sampleBook()
	clone := orig.Clone()
	require.True(t, orig.Equal(clone))

	require.NoError(t, Set(clone, "publisher.name", String("O'Reilly")))
	require.NoError(t, Set(clone, "tags.0", String("golang")))

	name, _ := Get(orig, "publisher.name")
	assert.Equal(t, `"Manning"`, name.String())
	tag, _ := Get(orig, "tags.0")
	assert.Equal(t, `"go"`, tag.String())
	assert.False(t, orig.Equal(clone))
}

func TestLookup(t *testing.T) {
	doc := sampleBook()

	tests := []struct {
		name     string
		path     string
		expected []string
	}{
		{name: "top level", path: "title", expected: []string{`"Go in Action"`}},
		{name: "nested", path: "publisher.address.city", expected: []string{`"Shelter Island"`}},
		{name: "array field", path: "tags", expected: []string{`["go","programming"]`}},
		{name: "array index", path: "tags.1", expected: []string{`"programming"`}},
		{name: "through array of documents", path: "reviews.rating", expected: []string{"5", "3"}},
		{name: "indexed element field", path: "reviews.1.user", expected: []string{`"bob"`}},
		{name: "null is present", path: "discount", expected: []string{"null"}},
		{name: "missing leaf", path: "isbn", expected: nil},
		{name: "missing ancestor", path: "edition.number", expected: nil},
		{name: "through scalar", path: "price.amount", expected: nil},
		{name: "index out of range", path: "tags.5", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, v := range Lookup(doc, tt.path) {
				got = append(got, v.String())
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestGet(t *testing.T) {
	doc := sampleBook()

	v, ok := Get(doc, "reviews.0.rating")
	require.True(t, ok)
	assert.True(t, v.Equal(Int(5)))

	_, ok = Get(doc, "reviews.rating")
	assert.False(t, ok, "strict lookup does not fan out over arrays")

	v, ok = Get(doc, "discount")
	require.True(t, ok)
	assert.True(t, v.IsNull())
}

func TestSet(t *testing.T) {
	t.Run("creates intermediate documents", func(t *testing.T) {
		doc := New()
		require.NoError(t, Set(doc, "a.b.c", Int(1)))
		assert.Equal(t, `{"a":{"b":{"c":1}}}`, doc.String())
	})

	t.Run("pads arrays", func(t *testing.T) {
		doc := D(bson.D{{Key: "xs", Value: bson.A{1}}})
		require.NoError(t, Set(doc, "xs.3", Int(4)))
		assert.Equal(t, `{"xs":[1,null,null,4]}`, doc.String())
	})

	t.Run("padding is bounded", func(t *testing.T) {
		doc := D(bson.D{{Key: "tags", Value: bson.A{"go"}}})
		require.NoError(t, Set(doc, fmt.Sprintf("tags.%d", 1+MaxArrayPadding), Int(1)))
		tags, _ := mustGet(t, doc, "tags").AsArray()
		assert.Len(t, tags, 2+MaxArrayPadding)

		doc = D(bson.D{{Key: "tags", Value: bson.A{"go"}}})
		err := Set(doc, "tags.20000000", Int(1))
		assert.True(t, domain.IsValidation(err), "got %v", err)
		assert.Equal(t, `{"tags":["go"]}`, doc.String())

		err = Set(doc, fmt.Sprintf("tags.%d.name", 2+MaxArrayPadding), String("x"))
		assert.True(t, domain.IsValidation(err), "got %v", err)
	})

	t.Run("descending into scalar is a type error", func(t *testing.T) {
		doc := D(bson.D{{Key: "price", Value: 10}})
		err := Set(doc, "price.amount", Int(1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TypeError")
		assert.Equal(t, `{"price":10}`, doc.String())
	})

	t.Run("invalid path", func(t *testing.T) {
		for _, p := range []string{"", "a..b", "$set", "a.$x"} {
			assert.Error(t, Set(New(), p, Int(1)), p)
		}
	})
}

func TestUnset(t *testing.T) {
	doc := sampleBook()
	assert.True(t, Unset(doc, "publisher.address"))
	assert.False(t, Unset(doc, "publisher.address"))
	assert.False(t, Unset(doc, "nothing.here"))
	assert.True(t, Unset(doc, "tags.0"))

	assert.Equal(t, `{"name":"Manning"}`, mustGet(t, doc, "publisher").String())
	assert.Equal(t, `[null,"programming"]`, mustGet(t, doc, "tags").String())
}

func mustGet(t *testing.T, d *Document, path string) Value {
	t.Helper()
	v, ok := Get(d, path)
	require.True(t, ok, path)
	return v
}

func TestCompare(t *testing.T) {
	ordered := []Value{
		Null(),
		Int(-1),
		Number(2.5),
		String("a"),
		String("b"),
		Object(NewWith(F("a", Int(1)))),
		Array(Int(1)),
		Array(Int(1), Int(2)),
		Bool(false),
		Bool(true),
	}
	for i := range ordered {
		for j := range ordered {
			want := compareInt(i, j)
			assert.Equal(t, want, Compare(ordered[i], ordered[j]), "%s vs %s", ordered[i], ordered[j])
		}
	}
}

func TestJSON_RoundTripKeepsOrder(t *testing.T) {
	input := `{"z":1,"a":{"y":true,"b":[1,"two",null,{"k":2.5}]},"m":"x"}`

	doc, err := ParseJSON([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, doc.Keys())

	out, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
	assert.Equal(t, input, string(out))
}

func TestJSON_ExtendedValues(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"n":{"$numberLong":"42"},"name":{"$regex":"^go","$options":"i"}}`))
	require.NoError(t, err)

	assert.True(t, mustGet(t, doc, "n").Equal(Int(42)))
	assert.Equal(t, `{"$regex":"^go","$options":"i"}`, mustGet(t, doc, "name").String())
}

func TestJSON_Invalid(t *testing.T) {
	_, err := ParseJSON([]byte(`{"a":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ValidationError")
}

func TestValue_UnmarshalJSON(t *testing.T) {
	var v Value
	require.NoError(t, v.UnmarshalJSON([]byte(`[{"b":1,"a":2},3]`)))
	assert.Equal(t, `[{"b":1,"a":2},3]`, v.String())
}

func TestMsgpack_RoundTrip(t *testing.T) {
	doc := sampleBook()

	data, err := msgpack.Marshal(doc)
	require.NoError(t, err)

	decoded := New()
	require.NoError(t, msgpack.Unmarshal(data, decoded))
	assert.True(t, doc.Equal(decoded), "got %s", decoded)
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]interface{}{"b": []interface{}{1, "x"}, "a": int64(7)})
	require.NoError(t, err)
	assert.Equal(t, `{"a":7,"b":[1,"x"]}`, v.String())

	_, err = FromGo(make(chan int))
	assert.Error(t, err)

	assert.Equal(t, map[string]interface{}{"a": float64(7), "b": []interface{}{float64(1), "x"}}, ToGo(v))
}

func TestValue_Truthy(t *testing.T) {
	assert.False(t, Null().Truthy())
	assert.False(t, Bool(false).Truthy())
	assert.False(t, Int(0).Truthy())
	assert.True(t, Int(2).Truthy())
	assert.True(t, String("").Truthy())
	assert.True(t, Array().Truthy())
}
