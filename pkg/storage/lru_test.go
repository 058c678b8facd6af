package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
	"github.com/adfharrison1/go-docquery/pkg/query/filter"
)

func TestFilterCache_Eviction(t *testing.T) {
	cache := NewFilterCache(2)

	cache.Put("a", filter.Eq("a", document.Int(1)))
	cache.Put("b", filter.Eq("b", document.Int(1)))

	// Touch "a" so "b" becomes the oldest entry
	_, found := cache.Get("a")
	require.True(t, found)

	cache.Put("c", filter.Eq("c", document.Int(1)))
	assert.Equal(t, 2, cache.Len())

	_, found = cache.Get("b")
	assert.False(t, found)
	_, found = cache.Get("a")
	assert.True(t, found)
	_, found = cache.Get("c")
	assert.True(t, found)
}

func TestFilterCache_Compile(t *testing.T) {
	cache := NewFilterCache(4)

	expr, err := cache.Compile(nil)
	require.NoError(t, err)
	assert.Nil(t, expr)

	expr, err = cache.Compile(document.New())
	require.NoError(t, err)
	assert.Nil(t, expr)
	assert.Equal(t, 0, cache.Len())

	doc := document.D(bson.D{{Key: "price", Value: bson.D{{Key: "$gt", Value: 50}}}})
	first, err := cache.Compile(doc)
	require.NoError(t, err)
	second, err := cache.Compile(doc.Clone())
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = cache.Compile(document.D(bson.D{{Key: "$where", Value: "1"}}))
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, 1, cache.Len())
}

func TestFilterCache_NonFiniteOperands(t *testing.T) {
	cache := NewFilterCache(4)
	cheap := document.D(bson.D{{Key: "price", Value: 30}})
	unpriced := document.D(bson.D{{Key: "price", Value: nil}})

	lessThan := func(v document.Value) *document.Document {
		return document.NewWith(document.F("price", document.Object(
			document.NewWith(document.F("$lt", v)))))
	}

	belowInf, err := cache.Compile(lessThan(document.Number(math.Inf(1))))
	require.NoError(t, err)
	belowNull, err := cache.Compile(lessThan(document.Null()))
	require.NoError(t, err)

	assert.NotSame(t, belowInf, belowNull)
	assert.Equal(t, 2, cache.Len())
	assert.True(t, filter.Matches(cheap, belowInf))
	assert.False(t, filter.Matches(cheap, belowNull))
	assert.False(t, filter.Matches(unpriced, belowNull))

	_, err = cache.Compile(lessThan(document.Number(math.NaN())))
	require.NoError(t, err)
	assert.Equal(t, 3, cache.Len())
}

func TestFilterCache_Disabled(t *testing.T) {
	cache := NewFilterCache(0)
	_, err := cache.Compile(document.D(bson.D{{Key: "a", Value: 1}}))
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())
}
