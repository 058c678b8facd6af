package aggregate

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

func students() []*document.Document {
	return []*document.Document{
		document.D(bson.D{{Key: "name", Value: "Asha"}, {Key: "department", Value: "CS"}, {Key: "gpa", Value: 9}, {Key: "clubs", Value: bson.A{"chess", "drama"}}}),
		document.D(bson.D{{Key: "name", Value: "Ravi"}, {Key: "department", Value: "EE"}, {Key: "gpa", Value: 7}}),
		document.D(bson.D{{Key: "name", Value: "Meera"}, {Key: "department", Value: "CS"}, {Key: "gpa", Value: 8}, {Key: "clubs", Value: bson.A{}}}),
		document.D(bson.D{{Key: "name", Value: "John"}, {Key: "department", Value: "EE"}, {Key: "gpa", Value: 6}, {Key: "clubs", Value: bson.A{"robotics"}}}),
		document.D(bson.D{{Key: "name", Value: "Lee"}, {Key: "department", Value: "CS"}, {Key: "gpa", Value: "n/a"}}),
	}
}

func pipeline(t *testing.T, stages ...bson.D) *Pipeline {
	t.Helper()
	values := make([]document.Value, len(stages))
	for i, s := range stages {
		values[i] = document.Object(document.D(s))
	}
	p, err := Compile(values)
	require.NoError(t, err)
	return p
}

func render(docs []*document.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.String()
	}
	return out
}

func TestGroup_CountsPerDepartment(t *testing.T) {
	p := pipeline(t, bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$department"},
		{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
	}}})

	out := Run(students(), p)
	require.Len(t, out, 2)

	totals := map[string]string{}
	for _, d := range out {
		id, _ := d.Get("_id")
		total, _ := d.Get("total")
		totals[id.String()] = total.String()
	}
	assert.Equal(t, map[string]string{`"CS"`: "3", `"EE"`: "2"}, totals)
}

func TestGroup_NegativeZeroSharesGroup(t *testing.T) {
	negZero := math.Copysign(0, -1)
	docs := []*document.Document{
		document.D(bson.D{{Key: "balance", Value: 0.0}, {Key: "at", Value: bson.D{{Key: "x", Value: 0.0}}}}),
		document.D(bson.D{{Key: "balance", Value: negZero}, {Key: "at", Value: bson.D{{Key: "x", Value: negZero}}}}),
		document.D(bson.D{{Key: "balance", Value: 5}, {Key: "at", Value: bson.D{{Key: "x", Value: 5}}}}),
	}

	for _, field := range []string{"$balance", "$at"} {
		p := pipeline(t, bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: field},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}})

		out := Run(docs, p)
		require.Len(t, out, 2, field)
		n, _ := out[0].Get("n")
		assert.Equal(t, "2", n.String(), field)
	}
}

func TestGroup_Accumulators(t *testing.T) {
	p := pipeline(t,
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$department"},
			{Key: "avgGpa", Value: bson.D{{Key: "$avg", Value: "$gpa"}}},
			{Key: "sumGpa", Value: bson.D{{Key: "$sum", Value: "$gpa"}}},
			{Key: "n", Value: bson.D{{Key: "$count", Value: bson.D{}}}},
			{Key: "best", Value: bson.D{{Key: "$max", Value: "$gpa"}}},
			{Key: "first", Value: bson.D{{Key: "$first", Value: "$name"}}},
			{Key: "last", Value: bson.D{{Key: "$last", Value: "$name"}}},
			{Key: "names", Value: bson.D{{Key: "$push", Value: "$name"}}},
			{Key: "depts", Value: bson.D{{Key: "$addToSet", Value: "$department"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	)

	assert.Equal(t, []string{
		`{"_id":"CS","avgGpa":8.5,"sumGpa":17,"n":3,"best":"n/a","first":"Asha","last":"Lee","names":["Asha","Meera","Lee"],"depts":["CS"]}`,
		`{"_id":"EE","avgGpa":6.5,"sumGpa":13,"n":2,"best":7,"first":"Ravi","last":"John","names":["Ravi","John"],"depts":["EE"]}`,
	}, render(Run(students(), p)))
}

func TestGroup_CompoundAndNullKeys(t *testing.T) {
	p := pipeline(t, bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: bson.D{{Key: "dept", Value: "$department"}, {Key: "club", Value: "$clubs"}}},
		{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
	}}})
	out := Run(students()[:2], p)
	assert.Equal(t, []string{
		`{"_id":{"dept":"CS","club":["chess","drama"]},"n":1}`,
		`{"_id":{"dept":"EE"},"n":1}`,
	}, render(out))

	p = pipeline(t, bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: nil},
		{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$missing"}}},
	}}})
	assert.Equal(t, []string{`{"_id":null,"avg":null}`}, render(Run(students(), p)))
}

func TestPipeline_MatchSortCount(t *testing.T) {
	p := pipeline(t,
		bson.D{{Key: "$match", Value: bson.D{{Key: "gpa", Value: bson.D{{Key: "$gte", Value: 7}}}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "gpa", Value: -1}}}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "name", Value: 1}}}},
	)
	assert.Equal(t, []string{`{"name":"Asha"}`, `{"name":"Meera"}`, `{"name":"Ravi"}`}, render(Run(students(), p)))

	p = pipeline(t,
		bson.D{{Key: "$match", Value: bson.D{{Key: "department", Value: "CS"}}}},
		bson.D{{Key: "$count", Value: "csStudents"}},
	)
	assert.Equal(t, []string{`{"csStudents":3}`}, render(Run(students(), p)))

	p = pipeline(t,
		bson.D{{Key: "$match", Value: bson.D{{Key: "department", Value: "ME"}}}},
		bson.D{{Key: "$count", Value: "n"}},
	)
	assert.Equal(t, []string{`{"n":0}`}, render(Run(students(), p)))
}

func TestPipeline_SkipLimit(t *testing.T) {
	p := pipeline(t,
		bson.D{{Key: "$skip", Value: 1}},
		bson.D{{Key: "$limit", Value: 2}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "name", Value: 1}}}},
	)
	assert.Equal(t, []string{`{"name":"Ravi"}`, `{"name":"Meera"}`}, render(Run(students(), p)))

	p = pipeline(t, bson.D{{Key: "$skip", Value: 10}})
	assert.Empty(t, Run(students(), p))
}

func TestPipeline_Unwind(t *testing.T) {
	p := pipeline(t,
		bson.D{{Key: "$unwind", Value: "$clubs"}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "name", Value: 1}, {Key: "clubs", Value: 1}}}},
	)
	assert.Equal(t, []string{
		`{"name":"Asha","clubs":"chess"}`,
		`{"name":"Asha","clubs":"drama"}`,
		`{"name":"John","clubs":"robotics"}`,
	}, render(Run(students(), p)))

	p = pipeline(t, bson.D{{Key: "$unwind", Value: bson.D{
		{Key: "path", Value: "$clubs"},
		{Key: "preserveNullAndEmptyArrays", Value: true},
	}}})
	assert.Len(t, Run(students(), p), 6)
}

func TestRun_DoesNotModifyInput(t *testing.T) {
	input := students()
	snapshot := render(input)

	p := pipeline(t,
		bson.D{{Key: "$unwind", Value: "$clubs"}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "name", Value: 1}}}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "clubs", Value: 0}}}},
	)
	Run(input, p)
	assert.Equal(t, snapshot, render(input))
}

func TestRun_EmptyPipeline(t *testing.T) {
	p, err := Compile(nil)
	require.NoError(t, err)
	assert.Len(t, Run(students(), p), 5)
}

func TestNew_ConstructedStages(t *testing.T) {
	p := New(
		&MatchStage{Filter: filter.Eq("department", document.String("EE"))},
		&GroupStage{Key: Literal(document.String("all")), Accumulators: []Accumulator{
			{Field: "avg", Op: AccAvg, Arg: Field("gpa")},
		}},
	)
	assert.Equal(t, []string{`{"_id":"all","avg":6.5}`}, render(Run(students(), p)))
	assert.Equal(t, "$group", p.Stages()[1].Name())
}

func TestCompile_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		stage bson.D
	}{
		{name: "unknown stage", stage: bson.D{{Key: "$lookup", Value: bson.D{}}}},
		{name: "two operators", stage: bson.D{{Key: "$skip", Value: 1}, {Key: "$limit", Value: 1}}},
		{name: "match needs document", stage: bson.D{{Key: "$match", Value: 1}}},
		{name: "bad filter", stage: bson.D{{Key: "$match", Value: bson.D{{Key: "a", Value: bson.D{{Key: "$bad", Value: 1}}}}}}},
		{name: "group without id", stage: bson.D{{Key: "$group", Value: bson.D{{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}}}}}},
		{name: "unknown accumulator", stage: bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: nil}, {Key: "n", Value: bson.D{{Key: "$median", Value: "$a"}}}}}}},
		{name: "accumulator not a document", stage: bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: nil}, {Key: "n", Value: 1}}}}},
		{name: "dotted output field", stage: bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: nil}, {Key: "a.b", Value: bson.D{{Key: "$sum", Value: 1}}}}}}},
		{name: "count with arguments", stage: bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: nil}, {Key: "n", Value: bson.D{{Key: "$count", Value: 1}}}}}}},
		{name: "sort direction", stage: bson.D{{Key: "$sort", Value: bson.D{{Key: "a", Value: 0}}}}},
		{name: "empty sort", stage: bson.D{{Key: "$sort", Value: bson.D{}}}},
		{name: "count name", stage: bson.D{{Key: "$count", Value: "$n"}}},
		{name: "negative skip", stage: bson.D{{Key: "$skip", Value: -1}}},
		{name: "zero limit", stage: bson.D{{Key: "$limit", Value: 0}}},
		{name: "mixed projection", stage: bson.D{{Key: "$project", Value: bson.D{{Key: "a", Value: 1}, {Key: "b", Value: 0}}}}},
		{name: "unwind needs reference", stage: bson.D{{Key: "$unwind", Value: "clubs"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]document.Value{document.Object(document.D(tt.stage))})
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}

	_, err := CompileArray(document.String("nope"))
	assert.True(t, domain.IsValidation(err))
}
