// Package aggregate runs aggregation pipelines over document sequences.
//
// A pipeline is an ordered list of single-key stage documents:
//
//	[{"$match": {"year": 2}},
//	 {"$group": {"_id": "$department", "total": {"$sum": 1}}},
//	 {"$sort": {"total": -1}}]
//
// Each stage consumes the complete output of the previous one. Stages never
// modify their input documents.
package aggregate

import (
	"strings"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
	"github.com/adfharrison1/go-docquery/pkg/query/filter"
	"github.com/adfharrison1/go-docquery/pkg/query/order"
	"github.com/adfharrison1/go-docquery/pkg/query/projection"
)

// Stage is one step of a pipeline.
type Stage interface {
	// Name returns the stage operator, e.g. "$match".
	Name() string
	// Apply transforms the input sequence.
	Apply(docs []*document.Document) []*document.Document
}

// Pipeline is a compiled, ordered list of stages.
type Pipeline struct {
	stages []Stage
}

// New builds a pipeline from already constructed stages.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Compile validates a list of stage documents.
func Compile(stages []document.Value) (*Pipeline, error) {
	p := &Pipeline{stages: make([]Stage, 0, len(stages))}
	for i, raw := range stages {
		spec, ok := raw.AsObject()
		if !ok || spec.Len() != 1 {
			return nil, domain.Validation("pipeline stage %d must be a document with exactly one operator", i)
		}
		name := spec.Keys()[0]
		operand, _ := spec.Get(name)

		stage, err := compileStage(name, operand)
		if err != nil {
			return nil, domain.ValidationCause(err, "pipeline stage %d (%s)", i, name)
		}
		p.stages = append(p.stages, stage)
	}
	return p, nil
}

// CompileArray compiles a pipeline held in an array value, as decoded from a
// request body.
func CompileArray(v document.Value) (*Pipeline, error) {
	stages, ok := v.AsArray()
	if !ok {
		return nil, domain.Validation("pipeline must be an array of stages, got %s", v.Kind())
	}
	return Compile(stages)
}

func compileStage(name string, operand document.Value) (Stage, error) {
	switch name {
	case "$match":
		d, ok := operand.AsObject()
		if !ok {
			return nil, domain.Validation("$match requires a filter document")
		}
		expr, err := filter.Compile(d)
		if err != nil {
			return nil, err
		}
		return &MatchStage{Filter: expr}, nil

	case "$group":
		d, ok := operand.AsObject()
		if !ok {
			return nil, domain.Validation("$group requires a document")
		}
		return compileGroup(d)

	case "$sort":
		d, ok := operand.AsObject()
		if !ok || d.Len() == 0 {
			return nil, domain.Validation("$sort requires a non-empty sort document")
		}
		spec, err := order.Compile(d)
		if err != nil {
			return nil, err
		}
		return &SortStage{Spec: spec}, nil

	case "$count":
		field, ok := operand.AsString()
		if !ok || field == "" || strings.HasPrefix(field, "$") || strings.Contains(field, ".") {
			return nil, domain.Validation("$count requires a plain field name")
		}
		return &CountStage{Field: field}, nil

	case "$project":
		d, ok := operand.AsObject()
		if !ok || d.Len() == 0 {
			return nil, domain.Validation("$project requires a non-empty projection document")
		}
		p, err := projection.Compile(d)
		if err != nil {
			return nil, err
		}
		return &ProjectStage{Projection: p}, nil

	case "$skip", "$limit":
		n, ok := operand.AsInt()
		if !ok || n < 0 || (name == "$limit" && n == 0) {
			return nil, domain.Validation("%s requires a positive integer, got %s", name, operand)
		}
		if name == "$skip" {
			return &SkipStage{N: n}, nil
		}
		return &LimitStage{N: n}, nil

	case "$unwind":
		return compileUnwind(operand)
	}
	return nil, domain.Validation("unknown pipeline stage %s", name)
}

// Run threads docs through every stage of p in order.
func Run(docs []*document.Document, p *Pipeline) []*document.Document {
	out := make([]*document.Document, len(docs))
	copy(out, docs)
	if p == nil {
		return out
	}
	for _, stage := range p.stages {
		out = stage.Apply(out)
	}
	return out
}

// MatchStage keeps documents satisfying Filter, in order.
type MatchStage struct {
	Filter filter.Expr
}

func (s *MatchStage) Name() string { return "$match" }

func (s *MatchStage) Apply(docs []*document.Document) []*document.Document {
	out := docs[:0:0]
	for _, d := range docs {
		if filter.Matches(d, s.Filter) {
			out = append(out, d)
		}
	}
	return out
}

// SortStage stably sorts by Spec.
type SortStage struct {
	Spec order.Spec
}

func (s *SortStage) Name() string { return "$sort" }

func (s *SortStage) Apply(docs []*document.Document) []*document.Document {
	out := make([]*document.Document, len(docs))
	copy(out, docs)
	order.Sort(out, s.Spec)
	return out
}

// CountStage collapses the sequence into {Field: n}. It emits a document even
// when the input is empty.
type CountStage struct {
	Field string
}

func (s *CountStage) Name() string { return "$count" }

func (s *CountStage) Apply(docs []*document.Document) []*document.Document {
	return []*document.Document{document.NewWith(document.F(s.Field, document.Int(len(docs))))}
}

// ProjectStage reshapes each document.
type ProjectStage struct {
	Projection *projection.Projection
}

func (s *ProjectStage) Name() string { return "$project" }

func (s *ProjectStage) Apply(docs []*document.Document) []*document.Document {
	return s.Projection.ApplyAll(docs)
}

// SkipStage drops the first N documents.
type SkipStage struct {
	N int
}

func (s *SkipStage) Name() string { return "$skip" }

func (s *SkipStage) Apply(docs []*document.Document) []*document.Document {
	if s.N >= len(docs) {
		return nil
	}
	return docs[s.N:]
}

// LimitStage keeps at most N documents.
type LimitStage struct {
	N int
}

func (s *LimitStage) Name() string { return "$limit" }

func (s *LimitStage) Apply(docs []*document.Document) []*document.Document {
	if s.N < len(docs) {
		return docs[:s.N]
	}
	return docs
}

// UnwindStage emits one document per element of the array at Path. Documents
// where the field is absent, null or an empty array are dropped unless
// PreserveEmpty is set; non-array values pass through unchanged.
type UnwindStage struct {
	Path          string
	PreserveEmpty bool
}

func (s *UnwindStage) Name() string { return "$unwind" }

func (s *UnwindStage) Apply(docs []*document.Document) []*document.Document {
	var out []*document.Document
	for _, d := range docs {
		v, ok := document.Get(d, s.Path)
		arr, isArray := v.AsArray()
		switch {
		case !ok || v.IsNull() || (isArray && len(arr) == 0):
			if s.PreserveEmpty {
				out = append(out, d)
			}
		case !isArray:
			out = append(out, d)
		default:
			for _, elem := range arr {
				clone := d.Clone()
				// The path resolved to an array, so every parent exists.
				_ = document.Set(clone, s.Path, elem.Clone())
				out = append(out, clone)
			}
		}
	}
	return out
}

func compileUnwind(operand document.Value) (Stage, error) {
	stage := &UnwindStage{}
	ref := operand
	if d, ok := operand.AsObject(); ok {
		for _, key := range d.Keys() {
			v, _ := d.Get(key)
			switch key {
			case "path":
				ref = v
			case "preserveNullAndEmptyArrays":
				b, ok := v.AsBool()
				if !ok {
					return nil, domain.Validation("preserveNullAndEmptyArrays must be a boolean")
				}
				stage.PreserveEmpty = b
			default:
				return nil, domain.Validation("unknown $unwind option %q", key)
			}
		}
	}
	path, ok := fieldRef(ref)
	if !ok {
		return nil, domain.Validation("$unwind requires a \"$field\" path")
	}
	if err := document.ValidatePath(path); err != nil {
		return nil, err
	}
	stage.Path = path
	return stage, nil
}

// fieldRef extracts the path from a "$field" reference.
func fieldRef(v document.Value) (string, bool) {
	s, ok := v.AsString()
	if !ok || len(s) < 2 || s[0] != '$' {
		return "", false
	}
	return s[1:], true
}
