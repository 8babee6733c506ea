package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/pipeline"
	"hr-query-engine/internal/query/querycontext"
)

// Dataset holds the rows of every collection keyed by collection name.
type Dataset map[querycontext.Collection][]models.Row

// MemoryStore evaluates plans over an in-process dataset. Join and flatten
// behave like a left outer join: employees without a matching row are kept
// with a null sub-document.
type MemoryStore struct {
	mu     sync.RWMutex
	data   Dataset
	index  map[querycontext.Collection]map[string][]models.Row
	logger Logger
}

func NewMemoryStore(data Dataset, log Logger) *MemoryStore {
	s := &MemoryStore{
		logger: log.With(map[string]interface{}{
			"component": "memory-store",
		}),
	}
	s.Load(data)
	return s
}

// Load replaces the dataset.
func (s *MemoryStore) Load(data Dataset) {
	index := make(map[querycontext.Collection]map[string][]models.Row, len(data))
	for c, rows := range data {
		byKey := make(map[string][]models.Row, len(rows))
		for _, r := range rows {
			k := keyOf(r[querycontext.KeyField])
			byKey[k] = append(byKey[k], r)
		}
		index[c] = byKey
	}

	s.mu.Lock()
	s.data = data
	s.index = index
	s.mu.Unlock()

	s.logger.Info("dataset loaded", map[string]interface{}{
		"collections": len(data),
		"employees":   len(data[querycontext.BaseCollection]),
	})
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return ErrStoreUnavailable
	}
	return ctx.Err()
}

func (s *MemoryStore) Execute(ctx context.Context, plan *pipeline.ExecutionPlan) (*models.QueryResult, error) {
	start := time.Now()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	base := s.data[plan.Base]
	docs := make([]models.Row, 0, len(base))
	for _, r := range base {
		docs = append(docs, r.Clone())
	}
	s.mu.RUnlock()

	for _, stage := range plan.Stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		docs, err = s.apply(stage, docs)
		if err != nil {
			return nil, err
		}
	}

	result := finish(plan, docs)
	result.ExecutionTimeMs = models.Millis(time.Since(start))

	s.logger.Info("plan executed", map[string]interface{}{
		"stages": len(plan.Stages),
		"count":  result.Count,
		"took":   result.ExecutionTimeMs,
	})
	return result, nil
}

func (s *MemoryStore) apply(stage pipeline.Stage, docs []models.Row) ([]models.Row, error) {
	switch stage.Kind {
	case pipeline.StageJoin:
		return s.join(stage.Collection, docs), nil
	case pipeline.StageFlatten:
		return flatten(stage.Collection, docs), nil
	case pipeline.StageCoerce:
		for _, d := range docs {
			for _, f := range stage.Fields {
				setPath(d, f, pipeline.CoerceNumber(getPath(d, f)))
			}
		}
		return docs, nil
	case pipeline.StageFilter:
		out := docs[:0]
		for _, d := range docs {
			if MatchAll(d, stage.Conditions) {
				out = append(out, d)
			}
		}
		return out, nil
	case pipeline.StageGroup:
		return group(stage, docs), nil
	case pipeline.StageSort:
		sortDocs(docs, stage.SortField, stage.Direction)
		return docs, nil
	case pipeline.StageLimit:
		if stage.Limit >= 0 && len(docs) > stage.Limit {
			docs = docs[:stage.Limit]
		}
		return docs, nil
	case pipeline.StageProject:
		out := make([]models.Row, len(docs))
		for i, d := range docs {
			row := make(models.Row, len(stage.Fields))
			for _, f := range stage.Fields {
				row[pipeline.OutputName(f)] = getPath(d, f)
			}
			out[i] = row
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedStage, stage.Kind)
}

func (s *MemoryStore) join(c querycontext.Collection, docs []models.Row) []models.Row {
	s.mu.RLock()
	byKey := s.index[c]
	s.mu.RUnlock()

	for _, d := range docs {
		matches := byKey[keyOf(d[querycontext.KeyField])]
		joined := make([]models.Row, len(matches))
		for i, m := range matches {
			joined[i] = m.Clone()
		}
		d[string(c)] = joined
	}
	return docs
}

func flatten(c querycontext.Collection, docs []models.Row) []models.Row {
	out := make([]models.Row, 0, len(docs))
	for _, d := range docs {
		joined, _ := d[string(c)].([]models.Row)
		switch len(joined) {
		case 0:
			d[string(c)] = nil
			out = append(out, d)
		case 1:
			d[string(c)] = joined[0]
			out = append(out, d)
		default:
			for _, j := range joined {
				cp := d.Clone()
				cp[string(c)] = j
				out = append(out, cp)
			}
		}
	}
	return out
}

func group(stage pipeline.Stage, docs []models.Row) []models.Row {
	type bucket struct {
		key  interface{}
		docs []models.Row
	}
	var order []string
	buckets := map[string]*bucket{}

	if stage.GroupKey == "" {
		buckets[""] = &bucket{docs: docs}
		order = append(order, "")
	} else {
		for _, d := range docs {
			v := getPath(d, stage.GroupKey)
			k := keyOf(v)
			b, ok := buckets[k]
			if !ok {
				b = &bucket{key: v}
				buckets[k] = b
				order = append(order, k)
			}
			b.docs = append(b.docs, d)
		}
	}

	out := make([]models.Row, 0, len(order))
	for _, k := range order {
		b := buckets[k]
		row := models.Row{pipeline.GroupKeyField: b.key}
		for _, acc := range stage.Accumulators {
			row[acc.Name] = accumulate(acc, b.docs)
		}
		out = append(out, row)
	}
	return out
}

func accumulate(acc pipeline.Accumulator, docs []models.Row) interface{} {
	if acc.Op == models.AggregationCount {
		return len(docs)
	}
	if len(docs) == 0 {
		return 0.0
	}
	var sum float64
	lo := pipeline.CoerceNumber(getPath(docs[0], acc.Field))
	hi := lo
	for _, d := range docs {
		v := pipeline.CoerceNumber(getPath(d, acc.Field))
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	switch acc.Op {
	case models.AggregationAvg:
		return sum / float64(len(docs))
	case models.AggregationMax:
		return hi
	case models.AggregationMin:
		return lo
	}
	return sum
}

func sortDocs(docs []models.Row, field string, dir models.SortDirection) {
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(getPath(docs[i], field), getPath(docs[j], field))
		if dir == models.SortDesc {
			return c > 0
		}
		return c < 0
	})
}

// compareValues orders nulls first, numbers numerically and everything else as text.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if isNumber(a) && isNumber(b) {
		x, y := pipeline.CoerceNumber(a), pipeline.CoerceNumber(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(fmt.Sprint(a)), strings.ToLower(fmt.Sprint(b)))
}

// MatchAll reports whether a document satisfies every condition.
func MatchAll(d models.Row, conds []models.Condition) bool {
	for _, c := range conds {
		if !match(getPath(d, c.Field), c) {
			return false
		}
	}
	return true
}

func match(v interface{}, c models.Condition) bool {
	switch c.Op {
	case models.OpEq:
		return equal(v, c.Value)
	case models.OpNe:
		return !equal(v, c.Value)
	case models.OpIn:
		for _, want := range listOf(c.Value) {
			if equal(v, want) {
				return true
			}
		}
		return false
	case models.OpContains:
		return contains(v, fmt.Sprint(c.Value))
	case models.OpGt:
		return pipeline.CoerceNumber(v) > pipeline.CoerceNumber(c.Value)
	case models.OpGte:
		return pipeline.CoerceNumber(v) >= pipeline.CoerceNumber(c.Value)
	case models.OpLt:
		return pipeline.CoerceNumber(v) < pipeline.CoerceNumber(c.Value)
	case models.OpLte:
		return pipeline.CoerceNumber(v) <= pipeline.CoerceNumber(c.Value)
	}
	return false
}

func equal(v, want interface{}) bool {
	if v == nil || want == nil {
		return v == want
	}
	if isNumber(want) {
		return pipeline.CoerceNumber(v) == pipeline.CoerceNumber(want)
	}
	return strings.EqualFold(strings.TrimSpace(fmt.Sprint(v)), strings.TrimSpace(fmt.Sprint(want)))
}

// contains matches list elements or comma separated text, case-insensitively.
func contains(v interface{}, needle string) bool {
	needle = strings.ToLower(needle)
	switch t := v.(type) {
	case nil:
		return false
	case []interface{}:
		for _, e := range t {
			if contains(e, needle) {
				return true
			}
		}
		return false
	case []string:
		for _, e := range t {
			if strings.Contains(strings.ToLower(e), needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(fmt.Sprint(v)), needle)
}

func listOf(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return []interface{}{v}
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// getPath resolves "collection.field" through nested rows; a flat key wins.
func getPath(d models.Row, path string) interface{} {
	if v, ok := d[path]; ok {
		return v
	}
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil
	}
	sub, ok := d[head].(models.Row)
	if !ok {
		return nil
	}
	return getPath(sub, rest)
}

func setPath(d models.Row, path string, v interface{}) {
	head, rest, found := strings.Cut(path, ".")
	if !found {
		d[path] = v
		return
	}
	sub, ok := d[head].(models.Row)
	if !ok {
		return
	}
	setPath(sub, rest, v)
}

func keyOf(v interface{}) string {
	if v == nil {
		return "\x00"
	}
	return fmt.Sprint(v)
}
